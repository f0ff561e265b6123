package pagination

import (
	"errors"
	"math"
	"net/url"
	"reflect"
	"testing"
)

func TestIsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                 string
		offset, limit, total int
		expected             bool
	}{
		{"offset equals total", 5, 10, 5, true},
		{"negative offset", -1, 10, 5, true},
		{"zero limit", 0, 0, 5, true},
		{"negative limit", 0, -3, 5, true},
		{"empty collection", 0, 10, 0, true},
		{"first page", 0, 10, 15, false},
		{"last element", 14, 10, 15, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsInvalid(tt.offset, tt.limit, tt.total); got != tt.expected {
				t.Errorf("IsInvalid(%d, %d, %d) = %v, want %v", tt.offset, tt.limit, tt.total, got, tt.expected)
			}
		})
	}
}

func TestWindow(t *testing.T) {
	t.Parallel()

	r, err := Window(10, 5, 15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != (Request{Offset: 10, Limit: 5}) {
		t.Errorf("unexpected window %+v", r)
	}

	_, err = Window(15, 5, 15)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
}

func TestNextAndPrevious(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		req          Request
		total        int
		wantNext     *Request
		wantPrevious *Request
	}{
		{"first of two", Request{0, 10}, 15, &Request{10, 10}, nil},
		{"last of two", Request{10, 10}, 15, nil, &Request{0, 10}},
		{"middle", Request{5, 5}, 15, &Request{10, 5}, &Request{0, 5}},
		{"previous would go negative", Request{3, 5}, 15, &Request{8, 5}, nil},
		{"single page", Request{0, 20}, 15, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Next(tt.req, tt.total); !reflect.DeepEqual(got, tt.wantNext) {
				t.Errorf("Next = %+v, want %+v", got, tt.wantNext)
			}
			if got := Previous(tt.req, tt.total); !reflect.DeepEqual(got, tt.wantPrevious) {
				t.Errorf("Previous = %+v, want %+v", got, tt.wantPrevious)
			}
		})
	}
}

func TestFromQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		query   string
		total   int
		want    Request
		wantErr bool
	}{
		{"valid", "offset=0&limit=10", 15, Request{0, 10}, false},
		{"missing offset", "limit=10", 15, Request{}, true},
		{"missing limit", "offset=0", 15, Request{}, true},
		{"malformed", "offset=abc&limit=10", 15, Request{}, true},
		{"negative limit", "offset=0&limit=-1", 15, Request{}, true},
		{"out of range", "offset=20&limit=10", 15, Request{}, true},
		{"zero limit", "offset=0&limit=0", 15, Request{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("bad query: %v", err)
			}
			got, err := FromQuery(q, tt.total)
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected *ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPaginate(t *testing.T) {
	t.Parallel()

	items := make([]int, 15)
	for i := range items {
		items[i] = i
	}

	first := Paginate(items, Request{Offset: 0, Limit: 10})
	if len(first.Data) != 10 || first.Total != 15 {
		t.Errorf("unexpected first page: %d items, total %d", len(first.Data), first.Total)
	}
	if first.Next == nil || *first.Next != (Request{10, 10}) || first.Previous != nil {
		t.Errorf("unexpected cursors next=%+v previous=%+v", first.Next, first.Previous)
	}

	last := Paginate(items, Request{Offset: 10, Limit: 10})
	if !reflect.DeepEqual(last.Data, []int{10, 11, 12, 13, 14}) {
		t.Errorf("expected short last page, got %v", last.Data)
	}
	if last.Next != nil {
		t.Errorf("expected no next page, got %+v", last.Next)
	}
}

func TestSliceOutOfRange(t *testing.T) {
	t.Parallel()

	if got := Slice([]string{"a"}, Request{Offset: 3, Limit: 1}); len(got) != 0 || got == nil {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestHugeLimit(t *testing.T) {
	t.Parallel()

	items := []int{0, 1, 2}

	page := Paginate(items, Request{Offset: 1, Limit: math.MaxInt})
	if !reflect.DeepEqual(page.Data, []int{1, 2}) {
		t.Errorf("expected the rest of the collection, got %v", page.Data)
	}
	if page.Next != nil {
		t.Errorf("expected no next page, got %+v", page.Next)
	}
	if page.Previous != nil {
		t.Errorf("expected no previous page, got %+v", page.Previous)
	}

	if got := Next(Request{Offset: 2, Limit: math.MaxInt}, 3); got != nil {
		t.Errorf("expected nil next, got %+v", got)
	}

	q := url.Values{"offset": {"1"}, "limit": {"9223372036854775807"}}
	window, err := FromQuery(q, len(items))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := Slice(items, window); len(got) != 2 {
		t.Errorf("expected 2 items, got %v", got)
	}
}
