// Package pagination computes offset/limit windows over derived, in-memory collections.
package pagination

import (
	"fmt"
	"net/url"
	"strconv"
)

// Request is an offset/limit window over a collection
type Request struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Response is the envelope returned for a paginated collection. Next and Previous
// are omitted when no such page exists.
type Response[T any] struct {
	Data     []T      `json:"data"`
	Total    int      `json:"total"`
	Next     *Request `json:"next,omitempty"`
	Previous *Request `json:"previous,omitempty"`
}

// ValidationError reports pagination parameters that cannot be served
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid pagination: " + e.Reason
	}
	return fmt.Sprintf("invalid pagination %s=%q: %s", e.Field, e.Value, e.Reason)
}

// IsInvalid reports whether the window cannot be served from a collection of size total
func IsInvalid(offset, limit, total int) bool {
	return offset >= total || limit <= 0 || offset < 0
}

// Window validates offset and limit against total
func Window(offset, limit, total int) (Request, error) {
	if IsInvalid(offset, limit, total) {
		return Request{}, &ValidationError{
			Reason: fmt.Sprintf("offset %d limit %d outside collection of %d", offset, limit, total),
		}
	}
	return Request{Offset: offset, Limit: limit}, nil
}

// Next returns the window after r, or nil at the end of the collection
func Next(r Request, total int) *Request {
	// A limit reaching past total also keeps offset+limit from overflowing
	if r.Limit <= 0 || r.Limit >= total-r.Offset {
		return nil
	}
	candidate := Request{Offset: r.Offset + r.Limit, Limit: r.Limit}
	if IsInvalid(candidate.Offset, candidate.Limit, total) {
		return nil
	}
	return &candidate
}

// Previous returns the window before r, or nil at the start of the collection
func Previous(r Request, total int) *Request {
	candidate := Request{Offset: r.Offset - r.Limit, Limit: r.Limit}
	if IsInvalid(candidate.Offset, candidate.Limit, total) {
		return nil
	}
	return &candidate
}

// FromQuery reads offset and limit from query parameters and validates them against total.
// Both parameters are required.
func FromQuery(q url.Values, total int) (Request, error) {
	offset, err := intParam(q, "offset")
	if err != nil {
		return Request{}, err
	}
	limit, err := intParam(q, "limit")
	if err != nil {
		return Request{}, err
	}
	return Window(offset, limit, total)
}

func intParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, &ValidationError{Field: name, Reason: "missing"}
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{Field: name, Value: raw, Reason: "not an integer"}
	}
	if v < 0 {
		return 0, &ValidationError{Field: name, Value: raw, Reason: "must not be negative"}
	}
	return v, nil
}

// Slice returns the items inside r. A final page shorter than the limit is
// returned as is.
func Slice[T any](items []T, r Request) []T {
	if r.Offset >= len(items) || r.Offset < 0 || r.Limit <= 0 {
		return []T{}
	}
	end := len(items)
	if r.Limit < end-r.Offset {
		end = r.Offset + r.Limit
	}
	return items[r.Offset:end]
}

// Paginate builds the response envelope for the window r over items
func Paginate[T any](items []T, r Request) Response[T] {
	total := len(items)
	return Response[T]{
		Data:     Slice(items, r),
		Total:    total,
		Next:     Next(r, total),
		Previous: Previous(r, total),
	}
}
