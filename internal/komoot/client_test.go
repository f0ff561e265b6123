package komoot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joshdurbin/komoot-stats/internal/auth"
)

const (
	testEmail    = "rider@example.com"
	testPassword = "hunter2"
	testUsername = "1234567"
)

// fakeKomoot is a minimal stand-in for the Komoot account and tours endpoints
type fakeKomoot struct {
	t         *testing.T
	server    *httptest.Server
	logins    atomic.Int32
	tokens    atomic.Int32
	pages     [][]Tour
	pageHits  atomic.Int32
	rejectFor atomic.Int32 // number of tour requests to answer with 401
}

func newFakeKomoot(t *testing.T, pages [][]Tour) *fakeKomoot {
	t.Helper()
	f := &fakeKomoot{t: t, pages: pages}
	mux := http.NewServeMux()

	mux.HandleFunc("/v006/account/email/"+testEmail+"/", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != testEmail || pass != testPassword {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		f.logins.Add(1)
		token := fmt.Sprintf("token-%d", f.tokens.Add(1))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"email":%q,"username":%q,"password":%q,"user":{"username":%q,"displayname":"Rider"}}`,
			testEmail, testUsername, token, testUsername)
	})

	mux.HandleFunc("/v007/users/"+testUsername+"/tours/", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != testUsername || !strings.HasPrefix(pass, "token-") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.rejectFor.Load() > 0 {
			f.rejectFor.Add(-1)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.pageHits.Add(1)

		page := 0
		if p := r.URL.Query().Get("page"); p != "" {
			fmt.Sscanf(p, "%d", &page)
		}

		body := map[string]any{
			"_embedded": map[string]any{"tours": f.pages[page]},
			"_links":    map[string]any{"self": map[string]string{"href": r.URL.String()}},
			"page":      map[string]int{"number": page, "size": 2, "totalPages": len(f.pages)},
		}
		if page+1 < len(f.pages) {
			body["_links"].(map[string]any)["next"] = map[string]string{
				"href": fmt.Sprintf("%s/v007/users/%s/tours/?type=tour_recorded&format=coordinate_array&page=%d", f.server.URL, testUsername, page+1),
			}
		}
		w.Header().Set("Content-Type", "application/hal+json")
		json.NewEncoder(w).Encode(body)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeKomoot) client() *Client {
	cfg := &auth.Config{
		Email:       testEmail,
		Password:    testPassword,
		APIBase:     f.server.URL + "/v007",
		AccountBase: f.server.URL + "/v006",
	}
	return NewClient(cfg).WithRetryConfig(2, 10*time.Millisecond, 50*time.Millisecond)
}

func sampleTours() [][]Tour {
	return [][]Tour{
		{
			{ID: 1, Name: "Morning Ride(R)", Sport: "racebike", Date: "2024-05-06T07:00:00.000Z", Duration: 3600, Distance: 30000},
			{ID: 2, Name: "Lunch Run", Sport: "jogging", Date: "2024-05-05T12:00:00.000Z", Duration: 1800, Distance: 5000},
		},
		{
			{ID: 3, Name: "Hike", Sport: "hiking", Date: "2024-05-01T09:00:00.000Z", Duration: 7200, Distance: 10000},
		},
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()

	f := newFakeKomoot(t, sampleTours())
	c := f.client()

	if c.Session() != nil {
		t.Fatal("expected no session before login")
	}
	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := c.Session()
	if s == nil || s.Username != testUsername || s.Token != "token-1" {
		t.Errorf("unexpected session: %+v", s)
	}

	// Logging in again replaces the session
	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("unexpected error on re-login: %v", err)
	}
	if got := c.Session().Token; got != "token-2" {
		t.Errorf("expected token-2 after re-login, got %s", got)
	}
}

func TestLoginRejected(t *testing.T) {
	t.Parallel()

	f := newFakeKomoot(t, sampleTours())
	c := NewClient(&auth.Config{
		Email:       testEmail,
		Password:    "wrong",
		APIBase:     f.server.URL + "/v007",
		AccountBase: f.server.URL + "/v006",
	}).WithRetryConfig(0, time.Millisecond, time.Millisecond)

	err := c.Login(context.Background())
	if !IsAuthError(err) {
		t.Fatalf("expected AuthError, got %v", err)
	}

	var authErr *AuthError
	errors.As(err, &authErr)
	if authErr.StatusCode != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", authErr.StatusCode)
	}
}

func TestLoginNetworkFailure(t *testing.T) {
	t.Parallel()

	c := NewClient(&auth.Config{
		Email:       testEmail,
		Password:    testPassword,
		APIBase:     "http://127.0.0.1:1/v007",
		AccountBase: "http://127.0.0.1:1/v006",
	}).WithRetryConfig(0, time.Millisecond, time.Millisecond)

	if err := c.Login(context.Background()); !IsAuthError(err) {
		t.Fatalf("expected AuthError for network failure, got %v", err)
	}
}

func TestFetchAllTours(t *testing.T) {
	t.Parallel()

	f := newFakeKomoot(t, sampleTours())
	c := f.client()

	var progressCalls []FetchResult
	tours, err := c.FetchAllTours(context.Background(), func(result FetchResult) {
		progressCalls = append(progressCalls, result)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(tours) != 3 {
		t.Fatalf("expected 3 tours, got %d", len(tours))
	}
	for i, id := range []int64{1, 2, 3} {
		if tours[i].ID != id {
			t.Errorf("tour %d: expected id %d, got %d", i, id, tours[i].ID)
		}
	}

	if f.logins.Load() != 1 {
		t.Errorf("expected a single lazy login, got %d", f.logins.Load())
	}

	if len(progressCalls) != 2 {
		t.Fatalf("expected 2 progress calls, got %d", len(progressCalls))
	}
	if progressCalls[0].Page != 1 || progressCalls[0].TotalFetched != 2 || !progressCalls[0].HasNext {
		t.Errorf("unexpected first progress call: %+v", progressCalls[0])
	}
	if progressCalls[1].Page != 2 || progressCalls[1].TotalFetched != 3 || progressCalls[1].HasNext {
		t.Errorf("unexpected second progress call: %+v", progressCalls[1])
	}
}

func TestFetchAllToursEmpty(t *testing.T) {
	t.Parallel()

	f := newFakeKomoot(t, [][]Tour{{}})
	tours, err := f.client().FetchAllTours(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tours) != 0 {
		t.Errorf("expected no tours, got %d", len(tours))
	}
}

func TestFetchPageReloginOn401(t *testing.T) {
	t.Parallel()

	f := newFakeKomoot(t, sampleTours())
	c := f.client()
	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("login: %v", err)
	}

	f.rejectFor.Store(1)
	tours, err := c.FetchAllTours(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected retry after re-login to succeed, got %v", err)
	}
	if len(tours) != 3 {
		t.Errorf("expected 3 tours, got %d", len(tours))
	}
	if f.logins.Load() != 2 {
		t.Errorf("expected exactly one re-login (2 logins total), got %d", f.logins.Load())
	}
}

func TestFetchPageSecond401IsAuthError(t *testing.T) {
	t.Parallel()

	f := newFakeKomoot(t, sampleTours())
	c := f.client()
	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("login: %v", err)
	}

	f.rejectFor.Store(10)
	_, err := c.FetchAllTours(context.Background(), nil)
	if !IsAuthError(err) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized cause, got %v", err)
	}
	if f.logins.Load() != 2 {
		t.Errorf("expected one re-login only, got %d logins", f.logins.Load())
	}
	// Two rejected attempts, no more
	if remaining := f.rejectFor.Load(); remaining != 8 {
		t.Errorf("expected 2 attempts to be rejected, %d rejections remain", remaining)
	}
}

func TestFetchAllToursServerError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/account/") {
			fmt.Fprintf(w, `{"username":"u","password":"p","user":{"username":"u"}}`)
			return
		}
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(&auth.Config{
		Email:       testEmail,
		Password:    testPassword,
		APIBase:     server.URL,
		AccountBase: server.URL,
	}).WithRetryConfig(2, time.Millisecond, 5*time.Millisecond)

	tours, err := c.FetchAllTours(context.Background(), nil)
	if !IsFetchError(err) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if tours != nil {
		t.Errorf("expected no partial results, got %d tours", len(tours))
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", calls.Load())
	}
}

func TestFetchAllToursDecodeFailureAbortsMidway(t *testing.T) {
	t.Parallel()

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/account/") {
			fmt.Fprintf(w, `{"username":"u","password":"p","user":{"username":"u"}}`)
			return
		}
		if r.URL.Query().Get("page") == "1" {
			fmt.Fprint(w, `{"_embedded": {"tours": [`)
			return
		}
		fmt.Fprintf(w, `{"_embedded":{"tours":[{"id":1,"date":"2024-01-01T00:00:00Z"}]},"_links":{"next":{"href":"%s/users/u/tours/?page=1"}}}`, server.URL)
	}))
	defer server.Close()

	c := NewClient(&auth.Config{
		Email:       testEmail,
		Password:    testPassword,
		APIBase:     server.URL,
		AccountBase: server.URL,
	}).WithRetryConfig(0, time.Millisecond, time.Millisecond)

	tours, err := c.FetchAllTours(context.Background(), nil)
	if !IsFetchError(err) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if tours != nil {
		t.Errorf("expected no partial results, got %d tours", len(tours))
	}
}

func TestFetchAllToursDetectsLoop(t *testing.T) {
	t.Parallel()

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/account/") {
			fmt.Fprintf(w, `{"username":"u","password":"p","user":{"username":"u"}}`)
			return
		}
		fmt.Fprintf(w, `{"_embedded":{"tours":[]},"_links":{"next":{"href":"%s/users/u/tours/?type=tour_recorded&format=coordinate_array"}}}`, server.URL)
	}))
	defer server.Close()

	c := NewClient(&auth.Config{
		Email:       testEmail,
		Password:    testPassword,
		APIBase:     server.URL,
		AccountBase: server.URL,
	})

	_, err := c.FetchAllTours(context.Background(), nil)
	if !IsFetchError(err) {
		t.Fatalf("expected FetchError for self-referencing next link, got %v", err)
	}
}

func TestFetchAllToursContextCancellation(t *testing.T) {
	t.Parallel()

	f := newFakeKomoot(t, sampleTours())
	c := f.client()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.FetchAllTours(ctx, nil); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestRenameTour(t *testing.T) {
	t.Parallel()

	var gotBody, gotContentType, gotPath, gotQuery string
	var patches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/account/") {
			fmt.Fprintf(w, `{"username":"u","password":"p","user":{"username":"u"}}`)
			return
		}
		if r.Method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", r.Method)
		}
		// First attempt is rejected to exercise the re-login path
		if patches.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotContentType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(&auth.Config{
		Email:       testEmail,
		Password:    testPassword,
		APIBase:     server.URL,
		AccountBase: server.URL,
	})

	if err := c.RenameTour(context.Background(), 42, "Evening Ride(R)"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/tours/42" || gotQuery != "hl=en" {
		t.Errorf("unexpected target %s?%s", gotPath, gotQuery)
	}
	if gotContentType != "application/hal+json" {
		t.Errorf("expected hal+json content type, got %q", gotContentType)
	}
	if gotBody != `{"name":"Evening Ride(R)"}` {
		t.Errorf("unexpected body %s", gotBody)
	}
}

func TestRenameTourRejected(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/account/") {
			fmt.Fprintf(w, `{"username":"u","password":"p","user":{"username":"u"}}`)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := NewClient(&auth.Config{Email: testEmail, Password: testPassword, APIBase: server.URL, AccountBase: server.URL})
	if err := c.RenameTour(context.Background(), 7, "x"); !IsFetchError(err) {
		t.Errorf("expected FetchError, got %v", err)
	}
}

func TestTourStartTime(t *testing.T) {
	t.Parallel()

	tour := Tour{ID: 1, Date: "2023-08-19T15:22:10.000+02:00"}
	start, err := tour.StartTime()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !start.Equal(time.Date(2023, 8, 19, 13, 22, 10, 0, time.UTC)) {
		t.Errorf("unexpected start %v", start)
	}

	if _, err := (Tour{ID: 2, Date: "yesterday"}).StartTime(); err == nil {
		t.Error("expected error for unparseable date")
	}
}

func TestTourJSONUnmarshal(t *testing.T) {
	t.Parallel()

	data := `{
		"id": 987654,
		"name": "Gravel loop(C)",
		"sport": "e_mtb",
		"date": "2024-03-02T10:00:00.000+01:00",
		"duration": 5400,
		"distance": 42123.5,
		"elevation_up": 512.3,
		"elevation_down": 498.1,
		"map_image": {"src": "https://example.com/map.png", "templated": true, "type": "image/*", "attribution": "OSM"},
		"unknown_field": "ignored"
	}`

	var tour Tour
	if err := json.Unmarshal([]byte(data), &tour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tour.ID != 987654 || tour.Sport != "e_mtb" || tour.Duration != 5400 {
		t.Errorf("unexpected tour: %+v", tour)
	}
	if tour.ElevationUp != 512.3 || tour.MapImage.Src != "https://example.com/map.png" || !tour.MapImage.Templated {
		t.Errorf("unexpected nested fields: %+v", tour)
	}
}

func TestFormatHeaders(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	if got := formatHeaders(h); got != "{}" {
		t.Errorf("expected {}, got %s", got)
	}

	h.Set("Authorization", "Basic abc")
	h.Set("Accept", "*/*")
	got := formatHeaders(h)
	if got != `{Accept: "*/*", Authorization: "[REDACTED]"}` {
		t.Errorf("unexpected formatted headers: %s", got)
	}
}
