package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/curately/postops/resilience"
)

func fastExecutor(maxAttempts int) *resilience.Executor {
	return resilience.NewExecutor(resilience.ExecutorConfig{
		Policy: resilience.RetryPolicy{
			MaxAttempts:      maxAttempts,
			BaseDelay:        time.Millisecond,
			MaxDelay:         5 * time.Millisecond,
			Multiplier:       2.0,
			Timeout:          time.Second,
			MaxRateLimitWait: 10 * time.Millisecond,
		},
	})
}

func newTestClient(t *testing.T, srv *httptest.Server, maxAttempts int) *Client {
	t.Helper()

	c, err := New(Config{
		APIName:     "instagram",
		BaseURL:     srv.URL,
		BearerToken: "tok-123",
		Executor:    fastExecutor(maxAttempts),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{BaseURL: "http://x"}); err == nil {
		t.Error("New() without APIName: want error")
	}
	if _, err := New(Config{APIName: "x"}); err == nil {
		t.Error("New() without BaseURL: want error")
	}
}

func TestClient_Get(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"status_code":"FINISHED"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 3)
	res := c.Get(context.Background(), "/c1", url.Values{"fields": {"status_code"}})

	if !res.Success {
		t.Fatalf("Success = false, err = %v", res.Err)
	}
	resp := res.Payload.(*Response)
	if string(resp.Body) != `{"status_code":"FINISHED"}` {
		t.Errorf("Body = %s", resp.Body)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotQuery != "fields=status_code" {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestClient_PostForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		if r.PostForm.Get("image_url") != "https://cdn.example/p.jpg" {
			t.Errorf("image_url = %q", r.PostForm.Get("image_url"))
		}
		w.Write([]byte(`{"id":"c1"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 3)
	res := c.Post(context.Background(), "/media", FormBody(url.Values{
		"image_url": {"https://cdn.example/p.jpg"},
		"caption":   {"hello"},
	}))

	if !res.Success {
		t.Fatalf("Success = false, err = %v", res.Err)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 3)
	res := c.Get(context.Background(), "/flaky", nil)

	if !res.Success {
		t.Fatalf("Success = false, err = %v", res.Err)
	}
	if res.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", res.Attempts)
	}
}

func TestClient_ClientErrorIsTerminal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"missing"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 5)
	res := c.Get(context.Background(), "/gone", nil)

	if res.Success || res.Incomplete {
		t.Errorf("Success = %v, Incomplete = %v, want false/false", res.Success, res.Incomplete)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	if !resilience.IsStatus(res.Err, http.StatusNotFound) {
		t.Errorf("Err = %v, want 404 status error", res.Err)
	}
}

func TestClient_RateLimitWaitsWithoutConsumingAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 3)
	res := c.Get(context.Background(), "/throttled", nil)

	if !res.Success {
		t.Fatalf("Success = false, err = %v", res.Err)
	}
	if res.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", res.Attempts)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestClient_AllVerbs(t *testing.T) {
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 3)
	ctx := context.Background()

	tests := []struct {
		want string
		call func() resilience.Result
	}{
		{http.MethodGet, func() resilience.Result { return c.Get(ctx, "/r", nil) }},
		{http.MethodPost, func() resilience.Result { return c.Post(ctx, "/r", JSONBody(map[string]string{"a": "b"})) }},
		{http.MethodPut, func() resilience.Result { return c.Put(ctx, "/r", JSONBody(map[string]string{"a": "b"})) }},
		{http.MethodPatch, func() resilience.Result { return c.Patch(ctx, "/r", FormBody(url.Values{"a": {"b"}})) }},
		{http.MethodDelete, func() resilience.Result { return c.Delete(ctx, "/r", nil) }},
	}

	for _, tt := range tests {
		res := tt.call()
		if !res.Success {
			t.Fatalf("%s: Success = false, err = %v", tt.want, res.Err)
		}
		if method != tt.want {
			t.Errorf("method = %q, want %q", method, tt.want)
		}
	}
}

func TestClient_BreakerFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Minute,
	})
	c, err := New(Config{
		APIName:  "instagram",
		BaseURL:  srv.URL,
		Executor: fastExecutor(2),
		Breaker:  breaker,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// First call burns the breaker's failure budget.
	c.Get(context.Background(), "/down", nil)
	if breaker.State() != resilience.CircuitOpen {
		t.Fatalf("breaker state = %v, want open", breaker.State())
	}

	before := calls.Load()
	res := c.Get(context.Background(), "/down", nil)

	if res.Success {
		t.Fatal("Success = true with open breaker")
	}
	if calls.Load() != before {
		t.Errorf("open breaker still reached the server (%d extra calls)", calls.Load()-before)
	}
}

func TestResponse_JSON(t *testing.T) {
	resp := &Response{Body: []byte(`{"id":"c1"}`)}

	var out struct {
		ID string `json:"id"`
	}
	if err := resp.JSON(&out); err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	if out.ID != "c1" {
		t.Errorf("ID = %q, want c1", out.ID)
	}
}
