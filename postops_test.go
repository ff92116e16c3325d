package postops

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/curately/postops/config"
	"github.com/curately/postops/observe"
	"github.com/curately/postops/opqueue"
	"github.com/curately/postops/resilience"
)

type countingSender struct {
	sent atomic.Int32
}

func (s *countingSender) Send(ctx context.Context, message string) error {
	s.sent.Add(1)
	return nil
}

func testConfig(baseURL string) config.Config {
	return config.Config{
		GraphAPIBaseURL:   baseURL,
		AccessToken:       "tok",
		BusinessAccountID: "acct1",
		AlertCooldown:     5 * time.Minute,
		Retry: resilience.RetryPolicy{
			MaxAttempts:      2,
			BaseDelay:        time.Millisecond,
			MaxDelay:         10 * time.Millisecond,
			Multiplier:       2.0,
			Timeout:          time.Second,
			MaxRateLimitWait: time.Second,
		},
		LogLevel: observe.LevelError,
	}
}

// graphStub emulates the two-phase publish endpoints.
func graphStub(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/acct1/media", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"c1"}`))
	})
	mux.HandleFunc("/c1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"c1","status_code":"FINISHED"}`))
	})
	mux.HandleFunc("/acct1/media_publish", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"m1"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_PublishEndToEnd(t *testing.T) {
	srv := graphStub(t)

	sys, err := New(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer sys.Close()

	res := sys.Publisher.Publish(context.Background(), "https://cdn.example.com/a.jpg", "hello", "")
	if !res.Success {
		t.Fatalf("Publish failed: %s", res.ErrorMessage)
	}
	if res.MediaID != "m1" {
		t.Errorf("MediaID = %q, want m1", res.MediaID)
	}

	s := sys.Metrics.Snapshot()
	if s.TotalAttempts != 1 || s.Successes != 1 {
		t.Errorf("metrics = %d/%d, want one recorded success", s.TotalAttempts, s.Successes)
	}
}

func TestNew_ExhaustionQueuesAndAlerts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	sender := &countingSender{}

	sys, err := New(cfg, WithSender(sender))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer sys.Close()

	ctx := context.Background()
	res := sys.Pipeline.Execute(ctx, "instagram_post", func(ctx context.Context) (any, error) {
		return nil, &resilience.StatusError{Code: 502}
	}, map[string]any{"image_url": "https://cdn.example.com/a.jpg"})

	if res.Success || !res.Incomplete {
		t.Fatalf("result = %+v, want incomplete failure", res)
	}
	if res.OperationID == "" {
		t.Error("OperationID not set after queueing")
	}
	if sender.sent.Load() != 1 {
		t.Errorf("alerts sent = %d, want 1", sender.sent.Load())
	}

	pending, err := sys.Queue.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].Context != "instagram_post" {
		t.Errorf("queued context = %q", pending[0].Context)
	}
}

func TestNew_ReplayDrainsQueue(t *testing.T) {
	srv := graphStub(t)

	sys, err := New(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer sys.Close()

	ctx := context.Background()
	_, err = sys.Queue.Enqueue(ctx, opqueue.Operation{
		Context: "instagram_post",
		Payload: map[string]any{
			"image_url": "https://cdn.example.com/a.jpg",
			"caption":   "hello",
		},
	})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	stats, err := sys.Replayer.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if stats.Replayed != 1 {
		t.Errorf("Replayed = %d, want 1", stats.Replayed)
	}

	pending, err := sys.Queue.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending = %d after drain, want 0", len(pending))
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.AccessToken = ""

	if _, err := New(cfg); err == nil {
		t.Error("New() accepted a config missing the access token")
	}
}
