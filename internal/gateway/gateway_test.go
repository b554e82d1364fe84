package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

type fakeSession struct {
	mu          sync.Mutex
	invalidated int
}

func (f *fakeSession) Invalidate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
	return nil
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGateway(url string, token string, session SessionInvalidator, onExpired func(string)) Gateway {
	return NewWithLogger(Options{
		BaseURL:          url,
		Timeout:          5 * time.Second,
		Tokens:           staticToken(token),
		Session:          session,
		OnSessionExpired: onExpired,
	}, quietLogger())
}

func TestNew(t *testing.T) {
	g := New(Options{})
	c, ok := g.(*client)
	if !ok {
		t.Fatal("New() did not return *client")
	}
	if c.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %v, want %v", c.baseURL, DefaultBaseURL)
	}
	if c.limiter != nil {
		t.Error("limiter should be disabled by default")
	}
}

func TestGet_InjectsTokenAndQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/articles" {
			t.Errorf("Expected /api/articles, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer abc" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.URL.Query().Get("categoryId"); got != "2" {
			t.Errorf("categoryId = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"id":"7"}}`))
	}))
	defer server.Close()

	g := newTestGateway(server.URL+"/api", "abc", nil, nil)

	var out envelope
	if err := g.Get(context.Background(), "/articles", map[string]string{"categoryId": "2"}, &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !out.Status || string(out.Data) != `{"id":"7"}` {
		t.Errorf("Get() decoded %+v", out)
	}
}

func TestGet_NoTokenNoHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Error("Authorization header sent without a token")
		}
		_, _ = w.Write([]byte(`{"status":true,"data":null}`))
	}))
	defer server.Close()

	g := newTestGateway(server.URL, "", nil, nil)
	if err := g.Get(context.Background(), "articles", nil, nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
}

func TestPost_SendsJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["name"] != "Science" {
			t.Errorf("body = %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"status":true,"message":"created","data":{"id":"6","name":"Science"}}`))
	}))
	defer server.Close()

	g := newTestGateway(server.URL, "t", nil, nil)
	var out envelope
	if err := g.Post(context.Background(), "/categories", map[string]string{"name": "Science"}, &out); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if out.Message != "created" {
		t.Errorf("Message = %q", out.Message)
	}
}

func TestUnauthorized_TearsDownSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":false,"message":"Unauthorized"}`))
	}))
	defer server.Close()

	session := &fakeSession{}
	var redirect string
	g := newTestGateway(server.URL, "stale", session, func(to string) { redirect = to })

	err := g.Delete(context.Background(), "/articles/1", nil)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Delete() error = %v, want ErrSessionExpired", err)
	}
	if errors.Is(err, ErrRemote) {
		t.Error("session expiry must not match ErrRemote")
	}
	if session.invalidated != 1 {
		t.Errorf("Invalidate() called %d times, want 1", session.invalidated)
	}
	if redirect != LoginPath {
		t.Errorf("redirect = %q, want %q", redirect, LoginPath)
	}
}

func TestFailures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"server error with envelope", http.StatusInternalServerError, `{"status":false,"message":"boom"}`, 500, "boom"},
		{"not found plain text", http.StatusNotFound, "no such article", 404, "no such article"},
		{"ok status false", http.StatusOK, `{"status":false,"message":"Article not found"}`, 200, "Article not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			session := &fakeSession{}
			g := newTestGateway(server.URL, "t", session, nil)
			err := g.Get(context.Background(), "/articles/9", nil, &envelope{})

			if !errors.Is(err, ErrRemote) {
				t.Fatalf("error = %v, want ErrRemote", err)
			}
			var re *RemoteError
			if !errors.As(err, &re) {
				t.Fatalf("error %T is not *RemoteError", err)
			}
			if re.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", re.StatusCode, tt.wantStatus)
			}
			if re.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", re.Message, tt.wantMsg)
			}
			if session.invalidated != 0 {
				t.Error("non-401 failure must not clear the session")
			}
		})
	}
}

func TestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	url := server.URL
	server.Close()

	g := newTestGateway(url, "", nil, nil)
	err := g.Put(context.Background(), "/articles/1", map[string]string{"title": "x"}, nil)
	if !errors.Is(err, ErrRemote) {
		t.Fatalf("Put() error = %v, want ErrRemote", err)
	}
	if code := StatusCode(err); code != 0 {
		t.Errorf("StatusCode() = %d, want 0", code)
	}
}

func TestConcurrentGetsShareRoundTrip(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"status":true,"data":[]}`))
	}))
	defer server.Close()

	g := newTestGateway(server.URL, "t", nil, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- g.Get(context.Background(), "/categories", nil, &envelope{})
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Get() error = %v", err)
		}
	}
	if n := calls.Load(); n < 1 || n > 5 {
		t.Errorf("server saw %d calls", n)
	}
}

func TestRateLimitHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":true}`))
	}))
	defer server.Close()

	g := NewWithLogger(Options{
		BaseURL:           server.URL,
		RequestsPerSecond: 0.001,
		Burst:             1,
	}, quietLogger())

	if err := g.Post(context.Background(), "/a", nil, nil); err != nil {
		t.Fatalf("first Post() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := g.Post(ctx, "/a", nil, nil); !errors.Is(err, ErrRemote) {
		t.Errorf("second Post() error = %v, want ErrRemote from limiter", err)
	}
}
