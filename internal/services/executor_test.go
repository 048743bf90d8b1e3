package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/nightq/nightq/internal/auth"
	"github.com/nightq/nightq/internal/shared"
	tu "github.com/nightq/nightq/internal/testing"
)

// fakeAuthz is a scriptable Authorizer.
type fakeAuthz struct {
	mu           sync.Mutex
	token        string
	refresh      auth.RefreshStatus
	await        auth.RefreshStatus
	renewedToken string
	refreshCalls int
	awaitCalls   int
	authCalls    int
	authStarted  chan struct{}
}

func (f *fakeAuthz) AccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeAuthz) RefreshToken(ctx context.Context) auth.RefreshStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if f.refresh == auth.RefreshDone && f.renewedToken != "" {
		f.token = f.renewedToken
	}
	return f.refresh
}

func (f *fakeAuthz) AwaitRefresh(ctx context.Context) auth.RefreshStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.awaitCalls++
	if f.await == auth.RefreshDone && f.renewedToken != "" {
		f.token = f.renewedToken
	}
	return f.await
}

func (f *fakeAuthz) Authenticate() error {
	f.mu.Lock()
	f.authCalls++
	started := f.authStarted
	f.mu.Unlock()
	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	return nil
}

// fakeReporter records error notifications.
type fakeReporter struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeReporter) APIError(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
}

func (f *fakeReporter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func newExecutor(authz *fakeAuthz, rt http.RoundTripper) (*Executor, *fakeReporter) {
	exec := NewExecutor("https://api.example.test/1", authz, &http.Client{Transport: rt}, nil)
	rep := &fakeReporter{}
	exec.SetReporter(rep)
	return exec, rep
}

func TestExecutorDo(t *testing.T) {
	ctx := context.Background()

	t.Run("No Token Blocks Before Network", func(t *testing.T) {
		rt := tu.NewSeqRoundTripper()
		exec, _ := newExecutor(&fakeAuthz{}, rt)

		_, err := exec.Do(ctx, Request{Method: http.MethodGet, Path: "/me"})
		if !errors.Is(err, shared.ErrNoAccessToken) {
			t.Fatalf("expected ErrNoAccessToken, got %v", err)
		}
		if len(rt.Requests()) != 0 {
			t.Errorf("expected no network activity, saw %d requests", len(rt.Requests()))
		}
	})

	t.Run("Bearer Header Injected", func(t *testing.T) {
		rt := tu.NewSeqRoundTripper().Respond(http.StatusOK, `{}`)
		exec, _ := newExecutor(&fakeAuthz{token: "AT1"}, rt)

		resp, err := exec.Do(ctx, Request{Method: http.MethodGet, Path: "/me"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !resp.OK() {
			t.Errorf("expected 2xx, got %d", resp.StatusCode)
		}

		reqs := rt.Requests()
		if len(reqs) != 1 {
			t.Fatalf("expected 1 request, got %d", len(reqs))
		}
		if got := reqs[0].Header.Get("Authorization"); got != "Bearer AT1" {
			t.Errorf("expected bearer header, got %q", got)
		}
	})

	t.Run("Transport Failure Is Not Retried", func(t *testing.T) {
		rt := tu.NewSeqRoundTripper().Fail(errors.New("connection refused"))
		authz := &fakeAuthz{token: "AT1"}
		exec, rep := newExecutor(authz, rt)

		_, err := exec.Do(ctx, Request{Method: http.MethodGet, Path: "/song_requests/queue"})
		if !errors.Is(err, shared.ErrTransport) {
			t.Fatalf("expected ErrTransport, got %v", err)
		}
		if len(rt.Requests()) != 1 {
			t.Errorf("expected exactly 1 attempt, got %d", len(rt.Requests()))
		}
		if authz.refreshCalls != 0 {
			t.Errorf("transport failure should not trigger refresh, got %d calls", authz.refreshCalls)
		}
		if rep.count() != 1 {
			t.Errorf("expected 1 error report, got %d", rep.count())
		}
	})

	t.Run("Unauthorized Refreshes And Retries Once", func(t *testing.T) {
		rt := tu.NewSeqRoundTripper().
			Respond(http.StatusUnauthorized, `{}`).
			Respond(http.StatusOK, `{"ok":true}`)
		authz := &fakeAuthz{token: "AT1", refresh: auth.RefreshDone, renewedToken: "AT2"}
		exec, rep := newExecutor(authz, rt)

		resp, err := exec.Do(ctx, Request{Method: http.MethodGet, Path: "/me"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !resp.OK() {
			t.Errorf("expected 2xx after retry, got %d", resp.StatusCode)
		}

		reqs := rt.Requests()
		if len(reqs) != 2 {
			t.Fatalf("expected 2 requests, got %d", len(reqs))
		}
		if got := reqs[1].Header.Get("Authorization"); got != "Bearer AT2" {
			t.Errorf("retry should carry renewed token, got %q", got)
		}
		if rep.count() != 0 {
			t.Errorf("success after retry should not be reported, got %d", rep.count())
		}
	})

	t.Run("Retry Is Bounded", func(t *testing.T) {
		rt := tu.NewSeqRoundTripper().
			Respond(http.StatusUnauthorized, `{}`).
			Respond(http.StatusUnauthorized, `{}`)
		authz := &fakeAuthz{token: "AT1", refresh: auth.RefreshDone, renewedToken: "AT2"}
		exec, _ := newExecutor(authz, rt)

		_, err := exec.Do(ctx, Request{Method: http.MethodGet, Path: "/me"})
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest on second 401, got %v", err)
		}
		if len(rt.Requests()) != 2 {
			t.Errorf("expected exactly 2 attempts, got %d", len(rt.Requests()))
		}
		if authz.refreshCalls != 1 {
			t.Errorf("expected exactly 1 refresh, got %d", authz.refreshCalls)
		}
	})

	t.Run("Failed Refresh Triggers Reauthentication", func(t *testing.T) {
		rt := tu.NewSeqRoundTripper().Respond(http.StatusUnauthorized, `{}`)
		authz := &fakeAuthz{
			token:       "AT1",
			refresh:     auth.RefreshFailed,
			authStarted: make(chan struct{}, 1),
		}
		exec, rep := newExecutor(authz, rt)

		resp, err := exec.Do(ctx, Request{Method: http.MethodGet, Path: "/me"})
		if !errors.Is(err, shared.ErrAuthExpired) {
			t.Fatalf("expected ErrAuthExpired, got %v", err)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Error("failed response should be returned as-is")
		}
		if rep.count() != 1 {
			t.Errorf("expected 1 error report, got %d", rep.count())
		}

		select {
		case <-authz.authStarted:
		case <-time.After(2 * time.Second):
			t.Error("expected asynchronous re-authentication")
		}
	})

	t.Run("Concurrent Refresh Awaits Shared Outcome", func(t *testing.T) {
		rt := tu.NewSeqRoundTripper().
			Respond(http.StatusUnauthorized, `{}`).
			Respond(http.StatusOK, `{}`)
		authz := &fakeAuthz{
			token:        "AT1",
			refresh:      auth.RefreshWaiting,
			await:        auth.RefreshDone,
			renewedToken: "AT2",
		}
		exec, _ := newExecutor(authz, rt)

		resp, err := exec.Do(ctx, Request{Method: http.MethodGet, Path: "/me"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !resp.OK() {
			t.Errorf("expected 2xx, got %d", resp.StatusCode)
		}
		if authz.awaitCalls != 1 {
			t.Errorf("expected 1 await, got %d", authz.awaitCalls)
		}
	})

	t.Run("Server Error Is Reported", func(t *testing.T) {
		rt := tu.NewSeqRoundTripper().Respond(http.StatusInternalServerError, `{"message":"boom"}`)
		exec, rep := newExecutor(&fakeAuthz{token: "AT1"}, rt)

		resp, err := exec.Do(ctx, Request{Method: http.MethodGet, Path: "/me"})
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if got := resp.Message(); got != "boom" {
			t.Errorf("expected extracted message, got %q", got)
		}
		if rep.count() != 1 {
			t.Errorf("expected 1 error report, got %d", rep.count())
		}
	})
}

func TestResponseMessage(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"JSON Message", `{"message":"queue is full"}`, "queue is full"},
		{"Missing Message Falls Back", `{"status":400}`, `{"status":400}`},
		{"Plain Text Falls Back", "bad request\n", "bad request"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := &Response{StatusCode: 400, Body: []byte(tc.body)}
			if got := r.Message(); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
