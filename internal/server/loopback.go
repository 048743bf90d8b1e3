package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nightq/nightq/internal/shared"
)

// State describes the loopback listener's lifecycle.
//
// Idle is both the initial state and the reentry state: after any terminal
// outcome the listener returns to Idle, ready for the next attempt.
type State int

const (
	StateIdle State = iota
	StateListening
)

// Result is the single terminal outcome of one listening session.
type Result struct {
	Success bool
	Err     error
}

// tokenPayload is the JSON body the backend POSTs to /token.
type tokenPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// session carries the per-attempt state so that a stale timer or an in-flight
// handler from a finished attempt can never touch a newer one.
type session struct {
	srv      *http.Server
	deadline time.Time
	timer    *time.Timer
	done     chan struct{}
	once     sync.Once
	resultC  chan Result
	countC   chan int
}

// Loopback is the single-session local HTTP listener that receives the OAuth
// callback. It serves plaintext HTTP/1.1 on the loopback interface only.
type Loopback struct {
	saver  TokenSaver
	logger *log.Logger

	mu   sync.Mutex
	cur  *session
	live bool
}

// NewLoopback creates a listener that saves received tokens through saver.
func NewLoopback(saver TokenSaver, logger *log.Logger) *Loopback {
	return &Loopback{saver: saver, logger: logger}
}

// Start binds 127.0.0.1:port and begins a listening session bounded by
// timeout. Returns [shared.ErrAlreadyListening] when a session is active and
// [shared.ErrListenerBind] when the port cannot be bound.
func (l *Loopback) Start(port int, timeout time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.live {
		return shared.ErrAlreadyListening
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrListenerBind, err)
	}

	s := &session{
		deadline: time.Now().Add(timeout),
		done:     make(chan struct{}),
		resultC:  make(chan Result, 1),
		countC:   make(chan int, 64),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		l.handle(s, w, r)
	})
	s.srv = &http.Server{Handler: mux}

	l.cur = s
	l.live = true

	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			l.logger.Error("loopback server stopped unexpectedly", "err", err)
		}
	}()

	s.timer = time.AfterFunc(timeout, func() { l.onTimeout(s) })
	go l.countdown(s)

	l.logger.Info("waiting for authorization callback", "port", port, "timeout", timeout)
	return nil
}

// Result returns the current session's terminal-outcome channel. The channel
// receives exactly one value and is then closed.
func (l *Loopback) Result() <-chan Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cur == nil {
		return nil
	}
	return l.cur.resultC
}

// Countdown returns the current session's remaining-seconds channel, sampled
// once per second. Purely observational; consumers may ignore it.
func (l *Loopback) Countdown() <-chan int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cur == nil {
		return nil
	}
	return l.cur.countC
}

// State returns the current lifecycle state.
func (l *Loopback) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.live {
		return StateListening
	}
	return StateIdle
}

// RemainingSeconds projects the seconds left before the session deadline.
func (l *Loopback) RemainingSeconds() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.live || l.cur == nil {
		return 0
	}
	remaining := int(time.Until(l.cur.deadline).Round(time.Second) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// countdown emits the remaining-seconds projection each second until the
// session ends. Sends never block; a slow consumer just misses ticks.
func (l *Loopback) countdown(s *session) {
	emit := func() {
		select {
		case s.countC <- l.RemainingSeconds():
		default:
		}
	}

	emit()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			emit()
		}
	}
}

// handle dispatches the four recognized callback shapes. Preflights and
// unknown requests are answered without ending the session.
func (l *Loopback) handle(s *session, w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodOptions:
		writeCORS(w)
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodPost && r.URL.Path == "/token":
		l.handleToken(s, w, r)

	case r.Method == http.MethodGet && r.URL.Query().Has("error"):
		l.handleError(s, w, r)

	default:
		http.NotFound(w, r)
	}
}

// handleToken processes the backend's token delivery. Both fields are
// required; a malformed body is a terminal failure.
func (l *Loopback) handleToken(s *session, w http.ResponseWriter, r *http.Request) {
	var payload tokenPayload
	err := json.NewDecoder(r.Body).Decode(&payload)
	if err != nil || payload.AccessToken == "" || payload.RefreshToken == "" {
		l.logger.Warn("callback delivered a malformed token payload")
		writeCORS(w)
		w.WriteHeader(http.StatusBadRequest)
		l.complete(s, Result{Success: false, Err: shared.ErrInvalidCallback})
		return
	}

	l.saver.SetTokens(payload.AccessToken, payload.RefreshToken)
	l.logger.Info("tokens received and saved")

	writeCORS(w)
	w.WriteHeader(http.StatusOK)
	l.complete(s, Result{Success: true})
}

// handleError processes an explicit authorization failure from the backend.
func (l *Loopback) handleError(s *session, w http.ResponseWriter, r *http.Request) {
	reason := r.URL.Query().Get("error_description")
	if reason == "" {
		reason = r.URL.Query().Get("error")
	}
	l.logger.Warn("authorization failed", "reason", reason)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprintf(w, errorPage, reason)

	l.complete(s, Result{Success: false, Err: fmt.Errorf("%w: %s", shared.ErrAuthFailed, reason)})
}

// onTimeout ends a still-listening session with a failure outcome.
func (l *Loopback) onTimeout(s *session) {
	l.mu.Lock()
	stale := l.cur != s || !l.live
	l.mu.Unlock()

	if !stale {
		l.logger.Warn("authorization timed out, shutting down listener")
		l.complete(s, Result{Success: false, Err: shared.ErrListenerTimeout})
	}
}

// complete records the session's single terminal outcome: stops the timers,
// closes the port, returns the state machine to Idle, and delivers the
// result exactly once.
func (l *Loopback) complete(s *session, res Result) {
	s.once.Do(func() {
		s.timer.Stop()
		close(s.done)

		l.mu.Lock()
		if l.cur == s {
			l.live = false
		}
		l.mu.Unlock()

		s.resultC <- res
		close(s.resultC)

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := s.srv.Shutdown(ctx); err != nil {
				s.srv.Close()
			}
		}()
	})
}

// errorPage mirrors the styling of the success path the backend renders; the
// window closes itself after a few seconds.
const errorPage = `<!DOCTYPE html>
<html>
<head><title>Authorization Failed</title></head>
<body style="font-family: sans-serif; background-color: #2d2d2d; color: #f0f0f0; text-align: center; padding-top: 50px;">
<h1>Authorization failed</h1>
<p>%s</p>
<script>setTimeout(function() { window.close(); }, 10000);</script>
</body>
</html>
`
