// Package auth orchestrates the OAuth2 authorization-code flow against the
// streaming-bot provider and owns the refresh-token exchange.
//
// The provider's authorization page redirects to a companion backend, which
// exchanges the code and POSTs the finished token pair to the local loopback
// listener, so the [Controller] never touches the authorization code. Refresh
// goes straight from the client to the backend's refresh endpoint.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nightq/nightq/internal/server"
	"github.com/nightq/nightq/internal/shared"
	"golang.org/x/oauth2"
)

// refreshPath is the backend endpoint that consumes {refresh_token}.
const refreshPath = "/api/refresh-token"

// RefreshStatus is the tri-state outcome of a refresh attempt.
type RefreshStatus int

const (
	// RefreshWaiting means another refresh is already in flight; callers
	// that need the outcome should follow up with [Controller.AwaitRefresh].
	RefreshWaiting RefreshStatus = iota
	RefreshDone
	RefreshFailed
)

func (s RefreshStatus) String() string {
	switch s {
	case RefreshWaiting:
		return "waiting"
	case RefreshDone:
		return "done"
	default:
		return "failed"
	}
}

// TokenStore is the durable credential state the controller reads and writes.
// Implemented by the settings store.
type TokenStore interface {
	AccessToken() string
	RefreshToken() string
	SetAccessToken(token string)
	SetRefreshToken(token string)
	IsAuthenticated() bool
	Clear()
}

// Notifier receives authentication lifecycle events. All methods must be
// non-blocking; they are called from the controller's internal goroutines.
type Notifier interface {
	AuthFinished(success bool)
	AuthCountdown(remainingSeconds int)
}

// Config carries the provider and backend endpoints for the flow.
type Config struct {
	ClientID     string
	AuthorizeURL string
	Scopes       string
	BackendURL   string // redirect target and refresh endpoint host
	LoopbackPort int
	Timeout      time.Duration // whole-authorization wait budget
}

// refreshFlight is one in-progress refresh exchange shared by all callers
// that observe it.
type refreshFlight struct {
	done   chan struct{}
	status RefreshStatus
}

// Controller drives the authorization flow: it builds the authorize URL,
// opens the system browser, runs the loopback listener, and performs the
// refresh-token exchange.
type Controller struct {
	cfg    Config
	store  TokenStore
	loop   *server.Loopback
	oauth  *oauth2.Config
	client *http.Client
	logger *log.Logger

	notify  Notifier
	openURL func(string) error

	mu     sync.Mutex
	flight *refreshFlight
	last   RefreshStatus
}

// NewController wires a Controller from its collaborators. client may be nil,
// in which case a 10 second default is used for the refresh call.
func NewController(cfg Config, store TokenStore, loop *server.Loopback, client *http.Client, logger *log.Logger) *Controller {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	oc := &oauth2.Config{
		ClientID:    cfg.ClientID,
		RedirectURL: cfg.BackendURL,
		Scopes:      []string{cfg.Scopes},
		Endpoint:    oauth2.Endpoint{AuthURL: cfg.AuthorizeURL},
	}

	return &Controller{
		cfg:     cfg,
		store:   store,
		loop:    loop,
		oauth:   oc,
		client:  client,
		logger:  logger,
		openURL: shared.OpenBrowser,
		last:    RefreshFailed,
	}
}

// SetNotifier registers the lifecycle event sink. Must be called before
// Authenticate; a nil notifier silently drops events.
func (c *Controller) SetNotifier(n Notifier) {
	c.notify = n
}

// AuthURL returns the provider authorization URL the browser is sent to.
func (c *Controller) AuthURL() string {
	return c.oauth.AuthCodeURL("")
}

// Authenticate starts an authorization attempt: binds the loopback listener,
// opens the system browser at the provider's authorize endpoint, and forwards
// countdown ticks plus the single terminal outcome to the notifier.
//
// A second call while a session is listening is a no-op and returns
// [shared.ErrAlreadyListening].
func (c *Controller) Authenticate() error {
	if err := c.loop.Start(c.cfg.LoopbackPort, c.cfg.Timeout); err != nil {
		if err == shared.ErrAlreadyListening {
			c.logger.Warn("authentication already in progress")
			return err
		}
		c.logger.Error("failed to start loopback listener", "err", err)
		c.emitFinished(false)
		return err
	}

	go c.forward()

	url := c.AuthURL()
	if err := c.openURL(url); err != nil {
		// The listener keeps waiting; the user can still open the URL
		// by hand before the timeout.
		c.logger.Warn("failed to open browser, open the URL manually", "url", url, "err", err)
	}

	return nil
}

// forward relays the active session's countdown and terminal result.
func (c *Controller) forward() {
	resultC := c.loop.Result()
	countC := c.loop.Countdown()

	for {
		select {
		case remaining, ok := <-countC:
			if !ok {
				countC = nil
				continue
			}
			if c.notify != nil {
				c.notify.AuthCountdown(remaining)
			}
		case res, ok := <-resultC:
			if !ok {
				return
			}
			if res.Success {
				c.logger.Info("authentication finished successfully")
			} else {
				c.logger.Warn("authentication failed", "err", res.Err)
			}
			c.emitFinished(res.Success)
			return
		}
	}
}

func (c *Controller) emitFinished(success bool) {
	if c.notify != nil {
		c.notify.AuthFinished(success)
	}
}

// refreshResponse is the backend's refresh-endpoint payload. A new refresh
// token is optional.
type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken exchanges the stored refresh token for a new access token.
//
// The exchange is single-flight: the first caller performs it and gets
// RefreshDone or RefreshFailed; concurrent callers get RefreshWaiting
// immediately and can block on [Controller.AwaitRefresh] for the shared
// outcome. With no stored refresh token the call fails fast.
func (c *Controller) RefreshToken(ctx context.Context) RefreshStatus {
	refresh := c.store.RefreshToken()
	if refresh == "" {
		c.logger.Warn("no refresh token available to renew")
		return RefreshFailed
	}

	c.mu.Lock()
	if c.flight != nil {
		c.mu.Unlock()
		return RefreshWaiting
	}
	flight := &refreshFlight{done: make(chan struct{})}
	c.flight = flight
	c.mu.Unlock()

	status := c.exchange(ctx, refresh)

	c.mu.Lock()
	flight.status = status
	c.last = status
	c.flight = nil
	c.mu.Unlock()
	close(flight.done)

	return status
}

// AwaitRefresh blocks until the in-flight refresh (if any) completes and
// returns its status. With no refresh in flight it returns the outcome of
// the most recent one.
func (c *Controller) AwaitRefresh(ctx context.Context) RefreshStatus {
	c.mu.Lock()
	flight := c.flight
	last := c.last
	c.mu.Unlock()

	if flight == nil {
		return last
	}

	select {
	case <-flight.done:
		return flight.status
	case <-ctx.Done():
		return RefreshFailed
	}
}

// exchange performs one POST to the backend refresh endpoint.
func (c *Controller) exchange(ctx context.Context, refresh string) RefreshStatus {
	c.logger.Info("refreshing token")

	body, err := json.Marshal(map[string]string{"refresh_token": refresh})
	if err != nil {
		return RefreshFailed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BackendURL+refreshPath, bytes.NewReader(body))
	if err != nil {
		c.logger.Error("failed to build refresh request", "err", err)
		return RefreshFailed
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("token refresh request failed", "err", err)
		return RefreshFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("token refresh rejected", "status", resp.StatusCode)
		return RefreshFailed
	}

	var parsed refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.logger.Error("failed to parse refresh response", "err", err)
		return RefreshFailed
	}
	if parsed.AccessToken == "" {
		c.logger.Warn("refresh response is missing access_token")
		return RefreshFailed
	}

	c.store.SetAccessToken(parsed.AccessToken)
	if parsed.RefreshToken != "" {
		c.store.SetRefreshToken(parsed.RefreshToken)
	}

	c.logger.Info("token refreshed successfully")
	return RefreshDone
}

// ClearTokens wipes the stored credential state. Idempotent.
func (c *Controller) ClearTokens() {
	c.store.Clear()
	c.logger.Info("stored tokens cleared")
}

// IsAuthenticated reports whether an access token is stored.
func (c *Controller) IsAuthenticated() bool {
	return c.store.IsAuthenticated()
}

// AccessToken returns the stored access token for API calls.
func (c *Controller) AccessToken() string {
	return c.store.AccessToken()
}

// Listening reports whether an authorization session is in progress.
func (c *Controller) Listening() bool {
	return c.loop.State() == server.StateListening
}
