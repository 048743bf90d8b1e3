// Nightbot song request API client.
//
// Response shapes follow https://api-docs.nightbot.tv/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/nightq/nightq/internal/models"
	"github.com/nightq/nightq/internal/shared"
)

const (
	userEndpoint     = "/me"
	settingsEndpoint = "/song_requests"
	queueEndpoint    = "/song_requests/queue"
)

// NameSaver persists the authenticated account's display name.
type NameSaver interface {
	SetUserName(name string)
}

// Client provides the queue, playback, and settings operations. It is
// stateless; every method is a single round trip through the executor.
type Client struct {
	exec   *Executor
	names  NameSaver
	logger *log.Logger
}

// NewClient creates a client on top of exec. names may be nil when user
// info persistence is not wanted.
func NewClient(exec *Executor, names NameSaver, logger *log.Logger) *Client {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Client{exec: exec, names: names, logger: logger}
}

type apiTrack struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Duration int    `json:"duration"`
}

type apiUser struct {
	DisplayName string `json:"displayName"`
	Name        string `json:"name"`
}

func (u apiUser) label() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Name
}

type queueEntry struct {
	ID       string   `json:"_id"`
	Position int      `json:"_position"`
	Track    apiTrack `json:"track"`
	User     apiUser  `json:"user"`
}

type queuePayload struct {
	CurrentSong     *queueEntry  `json:"_currentSong"`
	RequestsEnabled *bool        `json:"_requestsEnabled"`
	Queue           []queueEntry `json:"queue"`
}

// FetchUserInfo retrieves the authenticated account's profile and persists
// its display name.
func (c *Client) FetchUserInfo(ctx context.Context) (string, error) {
	resp, err := c.exec.Do(ctx, Request{Method: http.MethodGet, Path: userEndpoint})
	if err != nil {
		return "", err
	}

	var payload struct {
		User apiUser `json:"user"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return "", fmt.Errorf("%w: user info: %v", shared.ErrParse, err)
	}

	name := payload.User.label()
	if c.names != nil && name != "" {
		c.names.SetUserName(name)
	}
	return name, nil
}

// FetchQueue retrieves the song request queue. A currently playing entry
// becomes position 0, attributed to placeholderUser when the API omits a
// requester; queued entries follow at positions >= 1. The result is sorted
// ascending by position.
func (c *Client) FetchQueue(ctx context.Context, placeholderUser string) (*models.Queue, error) {
	resp, err := c.exec.Do(ctx, Request{Method: http.MethodGet, Path: queueEndpoint})
	if err != nil {
		return nil, err
	}

	var payload queuePayload
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("%w: queue: %v", shared.ErrParse, err)
	}

	queue := &models.Queue{Enabled: payload.RequestsEnabled}

	if cur := payload.CurrentSong; cur != nil {
		user := cur.User.label()
		if user == "" {
			user = placeholderUser
		}
		queue.Songs = append(queue.Songs, models.Song{
			ID:          cur.ID,
			Title:       cur.Track.Title,
			Artist:      cur.Track.Artist,
			RequestedBy: user,
			Position:    0,
			Duration:    cur.Track.Duration,
		})
	}

	for i, entry := range payload.Queue {
		position := entry.Position
		if position < 1 {
			position = i + 1
		}
		queue.Songs = append(queue.Songs, models.Song{
			ID:          entry.ID,
			Title:       entry.Track.Title,
			Artist:      entry.Track.Artist,
			RequestedBy: entry.User.label(),
			Position:    position,
			Duration:    entry.Track.Duration,
		})
	}

	queue.Sort()
	return queue, nil
}

// FetchSettings retrieves the song request settings and extracts the
// volume when present.
func (c *Client) FetchSettings(ctx context.Context) (*int, error) {
	resp, err := c.exec.Do(ctx, Request{Method: http.MethodGet, Path: settingsEndpoint})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Settings struct {
			Volume *int `json:"volume"`
		} `json:"settings"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("%w: settings: %v", shared.ErrParse, err)
	}
	return payload.Settings.Volume, nil
}

// ControlPlay resumes playback.
func (c *Client) ControlPlay(ctx context.Context) error {
	return c.control(ctx, "play")
}

// ControlPause pauses playback.
func (c *Client) ControlPause(ctx context.Context) error {
	return c.control(ctx, "pause")
}

// ControlSkip skips the current song.
func (c *Client) ControlSkip(ctx context.Context) error {
	return c.control(ctx, "skip")
}

func (c *Client) control(ctx context.Context, action string) error {
	_, err := c.exec.Do(ctx, Request{Method: http.MethodPost, Path: queueEndpoint + "/" + action})
	if err != nil {
		c.logger.Error("playback control failed", "action", action, "error", err)
		return err
	}
	c.logger.Info("playback control applied", "action", action)
	return nil
}

// SetVolume updates the player volume.
func (c *Client) SetVolume(ctx context.Context, volume int) error {
	return c.putSetting(ctx, map[string]any{"volume": volume})
}

// SetEnabled toggles whether song requests are accepted.
func (c *Client) SetEnabled(ctx context.Context, enabled bool) error {
	return c.putSetting(ctx, map[string]any{"enabled": enabled})
}

func (c *Client) putSetting(ctx context.Context, field map[string]any) error {
	body, err := json.Marshal(field)
	if err != nil {
		return fmt.Errorf("failed to encode setting: %w", err)
	}
	_, err = c.exec.Do(ctx, Request{Method: http.MethodPut, Path: settingsEndpoint, Body: body})
	return err
}

// AddSong submits a song request. On rejection the API-provided message
// accompanies accepted=false.
func (c *Client) AddSong(ctx context.Context, query string) (bool, string) {
	body, err := json.Marshal(map[string]string{"q": query})
	if err != nil {
		return false, err.Error()
	}

	resp, err := c.exec.Do(ctx, Request{Method: http.MethodPost, Path: queueEndpoint, Body: body})
	if err != nil {
		if resp != nil {
			return false, resp.Message()
		}
		return false, err.Error()
	}
	return true, ""
}

// DeleteSong removes a queued entry. Empty ids are ignored.
func (c *Client) DeleteSong(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	_, err := c.exec.Do(ctx, Request{Method: http.MethodDelete, Path: queueEndpoint + "/" + id})
	return err
}

// PromoteSong moves a queued entry to the front. Empty ids are ignored.
func (c *Client) PromoteSong(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	_, err := c.exec.Do(ctx, Request{Method: http.MethodPost, Path: queueEndpoint + "/" + id + "/promote"})
	return err
}
