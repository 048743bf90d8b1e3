package models

import (
	"sort"
	"time"
)

// Song represents a single entry in the song-request queue.
//
// Position 0 denotes the currently playing track; positions >= 1 denote
// queued order.
type Song struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	RequestedBy string `json:"requested_by"`
	Position    int    `json:"position"`
	Duration    int    `json:"duration"` // seconds
}

// NowPlaying reports whether the song is the currently playing track.
func (s Song) NowPlaying() bool {
	return s.Position == 0
}

// Queue is a fetched queue snapshot: songs in display order plus the
// provider's song-requests-enabled flag when present in the payload.
type Queue struct {
	Songs   []Song `json:"songs"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// Sort orders the snapshot ascending by position, now-playing first.
func (q *Queue) Sort() {
	sort.SliceStable(q.Songs, func(i, j int) bool {
		return q.Songs[i].Position < q.Songs[j].Position
	})
}

// Token is the persisted credential state.
//
// An empty AccessToken means not authenticated. Tokens are secrets and are
// never logged.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserName     string `json:"user_name"`
}

// Authenticated reports whether an access token is present.
func (t Token) Authenticated() bool {
	return t.AccessToken != ""
}

// HistoryEntry is a song recorded in the local history database.
type HistoryEntry struct {
	ID          string
	Title       string
	Artist      string
	RequestedBy string
	Duration    int
	TimesSeen   int
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}
