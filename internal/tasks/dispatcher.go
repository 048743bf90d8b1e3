// package tasks runs queue and credential operations on a bounded worker
// pool.
//
// Callers fire operations and subscribe for completion events; no
// operation returns its result synchronously. The Dispatcher is also the
// sink for authentication lifecycle and API failure notifications, which
// it republishes as events.
package tasks

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/nightq/nightq/internal/auth"
	"github.com/nightq/nightq/internal/models"
	"github.com/nightq/nightq/internal/services"
	"github.com/nightq/nightq/internal/shared"
)

// DefaultWorkers bounds pool concurrency when no count is configured.
const DefaultWorkers = 4

// eventBuffer sizes each subscriber channel. Slow subscribers drop
// events rather than stall the pool.
const eventBuffer = 64

// AuthDriver is the credential surface the dispatcher drives. Satisfied
// by [auth.Controller].
type AuthDriver interface {
	Authenticate() error
	RefreshToken(ctx context.Context) auth.RefreshStatus
	ClearTokens()
	IsAuthenticated() bool
}

// HistoryRecorder persists songs observed in fetched queues. Optional.
type HistoryRecorder interface {
	Record(ctx context.Context, song models.Song) error
}

type job struct {
	id  string
	run func(ctx context.Context, id string)
}

// Dispatcher executes operations on a fixed pool of workers and fans
// completion events out to subscribers.
type Dispatcher struct {
	client      *services.Client
	authc       AuthDriver
	history     HistoryRecorder
	placeholder string
	logger      *log.Logger

	jobs chan job
	done chan struct{}
	wg   sync.WaitGroup

	mu     sync.Mutex
	subs   []chan Event
	closed bool
}

// NewDispatcher creates a dispatcher with the given pool size. workers
// values below 1 fall back to [DefaultWorkers]. placeholderUser is
// attributed to a now-playing entry when the API omits a requester.
func NewDispatcher(client *services.Client, authc AuthDriver, workers int, placeholderUser string, logger *log.Logger) *Dispatcher {
	if workers < 1 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	d := &Dispatcher{
		client:      client,
		authc:       authc,
		placeholder: placeholderUser,
		logger:      logger,
		jobs:        make(chan job, workers*4),
		done:        make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// SetHistory installs the optional queue history sink.
func (d *Dispatcher) SetHistory(h HistoryRecorder) {
	d.history = h
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case j := <-d.jobs:
			j.run(context.Background(), j.id)
		case <-d.done:
			// Run anything already queued before exiting.
			for {
				select {
				case j := <-d.jobs:
					j.run(context.Background(), j.id)
				default:
					return
				}
			}
		}
	}
}

// Close stops accepting work and waits for in-flight jobs to drain.
//
// The jobs channel is never closed: in-flight jobs re-dispatch from
// worker goroutines (chained refetches, the auth notifier), so a close
// would race their sends. Shutdown is signaled on done instead, which
// also unparks any dispatch blocked on a full buffer.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	close(d.done)
	d.wg.Wait()

	d.mu.Lock()
	for _, sub := range d.subs {
		close(sub)
	}
	d.subs = nil
	d.mu.Unlock()
}

// Subscribe registers a new event listener. The channel is closed by
// [Dispatcher.Close].
func (d *Dispatcher) Subscribe() <-chan Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch := make(chan Event, eventBuffer)
	if d.closed {
		close(ch)
		return ch
	}
	d.subs = append(d.subs, ch)
	return ch
}

// publish delivers an event to every subscriber without blocking.
func (d *Dispatcher) publish(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, sub := range d.subs {
		select {
		case sub <- ev:
		default:
			// Subscriber is not keeping up, drop the event
		}
	}
}

// dispatch enqueues a job and returns its id. Returns empty when the
// dispatcher is closed.
func (d *Dispatcher) dispatch(run func(ctx context.Context, id string)) string {
	select {
	case <-d.done:
		return ""
	default:
	}

	id := shared.GenerateID()
	select {
	case d.jobs <- job{id: id, run: run}:
		return id
	case <-d.done:
		return ""
	}
}

// FetchQueue retrieves the song request queue. Subscribers receive a
// QueueFetched event and, when the payload carries the flag, a
// StatusFetched event.
func (d *Dispatcher) FetchQueue() string {
	return d.dispatch(func(ctx context.Context, id string) {
		queue, err := d.client.FetchQueue(ctx, d.placeholder)
		if err != nil {
			d.logger.Error("queue fetch failed", "job", id, "error", err)
			return
		}
		d.recordHistory(ctx, queue)
		d.publish(queueFetchedEvent(id, queue))
		if queue.Enabled != nil {
			d.publish(statusFetchedEvent(id, *queue.Enabled))
		}
	})
}

// FetchUserInfo retrieves and persists the account display name.
func (d *Dispatcher) FetchUserInfo() string {
	return d.dispatch(func(ctx context.Context, id string) {
		name, err := d.client.FetchUserInfo(ctx)
		if err != nil {
			d.logger.Error("user info fetch failed", "job", id, "error", err)
			return
		}
		d.publish(userInfoFetchedEvent(id, name))
	})
}

// FetchSettings retrieves the song request settings and publishes the
// volume when present.
func (d *Dispatcher) FetchSettings() string {
	return d.dispatch(func(ctx context.Context, id string) {
		volume, err := d.client.FetchSettings(ctx)
		if err != nil {
			d.logger.Error("settings fetch failed", "job", id, "error", err)
			return
		}
		if volume != nil {
			d.publish(volumeFetchedEvent(id, *volume))
		}
	})
}

// ControlPlay resumes playback. Fire-and-forget.
func (d *Dispatcher) ControlPlay() string {
	return d.dispatch(func(ctx context.Context, id string) {
		d.client.ControlPlay(ctx)
	})
}

// ControlPause pauses playback. Fire-and-forget.
func (d *Dispatcher) ControlPause() string {
	return d.dispatch(func(ctx context.Context, id string) {
		d.client.ControlPause(ctx)
	})
}

// ControlSkip skips the current song and refetches the queue.
func (d *Dispatcher) ControlSkip() string {
	return d.dispatch(func(ctx context.Context, id string) {
		if err := d.client.ControlSkip(ctx); err != nil {
			return
		}
		d.FetchQueue()
	})
}

// SetVolume updates the player volume.
func (d *Dispatcher) SetVolume(volume int) string {
	return d.dispatch(func(ctx context.Context, id string) {
		d.client.SetVolume(ctx, volume)
	})
}

// SetEnabled toggles song request acceptance and publishes the new
// status on success.
func (d *Dispatcher) SetEnabled(enabled bool) string {
	return d.dispatch(func(ctx context.Context, id string) {
		if err := d.client.SetEnabled(ctx, enabled); err != nil {
			return
		}
		d.publish(statusFetchedEvent(id, enabled))
	})
}

// AddSong submits a song request and publishes the outcome.
func (d *Dispatcher) AddSong(query string) string {
	return d.dispatch(func(ctx context.Context, id string) {
		accepted, message := d.client.AddSong(ctx, query)
		d.publish(songSubmittedEvent(id, accepted, message))
		if accepted {
			d.FetchQueue()
		}
	})
}

// DeleteSong removes a queued entry and refetches the queue.
func (d *Dispatcher) DeleteSong(songID string) string {
	return d.dispatch(func(ctx context.Context, id string) {
		if err := d.client.DeleteSong(ctx, songID); err != nil {
			return
		}
		d.FetchQueue()
	})
}

// PromoteSong moves a queued entry to the front and refetches the queue.
func (d *Dispatcher) PromoteSong(songID string) string {
	return d.dispatch(func(ctx context.Context, id string) {
		if err := d.client.PromoteSong(ctx, songID); err != nil {
			return
		}
		d.FetchQueue()
	})
}

// Authenticate starts an interactive login session.
func (d *Dispatcher) Authenticate() string {
	return d.dispatch(func(ctx context.Context, id string) {
		if err := d.authc.Authenticate(); err != nil {
			d.logger.Warn("authentication not started", "job", id, "error", err)
		}
	})
}

// Refresh renews the access token off the caller's path.
func (d *Dispatcher) Refresh() string {
	return d.dispatch(func(ctx context.Context, id string) {
		status := d.authc.RefreshToken(ctx)
		d.logger.Info("token refresh finished", "job", id, "status", status)
	})
}

// ClearTokens wipes stored credentials.
func (d *Dispatcher) ClearTokens() {
	d.authc.ClearTokens()
}

func (d *Dispatcher) recordHistory(ctx context.Context, queue *models.Queue) {
	if d.history == nil {
		return
	}
	for _, song := range queue.Songs {
		if err := d.history.Record(ctx, song); err != nil {
			d.logger.Warn("history record failed", "song", song.Title, "error", err)
		}
	}
}

// APIError satisfies [services.ErrorReporter].
func (d *Dispatcher) APIError(message string) {
	d.publish(apiErrorEvent(message))
}

// AuthFinished satisfies [auth.Notifier].
func (d *Dispatcher) AuthFinished(success bool) {
	d.publish(authFinishedEvent(success))
	if success {
		d.FetchUserInfo()
		d.FetchQueue()
	}
}

// AuthCountdown satisfies [auth.Notifier].
func (d *Dispatcher) AuthCountdown(seconds int) {
	d.publish(countdownEvent(seconds))
}
