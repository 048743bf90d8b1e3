package tasks

import (
	"fmt"

	"github.com/nightq/nightq/internal/models"
)

// Event is a completion notification from a dispatched operation.
//
// Operations never return results to their caller; subscribers receive
// events instead.
type Event struct {
	Kind    Kind
	JobID   string        // Dispatcher-assigned id of the originating job
	Queue   *models.Queue // QueueFetched
	Name    string        // UserInfoFetched
	Enabled bool          // StatusFetched
	Volume  int           // VolumeFetched
	Seconds int           // Countdown
	Success bool          // AuthFinished, SongSubmitted
	Message string        // APIError, SongSubmitted rejection reason
}

// Event kind enumeration
type Kind int

const (
	QueueFetched Kind = iota
	UserInfoFetched
	StatusFetched
	VolumeFetched
	SongSubmitted
	APIError
	AuthFinished
	Countdown
)

func (k Kind) String() string {
	switch k {
	case QueueFetched:
		return "queue_fetched"
	case UserInfoFetched:
		return "user_info_fetched"
	case StatusFetched:
		return "status_fetched"
	case VolumeFetched:
		return "volume_fetched"
	case SongSubmitted:
		return "song_submitted"
	case APIError:
		return "api_error"
	case AuthFinished:
		return "auth_finished"
	case Countdown:
		return "countdown"
	default:
		return ""
	}
}

func queueFetchedEvent(jobID string, queue *models.Queue) Event {
	return Event{Kind: QueueFetched, JobID: jobID, Queue: queue}
}

func userInfoFetchedEvent(jobID, name string) Event {
	return Event{Kind: UserInfoFetched, JobID: jobID, Name: name}
}

func statusFetchedEvent(jobID string, enabled bool) Event {
	return Event{Kind: StatusFetched, JobID: jobID, Enabled: enabled}
}

func volumeFetchedEvent(jobID string, volume int) Event {
	return Event{Kind: VolumeFetched, JobID: jobID, Volume: volume}
}

func songSubmittedEvent(jobID string, accepted bool, message string) Event {
	return Event{Kind: SongSubmitted, JobID: jobID, Success: accepted, Message: message}
}

func apiErrorEvent(message string) Event {
	return Event{Kind: APIError, Message: message}
}

func authFinishedEvent(success bool) Event {
	return Event{Kind: AuthFinished, Success: success}
}

func countdownEvent(seconds int) Event {
	return Event{Kind: Countdown, Seconds: seconds, Message: fmt.Sprintf("%ds remaining", seconds)}
}
