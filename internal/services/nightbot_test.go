package services

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	tu "github.com/nightq/nightq/internal/testing"
)

type fakeNames struct {
	name string
}

func (f *fakeNames) SetUserName(name string) { f.name = name }

func newClient(rt http.RoundTripper) (*Client, *fakeNames) {
	exec := NewExecutor("https://api.example.test/1", &fakeAuthz{token: "AT1"}, &http.Client{Transport: rt}, nil)
	names := &fakeNames{}
	return NewClient(exec, names, nil), names
}

func TestFetchUserInfo(t *testing.T) {
	t.Run("Saves Display Name", func(t *testing.T) {
		rt := tu.NewSeqRoundTripper().Respond(http.StatusOK, `{"user":{"name":"streamer","displayName":"Streamer"}}`)
		client, names := newClient(rt)

		name, err := client.FetchUserInfo(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if name != "Streamer" {
			t.Errorf("expected display name, got %q", name)
		}
		if names.name != "Streamer" {
			t.Errorf("expected name persisted, got %q", names.name)
		}
	})

	t.Run("Falls Back To Login Name", func(t *testing.T) {
		rt := tu.NewSeqRoundTripper().Respond(http.StatusOK, `{"user":{"name":"streamer"}}`)
		client, _ := newClient(rt)

		name, err := client.FetchUserInfo(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if name != "streamer" {
			t.Errorf("expected login name fallback, got %q", name)
		}
	})
}

func TestFetchQueue(t *testing.T) {
	t.Run("Current Song And Queue Entries", func(t *testing.T) {
		payload := `{
			"_currentSong": {"_id":"c1","track":{"title":"Song A","artist":"Art","duration":125}},
			"queue": [{"_id":"q1","_position":1,"track":{"title":"Song B","artist":"Art2","duration":200},"user":{"displayName":"bob"}}]
		}`
		rt := tu.NewSeqRoundTripper().Respond(http.StatusOK, payload)
		client, _ := newClient(rt)

		queue, err := client.FetchQueue(context.Background(), "AutoDJ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(queue.Songs) != 2 {
			t.Fatalf("expected 2 songs, got %d", len(queue.Songs))
		}

		current := queue.Songs[0]
		if current.ID != "c1" || current.Position != 0 {
			t.Errorf("expected c1 at position 0, got %s at %d", current.ID, current.Position)
		}
		if !current.NowPlaying() {
			t.Error("position 0 entry should report now playing")
		}
		if current.RequestedBy != "AutoDJ" {
			t.Errorf("missing requester should use placeholder, got %q", current.RequestedBy)
		}
		if current.Duration != 125 {
			t.Errorf("expected duration 125, got %d", current.Duration)
		}

		next := queue.Songs[1]
		if next.ID != "q1" || next.Position != 1 {
			t.Errorf("expected q1 at position 1, got %s at %d", next.ID, next.Position)
		}
		if next.RequestedBy != "bob" {
			t.Errorf("expected requester bob, got %q", next.RequestedBy)
		}
	})

	t.Run("Sorted Ascending By Position", func(t *testing.T) {
		payload := `{
			"_currentSong": {"_id":"c1","track":{"title":"Now"}},
			"queue": [
				{"_id":"q3","_position":3,"track":{"title":"Third"}},
				{"_id":"q1","_position":1,"track":{"title":"First"}},
				{"_id":"q2","_position":2,"track":{"title":"Second"}}
			]
		}`
		rt := tu.NewSeqRoundTripper().Respond(http.StatusOK, payload)
		client, _ := newClient(rt)

		queue, err := client.FetchQueue(context.Background(), "AutoDJ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wantIDs := []string{"c1", "q1", "q2", "q3"}
		for i, want := range wantIDs {
			if queue.Songs[i].ID != want {
				t.Errorf("position %d: expected %s, got %s", i, want, queue.Songs[i].ID)
			}
			if queue.Songs[i].Position != i {
				t.Errorf("expected position %d, got %d", i, queue.Songs[i].Position)
			}
		}
	})

	t.Run("Missing Positions Use Array Order", func(t *testing.T) {
		payload := `{
			"queue": [
				{"_id":"q1","track":{"title":"First"}},
				{"_id":"q2","track":{"title":"Second"}}
			]
		}`
		rt := tu.NewSeqRoundTripper().Respond(http.StatusOK, payload)
		client, _ := newClient(rt)

		queue, err := client.FetchQueue(context.Background(), "AutoDJ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if queue.Songs[0].Position != 1 || queue.Songs[1].Position != 2 {
			t.Errorf("expected positions 1,2 from array order, got %d,%d",
				queue.Songs[0].Position, queue.Songs[1].Position)
		}
	})

	t.Run("Requests Enabled Flag Surfaces", func(t *testing.T) {
		rt := tu.NewSeqRoundTripper().Respond(http.StatusOK, `{"_requestsEnabled":false,"queue":[]}`)
		client, _ := newClient(rt)

		queue, err := client.FetchQueue(context.Background(), "AutoDJ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if queue.Enabled == nil || *queue.Enabled {
			t.Error("expected enabled flag false")
		}
	})

	t.Run("Flag Absent Stays Nil", func(t *testing.T) {
		rt := tu.NewSeqRoundTripper().Respond(http.StatusOK, `{"queue":[]}`)
		client, _ := newClient(rt)

		queue, err := client.FetchQueue(context.Background(), "AutoDJ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if queue.Enabled != nil {
			t.Error("absent flag should stay nil")
		}
	})
}

func TestFetchSettings(t *testing.T) {
	t.Run("Volume Present", func(t *testing.T) {
		rt := tu.NewSeqRoundTripper().Respond(http.StatusOK, `{"settings":{"enabled":true,"volume":42}}`)
		client, _ := newClient(rt)

		volume, err := client.FetchSettings(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if volume == nil || *volume != 42 {
			t.Errorf("expected volume 42, got %v", volume)
		}
	})

	t.Run("Volume Absent", func(t *testing.T) {
		rt := tu.NewSeqRoundTripper().Respond(http.StatusOK, `{"settings":{"enabled":true}}`)
		client, _ := newClient(rt)

		volume, err := client.FetchSettings(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if volume != nil {
			t.Errorf("expected nil volume, got %d", *volume)
		}
	})
}

func TestPlaybackControls(t *testing.T) {
	rt := tu.NewSeqRoundTripper().
		Respond(http.StatusOK, `{}`).
		Respond(http.StatusOK, `{}`).
		Respond(http.StatusOK, `{}`)
	client, _ := newClient(rt)
	ctx := context.Background()

	if err := client.ControlPlay(ctx); err != nil {
		t.Errorf("play failed: %v", err)
	}
	if err := client.ControlPause(ctx); err != nil {
		t.Errorf("pause failed: %v", err)
	}
	if err := client.ControlSkip(ctx); err != nil {
		t.Errorf("skip failed: %v", err)
	}

	reqs := rt.Requests()
	if len(reqs) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(reqs))
	}
	wantPaths := []string{"/song_requests/queue/play", "/song_requests/queue/pause", "/song_requests/queue/skip"}
	for i, want := range wantPaths {
		if got := reqs[i].URL.Path; got != "/1"+want {
			t.Errorf("expected path /1%s, got %s", want, got)
		}
		if reqs[i].Method != http.MethodPost {
			t.Errorf("expected POST, got %s", reqs[i].Method)
		}
	}
}

func TestSettingsMutations(t *testing.T) {
	t.Run("SetVolume Sends One Field", func(t *testing.T) {
		rt := tu.NewSeqRoundTripper().Respond(http.StatusOK, `{}`)
		client, _ := newClient(rt)

		if err := client.SetVolume(context.Background(), 50); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		req := rt.Requests()[0]
		if req.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", req.Method)
		}
		var body map[string]any
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if len(body) != 1 || body["volume"] != float64(50) {
			t.Errorf("expected single volume field, got %v", body)
		}
	})

	t.Run("SetEnabled Sends One Field", func(t *testing.T) {
		rt := tu.NewSeqRoundTripper().Respond(http.StatusOK, `{}`)
		client, _ := newClient(rt)

		if err := client.SetEnabled(context.Background(), false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var body map[string]any
		if err := json.NewDecoder(rt.Requests()[0].Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if len(body) != 1 || body["enabled"] != false {
			t.Errorf("expected single enabled field, got %v", body)
		}
	})
}

func TestAddSong(t *testing.T) {
	t.Run("Accepted", func(t *testing.T) {
		rt := tu.NewSeqRoundTripper().Respond(http.StatusOK, `{"_id":"new1"}`)
		client, _ := newClient(rt)

		accepted, message := client.AddSong(context.Background(), "never gonna give you up")
		if !accepted {
			t.Errorf("expected accepted, got message %q", message)
		}

		var body map[string]string
		if err := json.NewDecoder(rt.Requests()[0].Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body["q"] != "never gonna give you up" {
			t.Errorf("expected query in body, got %v", body)
		}
	})

	t.Run("Rejected With Message", func(t *testing.T) {
		rt := tu.NewSeqRoundTripper().Respond(http.StatusBadRequest, `{"message":"song requests are disabled"}`)
		client, _ := newClient(rt)

		accepted, message := client.AddSong(context.Background(), "some song")
		if accepted {
			t.Error("expected rejection")
		}
		if message != "song requests are disabled" {
			t.Errorf("expected API message, got %q", message)
		}
	})

	t.Run("Rejected With Raw Body", func(t *testing.T) {
		rt := tu.NewSeqRoundTripper().Respond(http.StatusBadRequest, `not json`)
		client, _ := newClient(rt)

		accepted, message := client.AddSong(context.Background(), "some song")
		if accepted {
			t.Error("expected rejection")
		}
		if message != "not json" {
			t.Errorf("expected raw body fallback, got %q", message)
		}
	})
}

func TestQueueMutations(t *testing.T) {
	t.Run("Empty ID Is NoOp", func(t *testing.T) {
		rt := tu.NewSeqRoundTripper()
		client, _ := newClient(rt)
		ctx := context.Background()

		if err := client.DeleteSong(ctx, ""); err != nil {
			t.Errorf("delete with empty id should be a no-op, got %v", err)
		}
		if err := client.PromoteSong(ctx, ""); err != nil {
			t.Errorf("promote with empty id should be a no-op, got %v", err)
		}
		if len(rt.Requests()) != 0 {
			t.Errorf("expected no network activity, saw %d requests", len(rt.Requests()))
		}
	})

	t.Run("Delete And Promote Target Entry", func(t *testing.T) {
		rt := tu.NewSeqRoundTripper().
			Respond(http.StatusOK, `{}`).
			Respond(http.StatusOK, `{}`)
		client, _ := newClient(rt)
		ctx := context.Background()

		if err := client.DeleteSong(ctx, "q1"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if err := client.PromoteSong(ctx, "q2"); err != nil {
			t.Fatalf("promote failed: %v", err)
		}

		reqs := rt.Requests()
		if reqs[0].Method != http.MethodDelete || reqs[0].URL.Path != "/1/song_requests/queue/q1" {
			t.Errorf("unexpected delete request: %s %s", reqs[0].Method, reqs[0].URL.Path)
		}
		if reqs[1].Method != http.MethodPost || reqs[1].URL.Path != "/1/song_requests/queue/q2/promote" {
			t.Errorf("unexpected promote request: %s %s", reqs[1].Method, reqs[1].URL.Path)
		}
	})
}
