package models

import "testing"

func TestQueueSort(t *testing.T) {
	q := Queue{Songs: []Song{
		{ID: "q2", Position: 2},
		{ID: "c1", Position: 0},
		{ID: "q1", Position: 1},
	}}

	q.Sort()

	want := []string{"c1", "q1", "q2"}
	for i, id := range want {
		if q.Songs[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, q.Songs[i].ID)
		}
	}

	if !q.Songs[0].NowPlaying() {
		t.Error("expected first song to be now playing")
	}
	if q.Songs[1].NowPlaying() {
		t.Error("queued song should not report now playing")
	}
}

func TestTokenAuthenticated(t *testing.T) {
	if (Token{}).Authenticated() {
		t.Error("empty token should not be authenticated")
	}
	if !(Token{AccessToken: "abc"}).Authenticated() {
		t.Error("token with access token should be authenticated")
	}
}
