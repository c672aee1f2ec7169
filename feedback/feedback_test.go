package feedback

import (
	"context"
	"testing"
	"time"
)

func TestNew_ValidRatingsAccepted(t *testing.T) {
	for _, r := range []Rating{RatingUp, RatingDown} {
		d, err := New("sess-1", "msg-1", r)
		if err != nil {
			t.Fatalf("rating %d: unexpected error %v", r, err)
		}
		if d.Rating != r {
			t.Fatalf("expected rating %d, got %d", r, d.Rating)
		}
		if d.Timestamp.IsZero() {
			t.Fatalf("expected Timestamp to default to now")
		}
	}
}

func TestNew_InvalidRatingRejected(t *testing.T) {
	for _, r := range []Rating{0, 2, -2} {
		if _, err := New("sess-1", "msg-1", r); err == nil {
			t.Fatalf("rating %d: expected error, got nil", r)
		}
	}
}

func TestIsGoldenCandidate(t *testing.T) {
	cases := []struct {
		name string
		data Data
		want bool
	}{
		{"upvote with query and response", Data{Rating: RatingUp, Query: "q", Response: "r"}, true},
		{"downvote with query and response", Data{Rating: RatingDown, Query: "q", Response: "r"}, false},
		{"upvote missing query", Data{Rating: RatingUp, Query: "", Response: "r"}, false},
		{"upvote missing response", Data{Rating: RatingUp, Query: "q", Response: ""}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.data.IsGoldenCandidate(); got != c.want {
				t.Fatalf("got %v, want %v", got, c.want)
			}
		})
	}
}

func TestMemoryStore_SaveAndGetBySession(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	d1, _ := New("sess-1", "msg-1", RatingUp)
	d2, _ := New("sess-1", "msg-2", RatingDown)
	d3, _ := New("sess-2", "msg-3", RatingUp)

	for _, d := range []*Data{d1, d2, d3} {
		if _, err := store.Save(ctx, d); err != nil {
			t.Fatalf("unexpected save error: %v", err)
		}
	}

	got, err := store.GetBySession(ctx, "sess-1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries for sess-1, got %d", len(got))
	}
}

func TestMemoryStore_GetBySessionRespectsLimit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		d, _ := New("sess-1", "msg", RatingUp)
		store.Save(ctx, d)
	}

	got, err := store.GetBySession(ctx, "sess-1", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(got))
	}
}

func TestMemoryStore_GetStatistics(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	up, _ := New("s", "m1", RatingUp)
	down, _ := New("s", "m2", RatingDown)
	store.Save(ctx, up)
	store.Save(ctx, down)

	stats, err := store.GetStatistics(ctx, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Total != 2 || stats.Upvotes != 1 || stats.Downvotes != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestMemoryStore_GetStatisticsFiltersByTimeRange(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	old := &Data{SessionID: "s", Rating: RatingUp, Timestamp: time.Now().Add(-48 * time.Hour)}
	recent := &Data{SessionID: "s", Rating: RatingDown, Timestamp: time.Now()}
	store.Save(ctx, old)
	store.Save(ctx, recent)

	start := time.Now().Add(-time.Hour)
	stats, err := store.GetStatistics(ctx, &start, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Total != 1 || stats.Downvotes != 1 {
		t.Fatalf("expected only the recent entry counted, got %+v", stats)
	}
}
