package simulator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nomis52/dinamicisland/bridge"
	"github.com/nomis52/dinamicisland/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupported(t *testing.T) {
	tests := []struct {
		version string
		enabled bool
		want    bool
	}{
		{"17.0", true, true},
		{"16.1", true, true},
		{"16.1.2", true, true},
		{"16.0", true, false},
		{"15.7.9", true, false},
		{"18", true, true},
		{"17.0", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			sim := New(WithOSVersion(tt.version), WithActivitiesEnabled(tt.enabled))
			got, err := sim.IsSupported(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsSupported_InvalidVersion(t *testing.T) {
	_, err := New(WithOSVersion("sixteen")).IsSupported(context.Background())
	assert.Error(t, err)
}

func TestRequest_Unsupported(t *testing.T) {
	sim := New(WithOSVersion("16.0"))
	_, err := sim.Request(context.Background(), bridge.Attributes{ActivityID: "a"}, bridge.ContentState{Title: "b"})
	assert.ErrorIs(t, err, bridge.ErrUnsupported)
	assert.Empty(t, sim.Activities())

	sim.SetOSVersion("16.1")
	sim.SetActivitiesEnabled(false)
	assert.False(t, sim.ActivitiesEnabled())
	_, err = sim.Request(context.Background(), bridge.Attributes{ActivityID: "a"}, bridge.ContentState{Title: "b"})
	assert.ErrorIs(t, err, bridge.ErrUnsupported)
}

func TestLifecycle(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := start
	sim := New(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	h, err := sim.Request(ctx, bridge.Attributes{ActivityID: "order-1"}, bridge.ContentState{
		Title: "Preparing", Style: bridge.String(bridge.StyleDelivery),
	})
	require.NoError(t, err)
	assert.NotEqual(t, bridge.Handle("order-1"), h)

	now = start.Add(time.Minute)
	require.NoError(t, sim.Update(ctx, h, bridge.ContentPatch{Progress: bridge.Float(0.5)}))

	a, ok := sim.Activity(h)
	require.True(t, ok)
	assert.Equal(t, "order-1", a.Attributes.ActivityID)
	assert.Equal(t, bridge.ContentState{
		Title: "Preparing", Style: bridge.String("delivery"), Progress: bridge.Float(0.5),
	}, a.State)
	assert.Equal(t, start, a.StartedAt)
	assert.Equal(t, now, a.UpdatedAt)
	assert.Equal(t, 1, a.Updates)

	require.NoError(t, sim.End(ctx, h, bridge.DismissImmediate))
	_, ok = sim.Activity(h)
	assert.False(t, ok)
	assert.ErrorIs(t, sim.End(ctx, h, bridge.DismissImmediate), bridge.ErrUnknownHandle)
	assert.ErrorIs(t, sim.Update(ctx, h, bridge.ContentPatch{}), bridge.ErrUnknownHandle)
}

func TestActivities_StartOrder(t *testing.T) {
	sim := New()
	ctx := context.Background()

	var handles []bridge.Handle
	for _, id := range []string{"one", "two", "three"} {
		h, err := sim.Request(ctx, bridge.Attributes{ActivityID: id}, bridge.ContentState{Title: id})
		require.NoError(t, err)
		handles = append(handles, h)
	}

	got := sim.Activities()
	require.Len(t, got, 3)
	for i, a := range got {
		assert.Equal(t, handles[i], a.Handle)
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	sim := New()
	ctx := context.Background()
	h, err := sim.Request(ctx, bridge.Attributes{ActivityID: "a"}, bridge.ContentState{Title: "b", Subtitle: bridge.String("c")})
	require.NoError(t, err)

	a, _ := sim.Activity(h)
	*a.State.Subtitle = "mutated"

	again, _ := sim.Activity(h)
	assert.Equal(t, "c", *again.State.Subtitle)
}

func TestDismiss(t *testing.T) {
	sim := New()
	session, err := bridge.NewSession(sim, bridge.WithLogger(logging.Discard()))
	require.NoError(t, err)
	ctx := context.Background()

	h, err := session.Start(ctx, bridge.ActivityRequest{ActivityID: "timer", Title: "Tea", Style: bridge.String(bridge.StyleTimer)})
	require.NoError(t, err)

	assert.True(t, sim.Dismiss(h))
	assert.False(t, sim.Dismiss(h))

	ok, err := session.Update(ctx, bridge.ActivityPatch{Progress: bridge.Float(0.9)})
	assert.NoError(t, err)
	assert.False(t, ok, "a dismissed activity is no longer active")
	_, _, active := session.Current()
	assert.False(t, active)

	ok, err = session.End(ctx, bridge.DismissImmediate)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestSession_MusicPlayer(t *testing.T) {
	sim := New()
	session, err := bridge.NewSession(sim, bridge.WithLogger(logging.Discard()))
	require.NoError(t, err)
	ctx := context.Background()

	require.True(t, session.Supported(ctx))
	h, err := session.Start(ctx, bridge.ActivityRequest{
		ActivityID: "music-player",
		Title:      "Now Playing",
		Subtitle:   bridge.String("Song"),
		Style:      bridge.String(bridge.StylePlayer),
		Progress:   bridge.Float(0),
	})
	require.NoError(t, err)

	ok, err := session.Update(ctx, bridge.ActivityPatch{Progress: bridge.Float(0.25), Subtitle: bridge.String("Next Song")})
	require.NoError(t, err)
	require.True(t, ok)

	a, found := sim.Activity(h)
	require.True(t, found)
	assert.Equal(t, "Now Playing", a.State.Title)
	assert.Equal(t, "Next Song", *a.State.Subtitle)
	assert.Equal(t, "player", *a.State.Style)
	assert.Equal(t, 0.25, *a.State.Progress)

	ok, err = session.End(ctx, bridge.DismissDefault)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, sim.Activities())
}

func TestSession_Unsupported(t *testing.T) {
	session, err := bridge.NewSession(New(WithOSVersion("15.0")), bridge.WithLogger(logging.Discard()))
	require.NoError(t, err)

	assert.False(t, session.Supported(context.Background()))
	_, err = session.Start(context.Background(), bridge.ActivityRequest{ActivityID: "a", Title: "b"})
	var ue *bridge.UnsupportedError
	assert.ErrorAs(t, err, &ue)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim := New()
	_, err := sim.Request(ctx, bridge.Attributes{ActivityID: "a"}, bridge.ContentState{Title: "b"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sim.Activities())
}

func TestConcurrentUse(t *testing.T) {
	sim := New()
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			h, err := sim.Request(ctx, bridge.Attributes{ActivityID: "a"}, bridge.ContentState{Title: "b"})
			if !assert.NoError(t, err) {
				return
			}
			for j := 0; j < 10; j++ {
				assert.NoError(t, sim.Update(ctx, h, bridge.ContentPatch{Progress: bridge.Float(float64(j) / 10)}))
				_ = sim.Activities()
			}
			assert.NoError(t, sim.End(ctx, h, bridge.DismissImmediate))
		}()
	}
	wg.Wait()

	assert.Empty(t, sim.Activities())
}

func TestSession_ConcurrentCalls(t *testing.T) {
	session, err := bridge.NewSession(New(), bridge.WithLogger(logging.Discard()))
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, err := session.Start(ctx, bridge.ActivityRequest{ActivityID: "a", Title: "b"})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := session.Update(ctx, bridge.ActivityPatch{Progress: bridge.Float(0.5)})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := session.End(ctx, bridge.DismissImmediate)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
