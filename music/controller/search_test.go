package controller

import (
	"context"
	"testing"
	"time"

	"github.com/liuran001/MusicPreview-Go/music/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebounceIssuesSingleRequestForFinalQuery(t *testing.T) {
	env := newTestEnv(t)
	env.withTracks("daft", "1")

	for _, q := range []string{"d", "da", "daf", "daft"} {
		env.session.SetQuery(q)
		env.disp.drain()
		env.clock.Advance(100 * time.Millisecond)
		env.settle()
	}
	assert.Empty(t, env.catalog.searchCalls())

	env.clock.Advance(500 * time.Millisecond)
	env.settle()

	assert.Equal(t, []string{"daft"}, env.catalog.searchCalls())
	st := env.session.State()
	assert.Equal(t, "daft", st.Query)
	require.Len(t, st.Results, 1)
}

func TestDebounceWaitsForQuietPeriod(t *testing.T) {
	env := newTestEnv(t)

	env.session.SetQuery("a")
	env.disp.drain()
	env.clock.Advance(400 * time.Millisecond)
	env.session.SetQuery("ab")
	env.disp.drain()
	env.clock.Advance(400 * time.Millisecond)
	env.settle()
	assert.Empty(t, env.catalog.searchCalls())

	env.clock.Advance(100 * time.Millisecond)
	env.settle()
	assert.Equal(t, []string{"ab"}, env.catalog.searchCalls())
}

func TestDebounceDropsTimerFiredDuringReplacement(t *testing.T) {
	env := newTestEnv(t)

	env.session.SetQuery("old")
	env.disp.drain()
	// The newer keystroke is queued before the old timer's callback reaches the loop.
	env.session.SetQuery("new")
	env.clock.Advance(500 * time.Millisecond)
	env.settle()
	assert.Empty(t, env.catalog.searchCalls())

	env.clock.Advance(500 * time.Millisecond)
	env.settle()
	assert.Equal(t, []string{"new"}, env.catalog.searchCalls())
}

func TestEmptyQueryClearsResultsWithoutRequest(t *testing.T) {
	env := newTestEnv(t)
	env.withTracks("daft punk", "1", "2")
	env.search("daft punk")
	require.Len(t, env.session.State().Results, 2)

	env.search("   ")

	assert.Equal(t, []string{"daft punk"}, env.catalog.searchCalls())
	st := env.session.State()
	assert.Empty(t, st.Results)
	assert.False(t, st.Searching)
}

func TestEmptyQueryInvalidatesInFlightSearch(t *testing.T) {
	env := newTestEnv(t)
	env.withTracks("slow", "1")

	env.session.SetQuery("slow")
	env.disp.drain()
	env.clock.Advance(500 * time.Millisecond)
	env.disp.drain()
	require.Equal(t, 1, env.exec.pending())

	env.session.SetQuery("")
	env.disp.drain()
	env.clock.Advance(500 * time.Millisecond)
	env.settle()

	assert.Empty(t, env.session.State().Results)
}

func TestSearchKeepsResponseOrder(t *testing.T) {
	env := newTestEnv(t)
	env.withTracks("q", "9", "3", "7")

	env.search("q")

	ids := make([]string, 0)
	for _, tr := range env.session.State().Results {
		ids = append(ids, tr.ID)
	}
	assert.Equal(t, []string{"9", "3", "7"}, ids)
	assert.True(t, env.session.State().LastResult.OK())
}

func TestSearchFailureLeavesStateUnchanged(t *testing.T) {
	env := newTestEnv(t)
	env.withTracks("first", "1", "2")
	env.search("first")

	env.catalog.searchErr = catalog.NewRateLimitedError("fake", "search")
	env.search("second")

	st := env.session.State()
	require.Len(t, st.Results, 2)
	assert.Equal(t, "1", st.Results[0].ID)
	assert.False(t, st.Searching)
	assert.Equal(t, Result{Op: "search", Kind: KindRateLimited, Message: st.LastResult.Message}, st.LastResult)
}

func TestSearchPanicBecomesInternalResult(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.panicOn = "boom"

	env.search("boom")

	st := env.session.State()
	assert.Equal(t, KindInternal, st.LastResult.Kind)
	assert.Contains(t, st.LastResult.Message, "catalog exploded")
	assert.False(t, st.Searching)
}

func TestStaleSearchResponseIsDiscarded(t *testing.T) {
	env := newTestEnv(t)
	env.withTracks("first", "1")
	env.withTracks("second", "2")

	env.session.SetQuery("first")
	env.disp.drain()
	env.clock.Advance(500 * time.Millisecond)
	env.disp.drain()

	env.session.SetQuery("second")
	env.disp.drain()
	env.clock.Advance(500 * time.Millisecond)
	env.disp.drain()
	require.Equal(t, 2, env.exec.pending())

	// The newer request completes first; the older one must not overwrite it.
	env.runTask(1)
	env.runTask(0)

	st := env.session.State()
	require.Len(t, st.Results, 1)
	assert.Equal(t, "2", st.Results[0].ID)

	require.Len(t, env.catalog.ctxs, 2)
	assert.ErrorIs(t, env.catalog.ctxs[0].Err(), context.Canceled)
}

func TestSearchResponseReturnsToListModeAndStopsPlayback(t *testing.T) {
	env := newTestEnv(t)
	env.withTracks("q", "1")
	h := env.playing("1")
	require.Equal(t, ModeDetail, env.session.State().Mode())

	env.search("q")

	st := env.session.State()
	assert.Equal(t, ModeList, st.Mode())
	assert.Equal(t, StatusIdle, st.Playback.Status)
	assert.Equal(t, 1, h.releases())
}

func TestSearchRejectedByExecutor(t *testing.T) {
	env := newTestEnv(t)
	env.exec.reject = errBoom

	env.search("q")

	st := env.session.State()
	assert.False(t, st.Searching)
	assert.False(t, st.LastResult.OK())
	assert.Empty(t, env.catalog.searchCalls())
}

func TestSelectTrackShowsDetail(t *testing.T) {
	env := newTestEnv(t)
	detail := env.withDetail("2", "https://cdn.example/2.mp3")

	env.session.SelectTrack("2")
	env.disp.drain()
	assert.True(t, env.session.State().LoadingDetail)
	env.settle()

	st := env.session.State()
	assert.Equal(t, ModeDetail, st.Mode())
	assert.Equal(t, *detail, *st.Selected)
	assert.False(t, st.LoadingDetail)
}

func TestSelectTrackFailureLeavesStateUnchanged(t *testing.T) {
	env := newTestEnv(t)
	env.withTracks("q", "1")
	env.search("q")

	env.session.SelectTrack("missing")
	env.settle()

	st := env.session.State()
	assert.Equal(t, ModeList, st.Mode())
	assert.Len(t, st.Results, 1)
	assert.Equal(t, KindNotFound, st.LastResult.Kind)
	assert.Equal(t, "detail", st.LastResult.Op)
}

func TestStaleDetailResponseIsDiscarded(t *testing.T) {
	env := newTestEnv(t)
	env.withDetail("1", "https://cdn.example/1.mp3")
	env.withDetail("2", "https://cdn.example/2.mp3")

	env.session.SelectTrack("1")
	env.session.SelectTrack("2")
	env.disp.drain()
	require.Equal(t, 2, env.exec.pending())

	env.runTask(1)
	env.runTask(0)

	st := env.session.State()
	require.NotNil(t, st.Selected)
	assert.Equal(t, "2", st.Selected.ID)
}

func TestDetailAfterClearSelectionIsDiscarded(t *testing.T) {
	env := newTestEnv(t)
	env.withDetail("1", "https://cdn.example/1.mp3")

	env.session.SelectTrack("1")
	env.disp.drain()
	env.session.ClearSelection()
	env.settle()

	st := env.session.State()
	assert.Equal(t, ModeList, st.Mode())
	assert.False(t, st.LoadingDetail)
}

func TestSelectionTearsDownPreviousSessionBeforeShowingDetail(t *testing.T) {
	env := newTestEnv(t)
	events := []string{}
	env.device.events = &events

	first := env.playing("A")
	env.session.Seek(12000)
	env.settle()
	require.Equal(t, int64(12000), env.session.State().Playback.PositionMillis)

	env.withDetail("B", "https://cdn.example/B.mp3")
	env.onChange = func(v ViewState) {
		if v.Selected != nil && v.Selected.ID == "B" {
			events = append(events, "show B")
			assert.Equal(t, PlaybackState{}, v.Playback)
		}
	}
	env.session.SelectTrack("B")
	env.settle()

	require.NotEmpty(t, events)
	assert.Equal(t, []string{"release " + first.id, "show B"}, events[:2])
	assert.Equal(t, 1, first.releases())

	st := env.session.State()
	assert.False(t, st.Playback.HasHandle)
	assert.Zero(t, st.Playback.PositionMillis)
	assert.Zero(t, st.Playback.DurationMillis)
}

func TestClearSelectionStopsPlayback(t *testing.T) {
	env := newTestEnv(t)
	h := env.playing("1")

	env.session.ClearSelection()
	env.settle()

	st := env.session.State()
	assert.Equal(t, ModeList, st.Mode())
	assert.Equal(t, PlaybackState{}, st.Playback)
	assert.Equal(t, 1, h.releases())
}
