package controller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/liuran001/MusicPreview-Go/music/audio"
	"github.com/liuran001/MusicPreview-Go/music/catalog"
	"github.com/liuran001/MusicPreview-Go/music/download"
	"github.com/stretchr/testify/require"
)

type queueDispatcher struct {
	mu    sync.Mutex
	queue []func()
}

func (d *queueDispatcher) Dispatch(fn func()) {
	d.mu.Lock()
	d.queue = append(d.queue, fn)
	d.mu.Unlock()
}

func (d *queueDispatcher) next() (func(), bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return nil, false
	}
	fn := d.queue[0]
	d.queue = d.queue[1:]
	return fn, true
}

// drain runs queued functions, including ones they queue, until empty.
func (d *queueDispatcher) drain() {
	for {
		fn, ok := d.next()
		if !ok {
			return
		}
		fn()
	}
}

type manualExecutor struct {
	mu     sync.Mutex
	tasks  []func()
	reject error
}

func (e *manualExecutor) Submit(task func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.reject != nil {
		return e.reject
	}
	e.tasks = append(e.tasks, task)
	return nil
}

func (e *manualExecutor) pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}

// take removes the i-th pending task.
func (e *manualExecutor) take(i int) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	task := e.tasks[i]
	e.tasks = append(e.tasks[:i], e.tasks[i+1:]...)
	return task
}

type fakeTimer struct {
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeClock struct {
	now    time.Duration
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	t := &fakeTimer{at: c.now + d, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now += d
	due := make([]*fakeTimer, 0)
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			due = append(due, t)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.fired = true
		t.fn()
	}
}

type fakeCatalog struct {
	mu        sync.Mutex
	results   map[string][]catalog.Track
	details   map[string]*catalog.TrackDetail
	searchErr error
	detailErr error
	panicOn   string
	searches  []string
	fetches   []string
	ctxs      []context.Context
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		results: make(map[string][]catalog.Track),
		details: make(map[string]*catalog.TrackDetail),
	}
}

func (c *fakeCatalog) Name() string { return "fake" }

func (c *fakeCatalog) Search(ctx context.Context, query string, limit int) ([]catalog.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searches = append(c.searches, query)
	c.ctxs = append(c.ctxs, ctx)
	if c.panicOn == query {
		panic("catalog exploded")
	}
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	return c.results[query], nil
}

func (c *fakeCatalog) GetTrack(ctx context.Context, trackID string) (*catalog.TrackDetail, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetches = append(c.fetches, trackID)
	if c.detailErr != nil {
		return nil, c.detailErr
	}
	detail, ok := c.details[trackID]
	if !ok {
		return nil, catalog.NewNotFoundError("fake", "track", trackID)
	}
	return detail, nil
}

func (c *fakeCatalog) searchCalls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.searches...)
}

type fakeHandle struct {
	mu       sync.Mutex
	id       string
	url      string
	autoplay bool
	plays    int
	pauses   int
	seeks    []int64
	released int
	listener func(audio.Status)
	err      error
	events   *[]string
}

func (h *fakeHandle) ID() string { return h.id }

func (h *fakeHandle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.plays++
	return h.err
}

func (h *fakeHandle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pauses++
	return h.err
}

func (h *fakeHandle) Seek(ms int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seeks = append(h.seeks, ms)
	return h.err
}

func (h *fakeHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.released++
	if h.events != nil {
		*h.events = append(*h.events, "release "+h.id)
	}
	return nil
}

func (h *fakeHandle) OnStatus(fn func(audio.Status)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listener = fn
}

// emit delivers a status the way the audio goroutine would.
func (h *fakeHandle) emit(st audio.Status) {
	h.mu.Lock()
	fn := h.listener
	h.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

func (h *fakeHandle) releases() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

type fakeDevice struct {
	mu      sync.Mutex
	handles []*fakeHandle
	err     error
	events  *[]string
	// loading runs inside Create with the caller's progress callback.
	loading func(progress download.ProgressFunc)
}

func (d *fakeDevice) Create(ctx context.Context, url string, autoplay bool, progress download.ProgressFunc) (audio.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loading != nil {
		d.loading(progress)
	}
	if d.err != nil {
		return nil, d.err
	}
	h := &fakeHandle{id: fmt.Sprintf("h%d", len(d.handles)+1), url: url, autoplay: autoplay, events: d.events}
	if autoplay {
		h.plays++
	}
	d.handles = append(d.handles, h)
	return h, nil
}

func (d *fakeDevice) created() []*fakeHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*fakeHandle(nil), d.handles...)
}

type testEnv struct {
	t        *testing.T
	session  *Session
	disp     *queueDispatcher
	exec     *manualExecutor
	clock    *fakeClock
	catalog  *fakeCatalog
	device   *fakeDevice
	changes  int
	onChange func(ViewState)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		t:       t,
		disp:    &queueDispatcher{},
		exec:    &manualExecutor{},
		clock:   &fakeClock{},
		catalog: newFakeCatalog(),
		device:  &fakeDevice{},
	}
	s, err := New(context.Background(), Options{
		Catalog:    env.catalog,
		Device:     env.device,
		Dispatcher: env.disp,
		Executor:   env.exec,
		Clock:      env.clock,
		Debounce:   500 * time.Millisecond,
		OnChange: func() {
			env.changes++
			if env.onChange != nil {
				env.onChange(env.session.state.clone())
			}
		},
	})
	require.NoError(t, err)
	env.session = s
	return env
}

// settle runs dispatched work and executor tasks in FIFO order until nothing is left.
func (e *testEnv) settle() {
	for {
		e.disp.drain()
		if e.exec.pending() == 0 {
			return
		}
		e.exec.take(0)()
	}
}

// runTask runs the i-th pending task and then drains the loop.
func (e *testEnv) runTask(i int) {
	e.exec.take(i)()
	e.disp.drain()
}

func (e *testEnv) search(query string) {
	e.session.SetQuery(query)
	e.disp.drain()
	e.clock.Advance(500 * time.Millisecond)
	e.settle()
}

func (e *testEnv) withTracks(query string, ids ...string) {
	tracks := make([]catalog.Track, 0, len(ids))
	for _, id := range ids {
		tracks = append(tracks, catalog.Track{ID: id, Title: "Title " + id, Artist: catalog.Artist{Name: "Artist " + id}})
	}
	e.catalog.results[query] = tracks
}

func (e *testEnv) withDetail(id string, preview string) *catalog.TrackDetail {
	detail := &catalog.TrackDetail{
		ID:         id,
		Title:      "Title " + id,
		Duration:   30 * time.Second,
		PreviewURL: preview,
		Album:      catalog.Album{Title: "Album " + id},
		Artist:     catalog.Artist{Name: "Artist " + id},
	}
	e.catalog.details[id] = detail
	return detail
}

// playing selects id and starts playback, returning the created handle.
func (e *testEnv) playing(id string) *fakeHandle {
	e.t.Helper()
	e.withDetail(id, "https://cdn.example/"+id+".mp3")
	e.session.SelectTrack(id)
	e.settle()
	e.session.Play()
	e.settle()

	st := e.session.State()
	require.Equal(e.t, StatusPlaying, st.Playback.Status)
	handles := e.device.created()
	require.NotEmpty(e.t, handles)
	return handles[len(handles)-1]
}

var errBoom = errors.New("boom")
