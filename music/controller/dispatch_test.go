package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsInOrder(t *testing.T) {
	loop := NewLoop()
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		loop.Dispatch(func() { got = append(got, i) })
	}
	loop.Stop()

	require.NoError(t, loop.Run(context.Background()))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLoopDispatchFromLoopDoesNotBlock(t *testing.T) {
	loop := NewLoop()
	var got []string
	loop.Dispatch(func() {
		got = append(got, "outer")
		loop.Dispatch(func() {
			got = append(got, "inner")
			loop.Stop()
		})
	})

	done := make(chan error, 1)
	go func() { done <- loop.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
	assert.Equal(t, []string{"outer", "inner"}, got)
}

func TestLoopStopsOnContext(t *testing.T) {
	loop := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}

	ran := false
	loop.Dispatch(func() { ran = true })
	assert.False(t, ran)
}

func TestLoopConcurrentDispatch(t *testing.T) {
	loop := NewLoop()
	done := make(chan error, 1)
	go func() { done <- loop.Run(context.Background()) }()

	var wg sync.WaitGroup
	count := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loop.Dispatch(func() { count++ })
		}()
	}
	wg.Wait()
	loop.Stop()

	require.NoError(t, <-done)
	assert.Equal(t, 50, count)
}

func TestDebouncerCancel(t *testing.T) {
	clock := &fakeClock{}
	disp := &queueDispatcher{}
	d := newDebouncer(clock, disp, 100*time.Millisecond)

	fired := 0
	d.Trigger(func() { fired++ })
	d.Cancel()
	clock.Advance(time.Second)
	disp.drain()

	assert.Zero(t, fired)
}

func TestDebouncerFiresOnceAfterDelay(t *testing.T) {
	clock := &fakeClock{}
	disp := &queueDispatcher{}
	d := newDebouncer(clock, disp, 100*time.Millisecond)

	fired := 0
	d.Trigger(func() { fired++ })
	clock.Advance(99 * time.Millisecond)
	disp.drain()
	assert.Zero(t, fired)

	clock.Advance(time.Millisecond)
	disp.drain()
	assert.Equal(t, 1, fired)

	clock.Advance(time.Second)
	disp.drain()
	assert.Equal(t, 1, fired)
}
