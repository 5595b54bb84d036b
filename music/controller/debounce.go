package controller

import "time"

// debouncer runs the last triggered function once input has been quiet for delay.
// All methods run on the loop.
type debouncer struct {
	clock      Clock
	dispatcher Dispatcher
	delay      time.Duration
	timer      Timer
	seq        uint64
}

func newDebouncer(clock Clock, dispatcher Dispatcher, delay time.Duration) *debouncer {
	return &debouncer{clock: clock, dispatcher: dispatcher, delay: delay}
}

func (d *debouncer) Trigger(fn func()) {
	d.stopTimer()
	d.seq++
	seq := d.seq
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.dispatcher.Dispatch(func() {
			// A timer that fired while being replaced is stale.
			if seq != d.seq {
				return
			}
			d.timer = nil
			fn()
		})
	})
}

func (d *debouncer) Cancel() {
	d.stopTimer()
	d.seq++
}

func (d *debouncer) stopTimer() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
