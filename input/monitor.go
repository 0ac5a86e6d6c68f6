package input

import (
	"sync"
	"time"
)

// Dispatcher is the monitor's wake target. Active reports whether
// driver waits should be armed at all; Dispatch performs one
// non-blocking drain attempt. Both are called only from the monitor
// goroutine.
type Dispatcher interface {
	Active() bool
	Dispatch()
}

const defaultMaxWait = 250 * time.Millisecond

// Monitor owns the single goroutine that waits on a capture driver and
// dispatches drain attempts. All driver access after Start funnels
// through this goroutine; other goroutines reach it with Inject.
type Monitor struct {
	driver  CaptureDriver
	target  Dispatcher
	maxWait time.Duration

	inject   chan func()
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewMonitor builds a monitor for driver that wakes target. maxWait
// bounds driver-requested timeouts; zero selects a default.
func NewMonitor(driver CaptureDriver, target Dispatcher, maxWait time.Duration) *Monitor {
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}
	return &Monitor{
		driver:  driver,
		target:  target,
		maxWait: maxWait,
		inject:  make(chan func(), 8),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the monitor goroutine.
func (m *Monitor) Start() {
	go m.run()
}

// Inject schedules fn to run on the monitor goroutine and reports
// whether it was accepted. It blocks until the function is queued or the
// monitor is stopping. Callers must not hold locks that Dispatch
// acquires.
func (m *Monitor) Inject(fn func()) bool {
	select {
	case m.inject <- fn:
		return true
	case <-m.stop:
		return false
	}
}

// Stop shuts the monitor down and waits for the goroutine to exit.
// Injected functions that were not yet dispatched are discarded.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
}

func (m *Monitor) run() {
	defer close(m.done)

	for {
		var ready <-chan struct{}
		var timeout <-chan time.Time
		var timer *time.Timer

		if m.target.Active() {
			plan := m.driver.Prepare()
			ready = plan.Ready
			if plan.Timeout >= 0 {
				wait := plan.Timeout
				if wait > m.maxWait {
					wait = m.maxWait
				}
				timer = time.NewTimer(wait)
				timeout = timer.C
			}
		}

		select {
		case <-m.stop:
			if timer != nil {
				timer.Stop()
			}
			return
		case fn := <-m.inject:
			fn()
		case <-ready:
			m.target.Dispatch()
		case <-timeout:
			m.target.Dispatch()
		}

		if timer != nil {
			timer.Stop()
		}
	}
}
