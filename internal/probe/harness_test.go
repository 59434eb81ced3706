package probe

import (
	"sync"
	"time"
)

// manualScheduler drives scheduled work by hand so tests control every tick
// and delay.
type manualScheduler struct {
	mu     sync.Mutex
	every  []*manualJob
	afters []*manualJob
}

type manualJob struct {
	fn        func()
	cancelled bool
}

func newManualScheduler() *manualScheduler { return &manualScheduler{} }

func (s *manualScheduler) Every(_ time.Duration, fn func()) CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := &manualJob{fn: fn}
	s.every = append(s.every, j)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		j.cancelled = true
	}
}

func (s *manualScheduler) After(_ time.Duration, fn func()) CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := &manualJob{fn: fn}
	s.afters = append(s.afters, j)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		j.cancelled = true
	}
}

// Tick fires every repeating job once.
func (s *manualScheduler) Tick() {
	s.mu.Lock()
	jobs := make([]*manualJob, len(s.every))
	copy(jobs, s.every)
	s.mu.Unlock()
	for _, j := range jobs {
		if !j.cancelled {
			j.fn()
		}
	}
}

// FireAfters runs and clears all pending one-shot jobs.
func (s *manualScheduler) FireAfters() {
	s.mu.Lock()
	jobs := s.afters
	s.afters = nil
	s.mu.Unlock()
	for _, j := range jobs {
		if !j.cancelled {
			j.fn()
		}
	}
}

// PendingAfters returns the number of uncancelled one-shot jobs.
func (s *manualScheduler) PendingAfters() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, j := range s.afters {
		if !j.cancelled {
			n++
		}
	}
	return n
}

var _ Scheduler = (*manualScheduler)(nil)

// fakeLink records writes and tracks the subscription flag.
type fakeLink struct {
	mu         sync.Mutex
	writes     [][]byte
	subscribed bool
}

func (l *fakeLink) Write(data []byte, _ bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	l.writes = append(l.writes, cp)
	return nil
}

func (l *fakeLink) SetNotify(enabled bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribed = enabled
	return nil
}

func (l *fakeLink) Subscribed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.subscribed
}

func (l *fakeLink) Writes() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, len(l.writes))
	copy(out, l.writes)
	return out
}

func (l *fakeLink) ResetWrites() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writes = nil
}

var _ Link = (*fakeLink)(nil)

// frameRecorder collects emitted frames and errors.
type frameRecorder struct {
	mu     sync.Mutex
	frames []TemperatureFrame
	errs   []error
	ready  int
}

func (r *frameRecorder) events() Events {
	return Events{
		Ready: func() {
			r.mu.Lock()
			r.ready++
			r.mu.Unlock()
		},
		Frame: func(f TemperatureFrame) {
			r.mu.Lock()
			r.frames = append(r.frames, f)
			r.mu.Unlock()
		},
		Error: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		},
	}
}

func (r *frameRecorder) Frames() []TemperatureFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TemperatureFrame, len(r.frames))
	copy(out, r.frames)
	return out
}

func (r *frameRecorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]error, len(r.errs))
	copy(out, r.errs)
	return out
}

func (r *frameRecorder) ReadyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// stubRegistry is a fixed registration-code lookup.
type stubRegistry map[string]string

func (s stubRegistry) RegistrationCode(deviceID string) (string, bool) {
	code, ok := s[deviceID]
	return code, ok
}
