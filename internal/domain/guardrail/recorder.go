package guardrail

import "sync"

// Recorder holds the most recent screening verdict for the whole process.
// The admin console polls it to show what the guardrail last decided.
// Concurrent chat turns race on it; last writer wins.
type Recorder struct {
	mu   sync.RWMutex
	last *Verdict
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record stores v as the latest verdict. Nil verdicts are ignored.
func (r *Recorder) Record(v *Verdict) {
	if v == nil {
		return
	}
	r.mu.Lock()
	r.last = v
	r.mu.Unlock()
}

// Last returns the most recent verdict, or nil when nothing has been
// screened since startup.
func (r *Recorder) Last() *Verdict {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}
