package metrics

import "sync"

// Recorder is an in-memory Hooks implementation for tests: it accumulates
// counts, records every gauge/histogram observation in call order, and keeps
// the most recent depth per queue name.
type Recorder struct {
	mu sync.Mutex

	PagesFetched        int
	PagesFailed         int
	PagesSkippedRobots  int
	PagesRequeued       int
	RetriesAttempted    int
	DLQEnqueues         int
	FetchDurations      []float64
	ContentSizes        []int
	CircuitStates       []int
	ConsecutiveFailures []int
	CurrentBackoffs     []float64
	ProbeSuccesses      int
	ProbeFailures       int
	QueueDepths         map[string]int
	SeedURLsEnqueued    int
	URLsEnqueued        int
	LoopLags            []float64
}

// NewRecorder builds an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{QueueDepths: make(map[string]int)}
}

func (r *Recorder) PageFetched(statusCode int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.PagesFetched++
}

func (r *Recorder) PageFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.PagesFailed++
}

func (r *Recorder) PageSkippedRobots() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.PagesSkippedRobots++
}

func (r *Recorder) PageRequeued() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.PagesRequeued++
}

func (r *Recorder) RetryAttempted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.RetriesAttempted++
}

func (r *Recorder) DLQEnqueued() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.DLQEnqueues++
}

func (r *Recorder) FetchDuration(seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FetchDurations = append(r.FetchDurations, seconds)
}

func (r *Recorder) ContentSize(bytes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ContentSizes = append(r.ContentSizes, bytes)
}

func (r *Recorder) CircuitStateChanged(state int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CircuitStates = append(r.CircuitStates, state)
}

func (r *Recorder) ConsecutiveFailures(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ConsecutiveFailures = append(r.ConsecutiveFailures, n)
}

func (r *Recorder) CurrentBackoffSeconds(seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CurrentBackoffs = append(r.CurrentBackoffs, seconds)
}

func (r *Recorder) ProbeCompleted(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ok {
		r.ProbeSuccesses++
	} else {
		r.ProbeFailures++
	}
}

func (r *Recorder) QueueDepthObserved(name string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.QueueDepths[name] = n
}

func (r *Recorder) SeedURLEnqueued() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SeedURLsEnqueued++
}

func (r *Recorder) URLEnqueued() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.URLsEnqueued++
}

func (r *Recorder) SchedulerLoopLag(seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.LoopLags = append(r.LoopLags, seconds)
}

var _ Hooks = (*Recorder)(nil)
