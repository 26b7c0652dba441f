package production

import "sync"

// batchRun is the live step state for one product's current production
// run. Batches themselves are derived on demand, so this is the only
// mutable state the pipeline keeps about a batch.
type batchRun struct {
	steps     []ProductionStep
	completed bool
}

// runTracker owns every batch run, seeding new runs lazily from the
// step library.
//
// Lock ordering: code may take an order lock and then tracker.mu, but
// never the reverse. Anything that needs both must acquire the order
// locks first.
type runTracker struct {
	mu      sync.Mutex
	library *StepLibrary
	runs    map[ProductID]*batchRun
}

func newRunTracker(library *StepLibrary) *runTracker {
	return &runTracker{
		library: library,
		runs:    make(map[ProductID]*batchRun),
	}
}

// pristine reports whether no work has been recorded on the run yet.
func (r *batchRun) pristine() bool {
	if r.completed {
		return false
	}
	for _, step := range r.steps {
		if step.Status != StepPending {
			return false
		}
	}
	return true
}

// runLocked returns the product's run, creating it with all steps
// PENDING if no run exists yet. A run with no work in it follows the
// library's current workflow; once a step starts, the workflow is
// pinned until the run is reset or dropped. Caller must hold t.mu.
func (t *runTracker) runLocked(productID ProductID) *batchRun {
	run, ok := t.runs[productID]
	if !ok {
		run = &batchRun{steps: t.library.StepsFor(productID)}
		t.runs[productID] = run
		return run
	}
	if run.pristine() {
		run.steps = t.library.StepsFor(productID)
	}
	return run
}

// snapshot returns a copy of the product's steps and its completion
// flag.
func (t *runTracker) snapshot(productID ProductID) ([]ProductionStep, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	run := t.runLocked(productID)
	steps := make([]ProductionStep, len(run.steps))
	copy(steps, run.steps)
	return steps, run.completed
}

// completed reports whether every step of the product's run is done.
func (t *runTracker) isCompleted(productID ProductID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runLocked(productID).completed
}

// reset reseeds the product's run from the library with every step
// PENDING and clears the completion flag. Used by rework: the whole
// run is redone, not resumed mid-step, and it picks up any workflow
// override installed since the run started.
func (t *runTracker) reset(productID ProductID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	run := t.runLocked(productID)
	run.completed = false
	run.steps = t.library.StepsFor(productID)
}

// drop discards the product's run entirely. Called when the last live
// order for the product leaves the pipeline: the next order starts a
// fresh physical run, never one inherited from a finished batch.
func (t *runTracker) drop(productID ProductID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.runs, productID)
}

// lockKeeper hands out one mutex per order so all mutations of a
// single order are linearized.
type lockKeeper struct {
	mu    sync.Mutex
	locks map[OrderID]*sync.Mutex
}

func newLockKeeper() *lockKeeper {
	return &lockKeeper{locks: make(map[OrderID]*sync.Mutex)}
}

func (k *lockKeeper) lock(id OrderID) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[id]
	if !ok {
		l = &sync.Mutex{}
		k.locks[id] = l
	}
	return l
}
