package viewmodel

import (
	"context"

	"github.com/Makepad-fr/donezo/internal/model"
)

// LoadState tracks the initial fetch of the list.
type LoadState int

const (
	Uninitialized LoadState = iota
	Loading
	Ready
	Failed
)

func (s LoadState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// LoadOp is a pending fetch of the whole list.
type LoadOp struct {
	gen   uint64
	epoch uint64
	fetch func(ctx context.Context) ([]model.Task, error)
}

// LoadResult is the outcome of LoadOp.Do.
type LoadResult struct {
	op    *LoadOp
	Tasks []model.Task
	Err   error
}

// Do fetches the list. Like Op.Do it may run on any goroutine.
func (l *LoadOp) Do(ctx context.Context) LoadResult {
	if l == nil {
		return LoadResult{}
	}
	tasks, err := l.fetch(ctx)
	return LoadResult{op: l, Tasks: tasks, Err: err}
}

func (vm *ViewModel) State() LoadState { return vm.state }

// LoadErr is the error that put the view model in Failed, nil otherwise.
func (vm *ViewModel) LoadErr() error { return vm.loadErr }

// BeginLoad moves to Loading and returns the fetch to run. It is called on
// session-available and on an explicit reload; a Failed load is never
// retried on its own. Any earlier load still in flight is superseded.
func (vm *ViewModel) BeginLoad() *LoadOp {
	if vm.closed {
		return nil
	}
	vm.loadGen++
	vm.state = Loading
	vm.loadErr = nil

	op := &LoadOp{gen: vm.loadGen, epoch: vm.epoch}
	switch {
	case vm.remote != nil:
		remote, uid := vm.remote, vm.userID
		op.fetch = func(ctx context.Context) ([]model.Task, error) {
			return remote.List(ctx, uid)
		}
	case vm.slot != nil:
		slot := vm.slot
		op.fetch = func(context.Context) ([]model.Task, error) {
			return slot.Load()
		}
	default:
		op.fetch = func(context.Context) ([]model.Task, error) { return nil, nil }
	}
	vm.log.Debug("load started", "remote", vm.remote != nil, "gen", op.gen)
	return op
}

// FinishLoad applies a fetch result: Ready with the fetched list in the
// order the source returned it, or Failed with an empty list. Superseded
// and post-teardown results are dropped. The returned error is the
// *LoadError now held by the view model, if any.
func (vm *ViewModel) FinishLoad(r LoadResult) error {
	if r.op == nil || vm.closed || r.op.epoch != vm.epoch || r.op.gen != vm.loadGen {
		return nil
	}
	if r.Err != nil {
		vm.state = Failed
		vm.tasks = nil
		vm.loadErr = &LoadError{Err: r.Err}
		vm.log.Error("load failed", "err", r.Err)
		return vm.loadErr
	}
	vm.tasks = clean(r.Tasks)
	vm.state = Ready
	vm.log.Info("tasks loaded", "count", len(vm.tasks))
	return nil
}

// Load runs BeginLoad and FinishLoad on the calling goroutine.
func (vm *ViewModel) Load(ctx context.Context) error {
	op := vm.BeginLoad()
	if op == nil {
		return nil
	}
	return vm.FinishLoad(op.Do(ctx))
}

// clean is the one place fetched rows are normalized: the first occurrence
// of every id is kept, rows without an id or title are dropped.
func clean(in []model.Task) []model.Task {
	seen := make(map[string]bool, len(in))
	out := make([]model.Task, 0, len(in))
	for _, t := range in {
		t = normalize(t)
		if t.ID == "" || t.Title == "" || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out
}

// normalize trims text fields and puts CreatedAt in UTC at store precision.
func normalize(t model.Task) model.Task {
	t.Title, _ = model.NormalizeTitle(t.Title)
	t.Notes = model.NormalizeNotes(t.Notes)
	t.CreatedAt = model.Timestamp(t.CreatedAt)
	return t
}
