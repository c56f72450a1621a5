package viewmodel

import (
	"context"
	"errors"
	"fmt"

	"github.com/Makepad-fr/donezo/internal/model"
)

// OpKind names a mutating operation.
type OpKind int

const (
	OpAdd OpKind = iota + 1
	OpToggle
	OpEdit
	OpRemove
)

func (k OpKind) String() string {
	switch k {
	case OpAdd:
		return "add"
	case OpToggle:
		return "toggle"
	case OpEdit:
		return "edit"
	case OpRemove:
		return "remove"
	}
	return "unknown"
}

// Op is an optimistic mutation that has been applied locally and still
// needs its remote write. It carries what is needed to undo it.
type Op struct {
	Kind   OpKind
	TaskID string
	// Task is the task after the change; for OpRemove, the removed task.
	Task model.Task

	prev   model.Task
	prevID string
	nextID string
	index  int
	epoch  uint64
	call   func(ctx context.Context) (*model.Task, error)

	// Set on remote inserts: done is closed once the insert has returned,
	// after echoID and err are written.
	done   chan struct{}
	echoID string
	err    error
	// renamed is the id reconcile gave the task, set on the owner.
	renamed string
	// dep is the pending insert a chained op waited on.
	dep *Op
}

// ErrInsertFailed is returned by ops that waited on the insert of their
// task and saw it fail. The insert's own rollback removes the task.
var ErrInsertFailed = errors.New("insert of the task failed")

// Result is the outcome of Op.Do.
type Result struct {
	Op *Op
	// Task is the row echoed back by an insert, if any.
	Task *model.Task
	Err  error
}

// Do performs the remote write. It does not touch the view model and may
// run on any goroutine. Ops without a remote call succeed immediately.
func (o *Op) Do(ctx context.Context) Result {
	if o == nil {
		return Result{}
	}
	if o.call == nil {
		return Result{Op: o}
	}
	t, err := o.call(ctx)
	return Result{Op: o, Task: t, Err: err}
}

// Add prepends a new task. It returns false and changes nothing when the
// title is blank or the list is not Ready.
func (vm *ViewModel) Add(title, notes string, p model.Priority) (*Op, bool) {
	title, ok := model.NormalizeTitle(title)
	if !ok || vm.state != Ready {
		return nil, false
	}
	t := model.Task{
		ID:        vm.newID(),
		Title:     title,
		Notes:     model.NormalizeNotes(notes),
		Priority:  p,
		CreatedAt: model.Timestamp(vm.now()),
	}
	for vm.index(t.ID) >= 0 {
		t.ID = vm.newID()
	}
	vm.tasks = append([]model.Task{t}, vm.tasks...)
	op := vm.insertOp(t)
	vm.changed()
	return op, true
}

func (vm *ViewModel) insertOp(t model.Task) *Op {
	op := &Op{Kind: OpAdd, TaskID: t.ID, Task: t, epoch: vm.epoch}
	if remote, uid := vm.remote, vm.userID; remote != nil {
		op.done = make(chan struct{})
		op.call = func(ctx context.Context) (*model.Task, error) {
			defer close(op.done)
			echo, err := remote.Insert(ctx, uid, t)
			if err != nil {
				op.err = err
				return nil, err
			}
			op.echoID = echo.ID
			return &echo, nil
		}
		vm.pending[t.ID] = op
	}
	return op
}

// chain sets op's remote call. When the task's insert has not settled yet
// the call waits for it, so the server never sees an update before the row
// exists.
func (vm *ViewModel) chain(op *Op, call func(ctx context.Context, id string) error) {
	dep := vm.pending[op.TaskID]
	op.dep = dep
	id := op.TaskID
	op.call = func(ctx context.Context) (*model.Task, error) {
		if dep != nil {
			select {
			case <-dep.done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if dep.err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInsertFailed, dep.err)
			}
			if dep.echoID != "" {
				id = dep.echoID
			}
		}
		return nil, call(ctx, id)
	}
}

// Toggle flips IsCompleted. Unknown ids are a no-op and return nil.
func (vm *ViewModel) Toggle(id string) *Op {
	i := vm.index(id)
	if i < 0 || vm.state != Ready {
		return nil
	}
	prev := vm.tasks[i]
	next := prev
	next.IsCompleted = !prev.IsCompleted
	vm.tasks[i] = next

	op := &Op{Kind: OpToggle, TaskID: id, Task: next, prev: prev, epoch: vm.epoch}
	if remote := vm.remote; remote != nil {
		done := next.IsCompleted
		vm.chain(op, func(ctx context.Context, id string) error {
			return remote.Update(ctx, id, model.Patch{IsCompleted: &done})
		})
	}
	vm.changed()
	return op
}

// Edit replaces title, notes and priority. A blank title, an unknown id, or
// an edit that changes nothing returns nil, as does any edit before the
// list is Ready.
func (vm *ViewModel) Edit(id, title, notes string, p model.Priority) *Op {
	title, ok := model.NormalizeTitle(title)
	if !ok || vm.state != Ready {
		return nil
	}
	i := vm.index(id)
	if i < 0 {
		return nil
	}
	prev := vm.tasks[i]
	next := prev
	next.Title = title
	next.Notes = model.NormalizeNotes(notes)
	next.Priority = p
	if next == prev {
		return nil
	}
	vm.tasks[i] = next

	op := &Op{Kind: OpEdit, TaskID: id, Task: next, prev: prev, epoch: vm.epoch}
	if remote := vm.remote; remote != nil {
		patch := model.Patch{Title: &next.Title, Notes: &next.Notes, Priority: &next.Priority}
		vm.chain(op, func(ctx context.Context, id string) error {
			return remote.Update(ctx, id, patch)
		})
	}
	vm.changed()
	return op
}

// Remove deletes a task. Asking the user for confirmation is the caller's job.
func (vm *ViewModel) Remove(id string) *Op {
	i := vm.index(id)
	if i < 0 || vm.state != Ready {
		return nil
	}
	op := &Op{Kind: OpRemove, TaskID: id, Task: vm.tasks[i], index: i, epoch: vm.epoch}
	if i > 0 {
		op.prevID = vm.tasks[i-1].ID
	}
	if i+1 < len(vm.tasks) {
		op.nextID = vm.tasks[i+1].ID
	}
	vm.tasks = append(vm.tasks[:i:i], vm.tasks[i+1:]...)

	if remote := vm.remote; remote != nil {
		vm.chain(op, remote.Delete)
	}
	vm.changed()
	return op
}

// ClearCompleted removes every completed task, one op per task.
func (vm *ViewModel) ClearCompleted() []*Op {
	var ops []*Op
	for _, t := range vm.Filtered(model.FilterCompleted) {
		if op := vm.Remove(t.ID); op != nil {
			ops = append(ops, op)
		}
	}
	return ops
}

// Restore appends tasks whose ids are not in the list yet, keeping them
// exactly as given and in order. Tasks with blank titles are skipped.
// Nothing is restored before the list is Ready.
func (vm *ViewModel) Restore(tasks []model.Task) []*Op {
	if vm.state != Ready {
		return nil
	}
	var ops []*Op
	for _, t := range tasks {
		if _, ok := model.NormalizeTitle(t.Title); !ok || t.ID == "" || vm.index(t.ID) >= 0 {
			continue
		}
		vm.tasks = append(vm.tasks, t)
		ops = append(ops, vm.insertOp(t))
	}
	if len(ops) > 0 {
		vm.changed()
	}
	return ops
}

// Settle applies the outcome of a remote write. On failure the op's inverse
// delta is applied and a *SyncError is returned. Results that belong to a
// closed view or a previous store are dropped.
func (vm *ViewModel) Settle(r Result) error {
	op := r.Op
	if op == nil {
		return nil
	}
	if vm.closed || op.epoch != vm.epoch {
		vm.log.Debug("discard stale result", "op", op.Kind, "task", op.TaskID)
		return nil
	}
	if op.Kind == OpAdd && vm.pending[op.TaskID] == op {
		delete(vm.pending, op.TaskID)
	}
	if errors.Is(r.Err, ErrInsertFailed) {
		// the insert's own result rolls the task back
		vm.log.Debug("dropped op on failed insert", "op", op.Kind, "task", op.TaskID)
		return nil
	}
	if r.Err == nil {
		if op.Kind == OpAdd && r.Task != nil {
			vm.reconcile(op, *r.Task)
		}
		return nil
	}
	vm.rollback(op)
	vm.log.Warn("rolled back", "op", op.Kind, "task", op.TaskID, "err", r.Err)
	return &SyncError{Op: op.Kind, TaskID: op.TaskID, Err: r.Err}
}

// Commit runs the op and settles it on the calling goroutine.
func (vm *ViewModel) Commit(ctx context.Context, op *Op) error {
	if op == nil {
		return nil
	}
	return vm.Settle(op.Do(ctx))
}

// reconcile folds the row the store kept into the optimistic one. Fields
// changed locally since the insert was issued keep their newer value.
func (vm *ViewModel) reconcile(op *Op, echo model.Task) {
	i := vm.index(op.TaskID)
	if i < 0 {
		return
	}
	cur := &vm.tasks[i]
	if echo.ID != "" && echo.ID != op.TaskID && vm.index(echo.ID) < 0 {
		cur.ID = echo.ID
		op.renamed = echo.ID
	}
	if !echo.CreatedAt.IsZero() {
		cur.CreatedAt = model.Timestamp(echo.CreatedAt)
	}
	if title, ok := model.NormalizeTitle(echo.Title); ok && cur.Title == op.Task.Title {
		cur.Title = title
	}
	if cur.Notes == op.Task.Notes {
		cur.Notes = model.NormalizeNotes(echo.Notes)
	}
	if cur.Priority == op.Task.Priority {
		cur.Priority = echo.Priority
	}
	if cur.IsCompleted == op.Task.IsCompleted {
		cur.IsCompleted = echo.IsCompleted
	}
	vm.changed()
}

// rollback applies the inverse of op to whatever the list looks like now.
func (vm *ViewModel) rollback(op *Op) {
	i := vm.taskIndex(op)
	switch op.Kind {
	case OpAdd:
		if i >= 0 {
			vm.tasks = append(vm.tasks[:i:i], vm.tasks[i+1:]...)
		}
	case OpToggle:
		if i >= 0 && vm.tasks[i].IsCompleted == op.Task.IsCompleted {
			vm.tasks[i].IsCompleted = op.prev.IsCompleted
		}
	case OpEdit:
		if i < 0 {
			break
		}
		cur := &vm.tasks[i]
		if cur.Title == op.Task.Title {
			cur.Title = op.prev.Title
		}
		if cur.Notes == op.Task.Notes {
			cur.Notes = op.prev.Notes
		}
		if cur.Priority == op.Task.Priority {
			cur.Priority = op.prev.Priority
		}
	case OpRemove:
		if i >= 0 {
			break
		}
		pos := vm.reinsertAt(op)
		vm.tasks = append(vm.tasks, model.Task{})
		copy(vm.tasks[pos+1:], vm.tasks[pos:])
		vm.tasks[pos] = op.Task
	}
	vm.changed()
}

// taskIndex finds op's task, following the id its insert was given.
func (vm *ViewModel) taskIndex(op *Op) int {
	i := vm.index(op.TaskID)
	if i < 0 && op.dep != nil && op.dep.renamed != "" {
		i = vm.index(op.dep.renamed)
	}
	return i
}

// reinsertAt picks a slot for a removed task: before its old successor,
// else after its old predecessor, else its old index clamped.
func (vm *ViewModel) reinsertAt(op *Op) int {
	if op.nextID != "" {
		if j := vm.index(op.nextID); j >= 0 {
			return j
		}
	}
	if op.prevID != "" {
		if j := vm.index(op.prevID); j >= 0 {
			return j + 1
		}
	}
	if op.index > len(vm.tasks) {
		return len(vm.tasks)
	}
	return op.index
}
