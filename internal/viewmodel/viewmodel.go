package viewmodel

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Makepad-fr/donezo/internal/model"
	"github.com/Makepad-fr/donezo/internal/store"
)

// Slot is the same-device fallback: one keyed slot holding the whole list.
type Slot interface {
	Load() ([]model.Task, error)
	Save(tasks []model.Task) error
}

// Options configure a ViewModel. Everything is optional.
type Options struct {
	Remote store.Store
	UserID string
	Slot   Slot
	Logger *log.Logger
	Now    func() time.Time
	NewID  func() string
}

// ViewModel holds the canonical list and its load state.
type ViewModel struct {
	tasks []model.Task

	state   LoadState
	loadErr error
	loadGen uint64

	remote store.Store
	userID string
	slot   Slot

	// epoch changes whenever the backing store is swapped or the list is
	// reset; results from an older epoch are discarded.
	epoch  uint64
	closed bool

	// pending remote inserts by task id, until they settle
	pending map[string]*Op

	persistErr error

	log   *log.Logger
	now   func() time.Time
	newID func() string
}

func New(opts Options) *ViewModel {
	vm := &ViewModel{
		remote: opts.Remote,
		userID: opts.UserID,
		slot:   opts.Slot,
		log:    opts.Logger,
		now:    opts.Now,
		newID:  opts.NewID,

		pending: map[string]*Op{},
	}
	if vm.log == nil {
		vm.log = log.New(io.Discard)
	}
	if vm.now == nil {
		vm.now = time.Now
	}
	if vm.newID == nil {
		vm.newID = uuid.NewString
	}
	return vm
}

// Remote reports whether a remote store is attached.
func (vm *ViewModel) Remote() bool { return vm.remote != nil }

// UserID of the attached remote identity, "" in local mode.
func (vm *ViewModel) UserID() string { return vm.userID }

// Attach swaps the backing store. The list is cleared and the state goes
// back to Uninitialized; a nil remote switches to the local slot.
func (vm *ViewModel) Attach(remote store.Store, userID string) {
	vm.remote = remote
	vm.userID = userID
	if remote == nil {
		vm.userID = ""
	}
	vm.Reset()
}

// Reset clears the list and drops in-flight results.
func (vm *ViewModel) Reset() {
	vm.epoch++
	vm.pending = map[string]*Op{}
	vm.tasks = nil
	vm.state = Uninitialized
	vm.loadErr = nil
}

// Close marks the view as gone. Later results are ignored.
func (vm *ViewModel) Close() { vm.closed = true }

func (vm *ViewModel) Closed() bool { return vm.closed }

// Len is the size of the canonical list.
func (vm *ViewModel) Len() int { return len(vm.tasks) }

// Tasks returns a copy of the canonical list.
func (vm *ViewModel) Tasks() []model.Task {
	out := make([]model.Task, len(vm.tasks))
	copy(out, vm.tasks)
	return out
}

// Find returns the task with the given id.
func (vm *ViewModel) Find(id string) (model.Task, bool) {
	if i := vm.index(id); i >= 0 {
		return vm.tasks[i], true
	}
	return model.Task{}, false
}

// Filtered projects the list without reordering it.
func (vm *ViewModel) Filtered(f model.Filter) []model.Task {
	out := make([]model.Task, 0, len(vm.tasks))
	for _, t := range vm.tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Stats summarizes the canonical list.
func (vm *ViewModel) Stats() model.Stats { return model.Summarize(vm.tasks) }

// PersistErr is the last fallback-slot write error, nil once a write succeeds.
func (vm *ViewModel) PersistErr() error { return vm.persistErr }

func (vm *ViewModel) index(id string) int {
	for i := range vm.tasks {
		if vm.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// changed writes the fallback slot when no remote store is attached. The
// slot is only written from a Ready list, so a slot that failed to load is
// never overwritten.
func (vm *ViewModel) changed() {
	if vm.remote != nil || vm.slot == nil || vm.state != Ready {
		return
	}
	if err := vm.slot.Save(vm.Tasks()); err != nil {
		vm.persistErr = err
		vm.log.Error("save fallback slot", "err", err)
		return
	}
	vm.persistErr = nil
}
