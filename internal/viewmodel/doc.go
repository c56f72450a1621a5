// Package viewmodel owns the canonical task list.
//
// The ViewModel derives filtered views and statistics from the list and
// applies every mutation optimistically: the local list changes first and
// the caller receives an *Op describing the remote write. Op.Do may run on
// any goroutine; the Result it returns must be handed back to Settle on the
// goroutine that owns the ViewModel. A failed write is undone by applying the
// op's inverse delta, so edits made by other operations in the meantime are
// left alone.
//
// Without a remote store the ops carry no remote call and the list is
// written to the fallback Slot after every change.
//
// A ViewModel is not safe for concurrent use.
package viewmodel
