package studyblog

import (
	"errors"
	"sync"
)

// Errors returned by the delete confirmation flow.
var (
	ErrDeleteAlreadyStaged = errors.New("a deletion is already staged")
	ErrNothingStaged       = errors.New("no deletion is staged")
)

type deleteState int

const (
	statePending deleteState = iota
	stateDeleting
)

type stagedDelete struct {
	postID string
	state  deleteState
}

// deleteConfirmer tracks the delete confirmation flow per identity:
// idle → pending (stage) → deleting (confirm) → idle, or pending → idle
// (cancel). At most one deletion may be staged per identity at a time.
// Absence from the map is the idle state.
type deleteConfirmer struct {
	mu     sync.Mutex
	staged map[string]*stagedDelete
}

func newDeleteConfirmer() *deleteConfirmer {
	return &deleteConfirmer{staged: make(map[string]*stagedDelete)}
}

// Stage records a pending deletion of postID for userID. Fails if any
// deletion is already staged or executing for that identity.
func (d *deleteConfirmer) Stage(userID, postID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.staged[userID]; ok {
		return ErrDeleteAlreadyStaged
	}
	d.staged[userID] = &stagedDelete{postID: postID, state: statePending}
	return nil
}

// Cancel returns a pending deletion to idle. Has no effect on an executing
// deletion.
func (d *deleteConfirmer) Cancel(userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.staged[userID]
	if !ok || st.state != statePending {
		return ErrNothingStaged
	}
	delete(d.staged, userID)
	return nil
}

// Begin moves a pending deletion to the deleting state and returns the staged
// post id. The caller must call Finish when the delete completes, whether it
// succeeded or not.
func (d *deleteConfirmer) Begin(userID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.staged[userID]
	if !ok || st.state != statePending {
		return "", ErrNothingStaged
	}
	st.state = stateDeleting
	return st.postID, nil
}

// Finish returns the identity to idle after a confirmed deletion completes.
func (d *deleteConfirmer) Finish(userID string) {
	d.mu.Lock()
	delete(d.staged, userID)
	d.mu.Unlock()
}

// Staged returns the post id of a pending or executing deletion, if any.
func (d *deleteConfirmer) Staged(userID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.staged[userID]
	if !ok {
		return "", false
	}
	return st.postID, true
}
