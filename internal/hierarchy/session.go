package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/devtreehq/devtree/internal/logger"
)

// State is the session controller's user-visible mode.
type State int

const (
	// StateIdle: nothing staged, tree in sync with the server.
	StateIdle State = iota
	// StateStaged: edits accumulated, nothing sent yet.
	StateStaged
	// StateApplying: a batch is in flight; no second mutation may start.
	StateApplying
	// StateError: the last apply failed; waiting for acknowledgement.
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStaged:
		return "staged"
	case StateApplying:
		return "applying"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session owns one display connection's worth of engine state: the device
// tree, the pending-edit buffer and the mutator. All operations serialize on
// one mutex; the displayed tree is always a function of server truth, never
// of unapplied intent. Construct one Session per display connection; there
// are no package-level singletons.
type Session struct {
	mu      sync.Mutex
	svc     Service
	tree    *Tree
	buffer  Buffer
	mutator *Mutator

	state   State
	lastErr error

	onState func(State)
	onTree  func(*Tree)
}

// NewSession wires a session to a display hierarchy service. Call Start to
// populate the tree.
func NewSession(svc Service, policy RemovalPolicy) *Session {
	return &Session{
		svc:     svc,
		tree:    NewTree(),
		mutator: NewMutator(svc, policy),
		state:   StateIdle,
	}
}

// OnState registers the state-change notification hook. Must be set before
// Start; the hook runs with the session lock held, so it must not call back
// into the session.
func (s *Session) OnState(fn func(State)) {
	s.onState = fn
}

// OnTree registers the hook invoked after every reconciliation pass, with
// the same locking caveat as OnState.
func (s *Session) OnTree(fn func(*Tree)) {
	s.onTree = fn
}

// Start runs the initial reconciliation pass against the live server.
func (s *Session) Start(ctx context.Context) error {
	return s.Refresh(ctx)
}

// Refresh queries the server and reconciles the tree. Safe to call from a
// timer; it waits out any apply in flight, so a concurrent apply's effects
// are always visible to the pass that follows it.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Session) refreshLocked(ctx context.Context) error {
	devices, err := s.svc.Devices(ctx)
	if err != nil {
		return fmt.Errorf("query devices: %w", err)
	}
	s.tree.Reconcile(devices)
	if s.onTree != nil {
		s.onTree(s.tree)
	}
	return nil
}

// Tree returns the device record store. Read it only from the goroutine
// driving the session; it is mutated in place by reconciliation.
func (s *Session) Tree() *Tree {
	return s.tree
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that put the session into StateError, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Pending returns the staged edits, for display.
func (s *Session) Pending() []Edit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Edits()
}

// StageReattach stages a reattachment of device to master (or to floating
// when master is FloatingID).
func (s *Session) StageReattach(device, master int) error {
	return s.stage(Reattach{DeviceID: device, NewMasterID: master})
}

// StageFloat stages detaching a device.
func (s *Session) StageFloat(device int) error {
	return s.stage(Float{DeviceID: device})
}

// StageCreateMaster stages creation of a master pair named name.
func (s *Session) StageCreateMaster(name string) error {
	return s.stage(CreateMaster{Name: name})
}

// StageRemoveMaster stages removal of a master. Reserved masters are caught
// here rather than at apply time so the user hears about it immediately.
func (s *Session) StageRemoveMaster(device int) error {
	if Reserved(device) {
		return &ValidationError{
			Edit:   RemoveMaster{DeviceID: device},
			Reason: "the core pointer and keyboard cannot be removed",
		}
	}
	return s.stage(RemoveMaster{DeviceID: device})
}

func (s *Session) stage(edit Edit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateApplying:
		return errors.New("apply in flight, cannot stage edits")
	case StateError:
		return errors.New("acknowledge the previous failure before staging edits")
	}
	if err := s.buffer.Enqueue(edit); err != nil {
		return err
	}
	logger.Debugf("staged edit: %s (%d pending)", edit, s.buffer.Len())
	s.setState(StateStaged)
	return nil
}

// Apply drains the buffer and pushes the staged edits to the server as one
// batch, then reconciles so the tree reflects whatever the server actually
// holds. On failure the surviving unsent edits are discarded; the user must
// re-stage them. Returns the number of edits the server confirmed.
func (s *Session) Apply(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateApplying {
		return 0, errors.New("apply already in flight")
	}
	if s.buffer.IsEmpty() {
		return 0, nil
	}

	edits := s.buffer.Drain()
	s.setState(StateApplying)

	applied, err := s.mutator.ApplyBatch(ctx, s.tree, edits)

	// The tree must reflect server truth after any attempted mutation,
	// successful or not.
	if rerr := s.refreshLocked(ctx); rerr != nil {
		logger.Errorf("post-apply refresh failed: %v", rerr)
		if err == nil {
			err = rerr
		}
	}

	if err != nil {
		s.lastErr = err
		s.setState(StateError)
		return applied, err
	}
	logger.Infof("applied %d hierarchy change(s)", applied)
	s.setState(StateIdle)
	return applied, nil
}

// Cancel throws away the staged edits without contacting the server, then
// reconciles to discard any speculative presentation state. Cancelling out of
// StateError acknowledges the failure as well; Err is clear afterwards.
func (s *Session) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateApplying {
		return errors.New("apply in flight, cannot cancel")
	}
	if n := s.buffer.Len(); n > 0 {
		logger.Infof("discarding %d staged edit(s)", n)
	}
	s.buffer.Drain()
	s.lastErr = nil
	s.setState(StateIdle)
	return s.refreshLocked(ctx)
}

// Acknowledge clears StateError after the user has seen the failure.
func (s *Session) Acknowledge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateError {
		return
	}
	s.lastErr = nil
	s.setState(StateIdle)
}

// ApplyNow validates and applies a single edit immediately, bypassing the
// buffer, and reconciles afterwards. This is the one-shot CLI path; staged
// edits are unaffected.
func (s *Session) ApplyNow(ctx context.Context, edit Edit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateApplying {
		return errors.New("apply in flight")
	}
	if err := s.mutator.ApplyOne(ctx, s.tree, edit); err != nil {
		return err
	}
	return s.refreshLocked(ctx)
}

// AutoRefresh reconciles on a fixed cadence until ctx is cancelled. It
// returns immediately.
func (s *Session) AutoRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Refresh(ctx); err != nil {
					logger.Warnf("periodic refresh failed: %v", err)
				}
			}
		}
	}()
}

func (s *Session) setState(state State) {
	if s.state == state {
		return
	}
	logger.Debugf("session state %s -> %s", s.state, state)
	s.state = state
	if s.onState != nil {
		s.onState(state)
	}
}
