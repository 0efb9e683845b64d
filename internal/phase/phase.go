// Package phase tracks the phases a migration run walks through.
//
//	pending -> selected -> confirmed -> [validated] -> planned -> executing -> executed
//	                   \-> declined
//	                   \-> rehearsal -> [validated] -> planned   (dry run)
//
// Any phase that is not final can move to aborted. Execution is refused
// unless the run was confirmed.
package phase

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/surrealdb/surrealmigrate/pkg/logger"
)

const (
	Pending   = "pending"
	Selected  = "selected"
	Confirmed = "confirmed"
	Rehearsal = "rehearsal"
	Declined  = "declined"
	Validated = "validated"
	Planned   = "planned"
	Executing = "executing"
	Executed  = "executed"
	Aborted   = "aborted"
)

const (
	EventSelect   = "select"
	EventConfirm  = "confirm"
	EventRehearse = "rehearse"
	EventDecline  = "decline"
	EventValidate = "validate"
	EventPlan     = "plan"
	EventExecute  = "execute"
	EventComplete = "complete"
	EventAbort    = "abort"
)

// ErrNotConfirmed is returned when execution is requested for a run
// that was never confirmed.
var ErrNotConfirmed = errors.New("run was not confirmed")

// Tracker records the phase of one run.
type Tracker struct {
	fsm       *fsm.FSM
	log       logger.Logger
	confirmed bool
	history   []string
}

// New returns a Tracker in the pending phase.
func New(log logger.Logger) *Tracker {
	if log == nil {
		log = logger.Nop()
	}
	t := &Tracker{log: log, history: []string{Pending}}

	open := []string{Pending, Selected, Confirmed, Rehearsal, Validated, Planned, Executing}
	t.fsm = fsm.NewFSM(
		Pending,
		fsm.Events{
			{Name: EventSelect, Src: []string{Pending}, Dst: Selected},
			{Name: EventConfirm, Src: []string{Selected}, Dst: Confirmed},
			{Name: EventRehearse, Src: []string{Selected}, Dst: Rehearsal},
			{Name: EventDecline, Src: []string{Selected}, Dst: Declined},
			{Name: EventValidate, Src: []string{Confirmed, Rehearsal}, Dst: Validated},
			{Name: EventPlan, Src: []string{Confirmed, Rehearsal, Validated}, Dst: Planned},
			{Name: EventExecute, Src: []string{Planned}, Dst: Executing},
			{Name: EventComplete, Src: []string{Executing}, Dst: Executed},
			{Name: EventAbort, Src: open, Dst: Aborted},
		},
		fsm.Callbacks{
			"before_" + EventExecute: func(_ context.Context, e *fsm.Event) {
				if !t.confirmed {
					e.Cancel(ErrNotConfirmed)
				}
			},
			"enter_" + Confirmed: func(_ context.Context, _ *fsm.Event) {
				t.confirmed = true
			},
			"enter_state": func(_ context.Context, e *fsm.Event) {
				t.history = append(t.history, e.Dst)
				t.log.Debug("Run phase changed", "from", e.Src, "to", e.Dst, "event", e.Event)
			},
		},
	)
	return t
}

// Fire moves the run along event.
func (t *Tracker) Fire(event string) error {
	if err := t.fsm.Event(context.Background(), event); err != nil {
		var canceled fsm.CanceledError
		if errors.As(err, &canceled) && canceled.Err != nil {
			return fmt.Errorf("cannot %s in phase %s: %w", event, t.Current(), canceled.Err)
		}
		return fmt.Errorf("cannot %s in phase %s: %w", event, t.Current(), err)
	}
	return nil
}

// Abort moves the run to aborted unless it already ended.
func (t *Tracker) Abort() {
	if t.fsm.Can(EventAbort) {
		_ = t.Fire(EventAbort)
	}
}

// Current returns the current phase.
func (t *Tracker) Current() string {
	return t.fsm.Current()
}

// Confirmed reports whether the operator confirmed the run.
func (t *Tracker) Confirmed() bool {
	return t.confirmed
}

// History returns every phase the run entered, in order.
func (t *Tracker) History() []string {
	return append([]string(nil), t.history...)
}
