// Package inspection implements the unit of work bound to a single record.
package inspection

import (
	"context"
	"fmt"
	"time"

	"github.com/haukened/rr-inspect/internal/inspect/common/clock"
	"github.com/haukened/rr-inspect/internal/inspect/common/log"
	"github.com/haukened/rr-inspect/internal/inspect/common/utils"
	"github.com/haukened/rr-inspect/internal/inspect/domain"
)

// Decider decides block/forward for a record.
type Decider interface {
	Decide(r domain.Record) domain.Decision
}

// Recorder receives the outcome of every inspected record.
type Recorder interface {
	Record(o domain.Outcome)
}

// Stage names the step a task was in.
type Stage string

const (
	StageDecide Stage = "decide"
	StageRecord Stage = "record"
	StageEmit   Stage = "emit"
)

// Event is the per-record observability event.
type Event struct {
	Verdict       domain.Verdict
	Reason        string
	SourceAddress string
	Domain        string
	Apex          string
	Priority      domain.Priority
	Elapsed       time.Duration
}

// ElapsedMs returns the elapsed wall time in fractional milliseconds.
func (e Event) ElapsedMs() float64 {
	return float64(e.Elapsed) / float64(time.Millisecond)
}

// Fields renders the event as structured log fields.
func (e Event) Fields() map[string]any {
	return map[string]any{
		"verdict":    string(e.Verdict),
		"reason":     e.Reason,
		"source":     e.SourceAddress,
		"domain":     e.Domain,
		"apex":       e.Apex,
		"priority":   e.Priority.String(),
		"elapsed_ms": e.ElapsedMs(),
	}
}

// Deps are the collaborators shared by every task of a run.
type Deps struct {
	Authority Decider
	Stats     Recorder
	Clock     clock.Clock
	Logger    log.Logger
	// Observer, when set, receives every emitted event after it is logged.
	Observer func(Event)
}

// Task inspects one record.
type Task struct {
	record domain.Record
	deps   Deps
}

// New binds a record to the run's collaborators. Nil Clock and Logger fall
// back to the real clock and the global logger.
func New(r domain.Record, deps Deps) *Task {
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}
	if deps.Logger == nil {
		deps.Logger = log.GetLogger()
	}
	return &Task{record: r, deps: deps}
}

// Fault is the panic value raised when a collaborator fails inside a task.
// It carries the record and the stage so the pool can report it.
type Fault struct {
	Record domain.Record
	Stage  Stage
	Cause  any
}

func (f *Fault) Error() string {
	return fmt.Sprintf("inspection fault at %s for %s: %v", f.Stage, f.Record, f.Cause)
}

// LogFields renders the fault for structured logging.
func (f *Fault) LogFields() map[string]any {
	return map[string]any{
		"stage":    string(f.Stage),
		"source":   f.Record.SourceAddress,
		"domain":   f.Record.Domain,
		"priority": f.Record.Priority.String(),
		"cause":    fmt.Sprint(f.Cause),
	}
}

// Run decides the record, reports the outcome and emits one event. A
// cancelled context abandons the stages not yet started. Collaborator
// panics are re-raised as *Fault.
func (t *Task) Run(ctx context.Context) {
	stage := StageDecide
	defer func() {
		if r := recover(); r != nil {
			panic(&Fault{Record: t.record, Stage: stage, Cause: r})
		}
	}()

	start := t.deps.Clock.Now()

	if ctx.Err() != nil {
		return
	}
	decision := t.deps.Authority.Decide(t.record)

	stage = StageRecord
	if ctx.Err() != nil {
		return
	}
	t.deps.Stats.Record(domain.Outcome{Record: t.record, Decision: decision})

	stage = StageEmit
	end := t.deps.Clock.Now()
	t.emit(Event{
		Verdict:       decision.Verdict(),
		Reason:        decision.Reason.Description(),
		SourceAddress: t.record.SourceAddress,
		Domain:        t.record.Domain,
		Apex:          utils.ApexDomain(t.record.Domain),
		Priority:      t.record.Priority,
		Elapsed:       end.Sub(start),
	})
}

func (t *Task) emit(ev Event) {
	if ev.Verdict == domain.VerdictBlocked {
		t.deps.Logger.Warn(ev.Fields(), "Record blocked")
	} else {
		t.deps.Logger.Info(ev.Fields(), "Record forwarded")
	}
	if t.deps.Observer != nil {
		t.deps.Observer(ev)
	}
}
