// Package workflow runs the sentiment pipeline as an explicit state machine:
// a validated transition table, the task steps it names, and an orchestrator
// that drives each execution to SUCCEEDED or FAILED.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/osenchi/pkg/lifecycle"
)

const recordTimeout = 10 * time.Second

// Orchestrator executes instances of a Definition. Instances are independent;
// each one runs its states sequentially.
type Orchestrator struct {
	def           *Definition
	steps         map[string]Step
	recorder      Recorder
	timeout       time.Duration
	notifyTimeout time.Duration
	logger        *slog.Logger

	mu      sync.Mutex
	base    context.Context
	closing bool
	wg      sync.WaitGroup
}

// New creates an orchestrator. Every task state in def must have a step.
// recorder may be nil. cfg must be finalized.
func New(def *Definition, steps map[string]Step, recorder Recorder, cfg *Config, logger *slog.Logger) (*Orchestrator, error) {
	for name, st := range def.States {
		if st.Kind == KindTask && steps[name] == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingStep, name)
		}
	}

	return &Orchestrator{
		def:           def,
		steps:         steps,
		recorder:      recorder,
		timeout:       cfg.TimeoutDuration(),
		notifyTimeout: cfg.NotifyTimeoutDuration(),
		logger:        logger.With("system", "workflow", "workflow", def.Name),
		base:          context.Background(),
	}, nil
}

// Start binds dispatched executions to the lifecycle context and registers a
// drain hook that waits for them to finish. Executions still running at
// shutdown are cancelled and routed through the catch path.
func (o *Orchestrator) Start(lc *lifecycle.Coordinator) error {
	o.logger.Info("starting workflow orchestrator")

	o.mu.Lock()
	o.base = lc.Context()
	o.mu.Unlock()

	lc.OnDrain(func() {
		o.mu.Lock()
		o.closing = true
		o.mu.Unlock()

		o.logger.Info("draining workflow executions")
		o.wg.Wait()
		o.logger.Info("workflow orchestrator stopped")
	})

	return nil
}

// Execute runs one execution to completion and returns its final state.
// An error is returned only when the execution could not be created.
func (o *Orchestrator) Execute(ctx context.Context, requestID string, input json.RawMessage) (*Execution, error) {
	exec, err := o.begin(ctx, requestID, input)
	if err != nil {
		return nil, err
	}

	o.run(ctx, exec)
	return exec, nil
}

// Dispatch creates an execution and runs it in the background. The returned
// execution is a snapshot taken before the first state runs.
func (o *Orchestrator) Dispatch(ctx context.Context, requestID string, input json.RawMessage) (*Execution, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closing || o.base.Err() != nil {
		return nil, ErrShuttingDown
	}

	exec, err := o.begin(ctx, requestID, input)
	if err != nil {
		return nil, err
	}

	snapshot := exec.Clone()
	base := o.base
	o.wg.Go(func() {
		o.run(base, exec)
	})

	return snapshot, nil
}

// Wait blocks until every dispatched execution has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) begin(ctx context.Context, requestID string, input json.RawMessage) (*Execution, error) {
	trigger, err := ParseTrigger(input)
	if err != nil {
		return nil, err
	}
	if requestID == "" {
		requestID = trigger.ID
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}

	exec := &Execution{
		ID:        uuid.New(),
		RequestID: requestID,
		Status:    StatusRunning,
		State:     o.def.Entry,
		Input:     input,
		History:   []Transition{},
		StartedAt: time.Now().UTC(),
	}

	if o.recorder != nil {
		if err := o.recorder.Create(ctx, exec.Clone()); err != nil {
			return nil, fmt.Errorf("record execution: %w", err)
		}
	}

	o.logger.InfoContext(ctx, "execution started", "execution_id", exec.ID, "request_id", requestID)
	return exec, nil
}

func (o *Orchestrator) run(parent context.Context, exec *Execution) {
	ctx, cancel := context.WithTimeout(parent, o.timeout)
	defer cancel()

	payload := exec.Input
	recovering := false

	for name := o.def.Entry; ; {
		st := o.def.States[name]
		o.transition(ctx, exec, name, EventEntered, "")

		switch st.Kind {
		case KindSucceed:
			o.finish(ctx, exec, StatusSucceeded, payload)
			return

		case KindFail:
			o.finish(ctx, exec, StatusFailed, payload)
			return

		case KindParallel:
			out, werr := o.runBranch(ctx, exec, st.Branch, payload)
			if werr != nil {
				exec.Error = werr
				o.transition(ctx, exec, name, EventCaught, werr.Error())

				if st.Catch == "" {
					o.finish(ctx, exec, StatusFailed, payload)
					return
				}

				caught, err := withError(payload, st.ResultPath, werr)
				if err != nil {
					o.logger.ErrorContext(ctx, "attach workflow error", "execution_id", exec.ID, "error", err)
					caught = payload
				}

				payload = caught
				exec.Payload = payload
				recovering = true
				name = st.Catch
				continue
			}
			payload = out

		case KindTask:
			out, err := o.runTask(ctx, exec, st, payload, recovering)
			if err != nil {
				if exec.Error == nil {
					exec.Error = &WorkflowError{OriginStep: name, Cause: o.cause(ctx, err)}
				}
				o.finish(ctx, exec, StatusFailed, payload)
				return
			}
			payload = out
		}

		exec.Payload = payload
		o.transition(ctx, exec, name, EventExited, "")
		name = st.Next
	}
}

// runBranch runs the task states of a branch from start until an End state.
func (o *Orchestrator) runBranch(ctx context.Context, exec *Execution, start string, payload json.RawMessage) (json.RawMessage, *WorkflowError) {
	for name := start; ; {
		st := o.def.States[name]
		o.transition(ctx, exec, name, EventEntered, "")

		if err := ctx.Err(); err != nil {
			cause := o.cause(ctx, err)
			o.transition(ctx, exec, name, EventFailed, cause)
			return nil, &WorkflowError{OriginStep: name, Cause: cause}
		}

		out, err := o.runTask(ctx, exec, st, payload, false)
		if err != nil {
			return nil, &WorkflowError{OriginStep: name, Cause: o.cause(ctx, err)}
		}

		payload = out
		exec.Payload = payload
		o.transition(ctx, exec, name, EventExited, "")

		if st.End {
			return payload, nil
		}
		name = st.Next
	}
}

// runTask invokes the step for st. Steps on the catch path run detached from
// the instance deadline, bounded by the notify timeout, so a timed-out
// execution still reports its failure.
func (o *Orchestrator) runTask(ctx context.Context, exec *Execution, st State, input json.RawMessage, recovering bool) (json.RawMessage, error) {
	if recovering {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), o.notifyTimeout)
		defer cancel()
	}
	if st.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, st.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := o.invoke(ctx, st.Name, input)
	if err != nil {
		o.logger.ErrorContext(ctx, "state failed",
			"execution_id", exec.ID,
			"state", st.Name,
			"duration", time.Since(start),
			"error", err,
		)
		o.transition(ctx, exec, st.Name, EventFailed, err.Error())
		return nil, err
	}

	o.logger.InfoContext(ctx, "state complete",
		"execution_id", exec.ID,
		"state", st.Name,
		"duration", time.Since(start),
	)
	return out, nil
}

func (o *Orchestrator) invoke(ctx context.Context, name string, input json.RawMessage) (out json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrStepPanic, name, r)
		}
	}()
	return o.steps[name](ctx, input)
}

// cause describes err, marking failures caused by the instance deadline.
func (o *Orchestrator) cause(ctx context.Context, err error) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("%v: %v", ErrTimeout, err)
	}
	return err.Error()
}

func (o *Orchestrator) transition(ctx context.Context, exec *Execution, state string, event Event, msg string) {
	exec.State = state
	exec.History = append(exec.History, Transition{
		State: state,
		Event: event,
		Error: msg,
		At:    time.Now().UTC(),
	})
	o.record(ctx, exec)
}

func (o *Orchestrator) finish(ctx context.Context, exec *Execution, status Status, payload json.RawMessage) {
	stopped := time.Now().UTC()
	exec.Status = status
	exec.Payload = payload
	exec.StoppedAt = &stopped
	o.record(ctx, exec)

	attrs := []any{
		"execution_id", exec.ID,
		"request_id", exec.RequestID,
		"status", status,
		"duration", stopped.Sub(exec.StartedAt),
	}
	if exec.Error != nil {
		attrs = append(attrs, "origin_step", exec.Error.OriginStep, "cause", exec.Error.Cause)
	}
	o.logger.InfoContext(ctx, "execution finished", attrs...)
}

// record persists exec. Recording outlives the instance deadline so the final
// status is stored after a timeout.
func (o *Orchestrator) record(ctx context.Context, exec *Execution) {
	if o.recorder == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := o.recorder.Update(ctx, exec.Clone()); err != nil {
		o.logger.WarnContext(ctx, "record execution failed", "execution_id", exec.ID, "error", err)
	}
}
