package workflow

import "errors"

var (
	// ErrInvalidDefinition indicates a transition table that cannot be executed.
	ErrInvalidDefinition = errors.New("invalid workflow definition")
	// ErrMissingStep indicates a task state with no registered step.
	ErrMissingStep = errors.New("missing step")
	// ErrInvalidInput indicates an execution input that is not a trigger payload.
	ErrInvalidInput = errors.New("invalid execution input")
	// ErrStepPanic indicates a step panicked.
	ErrStepPanic = errors.New("step panicked")
	// ErrShuttingDown indicates the orchestrator no longer accepts executions.
	ErrShuttingDown = errors.New("orchestrator shutting down")
	// ErrTimeout indicates the execution exceeded its overall timeout.
	ErrTimeout = errors.New("execution timed out")
)
