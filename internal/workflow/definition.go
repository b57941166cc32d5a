package workflow

import (
	"fmt"
	"time"
)

// Kind is the behavior of a state.
type Kind string

const (
	// KindTask runs the step registered under the state's name.
	KindTask Kind = "Task"
	// KindParallel runs a single branch and routes branch failures to Catch.
	KindParallel Kind = "Parallel"
	// KindSucceed ends the execution as succeeded.
	KindSucceed Kind = "Succeed"
	// KindFail ends the execution as failed.
	KindFail Kind = "Fail"
)

// State is one entry of the transition table.
type State struct {
	Name string
	Kind Kind
	// Next names the following state. Empty when End is set.
	Next string
	// End marks the last state of a branch.
	End bool
	// Branch names the first state of a parallel state's branch.
	Branch string
	// Catch names the state entered when the branch fails.
	Catch string
	// ResultPath is the payload key the branch error is stored under.
	ResultPath string
	// Timeout bounds a task state. Zero means only the instance timeout applies.
	Timeout time.Duration
}

// Definition is a validated transition table with a single entry state.
type Definition struct {
	Name   string
	Entry  string
	States map[string]State
}

// NewDefinition builds and validates a definition. Every referenced state must
// exist, every branch must reach an End state, and every top-level path must
// reach a Succeed or Fail state.
func NewDefinition(name, entry string, states ...State) (*Definition, error) {
	def := &Definition{
		Name:   name,
		Entry:  entry,
		States: make(map[string]State, len(states)),
	}

	for _, st := range states {
		if st.Name == "" {
			return nil, fmt.Errorf("%w: state without a name", ErrInvalidDefinition)
		}
		if _, dup := def.States[st.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate state %q", ErrInvalidDefinition, st.Name)
		}
		def.States[st.Name] = st
	}

	if err := def.validate(); err != nil {
		return nil, err
	}
	return def, nil
}

func (d *Definition) validate() error {
	if _, ok := d.States[d.Entry]; !ok {
		return fmt.Errorf("%w: entry state %q not defined", ErrInvalidDefinition, d.Entry)
	}

	branchStates := make(map[string]bool)

	for _, st := range d.States {
		switch st.Kind {
		case KindTask:
			if err := d.checkNext(st); err != nil {
				return err
			}
		case KindParallel:
			if err := d.checkNext(st); err != nil {
				return err
			}
			if err := d.checkRef(st.Name, "branch", st.Branch); err != nil {
				return err
			}
			if st.Catch != "" {
				if err := d.checkRef(st.Name, "catch", st.Catch); err != nil {
					return err
				}
				if st.ResultPath == "" {
					return fmt.Errorf("%w: state %q catches without a result path", ErrInvalidDefinition, st.Name)
				}
			}
			members, err := d.walkBranch(st.Branch)
			if err != nil {
				return err
			}
			for _, m := range members {
				branchStates[m] = true
			}
		case KindSucceed, KindFail:
			if st.Next != "" || st.End {
				return fmt.Errorf("%w: terminal state %q has a successor", ErrInvalidDefinition, st.Name)
			}
		default:
			return fmt.Errorf("%w: state %q has unknown kind %q", ErrInvalidDefinition, st.Name, st.Kind)
		}
	}

	if branchStates[d.Entry] {
		return fmt.Errorf("%w: entry state %q is inside a branch", ErrInvalidDefinition, d.Entry)
	}

	return d.walkTop(d.Entry, make(map[string]bool))
}

func (d *Definition) checkNext(st State) error {
	switch {
	case st.End && st.Next != "":
		return fmt.Errorf("%w: state %q sets both next and end", ErrInvalidDefinition, st.Name)
	case !st.End && st.Next == "":
		return fmt.Errorf("%w: state %q has no next state", ErrInvalidDefinition, st.Name)
	case st.Next != "":
		return d.checkRef(st.Name, "next", st.Next)
	}
	return nil
}

func (d *Definition) checkRef(from, field, to string) error {
	if _, ok := d.States[to]; !ok {
		return fmt.Errorf("%w: state %q %s references undefined state %q", ErrInvalidDefinition, from, field, to)
	}
	return nil
}

// walkBranch follows a branch from start and returns its states in order.
func (d *Definition) walkBranch(start string) ([]string, error) {
	var members []string
	seen := make(map[string]bool)

	for name := start; ; {
		if seen[name] {
			return nil, fmt.Errorf("%w: branch at %q loops through %q", ErrInvalidDefinition, start, name)
		}
		seen[name] = true

		st, ok := d.States[name]
		if !ok {
			return nil, fmt.Errorf("%w: branch at %q references undefined state %q", ErrInvalidDefinition, start, name)
		}
		if st.Kind != KindTask {
			return nil, fmt.Errorf("%w: branch state %q must be a task", ErrInvalidDefinition, name)
		}
		members = append(members, name)

		if st.End {
			return members, nil
		}
		name = st.Next
	}
}

// walkTop checks that every path from name reaches a terminal state.
func (d *Definition) walkTop(name string, path map[string]bool) error {
	if path[name] {
		return fmt.Errorf("%w: cycle through %q", ErrInvalidDefinition, name)
	}
	path[name] = true
	defer delete(path, name)

	st := d.States[name]
	switch st.Kind {
	case KindSucceed, KindFail:
		return nil
	case KindParallel:
		if st.Catch != "" {
			if err := d.walkTop(st.Catch, path); err != nil {
				return err
			}
		}
	}

	if st.End {
		return fmt.Errorf("%w: top-level state %q ends without a terminal state", ErrInvalidDefinition, name)
	}
	return d.walkTop(st.Next, path)
}

// State names of the sentiment pipeline.
const (
	StateParallel      = "Parallel"
	StateSentiment     = "Sentiment"
	StateDeletion      = "Deletion"
	StateSuccessNotify = "SuccessNotify"
	StateSucceed       = "Succeed"
	StateErrorNotify   = "ErrorNotify"
	StateFail          = "Fail"
)

// Pipeline returns the sentiment pipeline definition: a parallel wrapper around
// Sentiment, Deletion, and SuccessNotify whose failures are caught into
// ErrorNotify and then Fail. cfg must be finalized.
func Pipeline(cfg *Config) (*Definition, error) {
	return NewDefinition("osenchi", StateParallel,
		State{
			Name:       StateParallel,
			Kind:       KindParallel,
			Branch:     StateSentiment,
			Catch:      StateErrorNotify,
			ResultPath: "error",
			Next:       StateSucceed,
		},
		State{
			Name:    StateSentiment,
			Kind:    KindTask,
			Next:    StateDeletion,
			Timeout: cfg.StepTimeout(StateSentiment),
		},
		State{
			Name:    StateDeletion,
			Kind:    KindTask,
			Next:    StateSuccessNotify,
			Timeout: cfg.StepTimeout(StateDeletion),
		},
		State{
			Name:    StateSuccessNotify,
			Kind:    KindTask,
			End:     true,
			Timeout: cfg.StepTimeout(StateSuccessNotify),
		},
		State{Name: StateSucceed, Kind: KindSucceed},
		State{
			Name:    StateErrorNotify,
			Kind:    KindTask,
			Next:    StateFail,
			Timeout: cfg.StepTimeout(StateErrorNotify),
		},
		State{Name: StateFail, Kind: KindFail},
	)
}
