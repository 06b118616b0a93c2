package mal

import (
	"fmt"
	"time"
)

// DefaultSessionID names the session a server creates at startup.
const DefaultSessionID = "default"

// SessionOptions configures a Session. The zero value gives an in-memory
// session with the default depth limit and trace cap.
type SessionOptions struct {
	MaxDepth  int   // 0 selects DefaultMaxDepth; negative means unlimited
	MaxTraces int   // 0 selects 1000
	Store     Store // nil disables persistence
}

// Session is one persistent global environment plus its history. It is not
// safe for concurrent use; the server serializes access through its actor.
type Session struct {
	ID        string
	env       *Env
	eval      *Evaluator
	traces    []Trace
	maxTraces int
	store     Store
}

// NewSession builds a session and, when a store is configured, replays the
// session's stored definitions in order.
func NewSession(id string, opts SessionOptions) (*Session, error) {
	maxDepth := opts.MaxDepth
	if maxDepth == 0 {
		maxDepth = DefaultMaxDepth
	} else if maxDepth < 0 {
		maxDepth = 0
	}
	maxTraces := opts.MaxTraces
	if maxTraces <= 0 {
		maxTraces = 1000
	}
	s := &Session{
		ID:        id,
		env:       NewGlobalEnv(),
		eval:      &Evaluator{MaxDepth: maxDepth},
		maxTraces: maxTraces,
		store:     opts.Store,
	}
	if err := s.replay(); err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	return s, nil
}

func (s *Session) replay() error {
	if s.store == nil {
		return nil
	}
	defs, err := s.store.Definitions(s.ID)
	if err != nil {
		return err
	}
	for _, def := range defs {
		_, err := s.eval.EvalString(def.Source, s.env)
		if err != nil && KindOf(err).String() != def.Kind {
			return fmt.Errorf("replaying %q: %w", def.Source, err)
		}
	}
	return nil
}

// Eval evaluates every form in input in order and returns the last value.
// Evaluation stops at the first error; bindings made before it stay, so an
// input that defined names is logged even when it failed.
func (s *Session) Eval(input string) (Value, error) {
	trace := &Trace{
		Input:     input,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	s.eval.activeTrace = trace
	val, err := s.eval.EvalString(input, s.env)
	s.eval.activeTrace = nil

	if err != nil {
		trace.Error = err.Error()
		trace.Kind = KindOf(err)
	} else {
		trace.Result = val
	}
	s.appendTrace(trace)

	if s.store != nil {
		if len(trace.Defined) > 0 {
			def := Definition{Source: input}
			if !trace.OK() {
				def.Kind = trace.Kind.String()
			}
			if serr := s.store.AppendDefinition(s.ID, def); serr != nil {
				return val, fmt.Errorf("write definition log: %w", serr)
			}
		}
		if serr := s.store.AppendTrace(s.ID, trace.Record()); serr != nil {
			return val, fmt.Errorf("write trace: %w", serr)
		}
	}
	return val, err
}

// Rep evaluates input and returns the printed result or the error line.
func (s *Session) Rep(input string) string {
	val, err := s.Eval(input)
	if err != nil {
		return "error: " + err.Error()
	}
	return val.String()
}

// appendTrace adds a trace and enforces the maxTraces cap.
func (s *Session) appendTrace(t *Trace) {
	s.traces = append(s.traces, *t)
	if len(s.traces) > s.maxTraces {
		excess := len(s.traces) - s.maxTraces
		s.traces = s.traces[excess:]
	}
}

// Traces returns the last n traces, oldest first; all of them when n <= 0.
func (s *Session) Traces(n int) []Trace {
	if n <= 0 || n > len(s.traces) {
		n = len(s.traces)
	}
	out := make([]Trace, n)
	copy(out, s.traces[len(s.traces)-n:])
	return out
}

// Lookup resolves name in the global environment.
func (s *Session) Lookup(name string) (Value, bool) {
	return s.env.Get(name)
}

// Globals returns the sorted user-defined global names. A builtin name counts
// once it is bound to anything other than its own table entry.
func (s *Session) Globals() []string {
	builtins := Builtins()
	var names []string
	for _, name := range s.env.Names() {
		if val, _ := s.env.Get(name); val.Kind == ValBuiltin && val.Builtin.Name == name {
			if _, ok := builtins[name]; ok {
				continue
			}
		}
		names = append(names, name)
	}
	return names
}

// Reset discards every binding and trace and clears the stored log.
func (s *Session) Reset() error {
	if s.store != nil {
		if err := s.store.Clear(s.ID); err != nil {
			return fmt.Errorf("reset %s: %w", s.ID, err)
		}
	}
	s.env = NewGlobalEnv()
	s.traces = nil
	return nil
}
