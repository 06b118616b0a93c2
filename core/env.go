package mal

import "sort"

// Env is one scope in the environment chain. Scopes are shared by pointer:
// a closure keeps its defining scope alive after the creating call returns.
type Env struct {
	vars  map[string]Value
	outer *Env
}

func NewEnv(outer *Env) *Env {
	return &Env{vars: make(map[string]Value), outer: outer}
}

// NewGlobalEnv returns a root scope holding the builtin table.
func NewGlobalEnv() *Env {
	env := NewEnv(nil)
	for name, fn := range Builtins() {
		env.Set(name, BuiltinVal(name, fn))
	}
	return env
}

// Bind creates the call scope for a closure invocation.
func Bind(outer *Env, params []string, args []Value) (*Env, error) {
	if len(params) != len(args) {
		return nil, errorf(KindArityOrType, "fn*: expected %d args, got %d", len(params), len(args))
	}
	env := NewEnv(outer)
	for i, p := range params {
		env.vars[p] = args[i]
	}
	return env, nil
}

func (e *Env) Set(name string, val Value) {
	e.vars[name] = val
}

func (e *Env) Get(name string) (Value, bool) {
	for env := e; env != nil; env = env.outer {
		if val, ok := env.vars[name]; ok {
			return val, true
		}
	}
	return Value{}, false
}

func (e *Env) Outer() *Env {
	return e.outer
}

// Names returns the names bound at this level only, sorted.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.vars))
	for name := range e.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
