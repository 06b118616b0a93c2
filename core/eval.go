package mal

// DefaultMaxDepth bounds nested evaluation so runaway recursion fails with
// DepthExceeded instead of exhausting the goroutine stack.
const DefaultMaxDepth = 10000

// Evaluator evaluates expressions against an environment chain.
type Evaluator struct {
	MaxDepth    int    // 0 means unlimited
	depth       int    // current nesting of Eval calls
	activeTrace *Trace // set by Session during a top-level eval
}

// Eval evaluates expr in env. Closure calls recurse directly; there is no
// tail-call elimination.
func (e *Evaluator) Eval(expr Value, env *Env) (Value, error) {
	if e.MaxDepth > 0 && e.depth >= e.MaxDepth {
		return Value{}, errorf(KindDepthExceeded, "maximum evaluation depth %d exceeded", e.MaxDepth)
	}
	e.depth++
	defer func() { e.depth-- }()

	switch expr.Kind {
	case ValSym:
		val, ok := env.Get(expr.Str)
		if !ok {
			return Value{}, errorf(KindSymbolNotFound, "'%s' not found", expr.Str)
		}
		return val, nil
	case ValList:
		return e.evalList(expr, env)
	default:
		return expr, nil
	}
}

func (e *Evaluator) evalList(expr Value, env *Env) (Value, error) {
	elems := expr.Elems()
	if len(elems) == 0 {
		return expr, nil
	}

	// Special forms are recognized by the head's text before anything is
	// evaluated, so no binding can shadow them.
	if head := elems[0]; head.Kind == ValSym {
		switch head.Str {
		case "def!":
			return e.evalDef(elems, env)
		case "let*":
			return e.evalLet(elems, env)
		case "do":
			return e.evalDo(elems, env)
		case "if":
			return e.evalIf(elems, env)
		case "fn*":
			return e.evalFn(elems, env)
		}
	}

	vals := make([]Value, len(elems))
	for i, elem := range elems {
		val, err := e.Eval(elem, env)
		if err != nil {
			return Value{}, err
		}
		vals[i] = val
	}
	return e.apply(vals[0], vals[1:])
}

// Apply calls fn with already evaluated arguments.
func (e *Evaluator) Apply(fn Value, args []Value) (Value, error) {
	return e.apply(fn, args)
}

func (e *Evaluator) apply(fn Value, args []Value) (Value, error) {
	switch fn.Kind {
	case ValBuiltin:
		return fn.Builtin.Fn(args)
	case ValClosure:
		c := fn.Closure
		callEnv, err := Bind(c.Env, c.Params, args)
		if err != nil {
			return Value{}, err
		}
		return e.Eval(c.Body, callEnv)
	default:
		return Value{}, errorf(KindNotCallable, "cannot call %s value %s", fn.KindName(), fn.String())
	}
}

// evalDef: (def! name expr). Binds in the current scope without a child scope.
func (e *Evaluator) evalDef(elems []Value, env *Env) (Value, error) {
	if len(elems) != 3 {
		return Value{}, errorf(KindArityOrType, "def!: expected (def! name expr), got %d args", len(elems)-1)
	}
	name := elems[1]
	if name.Kind != ValSym {
		return Value{}, errorf(KindArityOrType, "def!: name must be a Sym, got %s", name.KindName())
	}
	val, err := e.Eval(elems[2], env)
	if err != nil {
		return Value{}, err
	}
	env.Set(name.Str, val)
	if e.activeTrace != nil && env.Outer() == nil {
		e.activeTrace.Defined = append(e.activeTrace.Defined, name.Str)
	}
	return val, nil
}

// evalLet: (let* (k1 v1 k2 v2 ...) body). Bindings are sequential in one
// child scope; later bindings see earlier ones.
func (e *Evaluator) evalLet(elems []Value, env *Env) (Value, error) {
	if len(elems) != 3 {
		return Value{}, errorf(KindArityOrType, "let*: expected (let* (bindings...) body), got %d args", len(elems)-1)
	}
	bindings := elems[1]
	if bindings.Kind != ValList {
		return Value{}, errorf(KindArityOrType, "let*: bindings must be a List, got %s", bindings.KindName())
	}
	pairs := bindings.Elems()
	if len(pairs)%2 != 0 {
		return Value{}, errorf(KindArityOrType, "let*: odd number of binding elements (%d)", len(pairs))
	}
	letEnv := NewEnv(env)
	for i := 0; i < len(pairs); i += 2 {
		key := pairs[i]
		if key.Kind != ValSym {
			return Value{}, errorf(KindArityOrType, "let*: binding name must be a Sym, got %s", key.KindName())
		}
		val, err := e.Eval(pairs[i+1], letEnv)
		if err != nil {
			return Value{}, err
		}
		letEnv.Set(key.Str, val)
	}
	return e.Eval(elems[2], letEnv)
}

// evalDo returns the last value; (do) is nil.
func (e *Evaluator) evalDo(elems []Value, env *Env) (Value, error) {
	result := NilVal()
	for _, elem := range elems[1:] {
		val, err := e.Eval(elem, env)
		if err != nil {
			return Value{}, err
		}
		result = val
	}
	return result, nil
}

// evalIf: (if cond then [else]). A missing else yields nil.
func (e *Evaluator) evalIf(elems []Value, env *Env) (Value, error) {
	if len(elems) != 3 && len(elems) != 4 {
		return Value{}, errorf(KindArityOrType, "if: expected 2 or 3 args (cond then [else]), got %d", len(elems)-1)
	}
	cond, err := e.Eval(elems[1], env)
	if err != nil {
		return Value{}, err
	}
	if cond.Truthy() {
		return e.Eval(elems[2], env)
	}
	if len(elems) == 4 {
		return e.Eval(elems[3], env)
	}
	return NilVal(), nil
}

// evalFn captures env by reference.
func (e *Evaluator) evalFn(elems []Value, env *Env) (Value, error) {
	if len(elems) != 3 {
		return Value{}, errorf(KindArityOrType, "fn*: expected (fn* (params...) body), got %d args", len(elems)-1)
	}
	paramList := elems[1]
	if paramList.Kind != ValList {
		return Value{}, errorf(KindArityOrType, "fn*: params must be a List, got %s", paramList.KindName())
	}
	params := make([]string, len(paramList.Elems()))
	for i, p := range paramList.Elems() {
		if p.Kind != ValSym {
			return Value{}, errorf(KindArityOrType, "fn*: param names must be Syms, got %s", p.KindName())
		}
		params[i] = p.Str
	}
	return ClosureVal(&Closure{Env: env, Params: params, Body: elems[2]}), nil
}

// EvalString reads every form in input and evaluates them in order in env,
// returning the last value.
func (e *Evaluator) EvalString(input string, env *Env) (Value, error) {
	forms, err := ReadAll(input)
	if err != nil {
		return Value{}, err
	}
	var result Value
	for _, form := range forms {
		result, err = e.Eval(form, env)
		if err != nil {
			return Value{}, err
		}
	}
	return result, nil
}
