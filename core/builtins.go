package mal

// Builtins returns the primitive table installed in every global environment.
func Builtins() map[string]Builtin {
	return map[string]Builtin{
		"+":      builtinAdd,
		"-":      builtinSub,
		"*":      builtinMul,
		"/":      builtinDiv,
		"=":      builtinEq,
		"<":      builtinLt,
		"<=":     builtinLte,
		">":      builtinGt,
		">=":     builtinGte,
		"count":  builtinCount,
		"list":   builtinList,
		"list?":  builtinListQ,
		"empty?": builtinEmptyQ,
	}
}

// BuiltinNames lists the primitive names in a stable order.
func BuiltinNames() []string {
	return []string{"+", "-", "*", "/", "=", "<", "<=", ">", ">=", "count", "list", "list?", "empty?"}
}

func intArgs(name string, args []Value) (int64, int64, error) {
	if len(args) != 2 {
		return 0, 0, errorf(KindArityOrType, "%s: expected 2 args, got %d", name, len(args))
	}
	a, b := args[0], args[1]
	if a.Kind != ValInt || b.Kind != ValInt {
		return 0, 0, errorf(KindArityOrType, "%s: expected Int and Int, got %s and %s", name, a.KindName(), b.KindName())
	}
	return a.Int, b.Int, nil
}

func oneArg(name string, args []Value) (Value, error) {
	if len(args) != 1 {
		return Value{}, errorf(KindArityOrType, "%s: expected 1 arg, got %d", name, len(args))
	}
	return args[0], nil
}

func builtinAdd(args []Value) (Value, error) {
	a, b, err := intArgs("+", args)
	if err != nil {
		return Value{}, err
	}
	return IntVal(a + b), nil
}

func builtinSub(args []Value) (Value, error) {
	a, b, err := intArgs("-", args)
	if err != nil {
		return Value{}, err
	}
	return IntVal(a - b), nil
}

func builtinMul(args []Value) (Value, error) {
	a, b, err := intArgs("*", args)
	if err != nil {
		return Value{}, err
	}
	return IntVal(a * b), nil
}

// builtinDiv truncates toward zero.
func builtinDiv(args []Value) (Value, error) {
	a, b, err := intArgs("/", args)
	if err != nil {
		return Value{}, err
	}
	if b == 0 {
		return Value{}, errorf(KindDivisionByZero, "/: division by zero")
	}
	return IntVal(a / b), nil
}

// builtinEq never errors on kinds: unsupported pairings are simply unequal.
func builtinEq(args []Value) (Value, error) {
	if len(args) != 2 {
		return Value{}, errorf(KindArityOrType, "=: expected 2 args, got %d", len(args))
	}
	return BoolVal(ValuesEqual(args[0], args[1])), nil
}

func builtinLt(args []Value) (Value, error) {
	a, b, err := intArgs("<", args)
	if err != nil {
		return Value{}, err
	}
	return BoolVal(a < b), nil
}

func builtinLte(args []Value) (Value, error) {
	a, b, err := intArgs("<=", args)
	if err != nil {
		return Value{}, err
	}
	return BoolVal(a <= b), nil
}

func builtinGt(args []Value) (Value, error) {
	a, b, err := intArgs(">", args)
	if err != nil {
		return Value{}, err
	}
	return BoolVal(a > b), nil
}

func builtinGte(args []Value) (Value, error) {
	a, b, err := intArgs(">=", args)
	if err != nil {
		return Value{}, err
	}
	return BoolVal(a >= b), nil
}

// builtinCount: (count list) is its length; any other single value counts as 1.
func builtinCount(args []Value) (Value, error) {
	v, err := oneArg("count", args)
	if err != nil {
		return Value{}, err
	}
	if v.Kind == ValList {
		return IntVal(int64(len(v.Elems()))), nil
	}
	return IntVal(1), nil
}

func builtinList(args []Value) (Value, error) {
	elems := make([]Value, len(args))
	copy(elems, args)
	return ListVal(elems), nil
}

func builtinListQ(args []Value) (Value, error) {
	v, err := oneArg("list?", args)
	if err != nil {
		return Value{}, err
	}
	return BoolVal(v.Kind == ValList), nil
}

func builtinEmptyQ(args []Value) (Value, error) {
	v, err := oneArg("empty?", args)
	if err != nil {
		return Value{}, err
	}
	return BoolVal(v.Kind == ValList && len(v.Elems()) == 0), nil
}
