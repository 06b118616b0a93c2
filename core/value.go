package mal

import (
	"fmt"
	"strconv"
	"strings"
)

type ValueKind int

const (
	ValNil ValueKind = iota
	ValBool
	ValInt
	ValStr
	ValSym
	ValKeyword
	ValList
	ValBuiltin
	ValClosure
)

// Builtin is a primitive implemented in Go, called with evaluated arguments.
type Builtin func(args []Value) (Value, error)

type BuiltinFn struct {
	Name string
	Fn   Builtin
}

// Closure is a user function. Env is shared with every other closure created
// in the same scope and outlives the call that created it.
type Closure struct {
	Env    *Env
	Params []string
	Body   Value
}

// Value is the tagged union of every runtime value. Expressions read from
// source are Values too.
type Value struct {
	Kind    ValueKind
	Bool    bool
	Int     int64
	Str     string // Str content, Sym name, Keyword name without ':'
	List    *[]Value
	Builtin *BuiltinFn
	Closure *Closure
}

func NilVal() Value               { return Value{Kind: ValNil} }
func BoolVal(b bool) Value        { return Value{Kind: ValBool, Bool: b} }
func IntVal(n int64) Value        { return Value{Kind: ValInt, Int: n} }
func StrVal(s string) Value       { return Value{Kind: ValStr, Str: s} }
func SymVal(s string) Value       { return Value{Kind: ValSym, Str: s} }
func KeywordVal(s string) Value   { return Value{Kind: ValKeyword, Str: s} }
func ClosureVal(c *Closure) Value { return Value{Kind: ValClosure, Closure: c} }

func BuiltinVal(name string, fn Builtin) Value {
	return Value{Kind: ValBuiltin, Builtin: &BuiltinFn{Name: name, Fn: fn}}
}

// ListVal wraps elems without copying; callers hand over ownership.
func ListVal(elems []Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{Kind: ValList, List: &elems}
}

// Elems returns the elements of a List, or nil for any other kind.
func (v Value) Elems() []Value {
	if v.Kind != ValList || v.List == nil {
		return nil
	}
	return *v.List
}

// Truthy reports whether v selects the then-branch of if: only nil and false
// are falsy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case ValNil:
		return false
	case ValBool:
		return v.Bool
	default:
		return true
	}
}

// String is the printer. Every literal prints back as the text it was read
// from.
func (v Value) String() string {
	switch v.Kind {
	case ValNil:
		return "nil"
	case ValBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case ValInt:
		return strconv.FormatInt(v.Int, 10)
	case ValStr:
		return quoteStr(v.Str)
	case ValSym:
		return v.Str
	case ValKeyword:
		return ":" + v.Str
	case ValList:
		elems := v.Elems()
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, " ") + ")"
	case ValBuiltin:
		return "<std:fn>"
	case ValClosure:
		return "<user:fn>"
	default:
		return fmt.Sprintf("<unknown:%d>", v.Kind)
	}
}

var strEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func quoteStr(s string) string {
	return `"` + strEscaper.Replace(s) + `"`
}

func (v Value) KindName() string {
	switch v.Kind {
	case ValNil:
		return "Nil"
	case ValBool:
		return "Bool"
	case ValInt:
		return "Int"
	case ValStr:
		return "Str"
	case ValSym:
		return "Sym"
	case ValKeyword:
		return "Keyword"
	case ValList:
		return "List"
	case ValBuiltin:
		return "BuiltinFn"
	case ValClosure:
		return "Closure"
	default:
		return "Unknown"
	}
}

// ValuesEqual implements =. Only Nil, Bool, Int, Str and List pairings
// compare; every other pairing, including mismatched kinds, is unequal.
func ValuesEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ValNil:
		return true
	case ValBool:
		return a.Bool == b.Bool
	case ValInt:
		return a.Int == b.Int
	case ValStr:
		return a.Str == b.Str
	case ValList:
		as, bs := a.Elems(), b.Elems()
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !ValuesEqual(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	return false
}
