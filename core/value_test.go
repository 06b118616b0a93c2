package mal

import (
	"testing"
)

func TestPrintScalars(t *testing.T) {
	cases := []struct {
		val  Value
		want string
	}{
		{NilVal(), "nil"},
		{BoolVal(true), "true"},
		{BoolVal(false), "false"},
		{IntVal(0), "0"},
		{IntVal(-42), "-42"},
		{SymVal("abc"), "abc"},
		{KeywordVal("kw"), ":kw"},
		{StrVal("abc"), `"abc"`},
		{StrVal(""), `""`},
		{StrVal("a\"b\\c\nd"), `"a\"b\\c\nd"`},
	}
	for _, tc := range cases {
		if got := tc.val.String(); got != tc.want {
			t.Fatalf("print %s: expected %s, got %s", tc.val.KindName(), tc.want, got)
		}
	}
}

func TestPrintList(t *testing.T) {
	v := ListVal([]Value{IntVal(1), ListVal([]Value{StrVal("x"), NilVal()}), ListVal(nil)})
	if got := v.String(); got != `(1 ("x" nil) ())` {
		t.Fatalf("unexpected print %s", got)
	}
}

func TestPrintFunctions(t *testing.T) {
	b := BuiltinVal("+", builtinAdd)
	if got := b.String(); got != "<std:fn>" {
		t.Fatalf("expected <std:fn>, got %s", got)
	}
	c := ClosureVal(&Closure{Env: NewEnv(nil), Params: []string{"x"}, Body: SymVal("x")})
	if got := c.String(); got != "<user:fn>" {
		t.Fatalf("expected <user:fn>, got %s", got)
	}
}

func TestPrintReadsBack(t *testing.T) {
	for _, s := range []string{"plain", "with \"quotes\"", `back\slash`, "two\nlines", "tab\there", ""} {
		printed := StrVal(s).String()
		v, err := ReadStr(printed)
		if err != nil {
			t.Fatalf("read %s: %v", printed, err)
		}
		if v.Kind != ValStr || v.Str != s {
			t.Fatalf("expected %q back, got %q", s, v.Str)
		}
	}
}

func TestTruthy(t *testing.T) {
	falsy := []Value{NilVal(), BoolVal(false)}
	truthy := []Value{BoolVal(true), IntVal(0), StrVal(""), ListVal(nil), SymVal("x"), KeywordVal("k")}
	for _, v := range falsy {
		if v.Truthy() {
			t.Fatalf("%s should be falsy", v)
		}
	}
	for _, v := range truthy {
		if !v.Truthy() {
			t.Fatalf("%s should be truthy", v)
		}
	}
}

func TestElemsOfNonList(t *testing.T) {
	if IntVal(1).Elems() != nil {
		t.Fatal("expected nil elems for Int")
	}
	if len(ListVal(nil).Elems()) != 0 {
		t.Fatal("expected no elems for empty list")
	}
}

func TestValuesEqual(t *testing.T) {
	list := func(vals ...Value) Value { return ListVal(vals) }
	cases := []struct {
		a, b Value
		want bool
	}{
		{NilVal(), NilVal(), true},
		{BoolVal(true), BoolVal(true), true},
		{BoolVal(true), BoolVal(false), false},
		{IntVal(3), IntVal(3), true},
		{IntVal(3), IntVal(4), false},
		{StrVal("abc"), StrVal("abc"), true},
		{StrVal("abc"), StrVal("abd"), false},
		{IntVal(1), StrVal("1"), false},
		{NilVal(), BoolVal(false), false},
		{NilVal(), ListVal(nil), false},
		{list(), list(), true},
		{list(IntVal(1), list(StrVal("a"))), list(IntVal(1), list(StrVal("a"))), true},
		{list(IntVal(1), IntVal(2)), list(IntVal(1)), false},
		{list(IntVal(1), IntVal(2)), list(IntVal(1), IntVal(3)), false},
		{SymVal("a"), SymVal("a"), false},
		{KeywordVal("a"), KeywordVal("a"), false},
	}
	for i, tc := range cases {
		if got := ValuesEqual(tc.a, tc.b); got != tc.want {
			t.Fatalf("case %d: (= %s %s) expected %v, got %v", i, tc.a, tc.b, tc.want, got)
		}
	}
}

func TestValuesEqualFunctions(t *testing.T) {
	b := BuiltinVal("+", builtinAdd)
	if ValuesEqual(b, b) {
		t.Fatal("functions never compare equal")
	}
}

func TestKindName(t *testing.T) {
	if IntVal(1).KindName() != "Int" || ListVal(nil).KindName() != "List" {
		t.Fatal("unexpected kind names")
	}
	if BuiltinVal("+", builtinAdd).KindName() != "BuiltinFn" {
		t.Fatal("unexpected builtin kind name")
	}
}
