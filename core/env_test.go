package mal

import (
	"testing"
)

func TestEnvSetGet(t *testing.T) {
	env := NewEnv(nil)
	env.Set("a", IntVal(1))
	v, ok := env.Get("a")
	if !ok || v.Int != 1 {
		t.Fatalf("expected 1, got %v (found=%v)", v, ok)
	}
	if _, ok := env.Get("b"); ok {
		t.Fatal("expected b to be unbound")
	}
}

func TestEnvOuterLookup(t *testing.T) {
	outer := NewEnv(nil)
	outer.Set("a", IntVal(1))
	inner := NewEnv(outer)
	inner.Set("b", IntVal(2))

	if v, ok := inner.Get("a"); !ok || v.Int != 1 {
		t.Fatalf("expected a=1 through outer, got %v", v)
	}
	if _, ok := outer.Get("b"); ok {
		t.Fatal("inner binding visible from outer")
	}
	if inner.Outer() != outer || outer.Outer() != nil {
		t.Fatal("unexpected outer links")
	}
}

func TestEnvShadowing(t *testing.T) {
	outer := NewEnv(nil)
	outer.Set("a", IntVal(1))
	inner := NewEnv(outer)
	inner.Set("a", IntVal(2))

	if v, _ := inner.Get("a"); v.Int != 2 {
		t.Fatalf("expected inner a=2, got %v", v)
	}
	if v, _ := outer.Get("a"); v.Int != 1 {
		t.Fatalf("expected outer a=1 untouched, got %v", v)
	}
}

func TestEnvSetOverwrites(t *testing.T) {
	env := NewEnv(nil)
	env.Set("a", IntVal(1))
	env.Set("a", StrVal("x"))
	if v, _ := env.Get("a"); v.Kind != ValStr {
		t.Fatalf("expected rebinding to Str, got %v", v)
	}
}

func TestEnvNames(t *testing.T) {
	outer := NewEnv(nil)
	outer.Set("z", NilVal())
	env := NewEnv(outer)
	env.Set("b", NilVal())
	env.Set("a", NilVal())

	names := env.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("expected [a b], got %v", names)
	}
}

func TestGlobalEnvHasBuiltins(t *testing.T) {
	env := NewGlobalEnv()
	for _, name := range BuiltinNames() {
		v, ok := env.Get(name)
		if !ok || v.Kind != ValBuiltin {
			t.Fatalf("builtin %s missing", name)
		}
	}
	if len(env.Names()) != len(BuiltinNames()) {
		t.Fatalf("expected %d globals, got %d", len(BuiltinNames()), len(env.Names()))
	}
}

func TestBind(t *testing.T) {
	outer := NewEnv(nil)
	outer.Set("c", IntVal(3))
	env, err := Bind(outer, []string{"a", "b"}, []Value{IntVal(1), IntVal(2)})
	if err != nil {
		t.Fatal(err)
	}
	for name, want := range map[string]int64{"a": 1, "b": 2, "c": 3} {
		if v, _ := env.Get(name); v.Int != want {
			t.Fatalf("%s: expected %d, got %v", name, want, v)
		}
	}
}

func TestBindArityMismatch(t *testing.T) {
	_, err := Bind(NewEnv(nil), []string{"a"}, nil)
	if KindOf(err) != KindArityOrType {
		t.Fatalf("expected ArityOrTypeError, got %v", err)
	}
	_, err = Bind(NewEnv(nil), nil, []Value{IntVal(1)})
	if KindOf(err) != KindArityOrType {
		t.Fatalf("expected ArityOrTypeError, got %v", err)
	}
}
