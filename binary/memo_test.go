package binary

import (
	"testing"

	"github.com/partite-ai/binform/core"
)

func TestResolveMemoizesInstantiations(t *testing.T) {
	// Vec(n) = [u8; n]
	vec := &core.Lam{Param: "n", Body: &core.ArrayFormat{Elem: u8(), Len: &core.Var{Name: "n"}}}
	ty := &core.Pi{Param: "n", ParamType: &core.IntType{}, Body: &core.FormatKind{}}
	env := core.NewContext().ExtendDef("Vec", ty, vec)

	m := newInstMemo(env)
	ref := func(n int64) core.Term {
		return &core.App{Fn: &core.Var{Name: "Vec"}, Arg: core.Int(n)}
	}
	a := m.resolve(env, ref(3))
	if b := m.resolve(env, ref(3)); a != b {
		t.Error("same argument tuple produced distinct unfoldings")
	}
	arr, ok := a.(*core.ArrayFormat)
	if !ok {
		t.Fatalf("expected array format, got %s", core.String(a))
	}
	if n, ok := arr.Len.(*core.IntLit); !ok || n.Value.Int64() != 3 {
		t.Errorf("argument was not substituted: %s", core.String(a))
	}
	if c := m.resolve(env, ref(4)); c == a {
		t.Error("distinct argument tuples shared an unfolding")
	}

	// An argument reaching the same value through a local binding shares
	// the cached unfolding: keys are built from evaluated arguments.
	local := env.ExtendDef("len", &core.IntType{}, core.Int(3))
	if d := m.resolve(local, &core.App{Fn: &core.Var{Name: "Vec"}, Arg: &core.Var{Name: "len"}}); d != a {
		t.Error("evaluated argument did not hit the memo")
	}
}

func TestResolveSkipsOpenArguments(t *testing.T) {
	vec := &core.Lam{Param: "n", Body: &core.ArrayFormat{Elem: u8(), Len: &core.Var{Name: "n"}}}
	ty := &core.Pi{Param: "n", ParamType: &core.IntType{}, Body: &core.FormatKind{}}
	env := core.NewContext().ExtendDef("Vec", ty, vec)

	m := newInstMemo(env)
	// A claim-only argument stays symbolic and must not be cached.
	open := env.ExtendClaim("n", &core.IntType{})
	r := m.resolve(open, &core.App{Fn: &core.Var{Name: "Vec"}, Arg: &core.Var{Name: "n"}})
	if len(m.terms) != 0 {
		t.Error("open instantiation was cached")
	}
	arr, ok := r.(*core.ArrayFormat)
	if !ok {
		t.Fatalf("expected array format, got %s", core.String(r))
	}
	if _, symbolic := arr.Len.(*core.Var); !symbolic {
		t.Errorf("expected symbolic length, got %s", core.String(arr.Len))
	}
}
