package binary

import (
	"strings"

	"github.com/partite-ai/binform/core"
)

// instMemo caches unfoldings of top-level declaration references per
// distinct argument tuple, so a recursive type re-entering the same
// instantiation reuses the first unfolding instead of re-reducing it.
type instMemo struct {
	root  *core.Context
	terms map[string]core.Term
}

func newInstMemo(root *core.Context) *instMemo {
	return &instMemo{root: root, terms: map[string]core.Term{}}
}

// resolve normalizes a format head through the memo. Only references
// whose head names the same top-level definition in the current and root
// contexts and whose arguments evaluate to closed terms are cached: such
// an instantiation means the same thing under every environment the
// derivation builds.
func (m *instMemo) resolve(env *core.Context, t core.Term) core.Term {
	key, inst, ok := m.key(env, t)
	if !ok {
		return core.Normalize(env, t)
	}
	if r, ok := m.terms[key]; ok {
		return r
	}
	r := core.Normalize(m.root, inst)
	m.terms[key] = r
	return r
}

// key renders an instantiation as name NUL arg NUL arg... over the fully
// evaluated arguments, and rebuilds the application with those arguments
// so the cached unfolding is environment-independent.
func (m *instMemo) key(env *core.Context, t core.Term) (string, core.Term, bool) {
	var args []core.Term
	for {
		app, ok := t.(*core.App)
		if !ok {
			break
		}
		args = append(args, app.Arg)
		t = app.Fn
	}
	head, ok := t.(*core.Var)
	if !ok {
		return "", nil, false
	}
	def, ok := env.LookupDef(head.Name)
	if !ok {
		return "", nil, false
	}
	if rootDef, ok := m.root.LookupDef(head.Name); !ok || rootDef != def {
		return "", nil, false
	}
	var b strings.Builder
	b.WriteString(head.Name)
	inst := core.Term(&core.Var{Name: head.Name})
	for i := len(args) - 1; i >= 0; i-- {
		v := core.Normalize(env, args[i])
		if len(core.FreeVars(v)) != 0 {
			return "", nil, false
		}
		b.WriteByte(0)
		b.WriteString(core.String(v))
		inst = &core.App{Fn: inst, Arg: v}
	}
	return b.String(), inst, true
}
