package core

// Context is the ordered binding environment threaded through every
// judgment. An entry is either a claim (x : T) or a definition (x = t).
// Contexts are immutable: extending produces a new context sharing its
// parent, and lookups walk from the newest entry outward so the nearest
// binding wins.
type Context struct {
	parent *Context
	name   string
	typ    Term
	def    Term
	hasDef bool
}

// NewContext returns the empty context.
func NewContext() *Context {
	return nil
}

// ExtendClaim binds name with a type claim and no definition.
func (c *Context) ExtendClaim(name string, typ Term) *Context {
	return &Context{parent: c, name: name, typ: typ}
}

// ExtendDef binds name to a definition. The type may be nil when the caller
// has no use for it (decode environments bind values, not claims).
func (c *Context) ExtendDef(name string, typ, def Term) *Context {
	return &Context{parent: c, name: name, typ: typ, def: def, hasDef: true}
}

// Lookup finds the nearest binding of name. The second result reports
// whether the name is bound at all; a bound name may still have a nil
// definition (a claim).
func (c *Context) Lookup(name string) (*Context, bool) {
	for e := c; e != nil; e = e.parent {
		if e.name == name {
			return e, true
		}
	}
	return nil, false
}

// LookupType returns the claimed type of name.
func (c *Context) LookupType(name string) (Term, bool) {
	e, ok := c.Lookup(name)
	if !ok || e.typ == nil {
		return nil, false
	}
	return e.typ, true
}

// LookupDef returns the definition of name, when it has one.
func (c *Context) LookupDef(name string) (Term, bool) {
	e, ok := c.Lookup(name)
	if !ok || !e.hasDef {
		return nil, false
	}
	return e.def, true
}

// Bound reports whether name is bound in the context.
func (c *Context) Bound(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}
