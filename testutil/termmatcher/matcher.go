// Package termmatcher builds composable matchers over core value terms
// for tests: decoded records, vectors, and sum values can be validated
// structurally without spelling out the full term tree.
package termmatcher

import (
	"fmt"
	"math/big"

	"github.com/google/go-cmp/cmp"

	"github.com/partite-ai/binform/core"
)

// Matcher validates a term and returns an error describing the first
// mismatch.
type Matcher func(core.Term) error

// bigIntComparer lets go-cmp compare the unexported words of big.Int.
var bigIntComparer = cmp.Comparer(func(a, b *big.Int) bool {
	return a.Cmp(b) == 0
})

// Equal matches a term structurally identical to want.
func Equal(want core.Term) Matcher {
	return func(got core.Term) error {
		if diff := cmp.Diff(want, got, bigIntComparer); diff != "" {
			return fmt.Errorf("term mismatch (-want +got):\n%s", diff)
		}
		return nil
	}
}

// Int matches an integer literal with the given value.
func Int(v int64) Matcher {
	return func(got core.Term) error {
		lit, ok := got.(*core.IntLit)
		if !ok {
			return fmt.Errorf("expected integer, got %s", core.String(got))
		}
		if lit.Value.Cmp(big.NewInt(v)) != 0 {
			return fmt.Errorf("expected %d, got %s", v, lit.Value)
		}
		return nil
	}
}

// Str matches a string literal with the given value.
func Str(v string) Matcher {
	return func(got core.Term) error {
		lit, ok := got.(*core.StringLit)
		if !ok {
			return fmt.Errorf("expected string, got %s", core.String(got))
		}
		if lit.Value != v {
			return fmt.Errorf("expected %q, got %q", v, lit.Value)
		}
		return nil
	}
}

// Unit matches the unit value.
func Unit() Matcher {
	return func(got core.Term) error {
		if _, ok := got.(*core.UnitLit); !ok {
			return fmt.Errorf("expected unit, got %s", core.String(got))
		}
		return nil
	}
}

// FieldMatcher pairs a record field name with its matcher.
type FieldMatcher struct {
	Name    string
	Matcher Matcher
}

// Field builds a FieldMatcher.
func Field(name string, m Matcher) FieldMatcher {
	return FieldMatcher{Name: name, Matcher: m}
}

// Record matches a record literal with exactly the given fields in order.
func Record(fields ...FieldMatcher) Matcher {
	return func(got core.Term) error {
		rec, ok := got.(*core.RecordLit)
		if !ok {
			return fmt.Errorf("expected record, got %s", core.String(got))
		}
		if len(rec.Fields) != len(fields) {
			return fmt.Errorf("field count mismatch: expected %d, got %d in %s",
				len(fields), len(rec.Fields), core.String(got))
		}
		for i, f := range fields {
			if rec.Fields[i].Name != f.Name {
				return fmt.Errorf("field %d: expected name %s, got %s", i, f.Name, rec.Fields[i].Name)
			}
			if err := f.Matcher(rec.Fields[i].Value); err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
		}
		return nil
	}
}

// Vector matches a vector literal element-wise.
func Vector(elems ...Matcher) Matcher {
	return func(got core.Term) error {
		vec, ok := got.(*core.VectorLit)
		if !ok {
			return fmt.Errorf("expected vector, got %s", core.String(got))
		}
		if len(vec.Elems) != len(elems) {
			return fmt.Errorf("element count mismatch: expected %d, got %d in %s",
				len(elems), len(vec.Elems), core.String(got))
		}
		for i, m := range elems {
			if err := m(vec.Elems[i]); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	}
}

// Ints matches a vector of integer literals.
func Ints(vs ...int64) Matcher {
	elems := make([]Matcher, len(vs))
	for i, v := range vs {
		elems[i] = Int(v)
	}
	return Vector(elems...)
}

// Sum matches a sum value by branch name and payload.
func Sum(name string, payload Matcher) Matcher {
	return func(got core.Term) error {
		sum, ok := got.(*core.SumLit)
		if !ok {
			return fmt.Errorf("expected sum value, got %s", core.String(got))
		}
		if sum.Name != name {
			return fmt.Errorf("expected branch %s, got %s", name, sum.Name)
		}
		if err := payload(sum.Value); err != nil {
			return fmt.Errorf("branch %s: %w", name, err)
		}
		return nil
	}
}
