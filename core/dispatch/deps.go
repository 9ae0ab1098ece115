// Package dispatch composes event handlers into an immutable tree of
// endpoints, filters, maps and branches, evaluated once per inbound event.
// It is intentionally transport-agnostic so it can be reused across bots.
package dispatch

import (
	"fmt"
	"reflect"
)

// Deps is an append-only dependency map passed down the tree during
// evaluation. Values are keyed by their concrete type; inserting a value
// never mutates the receiver, it returns a child that shadows the parent.
// A Deps chain is owned by a single traversal and must not outlive it.
type Deps struct {
	parent *Deps
	key    reflect.Type
	val    any
}

// NewDeps builds a dependency map from the provided values. Later values
// shadow earlier ones of the same type.
func NewDeps(values ...any) *Deps {
	var d *Deps
	for _, v := range values {
		if v == nil {
			continue
		}
		d = &Deps{parent: d, key: reflect.TypeOf(v), val: v}
	}
	return d
}

// With returns a child map containing v in addition to everything in d.
// The parent is left untouched.
func With[T any](d *Deps, v T) *Deps {
	return &Deps{parent: d, key: reflect.TypeOf((*T)(nil)).Elem(), val: v}
}

// From looks up a value of type T, walking from the newest insertion to the
// oldest so that shadowed values stay hidden.
func From[T any](d *Deps) (T, bool) {
	want := reflect.TypeOf((*T)(nil)).Elem()
	for node := d; node != nil; node = node.parent {
		if node.key == want {
			return node.val.(T), true
		}
		// Values inserted via NewDeps are keyed by concrete type; allow
		// retrieval through an interface T as well.
		if want.Kind() == reflect.Interface && node.key.Implements(want) {
			return node.val.(T), true
		}
	}
	var zero T
	return zero, false
}

// MustFrom is From for dependencies wired at construction time, where a
// missing value is a programming error.
func MustFrom[T any](d *Deps) T {
	v, ok := From[T](d)
	if !ok {
		panic(fmt.Sprintf("dispatch: missing dependency %v", reflect.TypeOf((*T)(nil)).Elem()))
	}
	return v
}
