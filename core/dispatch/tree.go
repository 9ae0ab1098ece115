package dispatch

import (
	"context"
	"fmt"
)

// Outcome reports whether an event found a matching endpoint.
type Outcome int

const (
	// Unhandled means no endpoint ran; the event passes through.
	Unhandled Outcome = iota
	// Handled means an endpoint ran, successfully or not.
	Handled
)

// String returns the lowercase outcome name for logs.
func (o Outcome) String() string {
	if o == Handled {
		return "handled"
	}
	return "unhandled"
}

// HandlerFunc is the unit of work executed by an endpoint.
type HandlerFunc func(ctx context.Context, d *Deps) error

// Predicate decides whether a filter admits the current event.
// Predicates must be pure with respect to Deps; fallible work belongs in a
// Map or an Endpoint.
type Predicate func(ctx context.Context, d *Deps) bool

type nodeKind int

const (
	kindEndpoint nodeKind = iota
	kindFilter
	kindMap
	kindBranch
)

// Node is one vertex of the dispatch tree. Nodes are immutable after
// construction and safe to share across concurrent traversals.
type Node struct {
	kind     nodeKind
	run      HandlerFunc
	pred     Predicate
	derive   func(ctx context.Context, d *Deps) (*Deps, bool)
	inner    *Node
	children []*Node
}

// Endpoint builds a leaf that invokes fn. An endpoint that runs is terminal:
// it yields Handled regardless of fn's error, which is surfaced separately.
func Endpoint(fn HandlerFunc) *Node {
	if fn == nil {
		panic("dispatch: Endpoint requires a handler")
	}
	return &Node{kind: kindEndpoint, run: fn}
}

// Filter guards inner with pred. A false predicate yields Unhandled without
// touching inner.
func Filter(pred Predicate, inner *Node) *Node {
	if pred == nil || inner == nil {
		panic("dispatch: Filter requires a predicate and an inner node")
	}
	return &Node{kind: kindFilter, pred: pred, inner: inner}
}

// Map derives a value of type T from the current dependencies and recurses
// into inner with a child map containing it. A transform that cannot derive
// a value yields Unhandled without touching inner.
func Map[T any](transform func(ctx context.Context, d *Deps) (T, bool), inner *Node) *Node {
	if transform == nil || inner == nil {
		panic("dispatch: Map requires a transform and an inner node")
	}
	return &Node{
		kind: kindMap,
		derive: func(ctx context.Context, d *Deps) (*Deps, bool) {
			v, ok := transform(ctx, d)
			if !ok {
				return nil, false
			}
			return With(d, v), true
		},
		inner: inner,
	}
}

// Branch tries children in declared order and short-circuits on the first
// Handled outcome. First match wins; order is the dispatch policy.
func Branch(children ...*Node) *Node {
	for _, c := range children {
		if c == nil {
			panic("dispatch: Branch child must not be nil")
		}
	}
	return &Node{kind: kindBranch, children: children}
}

// Evaluate runs a single depth-first traversal for one event. A non-nil
// error always means an endpoint ran and failed, so it is reported together
// with Handled; callers must not conflate it with Unhandled.
func (n *Node) Evaluate(ctx context.Context, d *Deps) (Outcome, error) {
	if n == nil {
		return Unhandled, nil
	}
	switch n.kind {
	case kindEndpoint:
		return Handled, n.run(ctx, d)
	case kindFilter:
		if !n.pred(ctx, d) {
			return Unhandled, nil
		}
		return n.inner.Evaluate(ctx, d)
	case kindMap:
		child, ok := n.derive(ctx, d)
		if !ok {
			return Unhandled, nil
		}
		return n.inner.Evaluate(ctx, child)
	case kindBranch:
		for _, child := range n.children {
			outcome, err := child.Evaluate(ctx, d)
			if outcome == Handled {
				return Handled, err
			}
		}
		return Unhandled, nil
	default:
		return Unhandled, fmt.Errorf("dispatch: unknown node kind %d", n.kind)
	}
}
