package dispatch

import "testing"

type fakeCaller struct{ name string }

func (f *fakeCaller) Call() string { return f.name }

type caller interface{ Call() string }

func TestDepsLookup(t *testing.T) {
	d := NewDeps("event", int64(42))

	s, ok := From[string](d)
	if !ok || s != "event" {
		t.Fatalf("From[string] = %q, %v", s, ok)
	}
	n, ok := From[int64](d)
	if !ok || n != 42 {
		t.Fatalf("From[int64] = %d, %v", n, ok)
	}
	if _, ok := From[float64](d); ok {
		t.Fatal("From[float64] found a value that was never inserted")
	}
}

func TestDepsShadowing(t *testing.T) {
	parent := NewDeps("old")
	child := With(parent, "new")

	s, _ := From[string](child)
	if s != "new" {
		t.Fatalf("child sees %q, want new", s)
	}
	s, _ = From[string](parent)
	if s != "old" {
		t.Fatalf("parent sees %q, want old; child insertion leaked", s)
	}
}

func TestDepsInterfaceLookup(t *testing.T) {
	d := NewDeps(&fakeCaller{name: "raw"})

	c, ok := From[caller](d)
	if !ok {
		t.Fatal("interface lookup failed for concrete value")
	}
	if c.Call() != "raw" {
		t.Fatalf("Call() = %q", c.Call())
	}
}

func TestMustFromPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("MustFrom did not panic on missing dependency")
		}
	}()
	MustFrom[string](NewDeps())
}
