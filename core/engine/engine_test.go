package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/botkit/core/dialogue"
	"github.com/m3rciful/botkit/core/dialogue/serializer"
	"github.com/m3rciful/botkit/core/dispatch"
)

type msg struct {
	Chat int64
	Text string
}

func msgKey(m msg) (int64, bool) { return m.Chat, m.Chat != 0 }

type counter struct {
	N int
}

// incrementTree bumps the counter in dialogue state by one per event.
func incrementTree(t *testing.T) *dispatch.Node {
	t.Helper()
	return dispatch.Endpoint(func(_ context.Context, deps *dispatch.Deps) error {
		ref := dispatch.MustFrom[*dialogue.Ref[counter]](deps)
		c, _ := ref.Get()
		c.N++
		ref.Set(c)
		return nil
	})
}

func newTestEngine(t *testing.T, tree *dispatch.Node, store dialogue.Storage, opts ...func(*Options[msg, counter])) *Engine[msg, counter] {
	t.Helper()
	o := Options[msg, counter]{
		Tree:       tree,
		Storage:    store,
		Serializer: serializer.MsgPack{},
		Key:        msgKey,
		Workers:    8,
	}
	for _, fn := range opts {
		fn(&o)
	}
	eng, err := New(o)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return eng
}

func runAll(t *testing.T, eng *Engine[msg, counter], events []msg) {
	t.Helper()
	src := NewChanSource[msg](len(events))
	for _, e := range events {
		src.Push(e)
	}
	src.Close()
	if err := eng.Run(context.Background(), src); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func readCounter(t *testing.T, store dialogue.Storage, key int64) (counter, bool) {
	t.Helper()
	dlg := dialogue.New[counter](store, serializer.MsgPack{})
	c, ok, err := dlg.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get %d: %v", key, err)
	}
	return c, ok
}

func TestSameKeyNoLostUpdate(t *testing.T) {
	store := dialogue.NewInMemStorage()
	eng := newTestEngine(t, incrementTree(t), store)

	runAll(t, eng, []msg{{Chat: 7}, {Chat: 7}})

	c, ok := readCounter(t, store, 7)
	if !ok || c.N != 2 {
		t.Fatalf("counter = %+v (present=%v), want N=2", c, ok)
	}
}

func TestDistinctKeysConcurrent(t *testing.T) {
	const keys = 16
	const perKey = 10

	store := dialogue.NewInMemStorage()
	eng := newTestEngine(t, incrementTree(t), store)

	events := make([]msg, 0, keys*perKey)
	for i := 0; i < perKey; i++ {
		for k := int64(1); k <= keys; k++ {
			events = append(events, msg{Chat: k})
		}
	}
	runAll(t, eng, events)

	for k := int64(1); k <= keys; k++ {
		c, ok := readCounter(t, store, k)
		if !ok || c.N != perKey {
			t.Fatalf("key %d: counter = %+v (present=%v), want N=%d", k, c, ok, perKey)
		}
	}
}

type convState struct {
	Phase string
}

func TestDialogueScenario(t *testing.T) {
	store := dialogue.NewInMemStorage()

	var mu sync.Mutex
	var replies []string
	reply := func(s string) {
		mu.Lock()
		replies = append(replies, s)
		mu.Unlock()
	}

	command := func(name string) dispatch.Predicate {
		return func(_ context.Context, deps *dispatch.Deps) bool {
			m := dispatch.MustFrom[msg](deps)
			return m.Text == name
		}
	}
	inPhase := func(phase string) dispatch.Predicate {
		return func(_ context.Context, deps *dispatch.Deps) bool {
			ref := dispatch.MustFrom[*dialogue.Ref[convState]](deps)
			st, ok := ref.Get()
			return ok && st.Phase == phase
		}
	}

	tree := dispatch.Branch(
		dispatch.Filter(command("/start"), dispatch.Endpoint(func(_ context.Context, deps *dispatch.Deps) error {
			ref := dispatch.MustFrom[*dialogue.Ref[convState]](deps)
			ref.Set(convState{Phase: "active"})
			reply("started")
			return nil
		})),
		dispatch.Filter(command("/end"), dispatch.Endpoint(func(_ context.Context, deps *dispatch.Deps) error {
			ref := dispatch.MustFrom[*dialogue.Ref[convState]](deps)
			ref.End()
			reply("bye")
			return nil
		})),
		dispatch.Filter(inPhase("active"), dispatch.Endpoint(func(_ context.Context, deps *dispatch.Deps) error {
			m := dispatch.MustFrom[msg](deps)
			reply("echo: " + m.Text)
			return nil
		})),
	)

	eng, err := New(Options[msg, convState]{
		Tree:       tree,
		Storage:    store,
		Serializer: serializer.MsgPack{},
		Key:        msgKey,
		Workers:    1,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	run := func(events ...string) {
		t.Helper()
		src := NewChanSource[msg](len(events))
		for _, text := range events {
			src.Push(msg{Chat: 1, Text: text})
		}
		src.Close()
		if err := eng.Run(context.Background(), src); err != nil {
			t.Fatalf("run: %v", err)
		}
	}

	run("stray")
	if store.Len() != 0 {
		t.Fatal("unhandled event persisted state")
	}

	run("/start")
	if store.Len() != 1 {
		t.Fatal("state not persisted after /start")
	}

	run("hello")
	if store.Len() != 1 {
		t.Fatal("echo must leave the active state in place")
	}

	run("/end")
	if store.Len() != 0 {
		t.Fatal("state not removed after /end")
	}

	want := []string{"started", "echo: hello", "bye"}
	if len(replies) != len(want) {
		t.Fatalf("replies = %v, want %v", replies, want)
	}
	for i := range want {
		if replies[i] != want[i] {
			t.Fatalf("replies = %v, want %v", replies, want)
		}
	}
}

func TestDecodeFailureFailsOpen(t *testing.T) {
	store := dialogue.NewInMemStorage()
	// Seed a record in a format the engine does not read.
	err := store.Update(context.Background(), 5, dialogue.Record{
		Data:   []byte{0x01, 0x02},
		Format: serializer.FormatCBOR,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	var mu sync.Mutex
	var reported []*EventError
	var sawPresent bool

	tree := dispatch.Endpoint(func(_ context.Context, deps *dispatch.Deps) error {
		ref := dispatch.MustFrom[*dialogue.Ref[counter]](deps)
		_, sawPresent = ref.Get()
		ref.Set(counter{N: 1})
		return nil
	})
	eng := newTestEngine(t, tree, store, func(o *Options[msg, counter]) {
		o.OnError = func(_ context.Context, e *EventError) {
			mu.Lock()
			reported = append(reported, e)
			mu.Unlock()
		}
	})

	runAll(t, eng, []msg{{Chat: 5}})

	if len(reported) != 1 || reported[0].Kind != KindDecode {
		t.Fatalf("reported = %v, want one decode error", reported)
	}
	if sawPresent {
		t.Fatal("handler saw a present state after decode failure, want fresh")
	}
	c, ok := readCounter(t, store, 5)
	if !ok || c.N != 1 {
		t.Fatalf("counter = %+v (present=%v), want fresh state persisted", c, ok)
	}
}

func TestHandlerErrorSkipsPersist(t *testing.T) {
	store := dialogue.NewInMemStorage()
	boom := errors.New("boom")

	tree := dispatch.Endpoint(func(_ context.Context, deps *dispatch.Deps) error {
		ref := dispatch.MustFrom[*dialogue.Ref[counter]](deps)
		ref.Set(counter{N: 99})
		return boom
	})

	var mu sync.Mutex
	var reported []*EventError
	eng := newTestEngine(t, tree, store, func(o *Options[msg, counter]) {
		o.OnError = func(_ context.Context, e *EventError) {
			mu.Lock()
			reported = append(reported, e)
			mu.Unlock()
		}
	})

	runAll(t, eng, []msg{{Chat: 3}})

	if len(reported) != 1 || reported[0].Kind != KindHandler || !errors.Is(reported[0].Err, boom) {
		t.Fatalf("reported = %v, want one handler error wrapping boom", reported)
	}
	if store.Len() != 0 {
		t.Fatal("state persisted despite handler error")
	}
}

func TestPanicRecoveredLoopContinues(t *testing.T) {
	store := dialogue.NewInMemStorage()

	tree := dispatch.Endpoint(func(_ context.Context, deps *dispatch.Deps) error {
		m := dispatch.MustFrom[msg](deps)
		if m.Text == "panic" {
			panic("handler blew up")
		}
		ref := dispatch.MustFrom[*dialogue.Ref[counter]](deps)
		ref.Set(counter{N: 1})
		return nil
	})

	var mu sync.Mutex
	var reported []*EventError
	eng := newTestEngine(t, tree, store, func(o *Options[msg, counter]) {
		o.Workers = 1
		o.OnError = func(_ context.Context, e *EventError) {
			mu.Lock()
			reported = append(reported, e)
			mu.Unlock()
		}
	})

	runAll(t, eng, []msg{{Chat: 1, Text: "panic"}, {Chat: 2, Text: "ok"}})

	if len(reported) != 1 || reported[0].Kind != KindHandler {
		t.Fatalf("reported = %v, want one handler error", reported)
	}
	if !strings.Contains(reported[0].Err.Error(), "panic") {
		t.Fatalf("err = %v, want panic mention", reported[0].Err)
	}
	if _, ok := readCounter(t, store, 2); !ok {
		t.Fatal("event after panic was not processed")
	}
}

func TestUnkeyedEventDispatchedWithoutRef(t *testing.T) {
	store := dialogue.NewInMemStorage()

	var gotRef bool
	tree := dispatch.Endpoint(func(_ context.Context, deps *dispatch.Deps) error {
		_, gotRef = dispatch.From[*dialogue.Ref[counter]](deps)
		return nil
	})
	eng := newTestEngine(t, tree, store)

	runAll(t, eng, []msg{{Chat: 0, Text: "service event"}})

	if gotRef {
		t.Fatal("unkeyed event carried a dialogue ref")
	}
	if store.Len() != 0 {
		t.Fatalf("storage holds %d records, want 0", store.Len())
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := dialogue.NewInMemStorage()
	eng := newTestEngine(t, incrementTree(t), store)

	src := NewChanSource[msg](1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx, src) }()

	src.Push(msg{Chat: 9})
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

type faultySource struct {
	ch  chan msg
	err error
}

func (s *faultySource) Updates(context.Context) (<-chan msg, error) { return s.ch, nil }
func (s *faultySource) Err() error                                  { return s.err }

func TestSourceFaultSurfaces(t *testing.T) {
	store := dialogue.NewInMemStorage()
	eng := newTestEngine(t, incrementTree(t), store)

	src := &faultySource{ch: make(chan msg), err: fmt.Errorf("poller died")}
	close(src.ch)

	err := eng.Run(context.Background(), src)
	if err == nil || !strings.Contains(err.Error(), "poller died") {
		t.Fatalf("err = %v, want wrapped source fault", err)
	}
}

func TestBaseDepsVisibleToHandlers(t *testing.T) {
	type greeter struct{ prefix string }

	store := dialogue.NewInMemStorage()
	var got string
	tree := dispatch.Endpoint(func(_ context.Context, deps *dispatch.Deps) error {
		g := dispatch.MustFrom[greeter](deps)
		m := dispatch.MustFrom[msg](deps)
		got = g.prefix + m.Text
		return nil
	})
	eng := newTestEngine(t, tree, store, func(o *Options[msg, counter]) {
		o.BaseDeps = dispatch.NewDeps(greeter{prefix: "hi "})
	})

	runAll(t, eng, []msg{{Chat: 0, Text: "there"}})

	if got != "hi there" {
		t.Fatalf("got %q, want %q", got, "hi there")
	}
}
