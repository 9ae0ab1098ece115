package telegram

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/botkit/core/config"
	"github.com/m3rciful/botkit/core/dispatch"
)

func textUpdate(chatID int64, text string) tele.Update {
	return tele.Update{Message: &tele.Message{
		Chat: &tele.Chat{ID: chatID},
		Text: text,
	}}
}

func TestChatKey(t *testing.T) {
	cases := []struct {
		name  string
		u     tele.Update
		want  int64
		keyed bool
	}{
		{"message", textUpdate(42, "hi"), 42, true},
		{"edited message", tele.Update{EditedMessage: &tele.Message{Chat: &tele.Chat{ID: -100}}}, -100, true},
		{
			"callback with message",
			tele.Update{Callback: &tele.Callback{Message: &tele.Message{Chat: &tele.Chat{ID: 7}}}},
			7, true,
		},
		{
			"callback without message falls back to sender",
			tele.Update{Callback: &tele.Callback{Sender: &tele.User{ID: 99}}},
			99, true,
		},
		{
			"inline query keys on sender",
			tele.Update{Query: &tele.Query{Sender: &tele.User{ID: 5}}},
			5, true,
		},
		{"empty update", tele.Update{}, 0, false},
	}
	for _, tc := range cases {
		got, keyed := ChatKey(tc.u)
		if keyed != tc.keyed || got != tc.want {
			t.Errorf("%s: ChatKey = (%d, %v), want (%d, %v)", tc.name, got, keyed, tc.want, tc.keyed)
		}
	}
}

func TestCommandPredicate(t *testing.T) {
	pred := Command("/start")
	ctx := context.Background()

	cases := []struct {
		text string
		want bool
	}{
		{"/start", true},
		{"/start payload", true},
		{"/start@somebot", true},
		{"/started", false},
		{"hello", false},
		{"", false},
	}
	for _, tc := range cases {
		deps := dispatch.NewDeps(textUpdate(1, tc.text))
		if got := pred(ctx, deps); got != tc.want {
			t.Errorf("Command(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}

	if pred(ctx, dispatch.NewDeps()) {
		t.Error("command matched with no update in deps")
	}
}

func TestOnTextPredicate(t *testing.T) {
	pred := OnText()
	ctx := context.Background()

	if !pred(ctx, dispatch.NewDeps(textUpdate(1, "hello"))) {
		t.Error("plain text did not match")
	}
	if pred(ctx, dispatch.NewDeps(textUpdate(1, "/cmd"))) {
		t.Error("command matched as text")
	}
	if pred(ctx, dispatch.NewDeps(textUpdate(1, "  "))) {
		t.Error("blank text matched")
	}
	if pred(ctx, dispatch.NewDeps(tele.Update{Callback: &tele.Callback{}})) {
		t.Error("callback update matched as text")
	}
}

func TestCallbackDataPredicate(t *testing.T) {
	ctx := context.Background()
	pred := CallbackData("confirm")

	encoded := tele.Update{Callback: &tele.Callback{Data: "\fconfirm|order:15"}}
	if !pred(ctx, dispatch.NewDeps(encoded)) {
		t.Error("encoded callback did not match")
	}
	if CallbackPayload(encoded.Callback) != "order:15" {
		t.Errorf("payload = %q, want order:15", CallbackPayload(encoded.Callback))
	}

	withUnique := tele.Update{Callback: &tele.Callback{Unique: "confirm", Data: "order:15"}}
	if !pred(ctx, dispatch.NewDeps(withUnique)) {
		t.Error("unique callback did not match")
	}

	other := tele.Update{Callback: &tele.Callback{Data: "\fcancel|order:15"}}
	if pred(ctx, dispatch.NewDeps(other)) {
		t.Error("mismatched unique matched")
	}
}

func TestMessageMapDerive(t *testing.T) {
	ctx := context.Background()

	var got string
	tree := dispatch.Map(Message(), dispatch.Endpoint(func(_ context.Context, deps *dispatch.Deps) error {
		m := dispatch.MustFrom[*tele.Message](deps)
		got = m.Text
		return nil
	}))

	outcome, err := tree.Evaluate(ctx, dispatch.NewDeps(textUpdate(1, "payload")))
	if err != nil || outcome != dispatch.Handled {
		t.Fatalf("evaluate = (%v, %v)", outcome, err)
	}
	if got != "payload" {
		t.Fatalf("got %q", got)
	}

	outcome, err = tree.Evaluate(ctx, dispatch.NewDeps(tele.Update{}))
	if err != nil || outcome != dispatch.Unhandled {
		t.Fatalf("messageless update = (%v, %v), want unhandled", outcome, err)
	}
}

func TestBuildPoller(t *testing.T) {
	p := BuildPoller(
		config.TelegramConfig{RunMode: config.RunModeLongpoll, LongPollTimeoutSeconds: 30},
		config.WebhookConfig{},
	)
	lp, ok := p.(*tele.LongPoller)
	if !ok {
		t.Fatalf("poller type = %T, want *tele.LongPoller", p)
	}
	if lp.Timeout.Seconds() != 30 {
		t.Fatalf("timeout = %v, want 30s", lp.Timeout)
	}

	p = BuildPoller(config.TelegramConfig{RunMode: config.RunModeLongpoll}, config.WebhookConfig{})
	if lp, ok := p.(*tele.LongPoller); !ok || lp.Timeout != defaultLongPollTimeout {
		t.Fatalf("poller = %T (%v), want long poller with default timeout", p, p)
	}

	p = BuildPoller(
		config.TelegramConfig{RunMode: config.RunModeWebhook},
		config.WebhookConfig{Listen: "0.0.0.0", Port: 8443, URL: "https://bot.example.com/hook"},
	)
	wh, ok := p.(*tele.Webhook)
	if !ok {
		t.Fatalf("poller type = %T, want *tele.Webhook", p)
	}
	if wh.Listen != "0.0.0.0:8443" {
		t.Fatalf("listen = %q", wh.Listen)
	}
	if wh.Endpoint.PublicURL != "https://bot.example.com/hook" {
		t.Fatalf("public url = %q", wh.Endpoint.PublicURL)
	}
}

// fakeTransport fails with errs in order, then serves responses.
type fakeTransport struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (f *fakeTransport) RoundTrip(*http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func TestRetryTransportRetriesTransientErrors(t *testing.T) {
	dial := &net.OpError{Op: "dial", Err: errors.New("refused")}
	ft := &fakeTransport{errs: []error{dial, dial}}
	rt := &retryTransport{base: ft, maxRetries: 3, backoff: time.Millisecond}

	req, err := http.NewRequest(http.MethodGet, "https://api.example.com/botX/getMe", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("roundtrip: %v", err)
	}
	defer resp.Body.Close()

	if ft.calls != 3 {
		t.Fatalf("calls = %d, want 3", ft.calls)
	}
}

func TestRetryTransportStopsOnFinalError(t *testing.T) {
	final := errors.New("certificate rejected")
	ft := &fakeTransport{errs: []error{final, final, final, final}}
	rt := &retryTransport{base: ft, maxRetries: 3, backoff: time.Millisecond}

	req, err := http.NewRequest(http.MethodGet, "https://api.example.com/botX/getMe", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if _, err := rt.RoundTrip(req); !errors.Is(err, final) {
		t.Fatalf("err = %v, want final error", err)
	}
	if ft.calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry for application errors)", ft.calls)
	}
}

func TestBuildHTTPClientConfigOverrides(t *testing.T) {
	c := BuildHTTPClient(config.ClientConfig{HTTPTimeoutSeconds: 7, HTTPRetryAttempts: 1, HTTPRetryBackoffMS: 50})
	if c.Timeout != 7*time.Second {
		t.Fatalf("timeout = %v, want 7s", c.Timeout)
	}
	rt, ok := c.Transport.(*retryTransport)
	if !ok {
		t.Fatalf("transport type = %T, want *retryTransport", c.Transport)
	}
	if rt.maxRetries != 1 || rt.backoff != 50*time.Millisecond {
		t.Fatalf("retries = %d backoff = %v", rt.maxRetries, rt.backoff)
	}

	c = BuildHTTPClient(config.ClientConfig{})
	if c.Timeout != 30*time.Second {
		t.Fatalf("default timeout = %v, want 30s", c.Timeout)
	}
}
