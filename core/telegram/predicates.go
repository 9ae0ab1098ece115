package telegram

import (
	"context"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/botkit/core/dispatch"
)

// Command matches a message whose text is the given slash command, with or
// without a @botname suffix. The name is passed with the slash ("/start").
func Command(name string) dispatch.Predicate {
	return func(_ context.Context, deps *dispatch.Deps) bool {
		u, ok := dispatch.From[tele.Update](deps)
		if !ok || u.Message == nil {
			return false
		}
		text := strings.TrimSpace(u.Message.Text)
		if !strings.HasPrefix(text, "/") {
			return false
		}
		cmd := strings.Fields(text)[0]
		if at := strings.IndexByte(cmd, '@'); at >= 0 {
			cmd = cmd[:at]
		}
		return cmd == name
	}
}

// OnText matches a message carrying plain text that is not a command.
func OnText() dispatch.Predicate {
	return func(_ context.Context, deps *dispatch.Deps) bool {
		u, ok := dispatch.From[tele.Update](deps)
		if !ok || u.Message == nil {
			return false
		}
		text := strings.TrimSpace(u.Message.Text)
		return text != "" && !strings.HasPrefix(text, "/")
	}
}

// TextMatch matches a message whose text satisfies fn.
func TextMatch(fn func(string) bool) dispatch.Predicate {
	return func(_ context.Context, deps *dispatch.Deps) bool {
		u, ok := dispatch.From[tele.Update](deps)
		if !ok || u.Message == nil {
			return false
		}
		return fn(u.Message.Text)
	}
}

// CallbackData matches a callback whose unique key equals the given value.
func CallbackData(unique string) dispatch.Predicate {
	return func(_ context.Context, deps *dispatch.Deps) bool {
		u, ok := dispatch.From[tele.Update](deps)
		if !ok || u.Callback == nil {
			return false
		}
		got, _ := parseCallbackData(u.Callback)
		return got == unique
	}
}

// Message derives the message for Map nodes, so inner handlers can pull
// *tele.Message from deps directly.
func Message() func(context.Context, *dispatch.Deps) (*tele.Message, bool) {
	return func(_ context.Context, deps *dispatch.Deps) (*tele.Message, bool) {
		u, ok := dispatch.From[tele.Update](deps)
		if !ok || u.Message == nil {
			return nil, false
		}
		return u.Message, true
	}
}

// Callback derives the callback for Map nodes.
func Callback() func(context.Context, *dispatch.Deps) (*tele.Callback, bool) {
	return func(_ context.Context, deps *dispatch.Deps) (*tele.Callback, bool) {
		u, ok := dispatch.From[tele.Update](deps)
		if !ok || u.Callback == nil {
			return nil, false
		}
		return u.Callback, true
	}
}

// parseCallbackData parses telebot's \f<unique>|<payload> encoding and
// returns the unique key and payload.
func parseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	parts := strings.SplitN(raw, "|", 2)
	unique := strings.TrimSpace(parts[0])
	payload := ""
	if len(parts) == 2 {
		payload = parts[1]
	}
	return unique, payload
}

// CallbackPayload returns the payload portion of a callback's data.
func CallbackPayload(cb *tele.Callback) string {
	_, payload := parseCallbackData(cb)
	return payload
}
