package telegram

import (
	tele "gopkg.in/telebot.v4"
)

// ChatKey derives the dialogue key from an update. Chat-bound updates key on
// the chat ID, user-bound ones (inline queries, checkout) on the sender ID.
// Updates with neither (poll state changes) are dispatched without state.
func ChatKey(u tele.Update) (int64, bool) {
	switch {
	case u.Message != nil && u.Message.Chat != nil:
		return u.Message.Chat.ID, true
	case u.EditedMessage != nil && u.EditedMessage.Chat != nil:
		return u.EditedMessage.Chat.ID, true
	case u.ChannelPost != nil && u.ChannelPost.Chat != nil:
		return u.ChannelPost.Chat.ID, true
	case u.EditedChannelPost != nil && u.EditedChannelPost.Chat != nil:
		return u.EditedChannelPost.Chat.ID, true
	case u.Callback != nil:
		if u.Callback.Message != nil && u.Callback.Message.Chat != nil {
			return u.Callback.Message.Chat.ID, true
		}
		if u.Callback.Sender != nil {
			return u.Callback.Sender.ID, true
		}
	case u.Query != nil && u.Query.Sender != nil:
		return u.Query.Sender.ID, true
	case u.InlineResult != nil && u.InlineResult.Sender != nil:
		return u.InlineResult.Sender.ID, true
	case u.ShippingQuery != nil && u.ShippingQuery.Sender != nil:
		return u.ShippingQuery.Sender.ID, true
	case u.PreCheckoutQuery != nil && u.PreCheckoutQuery.Sender != nil:
		return u.PreCheckoutQuery.Sender.ID, true
	case u.MyChatMember != nil && u.MyChatMember.Chat != nil:
		return u.MyChatMember.Chat.ID, true
	case u.ChatMember != nil && u.ChatMember.Chat != nil:
		return u.ChatMember.Chat.ID, true
	case u.ChatJoinRequest != nil && u.ChatJoinRequest.Chat != nil:
		return u.ChatJoinRequest.Chat.ID, true
	}
	return 0, false
}
