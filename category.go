package tgroute

import (
	"github.com/go-telegram/bot/models"
)

// Category identifies the kind of payload an update carries. Command and
// ForceReply are registration categories derived from Message updates; they
// are never returned by CategoryOf.
type Category int

const (
	Message Category = iota + 1
	EditedMessage
	ChannelPost
	EditedChannelPost
	CallbackQuery
	InlineQuery
	ChosenInlineResult
	ShippingQuery
	PreCheckoutQuery
	Poll
	PollAnswer
	Command
	ForceReply
	MyChatMember
	ChatMember
)

var categoryNames = map[Category]string{
	Message:            "message",
	EditedMessage:      "edited_message",
	ChannelPost:        "channel_post",
	EditedChannelPost:  "edited_channel_post",
	CallbackQuery:      "callback_query",
	InlineQuery:        "inline_query",
	ChosenInlineResult: "chosen_inline_result",
	ShippingQuery:      "shipping_query",
	PreCheckoutQuery:   "pre_checkout_query",
	Poll:               "poll",
	PollAnswer:         "poll_answer",
	Command:            "command",
	ForceReply:         "force_reply",
	MyChatMember:       "my_chat_member",
	ChatMember:         "chat_member",
}

// String returns the wire name of the category, e.g. "edited_message".
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// ParseCategory maps a wire name back to its Category.
func ParseCategory(name string) (Category, bool) {
	for c, n := range categoryNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}

// messageLike reports whether handlers of this category match on message fields.
func (c Category) messageLike() bool {
	switch c {
	case Message, EditedMessage, ChannelPost, EditedChannelPost:
		return true
	}
	return false
}

// singleton reports whether the category holds at most one handler.
func (c Category) singleton() bool {
	switch c {
	case InlineQuery, ChosenInlineResult, ShippingQuery, PreCheckoutQuery,
		Poll, PollAnswer, MyChatMember, ChatMember:
		return true
	}
	return false
}

// CategoryOf returns the category of the first populated payload of u.
func CategoryOf(u *models.Update) (Category, error) {
	if u == nil {
		return 0, ErrUnknownCategory
	}
	switch {
	case u.Message != nil:
		return Message, nil
	case u.EditedMessage != nil:
		return EditedMessage, nil
	case u.ChannelPost != nil:
		return ChannelPost, nil
	case u.EditedChannelPost != nil:
		return EditedChannelPost, nil
	case u.CallbackQuery != nil:
		return CallbackQuery, nil
	case u.InlineQuery != nil:
		return InlineQuery, nil
	case u.ChosenInlineResult != nil:
		return ChosenInlineResult, nil
	case u.ShippingQuery != nil:
		return ShippingQuery, nil
	case u.PreCheckoutQuery != nil:
		return PreCheckoutQuery, nil
	case u.Poll != nil:
		return Poll, nil
	case u.PollAnswer != nil:
		return PollAnswer, nil
	case u.MyChatMember != nil:
		return MyChatMember, nil
	case u.ChatMember != nil:
		return ChatMember, nil
	}
	return 0, ErrUnknownCategory
}

// messageOf returns the message payload for message-like categories.
func messageOf(u *models.Update, c Category) *models.Message {
	switch c {
	case Message:
		return u.Message
	case EditedMessage:
		return u.EditedMessage
	case ChannelPost:
		return u.ChannelPost
	case EditedChannelPost:
		return u.EditedChannelPost
	}
	return nil
}
