package tgroute

import (
	"strings"

	"github.com/go-telegram/bot/models"
)

// Field names an optional part of a message payload that handlers can match on.
//
// The declaration order is also the order in which OR-group handlers are
// visited when several registered fields are present on one message.
type Field uint8

const (
	FieldText Field = iota + 1
	FieldCaption
	FieldEntities
	FieldPhoto
	FieldDocument
	FieldAudio
	FieldVideo
	FieldVoice
	FieldVideoNote
	FieldAnimation
	FieldSticker
	FieldLocation
	FieldVenue
	FieldContact
	FieldPoll
	FieldDice
	FieldGame
	FieldInvoice
	FieldSuccessfulPayment
	FieldNewChatMembers
	FieldLeftChatMember
	FieldNewChatTitle
	FieldNewChatPhoto
	FieldReplyToMessage

	fieldCount = iota
)

var fieldNames = [...]string{
	FieldText:              "text",
	FieldCaption:           "caption",
	FieldEntities:          "entities",
	FieldPhoto:             "photo",
	FieldDocument:          "document",
	FieldAudio:             "audio",
	FieldVideo:             "video",
	FieldVoice:             "voice",
	FieldVideoNote:         "video_note",
	FieldAnimation:         "animation",
	FieldSticker:           "sticker",
	FieldLocation:          "location",
	FieldVenue:             "venue",
	FieldContact:           "contact",
	FieldPoll:              "poll",
	FieldDice:              "dice",
	FieldGame:              "game",
	FieldInvoice:           "invoice",
	FieldSuccessfulPayment: "successful_payment",
	FieldNewChatMembers:    "new_chat_members",
	FieldLeftChatMember:    "left_chat_member",
	FieldNewChatTitle:      "new_chat_title",
	FieldNewChatPhoto:      "new_chat_photo",
	FieldReplyToMessage:    "reply_to_message",
}

func (f Field) String() string {
	if f.valid() {
		return fieldNames[f]
	}
	return "unknown"
}

func (f Field) valid() bool {
	return f > 0 && int(f) <= fieldCount
}

// ParseField maps a wire name such as "video_note" to its Field.
func ParseField(name string) (Field, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for f := Field(1); int(f) <= fieldCount; f++ {
		if fieldNames[f] == name {
			return f, true
		}
	}
	return 0, false
}

// FieldSet is a set of message fields.
type FieldSet uint64

// NewFieldSet returns a set holding fields.
func NewFieldSet(fields ...Field) FieldSet {
	var s FieldSet
	for _, f := range fields {
		s = s.With(f)
	}
	return s
}

// With returns s with f added.
func (s FieldSet) With(f Field) FieldSet {
	if !f.valid() {
		return s
	}
	return s | 1<<f
}

// Has reports whether f is in the set.
func (s FieldSet) Has(f Field) bool {
	return f.valid() && s&(1<<f) != 0
}

// Contains reports whether every field of other is also in s.
func (s FieldSet) Contains(other FieldSet) bool {
	return s&other == other
}

// Empty reports whether the set has no fields.
func (s FieldSet) Empty() bool { return s == 0 }

// Fields returns the members in declaration order.
func (s FieldSet) Fields() []Field {
	var out []Field
	for f := Field(1); int(f) <= fieldCount; f++ {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

func (s FieldSet) String() string {
	fields := s.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.String()
	}
	return "{" + strings.Join(names, ",") + "}"
}

// FieldsOf returns the set of populated optional fields on m.
func FieldsOf(m *models.Message) FieldSet {
	if m == nil {
		return 0
	}
	var s FieldSet
	add := func(f Field, present bool) {
		if present {
			s = s.With(f)
		}
	}
	add(FieldText, m.Text != "")
	add(FieldCaption, m.Caption != "")
	add(FieldEntities, len(m.Entities) > 0)
	add(FieldPhoto, len(m.Photo) > 0)
	add(FieldDocument, m.Document != nil)
	add(FieldAudio, m.Audio != nil)
	add(FieldVideo, m.Video != nil)
	add(FieldVoice, m.Voice != nil)
	add(FieldVideoNote, m.VideoNote != nil)
	add(FieldAnimation, m.Animation != nil)
	add(FieldSticker, m.Sticker != nil)
	add(FieldLocation, m.Location != nil)
	add(FieldVenue, m.Venue != nil)
	add(FieldContact, m.Contact != nil)
	add(FieldPoll, m.Poll != nil)
	add(FieldDice, m.Dice != nil)
	add(FieldGame, m.Game != nil)
	add(FieldInvoice, m.Invoice != nil)
	add(FieldSuccessfulPayment, m.SuccessfulPayment != nil)
	add(FieldNewChatMembers, len(m.NewChatMembers) > 0)
	add(FieldLeftChatMember, m.LeftChatMember != nil)
	add(FieldNewChatTitle, m.NewChatTitle != "")
	add(FieldNewChatPhoto, len(m.NewChatPhoto) > 0)
	add(FieldReplyToMessage, m.ReplyToMessage != nil)
	return s
}
