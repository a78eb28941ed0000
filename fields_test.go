package tgroute

import (
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/suite"
)

type FieldSetSuite struct {
	suite.Suite
}

func TestFieldSetSuite(t *testing.T) {
	suite.Run(t, new(FieldSetSuite))
}

func (s *FieldSetSuite) TestFieldsFollowDeclarationOrder() {
	set := NewFieldSet(FieldReplyToMessage, FieldPhoto, FieldText)

	s.Assert().Equal([]Field{FieldText, FieldPhoto, FieldReplyToMessage}, set.Fields())
}

func (s *FieldSetSuite) TestContains() {
	set := NewFieldSet(FieldPhoto, FieldCaption, FieldText)

	s.Assert().True(set.Contains(NewFieldSet(FieldPhoto, FieldCaption)))
	s.Assert().False(set.Contains(NewFieldSet(FieldPhoto, FieldVideo)))
	s.Assert().True(set.Contains(0))
}

func (s *FieldSetSuite) TestIgnoresInvalidFields() {
	set := NewFieldSet(Field(0), Field(200), FieldDice)

	s.Assert().Equal([]Field{FieldDice}, set.Fields())
	s.Assert().False(set.Has(Field(200)))
}

func (s *FieldSetSuite) TestString() {
	s.Assert().Equal("{text,video_note}", NewFieldSet(FieldVideoNote, FieldText).String())
	s.Assert().Equal("{}", FieldSet(0).String())
	s.Assert().True(FieldSet(0).Empty())
}

func (s *FieldSetSuite) TestParseField() {
	f, ok := ParseField(" Video_Note ")
	s.Require().True(ok)
	s.Assert().Equal(FieldVideoNote, f)

	_, ok = ParseField("hologram")
	s.Assert().False(ok)
}

func (s *FieldSetSuite) TestEveryFieldHasAName() {
	for f := Field(1); int(f) <= fieldCount; f++ {
		s.Assert().NotEqual("unknown", f.String(), "field %d", f)
		parsed, ok := ParseField(f.String())
		s.Assert().True(ok)
		s.Assert().Equal(f, parsed)
	}
}

type FieldsOfSuite struct {
	suite.Suite
}

func TestFieldsOfSuite(t *testing.T) {
	suite.Run(t, new(FieldsOfSuite))
}

func (s *FieldsOfSuite) TestNilMessage() {
	s.Assert().True(FieldsOf(nil).Empty())
}

func (s *FieldsOfSuite) TestTextMessage() {
	m := &models.Message{
		Text:     "/start now",
		Entities: []models.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
	}

	s.Assert().Equal(NewFieldSet(FieldText, FieldEntities), FieldsOf(m))
}

func (s *FieldsOfSuite) TestMediaMessage() {
	m := &models.Message{
		Caption:        "look",
		Photo:          []models.PhotoSize{{FileID: "a"}},
		ReplyToMessage: &models.Message{Text: "earlier"},
	}

	s.Assert().Equal(NewFieldSet(FieldCaption, FieldPhoto, FieldReplyToMessage), FieldsOf(m))
}

func (s *FieldsOfSuite) TestServiceMessage() {
	m := &models.Message{
		NewChatMembers: []models.User{{ID: 1}},
		NewChatTitle:   "renamed",
	}

	s.Assert().Equal(NewFieldSet(FieldNewChatMembers, FieldNewChatTitle), FieldsOf(m))
}
