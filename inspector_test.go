package tgroute

import (
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/suite"
)

type InspectSuite struct {
	suite.Suite
}

func TestInspectSuite(t *testing.T) {
	suite.Run(t, new(InspectSuite))
}

func (s *InspectSuite) TestResolvesCategory() {
	tests := map[string]Category{
		`{"update_id":1,"message":{"text":"hi"}}`:                Message,
		`{"update_id":1,"edited_channel_post":{"text":"x"}}`:     EditedChannelPost,
		`{"callback_query":{"id":"1","data":"x"},"update_id":2}`: CallbackQuery,
		`{"update_id":1,"poll_answer":{"poll_id":"p"}}`:          PollAnswer,
	}
	for raw, want := range tests {
		env, err := Inspect([]byte(raw))
		s.Require().NoError(err, raw)
		s.Assert().Equal(want, env.Category(), raw)
	}
}

func (s *InspectSuite) TestReturnsErrorForInvalidJSON() {
	_, err := Inspect([]byte(`{not valid}`))
	s.Assert().ErrorIs(err, ErrInvalidJSON)

	_, err = Inspect([]byte(`[1,2]`))
	s.Assert().ErrorIs(err, ErrInvalidJSON)

	_, err = Inspect(nil)
	s.Assert().ErrorIs(err, ErrInvalidJSON)
}

func (s *InspectSuite) TestUnknownCategory() {
	_, err := Inspect([]byte(`{"update_id":1,"business_message":{}}`))
	s.Assert().ErrorIs(err, ErrUnknownCategory)

	_, err = Inspect([]byte(`{"update_id":1}`))
	s.Assert().ErrorIs(err, ErrUnknownCategory)

	_, err = Inspect([]byte(`{"update_id":1,"command":{}}`))
	s.Assert().ErrorIs(err, ErrUnknownCategory, "registration-only categories are not payload keys")
}

func (s *InspectSuite) TestAccessors() {
	raw := []byte(`{"update_id":991,"message":{"text":"hi","from":{"id":42},"photo":[{"file_id":"a"}]}}`)
	env, err := Inspect(raw)
	s.Require().NoError(err)

	s.Assert().EqualValues(991, env.UpdateID())
	id, ok := env.SenderID()
	s.Assert().True(ok)
	s.Assert().EqualValues(42, id)
	s.Assert().True(env.Has("message.photo"))
	s.Assert().False(env.Has("message.video"))

	text, ok := env.GetString("message.text")
	s.Assert().True(ok)
	s.Assert().Equal("hi", text)
	_, ok = env.GetString("message.from.id")
	s.Assert().False(ok, "numbers are not strings")
	s.Assert().Equal(raw, env.Raw())
}

func (s *InspectSuite) TestPollAnswerSender() {
	env, err := Inspect([]byte(`{"update_id":1,"poll_answer":{"poll_id":"p","user":{"id":5}}}`))
	s.Require().NoError(err)

	id, ok := env.SenderID()
	s.Assert().True(ok)
	s.Assert().EqualValues(5, id)
}

type CategorySuite struct {
	suite.Suite
}

func TestCategorySuite(t *testing.T) {
	suite.Run(t, new(CategorySuite))
}

func (s *CategorySuite) TestCategoryOfFirstPopulatedPayload() {
	c, err := CategoryOf(&models.Update{
		CallbackQuery: &models.CallbackQuery{ID: "q"},
		InlineQuery:   &models.InlineQuery{ID: "i"},
	})
	s.Require().NoError(err)
	s.Assert().Equal(CallbackQuery, c)

	c, err = CategoryOf(&models.Update{ChatMember: &models.ChatMemberUpdated{}})
	s.Require().NoError(err)
	s.Assert().Equal(ChatMember, c)
}

func (s *CategorySuite) TestParseCategoryRoundTrip() {
	for c := range categoryNames {
		parsed, ok := ParseCategory(c.String())
		s.Assert().True(ok)
		s.Assert().Equal(c, parsed)
	}
	_, ok := ParseCategory("nope")
	s.Assert().False(ok)
	s.Assert().Equal("unknown", Category(0).String())
}

func (s *CategorySuite) TestRequestMessage() {
	u := &models.Update{Message: &models.Message{Text: "hi"}}

	for _, c := range []Category{Message, Command, ForceReply} {
		req := &Request{Update: u, Category: c}
		s.Require().NotNil(req.Message(), c.String())
		s.Assert().Equal("hi", req.Message().Text)
	}
	s.Assert().Nil((&Request{Update: u, Category: InlineQuery}).Message())
}
