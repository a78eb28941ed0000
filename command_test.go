package tgroute

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text     string
		ok       bool
		token    string
		username string
		args     []string
	}{
		{text: "/start", ok: true, token: "/start", args: []string{}},
		{text: "/Start@MyBot", ok: true, token: "/start", username: "MyBot", args: []string{}},
		{text: "/echo  hello   world", ok: true, token: "/echo", args: []string{"hello", "world"}},
		{text: "/", ok: false},
		{text: "/ start", ok: false},
		{text: "hello /start", ok: false},
		{text: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd, ok := parseCommand(tt.text)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.token, cmd.token)
			assert.Equal(t, tt.username, cmd.username)
			assert.Equal(t, tt.args, cmd.args)
		})
	}
}

func TestParsedCommand_AddressedTo(t *testing.T) {
	cmd, _ := parseCommand("/start@MyBot")

	assert.True(t, cmd.addressedTo("mybot"))
	assert.True(t, cmd.addressedTo("@MYBOT"))
	assert.True(t, cmd.addressedTo(""))
	assert.False(t, cmd.addressedTo("otherbot"))

	plain, _ := parseCommand("/start")
	assert.True(t, plain.addressedTo("otherbot"))
}

func TestNormalizeCommand(t *testing.T) {
	assert.Equal(t, "/start", normalizeCommand("start"))
	assert.Equal(t, "/start", normalizeCommand(" /START "))
	assert.Equal(t, AnyCommand, normalizeCommand(AnyCommand))
	assert.Equal(t, "/", normalizeCommand(""))
}
