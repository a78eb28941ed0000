package webhook_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/tgroute"
	"github.com/bjaus/tgroute/webhook"
)

func TestRegistry(t *testing.T) {
	reg := webhook.NewRegistry()
	r1, r2 := tgroute.New(), tgroute.New()

	replaced, err := reg.Add("b:1", nil, r1)
	require.NoError(t, err)
	assert.False(t, replaced)

	replaced, err = reg.Add("b:1", nil, r2)
	require.NoError(t, err)
	assert.True(t, replaced)

	_, err = reg.Add("a:2", nil, r1)
	require.NoError(t, err)

	e, ok := reg.Lookup("b:1")
	require.True(t, ok)
	assert.Same(t, r2, e.Router)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"a:2", "b:1"}, reg.Tokens())

	assert.True(t, reg.Remove("b:1"))
	assert.False(t, reg.Remove("b:1"))
	_, ok = reg.Lookup("b:1")
	assert.False(t, ok)
}

func TestRegistryRejectsBadEntries(t *testing.T) {
	reg := webhook.NewRegistry()

	_, err := reg.Add("", nil, tgroute.New())
	assert.ErrorIs(t, err, webhook.ErrEmptyToken)

	_, err = reg.Add("t", nil, nil)
	assert.ErrorIs(t, err, webhook.ErrNilRouter)
}
