package cond_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cond "github.com/okhani/dav/internal/domain/cond"
)

func TestParseIfUntagged(t *testing.T) {
	h, err := cond.ParseIf(`(<urn:uuid:181d4fae-7d8c-11d0-a765-00a0c91e6bf2>)`)
	require.NoError(t, err)
	require.Len(t, h.Lists, 1)
	assert.Equal(t, "", h.Lists[0].ResourceTag)
	assert.Equal(t, "urn:uuid:181d4fae-7d8c-11d0-a765-00a0c91e6bf2", h.Lists[0].Conditions[0].Token)
}

func TestParseIfTagged(t *testing.T) {
	h, err := cond.ParseIf(`<http://example.com/locked/> (<urn:uuid:abc> ["etag1"]) (Not <urn:uuid:def>)`)
	require.NoError(t, err)
	require.Len(t, h.Lists, 2)

	assert.Equal(t, "http://example.com/locked/", h.Lists[0].ResourceTag)
	require.Len(t, h.Lists[0].Conditions, 2)
	assert.Equal(t, "urn:uuid:abc", h.Lists[0].Conditions[0].Token)
	assert.Equal(t, `"etag1"`, h.Lists[0].Conditions[1].ETag)

	assert.Equal(t, "http://example.com/locked/", h.Lists[1].ResourceTag)
	assert.True(t, h.Lists[1].Conditions[0].Not)
}

func TestParseIfMalformed(t *testing.T) {
	for _, v := range []string{
		"()",
		"(",
		"<urn:uuid:abc>",
		"[etag]",
		"(<unclosed)",
		"garbage",
	} {
		_, err := cond.ParseIf(v)
		assert.ErrorIs(t, err, cond.ErrBadIfHeader, "value %q", v)
	}
}

func TestParseIfEmpty(t *testing.T) {
	h, err := cond.ParseIf("")
	require.NoError(t, err)
	assert.Nil(t, h)
	assert.True(t, h.Eval(nil), "nil header must evaluate true")
	assert.Empty(t, h.StateTokens())
}

func TestStateTokens(t *testing.T) {
	h, err := cond.ParseIf(`(<urn:uuid:one> Not <urn:uuid:neg>) (<urn:uuid:two>)`)
	require.NoError(t, err)
	assert.Equal(t, []string{"urn:uuid:one", "urn:uuid:two"}, h.StateTokens())
}

func TestEval(t *testing.T) {
	resolve := func(states map[string]cond.ResourceState) cond.Resolver {
		return func(tag string) cond.ResourceState { return states[tag] }
	}

	t.Run("token held", func(t *testing.T) {
		h, err := cond.ParseIf(`(<urn:uuid:tok>)`)
		require.NoError(t, err)
		ok := h.Eval(resolve(map[string]cond.ResourceState{
			"": {ETag: `"x"`, Tokens: []string{"urn:uuid:tok"}, Found: true},
		}))
		assert.True(t, ok)
	})

	t.Run("token missing", func(t *testing.T) {
		h, err := cond.ParseIf(`(<urn:uuid:tok>)`)
		require.NoError(t, err)
		ok := h.Eval(resolve(map[string]cond.ResourceState{
			"": {ETag: `"x"`, Found: true},
		}))
		assert.False(t, ok)
	})

	t.Run("any list suffices", func(t *testing.T) {
		h, err := cond.ParseIf(`(<urn:uuid:wrong>) (["match"])`)
		require.NoError(t, err)
		ok := h.Eval(resolve(map[string]cond.ResourceState{
			"": {ETag: `"match"`, Found: true},
		}))
		assert.True(t, ok)
	})

	t.Run("negated condition on unmapped URL", func(t *testing.T) {
		h, err := cond.ParseIf(`(Not <urn:uuid:tok>)`)
		require.NoError(t, err)
		ok := h.Eval(resolve(map[string]cond.ResourceState{
			"": {Found: false},
		}))
		assert.True(t, ok)
	})

	t.Run("unmapped URL in tagged list is false", func(t *testing.T) {
		h, err := cond.ParseIf(`</gone> (["etag"])`)
		require.NoError(t, err)
		ok := h.Eval(resolve(map[string]cond.ResourceState{
			"/gone": {Found: false},
		}))
		assert.False(t, ok)
	})

	t.Run("weak etag comparison", func(t *testing.T) {
		h, err := cond.ParseIf(`([W/"v1"])`)
		require.NoError(t, err)
		ok := h.Eval(resolve(map[string]cond.ResourceState{
			"": {ETag: `"v1"`, Found: true},
		}))
		assert.True(t, ok)
	})
}

func TestParseTimeout(t *testing.T) {
	d, inf, err := cond.ParseTimeout("Second-600")
	require.NoError(t, err)
	assert.False(t, inf)
	assert.Equal(t, 600*time.Second, d)

	_, inf, err = cond.ParseTimeout("Infinite")
	require.NoError(t, err)
	assert.True(t, inf)

	d, inf, err = cond.ParseTimeout("Infinite, Second-4100000000")
	require.NoError(t, err)
	assert.True(t, inf)
	_ = d

	d, inf, err = cond.ParseTimeout("")
	require.NoError(t, err)
	assert.False(t, inf)
	assert.Zero(t, d)

	_, _, err = cond.ParseTimeout("Second-abc")
	assert.ErrorIs(t, err, cond.ErrBadTimeout)

	_, _, err = cond.ParseTimeout("Fortnight-2")
	assert.ErrorIs(t, err, cond.ErrBadTimeout)
}

func TestFormatTimeout(t *testing.T) {
	assert.Equal(t, "Second-600", cond.FormatTimeout(600*time.Second, false))
	assert.Equal(t, "Infinite", cond.FormatTimeout(0, true))
}
