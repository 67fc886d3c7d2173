package nonce

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy pool exhausted") }

func TestGenerateDistinctAndDecodable(t *testing.T) {
	g, err := NewGenerator(16)
	require.NoError(t, err)

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		v, err := g.Generate()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(v)
		require.NoError(t, err)
		require.Len(t, raw, 16)
		require.False(t, strings.ContainsAny(v, "=+/"), v)

		_, dup := seen[v]
		require.False(t, dup, "duplicate nonce %q", v)
		seen[v] = struct{}{}
	}
}

func TestGenerateLengthProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("decoded nonce has the requested length", prop.ForAll(
		func(n int) bool {
			v, err := Generate(n)
			if err != nil {
				return false
			}
			raw, err := base64.RawURLEncoding.DecodeString(v)
			return err == nil && len(raw) == n
		},
		gen.IntRange(MinLength, MaxLength),
	))

	properties.TestingRun(t)
}

func TestGeneratorRejectsBadLength(t *testing.T) {
	for _, n := range []int{0, 8, 15, 65} {
		_, err := NewGenerator(n)
		assert.ErrorIs(t, err, ErrInvalidLength, n)
	}
}

func TestGenerateSurfacesRandomnessFailure(t *testing.T) {
	g, err := NewGeneratorWithReader(DefaultLength, failingReader{})
	require.NoError(t, err)

	v, err := g.Generate()
	assert.Empty(t, v)
	assert.ErrorIs(t, err, ErrRandomness)
	assert.Contains(t, err.Error(), "entropy pool exhausted")
}

func TestGenerateShortReadIsFailure(t *testing.T) {
	g, err := NewGeneratorWithReader(DefaultLength, strings.NewReader("short"))
	require.NoError(t, err)

	_, err = g.Generate()
	assert.ErrorIs(t, err, ErrRandomness)
}
