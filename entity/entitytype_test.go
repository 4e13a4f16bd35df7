package entity_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity"
)

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]entity.Direction{
		"N": entity.North, "south": entity.South, " e ": entity.East, "West": entity.West,
	} {
		got, err := entity.ParseDirection(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := entity.ParseDirection("up")
	assert.ErrorIs(t, err, entity.ErrUnknownDirection)
}

func TestOppositeAndConflicts(t *testing.T) {
	for _, d := range entity.Directions {
		assert.Equal(t, d, d.Opposite().Opposite())
		assert.NotEqual(t, d, d.Opposite())
	}
	for _, pair := range entity.ConflictingPairs {
		// 冲突对一定来自不同轴线
		assert.NotEqual(t, pair[0].Opposite(), pair[1])
	}
}

func TestDirectionJSON(t *testing.T) {
	data, err := json.Marshal(map[string]entity.Direction{"d": entity.East})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"E"}`, string(data))

	var d entity.Direction
	require.NoError(t, json.Unmarshal([]byte(`"W"`), &d))
	assert.Equal(t, entity.West, d)
}
