package playback

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		lo, hi   float64
		expected float64
	}{
		{name: "inside", value: 0.4, lo: 0, hi: 1, expected: 0.4},
		{name: "above", value: 1.4, lo: 0, hi: 1, expected: 1},
		{name: "below", value: -3, lo: 0, hi: 1, expected: 0},
		{name: "inverted bounds", value: 5, lo: 1, hi: 0, expected: 1},
		{name: "inverted bounds below", value: -5, lo: 10, hi: 0, expected: 0},
		{name: "NaN", value: math.NaN(), lo: 0, hi: 120, expected: 0},
		{name: "at upper bound", value: 120, lo: 0, hi: 120, expected: 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Clamp(tt.value, tt.lo, tt.hi))
		})
	}
}

func TestClamp_Int(t *testing.T) {
	assert.Equal(t, 2, Clamp(7, 0, 2))
	assert.Equal(t, 0, Clamp(-1, 0, 2))
}

func TestClampUnit(t *testing.T) {
	assert.Equal(t, 1.0, ClampUnit(1.4))
	assert.Equal(t, 0.0, ClampUnit(-0.2))
	assert.Equal(t, 0.25, ClampUnit(0.25))
}

func TestField_String(t *testing.T) {
	assert.Equal(t, "none", FieldNone.String())
	assert.Equal(t, "queue|src", (FieldQueue | FieldSrc).String())
	assert.True(t, FieldAll.Has(FieldError))
	assert.False(t, FieldVolume.Has(FieldSrc))
}
