package privilege

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault_Evaluate(t *testing.T) {
	assert.True(t, Default.Evaluate(Owner, Read))
	assert.True(t, Default.Evaluate(Owner, Write))
	assert.True(t, Default.Evaluate(Other, Read))
	assert.False(t, Default.Evaluate(Other, Write))
}

func TestWith_Flips(t *testing.T) {
	assert.Equal(t, Mode(0b1001), Default.With(Owner, Read, false))
	assert.Equal(t, Mode(0b1111), Default.With(Other, Write, true))

	m := Default.With(Owner, Read, false).With(Other, Write, true)
	assert.Equal(t, Mode(0b1101), m)
	assert.False(t, m.Evaluate(Owner, Read))
	assert.True(t, m.Evaluate(Other, Write))
}

func TestWith_Idempotent(t *testing.T) {
	assert.Equal(t, Default, Default.With(Owner, Write, true))
	assert.Equal(t, Default, Default.With(Other, Write, false))
}

func TestFromStored(t *testing.T) {
	assert.Equal(t, Default, FromStored(nil))

	v := 0b0010
	m := FromStored(&v)
	assert.True(t, m.Evaluate(Owner, Read))
	assert.False(t, m.Evaluate(Owner, Write))
	assert.False(t, m.Evaluate(Other, Read))

	wide := 0b110010
	assert.Equal(t, Mode(0b0010), FromStored(&wide))
}

func TestEvaluate_AllCombinations(t *testing.T) {
	for v := 0; v < 16; v++ {
		m := Mode(v)
		assert.Equal(t, v&0b10 != 0, m.Evaluate(Owner, Read), "mode %04b", v)
		assert.Equal(t, v&0b01 != 0, m.Evaluate(Owner, Write), "mode %04b", v)
		assert.Equal(t, v&0b1000 != 0, m.Evaluate(Other, Read), "mode %04b", v)
		assert.Equal(t, v&0b0100 != 0, m.Evaluate(Other, Write), "mode %04b", v)
	}
}
