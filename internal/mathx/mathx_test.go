package mathx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-4, 0, 100))
	assert.Equal(t, 100, Clamp(140, 0, 100))
	assert.Equal(t, 0.5, Clamp(0.5, 0.1, 10))
	assert.Equal(t, "b", Clamp("a", "b", "c"))
}

func TestLerp(t *testing.T) {
	assert.Equal(t, 1.0, Lerp(1, 0.5, 0))
	assert.Equal(t, 0.5, Lerp(1, 0.5, 1))
	assert.InDelta(t, 0.75, Lerp(1, 0.5, 0.5), 1e-9)
}

func TestAbsAndSum(t *testing.T) {
	assert.Equal(t, 3, Abs(-3))
	assert.Equal(t, 2.5, Abs(2.5))
	assert.Equal(t, 6.0, Sum([]float64{1, 2, 3}))
	assert.Equal(t, 0, Sum[int](nil))
}
