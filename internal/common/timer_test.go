package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNamedTimer(t *testing.T) {
	timer := NewNamedTimer("remap")
	assert.Equal(t, "remap", timer.Name())

	time.Sleep(5 * time.Millisecond)

	duration := timer.Stop()
	assert.GreaterOrEqual(t, duration, 5*time.Millisecond)
	assert.Equal(t, duration, timer.Duration())
	assert.Contains(t, timer.String(), "remap:")
}

func TestUnnamedTimer(t *testing.T) {
	timer := NewTimer()
	assert.Empty(t, timer.Name())

	duration := timer.Stop()
	assert.GreaterOrEqual(t, duration, time.Duration(0))
	assert.NotContains(t, timer.String(), ":")
}
