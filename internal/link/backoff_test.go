// internal/link/backoff_test.go
package link

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultBackoff_Sequence(t *testing.T) {
	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for n, d := range want {
		assert.Equal(t, d, DefaultBackoff.Delay(n), "n=%d", n)
	}
}

func TestBackoff_NegativeAndLarge(t *testing.T) {
	b := Backoff{Base: 100 * time.Millisecond, Max: time.Second}
	assert.Equal(t, 100*time.Millisecond, b.Delay(-3))
	assert.Equal(t, time.Second, b.Delay(1000))
}
