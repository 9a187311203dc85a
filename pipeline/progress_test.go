package pipeline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTracker(&buf, "extraction", 5)

	p.Increment(3)
	assert.Zero(t, p.Current(), "increments before Start are ignored")
	assert.Empty(t, buf.String())

	p.Start(10)
	p.Increment(3)
	assert.Equal(t, 3, p.Current())
	assert.Empty(t, buf.String(), "no report below the interval")

	p.Increment(3)
	assert.Contains(t, buf.String(), "extraction: 6/10 (60.0%)")

	p.Increment(100)
	assert.Equal(t, 10, p.Current(), "progress is capped at the total")

	p.Finish()
	assert.Contains(t, buf.String(), "extraction: 10/10 (100.0%)")
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n")))
}

func TestProgressTracker_NilWriter(t *testing.T) {
	p := NewProgressTracker(nil, "embedding", 0)
	p.Start(2)
	p.Increment(2)
	p.Finish()
	assert.Equal(t, 2, p.Current())
}
