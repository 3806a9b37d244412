package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// run is structured to take explicit arguments rather than reading flags
// directly, so unlike the teacher's cmd/server (which calls log.Fatalf
// from main and isn't testable), the demo sequence can run end to end
// here against the in-memory store.
func TestRunDemoSequenceAgainstMockStore(t *testing.T) {
	err := run("", "")
	assert.NoError(t, err)
}
