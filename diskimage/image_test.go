package diskimage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeNameUppercasesAndTruncates(t *testing.T) {
	assert.Equal(t, "MYTAPE", sanitizeName("my tape"))
	assert.Equal(t, "REALLYLO", sanitizeName("really-long-name"))
}

func TestSanitizeNameEmptyFallsBackToTrack(t *testing.T) {
	assert.Equal(t, "TRACK", sanitizeName("---"))
}

func TestSanitizeNameKeepsDigits(t *testing.T) {
	assert.Equal(t, "TRACK01", sanitizeName("track01"))
}
