package consts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAllowed(t *testing.T) {
	allowed := []string{"wav", " .MP3"}

	assert.True(t, FormatAllowed("wav", allowed))
	assert.True(t, FormatAllowed("WAV", allowed))
	assert.True(t, FormatAllowed(".mp3", allowed))
	assert.False(t, FormatAllowed("flac", allowed))
	assert.False(t, FormatAllowed("", allowed))
	assert.False(t, FormatAllowed("wav", nil))
}
