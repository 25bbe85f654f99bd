package consts

import "strings"

const (
	// Audio formats
	FormatWAV  = "wav"
	FormatMP3  = "mp3"
	FormatFLAC = "flac"

	MaxAudioSize = 25 * 1024 * 1024 // 25MB

	// RecentRuns is how many finished runs the registry keeps for lookup.
	RecentRuns = 20
)

// FormatAllowed reports whether format is one of allowed, ignoring case and a
// leading dot.
func FormatAllowed(format string, allowed []string) bool {
	format = strings.TrimPrefix(strings.ToLower(format), ".")
	if format == "" {
		return false
	}
	for _, a := range allowed {
		if strings.TrimPrefix(strings.ToLower(strings.TrimSpace(a)), ".") == format {
			return true
		}
	}
	return false
}
