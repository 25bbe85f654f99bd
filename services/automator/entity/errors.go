package entity

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned before a run starts when the upload has an extension
// the backend does not accept.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

var (
	ErrAudioTooLarge = errors.New("audio file too large")
	ErrEmptyAudio    = errors.New("audio file is empty")
)

type ConfigurationError struct {
	Field string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Msg)
}

func (e *ConfigurationError) Message() string {
	if e.Msg == MsgNotSet {
		return fmt.Sprintf("API endpoint not set. Please configure %s.", e.Field)
	}
	return fmt.Sprintf("Invalid configuration: %s %s.", e.Field, e.Msg)
}

const MsgNotSet = "not set"

type NetworkError struct {
	Stage Stage
	Err   error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network: %v", e.Stage, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Message() string {
	return fmt.Sprintf("Could not reach the backend during %s: %v", e.Stage, e.Err)
}

type BackendError struct {
	Stage  Stage
	Status int
	Body   string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: backend returned status %d", e.Stage, e.Status)
}

func (e *BackendError) Message() string {
	switch e.Stage {
	case StageTranscribe:
		return "Failed to transcribe. Please check your audio file format."
	case StageSummarize:
		return "Failed to summarize."
	case StageActionItems:
		return "Failed to extract action items."
	}
	return fmt.Sprintf("Backend error (status %d).", e.Status)
}

type EmptyTranscriptionError struct{}

func (e *EmptyTranscriptionError) Error() string {
	return "transcribe: backend returned no transcription"
}

func (e *EmptyTranscriptionError) Message() string {
	return "No transcription was returned from the backend."
}

type MalformedResponseError struct {
	Stage Stage
	Err   error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Stage, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func (e *MalformedResponseError) Message() string {
	return fmt.Sprintf("The backend sent an unexpected response during %s.", e.Stage)
}

// UserMessage returns the human-readable text for err, falling back to a generic
// "something went wrong" line that still surfaces the underlying message.
func UserMessage(err error) string {
	var m interface{ Message() string }
	if errors.As(err, &m) {
		return m.Message()
	}
	return fmt.Sprintf("Something went wrong: %v", err)
}

// ErrorKind classifies err for metrics labels.
func ErrorKind(err error) string {
	var (
		netErr   *NetworkError
		backErr  *BackendError
		emptyErr *EmptyTranscriptionError
		malErr   *MalformedResponseError
		cfgErr   *ConfigurationError
	)
	switch {
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &backErr):
		return "backend"
	case errors.As(err, &emptyErr):
		return "empty_transcription"
	case errors.As(err, &malErr):
		return "malformed_response"
	case errors.As(err, &cfgErr):
		return "configuration"
	}
	return "unknown"
}
