package entity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"empty transcription", &EmptyTranscriptionError{}, "No transcription was returned from the backend."},
		{"transcribe backend", &BackendError{Stage: StageTranscribe, Status: 415}, "Failed to transcribe. Please check your audio file format."},
		{"summarize backend", &BackendError{Stage: StageSummarize, Status: 500}, "Failed to summarize."},
		{"action items backend", &BackendError{Stage: StageActionItems, Status: 502}, "Failed to extract action items."},
		{"wrapped", fmt.Errorf("run: %w", &BackendError{Stage: StageSummarize, Status: 500}), "Failed to summarize."},
		{"unknown", errors.New("boom"), "Something went wrong: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "network", ErrorKind(&NetworkError{Stage: StageTranscribe, Err: context.DeadlineExceeded}))
	assert.Equal(t, "backend", ErrorKind(&BackendError{Stage: StageSummarize}))
	assert.Equal(t, "empty_transcription", ErrorKind(&EmptyTranscriptionError{}))
	assert.Equal(t, "malformed_response", ErrorKind(&MalformedResponseError{Stage: StageActionItems}))
	assert.Equal(t, "configuration", ErrorKind(&ConfigurationError{Field: "API_BASE"}))
	assert.Equal(t, "unknown", ErrorKind(errors.New("x")))
}

func TestNetworkError_Unwrap(t *testing.T) {
	err := &NetworkError{Stage: StageTranscribe, Err: context.DeadlineExceeded}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAudioInput_Format(t *testing.T) {
	assert.Equal(t, "wav", AudioInput{Filename: "standup.WAV"}.Format())
	assert.Equal(t, "", AudioInput{Filename: "noext"}.Format())
}

func TestRunOutcome_Failure(t *testing.T) {
	o := RunOutcome{Failures: []StageFailure{{Stage: StageSummarize, Reason: "x"}}}

	f, ok := o.Failure(StageSummarize)
	assert.True(t, ok)
	assert.Equal(t, "x", f.Reason)

	_, ok = o.Failure(StageActionItems)
	assert.False(t, ok)
}
