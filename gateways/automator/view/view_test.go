package view

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xilidan/automator/services/automator/entity"
)

func strPtr(s string) *string { return &s }

func sampleOutcome() entity.RunOutcome {
	return entity.RunOutcome{
		Kind:       entity.OutcomeSuccess,
		Transcript: "Alice will send the report by Friday.",
		Summary:    strPtr("Report by Friday."),
		ActionItems: []entity.ActionItem{
			{Task: "Send report", Owner: "Alice", DueDate: "Friday"},
			{Task: "Review budget"},
		},
	}
}

func TestFromOutcome_NumberedItems(t *testing.T) {
	d := FromOutcome(sampleOutcome())

	require.Len(t, d.ActionItems, 2)
	assert.Equal(t, 1, d.ActionItems[0].Number)
	assert.Equal(t, "Send report", d.ActionItems[0].Task)
	assert.Equal(t, []string{"Owner: Alice", "Due: Friday"}, d.ActionItems[0].Lines())

	assert.Equal(t, 2, d.ActionItems[1].Number)
	assert.Equal(t, "Review budget", d.ActionItems[1].Task)
	assert.Empty(t, d.ActionItems[1].Lines())
}

func TestText_OmitsAbsentFields(t *testing.T) {
	out := Text(FromOutcome(sampleOutcome()))

	assert.Contains(t, out, "1. Send report\n   Owner: Alice\n   Due: Friday\n2. Review budget\n")
	assert.Equal(t, 1, strings.Count(out, "Owner:"))
	assert.Equal(t, 1, strings.Count(out, "Due:"))
}

func TestMarkdown_PartialFailure(t *testing.T) {
	o := entity.RunOutcome{
		Kind:        entity.OutcomePartialFailure,
		Transcript:  "t",
		ActionItems: []entity.ActionItem{{Task: "Review budget"}},
		Failures: []entity.StageFailure{
			{Stage: entity.StageSummarize, Reason: "status 500", Message: "Failed to summarize."},
		},
	}

	out := Markdown(FromOutcome(o))
	assert.Contains(t, out, "## Summary\n\n**Error:** Failed to summarize.\n")
	assert.Contains(t, out, "1. Review budget\n")
}

func TestText_TotalFailure(t *testing.T) {
	o := entity.RunOutcome{Kind: entity.OutcomeTotalFailure, Reason: "No transcription was returned from the backend."}

	assert.Equal(t, "Error: No transcription was returned from the backend.\n", Text(FromOutcome(o)))
}

func TestText_NoActionItems(t *testing.T) {
	o := sampleOutcome()
	o.ActionItems = nil

	assert.Contains(t, Text(FromOutcome(o)), "Action items:\nNo action items.\n")
}

func TestText_Verbatim(t *testing.T) {
	o := sampleOutcome()
	o.Summary = strPtr(`<b>bold</b> & "quoted"`)

	assert.Contains(t, Text(FromOutcome(o)), `<b>bold</b> & "quoted"`)
}

func TestRenderResult(t *testing.T) {
	o := sampleOutcome()
	o.Summary = strPtr("<script>x</script>")

	var buf bytes.Buffer
	require.NoError(t, RenderResult(&buf, FromOutcome(o)))
	html := buf.String()

	assert.Contains(t, html, "Send report")
	assert.Contains(t, html, "Owner: Alice")
	assert.Contains(t, html, "Due: Friday")
	assert.Equal(t, 1, strings.Count(html, "Owner:"))
	assert.Contains(t, html, "&lt;script&gt;x&lt;/script&gt;")
	assert.NotContains(t, html, "<script>x</script>")
}

func TestRenderUpload(t *testing.T) {
	run := &entity.Run{Stages: map[entity.Stage]entity.StageState{
		entity.StageTranscribe:  entity.StateRunning,
		entity.StageSummarize:   entity.StateIdle,
		entity.StageActionItems: entity.StateIdle,
	}}

	var buf bytes.Buffer
	require.NoError(t, RenderUpload(&buf, NewUploadPage([]string{"wav", "MP3"}, run)))
	html := buf.String()

	assert.Contains(t, html, `accept=".wav,.mp3"`)
	assert.Contains(t, html, `type="submit" disabled>`)
	assert.Contains(t, html, "Transcription: <b>running</b>")
}
