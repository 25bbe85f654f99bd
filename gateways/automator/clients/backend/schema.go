package backend

import (
	"bytes"
	"encoding/json"
	"fmt"

	config "github.com/xilidan/automator/config/automator"
	pkgjson "github.com/xilidan/automator/pkg/json"
	"github.com/xilidan/automator/services/automator/entity"
)

// schema describes one version of the backend wire format. Responses of every
// version are normalized into entity values before they leave this package.
type schema struct {
	name string
	// transcriptKey is the field of the /transcribe response holding the text.
	transcriptKey string
	// dueDateKey is the action-item field holding the due date.
	dueDateKey string
	// queryTransport sends the transcript as the "text" query parameter instead
	// of a JSON body. Long transcripts can exceed URL length limits this way.
	queryTransport bool
}

var (
	schemaV1 = schema{
		name:           config.SchemaV1,
		transcriptKey:  "transcribtion",
		dueDateKey:     "deadline",
		queryTransport: true,
	}
	schemaV2 = schema{
		name:          config.SchemaV2,
		transcriptKey: "transcription",
		dueDateKey:    "due_date",
	}
)

func schemaFor(name string) (schema, error) {
	switch name {
	case "", config.SchemaV2:
		return schemaV2, nil
	case config.SchemaV1:
		return schemaV1, nil
	}
	return schema{}, &entity.ConfigurationError{Field: "API_SCHEMA", Msg: "must be v1 or v2"}
}

func (s schema) transcript(body []byte) (string, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return "", &entity.MalformedResponseError{Stage: entity.StageTranscribe, Err: err}
	}

	raw, ok := fields[s.transcriptKey]
	if !ok {
		return "", &entity.EmptyTranscriptionError{}
	}
	text, err := decodeText(raw)
	if err != nil {
		return "", &entity.MalformedResponseError{Stage: entity.StageTranscribe, Err: fmt.Errorf("%s: %w", s.transcriptKey, err)}
	}
	if text == "" {
		return "", &entity.EmptyTranscriptionError{}
	}
	return text, nil
}

func (s schema) summary(body []byte) (string, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return "", &entity.MalformedResponseError{Stage: entity.StageSummarize, Err: err}
	}

	raw, ok := fields["summary"]
	if !ok || isNull(raw) {
		return "", &entity.MalformedResponseError{Stage: entity.StageSummarize, Err: fmt.Errorf("summary field missing")}
	}
	text, err := decodeText(raw)
	if err != nil {
		return "", &entity.MalformedResponseError{Stage: entity.StageSummarize, Err: fmt.Errorf("summary: %w", err)}
	}
	return text, nil
}

func (s schema) actionItems(body []byte) ([]entity.ActionItem, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return nil, &entity.MalformedResponseError{Stage: entity.StageActionItems, Err: err}
	}

	raw, ok := fields["action_items"]
	if !ok || isNull(raw) {
		return nil, &entity.MalformedResponseError{Stage: entity.StageActionItems, Err: fmt.Errorf("action_items field missing")}
	}

	var records []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, &entity.MalformedResponseError{Stage: entity.StageActionItems, Err: fmt.Errorf("action_items: %w", err)}
	}

	// records without a task are kept so backend data problems stay visible
	items := make([]entity.ActionItem, 0, len(records))
	for _, rec := range records {
		items = append(items, entity.ActionItem{
			Task:    fieldText(rec, "task"),
			Owner:   fieldText(rec, "owner"),
			DueDate: fieldText(rec, s.dueDateKey),
		})
	}
	return items, nil
}

func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := pkgjson.Decode(bytes.NewReader(body), &fields); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("decode response: expected a JSON object")
	}
	return fields, nil
}

// decodeText accepts a JSON string or null. Anything else is an error.
func decodeText(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("expected a string, got %s", raw)
	}
	return s, nil
}

// fieldText is lenient: strings are returned verbatim, null or missing is empty,
// and any other JSON value is returned as its literal text.
func fieldText(rec map[string]json.RawMessage, key string) string {
	raw, ok := rec[key]
	if !ok {
		return ""
	}
	if s, err := decodeText(raw); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}
