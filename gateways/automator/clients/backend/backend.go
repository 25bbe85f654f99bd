package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	config "github.com/xilidan/automator/config/automator"
	pkgjson "github.com/xilidan/automator/pkg/json"
	"github.com/xilidan/automator/services/automator/entity"
)

const (
	// longQueryWarnBytes is the transcript size past which the v1 query transport
	// risks exceeding common URL length limits.
	longQueryWarnBytes = 2000
	maxResponseBytes   = 10 << 20
)

type Client struct {
	baseURL    string
	schema     schema
	httpClient *http.Client
	log        *slog.Logger
}

type textRequest struct {
	Text string `json:"text"`
}

// New creates a client for the backend at cfg.BaseURL. An empty address is a
// configuration error, returned before any request can be made.
func New(cfg config.BackendConfig, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.BaseURL == "" {
		return nil, &entity.ConfigurationError{Field: "API_BASE", Msg: entity.MsgNotSet}
	}
	sch, err := schemaFor(cfg.Schema)
	if err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	log.Debug("creating backend client",
		slog.String("base_url", baseURL),
		slog.String("schema", sch.name),
		slog.Duration("timeout", cfg.Timeout))

	return &Client{
		baseURL:    baseURL,
		schema:     sch,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}, nil
}

// Transcribe uploads the audio as the multipart field "file".
func (c *Client) Transcribe(ctx context.Context, audio entity.AudioInput) (string, error) {
	c.log.Info("Transcribe called",
		slog.String("filename", audio.Filename),
		slog.Int("audio_size", len(audio.Data)))

	body, contentType, err := multipartBody(audio)
	if err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	data, err := c.do(req, entity.StageTranscribe)
	if err != nil {
		return "", err
	}

	text, err := c.schema.transcript(data)
	if err != nil {
		c.log.Warn("transcription not usable", slog.String("error", err.Error()))
		return "", err
	}

	c.log.Info("transcription received", slog.Int("transcription_length", len(text)))
	return text, nil
}

func (c *Client) Summarize(ctx context.Context, transcript string) (string, error) {
	c.log.Info("Summarize called", slog.Int("transcription_length", len(transcript)))

	data, err := c.postText(ctx, entity.StageSummarize, "/summarize", transcript)
	if err != nil {
		return "", err
	}

	summary, err := c.schema.summary(data)
	if err != nil {
		c.log.Error("failed to decode summary", slog.String("error", err.Error()))
		return "", err
	}

	c.log.Info("summary generated successfully", slog.Int("summary_length", len(summary)))
	return summary, nil
}

func (c *Client) ExtractActionItems(ctx context.Context, transcript string) ([]entity.ActionItem, error) {
	c.log.Info("ExtractActionItems called", slog.Int("transcription_length", len(transcript)))

	data, err := c.postText(ctx, entity.StageActionItems, "/action-items", transcript)
	if err != nil {
		return nil, err
	}

	items, err := c.schema.actionItems(data)
	if err != nil {
		c.log.Error("failed to decode action items", slog.String("error", err.Error()))
		return nil, err
	}

	c.log.Info("action items extracted successfully", slog.Int("items_count", len(items)))
	return items, nil
}

// postText sends the transcript using the transport of the configured schema:
// a JSON body for v2, the "text" query parameter for v1.
func (c *Client) postText(ctx context.Context, stage entity.Stage, path, transcript string) ([]byte, error) {
	var (
		req *http.Request
		err error
	)
	if c.schema.queryTransport {
		if len(transcript) > longQueryWarnBytes {
			c.log.Warn("long transcript sent as query parameter, the request may be rejected",
				slog.String("stage", string(stage)),
				slog.Int("transcription_length", len(transcript)))
		}
		u := c.baseURL + path + "?" + url.Values{"text": {transcript}}.Encode()
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	} else {
		var payload []byte
		payload, err = pkgjson.Marshal(textRequest{Text: transcript})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return c.do(req, stage)
}

// do executes req and returns the body of a 2xx response. Transport failures
// (including the client timeout) become *entity.NetworkError and other statuses
// become *entity.BackendError.
func (c *Client) do(req *http.Request, stage entity.Stage) ([]byte, error) {
	c.log.Debug("sending request to backend",
		slog.String("stage", string(stage)),
		slog.String("url", req.URL.Redacted()))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("HTTP request failed",
			slog.String("stage", string(stage)),
			slog.String("error", err.Error()))
		return nil, &entity.NetworkError{Stage: stage, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &entity.NetworkError{Stage: stage, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Error("backend returned error",
			slog.String("stage", string(stage)),
			slog.Int("status_code", resp.StatusCode),
			slog.String("response_body", string(data)))
		return nil, &entity.BackendError{Stage: stage, Status: resp.StatusCode, Body: string(data)}
	}

	c.log.Debug("response received",
		slog.String("stage", string(stage)),
		slog.Int("status_code", resp.StatusCode),
		slog.Int("body_size", len(data)))
	return data, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func multipartBody(audio entity.AudioInput) (io.Reader, string, error) {
	filename := audio.Filename
	if filename == "" {
		filename = "audio.wav"
	}
	contentType := audio.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
