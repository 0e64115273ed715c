// Package whisper is an HTTP client for the local Whisper transcription
// server. The server accepts audio either as a multipart upload or as a URL
// to download, and returns timestamped segments.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"chyron/internal/config"
	"chyron/internal/services"
)

const stageName = "transcribe"

// Segment is one timestamped transcript unit.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Result is a completed transcription.
type Result struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// Health reports the server's model state.
type Health struct {
	Status      string `json:"status"`
	Model       string `json:"model"`
	Device      string `json:"device"`
	ModelLoaded bool   `json:"model_loaded"`
}

type transcribeResponse struct {
	Success bool    `json:"success"`
	Result  *Result `json:"result"`
	Error   string  `json:"error"`
}

// Client talks to one transcription server instance.
type Client struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

// NewClient builds a client from the transcriber config section.
func NewClient(cfg config.Transcriber) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		language:   cfg.Language,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Transcribe uploads audio bytes and returns the timestamped transcript. An
// empty segment list from the server is treated as a failure; the transcriber
// contract forbids silently returning nothing.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (*Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("audio_file", filename)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, stageName, "build upload", "", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, services.Wrap(services.ErrExternal, stageName, "build upload", "", err)
	}
	if c.language != "" {
		if err := writer.WriteField("language", c.language); err != nil {
			return nil, services.Wrap(services.ErrExternal, stageName, "build upload", "", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, services.Wrap(services.ErrExternal, stageName, "build upload", "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", &body)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, stageName, "build request", "", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req)
}

// TranscribeURL asks the server to download and transcribe a remote audio
// file itself.
func (c *Client) TranscribeURL(ctx context.Context, audioURL string) (*Result, error) {
	payload, err := json.Marshal(map[string]string{"audio_url": audioURL})
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, stageName, "encode request", "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", bytes.NewReader(payload))
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, stageName, "build request", "", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Result, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, stageName, "post", "whisper server unreachable", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, stageName, "read response", "", err)
	}

	var decoded transcribeResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, services.Wrap(
			services.ErrExternal,
			stageName, "decode response",
			fmt.Sprintf("status %d", resp.StatusCode),
			err,
		)
	}

	if resp.StatusCode != http.StatusOK || !decoded.Success {
		message := decoded.Error
		if message == "" {
			message = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, services.Wrap(services.ErrExternal, stageName, "transcribe", message, nil)
	}
	if decoded.Result == nil || len(decoded.Result.Segments) == 0 {
		return nil, services.Wrap(services.ErrExternal, stageName, "transcribe", "server returned no segments", nil)
	}

	return decoded.Result, nil
}

// HealthCheck probes the server's /health endpoint.
func (c *Client) HealthCheck(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, stageName, "build request", "", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, stageName, "health", "whisper server unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrExternal, stageName, "health", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	var health Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, services.Wrap(services.ErrExternal, stageName, "decode health", "", err)
	}
	return &health, nil
}
