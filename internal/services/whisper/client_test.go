package whisper

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chyron/internal/config"
	"chyron/internal/services"
)

func newTestClient(url string) *Client {
	return NewClient(config.Transcriber{BaseURL: url, TimeoutSeconds: 5})
}

func TestTranscribeUploadsMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		file, header, err := r.FormFile("audio_file")
		if err != nil {
			t.Errorf("missing audio_file part: %v", err)
		} else {
			file.Close()
			if header.Filename != "audio.mp3" {
				t.Errorf("filename = %q", header.Filename)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"result": map[string]any{
				"text":     "hello world",
				"language": "en",
				"segments": []map[string]any{
					{"text": "hello", "start": 0.0, "end": 1.5},
					{"text": "world", "start": 1.5, "end": 3.0},
				},
			},
		})
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).Transcribe(context.Background(), strings.NewReader("fake audio"), "audio.mp3")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Language != "en" {
		t.Fatalf("language = %q", result.Language)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("segments = %+v", result.Segments)
	}
	if result.Segments[1].Text != "world" || result.Segments[1].Start != 1.5 || result.Segments[1].End != 3.0 {
		t.Fatalf("segment = %+v", result.Segments[1])
	}
}

func TestTranscribeURLSendsJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload["audio_url"] != "https://example.com/a.mp3" {
			t.Errorf("audio_url = %q", payload["audio_url"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"result": map[string]any{
				"text":     "ok",
				"language": "en",
				"segments": []map[string]any{{"text": "ok", "start": 0.0, "end": 1.0}},
			},
		})
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).TranscribeURL(context.Background(), "https://example.com/a.mp3"); err != nil {
		t.Fatalf("TranscribeURL: %v", err)
	}
}

func TestTranscribeServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "model not loaded"})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Transcribe(context.Background(), strings.NewReader("x"), "a.mp3")
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected ErrExternal, got %v", err)
	}
	if !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("error lost server message: %v", err)
	}
}

func TestTranscribeRejectsEmptySegments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"result":  map[string]any{"text": "", "language": "en", "segments": []any{}},
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Transcribe(context.Background(), strings.NewReader("x"), "a.mp3")
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected ErrExternal for empty segments, got %v", err)
	}
}

func TestTranscribeUnreachableServer(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:1").Transcribe(context.Background(), strings.NewReader("x"), "a.mp3")
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected ErrExternal, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Health{Status: "healthy", Model: "base", Device: "cpu", ModelLoaded: true})
	}))
	defer server.Close()

	health, err := newTestClient(server.URL).HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if health.Status != "healthy" || !health.ModelLoaded {
		t.Fatalf("health = %+v", health)
	}
}
