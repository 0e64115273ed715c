package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[openai]
api_key = "test"
`, filepath.Join(base, "data"), filepath.Join(base, "logs"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAddAndStatus(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, "--config", configPath, "add", "https://example.com/watch?v=cli", "--title", "CLI Video")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, "Added video ") {
		t.Fatalf("add output = %q", out)
	}

	out, err = runCommand(t, "--config", configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "CLI Video") || !strings.Contains(out, "uploaded") {
		t.Fatalf("status output = %q", out)
	}
}

func TestStatusHealth(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, "--config", configPath, "status", "--health")
	if err != nil {
		t.Fatalf("status --health: %v", err)
	}
	if !strings.Contains(out, "TOTAL") {
		t.Fatalf("health output = %q", out)
	}
}

func TestShowByPrefix(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, "--config", configPath, "add", "https://example.com/watch?v=show")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	id := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(out), "Added video"))

	out, err = runCommand(t, "--config", configPath, "show", id[:8])
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, id) || !strings.Contains(out, "Chunks: 0") {
		t.Fatalf("show output = %q", out)
	}
}

func TestRetryRequiresFailedVideo(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, "--config", configPath, "add", "https://example.com/watch?v=retry")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	id := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(out), "Added video"))

	if _, err := runCommand(t, "--config", configPath, "retry", id); err == nil {
		t.Fatal("retry of an uploaded video should fail")
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "chyron", "config.toml")

	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("output = %q", out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[paths]") {
		t.Fatalf("sample = %q", data)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}
}

func TestQueryRejectsEmptyConfigKey(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
`, filepath.Join(base, "data"), filepath.Join(base, "logs"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := runCommand(t, "--config", path, "query", "anything"); err == nil {
		t.Fatal("query without an API key should fail")
	}
}
