// Package ytdlp resolves video sources to audio streams. Remote URLs go
// through the yt-dlp binary; local files are read directly without it.
package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"chyron/internal/config"
	"chyron/internal/services"
)

const stageName = "acquire_audio"

// Info describes a source before its audio is fetched.
type Info struct {
	Title           string
	DurationSeconds float64
}

// commandRunner executes the binary and returns its stdout. Tests inject a
// fake; production uses exec.CommandContext.
type commandRunner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// Option customizes a Resolver.
type Option func(*Resolver)

// WithRunner replaces the command runner, primarily for tests.
func WithRunner(run commandRunner) Option {
	return func(r *Resolver) {
		r.run = run
	}
}

// Resolver fetches source metadata and audio via yt-dlp.
type Resolver struct {
	binary        string
	fetchTimeout  time.Duration
	maxAudioBytes int64
	run           commandRunner
}

// New builds a resolver from the sources config section.
func New(cfg config.Sources, opts ...Option) *Resolver {
	binary := cfg.YtDlpBinary
	if binary == "" {
		binary = "yt-dlp"
	}
	timeout := time.Duration(cfg.FetchTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	var maxBytes int64
	if cfg.MaxAudioSizeMB > 0 {
		maxBytes = int64(cfg.MaxAudioSizeMB) << 20
	}

	resolver := &Resolver{
		binary:        binary,
		fetchTimeout:  timeout,
		maxAudioBytes: maxBytes,
		run:           runCommand,
	}
	for _, opt := range opts {
		opt(resolver)
	}
	return resolver
}

// Info returns the title and duration of a source. Local files resolve from
// the filesystem without invoking the binary.
func (r *Resolver) Info(ctx context.Context, sourceRef string) (Info, error) {
	sourceRef = strings.TrimSpace(sourceRef)
	if sourceRef == "" {
		return Info{}, services.Wrap(services.ErrValidation, stageName, "info", "source reference is required", nil)
	}

	if path, ok := localPath(sourceRef); ok {
		if _, err := os.Stat(path); err != nil {
			return Info{}, services.Wrap(services.ErrExternal, stageName, "info", path, err)
		}
		name := filepath.Base(path)
		return Info{Title: strings.TrimSuffix(name, filepath.Ext(name))}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	output, err := r.run(ctx, r.binary, "--dump-json", "--no-playlist", sourceRef)
	if err != nil {
		return Info{}, services.Wrap(services.ErrExternal, stageName, "yt-dlp dump-json", sourceRef, err)
	}

	var decoded struct {
		Title    string  `json:"title"`
		Duration float64 `json:"duration"`
	}
	if err := json.Unmarshal(output, &decoded); err != nil {
		return Info{}, services.Wrap(services.ErrExternal, stageName, "parse yt-dlp output", "", err)
	}
	return Info{Title: decoded.Title, DurationSeconds: decoded.Duration}, nil
}

// FetchAudio resolves the source to a readable audio stream plus a suggested
// file name. The caller must close the reader; closing also removes any
// temporary download.
func (r *Resolver) FetchAudio(ctx context.Context, sourceRef string) (io.ReadCloser, string, error) {
	sourceRef = strings.TrimSpace(sourceRef)
	if sourceRef == "" {
		return nil, "", services.Wrap(services.ErrValidation, stageName, "fetch audio", "source reference is required", nil)
	}

	if path, ok := localPath(sourceRef); ok {
		file, err := os.Open(path)
		if err != nil {
			return nil, "", services.Wrap(services.ErrExternal, stageName, "open local source", path, err)
		}
		if err := r.checkSize(file); err != nil {
			file.Close()
			return nil, "", err
		}
		return file, filepath.Base(path), nil
	}

	tmpDir, err := os.MkdirTemp("", "chyron-ytdlp-")
	if err != nil {
		return nil, "", services.Wrap(services.ErrExternal, stageName, "temp dir", "", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	template := filepath.Join(tmpDir, "audio.%(ext)s")
	if _, err := r.run(ctx, r.binary,
		"-x",
		"--audio-format", "mp3",
		"--no-playlist",
		"-o", template,
		sourceRef,
	); err != nil {
		_ = os.RemoveAll(tmpDir)
		return nil, "", services.Wrap(services.ErrExternal, stageName, "yt-dlp extract", sourceRef, err)
	}

	matches, err := filepath.Glob(filepath.Join(tmpDir, "audio.*"))
	if err != nil || len(matches) == 0 {
		_ = os.RemoveAll(tmpDir)
		return nil, "", services.Wrap(services.ErrExternal, stageName, "yt-dlp extract", "no audio file produced", err)
	}

	file, err := os.Open(matches[0])
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return nil, "", services.Wrap(services.ErrExternal, stageName, "open download", matches[0], err)
	}
	if err := r.checkSize(file); err != nil {
		file.Close()
		_ = os.RemoveAll(tmpDir)
		return nil, "", err
	}

	return &tempDownload{File: file, dir: tmpDir}, filepath.Base(matches[0]), nil
}

// HealthCheck verifies the binary is resolvable on PATH.
func (r *Resolver) HealthCheck(_ context.Context) error {
	if _, err := exec.LookPath(r.binary); err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "health", r.binary, err)
	}
	return nil
}

func (r *Resolver) checkSize(file *os.File) error {
	if r.maxAudioBytes <= 0 {
		return nil
	}
	stat, err := file.Stat()
	if err != nil {
		return services.Wrap(services.ErrExternal, stageName, "stat audio", "", err)
	}
	if stat.Size() > r.maxAudioBytes {
		return services.Wrap(
			services.ErrValidation,
			stageName, "fetch audio",
			fmt.Sprintf("audio is %d bytes, limit %d", stat.Size(), r.maxAudioBytes),
			nil,
		)
	}
	return nil
}

// localPath reports whether sourceRef names a local file and resolves it.
func localPath(sourceRef string) (string, bool) {
	if strings.HasPrefix(sourceRef, "file://") {
		return strings.TrimPrefix(sourceRef, "file://"), true
	}
	if strings.Contains(sourceRef, "://") {
		return "", false
	}
	return sourceRef, true
}

type tempDownload struct {
	*os.File
	dir string
}

func (t *tempDownload) Close() error {
	err := t.File.Close()
	if removeErr := os.RemoveAll(t.dir); err == nil {
		err = removeErr
	}
	return err
}

func runCommand(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return output, nil
}
