package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"chyron/internal/catalog"
	"chyron/internal/config"
	"chyron/internal/progress"
	"chyron/internal/services/whisper"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var showHealth bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "List videos and their pipeline progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				out := cmd.OutOrStdout()

				if showHealth {
					summary, err := store.HealthSummary(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintln(out, renderTable(
						[]string{"TOTAL", "UPLOADED", "PROCESSING", "COMPLETE", "FAILED"},
						[][]string{{
							strconv.Itoa(summary.Total),
							strconv.Itoa(summary.Uploaded),
							strconv.Itoa(summary.Processing),
							strconv.Itoa(summary.Complete),
							strconv.Itoa(summary.Failed),
						}},
						[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
					))
					printTranscriberHealth(cmd, cfg)
					return nil
				}

				videos, err := store.ListVideos(cmd.Context())
				if err != nil {
					return err
				}
				if len(videos) == 0 {
					fmt.Fprintln(out, "No videos registered.")
					return nil
				}

				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(videos))
				for _, video := range videos {
					jobs, err := store.ListJobsForVideo(cmd.Context(), video.ID)
					if err != nil {
						return err
					}
					rows = append(rows, []string{
						shortID(video.ID),
						videoLabel(video),
						statusCell(video.Status, colorize),
						fmt.Sprintf("%d%%", progress.Overall(jobs)),
						video.UpdatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "TITLE", "STATUS", "PROGRESS", "UPDATED"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showHealth, "health", false, "Show catalog health counters instead of the video list")
	return cmd
}

// printTranscriberHealth probes the whisper server. Failures are reported,
// not fatal; the catalog counters above are still useful offline.
func printTranscriberHealth(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	probeCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	health, err := whisper.NewClient(cfg.Transcriber).HealthCheck(probeCtx)
	if err != nil {
		fmt.Fprintf(out, "\nTranscriber: unreachable (%s)\n", cfg.Transcriber.BaseURL)
		return
	}
	fmt.Fprintf(out, "\nTranscriber: %s (model %s on %s, loaded=%t)\n",
		health.Status, health.Model, health.Device, health.ModelLoaded)
}

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

func statusCell(status catalog.VideoStatus, colorize bool) string {
	if !colorize {
		return string(status)
	}
	switch status {
	case catalog.VideoComplete:
		return ansiGreen + string(status) + ansiReset
	case catalog.VideoFailed:
		return ansiRed + string(status) + ansiReset
	default:
		return string(status)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func videoLabel(video *catalog.Video) string {
	if video.Title != "" {
		return video.Title
	}
	return video.SourceRef
}
