package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"chyron/internal/catalog"
	"chyron/internal/config"
	"chyron/internal/services"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <video-id>",
		Short: "Show one video with its jobs and chunk count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *catalog.Store) error {
				video, err := resolveVideo(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:        %s\n", video.ID)
				fmt.Fprintf(out, "Title:     %s\n", videoLabel(video))
				fmt.Fprintf(out, "Source:    %s\n", video.SourceRef)
				fmt.Fprintf(out, "Status:    %s\n", video.Status)
				if video.Language != "" {
					fmt.Fprintf(out, "Language:  %s\n", video.Language)
				}
				if video.DurationSeconds > 0 {
					fmt.Fprintf(out, "Duration:  %s\n", formatDuration(video.DurationSeconds))
				}
				if video.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:     %s\n", video.ErrorMessage)
				}

				jobs, err := store.ListJobsForVideo(cmd.Context(), video.ID)
				if err != nil {
					return err
				}
				if len(jobs) > 0 {
					rows := make([][]string, 0, len(jobs))
					for _, job := range jobs {
						message := job.ErrorMessage
						rows = append(rows, []string{
							string(job.Stage),
							string(job.Status),
							fmt.Sprintf("%d%%", job.Progress),
							message,
						})
					}
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderTable(
						[]string{"STAGE", "STATUS", "PROGRESS", "ERROR"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
					))
				}

				count, err := store.CountChunks(cmd.Context(), video.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\nChunks: %s\n", strconv.Itoa(count))
				return nil
			})
		},
	}
	return cmd
}

// resolveVideo accepts a full id or an unambiguous prefix.
func resolveVideo(ctx context.Context, store *catalog.Store, ref string) (*catalog.Video, error) {
	ref = strings.TrimSpace(ref)
	video, err := store.GetVideo(ctx, ref)
	if err == nil {
		return video, nil
	}
	if !errors.Is(err, services.ErrNotFound) {
		return nil, err
	}

	videos, listErr := store.ListVideos(ctx)
	if listErr != nil {
		return nil, listErr
	}
	var match *catalog.Video
	for _, candidate := range videos {
		if strings.HasPrefix(candidate.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("video id prefix %q is ambiguous", ref)
			}
			match = candidate
		}
	}
	if match == nil {
		return nil, err
	}
	return match, nil
}

func formatDuration(seconds float64) string {
	total := int(seconds)
	if total >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
