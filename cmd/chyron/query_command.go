package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chyron/internal/catalog"
	"chyron/internal/config"
	"chyron/internal/logging"
	"chyron/internal/retrieval"
	"chyron/internal/services/openai"
	"chyron/internal/vectorindex"
)

func newQueryCommand(ctx *commandContext) *cobra.Command {
	var videoRef string
	var topChunks int

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Answer a question over the embedded transcripts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				client, err := openai.New(cfg.OpenAI)
				if err != nil {
					return err
				}
				index, err := vectorindex.New(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				defer index.Close()

				videoID := ""
				if strings.TrimSpace(videoRef) != "" {
					video, err := resolveVideo(cmd.Context(), store, videoRef)
					if err != nil {
						return err
					}
					videoID = video.ID
				}

				assembler := retrieval.NewAssembler(store, client, index, client, logging.NewNop())
				result, err := assembler.AnswerQuery(cmd.Context(), strings.Join(args, " "), videoID, topChunks)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, result.Answer)
				if len(result.Sources) > 0 {
					rows := make([][]string, 0, len(result.Sources))
					for _, source := range result.Sources {
						rows = append(rows, []string{
							shortID(source.ChunkID),
							shortID(source.VideoID),
							formatTimeRange(source.StartTime, source.EndTime),
							fmt.Sprintf("%.3f", source.Score),
							truncate(source.Text, 80),
						})
					}
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderTable(
						[]string{"CHUNK", "VIDEO", "TIME", "SCORE", "TEXT"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
					))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&videoRef, "video", "", "Restrict the query to one video id")
	cmd.Flags().IntVar(&topChunks, "top", 5, "Maximum number of source chunks")
	return cmd
}

func formatTimeRange(start, end float64) string {
	return fmt.Sprintf("%s - %s", formatDuration(start), formatDuration(end))
}

func truncate(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	return text[:limit-3] + "..."
}
