package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chyron/internal/catalog"
	"chyron/internal/config"
	"chyron/internal/services"
	"chyron/internal/services/openai"
)

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize <video-id>",
		Short: "Summarize a video's transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				video, err := resolveVideo(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}

				chunks, err := store.ChunksForVideo(cmd.Context(), video.ID)
				if err != nil {
					return err
				}
				if len(chunks) == 0 {
					return services.Wrap(
						services.ErrNotReady,
						"summarize", "run",
						fmt.Sprintf("video %s has no transcript yet", shortID(video.ID)),
						nil,
					)
				}

				texts := make([]string, 0, len(chunks))
				for _, chunk := range chunks {
					texts = append(texts, chunk.Text)
				}

				client, err := openai.New(cfg.OpenAI)
				if err != nil {
					return err
				}
				summary, err := client.Summarize(cmd.Context(), strings.Join(texts, "\n"), video.Title)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}
	return cmd
}
