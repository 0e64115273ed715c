package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chyron/internal/catalog"
	"chyron/internal/config"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retry <video-id>",
		Short: "Reset a failed video so the pipeline picks it up again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *catalog.Store) error {
				video, err := resolveVideo(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				reset, err := store.ResetForRetry(cmd.Context(), video.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Video %s reset to %s\n", shortID(reset.ID), reset.Status)
				return nil
			})
		},
	}
	return cmd
}
