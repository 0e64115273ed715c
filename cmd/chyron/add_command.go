package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chyron/internal/catalog"
	"chyron/internal/config"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "add <url-or-file>",
		Short: "Register a video source for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *catalog.Store) error {
				video, err := store.InsertVideo(cmd.Context(), strings.TrimSpace(args[0]), strings.TrimSpace(title))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added video %s\n", video.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title to use instead of the source metadata")
	return cmd
}
