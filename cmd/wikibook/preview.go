package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/wikibook/internal/api"
	"github.com/jackzampolin/wikibook/internal/bookflow"
	"github.com/jackzampolin/wikibook/internal/server/endpoints"
)

var (
	previewFlags  endpoints.BookFlags
	previewFormat string
)

var previewCmd = &cobra.Command{
	Use:   "preview [page...]",
	Short: "Render a book locally as PDF or EPUB",
	Long: `Fetch the pages from the wiki and render them on this machine.

No PDF service account is needed. Files are written to the previews
directory of the wikibook home.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, err := bookflow.ParseFormat(previewFormat)
		if err != nil {
			return err
		}
		logger, err := newLogger(os.Stderr)
		if err != nil {
			return err
		}
		svcs, err := standalone(ctx, logger)
		if err != nil {
			return err
		}

		result, err := svcs.Previewer.Preview(ctx, previewFlags.Request(args), format)
		if err != nil {
			return err
		}
		return api.Output(result)
	},
}

func init() {
	previewFlags.Register(previewCmd)
	previewCmd.Flags().StringVarP(&previewFormat, "format", "f", "pdf", "Output format (pdf or epub)")

	rootCmd.AddCommand(previewCmd)
}
