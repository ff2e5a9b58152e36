package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/wikibook/internal/api"
	"github.com/jackzampolin/wikibook/internal/bookflow"
	"github.com/jackzampolin/wikibook/internal/render"
	"github.com/jackzampolin/wikibook/internal/server/endpoints"
	"github.com/jackzampolin/wikibook/internal/types"
)

// createResult is printed when a standalone job ends.
type createResult struct {
	Job  *types.Job      `json:"job" yaml:"job"`
	File *render.PDFInfo `json:"file,omitempty" yaml:"file,omitempty"`
}

var (
	createFlags    endpoints.BookFlags
	createDownload bool
	createName     string
)

var createCmd = &cobra.Command{
	Use:   "create [page...]",
	Short: "Create a book without a running server",
	Long: `Submit pages to the PDF service and follow the job until it ends.

Uses the session saved by "wikibook login". Progress is written to stderr.

Examples:
  wikibook create Sun Moon --title "Night Sky"
  wikibook create -p https://wiki.example.org/wiki/Sun --download`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger, err := newLogger(os.Stderr)
		if err != nil {
			return err
		}
		svcs, err := standalone(ctx, logger)
		if err != nil {
			return err
		}

		job, err := svcs.Flow.Create(ctx, createFlags.Request(args), endpoints.PrintUpdate)
		if err != nil {
			return err
		}
		result := createResult{Job: job}

		if createDownload {
			api.Progressf("downloading %s", job.TaskID)
			info, err := bookflow.Download(ctx, svcs.BookAPI, job.DownloadURL, job.ViewURL, svcs.Home.BooksDir(), createName)
			if err != nil {
				return err
			}
			result.File = info
		}
		return api.Output(result)
	},
}

func init() {
	createFlags.Register(createCmd)
	createCmd.Flags().BoolVarP(&createDownload, "download", "d", false, "Save the finished PDF to the books directory")
	createCmd.Flags().StringVar(&createName, "name", "", "File name for --download (default: from the URL)")

	rootCmd.AddCommand(createCmd)
}
