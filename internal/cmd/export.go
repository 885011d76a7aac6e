package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export the team records of a server run as CSV",
	Long: `Fetch the team records of a finished run from a teamforge server and
write them as CSV, one row per student.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var exportOut string

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "-", "output file, - for stdout")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if serverURL == "" {
		return fmt.Errorf("export needs --server")
	}
	client, err := remoteClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	fetch := func(w io.Writer) error { return client.Records(ctx, args[0], w) }
	if exportOut == "-" {
		return fetch(cmd.OutOrStdout())
	}
	return writeFile(exportOut, fetch)
}
