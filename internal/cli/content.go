package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hypergopher/blogdesk"
)

var importCmd = &cobra.Command{
	Use:   "import [dir]",
	Short: "Load Markdown post files into the store",
	Long: `Read every .md file under dir (default: the configured content directory) and create or
update the matching post. The slug comes from the frontmatter or, failing that, from the file path.
Files missing a title or body are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export [dir]",
	Short: "Write every post to Markdown files",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(importCmd, exportCmd)

	for _, cmd := range []*cobra.Command{importCmd, exportCmd} {
		cmd.Flags().String("format", "", "frontmatter format (yaml or toml)")
		// Both commands share one config key, so bind whichever is running.
		cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
			return bindFlags(cmd.Flags(), map[string]string{"content.format": "format"})
		}
	}
}

func dirArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	fs := a.fileSystem(dirArg(args))
	syncer := blogdesk.NewSyncer(fs, a.store, blogdesk.WithSyncLogger(a.logger))

	result, err := syncer.SyncAll(cmd.Context())
	if err != nil {
		return err
	}

	a.logger.Info("import finished", slog.String("dir", fs.Root()))
	fmt.Fprintf(cmd.OutOrStdout(), "created %d, updated %d, skipped %d\n", result.Created, result.Updated, result.Skipped)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	fs := a.fileSystem(dirArg(args))
	syncer := blogdesk.NewSyncer(fs, a.store, blogdesk.WithSyncLogger(a.logger))

	n, err := syncer.Export(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "exported %d posts to %s\n", n, fs.Root())
	return nil
}
