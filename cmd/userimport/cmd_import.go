package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/userimport/internal/application"
	"github.com/JonMunkholm/userimport/internal/core"
)

var (
	importJSON      bool
	importNoAvatars bool
	importStrict    bool
)

// errImportHadErrors makes the command exit non-zero under --strict.
var errImportHadErrors = errors.New("import finished with errors")

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import users from a CSV file",
	Long: `Import creates an account for every new email address and fills empty
fields of existing accounts. Rows are committed one at a time; a failing row
is reported and the import continues.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importJSON, "json", false, "print the summary as JSON")
	importCmd.Flags().BoolVar(&importNoAvatars, "no-avatars", false, "skip downloading user_profile_picture URLs")
	importCmd.Flags().BoolVar(&importStrict, "strict", false, "exit with an error when any row failed")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if importNoAvatars {
		cfg.Import.SideloadAvatars = false
	}

	ctx := commandContext(cmd)
	app, err := application.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	// A started batch runs to the end; Ctrl-C only stops the command before it.
	sum := app.Importer.ImportFile(context.WithoutCancel(ctx), args[0])

	if err := printSummary(cmd.OutOrStdout(), sum, importJSON); err != nil {
		return err
	}
	if importStrict && sum.ErrorCount() > 0 {
		return errImportHadErrors
	}
	return nil
}

// printSummary writes the batch outcome as text or JSON.
func printSummary(w io.Writer, sum core.Summary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}

	fmt.Fprintf(w, "Import completed: %d users imported, %d users updated, %d errors.\n",
		sum.Imported, sum.Updated, sum.ErrorCount())
	if sum.Skipped > 0 {
		fmt.Fprintf(w, "%d rows unchanged.\n", sum.Skipped)
	}
	for _, e := range sum.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
	for _, warn := range sum.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
	_, err := fmt.Fprintf(w, "Batch %s took %s.\n", sum.BatchID, sum.Duration.Round(time.Millisecond))
	return err
}
