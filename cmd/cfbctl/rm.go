package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newRmCmd())
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <file> <path>",
		Short: "Delete a stream or storage",
		Long: `The rm command deletes a stream, or a storage with everything below
it, and saves the container in place. Freed sectors are reused by later
writes.

Example:
  cfbctl rm report.xls "_VBA_PROJECT_CUR"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRm(args[0], args[1])
		},
	}
}

func runRm(path, entry string) error {
	f, err := openContainer(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Delete(entry); err != nil {
		return err
	}
	if err := f.SaveFile(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	printVerbose("Deleted %s from %s\n", entry, path)
	return nil
}
