package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newCatCmd())
}

func newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <file> <stream>",
		Short: "Write a stream's contents to stdout",
		Long: `The cat command copies the raw bytes of a stream to standard output.

Example:
  cfbctl cat report.xls Workbook > workbook.bin
  cfbctl cat message.msg "__substg1.0_0037001F"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCat(args, os.Stdout)
		},
	}
}

func runCat(args []string, w io.Writer) error {
	f, err := openContainer(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	s, err := f.OpenStream(args[1])
	if err != nil {
		return err
	}
	_, err = io.Copy(w, s)
	return err
}
