package main

import (
	"errors"

	"github.com/spf13/cobra"
)

var verifyCompact bool

var errVerifyFailed = errors.New("verify: container has errors")

func init() {
	cmd := newVerifyCmd()
	cmd.Flags().BoolVar(&verifyCompact, "compact", false, "One line per issue, ordered by file offset")
	rootCmd.AddCommand(cmd)
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Check every allocation chain of a compound file",
		Long: `The verify command walks every stream chain and reports corrupt
streams, sectors shared between chains, chains longer than their stream and
allocated sectors nothing references. It exits non-zero when errors are found.

Example:
  cfbctl verify report.xls
  cfbctl verify report.xls --compact
  cfbctl verify report.xls -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(args)
		},
	}
}

func runVerify(args []string) error {
	f, err := openContainer(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	report, err := f.Verify()
	if err != nil {
		return err
	}
	report.FilePath = args[0]

	switch {
	case structured():
		if err := printStructured(report); err != nil {
			return err
		}
	case verifyCompact:
		printInfo("%s", report.FormatTextCompact())
	default:
		printInfo("%s", report.FormatText())
	}
	if report.HasErrors() {
		return errVerifyFailed
	}
	return nil
}
