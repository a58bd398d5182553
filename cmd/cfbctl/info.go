package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Validate a compound file and report header metadata",
		Long: `The info command opens a compound file, validates its allocation
tables and directory, and prints header metadata.

Example:
  cfbctl info report.xls
  cfbctl info report.xls -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args)
		},
	}
}

func runInfo(args []string) error {
	f, err := openContainer(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	info := f.Info()
	if structured() {
		return printStructured(info)
	}

	printInfo("\nContainer Information:\n")
	printInfo("  File: %s\n", args[0])
	printInfo("  Version: %d.%d\n", info.MajorVersion, info.MinorVersion)
	printInfo("  Sector size: %d\n", info.SectorSize)
	printInfo("  Mini sector size: %d (cutoff %d)\n", info.MiniSectorSize, info.MiniStreamCutoff)
	printInfo("  Sectors: %d\n", info.Sectors)
	printInfo("  FAT sectors: %d\n", info.FATSectors)
	printInfo("  MiniFAT sectors: %d\n", info.MiniFATSectors)
	printInfo("  DIFAT sectors: %d\n", info.DIFATSectors)
	printInfo("  Directory entries: %d\n", info.Entries)
	printInfo("  Mini stream: %s\n", formatSize(info.MiniStreamSize))
	return nil
}
