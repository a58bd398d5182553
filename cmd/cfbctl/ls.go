package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/joshuapare/cfbkit/cfb"
	"github.com/joshuapare/cfbkit/pkg/types"
)

var lsRecursive bool

func init() {
	cmd := newLsCmd()
	cmd.Flags().BoolVarP(&lsRecursive, "recursive", "r", false, "List all entries below the storage")
	rootCmd.AddCommand(cmd)
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <file> [storage]",
		Short: "List the entries of a storage",
		Long: `The ls command lists the streams and storages directly below a
storage, or below the root when no storage is given.

Example:
  cfbctl ls report.xls
  cfbctl ls message.msg __substg1.0_3701000D -r
  cfbctl ls report.xls -o json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLs(args)
		},
	}
}

func runLs(args []string) error {
	f, err := openContainer(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	dir := f.Root()
	if len(args) > 1 {
		if dir, err = f.Lookup(args[1]); err != nil {
			return err
		}
		if !dir.IsStorage() {
			return fmt.Errorf("%s is a %s, not a storage", args[1], dir.Type())
		}
	}

	entries := listEntries(dir, lsRecursive)
	if structured() {
		return printStructured(entries)
	}
	if cfg.Quiet {
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Name", "Type", "Size", "Start", "Mini"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	for _, e := range entries {
		name := e.Name
		if lsRecursive {
			name = e.Path
		}
		mini := ""
		if e.Mini {
			mini = "yes"
		}
		table.Append([]string{name, e.Type.String(), strconv.FormatUint(e.Size, 10), strconv.FormatUint(uint64(e.Start), 10), mini})
	}
	table.Render()
	printInfo("\nTotal: %d entries\n", len(entries))
	return nil
}

func listEntries(dir *cfb.Entry, recursive bool) []types.EntryInfo {
	var out []types.EntryInfo
	for _, c := range dir.Children() {
		out = append(out, c.Info())
		if recursive && c.IsStorage() {
			out = append(out, listEntries(c, true)...)
		}
	}
	return out
}
