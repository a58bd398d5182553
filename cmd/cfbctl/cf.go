package main

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/joshuapare/cfbkit/biff"
	"github.com/joshuapare/cfbkit/biff/cf"
	"github.com/joshuapare/cfbkit/biff/ptg"
)

var (
	cfInsertRows string
	cfDeleteRows string
	cfInsertCols string
	cfDeleteCols string
)

func init() {
	cmd := newCFCmd()
	addShiftFlags(cmd.Flags())
	cmd.MarkFlagsMutuallyExclusive("insert-rows", "delete-rows", "insert-cols", "delete-cols")
	rootCmd.AddCommand(cmd)
}

func addShiftFlags(fs *pflag.FlagSet) {
	fs.StringVar(&cfInsertRows, "insert-rows", "", "Shift for inserted rows, as AT:COUNT")
	fs.StringVar(&cfDeleteRows, "delete-rows", "", "Shift for deleted rows, as AT:COUNT")
	fs.StringVar(&cfInsertCols, "insert-cols", "", "Shift for inserted columns, as AT:COUNT")
	fs.StringVar(&cfDeleteCols, "delete-cols", "", "Shift for deleted columns, as AT:COUNT")
}

func newCFCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cf <file> [stream]",
		Short: "List or shift conditional formatting blocks",
		Long: `The cf command lists the conditional formatting blocks of every sheet
in a workbook stream. With one of the shift flags it moves the blocks as
if rows or columns were inserted or deleted, drops blocks that no longer
cover any cell, and saves the container in place. Sheet cells are not
moved.

Example:
  cfbctl cf report.xls
  cfbctl cf report.xls --delete-rows 4:2`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCF(args)
		},
	}
}

type cfRow struct {
	Sheet  int      `json:"sheet" yaml:"sheet"`
	Block  int      `json:"block" yaml:"block"`
	Ranges []string `json:"ranges" yaml:"ranges"`
	Rules  int      `json:"rules" yaml:"rules"`
	Refs   []string `json:"refs,omitempty" yaml:"refs,omitempty"`
}

// parseShift turns the shift flags into a shifter, or nil when none is set.
func parseShift() (ptg.Shifter, error) {
	var set []ptg.Shifter
	for _, fl := range []struct {
		val   string
		name  string
		build func(at, n int) ptg.BlockShifter
	}{
		{cfInsertRows, "insert-rows", ptg.InsertRows},
		{cfDeleteRows, "delete-rows", ptg.DeleteRows},
		{cfInsertCols, "insert-cols", ptg.InsertCols},
		{cfDeleteCols, "delete-cols", ptg.DeleteCols},
	} {
		if fl.val == "" {
			continue
		}
		a, b, ok := strings.Cut(fl.val, ":")
		at, err1 := strconv.Atoi(a)
		n, err2 := strconv.Atoi(b)
		if !ok || err1 != nil || err2 != nil || at < 0 || n <= 0 {
			return nil, fmt.Errorf("--%s: want AT:COUNT, got %q", fl.name, fl.val)
		}
		set = append(set, fl.build(at, n))
	}
	switch len(set) {
	case 0:
		return nil, nil
	case 1:
		return set[0], nil
	}
	return nil, fmt.Errorf("only one shift flag may be given")
}

// sheet is one BOF..EOF substream of decoded records.
type sheet []biff.Record

func splitSheets(recs []biff.Record) []sheet {
	var out []sheet
	var cur sheet
	for _, r := range recs {
		cur = append(cur, r)
		if r.Sid() == biff.SidEOF {
			out = append(out, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// replaceBlocks swaps the CF records of s for those of t, placing them
// where the first block used to start.
func replaceBlocks(s sheet, t *cf.Table) sheet {
	var out sheet
	placed := false
	for _, r := range s {
		switch r.Sid() {
		case biff.SidCFHeader, biff.SidCF:
			if !placed {
				out = append(out, t.Records()...)
				placed = true
			}
		default:
			out = append(out, r)
		}
	}
	return out
}

func runCF(args []string) error {
	shifter, err := parseShift()
	if err != nil {
		return err
	}

	f, err := openContainer(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	name, data, err := workbookStream(f, args)
	if err != nil {
		return err
	}
	// Only CF and BOUNDSHEET records are decoded so everything else is
	// written back byte for byte.
	reg := biff.NewRegistry()
	cf.Register(reg)
	reg.Register(biff.SidBoundSheet, biff.DecodeBoundSheet)
	recs, err := biff.ReadRecords(biff.NewRecordInputStream(bytes.NewReader(data)), reg)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	offsets := biff.SubstreamOffsets(recs)

	opts := []cf.Option{cf.WithLogger(logger)}
	var rows []cfRow
	var out []biff.Record
	removed := 0
	for i, s := range splitSheets(recs) {
		t, err := cf.ReadTable(s, opts...)
		if err != nil {
			return fmt.Errorf("%s: substream %d: %w", name, i, err)
		}
		if shifter != nil && t.Len() > 0 {
			removed += t.Shift(shifter)
			s = replaceBlocks(s, t)
		}
		out = append(out, s...)
		for j, a := range t.Aggregates() {
			rows = append(rows, describeBlock(i, j, a))
		}
	}

	if shifter != nil {
		moved, err := biff.RelocateSheets(out, offsets)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		logger.Debug("relocated sheets", "stream", name, "moved", moved)
		var buf bytes.Buffer
		if err := biff.NewRecordWriter(&buf).WriteAll(out); err != nil {
			return err
		}
		if err := f.WriteStream(name, buf.Bytes()); err != nil {
			return err
		}
		if err := f.SaveFile(args[0]); err != nil {
			return fmt.Errorf("save %s: %w", args[0], err)
		}
		printInfo("Shifted conditional formats in %s, removed %d blocks\n", name, removed)
	}

	if structured() {
		return printStructured(rows)
	}
	if cfg.Quiet {
		return nil
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Sheet", "Block", "Ranges", "Rules", "Refs"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	for _, r := range rows {
		table.Append([]string{
			strconv.Itoa(r.Sheet),
			strconv.Itoa(r.Block),
			strings.Join(r.Ranges, " "),
			strconv.Itoa(r.Rules),
			strings.Join(r.Refs, " "),
		})
	}
	table.Render()
	return nil
}

func describeBlock(sheetIdx, blockIdx int, a *cf.Aggregate) cfRow {
	row := cfRow{Sheet: sheetIdx, Block: blockIdx, Rules: a.Len()}
	for _, r := range a.Ranges() {
		row.Ranges = append(row.Ranges, r.String())
	}
	for i := range a.Len() {
		rule, _ := a.Get(i)
		for _, f := range [][]byte{rule.Formula1, rule.Formula2} {
			refs, err := ptg.Refs(f)
			if err != nil {
				row.Refs = append(row.Refs, "?")
				continue
			}
			for _, ref := range refs {
				row.Refs = append(row.Refs, ref.String())
			}
		}
	}
	return row
}
