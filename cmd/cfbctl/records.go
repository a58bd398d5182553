package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/joshuapare/cfbkit/biff"
	"github.com/joshuapare/cfbkit/cfb"
	"github.com/joshuapare/cfbkit/pkg/types"
)

var recordsLimit int

func init() {
	cmd := newRecordsCmd()
	cmd.Flags().IntVarP(&recordsLimit, "limit", "n", 0, "Stop after this many records (0 = all)")
	rootCmd.AddCommand(cmd)
}

func newRecordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "records <file> [stream]",
		Short: "List the BIFF records of a workbook stream",
		Long: `The records command walks a BIFF8 record stream and prints the
offset, sid, name and length of every physical record. The stream defaults
to Workbook, falling back to Book.

Example:
  cfbctl records report.xls
  cfbctl records report.xls Workbook -n 20 -o json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecords(args)
		},
	}
}

type recordRow struct {
	Offset int64  `json:"offset" yaml:"offset"`
	Sid    uint16 `json:"sid" yaml:"sid"`
	Name   string `json:"name" yaml:"name"`
	Length int    `json:"length" yaml:"length"`
}

// workbookStream reads the named stream, or the first of Workbook and Book.
func workbookStream(f *cfb.File, args []string) (string, []byte, error) {
	if len(args) > 1 {
		data, err := f.ReadStream(args[1])
		return args[1], data, err
	}
	for _, name := range []string{"Workbook", "Book"} {
		data, err := f.ReadStream(name)
		if errors.Is(err, types.ErrNotFound) {
			continue
		}
		return name, data, err
	}
	return "", nil, fmt.Errorf("no Workbook or Book stream: %w", types.ErrNotFound)
}

func scanRecords(data []byte, limit int) ([]recordRow, error) {
	in := biff.NewRecordInputStream(bytes.NewReader(data))
	var rows []recordRow
	var off int64
	for limit == 0 || len(rows) < limit {
		ok, err := in.HasNextRecord()
		if err != nil {
			return rows, err
		}
		if !ok {
			break
		}
		if err := in.NextRecord(); err != nil {
			return rows, err
		}
		n := in.Remaining()
		rows = append(rows, recordRow{Offset: off, Sid: in.Sid(), Name: biff.SidName(in.Sid()), Length: n})
		off += int64(biff.HeaderSize + n)
		if err := in.SkipRemainder(); err != nil {
			return rows, err
		}
	}
	return rows, nil
}

func runRecords(args []string) error {
	f, err := openContainer(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	name, data, err := workbookStream(f, args)
	if err != nil {
		return err
	}
	rows, err := scanRecords(data, recordsLimit)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	if structured() {
		return printStructured(rows)
	}
	if cfg.Quiet {
		return nil
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Offset", "Sid", "Name", "Length"})
	table.SetBorder(false)
	for _, r := range rows {
		table.Append([]string{
			strconv.FormatInt(r.Offset, 10),
			fmt.Sprintf("0x%04X", r.Sid),
			r.Name,
			strconv.Itoa(r.Length),
		})
	}
	table.Render()
	printInfo("\n%s: %d records\n", name, len(rows))
	return nil
}
