package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/cfbkit/biff"
	"github.com/joshuapare/cfbkit/biff/cf"
	"github.com/joshuapare/cfbkit/biff/ptg"
	"github.com/joshuapare/cfbkit/cfb"
	"github.com/joshuapare/cfbkit/internal/buf"
)

// captureOutput captures stdout while running fn.
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan []byte)
	go func() {
		var b bytes.Buffer
		_, _ = b.ReadFrom(r)
		done <- b.Bytes()
	}()

	fnErr := fn()
	w.Close()
	os.Stdout = orig
	return string(<-done), fnErr
}

// useConfig resets global flags for one test.
func useConfig(t *testing.T, c config) {
	t.Helper()
	if c.Output == "" {
		c.Output = "text"
	}
	prev := cfg
	cfg = c
	lsRecursive, treeDepth, recordsLimit = false, 0, 0
	putCreate, putParents, putSectorSize = false, false, 512
	verifyCompact = false
	cfInsertRows, cfDeleteRows, cfInsertCols, cfDeleteCols = "", "", "", ""
	t.Cleanup(func() { cfg = prev })
}

func refFormula(row, col int) []byte {
	f := []byte{ptg.OpRef}
	f = buf.AppendU16(f, uint16(row))
	return buf.AppendU16(f, uint16(col))
}

// workbookRecords builds a two-sheet BIFF stream; the first sheet holds
// one conditional formatting block over B5:C10.
func workbookRecords(t *testing.T) []byte {
	t.Helper()
	block, err := cf.NewAggregate(
		[]ptg.Area{{FirstRow: 4, LastRow: 9, FirstCol: 1, LastCol: 2}},
		[]*cf.Rule{cf.NewFormulaRule(refFormula(11, 0))},
	)
	require.NoError(t, err)

	recs := []biff.Record{
		&biff.BOFRecord{Version: 0x0600, Type: biff.BOFWorkbook},
		biff.EOFRecord{},
		&biff.BOFRecord{Version: 0x0600, Type: biff.BOFWorksheet},
		&biff.DimensionsRecord{LastRow: 20, LastCol: 4},
	}
	recs = append(recs, block.Records()...)
	recs = append(recs, biff.EOFRecord{})

	var out bytes.Buffer
	require.NoError(t, biff.NewRecordWriter(&out).WriteAll(recs))
	return out.Bytes()
}

// multiSheetWorkbook writes a container whose globals bind two sheets, each
// with one conditional formatting block: B3:C4 on the first and B21:C26 on
// the second.
func multiSheetWorkbook(t *testing.T) string {
	t.Helper()
	block := func(first, last uint16) []biff.Record {
		a, err := cf.NewAggregate(
			[]ptg.Area{{FirstRow: int(first), LastRow: int(last), FirstCol: 1, LastCol: 2}},
			[]*cf.Rule{cf.NewFormulaRule(refFormula(int(first), 0))},
		)
		require.NoError(t, err)
		return a.Records()
	}
	one := &biff.BoundSheetRecord{Name: "One"}
	two := &biff.BoundSheetRecord{Name: "Two"}
	recs := []biff.Record{
		&biff.BOFRecord{Version: 0x0600, Type: biff.BOFWorkbook},
		one,
		two,
		biff.EOFRecord{},
		&biff.BOFRecord{Version: 0x0600, Type: biff.BOFWorksheet},
	}
	recs = append(recs, block(2, 3)...)
	recs = append(recs, biff.EOFRecord{}, &biff.BOFRecord{Version: 0x0600, Type: biff.BOFWorksheet})
	recs = append(recs, block(20, 25)...)
	recs = append(recs, biff.EOFRecord{})
	offsets := biff.SubstreamOffsets(recs)
	require.Len(t, offsets, 3)
	one.Position, two.Position = offsets[1], offsets[2]

	var out bytes.Buffer
	require.NoError(t, biff.NewRecordWriter(&out).WriteAll(recs))

	f, err := cfb.New()
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.WriteStream("Workbook", out.Bytes()))
	path := filepath.Join(t.TempDir(), "sheets.xls")
	require.NoError(t, f.SaveFile(path))
	return path
}

// newWorkbook writes a container with a Workbook stream and a storage.
func newWorkbook(t *testing.T) string {
	t.Helper()
	f, err := cfb.New()
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.WriteStream("Workbook", workbookRecords(t)))
	_, err = f.CreateStorage("_VBA_PROJECT_CUR")
	require.NoError(t, err)
	require.NoError(t, f.WriteStream("_VBA_PROJECT_CUR/PROJECT", []byte("ID=\"{}\"")))

	path := filepath.Join(t.TempDir(), "book.xls")
	require.NoError(t, f.SaveFile(path))
	return path
}

func assertJSON(t *testing.T, output string) {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(output), &v), output)
}

func assertContains(t *testing.T, output string, want ...string) {
	t.Helper()
	for _, w := range want {
		require.True(t, strings.Contains(output, w), "output missing %q\n%s", w, output)
	}
}
