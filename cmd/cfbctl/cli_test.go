package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/joshuapare/cfbkit/biff"
	"github.com/joshuapare/cfbkit/cfb"
	"github.com/joshuapare/cfbkit/internal/buf"
	"github.com/joshuapare/cfbkit/internal/format"
	"github.com/joshuapare/cfbkit/pkg/types"
)

func TestInfoCommand(t *testing.T) {
	path := newWorkbook(t)

	useConfig(t, config{})
	out, err := captureOutput(t, func() error { return runInfo([]string{path}) })
	require.NoError(t, err)
	assertContains(t, out, "Sector size: 512", "Directory entries:")

	useConfig(t, config{Output: "json"})
	out, err = captureOutput(t, func() error { return runInfo([]string{path}) })
	require.NoError(t, err)
	assertJSON(t, out)
	assertContains(t, out, `"sector_size": 512`)

	useConfig(t, config{Output: "yaml"})
	out, err = captureOutput(t, func() error { return runInfo([]string{path}) })
	require.NoError(t, err)
	var info types.ContainerInfo
	require.NoError(t, yaml.Unmarshal([]byte(out), &info))
	require.Equal(t, 64, info.MiniSectorSize)
}

func TestInfoRejectsOtherFormats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, os.WriteFile(path, append([]byte("PK\x03\x04"), make([]byte, 1020)...), 0o644))

	useConfig(t, config{})
	_, err := captureOutput(t, func() error { return runInfo([]string{path}) })
	require.ErrorIs(t, err, types.ErrWrongFormat)
}

func TestLsCommand(t *testing.T) {
	path := newWorkbook(t)

	useConfig(t, config{})
	out, err := captureOutput(t, func() error { return runLs([]string{path}) })
	require.NoError(t, err)
	assertContains(t, out, "Workbook", "_VBA_PROJECT_CUR", "Total: 2 entries")

	useConfig(t, config{Output: "json"})
	lsRecursive = true
	out, err = captureOutput(t, func() error { return runLs([]string{path}) })
	require.NoError(t, err)
	assertJSON(t, out)
	assertContains(t, out, `"path": "/_VBA_PROJECT_CUR/PROJECT"`)

	useConfig(t, config{})
	_, err = captureOutput(t, func() error { return runLs([]string{path, "Workbook"}) })
	require.Error(t, err)
}

func TestTreeCommand(t *testing.T) {
	path := newWorkbook(t)

	useConfig(t, config{})
	out, err := captureOutput(t, func() error { return runTree([]string{path}) })
	require.NoError(t, err)
	assertContains(t, out, "Root Entry", "_VBA_PROJECT_CUR/", "PROJECT (7 B)")

	useConfig(t, config{Output: "yaml"})
	treeDepth = 1
	out, err = captureOutput(t, func() error { return runTree([]string{path}) })
	require.NoError(t, err)
	var root treeNode
	require.NoError(t, yaml.Unmarshal([]byte(out), &root))
	require.Len(t, root.Children, 2)
	for _, c := range root.Children {
		require.Empty(t, c.Children)
	}
}

func TestCatCommand(t *testing.T) {
	path := newWorkbook(t)
	useConfig(t, config{})

	var got bytes.Buffer
	require.NoError(t, runCat([]string{path, "_VBA_PROJECT_CUR/PROJECT"}, &got))
	require.Equal(t, `ID="{}"`, got.String())

	require.ErrorIs(t, runCat([]string{path, "missing"}, &got), types.ErrNotFound)
	require.ErrorIs(t, runCat([]string{path, "_VBA_PROJECT_CUR"}, &got), types.ErrState)
}

func TestPutAndRm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.cfb")
	useConfig(t, config{})
	putCreate, putParents = true, true

	payload := bytes.Repeat([]byte("data"), 2000)
	require.NoError(t, runPut(path, "Docs/Notes/Big", bytes.NewReader(payload)))
	putCreate = false
	require.NoError(t, runPut(path, "Docs/Small", strings.NewReader("hi")))

	f, err := cfb.Open(path)
	require.NoError(t, err)
	got, err := f.ReadStream("Docs/Notes/Big")
	require.NoError(t, err)
	require.Equal(t, payload, got)
	got, err = f.ReadStream("docs/small")
	require.NoError(t, err)
	require.Equal(t, []byte("hi"), got)
	require.NoError(t, f.Close())

	require.NoError(t, runRm(path, "Docs/Notes"))
	f, err = cfb.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Lookup("Docs/Notes/Big")
	require.ErrorIs(t, err, types.ErrNotFound)
	_, err = f.Lookup("Docs/Small")
	require.NoError(t, err)

	require.ErrorIs(t, runRm(path, "Nope"), types.ErrNotFound)
}

func TestPutWithoutCreate(t *testing.T) {
	useConfig(t, config{})
	err := runPut(filepath.Join(t.TempDir(), "absent.cfb"), "S", strings.NewReader("x"))
	require.Error(t, err)
}

func TestRecordsCommand(t *testing.T) {
	path := newWorkbook(t)

	useConfig(t, config{})
	out, err := captureOutput(t, func() error { return runRecords([]string{path}) })
	require.NoError(t, err)
	assertContains(t, out, "BOF", "DIMENSIONS", "CFHEADER", "0x01B1", "Workbook: 7 records")

	useConfig(t, config{Output: "json"})
	recordsLimit = 2
	out, err = captureOutput(t, func() error { return runRecords([]string{path}) })
	require.NoError(t, err)
	assertJSON(t, out)
	require.Equal(t, 2, strings.Count(out, `"sid"`))
	assertContains(t, out, `"offset": 20`)
}

func TestCFCommandListsAndShifts(t *testing.T) {
	path := newWorkbook(t)

	useConfig(t, config{})
	out, err := captureOutput(t, func() error { return runCF([]string{path}) })
	require.NoError(t, err)
	assertContains(t, out, "B5:C10", "A12")

	cfDeleteRows = "0:2"
	out, err = captureOutput(t, func() error { return runCF([]string{path}) })
	require.NoError(t, err)
	assertContains(t, out, "removed 0 blocks", "B3:C8", "A10")

	useConfig(t, config{Output: "json"})
	out, err = captureOutput(t, func() error { return runCF([]string{path}) })
	require.NoError(t, err)
	assertContains(t, out, `"B3:C8"`)

	useConfig(t, config{})
	cfDeleteRows = "2:6"
	out, err = captureOutput(t, func() error { return runCF([]string{path}) })
	require.NoError(t, err)
	assertContains(t, out, "removed 1 blocks")

	useConfig(t, config{})
	out, err = captureOutput(t, func() error { return runRecords([]string{path}) })
	require.NoError(t, err)
	assertContains(t, out, "Workbook: 5 records")
}

func TestCFShiftRelocatesSheets(t *testing.T) {
	path := multiSheetWorkbook(t)

	useConfig(t, config{})
	cfDeleteRows = "2:6"
	out, err := captureOutput(t, func() error { return runCF([]string{path}) })
	require.NoError(t, err)
	assertContains(t, out, "removed 1 blocks", "B15:C20")

	f, err := cfb.Open(path)
	require.NoError(t, err)
	defer f.Close()
	data, err := f.ReadStream("Workbook")
	require.NoError(t, err)
	recs, err := biff.ReadRecords(biff.NewRecordInputStream(bytes.NewReader(data)), nil)
	require.NoError(t, err)

	var sheets []*biff.BoundSheetRecord
	for _, r := range recs {
		if bs, ok := r.(*biff.BoundSheetRecord); ok {
			sheets = append(sheets, bs)
		}
	}
	require.Len(t, sheets, 2)
	require.Equal(t, biff.SubstreamOffsets(recs)[1:], []uint32{sheets[0].Position, sheets[1].Position})
	for _, bs := range sheets {
		require.Less(t, int(bs.Position)+biff.HeaderSize, len(data))
		require.Equal(t, biff.SidBOF, buf.U16LE(data[bs.Position:]), bs.Name)
	}
}

func TestParseShift(t *testing.T) {
	useConfig(t, config{})
	s, err := parseShift()
	require.NoError(t, err)
	require.Nil(t, s)

	cfInsertCols = "3:1"
	s, err = parseShift()
	require.NoError(t, err)
	require.NotNil(t, s)

	cfDeleteRows = "1:1"
	_, err = parseShift()
	require.Error(t, err)

	useConfig(t, config{})
	cfInsertRows = "x"
	_, err = parseShift()
	require.Error(t, err)
}

func TestVerifyCommand(t *testing.T) {
	path := newWorkbook(t)

	useConfig(t, config{})
	out, err := captureOutput(t, func() error { return runVerify([]string{path}) })
	require.NoError(t, err)
	assertContains(t, out, "Compound File Diagnostic Report", "Errors:   0")

	useConfig(t, config{Output: "json"})
	out, err = captureOutput(t, func() error { return runVerify([]string{path}) })
	require.NoError(t, err)
	assertJSON(t, out)
	assertContains(t, out, `"summary"`, `"file_path"`)
}

func TestVerifyCommandReportsTruncatedChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.cfb")
	f, err := cfb.New()
	require.NoError(t, err)
	require.NoError(t, f.WriteStream("Big", bytes.Repeat([]byte{7}, 5000)))
	require.NoError(t, f.SaveFile(path))
	require.NoError(t, f.Close())

	f, err = cfb.Open(path)
	require.NoError(t, err)
	e, err := f.Lookup("Big")
	require.NoError(t, err)
	start, fatSector := e.Start(), f.Header().DIFAT[0]
	require.NoError(t, f.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	format.PutU32(raw, int(fatSector+1)*512+int(start)*4, format.EndOfChain)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	useConfig(t, config{})
	verifyCompact = true
	out, err := captureOutput(t, func() error { return runVerify([]string{path}) })
	require.ErrorIs(t, err, errVerifyFailed)
	assertContains(t, out, "error/stream/data", "(/Big)")
}
