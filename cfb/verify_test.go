package cfb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/cfbkit/internal/format"
	"github.com/joshuapare/cfbkit/pkg/types"
)

func verify(t *testing.T, r *rawContainer) *types.DiagnosticReport {
	t.Helper()
	f, err := OpenBytes(r.bytes())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	rep, err := f.Verify()
	require.NoError(t, err)
	return rep
}

func TestVerifyClean(t *testing.T) {
	rep := verify(t, workbookContainer(t))
	require.False(t, rep.HasAnyIssues(), rep.FormatText())
}

func TestVerifySavedContainer(t *testing.T) {
	f, err := New()
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.WriteStream("Small", payload(100)))
	require.NoError(t, f.WriteStream("Large", payload(9000)))
	_, err = f.CreateStorage("Dir")
	require.NoError(t, err)
	require.NoError(t, f.WriteStream("Dir/Inner", payload(700)))

	g := saveAndReopen(t, f)
	rep, err := g.Verify()
	require.NoError(t, err)
	require.False(t, rep.HasErrors(), rep.FormatText())
	require.Zero(t, rep.Summary.Warnings, rep.FormatText())
}

func TestVerifyRequiresSavedState(t *testing.T) {
	f, err := New()
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.WriteStream("Data", payload(10)))

	_, err = f.Verify()
	require.ErrorIs(t, err, types.ErrState)
}

func TestVerifyCorruptStream(t *testing.T) {
	r := workbookContainer(t)
	r.putEntry(t, 1, 1, streamEntry("Workbook", 2, 8192))

	rep := verify(t, r)
	require.True(t, rep.HasErrors())
	errs := rep.BySeverity(types.SevError)
	require.Len(t, errs, 1)
	require.Equal(t, "/Workbook", errs[0].Path)
	require.Equal(t, types.DiagData, errs[0].Category)
	require.Equal(t, int64(3*format.SmallSectorSize), errs[0].Offset)
}

func TestVerifySharedChain(t *testing.T) {
	r := workbookContainer(t)
	wb := streamEntry("Workbook", 2, 2048)
	wb.Left = 2
	r.putEntry(t, 1, 1, wb)
	r.putEntry(t, 1, 2, streamEntry("Book", 6, 1024))

	rep := verify(t, r)
	var warned []string
	for _, d := range rep.BySeverity(types.SevWarning) {
		warned = append(warned, d.Path)
	}
	require.ElementsMatch(t, []string{"/Book", "/Workbook"}, warned)

	errs := rep.BySeverity(types.SevError)
	require.NotEmpty(t, errs)
	for _, d := range errs {
		require.Equal(t, types.DiagIntegrity, d.Category)
	}
}

func TestVerifyLeakedSectors(t *testing.T) {
	r := workbookContainer(t)
	r.setFAT(format.FATSect, format.EndOfChain, 3, 4, 5, format.EndOfChain, 7, 8, 9, format.EndOfChain)
	r.putEntry(t, 1, 1, streamEntry("Workbook", 2, 2048))

	rep := verify(t, r)
	require.False(t, rep.HasErrors(), rep.FormatText())
	info := rep.BySeverity(types.SevInfo)
	require.Len(t, info, 1)
	require.Contains(t, info[0].Issue, "4 allocated units")
	require.Equal(t, int64(7*format.SmallSectorSize), info[0].Offset)
}
