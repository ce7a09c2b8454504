package store

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sjsage522/goldpriceworker/internal/gold"
)

func sampleSeries() gold.Series {
	return gold.Series{
		{
			Date:    "2024-01-01",
			Time:    "10:00:00",
			Sell:    [3]*int64{gold.Price(1561000), gold.Price(1689000), gold.Price(1610000)},
			Buyback: [3]*int64{gold.Price(1402000), nil, gold.Price(1420000)},
		},
		{
			Date:    "2024-01-01",
			Time:    "11:00:00",
			Sell:    [3]*int64{gold.Price(1562000), gold.Price(1690000), gold.Price(1611000)},
			Buyback: [3]*int64{gold.Price(1403000), gold.Price(1500000), gold.Price(1421000)},
		},
	}
}

func TestWriteAllReadAllRoundTrip(t *testing.T) {
	s := NewExcelStore(t.TempDir())

	require.NoError(t, s.WriteAll(gold.OneGram, sampleSeries()))

	got, err := s.ReadAll(gold.OneGram)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-01-01", got[0].Date)
	assert.Equal(t, "10:00:00", got[0].Time)
	assert.Equal(t, int64(1689000), *got[0].Sell[gold.ANTAM])
	assert.Nil(t, got[0].Buyback[gold.ANTAM], "empty cells read back as null")
	assert.True(t, got[1].SamePrices(sampleSeries()[1]))

	_, err = os.Stat(s.Path(gold.OneGram))
	assert.NoError(t, err)
}

func TestReadAllMissingTable(t *testing.T) {
	s := NewExcelStore(t.TempDir())

	_, err := s.ReadAll(gold.TwoGram)
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestEnsureStructureCreatesEmptyTables(t *testing.T) {
	s := NewExcelStore(t.TempDir() + "/nested")

	require.NoError(t, s.EnsureStructure())

	for _, w := range gold.Weights {
		got, err := s.ReadAll(w)
		require.NoError(t, err)
		assert.Empty(t, got)

		header := readHeader(t, s.Path(w))
		assert.Equal(t, Columns(), header)
	}
}

func TestReadAllAddsMissingColumns(t *testing.T) {
	s := NewExcelStore(t.TempDir())
	require.NoError(t, os.MkdirAll(s.dir, 0o755))

	// legacy table without UBS columns and with shuffled order
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", SheetName)
	require.NoError(t, f.SetSheetRow(SheetName, "A1", &[]interface{}{
		"Time", "Date", "ANTAM_Sell", "ANTAM_Buyback", "GALERI24_Sell", "GALERI24_Buyback",
	}))
	require.NoError(t, f.SetSheetRow(SheetName, "A2", &[]interface{}{
		"09:00:00", "2023-12-31", 1680000, 1490000, 1550000, 1400000,
	}))
	require.NoError(t, f.SaveAs(s.Path(gold.OneGram)))
	require.NoError(t, f.Close())

	got, err := s.ReadAll(gold.OneGram)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2023-12-31", got[0].Date)
	assert.Equal(t, "09:00:00", got[0].Time)
	assert.Equal(t, int64(1550000), *got[0].Sell[gold.G24])
	assert.Equal(t, int64(1490000), *got[0].Buyback[gold.ANTAM])
	assert.Nil(t, got[0].Sell[gold.UBS])

	assert.Equal(t, Columns(), readHeader(t, s.Path(gold.OneGram)), "table is rewritten in canonical order")
}

func TestReadAllRecreatesCorruptTable(t *testing.T) {
	s := NewExcelStore(t.TempDir())
	require.NoError(t, os.WriteFile(s.Path(gold.TwoGram), []byte("not a workbook"), 0o644))

	got, err := s.ReadAll(gold.TwoGram)
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.Equal(t, Columns(), readHeader(t, s.Path(gold.TwoGram)))
}

func TestParseCell(t *testing.T) {
	assert.Nil(t, parseCell(""))
	assert.Nil(t, parseCell("n/a"))
	assert.Equal(t, int64(1561000), *parseCell("1561000"))
	assert.Equal(t, int64(1561000), *parseCell("1561000.0"))
	assert.Equal(t, int64(1561000), *parseCell("1.561E+06"))
}

func readHeader(t *testing.T, path string) []string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	return rows[0]
}
