package dataprocessing

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rahul-epicap/valuation-agent/internal/valuation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// setDataSheet writes a transposed data sheet: tickers in row 7 from column
// C, a duplicate ticker row 8, then dates in column B with values per ticker.
func setDataSheet(t *testing.T, f *excelize.File, sheet string, tickers []string, dates []string, values [][]any) {
	t.Helper()

	if _, err := f.NewSheet(sheet); err != nil {
		t.Fatalf("new sheet %s: %v", sheet, err)
	}

	for i, ticker := range tickers {
		col := 3 + i
		for _, row := range []int{7, 8} {
			axis, err := excelize.CoordinatesToCellName(col, row)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, axis, ticker))
		}
	}

	for di, date := range dates {
		row := 9 + di
		axis, err := excelize.CoordinatesToCellName(2, row)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, axis, date))

		for ti := range tickers {
			axis, err := excelize.CoordinatesToCellName(3+ti, row)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, axis, values[di][ti]))
		}
	}
}

func buildWorkbook(t *testing.T) io.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	tickers := []string{"ADBE US Equity", "CRM US Equity", "NOW US Equity"}
	dates := []string{"2015-03-31", "2015-06-30", "2015-09-30"}

	setDataSheet(t, f, "EV - Rev", tickers, dates, [][]any{
		{8.1234, 7.5, 12.34567},
		{8.4, "#N/A", 12.9},
		{8.9, 7.9, 13.2},
	})
	setDataSheet(t, f, "PE", tickers, dates, [][]any{
		{35.0, 60.0, 80.0},
		{36.0, 61.0, 81.0},
		{37.0, 62.0, 82.0},
	})
	setDataSheet(t, f, "Rev Growth", tickers, dates, [][]any{
		{0.15, 0.25, 0.35},
		{0.14, 0.24, 0.34},
		{0.13, 0.23, 0.33},
	})
	setDataSheet(t, f, "EPS Growth", tickers, dates, [][]any{
		{0.20, 0.30, 0.40},
		{0.19, 0.29, 0.39},
		{0.18, 0.28, 0.38},
	})
	setDataSheet(t, f, "Forward EPS", tickers, dates, [][]any{
		{6.5, 1.2, 3.3},
		{6.6, 1.3, 3.4},
		{6.7, 1.4, 3.5},
	})

	_, err := f.NewSheet("Industries")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Industries", "A1", "Ticker"))
	require.NoError(t, f.SetCellValue("Industries", "B1", "Industry"))
	require.NoError(t, f.SetCellValue("Industries", "A2", "ADBE US Equity"))
	require.NoError(t, f.SetCellValue("Industries", "B2", "Software"))
	require.NoError(t, f.SetCellValue("Industries", "A3", "CRM"))
	require.NoError(t, f.SetCellValue("Industries", "B3", "Software"))
	require.NoError(t, f.SetCellValue("Industries", "A4", "GHOST"))
	require.NoError(t, f.SetCellValue("Industries", "B4", "Hardware"))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestParseWorkbook(t *testing.T) {
	ds, err := ParseWorkbook(buildWorkbook(t), testLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{"2015-03-31", "2015-06-30", "2015-09-30"}, ds.Dates)

	// GHOST appears only in the industry lookup with no data anywhere, so it
	// is stripped from the ticker list
	assert.Equal(t, []string{"ADBE", "CRM", "NOW"}, ds.Tickers)

	assert.Equal(t, "Software", ds.Industries["ADBE"])
	assert.Equal(t, "Software", ds.Industries["CRM"])
	assert.Equal(t, "Hardware", ds.Industries["GHOST"])

	t.Run("values rounded to four decimals", func(t *testing.T) {
		v := ds.Value("NOW", valuation.CodeEVRevenue, 0)
		require.NotNil(t, v)
		assert.InDelta(t, 12.3457, *v, 1e-9)
	})

	t.Run("error strings become nulls", func(t *testing.T) {
		assert.Nil(t, ds.Value("CRM", valuation.CodeEVRevenue, 1))
		v := ds.Value("CRM", valuation.CodeEVRevenue, 2)
		require.NotNil(t, v)
		assert.InDelta(t, 7.9, *v, 1e-9)
	})

	t.Run("missing sheet fills metric with nulls", func(t *testing.T) {
		for di := range ds.Dates {
			assert.Nil(t, ds.Value("ADBE", valuation.CodeEVGP, di))
		}
	})

	t.Run("stripped ticker has no metric series", func(t *testing.T) {
		assert.False(t, ds.HasTicker("GHOST"))
	})
}

func TestParseWorkbookDateUnion(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	setDataSheet(t, f, "PE", []string{"AAA US Equity"}, []string{"2016-06-30", "2016-03-31"}, [][]any{
		{20.0},
		{21.0},
	})
	setDataSheet(t, f, "Rev Growth", []string{"AAA US Equity"}, []string{"2016-09-30"}, [][]any{
		{0.10},
	})

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	ds, err := ParseWorkbook(bytes.NewReader(buf.Bytes()), testLogger())
	require.NoError(t, err)

	// Sorted union of both sheets' dates
	assert.Equal(t, []string{"2016-03-31", "2016-06-30", "2016-09-30"}, ds.Dates)

	pe0 := ds.Value("AAA", valuation.CodePE, 0)
	require.NotNil(t, pe0)
	assert.InDelta(t, 21.0, *pe0, 1e-9)

	pe1 := ds.Value("AAA", valuation.CodePE, 1)
	require.NotNil(t, pe1)
	assert.InDelta(t, 20.0, *pe1, 1e-9)

	// PE sheet has no 2016-09-30 row
	assert.Nil(t, ds.Value("AAA", valuation.CodePE, 2))

	rg := ds.Value("AAA", valuation.CodeRevGrowth, 2)
	require.NotNil(t, rg)
	assert.InDelta(t, 0.10, *rg, 1e-9)
}

func TestParseWorkbookDataStartsAtRowEight(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "PE"))
	require.NoError(t, f.SetCellValue("PE", "C7", "AAA US Equity"))
	// No duplicate header row, first date directly at row 8
	require.NoError(t, f.SetCellValue("PE", "B8", "2017-03-31"))
	require.NoError(t, f.SetCellValue("PE", "C8", 25.0))
	require.NoError(t, f.SetCellValue("PE", "B9", "2017-06-30"))
	require.NoError(t, f.SetCellValue("PE", "C9", 26.0))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	ds, err := ParseWorkbook(bytes.NewReader(buf.Bytes()), testLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{"2017-03-31", "2017-06-30"}, ds.Dates)
	v := ds.Value("AAA", valuation.CodePE, 1)
	require.NotNil(t, v)
	assert.InDelta(t, 26.0, *v, 1e-9)
}

func TestParseWorkbookDuplicateTickerColumns(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "PE"))
	require.NoError(t, f.SetCellValue("PE", "C7", "AAA US Equity"))
	require.NoError(t, f.SetCellValue("PE", "D7", "AAA US Equity"))
	require.NoError(t, f.SetCellValue("PE", "B8", "2017-03-31"))
	require.NoError(t, f.SetCellValue("PE", "C8", 25.0))
	require.NoError(t, f.SetCellValue("PE", "D8", 99.0))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	ds, err := ParseWorkbook(bytes.NewReader(buf.Bytes()), testLogger())
	require.NoError(t, err)

	require.Equal(t, []string{"AAA"}, ds.Tickers)
	v := ds.Value("AAA", valuation.CodePE, 0)
	require.NotNil(t, v)
	assert.InDelta(t, 25.0, *v, 1e-9, "first column wins for duplicate tickers")
}

func TestParseWorkbookInvalidFile(t *testing.T) {
	_, err := ParseWorkbook(bytes.NewReader([]byte("not a workbook")), testLogger())
	require.Error(t, err)
}

func TestCleanTicker(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"ADBE US Equity", "ADBE", true},
		{"  CRM US Equity  ", "CRM", true},
		{"NOW", "NOW", true},
		{"#N/A", "", false},
		{"", "", false},
		{"   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := cleanTicker(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanValue(t *testing.T) {
	t.Run("rounds to four decimals", func(t *testing.T) {
		v := cleanValue("1.23456789")
		require.NotNil(t, v)
		assert.InDelta(t, 1.2346, *v, 1e-9)
	})

	t.Run("strips thousands separators", func(t *testing.T) {
		v := cleanValue("1,234.5")
		require.NotNil(t, v)
		assert.InDelta(t, 1234.5, *v, 1e-9)
	})

	for _, s := range []string{"#N/A", "#DIV/0!", "N/A", "", "abc"} {
		assert.Nil(t, cleanValue(s), "expected nil for %q", s)
	}
}
