package dataprocessing

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rahul-epicap/valuation-agent/internal/valuation"
)

// sheetMetricMap maps workbook sheet names to metric codes.
var sheetMetricMap = map[string]valuation.MetricCode{
	"EV - Rev":    valuation.CodeEVRevenue,
	"EV - GP":     valuation.CodeEVGP,
	"PE":          valuation.CodePE,
	"Rev Growth":  valuation.CodeRevGrowth,
	"EPS Growth":  valuation.CodeEPSGrowth,
	"Forward EPS": valuation.CodeForwardEPS,
}

// industriesSheet is the two-column ticker-to-industry lookup sheet.
const industriesSheet = "Industries"

// nullStrings are cell values treated as missing data.
var nullStrings = map[string]struct{}{
	"#N/A":    {},
	"#VALUE!": {},
	"#REF!":   {},
	"#DIV/0!": {},
	"#NULL!":  {},
	"#NAME?":  {},
	"#NUM!":   {},
	"N/A":     {},
	"":        {},
}

const (
	tickerRow        = 7
	firstDataColumn  = 3
	dateColumn       = 2
	bloombergSuffix  = " US Equity"
	lastDataStartRow = 10
)

// sheetData holds the parsed contents of a single data sheet.
type sheetData struct {
	dates   []string
	tickers []string
	values  map[string][]*float64
}

// ParseWorkbook reads a BQL-exported Excel workbook and builds a unified
// Dataset: dates are the sorted union across all data sheets, tickers the
// union across sheets plus the industry lookup, and each ticker carries a
// value slice per metric aligned to the unified date axis.
func ParseWorkbook(r io.Reader, logger *slog.Logger) (*valuation.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := make(map[string]struct{})
	for _, name := range f.GetSheetList() {
		sheets[name] = struct{}{}
	}

	dateSet := make(map[string]struct{})
	results := make(map[valuation.MetricCode]sheetData)

	for sheetName, code := range sheetMetricMap {
		if _, ok := sheets[sheetName]; !ok {
			logger.Debug("sheet not found, skipping metric",
				"sheet", sheetName,
				"metric", string(code),
			)
			results[code] = sheetData{values: map[string][]*float64{}}
			continue
		}

		sd := parseDataSheet(f, sheetName, logger)
		results[code] = sd
		for _, d := range sd.dates {
			dateSet[d] = struct{}{}
		}

		logger.Info("parsed data sheet",
			"sheet", sheetName,
			"metric", string(code),
			"dates", len(sd.dates),
			"tickers", len(sd.tickers),
		)
	}

	industries := make(map[string]string)
	if _, ok := sheets[industriesSheet]; ok {
		industries = parseIndustriesSheet(f)
		logger.Info("parsed industry mappings", "count", len(industries))
	}

	// Unified date axis, sorted chronologically.
	allDates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		allDates = append(allDates, d)
	}
	sort.Strings(allDates)
	dateIndex := make(map[string]int, len(allDates))
	for i, d := range allDates {
		dateIndex[d] = i
	}

	// Unified ticker list across all sheets and the industry lookup.
	tickerSet := make(map[string]struct{})
	for _, sd := range results {
		for _, t := range sd.tickers {
			tickerSet[t] = struct{}{}
		}
	}
	for t := range industries {
		tickerSet[t] = struct{}{}
	}
	allTickers := make([]string, 0, len(tickerSet))
	for t := range tickerSet {
		allTickers = append(allTickers, t)
	}
	sort.Strings(allTickers)

	metrics := make(map[string]valuation.MetricSeries, len(allTickers))
	for _, ticker := range allTickers {
		series := make(valuation.MetricSeries, len(valuation.AllMetricCodes))
		for _, code := range valuation.AllMetricCodes {
			sd := results[code]
			values := make([]*float64, len(allDates))
			if tickerValues, ok := sd.values[ticker]; ok {
				for i, date := range sd.dates {
					if i >= len(tickerValues) {
						break
					}
					if idx, ok := dateIndex[date]; ok {
						values[idx] = tickerValues[i]
					}
				}
			}
			series[code] = values
		}
		metrics[ticker] = series
	}

	// Strip tickers where every metric is entirely null.
	kept := make([]string, 0, len(allTickers))
	stripped := 0
	for _, ticker := range allTickers {
		if seriesAllNull(metrics[ticker]) {
			delete(metrics, ticker)
			stripped++
			continue
		}
		kept = append(kept, ticker)
	}
	if stripped > 0 {
		logger.Info("stripped all-null tickers", "count", stripped)
	}

	ds := &valuation.Dataset{
		Dates:      allDates,
		Tickers:    kept,
		Industries: industries,
		Metrics:    metrics,
	}

	logger.Info("workbook parsed",
		"dates", len(ds.Dates),
		"tickers", len(ds.Tickers),
		"industries", len(ds.Industries),
	)

	return ds, nil
}

// parseDataSheet reads one transposed data sheet: tickers in row 7 columns
// C onward, dates in column B, values in the ticker columns. Row 8 may repeat
// the ticker header, so the first data row is auto-detected from rows 8-10.
func parseDataSheet(f *excelize.File, sheet string, logger *slog.Logger) sheetData {
	empty := sheetData{values: map[string][]*float64{}}

	maxCol, maxRow := sheetBounds(f, sheet)
	if maxCol < firstDataColumn || maxRow < tickerRow+2 {
		logger.Warn("sheet too small to contain data", "sheet", sheet)
		return empty
	}

	// Tickers from row 7, falling back to row 8 for workbooks without the
	// metric label row.
	type tickerCol struct {
		col    int
		ticker string
	}
	var rawTickers []tickerCol
	for _, row := range []int{tickerRow, tickerRow + 1} {
		for col := firstDataColumn; col <= maxCol; col++ {
			if ticker, ok := cleanTicker(cellString(f, sheet, col, row)); ok {
				rawTickers = append(rawTickers, tickerCol{col: col, ticker: ticker})
			}
		}
		if len(rawTickers) > 0 {
			break
		}
	}
	if len(rawTickers) == 0 {
		logger.Warn("no tickers found", "sheet", sheet)
		return empty
	}

	// First data row is the first of rows 8-10 whose column B holds a date.
	dataStartRow := 0
	for candidate := tickerRow + 1; candidate <= lastDataStartRow; candidate++ {
		if _, ok := cellDate(f, sheet, dateColumn, candidate); ok {
			dataStartRow = candidate
			break
		}
	}
	if dataStartRow == 0 {
		logger.Warn("cannot find date column start", "sheet", sheet)
		return empty
	}

	var dates []string
	var dateRows []int
	for row := dataStartRow; row <= maxRow; row++ {
		if strings.TrimSpace(cellString(f, sheet, dateColumn, row)) == "" {
			continue
		}
		date, ok := cellDate(f, sheet, dateColumn, row)
		if !ok {
			break
		}
		dates = append(dates, date)
		dateRows = append(dateRows, row)
	}
	if len(dates) == 0 {
		logger.Warn("no dates found", "sheet", sheet)
		return empty
	}

	tickers := make([]string, 0, len(rawTickers))
	values := make(map[string][]*float64, len(rawTickers))
	for _, tc := range rawTickers {
		if _, exists := values[tc.ticker]; exists {
			// Duplicate ticker column, keep the first
			continue
		}
		column := make([]*float64, 0, len(dateRows))
		for _, row := range dateRows {
			column = append(column, cleanValue(cellString(f, sheet, tc.col, row)))
		}
		tickers = append(tickers, tc.ticker)
		values[tc.ticker] = column
	}

	return sheetData{dates: dates, tickers: tickers, values: values}
}

// parseIndustriesSheet reads the two-column ticker-to-industry lookup.
// Row 1 is a header; tickers may carry the Bloomberg suffix.
func parseIndustriesSheet(f *excelize.File) map[string]string {
	industries := make(map[string]string)

	rows, err := f.GetRows(industriesSheet)
	if err != nil {
		return industries
	}

	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		ticker, ok := cleanTicker(row[0])
		if !ok {
			continue
		}
		industry := strings.TrimSpace(row[1])
		if _, isNull := nullStrings[industry]; isNull {
			continue
		}
		industries[ticker] = industry
	}

	return industries
}

// cellString reads the formatted value of a cell, returning "" on error.
func cellString(f *excelize.File, sheet string, col, row int) string {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return ""
	}
	val, err := f.GetCellValue(sheet, axis)
	if err != nil {
		return ""
	}
	return val
}

// cellDate interprets a cell as a date, handling both string dates and
// date-styled serial numbers. Returns the date formatted as YYYY-MM-DD.
func cellDate(f *excelize.File, sheet string, col, row int) (string, bool) {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", false
	}

	formatted, err := f.GetCellValue(sheet, axis)
	if err != nil {
		return "", false
	}
	if t, ok := parseDateString(formatted); ok {
		return t.Format("2006-01-02"), true
	}

	// Date-styled cells surface the underlying serial through RawCellValue.
	raw, err := f.GetCellValue(sheet, axis, excelize.Options{RawCellValue: true})
	if err != nil {
		return "", false
	}
	if serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		// Serial range covering 1990 through 2100
		if serial >= 32874 && serial <= 73415 {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return t.Format("2006-01-02"), true
			}
		}
	}

	return "", false
}

// dateLayouts are the spreadsheet date renderings accepted in column B.
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"01-02-06",
	"2-Jan-06",
	"Jan 2, 2006",
}

func parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if len(s) > 10 {
		// Trailing time component from datetime cells
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t, true
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// cleanTicker strips whitespace and the Bloomberg " US Equity" suffix.
// Returns false for empty or error-valued cells.
func cleanTicker(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if _, isNull := nullStrings[s]; isNull {
		return "", false
	}
	if strings.HasSuffix(s, bloombergSuffix) {
		s = strings.TrimSpace(strings.TrimSuffix(s, bloombergSuffix))
	}
	if s == "" {
		return "", false
	}
	return s, true
}

// cleanValue converts a formatted cell value to a float pointer rounded to
// four decimals, or nil for missing and error values.
func cleanValue(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if _, isNull := nullStrings[s]; isNull {
		return nil
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	rounded := math.Round(v*1e4) / 1e4
	return &rounded
}

// seriesAllNull reports whether every value across every metric is nil.
func seriesAllNull(series valuation.MetricSeries) bool {
	for _, values := range series {
		for _, v := range values {
			if v != nil {
				return false
			}
		}
	}
	return true
}

// sheetBounds returns the extent of populated cells as (maxCol, maxRow).
func sheetBounds(f *excelize.File, sheet string) (int, int) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, 0
	}
	maxCol := 0
	for _, row := range rows {
		if len(row) > maxCol {
			maxCol = len(row)
		}
	}
	return maxCol, len(rows)
}
