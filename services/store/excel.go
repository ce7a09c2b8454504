package store

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"sjsage522/goldpriceworker/internal/gold"
	"sjsage522/goldpriceworker/logger"
	perrors "sjsage522/goldpriceworker/pkg/errors"
)

// SheetName is the worksheet holding the daily rows
const SheetName = "Data_Harian"

const defaultSheet = "Sheet1"

// Columns returns the canonical column order of a price table
func Columns() []string {
	cols := []string{"Date", "Time"}
	for _, v := range gold.Vendors {
		cols = append(cols, v.ColumnPrefix()+"_Sell", v.ColumnPrefix()+"_Buyback")
	}
	return cols
}

// ExcelStore keeps each weight's table in its own xlsx workbook
type ExcelStore struct {
	dir string
}

// NewExcelStore creates a store rooted at dir
func NewExcelStore(dir string) *ExcelStore {
	return &ExcelStore{dir: dir}
}

// Path returns the workbook location for weight
func (s *ExcelStore) Path(weight gold.WeightClass) string {
	return filepath.Join(s.dir, fmt.Sprintf("gold_prices_%sg.xlsx", weight))
}

// EnsureStructure implements Store. Missing tables are created empty,
// unreadable ones recreated and tables lacking columns are migrated.
func (s *ExcelStore) EnsureStructure() error {
	log := logger.ForStore()
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return perrors.NewStorage("", "creating data directory failed", err)
	}

	for _, w := range gold.Weights {
		path := s.Path(w)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			log.Info().Str("weight", string(w)).Str("path", path).Msg("Creating empty price table")
			if err := s.WriteAll(w, nil); err != nil {
				return err
			}
			continue
		}

		if _, err := s.ReadAll(w); err != nil {
			return err
		}
		log.Debug().Str("weight", string(w)).Msg("Price table structure verified")
	}
	return nil
}

// ReadAll implements Store
func (s *ExcelStore) ReadAll(weight gold.WeightClass) (gold.Series, error) {
	log := logger.ForStore()
	path := s.Path(weight)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, ErrTableNotFound
	}

	records, err := readSheet(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Price table unreadable, recreating it empty")
		if werr := s.WriteAll(weight, nil); werr != nil {
			return nil, werr
		}
		return gold.Series{}, nil
	}
	if len(records) == 0 {
		log.Warn().Str("path", path).Msg("Price table has no header, rewriting it")
		return gold.Series{}, s.WriteAll(weight, nil)
	}

	index, missing := headerIndex(records[0])
	series := make(gold.Series, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		series = append(series, decodeRow(rec, index))
	}

	if len(missing) > 0 {
		log.Warn().Strs("columns", missing).Str("path", path).Msg("Adding missing columns to price table")
		if err := s.WriteAll(weight, series); err != nil {
			return nil, err
		}
	}
	return series, nil
}

// WriteAll implements Store. The workbook is written next to the target and
// renamed over it.
func (s *ExcelStore) WriteAll(weight gold.WeightClass, series gold.Series) error {
	w := string(weight)
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return perrors.NewStorage(w, "creating data directory failed", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(defaultSheet, SheetName)

	header := make([]interface{}, 0, len(Columns()))
	for _, c := range Columns() {
		header = append(header, c)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return perrors.NewStorage(w, "writing header failed", err)
	}

	for i, row := range series {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return perrors.NewStorage(w, "addressing row failed", err)
		}
		values := encodeRow(row)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return perrors.NewStorage(w, fmt.Sprintf("writing row %d failed", i+2), err)
		}
	}

	path := s.Path(weight)
	tmp := strings.TrimSuffix(path, ".xlsx") + ".tmp.xlsx"
	if err := f.SaveAs(tmp); err != nil {
		return perrors.NewStorage(w, "saving workbook failed", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return perrors.NewStorage(w, "replacing workbook failed", err)
	}

	logger.ForStore().Debug().Str("weight", w).Int("rows", len(series)).Msg("Price table written")
	return nil
}

func readSheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return f.GetRows(SheetName, excelize.Options{RawCellValue: true})
}

// headerIndex maps each canonical column to its position in header, -1 when absent
func headerIndex(header []string) (map[string]int, []string) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[strings.TrimSpace(name)] = i
	}

	index := make(map[string]int)
	var missing []string
	for _, c := range Columns() {
		if i, ok := pos[c]; ok {
			index[c] = i
		} else {
			index[c] = -1
			missing = append(missing, c)
		}
	}
	return index, missing
}

func decodeRow(rec []string, index map[string]int) gold.Row {
	cell := func(col string) string {
		i := index[col]
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	row := gold.Row{Date: cell("Date"), Time: cell("Time")}
	for _, v := range gold.Vendors {
		row.Sell[v] = parseCell(cell(v.ColumnPrefix() + "_Sell"))
		row.Buyback[v] = parseCell(cell(v.ColumnPrefix() + "_Buyback"))
	}
	return row
}

func encodeRow(row gold.Row) []interface{} {
	values := []interface{}{row.Date, row.Time}
	for _, p := range row.Prices() {
		if p == nil {
			values = append(values, nil)
		} else {
			values = append(values, *p)
		}
	}
	return values
}

// parseCell reads a stored price; empty or non-numeric cells are null
func parseCell(text string) *int64 {
	if text == "" {
		return nil
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return gold.Price(n)
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return gold.Price(int64(math.Round(f)))
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
