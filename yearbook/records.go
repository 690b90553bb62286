/*
Copyright © 2026 the AgYield authors.
This file is part of AgYield.

AgYield is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

AgYield is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with AgYield.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package yearbook reads provincial crop yield statistics, extrapolates
// their linear trends, and turns them into gridded yield multipliers.
package yearbook

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ctessum/requestcache"
	"github.com/gocarina/gocsv"
	"github.com/spatialmodel/agyield"
	"github.com/tealeg/xlsx"
)

// ProvinceColumn is the header of the column holding province names.
const ProvinceColumn = "地区"

// Record is the observed yield of a crop in a province in a year.
type Record struct {
	Province string
	Crop     string
	Year     int

	// Yield is in t/ha.
	Yield float64
}

// Reader converts wide-format yearbook tables, with one row per province
// and one column per year, into records.
type Reader struct {
	// Tables translates province names.
	Tables *agyield.Tables

	// Units are the units of the table values. Yearbook tables are in
	// kg/ha.
	Units string
}

// ReadCSV reads the yearbook table for crop from r.
func (yr *Reader) ReadCSV(r io.Reader, crop string) ([]Record, error) {
	rows, err := gocsv.CSVToMaps(r)
	if err != nil {
		return nil, fmt.Errorf("yearbook: reading %s table: %v", crop, err)
	}
	return yr.parse(rows, crop)
}

// ReadCSVFile reads the CSV yearbook table for crop at path.
func (yr *Reader) ReadCSVFile(path, crop string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("yearbook: %v", err)
	}
	defer f.Close()
	return yr.ReadCSV(f, crop)
}

// excelCache holds previously opened Excel files.
var excelCache *requestcache.Cache

var loadExcelCacheOnce sync.Once

// loadExcelFile loads an Excel file from disk, utilizing a cache to avoid
// loading the same file more than once.
func loadExcelFile(fileName string) (*xlsx.File, error) {
	loadExcelCacheOnce.Do(func() {
		excelCache = requestcache.NewCache(func(ctx context.Context, req interface{}) (interface{}, error) {
			f, err := xlsx.OpenFile(req.(string))
			if err != nil {
				return nil, fmt.Errorf("yearbook: opening xlsx file: %v", err)
			}
			return f, nil
		}, runtime.GOMAXPROCS(-1), requestcache.Memory(100))
	})
	r := excelCache.NewRequest(context.Background(), fileName, fileName)
	fI, err := r.Result()
	if err != nil {
		return nil, err
	}
	return fI.(*xlsx.File), nil
}

// ReadXLSX reads the yearbook table for crop from the named sheet of the
// Excel file at path. If sheet is empty the first sheet is used. The first
// row holds the column headers.
func (yr *Reader) ReadXLSX(path, sheet, crop string) ([]Record, error) {
	f, err := loadExcelFile(path)
	if err != nil {
		return nil, err
	}
	var s *xlsx.Sheet
	if sheet == "" {
		if len(f.Sheets) == 0 {
			return nil, fmt.Errorf("yearbook: %s has no sheets", path)
		}
		s = f.Sheets[0]
	} else {
		var ok bool
		if s, ok = f.Sheet[sheet]; !ok {
			return nil, fmt.Errorf("yearbook: %s has no sheet %s", path, sheet)
		}
	}
	if s.MaxRow < 1 {
		return nil, fmt.Errorf("yearbook: sheet %s of %s is empty", s.Name, path)
	}
	header := make([]string, s.MaxCol)
	for i := range header {
		header[i] = strings.TrimSpace(s.Cell(0, i).Value)
	}
	rows := make([]map[string]string, 0, s.MaxRow-1)
	for j := 1; j < s.MaxRow; j++ {
		row := make(map[string]string, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			row[h] = s.Cell(j, i).Value
		}
		rows = append(rows, row)
	}
	return yr.parse(rows, crop)
}

// headerYear returns the year named by a column header such as "2020年".
func headerYear(h string) (int, error) {
	r := []rune(strings.TrimSpace(h))
	if len(r) > 4 {
		r = r[:4]
	}
	return strconv.Atoi(string(r))
}

// parse converts wide rows to records. Rows for provinces missing from the
// translation table are skipped, as are empty and zero values.
func (yr *Reader) parse(rows []map[string]string, crop string) ([]Record, error) {
	units := yr.Units
	if units == "" {
		units = "kg/ha"
	}
	conv, err := agyield.YieldConverter(units)
	if err != nil {
		return nil, err
	}
	tables := yr.Tables
	if tables == nil {
		tables = agyield.DefaultTables()
	}
	var recs []Record
	for _, row := range rows {
		clean := make(map[string]string, len(row))
		for k, v := range row {
			clean[strings.TrimSpace(strings.TrimPrefix(k, "\ufeff"))] = strings.TrimSpace(v)
		}
		cn, ok := clean[ProvinceColumn]
		if !ok {
			return nil, fmt.Errorf("yearbook: %s table has no %s column", crop, ProvinceColumn)
		}
		province, ok := tables.Province(cn)
		if !ok {
			continue
		}
		for h, v := range clean {
			if h == ProvinceColumn || h == "" {
				continue
			}
			year, err := headerYear(h)
			if err != nil {
				return nil, fmt.Errorf("yearbook: %s table: invalid year column %q", crop, h)
			}
			if v == "" {
				continue
			}
			x, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("yearbook: %s table, %s %d: %v", crop, province, year, err)
			}
			if x == 0 {
				continue
			}
			recs = append(recs, Record{Province: province, Crop: crop, Year: year, Yield: conv(x)})
		}
	}
	sortRecords(recs)
	return recs, nil
}

func sortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Province != b.Province {
			return a.Province < b.Province
		}
		if a.Crop != b.Crop {
			return a.Crop < b.Crop
		}
		return a.Year < b.Year
	})
}
