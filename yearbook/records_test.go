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

package yearbook

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kr/pretty"
	"github.com/spatialmodel/agyield"
	"github.com/tealeg/xlsx"
)

const wheatCSV = "\ufeff地区,2020年,2019年,1989年\n" +
	"北京市,5000,0,4000\n" +
	"河北省,,6000,4500\n" +
	"台湾省,1,2,3\n"

func TestReadCSV(t *testing.T) {
	r := &Reader{Tables: agyield.DefaultTables(), Units: "kg/ha"}
	recs, err := r.ReadCSV(strings.NewReader(wheatCSV), "Wheat")
	if err != nil {
		t.Fatal(err)
	}
	want := []Record{
		{Province: "Beijing", Crop: "Wheat", Year: 1989, Yield: 4},
		{Province: "Beijing", Crop: "Wheat", Year: 2020, Yield: 5},
		{Province: "Hebei", Crop: "Wheat", Year: 1989, Yield: 4.5},
		{Province: "Hebei", Crop: "Wheat", Year: 2019, Yield: 6},
	}
	if diff := pretty.Diff(recs, want); len(diff) != 0 {
		t.Error(diff)
	}
}

func TestReadCSVErrors(t *testing.T) {
	r := &Reader{}
	for _, test := range []struct {
		name, csv string
	}{
		{name: "no province column", csv: "province,2020\nBeijing,1\n"},
		{name: "bad year", csv: "地区,total\n北京市,1\n"},
		{name: "bad value", csv: "地区,2020\n北京市,n/a\n"},
	} {
		t.Run(test.name, func(t *testing.T) {
			if _, err := r.ReadCSV(strings.NewReader(test.csv), "Maize"); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestReadXLSX(t *testing.T) {
	dir, err := os.MkdirTemp("", "agyield_yearbook")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "maize.xlsx")

	f := xlsx.NewFile()
	s, err := f.AddSheet("Maize")
	if err != nil {
		t.Fatal(err)
	}
	for _, row := range [][]string{
		{"地区", "2010年", "2020年"},
		{"吉林省", "6000", "7500"},
	} {
		r := s.AddRow()
		for _, v := range row {
			r.AddCell().Value = v
		}
	}
	if err := f.Save(path); err != nil {
		t.Fatal(err)
	}

	r := &Reader{Tables: agyield.DefaultTables()}
	recs, err := r.ReadXLSX(path, "", "Maize")
	if err != nil {
		t.Fatal(err)
	}
	want := []Record{
		{Province: "Jilin", Crop: "Maize", Year: 2010, Yield: 6},
		{Province: "Jilin", Crop: "Maize", Year: 2020, Yield: 7.5},
	}
	if diff := pretty.Diff(recs, want); len(diff) != 0 {
		t.Error(diff)
	}
	if _, err := r.ReadXLSX(path, "Rice", "Rice"); err == nil {
		t.Error("missing sheet should cause an error")
	}
}
