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

package agyield

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

// Tables holds the fixed lookup tables used by the pipeline. A Tables value
// is not modified after it is created; it is passed explicitly to the
// components that need it.
type Tables struct {
	provinces   map[string]string
	yearWindows map[string]int
}

// tablesFile is the on-disk layout of a Tables override file.
type tablesFile struct {
	Provinces   map[string]string `toml:"provinces"`
	YearWindows map[string]int    `toml:"year_windows"`
}

// DefaultTables returns the built-in lookup tables: the translation of
// Chinese province names to the English names used in the boundary
// shapefile, and the mapping of 30-year climate windows to their midpoints.
func DefaultTables() *Tables {
	return &Tables{
		provinces: map[string]string{
			"北京市":  "Beijing",
			"天津市":  "Tianjin",
			"河北省":  "Hebei",
			"山西省":  "Shanxi",
			"内蒙古":  "Inner Mongolia",
			"辽宁省":  "Liaoning",
			"吉林省":  "Jilin",
			"黑龙江省": "Heilongjiang",
			"上海市":  "Shanghai",
			"江苏省":  "Jiangsu",
			"浙江省":  "Zhejiang",
			"安徽省":  "Anhui",
			"福建省":  "Fujian",
			"江西省":  "Jiangxi",
			"山东省":  "Shandong",
			"河南省":  "Henan",
			"湖北省":  "Hubei",
			"湖南省":  "Hunan",
			"广东省":  "Guangdong",
			"广西":   "Guangxi",
			"海南省":  "Hainan",
			"重庆市":  "Chongqing",
			"四川省":  "Sichuan",
			"贵州省":  "Guizhou",
			"云南省":  "Yunnan",
			"西藏":   "Tibet",
			"陕西省":  "Shaanxi",
			"甘肃省":  "Gansu",
			"青海省":  "Qinghai",
			"宁夏":   "Ningxia",
			"新疆":   "Xinjiang",
		},
		yearWindows: map[string]int{
			"1981-2010": 1995,
			"2011-2040": 2025,
			"2041-2070": 2055,
			"2071-2100": 2085,
		},
	}
}

// NewTables creates lookup tables from the given maps, which are copied.
func NewTables(provinces map[string]string, yearWindows map[string]int) *Tables {
	t := &Tables{
		provinces:   make(map[string]string, len(provinces)),
		yearWindows: make(map[string]int, len(yearWindows)),
	}
	for k, v := range provinces {
		t.provinces[k] = v
	}
	for k, v := range yearWindows {
		t.yearWindows[k] = v
	}
	return t
}

// LoadTables reads lookup tables from a TOML file. Tables that are absent
// from the file keep their default values.
func LoadTables(path string) (*Tables, error) {
	var f tablesFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("agyield: reading lookup tables from %s: %v", path, err)
	}
	d := DefaultTables()
	if f.Provinces == nil {
		f.Provinces = d.provinces
	}
	if f.YearWindows == nil {
		f.YearWindows = d.yearWindows
	}
	return NewTables(f.Provinces, f.YearWindows), nil
}

// Province returns the English name of the province with the given Chinese
// name.
func (t *Tables) Province(cn string) (string, bool) {
	en, ok := t.provinces[cn]
	return en, ok
}

// Provinces returns the English province names in sorted order.
func (t *Tables) Provinces() []string {
	o := make([]string, 0, len(t.provinces))
	for _, en := range t.provinces {
		o = append(o, en)
	}
	sort.Strings(o)
	return o
}

// WindowYear returns the representative year of a climate window label such
// as "2011-2040". Labels that are already years are returned as-is.
func (t *Tables) WindowYear(label string) (int, bool) {
	if y, ok := t.yearWindows[label]; ok {
		return y, true
	}
	var y int
	if _, err := fmt.Sscanf(label, "%d", &y); err == nil && fmt.Sprint(y) == label {
		return y, true
	}
	return 0, false
}
