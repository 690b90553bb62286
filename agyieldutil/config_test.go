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


package agyieldutil

import (
	"testing"

	"github.com/kr/pretty"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("AGYIELD_DATA", "/data")
	c, err := LoadConfig(Cfg)
	if err != nil {
		t.Fatal(err)
	}
	years := c.Years()
	if len(years) != 17 || years[0] != 2020 || years[16] != 2100 {
		t.Errorf("years: %v", years)
	}
	if diff := pretty.Diff(c.Percentiles, []int{25, 50, 75}); len(diff) != 0 {
		t.Errorf("percentiles: %v", diff)
	}
	if have := c.Yearbook["Wetland rice"]; have != "/data/yearbook/rice.csv" {
		t.Errorf("yearbook rice table: %s", have)
	}
	if c.Catalog != "/data/GAEZ_tifs.csv" {
		t.Errorf("catalog: %s", c.Catalog)
	}
	if c.Missing != "fail" || c.Seed != -1 || c.SampleSize != 30 || c.CapMax != 2 {
		t.Errorf("defaults: %+v", c)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	for _, test := range []struct {
		option string
		value  interface{}
	}{
		{option: "Step", value: 0},
		{option: "TargetYear", value: 2000},
		{option: "CapPercentile", value: 101.0},
		{option: "StdFloor", value: 0.0},
		{option: "MissingPolicy", value: "impute"},
		{option: "Percentiles", value: "[0, 50]"},
		{option: "Yearbook", value: "{not json"},
	} {
		t.Run(test.option, func(t *testing.T) {
			orig := Cfg.Get(test.option)
			Cfg.Set(test.option, test.value)
			defer Cfg.Set(test.option, orig)
			if _, err := LoadConfig(Cfg); err == nil {
				t.Errorf("%s = %v should cause an error", test.option, test.value)
			}
		})
	}
}

func TestToIntSliceE(t *testing.T) {
	for _, test := range []struct {
		in   interface{}
		want []int
	}{
		{in: "[25,50,75]", want: []int{25, 50, 75}},
		{in: "10, 90", want: []int{10, 90}},
		{in: []interface{}{int64(5), int64(95)}, want: []int{5, 95}},
		{in: []int{50}, want: []int{50}},
	} {
		have, err := toIntSliceE(test.in)
		if err != nil {
			t.Errorf("%v: %v", test.in, err)
			continue
		}
		if diff := pretty.Diff(have, test.want); len(diff) != 0 {
			t.Errorf("%v: %v", test.in, diff)
		}
	}
}

func TestGetStringMapString(t *testing.T) {
	orig := Cfg.Get("Yearbook")
	defer Cfg.Set("Yearbook", orig)
	for _, v := range []interface{}{
		`{"Maize": "maize.csv"}`,
		map[string]interface{}{"Maize": "maize.csv"},
		map[string]string{"Maize": "maize.csv"},
	} {
		Cfg.Set("Yearbook", v)
		have, err := getStringMapString("Yearbook", Cfg)
		if err != nil {
			t.Fatal(err)
		}
		if diff := pretty.Diff(have, map[string]string{"Maize": "maize.csv"}); len(diff) != 0 {
			t.Errorf("%#v: %v", v, diff)
		}
	}
}
