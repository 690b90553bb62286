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
	"math"
	"testing"

	"github.com/ctessum/geom"
	"github.com/spatialmodel/agyield"
	"github.com/spatialmodel/agyield/grid"
)

// linearRecords returns records following yield = a + b×(year-2010) for
// the given years.
func linearRecords(province, crop string, a, b float64, from, to int) []Record {
	var recs []Record
	for y := from; y <= to; y++ {
		recs = append(recs, Record{Province: province, Crop: crop, Year: y, Yield: a + b*float64(y-2010)})
	}
	return recs
}

func testRecords() []Record {
	recs := linearRecords("Province A", "Maize", 2.0, 0.05, 1990, 2020)
	recs = append(recs, linearRecords("Province B", "Maize", 3.0, -0.02, 1990, 2020)...)
	// Observations before the start year are ignored.
	recs = append(recs, Record{Province: "Province A", Crop: "Maize", Year: 1985, Yield: 100})
	return recs
}

var testConfig = Config{StartYear: 1990, BaseYear: 2020, Years: agyield.Years(2020, 2100, 5)}

func TestMultipliers(t *testing.T) {
	trends, err := Fit(testRecords(), testConfig)
	if err != nil {
		t.Fatal(err)
	}
	if len(trends) != 2 || trends[0].Province != "Province A" || trends[0].N != 31 {
		t.Fatalf("trends: %+v", trends)
	}
	m, err := Multipliers(trends, testConfig)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"Province A", "Province B"} {
		v, err := m.At(agyield.Combination{agyield.ProvinceAxis: p, agyield.CropAxis: "Maize",
			agyield.YearAxis: "2020", agyield.BandAxis: agyield.BandMean})
		if err != nil {
			t.Fatal(err)
		}
		if v != 1 {
			t.Errorf("%s: 2020 multiplier is %v, want exactly 1", p, v)
		}
	}
	for _, test := range []struct {
		province string
		want     float64
	}{
		{province: "Province A", want: 2.75 / 2.5},
		{province: "Province B", want: 2.7 / 2.8},
	} {
		k := agyield.Combination{agyield.ProvinceAxis: test.province, agyield.CropAxis: "Maize", agyield.YearAxis: "2025"}
		mean, _ := m.At(k.With(agyield.BandAxis, agyield.BandMean))
		std, _ := m.At(k.With(agyield.BandAxis, agyield.BandStd))
		if math.Abs(mean-test.want) > 1e-9 {
			t.Errorf("%s: 2025 multiplier %g, want %g", test.province, mean, test.want)
		}
		if std < 0 || std > 1e-6 {
			t.Errorf("%s: exact trend has std %g", test.province, std)
		}
	}
}

func TestMultipliersStdScaling(t *testing.T) {
	recs := []Record{
		{Province: "Hebei", Crop: "Wheat", Year: 2016, Yield: 5},
		{Province: "Hebei", Crop: "Wheat", Year: 2017, Yield: 5.5},
		{Province: "Hebei", Crop: "Wheat", Year: 2018, Yield: 5.2},
		{Province: "Hebei", Crop: "Wheat", Year: 2019, Yield: 5.9},
	}
	trends, err := Fit(recs, testConfig)
	if err != nil {
		t.Fatal(err)
	}
	p, err := Project(trends, testConfig.Years)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Project(trends, []int{2020, 2050, 2020}); err == nil {
		t.Error("repeated projection years should cause an error")
	}
	m, err := Multipliers(trends, testConfig)
	if err != nil {
		t.Fatal(err)
	}
	k := agyield.Combination{agyield.ProvinceAxis: "Hebei", agyield.CropAxis: "Wheat", agyield.YearAxis: "2050"}
	base, _ := p.At(agyield.Combination{agyield.ProvinceAxis: "Hebei", agyield.CropAxis: "Wheat",
		agyield.YearAxis: "2020", agyield.BandAxis: agyield.BandMean})
	for _, b := range []string{agyield.BandMean, agyield.BandStd} {
		pv, _ := p.At(k.With(agyield.BandAxis, b))
		mv, _ := m.At(k.With(agyield.BandAxis, b))
		if math.Abs(mv-pv/base) > 1e-12 {
			t.Errorf("%s: have %g, want %g", b, mv, pv/base)
		}
	}
}

func TestFitDegenerate(t *testing.T) {
	recs := append(testRecords(), Record{Province: "Tibet", Crop: "Maize", Year: 2020, Yield: 1})
	_, err := Fit(recs, testConfig)
	dfe, ok := err.(*DegenerateFitError)
	if !ok || dfe.Province != "Tibet" {
		t.Errorf("have %v, want DegenerateFitError for Tibet", err)
	}
}

func TestGrowthRatios(t *testing.T) {
	recs := []Record{
		{Province: "Anhui", Crop: "Wheat", Year: 2010, Yield: 4},
		{Province: "Anhui", Crop: "Wheat", Year: 2020, Yield: 5},
		{Province: "Anhui", Crop: "Maize", Year: 2020, Yield: 5},
		{Province: "Fujian", Crop: "Wheat", Year: 2010, Yield: 2},
	}
	g := GrowthRatios(recs, 2010, 2020)
	for _, test := range []struct {
		province, crop string
		want           float64
	}{
		{province: "Anhui", crop: "Wheat", want: 1.25},
		{province: "Anhui", crop: "Maize", want: 1},
		{province: "Fujian", crop: "Wheat", want: 1},
		{province: "Fujian", crop: "Maize", want: 1},
	} {
		v, err := g.At(agyield.Combination{agyield.ProvinceAxis: test.province, agyield.CropAxis: test.crop})
		if err != nil {
			t.Fatal(err)
		}
		if v != test.want {
			t.Errorf("%s %s: have %g, want %g", test.province, test.crop, v, test.want)
		}
	}
}

func TestRasterize(t *testing.T) {
	g, err := grid.NewGrid("ref", 3, 2, [6]float64{0, 1, 0, 2, 0, -1}, "")
	if err != nil {
		t.Fatal(err)
	}
	square := func(x0, x1 float64) geom.Polygon {
		return geom.Polygon{{{X: x0, Y: 0}, {X: x1, Y: 0}, {X: x1, Y: 2}, {X: x0, Y: 2}, {X: x0, Y: 0}}}
	}
	regions := []grid.Region{
		{Name: "Province A", Polygonal: square(0, 1)},
		{Name: "Province B", Polygonal: square(1, 2)},
		{Name: "Province C", Polygonal: square(2, 3)},
	}
	pt := agyield.New(agyield.NewAxis(agyield.ProvinceAxis, "Province A", "Province B", "Province D"),
		agyield.NewAxis(agyield.CropAxis, "Maize", "Wheat"))
	copy(pt.Data.Elements, []float64{
		1.1, 1.2,
		2.1, math.NaN(),
		4.1, 4.2,
	})
	r, err := Rasterize(pt, g, regions)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Matches(r); err != nil {
		t.Fatal(err)
	}
	nan := math.NaN()
	want := []float64{
		1.1, 2.1, nan,
		1.1, 2.1, nan,
		1.2, nan, nan,
		1.2, nan, nan,
	}
	for i, w := range want {
		v := r.Data.Elements[i]
		if math.IsNaN(w) != math.IsNaN(v) || (!math.IsNaN(w) && v != w) {
			t.Errorf("element %d: have %g, want %g", i, v, w)
		}
	}

	if _, err := Rasterize(agyield.New(agyield.NewAxis(agyield.CropAxis, "Maize")), g, regions); err == nil {
		t.Error("tensor without leading province axis should cause an error")
	}
}
