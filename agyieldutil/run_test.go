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
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
	"github.com/spatialmodel/agyield"
	"github.com/spatialmodel/agyield/grid"
	"github.com/spatialmodel/agyield/raster"
)

// setCfg sets a configuration option for the duration of the test.
func setCfg(t *testing.T, name string, v interface{}) {
	orig := Cfg.Get(name)
	Cfg.Set(name, v)
	t.Cleanup(func() { Cfg.Set(name, orig) })
}

func square(x0, y0, x1, y1 float64) geom.Polygon {
	return geom.Polygon{{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0}}}
}

// writeTestInputs writes a catalog, rasters, a province shapefile and a
// maize yearbook table for a 2×2 grid where the left column is Beijing and
// the right column is Hebei. It returns the data directory.
func writeTestInputs(t *testing.T) string {
	dir, err := os.MkdirTemp("", "agyield_run")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	g, err := grid.NewGrid("ref", 2, 2, [6]float64{0, 1, 0, 2, 0, -1}, "")
	if err != nil {
		t.Fatal(err)
	}
	write := func(name string, v float64) string {
		r := g.Burn(nil)
		for i := range r.Data.Elements {
			r.Data.Elements[i] = v
		}
		path := filepath.Join(dir, name)
		if err := raster.Write(path, r); err != nil {
			t.Fatal(err)
		}
		return path
	}

	// Potential yields are in kg/ha and the baseline in t/ha. Baseline rows
	// have no input level, and the low input duplicate of the historical
	// layer is removed by the default CatalogFilter.
	cat := new(bytes.Buffer)
	fmt.Fprintln(cat, "year,model,rcp,crop,water_supply,c02_fertilization,input_level,gaez_cat,variable,name,units,fpath")
	for _, l := range []struct {
		row, file string
		v         float64
	}{
		{row: "1981-2010,CRUTS32,Historical,Maize,Irrigated,,High,GAEZ_4,Potential yield,ycHg_mze,kg/ha", file: "hist.tif", v: 10000},
		{row: "1981-2010,CRUTS32,Historical,Maize,Irrigated,,Low,GAEZ_4,Potential yield,ycHg_mze_low,kg/ha", file: "hist_low.tif", v: 1},
		{row: "2011-2040,A,RCP4.5,Maize,Irrigated,With,High,GAEZ_4,Potential yield,yc_mze,kg/ha", file: "a2025.tif", v: 11000},
		{row: "2041-2070,A,RCP4.5,Maize,Irrigated,With,High,GAEZ_4,Potential yield,yc_mze,kg/ha", file: "a2055.tif", v: 13000},
		{row: "2010,,,Maize,Total,,,GAEZ_5,Yield,ya_mze,t/ha", file: "base.tif", v: 4},
		{row: "2010,,,Maize,Irrigated,,,GAEZ_5,Yield,ya_mze_irr,t/ha", file: "base_irr.tif", v: 9},
	} {
		fmt.Fprintf(cat, "%s,%s\n", l.row, write(l.file, l.v))
	}
	if err := os.WriteFile(filepath.Join(dir, "catalog.csv"), cat.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	e, err := shp.NewEncoderFromFields(filepath.Join(dir, "provinces.shp"), goshp.POLYGON, goshp.StringField("EN_Name", 40))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.EncodeFields(square(0, 0, 1, 2), "Beijing"); err != nil {
		t.Fatal(err)
	}
	if err := e.EncodeFields(square(1, 0, 2, 2), "Hebei"); err != nil {
		t.Fatal(err)
	}
	e.Close()

	yb := new(bytes.Buffer)
	var header, bj, hb []string
	header = append(header, "地区")
	bj = append(bj, "北京市")
	hb = append(hb, "河北省")
	for y := 1990; y <= 2020; y++ {
		header = append(header, fmt.Sprintf("%d年", y))
		bj = append(bj, fmt.Sprint(5000+50*(y-2010)))
		hb = append(hb, fmt.Sprint(6000-20*(y-2010)))
	}
	for _, row := range [][]string{header, bj, hb} {
		fmt.Fprintln(yb, strings.Join(row, ","))
	}
	if err := os.WriteFile(filepath.Join(dir, "maize.csv"), yb.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func setTestConfig(t *testing.T, dir string) {
	setCfg(t, "Catalog", filepath.Join(dir, "catalog.csv"))
	setCfg(t, "ProvinceShapefile", filepath.Join(dir, "provinces.shp"))
	setCfg(t, "Yearbook", map[string]string{"Maize": filepath.Join(dir, "maize.csv")})
	setCfg(t, "TargetYear", 2030)
	setCfg(t, "Seed", 1)
	setCfg(t, "Workers", 2)
	setCfg(t, "OutputDir", filepath.Join(dir, "output"))
	setCfg(t, "MultiplierDir", filepath.Join(dir, "output", "multipliers"))
	for _, name := range []string{"GAEZHistorical", "GAEZFuture", "GAEZBaseline2010", "GAEZMultipliers",
		"YearbookMultipliers", "YearbookGrowth", "Baseline2020", "Prediction"} {
		setCfg(t, name, filepath.Join(dir, "intermediate", strings.ToLower(name)+".nc"))
	}
}

func TestRun(t *testing.T) {
	dir := writeTestInputs(t)
	setTestConfig(t, dir)
	Root.SetOutput(new(bytes.Buffer))

	Root.SetArgs([]string{"run"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}

	// Expected medians are the 2020 baseline (4 t/ha times the 2010 to
	// 2020 yearbook growth) times the GAEZ and yearbook multipliers.
	gaezM := 11 / (10 + 25.0/30)
	want := map[int][2]float64{
		2025: {4 * 1.1 * gaezM * 5750 / 5500, 4 * 5800.0 / 6000 * gaezM * 5700 / 5800},
	}
	for _, year := range []int{2020, 2025, 2030} {
		var pct [3][]float64
		for i, p := range []string{"25th", "50th", "75th"} {
			path := filepath.Join(dir, "output", fmt.Sprintf("With_RCP4.5_Maize_Irrigated_%d_%s_percentile.tif", year, p))
			r, err := raster.Read(path)
			if err != nil {
				t.Fatal(err)
			}
			pct[i] = r.Data.Elements
		}
		for j := range pct[1] {
			lo, mid, hi := pct[0][j], pct[1][j], pct[2][j]
			if math.IsNaN(mid) || mid <= 0 {
				t.Errorf("%d pixel %d: median %g", year, j, mid)
			}
			if lo > mid || mid > hi {
				t.Errorf("%d pixel %d: percentiles out of order: %g, %g, %g", year, j, lo, mid, hi)
			}
		}
		w, ok := want[year]
		if !ok {
			continue
		}
		for j, v := range pct[1] {
			if d := math.Abs(v-w[j%2]) / w[j%2]; d > 1e-3 {
				t.Errorf("%d pixel %d: have median %g, want %g", year, j, v, w[j%2])
			}
		}
	}

	t.Run("export-multipliers", func(t *testing.T) {
		Root.SetArgs([]string{"export-multipliers"})
		if err := Root.Execute(); err != nil {
			t.Fatal(err)
		}
		for _, name := range []string{
			"GAEZ4_multiplier_Maize_2025_rcpRCP4.5_wsIrrigated_co2With_mean.tif",
			"Yearbook_multiplier_Maize_2030_std.tif",
		} {
			if _, err := os.Stat(filepath.Join(dir, "output", "multipliers", name)); err != nil {
				t.Error(err)
			}
		}
	})
}

func TestRunMissingInput(t *testing.T) {
	dir := writeTestInputs(t)
	setTestConfig(t, dir)
	Root.SetOutput(new(bytes.Buffer))
	Root.SetArgs([]string{"fuse"})
	if err := Root.Execute(); err == nil {
		t.Error("fuse without earlier stages should fail")
	}
}

func TestVersion(t *testing.T) {
	buf := new(bytes.Buffer)
	Root.SetOutput(buf)
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if want := "AgYield v" + agyield.Version; !strings.Contains(buf.String(), want) {
		t.Errorf("have %q, want %q", buf.String(), want)
	}
}

func TestGridCommand(t *testing.T) {
	dir := writeTestInputs(t)
	setTestConfig(t, dir)
	Root.SetOutput(new(bytes.Buffer))
	Root.SetArgs([]string{"grid"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	d, err := goshp.Open(filepath.Join(dir, "output", "grid.shp"))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	n := 0
	for d.Next() {
		n++
	}
	if n != 4 {
		t.Errorf("have %d grid cells, want 4", n)
	}
}
