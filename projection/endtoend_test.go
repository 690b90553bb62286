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


package projection

import (
	"context"
	"math"
	"testing"

	"github.com/ctessum/geom"
	"github.com/spatialmodel/agyield"
	"github.com/spatialmodel/agyield/gaez"
	"github.com/spatialmodel/agyield/grid"
	"github.com/spatialmodel/agyield/yearbook"
)

// TestEndToEnd runs stages 3 to 6 on a 2×2 grid split between two
// provinces with linear yield trends.
func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	g := testGrid(t)
	column := func(x0 float64) geom.Polygon {
		return geom.Polygon{{{X: x0, Y: 0}, {X: x0 + 1, Y: 0}, {X: x0 + 1, Y: 2}, {X: x0, Y: 2}, {X: x0, Y: 0}}}
	}
	regions := []grid.Region{
		{Name: "Province A", Polygonal: column(0)},
		{Name: "Province B", Polygonal: column(1)},
	}
	var recs []yearbook.Record
	for y := 1990; y <= 2020; y++ {
		d := float64(y - 2010)
		recs = append(recs,
			yearbook.Record{Province: "Province A", Crop: "Maize", Year: y, Yield: 2.0 + 0.05*d},
			yearbook.Record{Province: "Province B", Crop: "Maize", Year: y, Yield: 3.0 - 0.02*d},
		)
	}
	years := []int{2020, 2025}
	ybCfg := yearbook.Config{StartYear: 1990, BaseYear: 2020, Years: years}
	trends, err := yearbook.Fit(recs, ybCfg)
	if err != nil {
		t.Fatal(err)
	}
	m, err := yearbook.Multipliers(trends, ybCfg)
	if err != nil {
		t.Fatal(err)
	}
	ybM, err := yearbook.Rasterize(m, g, regions)
	if err != nil {
		t.Fatal(err)
	}
	growth, err := yearbook.Rasterize(yearbook.GrowthRatios(recs, 2010, 2020), g, regions)
	if err != nil {
		t.Fatal(err)
	}
	base2010 := spatial(g, []float64{4}, testCrop)
	base, err := Baseline2020(base2010, growth, testWater)
	if err != nil {
		t.Fatal(err)
	}

	gaezM, _, _ := fuseInputs(g, years, 1.1, 0.1, 1, 0, 1)
	const n = 2000
	pred, err := Fuse(ctx, gaezM, ybM, base, Config{Years: years, SampleSize: n, Seed: 7, StdFloor: 1e-6})
	if err != nil {
		t.Fatal(err)
	}

	// Pixels are (row, col) in row-major order; column 0 is Province A.
	baseA, baseB := 4*2.5/2.0, 4*2.8/3.0
	want := []float64{
		baseA * 1.1 * (2.75 / 2.5), baseB * 1.1 * (2.7 / 2.8),
		baseA * 1.1 * (2.75 / 2.5), baseB * 1.1 * (2.7 / 2.8),
	}
	for pix, w := range want {
		mean, std := meanStdAt(t, pred, testKey, pix)
		tol := 5 * (w / 1.1 * 0.1) / math.Sqrt(n)
		if math.Abs(mean-w) > tol {
			t.Errorf("pixel %d: mean %g, want %g ± %g", pix, mean, w, tol)
		}
		if math.Abs(std-w/11)/(w/11) > 0.1 {
			t.Errorf("pixel %d: std %g, want about %g", pix, std, w/11)
		}
	}

	future := spatial(g, []float64{100}, agyield.IntAxis(agyield.YearAxis, 2025, 2055),
		agyield.NewAxis(agyield.ModelAxis, "GFDL"), testRCP, testCrop, testWater, testCO2)
	attainable, err := gaez.Attainable(future, years)
	if err != nil {
		t.Fatal(err)
	}
	capped, err := Cap(pred, attainable, n)
	if err != nil {
		t.Fatal(err)
	}
	for pix := range want {
		c, se := meanStdAt(t, capped, testKey, pix)
		p, std := meanStdAt(t, pred, testKey, pix)
		if c != p {
			t.Errorf("pixel %d: capped mean %g differs from prediction %g below the ceiling", pix, c, p)
		}
		if math.Abs(se-std/math.Sqrt(n)) > 1e-12 {
			t.Errorf("pixel %d: se %g", pix, se)
		}
	}
}
