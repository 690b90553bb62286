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

package grid

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
	"github.com/kr/pretty"
	"github.com/spatialmodel/agyield"
)

// testGrid returns a 4×3 grid of 1-unit cells whose upper left corner is
// at (0, 3).
func testGrid(t *testing.T) *GridDef {
	g, err := NewGrid("test", 4, 3, [6]float64{0, 1, 0, 3, 0, -1}, "")
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func square(x0, y0, x1, y1 float64) geom.Polygon {
	return geom.Polygon{{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0}}}
}

func TestNewGrid(t *testing.T) {
	g := testGrid(t)
	if len(g.Cells) != 12 {
		t.Fatalf("cells: have %d, want 12", len(g.Cells))
	}
	c := g.Cells[1*4+2]
	if c.Row != 1 || c.Col != 2 {
		t.Errorf("cell order: have row %d col %d", c.Row, c.Col)
	}
	if have, want := c.Center(), (geom.Point{X: 2.5, Y: 1.5}); have != want {
		t.Errorf("center: have %v, want %v", have, want)
	}
	y, x := g.Axes()
	if diff := pretty.Diff(y.Coords, []string{"2.5", "1.5", "0.5"}); len(diff) != 0 {
		t.Errorf("y coords: %v", diff)
	}
	if diff := pretty.Diff(x.Coords, []string{"0.5", "1.5", "2.5", "3.5"}); len(diff) != 0 {
		t.Errorf("x coords: %v", diff)
	}

	for _, tr := range [][6]float64{{0, 1, 0.1, 3, 0, -1}, {0, 0, 0, 3, 0, -1}} {
		if _, err := NewGrid("bad", 4, 3, tr, ""); err == nil {
			t.Errorf("transform %v should fail", tr)
		}
	}
}

func TestBurn(t *testing.T) {
	g := testGrid(t)

	t.Run("single pixel", func(t *testing.T) {
		r := g.Burn([]Shape{{Polygonal: square(1.2, 1.2, 1.8, 1.8), Value: 5}})
		var n int
		for i, v := range r.Data.Elements {
			if math.IsNaN(v) {
				continue
			}
			n++
			if v != 5 || i != 1*4+1 {
				t.Errorf("element %d: %g", i, v)
			}
		}
		if n != 1 {
			t.Errorf("burned %d pixels, want 1", n)
		}
		if r.Geo == nil || r.Geo.Transform != g.Transform {
			t.Errorf("georeference not set: %+v", r.Geo)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		r := g.Burn([]Shape{
			{Polygonal: square(0, 0, 4, 3), Value: 1},
			{Polygonal: square(0, 0, 2, 3), Value: 2},
		})
		want := []float64{
			2, 2, 1, 1,
			2, 2, 1, 1,
			2, 2, 1, 1,
		}
		if diff := pretty.Diff(r.Data.Elements, want); len(diff) != 0 {
			t.Error(diff)
		}
	})

	t.Run("zero value", func(t *testing.T) {
		out := g.Burn([]Shape{{Polygonal: square(0, 2, 1, 3), Value: 0}}).Data.Elements
		if out[0] != 0 {
			t.Errorf("zero value not burned: %g", out[0])
		}
		if !math.IsNaN(out[1]) {
			t.Errorf("uncovered cell should be NaN: %g", out[1])
		}
	})
}

func TestMatches(t *testing.T) {
	g := testGrid(t)
	y, x := g.Axes()
	if err := g.Matches(agyield.New(agyield.NewAxis("crop", "Rice"), y, x)); err != nil {
		t.Error(err)
	}
	other := agyield.FloatAxis(agyield.XAxis, 0.5, 1.5, 2.5)
	err := g.Matches(agyield.New(y, other))
	if _, ok := err.(*agyield.AlignmentError); !ok {
		t.Errorf("have %v, want alignment error", err)
	}
	if err := g.Matches(agyield.New(x, y)); err == nil {
		t.Error("axis order should be checked")
	}
}

func writeRegions(t *testing.T, path string) {
	e, err := shp.NewEncoderFromFields(path, goshp.POLYGON, goshp.StringField("EN_Name", 40))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.EncodeFields(square(0, 0, 2, 3), "Province A"); err != nil {
		t.Fatal(err)
	}
	if err := e.EncodeFields(square(2, 0, 4, 3), "Province B"); err != nil {
		t.Fatal(err)
	}
	e.Close()
}

func TestReadRegions(t *testing.T) {
	dir, err := os.MkdirTemp("", "agyield_grid")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "provinces.shp")
	writeRegions(t, path)

	g := testGrid(t)
	regions, err := g.ReadRegions(path, "EN_Name")
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(RegionNames(regions), []string{"Province A", "Province B"}); len(diff) != 0 {
		t.Fatal(diff)
	}
	r := g.Burn(Shapes(regions, map[string]float64{"Province A": 2.5, "Province B": 3}))
	for i, v := range r.Data.Elements {
		want := 2.5
		if i%4 >= 2 {
			want = 3
		}
		if v != want {
			t.Errorf("element %d: have %g, want %g", i, v, want)
		}
	}

	if _, err := g.ReadRegions(path, "missing"); err == nil {
		t.Error("missing field should cause an error")
	}
}

func TestWriteToShp(t *testing.T) {
	dir, err := os.MkdirTemp("", "agyield_grid")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	g := testGrid(t)
	values := make([]float64, 12)
	for i := range values {
		values[i] = float64(i)
	}
	if err := g.WriteToShp(dir, values); err != nil {
		t.Fatal(err)
	}
	d, err := shp.NewDecoder(filepath.Join(dir, "test.shp"))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	var n int
	for {
		_, _, more := d.DecodeRowFields("row", "col")
		if !more {
			break
		}
		n++
	}
	if err := d.Error(); err != nil {
		t.Fatal(err)
	}
	if n != 12 {
		t.Errorf("have %d records, want 12", n)
	}
	if err := g.WriteToShp(dir, values[:3]); err == nil {
		t.Error("wrong number of values should cause an error")
	}
}
