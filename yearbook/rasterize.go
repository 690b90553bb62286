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
	"fmt"
	"math"

	"github.com/spatialmodel/agyield"
	"github.com/spatialmodel/agyield/grid"
)

// Rasterize burns the province values of t, whose first axis must be the
// province axis, onto g. Each combination of the remaining axes becomes a
// raster in which every region takes the value of the province with the
// same name. Pixels outside of all regions, and regions whose province has
// no value, are NaN. The result has the remaining axes of t followed by
// (y, x).
func Rasterize(t *agyield.Tensor, g *grid.GridDef, regions []grid.Region) (*agyield.Tensor, error) {
	if len(t.Axes) == 0 || t.Axes[0].Name != agyield.ProvinceAxis {
		return nil, fmt.Errorf("yearbook: rasterizing %s: first axis must be %s, axes are %v",
			t.Name, agyield.ProvinceAxis, t.AxisNames())
	}
	provinces := t.Axes[0]
	if provinces.Len() == 0 {
		return nil, fmt.Errorf("yearbook: rasterizing %s: no provinces", t.Name)
	}
	rest := t.Axes[1:]
	y, x := g.Axes()
	o := agyield.New(append(append([]agyield.Axis{}, rest...), y, x)...)
	o.Name, o.Description, o.Units = t.Name, t.Description, t.Units
	o.Geo = g.GeoRef()

	npix := g.Nx * g.Ny
	nrest := len(t.Data.Elements) / provinces.Len()
	values := make(map[string]float64, provinces.Len())
	for i := 0; i < nrest; i++ {
		for j, p := range provinces.Coords {
			v := t.Data.Elements[j*nrest+i]
			if math.IsNaN(v) {
				delete(values, p)
				continue
			}
			values[p] = v
		}
		copy(o.Data.Elements[i*npix:(i+1)*npix], g.Burn(grid.Shapes(regions, values)).Data.Elements)
	}
	return o, nil
}
