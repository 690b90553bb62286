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
	"github.com/ctessum/geom"
	"github.com/spatialmodel/agyield"
)

// Shape is a polygon with the value that should be burned into the grid
// cells whose centers it covers.
type Shape struct {
	geom.Polygonal
	Value float64
}

// Burn rasterizes shapes onto the grid. A cell receives the value of a
// shape when the cell center lies inside or on the edge of the shape.
// When shapes overlap, later shapes overwrite earlier ones. Cells not
// covered by any shape are NaN. The returned tensor has (y, x) axes.
func (grid *GridDef) Burn(shapes []Shape) *agyield.Tensor {
	y, x := grid.Axes()
	t := agyield.New(y, x)
	t.Geo = grid.GeoRef()
	for _, s := range shapes {
		grid.burn(t.Data.Elements, s)
	}
	return t
}

func (grid *GridDef) burn(out []float64, s Shape) {
	if s.Polygonal == nil {
		return
	}
	for _, cI := range grid.rtree.SearchIntersect(s.Bounds()) {
		c := cI.(*GridCell)
		if c.Center().Within(s.Polygonal) == geom.Outside {
			continue
		}
		out[c.Row*grid.Nx+c.Col] = s.Value
	}
}
