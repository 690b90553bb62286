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
	"fmt"
	"sort"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
)

// Region is a named administrative boundary.
type Region struct {
	geom.Polygonal
	Name string
}

// ReadRegions reads the polygons in the shapefile at path, naming each one
// by the value of the nameField attribute. If both the shapefile and the
// grid have a spatial reference, the polygons are projected onto the grid.
// Records with null or non-polygonal geometry are skipped.
func (grid *GridDef) ReadRegions(path, nameField string) ([]Region, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("grid: opening region shapefile: %v", err)
	}
	defer d.Close()

	var transform func(geom.Geom) (geom.Geom, error)
	if grid.SR != nil {
		if sr, err := d.SR(); err == nil {
			t, err := sr.NewTransform(grid.SR)
			if err != nil {
				return nil, fmt.Errorf("grid: projecting region shapefile: %v", err)
			}
			transform = func(g geom.Geom) (geom.Geom, error) { return g.Transform(t) }
		}
	}

	var regions []Region
	for {
		g, fields, more := d.DecodeRowFields(nameField)
		if !more {
			break
		}
		if err := d.Error(); err != nil {
			return nil, fmt.Errorf("grid: reading region shapefile: %v", err)
		}
		if g == nil {
			continue
		}
		if transform != nil {
			if g, err = transform(g); err != nil {
				return nil, fmt.Errorf("grid: projecting region %s: %v", fields[nameField], err)
			}
		}
		p, ok := g.(geom.Polygonal)
		if !ok {
			continue
		}
		name := strings.TrimSpace(strings.Trim(fields[nameField], "\x00"))
		regions = append(regions, Region{Polygonal: p, Name: name})
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("grid: reading region shapefile: %v", err)
	}
	return regions, nil
}

// RegionNames returns the sorted unique names of regions.
func RegionNames(regions []Region) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range regions {
		if !seen[r.Name] {
			seen[r.Name] = true
			names = append(names, r.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Shapes pairs each region with its value in values. Regions without a
// value are omitted.
func Shapes(regions []Region, values map[string]float64) []Shape {
	var o []Shape
	for _, r := range regions {
		v, ok := values[r.Name]
		if !ok {
			continue
		}
		o = append(o, Shape{Polygonal: r.Polygonal, Value: v})
	}
	return o
}
