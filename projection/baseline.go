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


// Package projection combines the climate and yearbook multipliers into
// gridded yield projections with uncertainty, caps them with the attainable
// yield, and exports percentile rasters.
package projection

import (
	"fmt"
	"math"

	"github.com/spatialmodel/agyield"
)

// spatialAxes returns an error unless t has the given axes followed by
// (y, x).
func spatialAxes(t *agyield.Tensor, names ...string) error {
	want := append(append([]string{}, names...), agyield.YAxis, agyield.XAxis)
	have := t.AxisNames()
	ok := len(have) == len(want)
	for i := 0; ok && i < len(want); i++ {
		ok = have[i] == want[i]
	}
	if !ok {
		return fmt.Errorf("projection: tensor %s has axes %v, want %v", t.Name, have, want)
	}
	return nil
}

// sameGrid returns an AlignmentError unless all tensors share the y and x
// coordinates of the first.
func sameGrid(ts ...*agyield.Tensor) error {
	for _, name := range []string{agyield.YAxis, agyield.XAxis} {
		a, _ := ts[0].Axis(name)
		for _, t := range ts[1:] {
			b, _ := t.Axis(name)
			if !a.Equal(b) {
				return &agyield.AlignmentError{Axis: name, A: a.Coords, B: b.Coords}
			}
		}
	}
	return nil
}

// Baseline2020 adjusts the 2010 baseline yield, with axes (crop, y, x), to
// 2020 by multiplying it by the rasterized yearbook growth ratios, which
// have axes (crop, y, x) as produced by yearbook.Rasterize. Pixels without
// a growth ratio are left unadjusted. The adjusted baseline is repeated for
// every coordinate of waterSupply, giving axes (crop, water_supply, y, x).
func Baseline2020(base2010, growth *agyield.Tensor, waterSupply agyield.Axis) (*agyield.Tensor, error) {
	if err := spatialAxes(base2010, agyield.CropAxis); err != nil {
		return nil, err
	}
	if err := spatialAxes(growth, agyield.CropAxis); err != nil {
		return nil, err
	}
	if waterSupply.Name != agyield.WaterAxis || waterSupply.Len() == 0 {
		return nil, fmt.Errorf("projection: invalid water supply axis %s %v", waterSupply.Name, waterSupply.Coords)
	}
	if err := sameGrid(base2010, growth); err != nil {
		return nil, err
	}
	crops := base2010.Axes[0]
	y, x := base2010.Axes[1], base2010.Axes[2]
	out := agyield.New(crops, waterSupply, y, x)
	out.Name = "baseline_2020_yield"
	out.Description = "2010 baseline yield adjusted to 2020 with yearbook growth"
	out.Units = base2010.Units
	out.Geo = base2010.Geo
	for _, c := range crops.Coords {
		sel := agyield.Combination{agyield.CropAxis: c}
		b, err := base2010.Sel(sel)
		if err != nil {
			return nil, err
		}
		g, err := growth.Sel(sel)
		if err != nil {
			return nil, fmt.Errorf("projection: growth ratios for %s: %v", c, err)
		}
		adj, err := agyield.Zip(b, g, func(b, g float64) float64 {
			if math.IsNaN(g) {
				return b
			}
			return b * g
		})
		if err != nil {
			return nil, err
		}
		for _, ws := range waterSupply.Coords {
			if err := out.Assign(sel.With(agyield.WaterAxis, ws), adj); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
