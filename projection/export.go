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
	"fmt"
	"path/filepath"

	"github.com/spatialmodel/agyield"
	"github.com/spatialmodel/agyield/raster"
	"golang.org/x/sync/errgroup"
)

// writeSlices writes every (y, x) slice of t to a GeoTIFF in dir, named by
// name, and returns the paths in combination order.
func writeSlices(ctx context.Context, dir string, t *agyield.Tensor, workers int, name func(agyield.Combination) string) ([]string, error) {
	if len(t.Axes) < 2 {
		return nil, fmt.Errorf("projection: tensor %s has no spatial axes", t.Name)
	}
	if err := spatialAxes(t, t.AxisNames()[:len(t.Axes)-2]...); err != nil {
		return nil, err
	}
	combos := agyield.Combinations(t.Axes[:len(t.Axes)-2]...)
	paths := make([]string, len(combos))
	if workers <= 0 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, k := range combos {
		i, k := i, k
		paths[i] = filepath.Join(dir, name(k))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := t.Sel(k)
			if err != nil {
				return err
			}
			return raster.Write(paths[i], s)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// PercentileFileName returns the name of the raster holding one percentile
// band of one scenario combination.
func PercentileFileName(k agyield.Combination) string {
	return fmt.Sprintf("%s_%s_%s_%s_%s_%s_percentile.tif", k[agyield.CO2Axis], k[agyield.RCPAxis],
		k[agyield.CropAxis], k[agyield.WaterAxis], k[agyield.YearAxis], k[PercentileAxis])
}

// Export writes one raster per (year, rcp, crop, water_supply,
// co2_fertilization, percentile) combination of the output of Percentiles.
func Export(ctx context.Context, dir string, pct *agyield.Tensor, workers int) ([]string, error) {
	if err := spatialAxes(pct, agyield.YearAxis, agyield.RCPAxis, agyield.CropAxis,
		agyield.WaterAxis, agyield.CO2Axis, PercentileAxis); err != nil {
		return nil, err
	}
	return writeSlices(ctx, dir, pct, workers, PercentileFileName)
}

// ExportMultipliers writes every (y, x) slice of the climate multipliers
// from gaez.Multipliers and the rasterized yearbook multipliers as
// GeoTIFFs. Either tensor may be nil.
func ExportMultipliers(ctx context.Context, dir string, gaezM, yearbookM *agyield.Tensor, workers int) ([]string, error) {
	var paths []string
	if gaezM != nil {
		if err := spatialAxes(gaezM, agyield.YearAxis, agyield.RCPAxis, agyield.CropAxis,
			agyield.WaterAxis, agyield.CO2Axis, agyield.BandAxis); err != nil {
			return nil, err
		}
		p, err := writeSlices(ctx, dir, gaezM, workers, func(k agyield.Combination) string {
			return fmt.Sprintf("GAEZ4_multiplier_%s_%s_rcp%s_ws%s_co2%s_%s.tif", k[agyield.CropAxis],
				k[agyield.YearAxis], k[agyield.RCPAxis], k[agyield.WaterAxis], k[agyield.CO2Axis], k[agyield.BandAxis])
		})
		if err != nil {
			return nil, err
		}
		paths = append(paths, p...)
	}
	if yearbookM != nil {
		if err := spatialAxes(yearbookM, agyield.CropAxis, agyield.YearAxis, agyield.BandAxis); err != nil {
			return nil, err
		}
		p, err := writeSlices(ctx, dir, yearbookM, workers, func(k agyield.Combination) string {
			return fmt.Sprintf("Yearbook_multiplier_%s_%s_%s.tif", k[agyield.CropAxis], k[agyield.YearAxis], k[agyield.BandAxis])
		})
		if err != nil {
			return nil, err
		}
		paths = append(paths, p...)
	}
	return paths, nil
}
