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

package gaez

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/agyield"
	"golang.org/x/sync/errgroup"
)

// Config holds the settings for climate multiplier derivation.
type Config struct {
	// BaseYear is the year that multipliers are relative to.
	BaseYear int

	// CapPercentile is the percentile of each scenario slice above which
	// multipliers are clipped, unless CapMax is lower.
	CapPercentile float64

	// CapMax is the largest allowed multiplier.
	CapMax float64

	// Workers is the number of scenario combinations processed
	// concurrently. Zero means GOMAXPROCS.
	Workers int

	Log logrus.FieldLogger
}

func (c *Config) log() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

func (c *Config) workers() int {
	if c.Workers <= 0 {
		return runtime.GOMAXPROCS(-1)
	}
	return c.Workers
}

// checkAxes returns an error unless t has the given axes followed by (y, x).
func checkAxes(t *agyield.Tensor, names []string) error {
	want := append(append([]string{}, names...), agyield.YAxis, agyield.XAxis)
	have := t.AxisNames()
	if len(have) != len(want) {
		return fmt.Errorf("gaez: tensor %s has axes %v, want %v", t.Name, have, want)
	}
	for i := range want {
		if have[i] != want[i] {
			return fmt.Errorf("gaez: tensor %s has axes %v, want %v", t.Name, have, want)
		}
	}
	return nil
}

// Multipliers derives climate yield multipliers from historical and future
// potential yields as produced by Historical and Future.
//
// For every ensemble member the historical series is joined with the
// member's projection and linearly interpolated to the base year, and the
// projection is divided by that baseline. The ensemble mean and population
// standard deviation of the ratios form the band axis of the result. Each
// (year, rcp, crop, water_supply, co2_fertilization) slice, both bands and
// all pixels, is then clipped from above to the smaller of its
// CapPercentile-th percentile and CapMax. Slices without data are left
// untouched.
//
// The result has axes (year, rcp, crop, water_supply, co2_fertilization,
// band, y, x) with the future years on the year axis.
func Multipliers(ctx context.Context, hist, future *agyield.Tensor, cfg Config) (*agyield.Tensor, error) {
	if !(cfg.CapPercentile >= 0 && cfg.CapPercentile <= 100) {
		return nil, fmt.Errorf("gaez: cap percentile %g is not between 0 and 100", cfg.CapPercentile)
	}
	if err := checkAxes(hist, historicalAxes); err != nil {
		return nil, err
	}
	if err := checkAxes(future, futureAxes); err != nil {
		return nil, err
	}
	for _, a := range []string{agyield.YAxis, agyield.XAxis} {
		ha, _ := hist.Axis(a)
		fa, _ := future.Axis(a)
		if !ha.Equal(fa) {
			return nil, &agyield.AlignmentError{Axis: a, A: ha.Coords, B: fa.Coords}
		}
	}
	histYears, err := hist.Axes[0].Ints()
	if err != nil {
		return nil, err
	}
	years, err := future.Axes[0].Ints()
	if err != nil {
		return nil, err
	}
	models := future.Axes[1]
	yAxis, xAxis := future.Axes[len(future.Axes)-2], future.Axes[len(future.Axes)-1]
	npix := yAxis.Len() * xAxis.Len()
	seriesYears := append(append([]int{}, histYears...), years...)

	scenarioAxes := []agyield.Axis{future.Axes[2], future.Axes[3], future.Axes[4], future.Axes[5]}
	out := agyield.New(append([]agyield.Axis{future.Axes[0]},
		append(scenarioAxes, agyield.BandAxisMeanStd(), yAxis, xAxis)...)...)
	out.Name = "gaez_multiplier"
	out.Description = fmt.Sprintf("GAEZ v4 yield relative to %d", cfg.BaseYear)
	out.Units = "1"
	out.Geo = future.Geo

	log := cfg.log()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers())
	for _, k := range agyield.Combinations(scenarioAxes...) {
		k := k
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			h, err := hist.Sel(agyield.Combination{
				agyield.CropAxis:  k[agyield.CropAxis],
				agyield.WaterAxis: k[agyield.WaterAxis],
			})
			if err != nil {
				return fmt.Errorf("gaez: historical yield for %s: %v", k, err)
			}
			ratio := agyield.New(future.Axes[0], models, yAxis, xAxis)
			for mi, m := range models.Coords {
				f, err := future.Sel(k.With(agyield.ModelAxis, m))
				if err != nil {
					return err
				}
				series := agyield.New(agyield.IntAxis(agyield.YearAxis, seriesYears...), yAxis, xAxis)
				copy(series.Data.Elements, h.Data.Elements)
				copy(series.Data.Elements[len(h.Data.Elements):], f.Data.Elements)
				b, err := agyield.Interp(series, agyield.YearAxis, []int{cfg.BaseYear}, false)
				if err != nil {
					return fmt.Errorf("gaez: baseline for %s: %v", k.With(agyield.ModelAxis, m), err)
				}
				base := b.Data.Elements
				for yi := range years {
					for p := 0; p < npix; p++ {
						ratio.Data.Elements[(yi*models.Len()+mi)*npix+p] = f.Data.Elements[yi*npix+p] / base[p]
					}
				}
			}
			ms, err := agyield.MeanStd(ratio, agyield.ModelAxis)
			if err != nil {
				return err
			}
			for yi, year := range years {
				slice := ms.Data.Elements[yi*2*npix : (yi+1)*2*npix]
				c, ok := capSlice(slice, cfg.CapPercentile, cfg.CapMax)
				fields := comboFields(k)
				fields[agyield.YearAxis] = year
				if !ok {
					log.WithFields(fields).Debug("gaez: empty multiplier slice")
					continue
				}
				fields["cap"] = c
				log.WithFields(fields).Debug("gaez: capped multipliers")
			}
			return out.Assign(k, ms)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// capSlice clips the values in x from above to the smaller of their p-th
// percentile and max. NaN values are ignored and kept. It returns the cap
// and whether x held any values.
func capSlice(x []float64, p, max float64) (float64, bool) {
	c := agyield.NaNPercentile(x, p)
	if math.IsNaN(c) {
		return c, false
	}
	if max < c {
		c = max
	}
	for i, v := range x {
		if v > c {
			x[i] = c
		}
	}
	return c, true
}

// Attainable returns the ensemble-mean future potential yield interpolated,
// and extrapolated where needed, to the given years. The result has axes
// (year, rcp, crop, water_supply, co2_fertilization, y, x).
func Attainable(future *agyield.Tensor, years []int) (*agyield.Tensor, error) {
	if err := checkAxes(future, futureAxes); err != nil {
		return nil, err
	}
	m, err := agyield.Reduce(future, agyield.ModelAxis, agyield.NaNMean)
	if err != nil {
		return nil, err
	}
	a, err := agyield.Interp(m, agyield.YearAxis, years, true)
	if err != nil {
		return nil, err
	}
	a.Name = "attainable_yield"
	a.Description = "GAEZ v4 ensemble-mean projected potential yield"
	return a, nil
}
