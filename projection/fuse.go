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
	"math"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/agyield"
	"github.com/spatialmodel/agyield/internal/hash"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Config holds the settings for multiplier fusion.
type Config struct {
	// Years are the projection years.
	Years []int

	// SampleSize is the number of Monte Carlo draws per pixel.
	SampleSize int

	// Seed is the base random seed. Each scenario combination is sampled
	// from its own stream derived from Seed and the combination, so results
	// do not depend on Workers. A negative Seed seeds from the clock.
	Seed int64

	// StdFloor replaces standard deviations that are not positive.
	StdFloor float64

	// Workers is the number of combinations sampled concurrently.
	// Zero means GOMAXPROCS.
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

// Fuse predicts yields by combining the climate multipliers (axes year, rcp,
// crop, water_supply, co2_fertilization, band, y, x), the rasterized
// yearbook multipliers (axes crop, year, band, y, x) and the 2020 baseline
// (axes crop, water_supply, y, x).
//
// The climate multipliers are first interpolated, and extrapolated, to
// cfg.Years. Then for every pixel SampleSize pairs of draws are taken from
// normal distributions with the mean and standard deviation of each
// multiplier, and each pair is multiplied together and by the baseline. The
// mean and population standard deviation of the sampled yields form the
// band axis of the result, which has the axes of the climate multipliers.
// Pixels where any input is missing are NaN.
func Fuse(ctx context.Context, gaezM, yearbookM, base *agyield.Tensor, cfg Config) (*agyield.Tensor, error) {
	if err := spatialAxes(gaezM, agyield.YearAxis, agyield.RCPAxis, agyield.CropAxis,
		agyield.WaterAxis, agyield.CO2Axis, agyield.BandAxis); err != nil {
		return nil, err
	}
	if err := spatialAxes(yearbookM, agyield.CropAxis, agyield.YearAxis, agyield.BandAxis); err != nil {
		return nil, err
	}
	if err := spatialAxes(base, agyield.CropAxis, agyield.WaterAxis); err != nil {
		return nil, err
	}
	if err := sameGrid(gaezM, yearbookM, base); err != nil {
		return nil, err
	}
	band := agyield.BandAxisMeanStd()
	for _, t := range []*agyield.Tensor{gaezM, yearbookM} {
		if b, _ := t.Axis(agyield.BandAxis); !b.Equal(band) {
			return nil, &agyield.AlignmentError{Axis: agyield.BandAxis, A: band.Coords, B: b.Coords}
		}
	}
	if cfg.SampleSize < 1 {
		return nil, fmt.Errorf("projection: sample size must be positive, got %d", cfg.SampleSize)
	}
	if len(cfg.Years) == 0 {
		return nil, fmt.Errorf("projection: no projection years")
	}

	g, err := agyield.Interp(gaezM, agyield.YearAxis, cfg.Years, true)
	if err != nil {
		return nil, err
	}
	y, x := g.Axes[len(g.Axes)-2], g.Axes[len(g.Axes)-1]
	out := agyield.New(g.Axes...)
	out.Name = "yield_prediction"
	out.Description = "Monte Carlo yield prediction"
	out.Units = base.Units
	out.Geo = base.Geo

	seed := cfg.Seed
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	log := cfg.log()
	log.WithFields(logrus.Fields{"seed": seed, "samples": cfg.SampleSize}).Info("projection: fusing multipliers")

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.workers())
	for _, k := range agyield.Combinations(g.Axes[:5]...) {
		k := k
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			gm, err := g.Sel(k)
			if err != nil {
				return err
			}
			ym, err := yearbookM.Sel(agyield.Combination{
				agyield.CropAxis: k[agyield.CropAxis],
				agyield.YearAxis: k[agyield.YearAxis],
			})
			if err != nil {
				return fmt.Errorf("projection: yearbook multiplier for %s: %v", k, err)
			}
			b, err := base.Sel(agyield.Combination{
				agyield.CropAxis:  k[agyield.CropAxis],
				agyield.WaterAxis: k[agyield.WaterAxis],
			})
			if err != nil {
				return fmt.Errorf("projection: baseline for %s: %v", k, err)
			}
			p := agyield.New(band, y, x)
			src := rand.NewSource(hash.Seed(seed, k))
			sample(gm.Data.Elements, ym.Data.Elements, b.Data.Elements, p.Data.Elements,
				cfg.SampleSize, cfg.StdFloor, src)
			return out.Assign(k, p)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// sample fills out, laid out as (band, pixel), with the mean and standard
// deviation of n draws of base × a × b, where a and b are normally
// distributed with the (band, pixel) parameters in m1 and m2.
func sample(m1, m2, base, out []float64, n int, floor float64, src rand.Source) {
	npix := len(base)
	a := distuv.Normal{Src: src}
	b := distuv.Normal{Src: src}
	draws := make([]float64, n)
	for p := 0; p < npix; p++ {
		mu1, s1 := m1[p], m1[npix+p]
		mu2, s2 := m2[p], m2[npix+p]
		if anyNaN(mu1, s1, mu2, s2, base[p]) {
			out[p], out[npix+p] = math.NaN(), math.NaN()
			continue
		}
		a.Mu, a.Sigma = mu1, floorStd(s1, floor)
		b.Mu, b.Sigma = mu2, floorStd(s2, floor)
		for i := range draws {
			draws[i] = base[p] * a.Rand() * b.Rand()
		}
		out[p], out[npix+p] = stat.PopMeanStdDev(draws, nil)
	}
}

func floorStd(s, floor float64) float64 {
	if s <= 0 {
		return floor
	}
	return s
}

func anyNaN(v ...float64) bool {
	for _, x := range v {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}
