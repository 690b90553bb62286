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
	"fmt"
	"math"

	"github.com/spatialmodel/agyield"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// BandSE is the band holding the standard error of the capped mean.
	BandSE = "se"

	// PercentileAxis is the axis of exported percentile bands.
	PercentileAxis = "percentile"
)

// DefaultPercentiles are the exported percentile bands.
var DefaultPercentiles = []int{25, 50, 75}

// Cap limits the mean of a prediction from Fuse to the attainable yield,
// which has the axes of the prediction without the band axis. NaN values
// are skipped in the minimum, so a pixel with no prediction takes the
// attainable yield. The standard deviation of the prediction is converted
// to the standard error of a mean of sampleSize draws and is not
// recomputed for capped pixels. The result has the axes of the prediction,
// with band coordinates (mean, se).
func Cap(pred, attainable *agyield.Tensor, sampleSize int) (*agyield.Tensor, error) {
	if err := spatialAxes(pred, agyield.YearAxis, agyield.RCPAxis, agyield.CropAxis,
		agyield.WaterAxis, agyield.CO2Axis, agyield.BandAxis); err != nil {
		return nil, err
	}
	if sampleSize < 1 {
		return nil, fmt.Errorf("projection: sample size must be positive, got %d", sampleSize)
	}
	mean, err := pred.Sel(agyield.Combination{agyield.BandAxis: agyield.BandMean})
	if err != nil {
		return nil, err
	}
	std, err := pred.Sel(agyield.Combination{agyield.BandAxis: agyield.BandStd})
	if err != nil {
		return nil, err
	}
	capped, err := agyield.Zip(mean, attainable, nanMin)
	if err != nil {
		return nil, fmt.Errorf("projection: capping %s with %s: %v", pred.Name, attainable.Name, err)
	}
	se := std.Copy()
	sqrtN := math.Sqrt(float64(sampleSize))
	se.Apply(func(v float64) float64 { return v / sqrtN })

	out, err := agyield.Stack(agyield.NewAxis(agyield.BandAxis, agyield.BandMean, BandSE),
		pred.AxisIndex(agyield.BandAxis), capped, se)
	if err != nil {
		return nil, err
	}
	out.Name = "capped_yield"
	out.Description = "yield prediction capped by attainable yield"
	out.Geo = pred.Geo
	return out, nil
}

// nanMin returns the smaller of a and b, ignoring a NaN operand. It is NaN
// only if both are.
func nanMin(a, b float64) float64 {
	switch {
	case math.IsNaN(a):
		return b
	case math.IsNaN(b):
		return a
	}
	return math.Min(a, b)
}

// PercentileLabel returns the coordinate of percentile p, e.g. "25th".
func PercentileLabel(p int) string { return fmt.Sprintf("%dth", p) }

// Percentiles converts the (mean, se) bands of a capped prediction into
// percentiles of a normal distribution. The 50th percentile is the mean.
// The band axis of the result is replaced by a percentile axis.
func Percentiles(capped *agyield.Tensor, ps []int) (*agyield.Tensor, error) {
	i := capped.AxisIndex(agyield.BandAxis)
	if i < 0 {
		return nil, fmt.Errorf("projection: tensor %s has no axis %s", capped.Name, agyield.BandAxis)
	}
	mean, err := capped.Sel(agyield.Combination{agyield.BandAxis: agyield.BandMean})
	if err != nil {
		return nil, err
	}
	se, err := capped.Sel(agyield.Combination{agyield.BandAxis: BandSE})
	if err != nil {
		return nil, err
	}
	labels := make([]string, len(ps))
	bands := make([]*agyield.Tensor, len(ps))
	for k, p := range ps {
		if p <= 0 || p >= 100 {
			return nil, fmt.Errorf("projection: invalid percentile %d", p)
		}
		labels[k] = PercentileLabel(p)
		if p == 50 {
			bands[k] = mean.Copy()
			continue
		}
		z := distuv.UnitNormal.Quantile(float64(p) / 100)
		bands[k], err = agyield.Zip(mean, se, func(m, s float64) float64 { return m + z*s })
		if err != nil {
			return nil, err
		}
	}
	out, err := agyield.Stack(agyield.NewAxis(PercentileAxis, labels...), i, bands...)
	if err != nil {
		return nil, err
	}
	out.Name = "yield_percentiles"
	out.Geo = capped.Geo
	return out, nil
}
