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

	"github.com/GaryBoone/GoStats/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// IntervalProbability is the two-sided coverage of the prediction interval
// whose half-width is reported as the standard deviation of a prediction:
// the probability mass within one standard deviation of a normal mean.
const IntervalProbability = 0.68

// DegenerateFitError is returned when a yield series cannot support a
// linear trend with a prediction interval.
type DegenerateFitError struct {
	Province, Crop string
	N              int
	Reason         string
}

func (e *DegenerateFitError) Error() string {
	return fmt.Sprintf("yearbook: cannot fit trend for %s in %s with %d points: %s", e.Crop, e.Province, e.N, e.Reason)
}

// Trend is an ordinary least squares fit of yield on year.
type Trend struct {
	Province, Crop string

	Slope, Intercept, RSquared float64

	// N is the number of observations.
	N int

	// ResidualVar is the residual variance, with N-2 degrees of freedom.
	ResidualVar float64

	// center is the fitted yield at meanYear.
	center, meanYear, sxx float64
	tQuantile             float64
}

// FitTrend fits a linear trend of yields on years.
func FitTrend(province, crop string, years, yields []float64) (*Trend, error) {
	n := len(years)
	if n != len(yields) {
		return nil, fmt.Errorf("yearbook: %d years and %d yields for %s in %s", n, len(yields), crop, province)
	}
	if n < 3 {
		return nil, &DegenerateFitError{Province: province, Crop: crop, N: n,
			Reason: "at least 3 points are required"}
	}
	meanYear := stat.Mean(years, nil)
	var sxx float64
	for _, x := range years {
		sxx += (x - meanYear) * (x - meanYear)
	}
	if sxx == 0 {
		return nil, &DegenerateFitError{Province: province, Crop: crop, N: n,
			Reason: "all observations are in the same year"}
	}
	for i, y := range yields {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return nil, &DegenerateFitError{Province: province, Crop: crop, N: n,
				Reason: fmt.Sprintf("invalid yield %g in %g", y, years[i])}
		}
	}

	centered := make([]float64, n)
	for i, x := range years {
		centered[i] = x - meanYear
	}
	slope, center, rsquared, _, _, _ := stats.LinearRegression(centered, yields)
	var sse float64
	for i, x := range centered {
		r := yields[i] - (center + slope*x)
		sse += r * r
	}
	tr := &Trend{
		Province:    province,
		Crop:        crop,
		Slope:       slope,
		Intercept:   center - slope*meanYear,
		RSquared:    rsquared,
		N:           n,
		ResidualVar: sse / float64(n-2),
		center:      center,
		meanYear:    meanYear,
		sxx:         sxx,
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	tr.tQuantile = t.Quantile(1 - (1-IntervalProbability)/2)
	return tr, nil
}

// Predict returns the predicted mean yield in the given year and the
// half-width of the IntervalProbability prediction interval for a new
// observation, which is used as its standard deviation.
func (tr *Trend) Predict(year float64) (mean, std float64) {
	d := year - tr.meanYear
	mean = tr.center + tr.Slope*d
	se := math.Sqrt(tr.ResidualVar * (1 + 1/float64(tr.N) + d*d/tr.sxx))
	return mean, tr.tQuantile * se
}
