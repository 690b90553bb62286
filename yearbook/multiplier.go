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
	"sort"
	"strconv"

	"github.com/spatialmodel/agyield"
)

// Config holds the settings for trend extrapolation.
type Config struct {
	// StartYear is the first year of observations used for fitting.
	StartYear int

	// BaseYear is the year that multipliers are relative to.
	BaseYear int

	// Years are the years to extrapolate to.
	Years []int
}

// Fit fits a linear trend to the records of every (province, crop) pair
// from StartYear on. Trends are returned sorted by province and crop.
func Fit(recs []Record, cfg Config) ([]*Trend, error) {
	type group struct {
		province, crop string
		years, yields  []float64
	}
	groups := make(map[[2]string]*group)
	for _, r := range recs {
		if r.Year < cfg.StartYear {
			continue
		}
		k := [2]string{r.Province, r.Crop}
		g, ok := groups[k]
		if !ok {
			g = &group{province: r.Province, crop: r.Crop}
			groups[k] = g
		}
		g.years = append(g.years, float64(r.Year))
		g.yields = append(g.yields, r.Yield)
	}
	keys := make([][2]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	trends := make([]*Trend, len(keys))
	for i, k := range keys {
		g := groups[k]
		tr, err := FitTrend(g.province, g.crop, g.years, g.yields)
		if err != nil {
			return nil, err
		}
		trends[i] = tr
	}
	return trends, nil
}

// trendAxes returns the province and crop axes spanned by trends.
func trendAxes(trends []*Trend) (province, crop agyield.Axis) {
	ps, cs := make(map[string]bool), make(map[string]bool)
	for _, tr := range trends {
		ps[tr.Province] = true
		cs[tr.Crop] = true
	}
	return agyield.NewAxis(agyield.ProvinceAxis, sortedKeys(ps)...),
		agyield.NewAxis(agyield.CropAxis, sortedKeys(cs)...)
}

func sortedKeys(m map[string]bool) []string {
	o := make([]string, 0, len(m))
	for k := range m {
		o = append(o, k)
	}
	sort.Strings(o)
	return o
}

// Project returns the extrapolated yields of trends as a tensor with axes
// (province, crop, year, band). Pairs without a trend are NaN. years must
// not repeat.
func Project(trends []*Trend, years []int) (*agyield.Tensor, error) {
	seen := make(map[int]bool, len(years))
	for _, y := range years {
		if seen[y] {
			return nil, fmt.Errorf("yearbook: projection year %d is repeated", y)
		}
		seen[y] = true
	}
	province, crop := trendAxes(trends)
	t := agyield.New(province, crop, agyield.IntAxis(agyield.YearAxis, years...), agyield.BandAxisMeanStd())
	t.Name = "yearbook_yield"
	t.Units = "t/ha"
	for _, tr := range trends {
		for _, y := range years {
			mean, std := tr.Predict(float64(y))
			k := agyield.Combination{agyield.ProvinceAxis: tr.Province, agyield.CropAxis: tr.Crop,
				agyield.YearAxis: strconv.Itoa(y)}
			if err := t.SetAt(mean, k.With(agyield.BandAxis, agyield.BandMean)); err != nil {
				return nil, err
			}
			if err := t.SetAt(std, k.With(agyield.BandAxis, agyield.BandStd)); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

// Multipliers returns the extrapolated yields of trends divided by the
// trend mean in the base year, as a tensor with axes (province, crop,
// year, band). Standard deviations are divided by the same value, so the
// base year mean multiplier is exactly one.
func Multipliers(trends []*Trend, cfg Config) (*agyield.Tensor, error) {
	t, err := Project(trends, cfg.Years)
	if err != nil {
		return nil, err
	}
	t.Name = "yearbook_multiplier"
	t.Description = fmt.Sprintf("yearbook trend yield relative to %d", cfg.BaseYear)
	t.Units = "1"
	for _, tr := range trends {
		base, _ := tr.Predict(float64(cfg.BaseYear))
		if base == 0 || math.IsNaN(base) || math.IsInf(base, 0) {
			return nil, &DegenerateFitError{Province: tr.Province, Crop: tr.Crop, N: tr.N,
				Reason: fmt.Sprintf("trend yield in %d is %g", cfg.BaseYear, base)}
		}
		s, err := t.Sel(agyield.Combination{agyield.ProvinceAxis: tr.Province, agyield.CropAxis: tr.Crop})
		if err != nil {
			return nil, err
		}
		s.Apply(func(v float64) float64 { return v / base })
		if err := t.Assign(agyield.Combination{agyield.ProvinceAxis: tr.Province, agyield.CropAxis: tr.Crop}, s); err != nil {
			return nil, err
		}
	}
	return t, nil
}
