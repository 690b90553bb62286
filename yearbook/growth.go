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
	"math"

	"github.com/spatialmodel/agyield"
)

// GrowthRatios returns the ratio of observed yield in year to to observed
// yield in year from for every province and crop in recs, as a tensor with
// axes (province, crop). Ratios that are missing or not finite are 1.
func GrowthRatios(recs []Record, from, to int) *agyield.Tensor {
	type key struct {
		province, crop string
		year           int
	}
	ps, cs := make(map[string]bool), make(map[string]bool)
	obs := make(map[key]float64)
	for _, r := range recs {
		ps[r.Province] = true
		cs[r.Crop] = true
		obs[key{r.Province, r.Crop, r.Year}] = r.Yield
	}
	t := agyield.New(agyield.NewAxis(agyield.ProvinceAxis, sortedKeys(ps)...),
		agyield.NewAxis(agyield.CropAxis, sortedKeys(cs)...))
	t.Name = "yearbook_growth"
	t.Units = "1"
	for _, k := range agyield.Combinations(t.Axes...) {
		p, c := k[agyield.ProvinceAxis], k[agyield.CropAxis]
		ratio := 1.0
		a, okA := obs[key{p, c, to}]
		b, okB := obs[key{p, c, from}]
		if okA && okB {
			if v := a / b; !math.IsNaN(v) && !math.IsInf(v, 0) {
				ratio = v
			}
		}
		t.SetAt(ratio, k)
	}
	return t
}
