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

package agyield

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// along calls f once for every one-dimensional lane of t running along axis
// i. in holds the lane values and out receives the values of the lane in the
// result, whose axis i is replaced by newAxis, or dropped if newAxis is nil.
func along(t *Tensor, i int, newAxis *Axis, f func(in, out []float64)) *Tensor {
	axes := make([]Axis, 0, len(t.Axes))
	m := 1
	for k, a := range t.Axes {
		if k != i {
			axes = append(axes, a)
			continue
		}
		if newAxis != nil {
			axes = append(axes, *newAxis)
			m = newAxis.Len()
		}
	}
	o := New(axes...)
	o.Name, o.Description, o.Units = t.Name, t.Description, t.Units
	if t.Geo != nil {
		g := *t.Geo
		o.Geo = &g
	}
	shape := t.Shape()
	outer, inner := 1, 1
	for k := 0; k < i; k++ {
		outer *= shape[k]
	}
	for k := i + 1; k < len(shape); k++ {
		inner *= shape[k]
	}
	n := shape[i]
	in := make([]float64, n)
	out := make([]float64, m)
	for oi := 0; oi < outer; oi++ {
		for ii := 0; ii < inner; ii++ {
			for k := 0; k < n; k++ {
				in[k] = t.Data.Elements[(oi*n+k)*inner+ii]
			}
			f(in, out)
			for k := 0; k < m; k++ {
				o.Data.Elements[(oi*m+k)*inner+ii] = out[k]
			}
		}
	}
	return o
}

// Reduce collapses the named axis using f, which receives the values along
// the axis and returns their summary.
func Reduce(t *Tensor, name string, f func([]float64) float64) (*Tensor, error) {
	i := t.AxisIndex(name)
	if i < 0 {
		return nil, fmt.Errorf("agyield: tensor %s has no axis %s", t.Name, name)
	}
	return along(t, i, nil, func(in, out []float64) {
		out[0] = f(in)
	}), nil
}

// finite returns the non-NaN values of x.
func finite(x []float64) []float64 {
	o := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			o = append(o, v)
		}
	}
	return o
}

// NaNMean returns the mean of the non-NaN values in x, or NaN if there are none.
func NaNMean(x []float64) float64 {
	v := finite(x)
	if len(v) == 0 {
		return math.NaN()
	}
	return stat.Mean(v, nil)
}

// NaNStd returns the population standard deviation of the non-NaN values in
// x, or NaN if there are none.
func NaNStd(x []float64) float64 {
	v := finite(x)
	if len(v) == 0 {
		return math.NaN()
	}
	_, std := stat.PopMeanStdDev(v, nil)
	return std
}

// NaNPercentile returns the p-th percentile (0 <= p <= 100) of the non-NaN
// values in x, linearly interpolating between the two closest ranks, or NaN
// if there are no such values. x is not modified.
func NaNPercentile(x []float64, p float64) float64 {
	v := finite(x)
	if len(v) == 0 {
		return math.NaN()
	}
	sort.Float64s(v)
	// Percentiles outside [0, 100] are clamped to the extreme values.
	rank := math.Max(0, math.Min(p/100, 1)) * float64(len(v)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if v[lo] == v[hi] {
		return v[lo]
	}
	return v[lo] + (v[hi]-v[lo])*(rank-float64(lo))
}

// MeanStd reduces the named axis to its mean and population standard
// deviation, which are placed on a band axis at the position of the reduced
// axis.
func MeanStd(t *Tensor, name string) (*Tensor, error) {
	i := t.AxisIndex(name)
	if i < 0 {
		return nil, fmt.Errorf("agyield: tensor %s has no axis %s", t.Name, name)
	}
	band := BandAxisMeanStd()
	return along(t, i, &band, func(in, out []float64) {
		out[0] = NaNMean(in)
		out[1] = NaNStd(in)
	}), nil
}

// Interp linearly interpolates t along the named integer-valued axis to the
// target coordinates. Targets outside the range of the axis are linearly
// extrapolated from the two nearest points when extrapolate is true, and are
// NaN otherwise. A NaN at either end of the bracketing segment gives NaN.
func Interp(t *Tensor, name string, targets []int, extrapolate bool) (*Tensor, error) {
	i := t.AxisIndex(name)
	if i < 0 {
		return nil, fmt.Errorf("agyield: tensor %s has no axis %s", t.Name, name)
	}
	xs, err := t.Axes[i].Ints()
	if err != nil {
		return nil, err
	}
	if !sort.IntsAreSorted(xs) {
		return nil, fmt.Errorf("agyield: interpolation axis %s is not sorted", name)
	}
	for k := 1; k < len(xs); k++ {
		if xs[k] == xs[k-1] {
			return nil, fmt.Errorf("agyield: interpolation axis %s has duplicate coordinate %d", name, xs[k])
		}
	}
	if len(xs) < 2 {
		for _, x := range targets {
			if len(xs) == 0 || x != xs[0] {
				return nil, fmt.Errorf("agyield: cannot interpolate axis %s with %d points to %d", name, len(xs), x)
			}
		}
	}

	// Precompute the bracketing segment of each target.
	type segment struct {
		lo, hi int
		w      float64
		exact  bool
	}
	segs := make([]segment, len(targets))
	for k, x := range targets {
		j := sort.SearchInts(xs, x)
		switch {
		case j < len(xs) && xs[j] == x:
			segs[k] = segment{lo: j, exact: true}
		case j == 0:
			segs[k] = segment{lo: 0, hi: 1, w: float64(x-xs[0]) / float64(xs[1]-xs[0])}
			if !extrapolate {
				segs[k].lo = -1
			}
		case j == len(xs):
			n := len(xs)
			segs[k] = segment{lo: n - 2, hi: n - 1, w: float64(x-xs[n-2]) / float64(xs[n-1]-xs[n-2])}
			if !extrapolate {
				segs[k].lo = -1
			}
		default:
			segs[k] = segment{lo: j - 1, hi: j, w: float64(x-xs[j-1]) / float64(xs[j]-xs[j-1])}
		}
	}
	newAxis := IntAxis(name, targets...)
	return along(t, i, &newAxis, func(in, out []float64) {
		for k, s := range segs {
			switch {
			case s.lo < 0:
				out[k] = math.NaN()
			case s.exact:
				out[k] = in[s.lo]
			default:
				out[k] = in[s.lo] + (in[s.hi]-in[s.lo])*s.w
			}
		}
	}), nil
}

// Stack combines tensors with identical axes along a new axis inserted at
// position pos. The new axis must have one coordinate per tensor.
func Stack(ax Axis, pos int, ts ...*Tensor) (*Tensor, error) {
	if len(ts) == 0 || ax.Len() != len(ts) {
		return nil, fmt.Errorf("agyield: stacking %d tensors along axis %s with %d coordinates", len(ts), ax.Name, ax.Len())
	}
	for _, t := range ts[1:] {
		if err := CheckSameAxes(ts[0], t); err != nil {
			return nil, err
		}
	}
	if pos < 0 || pos > len(ts[0].Axes) {
		return nil, fmt.Errorf("agyield: invalid stack position %d", pos)
	}
	axes := make([]Axis, 0, len(ts[0].Axes)+1)
	axes = append(axes, ts[0].Axes[:pos]...)
	axes = append(axes, ax)
	axes = append(axes, ts[0].Axes[pos:]...)
	o := New(axes...)
	o.Name, o.Description, o.Units = ts[0].Name, ts[0].Description, ts[0].Units
	if ts[0].Geo != nil {
		g := *ts[0].Geo
		o.Geo = &g
	}
	shape := ts[0].Shape()
	outer, inner := 1, 1
	for k := 0; k < pos; k++ {
		outer *= shape[k]
	}
	for k := pos; k < len(shape); k++ {
		inner *= shape[k]
	}
	n := len(ts)
	for oi := 0; oi < outer; oi++ {
		for k, t := range ts {
			copy(o.Data.Elements[(oi*n+k)*inner:(oi*n+k+1)*inner], t.Data.Elements[oi*inner:(oi+1)*inner])
		}
	}
	return o, nil
}
