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

// Package agyield projects crop-yield multipliers for Chinese provinces by
// combining gridded climate-model projections with provincial yearbook trends.
//
// The root package holds the labeled Tensor type that every stage of the
// pipeline reads and writes, along with the lookup tables and persistence
// helpers shared by the stage packages.
package agyield

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ctessum/sparse"
)

// Version gives the version number.
const Version = "0.1.0"

// Axis names used throughout the pipeline.
const (
	YearAxis     = "year"
	ModelAxis    = "model"
	RCPAxis      = "rcp"
	CropAxis     = "crop"
	WaterAxis    = "water_supply"
	CO2Axis      = "co2_fertilization"
	BandAxis     = "band"
	ProvinceAxis = "province"
	YAxis        = "y"
	XAxis        = "x"
)

// Band coordinates.
const (
	BandMean = "mean"
	BandStd  = "std"
)

// Axis is a named tensor dimension with an ordered set of coordinate labels.
type Axis struct {
	Name   string
	Coords []string
}

// NewAxis returns an axis with the given name and coordinates.
func NewAxis(name string, coords ...string) Axis {
	c := make([]string, len(coords))
	copy(c, coords)
	return Axis{Name: name, Coords: c}
}

// IntAxis returns an axis whose coordinates are integers, such as years.
func IntAxis(name string, vals ...int) Axis {
	c := make([]string, len(vals))
	for i, v := range vals {
		c[i] = strconv.Itoa(v)
	}
	return Axis{Name: name, Coords: c}
}

// FloatAxis returns an axis whose coordinates are floating point numbers,
// such as pixel-center coordinates.
func FloatAxis(name string, vals ...float64) Axis {
	c := make([]string, len(vals))
	for i, v := range vals {
		c[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return Axis{Name: name, Coords: c}
}

// BandAxisMeanStd returns the band axis carried by multiplier tensors.
func BandAxisMeanStd() Axis { return NewAxis(BandAxis, BandMean, BandStd) }

// Len returns the number of coordinates.
func (a Axis) Len() int { return len(a.Coords) }

// Index returns the position of coordinate c, or -1 if it is not present.
func (a Axis) Index(c string) int {
	for i, v := range a.Coords {
		if v == c {
			return i
		}
	}
	return -1
}

// Ints parses the coordinates as integers.
func (a Axis) Ints() ([]int, error) {
	o := make([]int, len(a.Coords))
	for i, c := range a.Coords {
		v, err := strconv.Atoi(c)
		if err != nil {
			return nil, fmt.Errorf("agyield: axis %s coordinate %q is not an integer", a.Name, c)
		}
		o[i] = v
	}
	return o, nil
}

// Float64s parses the coordinates as floating point numbers.
func (a Axis) Float64s() ([]float64, error) {
	o := make([]float64, len(a.Coords))
	for i, c := range a.Coords {
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return nil, fmt.Errorf("agyield: axis %s coordinate %q is not a number", a.Name, c)
		}
		o[i] = v
	}
	return o, nil
}

// Equal returns whether a and b have the same name and coordinates in the
// same order.
func (a Axis) Equal(b Axis) bool {
	if a.Name != b.Name || len(a.Coords) != len(b.Coords) {
		return false
	}
	for i, c := range a.Coords {
		if b.Coords[i] != c {
			return false
		}
	}
	return true
}

// GeoRef holds the georeferencing of the trailing (y, x) axes of a tensor.
type GeoRef struct {
	// Transform is the GDAL affine transform:
	// x = T[0] + col*T[1] + row*T[2]; y = T[3] + col*T[4] + row*T[5].
	Transform [6]float64

	// Projection is the coordinate reference system in WKT or Proj4 format.
	Projection string
}

// Tensor is a labeled multi-dimensional array of float64 values in which
// NaN marks missing data.
type Tensor struct {
	Name        string
	Description string
	Units       string

	Axes []Axis
	Data *sparse.DenseArray

	// Geo is the spatial reference of the y and x axes, if there are any.
	Geo *GeoRef
}

// New creates a NaN-filled tensor with the given axes.
func New(axes ...Axis) *Tensor {
	shape := make([]int, len(axes))
	seen := make(map[string]bool)
	a := make([]Axis, len(axes))
	for i, ax := range axes {
		if seen[ax.Name] {
			panic(fmt.Errorf("agyield: duplicate axis %s", ax.Name))
		}
		seen[ax.Name] = true
		shape[i] = ax.Len()
		a[i] = NewAxis(ax.Name, ax.Coords...)
	}
	t := &Tensor{Axes: a, Data: sparse.ZerosDense(shape...)}
	for i := range t.Data.Elements {
		t.Data.Elements[i] = math.NaN()
	}
	return t
}

// Shape returns the number of coordinates along each axis.
func (t *Tensor) Shape() []int {
	s := make([]int, len(t.Axes))
	for i, a := range t.Axes {
		s[i] = a.Len()
	}
	return s
}

// AxisIndex returns the position of the named axis, or -1.
func (t *Tensor) AxisIndex(name string) int {
	for i, a := range t.Axes {
		if a.Name == name {
			return i
		}
	}
	return -1
}

// Axis returns the named axis.
func (t *Tensor) Axis(name string) (Axis, bool) {
	i := t.AxisIndex(name)
	if i < 0 {
		return Axis{}, false
	}
	return t.Axes[i], true
}

// AxisNames returns the names of the axes in order.
func (t *Tensor) AxisNames() []string {
	o := make([]string, len(t.Axes))
	for i, a := range t.Axes {
		o[i] = a.Name
	}
	return o
}

// Copy returns a deep copy of t.
func (t *Tensor) Copy() *Tensor {
	o := New(t.Axes...)
	copy(o.Data.Elements, t.Data.Elements)
	o.Name, o.Description, o.Units = t.Name, t.Description, t.Units
	if t.Geo != nil {
		g := *t.Geo
		o.Geo = &g
	}
	return o
}

// At returns the value at the given coordinates, which must name every axis.
func (t *Tensor) At(c Combination) (float64, error) {
	i, err := t.flatIndex(c)
	if err != nil {
		return math.NaN(), err
	}
	return t.Data.Elements[i], nil
}

// SetAt sets the value at the given coordinates, which must name every axis.
func (t *Tensor) SetAt(v float64, c Combination) error {
	i, err := t.flatIndex(c)
	if err != nil {
		return err
	}
	t.Data.Elements[i] = v
	return nil
}

func (t *Tensor) flatIndex(c Combination) (int, error) {
	if len(c) != len(t.Axes) {
		return 0, fmt.Errorf("agyield: %d coordinates given for a %d-dimensional tensor", len(c), len(t.Axes))
	}
	strides := t.strides()
	var idx int
	for i, a := range t.Axes {
		v, ok := c[a.Name]
		if !ok {
			return 0, fmt.Errorf("agyield: no coordinate given for axis %s", a.Name)
		}
		j := a.Index(v)
		if j < 0 {
			return 0, fmt.Errorf("agyield: axis %s has no coordinate %q", a.Name, v)
		}
		idx += j * strides[i]
	}
	return idx, nil
}

// strides returns the row-major element strides of each axis.
func (t *Tensor) strides() []int {
	s := make([]int, len(t.Axes))
	stride := 1
	for i := len(t.Axes) - 1; i >= 0; i-- {
		s[i] = stride
		stride *= t.Axes[i].Len()
	}
	return s
}

// split resolves a selection into the fixed offset and the axes left free.
func (t *Tensor) split(sel Combination) (offset int, free []int, err error) {
	for name, c := range sel {
		i := t.AxisIndex(name)
		if i < 0 {
			return 0, nil, fmt.Errorf("agyield: tensor %s has no axis %s", t.Name, name)
		}
		if t.Axes[i].Index(c) < 0 {
			return 0, nil, fmt.Errorf("agyield: axis %s has no coordinate %q", name, c)
		}
	}
	strides := t.strides()
	for i, a := range t.Axes {
		if c, ok := sel[a.Name]; ok {
			offset += a.Index(c) * strides[i]
		} else {
			free = append(free, i)
		}
	}
	return offset, free, nil
}

// walk calls f with the flat index in t and the flat index in the selected
// slice for every element of the slice.
func (t *Tensor) walk(offset int, free []int, f func(src, dst int)) {
	strides := t.strides()
	n := 1
	for _, i := range free {
		n *= t.Axes[i].Len()
	}
	idx := make([]int, len(free))
	for dst := 0; dst < n; dst++ {
		src := offset
		for k, i := range free {
			src += idx[k] * strides[i]
		}
		f(src, dst)
		for k := len(idx) - 1; k >= 0; k-- {
			idx[k]++
			if idx[k] < t.Axes[free[k]].Len() {
				break
			}
			idx[k] = 0
		}
	}
}

// Sel returns a copy of the slice of t at the given coordinates. Selected
// axes are dropped from the result.
func (t *Tensor) Sel(sel Combination) (*Tensor, error) {
	offset, free, err := t.split(sel)
	if err != nil {
		return nil, err
	}
	axes := make([]Axis, len(free))
	for k, i := range free {
		axes[k] = t.Axes[i]
	}
	o := New(axes...)
	o.Name, o.Description, o.Units, o.Geo = t.Name, t.Description, t.Units, t.Geo
	t.walk(offset, free, func(src, dst int) {
		o.Data.Elements[dst] = t.Data.Elements[src]
	})
	return o, nil
}

// Assign writes v into the slice of t at the given coordinates. The axes of
// v must match the axes of t that are not in sel, in the same order and
// with the same coordinates.
func (t *Tensor) Assign(sel Combination, v *Tensor) error {
	offset, free, err := t.split(sel)
	if err != nil {
		return err
	}
	if len(free) != len(v.Axes) {
		return fmt.Errorf("agyield: assigning a %d-dimensional slice into %d free axes", len(v.Axes), len(free))
	}
	for k, i := range free {
		if !t.Axes[i].Equal(v.Axes[k]) {
			return &AlignmentError{Axis: t.Axes[i].Name, A: t.Axes[i].Coords, B: v.Axes[k].Coords}
		}
	}
	t.walk(offset, free, func(src, dst int) {
		t.Data.Elements[src] = v.Data.Elements[dst]
	})
	return nil
}

// Apply replaces every value x in t with f(x).
func (t *Tensor) Apply(f func(float64) float64) {
	for i, v := range t.Data.Elements {
		t.Data.Elements[i] = f(v)
	}
}

// Max returns the largest non-NaN value in t, or NaN if there is none.
func (t *Tensor) Max() float64 {
	m := math.NaN()
	for _, v := range t.Data.Elements {
		if !math.IsNaN(v) && (math.IsNaN(m) || v > m) {
			m = v
		}
	}
	return m
}
