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
	"sort"
	"strings"
)

// Combination maps axis names to a single coordinate on each axis.
type Combination map[string]string

// String returns the combination as sorted name=value pairs, so equal
// combinations always print the same way.
func (c Combination) String() string {
	names := make([]string, 0, len(c))
	for n := range c {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + "=" + c[n]
	}
	return strings.Join(parts, ",")
}

// With returns a copy of c with the additional name=value pair.
func (c Combination) With(name, value string) Combination {
	o := make(Combination, len(c)+1)
	for k, v := range c {
		o[k] = v
	}
	o[name] = value
	return o
}

// Product iterates over the full Cartesian product of the coordinates of a
// set of axes, with the last axis varying fastest.
type Product struct {
	axes []Axis
	idx  []int
	done bool
}

// NewProduct returns an iterator over the Cartesian product of axes.
// A product of zero axes yields a single empty combination.
func NewProduct(axes ...Axis) *Product {
	p := &Product{axes: axes, idx: make([]int, len(axes))}
	for _, a := range axes {
		if a.Len() == 0 {
			p.done = true
		}
	}
	return p
}

// Next returns the next combination, or false when the product is exhausted.
func (p *Product) Next() (Combination, bool) {
	if p.done {
		return nil, false
	}
	c := make(Combination, len(p.axes))
	for i, a := range p.axes {
		c[a.Name] = a.Coords[p.idx[i]]
	}
	p.done = true
	for k := len(p.idx) - 1; k >= 0; k-- {
		p.idx[k]++
		if p.idx[k] < p.axes[k].Len() {
			p.done = false
			break
		}
		p.idx[k] = 0
	}
	return c, true
}

// Combinations returns every combination of the given axes.
func Combinations(axes ...Axis) []Combination {
	var o []Combination
	p := NewProduct(axes...)
	for c, ok := p.Next(); ok; c, ok = p.Next() {
		o = append(o, c)
	}
	return o
}

// Years returns the years from start to end inclusive in increments of step.
func Years(start, end, step int) []int {
	if step <= 0 {
		return nil
	}
	var o []int
	for y := start; y <= end; y += step {
		o = append(o, y)
	}
	return o
}
