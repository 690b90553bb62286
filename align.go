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
	"strings"
)

// AlignmentError is returned when two tensors that are combined disagree on
// the coordinates of an axis they share.
type AlignmentError struct {
	Axis string
	A, B []string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("agyield: coordinates of axis %s do not match: [%s] vs. [%s]",
		e.Axis, strings.Join(e.A, " "), strings.Join(e.B, " "))
}

// CheckAligned returns an AlignmentError if any axis name shared by a and b
// has different coordinates in the two tensors. No broadcasting is implied:
// callers must still arrange for the shared axes to be used consistently.
func CheckAligned(a, b *Tensor) error {
	for _, ax := range a.Axes {
		bx, ok := b.Axis(ax.Name)
		if !ok {
			continue
		}
		if !ax.Equal(bx) {
			return &AlignmentError{Axis: ax.Name, A: ax.Coords, B: bx.Coords}
		}
	}
	return nil
}

// CheckSameAxes returns an error unless a and b have identical axes in the
// same order.
func CheckSameAxes(a, b *Tensor) error {
	if len(a.Axes) != len(b.Axes) {
		return fmt.Errorf("agyield: axes [%s] and [%s] differ",
			strings.Join(a.AxisNames(), " "), strings.Join(b.AxisNames(), " "))
	}
	for i, ax := range a.Axes {
		if ax.Name != b.Axes[i].Name {
			return fmt.Errorf("agyield: axes [%s] and [%s] differ",
				strings.Join(a.AxisNames(), " "), strings.Join(b.AxisNames(), " "))
		}
	}
	return CheckAligned(a, b)
}

// Zip returns a new tensor holding f(a[i], b[i]) for every element.
// a and b must have identical axes.
func Zip(a, b *Tensor, f func(x, y float64) float64) (*Tensor, error) {
	if err := CheckSameAxes(a, b); err != nil {
		return nil, err
	}
	o := a.Copy()
	for i, v := range a.Data.Elements {
		o.Data.Elements[i] = f(v, b.Data.Elements[i])
	}
	return o, nil
}
