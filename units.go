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
	"sort"
	"strings"

	"github.com/ctessum/unit"
)

// YieldDims are the dimensions of an areal crop yield (mass per area).
var YieldDims = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -2}

// yieldUnits holds the SI value (kg/m²) of one of each supported yield unit.
var yieldUnits = map[string]float64{
	"kg/ha": 1.0 / 1e4,
	"t/ha":  1000.0 / 1e4,
	"kg/m2": 1,
	"g/m2":  1.0 / 1000,
}

// Yield returns the yield v expressed in the named units as a
// dimensioned SI quantity.
func Yield(v float64, units string) (*unit.Unit, error) {
	f, ok := yieldUnits[strings.ToLower(strings.TrimSpace(units))]
	if !ok {
		var valid []string
		for k := range yieldUnits {
			valid = append(valid, k)
		}
		sort.Strings(valid)
		return nil, fmt.Errorf("agyield: unsupported yield units %q; valid options are %v", units, valid)
	}
	return unit.New(v*f, YieldDims), nil
}

// TonnesPerHectare returns the value of yield u in t/ha.
func TonnesPerHectare(u *unit.Unit) (float64, error) {
	if err := u.Check(YieldDims); err != nil {
		return 0, fmt.Errorf("agyield: %v", err)
	}
	return u.Value() * 1e4 / 1000, nil
}

// YieldConverter returns a function that converts yields in the named units
// to t/ha.
func YieldConverter(units string) (func(float64) float64, error) {
	one, err := Yield(1, units)
	if err != nil {
		return nil, err
	}
	f, err := TonnesPerHectare(one)
	if err != nil {
		return nil, err
	}
	return func(v float64) float64 { return v * f }, nil
}
