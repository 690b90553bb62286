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

package gaez

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/agyield"
	"github.com/spatialmodel/agyield/grid"
	"github.com/spatialmodel/agyield/raster"
	"golang.org/x/sync/errgroup"
)

// MissingPolicy specifies what happens when a scenario combination that
// the full Cartesian product of the catalog axes calls for has no layer.
type MissingPolicy string

const (
	// MissingFail aborts with a MissingLayerError.
	MissingFail MissingPolicy = "fail"

	// MissingDrop leaves the combination as NaN so that it is skipped by
	// later NaN-ignoring reductions.
	MissingDrop MissingPolicy = "drop"
)

// ParseMissingPolicy returns the policy named by s.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch p := MissingPolicy(s); p {
	case MissingFail, MissingDrop:
		return p, nil
	default:
		return "", fmt.Errorf("gaez: invalid missing-layer policy %q; valid options are %q and %q", s, MissingFail, MissingDrop)
	}
}

// MissingLayerError reports a scenario combination that has no layer in
// the catalog.
type MissingLayerError struct {
	Tensor string
	Key    agyield.Combination
}

func (e *MissingLayerError) Error() string {
	return fmt.Sprintf("gaez: %s: no catalog layer for %s", e.Tensor, e.Key)
}

// An Ingester merges catalog layers into labeled tensors on a common grid.
type Ingester struct {
	// Grid is the reference pixel grid. Every layer must be on it.
	Grid *grid.GridDef

	// Loader reads raster files.
	Loader *raster.Loader

	// Tables maps year window labels to years.
	Tables *agyield.Tables

	// Missing is the policy for absent scenario combinations.
	Missing MissingPolicy

	// Units are the units of the historical and future layer values, which
	// are converted to t/ha.
	Units string

	// BaselineUnits are the units of the baseline layer values. Empty means
	// t/ha.
	BaselineUnits string

	// Workers is the number of layers read concurrently.
	// Zero means GOMAXPROCS.
	Workers int

	Log logrus.FieldLogger
}

// Historical axes, in order.
var historicalAxes = []string{agyield.YearAxis, agyield.CropAxis, agyield.WaterAxis}

// Future axes, in order.
var futureAxes = []string{agyield.YearAxis, agyield.ModelAxis, agyield.RCPAxis,
	agyield.CropAxis, agyield.WaterAxis, agyield.CO2Axis}

// Historical merges historical layers into a tensor with axes (year, crop,
// water_supply, y, x). The model, climate scenario and CO2 columns of the
// catalog are ignored.
func (in *Ingester) Historical(ctx context.Context, c Catalog) (*agyield.Tensor, error) {
	t, err := in.merge(ctx, c, "historical_yield", historicalAxes, in.Units)
	if err != nil {
		return nil, err
	}
	t.Description = "GAEZ v4 historical potential yield"
	return t, nil
}

// Future merges projected layers into a tensor with axes (year, model, rcp,
// crop, water_supply, co2_fertilization, y, x).
func (in *Ingester) Future(ctx context.Context, c Catalog) (*agyield.Tensor, error) {
	t, err := in.merge(ctx, c, "future_yield", futureAxes, in.Units)
	if err != nil {
		return nil, err
	}
	t.Description = "GAEZ v4 projected potential yield by ensemble member"
	return t, nil
}

// Baseline merges the 2010 actual yield layers for the given water supply
// into a tensor with axes (crop, y, x).
func (in *Ingester) Baseline(ctx context.Context, c Catalog, waterSupply string) (*agyield.Tensor, error) {
	var sel Catalog
	for _, l := range c {
		if l.WaterSupply == waterSupply {
			sel = append(sel, l)
		}
	}
	if len(sel) == 0 {
		return nil, fmt.Errorf("gaez: no baseline layers with water supply %q", waterSupply)
	}
	units := in.BaselineUnits
	if units == "" {
		units = "t/ha"
	}
	t, err := in.merge(ctx, sel, "baseline_2010_yield", []string{agyield.CropAxis}, units)
	if err != nil {
		return nil, err
	}
	t.Description = "GAEZ v5 2010 actual yield, water supply " + waterSupply
	return t, nil
}

// key returns the scenario key of l for the given axes.
func (in *Ingester) key(l *Layer, axes []string) (agyield.Combination, error) {
	k := make(agyield.Combination, len(axes))
	for _, a := range axes {
		switch a {
		case agyield.YearAxis:
			y, ok := in.Tables.WindowYear(l.Year)
			if !ok {
				return nil, fmt.Errorf("gaez: unknown year window %q in layer %s", l.Year, l.Path)
			}
			k[a] = strconv.Itoa(y)
		case agyield.ModelAxis:
			k[a] = l.Model
		case agyield.RCPAxis:
			k[a] = l.RCP
		case agyield.CropAxis:
			k[a] = l.Crop
		case agyield.WaterAxis:
			k[a] = l.WaterSupply
		case agyield.CO2Axis:
			k[a] = l.CO2Fertilization
		default:
			return nil, fmt.Errorf("gaez: invalid axis %s", a)
		}
	}
	return k, nil
}

// merge reads every layer in c into a tensor with the given leading axes
// followed by the (y, x) axes of the reference grid, converting values in
// units to t/ha. Coordinates are sorted, numerically for the year axis.
func (in *Ingester) merge(ctx context.Context, c Catalog, name string, axisNames []string, units string) (*agyield.Tensor, error) {
	if in.Grid == nil {
		return nil, fmt.Errorf("gaez: %s: no reference grid", name)
	}
	if len(c) == 0 {
		return nil, fmt.Errorf("gaez: %s: no layers selected from catalog", name)
	}
	log := in.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	conv, err := agyield.YieldConverter(units)
	if err != nil {
		return nil, err
	}

	layers := make(map[string]*Layer)
	coords := make(map[string]map[string]bool)
	for _, a := range axisNames {
		coords[a] = make(map[string]bool)
	}
	for _, l := range c {
		k, err := in.key(l, axisNames)
		if err != nil {
			return nil, err
		}
		if prev, ok := layers[k.String()]; ok {
			return nil, fmt.Errorf("gaez: %s: layers %s and %s have the same key %s", name, prev.Path, l.Path, k)
		}
		layers[k.String()] = l
		for a, v := range k {
			coords[a][v] = true
		}
	}

	axes := make([]agyield.Axis, 0, len(axisNames)+2)
	for _, a := range axisNames {
		axes = append(axes, sortedAxis(a, coords[a]))
	}
	y, x := in.Grid.Axes()
	t := agyield.New(append(axes, y, x)...)
	t.Name = name
	t.Units = "t/ha"
	t.Geo = in.Grid.GeoRef()

	workers := in.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(-1)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	p := agyield.NewProduct(axes...)
	for {
		k, ok := p.Next()
		if !ok {
			break
		}
		l, ok := layers[k.String()]
		if !ok {
			if in.Missing == MissingDrop {
				log.WithFields(comboFields(k)).Warnf("gaez: %s: no layer; leaving as missing", name)
				continue
			}
			// Drain already started reads before returning.
			g.Wait()
			return nil, &MissingLayerError{Tensor: name, Key: k}
		}
		g.Go(func() error {
			r, err := in.Loader.Load(ctx, l.Path)
			if err != nil {
				return fmt.Errorf("gaez: %s: %v", name, err)
			}
			if err := in.Grid.Matches(r); err != nil {
				return fmt.Errorf("gaez: %s: layer %s is not on the reference grid: %v", name, l.Path, err)
			}
			v := r.Copy()
			v.Apply(conv)
			return t.Assign(k, v)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.WithField("tensor", name).Infof("gaez: merged %d layers with axes %v", len(layers), t.AxisNames())
	return t, nil
}

// sortedAxis returns an axis with the given coordinates in sorted order.
// Coordinates are sorted numerically when they are all integers.
func sortedAxis(name string, set map[string]bool) agyield.Axis {
	c := make([]string, 0, len(set))
	for v := range set {
		c = append(c, v)
	}
	ints := make([]int, len(c))
	numeric := true
	for i, v := range c {
		n, err := strconv.Atoi(v)
		if err != nil {
			numeric = false
			break
		}
		ints[i] = n
	}
	if numeric {
		sort.Ints(ints)
		return agyield.IntAxis(name, ints...)
	}
	sort.Strings(c)
	return agyield.NewAxis(name, c...)
}

// comboFields converts a scenario key to log fields.
func comboFields(k agyield.Combination) logrus.Fields {
	f := make(logrus.Fields, len(k))
	for a, v := range k {
		f[a] = v
	}
	return f
}
