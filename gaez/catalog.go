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

// Package gaez ingests gridded GAEZ crop-suitability model layers and
// derives climate-driven yield multipliers from them.
package gaez

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/gocarina/gocsv"
)

// Layer is one row of the GAEZ catalog: the scenario key of a single-band
// raster and the path of the file holding it.
type Layer struct {
	Year             string `csv:"year"`
	Model            string `csv:"model"`
	RCP              string `csv:"rcp"`
	Crop             string `csv:"crop"`
	WaterSupply      string `csv:"water_supply"`
	CO2Fertilization string `csv:"c02_fertilization"`
	InputLevel       string `csv:"input_level"`
	Category         string `csv:"gaez_cat"`
	Variable         string `csv:"variable"`
	Name             string `csv:"name"`
	Units            string `csv:"units"`
	Path             string `csv:"fpath"`
}

// params returns the fields of l keyed by catalog column name.
func (l *Layer) params() map[string]interface{} {
	return map[string]interface{}{
		"year":              l.Year,
		"model":             l.Model,
		"rcp":               l.RCP,
		"crop":              l.Crop,
		"water_supply":      l.WaterSupply,
		"c02_fertilization": l.CO2Fertilization,
		"input_level":       l.InputLevel,
		"gaez_cat":          l.Category,
		"variable":          l.Variable,
		"name":              l.Name,
		"units":             l.Units,
		"fpath":             l.Path,
	}
}

// Catalog is the table mapping scenario keys to raster files.
type Catalog []*Layer

// ReadCatalog reads a catalog in CSV format. Environment variables in file
// paths are expanded.
func ReadCatalog(r io.Reader) (Catalog, error) {
	var c Catalog
	if err := gocsv.Unmarshal(r, &c); err != nil {
		return nil, fmt.Errorf("gaez: reading catalog: %v", err)
	}
	for _, l := range c {
		l.Path = os.ExpandEnv(l.Path)
	}
	return c, nil
}

// ReadCatalogFile reads the CSV catalog at path.
func ReadCatalogFile(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gaez: opening catalog: %v", err)
	}
	defer f.Close()
	return ReadCatalog(f)
}

// Default selection expressions for the catalog subsets used by the
// pipeline.
const (
	// HistoricalFilter selects historical GAEZ v4 potential yield layers.
	HistoricalFilter = `gaez_cat == "GAEZ_4" && rcp == "Historical" && (contains(name, "ycHa") || contains(name, "ycHg"))`

	// FutureFilter selects projected GAEZ v4 yield layers.
	FutureFilter = `gaez_cat == "GAEZ_4" && rcp != "Historical"`

	// BaselineFilter selects GAEZ v5 actual yield layers.
	BaselineFilter = `gaez_cat == "GAEZ_5" && variable == "Yield"`
)

var filterFuncs = map[string]govaluate.ExpressionFunction{
	"contains": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("gaez: got %d arguments for function 'contains', but needs 2", len(args))
		}
		s, ok1 := args[0].(string)
		sub, ok2 := args[1].(string)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("gaez: function 'contains' needs string arguments")
		}
		return strings.Contains(s, sub), nil
	},
	"lower": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("gaez: got %d arguments for function 'lower', but needs 1", len(args))
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("gaez: function 'lower' needs a string argument")
		}
		return strings.ToLower(s), nil
	},
}

// Filter returns the layers for which the boolean expression expr is true.
// Expressions refer to catalog columns by name, for example
// `input_level == "High" && contains(name, "ycHa")`. An empty expression
// selects every layer.
func (c Catalog) Filter(expr string) (Catalog, error) {
	if strings.TrimSpace(expr) == "" {
		return c, nil
	}
	e, err := govaluate.NewEvaluableExpressionWithFunctions(expr, filterFuncs)
	if err != nil {
		return nil, fmt.Errorf("gaez: parsing filter %q: %v", expr, err)
	}
	var o Catalog
	for _, l := range c {
		v, err := e.Evaluate(l.params())
		if err != nil {
			return nil, fmt.Errorf("gaez: evaluating filter %q: %v", expr, err)
		}
		keep, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("gaez: filter %q returned %T, not bool", expr, v)
		}
		if keep {
			o = append(o, l)
		}
	}
	return o, nil
}
