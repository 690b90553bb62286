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


package agyieldutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/agyield"
	"github.com/spatialmodel/agyield/gaez"
	"github.com/spatialmodel/agyield/grid"
	"github.com/spatialmodel/agyield/projection"
	"github.com/spatialmodel/agyield/raster"
	"github.com/spatialmodel/agyield/yearbook"
)

// referenceGrid returns the grid of ReferenceRaster, or of the first
// catalog layer if ReferenceRaster is empty.
func (c *ConfigData) referenceGrid() (*grid.GridDef, error) {
	path := c.ReferenceRaster
	if path == "" {
		cat, err := gaez.ReadCatalogFile(c.Catalog)
		if err != nil {
			return nil, err
		}
		if len(cat) == 0 {
			return nil, fmt.Errorf("agyield: no ReferenceRaster and the catalog is empty")
		}
		path = cat[0].Path
	}
	return raster.ReadGrid(path)
}

// save writes t to path, creating its directory if necessary.
func (c *ConfigData) save(path string, t *agyield.Tensor) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("agyield: %v", err)
	}
	if err := agyield.SaveTensor(path, t); err != nil {
		return err
	}
	c.Log.WithFields(logrus.Fields{"tensor": t.Name, "file": path}).Info("agyield: saved tensor")
	return nil
}

// load reads the tensors at paths in order.
func load(paths ...string) ([]*agyield.Tensor, error) {
	o := make([]*agyield.Tensor, len(paths))
	for i, p := range paths {
		t, err := agyield.LoadTensor(p)
		if err != nil {
			return nil, err
		}
		o[i] = t
	}
	return o, nil
}

// Ingest merges the catalog layers into the historical, future and 2010
// baseline yield tensors. CatalogFilter selects among the potential yield
// layers only.
func (c *ConfigData) Ingest(ctx context.Context) error {
	cat, err := gaez.ReadCatalogFile(c.Catalog)
	if err != nil {
		return err
	}
	potential, err := cat.Filter(c.CatalogFilter)
	if err != nil {
		return err
	}
	g, err := c.referenceGrid()
	if err != nil {
		return err
	}
	in := &gaez.Ingester{
		Grid:          g,
		Loader:        raster.NewLoader(c.RasterCache),
		Tables:        c.Tables,
		Missing:       c.Missing,
		Units:         c.GAEZUnits,
		BaselineUnits: c.BaselineUnits,
		Workers:       c.Workers,
		Log:           c.Log,
	}
	for _, s := range []struct {
		rows   gaez.Catalog
		filter string
		path   string
		merge  func(context.Context, gaez.Catalog) (*agyield.Tensor, error)
	}{
		{rows: potential, filter: gaez.HistoricalFilter, path: c.GAEZHistorical, merge: in.Historical},
		{rows: potential, filter: gaez.FutureFilter, path: c.GAEZFuture, merge: in.Future},
		{rows: cat, filter: gaez.BaselineFilter, path: c.GAEZBaseline2010, merge: func(ctx context.Context, cat gaez.Catalog) (*agyield.Tensor, error) {
			return in.Baseline(ctx, cat, c.BaselineWaterSupply)
		}},
	} {
		sel, err := s.rows.Filter(s.filter)
		if err != nil {
			return err
		}
		t, err := s.merge(ctx, sel)
		if err != nil {
			return err
		}
		if err := c.save(s.path, t); err != nil {
			return err
		}
	}
	return nil
}

// GAEZMultipliers derives climate multipliers from the ingested GAEZ
// yields.
func (c *ConfigData) GAEZMultipliers(ctx context.Context) error {
	ts, err := load(c.GAEZHistorical, c.GAEZFuture)
	if err != nil {
		return err
	}
	m, err := gaez.Multipliers(ctx, ts[0], ts[1], gaez.Config{
		BaseYear:      c.BaseYear,
		CapPercentile: c.CapPercentile,
		CapMax:        c.CapMax,
		Workers:       c.Workers,
		Log:           c.Log,
	})
	if err != nil {
		return err
	}
	return c.save(c.GAEZMultipliers, m)
}

// readYearbook reads the yearbook tables of all crops.
func (c *ConfigData) readYearbook() ([]yearbook.Record, error) {
	if len(c.Yearbook) == 0 {
		return nil, fmt.Errorf("agyield: no Yearbook tables are specified")
	}
	r := &yearbook.Reader{Tables: c.Tables, Units: c.YearbookUnits}
	var recs []yearbook.Record
	for _, crop := range sortedMapKeys(c.Yearbook) {
		path := c.Yearbook[crop]
		var (
			rr  []yearbook.Record
			err error
		)
		if strings.EqualFold(filepath.Ext(path), ".xlsx") {
			rr, err = r.ReadXLSX(path, c.YearbookSheet, crop)
		} else {
			rr, err = r.ReadCSVFile(path, crop)
		}
		if err != nil {
			return nil, err
		}
		c.Log.WithFields(logrus.Fields{"crop": crop, "file": path, "records": len(rr)}).Info("agyield: read yearbook")
		recs = append(recs, rr...)
	}
	return recs, nil
}

// YearbookMultipliers fits yearbook trends, converts them to multipliers
// and rasterizes the multipliers and the observed yield growth.
func (c *ConfigData) YearbookMultipliers(ctx context.Context) error {
	recs, err := c.readYearbook()
	if err != nil {
		return err
	}
	g, err := c.referenceGrid()
	if err != nil {
		return err
	}
	regions, err := g.ReadRegions(c.ProvinceShapefile, c.ProvinceField)
	if err != nil {
		return err
	}
	names := make(map[string]bool)
	for _, n := range grid.RegionNames(regions) {
		names[n] = true
	}
	for _, p := range c.Tables.Provinces() {
		if !names[p] {
			c.Log.WithField("province", p).Warn("agyield: province is not in the boundary shapefile")
		}
	}

	cfg := yearbook.Config{StartYear: c.YearbookStartYear, BaseYear: c.BaseYear, Years: c.Years()}
	trends, err := yearbook.Fit(recs, cfg)
	if err != nil {
		return err
	}
	for _, tr := range trends {
		c.Log.WithFields(logrus.Fields{
			"province": tr.Province, "crop": tr.Crop, "slope": tr.Slope, "r2": tr.RSquared, "n": tr.N,
		}).Debug("agyield: yearbook trend")
	}
	m, err := yearbook.Multipliers(trends, cfg)
	if err != nil {
		return err
	}
	mr, err := yearbook.Rasterize(m, g, regions)
	if err != nil {
		return err
	}
	if err := c.save(c.YearbookMultipliers, mr); err != nil {
		return err
	}
	gr, err := yearbook.Rasterize(yearbook.GrowthRatios(recs, c.GrowthFromYear, c.BaseYear), g, regions)
	if err != nil {
		return err
	}
	return c.save(c.YearbookGrowth, gr)
}

// Baseline adjusts the GAEZ 2010 baseline yield to the base year, for every
// water supply of the GAEZ projections.
func (c *ConfigData) Baseline(ctx context.Context) error {
	ts, err := load(c.GAEZBaseline2010, c.YearbookGrowth, c.GAEZFuture)
	if err != nil {
		return err
	}
	ws, ok := ts[2].Axis(agyield.WaterAxis)
	if !ok {
		return fmt.Errorf("agyield: %s has no %s axis", c.GAEZFuture, agyield.WaterAxis)
	}
	b, err := projection.Baseline2020(ts[0], ts[1], ws)
	if err != nil {
		return err
	}
	return c.save(c.Baseline2020, b)
}

// Fuse combines the multipliers and the baseline into a yield prediction.
func (c *ConfigData) Fuse(ctx context.Context) error {
	ts, err := load(c.GAEZMultipliers, c.YearbookMultipliers, c.Baseline2020)
	if err != nil {
		return err
	}
	p, err := projection.Fuse(ctx, ts[0], ts[1], ts[2], projection.Config{
		Years:      c.Years(),
		SampleSize: c.SampleSize,
		Seed:       c.Seed,
		StdFloor:   c.StdFloor,
		Workers:    c.Workers,
		Log:        c.Log,
	})
	if err != nil {
		return err
	}
	return c.save(c.Prediction, p)
}

// Export caps the prediction with the attainable yield and writes the
// percentile rasters to OutputDir.
func (c *ConfigData) Export(ctx context.Context) error {
	ts, err := load(c.Prediction, c.GAEZFuture)
	if err != nil {
		return err
	}
	att, err := gaez.Attainable(ts[1], c.Years())
	if err != nil {
		return err
	}
	capped, err := projection.Cap(ts[0], att, c.SampleSize)
	if err != nil {
		return err
	}
	pct, err := projection.Percentiles(capped, c.Percentiles)
	if err != nil {
		return err
	}
	paths, err := projection.Export(ctx, c.OutputDir, pct, c.Workers)
	if err != nil {
		return err
	}
	c.Log.WithFields(logrus.Fields{"dir": c.OutputDir, "files": len(paths)}).Info("agyield: exported percentiles")
	return nil
}

// ExportMultipliers writes the climate and yearbook multipliers as rasters
// to MultiplierDir.
func (c *ConfigData) ExportMultipliers(ctx context.Context) error {
	ts, err := load(c.GAEZMultipliers, c.YearbookMultipliers)
	if err != nil {
		return err
	}
	paths, err := projection.ExportMultipliers(ctx, c.MultiplierDir, ts[0], ts[1], c.Workers)
	if err != nil {
		return err
	}
	c.Log.WithFields(logrus.Fields{"dir": c.MultiplierDir, "files": len(paths)}).Info("agyield: exported multipliers")
	return nil
}

// Run runs all stages in order.
func (c *ConfigData) Run(ctx context.Context) error {
	for _, s := range []struct {
		name string
		f    func(context.Context) error
	}{
		{"ingest", c.Ingest},
		{"multipliers gaez", c.GAEZMultipliers},
		{"multipliers yearbook", c.YearbookMultipliers},
		{"baseline", c.Baseline},
		{"fuse", c.Fuse},
		{"export", c.Export},
	} {
		c.Log.WithField("stage", s.name).Info("agyield: starting stage")
		if err := s.f(ctx); err != nil {
			return fmt.Errorf("%s: %v", s.name, err)
		}
	}
	return nil
}

// Grid writes the reference grid to a shapefile in OutputDir.
func (c *ConfigData) Grid(ctx context.Context) error {
	g, err := c.referenceGrid()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.OutputDir, os.ModePerm); err != nil {
		return fmt.Errorf("agyield: %v", err)
	}
	g.Name = "grid"
	if err := g.WriteToShp(c.OutputDir, nil); err != nil {
		return err
	}
	c.Log.WithFields(logrus.Fields{"cells": len(g.Cells), "dir": c.OutputDir}).Info("agyield: wrote grid")
	return nil
}

func sortedMapKeys(m map[string]string) []string {
	o := make([]string, 0, len(m))
	for k := range m {
		o = append(o, k)
	}
	sort.Strings(o)
	return o
}
