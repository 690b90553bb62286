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

// Package raster reads and writes single-band GeoTIFF files.
package raster

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/ctessum/requestcache"
	"github.com/lukeroth/gdal"
	"github.com/spatialmodel/agyield"
	"github.com/spatialmodel/agyield/grid"
)

// CreationOptions are the GDAL GeoTIFF creation options used for all
// output files.
var CreationOptions = []string{"COMPRESS=LZW"}

// gdalMu serializes GDAL dataset access.
var gdalMu sync.Mutex

// Read reads the first band of the GeoTIFF at path. Nodata pixels are
// returned as NaN. The returned tensor has (y, x) axes whose coordinates
// are the pixel centers.
func Read(path string) (*agyield.Tensor, error) {
	gdalMu.Lock()
	defer gdalMu.Unlock()
	ds, err := gdal.Open(path, gdal.ReadOnly)
	if err != nil {
		return nil, fmt.Errorf("raster: opening %s: %v", path, err)
	}
	defer ds.Close()

	if ds.RasterCount() < 1 {
		return nil, fmt.Errorf("raster: %s has no bands", path)
	}
	nx, ny := ds.RasterXSize(), ds.RasterYSize()
	g, err := grid.NewGrid(filepath.Base(path), nx, ny, ds.GeoTransform(), ds.Projection())
	if err != nil {
		return nil, fmt.Errorf("raster: %s: %v", path, err)
	}
	band := ds.RasterBand(1)
	data := make([]float64, nx*ny)
	if err := band.IO(gdal.RWFlag(gdal.Read), 0, 0, nx, ny, data, nx, ny, 0, 0); err != nil {
		return nil, fmt.Errorf("raster: reading %s: %v", path, err)
	}
	if nodata, ok := band.NoDataValue(); ok {
		for i, v := range data {
			if v == nodata {
				data[i] = math.NaN()
			}
		}
	}
	y, x := g.Axes()
	t := agyield.New(y, x)
	copy(t.Data.Elements, data)
	t.Geo = g.GeoRef()
	t.Name = filepath.Base(path)
	return t, nil
}

// ReadGrid returns the pixel grid of the GeoTIFF at path.
func ReadGrid(path string) (*grid.GridDef, error) {
	gdalMu.Lock()
	defer gdalMu.Unlock()
	ds, err := gdal.Open(path, gdal.ReadOnly)
	if err != nil {
		return nil, fmt.Errorf("raster: opening %s: %v", path, err)
	}
	defer ds.Close()
	return grid.NewGrid(filepath.Base(path), ds.RasterXSize(), ds.RasterYSize(),
		ds.GeoTransform(), ds.Projection())
}

// Write writes t, which must have exactly (y, x) axes and a
// georeference, to a single-band float32 GeoTIFF at path. NaN is used as
// the nodata value. Parent directories are created as needed.
func Write(path string, t *agyield.Tensor) error {
	if names := t.AxisNames(); len(names) != 2 || names[0] != agyield.YAxis || names[1] != agyield.XAxis {
		return fmt.Errorf("raster: writing %s: tensor must have (y, x) axes, has %v", path, names)
	}
	if t.Geo == nil {
		return fmt.Errorf("raster: writing %s: tensor has no georeference", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("raster: %v", err)
	}
	ny, nx := t.Axes[0].Len(), t.Axes[1].Len()
	data := make([]float32, nx*ny)
	for i, v := range t.Data.Elements {
		data[i] = float32(v)
	}

	gdalMu.Lock()
	defer gdalMu.Unlock()
	driver, err := gdal.GetDriverByName("GTiff")
	if err != nil {
		return fmt.Errorf("raster: %v", err)
	}
	ds := driver.Create(path, nx, ny, 1, gdal.Float32, CreationOptions)
	defer ds.Close()
	if err := ds.SetGeoTransform(t.Geo.Transform); err != nil {
		return fmt.Errorf("raster: writing %s: %v", path, err)
	}
	if t.Geo.Projection != "" {
		if err := ds.SetProjection(t.Geo.Projection); err != nil {
			return fmt.Errorf("raster: writing %s: %v", path, err)
		}
	}
	band := ds.RasterBand(1)
	if err := band.SetNoDataValue(math.NaN()); err != nil {
		return fmt.Errorf("raster: writing %s: %v", path, err)
	}
	if err := band.IO(gdal.RWFlag(gdal.Write), 0, 0, nx, ny, data, nx, ny, 0, 0); err != nil {
		return fmt.Errorf("raster: writing %s: %v", path, err)
	}
	ds.FlushCache()
	return nil
}

// Loader reads GeoTIFF files, keeping recently read files in memory so
// that layers referenced by several catalog rows are only read once.
type Loader struct {
	cache *requestcache.Cache
}

// NewLoader returns a Loader that keeps up to memory files in memory.
func NewLoader(memory int) *Loader {
	return &Loader{
		cache: requestcache.NewCache(func(ctx context.Context, req interface{}) (interface{}, error) {
			return Read(req.(string))
		}, runtime.GOMAXPROCS(-1), requestcache.Deduplicate(), requestcache.Memory(memory)),
	}
}

// Load returns the contents of the GeoTIFF at path. The returned tensor
// is shared between callers and must not be modified.
func (l *Loader) Load(ctx context.Context, path string) (*agyield.Tensor, error) {
	r := l.cache.NewRequest(ctx, path, path)
	tI, err := r.Result()
	if err != nil {
		return nil, err
	}
	return tI.(*agyield.Tensor), nil
}
