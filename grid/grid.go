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

// Package grid describes the pixel grid shared by every raster in the
// pipeline and burns polygon values onto it.
package grid

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"
	goshp "github.com/jonas-p/go-shp"
	"github.com/spatialmodel/agyield"
)

// GridDef specifies a regular north-up pixel grid.
type GridDef struct {
	Name   string
	Nx, Ny int

	// Transform is the GDAL affine transform of the grid. Row 0 is the
	// first row of the raster, which is usually the northernmost one.
	Transform [6]float64

	// Projection is the coordinate reference system of the grid in WKT
	// or Proj4 format, as read from the reference raster.
	Projection string
	SR         *proj.SR

	// Cells holds the grid cells in row-major order.
	Cells []*GridCell
	rtree *rtree.Rtree
}

// GridCell defines an individual cell in a grid.
type GridCell struct {
	geom.Polygonal
	Row, Col int
}

// Center returns the center point of the cell.
func (c *GridCell) Center() geom.Point {
	b := c.Bounds()
	return geom.Point{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}
}

// NewGrid creates a new grid with nx columns and ny rows from a GDAL affine
// transform. Rotated transforms are not supported. If projection is not
// empty it is parsed into the spatial reference of the grid.
func NewGrid(name string, nx, ny int, transform [6]float64, projection string) (*GridDef, error) {
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("grid: invalid dimensions %d×%d", nx, ny)
	}
	if transform[2] != 0 || transform[4] != 0 {
		return nil, fmt.Errorf("grid: rotated transforms are not supported: %v", transform)
	}
	if transform[1] == 0 || transform[5] == 0 {
		return nil, fmt.Errorf("grid: zero pixel size in transform %v", transform)
	}
	grid := &GridDef{
		Name:       name,
		Nx:         nx,
		Ny:         ny,
		Transform:  transform,
		Projection: projection,
	}
	if projection != "" {
		sr, err := proj.Parse(projection)
		if err == nil {
			grid.SR = sr
		}
	}
	grid.rtree = rtree.NewTree(25, 50)
	grid.Cells = make([]*GridCell, nx*ny)
	dx, dy := transform[1], transform[5]
	for row := 0; row < ny; row++ {
		for col := 0; col < nx; col++ {
			x := transform[0] + float64(col)*dx
			y := transform[3] + float64(row)*dy
			cell := &GridCell{Row: row, Col: col}
			cell.Polygonal = geom.Polygon([]geom.Path{{
				{X: x, Y: y}, {X: x + dx, Y: y},
				{X: x + dx, Y: y + dy}, {X: x, Y: y + dy}, {X: x, Y: y}}})
			grid.rtree.Insert(cell)
			grid.Cells[row*nx+col] = cell
		}
	}
	return grid, nil
}

// XCoords returns the x coordinates of the column centers.
func (grid *GridDef) XCoords() []float64 {
	o := make([]float64, grid.Nx)
	for i := range o {
		o[i] = grid.Transform[0] + (float64(i)+0.5)*grid.Transform[1]
	}
	return o
}

// YCoords returns the y coordinates of the row centers.
func (grid *GridDef) YCoords() []float64 {
	o := make([]float64, grid.Ny)
	for i := range o {
		o[i] = grid.Transform[3] + (float64(i)+0.5)*grid.Transform[5]
	}
	return o
}

// Axes returns the y and x tensor axes of the grid.
func (grid *GridDef) Axes() (y, x agyield.Axis) {
	return agyield.FloatAxis(agyield.YAxis, grid.YCoords()...),
		agyield.FloatAxis(agyield.XAxis, grid.XCoords()...)
}

// GeoRef returns the georeferencing information of the grid.
func (grid *GridDef) GeoRef() *agyield.GeoRef {
	return &agyield.GeoRef{Transform: grid.Transform, Projection: grid.Projection}
}

// Matches returns an error unless t has trailing (y, x) axes whose
// coordinates are those of the grid.
func (grid *GridDef) Matches(t *agyield.Tensor) error {
	n := len(t.Axes)
	if n < 2 || t.Axes[n-2].Name != agyield.YAxis || t.Axes[n-1].Name != agyield.XAxis {
		return fmt.Errorf("grid: tensor %s does not end with (y, x) axes: %v", t.Name, t.AxisNames())
	}
	y, x := grid.Axes()
	if !t.Axes[n-2].Equal(y) {
		return &agyield.AlignmentError{Axis: agyield.YAxis, A: y.Coords, B: t.Axes[n-2].Coords}
	}
	if !t.Axes[n-1].Equal(x) {
		return &agyield.AlignmentError{Axis: agyield.XAxis, A: x.Coords, B: t.Axes[n-1].Coords}
	}
	return nil
}

// WriteToShp writes the grid definition to a shapefile in directory outdir.
// If values is not nil, it must hold one value per cell in row-major order
// and is written to the "value" field.
func (grid *GridDef) WriteToShp(outdir string, values []float64) error {
	if values != nil && len(values) != len(grid.Cells) {
		return fmt.Errorf("grid: %d values for %d cells", len(values), len(grid.Cells))
	}
	var err error
	for _, ext := range []string{".shp", ".prj", ".dbf", ".shx"} {
		os.Remove(filepath.Join(outdir, grid.Name+ext))
	}
	fields := []goshp.Field{
		goshp.NumberField("row", 10),
		goshp.NumberField("col", 10),
		goshp.FloatField("value", 24, 8),
	}
	var shpf *shp.Encoder
	shpf, err = shp.NewEncoderFromFields(filepath.Join(outdir, grid.Name+".shp"),
		goshp.POLYGON, fields...)
	if err != nil {
		return err
	}
	defer shpf.Close()
	for i, cell := range grid.Cells {
		var v float64
		if values != nil {
			v = values[i]
		}
		err = shpf.EncodeFields(cell.Polygonal, cell.Row, cell.Col, v)
		if err != nil {
			return err
		}
	}
	return nil
}
