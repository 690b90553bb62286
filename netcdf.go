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
	"encoding/json"
	"fmt"
	"os"

	"github.com/ctessum/cdf"
)

// DataVersion identifies the layout of persisted tensor files.
const DataVersion = "1.0.0"

const defaultVarName = "values"

// WriteTensor writes t to netcdf file w. Axis coordinates are stored as
// attributes of the form "coords_<axis>" so that the file is self-describing.
func WriteTensor(w *os.File, t *Tensor) error {
	name := t.Name
	if name == "" {
		name = defaultVarName
	}
	for _, a := range t.Axes {
		if a.Len() == 0 {
			return fmt.Errorf("agyield: writing tensor %s: axis %s is empty", name, a.Name)
		}
	}
	h := cdf.NewHeader(t.AxisNames(), t.Shape())
	h.AddAttribute("", "comment", "AgYield tensor file")
	h.AddAttribute("", "data_version", DataVersion)
	for _, a := range t.Axes {
		b, err := json.Marshal(a.Coords)
		if err != nil {
			return fmt.Errorf("agyield: encoding coordinates of axis %s: %v", a.Name, err)
		}
		h.AddAttribute("", "coords_"+a.Name, string(b))
	}
	if t.Geo != nil {
		h.AddAttribute("", "transform", t.Geo.Transform[:])
		if t.Geo.Projection != "" {
			h.AddAttribute("", "projection", t.Geo.Projection)
		}
	}
	h.AddVariable(name, t.AxisNames(), []float64{0})
	if t.Description != "" {
		h.AddAttribute(name, "description", t.Description)
	}
	if t.Units != "" {
		h.AddAttribute(name, "units", t.Units)
	}
	h.Define()

	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return fmt.Errorf("agyield: creating netcdf file: %v", err)
	}
	wr := f.Writer(name, make([]int, len(t.Axes)), f.Header.Lengths(name))
	if _, err = wr.Write(t.Data.Elements); err != nil {
		return fmt.Errorf("agyield: writing variable %s: %v", name, err)
	}
	return cdf.UpdateNumRecs(w)
}

// ReadTensor reads a tensor written by WriteTensor.
func ReadTensor(rw cdf.ReaderWriterAt) (*Tensor, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("agyield: opening netcdf file: %v", err)
	}
	if v, ok := f.Header.GetAttribute("", "data_version").(string); !ok || v != DataVersion {
		return nil, fmt.Errorf("agyield: data version %q is incompatible with the required version %s", v, DataVersion)
	}
	vars := f.Header.Variables()
	if len(vars) != 1 {
		return nil, fmt.Errorf("agyield: expected 1 variable in tensor file but found %d", len(vars))
	}
	name := vars[0]
	dims := f.Header.Dimensions(name)
	lengths := f.Header.Lengths(name)
	axes := make([]Axis, len(dims))
	for i, d := range dims {
		s, ok := f.Header.GetAttribute("", "coords_"+d).(string)
		if !ok {
			return nil, fmt.Errorf("agyield: missing coordinates for axis %s", d)
		}
		var coords []string
		if err := json.Unmarshal([]byte(s), &coords); err != nil {
			return nil, fmt.Errorf("agyield: decoding coordinates of axis %s: %v", d, err)
		}
		if len(coords) != lengths[i] {
			return nil, fmt.Errorf("agyield: axis %s has %d coordinates but length %d", d, len(coords), lengths[i])
		}
		axes[i] = Axis{Name: d, Coords: coords}
	}
	t := New(axes...)
	t.Name = name
	if name == defaultVarName {
		t.Name = ""
	}
	t.Description, _ = f.Header.GetAttribute(name, "description").(string)
	t.Units, _ = f.Header.GetAttribute(name, "units").(string)
	if tr, ok := f.Header.GetAttribute("", "transform").([]float64); ok && len(tr) == 6 {
		t.Geo = new(GeoRef)
		copy(t.Geo.Transform[:], tr)
		t.Geo.Projection, _ = f.Header.GetAttribute("", "projection").(string)
	}
	r := f.Reader(name, nil, nil)
	n, err := r.Read(t.Data.Elements)
	if err != nil {
		return nil, fmt.Errorf("agyield: reading variable %s: %v", name, err)
	}
	if n != len(t.Data.Elements) {
		return nil, fmt.Errorf("agyield: variable %s has %d values but dims require %d", name, n, len(t.Data.Elements))
	}
	return t, nil
}

// SaveTensor writes t to a new netcdf file at path.
func SaveTensor(path string, t *Tensor) error {
	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("agyield: creating %s: %v", path, err)
	}
	if err := WriteTensor(w, t); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// LoadTensor reads the tensor stored in the netcdf file at path.
func LoadTensor(path string) (*Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("agyield: opening %s: %v", path, err)
	}
	defer f.Close()
	return ReadTensor(f)
}
