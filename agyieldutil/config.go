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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/agyield"
	"github.com/spatialmodel/agyield/gaez"
	"github.com/spf13/cast"
)

// ConfigData holds the settings of all pipeline stages.
type ConfigData struct {
	Tables  *agyield.Tables
	Workers int

	Catalog, CatalogFilter string
	GAEZUnits              string
	BaselineUnits          string
	RasterCache            int
	Missing                gaez.MissingPolicy
	ReferenceRaster        string
	BaselineWaterSupply    string

	ProvinceShapefile, ProvinceField string
	Yearbook                         map[string]string
	YearbookSheet, YearbookUnits     string
	YearbookStartYear                int
	GrowthFromYear                   int

	BaseYear, TargetYear, Step int
	CapMax, CapPercentile      float64

	SampleSize  int
	Seed        int64
	StdFloor    float64
	Percentiles []int

	OutputDir, MultiplierDir string

	// Intermediate tensor files.
	GAEZHistorical, GAEZFuture, GAEZBaseline2010 string
	GAEZMultipliers, YearbookMultipliers         string
	YearbookGrowth, Baseline2020, Prediction     string

	Log logrus.FieldLogger
}

// LoadConfig reads and checks the stage settings in cfg. Environment
// variables in paths are expanded.
func LoadConfig(cfg *viper.Viper) (*ConfigData, error) {
	c := &ConfigData{
		Workers:             cfg.GetInt("Workers"),
		Catalog:             os.ExpandEnv(cfg.GetString("Catalog")),
		CatalogFilter:       cfg.GetString("CatalogFilter"),
		GAEZUnits:           cfg.GetString("GAEZUnits"),
		BaselineUnits:       cfg.GetString("BaselineUnits"),
		RasterCache:         cfg.GetInt("RasterCache"),
		ReferenceRaster:     os.ExpandEnv(cfg.GetString("ReferenceRaster")),
		BaselineWaterSupply: cfg.GetString("BaselineWaterSupply"),
		ProvinceShapefile:   os.ExpandEnv(cfg.GetString("ProvinceShapefile")),
		ProvinceField:       cfg.GetString("ProvinceField"),
		YearbookSheet:       cfg.GetString("YearbookSheet"),
		YearbookUnits:       cfg.GetString("YearbookUnits"),
		YearbookStartYear:   cfg.GetInt("YearbookStartYear"),
		GrowthFromYear:      cfg.GetInt("GrowthFromYear"),
		BaseYear:            cfg.GetInt("BaseYear"),
		TargetYear:          cfg.GetInt("TargetYear"),
		Step:                cfg.GetInt("Step"),
		CapMax:              cfg.GetFloat64("CapMax"),
		CapPercentile:       cfg.GetFloat64("CapPercentile"),
		SampleSize:          cfg.GetInt("SampleSize"),
		Seed:                cast.ToInt64(cfg.Get("Seed")),
		StdFloor:            cfg.GetFloat64("StdFloor"),
		OutputDir:           os.ExpandEnv(cfg.GetString("OutputDir")),
		MultiplierDir:       os.ExpandEnv(cfg.GetString("MultiplierDir")),
		GAEZHistorical:      os.ExpandEnv(cfg.GetString("GAEZHistorical")),
		GAEZFuture:          os.ExpandEnv(cfg.GetString("GAEZFuture")),
		GAEZBaseline2010:    os.ExpandEnv(cfg.GetString("GAEZBaseline2010")),
		GAEZMultipliers:     os.ExpandEnv(cfg.GetString("GAEZMultipliers")),
		YearbookMultipliers: os.ExpandEnv(cfg.GetString("YearbookMultipliers")),
		YearbookGrowth:      os.ExpandEnv(cfg.GetString("YearbookGrowth")),
		Baseline2020:        os.ExpandEnv(cfg.GetString("Baseline2020")),
		Prediction:          os.ExpandEnv(cfg.GetString("Prediction")),
		Log:                 logger(),
	}

	var err error
	c.Tables = agyield.DefaultTables()
	if t := os.ExpandEnv(cfg.GetString("Tables")); t != "" {
		if c.Tables, err = agyield.LoadTables(t); err != nil {
			return nil, err
		}
	}
	if c.Missing, err = gaez.ParseMissingPolicy(cfg.GetString("MissingPolicy")); err != nil {
		return nil, fmt.Errorf("agyield: invalid MissingPolicy: %v", err)
	}
	if c.Yearbook, err = getStringMapString("Yearbook", cfg); err != nil {
		return nil, err
	}
	for k, v := range c.Yearbook {
		c.Yearbook[k] = os.ExpandEnv(v)
	}
	if c.Percentiles, err = toIntSliceE(cfg.Get("Percentiles")); err != nil {
		return nil, fmt.Errorf("agyield: invalid Percentiles: %v", err)
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return c, nil
}

// check returns an error naming the first invalid setting.
func (c *ConfigData) check() error {
	switch {
	case c.Step <= 0:
		return fmt.Errorf("agyield: Step must be positive, but is %d", c.Step)
	case c.TargetYear < c.BaseYear:
		return fmt.Errorf("agyield: TargetYear (%d) is before BaseYear (%d)", c.TargetYear, c.BaseYear)
	case c.YearbookStartYear >= c.BaseYear:
		return fmt.Errorf("agyield: YearbookStartYear (%d) must be before BaseYear (%d)", c.YearbookStartYear, c.BaseYear)
	case c.CapPercentile < 0 || c.CapPercentile > 100:
		return fmt.Errorf("agyield: CapPercentile must be between 0 and 100, but is %g", c.CapPercentile)
	case c.CapMax <= 0:
		return fmt.Errorf("agyield: CapMax must be positive, but is %g", c.CapMax)
	case c.SampleSize < 1:
		return fmt.Errorf("agyield: SampleSize must be positive, but is %d", c.SampleSize)
	case !(c.StdFloor > 0):
		return fmt.Errorf("agyield: StdFloor must be positive, but is %g", c.StdFloor)
	case c.ProvinceField == "":
		return fmt.Errorf("agyield: ProvinceField is not specified")
	}
	for _, p := range c.Percentiles {
		if p <= 0 || p >= 100 {
			return fmt.Errorf("agyield: Percentiles must be between 0 and 100, but include %d", p)
		}
	}
	return nil
}

// Years returns the projection years.
func (c *ConfigData) Years() []int {
	return agyield.Years(c.BaseYear, c.TargetYear, c.Step)
}

// toIntSliceE converts a configuration value into a slice of ints. The
// value may be a JSON or comma-separated string if it was set from a
// command line argument.
func toIntSliceE(s interface{}) ([]int, error) {
	if str, ok := s.(string); ok {
		str = strings.TrimSpace(str)
		if !strings.HasPrefix(str, "[") {
			str = "[" + str + "]"
		}
		var o []int
		if err := json.Unmarshal([]byte(str), &o); err != nil {
			return nil, err
		}
		return o, nil
	}
	return cast.ToIntSliceE(s)
}

// getStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func getStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case map[string]string:
		o := make(map[string]string, len(v))
		for k, s := range v {
			o[k] = s
		}
		return o, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		o := make(map[string]string)
		if v == "" {
			return o, nil
		}
		d := json.NewDecoder(bytes.NewBufferString(v))
		if err := d.Decode(&o); err != nil {
			return nil, fmt.Errorf("agyield: invalid %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("agyield: invalid type for %s: %#v", varName, i)
	}
}
