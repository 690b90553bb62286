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
	"strings"
	"testing"

	"github.com/kr/pretty"
)

const catalogCSV = `year,model,rcp,crop,water_supply,c02_fertilization,input_level,gaez_cat,variable,name,units,fpath
1981-2010,CRUTS32,Historical,Maize,Irrigated,,High,GAEZ_4,Yield,ycHg_CRUTS32_Hist_8110H_mze,kg/ha,hist_mze_irr.tif
1981-2010,CRUTS32,Historical,Maize,Rainfed,,High,GAEZ_4,Yield,ycHa_CRUTS32_Hist_8110H_mze,kg/ha,hist_mze_rf.tif
1981-2010,CRUTS32,Historical,Maize,Rainfed,,High,GAEZ_4,Suitability,sxHr_CRUTS32_Hist_8110H_mze,kg/ha,suit.tif
2011-2040,GFDL-ESM2M,RCP4.5,Maize,Irrigated,With CO2 Fertilization,High,GAEZ_4,Yield,ycHg_GFDL_rcp4p5_2020sH_mze,kg/ha,fut1.tif
2011-2040,GFDL-ESM2M,RCP4.5,Maize,Irrigated,With CO2 Fertilization,Low,GAEZ_4,Yield,ycLg_GFDL_rcp4p5_2020sH_mze,kg/ha,fut1_low.tif
2010,,,Maize,Total,,,GAEZ_5,Yield,YLD_2010_MZE,t/ha,$AGYIELD_TEST_DIR/base.tif
2010,,,Maize,Total,,,GAEZ_5,Harvested area,HAR_2010_MZE,ha,area.tif
`

func paths(c Catalog) []string {
	o := make([]string, len(c))
	for i, l := range c {
		o[i] = l.Path
	}
	return o
}

func TestReadCatalog(t *testing.T) {
	t.Setenv("AGYIELD_TEST_DIR", "/data")
	c, err := ReadCatalog(strings.NewReader(catalogCSV))
	if err != nil {
		t.Fatal(err)
	}
	if len(c) != 7 {
		t.Fatalf("have %d layers, want 7", len(c))
	}
	want := &Layer{Year: "2011-2040", Model: "GFDL-ESM2M", RCP: "RCP4.5", Crop: "Maize",
		WaterSupply: "Irrigated", CO2Fertilization: "With CO2 Fertilization", InputLevel: "High",
		Category: "GAEZ_4", Variable: "Yield", Name: "ycHg_GFDL_rcp4p5_2020sH_mze", Units: "kg/ha", Path: "fut1.tif"}
	if diff := pretty.Diff(c[3], want); len(diff) != 0 {
		t.Error(diff)
	}
	if c[5].Path != "/data/base.tif" {
		t.Errorf("environment variable not expanded: %s", c[5].Path)
	}
}

func TestFilter(t *testing.T) {
	c, err := ReadCatalog(strings.NewReader(catalogCSV))
	if err != nil {
		t.Fatal(err)
	}
	high, err := c.Filter(`input_level == "High"`)
	if err != nil {
		t.Fatal(err)
	}
	for _, test := range []struct {
		name, expr string
		want       []string
	}{
		{name: "historical", expr: HistoricalFilter, want: []string{"hist_mze_irr.tif", "hist_mze_rf.tif"}},
		{name: "future", expr: FutureFilter, want: []string{"fut1.tif"}},
		{name: "empty", expr: "", want: []string{"hist_mze_irr.tif", "hist_mze_rf.tif", "suit.tif", "fut1.tif"}},
		{name: "units", expr: `units == "kg/ha" && water_supply == "Irrigated"`, want: []string{"hist_mze_irr.tif", "fut1.tif"}},
	} {
		t.Run(test.name, func(t *testing.T) {
			sel, err := high.Filter(test.expr)
			if err != nil {
				t.Fatal(err)
			}
			have := paths(sel)
			if diff := pretty.Diff(have, test.want); len(diff) != 0 {
				t.Error(diff)
			}
		})
	}

	base, err := c.Filter(BaselineFilter)
	if err != nil {
		t.Fatal(err)
	}
	if len(base) != 1 || base[0].Name != "YLD_2010_MZE" {
		t.Errorf("baseline selection: %v", base)
	}

	if _, err := c.Filter(`input_level ==`); err == nil {
		t.Error("malformed expression should cause an error")
	}
	if _, err := c.Filter(`lower(crop)`); err == nil {
		t.Error("non-boolean expression should cause an error")
	}
}
