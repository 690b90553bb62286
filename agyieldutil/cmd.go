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
	"context"
	"encoding/json"
	"fmt"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/agyield"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

type option struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

var options []option

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(ingestCmd)
	Root.AddCommand(multipliersCmd)
	multipliersCmd.AddCommand(gaezCmd)
	multipliersCmd.AddCommand(yearbookCmd)
	Root.AddCommand(baselineCmd)
	Root.AddCommand(fuseCmd)
	Root.AddCommand(exportCmd)
	Root.AddCommand(exportMultipliersCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(gridCmd)
}

func init() {
	all := Root.PersistentFlags()
	gridSets := []*pflag.FlagSet{ingestCmd.Flags(), yearbookCmd.Flags(), gridCmd.Flags(), runCmd.Flags()}

	// Options are the configuration options available to AgYield.
	options = []option{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{all},
		},
		{
			name: "LogFile",
			usage: `
              LogFile specifies a file that log messages are written to
              in addition to standard error. If it is empty, messages are
              only written to standard error.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{all},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum severity of log messages that are
              written: one of debug, info, warning, or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{all},
		},
		{
			name: "Tables",
			usage: `
              Tables is the path to a TOML file overriding the province
              name translation table ("provinces") or the mapping of
              30-year window labels to midpoint years ("year_windows").
              If it is empty, the built-in tables are used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{all},
		},
		{
			name: "Workers",
			usage: `
              Workers is the number of layers or scenario combinations that
              are processed concurrently. Zero means one per processor.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{all},
		},
		{
			name: "Catalog",
			usage: `
              Catalog is the path to the CSV table listing the GAEZ raster
              layers, with columns year, model, rcp, crop, water_supply,
              c02_fertilization, input_level, gaez_cat, variable, name,
              units, and fpath. Layer paths can contain environment variables.`,
			defaultVal: "${AGYIELD_DATA}/GAEZ_tifs.csv",
			flagsets:   append([]*pflag.FlagSet{ingestCmd.Flags()}, gridSets[1:]...),
		},
		{
			name: "CatalogFilter",
			usage: `
              CatalogFilter is an expression selecting the GAEZ v4
              potential yield rows to use, in terms of the catalog column
              names. It does not apply to the GAEZ v5 baseline rows, which
              have no input level. An empty filter selects all rows.`,
			defaultVal: `input_level == "High"`,
			flagsets:   []*pflag.FlagSet{ingestCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "GAEZUnits",
			usage: `
              GAEZUnits are the units of the values in the GAEZ v4
              potential yield rasters.`,
			defaultVal: "kg/ha",
			flagsets:   []*pflag.FlagSet{ingestCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "BaselineUnits",
			usage: `
              BaselineUnits are the units of the values in the GAEZ v5
              2010 actual yield rasters.`,
			defaultVal: "t/ha",
			flagsets:   []*pflag.FlagSet{ingestCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "RasterCache",
			usage: `
              RasterCache is the number of raster layers kept in memory
              while ingesting the catalog.`,
			defaultVal: 100,
			flagsets:   []*pflag.FlagSet{ingestCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "MissingPolicy",
			usage: `
              MissingPolicy specifies what happens when the catalog has no
              layer for a scenario combination: "fail" stops with an error
              naming the combination and "drop" leaves it as missing data.`,
			defaultVal: "fail",
			flagsets:   []*pflag.FlagSet{ingestCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "ReferenceRaster",
			usage: `
              ReferenceRaster is a GeoTIFF defining the pixel grid that all
              data are placed on. If it is empty, the first layer in the
              catalog is used.`,
			defaultVal: "",
			flagsets:   gridSets,
		},
		{
			name: "ProvinceShapefile",
			usage: `
              ProvinceShapefile is the path to a shapefile of province
              boundaries.`,
			defaultVal: "${AGYIELD_DATA}/china_boundary_provinces.shp",
			flagsets:   []*pflag.FlagSet{yearbookCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "ProvinceField",
			usage: `
              ProvinceField is the attribute of ProvinceShapefile holding
              English province names.`,
			defaultVal: "EN_Name",
			flagsets:   []*pflag.FlagSet{yearbookCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "Yearbook",
			usage: `
              Yearbook maps crop names to yearbook yield tables, in CSV or
              XLSX format, with provinces as rows and years as columns.`,
			defaultVal: map[string]string{
				"Maize":        "${AGYIELD_DATA}/yearbook/maize.csv",
				"Wheat":        "${AGYIELD_DATA}/yearbook/wheat.csv",
				"Wetland rice": "${AGYIELD_DATA}/yearbook/rice.csv",
			},
			flagsets: []*pflag.FlagSet{yearbookCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "YearbookSheet",
			usage: `
              YearbookSheet is the sheet read from XLSX yearbook tables. If
              it is empty, the first sheet is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{yearbookCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "YearbookUnits",
			usage: `
              YearbookUnits are the units of the yearbook yield values.`,
			defaultVal: "kg/ha",
			flagsets:   []*pflag.FlagSet{yearbookCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "YearbookStartYear",
			usage: `
              YearbookStartYear is the first yearbook year used for trend
              fitting.`,
			defaultVal: 1990,
			flagsets:   []*pflag.FlagSet{yearbookCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "GrowthFromYear",
			usage: `
              GrowthFromYear is the year of the GAEZ baseline yield, which is
              adjusted to BaseYear by the observed yearbook yield growth.`,
			defaultVal: 2010,
			flagsets:   []*pflag.FlagSet{yearbookCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "BaseYear",
			usage: `
              BaseYear is the year that multipliers are relative to.`,
			defaultVal: 2020,
			flagsets:   []*pflag.FlagSet{all},
		},
		{
			name: "TargetYear",
			usage: `
              TargetYear is the last projection year.`,
			defaultVal: 2100,
			flagsets:   []*pflag.FlagSet{all},
		},
		{
			name: "Step",
			usage: `
              Step is the number of years between projection years.`,
			defaultVal: 5,
			flagsets:   []*pflag.FlagSet{all},
		},
		{
			name: "CapMax",
			usage: `
              CapMax is the largest allowed climate multiplier.`,
			defaultVal: 2.0,
			flagsets:   []*pflag.FlagSet{gaezCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "CapPercentile",
			usage: `
              CapPercentile is the percentile of each scenario slice above
              which climate multipliers are clipped, unless CapMax is
              lower.`,
			defaultVal: 95.0,
			flagsets:   []*pflag.FlagSet{gaezCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "BaselineWaterSupply",
			usage: `
              BaselineWaterSupply is the water supply of the GAEZ 2010
              baseline yield layers.`,
			defaultVal: "Total",
			flagsets:   []*pflag.FlagSet{ingestCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "SampleSize",
			usage: `
              SampleSize is the number of Monte Carlo draws per pixel.`,
			defaultVal: 30,
			flagsets:   []*pflag.FlagSet{fuseCmd.Flags(), exportCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "Seed",
			usage: `
              Seed is the random seed for Monte Carlo sampling. Results are
              reproducible for a given non-negative seed regardless of
              Workers. A negative seed seeds from the clock.`,
			defaultVal: -1,
			flagsets:   []*pflag.FlagSet{fuseCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "StdFloor",
			usage: `
              StdFloor replaces multiplier standard deviations that are
              not positive when sampling.`,
			defaultVal: 1e-6,
			flagsets:   []*pflag.FlagSet{fuseCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "Percentiles",
			usage: `
              Percentiles are the percentile bands that are exported.`,
			defaultVal: []int{25, 50, 75},
			flagsets:   []*pflag.FlagSet{exportCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is the directory that percentile rasters and the
              grid shapefile are written to.`,
			defaultVal: "${AGYIELD_DATA}/output",
			flagsets:   []*pflag.FlagSet{exportCmd.Flags(), gridCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "MultiplierDir",
			usage: `
              MultiplierDir is the directory that multiplier rasters are
              written to by export-multipliers.`,
			defaultVal: "${AGYIELD_DATA}/output/multipliers",
			flagsets:   []*pflag.FlagSet{exportMultipliersCmd.Flags()},
		},
	}

	// Intermediate tensor files.
	for _, f := range []struct {
		name, usage, file string
	}{
		{name: "GAEZHistorical", usage: "historical GAEZ potential yield", file: "gaez_historical.nc"},
		{name: "GAEZFuture", usage: "projected GAEZ potential yield", file: "gaez_future.nc"},
		{name: "GAEZBaseline2010", usage: "GAEZ 2010 baseline yield", file: "gaez_baseline_2010.nc"},
		{name: "GAEZMultipliers", usage: "climate multipliers", file: "gaez_multipliers.nc"},
		{name: "YearbookMultipliers", usage: "rasterized yearbook multipliers", file: "yearbook_multipliers.nc"},
		{name: "YearbookGrowth", usage: "rasterized yearbook yield growth ratios", file: "yearbook_growth.nc"},
		{name: "Baseline2020", usage: "adjusted baseline yield", file: "baseline_2020.nc"},
		{name: "Prediction", usage: "fused yield prediction", file: "prediction.nc"},
	} {
		options = append(options, option{
			name:       f.name,
			usage:      fmt.Sprintf("\n              %s is the path of the %s file.", f.name, f.usage),
			defaultVal: "${AGYIELD_DATA}/intermediate/" + f.file,
			flagsets:   []*pflag.FlagSet{all},
		})
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("AGYIELD")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case []int:
				set.IntSliceP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(v)
				set.StringP(option.name, option.shorthand, b.String(), option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("agyield: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "agyield",
	Short: "Crop yield projections for Chinese provinces.",
	Long: `AgYield projects crop yields on a national grid for 2020-2100 by combining
GAEZ climate-scenario yield projections with provincial yearbook yield trends.
Use the subcommands specified below to run each stage of the pipeline, or
'run' to run all of them in order. Each stage reads the files written by the
previous one.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'AGYIELD_var' where 'var' is the
name of the variable to be set. Paths are additionally allowed to contain
environment variables within them.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setConfig(); err != nil {
			return err
		}
		return setLogger(cmd)
	},
	PersistentPostRun: func(*cobra.Command, []string) { closeLogger() },
	SilenceUsage:      true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of AgYield.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "AgYield v%s\n", agyield.Version)
	},
	DisableAutoGenTag: true,
}

// stageCmd returns a command that loads the configuration and runs f.
func stageCmd(use, short, long string, f func(*ConfigData, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(Cfg)
			if err != nil {
				return err
			}
			return f(cfg, context.Background())
		},
		DisableAutoGenTag: true,
	}
}

var ingestCmd = stageCmd("ingest", "Merge the GAEZ raster catalog into tensors.",
	`ingest reads the layers listed in the catalog and merges them into historical,
future, and 2010 baseline yield tensors on the reference grid.`,
	(*ConfigData).Ingest)

var multipliersCmd = &cobra.Command{
	Use:   "multipliers",
	Short: "Derive yield multipliers.",
	Long: `multipliers derives yield multipliers relative to the base year. Use the
subcommands specified below to choose the data source.`,
	DisableAutoGenTag: true,
}

var gaezCmd = stageCmd("gaez", "Derive climate multipliers from GAEZ.",
	`gaez computes the ratio of projected to base year potential yield for each
ensemble member, reduces the ensemble to its mean and standard deviation, and
clips outliers in each scenario slice.`,
	(*ConfigData).GAEZMultipliers)

var yearbookCmd = stageCmd("yearbook", "Derive multipliers from yearbook trends.",
	`yearbook fits a linear yield trend for each province and crop, converts
the extrapolated trend to multipliers relative to the base year, and
rasterizes the multipliers and the observed yield growth onto the grid.`,
	(*ConfigData).YearbookMultipliers)

var baselineCmd = stageCmd("baseline", "Adjust the 2010 baseline yield to the base year.",
	`baseline multiplies the GAEZ 2010 baseline yield by the observed yearbook
yield growth.`,
	(*ConfigData).Baseline)

var fuseCmd = stageCmd("fuse", "Combine multipliers by Monte Carlo sampling.",
	`fuse samples the climate and yearbook multipliers and multiplies them with
the baseline yield to predict the mean and standard deviation of future yields.`,
	(*ConfigData).Fuse)

var exportCmd = stageCmd("export", "Cap predictions and export percentile rasters.",
	`export limits predicted yields to the GAEZ attainable yield and writes
percentile bands of each scenario combination to GeoTIFF files.`,
	(*ConfigData).Export)

var exportMultipliersCmd = stageCmd("export-multipliers", "Export multipliers as rasters.",
	`export-multipliers writes every slice of the climate and yearbook
multipliers to GeoTIFF files.`,
	(*ConfigData).ExportMultipliers)

var runCmd = stageCmd("run", "Run all stages.",
	`run runs ingest, multipliers gaez, multipliers yearbook, baseline, fuse,
and export in order.`,
	(*ConfigData).Run)

var gridCmd = stageCmd("grid", "Write the reference grid to a shapefile.",
	`grid writes the cells of the reference pixel grid to a shapefile in
OutputDir for inspection.`,
	(*ConfigData).Grid)
