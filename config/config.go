// Package config loads road-router settings from defaults, an optional yaml
// file, ROADROUTER_* environment variables and command line flags, in
// increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kuanb/road-router/geom"
	"kuanb/road-router/graph"
	"kuanb/road-router/routing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "roadrouter"

type Config struct {
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Source struct {
		Kind string `mapstructure:"kind"` // db, file or pbf
	} `mapstructure:"source"`

	DB struct {
		Type string `mapstructure:"type"`
		DSN  string `mapstructure:"dsn"`
	} `mapstructure:"db"`

	File struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"file"`

	PBF struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"pbf"`

	Graph struct {
		SnapThresholdM  float64 `mapstructure:"snap_threshold_m"`
		Index           string  `mapstructure:"index"`
		DuplicatePolicy string  `mapstructure:"duplicate_policy"`
	} `mapstructure:"graph"`

	Match struct {
		RadiusM      float64 `mapstructure:"radius_m"`
		CloseRadiusM float64 `mapstructure:"close_radius_m"`
	} `mapstructure:"match"`

	Route struct {
		Timeout        time.Duration `mapstructure:"timeout"`
		RoadSpeedKmh   float64       `mapstructure:"road_speed_kmh"`
		AccessSpeedKmh float64       `mapstructure:"access_speed_kmh"`
	} `mapstructure:"route"`
}

// Defaults holds the value of every known key.
var Defaults = map[string]any{
	"log.level":              "info",
	"log.format":             "text",
	"source.kind":            "db",
	"db.type":                "sqlite",
	"db.dsn":                 "roads.db",
	"file.path":              "roads.yaml",
	"pbf.path":               "data/example.osm.pbf",
	"graph.snap_threshold_m": 1.0,
	"graph.index":            geom.IndexLinear,
	"graph.duplicate_policy": string(graph.LastWins),
	"match.radius_m":         routing.DefaultMatchRadius,
	"match.close_radius_m":   routing.DefaultCloseRadius,
	"route.timeout":          "5s",
	"route.road_speed_kmh":   routing.DefaultRoadSpeedKmh,
	"route.access_speed_kmh": routing.DefaultAccessSpeedKmh,
}

// FlagKeys maps command line flag names to config keys.
var FlagKeys = map[string]string{
	"log-level":    "log.level",
	"log-format":   "log.format",
	"source":       "source.kind",
	"db-type":      "db.type",
	"db-dsn":       "db.dsn",
	"file":         "file.path",
	"pbf":          "pbf.path",
	"snap":         "graph.snap_threshold_m",
	"index":        "graph.index",
	"duplicates":   "graph.duplicate_policy",
	"match-radius": "match.radius_m",
	"close-radius": "match.close_radius_m",
	"timeout":      "route.timeout",
	"road-speed":   "route.road_speed_kmh",
	"access-speed": "route.access_speed_kmh",
}

// Load builds a Config. configFile may be empty; when set it must exist.
// cmd may be nil when no flags should be bound.
func Load(cmd *cobra.Command, configFile string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range Defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("road-router")
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "road-router"))
		}
		v.AddConfigPath("/etc/road-router")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// It's okay if the file is not found, but other errors are fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return c, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		for name, key := range FlagKeys {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return c, err
				}
			}
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, c.Validate()
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	switch c.Source.Kind {
	case "db", "file", "pbf":
	default:
		return fmt.Errorf("unknown source kind %q", c.Source.Kind)
	}
	if c.Graph.SnapThresholdM < 0 {
		return fmt.Errorf("graph.snap_threshold_m must not be negative")
	}
	if c.Match.RadiusM <= 0 || c.Match.CloseRadiusM <= 0 {
		return fmt.Errorf("match radii must be positive")
	}
	if c.Route.RoadSpeedKmh <= 0 || c.Route.AccessSpeedKmh <= 0 {
		return fmt.Errorf("route speeds must be positive")
	}
	if _, err := geom.NewIndex(c.Graph.Index); err != nil {
		return err
	}
	_, err := graph.ParseDuplicatePolicy(c.Graph.DuplicatePolicy)
	return err
}

// GraphOptions returns the builder options described by c.
func (c Config) GraphOptions() graph.Options {
	policy, _ := graph.ParseDuplicatePolicy(c.Graph.DuplicatePolicy)
	return graph.Options{
		SnapThresholdMeters: c.Graph.SnapThresholdM,
		Index:               c.Graph.Index,
		Duplicates:          policy,
	}
}

// Matcher returns a matcher using the configured radii.
func (c Config) Matcher() *routing.Matcher {
	return &routing.Matcher{
		Radius:      c.Match.RadiusM,
		CloseRadius: c.Match.CloseRadiusM,
	}
}

// Speeds returns the travel speeds used for route time estimates.
func (c Config) Speeds() routing.Speeds {
	return routing.Speeds{
		RoadKmh:   c.Route.RoadSpeedKmh,
		AccessKmh: c.Route.AccessSpeedKmh,
	}
}
