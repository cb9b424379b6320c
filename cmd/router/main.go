package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"kuanb/road-router/config"
	"kuanb/road-router/geom"
	"kuanb/road-router/graph"
	"kuanb/road-router/logging"
	"kuanb/road-router/osm"
	"kuanb/road-router/routing"
	"kuanb/road-router/store"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// app holds everything a subcommand needs once configuration is loaded
type app struct {
	cfg    config.Config
	logger *slog.Logger
	source graph.RoadSource
	graphs *graph.Store
	router *routing.Router
	close  func()
}

var configFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "router",
		Short:         "Shortest path routing over a stored road network",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default: road-router.yaml in the usual places)")
	pf.String("log-level", "info", "debug, info, warn or error")
	pf.String("log-format", "text", "text or json")
	pf.String("source", "db", "road source: db, file or pbf")
	pf.String("db-type", "sqlite", "sqlite, postgres or mysql")
	pf.String("db-dsn", "roads.db", "database DSN")
	pf.String("file", "roads.yaml", "road file for --source file")
	pf.String("pbf", "data/example.osm.pbf", "OSM extract for --source pbf")
	pf.Float64("snap", 1.0, "snapping threshold in meters")
	pf.String("index", geom.IndexLinear, "node index: linear or rtree")
	pf.String("duplicates", string(graph.LastWins), "duplicate edge policy: last-wins, first-wins or shortest-wins")
	pf.Float64("match-radius", routing.DefaultMatchRadius, "default radius for snapping route endpoints (m)")
	pf.Float64("close-radius", routing.DefaultCloseRadius, "radius for labelling a known place (m)")
	pf.Duration("timeout", 0, "route computation timeout (0 uses the config value)")
	pf.Float64("road-speed", routing.DefaultRoadSpeedKmh, "speed for roads without a max speed (km/h)")
	pf.Float64("access-speed", routing.DefaultAccessSpeedKmh, "speed for approach and egress legs (km/h)")

	root.AddCommand(newRouteCmd(), newNearestCmd(), newImportCmd(), newStatsCmd())
	return root
}

// setup loads configuration, opens the road source and publishes the first
// graph.
func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cmd, configFile)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	a := &app{cfg: cfg, logger: logger, close: func() {}}

	switch cfg.Source.Kind {
	case "db":
		db, err := store.Open(cmd.Context(), cfg.DB.Type, cfg.DB.DSN, logger)
		if err != nil {
			return nil, err
		}
		a.source = db
		a.close = func() { _ = db.Close() }
	case "file":
		a.source = store.NewFile(cfg.File.Path)
	case "pbf":
		a.source = osm.NewPBFSource(cfg.PBF.Path, logger)
	}

	builder := graph.NewBuilder(cfg.GraphOptions(), logger)
	a.graphs = graph.NewStore(a.source, builder, logger)
	if db, ok := a.source.(*store.DB); ok {
		db.OnChange(a.graphs.Trigger)
	}
	before := readMemSnapshot()
	if err := a.graphs.Rebuild(cmd.Context()); err != nil {
		a.close()
		return nil, err
	}
	g := a.graphs.Current()
	logGraphMemory(logger, before, g.NodeCount(), g.EdgeCount())

	a.router = routing.NewRouter(a.graphs, routing.Options{
		Matcher: cfg.Matcher(),
		Speeds:  cfg.Speeds(),
		Timeout: cfg.Route.Timeout,
		Logger:  logger,
	})
	return a, nil
}

func newRouteCmd() *cobra.Command {
	var from, to, input string
	var radius float64
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Compute the shortest route between two coordinates and print GeoJSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := routing.Request{MatchRadius: radius}
			if input != "" {
				data, err := os.ReadFile(input)
				if err != nil {
					return err
				}
				points, err := geom.PointsFromGeoJSON(data)
				if err != nil {
					return err
				}
				req.Start, req.End = points[0], points[len(points)-1]
			} else {
				var err error
				if req.Start, err = parseLonLat(from); err != nil {
					return fmt.Errorf("--from: %w", err)
				}
				if req.End, err = parseLonLat(to); err != nil {
					return fmt.Errorf("--to: %w", err)
				}
			}

			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.router.Route(cmd.Context(), req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(routing.FeatureCollection(res))
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start as lon,lat")
	cmd.Flags().StringVar(&to, "to", "", "end as lon,lat")
	cmd.Flags().StringVar(&input, "input", "", "GeoJSON file; its first and last positions are used")
	cmd.Flags().Float64Var(&radius, "radius", 0, "match radius override in meters")
	return cmd
}

func newNearestCmd() *cobra.Command {
	var at string
	var radius float64
	cmd := &cobra.Command{
		Use:   "nearest",
		Short: "Find the graph node nearest to a coordinate",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseLonLat(at)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			m, err := a.router.NearestNode(cmd.Context(), p, radius)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "node %d at %.7f,%.7f (%.1fm)\n",
				m.Node, m.Point.Lon(), m.Point.Lat(), m.Distance)
			return err
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "coordinate as lon,lat")
	cmd.Flags().Float64Var(&radius, "radius", 0, "search radius in meters (default: close radius)")
	return cmd
}

func newImportCmd() *cobra.Command {
	var pbfPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy the roads of an OSM extract into the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd, configFile)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())

			roads, err := osm.NewPBFSource(pbfPath, logger).Roads(cmd.Context())
			if err != nil {
				return err
			}
			db, err := store.Open(cmd.Context(), cfg.DB.Type, cfg.DB.DSN, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.Import(cmd.Context(), roads)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d roads\n", n, len(roads))
			return err
		},
	}
	cmd.Flags().StringVar(&pbfPath, "from-pbf", "data/example.osm.pbf", "OSM extract to import")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var metrics bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Build the graph from the configured source and print its size",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			st := a.graphs.Stats()
			g := a.graphs.Current()
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"roads=%d skipped=%d nodes=%d edges=%d replaced=%d total_length_m=%.1f build=%s\n",
				st.Roads, st.Skipped, st.Nodes, st.Edges, st.Replaced, g.TotalLength(), st.Duration)
			if err != nil || !metrics {
				return err
			}
			return writeMetrics(cmd.OutOrStdout(), prometheus.DefaultGatherer)
		},
	}
	cmd.Flags().BoolVar(&metrics, "metrics", false, "also print Prometheus metrics in text format")
	return cmd
}

func parseLonLat(s string) (orb.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return orb.Point{}, fmt.Errorf("want lon,lat, got %q", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return orb.Point{}, err
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return orb.Point{}, err
	}
	return orb.Point{lon, lat}, nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		code := 1
		var f *routing.Failure
		if errors.As(err, &f) {
			code = 3
		}
		os.Exit(code)
	}
}
