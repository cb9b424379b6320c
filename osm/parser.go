package osm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"kuanb/road-router/graph"

	"github.com/qedus/osmpbf"
)

// DrivableHighways lists the highway tag values loaded as roads.
var DrivableHighways = []string{
	"motorway",
	"motorway_link",
	"trunk",
	"trunk_link",
	"primary",
	"primary_link",
	"secondary",
	"secondary_link",
	"tertiary",
	"tertiary_link",
	"residential",
	"unclassified",
	"service",
	"living_street",
}

// PBFSource reads roads from an OpenStreetMap .osm.pbf extract. It implements
// graph.RoadSource and rereads the file on every call.
type PBFSource struct {
	Path   string
	Logger *slog.Logger
}

func NewPBFSource(path string, logger *slog.Logger) *PBFSource {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PBFSource{Path: path, Logger: logger}
}

func (s *PBFSource) Roads(ctx context.Context) ([]graph.Road, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open pbf: %w", err)
	}
	defer f.Close()
	return DecodeRoads(ctx, f, s.Logger)
}

// ctxReader fails reads once ctx is done, which stops the decoder's reader
// goroutine.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// drain reads until the decoder reports an error. osmpbf has no way to stop
// a started decoder, and its goroutines block until the output is consumed.
func drain(d *osmpbf.Decoder) {
	for {
		if _, err := d.Decode(); err != nil {
			return
		}
	}
}

// DecodeRoads decodes a PBF stream and returns one road per whitelisted way,
// ordered as the ways appear in the stream.
func DecodeRoads(ctx context.Context, r io.Reader, logger *slog.Logger) ([]graph.Road, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d := osmpbf.NewDecoder(&ctxReader{ctx: ctx, r: r})

	// use more memory from the start, it is faster
	d.SetBufferSize(osmpbf.MaxBlobSize)

	// start decoding with several goroutines, it is faster
	if err := d.Start(runtime.GOMAXPROCS(-1)); err != nil {
		return nil, fmt.Errorf("start pbf decoder: %w", err)
	}

	// abort stops the reader and waits for the decoder to wind down
	abort := func(err error) ([]graph.Road, error) {
		cancel()
		drain(d)
		return nil, err
	}

	whitelisted := make(map[string]struct{}, len(DrivableHighways))
	for _, hw := range DrivableHighways {
		whitelisted[hw] = struct{}{}
	}

	var nc, wc, rc uint64
	nodes := make(map[OsmNodeId]*OsmNode)
	var ways []*OsmWay

	for {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}
		v, err := d.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode pbf: %w", err)
		}
		switch v := v.(type) {
		case *osmpbf.Node:
			nodes[OsmNodeId(v.ID)] = &OsmNode{
				ID:  OsmNodeId(v.ID),
				Lat: v.Lat,
				Lon: v.Lon,
			}
			nc++
		case *osmpbf.Way:
			wc++
			if _, ok := whitelisted[v.Tags["highway"]]; !ok {
				continue
			}
			nodeIDs := make([]OsmNodeId, len(v.NodeIDs))
			for i, id := range v.NodeIDs {
				nodeIDs[i] = OsmNodeId(id)
			}
			ways = append(ways, &OsmWay{
				ID:       OsmWayId(v.ID),
				Nodes:    nodeIDs,
				Highway:  v.Tags["highway"],
				Name:     v.Tags["name"],
				Oneway:   v.Tags["oneway"],
				Junction: v.Tags["junction"],
				MaxSpeed: v.Tags["maxspeed"],
			})
		case *osmpbf.Relation:
			// relations carry turn restrictions, which are not modelled
			rc++
		default:
			return abort(fmt.Errorf("unknown pbf entity %T", v))
		}
	}

	roads := make([]graph.Road, 0, len(ways))
	for _, w := range ways {
		roads = append(roads, w.Road(nodes))
	}
	logger.Info("decoded pbf",
		"nodes", nc, "ways", wc, "relations", rc, "roads", len(roads))
	return roads, nil
}
