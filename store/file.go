package store

import (
	"context"
	"fmt"
	"math"
	"os"

	"kuanb/road-router/graph"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"
)

// fileRoad mirrors the admin road payload: coordinates as [lon, lat] pairs and
// one length per segment.
type fileRoad struct {
	ID          int64       `yaml:"id"`
	Name        string      `yaml:"name"`
	RoadType    string      `yaml:"road_type"`
	Coordinates [][]float64 `yaml:"coordinates"`
	LengthM     []float64   `yaml:"length_m"`
	OneWay      bool        `yaml:"is_oneway"`
	MaxSpeedKmh float64     `yaml:"max_speed_kmh"`
}

type roadFile struct {
	Roads []fileRoad `yaml:"roads"`
}

// File reads roads from a YAML or JSON document of the form
// {roads: [{id, name, road_type, coordinates, length_m, is_oneway, max_speed_kmh}]}.
type File struct {
	Path string
}

func NewFile(path string) *File {
	return &File{Path: path}
}

func (f *File) Roads(ctx context.Context) ([]graph.Road, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read road file: %w", err)
	}
	return ParseRoads(data)
}

// ParseRoads decodes a road document. YAML is a superset of JSON, so both
// formats are accepted.
func ParseRoads(data []byte) ([]graph.Road, error) {
	var doc roadFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse road file: %w", err)
	}
	roads := make([]graph.Road, 0, len(doc.Roads))
	for _, fr := range doc.Roads {
		line := make(orb.LineString, len(fr.Coordinates))
		for i, c := range fr.Coordinates {
			if len(c) != 2 {
				// rejected by graph.ValidateRoad
				line[i] = orb.Point{math.NaN(), math.NaN()}
				continue
			}
			line[i] = orb.Point{c[0], c[1]}
		}
		roads = append(roads, graph.Road{
			ID:             graph.RoadID(fr.ID),
			Name:           fr.Name,
			Type:           fr.RoadType,
			Polyline:       line,
			SegmentLengths: fr.LengthM,
			OneWay:         fr.OneWay,
			MaxSpeedKmh:    fr.MaxSpeedKmh,
		})
	}
	return roads, nil
}
