package osm

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/qedus/osmpbf/OSMPBF"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

// pbfWriter assembles a minimal uncompressed PBF stream.
type pbfWriter struct {
	t   *testing.T
	buf bytes.Buffer
}

func newPBFWriter(t *testing.T) *pbfWriter {
	w := &pbfWriter{t: t}
	w.block("OSMHeader", &OSMPBF.HeaderBlock{RequiredFeatures: []string{"OsmSchema-V0.6"}})
	return w
}

func (w *pbfWriter) block(kind string, msg proto.Message) {
	w.t.Helper()
	data, err := proto.Marshal(msg)
	require.NoError(w.t, err)
	blob, err := proto.Marshal(&OSMPBF.Blob{
		RawSize: proto.Int32(int32(len(data))),
		Data:    &OSMPBF.Blob_Raw{Raw: data},
	})
	require.NoError(w.t, err)
	header, err := proto.Marshal(&OSMPBF.BlobHeader{
		Type:     proto.String(kind),
		Datasize: proto.Int32(int32(len(blob))),
	})
	require.NoError(w.t, err)

	require.NoError(w.t, binary.Write(&w.buf, binary.BigEndian, uint32(len(header))))
	w.buf.Write(header)
	w.buf.Write(blob)
}

type testNode struct {
	id       int64
	lon, lat float64
}

type testWay struct {
	id    int64
	nodes []int64
	tags  map[string]string
}

// data writes one OSMData block holding nodes and ways.
func (w *pbfWriter) data(nodes []testNode, ways []testWay) {
	strings := []string{""}
	index := map[string]uint32{"": 0}
	str := func(s string) uint32 {
		if i, ok := index[s]; ok {
			return i
		}
		index[s] = uint32(len(strings))
		strings = append(strings, s)
		return index[s]
	}

	var pbNodes []*OSMPBF.Node
	for _, n := range nodes {
		pbNodes = append(pbNodes, &OSMPBF.Node{
			Id:  proto.Int64(n.id),
			Lat: proto.Int64(int64(math.Round(n.lat * 1e7))),
			Lon: proto.Int64(int64(math.Round(n.lon * 1e7))),
		})
	}
	var pbWays []*OSMPBF.Way
	for _, way := range ways {
		pw := &OSMPBF.Way{Id: proto.Int64(way.id)}
		for k, v := range way.tags {
			pw.Keys = append(pw.Keys, str(k))
			pw.Vals = append(pw.Vals, str(v))
		}
		var prev int64
		for _, id := range way.nodes {
			pw.Refs = append(pw.Refs, id-prev)
			prev = id
		}
		pbWays = append(pbWays, pw)
	}

	w.block("OSMData", &OSMPBF.PrimitiveBlock{
		Stringtable: &OSMPBF.StringTable{S: strings},
		Primitivegroup: []*OSMPBF.PrimitiveGroup{
			{Nodes: pbNodes},
			{Ways: pbWays},
		},
	})
}

func samplePBF(t *testing.T) []byte {
	w := newPBFWriter(t)
	w.data([]testNode{
		{1, 95.65, 16.73},
		{2, 95.66, 16.73},
		{3, 95.66, 16.74},
		{4, 95.65, 16.74},
	}, []testWay{
		{10, []int64{1, 2}, map[string]string{"highway": "motorway", "oneway": "no", "name": "Expressway", "maxspeed": "100"}},
		{11, []int64{2, 3}, map[string]string{"highway": "residential", "oneway": "-1"}},
		{12, []int64{3, 4}, map[string]string{"highway": "footway"}},
		{13, []int64{3, 4, 1}, map[string]string{"highway": "tertiary", "junction": "roundabout", "maxspeed": "30 mph"}},
	})
	return w.buf.Bytes()
}

func TestDecodeRoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.osm.pbf")
	require.NoError(t, os.WriteFile(path, samplePBF(t), 0o600))

	roads, err := NewPBFSource(path, nil).Roads(context.Background())
	require.NoError(t, err)
	require.Len(t, roads, 3, "footway is not drivable")

	expressway := roads[0]
	assert.EqualValues(t, 10, expressway.ID)
	assert.Equal(t, "Expressway", expressway.Name)
	assert.Equal(t, "motorway", expressway.Type)
	assert.False(t, expressway.OneWay)
	assert.Equal(t, 100.0, expressway.MaxSpeedKmh)
	require.Len(t, expressway.Polyline, 2)
	assert.InDelta(t, 95.65, expressway.Polyline[0].Lon(), 1e-9)
	assert.InDelta(t, 16.73, expressway.Polyline[0].Lat(), 1e-9)

	reversed := roads[1]
	assert.True(t, reversed.OneWay)
	assert.InDelta(t, 16.74, reversed.Polyline[0].Lat(), 1e-9, "oneway=-1 runs against the node order")

	roundabout := roads[2]
	assert.True(t, roundabout.OneWay)
	assert.Len(t, roundabout.Polyline, 3)
	assert.InDelta(t, 30*kmhPerMph, roundabout.MaxSpeedKmh, 1e-9)
}

// cancelAfter cancels once n bytes have been read.
type cancelAfter struct {
	r      io.Reader
	n      int
	read   int
	cancel context.CancelFunc
}

func (c *cancelAfter) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += n
	if c.read >= c.n {
		c.cancel()
	}
	return n, err
}

func TestDecodeRoadsCancelledMidStream(t *testing.T) {
	w := newPBFWriter(t)
	headerLen := w.buf.Len()
	for b := 0; b < 20; b++ {
		nodes := make([]testNode, 1000)
		for i := range nodes {
			id := int64(b*1000 + i + 1)
			nodes[i] = testNode{id, 95 + float64(i)*1e-4, 16 + float64(b)*1e-4}
		}
		w.data(nodes, nil)
	}

	before := runtime.NumGoroutine()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := DecodeRoads(ctx, &cancelAfter{r: bytes.NewReader(w.buf.Bytes()), n: headerLen, cancel: cancel}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 2*time.Second, 10*time.Millisecond, "decoder goroutines must exit")
}

func TestDecodeRoadsCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DecodeRoads(ctx, bytes.NewReader(samplePBF(t)), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
