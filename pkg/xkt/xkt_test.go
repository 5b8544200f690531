package xkt

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"github.com/Faultbox/xktconv/pkg/math"
)

// makeTestData builds two geometries: a reused triangle (two meshes) and an
// exclusively-owned line, across two entities in one tile.
func makeTestData() *Data {
	return &Data{
		Positions:   []uint16{0, 0, 0, 65535, 0, 0, 0, 65535, 0, 10, 20, 30, 40, 50, 60},
		Normals:     []int8{0, 127, 0, 127, 0, 127, 0, 0, 0, 0},
		Indices:     []uint32{0, 1, 2, 0, 1},
		EdgeIndices: []uint32{0, 1, 1, 2, 2, 0},
		Matrices: []float32{
			1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1,
			1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 5, 0, 0, 1,
		},
		ReusedGeometriesDecodeMatrix: [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},

		EachGeometryPrimitiveType:      []PrimitiveType{PrimitiveSurface, PrimitiveLines},
		EachGeometryPositionsPortion:   []uint32{0, 9},
		EachGeometryIndicesPortion:     []uint32{0, 3},
		EachGeometryEdgeIndicesPortion: []uint32{0, 6},

		EachMeshGeometriesPortion: []uint32{0, 0, 1},
		EachMeshMatricesPortion:   []uint32{0, 16, 0},
		EachMeshMaterial:          []uint8{255, 0, 0, 255, 0, 255, 0, 128, 0, 0, 255, 255},

		EachEntityID:            []string{"wall#1", "väggen"},
		EachEntityMeshesPortion: []uint32{0, 2},

		EachTileAABB:            []float64{-1.5, 0, 0, 10.25, 3, 4},
		EachTileEntitiesPortion: []uint32{0},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	want := makeTestData()

	buf, err := Encode(want)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if v := binary.LittleEndian.Uint32(buf[0:]); v != Version {
		t.Errorf("expected version %d, got %d", Version, v)
	}
	if n := binary.LittleEndian.Uint32(buf[4:]); n != SectionCount {
		t.Errorf("expected %d sections, got %d", SectionCount, n)
	}

	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestEncodeDecodeEmpty(t *testing.T) {
	buf, err := Encode(&Data{})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.NumGeometries() != 0 || got.NumMeshes() != 0 || got.NumEntities() != 0 || got.NumTiles() != 0 {
		t.Errorf("expected empty data, got %+v", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	valid, err := Encode(makeTestData())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	withVersion := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(withVersion, 9)

	withCount := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(withCount[4:], 18)

	corrupt := append([]byte(nil), valid...)
	for i := 8 + 4*SectionCount; i < len(corrupt); i++ {
		corrupt[i] = 0xFF
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", []byte{}, ErrTruncated},
		{"header only", valid[:8], ErrTruncated},
		{"truncated sections", valid[:len(valid)-1], ErrTruncated},
		{"wrong version", withVersion, ErrUnsupportedVersion},
		{"wrong section count", withCount, ErrSectionCount},
		{"corrupt payload", corrupt, ErrMalformedSection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Data)
	}{
		{"normals length", func(d *Data) { d.Normals = d.Normals[:4] }},
		{"geometry portion out of range", func(d *Data) { d.EachGeometryPositionsPortion[1] = 99 }},
		{"geometry portion not vertex aligned", func(d *Data) { d.EachGeometryPositionsPortion[1] = 4 }},
		{"decreasing indices portion", func(d *Data) { d.EachGeometryIndicesPortion = []uint32{3, 0} }},
		{"unknown primitive", func(d *Data) { d.EachGeometryPrimitiveType[0] = 7 }},
		{"mesh geometry out of range", func(d *Data) { d.EachMeshGeometriesPortion[2] = 2 }},
		{"reused mesh matrix out of range", func(d *Data) { d.EachMeshMatricesPortion[1] = 32 }},
		{"material length", func(d *Data) { d.EachMeshMaterial = d.EachMeshMaterial[:8] }},
		{"entity id count", func(d *Data) { d.EachEntityID = d.EachEntityID[:1] }},
		{"entity id not utf-8", func(d *Data) { d.EachEntityID[1] = "bad\xffid" }},
		{"tile aabb length", func(d *Data) { d.EachTileAABB = d.EachTileAABB[:5] }},
		{"tile entities portion", func(d *Data) { d.EachTileEntitiesPortion = []uint32{3} }},
	}

	if err := makeTestData().Check(); err != nil {
		t.Fatalf("valid data failed Check: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := makeTestData()
			tt.mutate(d)
			if err := d.Check(); !errors.Is(err, ErrMalformedSection) {
				t.Errorf("expected ErrMalformedSection, got %v", err)
			}
			if _, err := Encode(d); err == nil {
				t.Error("expected Encode to reject inconsistent data")
			}
		})
	}
}

func TestPortionAccessors(t *testing.T) {
	d := makeTestData()

	if got := d.GeometryPositions(1); !reflect.DeepEqual(got, []uint16{10, 20, 30, 40, 50, 60}) {
		t.Errorf("GeometryPositions(1) = %v", got)
	}
	if got := d.GeometryNormals(0); len(got) != 6 {
		t.Errorf("expected 6 normal components for geometry 0, got %d", len(got))
	}
	if got := d.GeometryIndices(1); !reflect.DeepEqual(got, []uint32{0, 1}) {
		t.Errorf("GeometryIndices(1) = %v", got)
	}
	if got := d.GeometryEdgeIndices(1); len(got) != 0 {
		t.Errorf("expected no edges for the line geometry, got %v", got)
	}

	uses := d.GeometryUseCounts()
	if !reflect.DeepEqual(uses, []int{2, 1}) {
		t.Errorf("GeometryUseCounts() = %v", uses)
	}
	m, ok := d.MeshMatrix(1, uses)
	if !ok || m[12] != 5 {
		t.Errorf("MeshMatrix(1) = %v, %v", m, ok)
	}
	if _, ok := d.MeshMatrix(2, uses); ok {
		t.Error("exclusively-owned mesh should have no matrix")
	}
	if c := d.MeshColor(1); c != [4]uint8{0, 255, 0, 128} {
		t.Errorf("MeshColor(1) = %v", c)
	}

	if s, e := d.EntityMeshes(0); s != 0 || e != 2 {
		t.Errorf("EntityMeshes(0) = %d, %d", s, e)
	}
	if s, e := d.EntityMeshes(1); s != 2 || e != 3 {
		t.Errorf("EntityMeshes(1) = %d, %d", s, e)
	}
	if s, e := d.TileEntities(0); s != 0 || e != 2 {
		t.Errorf("TileEntities(0) = %d, %d", s, e)
	}
	if b := d.TileAABB(0); b.Min.X != -1.5 || b.Max.X != 10.25 {
		t.Errorf("TileAABB(0) = %v", b)
	}
}

func TestQuantizeBounds(t *testing.T) {
	aabb := math.AABB{Min: math.Vec3{X: -10, Y: 0, Z: 5}, Max: math.Vec3{X: 10, Y: 0, Z: 6}}
	positions := []float64{-10, 0, 5, 10, 0, 6, 0, 0, 5.5, 3.3, 0, 5.123, -20, 0, 7}

	q := QuantizePositions(positions, math.Vec3{}, aabb)
	decoded := DecodePositions(q, DecodeMatrix(aabb))

	if q[0] != 0 || q[3] != QuantizationRange {
		t.Errorf("expected extremes 0 and %d, got %d and %d", QuantizationRange, q[0], q[3])
	}
	if q[1] != 0 || q[4] != 0 {
		t.Error("zero-extent axis should quantize to 0")
	}
	if q[12] != 0 || q[14] != QuantizationRange {
		t.Errorf("out-of-range values should clamp, got %d and %d", q[12], q[14])
	}

	size := aabb.Size().Array()
	for i := 0; i < 12; i++ {
		tolerance := size[i%3] / QuantizationRange
		if diff := decoded[i] - positions[i]; diff > tolerance || diff < -tolerance {
			t.Errorf("component %d: decoded %v from %v, error beyond %v", i, decoded[i], positions[i], tolerance)
		}
	}
}

func TestTileDecodeMatrix(t *testing.T) {
	tile := math.AABB{Min: math.Vec3{X: 1000, Y: 2000, Z: -50}, Max: math.Vec3{X: 1010, Y: 2004, Z: -10}}
	center := tile.Center()
	rtc := tile.Translate(center)

	positions := []float64{1000, 2000, -50, 1010, 2004, -10, 1003.7, 2001.1, -33.3}
	q := QuantizePositions(positions, center, rtc)
	decoded := DecodePositions(q, TileDecodeMatrix(tile))

	size := tile.Size().Array()
	for i := range positions {
		tolerance := size[i%3] / QuantizationRange
		if diff := decoded[i] - positions[i]; diff > tolerance || diff < -tolerance {
			t.Errorf("component %d: decoded %v from %v, error beyond %v", i, decoded[i], positions[i], tolerance)
		}
	}
}

func TestSectionAndPrimitiveStrings(t *testing.T) {
	if s := SectionEachTileEntitiesPortion.String(); s != "eachTileEntitiesPortion" {
		t.Errorf("got %q", s)
	}
	if s := Section(99).String(); s != "Unknown(99)" {
		t.Errorf("got %q", s)
	}
	if s := PrimitiveLines.String(); s != "Lines" {
		t.Errorf("got %q", s)
	}
	if !PrimitiveSolid.IsTriangles() || PrimitivePoints.IsTriangles() {
		t.Error("IsTriangles classification wrong")
	}
}
