package xkt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// maxSectionSize caps a single inflated section.
const maxSectionSize = 1 << 30

// Header is the fixed-size prefix of a container.
type Header struct {
	Version       uint32
	SectionCount  uint32
	SectionLength [SectionCount]uint32 // Compressed byte length of each section
}

// ReadHeader parses and validates the container header.
func ReadHeader(data []byte) (*Header, error) {
	if len(data) < 8 {
		return nil, ErrTruncated
	}

	h := &Header{
		Version:      binary.LittleEndian.Uint32(data[0:]),
		SectionCount: binary.LittleEndian.Uint32(data[4:]),
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.SectionCount != SectionCount {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSectionCount, h.SectionCount, SectionCount)
	}
	if len(data) < 8+4*SectionCount {
		return nil, ErrTruncated
	}

	var total uint64
	for i := 0; i < SectionCount; i++ {
		h.SectionLength[i] = binary.LittleEndian.Uint32(data[8+4*i:])
		total += uint64(h.SectionLength[i])
	}
	if uint64(len(data)-(8+4*SectionCount)) < total {
		return nil, fmt.Errorf("%w: sections need %d bytes, have %d", ErrTruncated, total, len(data)-(8+4*SectionCount))
	}

	return h, nil
}

// Decode parses a container produced by Encode and checks its structure.
func Decode(data []byte) (*Data, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}

	raw := make([][]byte, SectionCount)
	var g errgroup.Group
	offset := 8 + 4*SectionCount
	for i := 0; i < SectionCount; i++ {
		blob := data[offset : offset+int(h.SectionLength[i])]
		offset += int(h.SectionLength[i])
		g.Go(func() error {
			out, err := inflate(blob)
			if err != nil {
				return fmt.Errorf("%w: inflating %s: %v", ErrMalformedSection, Section(i), err)
			}
			raw[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d, err := parseSections(raw)
	if err != nil {
		return nil, err
	}
	if err := d.Check(); err != nil {
		return nil, err
	}
	return d, nil
}

func parseSections(raw [][]byte) (*Data, error) {
	d := &Data{}
	var err error

	if d.Positions, err = getUint16s(raw, SectionPositions); err != nil {
		return nil, err
	}

	d.Normals = make([]int8, len(raw[SectionNormals]))
	for i, b := range raw[SectionNormals] {
		d.Normals[i] = int8(b)
	}

	if d.Indices, err = getUint32s(raw, SectionIndices); err != nil {
		return nil, err
	}
	if d.EdgeIndices, err = getUint32s(raw, SectionEdgeIndices); err != nil {
		return nil, err
	}
	if d.Matrices, err = getFloat32s(raw, SectionMatrices); err != nil {
		return nil, err
	}
	if len(d.Matrices)%16 != 0 {
		return nil, fmt.Errorf("%w: %s holds %d floats, not a multiple of 16", ErrMalformedSection, SectionMatrices, len(d.Matrices))
	}

	decodeMatrix, err := getFloat32s(raw, SectionReusedGeometriesDecodeMatrix)
	if err != nil {
		return nil, err
	}
	if len(decodeMatrix) != 16 {
		return nil, fmt.Errorf("%w: %s holds %d floats, want 16", ErrMalformedSection, SectionReusedGeometriesDecodeMatrix, len(decodeMatrix))
	}
	copy(d.ReusedGeometriesDecodeMatrix[:], decodeMatrix)

	d.EachGeometryPrimitiveType = make([]PrimitiveType, len(raw[SectionEachGeometryPrimitiveType]))
	for i, b := range raw[SectionEachGeometryPrimitiveType] {
		d.EachGeometryPrimitiveType[i] = PrimitiveType(b)
	}

	if d.EachGeometryPositionsPortion, err = getUint32s(raw, SectionEachGeometryPositionsPortion); err != nil {
		return nil, err
	}
	if d.EachGeometryIndicesPortion, err = getUint32s(raw, SectionEachGeometryIndicesPortion); err != nil {
		return nil, err
	}
	if d.EachGeometryEdgeIndicesPortion, err = getUint32s(raw, SectionEachGeometryEdgeIndicesPortion); err != nil {
		return nil, err
	}
	if d.EachMeshGeometriesPortion, err = getUint32s(raw, SectionEachMeshGeometriesPortion); err != nil {
		return nil, err
	}
	if d.EachMeshMatricesPortion, err = getUint32s(raw, SectionEachMeshMatricesPortion); err != nil {
		return nil, err
	}
	d.EachMeshMaterial = raw[SectionEachMeshMaterial]

	if err := json.Unmarshal(raw[SectionEachEntityID], &d.EachEntityID); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedSection, SectionEachEntityID, err)
	}

	if d.EachEntityMeshesPortion, err = getUint32s(raw, SectionEachEntityMeshesPortion); err != nil {
		return nil, err
	}
	if d.EachTileAABB, err = getFloat64s(raw, SectionEachTileAABB); err != nil {
		return nil, err
	}
	if d.EachTileEntitiesPortion, err = getUint32s(raw, SectionEachTileEntitiesPortion); err != nil {
		return nil, err
	}

	return d, nil
}

func inflate(blob []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, maxSectionSize+1))
	if err != nil {
		return nil, err
	}
	if len(out) > maxSectionSize {
		return nil, errors.New("section exceeds size limit")
	}
	return out, nil
}

func checkStride(raw [][]byte, s Section, stride int) error {
	if len(raw[s])%stride != 0 {
		return fmt.Errorf("%w: %s length %d is not a multiple of %d", ErrMalformedSection, s, len(raw[s]), stride)
	}
	return nil
}

func getUint16s(raw [][]byte, s Section) ([]uint16, error) {
	if err := checkStride(raw, s, 2); err != nil {
		return nil, err
	}
	b := raw[s]
	out := make([]uint16, len(b)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return out, nil
}

func getUint32s(raw [][]byte, s Section) ([]uint32, error) {
	if err := checkStride(raw, s, 4); err != nil {
		return nil, err
	}
	b := raw[s]
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[4*i:])
	}
	return out, nil
}

func getFloat32s(raw [][]byte, s Section) ([]float32, error) {
	if err := checkStride(raw, s, 4); err != nil {
		return nil, err
	}
	b := raw[s]
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out, nil
}

func getFloat64s(raw [][]byte, s Section) ([]float64, error) {
	if err := checkStride(raw, s, 8); err != nil {
		return nil, err
	}
	b := raw[s]
	out := make([]float64, len(b)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return out, nil
}
