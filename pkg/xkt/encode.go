package xkt

import (
	"bytes"
	"encoding/binary"
	"math"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Encode serializes d with the default compression level.
func Encode(d *Data) ([]byte, error) {
	return EncodeLevel(d, zlib.DefaultCompression)
}

// EncodeLevel serializes d, compressing every section independently at the
// given zlib level. Sections are compressed concurrently.
func EncodeLevel(d *Data, level int) ([]byte, error) {
	if err := d.Check(); err != nil {
		return nil, errors.Wrap(err, "refusing to encode inconsistent data")
	}

	raw, err := d.sectionBytes()
	if err != nil {
		return nil, err
	}

	compressed := make([][]byte, SectionCount)
	var g errgroup.Group
	for i := range raw {
		g.Go(func() error {
			out, err := deflate(raw[i], level)
			if err != nil {
				return errors.Wrapf(err, "compressing section %s", Section(i))
			}
			compressed[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	size := 8 + 4*SectionCount
	for _, c := range compressed {
		size += len(c)
	}

	buf := make([]byte, 0, size)
	buf = binary.LittleEndian.AppendUint32(buf, Version)
	buf = binary.LittleEndian.AppendUint32(buf, SectionCount)
	for _, c := range compressed {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(c)))
	}
	for _, c := range compressed {
		buf = append(buf, c...)
	}
	return buf, nil
}

// sectionBytes returns the uncompressed little-endian bytes of every section in file order.
func (d *Data) sectionBytes() ([][]byte, error) {
	ids, err := json.Marshal(d.EachEntityID)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling entity ids")
	}
	if d.EachEntityID == nil {
		ids = []byte("[]")
	}

	primitiveTypes := make([]byte, len(d.EachGeometryPrimitiveType))
	for i, p := range d.EachGeometryPrimitiveType {
		primitiveTypes[i] = byte(p)
	}

	normals := make([]byte, len(d.Normals))
	for i, n := range d.Normals {
		normals[i] = byte(n)
	}

	return [][]byte{
		SectionPositions:                      putUint16s(d.Positions),
		SectionNormals:                        normals,
		SectionIndices:                        putUint32s(d.Indices),
		SectionEdgeIndices:                    putUint32s(d.EdgeIndices),
		SectionMatrices:                       putFloat32s(d.Matrices),
		SectionReusedGeometriesDecodeMatrix:   putFloat32s(d.ReusedGeometriesDecodeMatrix[:]),
		SectionEachGeometryPrimitiveType:      primitiveTypes,
		SectionEachGeometryPositionsPortion:   putUint32s(d.EachGeometryPositionsPortion),
		SectionEachGeometryIndicesPortion:     putUint32s(d.EachGeometryIndicesPortion),
		SectionEachGeometryEdgeIndicesPortion: putUint32s(d.EachGeometryEdgeIndicesPortion),
		SectionEachMeshGeometriesPortion:      putUint32s(d.EachMeshGeometriesPortion),
		SectionEachMeshMatricesPortion:        putUint32s(d.EachMeshMatricesPortion),
		SectionEachMeshMaterial:               append([]byte(nil), d.EachMeshMaterial...),
		SectionEachEntityID:                   ids,
		SectionEachEntityMeshesPortion:        putUint32s(d.EachEntityMeshesPortion),
		SectionEachTileAABB:                   putFloat64s(d.EachTileAABB),
		SectionEachTileEntitiesPortion:        putUint32s(d.EachTileEntitiesPortion),
	}, nil
}

func deflate(data []byte, level int) ([]byte, error) {
	var out bytes.Buffer
	w, err := zlib.NewWriterLevel(&out, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func putUint16s(values []uint16) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[2*i:], v)
	}
	return out
}

func putUint32s(values []uint32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[4*i:], v)
	}
	return out
}

func putFloat32s(values []float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

func putFloat64s(values []float64) []byte {
	out := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(out[8*i:], math.Float64bits(v))
	}
	return out
}
