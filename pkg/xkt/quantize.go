package xkt

import (
	gomath "math"

	"github.com/Faultbox/xktconv/pkg/math"
)

// QuantizationRange is the largest quantized position component.
const QuantizationRange = 65535

// QuantizePositions maps each point p of a flat xyz array to 16-bit integers
// linearly over aabb, after subtracting origin:
//
//	q = round((p - origin - min) / (max - min) * 65535), clamped to [0, 65535]
//
// An axis with zero extent quantizes to 0.
func QuantizePositions(positions []float64, origin math.Vec3, aabb math.AABB) []uint16 {
	out := make([]uint16, len(positions))
	lo := aabb.Min.Array()
	size := aabb.Size().Array()
	o := origin.Array()

	for i, p := range positions {
		axis := i % 3
		if size[axis] == 0 {
			continue
		}
		q := gomath.Round((p - o[axis] - lo[axis]) / size[axis] * QuantizationRange)
		if q < 0 {
			q = 0
		} else if q > QuantizationRange {
			q = QuantizationRange
		}
		out[i] = uint16(q)
	}
	return out
}

// DecodeMatrix returns the matrix that maps positions quantized over aabb back
// into the frame aabb is expressed in.
func DecodeMatrix(aabb math.AABB) math.Mat4 {
	size := aabb.Size()
	return math.Translate(aabb.Min.X, aabb.Min.Y, aabb.Min.Z).
		Mul(math.Scale(size.X/QuantizationRange, size.Y/QuantizationRange, size.Z/QuantizationRange))
}

// TileDecodeMatrix returns the world decode matrix of a tile. Tile positions
// are quantized relative to the tile center over the recentred bounds.
func TileDecodeMatrix(tileAABB math.AABB) math.Mat4 {
	center := tileAABB.Center()
	return math.Translate(center.X, center.Y, center.Z).Mul(DecodeMatrix(tileAABB.Translate(center)))
}

// DecodePositions applies a decode matrix to quantized positions.
func DecodePositions(quantized []uint16, decode math.Mat4) []float64 {
	out := make([]float64, len(quantized))
	for i := 0; i+2 < len(quantized); i += 3 {
		p := decode.TransformPoint(math.Vec3{
			X: float64(quantized[i]),
			Y: float64(quantized[i+1]),
			Z: float64(quantized[i+2]),
		})
		out[i], out[i+1], out[i+2] = p.X, p.Y, p.Z
	}
	return out
}
