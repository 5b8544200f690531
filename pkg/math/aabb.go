package math

import "math"

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min Vec3
	Max Vec3
}

// EmptyAABB returns a collapsed box that any Expand call will overwrite.
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// AABBFromArray builds a box from [xmin, ymin, zmin, xmax, ymax, zmax].
func AABBFromArray(a [6]float64) AABB {
	return AABB{Min: Vec3{a[0], a[1], a[2]}, Max: Vec3{a[3], a[4], a[5]}}
}

// Array returns [xmin, ymin, zmin, xmax, ymax, zmax].
func (b AABB) Array() [6]float64 {
	return [6]float64{b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z}
}

// IsEmpty reports whether the box has never been expanded.
func (b AABB) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// ExpandPoint grows the box to include p.
func (b *AABB) ExpandPoint(p Vec3) {
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Min.Z = math.Min(b.Min.Z, p.Z)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
	b.Max.Z = math.Max(b.Max.Z, p.Z)
}

// Expand grows the box to include other.
func (b *AABB) Expand(other AABB) {
	if other.IsEmpty() {
		return
	}
	b.ExpandPoint(other.Min)
	b.ExpandPoint(other.Max)
}

// ExpandPositions grows the box to include every point of a flat xyz array.
func (b *AABB) ExpandPositions(positions []float64) {
	for i := 0; i+2 < len(positions); i += 3 {
		b.ExpandPoint(Vec3{positions[i], positions[i+1], positions[i+2]})
	}
}

// Contains reports whether other lies fully inside b (boundaries inclusive).
func (b AABB) Contains(other AABB) bool {
	return b.Min.X <= other.Min.X && other.Max.X <= b.Max.X &&
		b.Min.Y <= other.Min.Y && other.Max.Y <= b.Max.Y &&
		b.Min.Z <= other.Min.Z && other.Max.Z <= b.Max.Z
}

// Center returns the box center.
func (b AABB) Center() Vec3 {
	return Vec3{
		(b.Min.X + b.Max.X) / 2,
		(b.Min.Y + b.Max.Y) / 2,
		(b.Min.Z + b.Max.Z) / 2,
	}
}

// Size returns the extent on each axis.
func (b AABB) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Diagonal returns the length of the box diagonal.
func (b AABB) Diagonal() float64 {
	return b.Size().Length()
}

// Translate returns the box moved by -offset.
func (b AABB) Translate(offset Vec3) AABB {
	return AABB{Min: b.Min.Sub(offset), Max: b.Max.Sub(offset)}
}

// LongestAxis returns the axis with the largest extent. Ties favor X, then Y.
func (b AABB) LongestAxis() int {
	size := b.Size()
	axis := 0
	if size.Y > size.Axis(axis) {
		axis = 1
	}
	if size.Z > size.Axis(axis) {
		axis = 2
	}
	return axis
}

// Split halves the box along axis into a low and a high half.
func (b AABB) Split(axis int) (low, high AABB) {
	low, high = b, b
	mid := (b.Min.Axis(axis) + b.Max.Axis(axis)) / 2
	switch axis {
	case 0:
		low.Max.X, high.Min.X = mid, mid
	case 1:
		low.Max.Y, high.Min.Y = mid, mid
	default:
		low.Max.Z, high.Min.Z = mid, mid
	}
	return low, high
}
