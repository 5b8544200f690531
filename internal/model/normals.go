package model

import (
	gomath "math"

	"github.com/Faultbox/xktconv/pkg/math"
)

// generateNormals averages the face normals around each vertex. Faces are
// weighted by area since the cross product is left unnormalized.
func generateNormals(positions []float64, indices []uint32) []float64 {
	normals := make([]float64, len(positions))
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		pa, pb, pc := vertex(positions, a), vertex(positions, b), vertex(positions, c)
		n := pb.Sub(pa).Cross(pc.Sub(pa))
		for _, v := range [3]uint32{a, b, c} {
			normals[3*v] += n.X
			normals[3*v+1] += n.Y
			normals[3*v+2] += n.Z
		}
	}
	for i := 0; i+2 < len(normals); i += 3 {
		n := vertex(normals, uint32(i/3)).Normalize()
		normals[i], normals[i+1], normals[i+2] = n.X, n.Y, n.Z
	}
	return normals
}

// transformNormals applies a normal matrix in place and renormalizes.
func transformNormals(normalMatrix math.Mat4, normals []float64) {
	for i := 0; i+2 < len(normals); i += 3 {
		n := normalMatrix.TransformDirection(vertex(normals, uint32(i/3))).Normalize()
		normals[i], normals[i+1], normals[i+2] = n.X, n.Y, n.Z
	}
}

func vertex(positions []float64, i uint32) math.Vec3 {
	return math.Vec3{X: positions[3*i], Y: positions[3*i+1], Z: positions[3*i+2]}
}

// octEncodeNormals packs unit normals into two signed bytes each.
func octEncodeNormals(normals []float64) []int8 {
	out := make([]int8, len(normals)/3*2)
	for i := 0; i+2 < len(normals); i += 3 {
		e := OctEncode(vertex(normals, uint32(i/3)))
		out[i/3*2], out[i/3*2+1] = e[0], e[1]
	}
	return out
}

// OctEncode maps a unit vector onto the octahedron and quantizes it to bytes,
// choosing the rounding whose decoded direction is closest to n.
func OctEncode(n math.Vec3) [2]int8 {
	s := gomath.Abs(n.X) + gomath.Abs(n.Y) + gomath.Abs(n.Z)
	if s == 0 {
		return [2]int8{}
	}
	u, v := n.X/s, n.Y/s
	if n.Z < 0 {
		u, v = (1-gomath.Abs(v))*signNotZero(u), (1-gomath.Abs(u))*signNotZero(v)
	}

	unit := n.Normalize()
	best := [2]int8{}
	bestDot := gomath.Inf(-1)
	for _, fu := range [2]func(float64) float64{gomath.Floor, gomath.Ceil} {
		for _, fv := range [2]func(float64) float64{gomath.Floor, gomath.Ceil} {
			c := [2]int8{clampSnorm(fu(u * 127)), clampSnorm(fv(v * 127))}
			if d := OctDecode(c).Dot(unit); d > bestDot {
				best, bestDot = c, d
			}
		}
	}
	return best
}

// OctDecode reverses OctEncode.
func OctDecode(e [2]int8) math.Vec3 {
	x := float64(e[0]) / 127
	y := float64(e[1]) / 127
	z := 1 - gomath.Abs(x) - gomath.Abs(y)
	if z < 0 {
		x, y = (1-gomath.Abs(y))*signNotZero(x), (1-gomath.Abs(x))*signNotZero(y)
	}
	return math.Vec3{X: x, Y: y, Z: z}.Normalize()
}

func signNotZero(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func clampSnorm(v float64) int8 {
	if v < -127 {
		return -127
	}
	if v > 127 {
		return 127
	}
	return int8(v)
}
