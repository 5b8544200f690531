package model

import "github.com/Faultbox/xktconv/pkg/math"

// kdNode is a node of the tiling tree. Children are arena indices, -1 when absent.
type kdNode struct {
	aabb     math.AABB
	left     int
	right    int
	entities []int
}

// kdTree partitions entity bounds. Nodes are created lazily on insertion.
type kdTree struct {
	nodes       []kdNode
	maxDepth    int
	minTileSize float64
}

func newKDTree(bounds math.AABB, maxDepth int, minTileSize float64) *kdTree {
	t := &kdTree{maxDepth: maxDepth, minTileSize: minTileSize}
	t.addNode(bounds)
	return t
}

func (t *kdTree) addNode(aabb math.AABB) int {
	t.nodes = append(t.nodes, kdNode{aabb: aabb, left: -1, right: -1})
	return len(t.nodes) - 1
}

// insert places an entity in the deepest node whose bounds contain it, halving
// nodes along their longest axis as needed. The root is depth 1.
func (t *kdTree) insert(entity int, box math.AABB) {
	n, depth := 0, 1
	for {
		node := &t.nodes[n]
		if depth >= t.maxDepth || (t.minTileSize > 0 && node.aabb.Diagonal() < t.minTileSize) {
			t.attach(n, entity, box)
			return
		}
		if node.left >= 0 && t.nodes[node.left].aabb.Contains(box) {
			n, depth = node.left, depth+1
			continue
		}
		if node.right >= 0 && t.nodes[node.right].aabb.Contains(box) {
			n, depth = node.right, depth+1
			continue
		}

		low, high := node.aabb.Split(node.aabb.LongestAxis())
		if node.left < 0 {
			left := t.addNode(low)
			t.nodes[n].left = left
		}
		if t.nodes[n].right < 0 {
			right := t.addNode(high)
			t.nodes[n].right = right
		}

		node = &t.nodes[n]
		if t.nodes[node.left].aabb.Contains(box) {
			n, depth = node.left, depth+1
			continue
		}
		if t.nodes[node.right].aabb.Contains(box) {
			n, depth = node.right, depth+1
			continue
		}
		t.attach(n, entity, box)
		return
	}
}

func (t *kdTree) attach(n, entity int, box math.AABB) {
	t.nodes[n].entities = append(t.nodes[n].entities, entity)
	t.nodes[n].aabb.Expand(box)
}

// preOrder returns the entity lists of non-empty nodes in pre-order.
func (t *kdTree) preOrder() [][]int {
	var out [][]int
	stack := []int{0}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := t.nodes[n]
		if len(node.entities) > 0 {
			out = append(out, node.entities)
		}
		if node.right >= 0 {
			stack = append(stack, node.right)
		}
		if node.left >= 0 {
			stack = append(stack, node.left)
		}
	}
	return out
}

// Tile is a spatial group of entities sharing one quantization frame.
type Tile struct {
	Index        int
	AABB         math.AABB // Tight world bounds of the tile's entities
	DecodeMatrix math.Mat4 // Quantized tile positions to world space
	Entities     []int     // Indices into Model.Entities
}

// buildTiles inserts every entity into a KD-tree over the model bounds and
// flattens the tree into tiles. Entities must have their AABBs set.
func (m *Model) buildTiles() [][]int {
	if len(m.entities) == 0 {
		return nil
	}
	bounds := math.EmptyAABB()
	for _, e := range m.entities {
		bounds.Expand(e.AABB)
	}
	tree := newKDTree(bounds, m.opts.MaxKDTreeDepth, m.opts.MinTileSize)
	for _, e := range m.entities {
		tree.insert(e.Index, e.AABB)
	}
	return tree.preOrder()
}
