package shapeclust

// UnionFind is a disjoint-set forest over 2*n - 1 slots: items 0..n-1 and
// the clusters n..2n-2 created by successive merges of a dendrogram.
type UnionFind struct {
	parent []int
	size   []int
	// next is the slot assigned to the next Merge result, starting at n.
	next int
}

// NewUnionFind creates a UnionFind for n items, each a singleton.
func NewUnionFind(n int) *UnionFind {
	total := max(2*n-1, 1)
	uf := &UnionFind{
		parent: make([]int, total),
		size:   make([]int, total),
		next:   n,
	}
	for i := range uf.parent {
		uf.parent[i] = -1 // root
	}
	for i := 0; i < n; i++ {
		uf.size[i] = 1
	}
	return uf
}

// Find returns the root of the set containing x, compressing the path.
func (uf *UnionFind) Find(x int) int {
	root := x
	for uf.parent[root] != -1 {
		root = uf.parent[root]
	}
	for uf.parent[x] != -1 {
		x, uf.parent[x] = uf.parent[x], root
	}
	return root
}

// Union merges the sets containing x and y, attaching the smaller tree under
// the larger. Returns the surviving root.
func (uf *UnionFind) Union(x, y int) int {
	rootX := uf.Find(x)
	rootY := uf.Find(y)
	if rootX == rootY {
		return rootX
	}
	if uf.size[rootX] < uf.size[rootY] {
		rootX, rootY = rootY, rootX
	}
	uf.parent[rootY] = rootX
	uf.size[rootX] += uf.size[rootY]
	return rootX
}

// Merge joins the roots of x and y under a fresh cluster slot and returns
// that slot, the dendrogram ID of the merged cluster.
func (uf *UnionFind) Merge(x, y int) int {
	rx, ry := uf.Find(x), uf.Find(y)
	id := uf.next
	uf.next++
	uf.size[id] = uf.size[rx] + uf.size[ry]
	uf.parent[rx] = id
	uf.parent[ry] = id
	return id
}

// Size returns the number of items in the set rooted at root.
func (uf *UnionFind) Size(root int) int { return uf.size[root] }
