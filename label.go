package shapeclust

import "sort"

// Label converts MST edges into a single-linkage dendrogram in scipy format.
// mstEdges is [][3]float64 where each edge is [from, to, weight]. Returns
// [][4]float64 rows [left, right, distance, mergedSize] with left < right.
// Merged cluster IDs start at n and increase by one per row.
//
// Edges of equal weight keep their input order, so the output is
// deterministic for a given MST.
func Label(mstEdges [][3]float64, n int) [][4]float64 {
	if len(mstEdges) == 0 {
		return nil
	}

	sorted := make([][3]float64, len(mstEdges))
	copy(sorted, mstEdges)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i][2] < sorted[j][2]
	})

	uf := NewUnionFind(n)
	result := make([][4]float64, 0, len(sorted))

	for _, edge := range sorted {
		aa := uf.Find(int(edge[0]))
		bb := uf.Find(int(edge[1]))
		id := uf.Merge(aa, bb)
		result = append(result, dendrogramRow(aa, bb, edge[2], uf.Size(id)))
	}

	return result
}

func dendrogramRow(a, b int, dist float64, size int) [4]float64 {
	if a > b {
		a, b = b, a
	}
	return [4]float64{float64(a), float64(b), dist, float64(size)}
}
