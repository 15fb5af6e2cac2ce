package shapeclust

import "math"

// PrimMST computes a minimum spanning tree of the complete graph whose edge
// weights are the cells of m, using Prim's algorithm from item 0.
// Returns (n-1) edges as [][3]float64 [from, to, weight], where from is the
// tree node nearest to the newly added node. Among equally near candidates
// the lowest index wins.
func PrimMST(m *Matrix) [][3]float64 {
	n := m.N
	if n <= 1 {
		return nil
	}

	inTree := make([]bool, n)
	nearest := make([]float64, n)
	// via[k] is the tree node that nearest[k] was measured from.
	via := make([]int, n)

	inTree[0] = true
	row := m.Row(0)
	for j := 1; j < n; j++ {
		nearest[j] = row[j]
	}

	edges := make([][3]float64, 0, n-1)

	for range n - 1 {
		minDist := math.Inf(1)
		minNode := -1
		for j := 0; j < n; j++ {
			if !inTree[j] && nearest[j] < minDist {
				minDist = nearest[j]
				minNode = j
			}
		}

		// Only +Inf candidates remain: take the first one.
		if minNode == -1 {
			for j := 0; j < n; j++ {
				if !inTree[j] {
					minNode = j
					minDist = nearest[j]
					break
				}
			}
		}

		edges = append(edges, [3]float64{float64(via[minNode]), float64(minNode), minDist})
		inTree[minNode] = true

		row = m.Row(minNode)
		for k := 0; k < n; k++ {
			if !inTree[k] && row[k] < nearest[k] {
				nearest[k] = row[k]
				via[k] = minNode
			}
		}
	}

	return edges
}
