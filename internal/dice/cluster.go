package dice

import "github.com/ayusman/dicecount/internal/detector"

// unionFind is a disjoint-set forest over point indices.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{
		parent: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		// Path halving
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}

// clusters partitions points into groups connected by chains of neighbours
// no further than eps apart. With a minimum cluster size of one every point
// is a core point, so the groups are the connected components of the eps
// neighbourhood graph and no point is ever left as noise.
//
// Each cluster lists member indices in ascending order, and clusters are
// ordered by their first member.
func clusters(points []detector.Point, eps float64) [][]int {
	n := len(points)
	if n == 0 {
		return [][]int{}
	}

	uf := newUnionFind(n)
	eps2 := eps * eps

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx := points[i].X - points[j].X
			dy := points[i].Y - points[j].Y
			if dx*dx+dy*dy <= eps2 {
				uf.union(i, j)
			}
		}
	}

	index := make(map[int]int)
	var groups [][]int
	for i := 0; i < n; i++ {
		root := uf.find(i)
		g, ok := index[root]
		if !ok {
			g = len(groups)
			index[root] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}

	return groups
}
