package navigation

import "github.com/go-gl/mathgl/mgl64"

type leaderDistance struct {
	position mgl64.Vec3
	index    int
	distance float64
}

// Copied from container/heap - https://golang.org/pkg/container/heap/
// Why make copy? Just want to avoid type conversion

// leaderHeap orders leaders by distance, then by enumeration index
type leaderHeap []*leaderDistance

func (h leaderHeap) Len() int { return len(h) }
func (h leaderHeap) Less(i, j int) bool {
	if h[i].distance == h[j].distance {
		return h[i].index < h[j].index
	}
	return h[i].distance < h[j].distance
}
func (h leaderHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

// Push pushes the element x onto the heap.
// The complexity is O(log n) where n = h.Len().
func (h *leaderHeap) Push(x *leaderDistance) {
	*h = append(*h, x)
	h.up(h.Len() - 1)
}

// Pop removes and returns the minimum element (according to Less) from the heap.
// The complexity is O(log n) where n = h.Len().
func (h *leaderHeap) Pop() *leaderDistance {
	n := h.Len() - 1
	h.Swap(0, n)
	h.down(0, n)
	heapSize := len(*h)
	lastNode := (*h)[heapSize-1]
	*h = (*h)[0 : heapSize-1]
	return lastNode
}

func (h leaderHeap) up(j int) {
	for {
		i := (j - 1) / 2
		if i == j || !h.Less(j, i) {
			break
		}
		h.Swap(i, j)
		j = i
	}
}

func (h leaderHeap) down(i0, n int) bool {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < n && h.Less(j2, j1) {
			j = j2
		}
		if !h.Less(j, i) {
			break
		}
		h.Swap(i, j)
		i = j
	}
	return i > i0
}

// RankLeaders returns indices of leaders sorted by straight-line distance to position.
// Equal distances keep enumeration order.
func RankLeaders(position mgl64.Vec3, leaders []mgl64.Vec3) []int {
	h := make(leaderHeap, 0, len(leaders))
	for i, leader := range leaders {
		h.Push(&leaderDistance{
			position: leader,
			index:    i,
			distance: leader.Sub(position).Len(),
		})
	}
	ranked := make([]int, 0, len(leaders))
	for h.Len() > 0 {
		ranked = append(ranked, h.Pop().index)
	}
	return ranked
}
