package clustering

// blobs places perBlob points on a small deterministic grid around each center.
func blobs(centers [][]float64, perBlob int) ([][]float64, []int) {
	var points [][]float64
	var truth []int
	for c, center := range centers {
		for i := 0; i < perBlob; i++ {
			p := make([]float64, len(center))
			copy(p, center)
			p[0] += float64(i%5) * 0.05
			p[1] += float64(i/5) * 0.05
			points = append(points, p)
			truth = append(truth, c)
		}
	}
	return points, truth
}

// sameGrouping reports whether two labellings partition the points identically.
func sameGrouping(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	ab := make(map[int]int)
	ba := make(map[int]int)
	for i := range a {
		if x, ok := ab[a[i]]; ok && x != b[i] {
			return false
		}
		if y, ok := ba[b[i]]; ok && y != a[i] {
			return false
		}
		ab[a[i]] = b[i]
		ba[b[i]] = a[i]
	}
	return true
}
