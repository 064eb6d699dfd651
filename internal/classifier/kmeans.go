package classifier

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// KMeansOptions controls model fitting.
type KMeansOptions struct {
	NClusters int
	MaxIter   int
	Seed      int64
}

// DefaultKMeansOptions is four clusters, 300 iterations, seed 42.
func DefaultKMeansOptions() KMeansOptions {
	return KMeansOptions{NClusters: 4, MaxIter: 300, Seed: 42}
}

// KMeans assigns feature vectors to the nearest of a fixed set of centroids.
type KMeans struct {
	centroids [][]float64
	norms     []float64
}

// NewKMeans builds a model from fitted centroids.
func NewKMeans(centroids [][]float64) (*KMeans, error) {
	if len(centroids) == 0 {
		return nil, errors.New("kmeans: no centroids")
	}
	dim := len(centroids[0])
	k := &KMeans{
		centroids: make([][]float64, len(centroids)),
		norms:     make([]float64, len(centroids)),
	}
	for i, c := range centroids {
		if len(c) != dim {
			return nil, fmt.Errorf("kmeans: centroid %d has dimension %d, want %d", i, len(c), dim)
		}
		k.centroids[i] = append([]float64(nil), c...)
		k.norms[i] = squaredNorm(c)
	}
	return k, nil
}

// NClusters returns the number of clusters.
func (k *KMeans) NClusters() int { return len(k.centroids) }

// Dim returns the centroid dimensionality.
func (k *KMeans) Dim() int { return len(k.centroids[0]) }

// Predict returns the id of the nearest centroid. Ties go to the lowest id.
func (k *KMeans) Predict(x SparseVector) int {
	best, bestDist := 0, math.Inf(1)
	xNorm := x.SquaredNorm()
	for i, c := range k.centroids {
		d := distance(x, xNorm, c, k.norms[i])
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Centroids returns a copy of the fitted centroids.
func (k *KMeans) Centroids() [][]float64 {
	out := make([][]float64, len(k.centroids))
	for i, c := range k.centroids {
		out[i] = append([]float64(nil), c...)
	}
	return out
}

// FitKMeans clusters data with k-means++ seeding followed by Lloyd
// iterations. It returns the model and the final assignment of each row.
func FitKMeans(data []SparseVector, dim int, opts KMeansOptions) (*KMeans, []int, error) {
	if opts.NClusters <= 0 {
		return nil, nil, errors.New("kmeans: n_clusters must be positive")
	}
	if len(data) < opts.NClusters {
		return nil, nil, fmt.Errorf("kmeans: %d samples is fewer than %d clusters", len(data), opts.NClusters)
	}
	if dim <= 0 {
		return nil, nil, errors.New("kmeans: dimension must be positive")
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = 300
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	norms := make([]float64, len(data))
	for i, x := range data {
		norms[i] = x.SquaredNorm()
	}

	centroids := seedPlusPlus(data, norms, dim, opts.NClusters, rng)
	labels := make([]int, len(data))
	for i := range labels {
		labels[i] = -1
	}

	converged := false
	for iter := 0; iter < opts.MaxIter; iter++ {
		if !assign(data, norms, centroids, labels) {
			converged = true
			break
		}
		centroids = recompute(data, norms, labels, centroids, dim)
	}
	// Hitting MaxIter leaves labels one recompute behind the centroids.
	if !converged {
		assign(data, norms, centroids, labels)
	}

	model, err := NewKMeans(centroids)
	if err != nil {
		return nil, nil, err
	}
	return model, labels, nil
}

// assign moves every row to its nearest centroid, ties to the lowest id, and
// reports whether any label changed.
func assign(data []SparseVector, norms []float64, centroids [][]float64, labels []int) bool {
	cNorms := make([]float64, len(centroids))
	for i, c := range centroids {
		cNorms[i] = squaredNorm(c)
	}

	changed := false
	for i, x := range data {
		best, bestDist := 0, math.Inf(1)
		for j, c := range centroids {
			if d := distance(x, norms[i], c, cNorms[j]); d < bestDist {
				best, bestDist = j, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

func seedPlusPlus(data []SparseVector, norms []float64, dim, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, densify(data[rng.Intn(len(data))], dim))

	closest := make([]float64, len(data))
	for i := range closest {
		closest[i] = math.Inf(1)
	}
	for len(centroids) < k {
		last := centroids[len(centroids)-1]
		lastNorm := squaredNorm(last)
		var total float64
		for i, x := range data {
			if d := distance(x, norms[i], last, lastNorm); d < closest[i] {
				closest[i] = d
			}
			total += closest[i]
		}

		pick := 0
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range closest {
				if d > 0 {
					pick = i
					if target < d {
						break
					}
				}
				target -= d
			}
		} else {
			pick = rng.Intn(len(data))
		}
		centroids = append(centroids, densify(data[pick], dim))
	}
	return centroids
}

func recompute(data []SparseVector, norms []float64, labels []int, previous [][]float64, dim int) [][]float64 {
	k := len(previous)
	sums := make([][]float64, k)
	counts := make([]int, k)
	for i := range sums {
		sums[i] = make([]float64, dim)
	}
	for i, x := range data {
		c := labels[i]
		counts[c]++
		for n, idx := range x.Indices {
			sums[c][idx] += x.Values[n]
		}
	}

	for c := range sums {
		if counts[c] == 0 {
			continue
		}
		inv := 1 / float64(counts[c])
		for d := range sums[c] {
			sums[c][d] *= inv
		}
	}

	// Reseed empty clusters from the points farthest from their centroid.
	used := make(map[int]bool)
	for c := range sums {
		if counts[c] > 0 {
			continue
		}
		far, farDist := -1, -1.0
		for i, x := range data {
			if used[i] {
				continue
			}
			own := sums[labels[i]]
			if d := distance(x, norms[i], own, squaredNorm(own)); d > farDist {
				far, farDist = i, d
			}
		}
		if far >= 0 {
			used[far] = true
			sums[c] = densify(data[far], dim)
		} else {
			sums[c] = append([]float64(nil), previous[c]...)
		}
	}
	return sums
}

func distance(x SparseVector, xNorm float64, c []float64, cNorm float64) float64 {
	d := xNorm - 2*x.Dot(c) + cNorm
	if d < 0 {
		return 0
	}
	return d
}

func densify(x SparseVector, dim int) []float64 {
	out := make([]float64, dim)
	for n, idx := range x.Indices {
		if idx < dim {
			out[idx] = x.Values[n]
		}
	}
	return out
}

func squaredNorm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return sum
}
