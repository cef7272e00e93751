package topics

import (
	"context"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// InitMethod selects how k-means seeds its centroids
type InitMethod string

const (
	// InitKMeansPlusPlus samples documents as centroids, spreading them by
	// cosine distance.
	InitKMeansPlusPlus InitMethod = "kmeans++"
	// InitUniform draws each centroid coordinate uniformly from [0, 1).
	InitUniform InitMethod = "uniform"
)

// unassigned marks documents with an all-zero vector
const unassigned = -1

type kmeans struct {
	vectors   [][]float64
	norms     []float64
	k         int
	maxIter   int
	workers   int
	init      InitMethod
	rng       *rand.Rand
	centroids [][]float64
	assign    []int
}

func newKMeans(vectors [][]float64, k int, cfg Config, rng *rand.Rand) *kmeans {
	norms := make([]float64, len(vectors))
	for i, v := range vectors {
		norms[i] = floats.Norm(v, 2)
	}
	assign := make([]int, len(vectors))
	for i := range assign {
		assign[i] = unassigned
	}
	return &kmeans{
		vectors: vectors,
		norms:   norms,
		k:       k,
		maxIter: cfg.MaxIterations,
		workers: cfg.Workers,
		init:    cfg.Init,
		rng:     rng,
		assign:  assign,
	}
}

func cosine(a, b []float64, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	return floats.Dot(a, b) / (normA * normB)
}

// run clusters until no assignment changes or maxIter is reached and
// returns the number of iterations performed.
func (km *kmeans) run(ctx context.Context) (int, error) {
	if km.init == InitUniform {
		km.initUniform()
	} else {
		km.initPlusPlus()
	}

	iter := 0
	for iter < km.maxIter {
		iter++
		changed, err := km.assignAll(ctx)
		if err != nil {
			return iter, err
		}
		if !changed {
			break
		}
		km.updateCentroids()
	}
	return iter, nil
}

func (km *kmeans) dims() int {
	if len(km.vectors) == 0 {
		return 0
	}
	return len(km.vectors[0])
}

func (km *kmeans) initUniform() {
	km.centroids = make([][]float64, km.k)
	for c := range km.centroids {
		centroid := make([]float64, km.dims())
		for t := range centroid {
			centroid[t] = km.rng.Float64()
		}
		km.centroids[c] = centroid
	}
}

// initPlusPlus picks the first centroid uniformly among non-zero documents
// and each following one with probability proportional to the squared
// cosine distance to its nearest chosen centroid.
func (km *kmeans) initPlusPlus() {
	var candidates []int
	for i, n := range km.norms {
		if n > 0 {
			candidates = append(candidates, i)
		}
	}
	km.centroids = make([][]float64, 0, km.k)
	if len(candidates) == 0 {
		km.initUniform()
		return
	}

	chosen := make(map[int]bool, km.k)
	pick := func(doc int) {
		chosen[doc] = true
		km.centroids = append(km.centroids, append([]float64(nil), km.vectors[doc]...))
	}
	pick(candidates[km.rng.Intn(len(candidates))])

	nearest := make([]float64, len(km.vectors))
	for len(km.centroids) < km.k {
		last := km.centroids[len(km.centroids)-1]
		lastNorm := floats.Norm(last, 2)
		total := 0.0
		for _, doc := range candidates {
			d := 1 - cosine(km.vectors[doc], last, km.norms[doc], lastNorm)
			if len(km.centroids) == 1 || d < nearest[doc] {
				nearest[doc] = d
			}
			if !chosen[doc] {
				total += nearest[doc] * nearest[doc]
			}
		}

		if total <= 0 {
			// every remaining document duplicates a centroid
			var rest []int
			for _, doc := range candidates {
				if !chosen[doc] {
					rest = append(rest, doc)
				}
			}
			if len(rest) == 0 {
				pick(candidates[km.rng.Intn(len(candidates))])
				continue
			}
			pick(rest[km.rng.Intn(len(rest))])
			continue
		}

		target := km.rng.Float64() * total
		next := -1
		for _, doc := range candidates {
			if chosen[doc] {
				continue
			}
			target -= nearest[doc] * nearest[doc]
			next = doc
			if target <= 0 {
				break
			}
		}
		pick(next)
	}
}

// assignAll moves every document to its most similar centroid. Documents are
// split into contiguous ranges, one per worker, and each worker writes only
// its own slots.
func (km *kmeans) assignAll(ctx context.Context) (bool, error) {
	centroidNorms := make([]float64, len(km.centroids))
	for c, centroid := range km.centroids {
		centroidNorms[c] = floats.Norm(centroid, 2)
	}

	workers := max(1, min(km.workers, len(km.vectors)))
	chunk := (len(km.vectors) + workers - 1) / workers
	changedBy := make([]bool, workers)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start, end := w*chunk, min((w+1)*chunk, len(km.vectors))
		g.Go(func() error {
			for doc := start; doc < end; doc++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				best := km.nearest(doc, centroidNorms)
				if best != km.assign[doc] {
					km.assign[doc] = best
					changedBy[w] = true
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}

	for _, c := range changedBy {
		if c {
			return true, nil
		}
	}
	return false, nil
}

func (km *kmeans) nearest(doc int, centroidNorms []float64) int {
	if km.norms[doc] == 0 {
		return unassigned
	}
	best, bestSim := 0, math.Inf(-1)
	for c, centroid := range km.centroids {
		sim := cosine(km.vectors[doc], centroid, km.norms[doc], centroidNorms[c])
		if sim > bestSim {
			best, bestSim = c, sim
		}
	}
	return best
}

// updateCentroids recomputes each centroid as the mean of its members once
// every assignment is settled. Empty clusters keep their centroid.
func (km *kmeans) updateCentroids() {
	sums := make([][]float64, len(km.centroids))
	counts := make([]int, len(km.centroids))
	for doc, c := range km.assign {
		if c == unassigned {
			continue
		}
		if sums[c] == nil {
			sums[c] = make([]float64, km.dims())
		}
		floats.Add(sums[c], km.vectors[doc])
		counts[c]++
	}
	for c := range km.centroids {
		if counts[c] == 0 {
			continue
		}
		floats.Scale(1/float64(counts[c]), sums[c])
		km.centroids[c] = sums[c]
	}
}

// members groups document indices by cluster
func (km *kmeans) members() [][]int {
	groups := make([][]int, len(km.centroids))
	for doc, c := range km.assign {
		if c != unassigned {
			groups[c] = append(groups[c], doc)
		}
	}
	return groups
}
