package anomaly

import (
	"errors"
	"math"
	"math/rand"
)

// Forest is an isolation forest. Each tree isolates samples by random
// axis-aligned splits; outliers isolate in fewer splits, so shorter
// average path lengths mean higher anomaly scores.
type Forest struct {
	trees      []*treeNode
	sampleSize int
	seed       int64
}

type treeNode struct {
	splitAttr  int
	splitValue float64
	left       *treeNode
	right      *treeNode
	size       int // leaf only: samples that reached this node
}

// NewForest creates an unfitted forest.
func NewForest(trees, sampleSize int, seed int64) *Forest {
	if trees <= 0 {
		trees = 100
	}
	if sampleSize <= 0 {
		sampleSize = 256
	}
	return &Forest{
		trees:      make([]*treeNode, 0, trees),
		sampleSize: sampleSize,
		seed:       seed,
	}
}

// Fit builds the forest from training data. Each tree is grown on a
// random subsample, with height capped at ceil(log2(sampleSize)).
func (f *Forest) Fit(data [][]float64) error {
	if len(data) == 0 {
		return errors.New("empty training set")
	}

	rng := rand.New(rand.NewSource(f.seed))

	sampleSize := f.sampleSize
	if sampleSize > len(data) {
		sampleSize = len(data)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sampleSize))))
	if maxDepth < 1 {
		maxDepth = 1
	}

	trees := make([]*treeNode, cap(f.trees))
	for i := range trees {
		sample := subsample(data, sampleSize, rng)
		trees[i] = buildTree(sample, 0, maxDepth, rng)
	}

	f.trees = trees
	return nil
}

// Score returns the anomaly score for a sample in [0, 1].
// Computed as 2^(-E[h(x)] / c(sampleSize)) per the isolation forest paper.
func (f *Forest) Score(x []float64) (float64, error) {
	if len(f.trees) == 0 {
		return 0, errors.New("forest not fitted")
	}

	var total float64
	for _, tree := range f.trees {
		total += pathLength(tree, x, 0)
	}
	avg := total / float64(len(f.trees))

	c := avgPathLength(f.sampleSize)
	if c == 0 {
		return 0, errors.New("degenerate sample size")
	}
	return math.Pow(2, -avg/c), nil
}

func subsample(data [][]float64, n int, rng *rand.Rand) [][]float64 {
	if n >= len(data) {
		return data
	}
	perm := rng.Perm(len(data))
	sample := make([][]float64, n)
	for i := 0; i < n; i++ {
		sample[i] = data[perm[i]]
	}
	return sample
}

func buildTree(data [][]float64, depth, maxDepth int, rng *rand.Rand) *treeNode {
	if depth >= maxDepth || len(data) <= 1 {
		return &treeNode{size: len(data)}
	}

	// Collect attributes that still have spread
	width := len(data[0])
	var splittable []int
	for attr := 0; attr < width; attr++ {
		lo, hi := attrRange(data, attr)
		if hi > lo {
			splittable = append(splittable, attr)
		}
	}
	if len(splittable) == 0 {
		return &treeNode{size: len(data)}
	}

	attr := splittable[rng.Intn(len(splittable))]
	lo, hi := attrRange(data, attr)
	split := lo + rng.Float64()*(hi-lo)

	var left, right [][]float64
	for _, row := range data {
		if row[attr] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	return &treeNode{
		splitAttr:  attr,
		splitValue: split,
		left:       buildTree(left, depth+1, maxDepth, rng),
		right:      buildTree(right, depth+1, maxDepth, rng),
	}
}

func attrRange(data [][]float64, attr int) (lo, hi float64) {
	lo, hi = data[0][attr], data[0][attr]
	for _, row := range data[1:] {
		v := row[attr]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func pathLength(node *treeNode, x []float64, depth int) float64 {
	if node.left == nil && node.right == nil {
		return float64(depth) + avgPathLength(node.size)
	}
	if x[node.splitAttr] < node.splitValue {
		return pathLength(node.left, x, depth+1)
	}
	return pathLength(node.right, x, depth+1)
}

// avgPathLength is c(n), the expected path length of an unsuccessful
// BST search over n samples.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	h := math.Log(float64(n-1)) + 0.5772156649015329
	return 2*h - 2*float64(n-1)/float64(n)
}
