// Package forest implements a binary random-forest classifier: bootstrapped
// CART trees split on Gini impurity, with probabilities averaged across trees.
package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

type Options struct {
	Trees          int
	MaxDepth       int
	MinSamplesLeaf int
	// MaxFeatures is the number of features considered per split. Zero means
	// sqrt of the feature count.
	MaxFeatures int
	// Balanced weights each class inversely to its frequency.
	Balanced bool
	Seed     int64
}

func DefaultOptions() Options {
	return Options{
		Trees:          300,
		MaxDepth:       12,
		MinSamplesLeaf: 1,
		Balanced:       true,
		Seed:           42,
	}
}

const leaf = -1

// Node is one flattened tree node. Leaves have Feature == -1 and carry the
// weighted positive-class fraction in Value. Samples with x[Feature] <=
// Threshold go Left.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Value     float64 `json:"value"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

type Forest struct {
	Features int    `json:"n_features"`
	Trees    []Tree `json:"trees"`
}

var ErrEmptyForest = errors.New("forest has no trees")

func Train(samples [][]float64, labels []float64, opts Options) (*Forest, error) {
	if len(samples) == 0 {
		return nil, errors.New("no training samples")
	}
	if len(samples) != len(labels) {
		return nil, fmt.Errorf("got %d samples but %d labels", len(samples), len(labels))
	}
	features := len(samples[0])
	for i, s := range samples {
		if len(s) != features {
			return nil, fmt.Errorf("sample %d has %d features, expected %d", i, len(s), features)
		}
	}

	defaults := DefaultOptions()
	if opts.Trees <= 0 {
		opts.Trees = defaults.Trees
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = defaults.MaxDepth
	}
	if opts.MinSamplesLeaf <= 0 {
		opts.MinSamplesLeaf = 1
	}
	if opts.MaxFeatures <= 0 || opts.MaxFeatures > features {
		opts.MaxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(features)))))
	}

	weights := sampleWeights(labels, opts.Balanced)
	rng := rand.New(rand.NewSource(opts.Seed))
	forest := &Forest{Features: features, Trees: make([]Tree, 0, opts.Trees)}

	n := len(samples)
	for t := 0; t < opts.Trees; t++ {
		bootstrap := make([]int, n)
		for i := range bootstrap {
			bootstrap[i] = rng.Intn(n)
		}
		b := &builder{x: samples, y: labels, w: weights, opts: opts, rng: rng}
		b.build(bootstrap, 0)
		forest.Trees = append(forest.Trees, Tree{Nodes: b.nodes})
	}
	return forest, nil
}

// PredictProba returns the mean positive-class probability across all trees.
func (f *Forest) PredictProba(sample []float64) (float64, error) {
	if f == nil || len(f.Trees) == 0 {
		return 0, ErrEmptyForest
	}
	if len(sample) != f.Features {
		return 0, fmt.Errorf("expected %d features, got %d", f.Features, len(sample))
	}
	var sum float64
	for i := range f.Trees {
		p, err := f.Trees[i].predict(sample)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		sum += p
	}
	return sum / float64(len(f.Trees)), nil
}

func (t Tree) predict(sample []float64) (float64, error) {
	if len(t.Nodes) == 0 {
		return 0, errors.New("empty tree")
	}
	idx := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		node := t.Nodes[idx]
		if node.Feature == leaf {
			return node.Value, nil
		}
		if node.Feature < 0 || node.Feature >= len(sample) {
			return 0, fmt.Errorf("node %d references feature %d", idx, node.Feature)
		}
		if sample[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
		if idx <= 0 || idx >= len(t.Nodes) {
			return 0, fmt.Errorf("invalid child index %d", idx)
		}
	}
	return 0, errors.New("tree contains a cycle")
}

func sampleWeights(labels []float64, balanced bool) []float64 {
	weights := make([]float64, len(labels))
	classWeight := [2]float64{1, 1}
	if balanced {
		var counts [2]float64
		for _, y := range labels {
			counts[class(y)]++
		}
		for c := range counts {
			if counts[c] > 0 {
				classWeight[c] = float64(len(labels)) / (2 * counts[c])
			}
		}
	}
	for i, y := range labels {
		weights[i] = classWeight[class(y)]
	}
	return weights
}

func class(y float64) int {
	if y >= 0.5 {
		return 1
	}
	return 0
}

type builder struct {
	x     [][]float64
	y     []float64
	w     []float64
	opts  Options
	rng   *rand.Rand
	nodes []Node
}

func (b *builder) build(idx []int, depth int) int {
	pos, total := b.totals(idx)
	node := len(b.nodes)
	value := 0.0
	if total > 0 {
		value = pos / total
	}
	b.nodes = append(b.nodes, Node{Feature: leaf, Value: value})

	if depth >= b.opts.MaxDepth || len(idx) < 2*b.opts.MinSamplesLeaf || pos == 0 || pos == total {
		return node
	}
	feature, threshold, ok := b.bestSplit(idx, pos, total)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[node] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r, Value: value}
	return node
}

func (b *builder) totals(idx []int) (pos, total float64) {
	for _, i := range idx {
		total += b.w[i]
		if class(b.y[i]) == 1 {
			pos += b.w[i]
		}
	}
	return pos, total
}

func (b *builder) bestSplit(idx []int, pos, total float64) (int, float64, bool) {
	bestScore := total * gini(pos, total)
	bestFeature, bestThreshold, found := 0, 0.0, false

	// Features constant within the node do not count towards MaxFeatures, so
	// a node only becomes a leaf when no informative feature is left.
	sorted := make([]int, len(idx))
	visited := 0
	for _, f := range b.rng.Perm(len(b.x[0])) {
		if visited >= b.opts.MaxFeatures {
			break
		}
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.x[sorted[a]][f] < b.x[sorted[c]][f] })
		if b.x[sorted[0]][f] == b.x[sorted[len(sorted)-1]][f] {
			continue
		}
		visited++

		var leftPos, leftTotal float64
		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			leftTotal += b.w[i]
			if class(b.y[i]) == 1 {
				leftPos += b.w[i]
			}
			current, next := b.x[i][f], b.x[sorted[k+1]][f]
			if current == next {
				continue
			}
			if k+1 < b.opts.MinSamplesLeaf || len(sorted)-k-1 < b.opts.MinSamplesLeaf {
				continue
			}
			rightPos, rightTotal := pos-leftPos, total-leftTotal
			score := leftTotal*gini(leftPos, leftTotal) + rightTotal*gini(rightPos, rightTotal)
			if score < bestScore-1e-12 {
				bestScore = score
				bestFeature = f
				bestThreshold = current + (next-current)/2
				if bestThreshold >= next {
					bestThreshold = current
				}
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func gini(pos, total float64) float64 {
	if total <= 0 {
		return 0
	}
	p := pos / total
	return 1 - p*p - (1-p)*(1-p)
}
