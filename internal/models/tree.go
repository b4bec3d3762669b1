package models

import (
	"sort"
)

// TreeNode is one node of a fitted regression tree. Fields are exported
// for gob and JSON serialization of trained models.
type TreeNode struct {
	FeatureIndex int       `json:"feature_index"`
	Threshold    float64   `json:"threshold"`
	Left         *TreeNode `json:"left,omitempty"`
	Right        *TreeNode `json:"right,omitempty"`
	Value        float64   `json:"value"`
	IsLeaf       bool      `json:"is_leaf"`
	Samples      int       `json:"samples"`
}

// predictNode walks the tree for one sample.
func predictNode(n *TreeNode, x []float64) float64 {
	for !n.IsLeaf {
		if x[n.FeatureIndex] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// treeParams controls a single tree fit.
type treeParams struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxLeaves       int   // 0 means unlimited
	l2              float64
	features        []int // candidate feature indices for splits
}

// treeBuilder grows one variance-reducing regression tree over an index
// subset of the training matrix. Splits minimize the summed squared error
// of the two children; leaf values are the (optionally L2-shrunk) mean of
// their targets. Importance accumulates the squared-error decrease per
// feature, indexed by original column.
type treeBuilder struct {
	X          [][]float64
	y          []float64
	params     treeParams
	leaves     int
	importance []float64
}

func newTreeBuilder(X [][]float64, y []float64, params treeParams, width int) *treeBuilder {
	return &treeBuilder{
		X:      X,
		y:      y,
		params: params,
		// The unsplit root already counts as one leaf; every split adds
		// exactly one more, so the counter tracks the final leaf count.
		leaves:     1,
		importance: make([]float64, width),
	}
}

func (b *treeBuilder) build(indices []int, depth int) *TreeNode {
	if len(indices) < b.params.minSamplesSplit || depth >= b.params.maxDepth {
		return b.leaf(indices)
	}
	if b.params.maxLeaves > 0 && b.leaves >= b.params.maxLeaves {
		return b.leaf(indices)
	}

	split, ok := b.bestSplit(indices)
	if !ok {
		return b.leaf(indices)
	}

	b.leaves++
	b.importance[split.feature] += split.gain

	node := &TreeNode{
		FeatureIndex: split.feature,
		Threshold:    split.threshold,
		Samples:      len(indices),
	}
	node.Left = b.build(split.left, depth+1)
	node.Right = b.build(split.right, depth+1)
	return node
}

func (b *treeBuilder) leaf(indices []int) *TreeNode {
	var sum float64
	for _, i := range indices {
		sum += b.y[i]
	}
	// L2 leaf regularization shrinks small leaves toward zero.
	value := sum / (float64(len(indices)) + b.params.l2)
	return &TreeNode{
		IsLeaf:  true,
		Value:   value,
		Samples: len(indices),
	}
}

type splitResult struct {
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
}

// bestSplit scans every candidate feature with a sorted sweep and running
// sums, picking the threshold that minimizes the children's summed squared
// error. Returns false when no split improves on the parent.
func (b *treeBuilder) bestSplit(indices []int) (splitResult, bool) {
	n := len(indices)
	var sum, sumSq float64
	for _, i := range indices {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	parentSSE := sumSq - sum*sum/float64(n)

	best := splitResult{gain: 0}
	found := false

	order := make([]int, n)
	for _, f := range b.params.features {
		copy(order, indices)
		sort.Slice(order, func(a, c int) bool {
			return b.X[order[a]][f] < b.X[order[c]][f]
		})

		var leftSum, leftSq float64
		for k := 1; k < n; k++ {
			i := order[k-1]
			leftSum += b.y[i]
			leftSq += b.y[i] * b.y[i]

			prev := b.X[order[k-1]][f]
			cur := b.X[order[k]][f]
			if prev == cur {
				continue
			}
			if k < b.params.minSamplesLeaf || n-k < b.params.minSamplesLeaf {
				continue
			}

			rightSum := sum - leftSum
			rightSq := sumSq - leftSq
			leftSSE := leftSq - leftSum*leftSum/float64(k)
			rightSSE := rightSq - rightSum*rightSum/float64(n-k)
			gain := parentSSE - leftSSE - rightSSE

			if gain > best.gain {
				left := make([]int, k)
				right := make([]int, n-k)
				copy(left, order[:k])
				copy(right, order[k:])
				best = splitResult{
					feature:   f,
					threshold: (prev + cur) / 2,
					gain:      gain,
					left:      left,
					right:     right,
				}
				found = true
			}
		}
	}

	return best, found
}
