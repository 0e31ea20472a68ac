package models

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

type TreeNode struct {
	IsLeaf           bool
	Feature          int
	Threshold        float64
	Left             *TreeNode
	Right            *TreeNode
	Samples          int
	Positives        int
	Impurity         float64
	ImpurityDecrease float64
}

// Probability is the share of positive samples that reached the node.
func (n *TreeNode) Probability() float64 {
	if n.Samples == 0 {
		return 0
	}
	return float64(n.Positives) / float64(n.Samples)
}

// DecisionTree is a CART classifier using gini impurity. Rows with a value
// at or below a node's threshold go left. Zero for MaxDepth, MaxFeatures or
// MaxLeafNodes means no limit; with MaxLeafNodes set the tree grows best
// split first.
type DecisionTree struct {
	BaseModel
	Root            *TreeNode
	MaxDepth        int
	MaxFeatures     int
	MaxLeafNodes    int
	MinSamplesSplit int
	Seed            int64

	nFeatures int
	leaves    int
}

func NewDecisionTree(maxDepth, maxFeatures, maxLeafNodes int, seed int64) *DecisionTree {
	return &DecisionTree{
		MaxDepth:        maxDepth,
		MaxFeatures:     maxFeatures,
		MaxLeafNodes:    maxLeafNodes,
		MinSamplesSplit: 2,
		Seed:            seed,
		BaseModel: BaseModel{
			Name: "DecisionTree",
			Params: Params{
				"max_depth":      maxDepth,
				"max_features":   maxFeatures,
				"max_leaf_nodes": maxLeafNodes,
			},
		},
	}
}

func (dt *DecisionTree) Clone() Model {
	clone := NewDecisionTree(dt.MaxDepth, dt.MaxFeatures, dt.MaxLeafNodes, dt.Seed)
	clone.MinSamplesSplit = dt.MinSamplesSplit
	return clone
}

func (dt *DecisionTree) validateParams(nFeatures int) error {
	switch {
	case dt.MaxDepth < 0:
		return fmt.Errorf("max_depth must be positive, got %d", dt.MaxDepth)
	case dt.MaxFeatures < 0:
		return fmt.Errorf("max_features must be positive, got %d", dt.MaxFeatures)
	case dt.MaxFeatures > nFeatures:
		return fmt.Errorf("max_features %d exceeds the %d available features", dt.MaxFeatures, nFeatures)
	case dt.MaxLeafNodes < 0 || dt.MaxLeafNodes == 1:
		return fmt.Errorf("max_leaf_nodes must be at least 2, got %d", dt.MaxLeafNodes)
	}
	return nil
}

func (dt *DecisionTree) Fit(X mat.Matrix, y []int) error {
	if err := validateTraining(X, y); err != nil {
		return err
	}
	_, nFeatures := X.Dims()
	if err := dt.validateParams(nFeatures); err != nil {
		return err
	}

	indices := make([]int, len(y))
	for i := range indices {
		indices[i] = i
	}
	dt.fitIndices(columns(X), y, indices, rand.New(rand.NewSource(dt.Seed)))
	return nil
}

// fitIndices grows the tree on the rows in indices, which may repeat.
func (dt *DecisionTree) fitIndices(cols [][]float64, y []int, indices []int, rng *rand.Rand) {
	dt.Classes = []int{0, 1}
	dt.nFeatures = len(cols)
	b := &treeBuilder{tree: dt, cols: cols, y: y, rng: rng}

	dt.Root = b.newNode(indices)
	dt.leaves = 1
	if dt.MaxLeafNodes > 0 {
		b.growBestFirst(indices)
		return
	}
	b.growDepthFirst(dt.Root, indices, 0)
}

func (dt *DecisionTree) PredictProba(X mat.Matrix) ([]float64, error) {
	if dt.Root == nil {
		return nil, ErrNotFitted
	}
	if err := checkWidth(X, dt.nFeatures); err != nil {
		return nil, err
	}

	r, _ := X.Dims()
	proba := make([]float64, r)
	for i := range proba {
		proba[i] = dt.leafFor(X, i).Probability()
	}
	return proba, nil
}

func (dt *DecisionTree) Predict(X mat.Matrix) ([]int, error) {
	proba, err := dt.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return threshold(proba), nil
}

func (dt *DecisionTree) leafFor(X mat.Matrix, row int) *TreeNode {
	node := dt.Root
	for !node.IsLeaf {
		if X.At(row, node.Feature) <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

// Leaves returns the number of leaves of the fitted tree.
func (dt *DecisionTree) Leaves() int { return dt.leaves }

// Depth returns the depth of the fitted tree; a single leaf has depth 0.
func (dt *DecisionTree) Depth() int { return nodeDepth(dt.Root) }

func nodeDepth(n *TreeNode) int {
	if n == nil || n.IsLeaf {
		return 0
	}
	return 1 + max(nodeDepth(n.Left), nodeDepth(n.Right))
}

// Describe renders the fitted tree as indented text. featureNames may be nil.
func (dt *DecisionTree) Describe(featureNames []string) string {
	if dt.Root == nil {
		return "(not fitted)\n"
	}
	var sb strings.Builder
	describeNode(&sb, dt.Root, featureNames, 0)
	return sb.String()
}

func describeNode(sb *strings.Builder, n *TreeNode, names []string, depth int) {
	indent := strings.Repeat("|   ", depth)
	stats := fmt.Sprintf("gini=%.3f, samples=%d, p=%.3f", n.Impurity, n.Samples, n.Probability())
	if n.IsLeaf {
		fmt.Fprintf(sb, "%sleaf: %s\n", indent, stats)
		return
	}

	name := fmt.Sprintf("x[%d]", n.Feature)
	if n.Feature < len(names) {
		name = names[n.Feature]
	}
	fmt.Fprintf(sb, "%s%s <= %.3f (%s)\n", indent, name, n.Threshold, stats)
	describeNode(sb, n.Left, names, depth+1)
	fmt.Fprintf(sb, "%s%s > %.3f\n", indent, name, n.Threshold)
	describeNode(sb, n.Right, names, depth+1)
}

type treeBuilder struct {
	tree *DecisionTree
	cols [][]float64
	y    []int
	rng  *rand.Rand
}

type split struct {
	feature     int
	threshold   float64
	decrease    float64
	left, right []int
}

func (b *treeBuilder) newNode(indices []int) *TreeNode {
	positives := 0
	for _, idx := range indices {
		positives += b.y[idx]
	}
	return &TreeNode{
		IsLeaf:    true,
		Samples:   len(indices),
		Positives: positives,
		Impurity:  gini(positives, len(indices)),
	}
}

func (b *treeBuilder) splittable(node *TreeNode, depth int) bool {
	if b.tree.MaxDepth > 0 && depth >= b.tree.MaxDepth {
		return false
	}
	return node.Samples >= b.tree.MinSamplesSplit && node.Impurity > 0
}

func (b *treeBuilder) apply(node *TreeNode, s *split) (*TreeNode, *TreeNode) {
	node.IsLeaf = false
	node.Feature = s.feature
	node.Threshold = s.threshold
	node.ImpurityDecrease = s.decrease
	node.Left = b.newNode(s.left)
	node.Right = b.newNode(s.right)
	b.tree.leaves++
	return node.Left, node.Right
}

func (b *treeBuilder) growDepthFirst(node *TreeNode, indices []int, depth int) {
	if !b.splittable(node, depth) {
		return
	}
	s := b.findBestSplit(node, indices)
	if s == nil {
		return
	}
	left, right := b.apply(node, s)
	b.growDepthFirst(left, s.left, depth+1)
	b.growDepthFirst(right, s.right, depth+1)
}

type frontierNode struct {
	node  *TreeNode
	depth int
	split *split
}

// growBestFirst repeatedly expands the leaf whose split removes the most
// weighted impurity until MaxLeafNodes is reached or nothing can split.
func (b *treeBuilder) growBestFirst(indices []int) {
	frontier := []frontierNode{b.candidate(b.tree.Root, indices, 0)}

	for b.tree.leaves < b.tree.MaxLeafNodes {
		best := -1
		for i, f := range frontier {
			if f.split == nil {
				continue
			}
			if best < 0 || weighted(f) > weighted(frontier[best]) {
				best = i
			}
		}
		if best < 0 {
			return
		}

		f := frontier[best]
		frontier = append(frontier[:best], frontier[best+1:]...)
		left, right := b.apply(f.node, f.split)
		frontier = append(frontier,
			b.candidate(left, f.split.left, f.depth+1),
			b.candidate(right, f.split.right, f.depth+1),
		)
	}
}

func (b *treeBuilder) candidate(node *TreeNode, indices []int, depth int) frontierNode {
	f := frontierNode{node: node, depth: depth}
	if b.splittable(node, depth) {
		f.split = b.findBestSplit(node, indices)
	}
	return f
}

func weighted(f frontierNode) float64 {
	return f.split.decrease * float64(f.node.Samples)
}

// candidateFeatures draws MaxFeatures distinct features without replacement,
// or returns every feature when there is no limit.
func (b *treeBuilder) candidateFeatures() []int {
	n := len(b.cols)
	features := make([]int, n)
	for i := range features {
		features[i] = i
	}
	k := b.tree.MaxFeatures
	if k <= 0 || k >= n {
		return features
	}
	for i := 0; i < k; i++ {
		j := i + b.rng.Intn(n-i)
		features[i], features[j] = features[j], features[i]
	}
	return features[:k]
}

// findBestSplit sweeps each candidate feature in sorted order, trying the
// midpoint between every pair of distinct neighbouring values. The first
// best split found wins ties. Returns nil when no split lowers impurity.
func (b *treeBuilder) findBestSplit(node *TreeNode, indices []int) *split {
	n := len(indices)
	var best *split
	sorted := make([]int, n)

	for _, feature := range b.candidateFeatures() {
		col := b.cols[feature]
		copy(sorted, indices)
		sort.SliceStable(sorted, func(i, j int) bool { return col[sorted[i]] < col[sorted[j]] })

		leftPos := 0
		for i := 0; i < n-1; i++ {
			leftPos += b.y[sorted[i]]
			v, next := col[sorted[i]], col[sorted[i+1]]
			if v == next {
				continue
			}

			nl, nr := i+1, n-i-1
			child := (float64(nl)*gini(leftPos, nl) + float64(nr)*gini(node.Positives-leftPos, nr)) / float64(n)
			decrease := node.Impurity - child
			if decrease <= 1e-12 || (best != nil && decrease <= best.decrease) {
				continue
			}

			t := v + (next-v)/2
			if t >= next {
				t = v
			}
			best = &split{feature: feature, threshold: t, decrease: decrease}
		}
	}

	if best == nil {
		return nil
	}
	col := b.cols[best.feature]
	for _, idx := range indices {
		if col[idx] <= best.threshold {
			best.left = append(best.left, idx)
		} else {
			best.right = append(best.right, idx)
		}
	}
	return best
}

func gini(positives, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(positives) / float64(n)
	return 1 - p*p - (1-p)*(1-p)
}
