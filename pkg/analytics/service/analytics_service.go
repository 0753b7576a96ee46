package service

import (
	"sort"

	"github.com/weftlabs/weft/pkg/analytics/model"
	sessionModel "github.com/weftlabs/weft/pkg/sessionize/model"
	treeModel "github.com/weftlabs/weft/pkg/tree/model"
)

// AnalyticsService runs the per-session operators over a reconstructed tree.
// Every operator is a pure function of the tree; none mutates it, so the same
// tree can be fanned out to all of them.
type AnalyticsService struct{}

func NewAnalyticsService() *AnalyticsService {
	return &AnalyticsService{}
}

func (as *AnalyticsService) Analyze(
	session sessionModel.ClosedSession,
	tree *treeModel.TraceTree,
) model.SessionAnalytics {
	return model.SessionAnalytics{
		SessionID:           session.SessionID,
		EmissionID:          session.EmissionID,
		Complete:            session.Complete,
		SpanCount:           SpanCount(tree),
		RootCount:           RootCount(tree),
		Duration:            Duration(tree),
		Depth:               Depth(tree),
		TreeShape:           TreeShape(tree),
		ServiceDependencies: ServiceDependencies(tree),
	}
}

// SpanCount is the total number of nodes in the forest.
func SpanCount(tree *treeModel.TraceTree) int {
	return tree.SpanCount()
}

// RootCount is the number of nodes without a parent.
func RootCount(tree *treeModel.TraceTree) int {
	return len(tree.Roots)
}

// Duration is the interval between the session's earliest and latest message,
// including messages that are not tree nodes.
func Duration(tree *treeModel.TraceTree) int64 {
	return tree.LatestTimestamp - tree.EarliestTimestamp
}

// Depth is the number of nodes on the longest root-to-leaf path.
func Depth(tree *treeModel.TraceTree) int {
	var descend func(node *treeModel.TraceNode) int
	descend = func(node *treeModel.TraceNode) int {
		deepest := 0
		for _, child := range node.Children {
			if d := descend(child); d > deepest {
				deepest = d
			}
		}
		return deepest + 1
	}
	depth := 0
	for _, root := range tree.Roots {
		if d := descend(root); d > depth {
			depth = d
		}
	}
	return depth
}

// TreeShape is the forest's degree sequence: for each node visited in
// breadth-first order, its number of children. Two sessions with the same
// shape produce the same sequence, which makes it usable as a canonical
// signature for shape frequency counts.
func TreeShape(tree *treeModel.TraceTree) []int {
	shape := make([]int, 0, tree.SpanCount())
	queue := make([]*treeModel.TraceNode, 0, len(tree.Roots))
	queue = append(queue, tree.Roots...)
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		shape = append(shape, len(node.Children))
		queue = append(queue, node.Children...)
	}
	return shape
}

// ServiceDependencies extracts the deduplicated set of (parent service, child
// service) pairs over all parent/child links, sorted for determinism.
func ServiceDependencies(tree *treeModel.TraceTree) []model.ServiceDependency {
	seen := make(map[model.ServiceDependency]struct{})
	tree.Walk(func(node *treeModel.TraceNode) {
		for _, child := range node.Children {
			seen[model.ServiceDependency{Parent: node.Service, Child: child.Service}] = struct{}{}
		}
	})
	dependencies := make([]model.ServiceDependency, 0, len(seen))
	for dependency := range seen {
		dependencies = append(dependencies, dependency)
	}
	sortDependencies(dependencies)
	return dependencies
}

// TransitiveServiceDependencies closes the direct edge set over multiple
// hops: if a calls b and b calls c, the pair (a, c) is included. A pure graph
// operation on the direct edges, external to reconstruction proper.
func TransitiveServiceDependencies(direct []model.ServiceDependency) []model.ServiceDependency {
	children := make(map[string][]string)
	for _, dependency := range direct {
		children[dependency.Parent] = append(children[dependency.Parent], dependency.Child)
	}
	closure := make(map[model.ServiceDependency]struct{})
	for _, dependency := range direct {
		visited := map[string]struct{}{dependency.Parent: {}}
		stack := []string{dependency.Child}
		for len(stack) > 0 {
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if _, ok := visited[current]; ok {
				continue
			}
			visited[current] = struct{}{}
			closure[model.ServiceDependency{Parent: dependency.Parent, Child: current}] = struct{}{}
			stack = append(stack, children[current]...)
		}
	}
	dependencies := make([]model.ServiceDependency, 0, len(closure))
	for dependency := range closure {
		dependencies = append(dependencies, dependency)
	}
	sortDependencies(dependencies)
	return dependencies
}

func sortDependencies(dependencies []model.ServiceDependency) {
	sort.Slice(dependencies, func(i, j int) bool {
		if dependencies[i].Parent != dependencies[j].Parent {
			return dependencies[i].Parent < dependencies[j].Parent
		}
		return dependencies[i].Child < dependencies[j].Child
	})
}
