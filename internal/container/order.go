package container

import (
	"fmt"
	"strings"
)

// CycleError indicates that post-processor ordering contains a cycle.
type CycleError struct {
	// Cycle holds the processors left unordered, in registration order.
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("container: post-processor cycle: %s", strings.Join(e.Cycle, " -> "))
}

// graph is a directed graph where an edge from A to B means A runs before B.
type graph struct {
	adjacency map[string][]string
	nodes     []string
	nodeSet   map[string]bool
}

func newGraph() *graph {
	return &graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

func (g *graph) addNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

func (g *graph) addEdge(from, to string) {
	g.addNode(from)
	g.addNode(to)
	g.adjacency[from] = append(g.adjacency[from], to)
}

// sort returns a run order using Kahn's algorithm. Nodes at the same level
// keep insertion order, so the result is deterministic.
func (g *graph) sort() ([]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = 0
	}
	for _, neighbors := range g.adjacency {
		for _, n := range neighbors {
			inDegree[n]++
		}
	}

	queue := make([]string, 0, len(g.nodes))
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, n := range g.adjacency[node] {
			inDegree[n]--
			if inDegree[n] == 0 {
				queue = append(queue, n)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var cycle []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycle = append(cycle, node)
			}
		}
		return nil, &CycleError{Cycle: cycle}
	}

	return result, nil
}
