// Package graph implements the bounded-path query primitive over a team's
// decision graph. The store keeps nodes and edges relationally; this package
// loads them into an adjacency view and runs an explicit hop-limited search,
// so any backend that can list nodes and edges is substitutable.
package graph

import (
	"sort"

	"github.com/orgsignal/decision-cli/internal/model"
)

// Node is a decision node as the traversal sees it: identity plus the
// properties the engines read. Extra properties from ingestion are dropped,
// not round-tripped.
type Node struct {
	ID        string
	TeamID    string
	Sentiment model.Sentiment
}

// Graph is an in-memory adjacency view of one team's decision graph.
// Traversal is direction-agnostic: every edge is entered both ways.
type Graph struct {
	nodes map[string]Node
	adj   map[string][]string
}

// New builds a Graph from nodes and edges. Edges referencing unknown
// nodes are ignored rather than erroring; ingestion owns referential
// integrity, the traversal just skips what it cannot see.
func New(nodes []Node, edges []model.GraphEdge) *Graph {
	g := &Graph{
		nodes: make(map[string]Node, len(nodes)),
		adj:   make(map[string][]string),
	}
	for _, n := range nodes {
		g.nodes[n.ID] = n
	}
	seen := make(map[[2]string]bool, len(edges))
	for _, e := range edges {
		if _, ok := g.nodes[e.From]; !ok {
			continue
		}
		if _, ok := g.nodes[e.To]; !ok {
			continue
		}
		if e.From == e.To {
			continue
		}
		// Undirected adjacency, deduplicated per direction so parallel
		// typed edges do not multiply paths.
		for _, pair := range [][2]string{{e.From, e.To}, {e.To, e.From}} {
			if seen[pair] {
				continue
			}
			seen[pair] = true
			g.adj[pair[0]] = append(g.adj[pair[0]], pair[1])
		}
	}
	// Sorted neighbor lists keep enumeration order stable for one store.
	for id := range g.adj {
		sort.Strings(g.adj[id])
	}
	return g
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// NodesWithSentiment returns the ids of nodes carrying the given
// sentiment, sorted for deterministic traversal order.
func (g *Graph) NodesWithSentiment(s model.Sentiment) []string {
	var ids []string
	for id, n := range g.nodes {
		if n.Sentiment == s {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// BoundedPaths enumerates simple paths of minHops..maxHops edges connecting
// two distinct nodes that both carry sentiment s, capped at limit paths.
// A path and its reverse are the same contradiction, so each path is
// canonicalized (lexicographically smaller endpoint first) and deduplicated.
func (g *Graph) BoundedPaths(s model.Sentiment, minHops, maxHops, limit int) [][]string {
	if minHops < 1 {
		minHops = 1
	}
	if maxHops < minHops || limit <= 0 {
		return nil
	}

	marked := make(map[string]bool)
	for _, id := range g.NodesWithSentiment(s) {
		marked[id] = true
	}
	if len(marked) < 2 {
		return nil
	}

	var (
		out    [][]string
		dedup  = make(map[string]bool)
		path   = make([]string, 0, maxHops+1)
		onPath = make(map[string]bool)
	)

	var walk func(cur string)
	walk = func(cur string) {
		if len(out) >= limit {
			return
		}
		hops := len(path) // edges taken so far; path holds nodes before cur
		if hops >= minHops && marked[cur] {
			found := append(append([]string{}, path...), cur)
			key := canonicalKey(found)
			if !dedup[key] {
				dedup[key] = true
				out = append(out, canonicalize(found))
			}
			// A marked node still extends: two REDs can sit mid-chain.
		}
		if hops == maxHops {
			return
		}
		path = append(path, cur)
		onPath[cur] = true
		for _, next := range g.adj[cur] {
			if onPath[next] {
				continue
			}
			walk(next)
			if len(out) >= limit {
				break
			}
		}
		path = path[:len(path)-1]
		delete(onPath, cur)
	}

	for _, start := range g.NodesWithSentiment(s) {
		if len(out) >= limit {
			break
		}
		path = path[:0]
		for k := range onPath {
			delete(onPath, k)
		}
		// Suppress the degenerate zero-hop "path" at the start node by
		// marking it on-path before descending.
		onPath[start] = true
		path = append(path, start)
		for _, next := range g.adj[start] {
			walk(next)
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

// canonicalize orients a path so its smaller endpoint comes first.
func canonicalize(p []string) []string {
	if len(p) > 1 && p[len(p)-1] < p[0] {
		rev := make([]string, len(p))
		for i, id := range p {
			rev[len(p)-1-i] = id
		}
		return rev
	}
	return p
}

func canonicalKey(p []string) string {
	c := canonicalize(p)
	key := c[0]
	for _, id := range c[1:] {
		key += "\x1f" + id
	}
	return key
}
