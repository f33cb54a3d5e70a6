// Package graph orders tables by their foreign key dependencies.
package graph

// Node is anything that lives in a table and references other tables.
type Node interface {
	Table() string
	DependsOn() []string
}

// DepGraph indexes a batch of nodes by table. Dependencies on tables
// outside the batch are ignored; those tables are assumed to exist.
type DepGraph[N Node] struct {
	nodes   []N
	byTable map[string]int
}

// New builds a dependency graph over nodes, keeping their input order.
// If two nodes share a table the later one wins the table lookup.
func New[N Node](nodes []N) *DepGraph[N] {
	g := &DepGraph[N]{
		nodes:   nodes,
		byTable: make(map[string]int, len(nodes)),
	}
	for i, n := range nodes {
		g.byTable[n.Table()] = i
	}
	return g
}

// Sort returns nodes so that each one follows the in-batch nodes it
// depends on. Nodes are visited depth-first in input order and emitted in
// post-order; ties keep discovery order. Cycles are broken silently by the
// visited set, so every node is emitted exactly once.
func Sort[N Node](nodes []N) []N {
	return New(nodes).Sort()
}

// Sort is the method form of the package-level Sort.
func (g *DepGraph[N]) Sort() []N {
	sorted := make([]N, 0, len(g.nodes))
	visited := make(map[string]bool, len(g.nodes))

	var visit func(n N)
	visit = func(n N) {
		table := n.Table()
		if visited[table] {
			return
		}
		visited[table] = true

		for _, dep := range n.DependsOn() {
			if i, ok := g.byTable[dep]; ok {
				visit(g.nodes[i])
			}
		}

		sorted = append(sorted, n)
	}

	for _, n := range g.nodes {
		visit(n)
	}
	return sorted
}

// DetectCycles finds cycles among in-batch dependencies using DFS.
// Returns each cycle as a list of table names forming the cycle.
// Self-references are skipped.
func (g *DepGraph[N]) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	inStack := make(map[string]bool)

	adj := make(map[string][]string)
	for _, n := range g.nodes {
		for _, dep := range n.DependsOn() {
			if dep == n.Table() {
				continue
			}
			if _, ok := g.byTable[dep]; !ok {
				continue
			}
			adj[n.Table()] = append(adj[n.Table()], dep)
		}
	}

	var path []string
	var dfs func(node string)
	dfs = func(node string) {
		visited[node] = true
		inStack[node] = true
		path = append(path, node)

		for _, neighbor := range adj[node] {
			if !visited[neighbor] {
				dfs(neighbor)
			} else if inStack[neighbor] {
				start := -1
				for i, n := range path {
					if n == neighbor {
						start = i
						break
					}
				}
				if start >= 0 {
					cycle := make([]string, len(path)-start)
					copy(cycle, path[start:])
					cycles = append(cycles, cycle)
				}
			}
		}

		path = path[:len(path)-1]
		inStack[node] = false
	}

	// input order keeps the result deterministic
	for _, n := range g.nodes {
		if !visited[n.Table()] {
			dfs(n.Table())
		}
	}

	return cycles
}
