// Package mutationtree builds the per-file forest of syntactic scopes (spec
// §3/§4.B) and answers the subtree and incompatibility queries the rest of
// the driver depends on.
package mutationtree

import (
	"fmt"

	"github.com/sivchari/dredd/internal/ddlerrors"
	"github.com/sivchari/dredd/internal/mutationinfo"
)

// Tree is the forest together with its derived indices (spec §3), stored as
// flat arrays indexed by a dense pre-order node id (Design Notes item 3):
// this avoids a heap-pointer graph and keeps queries allocation-light.
type Tree struct {
	ownMutations   [][]int
	children       [][]int
	parent         []int // -1 for a root node
	mutationToNode []int

	// subtree[n] is the memoized result of SubtreeMutations(n): own
	// mutations of n plus, recursively, every child's subtree mutations
	// (spec §4.B: "must be memoised or iterative for trees with depth in
	// the hundreds").
	subtree [][]int

	NumNodes     int
	NumMutations int
}

// Build constructs a Tree from a decoded mutation-info document.
//
// Each file's tree is walked with an explicit stack in pre-order (Design
// Notes item 1): a node receives its id when first visited, so a child's id
// is always greater than its parent's.
func Build(doc mutationinfo.Document) (*Tree, error) {
	t := &Tree{}

	maxMutationID := -1
	mutationToNode := make(map[int]int)

	for _, file := range doc.Files {
		if err := t.buildFile(file.Root, mutationToNode, &maxMutationID); err != nil {
			return nil, fmt.Errorf("%w: file %q: %v", ddlerrors.ErrInvalidMutationInfo, file.Filename, err)
		}
	}

	t.NumNodes = len(t.ownMutations)
	t.NumMutations = maxMutationID + 1

	t.mutationToNode = make([]int, t.NumMutations)
	for i := range t.mutationToNode {
		t.mutationToNode[i] = -1
	}

	for id, node := range mutationToNode {
		t.mutationToNode[id] = node
	}

	for id, node := range t.mutationToNode {
		if node == -1 {
			return nil, fmt.Errorf("%w: mutation id %d never appears in any node", ddlerrors.ErrInvalidMutationInfo, id)
		}
	}

	t.computeSubtrees()

	return t, nil
}

type stackItem struct {
	node     mutationinfo.NodeInfo
	parentID int
}

func (t *Tree) buildFile(root mutationinfo.NodeInfo, mutationToNode map[int]int, maxMutationID *int) error {
	stack := []stackItem{{node: root, parentID: -1}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		id := len(t.ownMutations)
		t.ownMutations = append(t.ownMutations, top.node.OwnMutations)
		t.children = append(t.children, nil)
		t.parent = append(t.parent, top.parentID)

		if top.parentID >= 0 {
			t.children[top.parentID] = append(t.children[top.parentID], id)
		}

		for _, mID := range top.node.OwnMutations {
			if mID < 0 {
				return fmt.Errorf("negative mutation id %d", mID)
			}

			if existing, ok := mutationToNode[mID]; ok {
				return fmt.Errorf("mutation id %d appears in both node %d and node %d", mID, existing, id)
			}

			mutationToNode[mID] = id
			if mID > *maxMutationID {
				*maxMutationID = mID
			}
		}

		// Push children in reverse so popping restores left-to-right order.
		for i := len(top.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, stackItem{node: top.node.Children[i], parentID: id})
		}
	}

	return nil
}

// computeSubtrees fills t.subtree for every node in one linear pass.
//
// Because a child's id is always greater than its parent's (pre-order
// construction), processing node ids from highest to lowest guarantees every
// child's subtree is already computed when its parent is reached.
func (t *Tree) computeSubtrees() {
	t.subtree = make([][]int, t.NumNodes)

	for id := t.NumNodes - 1; id >= 0; id-- {
		size := len(t.ownMutations[id])
		for _, child := range t.children[id] {
			size += len(t.subtree[child])
		}

		result := make([]int, 0, size)
		result = append(result, t.ownMutations[id]...)

		for _, child := range t.children[id] {
			result = append(result, t.subtree[child]...)
		}

		t.subtree[id] = result
	}
}

func (t *Tree) validNode(node int) bool {
	return node >= 0 && node < t.NumNodes
}

// SubtreeMutations returns the own mutations of node plus, recursively, the
// subtree mutations of every descendant.
func (t *Tree) SubtreeMutations(node int) ([]int, error) {
	if !t.validNode(node) {
		return nil, fmt.Errorf("%w: node %d", ddlerrors.ErrInvalidMutationID, node)
	}

	result := make([]int, len(t.subtree[node]))
	copy(result, t.subtree[node])

	return result, nil
}

// NodeOf returns the node id owning mutation m, or ErrInvalidMutationID if m
// is out of range [0, NumMutations).
func (t *Tree) NodeOf(m int) (int, error) {
	if m < 0 || m >= t.NumMutations {
		return 0, fmt.Errorf("%w: %d", ddlerrors.ErrInvalidMutationID, m)
	}

	return t.mutationToNode[m], nil
}

// Incompatible returns every mutation id incompatible with m: the subtree of
// m's node, unioned with the own mutations of every proper ancestor of m's
// node (spec §3). The result always includes m itself.
func (t *Tree) Incompatible(m int) ([]int, error) {
	node, err := t.NodeOf(m)
	if err != nil {
		return nil, err
	}

	result, _ := t.SubtreeMutations(node)

	for ancestor := t.parent[node]; ancestor != -1; ancestor = t.parent[ancestor] {
		result = append(result, t.ownMutations[ancestor]...)
	}

	return result, nil
}

// Equivalent reports whether two trees are structurally identical: same
// NumNodes, NumMutations, parent_map and mutation_id_to_node_id (spec §6's
// start-up assertion between the main and coverage-tracking documents).
func Equivalent(a, b *Tree) bool {
	if a.NumNodes != b.NumNodes || a.NumMutations != b.NumMutations {
		return false
	}

	for i := range a.parent {
		if a.parent[i] != b.parent[i] {
			return false
		}
	}

	for i := range a.mutationToNode {
		if a.mutationToNode[i] != b.mutationToNode[i] {
			return false
		}
	}

	return true
}
