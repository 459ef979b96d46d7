// Package mutationinfo decodes the mutation-description document (spec §6)
// into a flat, serialization-independent tree description (spec §4.A).
package mutationinfo

import (
	"encoding/json"
	"fmt"

	"github.com/sivchari/dredd/internal/ddlerrors"
)

// replaceInstance is one instance of a replace-style mutation group.
type replaceInstance struct {
	MutationID int `json:"mutation_id"`
}

// replaceGroup is the shape shared by replace-expression, replace-binary-operator
// and replace-unary-operator groups.
type replaceGroup struct {
	Instances []replaceInstance `json:"instances"`
}

// removeGroup is the shape of a remove-statement group.
type removeGroup struct {
	MutationID int `json:"mutation_id"`
}

// rawMutationGroup is a single-keyed object; the key names one of the four
// known kinds.
type rawMutationGroup struct {
	ReplaceExpression     *replaceGroup `json:"replace-expression,omitempty"`
	ReplaceBinaryOperator *replaceGroup `json:"replace-binary-operator,omitempty"`
	ReplaceUnaryOperator  *replaceGroup `json:"replace-unary-operator,omitempty"`
	RemoveStatement       *removeGroup  `json:"remove-statement,omitempty"`
}

// mutationIDs extracts every mutation id contained in the group, failing if
// the group matches none of the four known kinds.
func (g rawMutationGroup) mutationIDs() ([]int, error) {
	switch {
	case g.ReplaceExpression != nil:
		return instanceIDs(g.ReplaceExpression), nil
	case g.ReplaceBinaryOperator != nil:
		return instanceIDs(g.ReplaceBinaryOperator), nil
	case g.ReplaceUnaryOperator != nil:
		return instanceIDs(g.ReplaceUnaryOperator), nil
	case g.RemoveStatement != nil:
		return []int{g.RemoveStatement.MutationID}, nil
	default:
		return nil, fmt.Errorf("%w: mutation group matches none of the four known kinds", ddlerrors.ErrInvalidMutationInfo)
	}
}

func instanceIDs(g *replaceGroup) []int {
	ids := make([]int, len(g.Instances))
	for i, inst := range g.Instances {
		ids[i] = inst.MutationID
	}

	return ids
}

// rawNode is the wire shape of a tree node.
type rawNode struct {
	Children       []rawNode          `json:"children"`
	MutationGroups []rawMutationGroup `json:"mutation_groups"`
}

// rawFile is the wire shape of one file entry.
type rawFile struct {
	Filename        string  `json:"filename"`
	MutationTreeRoot rawNode `json:"mutation_tree_root"`
}

// rawDocument is the wire shape of the whole mutation-info document.
type rawDocument struct {
	Files []rawFile `json:"files"`
}

// NodeInfo is a decoded tree node, decoupled from the wire format: it
// carries only the node's own mutation ids and its ordered children.
type NodeInfo struct {
	OwnMutations []int
	Children     []NodeInfo
}

// FileInfo is a decoded file entry: a name and the root of its mutation tree.
type FileInfo struct {
	Filename string
	Root     NodeInfo
}

// Document is the decoded, serialization-independent mutation-info document.
type Document struct {
	Files []FileInfo
}

// Decode parses a mutation-info document from data.
//
// It fails with ddlerrors.ErrInvalidMutationInfo if the document is
// malformed or any mutation group matches none of the four known kinds.
func Decode(data []byte) (Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ddlerrors.ErrInvalidMutationInfo, err)
	}

	doc := Document{Files: make([]FileInfo, len(raw.Files))}

	for i, f := range raw.Files {
		root, err := decodeNode(f.MutationTreeRoot)
		if err != nil {
			return Document{}, fmt.Errorf("%w: file %q: %v", ddlerrors.ErrInvalidMutationInfo, f.Filename, err)
		}

		doc.Files[i] = FileInfo{Filename: f.Filename, Root: root}
	}

	return doc, nil
}

func decodeNode(n rawNode) (NodeInfo, error) {
	own, err := ownMutationIDs(n.MutationGroups)
	if err != nil {
		return NodeInfo{}, err
	}

	children := make([]NodeInfo, len(n.Children))

	for i, child := range n.Children {
		decoded, err := decodeNode(child)
		if err != nil {
			return NodeInfo{}, err
		}

		children[i] = decoded
	}

	return NodeInfo{OwnMutations: own, Children: children}, nil
}

func ownMutationIDs(groups []rawMutationGroup) ([]int, error) {
	var ids []int

	for _, g := range groups {
		gIDs, err := g.mutationIDs()
		if err != nil {
			return nil, err
		}

		ids = append(ids, gIDs...)
	}

	return ids, nil
}
