package flow

import "strconv"

// EdgesTo maps a target group to the identifiers of the nodes an instance points to.
type EdgesTo map[string][]string

// Node is one instance of a node group.
type Node struct {
	Data    any     `json:"data,omitempty"`
	EdgesTo EdgesTo `json:"edgesTo,omitempty"`
	ID      string  `json:"id"`
}

// Groups maps a group tag to its ordered instances. Order determines the instance index.
type Groups map[string][]Node

// Has reports whether tag is a known group, regardless of its instance count.
func (g Groups) Has(tag string) bool {
	_, ok := g[tag]
	return ok
}

// Index returns the identifier to position mapping of a group. Absent and empty groups
// yield an empty index.
func (g Groups) Index(tag string) map[string]int {
	nodes := g[tag]
	idx := make(map[string]int, len(nodes))
	for i, n := range nodes {
		idx[n.ID] = i
	}
	return idx
}

// Find returns the position of the node with the given id, or -1.
func (g Groups) Find(tag, id string) int {
	for i, n := range g[tag] {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// Index is an instance position within a group or one of the selection sentinels.
type Index int

const (
	// IndexNone means no instance was named: the whole group is selected.
	IndexNone Index = -4
	// IndexUnknown refers to the `:?` placeholder of an empty group.
	IndexUnknown Index = -3
	// IndexNew is the "new/create" pseudo-node which has no diagram element.
	IndexNew Index = -2
	// IndexAll addresses the bare, unqualified group element.
	IndexAll Index = -1
)

// IsInstance reports whether i addresses a concrete instance.
func (i Index) IsInstance() bool { return i >= 0 }

func (i Index) String() string {
	switch i {
	case IndexNone:
		return "none"
	case IndexUnknown:
		return "?"
	case IndexNew:
		return "new"
	case IndexAll:
		return "all"
	}
	return strconv.Itoa(int(i))
}

// MarshalText encodes sentinels by name so selections survive JSON.
func (i Index) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

// SelectedNode is the diagram element highlighted for the current navigation location.
type SelectedNode struct {
	Group string `json:"group"`
	Index Index  `json:"index"`
}

// Labeler renders the $nodeLabel token for an instance.
type Labeler func(id string, num int) string

// DefaultLabeler renders `<id>:<num>`.
func DefaultLabeler(id string, num int) string {
	return id + ":" + strconv.Itoa(num)
}

const (
	unknownSuffix = ":?"

	tokenNodeNum   = "$nodeNum"
	tokenNodeID    = "$nodeId"
	tokenNodeLabel = "$nodeLabel"
)

func qualify(tag string, i int) string {
	return tag + ":" + strconv.Itoa(i)
}
