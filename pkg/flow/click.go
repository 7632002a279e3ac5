package flow

import (
	"strconv"
	"strings"
)

// ElementPrefix is prepended by mermaid to flowchart node element ids.
const ElementPrefix = "flowchart-"

// ParseElementID splits a rendered element id (`flowchart-<group>[:<index>]-<n>`) into
// its group tag and index. A missing `:` yields IndexAll, a non-numeric index segment
// (the `:?` placeholders) yields IndexUnknown.
func ParseElementID(domID string) (string, Index) {
	id := strings.TrimPrefix(domID, ElementPrefix)
	if p := strings.LastIndexByte(id, '-'); p > 0 && isDigits(id[p+1:]) {
		id = id[:p]
	}

	p := strings.LastIndexByte(id, ':')
	if p == -1 {
		return id, IndexAll
	}

	grp := id[:p]
	n, err := strconv.Atoi(id[p+1:])
	if err != nil || n < 0 {
		return grp, IndexUnknown
	}
	return grp, Index(n)
}

// ResolveClick maps a clicked element id to the route to navigate to: the detail route
// of the instance when it exists, the group route otherwise.
func ResolveClick(domID string, groups Groups) Route {
	grp, idx := ParseElementID(domID)

	if nodes, ok := groups[grp]; ok && idx.IsInstance() && int(idx) < len(nodes) {
		return Route{Group: grp, ID: nodes[idx].ID}
	}
	return Route{Group: grp}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
