package flow

import (
	"net/url"
	"strings"
)

// ConfigurationPath is the root of all configuration routes.
const ConfigurationPath = "/configuration"

// NewNodeID is the pseudo identifier of the "create" form of a group.
const NewNodeID = "new"

// Route is a configuration navigation location: `/configuration[/<group>[/<id>]]`.
type Route struct {
	Group string `json:"group,omitempty"`
	ID    string `json:"id,omitempty"`
}

// ParseRoute extracts group and node id from a configuration path. Paths outside
// /configuration yield the zero Route; paths deeper than /<group>/<id> keep only the group.
func ParseRoute(path string) Route {
	rest, ok := strings.CutPrefix(path, ConfigurationPath)
	if !ok || (rest != "" && rest[0] != '/') {
		return Route{}
	}

	parts := strings.Split(strings.Trim(rest, "/"), "/")
	r := Route{Group: unescape(parts[0])}
	if len(parts) == 2 {
		r.ID = unescape(parts[1])
	}
	return r
}

// String renders the route. A group route keeps its trailing slash.
func (r Route) String() string {
	switch {
	case r.Group == "":
		return ConfigurationPath
	case r.ID == "":
		return ConfigurationPath + "/" + url.PathEscape(r.Group) + "/"
	}
	return ConfigurationPath + "/" + url.PathEscape(r.Group) + "/" + url.PathEscape(r.ID)
}

func unescape(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}

// Select derives the selected node of a route. It returns nil when no group is routed.
func Select(r Route, groups Groups) *SelectedNode {
	if r.Group == "" {
		return nil
	}

	grp := strings.ToUpper(r.Group)
	if !groups.Has(grp) {
		return &SelectedNode{Group: grp, Index: IndexNone}
	}

	switch r.ID {
	case NewNodeID:
		return &SelectedNode{Group: grp, Index: IndexNew}
	case "":
		return &SelectedNode{Group: grp, Index: IndexNone}
	}

	if i := groups.Find(grp, r.ID); i >= 0 {
		return &SelectedNode{Group: grp, Index: Index(i)}
	}
	return &SelectedNode{Group: grp, Index: IndexAll}
}
