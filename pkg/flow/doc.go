// Package flow expands a flowchart template against dynamically discovered node groups
// into a mermaid topology diagram.
//
// A template is plain mermaid flowchart text. Lines of the form
//
//	KC_SNK{{$nodeLabel}}
//	KC_SNK-->DB_SNK
//	style KC_SNK fill:#eee
//
// whose leading identifier names a node group are expanded into one element per
// instance of that group, suffixed with `:<index>`. Groups without instances render a
// single `:?` placeholder so the diagram stays drawable. Identifiers that are not node
// groups are static nodes and pass through untouched.
//
// Per-instance tokens available in definition lines:
//   - $nodeNum: 1-based instance number
//   - $nodeId: the node identifier
//   - $nodeLabel: the Labeler applied to (identifier, number)
//
// Rendered element ids (`flowchart-KC_SNK:0-12`) resolve back to navigation routes with
// ResolveClick.
package flow
