package topology

import (
	_ "embed"
)

// DefaultTemplate is the flowchart of a replica deployment: the source database feeds the
// source connector, whose table is joined with the targets table into one KSQL table per sink.
//
//go:embed replica.mmd
var DefaultTemplate string
