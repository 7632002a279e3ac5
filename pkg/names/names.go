// Package names holds the naming conventions shared by connectors, KSQL tables and topics
// of a replica deployment.
//
// Connectors are named <namespace>_<role>[_<host>_<db>_<table>] where role is "src" for the
// single source connector and "snk" for per-database sink connectors. A sink connector, its
// KSQL table and its topic share one name.
package names

import (
	"fmt"
	"strings"
)

const (
	Namespace = "replica"

	RoleSource = "src"
	RoleSink   = "snk"

	// StatusTopic carries sync-status messages emitted by the connectors.
	StatusTopic = "replica_status"

	SourceConnector   = Namespace + "_" + RoleSource
	SourceTable       = Namespace + "_" + RoleSource + "_account"
	SourceSubject     = SourceTable + "-value"
	SourceTopic       = SourceTable
	SourceTopicPrefix = SourceConnector + "_"

	TargetsTable          = Namespace + "_trg_tbl"
	TargetsTableQueryable = Namespace + "_trg_qtbl"
	TargetsTopic          = Namespace + "_trg"

	// SourceLabel is the continuum label of the source connector. A status message carrying it
	// means the account changed at the source and every target is resynchronizing.
	SourceLabel = Namespace + "_source"

	BroadcastGroup = Namespace + "_broadcast"
)

// Sink returns the shared connector/table/topic name for a sink database table.
func Sink(host, db, table string) string {
	return fmt.Sprintf("%s_%s_%s_%s_%s", Namespace, RoleSink, host, db, table)
}

// Target returns the database target label of a sink, as stored in the targets table and
// reported in status messages.
func Target(host, db string) string {
	return host + "/" + db
}

// Role returns the role segment of a connector name in namespace, or false when name does not
// follow the <namespace>_<role>[_...] convention.
func Role(namespace, name string) (string, bool) {
	rest, ok := strings.CutPrefix(name, namespace+"_")
	if !ok {
		return "", false
	}
	role, _, _ := strings.Cut(rest, "_")
	if role == "" {
		return "", false
	}
	return role, true
}
