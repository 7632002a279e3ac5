// Package topology turns the connectors registered in Kafka Connect into the node groups of
// the replication diagram and keeps them current.
package topology

import (
	"sort"
	"strings"

	"github.com/edgeflare/replica/pkg/connect"
	"github.com/edgeflare/replica/pkg/flow"
	"github.com/edgeflare/replica/pkg/kafka"
	"github.com/edgeflare/replica/pkg/names"
)

// Group tags of the diagram.
const (
	SourceConnectors = "KC_SRC"
	SinkTables       = "KT_SNK"
	SinkTopics       = "TP_SNK"
	SinkConnectors   = "KC_SNK"
	SinkDatabases    = "DB_SNK"
)

// Tags lists every group tag in flow order.
var Tags = []string{SourceConnectors, SinkTables, SinkTopics, SinkConnectors, SinkDatabases}

// SinkTopic is the data of a TP_SNK node.
type SinkTopic struct {
	Name  string           `json:"name"`
	Topic *kafka.TopicInfo `json:"topic,omitempty"`
}

// SinkDatabase is the data of a DB_SNK node.
type SinkDatabase struct {
	ConnString string `json:"connString"`
	Target     string `json:"target,omitempty"`
}

// Empty returns groups holding every tag with no instances.
func Empty() flow.Groups {
	g := make(flow.Groups, len(Tags))
	for _, tag := range Tags {
		g[tag] = []flow.Node{}
	}
	return g
}

// Classify sorts connectors named <namespace>_<role>[_...] into node groups. Source connectors
// become KC_SRC nodes carrying their record. Each sink connector contributes one node to each
// of KT_SNK, TP_SNK, KC_SNK and DB_SNK, linked in that order under the connector name.
// Connectors outside the convention are skipped.
func Classify(namespace string, connectors map[string]connect.ConnectorInfoStatus) flow.Groups {
	groups := Empty()

	ids := make([]string, 0, len(connectors))
	for name := range connectors {
		ids = append(ids, name)
	}
	sort.Strings(ids)

	for _, name := range ids {
		role, ok := names.Role(namespace, name)
		if !ok {
			continue
		}
		record := connectors[name]

		switch role {
		case names.RoleSource:
			groups[SourceConnectors] = append(groups[SourceConnectors], flow.Node{ID: name, Data: record})
		case names.RoleSink:
			groups[SinkTables] = append(groups[SinkTables], flow.Node{
				ID:      name,
				EdgesTo: flow.EdgesTo{SinkTopics: {name}},
			})
			groups[SinkTopics] = append(groups[SinkTopics], flow.Node{
				ID:      name,
				EdgesTo: flow.EdgesTo{SinkConnectors: {name}},
				Data:    SinkTopic{Name: sinkTopicName(name, record)},
			})
			groups[SinkConnectors] = append(groups[SinkConnectors], flow.Node{
				ID:      name,
				EdgesTo: flow.EdgesTo{SinkDatabases: {name}},
				Data:    record,
			})
			groups[SinkDatabases] = append(groups[SinkDatabases], flow.Node{
				ID:   name,
				Data: resolveDatabase(record),
			})
		}
	}
	return groups
}

func sinkTopicName(name string, record connect.ConnectorInfoStatus) string {
	if topics := record.Info.Config["topics"]; topics != "" {
		first, _, _ := strings.Cut(topics, ",")
		return strings.TrimSpace(first)
	}
	return name
}

// resolveDatabase renders the sink's connection URL as a password-free postgres:// string.
// URLs that do not parse are kept as they are.
func resolveDatabase(record connect.ConnectorInfoStatus) SinkDatabase {
	raw := record.Info.Config[connect.KeyConnectionURL]
	db, err := connect.DatabaseOf(record.Info.Config)
	if err != nil {
		return SinkDatabase{ConnString: raw}
	}
	return SinkDatabase{ConnString: db.ConnString(), Target: names.Target(db.Host, db.Name)}
}

// Labeler labels sink nodes by the part of the connector name after the sink prefix.
func Labeler(id string, num int) string {
	if rest, ok := strings.CutPrefix(id, names.Namespace+"_"+names.RoleSink+"_"); ok {
		return rest
	}
	return flow.DefaultLabeler(id, num)
}
