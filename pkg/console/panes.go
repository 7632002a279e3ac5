package console

import (
	"fmt"
	"net"
	"strconv"

	"github.com/edgeflare/replica/pkg/connect"
	"github.com/edgeflare/replica/pkg/flow"
	"github.com/edgeflare/replica/pkg/kafka"
	"github.com/edgeflare/replica/pkg/names"
	"github.com/edgeflare/replica/pkg/pgx"
	"github.com/edgeflare/replica/pkg/setup"
	"github.com/edgeflare/replica/pkg/topology"
	"github.com/mitchellh/mapstructure"
)

// TargetsTables is the static node of the targets tables. It is not a node group but still
// has an inspector.
const TargetsTables = "KT_TRG"

// Pane is the inspector shown for a selection. Exactly one of the variant types below
// implements it.
type Pane interface {
	Group() string
	pane()
}

type PaneKind string

const (
	KindSource    PaneKind = "source"
	KindSinks     PaneKind = "sinks"
	KindTables    PaneKind = "tables"
	KindTopics    PaneKind = "topics"
	KindDatabases PaneKind = "databases"
	KindTargets   PaneKind = "targets"
)

// SourceForm is the source connector as an editable form.
type SourceForm struct {
	setup.SourceSetup
	StatusTopic string         `json:"statusTopic"`
	Status      connect.Health `json:"status"`
}

// SinkForm is a sink connector as an editable form.
type SinkForm struct {
	setup.SinkSetup
	ID          string         `json:"id,omitempty"`
	StatusTopic string         `json:"statusTopic"`
	Status      connect.Health `json:"status"`
}

type SourcePane struct {
	Kind   PaneKind   `json:"kind"`
	Source SourceForm `json:"source"`
	Exists bool       `json:"exists"`
}

type SinkItem struct {
	ID     string         `json:"id"`
	Label  string         `json:"label"`
	Table  string         `json:"table"`
	Status connect.Health `json:"status"`
}

type SinksPane struct {
	Selected *SinkForm  `json:"selected,omitempty"`
	Kind     PaneKind   `json:"kind"`
	Items    []SinkItem `json:"items"`
	New      bool       `json:"new"`
	NotFound bool       `json:"notFound,omitempty"`
}

type TableItem struct {
	ID    string `json:"id"`
	Table string `json:"table"`
	Topic string `json:"topic"`
}

type TablesPane struct {
	Selected *TableItem  `json:"selected,omitempty"`
	Kind     PaneKind    `json:"kind"`
	Items    []TableItem `json:"items"`
}

type TopicItem struct {
	Info  *kafka.TopicInfo `json:"info,omitempty"`
	ID    string           `json:"id"`
	Topic string           `json:"topic"`
}

type TopicsPane struct {
	Selected *TopicItem  `json:"selected,omitempty"`
	Kind     PaneKind    `json:"kind"`
	Items    []TopicItem `json:"items"`
}

type DatabaseItem struct {
	Probe      *pgx.Status `json:"probe,omitempty"`
	ID         string      `json:"id"`
	ConnString string      `json:"connString"`
	Target     string      `json:"target,omitempty"`
}

type DatabasesPane struct {
	Selected *DatabaseItem  `json:"selected,omitempty"`
	Kind     PaneKind       `json:"kind"`
	Items    []DatabaseItem `json:"items"`
}

type TargetsPane struct {
	Kind      PaneKind `json:"kind"`
	Table     string   `json:"table"`
	Queryable string   `json:"queryable"`
	Topic     string   `json:"topic"`
}

func (SourcePane) Group() string    { return topology.SourceConnectors }
func (SinksPane) Group() string     { return topology.SinkConnectors }
func (TablesPane) Group() string    { return topology.SinkTables }
func (TopicsPane) Group() string    { return topology.SinkTopics }
func (DatabasesPane) Group() string { return topology.SinkDatabases }
func (TargetsPane) Group() string   { return TargetsTables }

func (SourcePane) pane()    {}
func (SinksPane) pane()     {}
func (TablesPane) pane()    {}
func (TopicsPane) pane()    {}
func (DatabasesPane) pane() {}
func (TargetsPane) pane()   {}

// Inspect builds the pane for a selection. Groups without an inspector yield nil.
func Inspect(sel *flow.SelectedNode, groups flow.Groups) Pane {
	if sel == nil {
		return nil
	}
	nodes := groups[sel.Group]

	switch sel.Group {
	case topology.SourceConnectors:
		return sourcePane(nodes)
	case topology.SinkConnectors:
		return sinksPane(nodes, sel.Index)
	case topology.SinkTables:
		return tablesPane(nodes, sel.Index)
	case topology.SinkTopics:
		return topicsPane(nodes, sel.Index)
	case topology.SinkDatabases:
		return databasesPane(nodes, sel.Index)
	case TargetsTables:
		return TargetsPane{
			Kind:      KindTargets,
			Table:     names.TargetsTable,
			Queryable: names.TargetsTableQueryable,
			Topic:     names.TargetsTopic,
		}
	default:
		return nil
	}
}

// jdbcConfig is the part of a JDBC connector config the forms show.
type jdbcConfig struct {
	URL          string `mapstructure:"connection.url"`
	User         string `mapstructure:"connection.user"`
	Table        string `mapstructure:"table.name.format"`
	StatusTopic  string `mapstructure:"continuum.topic"`
	PollInterval int    `mapstructure:"poll.interval.ms"`
}

func decodeJDBC(config connect.Config) (jdbcConfig, error) {
	var out jdbcConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(map[string]string(config)); err != nil {
		return out, fmt.Errorf("decode connector config: %w", err)
	}
	return out, nil
}

// hostPort splits the authority of a JDBC URL leniently; it never fails.
func hostPort(url string) (string, int, string) {
	db, err := connect.ParseJDBCURL(url)
	if err == nil {
		return db.Host, db.Port, db.Name
	}
	host, port, splitErr := net.SplitHostPort(url)
	if splitErr != nil {
		return "", connect.DefaultPort, ""
	}
	p, convErr := strconv.Atoi(port)
	if convErr != nil {
		p = connect.DefaultPort
	}
	return host, p, ""
}

func recordOf(n flow.Node) (connect.ConnectorInfoStatus, bool) {
	rec, ok := n.Data.(connect.ConnectorInfoStatus)
	return rec, ok
}

func sourcePane(nodes []flow.Node) SourcePane {
	p := SourcePane{
		Kind:   KindSource,
		Source: SourceForm{SourceSetup: setup.DefaultSource(), StatusTopic: names.StatusTopic, Status: connect.HealthUnknown},
	}
	if len(nodes) == 0 {
		return p
	}
	rec, ok := recordOf(nodes[0])
	if !ok {
		return p
	}
	p.Exists = true

	cfg, _ := decodeJDBC(rec.Info.Config)
	host, port, db := hostPort(cfg.URL)
	p.Source.Hostname = host
	p.Source.Port = port
	p.Source.Name = db
	p.Source.User = cfg.User
	if cfg.PollInterval > 0 {
		p.Source.PollInterval = cfg.PollInterval
	}
	p.Source.StatusTopic = cfg.StatusTopic
	p.Source.Status = rec.Health()
	return p
}

func sinkForm(n flow.Node) SinkForm {
	form := SinkForm{ID: n.ID, Status: connect.HealthUnknown}
	rec, ok := recordOf(n)
	if !ok {
		return form
	}
	cfg, _ := decodeJDBC(rec.Info.Config)
	host, port, db := hostPort(cfg.URL)
	form.SinkSetup = setup.SinkSetup{
		Hostname: host,
		Port:     port,
		Name:     db,
		Table:    cfg.Table,
		User:     cfg.User,
	}
	form.StatusTopic = cfg.StatusTopic
	form.Status = rec.Health()
	return form
}

func sinksPane(nodes []flow.Node, idx flow.Index) SinksPane {
	p := SinksPane{Kind: KindSinks, Items: make([]SinkItem, 0, len(nodes))}
	for i, n := range nodes {
		form := sinkForm(n)
		p.Items = append(p.Items, SinkItem{
			ID:     n.ID,
			Label:  topology.Labeler(n.ID, i+1),
			Table:  form.Table,
			Status: form.Status,
		})
	}

	switch {
	case idx == flow.IndexNew:
		def := SinkForm{SinkSetup: setup.DefaultSink(), StatusTopic: names.StatusTopic, Status: connect.HealthUnknown}
		p.Selected, p.New = &def, true
	case idx.IsInstance() && int(idx) < len(nodes):
		form := sinkForm(nodes[idx])
		p.Selected = &form
	case idx == flow.IndexAll:
		p.NotFound = true
	}
	return p
}

func tablesPane(nodes []flow.Node, idx flow.Index) TablesPane {
	p := TablesPane{Kind: KindTables, Items: make([]TableItem, 0, len(nodes))}
	for _, n := range nodes {
		item := TableItem{ID: n.ID, Table: n.ID}
		if to := n.EdgesTo[topology.SinkTopics]; len(to) > 0 {
			item.Topic = to[0]
		}
		p.Items = append(p.Items, item)
	}
	if idx.IsInstance() && int(idx) < len(p.Items) {
		p.Selected = &p.Items[idx]
	}
	return p
}

func topicsPane(nodes []flow.Node, idx flow.Index) TopicsPane {
	p := TopicsPane{Kind: KindTopics, Items: make([]TopicItem, 0, len(nodes))}
	for _, n := range nodes {
		item := TopicItem{ID: n.ID, Topic: n.ID}
		if st, ok := n.Data.(topology.SinkTopic); ok {
			item.Topic = st.Name
			item.Info = st.Topic
		}
		p.Items = append(p.Items, item)
	}
	if idx.IsInstance() && int(idx) < len(p.Items) {
		p.Selected = &p.Items[idx]
	}
	return p
}

func databasesPane(nodes []flow.Node, idx flow.Index) DatabasesPane {
	p := DatabasesPane{Kind: KindDatabases, Items: make([]DatabaseItem, 0, len(nodes))}
	for _, n := range nodes {
		item := DatabaseItem{ID: n.ID}
		if db, ok := n.Data.(topology.SinkDatabase); ok {
			item.ConnString = db.ConnString
			item.Target = db.Target
		}
		p.Items = append(p.Items, item)
	}
	if idx.IsInstance() && int(idx) < len(p.Items) {
		p.Selected = &p.Items[idx]
	}
	return p
}
