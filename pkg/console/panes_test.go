package console

import (
	"encoding/json"
	"testing"

	"github.com/edgeflare/replica/internal/testutil"
	"github.com/edgeflare/replica/pkg/connect"
	"github.com/edgeflare/replica/pkg/flow"
	"github.com/edgeflare/replica/pkg/names"
	"github.com/edgeflare/replica/pkg/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sinkP2 = "replica_snk_postgres2_sink_account"
	sinkP3 = "replica_snk_postgres3_sink_account"
)

func fixtureGroups(t *testing.T) flow.Groups {
	t.Helper()
	var connectors map[string]connect.ConnectorInfoStatus
	_, err := testutil.LoadJSON(testutil.ConnectorsFixture, &connectors)
	require.NoError(t, err)
	return topology.Classify(names.Namespace, connectors)
}

func selectPath(t *testing.T, path string, groups flow.Groups) *flow.SelectedNode {
	t.Helper()
	sel := flow.Select(flow.ParseRoute(path), groups)
	require.NotNil(t, sel, path)
	return sel
}

func TestInspectNil(t *testing.T) {
	groups := fixtureGroups(t)
	assert.Nil(t, Inspect(nil, groups))
	assert.Nil(t, Inspect(&flow.SelectedNode{Group: "SRC_DB", Index: flow.IndexNone}, groups))
}

func TestInspectSource(t *testing.T) {
	groups := fixtureGroups(t)

	pane, ok := Inspect(selectPath(t, "/configuration/KC_SRC/", groups), groups).(SourcePane)
	require.True(t, ok)
	assert.True(t, pane.Exists)
	assert.Equal(t, topology.SourceConnectors, pane.Group())
	assert.Equal(t, "postgres1", pane.Source.Hostname)
	assert.Equal(t, 5432, pane.Source.Port)
	assert.Equal(t, "source", pane.Source.Name)
	assert.Equal(t, "db_user", pane.Source.User)
	assert.Equal(t, 500, pane.Source.PollInterval)
	assert.Equal(t, names.StatusTopic, pane.Source.StatusTopic)
	assert.Equal(t, connect.HealthOperational, pane.Source.Status)
}

func TestInspectSourceDefaults(t *testing.T) {
	groups := topology.Empty()

	pane, ok := Inspect(&flow.SelectedNode{Group: topology.SourceConnectors, Index: flow.IndexNone}, groups).(SourcePane)
	require.True(t, ok)
	assert.False(t, pane.Exists)
	assert.Equal(t, "postgres1", pane.Source.Hostname)
	assert.Equal(t, connect.DefaultPort, pane.Source.Port)
	assert.Equal(t, "source", pane.Source.Name)
	assert.Equal(t, "db_user", pane.Source.User)
	assert.Equal(t, 500, pane.Source.PollInterval)
	assert.Equal(t, connect.HealthUnknown, pane.Source.Status)
}

func TestInspectSinks(t *testing.T) {
	groups := fixtureGroups(t)

	tests := []struct {
		name     string
		path     string
		wantHost string
		wantPort int
		wantNew  bool
		notFound bool
		status   connect.Health
	}{
		{name: "paused instance", path: "/configuration/KC_SNK/" + sinkP2, wantHost: "postgres2", wantPort: 5432, status: connect.HealthPaused},
		{name: "failed task", path: "/configuration/KC_SNK/" + sinkP3, wantHost: "postgres3", wantPort: 5433, status: connect.HealthFailure},
		{name: "new", path: "/configuration/KC_SNK/new", wantHost: "postgres2", wantPort: 5432, wantNew: true, status: connect.HealthUnknown},
		{name: "unknown id", path: "/configuration/KC_SNK/nope", notFound: true},
		{name: "group", path: "/configuration/KC_SNK/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pane, ok := Inspect(selectPath(t, tt.path, groups), groups).(SinksPane)
			require.True(t, ok)
			require.Len(t, pane.Items, 2)
			assert.Equal(t, tt.wantNew, pane.New)
			assert.Equal(t, tt.notFound, pane.NotFound)

			if tt.wantHost == "" {
				assert.Nil(t, pane.Selected)
				return
			}
			require.NotNil(t, pane.Selected)
			assert.Equal(t, tt.wantHost, pane.Selected.Hostname)
			assert.Equal(t, tt.wantPort, pane.Selected.Port)
			assert.Equal(t, "sink", pane.Selected.Name)
			assert.Equal(t, "account", pane.Selected.Table)
			assert.Equal(t, "db_user", pane.Selected.User)
			assert.Equal(t, names.StatusTopic, pane.Selected.StatusTopic)
			assert.Equal(t, tt.status, pane.Selected.Status)
		})
	}
}

func TestInspectSinkItems(t *testing.T) {
	groups := fixtureGroups(t)

	pane := Inspect(selectPath(t, "/configuration/KC_SNK/", groups), groups).(SinksPane)
	assert.Equal(t, []SinkItem{
		{ID: sinkP2, Label: "postgres2_sink_account", Table: "account", Status: connect.HealthPaused},
		{ID: sinkP3, Label: "postgres3_sink_account", Table: "account", Status: connect.HealthFailure},
	}, pane.Items)
}

func TestInspectTablesTopicsDatabases(t *testing.T) {
	groups := fixtureGroups(t)

	tables, ok := Inspect(selectPath(t, "/configuration/KT_SNK/"+sinkP3, groups), groups).(TablesPane)
	require.True(t, ok)
	require.NotNil(t, tables.Selected)
	assert.Equal(t, TableItem{ID: sinkP3, Table: sinkP3, Topic: sinkP3}, *tables.Selected)

	topics, ok := Inspect(selectPath(t, "/configuration/TP_SNK/", groups), groups).(TopicsPane)
	require.True(t, ok)
	assert.Nil(t, topics.Selected)
	require.Len(t, topics.Items, 2)
	assert.Equal(t, sinkP2, topics.Items[0].Topic)
	assert.Nil(t, topics.Items[0].Info)

	dbs, ok := Inspect(selectPath(t, "/configuration/DB_SNK/"+sinkP2, groups), groups).(DatabasesPane)
	require.True(t, ok)
	require.NotNil(t, dbs.Selected)
	assert.Equal(t, "postgres://db_user@postgres2:5432/sink", dbs.Selected.ConnString)
	assert.Equal(t, "postgres2/sink", dbs.Selected.Target)
	assert.Nil(t, dbs.Selected.Probe)
}

func TestInspectTargets(t *testing.T) {
	groups := fixtureGroups(t)

	sel := selectPath(t, "/configuration/KT_TRG/", groups)
	pane, ok := Inspect(sel, groups).(TargetsPane)
	require.True(t, ok)
	assert.Equal(t, TargetsTables, pane.Group())
	assert.Equal(t, names.TargetsTable, pane.Table)
	assert.Equal(t, names.TargetsTableQueryable, pane.Queryable)
}

func TestPaneJSON(t *testing.T) {
	groups := fixtureGroups(t)

	data, err := json.Marshal(Inspect(selectPath(t, "/configuration/KC_SNK/new", groups), groups))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "sinks", got["kind"])
	assert.Equal(t, true, got["new"])
	selected := got["selected"].(map[string]any)
	assert.Equal(t, "postgres2", selected["dbHostname"])
	assert.Equal(t, "unknown", selected["status"])
	assert.NotContains(t, selected, "dbPassword")
}

func TestDecodeJDBC(t *testing.T) {
	cfg, err := decodeJDBC(connect.Config{
		"connection.url":    "jdbc:postgresql://db:6543/app",
		"connection.user":   "app",
		"table.name.format": "account",
		"continuum.topic":   "status",
		"poll.interval.ms":  "250",
		"unrelated":         "x",
	})
	require.NoError(t, err)
	assert.Equal(t, jdbcConfig{
		URL:          "jdbc:postgresql://db:6543/app",
		User:         "app",
		Table:        "account",
		StatusTopic:  "status",
		PollInterval: 250,
	}, cfg)

	_, err = decodeJDBC(connect.Config{"poll.interval.ms": "soon"})
	assert.Error(t, err)
}

func TestHostPort(t *testing.T) {
	host, port, db := hostPort("jdbc:postgresql://db:6543/app")
	assert.Equal(t, []any{"db", 6543, "app"}, []any{host, port, db})

	host, port, db = hostPort("db:x")
	assert.Equal(t, []any{"db", connect.DefaultPort, ""}, []any{host, port, db})

	host, port, db = hostPort("")
	assert.Equal(t, []any{"", connect.DefaultPort, ""}, []any{host, port, db})
}
