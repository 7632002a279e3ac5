package connect

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/edgeflare/replica/pkg/names"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	jdbcSourceClass  = "io.confluent.connect.jdbc.JdbcSourceConnector"
	jdbcSinkClass    = "io.confluent.connect.jdbc.JdbcSinkConnector"
	integerConverter = "org.apache.kafka.connect.converters.IntegerConverter"
	avroConverter    = "io.confluent.connect.avro.AvroConverter"

	KeyConnectionURL  = "connection.url"
	KeyConnectionUser = "connection.user"
	KeyTableName      = "table.name.format"
	KeyStatusTopic    = "continuum.topic"
	KeyStatusLabel    = "continuum.label"
	KeyPollInterval   = "poll.interval.ms"

	DefaultPort = 5432
)

// Cluster holds the endpoints connectors need to reach Kafka and the schema registry.
type Cluster struct {
	BootstrapServers  string `mapstructure:"bootstrapServers" json:"bootstrapServers"`
	SchemaRegistryURL string `mapstructure:"schemaRegistryURL" json:"schemaRegistryURL"`
}

// Database identifies a Postgres database reachable from the Connect workers.
type Database struct {
	Host     string
	Name     string
	User     string
	Password string
	Port     int
}

// JDBCURL renders the connection URL understood by the JDBC connectors.
func (d Database) JDBCURL() string {
	port := d.Port
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("jdbc:postgresql://%s/%s", net.JoinHostPort(d.Host, strconv.Itoa(port)), d.Name)
}

// SourceConfig builds the JDBC source connector that streams public.account into the
// replica_src_account topic and emits sync status to the status topic.
func SourceConfig(db Database, pollIntervalMS int, cluster Cluster) Config {
	return Config{
		"connector.class":                     jdbcSourceClass,
		KeyConnectionURL:                      db.JDBCURL(),
		KeyConnectionUser:                     db.User,
		"connection.password":                 db.Password,
		"topic.prefix":                        names.SourceTopicPrefix,
		"table.whitelist":                     "public.account",
		"mode":                                "timestamp+incrementing",
		"timestamp.column.name":               "last_modified",
		"incrementing.column.name":            "acct_id",
		"transforms":                          "createKey,extractInt",
		"transforms.createKey.type":           "org.apache.kafka.connect.transforms.ValueToKey",
		"transforms.createKey.fields":         "acct_id",
		"transforms.extractInt.type":          "org.apache.kafka.connect.transforms.ExtractField$Key",
		"transforms.extractInt.field":         "acct_id",
		"key.converter":                       integerConverter,
		"value.converter":                     avroConverter,
		"value.converter.schema.registry.url": cluster.SchemaRegistryURL,
		KeyStatusTopic:                        names.StatusTopic,
		"continuum.bootstrap.servers":         cluster.BootstrapServers,
		"continuum.schema.registry.url":       cluster.SchemaRegistryURL,
		KeyStatusLabel:                        names.SourceConnector,
		"continuum.version.column.name":       "last_change_id",
		"continuum.updatedOn.column.name":     "last_modified",
		KeyPollInterval:                       strconv.Itoa(pollIntervalMS),
	}
}

// SinkConfig builds the JDBC sink connector that upserts the sink's KSQL table topic into
// table of db.
func SinkConfig(db Database, table string, cluster Cluster) Config {
	return Config{
		"connector.class":                     jdbcSinkClass,
		"topics":                              names.Sink(db.Host, db.Name, table),
		KeyConnectionURL:                      db.JDBCURL(),
		KeyConnectionUser:                     db.User,
		"connection.password":                 db.Password,
		"key.converter":                       integerConverter,
		"value.converter":                     avroConverter,
		"value.converter.schemas.enabled":     "true",
		"value.converter.schema.registry.url": cluster.SchemaRegistryURL,
		"tasks.max":                           "1",
		"auto.create":                         "true",
		"auto.evolve":                         "true",
		"delete.enabled":                      "true",
		"insert.mode":                         "upsert",
		"pk.mode":                             "record_key",
		"pk.fields":                           "acct_id",
		KeyStatusTopic:                        names.StatusTopic,
		"continuum.bootstrap.servers":         cluster.BootstrapServers,
		"continuum.schema.registry.url":       cluster.SchemaRegistryURL,
		KeyStatusLabel:                        names.Target(db.Host, db.Name),
		"continuum.version.column.name":       "last_change_id",
		"continuum.updatedOn.column.name":     "last_modified",
		KeyTableName:                          table,
	}
}

// ParseJDBCURL extracts host, port and database name from a jdbc:postgresql:// URL.
func ParseJDBCURL(raw string) (Database, error) {
	dsn := strings.TrimPrefix(strings.TrimSpace(raw), "jdbc:")
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return Database{}, fmt.Errorf("not a postgres JDBC URL: %q", raw)
	}
	cfg, err := pgconn.ParseConfig(dsn)
	if err != nil {
		return Database{}, fmt.Errorf("parse connection url: %w", err)
	}
	return Database{
		Host: cfg.Host,
		Port: int(cfg.Port),
		Name: cfg.Database,
	}, nil
}

// DatabaseOf reads the database a JDBC connector points at from its configuration.
func DatabaseOf(config Config) (Database, error) {
	db, err := ParseJDBCURL(config[KeyConnectionURL])
	if err != nil {
		return Database{}, err
	}
	db.User = config[KeyConnectionUser]
	return db, nil
}

// ConnString renders a password-free postgres:// connection string for display.
func (d Database) ConnString() string {
	port := d.Port
	if port == 0 {
		port = DefaultPort
	}
	user := ""
	if d.User != "" {
		user = d.User + "@"
	}
	return fmt.Sprintf("postgres://%s%s/%s", user, net.JoinHostPort(d.Host, strconv.Itoa(port)), d.Name)
}
