package ksql

import (
	"fmt"
	"strings"

	"github.com/edgeflare/replica/pkg/names"
)

// QuoteIdent quotes a KSQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral quotes a KSQL string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// CreateSourceTable declares the table over the topic the source connector writes to.
func CreateSourceTable() string {
	return fmt.Sprintf(`CREATE TABLE %s (`+
		`"id" INT PRIMARY KEY,`+
		`"acct_id" INT,`+
		`"name" STRING,`+
		`"last_change_id" BIGINT,`+
		`"last_modified" TIMESTAMP`+
		`) WITH (KAFKA_TOPIC=%s,PARTITIONS=1,KEY_FORMAT='KAFKA',VALUE_FORMAT='AVRO');`,
		QuoteIdent(names.SourceTable), QuoteLiteral(names.SourceTopic))
}

// CreateTargetsTable declares the table mapping accounts to their database targets.
func CreateTargetsTable() string {
	return fmt.Sprintf(`CREATE TABLE %s (`+
		`"acct_id" INT PRIMARY KEY,`+
		`"targets" ARRAY<VARCHAR>`+
		`) WITH (PARTITIONS=1,KAFKA_TOPIC=%s,KEY_FORMAT='KAFKA',VALUE_FORMAT='AVRO');`,
		QuoteIdent(names.TargetsTable), QuoteLiteral(names.TargetsTopic))
}

// CreateTargetsQueryable materializes the targets table so pull queries can read it.
func CreateTargetsQueryable() string {
	return fmt.Sprintf(`CREATE TABLE %s AS SELECT * FROM %s;`,
		QuoteIdent(names.TargetsTableQueryable), QuoteIdent(names.TargetsTable))
}

// CreateSinkTable joins the source table with the targets table, keeping the accounts that
// list host/db as a target.
func CreateSinkTable(host, db, table string) string {
	return fmt.Sprintf(`CREATE TABLE %s AS SELECT `+
		`a."id" AS KEY,`+
		`AS_VALUE(a."acct_id") AS "acct_id",`+
		`a."name" AS "name",`+
		`a."last_change_id" AS "last_change_id",`+
		`a."last_modified" AS "last_modified" `+
		`FROM %s AS t `+
		`INNER JOIN %s AS a ON a."id" = t."acct_id" `+
		`WHERE ARRAY_CONTAINS(t."targets", %s);`,
		QuoteIdent(names.Sink(host, db, table)),
		QuoteIdent(names.TargetsTable),
		QuoteIdent(names.SourceTable),
		QuoteLiteral(names.Target(host, db)))
}

// DropTable drops a table by name.
func DropTable(name string) string {
	return fmt.Sprintf(`DROP TABLE %s;`, QuoteIdent(name))
}

// InsertTargets replaces the targets of an account. No targets stores NULL.
func InsertTargets(accountID int, targets []string) string {
	value := "NULL"
	if len(targets) > 0 {
		quoted := make([]string, len(targets))
		for i, t := range targets {
			quoted[i] = QuoteLiteral(t)
		}
		value = "ARRAY[" + strings.Join(quoted, ",") + "]"
	}
	return fmt.Sprintf(`INSERT INTO %s ("acct_id","targets") VALUES (%d,%s);`,
		QuoteIdent(names.TargetsTable), accountID, value)
}

// SelectTargets reads the targets of an account from the queryable targets table.
func SelectTargets(accountID int) string {
	return fmt.Sprintf(`SELECT "targets" FROM %s WHERE "acct_id" = %d;`,
		QuoteIdent(names.TargetsTableQueryable), accountID)
}
