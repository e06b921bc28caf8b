// Package migrations embeds and applies the token_summaries schema
// for the Postgres and ClickHouse summary sinks.
package migrations

import "embed"

//go:embed postgres/*.sql
var PostgresFS embed.FS

//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
