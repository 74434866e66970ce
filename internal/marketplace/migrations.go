package marketplace

import "embed"

// migrationsFS はスキーママイグレーションのSQLファイルを埋め込んだファイルシステム。
//
//go:embed migrations/*.up.sql
var migrationsFS embed.FS
