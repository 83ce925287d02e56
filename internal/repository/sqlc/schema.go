package sqlc

import _ "embed"

// Schema is the DDL of the tables queried by this package. Statements are
// idempotent and safe to apply on every start.
//
//go:embed schema.sql
var Schema string
