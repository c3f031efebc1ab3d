// Package testdb provides helpers for tests that run against a real Postgres
// database. Tests using it skip unless DATABASE_URL is set, and are normally
// built only with the integration tag:
//
//	DATABASE_URL=postgres://... go test -tags=integration ./internal/platform/postgres/...
package testdb
