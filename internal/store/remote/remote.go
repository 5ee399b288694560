// Package remote implements the optional team-shared mirror of
// internal/store's warm cache: the same FileSnapshot/PropertyRecord
// schema, but backed by a libsql (Turso) database over the network
// instead of a local file. Enabled only when EMMYLUALS_REMOTE_DB is
// set (SPEC_FULL.md §3) — cmd/luasem-ls's composition root is the only
// caller, and it is always optional: a connection failure here must
// never block serving, only disable the remote mirror.
package remote

import (
	"database/sql"
	"fmt"
	"os"

	libsql "github.com/tursodatabase/libsql-client-go/libsql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/luasem/luasem/internal/store"
)

// Open connects to a libsql URL (e.g. "libsql://my-db.turso.io" or
// "https://my-db.turso.io") using gorm.io/driver/sqlite's real cgo
// dialector wrapped around a libsql driver.Connector — the same
// `sqlite.New(sqlite.Config{DriverName: "libsql", Conn, DSN})` shape
// the teacher's db.Connect uses for its Turso branch, since libsql has
// no pure-Go client (unlike the local store's glebarez/sqlite path).
// EMMYLUALS_REMOTE_DB_TOKEN, when set, is passed as the connector's
// auth token, mirroring the teacher's MORFX_LIBSQL_AUTH_TOKEN.
func Open(dsn string, debug bool) (*store.Store, error) {
	opts := []libsql.Option{}
	if token := os.Getenv("EMMYLUALS_REMOTE_DB_TOKEN"); token != "" {
		opts = append(opts, libsql.WithAuthToken(token))
	}
	connector, err := libsql.NewConnector(dsn, opts...)
	if err != nil {
		return nil, fmt.Errorf("remote store: libsql connector: %w", err)
	}

	conn := sql.OpenDB(connector)
	dialector := sqlite.New(sqlite.Config{
		DriverName: "libsql",
		Conn:       conn,
		DSN:        dsn,
	})

	cfg := &gorm.Config{}
	if debug {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("remote store: connect: %w", err)
	}
	return store.Wrap(db)
}

// Enabled reports whether EMMYLUALS_REMOTE_DB names a remote database
// to mirror into, and returns its DSN.
func Enabled() (string, bool) {
	dsn := os.Getenv("EMMYLUALS_REMOTE_DB")
	return dsn, dsn != ""
}
