package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/interfaces"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/repository/sqlite/migrations"
	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLite stores the index in a single database file
type SQLite struct {
	db     *sql.DB
	path   string
	source *sourceRepository
	chunk  *chunkRepository
}

var _ interfaces.Repository = &SQLite{}

// New opens (creating if needed) the database at path and applies pending migrations
func New(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, goerr.Wrap(err, "failed to create database directory", goerr.V("dir", dir))
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database", goerr.V("path", path))
	}
	// one writer at a time; a single connection avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to connect database", goerr.V("path", path))
	}

	s := &SQLite{
		db:     db,
		path:   path,
		source: &sourceRepository{db: db},
		chunk:  &chunkRepository{db: db},
	}

	if err := s.migrate(ctx, migrations.FS); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLite) Source() interfaces.SourceRepository {
	return s.source
}

func (s *SQLite) Chunk() interfaces.ChunkRepository {
	return s.chunk
}

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// migrate runs every NNN_*.up.sql file newer than the recorded schema version
func (s *SQLite) migrate(ctx context.Context, fsys embed.FS) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return goerr.Wrap(err, "failed to create schema_migrations table")
	}

	var current int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return goerr.Wrap(err, "failed to get schema version")
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return goerr.Wrap(err, "failed to read migrations")
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return goerr.Wrap(err, "failed to read migration", goerr.V("name", name))
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return goerr.Wrap(err, "failed to begin migration", goerr.V("name", name))
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			_ = tx.Rollback()
			return goerr.Wrap(err, "failed to execute migration", goerr.V("name", name))
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return goerr.Wrap(err, "failed to record migration", goerr.V("name", name))
		}
		if err := tx.Commit(); err != nil {
			return goerr.Wrap(err, "failed to commit migration", goerr.V("name", name))
		}
	}

	return nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) []float32 {
	if len(data)%4 != 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
