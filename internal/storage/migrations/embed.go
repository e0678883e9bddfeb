// Package migrations embeds the SQL schema for each supported database.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// FS embeds all SQL migration files, one directory per dialect.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

// Dialect directories
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// File is one versioned migration
type File struct {
	Name    string
	Version int
	SQL     string
}

// Load returns the migrations of a dialect sorted by version. Files whose
// names do not carry a version are skipped.
func Load(dialect string) ([]File, error) {
	entries, err := fs.ReadDir(FS, dialect)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var files []File
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		version, err := ParseVersion(e.Name())
		if err != nil {
			continue
		}
		data, err := fs.ReadFile(FS, dialect+"/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		files = append(files, File{Name: e.Name(), Version: version, SQL: string(data)})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// ParseVersion extracts the version number from a migration filename like "001_initial.sql".
func ParseVersion(name string) (int, error) {
	parts := strings.SplitN(name, "_", 2)
	if len(parts) < 2 {
		return 0, fmt.Errorf("invalid migration filename: %s", name)
	}
	var version int
	_, err := fmt.Sscanf(parts[0], "%d", &version)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return version, nil
}
