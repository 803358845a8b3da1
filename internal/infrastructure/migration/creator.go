package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const migrationUpTemplate = `-- Migration: {{.Name}}
-- Created: {{.Timestamp}}
-- Description: {{.Description}}

`

const migrationDownTemplate = `-- Migration: {{.Name}} (Rollback)
-- Created: {{.Timestamp}}

`

// versionWidth is the zero-padded width of sequential versions (000001)
const versionWidth = 6

// MigrationFile is a newly created up/down pair
type MigrationFile struct {
	Version     uint
	Name        string
	Description string
	Timestamp   string
	UpPath      string
	DownPath    string
}

// Entry is one migration found in a directory
type Entry struct {
	Version uint
	Name    string
	HasDown bool
}

// BaseName is the file name without the .up.sql/.down.sql suffix
func (e Entry) BaseName() string {
	return fmt.Sprintf("%0*d_%s", versionWidth, e.Version, e.Name)
}

// CreateMigration writes an empty up/down pair numbered one past the highest
// existing version.
func CreateMigration(migrationsDir, name, description string) (*MigrationFile, error) {
	safe := sanitizeName(name)
	if safe == "" {
		return nil, errors.New("migration name must contain letters or digits")
	}
	if err := os.MkdirAll(migrationsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	version, err := NextVersion(migrationsDir)
	if err != nil {
		return nil, err
	}

	base := Entry{Version: version, Name: safe}.BaseName()
	mf := &MigrationFile{
		Version:     version,
		Name:        name,
		Description: description,
		Timestamp:   time.Now().Format(time.RFC3339),
		UpPath:      filepath.Join(migrationsDir, base+".up.sql"),
		DownPath:    filepath.Join(migrationsDir, base+".down.sql"),
	}

	if err := createMigrationFile(mf.UpPath, migrationUpTemplate, mf); err != nil {
		return nil, fmt.Errorf("failed to create up migration: %w", err)
	}
	if err := createMigrationFile(mf.DownPath, migrationDownTemplate, mf); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, fmt.Errorf("failed to create down migration: %w", err)
	}
	return mf, nil
}

// NextVersion returns the version a new migration in dir should take
func NextVersion(dir string) (uint, error) {
	entries, err := ListMigrations(dir)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 1, nil
	}
	return entries[len(entries)-1].Version + 1, nil
}

func createMigrationFile(path, tmplContent string, data *MigrationFile) error {
	tmpl, err := template.New("migration").Parse(tmplContent)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	// O_EXCL: never clobber a migration someone already wrote
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer f.Close()

	return tmpl.Execute(f, data)
}

// sanitizeName lowercases name and collapses separators to single underscores
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			s := b.String()
			if len(s) > 0 && s[len(s)-1] != '_' {
				b.WriteByte('_')
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// ListMigrations lists the migrations of a directory by version. A missing
// directory has none.
func ListMigrations(migrationsDir string) ([]Entry, error) {
	if _, err := os.Stat(migrationsDir); errors.Is(err, fs.ErrNotExist) {
		return []Entry{}, nil
	}
	return List(os.DirFS(migrationsDir))
}

// List reads the migrations at the root of fsys, ordered by version.
// Files that do not look like NNNNNN_name.{up,down}.sql are ignored.
func List(fsys fs.FS) ([]Entry, error) {
	dirEntries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	byVersion := make(map[uint]*Entry)
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		version, name, direction, ok := parseFileName(de.Name())
		if !ok {
			continue
		}
		e, seen := byVersion[version]
		if !seen {
			e = &Entry{Version: version, Name: name}
			byVersion[version] = e
		} else if e.Name != name {
			return nil, fmt.Errorf("version %d used by both %q and %q", version, e.Name, name)
		}
		if direction == "down" {
			e.HasDown = true
		}
	}

	out := make([]Entry, 0, len(byVersion))
	for _, e := range byVersion {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// parseFileName splits "000002_add_index.up.sql" into (2, "add_index", "up")
func parseFileName(file string) (uint, string, string, bool) {
	var direction string
	switch {
	case strings.HasSuffix(file, ".up.sql"):
		direction, file = "up", strings.TrimSuffix(file, ".up.sql")
	case strings.HasSuffix(file, ".down.sql"):
		direction, file = "down", strings.TrimSuffix(file, ".down.sql")
	default:
		return 0, "", "", false
	}

	num, name, found := strings.Cut(file, "_")
	if !found || name == "" {
		return 0, "", "", false
	}
	v, err := strconv.ParseUint(num, 10, 32)
	if err != nil || v == 0 {
		return 0, "", "", false
	}
	return uint(v), name, direction, true
}
