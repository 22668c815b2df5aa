// Package repository loads migrations from YAML files in a directory.
package repository

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"github.com/alchemy-swift/alchemy-sub004/internal/core/migration/domain"
	"github.com/alchemy-swift/alchemy-sub004/internal/debug"
)

// ErrDuplicateMigration is returned when two files declare the same name.
var ErrDuplicateMigration = errors.New("duplicate migration name")

var validName = regexp.MustCompile(`^[a-z0-9_]+$`)

// Repository reads migration files from dir on fs.
type Repository struct {
	fs  afero.Fs
	dir string
}

// NewRepository creates a repository rooted at dir.
func NewRepository(fs afero.Fs, dir string) *Repository {
	return &Repository{fs: fs, dir: dir}
}

// Dir returns the migrations directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Files returns the migration file paths sorted by file name.
func (r *Repository) Files() ([]string, error) {
	entries, err := afero.ReadDir(r.fs, r.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsMigrationFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(r.dir, e.Name()))
	}
	sort.Slice(files, func(i, j int) bool {
		return filepath.Base(files[i]) < filepath.Base(files[j])
	})
	return files, nil
}

// Load parses every migration file in order.
func (r *Repository) Load() ([]domain.Migration, error) {
	files, err := r.Files()
	if err != nil {
		return nil, err
	}

	migrations := make([]domain.Migration, 0, len(files))
	seen := make(map[string]string, len(files))
	for _, path := range files {
		m, err := r.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[m.Name]; ok {
			return nil, fmt.Errorf("%w %q in %s and %s", ErrDuplicateMigration, m.Name, prev, path)
		}
		seen[m.Name] = path
		migrations = append(migrations, m)
	}
	debug.Debug("loaded migrations", "dir", r.dir, "count", len(migrations))
	return migrations, nil
}

// LoadFile parses the migration at path.
func (r *Repository) LoadFile(path string) (domain.Migration, error) {
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return domain.Migration{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	m, err := Parse(stem(path), data)
	if err != nil {
		return domain.Migration{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a migration file. id names the migration when the file
// does not.
func Parse(id string, data []byte) (domain.Migration, error) {
	var f migrationFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return domain.Migration{}, fmt.Errorf("failed to parse migration: %w", err)
	}
	if err := checkFormat(f.Format); err != nil {
		return domain.Migration{}, err
	}

	up, err := toChanges(f.Up)
	if err != nil {
		return domain.Migration{}, fmt.Errorf("up: %w", err)
	}
	down, err := toChanges(f.Down)
	if err != nil {
		return domain.Migration{}, fmt.Errorf("down: %w", err)
	}

	name := f.Name
	if name == "" {
		name = id
	}
	sum := sha256.Sum256(data)
	return domain.Migration{
		ID:       id,
		Name:     name,
		Up:       up,
		Down:     down,
		Checksum: hex.EncodeToString(sum[:]),
	}, nil
}

// Create writes an empty migration named "<timestamp>_<name>.yaml" and
// returns its path.
func (r *Repository) Create(name string, now time.Time) (string, error) {
	if !validName.MatchString(name) {
		return "", fmt.Errorf("invalid migration name %q: use lowercase letters, digits and underscores", name)
	}
	if err := r.fs.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create migrations directory: %w", err)
	}

	id := now.UTC().Format("20060102150405") + "_" + name
	path := filepath.Join(r.dir, id+".yaml")
	if exists, _ := afero.Exists(r.fs, path); exists {
		return "", fmt.Errorf("migration %s already exists", path)
	}

	data, err := yaml.Marshal(migrationFile{Format: CurrentFormat, Name: id, Up: []changeSpec{}, Down: []changeSpec{}})
	if err != nil {
		return "", err
	}
	if err := afero.WriteFile(r.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// IsMigrationFile reports whether name has a migration file extension.
func IsMigrationFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
