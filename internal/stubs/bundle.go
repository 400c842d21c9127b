package stubs

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/exp/slices"
	_ "modernc.org/sqlite"

	"github.com/funvibe/stubinfer/internal/config"
)

const bundleFormat = "1"

const bundleSchema = `
CREATE TABLE IF NOT EXISTS stubs (path TEXT PRIMARY KEY, source TEXT NOT NULL);
CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);
`

// Bundle is a SQLite file of stub sources keyed by slash-separated path.
// It implements fs.FS so a SourceProvider can read it like a directory.
type Bundle struct {
	db   *sql.DB
	Path string
}

// OpenBundle opens an existing bundle read-only.
func OpenBundle(file string) (*Bundle, error) {
	if _, err := os.Stat(file); err != nil {
		return nil, fmt.Errorf("opening bundle: %w", err)
	}
	db, err := sql.Open("sqlite", "file:"+file+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening bundle %s: %w", file, err)
	}
	var format string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = 'format'`).Scan(&format); err != nil {
		db.Close()
		return nil, fmt.Errorf("bundle %s: reading format: %w", file, err)
	}
	if format != bundleFormat {
		db.Close()
		return nil, fmt.Errorf("bundle %s: unsupported format %q", file, format)
	}
	return &Bundle{db: db, Path: file}, nil
}

func (b *Bundle) Close() error {
	return b.db.Close()
}

// ReadFile returns the source stored under name.
func (b *Bundle) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrInvalid}
	}
	var src string
	err := b.db.QueryRow(`SELECT source FROM stubs WHERE path = ?`, name).Scan(&src)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	return []byte(src), nil
}

// Open serves stored files and the directories implied by their paths.
func (b *Bundle) Open(name string) (fs.File, error) {
	data, err := b.ReadFile(name)
	if err == nil {
		return &memFile{name: path.Base(name), r: bytes.NewReader(data), size: int64(len(data))}, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	var n int
	prefix := name + "/"
	if name == "." {
		prefix = ""
	}
	if err := b.db.QueryRow(`SELECT COUNT(*) FROM stubs WHERE substr(path, 1, ?) = ?`, len(prefix), prefix).Scan(&n); err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	if n == 0 {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return &memFile{name: path.Base(name), dir: true}, nil
}

// Paths lists every stored path, sorted.
func (b *Bundle) Paths() ([]string, error) {
	rows, err := b.db.Query(`SELECT path FROM stubs ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// WriteBundle packs every .pyi file under dirs into a new bundle at file.
// Paths are stored relative to their root; earlier roots win on collisions.
func WriteBundle(file string, dirs ...string) (int, error) {
	sources := make(map[string]string)
	for _, dir := range dirs {
		root := os.DirFS(dir)
		err := fs.WalkDir(root, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(p, config.StubFileExt) {
				return nil
			}
			if _, seen := sources[p]; seen {
				return nil
			}
			data, err := fs.ReadFile(root, p)
			if err != nil {
				return err
			}
			sources[p] = string(data)
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("collecting stubs from %s: %w", dir, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return 0, err
	}
	if err := os.Remove(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, err
	}
	db, err := sql.Open("sqlite", file)
	if err != nil {
		return 0, fmt.Errorf("creating bundle %s: %w", file, err)
	}
	defer db.Close()
	if _, err := db.Exec(bundleSchema); err != nil {
		return 0, fmt.Errorf("creating bundle schema: %w", err)
	}
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	paths := lo.Keys(sources)
	slices.Sort(paths)
	for _, p := range paths {
		if _, err := tx.Exec(`INSERT INTO stubs (path, source) VALUES (?, ?)`, p, sources[p]); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("storing %s: %w", p, err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES ('format', ?), ('created', ?)`,
		bundleFormat, time.Now().UTC().Format(time.RFC3339)); err != nil {
		tx.Rollback()
		return 0, err
	}
	return len(paths), tx.Commit()
}

// NewBundleProvider serves the stubs of an opened bundle.
func NewBundleProvider(b *Bundle, logger *log.Logger) *SourceProvider {
	return NewSourceProvider(b, logger)
}

// memFile is a read-only fs.File over a stored source.
type memFile struct {
	name string
	r    *bytes.Reader
	size int64
	dir  bool
}

func (f *memFile) Stat() (fs.FileInfo, error) { return f, nil }
func (f *memFile) Close() error               { return nil }

func (f *memFile) Read(p []byte) (int, error) {
	if f.dir {
		return 0, &fs.PathError{Op: "read", Path: f.name, Err: fs.ErrInvalid}
	}
	return f.r.Read(p)
}

func (f *memFile) Name() string       { return f.name }
func (f *memFile) Size() int64        { return f.size }
func (f *memFile) ModTime() time.Time { return time.Time{} }
func (f *memFile) IsDir() bool        { return f.dir }
func (f *memFile) Sys() any           { return nil }

func (f *memFile) Mode() fs.FileMode {
	if f.dir {
		return fs.ModeDir | 0o555
	}
	return 0o444
}
