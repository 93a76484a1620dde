// Package cache persists the last built symbol index so a new activation can
// answer lookups before its first reload finishes.
package cache

import (
	"easierless/internal/engine/loader"
	"easierless/internal/engine/symbols"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// FormatVersion changes whenever the encoded layout does.
const FormatVersion = 2

type entry struct {
	Name  string `msgpack:"n"`
	Value string `msgpack:"v"`
	Root  string `msgpack:"r"`
}

type record struct {
	Path    string `msgpack:"p"`
	Root    string `msgpack:"r"`
	Content string `msgpack:"c"`
}

type indexData struct {
	Version      int       `msgpack:"ver"`
	GenerationID string    `msgpack:"gen"`
	BuiltAt      time.Time `msgpack:"at"`
	Roots        []string  `msgpack:"roots"`
	Variables    []entry   `msgpack:"vars"`
	Definitions  []entry   `msgpack:"defs"`
	Sources      []entry   `msgpack:"srcs"`
	Records      []record  `msgpack:"files"`
}

// Index is one decoded cache entry.
type Index struct {
	GenerationID string
	BuiltAt      time.Time
	Roots        []string
	Table        *symbols.Table
	Records      []loader.FileRecord
}

// Save writes idx to path, replacing any previous cache atomically.
func Save(path string, idx Index) error {
	data := indexData{
		Version:      FormatVersion,
		GenerationID: idx.GenerationID,
		BuiltAt:      idx.BuiltAt.UTC(),
		Roots:        idx.Roots,
	}
	if idx.Table != nil {
		data.Variables = entries(idx.Table, symbols.Names(idx.Table.Variables()), idx.Table.Variable)
		data.Definitions = entries(idx.Table, symbols.Names(idx.Table.Definitions()), idx.Table.Definition)
		for p := idx.Table.Sources().Oldest(); p != nil; p = p.Next() {
			data.Sources = append(data.Sources, entry{Name: p.Key, Root: p.Value})
		}
	}
	for _, r := range idx.Records {
		data.Records = append(data.Records, record{Path: r.Path, Root: r.Root, Content: r.Content})
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache directory %q: %w", dir, err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := msgpack.NewEncoder(tmp).Encode(&data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode index cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace cache file %q: %w", path, err)
	}
	return nil
}

func entries(t *symbols.Table, names []string, get func(string) (string, bool)) []entry {
	out := make([]entry, 0, len(names))
	for _, name := range names {
		value, _ := get(name)
		root, _ := t.SourceOf(name)
		out = append(out, entry{Name: name, Value: value, Root: root})
	}
	return out
}

// Load reads the cache at path. A missing file returns ok=false and no
// error; a cache written by another format version is treated as missing.
func Load(path string) (Index, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Index{}, false, nil
		}
		return Index{}, false, fmt.Errorf("open cache file: %w", err)
	}
	defer file.Close()

	var data indexData
	if err := msgpack.NewDecoder(file).Decode(&data); err != nil {
		return Index{}, false, fmt.Errorf("decode index cache: %w", err)
	}
	if data.Version != FormatVersion {
		return Index{}, false, nil
	}

	// Sources go first so their discovery order survives the restore.
	table := symbols.NewTable()
	for _, e := range data.Sources {
		table.SetSource(e.Name, e.Root)
	}
	for _, e := range data.Variables {
		table.AddVariable(e.Name, e.Value, e.Root)
	}
	for _, e := range data.Definitions {
		table.AddDefinition(e.Name, e.Value, e.Root)
	}
	records := make([]loader.FileRecord, 0, len(data.Records))
	for _, r := range data.Records {
		records = append(records, loader.FileRecord{Path: r.Path, Root: r.Root, Content: r.Content})
	}
	return Index{
		GenerationID: data.GenerationID,
		BuiltAt:      data.BuiltAt,
		Roots:        data.Roots,
		Table:        table,
		Records:      records,
	}, true, nil
}
