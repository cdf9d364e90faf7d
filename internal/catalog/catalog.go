package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/liteapi-travel/hscode-assistant/internal/catalog/data"
)

// ErrEmptyCatalog is returned when no partition contributed any record.
var ErrEmptyCatalog = errors.New("catalog has no records")

// Catalog is an immutable, ordered collection of tariff records. It is safe
// for concurrent use.
type Catalog struct {
	records []TariffRecord
}

// New builds a catalog from one or more partitions, concatenated in order.
func New(partitions ...[]TariffRecord) *Catalog {
	n := 0
	for _, p := range partitions {
		n += len(p)
	}

	records := make([]TariffRecord, 0, n)
	for _, p := range partitions {
		records = append(records, p...)
	}
	return &Catalog{records: records}
}

// Load reads the named JSON partitions from fsys in the given order.
func Load(fsys fs.FS, names ...string) (*Catalog, error) {
	partitions := make([][]TariffRecord, 0, len(names))
	for _, name := range names {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read partition %s: %w", name, err)
		}

		var records []TariffRecord
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("parse partition %s: %w", name, err)
		}
		partitions = append(partitions, records)
	}

	c := New(partitions...)
	if c.Len() == 0 {
		return nil, ErrEmptyCatalog
	}
	return c, nil
}

// LoadFS loads every *.json file at the root of fsys, ordered by file name.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(path.Ext(e.Name()), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	return Load(fsys, names...)
}

// LoadDir loads the partitions from a directory on disk. An empty dir selects
// the partitions compiled into the binary.
func LoadDir(dir string) (*Catalog, error) {
	if dir == "" {
		return LoadFS(data.Partitions())
	}
	return LoadFS(os.DirFS(dir))
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	return len(c.records)
}

// Records returns a copy of all records in insertion order.
func (c *Catalog) Records() []TariffRecord {
	out := make([]TariffRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Search returns every record whose code, English name or Thai name contains
// query, compared case-insensitively, in catalog order. The query is not
// trimmed; an empty query matches every record.
func (c *Catalog) Search(query string) []TariffRecord {
	q := strings.ToLower(query)

	var matches []TariffRecord
	for _, r := range c.records {
		if strings.Contains(strings.ToLower(r.Code), q) ||
			strings.Contains(strings.ToLower(r.NameEN), q) ||
			strings.Contains(strings.ToLower(r.NameTH), q) {
			matches = append(matches, r)
		}
	}
	return matches
}
