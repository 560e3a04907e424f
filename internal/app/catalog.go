package app

import (
	"context"

	"go.uber.org/zap"
)

// Catalog is the loaded semester index: the ordered semesters, their display
// names and the latest semester. A Catalog is immutable once built.
type Catalog struct {
	entries  []SemesterIndexEntry
	names    map[string]string
	latest   string
	fallback bool
}

// NewCatalog builds a catalog; the first entry is the latest semester.
func NewCatalog(entries []SemesterIndexEntry) *Catalog {
	c := &Catalog{
		entries: append([]SemesterIndexEntry(nil), entries...),
		names:   make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		c.names[e.Key()] = e.DisplayName()
	}
	if len(entries) > 0 {
		c.latest = entries[0].Key()
	}
	return c
}

// FallbackCatalog is used when the index cannot be loaded.
func FallbackCatalog() *Catalog {
	c := NewCatalog(FallbackSemesters)
	c.latest = DefaultLatestSemester
	c.fallback = true
	return c
}

// LoadCatalog fetches the semester index. It never fails: on error the
// hardcoded semesters are used and the error is logged.
func LoadCatalog(ctx context.Context, src Source, log *zap.Logger) *Catalog {
	entries, err := FetchSemesterIndex(ctx, src)
	if err != nil {
		log.Error("Error loading events index, using fallback semesters", zap.Error(err))
		catalogReloads.WithLabelValues("fallback").Inc()
		return FallbackCatalog()
	}
	catalogReloads.WithLabelValues("ok").Inc()
	return NewCatalog(entries)
}

// Entries returns the semesters in index order.
func (c *Catalog) Entries() []SemesterIndexEntry {
	return append([]SemesterIndexEntry(nil), c.entries...)
}

// Latest returns the key of the newest semester, "" for an empty index.
func (c *Catalog) Latest() string {
	return c.latest
}

// IsFallback reports whether the catalog came from the hardcoded table.
func (c *Catalog) IsFallback() bool {
	return c.fallback
}

// Has reports whether key is listed in the index.
func (c *Catalog) Has(key string) bool {
	_, ok := c.names[key]
	return ok
}

// Names returns a copy of the key -> display name table.
func (c *Catalog) Names() map[string]string {
	names := make(map[string]string, len(c.names))
	for k, v := range c.names {
		names[k] = v
	}
	return names
}

// DisplayName returns the label of a semester. Semesters missing from the index
// get a label derived from the key, so rendering never depends on the index.
func (c *Catalog) DisplayName(key string) string {
	if name, ok := c.names[key]; ok {
		return name
	}
	year, term, err := ParseSemesterKey(key)
	if err != nil {
		return key
	}
	return SemesterIndexEntry{Year: year, Term: term}.DisplayName()
}
