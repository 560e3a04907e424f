package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadCatalog(t *testing.T) {
	src := newMemSource(testFiles())

	c := LoadCatalog(context.Background(), src, zap.NewNop())
	assert.False(t, c.IsFallback())
	assert.Equal(t, "2024_fall", c.Latest())
	require.Len(t, c.Entries(), 2)
	assert.Equal(t, "Fall 2024", c.DisplayName("2024_fall"))
	assert.Equal(t, "Spring 2024", c.DisplayName("2024_spring"))
	assert.True(t, c.Has("2024_spring"))
	assert.False(t, c.Has("2023_fall"))
}

func TestLoadCatalog_Fallback(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{name: "missing index", files: map[string]string{}},
		{name: "malformed json", files: map[string]string{IndexPath: `{"year": 2024`}},
		{name: "wrong shape", files: map[string]string{IndexPath: `{"semesters": []}`}},
		{name: "entry without term", files: map[string]string{IndexPath: `[{"year": 2024, "term": ""}]`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := LoadCatalog(context.Background(), newMemSource(tt.files), zap.NewNop())
			assert.True(t, c.IsFallback())
			assert.Equal(t, DefaultLatestSemester, c.Latest())
			assert.Len(t, c.Entries(), len(FallbackSemesters))
			assert.Equal(t, "Fall 2025", c.DisplayName("2025_fall"))
		})
	}
}

func TestLoadCatalog_EmptyIndex(t *testing.T) {
	c := LoadCatalog(context.Background(), newMemSource(map[string]string{IndexPath: `[]`}), zap.NewNop())
	assert.False(t, c.IsFallback())
	assert.Empty(t, c.Entries())
	assert.Equal(t, "", c.Latest())
}

func TestCatalogDisplayName_Unknown(t *testing.T) {
	c := NewCatalog([]SemesterIndexEntry{{Year: 2024, Term: "fall"}})

	assert.Equal(t, "Summer 2019", c.DisplayName("2019_summer"))
	assert.Equal(t, "not-a-key", c.DisplayName("not-a-key"))
}

func TestCatalogEntriesAreCopies(t *testing.T) {
	c := NewCatalog([]SemesterIndexEntry{{Year: 2024, Term: "fall"}})
	entries := c.Entries()
	entries[0].Term = "spring"
	assert.Equal(t, "fall", c.Entries()[0].Term)

	names := c.Names()
	names["2024_fall"] = "changed"
	assert.Equal(t, "Fall 2024", c.DisplayName("2024_fall"))
}
