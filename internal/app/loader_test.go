package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSemesterEvents(t *testing.T) {
	src := newMemSource(testFiles())

	events, err := FetchSemesterEvents(context.Background(), src, "2024_fall")
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.Equal(t, "Knots and Braids", events[0].Title)
	require.Len(t, events[3].Events, 2)
	assert.Equal(t, "Alan Turing", events[3].Events[0].Speaker)
	assert.Equal(t, "https://example.org/careers", events[4].Link)
}

func TestFetchSemesterEvents_Errors(t *testing.T) {
	tests := []struct {
		name     string
		semester string
		body     string
		check    func(t *testing.T, err error)
	}{
		{
			name:     "invalid key",
			semester: "../secrets",
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, ErrInvalidKey))
			},
		},
		{
			name:     "missing file",
			semester: "2019_fall",
			check: func(t *testing.T, err error) {
				var fe *FetchError
				require.True(t, errors.As(err, &fe))
				assert.Equal(t, http.StatusNotFound, fe.StatusCode)
				assert.Equal(t, "HTTP error! status: 404", err.Error())
			},
		},
		{
			name:     "not a list",
			semester: "2020_fall",
			body:     `{"events": []}`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, ErrInvalidData))
			},
		},
		{
			name:     "event without date",
			semester: "2020_fall",
			body:     `[{"title": "Undated"}]`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, ErrInvalidData))
				assert.Contains(t, err.Error(), "event 0")
			},
		},
		{
			name:     "sub-events nest only one level",
			semester: "2020_fall",
			body:     `[{"date": "Sep 1", "events": [{"title": "A", "events": [{"title": "B"}]}]}]`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, ErrInvalidData))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := map[string]string{}
			if tt.body != "" {
				files["events/"+tt.semester+"_events.json"] = tt.body
			}
			_, err := FetchSemesterEvents(context.Background(), newMemSource(files), tt.semester)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestFetchLeadership(t *testing.T) {
	src := newMemSource(testFiles())

	leaders, err := FetchLeadership(context.Background(), src, "2025")
	require.NoError(t, err)
	require.Len(t, leaders, 2)
	assert.Equal(t, "images/sofia.jpg", leaders[0].Image)
	assert.Empty(t, leaders[1].Image)

	_, err = FetchLeadership(context.Background(), src, "../2025")
	assert.Error(t, err)

	_, err = FetchLeadership(context.Background(), newMemSource(map[string]string{
		"data/leadership_2025.json": `[{"title": "President"}]`,
	}), "2025")
	assert.True(t, errors.Is(err, ErrInvalidData))
}

func TestFetchPreviousLeadership(t *testing.T) {
	prev, err := FetchPreviousLeadership(context.Background(), newMemSource(testFiles()))
	require.NoError(t, err)
	assert.Equal(t, PreviousTerm{President: "Carl Gauss", VicePresident: "Sophie Germain"}, prev["2023"])

	_, err = FetchPreviousLeadership(context.Background(), newMemSource(map[string]string{
		PreviousLeadershipPath: `{"last year": {"president": "X"}}`,
	}))
	assert.True(t, errors.Is(err, ErrInvalidData))
}

func TestFetchWorkshop(t *testing.T) {
	data, err := FetchWorkshop(context.Background(), newMemSource(testFiles()), DefaultWorkshopPath)
	require.NoError(t, err)
	assert.Equal(t, "Proof Writing Workshop Fall 2025", data.Title)
	require.Len(t, data.Material, 2)
	assert.Equal(t, "Direct Proofs", data.Material[0].Title)

	_, err = FetchWorkshop(context.Background(), newMemSource(map[string]string{
		DefaultWorkshopPath: `{"title": "x", "material": [{"week": 1}]}`,
	}), DefaultWorkshopPath)
	assert.True(t, errors.Is(err, ErrInvalidData))
}

func TestDirSource(t *testing.T) {
	root := writeSiteDir(t, testFiles())
	src := NewDirSource(root)

	data, err := src.Fetch(context.Background(), IndexPath)
	require.NoError(t, err)
	assert.JSONEq(t, testIndex, string(data))

	_, err = src.Fetch(context.Background(), "events/missing.json")
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)

	_, err = src.Fetch(context.Background(), "../outside.json")
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusBadRequest, fe.StatusCode)
}

func TestHTTPSource(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/events/index.json":
			w.Write([]byte(testIndex))
		case "/slow.json":
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`[]`))
		default:
			http.Error(w, "nope", http.StatusInternalServerError)
		}
	}))
	defer ts.Close()

	src := NewHTTPSource(ts.URL+"/", 50*time.Millisecond)

	data, err := src.Fetch(context.Background(), IndexPath)
	require.NoError(t, err)
	assert.JSONEq(t, testIndex, string(data))

	_, err = src.Fetch(context.Background(), "events/2024_fall_events.json")
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusInternalServerError, fe.StatusCode)
	assert.Equal(t, "HTTP error! status: 500", err.Error())

	_, err = src.Fetch(context.Background(), "slow.json")
	require.True(t, errors.As(err, &fe))
	assert.Zero(t, fe.StatusCode)
}
