package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSession(t *testing.T, src Source) *Session {
	t.Helper()
	catalog := LoadCatalog(context.Background(), src, zap.NewNop())
	return NewSession(src, catalog, time.UTC, nil)
}

func TestSessionLoadSemester(t *testing.T) {
	s := newTestSession(t, newMemSource(testFiles()))
	assert.Equal(t, "", s.CurrentSemester())

	view, err := s.LoadSemester(context.Background(), "2024_fall", true)
	require.NoError(t, err)
	assert.Equal(t, "UMS Fall 2024 Events", view.Title)
	assert.Equal(t, CalendarSectionID, view.ScrollTarget)
	assert.Nil(t, view.Panel)
	assert.Len(t, view.Calendar.Cards, 4)
	assert.Equal(t, "2024_fall", s.CurrentSemester())
	assert.Len(t, s.CurrentEvents(), 5)
}

func TestSessionLoadSemester_FailureKeepsPrevious(t *testing.T) {
	files := testFiles()
	files["events/2023_fall_events.json"] = `not json`
	s := newTestSession(t, newMemSource(files))

	_, err := s.LoadSemester(context.Background(), "2024_fall", false)
	require.NoError(t, err)

	view, err := s.LoadSemester(context.Background(), "2023_fall", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidData))
	require.NotNil(t, view.Panel)
	assert.Equal(t, "Sorry, we couldn't load the events for Fall 2023.", view.Panel.Message)
	assert.NotEmpty(t, view.Panel.Detail)
	assert.Empty(t, view.ScrollTarget)

	assert.Equal(t, "2024_fall", s.CurrentSemester())

	view, err = s.LoadSemester(context.Background(), "2019_spring", false)
	require.Error(t, err)
	assert.Equal(t, "HTTP error! status: 404", view.Panel.Detail)
}

func TestSessionLoadSemester_Empty(t *testing.T) {
	files := testFiles()
	files["events/2024_summer_events.json"] = `[{"date": "Jul 1", "title": "No Title"}]`
	s := newTestSession(t, newMemSource(files))

	view, err := s.LoadSemester(context.Background(), "2024_summer", false)
	require.NoError(t, err)
	require.NotNil(t, view.Panel)
	assert.Equal(t, "No events found for this semester.", view.Panel.Message)
	assert.Equal(t, "2024_summer", s.CurrentSemester())
}

func TestSessionLoadSemester_Superseded(t *testing.T) {
	blocking := &blockingSource{next: newMemSource(testFiles()), release: make(chan struct{})}
	catalog := LoadCatalog(context.Background(), newMemSource(testFiles()), zap.NewNop())
	s := NewSession(blocking, catalog, time.UTC, nil)

	calls := func() int {
		blocking.mu.Lock()
		defer blocking.mu.Unlock()
		return blocking.calls
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := s.LoadSemester(context.Background(), "2024_spring", false)
		errCh <- err
	}()
	require.Eventually(t, func() bool { return calls() == 1 }, time.Second, 5*time.Millisecond)

	type loadResult struct {
		view *CalendarView
		err  error
	}
	newer := make(chan loadResult, 1)
	go func() {
		view, err := s.LoadSemester(context.Background(), "2024_fall", false)
		newer <- loadResult{view, err}
	}()
	require.Eventually(t, func() bool { return calls() == 2 }, time.Second, 5*time.Millisecond)

	// The newer load cancelled the one in flight
	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, ErrSuperseded))
	case <-time.After(time.Second):
		t.Fatal("superseded load did not return")
	}

	close(blocking.release)
	res := <-newer
	require.NoError(t, res.err)
	assert.Equal(t, "2024_fall", res.view.Semester)
	assert.Equal(t, "2024_fall", s.CurrentSemester())
}

func TestSessionLoadSemester_RepeatBehindCache(t *testing.T) {
	blocking := &blockingSource{next: newMemSource(testFiles()), release: make(chan struct{})}
	catalog := LoadCatalog(context.Background(), newMemSource(testFiles()), zap.NewNop())
	s := NewSession(NewCachedSource(blocking, nil, 0, nil), catalog, time.UTC, nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.LoadSemester(context.Background(), "2024_fall", false)
		errCh <- err
	}()
	require.Eventually(t, func() bool {
		blocking.mu.Lock()
		defer blocking.mu.Unlock()
		return blocking.calls == 1
	}, time.Second, 5*time.Millisecond)

	// The repeat load cancels the first one but may join its upstream fetch
	type loadResult struct {
		view *CalendarView
		err  error
	}
	newer := make(chan loadResult, 1)
	go func() {
		view, err := s.LoadSemester(context.Background(), "2024_fall", false)
		newer <- loadResult{view, err}
	}()

	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, ErrSuperseded))
	case <-time.After(time.Second):
		t.Fatal("superseded load did not return")
	}

	close(blocking.release)
	res := <-newer
	require.NoError(t, res.err)
	assert.Nil(t, res.view.Panel)
	assert.Len(t, res.view.Calendar.Cards, 4)
	assert.Equal(t, "2024_fall", s.CurrentSemester())
}

func TestSessionSelectLecture(t *testing.T) {
	src := newMemSource(testFiles())
	s := newTestSession(t, src)

	lecture := s.SelectLecture(context.Background(), testNow)
	require.NotNil(t, lecture)
	assert.Equal(t, "TBD", lecture.Title)
	assert.Equal(t, "Emmy Noether", lecture.Speaker)
	assert.Equal(t, "2024_fall", lecture.Semester)
	assert.Equal(t, "", s.CurrentSemester(), "selecting a lecture must not change the loaded semester")

	// With the latest semester loaded the events are reused
	_, err := s.LoadSemester(context.Background(), "2024_fall", false)
	require.NoError(t, err)
	before := src.count("events/2024_fall_events.json")
	require.NotNil(t, s.SelectLecture(context.Background(), testNow))
	assert.Equal(t, before, src.count("events/2024_fall_events.json"))
}

func TestSessionSelectLecture_Unavailable(t *testing.T) {
	s := NewSession(newMemSource(map[string]string{}), NewCatalog(nil), time.UTC, nil)
	assert.Nil(t, s.SelectLecture(context.Background(), testNow))

	s = NewSession(newMemSource(map[string]string{}), NewCatalog([]SemesterIndexEntry{{Year: 2024, Term: "fall"}}), time.UTC, nil)
	assert.Nil(t, s.SelectLecture(context.Background(), testNow))
}

func TestSessionLocate(t *testing.T) {
	tests := []struct {
		name         string
		preload      string
		lecture      ParsedEvent
		wantFound    bool
		wantTarget   string
		wantReloaded bool
	}{
		{
			name:       "found in current semester",
			preload:    "2024_fall",
			lecture:    ParsedEvent{Event: Event{Title: "Knots and Braids", Speaker: "Ada Lovelace"}, Semester: "2024_fall"},
			wantFound:  true,
			wantTarget: "event-1",
		},
		{
			name:         "other semester is loaded first",
			preload:      "2024_spring",
			lecture:      ParsedEvent{Event: Event{Title: "Lightning Talk A", Speaker: "Alan Turing"}, Semester: "2024_fall"},
			wantFound:    true,
			wantTarget:   "event-3",
			wantReloaded: true,
		},
		{
			name:       "not found falls back to the section",
			preload:    "2024_fall",
			lecture:    ParsedEvent{Event: Event{Title: "Unknown Talk", Speaker: "Nobody"}, Semester: "2024_fall"},
			wantTarget: CalendarSectionID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, newMemSource(testFiles()))
			_, err := s.LoadSemester(context.Background(), tt.preload, false)
			require.NoError(t, err)

			result := s.Locate(context.Background(), tt.lecture)
			assert.Equal(t, tt.wantFound, result.Found)
			assert.Equal(t, tt.wantTarget, result.Target)
			assert.Equal(t, tt.wantReloaded, result.Reloaded)
			require.NotNil(t, result.Calendar)
			assert.Equal(t, tt.lecture.Semester, result.Calendar.Semester)

			for _, card := range result.Calendar.Calendar.Cards {
				assert.Equal(t, tt.wantFound && card.Anchor == tt.wantTarget, card.Highlight, card.Anchor)
			}
			if tt.wantFound {
				assert.Equal(t, HighlightDuration.Milliseconds(), result.HighlightMS)
			}
		})
	}
}

func TestSessionLocate_LoadFailure(t *testing.T) {
	s := newTestSession(t, newMemSource(testFiles()))
	_, err := s.LoadSemester(context.Background(), "2024_fall", false)
	require.NoError(t, err)

	result := s.Locate(context.Background(), ParsedEvent{Event: Event{Title: "Old Talk"}, Semester: "2019_fall"})
	assert.False(t, result.Found)
	assert.Equal(t, CalendarSectionID, result.Target)
	require.NotNil(t, result.Calendar)
	require.NotNil(t, result.Calendar.Panel)
	assert.Equal(t, "2024_fall", s.CurrentSemester())
}
