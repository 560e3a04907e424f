package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Session tracks what one visitor is looking at: the semester catalog, the
// loaded semester and its rendered calendar. Loads are cancel-and-replace: a
// new LoadSemester cancels the one in flight, and only the newest load commits.
type Session struct {
	src Source
	loc *time.Location
	log *zap.Logger

	mu       sync.Mutex
	catalog  *Catalog
	semester string
	events   []Event
	calendar *Calendar
	gen      uint64
	cancel   context.CancelFunc
}

// NewSession starts a session with nothing loaded.
func NewSession(src Source, catalog *Catalog, loc *time.Location, log *zap.Logger) *Session {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{src: src, catalog: catalog, loc: loc, log: log}
}

// Catalog returns the semester catalog of the session.
func (s *Session) Catalog() *Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog
}

// CurrentSemester returns the key of the loaded semester, "" before the first load.
func (s *Session) CurrentSemester() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.semester
}

// CurrentEvents returns the events of the loaded semester.
func (s *Session) CurrentEvents() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// LoadSemester fetches a semester, makes it current and renders its calendar.
// It returns once the calendar is rendered. On failure the returned view holds
// the error panel, the previous semester stays current, and the error is
// returned as well. A load replaced by a newer one returns ErrSuperseded.
func (s *Session) LoadSemester(ctx context.Context, semester string, scroll bool) (*CalendarView, error) {
	start := time.Now()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	catalog := s.catalog
	s.mu.Unlock()
	defer cancel()

	name := catalog.DisplayName(semester)
	s.log.Info("Loading events", zap.String("semester", semester))

	events, err := FetchSemesterEvents(ctx, s.src, semester)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		s.log.Debug("Discarding superseded load", zap.String("semester", semester))
		return nil, ErrSuperseded
	}
	s.cancel = nil

	view := &CalendarView{Semester: semester, Title: calendarTitle(name)}
	if scroll {
		view.ScrollTarget = CalendarSectionID
	}

	if err != nil {
		s.log.Error("Error loading events", zap.String("semester", semester), zap.Error(err))
		sectionRenders.WithLabelValues("calendar", "error").Observe(time.Since(start).Seconds())
		view.Calendar = &Calendar{Semester: semester}
		view.Panel = errorPanel("Sorry, we couldn't load the events for "+name+".", err)
		return view, err
	}

	s.semester = semester
	s.events = events
	s.calendar = BuildCalendar(events, semester, s.loc)

	view.Calendar = s.calendar
	if len(s.calendar.Cards) == 0 {
		view.Panel = &Panel{Message: "No events found for this semester."}
	}
	sectionRenders.WithLabelValues("calendar", "ok").Observe(time.Since(start).Seconds())
	return view, nil
}

func calendarTitle(name string) string {
	return "UMS " + name + " Events"
}

// SelectLecture picks the front page lecture from the latest semester. The
// loaded events are reused when the latest semester is current; otherwise the
// latest semester is fetched without changing the session.
func (s *Session) SelectLecture(ctx context.Context, now time.Time) *ParsedEvent {
	s.mu.Lock()
	latest := s.catalog.Latest()
	var events []Event
	loaded := latest != "" && s.semester == latest && s.calendar != nil
	if loaded {
		events = s.events
	}
	s.mu.Unlock()

	if latest == "" {
		return nil
	}

	if !loaded {
		var err error
		events, err = FetchSemesterEvents(ctx, s.src, latest)
		if err != nil {
			s.log.Warn("Could not fetch latest semester for the lecture card",
				zap.String("semester", latest), zap.Error(err))
			return nil
		}
	}
	return PickLecture(events, latest, now, s.loc)
}

// LocateResult tells the client where to scroll after locating an event.
type LocateResult struct {
	Semester    string        `json:"semester"`
	Found       bool          `json:"found"`
	Anchor      string        `json:"anchor,omitempty"`
	Target      string        `json:"target"`
	HighlightMS int64         `json:"highlight_ms,omitempty"`
	Reloaded    bool          `json:"reloaded"`
	Calendar    *CalendarView `json:"-"`
}

// Locate finds the card of a lecture in the rendered calendar, loading the
// lecture's semester first when another one is current. Only the calendar that
// is current after that load is searched. When no card matches the target is
// the calendar section.
func (s *Session) Locate(ctx context.Context, lecture ParsedEvent) LocateResult {
	result := LocateResult{Semester: lecture.Semester, Target: CalendarSectionID}

	if lecture.Semester != s.CurrentSemester() {
		view, err := s.LoadSemester(ctx, lecture.Semester, false)
		if err != nil {
			if !errors.Is(err, ErrSuperseded) {
				result.Calendar = view
			}
			locatorResults.WithLabelValues("load_failed").Inc()
			return result
		}
		result.Reloaded = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.calendar == nil {
		locatorResults.WithLabelValues("not_found").Inc()
		return result
	}

	card, ok := s.calendar.Find(strings.TrimSpace(lecture.Title), strings.TrimSpace(lecture.Speaker))
	if ok {
		s.calendar.MarkHighlight(card.Anchor)
		result.Found = true
		result.Anchor = card.Anchor
		result.Target = card.Anchor
		result.HighlightMS = HighlightDuration.Milliseconds()
		locatorResults.WithLabelValues("found").Inc()
	} else {
		s.log.Debug("Event not found in calendar",
			zap.String("semester", lecture.Semester), zap.String("title", lecture.Title))
		locatorResults.WithLabelValues("not_found").Inc()
	}

	result.Calendar = &CalendarView{
		Semester: s.semester,
		Title:    calendarTitle(s.catalog.DisplayName(s.semester)),
		Calendar: s.calendar,
	}
	if len(s.calendar.Cards) == 0 {
		result.Calendar.Panel = &Panel{Message: "No events found for this semester."}
	}
	return result
}
