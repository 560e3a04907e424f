package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// decodeResource unmarshals a fetched document, reporting shape mismatches as
// ErrInvalidData.
func decodeResource(data []byte, resource string, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &DataError{Resource: resource, Reason: err.Error()}
	}
	return nil
}

func fetchJSON(ctx context.Context, src Source, kind, name string, v interface{}) error {
	data, err := src.Fetch(ctx, name)
	if err == nil {
		err = decodeResource(data, name, v)
	}
	resourceFetches.WithLabelValues(kind, fetchStatus(err)).Inc()
	return err
}

// FetchSemesterIndex loads events/index.json
func FetchSemesterIndex(ctx context.Context, src Source) ([]SemesterIndexEntry, error) {
	var entries []SemesterIndexEntry
	if err := fetchJSON(ctx, src, "index", IndexPath, &entries); err != nil {
		return nil, err
	}
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, &DataError{Resource: IndexPath, Entry: fmt.Sprintf("entry %d", i), Reason: err.Error()}
		}
	}
	return entries, nil
}

// FetchSemesterEvents loads the event list of one semester
func FetchSemesterEvents(ctx context.Context, src Source, semester string) ([]Event, error) {
	if _, _, err := ParseSemesterKey(semester); err != nil {
		return nil, err
	}
	name := fmt.Sprintf(EventsPathFormat, semester)

	var events []Event
	if err := fetchJSON(ctx, src, "events", name, &events); err != nil {
		return nil, err
	}
	for i, e := range events {
		if err := e.Validate(true); err != nil {
			return nil, &DataError{Resource: name, Entry: fmt.Sprintf("event %d", i), Reason: err.Error()}
		}
	}
	return events, nil
}

// FetchLeadership loads the leadership roster of a year
func FetchLeadership(ctx context.Context, src Source, year string) ([]Leader, error) {
	if _, err := strconv.Atoi(year); err != nil {
		return nil, fmt.Errorf("invalid leadership year %q", year)
	}
	name := fmt.Sprintf(LeadershipPathFormat, year)

	var leaders []Leader
	if err := fetchJSON(ctx, src, "leadership", name, &leaders); err != nil {
		return nil, err
	}
	for i, l := range leaders {
		if err := l.Validate(); err != nil {
			return nil, &DataError{Resource: name, Entry: fmt.Sprintf("leader %d", i), Reason: err.Error()}
		}
	}
	return leaders, nil
}

// FetchPreviousLeadership loads the year -> officers map
func FetchPreviousLeadership(ctx context.Context, src Source) (PreviousLeadership, error) {
	var prev PreviousLeadership
	if err := fetchJSON(ctx, src, "previous_leadership", PreviousLeadershipPath, &prev); err != nil {
		return nil, err
	}
	for year := range prev {
		if _, err := strconv.Atoi(year); err != nil {
			return nil, &DataError{Resource: PreviousLeadershipPath, Entry: fmt.Sprintf("year %q", year), Reason: "year is not a number"}
		}
	}
	return prev, nil
}

// FetchWorkshop loads the current proof writing workshop file
func FetchWorkshop(ctx context.Context, src Source, name string) (*WorkshopData, error) {
	var data WorkshopData
	if err := fetchJSON(ctx, src, "workshop", name, &data); err != nil {
		return nil, err
	}
	for i, w := range data.Material {
		if err := w.Validate(); err != nil {
			return nil, &DataError{Resource: name, Entry: fmt.Sprintf("material %d", i), Reason: err.Error()}
		}
	}
	return &data, nil
}

// Validate checks an index entry
func (e SemesterIndexEntry) Validate() error {
	if e.Year <= 0 {
		return fmt.Errorf("year must be positive, got %d", e.Year)
	}
	if strings.TrimSpace(e.Term) == "" {
		return fmt.Errorf("term is required")
	}
	if _, _, err := ParseSemesterKey(e.Key()); err != nil {
		return err
	}
	return nil
}

// Validate checks an event. Sub-events share the date of their slot, so only
// top-level events must carry one.
func (e Event) Validate(topLevel bool) error {
	if topLevel && strings.TrimSpace(e.Date) == "" {
		return fmt.Errorf("date is required")
	}
	for i, sub := range e.Events {
		if sub.HasSubEvents() {
			return fmt.Errorf("sub-event %d: nested events may not nest further", i)
		}
		if err := sub.Validate(false); err != nil {
			return fmt.Errorf("sub-event %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks a leader card
func (l Leader) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(l.Title) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// Validate checks a workshop entry
func (w Workshop) Validate() error {
	if w.Week <= 0 {
		return fmt.Errorf("week must be positive, got %d", w.Week)
	}
	if strings.TrimSpace(w.PDFLink) == "" {
		return fmt.Errorf("pdf_link is required")
	}
	return nil
}
