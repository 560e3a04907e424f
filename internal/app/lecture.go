package app

import (
	"sort"
	"time"
)

// PickLecture chooses the lecture for the front page card: the earliest event
// on or after today, otherwise the most recent past event, otherwise nil.
// Days are compared in loc; an event dated today counts as upcoming.
func PickLecture(events []Event, semester string, now time.Time, loc *time.Location) *ParsedEvent {
	if loc == nil {
		loc = time.UTC
	}
	today := startOfDay(now, loc)

	var upcoming, past []ParsedEvent
	for _, event := range events {
		if !event.HasValidTitle() {
			continue
		}
		date, _, ok := ParseEventDate(event.Date, semester, loc)
		if !ok {
			continue
		}

		parsed := ParsedEvent{Event: event, ParsedDate: date, Semester: semester}
		if !startOfDay(date, loc).Before(today) {
			upcoming = append(upcoming, parsed)
		} else {
			past = append(past, parsed)
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].ParsedDate.Before(upcoming[j].ParsedDate)
	})
	sort.SliceStable(past, func(i, j int) bool {
		return past[i].ParsedDate.After(past[j].ParsedDate)
	})

	switch {
	case len(upcoming) > 0:
		return &upcoming[0]
	case len(past) > 0:
		return &past[0]
	default:
		return nil
	}
}
