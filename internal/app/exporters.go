package app

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

// ExportEvent is one dated talk of an export. Sub-events of a slot become
// separate entries sharing the slot's date.
type ExportEvent struct {
	Semester string    `json:"semester"`
	Date     time.Time `json:"-"`
	Day      string    `json:"date"`
	Title    string    `json:"title"`
	Speaker  string    `json:"speaker,omitempty"`
	Abstract string    `json:"abstract,omitempty"`
	Link     string    `json:"link,omitempty"`
}

// ExportEvents flattens the renderable events of a semester into dated talks,
// applying the same placeholder rules as the calendar. Events whose date cannot
// be parsed are left out.
func ExportEvents(events []Event, semester string, loc *time.Location) []ExportEvent {
	var out []ExportEvent
	for _, event := range events {
		if !event.Renderable() {
			continue
		}
		date, _, ok := ParseEventDate(event.Date, semester, loc)
		if !ok {
			continue
		}

		talks := []Event{event}
		if event.HasSubEvents() {
			talks = event.Events
		}
		for _, talk := range talks {
			entry, _ := buildEntry(talk)
			out = append(out, ExportEvent{
				Semester: semester,
				Date:     date,
				Day:      date.Format("2006-01-02"),
				Title:    entry.Title,
				Speaker:  entry.Speaker,
				Abstract: entry.Abstract,
				Link:     strings.TrimSpace(talk.Link),
			})
		}
	}
	return out
}

// eventUID is stable across exports of the same data.
func eventUID(e ExportEvent) string {
	return fmt.Sprintf("%s-%s-%s@%s", e.Semester, e.Date.Format("20060102"), slug(e.Title+" "+e.Speaker), ICSDomain)
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
		} else if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func summary(e ExportEvent) string {
	if e.Speaker == "" {
		return e.Title
	}
	return e.Title + " (" + e.Speaker + ")"
}

func addVEvent(cal *ics.Calendar, e ExportEvent, location string, stamp time.Time) *ics.VEvent {
	event := cal.AddEvent(eventUID(e))
	event.SetDtStampTime(stamp)
	event.SetAllDayStartAt(e.Date)
	event.SetAllDayEndAt(e.Date.AddDate(0, 0, 1))
	event.SetSummary(summary(e))
	if e.Abstract != "" {
		event.SetDescription(e.Abstract)
	}
	if location != "" {
		event.SetLocation(location)
	}
	if e.Link != "" {
		event.SetURL(e.Link)
	}
	return event
}

// newCalendar starts a VCALENDAR with the site's product id.
func newCalendar(calName string) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetProductId(ICSProductID)
	cal.SetXWRCalName(calName)
	cal.SetCalscale("GREGORIAN")
	return cal
}

// Reminder asks for a VALARM a number of days before a lecture, at HH:MM.
type Reminder struct {
	DaysBefore int
	At         string
}

// RemindersFromQuery reads the reminder1Day/time1Day and
// reminderSameDay/timeSameDay parameters.
func RemindersFromQuery(r *http.Request) []Reminder {
	q := r.URL.Query()
	var out []Reminder
	if q.Get("reminder1Day") == "true" && q.Get("time1Day") != "" {
		out = append(out, Reminder{DaysBefore: 1, At: q.Get("time1Day")})
	}
	if q.Get("reminderSameDay") == "true" && q.Get("timeSameDay") != "" {
		out = append(out, Reminder{DaysBefore: 0, At: q.Get("timeSameDay")})
	}
	return out
}

// GenerateICS writes a downloadable iCalendar file for a semester.
func GenerateICS(w http.ResponseWriter, semester, calName, location string, events []ExportEvent, reminders []Reminder) error {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=ums_lectures_%s.ics", semester))

	cal := newCalendar(calName)
	stamp := time.Now()
	for _, e := range events {
		event := addVEvent(cal, e, location, stamp)
		for _, rem := range reminders {
			addAlarm(event, rem.DaysBefore, rem.At, summary(e))
		}
	}
	return cal.SerializeTo(w)
}

// addAlarm adds a reminder at alarmTime (HH:MM) daysBefore the event day.
// Invalid times are ignored.
func addAlarm(event *ics.VEvent, daysBefore int, alarmTime string, description string) {
	trigger, ok := alarmTrigger(daysBefore, alarmTime)
	if !ok {
		return
	}
	alarm := event.AddAlarm()
	alarm.SetAction(ics.ActionDisplay)
	alarm.SetProperty(ics.ComponentPropertyDescription, "Reminder: "+description)
	alarm.SetTrigger(trigger)
}

// alarmTrigger returns the duration from the start of an all-day event to
// alarmTime daysBefore it, e.g. "-P0DT5H0M" for 19:00 the evening before.
func alarmTrigger(daysBefore int, alarmTime string) (string, bool) {
	parts := strings.Split(alarmTime, ":")
	if len(parts) != 2 {
		return "", false
	}

	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", false
	}

	offset := time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute - time.Duration(daysBefore)*24*time.Hour

	totalMinutes := int(offset.Minutes())
	sign := ""
	if totalMinutes < 0 {
		sign = "-"
		totalMinutes = -totalMinutes
	}

	days := totalMinutes / (24 * 60)
	rest := totalMinutes % (24 * 60)
	return fmt.Sprintf("%sP%dDT%dH%dM", sign, days, rest/60, rest%60), true
}

// GenerateCSV writes Date,Title,Speaker,Abstract rows.
func GenerateCSV(w http.ResponseWriter, semester string, events []ExportEvent) error {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=ums_lectures_%s.csv", semester))

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Title", "Speaker", "Abstract"}); err != nil {
		return err
	}
	for _, e := range events {
		if err := cw.Write([]string{e.Day, e.Title, e.Speaker, e.Abstract}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// GenerateJSON writes {semester, events}.
func GenerateJSON(w http.ResponseWriter, semester string, events []ExportEvent) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=ums_lectures_%s.json", semester))

	if events == nil {
		events = []ExportEvent{}
	}
	data := map[string]interface{}{
		"semester": semester,
		"events":   events,
	}
	return json.NewEncoder(w).Encode(data)
}

// GenerateSubscriptionICS writes an iCalendar feed for calendar subscriptions:
// inline content, no alarms, METHOD:PUBLISH and a refresh hint.
func GenerateSubscriptionICS(w http.ResponseWriter, calName, location string, events []ExportEvent) error {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")

	cal := newCalendar(calName)
	cal.SetMethod(ics.MethodPublish)
	cal.SetXPublishedTTL("PT1H")

	stamp := time.Now()
	for _, e := range events {
		addVEvent(cal, e, location, stamp)
	}
	return cal.SerializeTo(w)
}
