package app

import (
	"strconv"
	"strings"
	"time"
)

// CardEntry is one talk inside a calendar card. Empty fields are not rendered.
type CardEntry struct {
	Title    string
	Speaker  string
	Abstract string
}

// CalendarCard is one date slot of the calendar
type CalendarCard struct {
	Anchor    string
	Label     DateLabel
	Entries   []CardEntry
	Multiple  bool   // slot groups several sub-events
	Centered  bool   // single event shown by speaker name only
	Link      string // non-empty makes the whole card a link
	Highlight bool
}

// Calendar is the rendered event list of one semester
type Calendar struct {
	Semester string
	Cards    []CalendarCard
}

// BuildCalendar turns events into cards, dropping placeholder events.
func BuildCalendar(events []Event, semester string, loc *time.Location) *Calendar {
	cal := &Calendar{Semester: semester}

	for _, event := range events {
		if !event.Renderable() {
			continue
		}

		_, label, _ := ParseEventDate(event.Date, semester, loc)
		card := CalendarCard{
			Anchor: "event-" + strconv.Itoa(len(cal.Cards)+1),
			Label:  label,
		}

		if event.HasSubEvents() {
			card.Multiple = true
			for _, sub := range event.Events {
				entry, _ := buildEntry(sub)
				card.Entries = append(card.Entries, entry)
			}
		} else {
			entry, bothTBD := buildEntry(event)
			card.Entries = []CardEntry{entry}
			card.Centered = bothTBD
			if link := strings.TrimSpace(event.Link); link != "" {
				card.Link = link
			}
		}

		cal.Cards = append(cal.Cards, card)
	}
	return cal
}

// buildEntry applies the placeholder rules to a single talk. When both title
// and abstract are TBD the speaker becomes the title and nothing else is shown.
func buildEntry(e Event) (CardEntry, bool) {
	if isTBD(e.Title) && isTBD(e.Abstract) {
		return CardEntry{Title: orNoTitle(e.Speaker)}, true
	}

	entry := CardEntry{Title: orNoTitle(e.Title)}
	if HasValidSpeaker(e.Speaker) {
		entry.Speaker = e.Speaker
	}
	if HasValidAbstract(e.Abstract) {
		entry.Abstract = e.Abstract
	}
	return entry, false
}

// HasValidSpeaker reports whether the speaker is a name rather than TBA/TBD
func HasValidSpeaker(speaker string) bool {
	s := strings.TrimSpace(speaker)
	return s != "" && !strings.EqualFold(s, PlaceholderTBA) && !strings.EqualFold(s, PlaceholderTBD)
}

// HasValidAbstract reports whether the abstract has real content
func HasValidAbstract(abstract string) bool {
	a := strings.TrimSpace(abstract)
	return a != "" &&
		a != PlaceholderAbstract &&
		a != PlaceholderAbstract+"." &&
		!strings.EqualFold(a, PlaceholderTBD)
}

func isTBD(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), PlaceholderTBD)
}

func orNoTitle(s string) string {
	if strings.TrimSpace(s) == "" {
		return PlaceholderNoTitle
	}
	return s
}

// Find returns the first card showing a talk with exactly this title and
// speaker (both compared trimmed). Cards without a rendered speaker never match.
func (c *Calendar) Find(title, speaker string) (CalendarCard, bool) {
	title = strings.TrimSpace(title)
	speaker = strings.TrimSpace(speaker)
	for _, card := range c.Cards {
		for _, entry := range card.Entries {
			if entry.Speaker == "" {
				continue
			}
			if strings.TrimSpace(entry.Title) == title && strings.TrimSpace(entry.Speaker) == speaker {
				return card, true
			}
		}
	}
	return CalendarCard{}, false
}

// MarkHighlight flags the card with the given anchor.
func (c *Calendar) MarkHighlight(anchor string) {
	for i := range c.Cards {
		c.Cards[i].Highlight = anchor != "" && c.Cards[i].Anchor == anchor
	}
}
