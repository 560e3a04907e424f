package app

import (
	"strconv"
	"strings"
	"time"
)

// SemesterIndexEntry is one row of events/index.json
type SemesterIndexEntry struct {
	Year int    `json:"year"`
	Term string `json:"term"`
}

// Key returns the semester key, e.g. "2024_fall"
func (e SemesterIndexEntry) Key() string {
	return strconv.Itoa(e.Year) + "_" + e.Term
}

// DisplayName returns the human label, e.g. "Fall 2024"
func (e SemesterIndexEntry) DisplayName() string {
	return capitalize(e.Term) + " " + strconv.Itoa(e.Year)
}

// Event represents a single calendar entry of a semester
type Event struct {
	Title    string  `json:"title"`
	Date     string  `json:"date"`
	Speaker  string  `json:"speaker,omitempty"`
	Abstract string  `json:"abstract,omitempty"`
	Link     string  `json:"link,omitempty"`
	Events   []Event `json:"events,omitempty"`
}

// HasSubEvents reports whether the event groups several talks in one slot
func (e Event) HasSubEvents() bool {
	return len(e.Events) > 0
}

// HasValidTitle reports whether the title is something other than a placeholder
func (e Event) HasValidTitle() bool {
	title := strings.TrimSpace(e.Title)
	return title != "" && title != PlaceholderNoTitle && title != PlaceholderNBSP
}

// Renderable reports whether the event gets a calendar slot
func (e Event) Renderable() bool {
	return e.HasValidTitle() || e.HasSubEvents()
}

// ParsedEvent is an event with its resolved date, used for lecture selection
type ParsedEvent struct {
	Event
	ParsedDate time.Time
	Semester   string
}

// Leader is one card of the current leadership roster
type Leader struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Image string `json:"image,omitempty"`
	Bio   string `json:"bio,omitempty"`
}

// PreviousTerm holds the officers of one past year
type PreviousTerm struct {
	President     string `json:"president"`
	VicePresident string `json:"vice president,omitempty"`
}

// PreviousLeadership maps a year ("2021") to its officers
type PreviousLeadership map[string]PreviousTerm

// Workshop is one week of the proof writing workshop
type Workshop struct {
	Week    int    `json:"week"`
	Title   string `json:"title,omitempty"`
	Date    string `json:"date,omitempty"`
	Time    string `json:"time,omitempty"`
	PDFLink string `json:"pdf_link"`
}

// WorkshopData is the content of the current workshop JSON file
type WorkshopData struct {
	Title    string     `json:"title"`
	Material []Workshop `json:"material"`
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
