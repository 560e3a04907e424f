package app

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Panel is the inline message shown in place of a section's content
type Panel struct {
	Message   string
	Detail    string
	FullWidth bool
}

func errorPanel(message string, err error) *Panel {
	p := &Panel{Message: message}
	if err != nil {
		p.Detail = err.Error()
	}
	return p
}

// CalendarView is the calendar section
type CalendarView struct {
	Semester     string
	Title        string
	Calendar     *Calendar
	Panel        *Panel
	ScrollTarget string
}

// LectureView is the front page lecture card
type LectureView struct {
	Title       string
	Meta        string
	Speaker     string
	HasAbstract bool
	LocateURL   string
	Lecture     *ParsedEvent
}

// LeadershipView is the leadership section, either the current roster or the
// timeline of previous years
type LeadershipView struct {
	Title    string
	Leaders  []Leader
	Timeline []TimelineYear
	Panel    *Panel
}

// TimelineYear is one year of the previous leadership timeline
type TimelineYear struct {
	Year  string
	Cards []TimelineCard
	Row   bool
}

// TimelineCard is one officer of a past year
type TimelineCard struct {
	Role string
	Name string
}

// WorkshopView is the proof writing section
type WorkshopView struct {
	Year        string
	Description string
	Cards       []WorkshopCard
	Panel       *Panel
}

// WorkshopCard is one downloadable handout
type WorkshopCard struct {
	Week   int
	Title  string
	Date   string
	Time   string
	Link   string
	Legacy bool
}

// NavItem is one semester in the lectures dropdown
type NavItem struct {
	Key     string
	Name    string
	Current bool
}

// PageView is the whole front page
type PageView struct {
	Nav           []NavItem
	WorkshopYears []string
	Lecture       *LectureView
	Calendar      CalendarView
	Workshops     WorkshopView
	Leadership    LeadershipView

	CalendarSection     string
	ProofwritingSection string
	LeadershipSection   string
}

// RenderTemplate executes one of the embedded templates
func RenderTemplate(w io.Writer, name string, data interface{}) error {
	return templates.ExecuteTemplate(w, name, data)
}

// NewLectureView prepares the lecture card; nil when there is no lecture.
func NewLectureView(lecture *ParsedEvent, lectureTime, location string) *LectureView {
	if lecture == nil {
		return nil
	}

	v := &LectureView{
		Title:       orNoTitle(lecture.Title),
		Meta:        lectureMeta(lecture, lectureTime, location),
		Speaker:     lecture.Speaker,
		HasAbstract: HasValidAbstract(lecture.Abstract),
		Lecture:     lecture,
	}
	if v.HasAbstract {
		v.LocateURL = LocateURL(lecture)
	}
	return v
}

func lectureMeta(lecture *ParsedEvent, lectureTime, location string) string {
	return lecture.Date + ", " + SemesterYear(lecture.Semester) + " • " + lectureTime + ", " + location
}

// LocateURL links the lecture card to the event locator
func LocateURL(lecture *ParsedEvent) string {
	q := url.Values{}
	q.Set("semester", lecture.Semester)
	q.Set("title", lecture.Title)
	q.Set("speaker", lecture.Speaker)
	return "/locate?" + q.Encode()
}

// NewLeadershipView renders the roster of the current year.
func NewLeadershipView(year string, leaders []Leader) LeadershipView {
	v := LeadershipView{Title: "Leadership " + year, Leaders: leaders}
	if len(leaders) == 0 {
		v.Panel = &Panel{Message: "No leadership information found for this year."}
	}
	return v
}

// NewPreviousLeadershipView renders the timeline, newest year first.
func NewPreviousLeadershipView(prev PreviousLeadership) LeadershipView {
	v := LeadershipView{Title: "Previous Leadership"}
	if len(prev) == 0 {
		v.Panel = &Panel{Message: "No previous leadership information found."}
		return v
	}

	years := make([]string, 0, len(prev))
	for year := range prev {
		years = append(years, year)
	}
	sort.Slice(years, func(i, j int) bool {
		a, _ := strconv.Atoi(years[i])
		b, _ := strconv.Atoi(years[j])
		return a > b
	})

	for _, year := range years {
		term := prev[year]
		ty := TimelineYear{Year: year}
		if strings.TrimSpace(term.President) != "" {
			ty.Cards = append(ty.Cards, TimelineCard{Role: "President", Name: term.President})
		}
		if strings.TrimSpace(term.VicePresident) != "" {
			ty.Row = true
			ty.Cards = append(ty.Cards, TimelineCard{Role: "Vice President", Name: term.VicePresident})
		}
		v.Timeline = append(v.Timeline, ty)
	}
	return v
}

// NewWorkshopView renders the current workshop file.
func NewWorkshopView(year string, data *WorkshopData) WorkshopView {
	v := WorkshopView{Year: year, Description: data.Title}
	for _, w := range data.Material {
		v.Cards = append(v.Cards, WorkshopCard{
			Week:  w.Week,
			Title: orNoTitle(w.Title),
			Date:  orTBA(w.Date),
			Time:  orTBA(w.Time),
			Link:  w.PDFLink,
		})
	}
	return v
}

// NewLegacyWorkshopView synthesizes handout cards for a past year from the
// known week table.
func NewLegacyWorkshopView(year string, weeks []int) WorkshopView {
	v := WorkshopView{Year: year, Description: "Proof Writing Workshop Handouts " + year}
	if len(weeks) == 0 {
		v.Panel = &Panel{Message: "No handouts found for " + year + ".", FullWidth: true}
		return v
	}
	for _, week := range weeks {
		v.Cards = append(v.Cards, WorkshopCard{
			Week:   week,
			Link:   LegacyHandoutPath(year, week),
			Legacy: true,
		})
	}
	return v
}

// LegacyHandoutPath is where the PDF of a past workshop week lives
func LegacyHandoutPath(year string, week int) string {
	return fmt.Sprintf(LegacyHandoutFormat, week, year)
}

func orTBA(s string) string {
	if strings.TrimSpace(s) == "" {
		return PlaceholderTBA
	}
	return s
}
