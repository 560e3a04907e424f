package app

import (
	"bytes"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// assetExtensions are the site files served next to the rendered pages
var assetExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".svg":  true,
}

// Server exposes a Site over HTTP.
type Server struct {
	Site   *Site
	Auth   *Authenticator
	Static fs.FS
	Log    *zap.Logger
}

// NewServer wires the HTTP layer. static holds style.css and site.js.
func NewServer(site *Site, auth *Authenticator, static fs.FS, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{Site: site, Auth: auth, Static: static, Log: log}
}

// Routes registers every endpoint on a new mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.ServeIndex)
	mux.HandleFunc("/fragments/calendar", s.HandleCalendarFragment)
	mux.HandleFunc("/fragments/lecture", s.HandleLectureFragment)
	mux.HandleFunc("/fragments/leadership", s.HandleLeadershipFragment)
	mux.HandleFunc("/fragments/proofwriting", s.HandleProofwritingFragment)
	mux.HandleFunc("/api/semesters", s.HandleSemesters)
	mux.HandleFunc("/locate", s.HandleLocate)
	mux.HandleFunc("/api/locate", s.HandleLocateAPI)
	mux.HandleFunc("/api/export", s.HandleExport)
	mux.HandleFunc("/api/subscribe/", s.HandleSubscribe)
	mux.HandleFunc("/api/reload", s.Auth.RequireAuth(s.HandleReload))
	if s.Static != nil {
		mux.Handle("/static/", http.FileServer(http.FS(s.Static)))
	}
	return mux
}

// render executes a template into a buffer first so a failing template
// becomes a clean 500.
func (s *Server) render(w http.ResponseWriter, name string, data interface{}) {
	var buf bytes.Buffer
	if err := RenderTemplate(&buf, name, data); err != nil {
		s.Log.Error("Error rendering template", zap.String("template", name), zap.Error(err))
		http.Error(w, ErrInternalServer, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		s.Log.Warn("Error writing response", zap.String("template", name), zap.Error(err))
	}
}

// ServeIndex renders the front page. Other paths are looked up as site assets.
// Query params: semester, highlight, leadership (year or "previous"),
// proofwriting (year).
func (s *Server) ServeIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.ServeAsset(w, r)
		return
	}

	q := r.URL.Query()
	req := PageRequest{
		Semester:     q.Get("semester"),
		Highlight:    q.Get("highlight"),
		WorkshopYear: q.Get("proofwriting"),
	}
	if req.Semester != "" && !RequireSemesterKey(w, req.Semester) {
		return
	}
	if req.WorkshopYear != "" && !RequireYear(w, req.WorkshopYear) {
		return
	}
	switch leadership := q.Get("leadership"); leadership {
	case "":
	case "previous":
		req.PreviousLeaders = true
	default:
		if !RequireYear(w, leadership) {
			return
		}
		req.LeadershipYear = leadership
	}

	s.render(w, "page", s.Site.BuildPage(r.Context(), req))
}

// HandleCalendarFragment renders the calendar section of one semester
// Query params: semester (optional, defaults to latest), scroll=1
func (s *Server) HandleCalendarFragment(w http.ResponseWriter, r *http.Request) {
	semester := r.URL.Query().Get("semester")
	session := s.Site.NewSession()
	if semester == "" {
		semester = session.Catalog().Latest()
	}
	if !RequireSemesterKey(w, semester) {
		return
	}

	// Load failures are part of the view as an error panel.
	view, _ := session.LoadSemester(r.Context(), semester, r.URL.Query().Get("scroll") == "1")
	if view == nil {
		http.Error(w, ErrInternalServer, http.StatusInternalServerError)
		return
	}
	s.render(w, "calendar", view)
}

// HandleLectureFragment renders the front page lecture card
func (s *Server) HandleLectureFragment(w http.ResponseWriter, r *http.Request) {
	s.render(w, "lecture-card", s.Site.LectureView(r.Context(), s.Site.NewSession()))
}

// HandleLeadershipFragment renders the leadership section
// Query params: year, or previous=1 for the timeline
func (s *Server) HandleLeadershipFragment(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("previous") == "1" {
		s.render(w, "leadership", s.Site.LoadPreviousLeadership(r.Context()))
		return
	}

	year := q.Get("year")
	if year == "" {
		year = s.Site.Config().Site.LeadershipYear
	}
	if !RequireYear(w, year) {
		return
	}
	s.render(w, "leadership", s.Site.LoadLeadership(r.Context(), year))
}

// HandleProofwritingFragment renders the proof writing section of a year
func (s *Server) HandleProofwritingFragment(w http.ResponseWriter, r *http.Request) {
	year := r.URL.Query().Get("year")
	if year != "" && !RequireYear(w, year) {
		return
	}
	s.render(w, "workshops", s.Site.LoadWorkshops(r.Context(), year))
}

type semesterJSON struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Year int    `json:"year"`
	Term string `json:"term"`
}

// HandleSemesters returns the semester catalog
func (s *Server) HandleSemesters(w http.ResponseWriter, r *http.Request) {
	catalog := s.Site.Catalog()

	semesters := []semesterJSON{}
	for _, e := range catalog.Entries() {
		semesters = append(semesters, semesterJSON{Key: e.Key(), Name: e.DisplayName(), Year: e.Year, Term: e.Term})
	}

	WriteJSON(w, s.Log, map[string]interface{}{
		"semesters": semesters,
		"latest":    catalog.Latest(),
		"fallback":  catalog.IsFallback(),
	})
}

func (s *Server) locate(w http.ResponseWriter, r *http.Request) (LocateResult, bool) {
	q := r.URL.Query()
	semester := strings.TrimSpace(q.Get("semester"))
	title := strings.TrimSpace(q.Get("title"))
	if semester == "" || title == "" {
		http.Error(w, ErrMissingLecture, http.StatusBadRequest)
		return LocateResult{}, false
	}
	if !RequireSemesterKey(w, semester) {
		return LocateResult{}, false
	}

	lecture := ParsedEvent{
		Event:    Event{Title: title, Speaker: strings.TrimSpace(q.Get("speaker"))},
		Semester: semester,
	}
	return s.Site.NewSession().Locate(r.Context(), lecture), true
}

// HandleLocate sends the browser to the calendar card of a lecture
// Query params: semester, title, speaker
func (s *Server) HandleLocate(w http.ResponseWriter, r *http.Request) {
	result, ok := s.locate(w, r)
	if !ok {
		return
	}

	q := url.Values{}
	q.Set("semester", result.Semester)
	if result.Found {
		q.Set("highlight", result.Anchor)
	}
	http.Redirect(w, r, "/?"+q.Encode()+"#"+result.Target, http.StatusFound)
}

// HandleLocateAPI returns the locate result and the calendar it refers to
func (s *Server) HandleLocateAPI(w http.ResponseWriter, r *http.Request) {
	result, ok := s.locate(w, r)
	if !ok {
		return
	}

	resp := struct {
		LocateResult
		CalendarHTML string `json:"calendar_html,omitempty"`
	}{LocateResult: result}

	if result.Calendar != nil {
		var buf bytes.Buffer
		if err := RenderTemplate(&buf, "calendar", result.Calendar); err != nil {
			s.Log.Error("Error rendering calendar", zap.Error(err))
			http.Error(w, ErrInternalServer, http.StatusInternalServerError)
			return
		}
		resp.CalendarHTML = buf.String()
	}
	WriteJSON(w, s.Log, resp)
}

// HandleExport handles downloads of a semester in ICS, CSV or JSON format
// Query params: semester, format, reminder1Day/time1Day, reminderSameDay/timeSameDay
func (s *Server) HandleExport(w http.ResponseWriter, r *http.Request) {
	semester := r.URL.Query().Get("semester")
	format := r.URL.Query().Get("format")

	if !RequireSemesterKey(w, semester) {
		return
	}
	if format != "ics" && format != "csv" && format != "json" {
		http.Error(w, ErrInvalidFormat, http.StatusBadRequest)
		return
	}

	events, err := s.Site.SemesterExport(r.Context(), semester)
	if err != nil {
		s.Log.Error("Error exporting semester", zap.String("semester", semester), zap.Error(err))
		status, msg := StatusForError(err)
		http.Error(w, msg, status)
		return
	}

	cfg := s.Site.Config().Site
	name := s.Site.Catalog().DisplayName(semester)
	switch format {
	case "ics":
		err = GenerateICS(w, semester, "UMS "+name+" Lectures", cfg.LectureLocation, events, RemindersFromQuery(r))
	case "csv":
		err = GenerateCSV(w, semester, events)
	case "json":
		err = GenerateJSON(w, semester, events)
	}
	if err != nil {
		s.Log.Warn("Error writing export", zap.String("semester", semester), zap.String("format", format), zap.Error(err))
	}
}

// HandleSubscribe serves the ICS subscription feed of a semester
// URL: /api/subscribe/{semester}[.ics], or /api/subscribe/all
func (s *Server) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	semester := strings.TrimSuffix(r.URL.Path[len("/api/subscribe/"):], ".ics")
	if semester != "all" && !RequireSemesterKey(w, semester) {
		return
	}

	events, err := s.Site.SubscriptionFeed(r.Context(), semester)
	if err != nil {
		s.Log.Error("Error building subscription feed", zap.String("semester", semester), zap.Error(err))
		status, msg := StatusForError(err)
		http.Error(w, msg, status)
		return
	}

	calName := "UMS Lectures"
	if semester != "all" {
		calName = "UMS " + s.Site.Catalog().DisplayName(semester) + " Lectures"
	}
	if err := GenerateSubscriptionICS(w, calName, s.Site.Config().Site.LectureLocation, events); err != nil {
		s.Log.Warn("Error writing subscription feed", zap.String("semester", semester), zap.Error(err))
	}
}

// HandleReload empties the fetch cache and reloads the semester index
func (s *Server) HandleReload(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := s.Site.InvalidateAll(r.Context()); err != nil {
		s.Log.Error("Error flushing cache", zap.Error(err))
		http.Error(w, ErrInternalServer, http.StatusInternalServerError)
		return
	}
	catalog := s.Site.ReloadCatalog(r.Context())

	WriteJSON(w, s.Log, map[string]interface{}{
		"status":    "ok",
		"semesters": len(catalog.Entries()),
		"latest":    catalog.Latest(),
		"fallback":  catalog.IsFallback(),
	})
}

// ServeAsset serves handouts and photos referenced by the data files. A local
// data directory is served directly; a remote site gets a redirect.
func (s *Server) ServeAsset(w http.ResponseWriter, r *http.Request) {
	name, err := cleanResourcePath(r.URL.Path)
	if err != nil || !assetExtensions[strings.ToLower(path.Ext(name))] {
		http.NotFound(w, r)
		return
	}

	data := s.Site.Config().Data
	if data.BaseURL != "" {
		http.Redirect(w, r, strings.TrimRight(data.BaseURL, "/")+"/"+name, http.StatusFound)
		return
	}
	http.ServeFile(w, r, filepath.Join(data.Dir, filepath.FromSlash(name)))
}
