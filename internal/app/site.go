package app

import (
	"context"
	"io"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Site holds what all visitors share: the configuration, the data source and
// the current semester catalog.
type Site struct {
	cfg     *Config
	src     Source
	cache   *CachedSource
	log     *zap.Logger
	loc     *time.Location
	catalog atomic.Pointer[Catalog]

	// Now is the clock used for lecture selection.
	Now func() time.Time
}

// NewSite wires a site. When src is a *CachedSource it is also used for
// invalidation.
func NewSite(cfg *Config, src Source, log *zap.Logger) *Site {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Site{
		cfg: cfg,
		src: src,
		log: log,
		loc: cfg.Location(),
		Now: time.Now,
	}
	if cs, ok := src.(*CachedSource); ok {
		s.cache = cs
	}
	s.catalog.Store(FallbackCatalog())
	return s
}

// NewSourceFromConfig builds the data source chain described by cfg.
func NewSourceFromConfig(cfg *Config, log *zap.Logger) (Source, error) {
	timeout, err := cfg.FetchTimeout()
	if err != nil {
		return nil, err
	}

	var base Source
	if cfg.Data.BaseURL != "" {
		base = NewHTTPSource(cfg.Data.BaseURL, timeout)
	} else {
		base = NewDirSource(cfg.Data.Dir)
	}

	var cache Cache
	if cfg.Cache.RedisURL != "" {
		rc, err := NewRedisCache(cfg.Cache.RedisURL, cfg.Cache.Prefix)
		if err != nil {
			return nil, err
		}
		cache = rc
	}
	ttl, err := cfg.CacheTTL()
	if err != nil {
		return nil, err
	}
	return NewCachedSource(base, cache, ttl, log), nil
}

// Config returns the site configuration.
func (s *Site) Config() *Config {
	return s.cfg
}

// Catalog returns the current semester catalog.
func (s *Site) Catalog() *Catalog {
	return s.catalog.Load()
}

// ReloadCatalog refetches the semester index and swaps it in.
func (s *Site) ReloadCatalog(ctx context.Context) *Catalog {
	c := LoadCatalog(ctx, s.src, s.log)
	s.catalog.Store(c)
	s.log.Info("Semester index loaded",
		zap.Int("semesters", len(c.Entries())),
		zap.String("latest", c.Latest()),
		zap.Bool("fallback", c.IsFallback()))
	return c
}

// Invalidate drops cached copies of the given resources.
func (s *Site) Invalidate(ctx context.Context, names ...string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, names...)
}

// InvalidateAll empties the fetch cache.
func (s *Site) InvalidateAll(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidateAll(ctx)
}

// NewSession starts a session on the current catalog.
func (s *Site) NewSession() *Session {
	return NewSession(s.src, s.Catalog(), s.loc, s.log)
}

// LectureView selects and prepares the front page lecture card.
func (s *Site) LectureView(ctx context.Context, session *Session) *LectureView {
	lecture := session.SelectLecture(ctx, s.Now())
	return NewLectureView(lecture, s.cfg.Site.LectureTime, s.cfg.Site.LectureLocation)
}

// LoadLeadership renders the roster of a year.
func (s *Site) LoadLeadership(ctx context.Context, year string) LeadershipView {
	start := time.Now()
	s.log.Info("Loading leadership", zap.String("year", year))

	leaders, err := FetchLeadership(ctx, s.src, year)
	sectionRenders.WithLabelValues("leadership", outcome(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		s.log.Error("Error loading leadership", zap.String("year", year), zap.Error(err))
		return LeadershipView{
			Title: "Leadership " + year,
			Panel: errorPanel("Sorry, we couldn't load the leadership information for "+year+".", err),
		}
	}
	return NewLeadershipView(year, leaders)
}

// LoadPreviousLeadership renders the timeline of past officers.
func (s *Site) LoadPreviousLeadership(ctx context.Context) LeadershipView {
	start := time.Now()
	s.log.Info("Loading previous leadership")

	prev, err := FetchPreviousLeadership(ctx, s.src)
	sectionRenders.WithLabelValues("previous_leadership", outcome(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		s.log.Error("Error loading previous leadership", zap.Error(err))
		return LeadershipView{
			Title: "Previous Leadership",
			Panel: errorPanel("Sorry, we couldn't load the previous leadership information.", err),
		}
	}
	return NewPreviousLeadershipView(prev)
}

// LoadWorkshops renders the proof writing handouts of a year: the workshop file
// for the current year, the legacy table for earlier years.
func (s *Site) LoadWorkshops(ctx context.Context, year string) WorkshopView {
	if year == "" || year == s.cfg.Site.WorkshopYear {
		return s.loadCurrentWorkshop(ctx)
	}

	s.log.Info("Loading proof writing handouts", zap.String("year", year))
	return NewLegacyWorkshopView(year, s.cfg.Site.LegacyHandouts[year])
}

func (s *Site) loadCurrentWorkshop(ctx context.Context) WorkshopView {
	start := time.Now()
	year := s.cfg.Site.WorkshopYear

	data, err := FetchWorkshop(ctx, s.src, s.cfg.Site.WorkshopPath)
	sectionRenders.WithLabelValues("workshop", outcome(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		s.log.Error("Error loading proof writing workshop", zap.Error(err))
		return WorkshopView{
			Year:  year,
			Panel: &Panel{Message: "Sorry, we couldn't load the proof writing workshop information."},
		}
	}
	return NewWorkshopView(year, data)
}

// WorkshopYears lists the years offered in the proof writing menu, newest first.
func (s *Site) WorkshopYears() []string {
	years := []string{s.cfg.Site.WorkshopYear}
	for year := range s.cfg.Site.LegacyHandouts {
		if year != s.cfg.Site.WorkshopYear {
			years = append(years, year)
		}
	}
	sort.Slice(years, func(i, j int) bool {
		a, _ := strconv.Atoi(years[i])
		b, _ := strconv.Atoi(years[j])
		return a > b
	})
	return years
}

// PageRequest selects what the front page shows.
type PageRequest struct {
	Semester        string // "" = latest
	Highlight       string // anchor of a card to highlight
	LeadershipYear  string // "" = configured year
	PreviousLeaders bool
	WorkshopYear    string // "" = current workshop
}

// BuildPage loads every section of the front page. The calendar and the
// lecture card load in sequence because the lecture reuses the loaded
// semester; workshops and leadership load alongside. A failing section renders
// its own error panel and never blocks the others.
func (s *Site) BuildPage(ctx context.Context, req PageRequest) *PageView {
	session := s.NewSession()
	catalog := session.Catalog()

	page := &PageView{
		WorkshopYears:       s.WorkshopYears(),
		CalendarSection:     CalendarSectionID,
		ProofwritingSection: ProofwritingSectionID,
		LeadershipSection:   LeadershipSectionID,
	}

	var g errgroup.Group

	g.Go(func() error {
		semester := req.Semester
		if semester == "" {
			semester = catalog.Latest()
		}
		page.Calendar = s.calendarSection(ctx, session, semester, req.Highlight)
		page.Lecture = s.LectureView(ctx, session)
		return nil
	})

	g.Go(func() error {
		page.Workshops = s.LoadWorkshops(ctx, req.WorkshopYear)
		return nil
	})

	g.Go(func() error {
		if req.PreviousLeaders {
			page.Leadership = s.LoadPreviousLeadership(ctx)
			return nil
		}
		year := req.LeadershipYear
		if year == "" {
			year = s.cfg.Site.LeadershipYear
		}
		page.Leadership = s.LoadLeadership(ctx, year)
		return nil
	})

	_ = g.Wait()

	for _, e := range catalog.Entries() {
		page.Nav = append(page.Nav, NavItem{
			Key:     e.Key(),
			Name:    e.DisplayName(),
			Current: e.Key() == page.Calendar.Semester,
		})
	}
	return page
}

func (s *Site) calendarSection(ctx context.Context, session *Session, semester, highlight string) CalendarView {
	if semester == "" {
		return CalendarView{
			Title:    "UMS Events",
			Calendar: &Calendar{},
			Panel:    &Panel{Message: "No events found for this semester."},
		}
	}

	view, _ := session.LoadSemester(ctx, semester, false)
	if view == nil {
		return CalendarView{Semester: semester, Title: calendarTitle(session.Catalog().DisplayName(semester)), Calendar: &Calendar{}}
	}
	if highlight != "" {
		view.Calendar.MarkHighlight(highlight)
	}
	return *view
}

// RenderPage writes the full front page.
func (s *Site) RenderPage(ctx context.Context, w io.Writer, req PageRequest) error {
	return RenderTemplate(w, "page", s.BuildPage(ctx, req))
}

// SemesterExport returns the dated talks of a semester listed in the index.
func (s *Site) SemesterExport(ctx context.Context, semester string) ([]ExportEvent, error) {
	if !s.Catalog().Has(semester) {
		return nil, ErrUnknownSemester
	}
	events, err := FetchSemesterEvents(ctx, s.src, semester)
	if err != nil {
		return nil, err
	}
	return ExportEvents(events, semester, s.loc), nil
}

// SubscriptionFeed returns the talks for a subscription: one semester, or with
// "all" every indexed semester from last year onwards. Semesters that fail to
// load are skipped so one broken file does not empty the feed.
func (s *Site) SubscriptionFeed(ctx context.Context, semester string) ([]ExportEvent, error) {
	if semester != "all" {
		return s.SemesterExport(ctx, semester)
	}

	minYear := s.Now().In(s.loc).Year() - 1
	var keys []string
	for _, e := range s.Catalog().Entries() {
		if e.Year >= minYear {
			keys = append(keys, e.Key())
		}
	}

	results := make([][]ExportEvent, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			events, err := s.SemesterExport(gctx, key)
			if err != nil {
				s.log.Warn("Skipping semester in subscription feed", zap.String("semester", key), zap.Error(err))
				return nil
			}
			results[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []ExportEvent
	for _, events := range results {
		all = append(all, events...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Date.Before(all[j].Date)
	})
	return all, nil
}
