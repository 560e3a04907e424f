package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Constants
const (
	IndexPath              = "events/index.json"
	EventsPathFormat       = "events/%s_events.json"
	LeadershipPathFormat   = "data/leadership_%s.json"
	PreviousLeadershipPath = "data/previous_leadership.json"
	LegacyHandoutFormat    = "proofwriting_workshop_data/legacy/UMSProofsWeek%d_%s.pdf"

	DefaultWorkshopPath   = "proofwriting_workshop_data/2025_fall_pw.json"
	DefaultWorkshopYear   = "2025"
	DefaultLeadershipYear = "2025"
	DefaultLatestSemester = "2025_fall"
	DefaultListen         = ":8080"
	DefaultTimezone       = "America/New_York"
	DefaultLectureTime    = "6:30 PM"
	DefaultLectureRoom    = "Math 508 Cantor Lounge"
	DefaultFetchTimeout   = "15s"
	DefaultCacheTTL       = "5m"

	// Placeholders found in the data files
	PlaceholderNoTitle  = "No Title"
	PlaceholderNBSP     = "&nbsp;"
	PlaceholderTBD      = "TBD"
	PlaceholderTBA      = "TBA"
	PlaceholderAbstract = "No abstract available"

	// Section anchors
	CalendarSectionID     = "calendar-section"
	LeadershipSectionID   = "leadership-section"
	ProofwritingSectionID = "proofwriting-section"

	// Error messages
	ErrInvalidSemester = "Invalid semester"
	ErrInvalidYear     = "Invalid year"
	ErrInvalidFormat   = "Invalid format"
	ErrInternalServer  = "Internal server error"
	ErrMissingLecture  = "Missing title or semester"
	ErrNotFound        = "Not found"

	// ICS constants
	ICSProductID = "-//UMS//Lecture Calendar//EN"
	ICSDomain    = "ums-site"

	// How long a located card stays highlighted
	HighlightDuration = 3 * time.Second
)

// FallbackSemesters is used when the semester index cannot be loaded
var FallbackSemesters = []SemesterIndexEntry{
	{Year: 2025, Term: "fall"},
	{Year: 2025, Term: "summer"},
	{Year: 2025, Term: "spring"},
	{Year: 2024, Term: "fall"},
	{Year: 2024, Term: "summer"},
	{Year: 2024, Term: "spring"},
	{Year: 2023, Term: "summer"},
	{Year: 2023, Term: "spring"},
}

// DefaultLegacyHandouts lists the weeks with a handout PDF for past workshop years.
// The handout host refuses programmatic probing, so the table is maintained by hand.
var DefaultLegacyHandouts = map[string][]int{
	"2024": {1, 2, 3},
	"2023": {1, 2, 3, 4},
	"2022": {1, 2, 3, 4},
}

// Config holds the ums-site configuration.
type Config struct {
	Listen string      `yaml:"listen"`
	Data   DataConfig  `yaml:"data"`
	Cache  CacheConfig `yaml:"cache"`
	Site   SiteConfig  `yaml:"site"`
	Auth   AuthConfig  `yaml:"auth"`
}

// DataConfig selects where the JSON resources come from.
type DataConfig struct {
	Dir     string `yaml:"dir"`      // local site checkout
	BaseURL string `yaml:"base_url"` // remote site, wins over Dir when set
	Timeout string `yaml:"timeout"`
	Watch   bool   `yaml:"watch"`
}

// CacheConfig configures the optional Redis fetch cache.
type CacheConfig struct {
	RedisURL string `yaml:"redis_url"`
	TTL      string `yaml:"ttl"`
	Prefix   string `yaml:"prefix"`
}

// SiteConfig holds rendering settings.
type SiteConfig struct {
	Timezone        string           `yaml:"timezone"`
	LeadershipYear  string           `yaml:"leadership_year"`
	WorkshopYear    string           `yaml:"workshop_year"`
	WorkshopPath    string           `yaml:"workshop_path"`
	LectureTime     string           `yaml:"lecture_time"`
	LectureLocation string           `yaml:"lecture_location"`
	LegacyHandouts  map[string][]int `yaml:"legacy_handouts"`
}

// AuthConfig points at the auth.secret file for the admin endpoints.
type AuthConfig struct {
	File string `yaml:"file"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen: DefaultListen,
		Data: DataConfig{
			Dir:     ".",
			Timeout: DefaultFetchTimeout,
			Watch:   true,
		},
		Cache: CacheConfig{
			TTL:    DefaultCacheTTL,
			Prefix: "ums-site:",
		},
		Site: SiteConfig{
			Timezone:        DefaultTimezone,
			LeadershipYear:  DefaultLeadershipYear,
			WorkshopYear:    DefaultWorkshopYear,
			WorkshopPath:    DefaultWorkshopPath,
			LectureTime:     DefaultLectureTime,
			LectureLocation: DefaultLectureRoom,
			LegacyHandouts:  copyHandouts(DefaultLegacyHandouts),
		},
	}
}

func copyHandouts(src map[string][]int) map[string][]int {
	dst := make(map[string][]int, len(src))
	for year, weeks := range src {
		dst[year] = append([]int(nil), weeks...)
	}
	return dst
}

// LoadConfig reads the YAML file at path (optional) over the defaults and applies
// environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("UMS_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("UMS_DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv("UMS_DATA_URL"); v != "" {
		c.Data.BaseURL = v
	}
	if v := os.Getenv("UMS_DATA_WATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Data.Watch = b
		}
	}
	if v := os.Getenv("UMS_REDIS_URL"); v != "" {
		c.Cache.RedisURL = v
	}
	if v := os.Getenv("UMS_TIMEZONE"); v != "" {
		c.Site.Timezone = v
	}
	if v := os.Getenv("AUTH_FILE"); v != "" {
		c.Auth.File = v
	}
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
		return fmt.Errorf("invalid site.timezone %q: %w", c.Site.Timezone, err)
	}
	if _, err := c.FetchTimeout(); err != nil {
		return fmt.Errorf("invalid data.timeout %q: %w", c.Data.Timeout, err)
	}
	if _, err := c.CacheTTL(); err != nil {
		return fmt.Errorf("invalid cache.ttl %q: %w", c.Cache.TTL, err)
	}
	if c.Data.BaseURL == "" && c.Data.Dir == "" {
		return fmt.Errorf("one of data.dir or data.base_url is required")
	}
	if c.Data.BaseURL != "" && !strings.HasPrefix(c.Data.BaseURL, "http://") && !strings.HasPrefix(c.Data.BaseURL, "https://") {
		return fmt.Errorf("data.base_url must be an http(s) URL, got %q", c.Data.BaseURL)
	}
	if _, err := strconv.Atoi(c.Site.LeadershipYear); err != nil {
		return fmt.Errorf("invalid site.leadership_year %q", c.Site.LeadershipYear)
	}
	if _, err := strconv.Atoi(c.Site.WorkshopYear); err != nil {
		return fmt.Errorf("invalid site.workshop_year %q", c.Site.WorkshopYear)
	}
	return nil
}

// Location returns the timezone used to decide what "today" is.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// FetchTimeout returns the per-request timeout of the HTTP source (0 = none).
func (c *Config) FetchTimeout() (time.Duration, error) {
	if c.Data.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Data.Timeout)
}

// CacheTTL returns how long fetched resources stay in the cache.
func (c *Config) CacheTTL() (time.Duration, error) {
	if c.Cache.TTL == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Cache.TTL)
}
