package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	//nolint:lll // Feed URL is long by nature.
	FederalRegisterDefenseFeed = "https://www.federalregister.gov/api/v1/documents.rss?conditions%5Bagencies%5D%5B%5D=defense-department&conditions%5Btype%5D%5B%5D=RULE&conditions%5Btype%5D%5B%5D=PRORULE"
)

type Config struct {
	LogLevel    string        `env:"LOG_LEVEL"    envDefault:"info"`
	LogFormat   string        `env:"LOG_FORMAT"   envDefault:"auto"`
	DBPath      string        `env:"DB_PATH"      envDefault:"bidmaster.sqlite"`
	ConfigPath  string        `env:"CONFIG_PATH"`
	Timezone    string        `env:"TIMEZONE"     envDefault:"UTC"`
	RunOnStart  bool          `env:"RUN_ON_START" envDefault:"true"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	JobTimeout  time.Duration `env:"JOB_TIMEOUT"  envDefault:"15m"`

	LLM      LLM
	Sanity   Sanity
	LinkedIn LinkedIn
	Reddit   Reddit
	Alerts   Alerts
	Radar    Radar
	Scout    Scout
	Crier    Crier
}

type LLM struct {
	Provider     string `env:"LLM_PROVIDER"   envDefault:"openai"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL"   envDefault:"gpt-5-mini-2025-08-07"`
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL"   envDefault:"gemini-2.5-flash"`
}

type Sanity struct {
	ProjectID  string `env:"SANITY_PROJECT_ID"`
	Dataset    string `env:"SANITY_DATASET"     envDefault:"production"`
	Token      string `env:"SANITY_API_TOKEN"`
	APIVersion string `env:"SANITY_API_VERSION" envDefault:"v2024-01-01"`
}

func (s Sanity) Configured() bool {
	return strings.TrimSpace(s.ProjectID) != "" && strings.TrimSpace(s.Token) != ""
}

type LinkedIn struct {
	AccessToken string `env:"LINKEDIN_ACCESS_TOKEN"`
	OrgID       string `env:"LINKEDIN_ORG_ID"`
}

func (l LinkedIn) Configured() bool {
	return strings.TrimSpace(l.AccessToken) != "" && strings.TrimSpace(l.OrgID) != ""
}

type Reddit struct {
	ClientID     string `env:"REDDIT_CLIENT_ID"`
	ClientSecret string `env:"REDDIT_CLIENT_SECRET"`
	UserAgent    string `env:"REDDIT_USER_AGENT"    envDefault:"BidMasterScout/1.0"`
}

func (r Reddit) Configured() bool {
	return strings.TrimSpace(r.ClientID) != "" && strings.TrimSpace(r.ClientSecret) != ""
}

type Alerts struct {
	ResendAPIKey   string `env:"RESEND_API_KEY"`
	From           string `env:"ALERT_FROM"       envDefault:"scout@bidmaster.com"`
	To             string `env:"ALERT_TO"         envDefault:"admin@bidmaster.com"`
	TelegramToken  string `env:"TELEGRAM_TOKEN"`
	TelegramChatID int64  `env:"TELEGRAM_CHAT_ID"`
}

type Radar struct {
	Schedule string   `env:"RADAR_SCHEDULE" envDefault:"0 6 * * *"`
	Feeds    []string `env:"RADAR_FEEDS"`
	Keywords []string `env:"RADAR_KEYWORDS"`
}

type Crier struct {
	Schedule    string `env:"CRIER_SCHEDULE" envDefault:"0 9,14 * * *"`
	SafeMode    bool   `env:"SAFE_MODE"      envDefault:"true"`
	SiteBaseURL string `env:"SITE_BASE_URL"  envDefault:"https://bidmaster.com/blog"`
	LatestCount int    `env:"CRIER_LATEST"   envDefault:"5"`
}

type Scout struct {
	Schedule   string   `env:"SCOUT_SCHEDULE"   envDefault:"0 * * * *"`
	Subreddits []string `env:"SCOUT_SUBREDDITS" envDefault:"GovCon,smallbusiness"`
	Limit      int      `env:"SCOUT_LIMIT"      envDefault:"10"`
	Keywords   []string `env:"SCOUT_KEYWORDS"`
}

//nolint:gochecknoglobals // Defaults are read-only.
var (
	defaultRadarKeywords = []string{
		"defense", "medical", "compliance", "acquisition", "cybersecurity",
		"small business", "set-aside", "8(a)", "indigenous",
	}
	defaultScoutKeywords = []string{
		"set-aside", "8(a)", "SAM.gov", "GovCon", "proposal writing", "compliance",
	}
)

// fileConfig is the YAML overlay. Only list-shaped settings live there.
type fileConfig struct {
	Feeds         []string `yaml:"feeds"`
	RadarKeywords []string `yaml:"radarKeywords"`
	ScoutKeywords []string `yaml:"scoutKeywords"`
	Subreddits    []string `yaml:"subreddits"`
}

// Load parses the environment, then applies the optional YAML overlay and defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if path := strings.TrimSpace(cfg.ConfigPath); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}

		if err = cfg.applyYAML(raw); err != nil {
			return Config{}, fmt.Errorf("apply config file (path = %s): %w", path, err)
		}
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyYAML(raw []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("unmarshal yaml: %w", err)
	}

	if len(fc.Feeds) > 0 {
		c.Radar.Feeds = fc.Feeds
	}
	if len(fc.RadarKeywords) > 0 {
		c.Radar.Keywords = fc.RadarKeywords
	}
	if len(fc.ScoutKeywords) > 0 {
		c.Scout.Keywords = fc.ScoutKeywords
	}
	if len(fc.Subreddits) > 0 {
		c.Scout.Subreddits = fc.Subreddits
	}

	return nil
}

func (c *Config) applyDefaults() {
	c.Radar.Feeds = trimAll(c.Radar.Feeds)
	c.Radar.Keywords = trimAll(c.Radar.Keywords)
	c.Scout.Keywords = trimAll(c.Scout.Keywords)
	c.Scout.Subreddits = trimAll(c.Scout.Subreddits)

	if len(c.Radar.Feeds) == 0 {
		c.Radar.Feeds = []string{FederalRegisterDefenseFeed}
	}
	if len(c.Radar.Keywords) == 0 {
		c.Radar.Keywords = slices.Clone(defaultRadarKeywords)
	}
	if len(c.Scout.Keywords) == 0 {
		c.Scout.Keywords = slices.Clone(defaultScoutKeywords)
	}

	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.Crier.SiteBaseURL = strings.TrimRight(strings.TrimSpace(c.Crier.SiteBaseURL), "/")
}

func (c *Config) validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q (want %s or %s)", c.LLM.Provider, ProviderOpenAI, ProviderGemini)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("load TIMEZONE %q: %w", c.Timezone, err)
	}

	if c.Scout.Limit <= 0 {
		return fmt.Errorf("SCOUT_LIMIT must be positive, got %d", c.Scout.Limit)
	}

	if c.Crier.LatestCount <= 0 {
		return fmt.Errorf("CRIER_LATEST must be positive, got %d", c.Crier.LatestCount)
	}

	return nil
}

// Location returns the scheduler time zone. Load has already validated it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}

	return loc
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}

	return out
}
