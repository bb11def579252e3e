package model

import "time"

// Config is the complete riskfeed configuration
type Config struct {
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Collector    CollectorConfig    `yaml:"collector" mapstructure:"collector"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Lexicon      LexiconConfig      `yaml:"lexicon" mapstructure:"lexicon"`
	Labeling     LabelingConfig     `yaml:"labeling" mapstructure:"labeling"`
	Moderation   ModerationConfig   `yaml:"moderation" mapstructure:"moderation"`
	Users        UsersConfig        `yaml:"users" mapstructure:"users"`
	Monitor      MonitorConfig      `yaml:"monitor" mapstructure:"monitor"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// HTTPConfig controls the collector's HTTP client
type HTTPConfig struct {
	BaseURL       string        `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent" validate:"required"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=1"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gt=0"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// CollectorConfig selects what gets collected
type CollectorConfig struct {
	Subreddits      []string            `yaml:"subreddits" mapstructure:"subreddits" validate:"min=1"`
	SearchTerms     map[string][]string `yaml:"search_terms" mapstructure:"search_terms" validate:"min=1"`
	LimitPerCombo   int                 `yaml:"limit_per_combo" mapstructure:"limit_per_combo" validate:"gte=1"`
	Sort            string              `yaml:"sort" mapstructure:"sort" validate:"oneof=new top hot relevance comments"`
	TimeFilter      string              `yaml:"time_filter" mapstructure:"time_filter" validate:"oneof=hour day week month year all"`
	EnrichHTML      bool                `yaml:"enrich_html" mapstructure:"enrich_html"`
	HistoryMonths   int                 `yaml:"history_months" mapstructure:"history_months" validate:"gte=1"`
	HistoryMaxPosts int                 `yaml:"history_max_posts" mapstructure:"history_max_posts" validate:"gte=1"`
	EnrichTopUsers  int                 `yaml:"enrich_top_users" mapstructure:"enrich_top_users" validate:"gte=0"`
}

// RateLimitingConfig throttles requests to the content API per host
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gt=0"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size" validate:"gte=1"`
}

// LexiconConfig points at optional term files overriding the built-in lexicon
type LexiconConfig struct {
	ViolentVerbsFile string `yaml:"violent_verbs_file,omitempty" mapstructure:"violent_verbs_file"`
	StrongHateFile   string `yaml:"strong_hate_file,omitempty" mapstructure:"strong_hate_file"`
	GenericHateFile  string `yaml:"generic_hate_file,omitempty" mapstructure:"generic_hate_file"`
	BadWordsFile     string `yaml:"bad_words_file" mapstructure:"bad_words_file"`
}

// LabelingConfig holds the post-level policy knobs
type LabelingConfig struct {
	PostRiskThreshold  float64  `yaml:"post_risk_threshold" mapstructure:"post_risk_threshold" validate:"gte=0,lte=1"`
	OffensiveThreshold float64  `yaml:"offensive_threshold" mapstructure:"offensive_threshold" validate:"gte=0,lte=1"`
	NewsSubreddits     []string `yaml:"news_subreddits" mapstructure:"news_subreddits"`
	NewsKeywords       []string `yaml:"news_keywords" mapstructure:"news_keywords"`
	NewsMaxBodyChars   int      `yaml:"news_max_body_chars" mapstructure:"news_max_body_chars" validate:"gte=0"`
	NewsSuppressUpTo   string   `yaml:"news_suppress_up_to" mapstructure:"news_suppress_up_to" validate:"oneof=none descriptive self_directed hate_speech call_to_violence"`
}

// ModerationConfig configures the external moderation classifier
type ModerationConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	APIKey          string        `yaml:"-" mapstructure:"api_key"`
	BaseURL         string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Model           string        `yaml:"model" mapstructure:"model" validate:"required"`
	MinScore        float64       `yaml:"min_score" mapstructure:"min_score" validate:"gte=0,lte=1"`
	UnflaggedFactor float64       `yaml:"unflagged_factor" mapstructure:"unflagged_factor" validate:"gte=0,lte=1"`
	MinInterval     time.Duration `yaml:"min_interval" mapstructure:"min_interval" validate:"gte=0"`
	MaxInputChars   int           `yaml:"max_input_chars" mapstructure:"max_input_chars" validate:"gte=1"`
	CacheSize       int           `yaml:"cache_size" mapstructure:"cache_size" validate:"gte=1"`
	CacheDir        string        `yaml:"cache_dir,omitempty" mapstructure:"cache_dir"`
	CacheTTL        time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl" validate:"gte=0"`
	MaxRetries      int           `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=1"`
	BreakerFailures uint32        `yaml:"breaker_failures" mapstructure:"breaker_failures" validate:"gte=1"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout" mapstructure:"breaker_timeout" validate:"gt=0"`
}

// UsersConfig configures user-level aggregation
type UsersConfig struct {
	ExcludedAuthors []string `yaml:"excluded_authors" mapstructure:"excluded_authors"`
}

// MonitorConfig configures the flagged-user monitor
type MonitorConfig struct {
	AlertThreshold float64       `yaml:"alert_threshold" mapstructure:"alert_threshold" validate:"gte=0,lte=1"`
	CheckWindow    time.Duration `yaml:"check_window" mapstructure:"check_window" validate:"gt=0"`
	MinUserScore   float64       `yaml:"min_user_score" mapstructure:"min_user_score" validate:"gte=0,lte=1"`
	MaxUsers       int           `yaml:"max_users" mapstructure:"max_users" validate:"gte=1"`
	Interval       time.Duration `yaml:"interval" mapstructure:"interval" validate:"gt=0"`
	Workers        int           `yaml:"workers" mapstructure:"workers" validate:"gte=1"`
	NATSURL        string        `yaml:"nats_url,omitempty" mapstructure:"nats_url"`
	NATSSubject    string        `yaml:"nats_subject" mapstructure:"nats_subject"`
	MetricsAddr    string        `yaml:"metrics_addr,omitempty" mapstructure:"metrics_addr"`
}

// ConcurrencyConfig controls worker counts
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=1"`
}

// OutputConfig controls where artifacts land
type OutputConfig struct {
	DataDir string `yaml:"data_dir" mapstructure:"data_dir" validate:"required"`
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// LoggingConfig controls the logger
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=text json"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			BaseURL:      "https://www.reddit.com",
			UserAgent:    "riskfeed/0.1 (research; +https://github.com/ppiankov/riskfeed)",
			Timeout:      10 * time.Second,
			MaxRetries:   3,
			MaxBodyBytes: 5_000_000,
		},
		Collector: CollectorConfig{
			Subreddits: []string{
				"politics", "worldnews", "news",
				"unpopularopinion", "TrueOffMyChest", "AmItheAsshole",
				"PublicFreakout", "justice", "changemyview",
			},
			SearchTerms: map[string][]string{
				"violence": {
					"kill", "murder", "shooting", "stabbed", "bomb attack", "violent attack",
				},
				"threats": {
					"deserve to die", "should be killed", "i will kill you", "we will attack",
					"you will pay for this", "death threat", "i will hurt",
				},
				"hate_speech": {
					"hate speech", "racist slur", "racial hatred",
					"go back to your country", "they don't belong here",
				},
				"dehumanization": {
					"they are animals", "vermin", "subhuman", "cockroaches", "parasites",
				},
			},
			LimitPerCombo:   5,
			Sort:            "new",
			TimeFilter:      "month",
			HistoryMonths:   2,
			HistoryMaxPosts: 500,
			EnrichTopUsers:  20,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         1,
		},
		Lexicon: LexiconConfig{
			BadWordsFile: "data/profanity/bad_words_en.txt",
		},
		Labeling: LabelingConfig{
			PostRiskThreshold:  0.6,
			OffensiveThreshold: 0.6,
			NewsSubreddits:     []string{"news", "worldnews"},
			NewsKeywords: []string{
				"arrest", "arrested", "charged", "indicted",
				"investigation", "probe", "police", "authorities",
				"suspect", "suspected", "raid",
				"attack", "shooting", "explosion", "blast", "killing",
			},
			NewsMaxBodyChars: 30,
			NewsSuppressUpTo: ViolenceDescriptive.String(),
		},
		Moderation: ModerationConfig{
			Model:           "omni-moderation-latest",
			MinScore:        0.8,
			UnflaggedFactor: 0.6,
			MinInterval:     500 * time.Millisecond,
			MaxInputChars:   10000,
			CacheSize:       1000,
			CacheTTL:        7 * 24 * time.Hour,
			MaxRetries:      3,
			BreakerFailures: 5,
			BreakerTimeout:  time.Minute,
		},
		Users: UsersConfig{
			ExcludedAuthors: []string{"[deleted]", "[removed]", "AutoModerator"},
		},
		Monitor: MonitorConfig{
			AlertThreshold: 0.6,
			CheckWindow:    48 * time.Hour,
			MinUserScore:   0.5,
			MaxUsers:       100,
			Interval:       24 * time.Hour,
			Workers:        4,
			NATSSubject:    "riskfeed.alerts",
		},
		Concurrency: ConcurrencyConfig{
			Workers: 8,
		},
		Output: OutputConfig{
			DataDir: "data",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
