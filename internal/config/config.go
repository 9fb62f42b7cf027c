package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Cron   CronConfig   `mapstructure:"cron"`
	Auth   AuthConfig   `mapstructure:"auth"`

	Collectors   CollectorsConfig   `mapstructure:"collectors"`
	Traffic      TrafficConfig      `mapstructure:"traffic"`
	Significance SignificanceConfig `mapstructure:"significance"`
	Governor     GovernorConfig     `mapstructure:"governor"`
	Analyzer     AnalyzerConfig     `mapstructure:"analyzer"`
	Notify       NotifyConfig       `mapstructure:"notify"`
	Scenario     ScenarioConfig     `mapstructure:"scenario"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

// IsProd reports whether the service runs with production semantics.
func (a AppConfig) IsProd() bool {
	env := strings.ToLower(strings.TrimSpace(a.Env))
	return env == "prod" || env == "production"
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CacheConfig struct {
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	KeyPrefix     string `mapstructure:"key_prefix"`
}

type CronConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Vessels    string `mapstructure:"vessels"`
	Events     string `mapstructure:"events"`
	News       string `mapstructure:"news"`
	Prices     string `mapstructure:"prices"`
	Advisories string `mapstructure:"advisories"`
	Shipping   string `mapstructure:"shipping"`
	Scenario   string `mapstructure:"scenario"`
	Cleanup    string `mapstructure:"cleanup"`
}

type AuthConfig struct {
	TriggerSecret  string        `mapstructure:"trigger_secret"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

type CollectorsConfig struct {
	Vessels    VesselsConfig    `mapstructure:"vessels"`
	Events     EventsConfig     `mapstructure:"events"`
	News       NewsConfig       `mapstructure:"news"`
	Prices     PricesConfig     `mapstructure:"prices"`
	Advisories AdvisoriesConfig `mapstructure:"advisories"`
	Shipping   ShippingConfig   `mapstructure:"shipping"`
}

type VesselsConfig struct {
	URL              string        `mapstructure:"url"`
	APIKey           string        `mapstructure:"api_key"`
	CollectionWindow time.Duration `mapstructure:"collection_window"`
	// BoundingBoxes are [[lat1, lon1], [lat2, lon2]] corner pairs.
	BoundingBoxes [][][]float64 `mapstructure:"bounding_boxes"`
	MaxMessages   int           `mapstructure:"max_messages"`
}

type EventsConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	Queries        []string      `mapstructure:"queries"`
	Timespan       string        `mapstructure:"timespan"`
	MaxRecords     int           `mapstructure:"max_records"`
	Timeout        time.Duration `mapstructure:"timeout"`
	TrustedDomains []string      `mapstructure:"trusted_domains"`
	ExpiryWindow   time.Duration `mapstructure:"expiry_window"`
}

type NewsConfig struct {
	SearchEndpoint string        `mapstructure:"search_endpoint"`
	APIKey         string        `mapstructure:"api_key"`
	Query          string        `mapstructure:"query"`
	PageSize       int           `mapstructure:"page_size"`
	Feeds          []FeedConfig  `mapstructure:"feeds"`
	Timeout        time.Duration `mapstructure:"timeout"`
	TrustedSources []string      `mapstructure:"trusted_sources"`
}

type FeedConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

type PricesConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	Benchmarks    []string      `mapstructure:"benchmarks"`
	Interval      string        `mapstructure:"interval"`
	Range         string        `mapstructure:"range"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Bucket        time.Duration `mapstructure:"bucket"`
	SpikePct      float64       `mapstructure:"spike_pct"`
	MarketOpenLag time.Duration `mapstructure:"market_open_lag"`
}

type AdvisoriesConfig struct {
	Sources []AdvisorySource `mapstructure:"sources"`
	Timeout time.Duration    `mapstructure:"timeout"`
}

// AdvisorySource describes one authority page and the selectors used to split it into items.
type AdvisorySource struct {
	Name          string `mapstructure:"name"`
	URL           string `mapstructure:"url"`
	ItemSelector  string `mapstructure:"item_selector"`
	TitleSelector string `mapstructure:"title_selector"`
	LinkSelector  string `mapstructure:"link_selector"`
	DateSelector  string `mapstructure:"date_selector"`
	BodySelector  string `mapstructure:"body_selector"`
	MaxItems      int    `mapstructure:"max_items"`
}

type ShippingConfig struct {
	Pages   []FeedConfig  `mapstructure:"pages"`
	Timeout time.Duration `mapstructure:"timeout"`
	Bucket  time.Duration `mapstructure:"bucket"`
}

type TrafficConfig struct {
	TurnDeltaDeg        float64       `mapstructure:"turn_delta_deg"`
	StopSpeedKn         float64       `mapstructure:"stop_speed_kn"`
	AnomalyMinTurns     int           `mapstructure:"anomaly_min_turns"`
	AnomalyStoppedRatio float64       `mapstructure:"anomaly_stopped_ratio"`
	BarrelsPerTankerMb  float64       `mapstructure:"barrels_per_tanker_mb"`
	Period              time.Duration `mapstructure:"period"`
	DarkAfter           time.Duration `mapstructure:"dark_after"`
}

type SignificanceConfig struct {
	CriticalNewsMin  int           `mapstructure:"critical_news_min"`
	PriceMovePct     float64       `mapstructure:"price_move_pct"`
	MaxStaleness     time.Duration `mapstructure:"max_staleness"`
	MinActivityScore float64       `mapstructure:"min_activity_score"`
	WeightNews       float64       `mapstructure:"weight_news"`
	WeightHigh       float64       `mapstructure:"weight_high"`
	WeightAlert      float64       `mapstructure:"weight_alert"`
	WeightTraffic    float64       `mapstructure:"weight_traffic"`
}

type GovernorConfig struct {
	MaxDailyCostUSD float64 `mapstructure:"max_daily_cost_usd"`
	MaxCallsPerHour int     `mapstructure:"max_calls_per_hour"`
}

type AnalyzerConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
	InputPricePerM  float64       `mapstructure:"input_price_per_mtok"`
	OutputPricePerM float64       `mapstructure:"output_price_per_mtok"`
	MaxNewsItems    int           `mapstructure:"max_news_items"`
	MaxAlertItems   int           `mapstructure:"max_alert_items"`
	MaxEventItems   int           `mapstructure:"max_event_items"`
}

type NotifyConfig struct {
	Channel          string        `mapstructure:"channel"`
	TelegramBotToken string        `mapstructure:"telegram_bot_token"`
	TelegramChatID   string        `mapstructure:"telegram_chat_id"`
	WebhookURL       string        `mapstructure:"webhook_url"`
	KafkaBrokers     []string      `mapstructure:"kafka_brokers"`
	KafkaTopic       string        `mapstructure:"kafka_topic"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

type ScenarioConfig struct {
	Collectors []string      `mapstructure:"collectors"`
	LockTTL    time.Duration `mapstructure:"lock_ttl"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	setDefaults(v)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration produced by defaults alone.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.key_prefix", "straitwatch:")

	v.SetDefault("cron.enabled", false)
	v.SetDefault("cron.vessels", "@every 5m")
	v.SetDefault("cron.events", "@every 30m")
	v.SetDefault("cron.news", "@every 15m")
	v.SetDefault("cron.prices", "@every 1h")
	v.SetDefault("cron.advisories", "@every 1h")
	v.SetDefault("cron.shipping", "@every 6h")
	v.SetDefault("cron.scenario", "@every 30m")
	v.SetDefault("cron.cleanup", "@every 10m")

	v.SetDefault("auth.trigger_secret", "")
	v.SetDefault("auth.idempotency_ttl", "10m")

	v.SetDefault("collectors.vessels.url", "wss://stream.aisstream.io/v0/stream")
	v.SetDefault("collectors.vessels.collection_window", "60s")
	v.SetDefault("collectors.vessels.max_messages", 20000)
	v.SetDefault("collectors.vessels.bounding_boxes", [][][]float64{
		{{24.0, 54.0}, {27.5, 58.5}},
	})

	v.SetDefault("collectors.events.endpoint", "https://api.gdeltproject.org/api/v2/doc/doc")
	v.SetDefault("collectors.events.queries", []string{
		`"strait of hormuz"`,
		`hormuz (tanker OR navy OR missile)`,
		`"persian gulf" (attack OR seized OR drone)`,
		`"gulf of oman" (tanker OR attack)`,
	})
	v.SetDefault("collectors.events.timespan", "24h")
	v.SetDefault("collectors.events.max_records", 75)
	v.SetDefault("collectors.events.timeout", "20s")
	v.SetDefault("collectors.events.trusted_domains", []string{
		"reuters.com", "apnews.com", "bbc.co.uk", "bloomberg.com", "ft.com", "aljazeera.com",
	})
	v.SetDefault("collectors.events.expiry_window", "72h")

	v.SetDefault("collectors.news.search_endpoint", "https://newsapi.org/v2/everything")
	v.SetDefault("collectors.news.query", `hormuz OR "persian gulf" OR "gulf of oman" OR tanker OR IRGC`)
	v.SetDefault("collectors.news.page_size", 50)
	v.SetDefault("collectors.news.timeout", "20s")
	v.SetDefault("collectors.news.feeds", []map[string]any{
		{"name": "Reuters World", "url": "https://feeds.reuters.com/Reuters/worldNews"},
		{"name": "Al Jazeera", "url": "https://www.aljazeera.com/xml/rss/all.xml"},
		{"name": "gCaptain", "url": "https://gcaptain.com/feed/"},
		{"name": "Splash247", "url": "https://splash247.com/feed/"},
	})
	v.SetDefault("collectors.news.trusted_sources", []string{
		"Reuters", "Reuters World", "Associated Press", "BBC News", "Bloomberg", "Financial Times",
	})

	v.SetDefault("collectors.prices.endpoint", "https://query1.finance.yahoo.com/v8/finance/chart")
	v.SetDefault("collectors.prices.benchmarks", []string{"BZ=F", "CL=F"})
	v.SetDefault("collectors.prices.interval", "5m")
	v.SetDefault("collectors.prices.range", "1d")
	v.SetDefault("collectors.prices.timeout", "15s")
	v.SetDefault("collectors.prices.bucket", "1h")
	v.SetDefault("collectors.prices.spike_pct", 5.0)
	v.SetDefault("collectors.prices.market_open_lag", "30m")

	v.SetDefault("collectors.advisories.timeout", "20s")
	v.SetDefault("collectors.advisories.sources", []map[string]any{
		{
			"name":           "UKMTO",
			"url":            "https://www.ukmto.org/indian-ocean/recent-incidents",
			"item_selector":  ".incident, article",
			"title_selector": "h2, h3, .title",
			"link_selector":  "a",
			"date_selector":  "time, .date",
			"body_selector":  "p, .summary",
			"max_items":      20,
		},
		{
			"name":           "MARAD",
			"url":            "https://www.maritime.dot.gov/msci-advisories",
			"item_selector":  ".views-row, tr",
			"title_selector": "a",
			"link_selector":  "a",
			"date_selector":  "time, .date-display-single",
			"body_selector":  ".views-field-body, td",
			"max_items":      20,
		},
	})

	v.SetDefault("collectors.shipping.timeout", "20s")
	v.SetDefault("collectors.shipping.bucket", "6h")
	v.SetDefault("collectors.shipping.pages", []map[string]any{
		{"name": "Hellenic Shipping News", "url": "https://www.hellenicshippingnews.com/category/shipping-news/tanker-and-energy-news/"},
		{"name": "Splash247", "url": "https://splash247.com/category/sector/tankers/"},
	})

	v.SetDefault("traffic.turn_delta_deg", 90.0)
	v.SetDefault("traffic.stop_speed_kn", 0.5)
	v.SetDefault("traffic.anomaly_min_turns", 3)
	v.SetDefault("traffic.anomaly_stopped_ratio", 0.30)
	v.SetDefault("traffic.barrels_per_tanker_mb", 1.0)
	v.SetDefault("traffic.period", "1h")
	v.SetDefault("traffic.dark_after", "2h")

	v.SetDefault("significance.critical_news_min", 1)
	v.SetDefault("significance.price_move_pct", 3.0)
	v.SetDefault("significance.max_staleness", "6h")
	v.SetDefault("significance.min_activity_score", 6.0)
	v.SetDefault("significance.weight_news", 1.0)
	v.SetDefault("significance.weight_high", 3.0)
	v.SetDefault("significance.weight_alert", 2.0)
	v.SetDefault("significance.weight_traffic", 0.1)

	v.SetDefault("governor.max_daily_cost_usd", 5.0)
	v.SetDefault("governor.max_calls_per_hour", 4)

	v.SetDefault("analyzer.base_url", "https://api.anthropic.com")
	v.SetDefault("analyzer.model", "claude-sonnet-4-20250514")
	v.SetDefault("analyzer.max_tokens", 2048)
	v.SetDefault("analyzer.timeout", "90s")
	v.SetDefault("analyzer.input_price_per_mtok", 3.0)
	v.SetDefault("analyzer.output_price_per_mtok", 15.0)
	v.SetDefault("analyzer.max_news_items", 25)
	v.SetDefault("analyzer.max_alert_items", 10)
	v.SetDefault("analyzer.max_event_items", 15)

	v.SetDefault("notify.channel", "telegram")
	v.SetDefault("notify.kafka_topic", "straitwatch.alerts")
	v.SetDefault("notify.timeout", "10s")

	v.SetDefault("scenario.collectors", []string{"vessels", "events", "news", "prices", "advisories", "shipping"})
	v.SetDefault("scenario.lock_ttl", "15m")
}
