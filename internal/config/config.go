package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"comment-scout/internal/logging"
)

// Range is an inclusive [min,max] interval for randomized pauses
type Range struct {
	Min time.Duration `yaml:"min" validate:"gte=0"`
	Max time.Duration `yaml:"max" validate:"gtefield=Min"`
}

// Config represents the application configuration
type Config struct {
	Scraper struct {
		Engine               string        `yaml:"engine" validate:"required,oneof=rod chromedp"`
		FallbackEngine       string        `yaml:"fallback_engine" validate:"omitempty,oneof=rod chromedp"`
		Headless             bool          `yaml:"headless"`
		UserAgent            string        `yaml:"user_agent"`
		ViewportWidth        int           `yaml:"viewport_width" validate:"gt=0"`
		ViewportHeight       int           `yaml:"viewport_height" validate:"gt=0"`
		ChromePath           string        `yaml:"chrome_path"`
		BaseURL              string        `yaml:"base_url" validate:"required,url"`
		SearchURL            string        `yaml:"search_url" validate:"required,contains=%s"`
		NavigationTimeout    time.Duration `yaml:"navigation_timeout" validate:"gt=0"`
		NavigationsPerMinute int           `yaml:"navigations_per_minute" validate:"gte=0"`
	} `yaml:"scraper"`

	Session struct {
		AuthStatePath string `yaml:"auth_state_path" validate:"required"`
		LoginURL      string `yaml:"login_url" validate:"required,url"`
		// LoginPrompt is auto (ask when no stored state), always or never
		LoginPrompt string `yaml:"login_prompt" validate:"oneof=auto always never"`
	} `yaml:"session"`

	Discovery struct {
		MaxItems          int   `yaml:"max_items" validate:"gt=0"`
		MaxScrollAttempts int   `yaml:"max_scroll_attempts" validate:"gt=0"`
		ScrollOffset      int   `yaml:"scroll_offset" validate:"gt=0"`
		ScrollPause       Range `yaml:"scroll_pause"`
	} `yaml:"discovery"`

	Extraction struct {
		MaxCommentLength int   `yaml:"max_comment_length" validate:"gt=0"`
		ScrollOffset     int   `yaml:"scroll_offset" validate:"gt=0"`
		SettlePause      Range `yaml:"settle_pause"`
		ScrollPause      Range `yaml:"scroll_pause"`
		Workers          int   `yaml:"workers" validate:"gte=1,lte=8"`
	} `yaml:"extraction"`

	Job struct {
		Keyword        string   `yaml:"keyword"`
		IntentKeywords []string `yaml:"intent_keywords"`
	} `yaml:"job"`

	Output struct {
		CSVPath  string `yaml:"csv_path" validate:"required"`
		JSONPath string `yaml:"json_path" validate:"required"`
	} `yaml:"output"`

	Sinks struct {
		Redis struct {
			Enabled  bool          `yaml:"enabled"`
			URL      string        `yaml:"url" validate:"required_if=Enabled true"`
			Password string        `yaml:"password"`
			DB       int           `yaml:"db"`
			Key      string        `yaml:"key"`
			Timeout  time.Duration `yaml:"timeout"`
		} `yaml:"redis"`

		NATS struct {
			Enabled bool   `yaml:"enabled"`
			URL     string `yaml:"url" validate:"required_if=Enabled true"`
			Subject string `yaml:"subject"`
		} `yaml:"nats"`

		SQLite struct {
			Enabled bool   `yaml:"enabled"`
			Path    string `yaml:"path" validate:"required_if=Enabled true"`
		} `yaml:"sqlite"`
	} `yaml:"sinks"`

	Status struct {
		Addr string `yaml:"addr"`
	} `yaml:"status"`

	Logging logging.Settings `yaml:"logging"`
}

var (
	bracedVarRe = regexp.MustCompile(`\$\{([^}]+)\}`)
	bareVarRe   = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// expandEnvVars expands ${VAR} and $VAR; unknown variables are left as written
func expandEnvVars(s string) string {
	s = bracedVarRe.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})

	return bareVarRe.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[1:]); val != "" {
			return val
		}
		return match
	})
}

// Default returns the built-in configuration
func Default() *Config {
	config := &Config{}

	config.Scraper.Engine = "rod"
	config.Scraper.FallbackEngine = "chromedp"
	config.Scraper.Headless = false
	config.Scraper.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	config.Scraper.ViewportWidth = 1920
	config.Scraper.ViewportHeight = 1080
	config.Scraper.BaseURL = "https://www.douyin.com"
	config.Scraper.SearchURL = "https://www.douyin.com/search/%s?type=video&publish_time=7"
	config.Scraper.NavigationTimeout = 30 * time.Second
	config.Scraper.NavigationsPerMinute = 20

	config.Session.AuthStatePath = "auth/douyin_state.json"
	config.Session.LoginURL = "https://www.douyin.com"
	config.Session.LoginPrompt = "auto"

	config.Discovery.MaxItems = 10
	config.Discovery.MaxScrollAttempts = 10
	config.Discovery.ScrollOffset = 1000
	config.Discovery.ScrollPause = Range{Min: 2 * time.Second, Max: 4 * time.Second}

	config.Extraction.MaxCommentLength = 300
	config.Extraction.ScrollOffset = 2000
	config.Extraction.SettlePause = Range{Min: 3 * time.Second, Max: 3 * time.Second}
	config.Extraction.ScrollPause = Range{Min: 2 * time.Second, Max: 2 * time.Second}
	config.Extraction.Workers = 1

	config.Job.IntentKeywords = []string{"多少钱", "价格", "怎么买", "链接", "求购", "想要", "哪里买"}

	config.Output.CSVPath = "data/comments.csv"
	config.Output.JSONPath = "data/comments.json"

	config.Sinks.Redis.URL = "redis://localhost:6379"
	config.Sinks.Redis.Key = "comment-scout:comments"
	config.Sinks.Redis.Timeout = 5 * time.Second
	config.Sinks.NATS.URL = "nats://127.0.0.1:4222"
	config.Sinks.NATS.Subject = "comments.matched"
	config.Sinks.SQLite.Path = "data/comments.db"

	config.Logging.Level = "info"
	config.Logging.Format = "text"

	return config
}

// LoadConfig loads configuration from file and environment variables. A
// missing file is not an error; an unreadable or invalid one is.
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), config); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
		}
	}

	config.loadFromEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks struct constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// loadFromEnv loads configuration from SCOUT_* environment variables
func (c *Config) loadFromEnv() {
	if engine := os.Getenv("SCOUT_ENGINE"); engine != "" {
		c.Scraper.Engine = engine
	}

	if fallback, ok := os.LookupEnv("SCOUT_FALLBACK_ENGINE"); ok {
		c.Scraper.FallbackEngine = fallback
	}

	if headless := os.Getenv("SCOUT_HEADLESS"); headless != "" {
		c.Scraper.Headless = headless == "true" || headless == "1"
	}

	if chromePath := os.Getenv("SCOUT_CHROME_PATH"); chromePath != "" {
		c.Scraper.ChromePath = chromePath
	}

	if userAgent := os.Getenv("SCOUT_USER_AGENT"); userAgent != "" {
		c.Scraper.UserAgent = userAgent
	}

	if npm := os.Getenv("SCOUT_NAVIGATIONS_PER_MINUTE"); npm != "" {
		if n, err := strconv.Atoi(npm); err == nil {
			c.Scraper.NavigationsPerMinute = n
		}
	}

	if authPath := os.Getenv("SCOUT_AUTH_STATE_PATH"); authPath != "" {
		c.Session.AuthStatePath = authPath
	}
	if prompt := os.Getenv("SCOUT_LOGIN_PROMPT"); prompt != "" {
		c.Session.LoginPrompt = prompt
	}

	if maxItems := os.Getenv("SCOUT_MAX_ITEMS"); maxItems != "" {
		if n, err := strconv.Atoi(maxItems); err == nil {
			c.Discovery.MaxItems = n
		}
	}

	if workers := os.Getenv("SCOUT_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			c.Extraction.Workers = n
		}
	}

	if keyword := os.Getenv("SCOUT_KEYWORD"); keyword != "" {
		c.Job.Keyword = keyword
	}

	if intents := os.Getenv("SCOUT_INTENT_KEYWORDS"); intents != "" {
		c.Job.IntentKeywords = splitList(intents)
	}

	if csvPath := os.Getenv("SCOUT_CSV_PATH"); csvPath != "" {
		c.Output.CSVPath = csvPath
	}

	if jsonPath := os.Getenv("SCOUT_JSON_PATH"); jsonPath != "" {
		c.Output.JSONPath = jsonPath
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Sinks.Redis.URL = redisURL
	}

	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		c.Sinks.Redis.Password = redisPassword
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.Sinks.NATS.URL = natsURL
	}

	if addr := os.Getenv("SCOUT_STATUS_ADDR"); addr != "" {
		c.Status.Addr = addr
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}
}

// splitList splits a comma separated list, dropping blanks but keeping order
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
