package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port         int           `yaml:"port" default:"8080"`
		Host         string        `yaml:"host" default:"0.0.0.0"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
		IdleTimeout  time.Duration `yaml:"idle_timeout" default:"60s"`
		// LongTimeout bounds the blocking scrape and webhook endpoints
		LongTimeout time.Duration `yaml:"long_timeout" default:"45m"`
	} `yaml:"server"`

	Apify struct {
		APIToken       string        `yaml:"api_token"`
		BaseURL        string        `yaml:"base_url" default:"https://api.apify.com/v2"`
		ActorID        string        `yaml:"actor_id" default:"compass/crawler-google-places"`
		PollWait       time.Duration `yaml:"poll_wait" default:"60s"`
		WaitTimeout    time.Duration `yaml:"wait_timeout" default:"30m"`
		MaxRetries     int           `yaml:"max_retries" default:"3"`
		PageSize       int           `yaml:"page_size" default:"1000"`
		PageRate       int           `yaml:"page_rate" default:"10"` // dataset pages per second
		RequestTimeout time.Duration `yaml:"request_timeout" default:"90s"`
	} `yaml:"apify"`

	Webhook struct {
		DefaultURL      string        `yaml:"default_url"`
		Timeout         time.Duration `yaml:"timeout" default:"30s"`
		IndividualDelay time.Duration `yaml:"individual_delay" default:"100ms"`
		UserAgent       string        `yaml:"user_agent" default:"gmaps-scraper/1.0"`
	} `yaml:"webhook"`

	Session struct {
		Store string        `yaml:"store" default:"memory"` // memory or redis
		TTL   time.Duration `yaml:"ttl" default:"24h"`
	} `yaml:"session"`

	RateLimit struct {
		ScrapePerMinute int `yaml:"scrape_per_minute" default:"6"`
		Burst           int `yaml:"burst" default:"2"`
	} `yaml:"rate_limit"`

	Export struct {
		Prefix string `yaml:"prefix" default:"exports"`
	} `yaml:"export"`

	GRPC struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"grpc"`

	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`

		Adapters []struct {
			Name    string                 `yaml:"name"`
			Type    string                 `yaml:"type"`
			Enabled bool                   `yaml:"enabled"`
			Options map[string]interface{} `yaml:"options"`
		} `yaml:"adapters"`
	} `yaml:"logging"`

	Redis struct {
		URL      string        `yaml:"url" default:"redis://localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db" default:"0"`
		Timeout  time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"redis"`

	DigitalOcean struct {
		Spaces struct {
			BucketURL       string `yaml:"bucket_url"`
			CDNEndpoint     string `yaml:"cdn_endpoint"`
			AccessKeyID     string `yaml:"access_key_id"`
			AccessKeySecret string `yaml:"access_key_secret"`
			Region          string `yaml:"region" default:"blr1"`
			BucketName      string `yaml:"bucket_name"`
		} `yaml:"spaces"`
	} `yaml:"digitalocean"`
}

var (
	bracedEnvVar = regexp.MustCompile(`\$\{([^}]+)\}`)
	bareEnvVar   = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// expandEnvVars expands environment variables in a string using ${VAR} or $VAR syntax
func expandEnvVars(s string) string {
	s = bracedEnvVar.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if env var not found
	})

	s = bareEnvVar.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return s
}

// Default returns a configuration populated with built-in defaults only
func Default() *Config {
	config := &Config{}

	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 30 * time.Second
	config.Server.IdleTimeout = 60 * time.Second
	config.Server.LongTimeout = 45 * time.Minute

	config.Apify.BaseURL = "https://api.apify.com/v2"
	config.Apify.ActorID = "compass/crawler-google-places"
	config.Apify.PollWait = 60 * time.Second
	config.Apify.WaitTimeout = 30 * time.Minute
	config.Apify.MaxRetries = 3
	config.Apify.PageSize = 1000
	config.Apify.PageRate = 10
	config.Apify.RequestTimeout = 90 * time.Second

	config.Webhook.Timeout = 30 * time.Second
	config.Webhook.IndividualDelay = 100 * time.Millisecond
	config.Webhook.UserAgent = "gmaps-scraper/1.0"

	config.Session.Store = "memory"
	config.Session.TTL = 24 * time.Hour

	config.RateLimit.ScrapePerMinute = 6
	config.RateLimit.Burst = 2

	config.Export.Prefix = "exports"

	config.GRPC.Enabled = true

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.Output = "stdout"

	config.Redis.URL = "redis://localhost:6379"
	config.Redis.DB = 0
	config.Redis.Timeout = 5 * time.Second

	config.DigitalOcean.Spaces.Region = "blr1"

	return config
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	config := Default()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			yamlContent := expandEnvVars(string(data))

			if err := yaml.Unmarshal([]byte(yamlContent), config); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
			}
		}
	}

	config.loadFromEnv()

	return config, nil
}

// Address returns the host:port the server listens on
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// HasAPIToken reports whether the scraping API credential is configured
func (c *Config) HasAPIToken() bool {
	return c.Apify.APIToken != ""
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	// Apify configuration
	if token := os.Getenv("APIFY_API_TOKEN"); token != "" {
		c.Apify.APIToken = token
	}

	if baseURL := os.Getenv("APIFY_BASE_URL"); baseURL != "" {
		c.Apify.BaseURL = baseURL
	}

	if actorID := os.Getenv("APIFY_ACTOR_ID"); actorID != "" {
		c.Apify.ActorID = actorID
	}

	if waitTimeout := os.Getenv("APIFY_WAIT_TIMEOUT"); waitTimeout != "" {
		if timeout, err := time.ParseDuration(waitTimeout); err == nil {
			c.Apify.WaitTimeout = timeout
		}
	}

	if maxRetries := os.Getenv("APIFY_MAX_RETRIES"); maxRetries != "" {
		if retries, err := strconv.Atoi(maxRetries); err == nil {
			c.Apify.MaxRetries = retries
		}
	}

	// Webhook configuration
	if webhookURL := os.Getenv("WEBHOOK_URL"); webhookURL != "" {
		c.Webhook.DefaultURL = webhookURL
	}

	if webhookTimeout := os.Getenv("WEBHOOK_TIMEOUT"); webhookTimeout != "" {
		if timeout, err := time.ParseDuration(webhookTimeout); err == nil {
			c.Webhook.Timeout = timeout
		}
	}

	if delay := os.Getenv("WEBHOOK_INDIVIDUAL_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			c.Webhook.IndividualDelay = d
		}
	}

	// Session configuration
	if store := os.Getenv("SESSION_STORE"); store != "" {
		c.Session.Store = store
	}

	if ttl := os.Getenv("SESSION_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			c.Session.TTL = d
		}
	}

	if limit := os.Getenv("SCRAPE_RATE_LIMIT"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			c.RateLimit.ScrapePerMinute = l
		}
	}

	if grpcEnabled := os.Getenv("GRPC_ENABLED"); grpcEnabled != "" {
		c.GRPC.Enabled = grpcEnabled == "true" || grpcEnabled == "1"
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	// Redis configuration
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
	}

	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		c.Redis.Password = redisPassword
	}

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			c.Redis.DB = db
		}
	}

	if redisTimeout := os.Getenv("REDIS_TIMEOUT"); redisTimeout != "" {
		if timeout, err := time.ParseDuration(redisTimeout); err == nil {
			c.Redis.Timeout = timeout
		}
	}

	// DigitalOcean Spaces configuration
	if bucketURL := os.Getenv("BUCKET_URL"); bucketURL != "" {
		c.DigitalOcean.Spaces.BucketURL = bucketURL
	}

	if cdnEndpoint := os.Getenv("BUCKET_CDN_ENDPOINT"); cdnEndpoint != "" {
		c.DigitalOcean.Spaces.CDNEndpoint = cdnEndpoint
	}

	if accessKeyID := os.Getenv("BUCKET_ACCESS_KEY_ID"); accessKeyID != "" {
		c.DigitalOcean.Spaces.AccessKeyID = accessKeyID
	}

	if accessKeySecret := os.Getenv("BUCKET_ACCESS_KEY_SECRET"); accessKeySecret != "" {
		c.DigitalOcean.Spaces.AccessKeySecret = accessKeySecret
	}

	if region := os.Getenv("BUCKET_REGION"); region != "" {
		c.DigitalOcean.Spaces.Region = region
	}

	if bucketName := os.Getenv("BUCKET_NAME"); bucketName != "" {
		c.DigitalOcean.Spaces.BucketName = bucketName
	}

	c.loadLoggingAdapterEnvVars()
}

// loadLoggingAdapterEnvVars loads environment variables for logging adapters
func (c *Config) loadLoggingAdapterEnvVars() {
	for i := range c.Logging.Adapters {
		adapter := &c.Logging.Adapters[i]

		switch adapter.Type {
		case "file":
			if path := os.Getenv("LOG_FILE_PATH"); path != "" {
				if adapter.Options == nil {
					adapter.Options = make(map[string]interface{})
				}
				adapter.Options["file_path"] = path
			}
		case "stdout":
			if colorized := os.Getenv("LOG_COLORIZED"); colorized != "" {
				if adapter.Options == nil {
					adapter.Options = make(map[string]interface{})
				}
				adapter.Options["colorized"] = colorized == "true" || colorized == "1"
			}
		}
	}
}
