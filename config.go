package killsrp

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/antihax/goesi"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"killsrp/fetch"
	"killsrp/killmail"
)

type Config struct {
	Environment        string
	Port               int
	ContactInformation string
	HTTPTimeout        time.Duration
	LogLevel           zerolog.Level

	RedisURL string

	ShipNameSource    string
	ShipTypesFile     string
	ShipNameScrapeURL string
	ShipNameCacheSize int

	AllowedHosts []string
}

const (
	EnvironmentProduction = "production"

	ShipNameSourceESI       = "esi"
	ShipNameSourceScrape    = "scrape"
	ShipNameSourceReference = "reference"
)

// NewConfig reads the configuration from the environment. Variables from a
// .env file (or ENV_FILE) are loaded first without overriding the environment.
func NewConfig() (Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	config := Config{
		Environment:        os.Getenv("ENVIRONMENT"),
		Port:               8081,
		ContactInformation: os.Getenv("CONTACT_INFORMATION"),
		HTTPTimeout:        fetch.DefaultTimeout,
		LogLevel:           zerolog.InfoLevel,
		RedisURL:           os.Getenv("REDIS_URL"),
		ShipNameSource:     ShipNameSourceESI,
		ShipTypesFile:      os.Getenv("SHIP_TYPES_FILE"),
		ShipNameScrapeURL:  os.Getenv("SHIP_NAME_SCRAPE_URL"),
		ShipNameCacheSize:  1024,
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return config, fmt.Errorf("invalid port %q: %w", v, err)
		}
		config.Port = port
	}

	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return config, fmt.Errorf("invalid http timeout %q: %w", v, err)
		}
		config.HTTPTimeout = timeout
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := zerolog.ParseLevel(v)
		if err != nil {
			return config, fmt.Errorf("invalid log level %q: %w", v, err)
		}
		config.LogLevel = level
	}

	if v := os.Getenv("ALLOWED_HOSTS"); v != "" {
		for _, host := range strings.Split(v, ",") {
			if host = strings.TrimSpace(host); host != "" {
				config.AllowedHosts = append(config.AllowedHosts, host)
			}
		}
	}

	if v := os.Getenv("SHIP_NAME_SOURCE"); v != "" {
		config.ShipNameSource = v
	}

	if v := os.Getenv("SHIP_NAME_CACHE_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size <= 0 {
			return config, fmt.Errorf("invalid ship name cache size %q", v)
		}
		config.ShipNameCacheSize = size
	}

	if config.RedisURL == "" {
		return config, errors.New("missing redis url")
	}

	if config.ContactInformation == "" {
		return config, errors.New("missing contact information")
	}

	switch config.ShipNameSource {
	case ShipNameSourceESI, ShipNameSourceScrape:
	case ShipNameSourceReference:
		if config.ShipTypesFile == "" {
			return config, errors.New("missing ship types file for reference ship names")
		}
	default:
		return config, fmt.Errorf("unknown ship name source %q", config.ShipNameSource)
	}

	return config, nil
}

func (c Config) UserAgent() string {
	return fetch.UserAgent(Version, c.ContactInformation)
}

// FetchClient returns the shared client for all upstream requests.
func (c Config) FetchClient() *fetch.Client {
	return fetch.New(c.UserAgent(), fetch.WithTimeout(c.HTTPTimeout))
}

// ShipNameResolver builds the configured ship name strategy behind an LRU cache.
func (c Config) ShipNameResolver(client *fetch.Client) (killmail.ShipNameResolver, error) {
	var resolver killmail.ShipNameResolver

	switch c.ShipNameSource {
	case ShipNameSourceESI:
		resolver = killmail.NewESIShipNames(goesi.NewAPIClient(client.HTTPClient(), c.UserAgent()))

	case ShipNameSourceScrape:
		resolver = killmail.NewScrapeShipNames(client, c.ShipNameScrapeURL, c.ContactInformation)

	case ShipNameSourceReference:
		f, err := os.Open(c.ShipTypesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open ship types file: %w", err)
		}
		defer f.Close()

		reference, err := killmail.LoadReferenceShipNames(f)
		if err != nil {
			return nil, err
		}
		resolver = reference

	default:
		return nil, fmt.Errorf("unknown ship name source %q", c.ShipNameSource)
	}

	cached, err := killmail.NewCachedShipNames(resolver, c.ShipNameCacheSize)
	if err != nil {
		return nil, err
	}

	return cached, nil
}

// Pipeline wires both killmail sources to client and the configured ship
// name strategy, restricted to AllowedHosts when set.
func (c Config) Pipeline(client *fetch.Client) (*killmail.Pipeline, error) {
	ships, err := c.ShipNameResolver(client)
	if err != nil {
		return nil, err
	}

	return killmail.NewPipeline(
		killmail.NewZKillboard(client, ships),
		killmail.NewCREST(client),
	).RestrictHosts(c.AllowedHosts...), nil
}
