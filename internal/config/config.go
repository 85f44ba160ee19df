package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nearspot/locationd/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Position source (gpsd) configuration.
	GPSDAddr string

	// Geocoding configuration. The Google provider is disabled when the API
	// key is empty; resolution then starts at the Nominatim fallback.
	GoogleAPIKey       string
	NominatimURL       string
	NominatimUserAgent string
	GeocodeTimeout     time.Duration
	GeocodeCacheSize   int

	// Snapshot/history persistence.
	DBPath string

	// Update scheduling.
	Slots           []domain.ScheduleSlot
	FreshnessWindow time.Duration

	// Optional Kafka update-event publishing. Disabled when no brokers are
	// configured.
	KafkaBrokers      []string
	KafkaUpdatesTopic string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	geocodeTimeout, err := parseDuration("GEOCODE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	freshness, err := parseDuration("FRESHNESS_WINDOW", domain.DefaultFreshnessWindow)
	if err != nil {
		return nil, err
	}

	slots := domain.DefaultSlots()
	if s := os.Getenv("UPDATE_SLOTS"); s != "" {
		slots, err = domain.ParseSlots(s)
		if err != nil {
			return nil, fmt.Errorf("invalid UPDATE_SLOTS: %w", err)
		}
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		GPSDAddr: envOrDefault("GPSD_ADDR", "localhost:2947"),

		GoogleAPIKey:       os.Getenv("GOOGLE_MAPS_API_KEY"),
		NominatimURL:       envOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		NominatimUserAgent: envOrDefault("NOMINATIM_USER_AGENT", "locationd/1.0"),
		GeocodeTimeout:     geocodeTimeout,
		GeocodeCacheSize:   parseCacheSize(),

		DBPath: envOrDefault("DB_PATH", "locationd.db"),

		Slots:           slots,
		FreshnessWindow: freshness,

		KafkaBrokers:      parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaUpdatesTopic: envOrDefault("KAFKA_UPDATES_TOPIC", "location-updates"),
	}

	if cfg.GPSDAddr == "" {
		return nil, errors.New("GPSD_ADDR is required")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if cfg.FreshnessWindow <= 0 {
		return nil, errors.New("FRESHNESS_WINDOW must be positive")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaUpdatesTopic == "" {
		return nil, errors.New("KAFKA_BROKERS is set but KAFKA_UPDATES_TOPIC is empty")
	}

	return cfg, nil
}

// KafkaEnabled reports whether update-event publishing is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseCacheSize() int {
	if s := os.Getenv("GEOCODE_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 256
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
