package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration decodes TOML strings such as "30s" or "5m".
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

type S3Config struct {
	Endpoint      string `toml:"endpoint"`
	Region        string `toml:"region"`
	Bucket        string `toml:"bucket"`
	Key           string `toml:"key"`
	Secret        string `toml:"secret"`
	PublicBaseURL string `toml:"public_base_url"`
}

type Config struct {
	Port              string   `toml:"port"`
	DBDSN             string   `toml:"db_dsn"`
	LogFile           string   `toml:"log_file"`
	LogLevel          string   `toml:"log_level"`
	JWTSecret         string   `toml:"jwt_secret"`
	TokenTTL          Duration `toml:"token_ttl"`
	AdminEmail        string   `toml:"admin_email"`
	AdminPassword     string   `toml:"admin_password"`
	Seed              bool     `toml:"seed"`
	CacheSize         int      `toml:"cache_size"`
	CacheTTL          Duration `toml:"cache_ttl"`
	ReadTimeout       Duration `toml:"read_timeout"`
	WriteTimeout      Duration `toml:"write_timeout"`
	ReconcileInterval Duration `toml:"reconcile_interval"`
	ReconcileWorkers  int      `toml:"reconcile_workers"`
	NATSURL           string   `toml:"nats_url"`
	NATSSubject       string   `toml:"nats_subject"`
	MongoURI          string   `toml:"mongo_uri"`
	MongoDB           string   `toml:"mongo_db"`
	S3                S3Config `toml:"s3"`
}

func Default() Config {
	return Config{
		Port:             "8080",
		DBDSN:            "rocktheauction.db", // sqlite file in project root
		LogFile:          "",
		LogLevel:         "info",
		JWTSecret:        "change-me",
		TokenTTL:         Duration{2 * time.Hour},
		AdminEmail:       "admin@rocktheauction.test",
		AdminPassword:    "Passw0rd!",
		Seed:             true,
		CacheSize:        512,
		CacheTTL:         Duration{30 * time.Second},
		ReadTimeout:      Duration{10 * time.Second},
		WriteTimeout:     Duration{10 * time.Second},
		ReconcileWorkers: 4,
		NATSSubject:      "rocktheauction.events",
		MongoDB:          "rocktheauction",
	}
}

// Load applies defaults, then the optional TOML file at path (or CONFIG_FILE),
// then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s LOG_LEVEL=%s NATS_URL=%s MONGO_URI=%s S3_BUCKET=%s JWT_SECRET=%s",
		cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.LogLevel, cfg.NATSURL, mask(cfg.MongoURI), cfg.S3.Bucket, mask(cfg.JWTSecret))
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("[config] %s not found, using defaults", path)
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	if err := toml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("PORT", &cfg.Port)
	str("DB_DSN", &cfg.DBDSN)
	str("LOG_FILE", &cfg.LogFile)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("JWT_SECRET", &cfg.JWTSecret)
	str("ADMIN_EMAIL", &cfg.AdminEmail)
	str("ADMIN_PASSWORD", &cfg.AdminPassword)
	str("NATS_URL", &cfg.NATSURL)
	str("NATS_SUBJECT", &cfg.NATSSubject)
	str("MONGO_URI", &cfg.MongoURI)
	str("MONGO_DB", &cfg.MongoDB)
	str("S3_ENDPOINT", &cfg.S3.Endpoint)
	str("S3_REGION", &cfg.S3.Region)
	str("S3_BUCKET", &cfg.S3.Bucket)
	str("S3_KEY", &cfg.S3.Key)
	str("S3_SECRET", &cfg.S3.Secret)
	str("S3_PUBLIC_BASE_URL", &cfg.S3.PublicBaseURL)

	if v := os.Getenv("SEED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SEED: %w", err)
		}
		cfg.Seed = b
	}
	for key, dst := range map[string]*int{"CACHE_SIZE": &cfg.CacheSize, "RECONCILE_WORKERS": &cfg.ReconcileWorkers} {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}
	for key, dst := range map[string]*Duration{
		"TOKEN_TTL":          &cfg.TokenTTL,
		"CACHE_TTL":          &cfg.CacheTTL,
		"READ_TIMEOUT":       &cfg.ReadTimeout,
		"WRITE_TIMEOUT":      &cfg.WriteTimeout,
		"RECONCILE_INTERVAL": &cfg.ReconcileInterval,
	} {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			dst.Duration = d
		}
	}
	return nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}
