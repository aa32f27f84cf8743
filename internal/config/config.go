// Package config loads service configuration from an optional YAML file
// overridden by environment variables.
package config

import (
    "fmt"
    "os"
    "strconv"
    "time"

    "gopkg.in/yaml.v3"
)

type Config struct {
    Addr            string   `yaml:"addr"`
    DatabaseURL     string   `yaml:"databaseUrl"`
    RedisURL        string   `yaml:"redisUrl"`
    MatrixProvider  string   `yaml:"matrixProvider"` // "graphhopper" or "haversine"
    GraphHopperURL  string   `yaml:"graphhopperUrl"`
    GraphHopperKey  string   `yaml:"graphhopperKey"`
    MatrixTimeout   Duration `yaml:"matrixTimeout"`
    CacheCapacity   int      `yaml:"cacheCapacity"`
    RateLimitPerSec float64  `yaml:"rateLimitPerSec"`
    RateLimitBurst  int      `yaml:"rateLimitBurst"`
}

// Duration decodes YAML strings like "10s" or "1m30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
    var s string
    if err := value.Decode(&s); err != nil {
        return err
    }
    v, err := time.ParseDuration(s)
    if err != nil {
        return fmt.Errorf("invalid duration %q: %w", s, err)
    }
    *d = Duration(v)
    return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

func defaults() Config {
    return Config{
        Addr:            ":8080",
        MatrixProvider:  "haversine",
        GraphHopperURL:  "https://graphhopper.com/api/1",
        MatrixTimeout:   Duration(10 * time.Second),
        CacheCapacity:   128,
        RateLimitPerSec: 20,
        RateLimitBurst:  40,
    }
}

// Load reads CONFIG_FILE (if set) and applies env overrides on top.
func Load() (Config, error) {
    cfg := defaults()
    if path := os.Getenv("CONFIG_FILE"); path != "" {
        raw, err := os.ReadFile(path)
        if err != nil {
            return cfg, fmt.Errorf("read config %s: %w", path, err)
        }
        if err := yaml.Unmarshal(raw, &cfg); err != nil {
            return cfg, fmt.Errorf("parse config %s: %w", path, err)
        }
    }
    applyEnv(&cfg)
    if cfg.CacheCapacity <= 0 {
        cfg.CacheCapacity = defaults().CacheCapacity
    }
    if cfg.MatrixTimeout <= 0 {
        cfg.MatrixTimeout = defaults().MatrixTimeout
    }
    return cfg, nil
}

func applyEnv(cfg *Config) {
    if v := os.Getenv("PORT"); v != "" {
        cfg.Addr = ":" + v
    }
    if v := os.Getenv("ADDR"); v != "" {
        cfg.Addr = v
    }
    if v := os.Getenv("DATABASE_URL"); v != "" {
        cfg.DatabaseURL = v
    }
    if v := os.Getenv("REDIS_URL"); v != "" {
        cfg.RedisURL = v
    }
    if v := os.Getenv("MATRIX_PROVIDER"); v != "" {
        cfg.MatrixProvider = v
    }
    if v := os.Getenv("GRAPHHOPPER_URL"); v != "" {
        cfg.GraphHopperURL = v
    }
    if v := os.Getenv("GRAPHHOPPER_API_KEY"); v != "" {
        cfg.GraphHopperKey = v
    }
    if v := os.Getenv("MATRIX_TIMEOUT_SEC"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 {
            cfg.MatrixTimeout = Duration(time.Duration(n) * time.Second)
        }
    }
    if v := os.Getenv("MATRIX_CACHE_CAPACITY"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 {
            cfg.CacheCapacity = n
        }
    }
    if v := os.Getenv("RATE_LIMIT_PER_SEC"); v != "" {
        if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
            cfg.RateLimitPerSec = f
        }
    }
    if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 {
            cfg.RateLimitBurst = n
        }
    }
}
