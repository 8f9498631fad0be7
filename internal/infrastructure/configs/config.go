package configs

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"spinroom/internal/infrastructure/env"
)

type Config struct {
	HTTP        HTTPConfig        `koanf:"http"`
	RateLimiter RateLimiterConfig `koanf:"rateLimiter"`
	Rooms       RoomsConfig       `koanf:"rooms"`
	Spin        SpinConfig        `koanf:"spin"`
}

type HTTPConfig struct {
	Host           string        `koanf:"host"`
	Port           uint16        `koanf:"port"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
}

type RateLimiterConfig struct {
	RequestsPerTimeFrame int           `koanf:"requestsPerTimeFrame"`
	TimeFrame            time.Duration `koanf:"timeFrame"`
}

type RoomsConfig struct {
	// Capacity caps the number of live rooms; 0 disables the cap.
	Capacity int `koanf:"capacity"`
}

// SpinConfig tunes the wheel timing. Durations are milliseconds on the
// wire, so they stay milliseconds here.
type SpinConfig struct {
	WheelSize     int `koanf:"wheel_size"`
	GraceMs       int `koanf:"grace_ms"`
	BufferMs      int `koanf:"buffer_ms"`
	MinDurationMs int `koanf:"min_duration_ms"`
	MaxDurationMs int `koanf:"max_duration_ms"`
	MinTurns      int `koanf:"min_turns"`
	MaxTurns      int `koanf:"max_turns"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func DefaultSpin() SpinConfig {
	return SpinConfig{
		WheelSize:     10,
		GraceMs:       600,
		BufferMs:      250,
		MinDurationMs: 3400,
		MaxDurationMs: 3799,
		MinTurns:      4,
		MaxTurns:      5,
	}
}

func applyDefaults(k *koanf.Koanf) {
	setDefault(k, "http.host", "0.0.0.0")
	setDefault(k, "http.port", 8080)
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.allowed_origins", []string{"*"})

	setDefault(k, "rateLimiter.requestsPerTimeFrame", 60)
	setDefault(k, "rateLimiter.timeFrame", 5*time.Second)

	setDefault(k, "rooms.capacity", 500)

	spin := DefaultSpin()
	setDefault(k, "spin.wheel_size", spin.WheelSize)
	setDefault(k, "spin.grace_ms", spin.GraceMs)
	setDefault(k, "spin.buffer_ms", spin.BufferMs)
	setDefault(k, "spin.min_duration_ms", spin.MinDurationMs)
	setDefault(k, "spin.max_duration_ms", spin.MaxDurationMs)
	setDefault(k, "spin.min_turns", spin.MinTurns)
	setDefault(k, "spin.max_turns", spin.MaxTurns)
}

func applyEnvOverrides(k *koanf.Koanf) {
	if host := env.GetString("HTTP_HOST", ""); host != "" {
		k.Set("http.host", host)
	}
	if port := env.GetInt("HTTP_PORT", 0); port > 0 {
		k.Set("http.port", port)
	}
	if readTimeout := env.GetInt("HTTP_READ_TIMEOUT_SECONDS", 0); readTimeout > 0 {
		k.Set("http.read_timeout", time.Duration(readTimeout)*time.Second)
	}
	if writeTimeout := env.GetInt("HTTP_WRITE_TIMEOUT_SECONDS", 0); writeTimeout > 0 {
		k.Set("http.write_timeout", time.Duration(writeTimeout)*time.Second)
	}

	if requests := env.GetInt("RATE_LIMIT_REQUESTS_PER_TIME_FRAME", 0); requests > 0 {
		k.Set("rateLimiter.requestsPerTimeFrame", requests)
	}
	if frame := env.GetInt("RATE_LIMIT_TIME_FRAME_SECONDS", 0); frame > 0 {
		k.Set("rateLimiter.timeFrame", time.Duration(frame)*time.Second)
	}

	if capacity := env.GetInt("ROOM_CAPACITY", 0); capacity > 0 {
		k.Set("rooms.capacity", capacity)
	}

	if size := env.GetInt("SPIN_WHEEL_SIZE", 0); size > 0 {
		k.Set("spin.wheel_size", size)
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value interface{}) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
