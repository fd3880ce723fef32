package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig carries every tunable of the authentication core. Defaults
// match the documented policy: 5 failures lock for 15 minutes, bearer
// tokens live 7 days, OTP codes are 6 digits valid for 10 minutes.
type AuthConfig struct {
	TokenTTL         time.Duration
	LockoutThreshold int
	LockoutDuration  time.Duration
	OTPLength        int
	OTPTTL           time.Duration
	OTPMaxAttempts   int
	OTPAttemptWindow time.Duration
	LinkTokenSecret  string
	LinkTokenTTL     time.Duration
}

// Argon2Config tunes the password hash cost. The defaults target roughly
// 100ms per verification on commodity hardware.
type Argon2Config struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Auth             AuthConfig
	Argon2           Argon2Config
	Bootstrap        BootstrapConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("CALIB")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.tokenttl", "168h") // 7 days
	v.SetDefault("auth.lockoutthreshold", 5)
	v.SetDefault("auth.lockoutduration", "15m")
	v.SetDefault("auth.otplength", 6)
	v.SetDefault("auth.otpttl", "10m")
	v.SetDefault("auth.otpmaxattempts", 10)
	v.SetDefault("auth.otpattemptwindow", "10m")
	v.SetDefault("auth.linktokenttl", "24h")

	v.SetDefault("argon2.time", 3)
	v.SetDefault("argon2.memory", 65536)
	v.SetDefault("argon2.threads", 2)

	v.SetDefault("bootstrap.adminemail", "admin@fyliacare.local")
	v.SetDefault("bootstrap.adminpassword", "ChangeMe!Calib1")
}
