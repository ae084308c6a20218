package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

const (
	minPushTimeout = 5 * time.Second
	maxPushTimeout = 10 * time.Second
)

type (
	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		RollbarToken     string
		DefaultFromEmail string
		SendgridAPIKey   string

		Server     ServerConfig
		Database   DatabaseConfig
		Push       PushConfig
		Live       LiveConfig
		Dispatch   DispatchConfig
		Moderation ModerationConfig
	}

	ServerConfig struct {
		Host               string
		Address            string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | memory
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	PushConfig struct {
		BaseURL   string
		ServerKey string
		Timeout   time.Duration
	}

	LiveConfig struct {
		HeartbeatInterval time.Duration
		HeartbeatTimeout  time.Duration
		RedisAddr         string
		RedisPassword     string
		RedisChannel      string
	}

	DispatchConfig struct {
		Workers int
	}

	ModerationConfig struct {
		BlockedTerms []string
		CensorChar   rune
	}
)

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, strconv.Itoa(dc.Port))
}

// NewConfig reads the configuration for the current ENV (DEV by default).
// Values are looked up as <ENV>_<KEY>, e.g. DEV_DATABASE_HOST.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "School App")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "ch4t-m0d3r4t10n!s3cr3t-k3y-f0r-d3v-0nly")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "school_app")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("push.timeout", 8*time.Second)
	v.SetDefault("live.heartbeatInterval", 25*time.Second)
	v.SetDefault("live.heartbeatTimeout", 60*time.Second)
	v.SetDefault("live.redisChannel", "school-app:live")
	v.SetDefault("dispatch.workers", 8)
	v.SetDefault("moderation.blockedTerms", []string{})
	v.SetDefault("moderation.censorChar", "*")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			Address:            v.GetString("server.address"),
			DebugHost:          v.GetString("server.debugHost"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Push: PushConfig{
			BaseURL:   v.GetString("push.baseUrl"),
			ServerKey: v.GetString("push.serverKey"),
			Timeout:   clampDuration(v.GetDuration("push.timeout"), minPushTimeout, maxPushTimeout),
		},
		Live: LiveConfig{
			HeartbeatInterval: v.GetDuration("live.heartbeatInterval"),
			HeartbeatTimeout:  v.GetDuration("live.heartbeatTimeout"),
			RedisAddr:         v.GetString("live.redisAddr"),
			RedisPassword:     v.GetString("live.redisPassword"),
			RedisChannel:      v.GetString("live.redisChannel"),
		},
		Dispatch: DispatchConfig{
			Workers: v.GetInt("dispatch.workers"),
		},
		Moderation: ModerationConfig{
			BlockedTerms: v.GetStringSlice("moderation.blockedTerms"),
			CensorChar:   firstRune(v.GetString("moderation.censorChar"), '*'),
		},
	}
	if conf.Live.HeartbeatTimeout <= conf.Live.HeartbeatInterval {
		conf.Live.HeartbeatTimeout = 2 * conf.Live.HeartbeatInterval
	}
	if err := conf.Validate(); err != nil {
		log.Fatalf("config.Validate(): %v", err)
	}
	return conf
}

// Validate rejects values the services cannot start with.
func (c *Config) Validate() error {
	return vala.BeginValidation().Validate(
		vala.GreaterThan(int(c.Live.HeartbeatInterval), 0, "live.heartbeatInterval"),
		vala.GreaterThan(int(c.Live.HeartbeatTimeout), int(c.Live.HeartbeatInterval), "live.heartbeatTimeout"),
		vala.GreaterThan(c.Dispatch.Workers, 0, "dispatch.workers"),
		vala.GreaterThan(int(c.Server.ShutdownTimeout), 0, "server.shutdownTimeout"),
	).Check()
}

func clampDuration(d, min, max time.Duration) time.Duration {
	switch {
	case d < min:
		return min
	case d > max:
		return max
	}
	return d
}

func firstRune(s string, fallback rune) rune {
	for _, r := range s {
		return r
	}
	return fallback
}
