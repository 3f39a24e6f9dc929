// Package config loads server settings from an optional JSON file, a .env
// file and HELLSCAPE_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"hellscape/internal/game"
	"hellscape/internal/game/spatial"
)

// FileName is the config file looked up in the config directory.
const FileName = "hellscape.cfg.json"

// EnvPrefix prefixes every environment override, e.g. HELLSCAPE_SIM_SEED.
const EnvPrefix = "HELLSCAPE"

// SimConfig holds simulation settings.
type SimConfig struct {
	Seed               uint32  `mapstructure:"seed"`
	TickRate           int     `mapstructure:"tickRate"`
	HalfExtentX        float32 `mapstructure:"halfExtentX"`
	HalfExtentY        float32 `mapstructure:"halfExtentY"`
	ReviveSeconds      float32 `mapstructure:"reviveSeconds"`
	InitialEnemies     int     `mapstructure:"initialEnemies"`
	EnemyWaveSeconds   float32 `mapstructure:"enemyWaveSeconds"`
	WeaponSpawnSeconds float32 `mapstructure:"weaponSpawnSeconds"`
	MaxPlayers         int     `mapstructure:"maxPlayers"`
	MaxEnemies         int     `mapstructure:"maxEnemies"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr               string   `mapstructure:"addr"`
	CORSOrigins        []string `mapstructure:"corsOrigins"`
	RateLimitPerSecond float64  `mapstructure:"rateLimitPerSecond"`
	RateLimitBurst     int      `mapstructure:"rateLimitBurst"`
	BroadcastHz        int      `mapstructure:"broadcastHz"`
	AdminToken         string   `mapstructure:"adminToken"` // empty disables admin routes
	SessionIdleSeconds float64  `mapstructure:"sessionIdleSeconds"`
}

// DebugConfig holds the pprof/metrics listener settings.
type DebugConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// RecorderConfig holds match recorder settings.
type RecorderConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// EventLogConfig holds the JSONL event log settings.
type EventLogConfig struct {
	Path string `mapstructure:"path"`
}

// Config is the complete application configuration.
type Config struct {
	Sim      SimConfig      `mapstructure:"sim"`
	Server   ServerConfig   `mapstructure:"server"`
	Debug    DebugConfig    `mapstructure:"debug"`
	Log      LogConfig      `mapstructure:"log"`
	Recorder RecorderConfig `mapstructure:"recorder"`
	EventLog EventLogConfig `mapstructure:"eventLog"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sim.seed", 42)
	v.SetDefault("sim.tickRate", game.DefaultTickRate)
	v.SetDefault("sim.halfExtentX", game.DefaultHalfExtents.X)
	v.SetDefault("sim.halfExtentY", game.DefaultHalfExtents.Y)
	v.SetDefault("sim.reviveSeconds", game.DefaultReviveSeconds)
	v.SetDefault("sim.initialEnemies", 8)
	v.SetDefault("sim.enemyWaveSeconds", 0)
	v.SetDefault("sim.weaponSpawnSeconds", game.DefaultWeaponSpawnSeconds)
	v.SetDefault("sim.maxPlayers", game.DefaultLimits.MaxPlayers)
	v.SetDefault("sim.maxEnemies", game.DefaultLimits.MaxEnemies)

	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.corsOrigins", []string{"http://localhost:*", "http://127.0.0.1:*"})
	v.SetDefault("server.rateLimitPerSecond", 20)
	v.SetDefault("server.rateLimitBurst", 40)
	v.SetDefault("server.broadcastHz", 20)
	v.SetDefault("server.adminToken", "")
	v.SetDefault("server.sessionIdleSeconds", 120)

	v.SetDefault("debug.enabled", true)
	v.SetDefault("debug.addr", "127.0.0.1:6060")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("recorder.enabled", false)
	v.SetDefault("recorder.path", "hellscape.db")

	v.SetDefault("eventLog.path", "")
}

// Load reads configuration from dir. Both the config file and the .env file
// are optional; a config file that exists but does not parse is an error.
func Load(dir string) (Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(FileName)
	v.SetConfigType("json")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if c.Sim.TickRate <= 0 {
		return fmt.Errorf("sim.tickRate must be positive, got %d", c.Sim.TickRate)
	}
	if c.Sim.HalfExtentX <= 0 || c.Sim.HalfExtentY <= 0 {
		return fmt.Errorf("sim half extents must be positive, got %gx%g", c.Sim.HalfExtentX, c.Sim.HalfExtentY)
	}
	if c.Sim.InitialEnemies < 0 {
		return fmt.Errorf("sim.initialEnemies must not be negative, got %d", c.Sim.InitialEnemies)
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	return nil
}

// EngineConfig converts the simulation settings into an engine config.
func (c Config) EngineConfig() game.EngineConfig {
	cfg := game.DefaultEngineConfig()
	cfg.Seed = c.Sim.Seed
	cfg.TickRate = c.Sim.TickRate
	cfg.HalfExtents = spatial.V(c.Sim.HalfExtentX, c.Sim.HalfExtentY)
	cfg.ReviveSeconds = c.Sim.ReviveSeconds
	cfg.InitialEnemies = c.Sim.InitialEnemies
	cfg.EnemyWaveSeconds = c.Sim.EnemyWaveSeconds
	cfg.WeaponSpawnSeconds = c.Sim.WeaponSpawnSeconds
	if c.Sim.MaxPlayers > 0 {
		cfg.Limits.MaxPlayers = c.Sim.MaxPlayers
	}
	if c.Sim.MaxEnemies > 0 {
		cfg.Limits.MaxEnemies = c.Sim.MaxEnemies
	}
	cfg.EventLogPath = c.EventLog.Path
	return cfg
}
