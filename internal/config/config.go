// Package config builds the server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Provider names
const (
	ProviderOllama     = "ollama"
	ProviderGemini     = "gemini"
	ProviderVosk       = "vosk"
	ProviderGoogle     = "google"
	ProviderEspeak     = "espeak"
	ProviderElevenLabs = "elevenlabs"
)

const (
	defaultHost                 = "0.0.0.0"
	defaultPort                 = "8000"
	defaultDatabaseName         = "voice_assistant"
	defaultAIProvider           = ProviderOllama
	defaultSTTProvider          = ProviderVosk
	defaultTTSProvider          = ProviderEspeak
	defaultVoskModelPath        = "models/vosk-model-small-en-us-0.15"
	defaultMonitorInterval      = 60 * time.Second
	defaultAlertCooldown        = 300 * time.Second
	defaultAudioFramesPerSecond = 50
)

// Config holds the server wide settings. Adapter specific settings are read
// by each adapter's own NewXConfigFromEnv.
type Config struct {
	Host string
	Port string

	MongoURL     string // empty selects the in-memory store
	DatabaseName string
	RedisURL     string // optional preference cache

	AIEnabled  bool
	AIProvider string

	STTProvider   string
	VoskModelPath string

	TTSProvider string

	EnableDangerousCommands bool

	MonitorEnabled  bool
	MonitorInterval time.Duration
	AlertCooldown   time.Duration

	AudioFramesPerSecond int

	JWTSecret       string // empty leaves /ws open
	ClientSecretKey string

	PatternsFile string
	LogLevel     string
}

// LoadDotEnv loads a .env file when present
func LoadDotEnv(logger *zap.Logger) {
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file loaded, using process environment")
	}
}

// NewConfigFromEnv reads the configuration from environment variables.
// Unset values are left for ApplyDefaults.
func NewConfigFromEnv() Config {
	return Config{
		Host:                    os.Getenv("HOST"),
		Port:                    os.Getenv("PORT"),
		MongoURL:                os.Getenv("MONGODB_URL"),
		DatabaseName:            os.Getenv("DATABASE_NAME"),
		RedisURL:                os.Getenv("REDIS_URL"),
		AIEnabled:               boolEnv("AI_ENABLED", true),
		AIProvider:              strings.ToLower(os.Getenv("AI_PROVIDER")),
		STTProvider:             strings.ToLower(os.Getenv("STT_PROVIDER")),
		VoskModelPath:           os.Getenv("VOSK_MODEL_PATH"),
		TTSProvider:             strings.ToLower(os.Getenv("TTS_PROVIDER")),
		EnableDangerousCommands: boolEnv("ENABLE_DANGEROUS_COMMANDS", false),
		MonitorEnabled:          boolEnv("MONITOR_ENABLED", true),
		MonitorInterval:         durationEnv("MONITOR_INTERVAL"),
		AlertCooldown:           durationEnv("ALERT_COOLDOWN"),
		AudioFramesPerSecond:    intEnv("AUDIO_FRAMES_PER_SECOND"),
		JWTSecret:               os.Getenv("JWT_SECRET"),
		ClientSecretKey:         os.Getenv("CLIENT_SECRET_KEY"),
		PatternsFile:            os.Getenv("PATTERNS_FILE"),
		LogLevel:                strings.ToLower(os.Getenv("LOG_LEVEL")),
	}
}

// ApplyDefaults fills unset values and logs every default it applies
func (c *Config) ApplyDefaults(logger *zap.Logger) {
	if c.Host == "" {
		c.Host = defaultHost
		logger.Info("Using default host", zap.String("host", c.Host))
	}
	if c.Port == "" {
		c.Port = defaultPort
		logger.Info("Using default port", zap.String("port", c.Port))
	}
	if c.DatabaseName == "" {
		c.DatabaseName = defaultDatabaseName
		logger.Info("Using default database name", zap.String("databaseName", c.DatabaseName))
	}
	if c.AIProvider == "" {
		c.AIProvider = defaultAIProvider
		logger.Info("Using default AI provider", zap.String("aiProvider", c.AIProvider))
	}
	if c.STTProvider == "" {
		c.STTProvider = defaultSTTProvider
		logger.Info("Using default STT provider", zap.String("sttProvider", c.STTProvider))
	}
	if c.VoskModelPath == "" {
		c.VoskModelPath = defaultVoskModelPath
		logger.Info("Using default Vosk model path", zap.String("voskModelPath", c.VoskModelPath))
	}
	if c.TTSProvider == "" {
		c.TTSProvider = defaultTTSProvider
		logger.Info("Using default TTS provider", zap.String("ttsProvider", c.TTSProvider))
	}
	if c.MonitorInterval == 0 {
		c.MonitorInterval = defaultMonitorInterval
		logger.Info("Using default monitor interval", zap.Duration("monitorInterval", c.MonitorInterval))
	}
	if c.AlertCooldown == 0 {
		c.AlertCooldown = defaultAlertCooldown
		logger.Info("Using default alert cooldown", zap.Duration("alertCooldown", c.AlertCooldown))
	}
	if c.AudioFramesPerSecond == 0 {
		c.AudioFramesPerSecond = defaultAudioFramesPerSecond
		logger.Info("Using default audio frame rate limit", zap.Int("audioFramesPerSecond", c.AudioFramesPerSecond))
	}
}

// Validate checks the configuration after defaults were applied
func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("port must be numeric, got %q", c.Port)
	}

	switch c.AIProvider {
	case ProviderOllama, ProviderGemini:
	default:
		return fmt.Errorf("unsupported AI provider %q", c.AIProvider)
	}
	switch c.STTProvider {
	case ProviderVosk, ProviderGoogle:
	default:
		return fmt.Errorf("unsupported STT provider %q", c.STTProvider)
	}
	switch c.TTSProvider {
	case ProviderEspeak, ProviderElevenLabs:
	default:
		return fmt.Errorf("unsupported TTS provider %q", c.TTSProvider)
	}

	if c.MonitorInterval < 0 || c.AlertCooldown < 0 {
		return fmt.Errorf("monitor durations must be positive")
	}
	if c.AudioFramesPerSecond < 0 {
		return fmt.Errorf("audio frame rate limit must be positive, got %d", c.AudioFramesPerSecond)
	}
	return nil
}

// Address returns host:port for the HTTP listener
func (c Config) Address() string {
	return c.Host + ":" + c.Port
}

func boolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func intEnv(key string) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return v
}

// durationEnv accepts Go durations ("90s") or plain seconds ("90")
func durationEnv(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}
