package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/voiceast/server/adapters"
	"github.com/voiceast/server/adapters/executor"
	"github.com/voiceast/server/adapters/llm"
	"github.com/voiceast/server/adapters/mongo"
	"github.com/voiceast/server/adapters/redis"
	"github.com/voiceast/server/adapters/stt"
	"github.com/voiceast/server/adapters/sysprobe"
	"github.com/voiceast/server/adapters/tts"
	"github.com/voiceast/server/domain/repositories"
	"github.com/voiceast/server/internal/api"
	"github.com/voiceast/server/internal/auth"
	"github.com/voiceast/server/internal/config"
	"github.com/voiceast/server/internal/dispatch"
	"github.com/voiceast/server/internal/fastpath"
	"github.com/voiceast/server/internal/intent"
	"github.com/voiceast/server/internal/metrics"
	"github.com/voiceast/server/internal/monitor"
	"github.com/voiceast/server/internal/patterns"
	"github.com/voiceast/server/internal/synthesis"
	"github.com/voiceast/server/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	bootstrap, _ := zap.NewProduction()
	config.LoadDotEnv(bootstrap)

	cfg := config.NewConfigFromEnv()
	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	cfg.ApplyDefaults(logger)
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx := context.Background()

	// Persistence
	store, closeStore := newStore(ctx, cfg, logger)
	defer closeStore()

	// Speech recognition
	recognizer, closeRecognizer := newRecognizer(ctx, cfg, logger)
	defer closeRecognizer()

	// Generative model and vision
	interpreter, vision := newAI(ctx, cfg, logger)

	// Speech synthesis
	synthesizer, voices := newSynthesizer(cfg, logger)

	tables := patterns.Default()
	if cfg.PatternsFile != "" {
		loaded, err := patterns.LoadFile(cfg.PatternsFile)
		if err != nil {
			logger.Fatal("Failed to load pattern tables", zap.String("path", cfg.PatternsFile), zap.Error(err))
		}
		tables = loaded
		logger.Info("Loaded pattern tables", zap.String("path", cfg.PatternsFile))
	}

	m := metrics.New()
	gate := synthesis.NewGate(synthesizer, m, logger)
	resolver := intent.NewResolver(interpreter, intent.NewFallback(tables), cfg.AIEnabled && interpreter != nil, logger)
	dispatcher := dispatch.NewDispatcher(executor.New(executor.DefaultConfig(cfg.EnableDangerousCommands), logger), logger)

	hub := websocket.NewHub(&websocket.Services{
		Matcher:              fastpath.NewMatcher(tables),
		Resolver:             resolver,
		Dispatcher:           dispatcher,
		Gate:                 gate,
		Recognizer:           recognizer,
		Vision:               vision,
		History:              store,
		Metrics:              m,
		AudioFramesPerSecond: cfg.AudioFramesPerSecond,
	}, logger)
	go hub.Run()

	if cfg.MonitorEnabled {
		mon := monitor.New(sysprobe.New(logger), gate, hub, m, monitor.Config{
			Interval: cfg.MonitorInterval,
			Cooldown: cfg.AlertCooldown,
		}, logger)
		mon.Start()
		defer mon.Stop()
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api.InitRoutes(e, api.Dependencies{
		Hub:          hub,
		Store:        store,
		Gate:         gate,
		Voices:       voices,
		Recognizer:   recognizer,
		Resolver:     resolver,
		Patterns:     intent.NewPatternRecognizer(),
		Dispatcher:   dispatcher,
		Issuer:       auth.NewIssuer(cfg.JWTSecret),
		Metrics:      m,
		ClientSecret: cfg.ClientSecretKey,
	}, logger)

	// Graceful shutdown
	go func() {
		if err := e.Start(cfg.Address()); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("VoiceAst server started",
		zap.String("address", cfg.Address()),
		zap.String("aiProvider", cfg.AIProvider),
		zap.String("sttProvider", cfg.STTProvider),
		zap.String("ttsProvider", cfg.TTSProvider),
		zap.Bool("jwtAuth", cfg.JWTSecret != ""))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(level string) *zap.Logger {
	var logger *zap.Logger
	var err error
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// newStore selects MongoDB when configured and the in-memory store otherwise.
// Preferences are cached in Redis when REDIS_URL is set.
func newStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repositories.Store, func()) {
	var store repositories.Store = adapters.NewMemoryStore()
	closeStore := func() {}

	if cfg.MongoURL != "" {
		client, err := mongo.NewClient(ctx, cfg.MongoURL, cfg.DatabaseName, logger)
		if err != nil {
			logger.Warn("MongoDB unavailable, using in-memory store", zap.Error(err))
		} else {
			store = mongo.NewStore(client.Client, client.Database)
			closeStore = func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				client.Close(closeCtx)
			}
		}
	} else {
		logger.Info("MONGODB_URL not set, using in-memory store")
	}

	if cfg.RedisURL != "" {
		rdb, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis unavailable, preferences are not cached", zap.Error(err))
		} else {
			store = redis.NewCachedStore(store, rdb, logger)
			previous := closeStore
			closeStore = func() {
				rdb.Close()
				previous()
			}
		}
	}

	return store, closeStore
}

// newRecognizer returns nil when the configured engine cannot start; audio
// turns then report recognition as unavailable.
func newRecognizer(ctx context.Context, cfg config.Config, logger *zap.Logger) (repositories.SpeechRecognizer, func()) {
	switch cfg.STTProvider {
	case config.ProviderGoogle:
		recognizer, err := stt.NewGoogle(ctx, "", logger)
		if err != nil {
			logger.Warn("Google speech recognition unavailable", zap.Error(err))
			return nil, func() {}
		}
		return recognizer, func() { recognizer.Close() }
	default:
		recognizer, err := stt.NewVosk(cfg.VoskModelPath, logger)
		if err != nil {
			logger.Warn("Vosk speech recognition unavailable", zap.String("modelPath", cfg.VoskModelPath), zap.Error(err))
			return nil, func() {}
		}
		return recognizer, recognizer.Close
	}
}

func newAI(ctx context.Context, cfg config.Config, logger *zap.Logger) (repositories.Interpreter, repositories.Vision) {
	if !cfg.AIEnabled {
		logger.Info("AI interpretation disabled")
		return nil, nil
	}

	switch cfg.AIProvider {
	case config.ProviderGemini:
		gemini, err := llm.NewGemini(ctx, llm.NewGeminiConfigFromEnv(), logger)
		if err != nil {
			logger.Warn("Gemini unavailable", zap.Error(err))
			return nil, nil
		}
		return gemini, gemini
	default:
		ollamaConfig := llm.NewOllamaConfigFromEnv()
		interpreter, err := llm.NewOllama(ollamaConfig, logger)
		if err != nil {
			logger.Warn("Ollama unavailable", zap.Error(err))
			return nil, nil
		}
		vision, err := llm.NewOllamaVision(ollamaConfig, logger)
		if err != nil {
			logger.Warn("Ollama vision unavailable", zap.Error(err))
			return interpreter, nil
		}
		return interpreter, vision
	}
}

func newSynthesizer(cfg config.Config, logger *zap.Logger) (repositories.Synthesizer, repositories.VoiceLister) {
	switch cfg.TTSProvider {
	case config.ProviderElevenLabs:
		elevenLabs, err := tts.NewElevenLabsTTS(tts.NewElevenLabsConfigFromEnv(), logger)
		if err != nil {
			logger.Warn("ElevenLabs unavailable, speech disabled", zap.Error(err))
			return nil, nil
		}
		return elevenLabs, elevenLabs
	default:
		espeak, err := tts.NewEspeak(tts.NewEspeakConfigFromEnv(), logger)
		if err != nil {
			logger.Warn("espeak unavailable, speech disabled", zap.Error(err))
			return nil, nil
		}
		return espeak, espeak
	}
}
