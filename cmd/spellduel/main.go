package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spellduel/server/internal/bot"
	"github.com/spellduel/server/internal/config"
	"github.com/spellduel/server/internal/data"
	"github.com/spellduel/server/internal/event"
	"github.com/spellduel/server/internal/lobby"
	"github.com/spellduel/server/internal/persist"
	"github.com/spellduel/server/internal/replay"
	"github.com/spellduel/server/internal/scripting"
	"github.com/spellduel/server/internal/session"
	"github.com/spellduel/server/internal/web"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            SpellDuel  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      wizard duel playground server        \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("SPELLDUEL_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. Connect to PostgreSQL and run migrations
	var (
		playerStore session.PlayerStore
		resultSink  session.ResultSink
	)
	if cfg.Database.Enabled {
		printSection("database")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("postgresql connected")

		if err := persist.RunMigrations(ctx, db.Pool); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")
		fmt.Println()

		playerRepo := persist.NewPlayerRepo(db)
		playerStore = playerRepo
		resultSink = persist.NewResultRepo(db, playerRepo)
	}

	// 4. Load game data
	printSection("data loading")

	spells := data.BuiltinSpellTable()
	if cfg.Game.SpellTablePath != "" {
		spells, err = data.LoadSpellTable(cfg.Game.SpellTablePath)
		if err != nil {
			return fmt.Errorf("load spell table: %w", err)
		}
	}
	printStat("spells", spells.Count())

	// 5. Initialize Lua scripting engine
	var luaEngine *scripting.Engine
	if cfg.Game.ScriptsDir != "" {
		luaEngine, err = scripting.NewEngine(cfg.Game.ScriptsDir, log)
		if err != nil {
			return fmt.Errorf("lua engine: %w", err)
		}
		defer luaEngine.Close()
		printOK("lua bots loaded")
	}
	printStat("builtin strategies", len(bot.Builtins()))
	fmt.Println()

	// 6. Wire the session runtime: recorder → broadcaster → registry →
	// matchmaker. Teardown walks the same chain in reverse.
	recorder := replay.NewRecorder(cfg.Replay.MirrorDir, log)
	broadcaster := event.NewBroadcaster(cfg.Events.QueueSize, log)
	registry := session.NewRegistry()
	factory := bot.NewFactory(luaEngine)
	runtime := session.NewRuntime(cfg, spells, registry, broadcaster, recorder, factory, playerStore, resultSink, log)
	matchmaker := lobby.NewMatchmaker(runtime, playerStore, cfg.Lobby.JoinTimeout.Std(), log)

	// 7. HTTP server
	srv := web.NewServer(web.Deps{
		Runtime:  runtime,
		Registry: registry,
		Events:   broadcaster,
		Replays:  recorder,
		Lobby:    matchmaker,
		Log:      log,
	})
	httpServer := &http.Server{
		Addr:              cfg.Server.BindAddress,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	printSection("server ready")
	printReady(fmt.Sprintf("listening on %s", cfg.Server.BindAddress))
	printReady(fmt.Sprintf("turn timeout %s, max turns %d", cfg.Game.TurnTimeout, cfg.Game.MaxTurns))
	fmt.Println()

	// 8. Wait for shutdown signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdownCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	// 9. Graceful teardown, reverse of construction.
	matchmaker.Shutdown()
	runtime.Shutdown()
	broadcaster.Shutdown()
	recorder.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
