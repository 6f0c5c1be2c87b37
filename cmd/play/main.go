// Command play runs a hot-seat game in the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"boardquest/internal/app/board"
	gameapp "boardquest/internal/app/game"
	"boardquest/internal/app/reward"
	"boardquest/internal/catalog"
	"boardquest/internal/platform/config"
	"boardquest/internal/platform/observability"
	"boardquest/internal/platform/telemetry"
	"boardquest/internal/ui"
)

func main() {
	_ = godotenv.Load()

	players := flag.String("players", "You,ai:Grimble,ai:Mossa", "comma separated names; prefix ai: for computer players")
	seed := flag.Int64("seed", time.Now().UnixNano(), "board and dice seed")
	logPath := flag.String("log", "", "write logs to this file")
	flag.Parse()

	specs, err := parsePlayers(*players)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// The terminal belongs to the board, so logs go to a file or nowhere.
	var out io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.Env, out)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer := telemetry.NoopTracer()
	if cfg.TracingEnabled {
		shutdown, err := telemetry.Setup(ctx, "play")
		if err != nil {
			logger.Warn().Err(err).Msg("telemetry setup failed; playing without traces")
		} else {
			defer func() { _ = shutdown(context.Background()) }()
			tracer = telemetry.Tracer("game")
		}
	}

	cat, err := catalog.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rewards := reward.NewGenerator(cat)
	deps := gameapp.Deps{
		Logger:    logger,
		Scheduler: gameapp.TimerScheduler{},
		Tracer:    tracer,
		Builder:   board.NewBuilder(cat, rewards),
		Rewards:   rewards,
	}
	session := gameapp.NewSession(deps, gameapp.ConfigFrom(cfg), uuid.New(), *seed, specs)
	defer session.Close()
	logger.Info().Str("session_id", session.ID().String()).Int64("seed", *seed).Int("players", len(specs)).Msg("game started")

	screen, err := ui.NewScreen()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	err = ui.NewApp(logger, screen, session).Run(ctx)
	screen.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parsePlayers(raw string) ([]gameapp.PlayerSpec, error) {
	var specs []gameapp.PlayerSpec
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		spec := gameapp.PlayerSpec{Name: part}
		if name, ok := strings.CutPrefix(part, "ai:"); ok {
			spec = gameapp.PlayerSpec{Name: strings.TrimSpace(name), AI: true}
		}
		if spec.Name == "" {
			return nil, fmt.Errorf("empty player name in %q", raw)
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 || len(specs) > 4 {
		return nil, fmt.Errorf("need 1 to 4 players, got %d", len(specs))
	}
	return specs, nil
}
