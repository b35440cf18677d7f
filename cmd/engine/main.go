package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/yourusername/study-engine/internal/achievement"
	"github.com/yourusername/study-engine/internal/config"
	"github.com/yourusername/study-engine/internal/goal"
	"github.com/yourusername/study-engine/internal/notify"
	"github.com/yourusername/study-engine/internal/pattern"
	"github.com/yourusername/study-engine/internal/repository"
	"github.com/yourusername/study-engine/internal/service"
	"github.com/yourusername/study-engine/internal/timer"
	"github.com/yourusername/study-engine/internal/wellbeing"
	"github.com/yourusername/study-engine/pkg/materials"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	tzName := os.Getenv("ENGINE_TIMEZONE")
	if tzName == "" {
		tzName = "UTC"
	}
	location, err := time.LoadLocation(tzName)
	if err != nil {
		location = time.UTC
		zap.S().Warn("failed to load timezone, using UTC", zap.String("timezone", tzName), zap.Error(err))
	}

	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.EncoderConfig.TimeKey = "timestamp"
	logConfig.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.In(location).Format("2006-01-02T15:04:05-07:00"))
	}

	logger, err := logConfig.Build()
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer logger.Sync()

	zap.ReplaceGlobals(logger)
	zap.S().Info("logger initialized")

	if err := godotenv.Load(); err != nil {
		zap.S().Debug("load .env file", zap.Error(err))
	}

	postgresHost := os.Getenv("POSTGRES_HOST")
	postgresPort := os.Getenv("POSTGRES_PORT")
	postgresUser := os.Getenv("POSTGRES_USER")
	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	postgresDB := os.Getenv("POSTGRES_DB")

	if postgresHost == "" {
		zap.S().Fatal("missing required environment variables")
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		postgresHost, postgresPort, postgresUser, postgresPassword, postgresDB)

	repo, err := repository.NewDB(dsn, 10, 20)
	if err != nil {
		zap.S().Error("connect to PostgreSQL", zap.Error(err), zap.String("host", postgresHost))
		os.Exit(1)
	}
	defer repo.Close()

	if err = repo.Up("migrations"); err != nil {
		zap.S().Error("run migrations", zap.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Default()
	cfg.Routine.Timezone = tzName

	if err := repo.SeedAchievementCatalog(ctx, achievement.DefaultCatalog()); err != nil {
		zap.S().Error("seed achievement catalog", zap.Error(err))
		os.Exit(1)
	}
	for _, pref := range config.DefaultNotificationPreferences() {
		p := pref
		if err := repo.UpsertNotificationPreference(ctx, &p); err != nil {
			zap.S().Error("seed notification preference", zap.Error(err), zap.String("type", string(p.Type)))
			os.Exit(1)
		}
	}

	analyzer := pattern.NewAnalyzer(repo)
	evaluator := achievement.NewEvaluator(repo)
	notifier := notify.NewEngine(repo, analyzer)
	tm := timer.New(repo)
	goals := goal.NewTracker(repo, evaluator)
	monitor := wellbeing.NewMonitor(repo, notifier)

	svc := service.NewService(repo, cfg, tm, analyzer, evaluator, notifier, goals)

	if clientID := os.Getenv("AZURE_CLIENT_ID"); clientID != "" {
		scopes := []string{"Notes.Read", "offline_access"}
		auth := materials.NewAuthService(clientID, os.Getenv("AZURE_CLIENT_SECRET"), os.Getenv("AZURE_REDIRECT_URI"), scopes)
		svc.WithMaterials(service.MaterialsConfig{Auth: auth, Client: materials.NewClient()})
	}

	logError := func(name string) func(error) {
		return func(err error) {
			zap.S().Error(name, zap.Error(err))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		notifier.Run(gctx)
		return nil
	})
	g.Go(func() error {
		monitor.Run(gctx, logError("wellbeing tick"))
		return nil
	})
	g.Go(func() error {
		analyzer.Run(gctx, 6*time.Hour, logError("pattern refresh"))
		return nil
	})
	g.Go(func() error {
		evaluator.Run(gctx, time.Hour, logError("achievement sweep"))
		return nil
	})
	g.Go(func() error {
		// Daily cron: re-optimize today's timeline so due revisions and
		// fresh tasks get placed, then score yesterday's wellbeing.
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if _, _, err := svc.TimelineOptimize(gctx, time.Now()); err != nil {
					zap.S().Error("daily optimize", zap.Error(err))
				}
				if _, err := svc.WellbeingScore(gctx, time.Now().AddDate(0, 0, -1)); err != nil {
					zap.S().Error("daily wellbeing score", zap.Error(err))
				}
			}
		}
	})

	zap.S().Info("study engine started")

	if err := g.Wait(); err != nil {
		zap.S().Error("background loops exited", zap.Error(err))
		os.Exit(1)
	}
	zap.S().Info("study engine stopped")
}
