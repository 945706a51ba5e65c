// Command arena-demo wires C1-C7 together against an in-process,
// deterministic bot roster and runs one series end to end, exposing an
// optional /metrics sidecar and an optional /ws live event stream that
// keep serving after the run until the process is interrupted.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/forgeline/arena/internal/config"
	"github.com/forgeline/arena/internal/dispatch"
	"github.com/forgeline/arena/internal/domain"
	"github.com/forgeline/arena/internal/executor"
	"github.com/forgeline/arena/internal/journal"
	"github.com/forgeline/arena/internal/publish"
	"github.com/forgeline/arena/internal/publish/remote"
	"github.com/forgeline/arena/internal/series"
	"github.com/forgeline/arena/pkg/logger"
	"github.com/forgeline/arena/pkg/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewWithOptions(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Async:  cfg.Logging.Async,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	m := metrics.New()

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
		})
		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           mux,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("metrics server listening", zap.String("addr", metricsSrv.Addr))
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bots := demoBots(8)
	gameTypes := []string{"sum-sprint", "sum-marathon"}
	registry := domain.GameRegistry{
		"sum-sprint":   {GameType: "sum-sprint", MaxRounds: 3, MoveTimeout: 200 * time.Millisecond},
		"sum-marathon": {GameType: "sum-marathon", MaxRounds: 10, MoveTimeout: 200 * time.Millisecond},
	}

	seriesCfg := domain.SeriesConfig{
		GameTypes:          gameTypes,
		GroupCount:         cfg.Series.GroupCount,
		FinalistsPerGroup:  cfg.Series.FinalistsPerGroup,
		UseTiebreakers:     true,
		TiebreakerGameType: gameTypes[0],
		MaxParallelMatches: cfg.Series.MaxParallelMatches,
		MoveTimeout:        cfg.Series.MoveTimeout,
		MemoryLimitMB:      cfg.Series.MemoryLimitMB,
	}.WithDefaults(runtime.NumCPU())

	j, err := journal.New(filepath.Join(os.TempDir(), "arena-demo", "matches"), log, m)
	if err != nil {
		log.Fatal("failed to create match journal", zap.Error(err))
	}
	defer func() { _ = j.Close() }()

	pub := publish.NewLocal(log)
	pub.Subscribe(loggingSink{log: log})

	var remoteSrv *http.Server
	if cfg.Remote.Enabled {
		hub := remote.NewHub(log)
		go hub.Run(ctx)
		pub.SubscribeRemote(hub)

		mux := http.NewServeMux()
		mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
			seriesID, err := uuid.Parse(r.URL.Query().Get("series_id"))
			if err != nil {
				http.Error(w, "missing or invalid series_id", http.StatusBadRequest)
				return
			}
			conn, err := wsUpgrader.Upgrade(w, r, nil)
			if err != nil {
				log.LogError("websocket upgrade failed", err)
				return
			}
			c := remote.NewClient(hub, conn, seriesID, log)
			c.Register()
			go c.WritePump()
			go c.ReadPump()
		})
		remoteSrv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Remote.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("remote publish server listening", zap.String("addr", remoteSrv.Addr))
			if err := remoteSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("remote publish server error", zap.Error(err))
			}
		}()
	}

	exec := executor.New(newDemoResolver(), log, m)
	runner := dispatch.New(exec, cfg.Dispatch.StuckThreshold, log, m)

	mgr := series.New("arena-demo-series", bots, seriesCfg, registry, runner, j, pub, log, m)

	log.Info("starting demo series",
		zap.Int("bot_count", len(bots)),
		zap.Strings("game_types", gameTypes),
	)

	info, err := mgr.RunSeries(ctx)
	if err != nil {
		log.Fatal("series run failed", zap.Error(err))
	}

	if info.SeriesChampion != nil {
		log.Info("series complete",
			zap.String("champion", info.SeriesChampion.TeamName),
			zap.Int("events", len(info.OrderedEvents)),
		)
	} else {
		log.Info("series complete with no champion (series was cancelled)")
	}

	if metricsSrv != nil || remoteSrv != nil {
		log.Info("demo run finished, sidecar servers still serving until interrupted")
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		if remoteSrv != nil {
			_ = remoteSrv.Shutdown(shutdownCtx)
		}
	}
}

func demoBots(n int) []domain.Bot {
	out := make([]domain.Bot, n)
	for i := range out {
		name := fmt.Sprintf("bot-%02d", i+1)
		out[i] = domain.Bot{ID: name, TeamName: name}
	}
	return out
}

// loggingSink is a local publish.Sink that logs every lifecycle
// envelope at debug level, standing in for a real dashboard/export
// subscriber.
type loggingSink struct {
	log *logger.Logger
}

func (s loggingSink) Receive(env publish.Envelope) {
	s.log.Debug("series event", zap.String("type", env.Type))
}
