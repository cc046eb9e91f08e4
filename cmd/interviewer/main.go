// Command interviewer runs the interview orchestration engine's HTTP
// surface: POST /sessions/start, POST /sessions/turn, and
// GET /sessions/{id}.
//
// Usage:
//
//	interviewer --config config.yaml
//	interviewer --config config.yaml --fixtures ./fixtures --addr :8080
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lattice-hire/interviewer/pkg/agents"
	"github.com/lattice-hire/interviewer/pkg/apperrors"
	"github.com/lattice-hire/interviewer/pkg/config"
	"github.com/lattice-hire/interviewer/pkg/fixtures"
	"github.com/lattice-hire/interviewer/pkg/flow"
	"github.com/lattice-hire/interviewer/pkg/gateway"
	"github.com/lattice-hire/interviewer/pkg/logger"
	"github.com/lattice-hire/interviewer/pkg/persona"
	"github.com/lattice-hire/interviewer/pkg/server"
	"github.com/lattice-hire/interviewer/pkg/session"
	"github.com/lattice-hire/interviewer/pkg/stores"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration document")
	fixturesDir := flag.String("fixtures", "", "directory of *.interview.yaml / *.candidate.yaml fixtures")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	logLevel := flag.String("log-level", "info", "debug | info | warn | error")
	flag.Parse()

	_ = godotenv.Load()

	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	logger.Init(level, os.Stderr, "simple")

	doc, err := config.Load(*configPath)
	if err != nil {
		slog.Error("❌ config invalid", "err", fmt.Errorf("%w: %v", apperrors.ErrConfigInvalid, err))
		os.Exit(1)
	}

	apiKey := os.Getenv(doc.LLM.APIKeyEnvVar)
	if apiKey == "" {
		slog.Warn("llm api key env var is empty; calls to the provider will fail", "env_var", doc.LLM.APIKeyEnvVar)
	}

	transport := gateway.NewHTTPTransport(apiKey)
	gw := gateway.New(transport)

	schemas := map[string]gateway.OutputSchema{
		agents.RoutePrimer:     gateway.NewOutputSchema[agents.PrimerOutput](agents.RoutePrimer),
		agents.RouteWarmup:     gateway.NewOutputSchema[agents.WarmupOutput](agents.RouteWarmup),
		agents.RouteQuestioner: gateway.NewOutputSchema[agents.QuestionerOutput](agents.RouteQuestioner),
		agents.RouteEvaluator:  gateway.NewOutputSchema[agents.EvaluatorOutput](agents.RouteEvaluator),
		agents.RouteAutoReply:  gateway.NewOutputSchema[agents.AutoReplyOutput](agents.RouteAutoReply),
	}

	routes, err := gateway.NewRouteRegistry(doc, schemas)
	if err != nil {
		slog.Error("❌ route registry invalid", "err", fmt.Errorf("%w: %v", apperrors.ErrConfigInvalid, err))
		os.Exit(1)
	}

	primerRoute, primerSchema, err := routes.Lookup(agents.RoutePrimer)
	mustRoute(err)
	warmupRoute, warmupSchema, err := routes.Lookup(agents.RouteWarmup)
	mustRoute(err)
	questionerRoute, questionerSchema, err := routes.Lookup(agents.RouteQuestioner)
	mustRoute(err)
	evaluatorRoute, evaluatorSchema, err := routes.Lookup(agents.RouteEvaluator)
	mustRoute(err)
	autoReplyRoute, autoReplySchema, err := routes.Lookup(agents.RouteAutoReply)
	mustRoute(err)

	primerAgent := agents.NewPrimer(gw, primerRoute, primerSchema)
	warmupAgent := agents.NewWarmup(gw, warmupRoute, warmupSchema)
	questionerAgent := agents.NewQuestioner(gw, questionerRoute, questionerSchema)
	evaluatorAgent := agents.NewEvaluator(gw, evaluatorRoute, evaluatorSchema)
	autoReplyAgent := agents.NewAutoReply(gw, autoReplyRoute, autoReplySchema)

	flowMgr := flow.New(doc.Flow, primerAgent, warmupAgent, questionerAgent, evaluatorAgent, autoReplyAgent, persona.Default())

	rubricStore := stores.NewInMemoryRubricStore()
	candidateStore := stores.NewInMemoryCandidateStore()

	if *fixturesDir != "" {
		count, err := fixtures.LoadDir(*fixturesDir, rubricStore, candidateStore)
		if err != nil {
			slog.Error("❌ failed to load fixtures", "dir", *fixturesDir, "err", err)
			os.Exit(1)
		}
		slog.Info("📋 loaded fixtures", "dir", *fixturesDir, "count", count)
	}
	seedDemoFixture(rubricStore, candidateStore)

	idleTimeout := time.Duration(doc.Flow.SessionTimeoutMinutes * float64(time.Minute))
	completeGrace := time.Duration(doc.Flow.SessionCompleteGraceMins * float64(time.Minute))
	sessionMgr := session.New(idleTimeout, completeGrace)

	srv := server.New(flowMgr, sessionMgr, rubricStore, candidateStore)

	stopSweep := startIdleSweeper(sessionMgr, idleTimeout)
	defer close(stopSweep)

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: srv,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("✅ interview engine listening", "addr", *addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		slog.Info("🛑 shutting down")
	case err := <-errCh:
		slog.Error("❌ server error", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("⚠️  graceful shutdown failed", "err", err)
		os.Exit(1)
	}
	slog.Info("👋 shut down cleanly")
}

func mustRoute(err error) {
	if err != nil {
		slog.Error("❌ route registry missing required agent route", "err", fmt.Errorf("%w: %v", apperrors.ErrConfigInvalid, err))
		os.Exit(1)
	}
}

// seedDemoFixture registers the built-in demo interview/candidate so the
// server answers /sessions/start out of the box even with no fixtures
// directory configured.
func seedDemoFixture(rubrics *stores.InMemoryRubricStore, candidates *stores.InMemoryCandidateStore) {
	interviewID, r, jdSummary, resumeText, candidateID, prof := fixtures.Demo()
	rubrics.Seed(interviewID, r, jdSummary, resumeText)
	candidates.Seed(candidateID, prof)
}

// startIdleSweeper runs session.Manager.Sweep on a ticker so idle sessions
// are evicted even without a lookup touching them.
// Returns a channel whose close stops the goroutine.
func startIdleSweeper(mgr *session.Manager, idleTimeout time.Duration) chan struct{} {
	stop := make(chan struct{})
	interval := idleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				mgr.Sweep()
			case <-stop:
				return
			}
		}
	}()

	return stop
}
