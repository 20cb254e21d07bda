package main

import (
	"context"
	"os"

	"tickerbar/internal/app"
	"tickerbar/internal/config"
	"tickerbar/internal/tui"
	"tickerbar/pkg/logger"
	"tickerbar/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	serviceName = "tickerbar"
	logFile     = "tickerbar.log"
)

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	newLoggerFunc    = logger.New
	initTracerFunc   = tracing.InitTracer
	newRuntimeFunc   = app.New
	startRuntimeFunc = func(rt *app.Runtime, ctx context.Context) { rt.Start(ctx) }
	runProgramFunc   = func(m tea.Model) error {
		_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	}
	exitFunc = os.Exit
)

func main() {
	exitCode := 0
	// Registered first so it runs after every other deferred cleanup.
	defer func() {
		if exitCode != 0 {
			exitFunc(exitCode)
		}
	}()

	loadEnvFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfigFunc(ctx)
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	// The terminal belongs to the UI; stderr logging goes to a file instead.
	if cfg.Log.Output == "" || cfg.Log.Output == "stderr" {
		cfg.Log.Output = logFile
	}
	log, err := newLoggerFunc(cfg.Log)
	if err != nil {
		logrus.Fatalf("failed to initialize logger: %v", err)
	}

	tp, tracer, err := initTracerFunc(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.WithError(err).Error("error shutting down tracer provider")
		}
	}()

	rt := newRuntimeFunc(cfg, tracer, log)
	startRuntimeFunc(rt, ctx)
	defer rt.Stop()

	model := tui.New(rt.Prices, app.NewUIStore(), rt)
	defer model.Close()

	if err := runProgramFunc(model); err != nil {
		log.WithError(err).Error("terminal UI failed")
		exitCode = 1
	}
}
