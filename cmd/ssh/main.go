package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"slices"
	"syscall"
	"time"

	"tickerbar/internal/app"
	"tickerbar/internal/config"
	"tickerbar/internal/tui"
	"tickerbar/pkg/logger"
	"tickerbar/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	gossh "golang.org/x/crypto/ssh"
)

const serviceName = "tickerbar-ssh"

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	newLoggerFunc     = logger.New
	initTracerFunc    = tracing.InitTracer
	newRuntimeFunc    = app.New
	startRuntimeFunc  = func(rt *app.Runtime, ctx context.Context) { rt.Start(ctx) }
	newWishServerFunc = wish.NewServer
	setupSignalNotify = ossignal.Notify
	waitForSignalFunc = func(quit <-chan os.Signal) { <-quit }
)

// authorizeKey accepts any key when allowed is empty, otherwise only keys
// whose SHA256 fingerprint is listed.
func authorizeKey(allowed []string, log *logrus.Entry) func(ctx ssh.Context, key ssh.PublicKey) bool {
	return func(ctx ssh.Context, key ssh.PublicKey) bool {
		fingerprint := gossh.FingerprintSHA256(key)
		if len(allowed) > 0 && !slices.Contains(allowed, fingerprint) {
			log.WithFields(logrus.Fields{"user": ctx.User(), "fingerprint": fingerprint}).Warn("SSH auth denied")
			return false
		}
		log.WithFields(logrus.Fields{"user": ctx.User(), "fingerprint": fingerprint}).Info("SSH auth accepted")
		return true
	}
}

// sessionHandler gives every session its own UI store over the shared
// prices runtime.
func sessionHandler(rt *app.Runtime) bubbletea.Handler {
	return func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
		model := tui.New(rt.Prices, app.NewUIStore(), rt)
		pty, _, _ := s.Pty()
		model.SetSize(pty.Window.Width, pty.Window.Height)

		go func() {
			<-s.Context().Done()
			model.Close()
		}()

		return model, []tea.ProgramOption{tea.WithAltScreen()}
	}
}

func main() {
	loadEnvFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfigFunc(ctx)
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	log, err := newLoggerFunc(cfg.Log)
	if err != nil {
		logrus.Fatalf("failed to initialize logger: %v", err)
	}

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.WithError(err).Error("error shutting down tracer provider")
		}
	}()

	// One runtime feeds every session.
	rt := newRuntimeFunc(cfg, tracer, log)
	startRuntimeFunc(rt, ctx)
	defer rt.Stop()

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.SSH.Port)
	allowed := cfg.SSH.Fingerprints()
	if len(allowed) == 0 {
		log.Warn("SSH_AUTHORIZED_FINGERPRINTS not set, accepting any public key")
	}

	srv, err := newWishServerFunc(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(cfg.SSH.HostKeyPath),
		wish.WithPublicKeyAuth(authorizeKey(allowed, log.WithField("component", "ssh"))),
		wish.WithMiddleware(
			bubbletea.Middleware(sessionHandler(rt)),
			logging.Middleware(),
		),
	)
	if err != nil {
		log.Fatalf("failed to create SSH server: %v", err)
	}

	if srv != nil {
		go func() {
			log.WithField("addr", addr).Info("SSH server listening")
			if err := srv.ListenAndServe(); err != nil && err != ssh.ErrServerClosed {
				log.WithError(err).Error("SSH server stopped")
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info("Shutting down SSH server...")

	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("SSH server shutdown error")
		}
	}

	log.Info("SSH server exited")
}
