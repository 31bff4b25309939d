package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	tea "github.com/charmbracelet/bubbletea"
	_ "github.com/go-sql-driver/mysql"

	"github.com/igorvan/qrscan/pkg/api"
	"github.com/igorvan/qrscan/pkg/config"
	"github.com/igorvan/qrscan/pkg/database"
	"github.com/igorvan/qrscan/pkg/device"
	"github.com/igorvan/qrscan/pkg/events"
	"github.com/igorvan/qrscan/pkg/history"
	"github.com/igorvan/qrscan/pkg/logging"
	"github.com/igorvan/qrscan/pkg/scanning"
	"github.com/igorvan/qrscan/pkg/session"
	"github.com/igorvan/qrscan/pkg/ui"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	headless := flag.Bool("headless", false, "scan without the terminal UI, logging to stdout")
	flag.Parse()

	if err := run(*configPath, *headless); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, headless bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}

	var logger *slog.Logger
	if headless {
		logger, err = logging.New(os.Stdout, cfg.Log.Format, level)
	} else {
		var f *os.File
		logger, f, err = logging.NewFile(cfg.Log.File, cfg.Log.Format, level)
		if f != nil {
			defer f.Close()
		}
	}
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, closeStorage, err := openStorage(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStorage()

	opts := []scanning.Option{scanning.WithLogger(logger)}
	if cfg.PubSub.Topic != "" {
		client, err := pubsub.NewClient(ctx, cfg.PubSub.Project)
		if err != nil {
			return fmt.Errorf("cannot create pubsub client: %w", err)
		}
		defer client.Close()
		publisher, err := events.NewPublisher(ctx, client, cfg.PubSub.Topic, logger)
		if err != nil {
			return err
		}
		defer publisher.Stop()
		opts = append(opts, scanning.WithPublisher(publisher))
	}
	recorder, err := scanning.New(storage, opts...)
	if err != nil {
		return err
	}
	defer recorder.Wait()

	var torch device.Torch = device.NoTorch{}
	if cfg.Torch.Path != "" {
		torch = device.NewSysfsTorch(cfg.Torch.Path)
	}
	var feedback device.Feedback = device.Bell{W: os.Stdout}
	if !headless {
		// the bell would interleave with the TUI frames on stdout
		feedback = device.Bell{W: os.Stderr}
	}

	sess, err := session.New(recorder,
		device.NewImageDirSource(cfg.Camera.FramesDir),
		device.NewQRDecoder(cfg.Camera.TryHarder),
		session.WithConfig(session.Config{
			DeviceIndex:     cfg.Camera.Device,
			PollInterval:    cfg.Camera.PollInterval,
			MaxReadFailures: cfg.Camera.MaxReadFailures,
		}),
		session.WithTorch(torch),
		session.WithFeedback(feedback),
		session.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer sess.Close()
	logger.Info("scanner session created", "session", sess.ID(), "storage", cfg.Storage.Backend)

	// a broken log is reported in the status line, the user can still scan
	_ = sess.Open(ctx)

	if cfg.API.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.API.Addr,
			Handler:           api.NewRouter(sess, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("command API listening", "addr", cfg.API.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("command API stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if headless {
		if err := sess.Start(ctx); err != nil {
			return fmt.Errorf("cannot start scanning: %w", err)
		}
		if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Info("scanner is stopping")
		return nil
	}

	program := tea.NewProgram(ui.NewModel(ctx, sess, cfg.Camera.PollInterval), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}

func openStorage(cfg *config.Config, logger *slog.Logger) (scanning.Storage, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendMySQL:
		db, err := sql.Open("mysql", cfg.Storage.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open mysql: %w", err)
		}
		client, err := database.New(db, logger)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return client, func() { _ = db.Close() }, nil
	default:
		store, err := history.NewFileStore(cfg.Storage.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}
