package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	_ "github.com/go-sql-driver/mysql"

	"github.com/igorvan/qrscan/pkg/config"
	"github.com/igorvan/qrscan/pkg/database"
	"github.com/igorvan/qrscan/pkg/history"
	"github.com/igorvan/qrscan/pkg/processing"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	subID := flag.String("subscription", "qrscan-mirror", "GCP PubSub Subscription Name")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	if cfg.PubSub.Topic == "" {
		panic("no pubsub topic configured, set QRSCAN_PUBSUB_TOPIC")
	}
	level, err := cfg.LogLevel()
	if err != nil {
		panic(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := openStorage(cfg, logger)
	if err != nil {
		panic(err)
	}

	prcssr, err := processing.New(storage, logger)
	if err != nil {
		panic(err)
	}
	if err := prcssr.Load(ctx); err != nil {
		panic(err)
	}

	client, err := pubsub.NewClient(ctx, cfg.PubSub.Project)
	if err != nil {
		panic(err)
	}
	defer client.Close()

	sub, err := subscription(ctx, client, cfg.PubSub.Topic, *subID)
	if err != nil {
		panic(err)
	}

	logger.Info("mirroring scan events", "topic", cfg.PubSub.Topic, "subscription", *subID, "storage", cfg.Storage.Backend)
	err = sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		event, err := processing.ParseEvent(m.Data)
		if err != nil {
			logger.Error(fmt.Sprintf("cannot parse received scan event [%s]: %s", string(m.Data), err))
			m.Ack()
			return
		}
		processingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		n, err := prcssr.Process(processingCtx, event)
		if err != nil {
			logger.Error("cannot mirror scan event", "id", event.ID, "error", err)
			m.Nack()
			return
		}
		logger.Info("scan event processed", "id", event.ID, "appended", n)
		m.Ack()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		panic(err)
	}
}

func subscription(ctx context.Context, client *pubsub.Client, topicID, subID string) (*pubsub.Subscription, error) {
	sub := client.Subscription(subID)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot check subscription %s: %w", subID, err)
	}
	if exists {
		return sub, nil
	}
	return client.CreateSubscription(ctx, subID, pubsub.SubscriptionConfig{Topic: client.Topic(topicID)})
}

func openStorage(cfg *config.Config, logger *slog.Logger) (processing.Storage, error) {
	if cfg.Storage.Backend == config.BackendMySQL {
		db, err := sql.Open("mysql", cfg.Storage.MySQLDSN)
		if err != nil {
			return nil, err
		}
		return database.New(db, logger)
	}
	return history.NewFileStore(cfg.Storage.Path, logger)
}
