package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"waiterboard/internal/app/floor"
	"waiterboard/internal/app/intake"
	"waiterboard/internal/assignment"
	"waiterboard/internal/audit"
	"waiterboard/internal/common/db"
	"waiterboard/internal/common/logger"
	"waiterboard/internal/common/mq"
	"waiterboard/internal/config"
	"waiterboard/internal/directory"
	"waiterboard/internal/metrics"
	"waiterboard/internal/stats"
	"waiterboard/internal/store"
	"waiterboard/internal/tracking"
)

func main() {
	cfgPath := flag.String("config", "config.yml", "path to YAML config")
	port := flag.Int("port", 0, "http port (overrides config)")
	consumerName := flag.String("consumer-name", "waiterboard", "RabbitMQ consumer tag")
	prefetch := flag.Int("prefetch", 1, "RabbitMQ prefetch")
	flag.Parse()

	lg := logger.New("waiterboard")

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		lg.Error("config_load_failed", err, map[string]any{"path": *cfgPath})
		os.Exit(1)
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}
	loc, _ := cfg.Location() // validated during Load

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, err := db.Connect(ctx, cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Database)
	if err != nil {
		lg.Error("db_connect_failed", err, nil)
		os.Exit(1)
	}
	defer conn.Close()
	lg.Info("db_connected", map[string]any{"host": cfg.Database.Host, "database": cfg.Database.Database})

	orders := store.New()
	engine := assignment.New(orders)
	metrics.Register()

	deps := floor.Deps{
		Log:     lg,
		Orders:  orders,
		Engine:  engine,
		Stats:   stats.New(orders, loc),
		Board:   tracking.New(orders),
		Audit:   audit.NewPG(conn),
		Waiters: directory.NewPG(conn),
		Notify:  floor.NopNotifier{},
		Loc:     loc,
	}

	// The order store is process-local, so the intake consumer runs inside
	// the same process as the HTTP service when a broker is configured.
	if cfg.MQEnabled() {
		rmq, err := mq.Dial(cfg.RabbitMQ.Host, cfg.RabbitMQ.Port, cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.VHost)
		if err != nil {
			lg.Error("rabbitmq_connect_failed", err, nil)
			os.Exit(1)
		}
		defer rmq.Close()
		if err := rmq.DeclareAll(); err != nil {
			lg.Error("rabbitmq_declare_failed", err, nil)
			os.Exit(1)
		}
		lg.Info("rabbitmq_connected", map[string]any{"host": cfg.RabbitMQ.Host, "vhost": cfg.RabbitMQ.VHost})
		deps.Notify = rmq

		consumer := intake.New(lg.With(map[string]any{"component": "intake"}), orders, engine, rmq, *consumerName, *prefetch)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				lg.Error("intake_consumer_failed", err, nil)
				cancel()
			}
		}()
	} else {
		lg.Warn("rabbitmq_disabled", map[string]any{"reason": "no host configured"})
	}

	lg.Info("service_started", map[string]any{"port": cfg.HTTP.Port, "timezone": loc.String()})
	if err := floor.Run(ctx, cfg.HTTP.Port, deps); err != nil {
		lg.Error("fatal", err, nil)
		os.Exit(1)
	}
	lg.Info("graceful_shutdown", nil)
}
