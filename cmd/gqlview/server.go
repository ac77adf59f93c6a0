package main

// server.go connects to the database, builds the GraphQL handler and runs the HTTP server

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/andrewwphillips/gqlview"
	"github.com/andrewwphillips/gqlview/engine/graphqlgo"
	"github.com/andrewwphillips/gqlview/example/notes"
	"github.com/andrewwphillips/gqlview/settings"
	"github.com/andrewwphillips/gqlview/txn"
)

const shutdownTimeout = 10 * time.Second

func newLogger(l settings.Log) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(l.Level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	var cfg zap.Config
	switch l.Format {
	case "json", "":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, errors.Errorf("unknown log format %q", l.Format)
	}
	cfg.Level = level
	return cfg.Build()
}

// openStore returns the notes store for the database settings plus a transaction starter (nil if there
// is no database) and a func to close the connection
func openStore(ctx context.Context, d settings.Database) (notes.Store, txn.Beginner, func(), error) {
	switch d.Driver {
	case "pgx":
		pool, err := pgxpool.New(ctx, d.DSN)
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "connecting to postgres")
		}
		store := notes.NewPgxStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		return store, txn.Pgx(pool), pool.Close, nil

	case "mysql":
		cfg, err := mysql.ParseDSN(d.DSN)
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "mysql dsn")
		}
		cfg.ParseTime = true
		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "mysql connector")
		}
		db := sql.OpenDB(connector)
		store := notes.NewSQLStore(db)
		if err := store.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		return store, txn.SQL(db, nil), func() { _ = db.Close() }, nil
	}
	return notes.NewMemStore(), nil, func() {}, nil
}

// routes returns the server's handler: the GraphQL endpoint (also on the subscription path if that is
// different) and the metrics
func routes(s *settings.Settings, store notes.Store, beginner txn.Beginner, log *zap.Logger) (http.Handler, error) {
	schema, err := notes.Schema(store, notes.NewBroker())
	if err != nil {
		return nil, errors.Wrap(err, "notes schema")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	h, err := gqlview.New(graphqlgo.New(schema),
		gqlview.FromSettings(s, beginner),
		gqlview.Logger(log),
		gqlview.Metrics(registry),
	)
	if err != nil {
		return nil, err
	}
	gql := newAuthHandler(h, s.Auth, log)

	mux := http.NewServeMux()
	mux.Handle(s.Server.Path, gql)
	if s.SubscriptionPath != "" && s.SubscriptionPath != s.Server.Path {
		mux.Handle(s.SubscriptionPath, gql)
	}
	if s.Server.Metrics != "" {
		mux.Handle(s.Server.Metrics, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	return mux, nil
}

// serve runs the server until ctx is cancelled, then shuts down gracefully
func serve(ctx context.Context, s *settings.Settings, log *zap.Logger) error {
	store, beginner, closeDB, err := openStore(ctx, s.Database)
	if err != nil {
		return err
	}
	defer closeDB()

	handler, err := routes(s, store, beginner, log)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              s.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("serving GraphQL", zap.String("addr", s.Server.Addr), zap.String("path", s.Server.Path),
			zap.String("database", s.Database.Driver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return errors.Wrap(srv.Shutdown(shutdownCtx), "shutdown")
}
