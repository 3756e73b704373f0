// Package app assembles the reconciliation services from settings. The CLI
// commands and the HTTP server share one App per process.
package app

import (
	"context"
	"fmt"
	"time"

	v1 "github.com/alexknuckles/ultrasuite/internal/api/v1"
	"github.com/alexknuckles/ultrasuite/internal/conf"
	"github.com/alexknuckles/ultrasuite/internal/datastore"
	"github.com/alexknuckles/ultrasuite/internal/datastore/repository"
	"github.com/alexknuckles/ultrasuite/internal/duplicates"
	"github.com/alexknuckles/ultrasuite/internal/ingest"
	"github.com/alexknuckles/ultrasuite/internal/logger"
	"github.com/alexknuckles/ultrasuite/internal/observability"
	"github.com/alexknuckles/ultrasuite/internal/resolution"
	"github.com/alexknuckles/ultrasuite/internal/skumap"
	"github.com/alexknuckles/ultrasuite/internal/suggest"
)

// Timeout bounds a single CLI operation.
const Timeout = 5 * time.Minute

// App holds the open database and the services built on it.
type App struct {
	Settings *conf.Settings
	Metrics  *observability.Metrics

	Manager    datastore.Manager
	Store      *repository.Store
	Registry   *skumap.Registry
	Strategy   suggest.Heuristic
	Detector   *duplicates.Detector
	Resolution *resolution.Service
	Policies   *resolution.PolicyStore
	Hook       *ingest.Hook
	Loader     *ingest.Loader
}

// New opens the configured database and wires every service to it.
func New(ctx context.Context, settings *conf.Settings) (*App, error) {
	m, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}

	manager, err := datastore.Open(ctx, &settings.Database, logger.Global().Module("datastore"))
	if err != nil {
		return nil, err
	}

	rs := &settings.Reconcile
	fallback, err := resolution.ParsePolicy(rs.DefaultPolicy)
	if err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("reconcile.defaultpolicy: %w", err)
	}

	a := &App{
		Settings: settings,
		Metrics:  m,
		Manager:  manager,
		Store:    manager.Store(),
		Strategy: suggest.Heuristic{
			MinScore:          rs.Suggest.Threshold,
			StripTokens:       rs.Suggest.StripTokens,
			BucketByFirstChar: rs.Suggest.BucketByFirstChar,
		},
	}

	a.Registry = skumap.NewRegistry(a.Store, skumap.Options{
		CacheTTL: rs.LookupCacheTTL,
		Logger:   logger.Global().Module("skumap"),
		Metrics:  m.Reconcile,
	})
	a.Detector = duplicates.NewDetector(a.Store, a.Registry, duplicates.Options{
		Location: rs.Location(),
		Logger:   logger.Global().Module("duplicates"),
		Metrics:  m.Reconcile,
	})
	a.Resolution = resolution.NewService(a.Store, a.Detector, resolution.Options{
		BatchSize: rs.ApplyBatchSize,
		Logger:    logger.Global().Module("resolution"),
		Metrics:   m.Reconcile,
	})
	a.Policies = resolution.NewPolicyStore(a.Store.Settings, fallback)
	a.Hook = ingest.NewHook(a.Registry, a.Resolution, a.Policies, a.Store.SourceLoads, ingest.Options{
		Logger:  logger.Global().Module("ingest"),
		Metrics: m.Reconcile,
	})
	a.Loader = ingest.NewLoader(a.Store.Transactions, a.Hook)

	return a, nil
}

// Services returns the services exposed over HTTP.
func (a *App) Services() v1.Services {
	return v1.Services{
		Registry:   a.Registry,
		Strategy:   a.Strategy,
		Detector:   a.Detector,
		Resolution: a.Resolution,
		Policies:   a.Policies,
		Loader:     a.Loader,
		Location:   a.Settings.Reconcile.Location(),
	}
}

// Close releases the database.
func (a *App) Close() error {
	return a.Manager.Close()
}
