package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/shiftlog/internal/config"
	"github.com/mamadbah2/shiftlog/internal/domain/models"
	"github.com/mamadbah2/shiftlog/internal/repository"
	"github.com/mamadbah2/shiftlog/internal/repository/records"
	"github.com/mamadbah2/shiftlog/internal/service/deletion"
	"github.com/mamadbah2/shiftlog/internal/service/reporting"
	"github.com/mamadbah2/shiftlog/internal/service/shift"
	"github.com/mamadbah2/shiftlog/pkg/logger"
)

// app holds the services a command runs against.
type app struct {
	roster    *models.Roster
	reporting *reporting.Service
	deletion  *deletion.Service
	close     func() error
}

// opener builds the app for one command invocation.
type opener func(ctx context.Context, opts rootOptions) (*app, error)

func newApp(store records.Store, roster *models.Roster, parser *shift.Parser, log *zap.Logger) *app {
	return &app{
		roster:    roster,
		reporting: reporting.NewService(store, roster, parser, log.Named("svc.reporting")),
		deletion:  deletion.NewService(store, parser, nil, log.Named("svc.deletion")),
		close:     func() error { return nil },
	}
}

func openApp(ctx context.Context, opts rootOptions) (*app, error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(opts.logLevel)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Plant.Location()
	if err != nil {
		return nil, fmt.Errorf("plant time zone: %w", err)
	}
	roster, err := models.NewRoster(cfg.Plant.Machines)
	if err != nil {
		return nil, fmt.Errorf("machine roster: %w", err)
	}
	store, closeStore, err := repository.Open(ctx, cfg.Store, cfg.Sheets, log)
	if err != nil {
		return nil, err
	}

	a := newApp(store, roster, shift.NewParser(loc), log)
	a.close = func() error {
		_ = log.Sync()
		return closeStore()
	}
	return a, nil
}
