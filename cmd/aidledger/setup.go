package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/warp/aid-ledger/config"
	"github.com/warp/aid-ledger/ledger"
	"github.com/warp/aid-ledger/store/sqlite"
)

// runtime bundles what every command needs. Close releases the database.
type runtime struct {
	cfg    *config.Config
	logger *logrus.Logger
	store  *sqlite.Store
	ledger *ledger.Ledger
}

func setup(c *cli.Context, opts ...ledger.Option) (*runtime, error) {
	cfg, err := config.Load(c.String("env-prefix"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := config.NewLogger(cfg)

	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	opts = append([]ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithVoucherValidity(cfg.VoucherValidity()),
	}, opts...)

	return &runtime{
		cfg:    cfg,
		logger: logger,
		store:  store,
		ledger: ledger.New(store, opts...),
	}, nil
}

func (rt *runtime) Close() {
	if err := rt.store.Close(); err != nil {
		rt.logger.WithError(err).Warn("failed to close database")
	}
}
