package commands

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bizledger/ledgerd/internal/auditlog"
	"github.com/bizledger/ledgerd/internal/balance"
	"github.com/bizledger/ledgerd/internal/chart"
	"github.com/bizledger/ledgerd/internal/config"
	"github.com/bizledger/ledgerd/internal/journal"
	"github.com/bizledger/ledgerd/internal/logger"
	"github.com/bizledger/ledgerd/internal/posting"
	"github.com/bizledger/ledgerd/internal/reconcile"
	"github.com/bizledger/ledgerd/internal/statement"
	"github.com/bizledger/ledgerd/internal/store"
)

// dateFormat is the CLI's date flag encoding.
const dateFormat = "2006-01-02"

// app bundles the wired services behind a command invocation.
type app struct {
	cfg        *config.Config
	store      *store.Store
	log        zerolog.Logger
	accounts   *chart.Service
	journal    *journal.Service
	engine     *posting.Engine
	balances   *balance.Calculator
	matcher    *reconcile.Matcher
	statements *statement.Generator
}

// openApp loads configuration and wires the engine for a command.
func openApp(cmd *cobra.Command) (*app, error) {
	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.Logging)

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	audit := auditlog.NewRecorder(cfg.Audit.Dir, logger.WithComponent(log, "audit"))
	balances := balance.NewCalculator(st)
	matcher := reconcile.NewMatcher(st, balances, audit)
	if cfg.Reconciliation.MatchWindowDays > 0 {
		matcher.SetDayWindow(cfg.Reconciliation.MatchWindowDays)
	}

	return &app{
		cfg:        cfg,
		store:      st,
		log:        log,
		accounts:   chart.NewService(st),
		journal:    journal.NewService(st),
		engine:     posting.NewEngine(st, audit),
		balances:   balances,
		matcher:    matcher,
		statements: statement.NewGenerator(st, balances),
	}, nil
}

// Close releases the app's resources.
func (a *app) Close() error {
	return a.store.Close()
}

// parseDate parses a CLI date flag.
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}
