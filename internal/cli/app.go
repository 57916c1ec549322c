// Package cli implements the networth command line application.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"github.com/simaogato/networth-backend/internal/backend"
	"github.com/simaogato/networth-backend/internal/config"
	"github.com/simaogato/networth-backend/internal/usecase/dashboard"
	"github.com/simaogato/networth-backend/internal/usecase/portfolio"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&summaryCmd{}, "reports")
	c.Register(&seriesCmd{}, "reports")
	c.Register(&compositionCmd{}, "reports")
	c.Register(&accountsCmd{}, "reports")
	c.Register(&revisionsCmd{}, "reports")
	c.Register(&queryCmd{}, "reports")

	c.Register(&recordCmd{}, "balances")

	c.Register(&importCmd{}, "data")
	c.Register(&exportCmd{}, "data")
}

// as a CLI application, it has a very short lived lifecycle, so package level state is fine.

var plain = flag.Bool("plain", false, "print raw markdown instead of rendering it for the terminal")

// stdout receives command output
var stdout io.Writer = os.Stdout

// openStore opens the store configured by the environment
var openStore = func(ctx context.Context) (*backend.StoreResult, *config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	stores, err := backend.OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return stores, cfg, nil
}

// session bundles what a subcommand needs for one run
type session struct {
	cfg       *config.Config
	stores    *backend.StoreResult
	dashboard *dashboard.DashboardService
	portfolio *portfolio.PortfolioService
}

func openSession(ctx context.Context) (*session, error) {
	stores, cfg, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return &session{
		cfg:       cfg,
		stores:    stores,
		dashboard: dashboard.NewDashboardService(stores.Store),
		portfolio: portfolio.NewPortfolioService(stores.Store, nil, nil, logger),
	}, nil
}

func (s *session) Close(ctx context.Context) {
	if err := s.stores.Cleanup(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing store: %v\n", err)
	}
}

// withSession opens a session, runs fn and reports its error
func withSession(ctx context.Context, fn func(*session) error) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.Close(ctx)

	if err := fn(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// printMarkdown renders md for the terminal, or prints it as is with -plain
func printMarkdown(md string) {
	if !*plain {
		renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
		if err == nil {
			if out, err := renderer.Render(md); err == nil {
				fmt.Fprint(stdout, out)
				return
			}
		}
	}
	fmt.Fprint(stdout, md)
}
