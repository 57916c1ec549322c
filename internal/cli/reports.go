package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/simaogato/networth-backend/internal/report"
	"github.com/simaogato/networth-backend/internal/usecase/aggregation"
	"github.com/simaogato/networth-backend/internal/usecase/dashboard"
)

// summaryCmd prints the headline figures
type summaryCmd struct{}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display the net worth and its change since the previous snapshot" }
func (*summaryCmd) Usage() string {
	return `networth summary

  Displays the current total, the change against the previous snapshot and every account.
`
}
func (*summaryCmd) SetFlags(*flag.FlagSet) {}

func (*summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withSession(ctx, func(s *session) error {
		summary, err := s.dashboard.GetSummary(ctx)
		if err != nil {
			return err
		}
		md, err := report.Summary(summary, s.cfg.DefaultCurrency)
		if err != nil {
			return err
		}
		printMarkdown(md)
		return nil
	})
}

// seriesCmd prints the chart dataset as a table
type seriesCmd struct {
	timeframe  string
	typeFilter string
}

func (*seriesCmd) Name() string     { return "series" }
func (*seriesCmd) Synopsis() string { return "display the evolution of the net worth" }
func (*seriesCmd) Usage() string {
	return `networth series [-t ALL|1Y|6M|3M|1M] [-type all|total|<account type>]

  Displays one row per snapshot within the timeframe.
`
}

func (c *seriesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.timeframe, "t", "ALL", "timeframe preset")
	f.StringVar(&c.typeFilter, "type", aggregation.TypeFilterAll, "series to show: all accounts, the total only, or one account type")
}

func (c *seriesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withSession(ctx, func(s *session) error {
		series, err := s.dashboard.GetSeries(ctx, c.timeframe, c.typeFilter)
		if err != nil {
			return err
		}
		printMarkdown(report.Series(series, s.cfg.DefaultCurrency))
		return nil
	})
}

// compositionCmd prints the breakdown of current balances
type compositionCmd struct {
	by string
}

func (*compositionCmd) Name() string     { return "composition" }
func (*compositionCmd) Synopsis() string { return "display how the net worth is distributed" }
func (*compositionCmd) Usage() string {
	return `networth composition [-by account|type]

  Displays positive balances grouped by account or by account type, with their share.
`
}

func (c *compositionCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.by, "by", dashboard.GroupByAccount, "grouping: account or type")
}

func (c *compositionCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withSession(ctx, func(s *session) error {
		breakdown, err := s.dashboard.GetComposition(ctx, c.by)
		if err != nil {
			return err
		}
		md, err := report.Composition(breakdown, s.cfg.DefaultCurrency)
		if err != nil {
			return err
		}
		printMarkdown(md)
		return nil
	})
}

// accountsCmd lists the accounts
type accountsCmd struct{}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list the accounts" }
func (*accountsCmd) Usage() string {
	return `networth accounts

  Lists every account with its id, which 'record' expects.
`
}
func (*accountsCmd) SetFlags(*flag.FlagSet) {}

func (*accountsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withSession(ctx, func(s *session) error {
		doc, err := s.dashboard.GetDocument(ctx)
		if err != nil {
			return err
		}
		md, err := report.Accounts(doc.Accounts, s.cfg.DefaultCurrency)
		if err != nil {
			return err
		}
		printMarkdown(md)
		return nil
	})
}

// revisionsCmd lists the save log of stores that keep one
type revisionsCmd struct {
	limit int
}

func (*revisionsCmd) Name() string     { return "revisions" }
func (*revisionsCmd) Synopsis() string { return "list the latest saves of the document" }
func (*revisionsCmd) Usage() string {
	return `networth revisions [-n <count>]

  Lists the latest saves, newest first. Only the postgres and sqlite backends keep this log.
`
}

func (c *revisionsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 20, "number of revisions")
}

func (c *revisionsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.limit < 1 {
		fmt.Fprintln(os.Stderr, "Error: -n must be positive")
		return subcommands.ExitUsageError
	}
	return withSession(ctx, func(s *session) error {
		if s.stores.Revisions == nil {
			return fmt.Errorf("the %s backend keeps no revision log", s.cfg.DataBackend)
		}
		revisions, err := s.stores.Revisions.Revisions(ctx, c.limit)
		if err != nil {
			return err
		}
		md, err := report.Revisions(revisions, s.cfg.DefaultCurrency)
		if err != nil {
			return err
		}
		printMarkdown(md)
		return nil
	})
}
