package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/simaogato/networth-backend/internal/domain"
	"github.com/simaogato/networth-backend/internal/report"
	"github.com/simaogato/networth-backend/internal/usecase/seeder"
)

// recordCmd records balances and appends a snapshot
type recordCmd struct{}

func (*recordCmd) Name() string     { return "record" }
func (*recordCmd) Synopsis() string { return "record new balances and append a snapshot" }
func (*recordCmd) Usage() string {
	return `networth record [<account id>=<balance>...]

  Updates the given balances and appends a snapshot of every account.
  Without arguments, a snapshot of the current balances is appended.
`
}
func (*recordCmd) SetFlags(*flag.FlagSet) {}

func (*recordCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	balances, err := parseBalances(f.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	return withSession(ctx, func(s *session) error {
		doc, err := s.portfolio.RecordBalances(ctx, balances)
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

// parseBalances parses "id=balance" arguments
func parseBalances(args []string) (map[string]decimal.Decimal, error) {
	balances := make(map[string]decimal.Decimal, len(args))
	for _, arg := range args {
		id, value, ok := strings.Cut(arg, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid balance %q, expected <account id>=<balance>", arg)
		}
		balance, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid balance for %s: %w", id, err)
		}
		if _, dup := balances[id]; dup {
			return nil, fmt.Errorf("balance for %s given twice", id)
		}
		balances[id] = balance
	}
	return balances, nil
}

// queryCmd evaluates a JSONPath expression against the document
type queryCmd struct{}

func (*queryCmd) Name() string     { return "query" }
func (*queryCmd) Synopsis() string { return "evaluate a JSONPath expression against the document" }
func (*queryCmd) Usage() string {
	return `networth query <jsonpath>

  Prints the JSON value selected in the stored document, for instance:

    networth query '$.accounts[?(@.type == "Inversión")].name'
    networth query '$.history[-1:].total'
`
}
func (*queryCmd) SetFlags(*flag.FlagSet) {}

func (*queryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected exactly one JSONPath expression")
		return subcommands.ExitUsageError
	}
	return withSession(ctx, func(s *session) error {
		doc, err := s.dashboard.GetDocument(ctx)
		if err != nil {
			return err
		}
		out, err := queryDocument(doc, f.Arg(0))
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(out))
		return nil
	})
}

// queryDocument evaluates path against the JSON form of doc and returns the indented result
func queryDocument(doc *domain.Document, path string) ([]byte, error) {
	data, err := doc.Marshal()
	if err != nil {
		return nil, err
	}
	var jobj any
	if err := json.Unmarshal(data, &jobj); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}

	result, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate %q: %w", path, err)
	}
	return json.MarshalIndent(result, "", "  ")
}

// importCmd loads a finance_data.json file into an empty store
type importCmd struct {
	force bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import a finance_data.json file" }
func (*importCmd) Usage() string {
	return `networth import [-f] <file>

  Imports the document into the configured store. A store holding data is left
  untouched unless -f is given, in which case it is overwritten.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.force, "f", false, "overwrite a store that already holds data")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected the file to import")
		return subcommands.ExitUsageError
	}
	path := f.Arg(0)
	return withSession(ctx, func(s *session) error {
		if c.force {
			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()
			doc, err := domain.DecodeDocument(file)
			if err != nil {
				return &domain.ValidationError{Field: "document", Reason: err.Error()}
			}
			if _, err := s.portfolio.ReplaceDocument(ctx, doc); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "imported %d accounts and %d snapshots\n", len(doc.Accounts), len(doc.History))
			return nil
		}

		imported, err := seeder.NewDocumentSeeder(s.stores.Store, nil).SeedFile(ctx, path)
		if err != nil {
			return err
		}
		if !imported {
			fmt.Fprintln(stdout, "nothing imported, the store already holds data or the file is empty (use -f to overwrite)")
			return nil
		}
		fmt.Fprintln(stdout, "imported")
		return nil
	})
}

// exportCmd writes the document as finance_data.json
type exportCmd struct {
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export the document as JSON" }
func (*exportCmd) Usage() string {
	return `networth export [-o <file>]

  Writes the stored document in the finance_data.json format.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "output file (default: standard output)")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withSession(ctx, func(s *session) error {
		doc, err := s.dashboard.GetDocument(ctx)
		if err != nil {
			return err
		}
		data, err := doc.MarshalIndent()
		if err != nil {
			return err
		}
		if c.output == "" {
			fmt.Fprintln(stdout, string(data))
			return nil
		}
		return os.WriteFile(c.output, data, 0o644)
	})
}
