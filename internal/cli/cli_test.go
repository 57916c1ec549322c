package cli

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
	"github.com/simaogato/networth-backend/internal/adapter/repository/memory"
	"github.com/simaogato/networth-backend/internal/backend"
	"github.com/simaogato/networth-backend/internal/config"
	"github.com/simaogato/networth-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *domain.Document {
	doc := domain.NewDocument()
	doc.Accounts = []domain.Account{
		{ID: "a", Name: "Bank", Type: domain.AccountTypeChecking, Balance: decimal.NewFromInt(100)},
		{ID: "b", Name: "Broker", Type: domain.AccountTypeETF, Balance: decimal.NewFromInt(50)},
	}
	return doc
}

// useStore points the subcommands at store and captures their output
func useStore(t *testing.T, store domain.SnapshotStore) *bytes.Buffer {
	t.Helper()
	out := new(bytes.Buffer)

	prevOpen, prevOut, prevPlain := openStore, stdout, *plain
	t.Cleanup(func() { openStore, stdout, *plain = prevOpen, prevOut, prevPlain })

	openStore = func(context.Context) (*backend.StoreResult, *config.Config, error) {
		stores := &backend.StoreResult{
			Store:   store,
			Cleanup: func(context.Context) error { return nil },
		}
		cfg := &config.Config{
			DataBackend:     config.BackendMemory,
			DefaultCurrency: "USD",
		}
		return stores, cfg, nil
	}
	stdout = out
	*plain = true
	return out
}

func execute(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(f)
	require.NoError(t, f.Parse(args))
	return cmd.Execute(context.Background(), f)
}

func TestParseBalances(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    map[string]decimal.Decimal
		wantErr bool
	}{
		{name: "No arguments", args: nil, want: map[string]decimal.Decimal{}},
		{
			name: "Several balances",
			args: []string{"a=150.25", " b = -3 "},
			want: map[string]decimal.Decimal{"a": decimal.RequireFromString("150.25"), "b": decimal.NewFromInt(-3)},
		},
		{name: "Missing separator", args: []string{"a150"}, wantErr: true},
		{name: "Missing id", args: []string{"=150"}, wantErr: true},
		{name: "Not a number", args: []string{"a=lots"}, wantErr: true},
		{name: "Duplicate id", args: []string{"a=1", "a=2"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBalances(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for id, want := range tt.want {
				assert.True(t, want.Equal(got[id]), "balance of %s: got %s", id, got[id])
			}
		})
	}
}

func TestQueryDocument(t *testing.T) {
	doc := sampleDocument()

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "Single value", path: "$.accounts[0].id", want: `"a"`},
		{name: "Filter", path: `$.accounts[?(@.type == "ETF")].name`, want: `["Broker"]`},
		{name: "Numbers", path: "$.accounts[*].balance", want: `[100, 50]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := queryDocument(doc, tt.path)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}

	_, err := queryDocument(doc, "$.accounts[")
	assert.Error(t, err)
}

func TestSummaryCmd(t *testing.T) {
	out := useStore(t, memory.NewStore(sampleDocument()))

	assert.Equal(t, subcommands.ExitSuccess, execute(t, &summaryCmd{}))
	assert.Contains(t, out.String(), "$150.00")
	assert.Contains(t, out.String(), "No previous snapshot")
}

func TestRecordCmd(t *testing.T) {
	store := memory.NewStore(sampleDocument())
	out := useStore(t, store)

	assert.Equal(t, subcommands.ExitSuccess, execute(t, &recordCmd{}, "a=175.5"))
	assert.Contains(t, out.String(), "$175.50")

	doc, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.History, 1)
	assert.True(t, decimal.RequireFromString("225.5").Equal(doc.History[0].Total))

	assert.Equal(t, subcommands.ExitUsageError, execute(t, &recordCmd{}, "a"))
	assert.Equal(t, subcommands.ExitFailure, execute(t, &recordCmd{}, "missing=1"))
}

func TestRevisionsCmd_NoRevisionLog(t *testing.T) {
	useStore(t, memory.NewStore(nil))

	assert.Equal(t, subcommands.ExitFailure, execute(t, &revisionsCmd{}))
	assert.Equal(t, subcommands.ExitUsageError, execute(t, &revisionsCmd{}, "-n", "0"))
}

func TestImportExportCmd(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "finance_data.json")
	data, err := sampleDocument().MarshalIndent()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(source, data, 0o644))

	store := memory.NewStore(nil)
	out := useStore(t, store)

	assert.Equal(t, subcommands.ExitSuccess, execute(t, &importCmd{}, source))
	assert.Contains(t, out.String(), "imported")

	// A second import leaves the data alone
	out.Reset()
	assert.Equal(t, subcommands.ExitSuccess, execute(t, &importCmd{}, source))
	assert.Contains(t, out.String(), "nothing imported")

	target := filepath.Join(dir, "export.json")
	assert.Equal(t, subcommands.ExitSuccess, execute(t, &exportCmd{}, "-o", target))
	exported, err := os.ReadFile(target)
	require.NoError(t, err)
	doc, err := domain.UnmarshalDocument(exported)
	require.NoError(t, err)
	assert.Len(t, doc.Accounts, 2)
}
