//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	grpcadapter "github.com/simaogato/networth-backend/internal/adapter/grpc"
	"github.com/simaogato/networth-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/networth-backend/internal/domain"
)

var (
	db         *postgres.DB
	repo       *postgres.DocumentRepository
	grpcClient *grpcadapter.NetWorthServiceClient
	grpcConn   *grpc.ClientConn
)

// TestMain connects to the database and to a server running with DATA_BACKEND=postgres
func TestMain(m *testing.M) {
	// 1. Connect to Database
	var err error
	db, err = postgres.NewDB(getDBConnectionString())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	repo = postgres.NewDocumentRepository(db)

	// 2. Connect to gRPC Server
	grpcConn, err = grpc.NewClient(getGRPCAddress(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to gRPC server: %v", err))
	}
	grpcClient = grpcadapter.NewNetWorthServiceClient(grpcConn)

	// Run tests
	code := m.Run()

	grpcConn.Close()
	db.Close()
	os.Exit(code)
}

// getAuthContext returns a context with authorization metadata
func getAuthContext() context.Context {
	token := os.Getenv("API_TOKEN")
	if token == "" {
		return context.Background()
	}
	md := metadata.New(map[string]string{
		"authorization": "Bearer " + token,
	})
	return metadata.NewOutgoingContext(context.Background(), md)
}

// getDBConnectionString returns the database connection string from environment or defaults
func getDBConnectionString() string {
	connStr := os.Getenv("DB_CONN_STR")
	if connStr != "" {
		return connStr
	}

	host := os.Getenv("DB_HOST")
	if host == "" {
		host = "localhost"
	}

	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}

	user := os.Getenv("DB_USER")
	if user == "" {
		user = "postgres"
	}

	password := os.Getenv("DB_PASSWORD")
	if password == "" {
		password = "postgres"
	}

	dbname := os.Getenv("DB_NAME")
	if dbname == "" {
		dbname = "networth"
	}

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}

// getGRPCAddress returns the gRPC server address from environment or defaults
func getGRPCAddress() string {
	addr := os.Getenv("GRPC_ADDRESS")
	if addr == "" {
		addr = "localhost:8080"
	}
	return addr
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func revisionCount(t *testing.T, ctx context.Context) int {
	t.Helper()
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_revisions WHERE document_id = $1`, postgres.DefaultDocumentID).Scan(&count)
	require.NoError(t, err)
	return count
}

// TestEndToEndFlow tests the complete flow: AddAccount -> RecordBalances -> EditAccount -> DeleteAccount
func TestEndToEndFlow(t *testing.T) {
	ctx := getAuthContext()
	accountID := "e2e-" + uuid.NewString()
	initialRevisions := revisionCount(t, ctx)

	// Step A: AddAccount
	_, err := grpcClient.AddAccount(ctx, mustStruct(t, map[string]any{
		"id":      accountID,
		"name":    "E2E Savings",
		"type":    domain.AccountTypeInterest,
		"balance": 500,
	}))
	require.NoError(t, err, "AddAccount should succeed")

	// Step B: Verify the account is persisted in the documents table
	doc, err := repo.Load(ctx)
	require.NoError(t, err)
	account, ok := doc.Account(accountID)
	require.True(t, ok, "Account should be stored")
	assert.True(t, decimal.NewFromInt(500).Equal(account.Balance))
	historyBefore := len(doc.History)

	// Step C: RecordBalances appends a snapshot holding the new balance
	_, err = grpcClient.RecordBalances(ctx, mustStruct(t, map[string]any{
		"balances": map[string]any{accountID: "612.40"},
	}))
	require.NoError(t, err, "RecordBalances should succeed")

	doc, err = repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc.History, historyBefore+1, "One snapshot should be appended")
	latest := doc.History[len(doc.History)-1]
	assert.True(t, decimal.RequireFromString("612.40").Equal(latest.Accounts[accountID]))

	sum := decimal.Zero
	for _, v := range latest.Accounts {
		sum = sum.Add(v)
	}
	assert.True(t, sum.Equal(latest.Total), "Snapshot total should equal the sum of its balances")

	// Step D: EditAccount keeps the id and replaces the other fields
	_, err = grpcClient.EditAccount(ctx, mustStruct(t, map[string]any{
		"id":      accountID,
		"name":    "E2E Savings (renamed)",
		"type":    domain.AccountTypeInterest,
		"balance": "612.40",
	}))
	require.NoError(t, err, "EditAccount should succeed")

	doc, err = repo.Load(ctx)
	require.NoError(t, err)
	account, ok = doc.Account(accountID)
	require.True(t, ok)
	assert.Equal(t, "E2E Savings (renamed)", account.Name)

	// Step E: DeleteAccount removes the account but keeps its history
	_, err = grpcClient.DeleteAccount(ctx, mustStruct(t, map[string]any{"id": accountID}))
	require.NoError(t, err, "DeleteAccount should succeed")

	doc, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.False(t, doc.HasAccount(accountID))
	_, kept := doc.History[len(doc.History)-1].Accounts[accountID]
	assert.True(t, kept, "History should still reference the deleted account")

	// Every save leaves a revision row
	assert.Equal(t, initialRevisions+4, revisionCount(t, ctx))
}

// TestReadFlow checks that reads agree with the stored document
func TestReadFlow(t *testing.T) {
	ctx := getAuthContext()

	doc, err := repo.Load(ctx)
	require.NoError(t, err)

	resp, err := grpcClient.GetDocument(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	assert.Len(t, resp.Fields["accounts"].GetListValue().GetValues(), len(doc.Accounts))
	assert.Len(t, resp.Fields["history"].GetListValue().GetValues(), len(doc.History))

	summary, err := grpcClient.GetSummary(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, float64(len(doc.Accounts)), summary.Fields["accountCount"].GetNumberValue())

	series, err := grpcClient.GetSeries(ctx, mustStruct(t, map[string]any{"timeframe": "ALL", "type": "total"}))
	require.NoError(t, err)
	assert.Len(t, series.Fields["rows"].GetListValue().GetValues(), len(doc.History))

	revisions, err := repo.Revisions(ctx, 5)
	require.NoError(t, err)
	for i := 1; i < len(revisions); i++ {
		assert.False(t, revisions[i].SavedAt.After(revisions[i-1].SavedAt), "Revisions should be newest first")
	}
}

// TestNegativeScenarios checks error mapping against the live server
func TestNegativeScenarios(t *testing.T) {
	ctx := getAuthContext()

	tests := []struct {
		name     string
		call     func() error
		wantCode codes.Code
	}{
		{
			name: "Delete unknown account",
			call: func() error {
				_, err := grpcClient.DeleteAccount(ctx, mustStruct(t, map[string]any{"id": "missing-" + uuid.NewString()}))
				return err
			},
			wantCode: codes.NotFound,
		},
		{
			name: "Record balance of unknown account",
			call: func() error {
				_, err := grpcClient.RecordBalances(ctx, mustStruct(t, map[string]any{
					"balances": map[string]any{"missing-" + uuid.NewString(): "1"},
				}))
				return err
			},
			wantCode: codes.InvalidArgument,
		},
		{
			name: "Unknown timeframe",
			call: func() error {
				_, err := grpcClient.GetSeries(ctx, mustStruct(t, map[string]any{"timeframe": "2W"}))
				return err
			},
			wantCode: codes.InvalidArgument,
		},
		{
			name: "Add account without name",
			call: func() error {
				_, err := grpcClient.AddAccount(ctx, mustStruct(t, map[string]any{"type": "ETF"}))
				return err
			},
			wantCode: codes.InvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, status.Code(err))
		})
	}
}
