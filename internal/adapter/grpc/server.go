package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/networth-backend/internal/domain"
	"github.com/simaogato/networth-backend/internal/usecase/dashboard"
	"github.com/simaogato/networth-backend/internal/usecase/portfolio"
)

// Server implements the NetWorthService gRPC server
type Server struct {
	DashboardService *dashboard.DashboardService
	PortfolioService *portfolio.PortfolioService
}

var _ NetWorthServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(
	dashboardService *dashboard.DashboardService,
	portfolioService *portfolio.PortfolioService,
) *Server {
	return &Server{
		DashboardService: dashboardService,
		PortfolioService: portfolioService,
	}
}

type seriesRequest struct {
	Timeframe string `json:"timeframe"`
	Type      string `json:"type"`
}

type compositionRequest struct {
	By string `json:"by"`
}

type deleteAccountRequest struct {
	ID string `json:"id"`
}

type recordBalancesRequest struct {
	Balances map[string]decimal.Decimal `json:"balances"`
}

// GetDocument handles the GetDocument RPC
func (s *Server) GetDocument(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	doc, err := s.DashboardService.GetDocument(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return documentToStruct(doc)
}

// GetSummary handles the GetSummary RPC
func (s *Server) GetSummary(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	summary, err := s.DashboardService.GetSummary(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(summary)
}

// GetSeries handles the GetSeries RPC
func (s *Server) GetSeries(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in seriesRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}

	series, err := s.DashboardService.GetSeries(ctx, in.Timeframe, in.Type)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(series)
}

// GetComposition handles the GetComposition RPC
func (s *Server) GetComposition(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in compositionRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}

	breakdown, err := s.DashboardService.GetComposition(ctx, in.By)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(breakdown)
}

// AddAccount handles the AddAccount RPC
func (s *Server) AddAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in portfolio.AccountInput
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}

	doc, err := s.PortfolioService.AddAccount(ctx, in)
	if err != nil {
		return nil, mapError(err)
	}
	return documentToStruct(doc)
}

// EditAccount handles the EditAccount RPC
func (s *Server) EditAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in portfolio.AccountInput
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	if in.ID == "" {
		return nil, status.Errorf(codes.InvalidArgument, "id is required")
	}

	doc, err := s.PortfolioService.EditAccount(ctx, in)
	if err != nil {
		return nil, mapError(err)
	}
	return documentToStruct(doc)
}

// DeleteAccount handles the DeleteAccount RPC
func (s *Server) DeleteAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in deleteAccountRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	if in.ID == "" {
		return nil, status.Errorf(codes.InvalidArgument, "id is required")
	}

	doc, err := s.PortfolioService.DeleteAccount(ctx, in.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return documentToStruct(doc)
}

// RecordBalances handles the RecordBalances RPC.
// Amounts may be sent as numbers or as decimal strings; strings keep full precision.
func (s *Server) RecordBalances(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in recordBalancesRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}

	doc, err := s.PortfolioService.RecordBalances(ctx, in.Balances)
	if err != nil {
		return nil, mapError(err)
	}
	return documentToStruct(doc)
}

// fromStruct decodes a request struct through its JSON form
func fromStruct(in *structpb.Struct, v any) error {
	data, err := protojson.Marshal(in)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	return nil
}

// toStruct encodes a response through its JSON form
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return bytesToStruct(data)
}

func documentToStruct(doc *domain.Document) (*structpb.Struct, error) {
	data, err := doc.Marshal()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return bytesToStruct(data)
}

func bytesToStruct(data []byte) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var (
		vErr *domain.ValidationError
		nErr *domain.NotFoundError
		uErr *domain.UploadError
	)
	switch {
	case errors.As(err, &vErr), errors.As(err, &uErr):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &nErr):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
