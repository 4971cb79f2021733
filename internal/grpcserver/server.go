package grpcserver

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tvcompare/internal/catalog"
	"tvcompare/internal/compare"
)

// Server exposes the read side of the catalog over gRPC.
type Server struct {
	UnimplementedCatalogServiceServer
	Svc *catalog.Service
}

func NewServer(svc *catalog.Service) *Server {
	return &Server{Svc: svc}
}

func (s *Server) ListItems(ctx context.Context, req *ListItemsRequest) (*ListItemsResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request required")
	}
	items := s.Svc.Items(ctx, strings.TrimSpace(req.Q))
	return &ListItemsResponse{Total: int32(len(items)), Items: items}, nil
}

func (s *Server) GetItem(ctx context.Context, req *GetItemRequest) (*GetItemResponse, error) {
	if req == nil || strings.TrimSpace(req.ID) == "" {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}

	item, err := s.Svc.Item(ctx, strings.TrimSpace(req.ID))
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, status.Error(codes.NotFound, "not found")
	}
	if err != nil {
		return nil, status.Error(codes.Internal, "get failed")
	}
	return &GetItemResponse{Item: item}, nil
}

func (s *Server) Compare(ctx context.Context, req *CompareRequest) (*CompareResponse, error) {
	if req == nil || len(req.ItemIDs) == 0 {
		return nil, status.Error(codes.InvalidArgument, "item_ids required")
	}

	table, err := s.Svc.Compare(ctx, req.ItemIDs)
	switch {
	case err == nil:
		return &CompareResponse{Table: table}, nil
	case errors.Is(err, compare.ErrSelectionFull), errors.Is(err, compare.ErrEmptyID):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, catalog.ErrNotFound):
		return nil, status.Error(codes.NotFound, err.Error())
	default:
		return nil, status.Error(codes.Internal, "compare failed")
	}
}
