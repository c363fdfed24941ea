// Package grpc_control exposes the pipeline over gRPC. Messages travel as
// google.protobuf.Struct, matching the marketplace clients.
package grpc_control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"product-filter/src/helpers"
	"product-filter/src/logger"
	"product-filter/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "product_filter.ProductFilter"

// Searcher runs one search through the pipeline.
type Searcher interface {
	Search(ctx context.Context, req models.MSearchRequest) (*models.MSearchResponse, error)
}

// TrendReader analyzes stored price history.
type TrendReader interface {
	AnalyzeTrend(ctx context.Context, query string, windowDays int) models.MTrendResult
}

// ControlService implements the ProductFilter service.
type ControlService struct {
	Searcher   Searcher
	Trends     TrendReader
	Categories func() []string
	Logger     *logger.Logger
}

// NewControlService creates a new instance of ControlService
func NewControlService(searcher Searcher, trends TrendReader, categories func() []string, log *logger.Logger) *ControlService {
	return &ControlService{
		Searcher:   searcher,
		Trends:     trends,
		Categories: categories,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

// Search expects {queries: [string], category: string, limit?: number}.
func (s *ControlService) Search(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeSearchRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	resp, err := s.Searcher.Search(ctx, req)
	if err != nil {
		return nil, s.toStatus("Search", err)
	}
	return encode(resp)
}

// -----------------------------------------------------------------------------

// AnalyzeTrend expects {query: string, window_days?: number}.
func (s *ControlService) AnalyzeTrend(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.Trends == nil {
		return nil, status.Error(codes.Unavailable, "trend analysis is not configured")
	}
	fields := in.GetFields()
	query := strings.TrimSpace(fields["query"].GetStringValue())
	if query == "" {
		return nil, status.Error(codes.InvalidArgument, "query is required")
	}
	windowDays := int(fields["window_days"].GetNumberValue())
	if windowDays < 0 {
		return nil, status.Error(codes.InvalidArgument, "window_days must not be negative")
	}

	trend := s.Trends.AnalyzeTrend(ctx, query, windowDays)
	return encode(map[string]interface{}{"query": query, "trend": trend})
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListCategories(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var list []interface{}
	if s.Categories != nil {
		for _, c := range s.Categories() {
			list = append(list, c)
		}
	}
	return structpb.NewStruct(map[string]interface{}{"categories": list})
}

// -----------------------------------------------------------------------------

func (s *ControlService) toStatus(method string, err error) error {
	if helpers.IsClientError(err) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	var ce *helpers.ClassifierError
	if errors.As(err, &ce) {
		s.Logger.Error("gRPC %s: %v", method, err)
		return status.Error(codes.Unavailable, err.Error())
	}
	s.Logger.Error("gRPC %s: %v", method, err)
	return status.Error(codes.Internal, err.Error())
}

// -----------------------------------------------------------------------------

func decodeSearchRequest(in *structpb.Struct) (models.MSearchRequest, error) {
	fields := in.GetFields()
	req := models.MSearchRequest{
		Category: fields["category"].GetStringValue(),
		Limit:    int(fields["limit"].GetNumberValue()),
	}
	if v, ok := fields["queries"]; ok {
		list := v.GetListValue()
		if list == nil {
			return req, fmt.Errorf("queries must be a list of strings")
		}
		for _, item := range list.GetValues() {
			q, ok := item.GetKind().(*structpb.Value_StringValue)
			if !ok {
				return req, fmt.Errorf("queries must be a list of strings")
			}
			req.Queries = append(req.Queries, q.StringValue)
		}
	}
	if req.Limit < 0 {
		return req, fmt.Errorf("limit must not be negative")
	}
	return req, nil
}

// encode converts a JSON-tagged value to a Struct.
func encode(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(raw); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Registration
// -----------------------------------------------------------------------------

func unaryHandler(call func(*ControlService, context.Context, *structpb.Struct) (*structpb.Struct, error), name string) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		svc := srv.(*ControlService)
		if interceptor == nil {
			return call(svc, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
		return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(svc, ctx, req.(*structpb.Struct))
		})
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*interface{})(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Search", Handler: unaryHandler((*ControlService).Search, "Search")},
		{MethodName: "AnalyzeTrend", Handler: unaryHandler((*ControlService).AnalyzeTrend, "AnalyzeTrend")},
		{MethodName: "ListCategories", Handler: unaryHandler((*ControlService).ListCategories, "ListCategories")},
	},
	Metadata: "product_filter.proto",
}

// Register attaches the service to a gRPC server.
func Register(srv *grpc.Server, svc *ControlService) {
	srv.RegisterService(&serviceDesc, svc)
}

// -----------------------------------------------------------------------------

// Serve listens on addr until the server is stopped.
func Serve(addr string, svc *ControlService, log *logger.Logger) (*grpc.Server, <-chan error) {
	srv := grpc.NewServer(grpc.UnaryInterceptor(logging(log)))
	Register(srv, svc)

	errs := make(chan error, 1)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		errs <- fmt.Errorf("failed to listen on %s: %w", addr, err)
		return srv, errs
	}

	go func() {
		log.Info("gRPC server listening on %s", addr)
		errs <- srv.Serve(lis)
	}()
	return srv, errs
}

func logging(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		log.Debug("gRPC %s -> %s", info.FullMethod, status.Code(err))
		return resp, err
	}
}
