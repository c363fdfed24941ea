package grpc_control

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"

	"product-filter/src/helpers"
	"product-filter/src/logger"
	"product-filter/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeSearcher struct {
	err  error
	last models.MSearchRequest
}

func (f *fakeSearcher) Search(ctx context.Context, req models.MSearchRequest) (*models.MSearchResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.MSearchResponse{
		Listings:      []models.MListing{{ID: "c", Name: "RTX 5080", Price: 15000}},
		TotalQueries:  len(req.Queries),
		TotalListings: 1,
	}, nil
}

type fakeTrends struct{}

func (fakeTrends) AnalyzeTrend(ctx context.Context, query string, windowDays int) models.MTrendResult {
	return models.MTrendResult{Direction: models.TrendDown, Percentage: -3, DataPoints: windowDays}
}

func dial(t *testing.T, svc *ControlService) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(logging(svc.Logger)))
	Register(srv, svc)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func call(t *testing.T, conn *grpc.ClientConn, method string, in map[string]interface{}) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(in)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	out := &structpb.Struct{}
	err = conn.Invoke(context.Background(), "/"+ServiceName+"/"+method, req, out)
	return out, err
}

func newService(s Searcher) *ControlService {
	return NewControlService(s, fakeTrends{}, func() []string { return []string{"videocards"} },
		logger.NewLoggerTo(&bytes.Buffer{}, "DEBUG", "test"))
}

// -----------------------------------------------------------------------------

func TestSearchOverGRPC(t *testing.T) {
	searcher := &fakeSearcher{}
	conn := dial(t, newService(searcher))

	out, err := call(t, conn, "Search", map[string]interface{}{
		"queries":  []interface{}{"RTX 5080", "RTX 5090"},
		"category": "videocards",
		"limit":    10,
	})
	if err != nil {
		t.Fatalf("Search returned %v", err)
	}
	if searcher.last.Category != "videocards" || len(searcher.last.Queries) != 2 || searcher.last.Limit != 10 {
		t.Errorf("searcher saw %+v", searcher.last)
	}
	fields := out.GetFields()
	if fields["total_queries"].GetNumberValue() != 2 || fields["total_listings"].GetNumberValue() != 1 {
		t.Errorf("response = %v", out)
	}
	listings := fields["listings"].GetListValue().GetValues()
	if len(listings) != 1 || listings[0].GetStructValue().GetFields()["price"].GetNumberValue() != 15000 {
		t.Errorf("listings = %v", listings)
	}
}

func TestSearchErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]interface{}
		err  error
		want codes.Code
	}{
		{"queries not a list", map[string]interface{}{"queries": "RTX 5080"}, nil, codes.InvalidArgument},
		{"non-string query", map[string]interface{}{"queries": []interface{}{1.0}}, nil, codes.InvalidArgument},
		{"client error", map[string]interface{}{"category": "laptops"}, helpers.NewClientError("unknown category"), codes.InvalidArgument},
		{"classifier down", map[string]interface{}{"queries": []interface{}{"x"}}, helpers.NewClassifierError("classify", errors.New("503")), codes.Unavailable},
		{"internal", map[string]interface{}{"queries": []interface{}{"x"}}, errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := dial(t, newService(&fakeSearcher{err: tt.err}))
			_, err := call(t, conn, "Search", tt.in)
			if got := status.Code(err); got != tt.want {
				t.Errorf("code = %v; want %v (%v)", got, tt.want, err)
			}
		})
	}
}

func TestAnalyzeTrendOverGRPC(t *testing.T) {
	conn := dial(t, newService(&fakeSearcher{}))

	out, err := call(t, conn, "AnalyzeTrend", map[string]interface{}{"query": "RTX 5080", "window_days": 7})
	if err != nil {
		t.Fatalf("AnalyzeTrend returned %v", err)
	}
	trend := out.GetFields()["trend"].GetStructValue().GetFields()
	if trend["direction"].GetStringValue() != models.TrendDown || trend["data_points"].GetNumberValue() != 7 {
		t.Errorf("trend = %v", trend)
	}

	if _, err := call(t, conn, "AnalyzeTrend", map[string]interface{}{}); status.Code(err) != codes.InvalidArgument {
		t.Errorf("missing query code = %v; want InvalidArgument", status.Code(err))
	}
}

func TestListCategories(t *testing.T) {
	conn := dial(t, newService(&fakeSearcher{}))
	out, err := call(t, conn, "ListCategories", map[string]interface{}{})
	if err != nil {
		t.Fatalf("ListCategories returned %v", err)
	}
	cats := out.GetFields()["categories"].GetListValue().GetValues()
	if len(cats) != 1 || cats[0].GetStringValue() != "videocards" {
		t.Errorf("categories = %v", cats)
	}
}
