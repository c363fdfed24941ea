package datasource

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"product-filter/src/logger"
	"product-filter/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// FilterProductsMethod is the marketplace client search RPC.
const FilterProductsMethod = "/product_filter.ProductFilterService/FilterProducts"

// GRPCSourceClient talks to one marketplace client service. Requests and
// responses travel as google.protobuf.Struct.
type GRPCSourceClient struct {
	name   string
	conn   *grpc.ClientConn
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewGRPCSourceClient(cfg models.MSourceConfig, log *logger.Logger) (*GRPCSourceClient, error) {
	conn, err := grpc.NewClient(cfg.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect source %s at %s: %w", cfg.Name, cfg.Address, err)
	}
	return NewGRPCSourceClientFromConn(cfg.Name, conn, log), nil
}

// NewGRPCSourceClientFromConn wraps an existing connection
func NewGRPCSourceClientFromConn(name string, conn *grpc.ClientConn, log *logger.Logger) *GRPCSourceClient {
	return &GRPCSourceClient{name: name, conn: conn, Logger: log}
}

// -----------------------------------------------------------------------------

func (c *GRPCSourceClient) Name() string {
	return c.name
}

// -----------------------------------------------------------------------------

// Fetch runs one FilterProducts call.
func (c *GRPCSourceClient) Fetch(ctx context.Context, req models.MSourceRequest) ([]models.MRawListing, error) {
	in, err := structpb.NewStruct(map[string]interface{}{
		"query":       req.Query,
		"all_queries": []interface{}{req.Query},
		"category":    req.PlatformID,
		"exactmodels": req.ModelFilter,
		"source":      c.name,
	})
	if err != nil {
		return nil, err
	}

	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, FilterProductsMethod, in, out); err != nil {
		return nil, err
	}
	return decodeProducts(out, req.Category)
}

// -----------------------------------------------------------------------------

func (c *GRPCSourceClient) Close() error {
	return c.conn.Close()
}

// -----------------------------------------------------------------------------

// decodeProducts reads the "products" list. A missing list is a malformed
// response; entries without a name are dropped.
func decodeProducts(out *structpb.Struct, category string) ([]models.MRawListing, error) {
	field, ok := out.GetFields()["products"]
	if !ok || field.GetListValue() == nil {
		return nil, fmt.Errorf("malformed response: no products list")
	}

	var items []models.MRawListing
	for _, v := range field.GetListValue().GetValues() {
		p := v.GetStructValue()
		if p == nil {
			continue
		}
		f := p.GetFields()
		name := strings.TrimSpace(f["name"].GetStringValue())
		if name == "" {
			continue
		}
		items = append(items, models.MRawListing{
			ID:         stringField(f["id"]),
			Name:       name,
			Price:      priceField(f["price"]),
			ImageURL:   f["image_url"].GetStringValue(),
			ProductURL: f["product_url"].GetStringValue(),
			Category:   category,
		})
	}
	return items, nil
}

func stringField(v *structpb.Value) string {
	if v == nil {
		return ""
	}
	if _, ok := v.GetKind().(*structpb.Value_NumberValue); ok {
		return strconv.FormatInt(int64(v.GetNumberValue()), 10)
	}
	return v.GetStringValue()
}

func priceField(v *structpb.Value) int64 {
	if v == nil {
		return 0
	}
	if s, ok := v.GetKind().(*structpb.Value_StringValue); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s.StringValue), 64)
		if err != nil {
			return 0
		}
		return int64(f)
	}
	return int64(v.GetNumberValue())
}
