package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"shop-catalog-service/internal/logger"
	"shop-catalog-service/internal/store"
)

const catalogServiceName = "shop.catalog.v1.CatalogService"

// CatalogServiceServer is the read-only gRPC mirror of the public catalog.
// Payloads are the same documents the HTTP API renders, carried as
// google.protobuf.Struct.
type CatalogServiceServer interface {
	GetCategory(ctx context.Context, in *wrapperspb.Int64Value) (*structpb.Struct, error)
	GetProduct(ctx context.Context, in *wrapperspb.Int64Value) (*structpb.Struct, error)
	ListCategories(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
}

// CatalogServiceDesc describes CatalogService for grpc.Server.RegisterService.
var CatalogServiceDesc = grpc.ServiceDesc{
	ServiceName: catalogServiceName,
	HandlerType: (*CatalogServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetCategory", Handler: getCategoryHandler},
		{MethodName: "GetProduct", Handler: getProductHandler},
		{MethodName: "ListCategories", Handler: listCategoriesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shop/catalog/v1/catalog.proto",
}

// RegisterCatalogServiceServer registers srv on s.
func RegisterCatalogServiceServer(s grpc.ServiceRegistrar, srv CatalogServiceServer) {
	s.RegisterService(&CatalogServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + catalogServiceName + "/" + name
}

func getCategoryHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServiceServer).GetCategory(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("GetCategory")}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CatalogServiceServer).GetCategory(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func getProductHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServiceServer).GetProduct(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("GetProduct")}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CatalogServiceServer).GetProduct(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func listCategoriesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServiceServer).ListCategories(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("ListCategories")}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CatalogServiceServer).ListCategories(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// CatalogServiceClient calls CatalogService over an existing connection.
type CatalogServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCatalogServiceClient(cc grpc.ClientConnInterface) *CatalogServiceClient {
	return &CatalogServiceClient{cc: cc}
}

func (c *CatalogServiceClient) GetCategory(ctx context.Context, in *wrapperspb.Int64Value, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("GetCategory"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CatalogServiceClient) GetProduct(ctx context.Context, in *wrapperspb.Int64Value, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("GetProduct"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CatalogServiceClient) ListCategories(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("ListCategories"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GRPCHandler implements CatalogServiceServer on top of the stores.
type GRPCHandler struct {
	categoryStore store.CategoryStorer
	productStore  store.ProductStorer
	renderer      *Renderer
	log           logger.Logger
	pageSize      int
}

// NewGRPCHandler creates a new GRPCHandler.
func NewGRPCHandler(cs store.CategoryStorer, ps store.ProductStorer, renderer *Renderer, log logger.Logger, pageSize int) *GRPCHandler {
	if log == nil {
		log = logger.Nop()
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &GRPCHandler{
		categoryStore: cs,
		productStore:  ps,
		renderer:      renderer,
		log:           log,
		pageSize:      pageSize,
	}
}

// --- Helper: Error Mapping ---
func (g *GRPCHandler) mapStoreErrorToGrpcStatus(err error, resourceName string, resourceID interface{}) error {
	switch {
	case errors.Is(err, store.ErrCategoryNotFound), errors.Is(err, store.ErrProductNotFound):
		return status.Errorf(codes.NotFound, "%s with ID %v not found", resourceName, resourceID)
	default:
		g.log.Error(err, fmt.Sprintf("gRPC %s lookup for ID %v failed", resourceName, resourceID))
		return status.Errorf(codes.Internal, "failed to process request for %s ID %v", resourceName, resourceID)
	}
}

// toStruct converts a rendered schema to a Struct via its JSON form, so gRPC
// and HTTP clients see identical field names.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func (g *GRPCHandler) GetCategory(ctx context.Context, in *wrapperspb.Int64Value) (*structpb.Struct, error) {
	id := in.GetValue()
	if id <= 0 {
		return nil, status.Error(codes.InvalidArgument, "category id must be positive")
	}
	category, err := g.categoryStore.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, g.mapStoreErrorToGrpcStatus(err, "category", id)
	}
	rendered, err := g.renderer.Category(ctx, OpDetail, *category)
	if err != nil {
		return nil, g.mapStoreErrorToGrpcStatus(err, "category", id)
	}
	out, err := toStruct(rendered)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode category %d", id)
	}
	return out, nil
}

func (g *GRPCHandler) GetProduct(ctx context.Context, in *wrapperspb.Int64Value) (*structpb.Struct, error) {
	id := in.GetValue()
	if id <= 0 {
		return nil, status.Error(codes.InvalidArgument, "product id must be positive")
	}
	product, err := g.productStore.GetProductByID(ctx, id)
	if err != nil {
		return nil, g.mapStoreErrorToGrpcStatus(err, "product", id)
	}
	rendered, err := g.renderer.Product(ctx, OpDetail, *product)
	if err != nil {
		return nil, g.mapStoreErrorToGrpcStatus(err, "product", id)
	}
	out, err := toStruct(rendered)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode product %d", id)
	}
	return out, nil
}

// ListCategories returns the first page of active categories as
// {"count": n, "results": [...]}.
func (g *GRPCHandler) ListCategories(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	categories, total, err := g.categoryStore.ListCategories(ctx, store.ListParams{ActiveOnly: true, Limit: g.pageSize})
	if err != nil {
		g.log.Error(err, "gRPC ListCategories failed")
		return nil, status.Error(codes.Internal, "failed to list categories")
	}

	results, err := g.renderer.Categories(ctx, OpList, categories)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to render categories")
	}
	out, err := toStruct(struct {
		Count   int   `json:"count"`
		Results []any `json:"results"`
	}{Count: total, Results: results})
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode categories")
	}
	return out, nil
}
