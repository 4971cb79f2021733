package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tvcompare/internal/compare"
	"tvcompare/pkg/models"
)

const serviceName = "tvcompare.catalog.v1.CatalogService"

type ListItemsRequest struct {
	Q string `json:"q,omitempty"`
}

type ListItemsResponse struct {
	Total int32         `json:"total"`
	Items []models.Item `json:"items"`
}

type GetItemRequest struct {
	ID string `json:"id"`
}

type GetItemResponse struct {
	Item *models.Item `json:"item"`
}

type CompareRequest struct {
	ItemIDs []string `json:"item_ids"`
}

type CompareResponse struct {
	Table compare.Table `json:"table"`
}

type CatalogServiceServer interface {
	ListItems(context.Context, *ListItemsRequest) (*ListItemsResponse, error)
	GetItem(context.Context, *GetItemRequest) (*GetItemResponse, error)
	Compare(context.Context, *CompareRequest) (*CompareResponse, error)
}

// UnimplementedCatalogServiceServer can be embedded for forward compatibility.
type UnimplementedCatalogServiceServer struct{}

func (UnimplementedCatalogServiceServer) ListItems(context.Context, *ListItemsRequest) (*ListItemsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListItems not implemented")
}

func (UnimplementedCatalogServiceServer) GetItem(context.Context, *GetItemRequest) (*GetItemResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetItem not implemented")
}

func (UnimplementedCatalogServiceServer) Compare(context.Context, *CompareRequest) (*CompareResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Compare not implemented")
}

func RegisterCatalogServiceServer(s grpc.ServiceRegistrar, srv CatalogServiceServer) {
	s.RegisterService(&CatalogServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](method string, call func(CatalogServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CatalogServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(CatalogServiceServer), ctx, req.(*Req))
		})
	}
}

var CatalogServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*CatalogServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListItems",
			Handler:    unaryHandler("ListItems", CatalogServiceServer.ListItems),
		},
		{
			MethodName: "GetItem",
			Handler:    unaryHandler("GetItem", CatalogServiceServer.GetItem),
		},
		{
			MethodName: "Compare",
			Handler:    unaryHandler("Compare", CatalogServiceServer.Compare),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tvcompare/catalog/v1/catalog.json",
}

type CatalogServiceClient interface {
	ListItems(ctx context.Context, in *ListItemsRequest, opts ...grpc.CallOption) (*ListItemsResponse, error)
	GetItem(ctx context.Context, in *GetItemRequest, opts ...grpc.CallOption) (*GetItemResponse, error)
	Compare(ctx context.Context, in *CompareRequest, opts ...grpc.CallOption) (*CompareResponse, error)
}

type catalogServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCatalogServiceClient(cc grpc.ClientConnInterface) CatalogServiceClient {
	return &catalogServiceClient{cc: cc}
}

func (c *catalogServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...)
}

func (c *catalogServiceClient) ListItems(ctx context.Context, in *ListItemsRequest, opts ...grpc.CallOption) (*ListItemsResponse, error) {
	out := new(ListItemsResponse)
	if err := c.invoke(ctx, "ListItems", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *catalogServiceClient) GetItem(ctx context.Context, in *GetItemRequest, opts ...grpc.CallOption) (*GetItemResponse, error) {
	out := new(GetItemResponse)
	if err := c.invoke(ctx, "GetItem", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *catalogServiceClient) Compare(ctx context.Context, in *CompareRequest, opts ...grpc.CallOption) (*CompareResponse, error) {
	out := new(CompareResponse)
	if err := c.invoke(ctx, "Compare", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
