package wire

import (
	"context"

	"google.golang.org/grpc"
)

// serviceName is the fully-qualified gRPC service name the three RPCs of
// spec.md §6 are registered under.
const serviceName = "quiver.search.v1.SearchService"

// SearchServiceServer is implemented by anything that can answer the three
// RPCs of spec.md §6. internal/search/leaf answers LeafSearch and
// FetchDocs; internal/search/root answers RootSearch.
type SearchServiceServer interface {
	LeafSearch(ctx context.Context, req *LeafSearchRequest) (*LeafSearchResult, error)
	FetchDocs(ctx context.Context, req *FetchDocsRequest) (*FetchDocsResult, error)
	RootSearch(ctx context.Context, req *RootSearchRequest) (*SearchResult, error)
}

// SearchServiceClient is the client-side counterpart, implemented both by
// the generated grpc client below and by internal/search/root's in-process
// local client.
type SearchServiceClient interface {
	LeafSearch(ctx context.Context, req *LeafSearchRequest) (*LeafSearchResult, error)
	FetchDocs(ctx context.Context, req *FetchDocsRequest) (*FetchDocsResult, error)
	RootSearch(ctx context.Context, req *RootSearchRequest) (*SearchResult, error)
}

// RegisterSearchServiceServer registers srv against sr (a *grpc.Server in
// production, or any other grpc.ServiceRegistrar).
func RegisterSearchServiceServer(sr grpc.ServiceRegistrar, srv SearchServiceServer) {
	sr.RegisterService(&searchServiceDesc, srv)
}

func leafSearchHandler(
	srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(LeafSearchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SearchServiceServer).LeafSearch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/LeafSearch"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SearchServiceServer).LeafSearch(ctx, req.(*LeafSearchRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func fetchDocsHandler(
	srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(FetchDocsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SearchServiceServer).FetchDocs(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/FetchDocs"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SearchServiceServer).FetchDocs(ctx, req.(*FetchDocsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func rootSearchHandler(
	srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(RootSearchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SearchServiceServer).RootSearch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/RootSearch"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SearchServiceServer).RootSearch(ctx, req.(*RootSearchRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// searchServiceDesc is the hand-rolled grpc.ServiceDesc a .proto toolchain
// would otherwise generate. SPEC_FULL.md §6 calls for exactly this shape:
// protobuf-shaped Go structs plus a registered ServiceDesc, since running a
// real .proto compiler is out of scope here.
var searchServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SearchServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "LeafSearch", Handler: leafSearchHandler},
		{MethodName: "FetchDocs", Handler: fetchDocsHandler},
		{MethodName: "RootSearch", Handler: rootSearchHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/wire/service.go",
}

// grpcClient is the generated-shaped client stub, wrapping any
// grpc.ClientConnInterface (a *grpc.ClientConn in production, or an
// in-process channel in tests).
type grpcClient struct {
	cc grpc.ClientConnInterface
}

// NewGRPCClient adapts cc into a SearchServiceClient.
func NewGRPCClient(cc grpc.ClientConnInterface) SearchServiceClient {
	return &grpcClient{cc: cc}
}

func (c *grpcClient) LeafSearch(ctx context.Context, req *LeafSearchRequest) (*LeafSearchResult, error) {
	out := new(LeafSearchResult)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/LeafSearch", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *grpcClient) FetchDocs(ctx context.Context, req *FetchDocsRequest) (*FetchDocsResult, error) {
	out := new(FetchDocsResult)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/FetchDocs", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *grpcClient) RootSearch(ctx context.Context, req *RootSearchRequest) (*SearchResult, error) {
	out := new(SearchResult)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/RootSearch", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ SearchServiceClient = (*grpcClient)(nil)
