package api

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the full name of the directory service.
const ServiceName = "chatbox.v1.DirectoryService"

// DirectoryServer is the server API for the directory service.
type DirectoryServer interface {
	CreateOrFetchContact(context.Context, *CreateOrFetchContactRequest) (*Contact, error)
	ListContacts(context.Context, *ListContactsRequest) (*ListContactsResponse, error)
	FetchMessages(context.Context, *FetchMessagesRequest) (*FetchMessagesResponse, error)
	Stats(context.Context, *StatsRequest) (*StatsResponse, error)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary[Req, Resp any](name string, call func(DirectoryServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DirectoryServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(DirectoryServer), ctx, req.(*Req))
			})
		},
	}
}

// DirectoryServiceDesc describes the directory service for grpc.Server.
var DirectoryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DirectoryServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateOrFetchContact", DirectoryServer.CreateOrFetchContact),
		unary("ListContacts", DirectoryServer.ListContacts),
		unary("FetchMessages", DirectoryServer.FetchMessages),
		unary("Stats", DirectoryServer.Stats),
	},
	Metadata: "chatbox/v1/directory",
}

// RegisterDirectoryServer registers srv on s.
func RegisterDirectoryServer(s grpc.ServiceRegistrar, srv DirectoryServer) {
	s.RegisterService(&DirectoryServiceDesc, srv)
}

// DirectoryClient is the client API for the directory service.
type DirectoryClient struct {
	cc grpc.ClientConnInterface
}

// NewDirectoryClient creates a client speaking the JSON codec over cc.
func NewDirectoryClient(cc grpc.ClientConnInterface) *DirectoryClient {
	return &DirectoryClient{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, name string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DirectoryClient) CreateOrFetchContact(ctx context.Context, in *CreateOrFetchContactRequest, opts ...grpc.CallOption) (*Contact, error) {
	return invoke[CreateOrFetchContactRequest, Contact](ctx, c.cc, "CreateOrFetchContact", in, opts)
}

func (c *DirectoryClient) ListContacts(ctx context.Context, in *ListContactsRequest, opts ...grpc.CallOption) (*ListContactsResponse, error) {
	return invoke[ListContactsRequest, ListContactsResponse](ctx, c.cc, "ListContacts", in, opts)
}

func (c *DirectoryClient) FetchMessages(ctx context.Context, in *FetchMessagesRequest, opts ...grpc.CallOption) (*FetchMessagesResponse, error) {
	return invoke[FetchMessagesRequest, FetchMessagesResponse](ctx, c.cc, "FetchMessages", in, opts)
}

func (c *DirectoryClient) Stats(ctx context.Context, in *StatsRequest, opts ...grpc.CallOption) (*StatsResponse, error) {
	return invoke[StatsRequest, StatsResponse](ctx, c.cc, "Stats", in, opts)
}
