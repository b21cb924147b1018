package handler

import (
	"context"
	"errors"
	"fmt"
	"math"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rl1809/marketplace/internal/core/domain"
	"github.com/rl1809/marketplace/internal/core/service"
)

// ExchangeServiceName is the fully qualified gRPC service name. Requests and
// responses are google.protobuf.Struct messages.
const ExchangeServiceName = "marketplace.Exchange"

// ExchangeServer is the server API for the marketplace.Exchange service.
type ExchangeServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Publish(context.Context, *structpb.Struct) (*structpb.Struct, error)
	OpenCart(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddToCart(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveFromCart(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Checkout(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type GRPCHandler struct {
	market *service.MarketService
}

func NewGRPCHandler(market *service.MarketService) *GRPCHandler {
	return &GRPCHandler{market: market}
}

// RegisterExchangeServer registers srv on s.
func RegisterExchangeServer(s grpc.ServiceRegistrar, srv ExchangeServer) {
	s.RegisterService(&ExchangeServiceDesc, srv)
}

func (h *GRPCHandler) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := h.market.Register(ctx)
	return structpb.NewStruct(map[string]any{"producer_id": id})
}

func (h *GRPCHandler) Publish(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := intField(req, "producer_id")
	if err != nil {
		return nil, err
	}
	product, err := productField(req)
	if err != nil {
		return nil, err
	}

	ok, err := h.market.Publish(ctx, id, product)
	if err != nil {
		return nil, toStatus(err)
	}
	return resultStruct(ok, "producer at capacity")
}

func (h *GRPCHandler) OpenCart(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := h.market.OpenCart(ctx)
	return structpb.NewStruct(map[string]any{"cart_id": id})
}

func (h *GRPCHandler) AddToCart(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := intField(req, "cart_id")
	if err != nil {
		return nil, err
	}
	product, err := productField(req)
	if err != nil {
		return nil, err
	}

	ok, err := h.market.AddToCart(ctx, id, product)
	if err != nil {
		return nil, toStatus(err)
	}
	return resultStruct(ok, "product unavailable")
}

func (h *GRPCHandler) RemoveFromCart(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := intField(req, "cart_id")
	if err != nil {
		return nil, err
	}
	product, err := productField(req)
	if err != nil {
		return nil, err
	}

	if err := h.market.RemoveFromCart(ctx, id, product); err != nil {
		return nil, toStatus(err)
	}
	return resultStruct(true, "")
}

func (h *GRPCHandler) Checkout(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := intField(req, "cart_id")
	if err != nil {
		return nil, err
	}

	receipt, err := h.market.Checkout(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}

	items := make([]any, len(receipt.Items))
	for i, p := range receipt.Items {
		items[i] = productValue(p)
	}
	return structpb.NewStruct(map[string]any{
		"receipt_id": receipt.ID,
		"cart_id":    receipt.CartID,
		"items":      items,
	})
}

func resultStruct(ok bool, rejection string) (*structpb.Struct, error) {
	fields := map[string]any{"success": ok}
	if !ok {
		fields["message"] = rejection
	}
	return structpb.NewStruct(fields)
}

// maxExactInt is the largest integer a protobuf number carries without loss.
const maxExactInt = 1 << 53

func intField(req *structpb.Struct, name string) (int, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "missing %s", name)
	}
	if _, isNumber := v.GetKind().(*structpb.Value_NumberValue); !isNumber {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a number", name)
	}
	n := v.GetNumberValue()
	if n < 0 || n > maxExactInt || n != math.Trunc(n) {
		return 0, status.Errorf(codes.InvalidArgument, "invalid %s", name)
	}
	return int(n), nil
}

func productField(req *structpb.Struct) (domain.Product, error) {
	s := req.GetFields()["product"].GetStructValue()
	if s == nil {
		return domain.Product{}, status.Error(codes.InvalidArgument, "missing product")
	}

	f := s.GetFields()
	p := domain.Product{
		Type: f["type"].GetStringValue(),
		Name: f["name"].GetStringValue(),
	}
	if _, ok := f["price"]; ok {
		price, err := intField(s, "price")
		if err != nil {
			return domain.Product{}, err
		}
		p.Price = price
	}
	if p.Name == "" {
		return domain.Product{}, status.Error(codes.InvalidArgument, "missing product name")
	}
	return p, nil
}

func productValue(p domain.Product) map[string]any {
	return map[string]any{"type": p.Type, "name": p.Name, "price": p.Price}
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrUnknownProducer), errors.Is(err, service.ErrUnknownCart):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrNotInCart):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Error(codes.Internal, "internal error")
}

func unaryHandler(method string, call func(ExchangeServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ExchangeServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fmt.Sprintf("/%s/%s", ExchangeServiceName, method),
		}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(ExchangeServer), ctx, req.(*structpb.Struct))
		})
	}
}

var ExchangeServiceDesc = grpc.ServiceDesc{
	ServiceName: ExchangeServiceName,
	HandlerType: (*ExchangeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unaryHandler("Register", ExchangeServer.Register)},
		{MethodName: "Publish", Handler: unaryHandler("Publish", ExchangeServer.Publish)},
		{MethodName: "OpenCart", Handler: unaryHandler("OpenCart", ExchangeServer.OpenCart)},
		{MethodName: "AddToCart", Handler: unaryHandler("AddToCart", ExchangeServer.AddToCart)},
		{MethodName: "RemoveFromCart", Handler: unaryHandler("RemoveFromCart", ExchangeServer.RemoveFromCart)},
		{MethodName: "Checkout", Handler: unaryHandler("Checkout", ExchangeServer.Checkout)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "marketplace/exchange.proto",
}
