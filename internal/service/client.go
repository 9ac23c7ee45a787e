package service

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// OrderServiceClient calls OrderService over the Connect protocol.
type OrderServiceClient struct {
	createOrderGroup    *connect.Client[CreateOrderGroupRequest, OrderStateResponse]
	getOrderState       *connect.Client[GetOrderStateRequest, OrderStateResponse]
	assignOrderer       *connect.Client[AssignOrdererRequest, OrderStateResponse]
	setOrderStatus      *connect.Client[SetOrderStatusRequest, OrderStateResponse]
	setUserStatus       *connect.Client[SetUserStatusRequest, OrderStateResponse]
	markReceived        *connect.Client[MarkReceivedRequest, OrderStateResponse]
	cancelOrder         *connect.Client[CancelOrderRequest, OrderStateResponse]
	setOrderDetails     *connect.Client[SetOrderDetailsRequest, OrderStateResponse]
	listOrderHistory    *connect.Client[ListOrderHistoryRequest, ListOrderHistoryResponse]
	getWallet           *connect.Client[GetWalletRequest, GetWalletResponse]
	resolveMeetingPoint *connect.Client[ResolveMeetingPointRequest, ResolveMeetingPointResponse]
}

// NewOrderServiceClient creates a client for the service at baseURL
// (e.g. http://localhost:8080).
func NewOrderServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *OrderServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)

	return &OrderServiceClient{
		createOrderGroup:    connect.NewClient[CreateOrderGroupRequest, OrderStateResponse](httpClient, baseURL+OrderServiceCreateOrderGroupProcedure, opts...),
		getOrderState:       connect.NewClient[GetOrderStateRequest, OrderStateResponse](httpClient, baseURL+OrderServiceGetOrderStateProcedure, opts...),
		assignOrderer:       connect.NewClient[AssignOrdererRequest, OrderStateResponse](httpClient, baseURL+OrderServiceAssignOrdererProcedure, opts...),
		setOrderStatus:      connect.NewClient[SetOrderStatusRequest, OrderStateResponse](httpClient, baseURL+OrderServiceSetOrderStatusProcedure, opts...),
		setUserStatus:       connect.NewClient[SetUserStatusRequest, OrderStateResponse](httpClient, baseURL+OrderServiceSetUserStatusProcedure, opts...),
		markReceived:        connect.NewClient[MarkReceivedRequest, OrderStateResponse](httpClient, baseURL+OrderServiceMarkReceivedProcedure, opts...),
		cancelOrder:         connect.NewClient[CancelOrderRequest, OrderStateResponse](httpClient, baseURL+OrderServiceCancelOrderProcedure, opts...),
		setOrderDetails:     connect.NewClient[SetOrderDetailsRequest, OrderStateResponse](httpClient, baseURL+OrderServiceSetOrderDetailsProcedure, opts...),
		listOrderHistory:    connect.NewClient[ListOrderHistoryRequest, ListOrderHistoryResponse](httpClient, baseURL+OrderServiceListOrderHistoryProcedure, opts...),
		getWallet:           connect.NewClient[GetWalletRequest, GetWalletResponse](httpClient, baseURL+OrderServiceGetWalletProcedure, opts...),
		resolveMeetingPoint: connect.NewClient[ResolveMeetingPointRequest, ResolveMeetingPointResponse](httpClient, baseURL+OrderServiceResolveMeetingPointProcedure, opts...),
	}
}

func (c *OrderServiceClient) CreateOrderGroup(ctx context.Context, req *connect.Request[CreateOrderGroupRequest]) (*connect.Response[OrderStateResponse], error) {
	return c.createOrderGroup.CallUnary(ctx, req)
}

func (c *OrderServiceClient) GetOrderState(ctx context.Context, req *connect.Request[GetOrderStateRequest]) (*connect.Response[OrderStateResponse], error) {
	return c.getOrderState.CallUnary(ctx, req)
}

func (c *OrderServiceClient) AssignOrderer(ctx context.Context, req *connect.Request[AssignOrdererRequest]) (*connect.Response[OrderStateResponse], error) {
	return c.assignOrderer.CallUnary(ctx, req)
}

func (c *OrderServiceClient) SetOrderStatus(ctx context.Context, req *connect.Request[SetOrderStatusRequest]) (*connect.Response[OrderStateResponse], error) {
	return c.setOrderStatus.CallUnary(ctx, req)
}

func (c *OrderServiceClient) SetUserStatus(ctx context.Context, req *connect.Request[SetUserStatusRequest]) (*connect.Response[OrderStateResponse], error) {
	return c.setUserStatus.CallUnary(ctx, req)
}

func (c *OrderServiceClient) MarkReceived(ctx context.Context, req *connect.Request[MarkReceivedRequest]) (*connect.Response[OrderStateResponse], error) {
	return c.markReceived.CallUnary(ctx, req)
}

func (c *OrderServiceClient) CancelOrder(ctx context.Context, req *connect.Request[CancelOrderRequest]) (*connect.Response[OrderStateResponse], error) {
	return c.cancelOrder.CallUnary(ctx, req)
}

func (c *OrderServiceClient) SetOrderDetails(ctx context.Context, req *connect.Request[SetOrderDetailsRequest]) (*connect.Response[OrderStateResponse], error) {
	return c.setOrderDetails.CallUnary(ctx, req)
}

func (c *OrderServiceClient) ListOrderHistory(ctx context.Context, req *connect.Request[ListOrderHistoryRequest]) (*connect.Response[ListOrderHistoryResponse], error) {
	return c.listOrderHistory.CallUnary(ctx, req)
}

func (c *OrderServiceClient) GetWallet(ctx context.Context, req *connect.Request[GetWalletRequest]) (*connect.Response[GetWalletResponse], error) {
	return c.getWallet.CallUnary(ctx, req)
}

func (c *OrderServiceClient) ResolveMeetingPoint(ctx context.Context, req *connect.Request[ResolveMeetingPointRequest]) (*connect.Response[ResolveMeetingPointResponse], error) {
	return c.resolveMeetingPoint.CallUnary(ctx, req)
}
