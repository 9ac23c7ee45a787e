package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splitorder/internal/calculator"
	"github.com/mmynk/splitorder/internal/middleware"
	"github.com/mmynk/splitorder/internal/models"
	"github.com/mmynk/splitorder/internal/orders"
)

// OrderService implements the Connect OrderService on top of the coordinator.
// The requester is always the authenticated user from the context.
type OrderService struct {
	coord *orders.Coordinator
}

// NewOrderService creates a new OrderService.
func NewOrderService(coord *orders.Coordinator) *OrderService {
	return &OrderService{coord: coord}
}

// NewOrderServiceHandler builds an HTTP handler serving every OrderService
// procedure. It returns the path to mount the handler on.
func NewOrderServiceHandler(svc *OrderService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(OrderServiceCreateOrderGroupProcedure, connect.NewUnaryHandler(OrderServiceCreateOrderGroupProcedure, svc.CreateOrderGroup, opts...))
	mux.Handle(OrderServiceGetOrderStateProcedure, connect.NewUnaryHandler(OrderServiceGetOrderStateProcedure, svc.GetOrderState, opts...))
	mux.Handle(OrderServiceAssignOrdererProcedure, connect.NewUnaryHandler(OrderServiceAssignOrdererProcedure, svc.AssignOrderer, opts...))
	mux.Handle(OrderServiceSetOrderStatusProcedure, connect.NewUnaryHandler(OrderServiceSetOrderStatusProcedure, svc.SetOrderStatus, opts...))
	mux.Handle(OrderServiceSetUserStatusProcedure, connect.NewUnaryHandler(OrderServiceSetUserStatusProcedure, svc.SetUserStatus, opts...))
	mux.Handle(OrderServiceMarkReceivedProcedure, connect.NewUnaryHandler(OrderServiceMarkReceivedProcedure, svc.MarkReceived, opts...))
	mux.Handle(OrderServiceCancelOrderProcedure, connect.NewUnaryHandler(OrderServiceCancelOrderProcedure, svc.CancelOrder, opts...))
	mux.Handle(OrderServiceSetOrderDetailsProcedure, connect.NewUnaryHandler(OrderServiceSetOrderDetailsProcedure, svc.SetOrderDetails, opts...))
	mux.Handle(OrderServiceListOrderHistoryProcedure, connect.NewUnaryHandler(OrderServiceListOrderHistoryProcedure, svc.ListOrderHistory, opts...))
	mux.Handle(OrderServiceGetWalletProcedure, connect.NewUnaryHandler(OrderServiceGetWalletProcedure, svc.GetWallet, opts...))
	mux.Handle(OrderServiceResolveMeetingPointProcedure, connect.NewUnaryHandler(OrderServiceResolveMeetingPointProcedure, svc.ResolveMeetingPoint, opts...))

	return "/" + OrderServiceName + "/", mux
}

// CreateOrderGroup bootstraps the order aggregate of a new chat group.
func (s *OrderService) CreateOrderGroup(ctx context.Context, req *connect.Request[CreateOrderGroupRequest]) (*connect.Response[OrderStateResponse], error) {
	snap, err := s.coord.CreateOrderGroup(ctx, req.Msg.GroupID, middleware.GetUserID(ctx), req.Msg.ParticipantIDs)
	return stateResponse(snap, err)
}

// GetOrderState returns the current snapshot. Clients call it on (re)connect.
func (s *OrderService) GetOrderState(ctx context.Context, req *connect.Request[GetOrderStateRequest]) (*connect.Response[OrderStateResponse], error) {
	snap, err := s.coord.GetOrderState(ctx, req.Msg.GroupID, middleware.GetUserID(ctx))
	return stateResponse(snap, err)
}

// AssignOrderer picks or clears the orderer.
func (s *OrderService) AssignOrderer(ctx context.Context, req *connect.Request[AssignOrdererRequest]) (*connect.Response[OrderStateResponse], error) {
	snap, err := s.coord.AssignOrderer(ctx, req.Msg.GroupID, middleware.GetUserID(ctx), req.Msg.TargetUserID)
	return stateResponse(snap, err)
}

// SetOrderStatus moves the group along the state machine.
func (s *OrderService) SetOrderStatus(ctx context.Context, req *connect.Request[SetOrderStatusRequest]) (*connect.Response[OrderStateResponse], error) {
	snap, err := s.coord.SetOrderStatus(ctx, req.Msg.GroupID, middleware.GetUserID(ctx), req.Msg.Status)
	return stateResponse(snap, err)
}

// SetUserStatus records one participant's progress flag.
func (s *OrderService) SetUserStatus(ctx context.Context, req *connect.Request[SetUserStatusRequest]) (*connect.Response[OrderStateResponse], error) {
	snap, err := s.coord.SetUserStatus(ctx, req.Msg.GroupID, middleware.GetUserID(ctx), req.Msg.TargetUserID, req.Msg.SubStatus)
	return stateResponse(snap, err)
}

// MarkReceived confirms receipt for the caller.
func (s *OrderService) MarkReceived(ctx context.Context, req *connect.Request[MarkReceivedRequest]) (*connect.Response[OrderStateResponse], error) {
	snap, err := s.coord.MarkReceived(ctx, req.Msg.GroupID, middleware.GetUserID(ctx))
	return stateResponse(snap, err)
}

// CancelOrder abandons the current order.
func (s *OrderService) CancelOrder(ctx context.Context, req *connect.Request[CancelOrderRequest]) (*connect.Response[OrderStateResponse], error) {
	snap, err := s.coord.CancelOrder(ctx, req.Msg.GroupID, middleware.GetUserID(ctx))
	return stateResponse(snap, err)
}

// SetOrderDetails records provider and total.
func (s *OrderService) SetOrderDetails(ctx context.Context, req *connect.Request[SetOrderDetailsRequest]) (*connect.Response[OrderStateResponse], error) {
	snap, err := s.coord.SetOrderDetails(ctx, req.Msg.GroupID, middleware.GetUserID(ctx), req.Msg.ProviderID, req.Msg.TotalAmount)
	return stateResponse(snap, err)
}

// ListOrderHistory returns the finished cycles of a group.
func (s *OrderService) ListOrderHistory(ctx context.Context, req *connect.Request[ListOrderHistoryRequest]) (*connect.Response[ListOrderHistoryResponse], error) {
	records, err := s.coord.ListOrderHistory(ctx, req.Msg.GroupID, middleware.GetUserID(ctx))
	if err != nil {
		return nil, toConnectError(err)
	}
	if records == nil {
		records = []*models.OrderHistoryRecord{}
	}
	return connect.NewResponse(&ListOrderHistoryResponse{Records: records}), nil
}

// GetWallet returns the caller's balance and postings.
func (s *OrderService) GetWallet(ctx context.Context, req *connect.Request[GetWalletRequest]) (*connect.Response[GetWalletResponse], error) {
	wallet, entries, err := s.coord.GetWallet(ctx, middleware.GetUserID(ctx))
	if err != nil {
		return nil, toConnectError(err)
	}
	if entries == nil {
		entries = []*models.LedgerEntry{}
	}
	return connect.NewResponse(&GetWalletResponse{Wallet: wallet, Entries: entries}), nil
}

// ResolveMeetingPoint suggests a fair pickup location for the given points.
func (s *OrderService) ResolveMeetingPoint(ctx context.Context, req *connect.Request[ResolveMeetingPointRequest]) (*connect.Response[ResolveMeetingPointResponse], error) {
	point, err := calculator.ResolveMeetingPoint(req.Msg.Points)
	if err != nil {
		return nil, toConnectError(err)
	}

	slog.Debug("Meeting point resolved",
		"points", len(req.Msg.Points),
		"average_km", point.AverageDistance,
		"max_km", point.MaxDistance,
	)

	return connect.NewResponse(&ResolveMeetingPointResponse{MeetingPoint: point}), nil
}

func stateResponse(snap models.Snapshot, err error) (*connect.Response[OrderStateResponse], error) {
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&OrderStateResponse{Order: snap}), nil
}

// toConnectError maps coordinator errors to Connect codes.
func toConnectError(err error) error {
	return connect.NewError(codeOf(err), err)
}

func codeOf(err error) connect.Code {
	switch {
	case errors.Is(err, orders.ErrUnauthorized):
		return connect.CodeUnauthenticated
	case errors.Is(err, orders.ErrForbidden):
		return connect.CodePermissionDenied
	case errors.Is(err, orders.ErrNotFound):
		return connect.CodeNotFound
	case errors.Is(err, orders.ErrAlreadyExists):
		return connect.CodeAlreadyExists
	case errors.Is(err, orders.ErrInvalidState):
		return connect.CodeFailedPrecondition
	case errors.Is(err, orders.ErrInvalidInput):
		return connect.CodeInvalidArgument
	case errors.Is(err, orders.ErrConflict), errors.Is(err, orders.ErrSettlementFailure):
		return connect.CodeAborted
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	}
	return connect.CodeInternal
}
