package service

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitorder/internal/models"
)

// OrderServiceName is the fully-qualified name of the order service.
const OrderServiceName = "splitorder.v1.OrderService"

// Procedure paths, one per RPC.
const (
	OrderServiceCreateOrderGroupProcedure    = "/splitorder.v1.OrderService/CreateOrderGroup"
	OrderServiceGetOrderStateProcedure       = "/splitorder.v1.OrderService/GetOrderState"
	OrderServiceAssignOrdererProcedure       = "/splitorder.v1.OrderService/AssignOrderer"
	OrderServiceSetOrderStatusProcedure      = "/splitorder.v1.OrderService/SetOrderStatus"
	OrderServiceSetUserStatusProcedure       = "/splitorder.v1.OrderService/SetUserStatus"
	OrderServiceMarkReceivedProcedure        = "/splitorder.v1.OrderService/MarkReceived"
	OrderServiceCancelOrderProcedure         = "/splitorder.v1.OrderService/CancelOrder"
	OrderServiceSetOrderDetailsProcedure     = "/splitorder.v1.OrderService/SetOrderDetails"
	OrderServiceListOrderHistoryProcedure    = "/splitorder.v1.OrderService/ListOrderHistory"
	OrderServiceGetWalletProcedure           = "/splitorder.v1.OrderService/GetWallet"
	OrderServiceResolveMeetingPointProcedure = "/splitorder.v1.OrderService/ResolveMeetingPoint"
)

type CreateOrderGroupRequest struct {
	GroupID        string   `json:"group_id"`
	ParticipantIDs []string `json:"participant_ids"`
}

type GetOrderStateRequest struct {
	GroupID string `json:"group_id"`
}

// AssignOrdererRequest picks the orderer. An empty or repeated target clears it.
type AssignOrdererRequest struct {
	GroupID      string `json:"group_id"`
	TargetUserID string `json:"target_user_id,omitempty"`
}

type SetOrderStatusRequest struct {
	GroupID string             `json:"group_id"`
	Status  models.OrderStatus `json:"status"`
}

type SetUserStatusRequest struct {
	GroupID      string           `json:"group_id"`
	TargetUserID string           `json:"target_user_id"`
	SubStatus    models.SubStatus `json:"sub_status"`
}

type MarkReceivedRequest struct {
	GroupID string `json:"group_id"`
}

type CancelOrderRequest struct {
	GroupID string `json:"group_id"`
}

type SetOrderDetailsRequest struct {
	GroupID     string          `json:"group_id"`
	ProviderID  string          `json:"provider_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// OrderStateResponse is returned by every call that reads or changes a group.
type OrderStateResponse struct {
	Order models.Snapshot `json:"order"`
}

type ListOrderHistoryRequest struct {
	GroupID string `json:"group_id"`
}

type ListOrderHistoryResponse struct {
	Records []*models.OrderHistoryRecord `json:"records"`
}

type GetWalletRequest struct{}

type GetWalletResponse struct {
	Wallet  *models.WalletAccount `json:"wallet"`
	Entries []*models.LedgerEntry `json:"entries"`
}

type ResolveMeetingPointRequest struct {
	Points []models.Coordinate `json:"points"`
}

type ResolveMeetingPointResponse struct {
	MeetingPoint models.MeetingPoint `json:"meeting_point"`
}
