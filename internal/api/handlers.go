package api

import (
	"context"
	"math"
	"strconv"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	bookingServiceName = "shareit.booking.v1.BookingService"
	getBookingMethod   = "/" + bookingServiceName + "/GetBooking"
	listBookingsMethod = "/" + bookingServiceName + "/ListBookings"
	userIDMetadataKey  = "x-sharer-user-id"
)

// BookingRPC is the read-only booking API exposed over gRPC.
// Requests and responses are google.protobuf.Struct messages.
type BookingRPC interface {
	GetBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListBookings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var bookingServiceDesc = grpc.ServiceDesc{
	ServiceName: bookingServiceName,
	HandlerType: (*BookingRPC)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetBooking", Handler: getBookingHandler},
		{MethodName: "ListBookings", Handler: listBookingsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shareit/booking/v1/booking.proto",
}

// RegisterBookingRPC attaches srv to a gRPC server.
func RegisterBookingRPC(s grpc.ServiceRegistrar, srv BookingRPC) {
	s.RegisterService(&bookingServiceDesc, srv)
}

func getBookingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookingRPC).GetBooking(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getBookingMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BookingRPC).GetBooking(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listBookingsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookingRPC).ListBookings(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listBookingsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BookingRPC).ListBookings(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// BookingGRPCService adapts the booking engine to BookingRPC.
type BookingGRPCService struct {
	bookings        domain.BookingService
	defaultPageSize int
}

func NewBookingGRPCService(bookings domain.BookingService, defaultPageSize int) *BookingGRPCService {
	if defaultPageSize <= 0 {
		defaultPageSize = models.DefaultPageSize
	}
	return &BookingGRPCService{bookings: bookings, defaultPageSize: defaultPageSize}
}

func (s *BookingGRPCService) GetBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	bookingID, ok := intField(req, "booking_id")
	if !ok || bookingID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "booking_id is required")
	}

	booking, err := s.bookings.Get(ctx, userID, bookingID)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(bookingFields(booking))
}

func (s *BookingGRPCService) ListBookings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	page := models.Page{From: 0, Size: s.defaultPageSize}
	if v, ok := intField(req, "from"); ok {
		page.From = int(v)
	}
	if v, ok := intField(req, "size"); ok {
		page.Size = int(v)
	}
	state := req.GetFields()["state"].GetStringValue()

	var bookings []*models.Booking
	switch role := models.BookingRole(req.GetFields()["role"].GetStringValue()); role {
	case models.RoleRenter, "":
		bookings, err = s.bookings.ListForRenter(ctx, userID, state, page)
	case models.RoleOwner:
		bookings, err = s.bookings.ListForOwner(ctx, userID, state, page)
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown role %q", role)
	}
	if err != nil {
		return nil, toStatus(err)
	}

	list := make([]any, 0, len(bookings))
	for _, b := range bookings {
		list = append(list, bookingFields(b))
	}
	return structpb.NewStruct(map[string]any{"bookings": list})
}

func bookingFields(b *models.Booking) map[string]any {
	return map[string]any{
		"id":        b.ID,
		"item_id":   b.ItemID,
		"item_name": b.ItemName,
		"owner_id":  b.OwnerID,
		"booker_id": b.BookerID,
		"start":     b.Start.UTC().Format(time.RFC3339),
		"end":       b.End.UTC().Format(time.RFC3339),
		"status":    string(b.Status),
	}
}

func callerID(ctx context.Context) (int64, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	raw := first(md.Get(userIDMetadataKey))
	if raw == "" {
		return 0, status.Error(codes.InvalidArgument, userIDMetadataKey+" metadata is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, status.Error(codes.InvalidArgument, "invalid "+userIDMetadataKey+" metadata")
	}
	return id, nil
}

// intField reads a whole number from a struct field.
func intField(s *structpb.Struct, key string) (int64, bool) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, false
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, false
	}
	return int64(n.NumberValue), true
}

func toStatus(err error) error {
	code := grpcCode(err)
	if code == codes.Internal {
		return status.Error(code, "internal error")
	}
	return status.Error(code, err.Error())
}
