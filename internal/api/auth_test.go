package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"shareit/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func authConfig() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			HeaderExtra:  "x-api-extra",
			APIKeys: []config.APIClientKey{
				{Key: "valid-key", Extra: "valid-extra", Permissions: []string{permReadBookings}},
				{Key: "admin-key", Extra: "admin-extra"},
			},
		},
		RateLimit: config.APIRateLimitConfig{
			RPS:   100,
			Burst: 200,
		},
	}
}

func TestAuthInterceptor(t *testing.T) {
	cfg := authConfig()
	auth := NewAuthInterceptor(&cfg)
	interceptor := auth.Unary()

	handler := func(_ context.Context, req any) (any, error) {
		return "ok", nil
	}

	info := &grpc.UnaryServerInfo{FullMethod: listBookingsMethod}

	t.Run("Success", func(t *testing.T) {
		md := metadata.Pairs("x-api-key", "valid-key", "x-api-extra", "valid-extra")
		ctx := metadata.NewIncomingContext(context.Background(), md)
		resp, err := interceptor(ctx, "req", info, handler)
		assert.NoError(t, err)
		assert.Equal(t, "ok", resp)
	})

	t.Run("MissingMetadata", func(t *testing.T) {
		_, err := interceptor(context.Background(), "req", info, handler)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("MissingHeaders", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs())
		_, err := interceptor(ctx, "req", info, handler)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("InvalidKey", func(t *testing.T) {
		md := metadata.Pairs("x-api-key", "nope", "x-api-extra", "valid-extra")
		_, err := interceptor(metadata.NewIncomingContext(context.Background(), md), "req", info, handler)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("InvalidExtra", func(t *testing.T) {
		md := metadata.Pairs("x-api-key", "valid-key", "x-api-extra", "wrong")
		_, err := interceptor(metadata.NewIncomingContext(context.Background(), md), "req", info, handler)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("Disabled", func(t *testing.T) {
		off := config.APIConfig{}
		resp, err := NewAuthInterceptor(&off).Unary()(context.Background(), "req", info, handler)
		assert.NoError(t, err)
		assert.Equal(t, "ok", resp)
	})
}

func TestAuthInterceptor_RateLimit(t *testing.T) {
	cfg := config.APIConfig{
		Enabled:   true,
		RateLimit: config.APIRateLimitConfig{RPS: 1, Burst: 1},
	}
	interceptor := NewAuthInterceptor(&cfg).Unary()
	handler := func(_ context.Context, _ any) (any, error) { return "ok", nil }
	info := &grpc.UnaryServerInfo{FullMethod: getBookingMethod}
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", "k"))

	_, err := interceptor(ctx, "req", info, handler)
	assert.NoError(t, err)

	_, err = interceptor(ctx, "req", info, handler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestLoggingUnaryInterceptor(t *testing.T) {
	logger := zerolog.Nop()
	interceptor := LoggingUnaryInterceptor(&logger)
	info := &grpc.UnaryServerInfo{FullMethod: getBookingMethod}

	resp, err := interceptor(context.Background(), "req", info, func(_ context.Context, _ any) (any, error) {
		return "ok", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "ok", resp)

	_, err = interceptor(context.Background(), "req", info, func(_ context.Context, _ any) (any, error) {
		return nil, status.Error(codes.NotFound, "booking not found")
	})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestChainUnaryInterceptors(t *testing.T) {
	var order []string
	mk := func(name string) grpc.UnaryServerInterceptor {
		return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			order = append(order, name)
			return handler(ctx, req)
		}
	}

	chained := ChainUnaryInterceptors(mk("first"), mk("second"))
	_, err := chained(context.Background(), "req", &grpc.UnaryServerInfo{}, func(_ context.Context, _ any) (any, error) {
		order = append(order, "handler")
		return nil, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestRequiredPermission(t *testing.T) {
	assert.Equal(t, permReadBookings, requiredPermission(getBookingMethod))
	assert.Equal(t, permReadBookings, requiredPermission(listBookingsMethod))
	assert.Equal(t, "", requiredPermission("/unknown/Method"))

	assert.Equal(t, "read:bookings", requiredPermissionHTTP(httptest.NewRequest(http.MethodGet, "/bookings/owner", nil)))
	assert.Equal(t, "write:bookings", requiredPermissionHTTP(httptest.NewRequest(http.MethodPatch, "/bookings/1", nil)))
	assert.Equal(t, "write:items", requiredPermissionHTTP(httptest.NewRequest(http.MethodPost, "/items", nil)))
}

func TestHTTPAuth(t *testing.T) {
	cfg := authConfig()
	auth := NewHTTPAuth(&cfg)
	handler := auth.Wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		method string
		path   string
		key    string
		extra  string
		status int
	}{
		{"probe bypasses auth", http.MethodGet, "/healthz", "", "", http.StatusNoContent},
		{"missing headers", http.MethodGet, "/bookings", "", "", http.StatusUnauthorized},
		{"invalid key", http.MethodGet, "/bookings", "nope", "valid-extra", http.StatusUnauthorized},
		{"invalid extra", http.MethodGet, "/bookings", "valid-key", "nope", http.StatusUnauthorized},
		{"read allowed", http.MethodGet, "/bookings", "valid-key", "valid-extra", http.StatusNoContent},
		{"write denied", http.MethodPost, "/bookings", "valid-key", "valid-extra", http.StatusForbidden},
		{"empty permissions allow all", http.MethodPost, "/items", "admin-key", "admin-extra", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.key != "" {
				req.Header.Set("x-api-key", tt.key)
			}
			if tt.extra != "" {
				req.Header.Set("x-api-extra", tt.extra)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestHTTPAuth_RateLimit(t *testing.T) {
	cfg := config.APIConfig{Enabled: true, RateLimit: config.APIRateLimitConfig{RPS: 1, Burst: 1}}
	handler := NewHTTPAuth(&cfg).Wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bookings", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bookings", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
