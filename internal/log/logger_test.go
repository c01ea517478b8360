package log

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

// Example usage of the context-aware logger
func ExampleL() {
	_ = Init("info")

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req456")
	ctx = WithOrderID(ctx, "ord123")
	ctx = WithCompanyID(ctx, "co789")

	L(ctx).Info("Calculating price",
		zap.String("item_code", "A-100"),
		zap.Int("quantity", 20))

	Info(ctx, "Price calculated",
		zap.String("final_price", "13.50"))
}

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	ctx = WithRequestID(ctx, "test_request")
	if requestID := ctx.Value(RequestIDKey); requestID != "test_request" {
		t.Errorf("Expected request_id to be 'test_request', got %v", requestID)
	}

	ctx = WithOrderID(ctx, "test_order")
	if orderID := ctx.Value(OrderIDKey); orderID != "test_order" {
		t.Errorf("Expected order_id to be 'test_order', got %v", orderID)
	}

	ctx = WithCompanyID(ctx, "test_company")
	if companyID := ctx.Value(CompanyIDKey); companyID != "test_company" {
		t.Errorf("Expected company_id to be 'test_company', got %v", companyID)
	}
}
