package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/precios-app/pricingservice/internal/audit"
	"github.com/precios-app/pricingservice/internal/events"
	"github.com/precios-app/pricingservice/internal/log"
	"github.com/precios-app/pricingservice/internal/metrics"
	"github.com/precios-app/pricingservice/internal/pricing/domain"
	"github.com/precios-app/pricingservice/internal/pricing/repo"
	"github.com/precios-app/pricingservice/internal/retry"
)

// ProviderDiscountRegistrar records a supplier's recognized discount on a
// list and marks the affected item price as authorized for below-cost
// selling. Both writes happen in one transaction.
type ProviderDiscountRegistrar struct {
	store     repo.Store
	auditor   audit.Logger
	publisher events.Publisher
}

// NewProviderDiscountRegistrar creates a new registrar
func NewProviderDiscountRegistrar(store repo.Store, auditor audit.Logger, publisher events.Publisher) *ProviderDiscountRegistrar {
	return &ProviderDiscountRegistrar{store: store, auditor: auditor, publisher: publisher}
}

// Register finds or creates the list's supplier-discount rule (overwriting
// the percentage and forcing it active when it already exists) and flags
// the item price as below-cost authorized with a templated reason naming
// the approver. A uniqueness-violation CONFLICT from a concurrent
// registration is retried once.
func (r *ProviderDiscountRegistrar) Register(ctx context.Context, itemPriceID uuid.UUID, recognizedPct decimal.Decimal, approver string) (domain.ItemPrice, error) {
	if recognizedPct.IsNegative() || recognizedPct.GreaterThan(decimal.NewFromInt(100)) {
		return domain.ItemPrice{}, domain.NewInvalidInputError("recognized percentage must be between 0 and 100", recognizedPct.String())
	}
	if approver == "" {
		return domain.ItemPrice{}, domain.NewInvalidInputError("approver is required", "")
	}

	var updated domain.ItemPrice

	cfg := retry.Config{
		MaxAttempts:   2,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
		RetryIf:       domain.IsConflict,
	}

	err := retry.Do(ctx, cfg, log.L(ctx), func() error {
		return r.store.WithinTx(ctx, func(tx repo.Store) error {
			price, err := tx.ItemPrices().GetByID(ctx, itemPriceID)
			if err != nil {
				return err
			}

			if _, err := tx.Rules().UpsertSupplierDiscount(ctx, price.ListID, recognizedPct); err != nil {
				return err
			}

			reason := fmt.Sprintf("authorized by provider recognition %s%% by %s", recognizedPct.String(), approver)
			if err := tx.ItemPrices().SetBelowCostAuthorization(ctx, price.ID, true, reason); err != nil {
				return err
			}

			price.BelowCostAuthorized = true
			price.BelowCostReason = reason
			updated = price
			return nil
		})
	})

	if err != nil {
		metrics.SupplierDiscountRegistrationsTotal.WithLabelValues("failure").Inc()
		r.auditEvent(ctx, itemPriceID, recognizedPct, approver, "failure", err)
		return domain.ItemPrice{}, err
	}

	metrics.SupplierDiscountRegistrationsTotal.WithLabelValues("success").Inc()
	r.auditEvent(ctx, itemPriceID, recognizedPct, approver, "success", nil)

	if err := r.publisher.PublishSupplierDiscountRegistered(ctx, updated, recognizedPct, approver); err != nil {
		// The registration committed; a lost event is logged, not failed.
		log.Warn(ctx, "Failed to publish supplier discount event", zap.Error(err))
	}

	log.Info(ctx, "Supplier discount registered",
		zap.String("item_price_id", itemPriceID.String()),
		zap.String("list_id", updated.ListID.String()),
		zap.String("recognized_pct", recognizedPct.String()),
		zap.String("approver", approver))

	return updated, nil
}

func (r *ProviderDiscountRegistrar) auditEvent(ctx context.Context, itemPriceID uuid.UUID, pct decimal.Decimal, approver, result string, err error) {
	event := audit.Event{
		ID:         uuid.New().String(),
		Actor:      approver,
		Action:     "register_supplier_discount",
		Resource:   "item_price",
		ResourceID: itemPriceID.String(),
		Details: map[string]interface{}{
			"recognized_pct": pct.String(),
		},
		Result: result,
	}
	if err != nil {
		event.Error = err.Error()
	}
	_ = r.auditor.Log(ctx, event)
}
