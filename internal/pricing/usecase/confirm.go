package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/precios-app/pricingservice/internal/audit"
	"github.com/precios-app/pricingservice/internal/events"
	"github.com/precios-app/pricingservice/internal/log"
	"github.com/precios-app/pricingservice/internal/metrics"
	"github.com/precios-app/pricingservice/internal/pricing/domain"
	"github.com/precios-app/pricingservice/internal/pricing/repo"
)

// OrderConfirmer prices every line of a draft order inside one
// transaction. Any line that fails to price, or prices below cost without
// authorization, rolls the whole confirmation back.
type OrderConfirmer struct {
	store     repo.Store
	auditor   audit.Logger
	publisher events.Publisher
}

// NewOrderConfirmer creates a new order confirmer
func NewOrderConfirmer(store repo.Store, auditor audit.Logger, publisher events.Publisher) *OrderConfirmer {
	return &OrderConfirmer{store: store, auditor: auditor, publisher: publisher}
}

// Confirm runs the all-or-nothing confirmation. On success every line's
// unit price is persisted and the order advances to confirmed. On failure
// the returned strings carry one "CODE: reason" entry per offending line,
// nothing is persisted, and the caller must resubmit after fixing the
// data — there are no automatic retries.
func (c *OrderConfirmer) Confirm(ctx context.Context, orderID uuid.UUID) ([]string, error) {
	ctx = log.WithOrderID(ctx, orderID.String())

	var lineErrors []string
	var confirmed domain.Order
	var lineCount int

	err := c.store.WithinTx(ctx, func(tx repo.Store) error {
		order, err := tx.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != domain.OrderStatusDraft {
			return domain.NewInvalidStateError("order is not confirmable", fmt.Sprintf("status: %s", order.Status))
		}

		lines, err := tx.Orders().Lines(ctx, orderID)
		if err != nil {
			return err
		}

		cart := make([]domain.CartLine, 0, len(lines))
		for _, l := range lines {
			cart = append(cart, domain.CartLine{ItemID: l.ItemID, Quantity: l.Quantity})
		}

		// The calculator reads through the transaction so it sees exactly
		// the state this confirmation will commit against. No list cache
		// inside a transaction.
		calc := NewPriceCalculator(tx, nil, 0)

		for _, line := range lines {
			item, err := tx.Items().Get(ctx, line.ItemID)
			if err != nil {
				return err
			}

			res, err := calc.Calculate(ctx, domain.PricingRequest{
				CompanyID:   order.CompanyID,
				BranchID:    order.BranchID,
				ItemID:      line.ItemID,
				Channel:     order.Channel,
				Quantity:    line.Quantity,
				OrderAmount: order.GrossTotal,
				Cart:        cart,
			})
			if err != nil {
				return err
			}

			if res.FinalPrice == nil {
				lineErrors = append(lineErrors, fmt.Sprintf("%s: %s", item.Code, res.BelowCostReason))
				continue
			}
			if res.BelowCostReason != "" && !res.BelowCostAuthorized {
				lineErrors = append(lineErrors, fmt.Sprintf("%s: price below cost without authorization", item.Code))
			}

			if err := tx.Orders().SetLineUnitPrice(ctx, line.ID, *res.FinalPrice); err != nil {
				return err
			}
		}

		if len(lineErrors) > 0 {
			return domain.NewInvalidStateError("order confirmation failed", strings.Join(lineErrors, "; "))
		}

		if err := tx.Orders().SetStatus(ctx, orderID, domain.OrderStatusConfirmed); err != nil {
			return err
		}

		order.Status = domain.OrderStatusConfirmed
		confirmed = order
		lineCount = len(lines)
		return nil
	})

	if err != nil {
		metrics.OrderConfirmationsTotal.WithLabelValues("failure").Inc()
		c.auditEvent(ctx, orderID, "failure", err)
		log.Warn(ctx, "Order confirmation failed",
			zap.Int("line_errors", len(lineErrors)),
			zap.Error(err))
		return lineErrors, err
	}

	metrics.OrderConfirmationsTotal.WithLabelValues("success").Inc()
	c.auditEvent(ctx, orderID, "success", nil)

	if err := c.publisher.PublishOrderConfirmed(ctx, confirmed, lineCount); err != nil {
		// The confirmation committed; a lost event is logged, not failed.
		log.Warn(ctx, "Failed to publish order confirmed event", zap.Error(err))
	}

	log.Info(ctx, "Order confirmed", zap.Int("lines", lineCount))
	return nil, nil
}

func (c *OrderConfirmer) auditEvent(ctx context.Context, orderID uuid.UUID, result string, err error) {
	event := audit.Event{
		ID:         uuid.New().String(),
		Actor:      "system",
		Action:     "confirm_order",
		Resource:   "order",
		ResourceID: orderID.String(),
		Result:     result,
	}
	if err != nil {
		event.Error = err.Error()
	}
	_ = c.auditor.Log(ctx, event)
}
