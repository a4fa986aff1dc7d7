// Package pricing derives checkout summaries from drafts.
//
// Calculate is pure: it reads only its arguments and always recomputes every
// field from scratch, so callers re-run it after each draft mutation instead of
// patching a previous summary.
package pricing

import "tokocheckout/internal/models"

// Fees are the fixed charges added to every checkout.
type Fees struct {
	ServiceFee     int64
	ApplicationFee int64
}

// Calculate derives the summary of draft.
func Calculate(draft models.CheckoutDraft, fees Fees) models.CheckoutSummary {
	var s models.CheckoutSummary

	for _, item := range draft.Items {
		s.Subtotal += item.Price * int64(item.Quantity)
		s.TotalDiscount += item.Discount()
		s.TotalItems += item.Quantity
	}

	if draft.Shipping != nil {
		s.ShippingCost = draft.Shipping.Cost
		if draft.UseInsurance && draft.Shipping.InsuranceAvailable {
			s.InsuranceCost = draft.Shipping.InsuranceCost
		}
	}

	if draft.UseWarranty {
		s.WarrantyCost = int64(s.TotalItems) * draft.WarrantyCostPerItem
	}

	s.ServiceFee = fees.ServiceFee
	s.ApplicationFee = fees.ApplicationFee
	s.Bonus = draft.Bonus
	s.Savings = s.TotalDiscount
	s.Total = s.Subtotal + s.ShippingCost + s.InsuranceCost + s.WarrantyCost +
		s.ServiceFee + s.ApplicationFee - s.Bonus - s.TotalDiscount

	return s
}

// ValidateItems rejects line items a draft may not hold.
func ValidateItems(items []models.LineItem) error {
	for i, item := range items {
		if item.Quantity < 1 {
			return models.ValidationError("pricing", "item %d (%s): quantity must be at least 1, got %d", i, item.ProductID, item.Quantity)
		}
		if item.Price < 0 {
			return models.ValidationError("pricing", "item %d (%s): price must not be negative", i, item.ProductID)
		}
	}
	return nil
}
