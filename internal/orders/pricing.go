package orders

// PricingPolicy holds the knobs for total computation. Delivery fee is
// flat and waived once the subtotal reaches FreeDeliveryMinCents.
// Coupons map code -> flat discount in cents; unknown codes discount 0.
type PricingPolicy struct {
	DeliveryFeeCents     int64
	FreeDeliveryMinCents int64
	Coupons              map[string]int64
}

type Quote struct {
	SubtotalCents    int64
	DiscountCents    int64
	DeliveryFeeCents int64
	TotalCents       int64
}

// Price computes totals from line snapshots. The invariant callers rely
// on: TotalCents == SubtotalCents - DiscountCents + DeliveryFeeCents.
func (p PricingPolicy) Price(lines []OrderLine, coupon string) Quote {
	var q Quote
	for _, l := range lines {
		q.SubtotalCents += l.UnitPriceCents * int64(l.Qty)
	}
	if d, ok := p.Coupons[coupon]; ok {
		q.DiscountCents = d
		if q.DiscountCents > q.SubtotalCents {
			q.DiscountCents = q.SubtotalCents
		}
	}
	if q.SubtotalCents < p.FreeDeliveryMinCents {
		q.DeliveryFeeCents = p.DeliveryFeeCents
	}
	q.TotalCents = q.SubtotalCents - q.DiscountCents + q.DeliveryFeeCents
	return q
}
