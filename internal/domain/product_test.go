package domain

import "testing"

func TestProduct_EffectivePriceCents(t *testing.T) {
	p := &Product{PriceCents: 2500}
	if got := p.EffectivePriceCents(); got != 2500 {
		t.Errorf("EffectivePriceCents() = %d, want 2500", got)
	}

	sale := int64(1999)
	p.SalePriceCents = &sale
	if got := p.EffectivePriceCents(); got != 1999 {
		t.Errorf("EffectivePriceCents() with sale = %d, want 1999", got)
	}
}
