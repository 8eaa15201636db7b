package service

import (
	"strings"

	"github.com/Rhymond/go-money"

	"github.com/pkordes/dumper-shop/backend/internal/domain"
)

// knownCurrency reports whether code is an ISO 4217 code go-money knows.
// Codes are stored lowercase; go-money keys them uppercase.
func knownCurrency(code string) bool {
	return money.GetCurrency(strings.ToUpper(code)) != nil
}

// applyRegionPricing sets CalculatedPrice on every variant of p from its price
// in currency. Variants not sold in currency get a nil CalculatedPrice.
func applyRegionPricing(p *domain.Product, currency string) {
	for i := range p.Variants {
		p.Variants[i].CalculatedPrice = calculatePrice(p.Variants[i].Prices, currency)
	}
}

func calculatePrice(prices []domain.Price, currency string) *domain.CalculatedPrice {
	for _, pr := range prices {
		if !strings.EqualFold(pr.CurrencyCode, currency) {
			continue
		}
		m := money.New(pr.Amount, strings.ToUpper(currency))
		return &domain.CalculatedPrice{
			CurrencyCode: strings.ToLower(currency),
			Amount:       pr.Amount,
			Formatted:    m.Display(),
		}
	}
	return nil
}
