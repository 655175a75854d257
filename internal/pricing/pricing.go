// Package pricing вычисляет стоимость бронирования в рупиях.
package pricing

import (
	"math"

	"github.com/salda-id/booking-system/internal/model"
)

// Ставки платформы. Комиссия применяется к базовой почасовой цене стримера,
// налог — к промежуточной сумме.
const (
	PlatformFeeRate = 0.30
	TaxRate         = 0.11
)

// Quote рассчитывает стоимость бронирования hours часов по базовой ставке
// baseHourlyRate с учётом комиссии платформы, налога и скидки discount.
// Округление выполняется один раз — на итоговой сумме до скидки.
// Скидка не может превышать итоговую сумму: цена не уходит в минус.
func Quote(baseHourlyRate int64, hours int, discount int64) model.PriceQuote {
	if baseHourlyRate < 0 || hours <= 0 {
		return model.PriceQuote{}
	}

	priceWithFee := float64(baseHourlyRate) * (1 + PlatformFeeRate)
	subtotal := priceWithFee * float64(hours)
	tax := subtotal * TaxRate
	total := int64(math.Round(subtotal + tax))

	if discount < 0 {
		discount = 0
	}
	if discount > total {
		discount = total
	}

	return model.PriceQuote{
		Subtotal:   int64(math.Round(subtotal)),
		Tax:        int64(math.Round(tax)),
		Total:      total,
		Discount:   discount,
		FinalPrice: total - discount,
	}
}
