// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// VoucherCodeLength — фиксированная длина кода ваучера.
const VoucherCodeLength = 6

// IsValidVoucherCode проверяет, что код ваучера состоит ровно из шести
// латинских букв или цифр. Регистр не учитывается.
func IsValidVoucherCode(code string) bool {
	if len(code) != VoucherCodeLength {
		return false
	}
	for _, ch := range code {
		if ch > unicode.MaxASCII || (!unicode.IsLetter(ch) && !unicode.IsDigit(ch)) {
			return false
		}
	}
	return true
}

// IsValidHour проверяет строку часа вида "HH:00" в диапазоне 00:00–23:00.
func IsValidHour(hour string) bool {
	if len(hour) != 5 || hour[2] != ':' || hour[3] != '0' || hour[4] != '0' {
		return false
	}
	if !unicode.IsDigit(rune(hour[0])) || !unicode.IsDigit(rune(hour[1])) {
		return false
	}
	h := int(hour[0]-'0')*10 + int(hour[1]-'0')
	return h <= 23
}

// OrderIDPrefix — префикс идентификатора заказа, передаваемого платёжному шлюзу.
const OrderIDPrefix = "BOOKING-"

// IsValidOrderID проверяет формат идентификатора заказа "BOOKING-<uuid>".
func IsValidOrderID(orderID string) bool {
	if !strings.HasPrefix(orderID, OrderIDPrefix) {
		return false
	}
	_, err := uuid.Parse(strings.TrimPrefix(orderID, OrderIDPrefix))
	return err == nil
}

// IsValidPlatform проверяет, что платформа стрима поддерживается.
func IsValidPlatform(platform string) bool {
	return platform == "shopee" || platform == "tiktok"
}
