package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/salda-id/booking-system/internal/model"
	"github.com/salda-id/booking-system/internal/repository"
	"github.com/salda-id/booking-system/internal/validation"
)

// VoucherValidation — результат успешной проверки ваучера.
type VoucherValidation struct {
	Voucher        *model.Voucher
	DiscountAmount int64
}

// ValidateVoucher проверяет применимость кода ваучера к сумме total.
// Проверка только читает данные: списание применения происходит один раз,
// при фиксации оплаченного бронирования.
func (s *Service) ValidateVoucher(ctx context.Context, code string, total int64) (*VoucherValidation, error) {
	if !validation.IsValidVoucherCode(code) {
		return nil, fmt.Errorf("%w: malformed voucher code", ErrInvalidInput)
	}
	if total < 0 {
		return nil, fmt.Errorf("%w: negative total", ErrInvalidInput)
	}

	v, err := s.repo.GetVoucherByCode(ctx, strings.ToUpper(code))
	if err != nil {
		return nil, err
	}

	if !v.IsActive {
		return nil, ErrVoucherInactive
	}
	if time.Now().After(v.ExpiresAt) {
		return nil, ErrVoucherExpired
	}
	if v.RemainingQuantity <= 0 {
		return nil, repository.ErrVoucherExhausted
	}

	discount := v.DiscountAmount
	if discount > total {
		discount = total
	}

	return &VoucherValidation{Voucher: v, DiscountAmount: discount}, nil
}

// CreateVoucher создаёт новый ваучер. Код нормализуется к верхнему регистру,
// остаток применений равен общему количеству.
func (s *Service) CreateVoucher(ctx context.Context, v model.Voucher) (int64, error) {
	v.Code = strings.ToUpper(strings.TrimSpace(v.Code))

	if !validation.IsValidVoucherCode(v.Code) {
		return 0, fmt.Errorf("%w: voucher code must be %d characters", ErrInvalidInput, validation.VoucherCodeLength)
	}
	if v.DiscountAmount <= 0 {
		return 0, fmt.Errorf("%w: discount amount must be positive", ErrInvalidInput)
	}
	if v.TotalQuantity <= 0 {
		return 0, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	if v.ExpiresAt.Before(time.Now()) {
		return 0, fmt.Errorf("%w: expiry must be in the future", ErrInvalidInput)
	}

	v.IsActive = true
	v.RemainingQuantity = v.TotalQuantity

	return s.repo.CreateVoucher(ctx, v)
}

// ListVouchers возвращает все ваучеры.
func (s *Service) ListVouchers(ctx context.Context) ([]model.Voucher, error) {
	return s.repo.ListVouchers(ctx)
}

// ListVoucherRedemptions возвращает историю погашений ваучера.
func (s *Service) ListVoucherRedemptions(ctx context.Context, voucherID int64) ([]model.VoucherRedemption, error) {
	return s.repo.GetRedemptionsByVoucher(ctx, voucherID)
}
