package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/salda-id/booking-system/internal/model"
)

const voucherColumns = `id, code, description, discount_amount, total_quantity,
	remaining_quantity, is_active, expires_at, created_at`

// CreateVoucher создаёт новый ваучер. Код должен быть уже нормализован
// к верхнему регистру, remaining_quantity устанавливается равным total_quantity.
func (r *PostgresRepository) CreateVoucher(ctx context.Context, v model.Voucher) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO vouchers (code, description, discount_amount, total_quantity, remaining_quantity, is_active, expires_at)
		 VALUES ($1, $2, $3, $4, $4, $5, $6)
		 RETURNING id`,
		v.Code, v.Description, v.DiscountAmount, v.TotalQuantity, v.IsActive, v.ExpiresAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrVoucherCodeTaken, v.Code)
		}
		return 0, fmt.Errorf("create voucher: %w", err)
	}
	return id, nil
}

// GetVoucherByCode возвращает ваучер по коду. Код сравнивается как есть:
// нормализация регистра выполняется на уровне сервиса.
func (r *PostgresRepository) GetVoucherByCode(ctx context.Context, code string) (*model.Voucher, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE code = $1`,
		code,
	)
	if err != nil {
		return nil, fmt.Errorf("select voucher: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("rows error: %w", err)
		}
		return nil, ErrVoucherNotFound
	}

	v, err := scanVoucher(rows)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVouchers возвращает все ваучеры, новые первыми.
func (r *PostgresRepository) ListVouchers(ctx context.Context) ([]model.Voucher, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+voucherColumns+` FROM vouchers ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select vouchers: %w", err)
	}
	defer rows.Close()

	var res []model.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

func scanVoucher(rows pgx.Rows) (model.Voucher, error) {
	var v model.Voucher
	err := rows.Scan(
		&v.ID, &v.Code, &v.Description, &v.DiscountAmount, &v.TotalQuantity,
		&v.RemainingQuantity, &v.IsActive, &v.ExpiresAt, &v.CreatedAt,
	)
	if err != nil {
		return model.Voucher{}, fmt.Errorf("scan voucher: %w", err)
	}
	return v, nil
}

// GetRedemptionsByVoucher возвращает записи о погашениях указанного ваучера.
func (r *PostgresRepository) GetRedemptionsByVoucher(ctx context.Context, voucherID int64) ([]model.VoucherRedemption, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, voucher_id, booking_id, user_id, discount_applied, original_price, final_price, created_at
		 FROM voucher_usage
		 WHERE voucher_id = $1
		 ORDER BY created_at DESC`,
		voucherID,
	)
	if err != nil {
		return nil, fmt.Errorf("select voucher usage: %w", err)
	}
	defer rows.Close()

	var res []model.VoucherRedemption
	for rows.Next() {
		var red model.VoucherRedemption
		if err := rows.Scan(
			&red.ID, &red.VoucherID, &red.BookingID, &red.UserID,
			&red.DiscountApplied, &red.OriginalPrice, &red.FinalPrice, &red.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan voucher usage: %w", err)
		}
		res = append(res, red)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
