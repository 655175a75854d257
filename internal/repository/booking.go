package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/salda-id/booking-system/internal/model"
)

func statusStrings(statuses []model.BookingStatus) []string {
	res := make([]string, 0, len(statuses))
	for _, s := range statuses {
		res = append(res, string(s))
	}
	return res
}

// GetBlockingBookings возвращает бронирования стримера, занимающие слоты
// в интервале [from, to): только статусы, блокирующие доступность.
func (r *PostgresRepository) GetBlockingBookings(ctx context.Context, streamerID int64, from, to time.Time) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, streamer_id, client_id, start_time, end_time, status
		 FROM bookings
		 WHERE streamer_id = $1
		   AND status = ANY($2)
		   AND start_time < $4 AND end_time > $3
		 ORDER BY start_time`,
		streamerID, statusStrings(model.BlockingStatuses), from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("select blocking bookings: %w", err)
	}
	defer rows.Close()

	var res []model.Booking
	for rows.Next() {
		var b model.Booking
		var status string
		if err := rows.Scan(&b.ID, &b.StreamerID, &b.ClientID, &b.StartTime, &b.EndTime, &status); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		b.Status = model.BookingStatus(status)
		res = append(res, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

const bookingColumns = `id, streamer_id, client_id, start_time, end_time, platform, status,
	price, voucher_id, voucher_discount, final_price,
	sub_acc_link, sub_acc_pass, special_request, created_at`

func scanBookingRow(rows pgx.Rows) (model.Booking, error) {
	var b model.Booking
	var platform, status string
	err := rows.Scan(
		&b.ID, &b.StreamerID, &b.ClientID, &b.StartTime, &b.EndTime, &platform, &status,
		&b.Price, &b.VoucherID, &b.VoucherDiscount, &b.FinalPrice,
		&b.SubAccLink, &b.SubAccPass, &b.SpecialRequest, &b.CreatedAt,
	)
	if err != nil {
		return model.Booking{}, fmt.Errorf("scan booking: %w", err)
	}
	b.Platform = model.Platform(platform)
	b.Status = model.BookingStatus(status)
	return b, nil
}

func (r *PostgresRepository) listBookings(ctx context.Context, filter string, arg any) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE `+filter+` = $1 ORDER BY start_time DESC`,
		arg,
	)
	if err != nil {
		return nil, fmt.Errorf("select bookings: %w", err)
	}
	defer rows.Close()

	var res []model.Booking
	for rows.Next() {
		b, err := scanBookingRow(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetBookingsByClient возвращает бронирования клиента.
func (r *PostgresRepository) GetBookingsByClient(ctx context.Context, clientID int64) ([]model.Booking, error) {
	return r.listBookings(ctx, "client_id", clientID)
}

// GetBookingsByStreamer возвращает бронирования стримера.
func (r *PostgresRepository) GetBookingsByStreamer(ctx context.Context, streamerID int64) ([]model.Booking, error) {
	return r.listBookings(ctx, "streamer_id", streamerID)
}

// GetBookingByID возвращает бронирование по идентификатору.
func (r *PostgresRepository) GetBookingByID(ctx context.Context, id int64) (*model.Booking, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("select booking: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("rows error: %w", err)
		}
		return nil, ErrBookingNotFound
	}

	b, err := scanBookingRow(rows)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateBookingStatus переводит бронирование в статус to, если текущий статус
// входит в allowedFrom. Проверка и обновление выполняются одним запросом,
// поэтому параллельные переходы не могут обойти машину состояний.
func (r *PostgresRepository) UpdateBookingStatus(ctx context.Context, id int64, to model.BookingStatus, allowedFrom []model.BookingStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE bookings SET status = $2 WHERE id = $1 AND status = ANY($3)`,
		id, string(to), statusStrings(allowedFrom),
	)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check booking: %w", err)
		}
		if !exists {
			return ErrBookingNotFound
		}
		return ErrInvalidTransition
	}

	return nil
}

// CommitBookingParams — параметры атомарной фиксации оплаченного бронирования.
type CommitBookingParams struct {
	Meta            model.CheckoutMetadata
	TransactionID   string
	PaymentMethod   string
	RawNotification json.RawMessage
}

// GetBookingIDByTransaction возвращает идентификатор бронирования,
// созданного для указанной транзакции шлюза.
func (r *PostgresRepository) GetBookingIDByTransaction(ctx context.Context, transactionID string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`SELECT booking_id FROM payments WHERE transaction_id = $1`,
		transactionID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrBookingNotFound
		}
		return 0, fmt.Errorf("select payment: %w", err)
	}
	return id, nil
}

// CommitPaidBooking выполняет атомарную фиксацию подтверждённого платежа:
// бронирование, запись об оплате и, при наличии ваучера, списание одного
// применения с записью о погашении создаются в одной транзакции. Повторный
// колбэк с тем же transaction_id возвращает уже созданное бронирование.
// Строка стримера блокируется на время транзакции, что сериализует фиксации
// по одному стримеру и делает проверку пересечения интервалов надёжной.
func (r *PostgresRepository) CommitPaidBooking(ctx context.Context, p CommitBookingParams) (int64, error) {
	var bookingID int64
	err := r.withRetry(ctx, func() error {
		var err error
		bookingID, err = r.commitPaidBooking(ctx, p)
		return err
	})
	if err != nil {
		return 0, err
	}
	return bookingID, nil
}

func (r *PostgresRepository) commitPaidBooking(ctx context.Context, p CommitBookingParams) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Сериализация фиксаций по стримеру.
	var dummy int
	err = tx.QueryRow(ctx, `SELECT 1 FROM streamers WHERE id = $1 FOR UPDATE`, p.Meta.StreamerID).Scan(&dummy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrStreamerNotFound
		}
		return 0, fmt.Errorf("lock streamer: %w", err)
	}

	// Идемпотентность: колбэк шлюза доставляется как минимум один раз.
	// Проверка выполняется уже под блокировкой стримера: параллельная
	// доставка того же уведомления дожидается первой фиксации и видит её
	// платёж, а не ложный конфликт слота.
	var existingID int64
	err = tx.QueryRow(ctx,
		`SELECT booking_id FROM payments WHERE transaction_id = $1`,
		p.TransactionID,
	).Scan(&existingID)
	if err == nil {
		return existingID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("check transaction: %w", err)
	}

	// Повторная проверка занятости: доступность считалась до оплаты,
	// за время внешнего платежа слот мог занять другой клиент.
	var conflict bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE streamer_id = $1
			  AND status = ANY($2)
			  AND start_time < $4 AND end_time > $3
		 )`,
		p.Meta.StreamerID, statusStrings(model.CommitGuardStatuses), p.Meta.StartTime, p.Meta.EndTime,
	).Scan(&conflict)
	if err != nil {
		return 0, fmt.Errorf("check overlap: %w", err)
	}
	if conflict {
		return 0, ErrSlotConflict
	}

	var voucherID *int64
	var voucherDiscount int64
	if p.Meta.Voucher != nil {
		voucherID = &p.Meta.Voucher.ID
		voucherDiscount = p.Meta.Voucher.DiscountAmount
	}

	var bookingID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO bookings (streamer_id, client_id, start_time, end_time, platform, status,
			price, voucher_id, voucher_discount, final_price,
			sub_acc_link, sub_acc_pass, special_request)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id`,
		p.Meta.StreamerID, p.Meta.UserID, p.Meta.StartTime, p.Meta.EndTime,
		string(p.Meta.Platform), string(model.BookingStatusPending),
		p.Meta.Price, voucherID, voucherDiscount, p.Meta.FinalPrice,
		p.Meta.SubAccLink, p.Meta.SubAccPass, p.Meta.SpecialRequest,
	).Scan(&bookingID)
	if err != nil {
		return 0, fmt.Errorf("insert booking: %w", err)
	}

	var paymentID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO payments (booking_id, amount, status, payment_method, transaction_id, midtrans_response)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		bookingID, p.Meta.FinalPrice, string(model.PaymentStatusSuccess),
		p.PaymentMethod, p.TransactionID, p.RawNotification,
	).Scan(&paymentID)
	if err != nil {
		// Страховка на случай конкурентной фиксации того же transaction_id:
		// уникальный индекс вернёт нарушение, вызывающий перечитает платёж.
		if isUniqueViolation(err) {
			return 0, ErrPaymentExists
		}
		return 0, fmt.Errorf("insert payment: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO payment_status_history (payment_id, new_status, midtrans_notification)
		 VALUES ($1, $2, $3)`,
		paymentID, string(model.PaymentStatusSuccess), p.RawNotification,
	)
	if err != nil {
		return 0, fmt.Errorf("insert status history: %w", err)
	}

	if p.Meta.Voucher != nil {
		// Условное списание: ноль затронутых строк означает, что последнее
		// применение забрала параллельная фиксация либо ваучер успел
		// истечь или деактивироваться между проверкой и оплатой.
		cmdTag, err := tx.Exec(ctx,
			`UPDATE vouchers
			 SET remaining_quantity = remaining_quantity - 1
			 WHERE id = $1 AND remaining_quantity > 0 AND is_active AND expires_at > now()`,
			p.Meta.Voucher.ID,
		)
		if err != nil {
			return 0, fmt.Errorf("decrement voucher: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return 0, ErrVoucherExhausted
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO voucher_usage (voucher_id, booking_id, user_id, discount_applied, original_price, final_price)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			p.Meta.Voucher.ID, bookingID, p.Meta.UserID,
			p.Meta.Voucher.DiscountAmount, p.Meta.Price, p.Meta.FinalPrice,
		)
		if err != nil {
			return 0, fmt.Errorf("insert voucher usage: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return bookingID, nil
}
