package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salda-id/booking-system/internal/midtrans"
	"github.com/salda-id/booking-system/internal/model"
	"github.com/salda-id/booking-system/internal/pricing"
	"github.com/salda-id/booking-system/internal/repository"
	"github.com/salda-id/booking-system/internal/schedule"
	"github.com/salda-id/booking-system/internal/validation"
)

// CheckoutRequest описывает запрос на создание платежа за бронирование.
type CheckoutRequest struct {
	UserID         int64
	StreamerID     int64
	Date           string
	Hours          []string
	Platform       string
	SpecialRequest string
	SubAccLink     string
	SubAccPass     string
	VoucherCode    string
}

// CheckoutResponse содержит токен оплаты и снимок параметров бронирования,
// который вернётся в колбэке шлюза.
type CheckoutResponse struct {
	Token    string
	OrderID  string
	Quote    model.PriceQuote
	Metadata model.CheckoutMetadata
}

// CreateCheckout проверяет выбор слотов, рассчитывает цену на сервере и
// создаёт транзакцию в платёжном шлюзе. Бронирование при этом не создаётся:
// оно появится только после подтверждения оплаты колбэком.
func (s *Service) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	if !validation.IsValidPlatform(req.Platform) {
		return nil, fmt.Errorf("%w: unsupported platform %q", ErrInvalidInput, req.Platform)
	}
	if len(req.Hours) == 0 {
		return nil, fmt.Errorf("%w: no hours selected", ErrInvalidInput)
	}
	for _, h := range req.Hours {
		if !validation.IsValidHour(h) {
			return nil, fmt.Errorf("%w: malformed hour %q", ErrInvalidInput, h)
		}
	}

	streamer, err := s.repo.GetStreamerByID(ctx, req.StreamerID)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	// Выбор нормализуется к непрерывному диапазону и заново фильтруется по
	// текущей доступности: часы, занятые с момента показа календаря,
	// молча выпадают.
	hours, err := s.NormalizeSelection(ctx, req.StreamerID, req.Date, req.Hours)
	if err != nil {
		return nil, err
	}
	if len(hours) == 0 {
		return nil, fmt.Errorf("%w: selected hours are no longer available", ErrInvalidInput)
	}
	if !schedule.IsContiguous(hours) {
		return nil, fmt.Errorf("%w: selected hours are not contiguous", ErrInvalidInput)
	}

	startTime, endTime, err := s.hoursToRange(req.Date, hours)
	if err != nil {
		return nil, err
	}

	// Цена всегда выводится на сервере из ставки стримера и числа часов,
	// клиентские значения не используются.
	var voucherSnap *model.VoucherSnapshot
	var discount int64
	if req.VoucherCode != "" {
		base := pricing.Quote(streamer.HourlyRate, len(hours), 0)
		res, err := s.ValidateVoucher(ctx, req.VoucherCode, base.Total)
		if err != nil {
			return nil, err
		}
		discount = res.DiscountAmount
		voucherSnap = &model.VoucherSnapshot{
			ID:             res.Voucher.ID,
			Code:           res.Voucher.Code,
			DiscountAmount: res.DiscountAmount,
		}
	}

	quote := pricing.Quote(streamer.HourlyRate, len(hours), discount)

	meta := model.CheckoutMetadata{
		StreamerID:     streamer.ID,
		UserID:         user.ID,
		StartTime:      startTime,
		EndTime:        endTime,
		Platform:       model.Platform(req.Platform),
		SpecialRequest: req.SpecialRequest,
		SubAccLink:     req.SubAccLink,
		SubAccPass:     req.SubAccPass,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		Price:          quote.Total,
		Voucher:        voucherSnap,
		FinalPrice:     quote.FinalPrice,
	}

	orderID := validation.OrderIDPrefix + uuid.New().String()

	description := fmt.Sprintf("Booking with %s %s for %s %s-%s",
		streamer.FirstName, streamer.LastName, req.Date, hours[0], endTime.Format("15:04"))

	token, err := s.gateway.CreateCharge(ctx, midtrans.ChargeRequest{
		OrderID:     orderID,
		GrossAmount: quote.FinalPrice,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Email:       user.Email,
		Description: description,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPaymentGateway, err)
	}

	return &CheckoutResponse{
		Token:    token,
		OrderID:  orderID,
		Quote:    quote,
		Metadata: meta,
	}, nil
}

func (s *Service) hoursToRange(date string, hours []string) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, date, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: malformed date %q", ErrInvalidInput, date)
	}

	first, _ := schedule.HourIndex(hours[0])
	last, _ := schedule.HourIndex(hours[len(hours)-1])

	start := day.Add(time.Duration(first) * time.Hour)
	end := day.Add(time.Duration(last+1) * time.Hour)
	return start, end, nil
}

// ConfirmPayment обрабатывает колбэк платёжного шлюза. Для успешного статуса
// выполняется атомарная фиксация бронирования; любой другой статус не создаёт
// долговременного состояния. Возвращает идентификатор бронирования (для
// успешной фиксации) и статус платежа.
func (s *Service) ConfirmPayment(ctx context.Context, result model.CallbackResult, meta model.CheckoutMetadata) (int64, model.PaymentStatus, error) {
	if !validation.IsValidOrderID(result.OrderID) {
		return 0, "", fmt.Errorf("%w: malformed order id %q", ErrInvalidInput, result.OrderID)
	}
	if meta.StreamerID == 0 || meta.UserID == 0 || !meta.StartTime.Before(meta.EndTime) {
		return 0, "", fmt.Errorf("%w: malformed checkout metadata", ErrInvalidInput)
	}

	status := midtrans.MapTransactionStatus(result.TransactionStatus)
	if status != model.PaymentStatusSuccess {
		s.logger.Info("payment not settled, nothing to commit",
			zap.String("orderID", result.OrderID),
			zap.String("transactionStatus", result.TransactionStatus))
		return 0, status, nil
	}

	transactionID := result.TransactionID
	if transactionID == "" {
		transactionID = result.OrderID
	}

	// Цена переобразуется из ставки стримера на момент фиксации: снимку из
	// клиентских метаданных не доверяем.
	derived, err := s.derivePrice(ctx, &meta)
	if err != nil {
		s.logSettlementFailure(transactionID, result, meta, err)
		return 0, status, err
	}
	meta = *derived

	raw, err := json.Marshal(result)
	if err != nil {
		err = fmt.Errorf("marshal notification: %w", err)
		s.logSettlementFailure(transactionID, result, meta, err)
		return 0, status, err
	}

	bookingID, err := s.repo.CommitPaidBooking(ctx, repository.CommitBookingParams{
		Meta:            meta,
		TransactionID:   transactionID,
		PaymentMethod:   paymentMethod(result.PaymentType),
		RawNotification: raw,
	})
	if err != nil {
		// Конкурентный дубль колбэка: платёж уже зафиксирован, возвращаем
		// существующее бронирование.
		if errors.Is(err, repository.ErrPaymentExists) {
			existingID, lookupErr := s.repo.GetBookingIDByTransaction(ctx, transactionID)
			if lookupErr != nil {
				s.logSettlementFailure(transactionID, result, meta, lookupErr)
				return 0, status, lookupErr
			}
			return existingID, status, nil
		}

		// Конфликт слота мог вызвать и дубль, проигравший гонку фиксации и
		// увидевший собственное бронирование как чужое: прежде чем объявлять
		// конфликт, платёж ищется по transaction_id.
		if errors.Is(err, repository.ErrSlotConflict) {
			if existingID, lookupErr := s.repo.GetBookingIDByTransaction(ctx, transactionID); lookupErr == nil {
				return existingID, status, nil
			}
		}

		s.logSettlementFailure(transactionID, result, meta, err)
		return 0, status, err
	}

	s.invalidateAvailability(ctx, meta.StreamerID)
	return bookingID, status, nil
}

// logSettlementFailure пишет запись для ручного разбора: шлюз подтвердил
// оплату, а бронирование не зафиксировано. В записи — идентификатор
// транзакции и все параметры несостоявшегося бронирования.
func (s *Service) logSettlementFailure(transactionID string, result model.CallbackResult, meta model.CheckoutMetadata, err error) {
	s.logger.Error("settled payment not committed, manual reconciliation required",
		zap.String("transactionID", transactionID),
		zap.String("orderID", result.OrderID),
		zap.Int64("streamerID", meta.StreamerID),
		zap.Int64("userID", meta.UserID),
		zap.Time("startTime", meta.StartTime),
		zap.Time("endTime", meta.EndTime),
		zap.Int64("finalPrice", meta.FinalPrice),
		zap.Error(err))
}

// derivePrice пересчитывает цену бронирования на сервере и сверяет её со
// снимком из метаданных. Расхождение логируется, используются серверные значения.
func (s *Service) derivePrice(ctx context.Context, meta *model.CheckoutMetadata) (*model.CheckoutMetadata, error) {
	streamer, err := s.repo.GetStreamerByID(ctx, meta.StreamerID)
	if err != nil {
		return nil, err
	}

	hours := meta.Hours()
	if hours <= 0 {
		return nil, fmt.Errorf("%w: empty booking range", ErrInvalidInput)
	}

	var discount int64
	if meta.Voucher != nil {
		base := pricing.Quote(streamer.HourlyRate, hours, 0)
		v, err := s.repo.GetVoucherByCode(ctx, strings.ToUpper(meta.Voucher.Code))
		if err != nil {
			return nil, err
		}
		discount = v.DiscountAmount
		if discount > base.Total {
			discount = base.Total
		}
		meta.Voucher = &model.VoucherSnapshot{
			ID:             v.ID,
			Code:           v.Code,
			DiscountAmount: discount,
		}
	}

	quote := pricing.Quote(streamer.HourlyRate, hours, discount)

	if meta.Price != quote.Total || meta.FinalPrice != quote.FinalPrice {
		s.logger.Warn("client price snapshot differs from server derivation",
			zap.Int64("clientPrice", meta.Price),
			zap.Int64("clientFinalPrice", meta.FinalPrice),
			zap.Int64("serverPrice", quote.Total),
			zap.Int64("serverFinalPrice", quote.FinalPrice))
	}

	meta.Price = quote.Total
	meta.FinalPrice = quote.FinalPrice
	return meta, nil
}

func paymentMethod(paymentType string) string {
	if paymentType == "" {
		return "midtrans"
	}
	return paymentType
}
