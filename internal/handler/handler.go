// Package handler содержит HTTP-обработчики API сервиса бронирований.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/salda-id/booking-system/internal/middleware"
	"github.com/salda-id/booking-system/internal/model"
	"github.com/salda-id/booking-system/internal/repository"
	"github.com/salda-id/booking-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, email, password, firstName, lastName string, role model.UserRole) (int64, error)
	AuthenticateUser(ctx context.Context, email, password string) (*model.User, error)
	CreateStreamerProfile(ctx context.Context, userID int64, hourlyRate int64) (int64, error)
	AvailableSlots(ctx context.Context, streamerID int64, date string, windowFrom, windowTo int) ([]string, error)
	UpdateSchedule(ctx context.Context, userID int64, tpl model.WeeklyTemplate) error
	GetBookingsByClient(ctx context.Context, clientID int64) ([]model.Booking, error)
	GetBookingsByStreamerUser(ctx context.Context, userID int64) ([]model.Booking, error)
	TransitionBooking(ctx context.Context, userID, bookingID int64, to model.BookingStatus) error
	ValidateVoucher(ctx context.Context, code string, total int64) (*service.VoucherValidation, error)
	CreateVoucher(ctx context.Context, v model.Voucher) (int64, error)
	ListVouchers(ctx context.Context) ([]model.Voucher, error)
	ListVoucherRedemptions(ctx context.Context, voucherID int64) ([]model.VoucherRedemption, error)
	CreateCheckout(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResponse, error)
	ConfirmPayment(ctx context.Context, result model.CallbackResult, meta model.CheckoutMetadata) (int64, model.PaymentStatus, error)
}

// Handler реализует HTTP-обработчики API сервиса бронирований.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	role := model.UserRole(req.Role)
	switch role {
	case model.RoleClient, model.RoleStreamer:
	case "":
		role = model.RoleClient
	default:
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Email, req.Password, req.FirstName, req.LastName, role)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		if errors.Is(err, service.ErrInvalidInput) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID, role)
	w.WriteHeader(http.StatusOK)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, user.ID, user.Role)
	w.WriteHeader(http.StatusOK)
}

type streamerProfileRequest struct {
	HourlyRate int64 `json:"hourly_rate"`
}

// CreateStreamerProfile создаёт профиль стримера для текущего пользователя.
func (h *Handler) CreateStreamerProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req streamerProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.CreateStreamerProfile(r.Context(), userID, req.HourlyRate)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, service.ErrForbidden):
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		default:
			h.logger.Error("create streamer profile error", zap.Error(err), zap.Int64("userID", userID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]int64{"streamer_id": id})
}

type slotsResponse struct {
	Date  string   `json:"date"`
	Hours []string `json:"hours"`
}

// GetSlots возвращает свободные часы стримера на указанную дату.
func (h *Handler) GetSlots(w http.ResponseWriter, r *http.Request) {
	streamerID, err := strconv.ParseInt(chi.URLParam(r, "streamerID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	date := r.URL.Query().Get("date")

	windowFrom, windowTo := 0, 24
	if v := r.URL.Query().Get("from"); v != "" {
		if windowFrom, err = strconv.Atoi(v); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if windowTo, err = strconv.Atoi(v); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
	}

	hours, err := h.service.AvailableSlots(r.Context(), streamerID, date, windowFrom, windowTo)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.logger.Error("get slots error", zap.Error(err), zap.Int64("streamerID", streamerID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if hours == nil {
		hours = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(slotsResponse{Date: date, Hours: hours}); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// UpdateSchedule сохраняет недельный шаблон расписания текущего стримера.
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var tpl model.WeeklyTemplate
	if err := json.NewDecoder(r.Body).Decode(&tpl); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateSchedule(r.Context(), userID, tpl); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, repository.ErrStreamerNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("update schedule error", zap.Error(err), zap.Int64("userID", userID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

type bookingResponse struct {
	ID              int64  `json:"id"`
	StreamerID      int64  `json:"streamer_id"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	Platform        string `json:"platform"`
	Status          string `json:"status"`
	Price           int64  `json:"price"`
	VoucherDiscount int64  `json:"voucher_discount"`
	FinalPrice      int64  `json:"final_price"`
	SpecialRequest  string `json:"special_request,omitempty"`
}

func (h *Handler) writeBookings(w http.ResponseWriter, bookings []model.Booking) {
	if len(bookings) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		resp = append(resp, bookingResponse{
			ID:              b.ID,
			StreamerID:      b.StreamerID,
			StartTime:       b.StartTime.Format(time.RFC3339),
			EndTime:         b.EndTime.Format(time.RFC3339),
			Platform:        string(b.Platform),
			Status:          string(b.Status),
			Price:           b.Price,
			VoucherDiscount: b.VoucherDiscount,
			FinalPrice:      b.FinalPrice,
			SpecialRequest:  b.SpecialRequest,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// GetClientBookings возвращает бронирования текущего пользователя как клиента.
func (h *Handler) GetClientBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	bookings, err := h.service.GetBookingsByClient(r.Context(), userID)
	if err != nil {
		h.logger.Error("get client bookings error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeBookings(w, bookings)
}

// GetStreamerBookings возвращает бронирования стримера текущего пользователя.
func (h *Handler) GetStreamerBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	bookings, err := h.service.GetBookingsByStreamerUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrStreamerNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get streamer bookings error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeBookings(w, bookings)
}

// TransitionBooking переводит бронирование в указанный статус от имени
// текущего пользователя.
func (h *Handler) TransitionBooking(to model.BookingStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		bookingID, err := strconv.ParseInt(chi.URLParam(r, "bookingID"), 10, 64)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		if err := h.service.TransitionBooking(r.Context(), userID, bookingID, to); err != nil {
			switch {
			case errors.Is(err, repository.ErrBookingNotFound):
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			case errors.Is(err, repository.ErrInvalidTransition):
				http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			case errors.Is(err, service.ErrForbidden):
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			default:
				h.logger.Error("booking transition error", zap.Error(err),
					zap.Int64("bookingID", bookingID), zap.String("to", string(to)))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

type validateVoucherRequest struct {
	Code  string `json:"code"`
	Total int64  `json:"total"`
}

type validateVoucherResponse struct {
	Valid          bool   `json:"valid"`
	DiscountAmount int64  `json:"discount_amount,omitempty"`
	Message        string `json:"message,omitempty"`
}

// ValidateVoucher проверяет применимость ваучера к указанной сумме.
// Причина отказа возвращается в теле ответа, а не кодом состояния: для
// клиента это обычный результат проверки, а не ошибка запроса.
func (h *Handler) ValidateVoucher(w http.ResponseWriter, r *http.Request) {
	var req validateVoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	resp := validateVoucherResponse{}

	res, err := h.service.ValidateVoucher(r.Context(), req.Code, req.Total)
	switch {
	case err == nil:
		resp.Valid = true
		resp.DiscountAmount = res.DiscountAmount
	case errors.Is(err, repository.ErrVoucherNotFound):
		resp.Message = "voucher not found"
	case errors.Is(err, service.ErrVoucherInactive):
		resp.Message = "voucher is not active"
	case errors.Is(err, service.ErrVoucherExpired):
		resp.Message = "voucher has expired"
	case errors.Is(err, repository.ErrVoucherExhausted):
		resp.Message = "voucher quantity exhausted"
	case errors.Is(err, service.ErrInvalidInput):
		resp.Message = "malformed voucher code"
	default:
		h.logger.Error("validate voucher error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type createPaymentRequest struct {
	StreamerID     int64    `json:"streamer_id"`
	Date           string   `json:"date"`
	Hours          []string `json:"hours"`
	Platform       string   `json:"platform"`
	SpecialRequest string   `json:"special_request"`
	SubAccLink     string   `json:"sub_acc_link"`
	SubAccPass     string   `json:"sub_acc_pass"`
	VoucherCode    string   `json:"voucher_code"`
}

type createPaymentResponse struct {
	Token    string                 `json:"token"`
	OrderID  string                 `json:"order_id"`
	Quote    model.PriceQuote       `json:"quote"`
	Metadata model.CheckoutMetadata `json:"metadata"`
}

// CreatePayment создаёт платёжную транзакцию для выбранных слотов.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	res, err := h.service.CreateCheckout(r.Context(), service.CheckoutRequest{
		UserID:         userID,
		StreamerID:     req.StreamerID,
		Date:           req.Date,
		Hours:          req.Hours,
		Platform:       req.Platform,
		SpecialRequest: req.SpecialRequest,
		SubAccLink:     req.SubAccLink,
		SubAccPass:     req.SubAccPass,
		VoucherCode:    req.VoucherCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput),
			errors.Is(err, service.ErrVoucherInactive),
			errors.Is(err, service.ErrVoucherExpired),
			errors.Is(err, repository.ErrVoucherNotFound),
			errors.Is(err, repository.ErrVoucherExhausted):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, repository.ErrStreamerNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("create payment error", zap.Error(err),
				zap.Int64("userID", userID), zap.Int64("streamerID", req.StreamerID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(createPaymentResponse{
		Token:    res.Token,
		OrderID:  res.OrderID,
		Quote:    res.Quote,
		Metadata: res.Metadata,
	}); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type paymentCallbackRequest struct {
	model.CallbackResult
	Metadata model.CheckoutMetadata `json:"metadata"`
}

type paymentCallbackResponse struct {
	BookingID int64  `json:"booking_id,omitempty"`
	Status    string `json:"status"`
}

// PaymentCallback принимает уведомление платёжного шлюза. Успешный платёж
// атомарно фиксирует бронирование; повторные доставки того же уведомления
// возвращают уже созданное бронирование.
func (h *Handler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req paymentCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	bookingID, status, err := h.service.ConfirmPayment(r.Context(), req.CallbackResult, req.Metadata)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, repository.ErrSlotConflict), errors.Is(err, repository.ErrVoucherExhausted):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("payment callback error", zap.Error(err),
				zap.String("orderID", req.OrderID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(paymentCallbackResponse{
		BookingID: bookingID,
		Status:    string(status),
	}); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type createVoucherRequest struct {
	Code           string `json:"code"`
	Description    string `json:"description"`
	DiscountAmount int64  `json:"discount_amount"`
	TotalQuantity  int    `json:"total_quantity"`
	ExpiresAt      string `json:"expires_at"`
}

// CreateVoucher создаёт новый ваучер (доступно администраторам).
func (h *Handler) CreateVoucher(w http.ResponseWriter, r *http.Request) {
	var req createVoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.CreateVoucher(r.Context(), model.Voucher{
		Code:           req.Code,
		Description:    req.Description,
		DiscountAmount: req.DiscountAmount,
		TotalQuantity:  req.TotalQuantity,
		ExpiresAt:      expiresAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrVoucherCodeTaken):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		case errors.Is(err, service.ErrInvalidInput):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		default:
			h.logger.Error("create voucher error", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]int64{"voucher_id": id})
}

type voucherResponse struct {
	ID                int64  `json:"id"`
	Code              string `json:"code"`
	Description       string `json:"description"`
	DiscountAmount    int64  `json:"discount_amount"`
	TotalQuantity     int    `json:"total_quantity"`
	RemainingQuantity int    `json:"remaining_quantity"`
	IsActive          bool   `json:"is_active"`
	ExpiresAt         string `json:"expires_at"`
}

type redemptionResponse struct {
	ID              int64  `json:"id"`
	BookingID       int64  `json:"booking_id"`
	UserID          int64  `json:"user_id"`
	DiscountApplied int64  `json:"discount_applied"`
	OriginalPrice   int64  `json:"original_price"`
	FinalPrice      int64  `json:"final_price"`
	CreatedAt       string `json:"created_at"`
}

// GetVoucherRedemptions возвращает историю погашений ваучера (доступно администраторам).
func (h *Handler) GetVoucherRedemptions(w http.ResponseWriter, r *http.Request) {
	voucherID, err := strconv.ParseInt(chi.URLParam(r, "voucherID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	redemptions, err := h.service.ListVoucherRedemptions(r.Context(), voucherID)
	if err != nil {
		h.logger.Error("list redemptions error", zap.Error(err), zap.Int64("voucherID", voucherID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]redemptionResponse, 0, len(redemptions))
	for _, rd := range redemptions {
		resp = append(resp, redemptionResponse{
			ID:              rd.ID,
			BookingID:       rd.BookingID,
			UserID:          rd.UserID,
			DiscountApplied: rd.DiscountApplied,
			OriginalPrice:   rd.OriginalPrice,
			FinalPrice:      rd.FinalPrice,
			CreatedAt:       rd.CreatedAt.Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// ListVouchers возвращает все ваучеры (доступно администраторам).
func (h *Handler) ListVouchers(w http.ResponseWriter, r *http.Request) {
	vouchers, err := h.service.ListVouchers(r.Context())
	if err != nil {
		h.logger.Error("list vouchers error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]voucherResponse, 0, len(vouchers))
	for _, v := range vouchers {
		resp = append(resp, voucherResponse{
			ID:                v.ID,
			Code:              v.Code,
			Description:       v.Description,
			DiscountAmount:    v.DiscountAmount,
			TotalQuantity:     v.TotalQuantity,
			RemainingQuantity: v.RemainingQuantity,
			IsActive:          v.IsActive,
			ExpiresAt:         v.ExpiresAt.Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}
