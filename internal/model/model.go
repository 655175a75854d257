// Package model содержит доменные сущности сервиса бронирования Salda.
package model

import (
	"encoding/json"
	"time"
)

// UserRole описывает роль пользователя в системе.
type UserRole string

const (
	RoleClient   UserRole = "client"
	RoleStreamer UserRole = "streamer"
	RoleAdmin    UserRole = "admin"
)

// User представляет зарегистрированного пользователя платформы.
type User struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     string
	PasswordHash []byte
	Role         UserRole
	CreatedAt    time.Time
}

// Streamer представляет стримера, доступного для бронирования.
type Streamer struct {
	ID         int64
	UserID     int64
	FirstName  string
	LastName   string
	HourlyRate int64
	CreatedAt  time.Time
}

// HourRange описывает непрерывный интервал часов в пределах одного дня.
// Границы хранятся строками вида "HH:00", конец не включается.
type HourRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WeeklyTemplate задаёт повторяющееся недельное расписание стримера.
// Ключ — индекс дня недели (0 — воскресенье, как в time.Weekday).
type WeeklyTemplate map[int][]HourRange

// Platform описывает платформу, на которой проходит стрим.
type Platform string

const (
	PlatformShopee Platform = "shopee"
	PlatformTikTok Platform = "tiktok"
)

// BookingStatus описывает статус бронирования.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusAccepted  BookingStatus = "accepted"
	BookingStatusRejected  BookingStatus = "rejected"
	BookingStatusLive      BookingStatus = "live"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// BlockingStatuses — статусы, при которых бронирование занимает слот
// при расчёте доступности.
var BlockingStatuses = []BookingStatus{BookingStatusPending, BookingStatusAccepted}

// CommitGuardStatuses — статусы, конфликт с которыми запрещает фиксацию
// нового бронирования на пересекающийся интервал.
var CommitGuardStatuses = []BookingStatus{BookingStatusPending, BookingStatusAccepted, BookingStatusLive}

// Booking представляет оплаченное бронирование одного или нескольких часов стримера.
type Booking struct {
	ID              int64
	StreamerID      int64
	ClientID        int64
	StartTime       time.Time
	EndTime         time.Time
	Platform        Platform
	Status          BookingStatus
	Price           int64
	VoucherID       *int64
	VoucherDiscount int64
	FinalPrice      int64
	SubAccLink      string
	SubAccPass      string
	SpecialRequest  string
	CreatedAt       time.Time
}

// Voucher представляет скидочный код с ограниченным количеством применений.
type Voucher struct {
	ID                int64
	Code              string
	Description       string
	DiscountAmount    int64
	TotalQuantity     int
	RemainingQuantity int
	IsActive          bool
	ExpiresAt         time.Time
	CreatedAt         time.Time
}

// VoucherRedemption фиксирует однократное применение ваучера к бронированию.
type VoucherRedemption struct {
	ID              int64
	VoucherID       int64
	BookingID       int64
	UserID          int64
	DiscountApplied int64
	OriginalPrice   int64
	FinalPrice      int64
	CreatedAt       time.Time
}

// PaymentStatus отражает статус транзакции на стороне платёжного шлюза.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailure PaymentStatus = "failure"
	PaymentStatusExpired PaymentStatus = "expired"
)

// Payment представляет запись об оплате бронирования.
type Payment struct {
	ID            int64
	BookingID     int64
	Amount        int64
	Status        PaymentStatus
	Method        string
	TransactionID string
	RawResponse   json.RawMessage
	CreatedAt     time.Time
}

// PriceQuote содержит разбивку стоимости бронирования в рупиях.
type PriceQuote struct {
	Subtotal   int64 `json:"subtotal"`
	Tax        int64 `json:"tax"`
	Total      int64 `json:"total"`
	Discount   int64 `json:"discount"`
	FinalPrice int64 `json:"final_price"`
}

// VoucherSnapshot — снимок применённого ваучера, переносимый в метаданных платежа.
type VoucherSnapshot struct {
	ID             int64  `json:"id"`
	Code           string `json:"code"`
	DiscountAmount int64  `json:"discount_amount"`
}

// CheckoutMetadata — набор параметров будущего бронирования, сопровождающий
// платёж от создания чека до колбэка шлюза. До подтверждения оплаты
// бронирование в БД не существует.
type CheckoutMetadata struct {
	StreamerID     int64            `json:"streamer_id"`
	UserID         int64            `json:"user_id"`
	StartTime      time.Time        `json:"start_time"`
	EndTime        time.Time        `json:"end_time"`
	Platform       Platform         `json:"platform"`
	SpecialRequest string           `json:"special_request,omitempty"`
	SubAccLink     string           `json:"sub_acc_link,omitempty"`
	SubAccPass     string           `json:"sub_acc_pass,omitempty"`
	FirstName      string           `json:"first_name"`
	LastName       string           `json:"last_name"`
	Price          int64            `json:"price"`
	Voucher        *VoucherSnapshot `json:"voucher"`
	FinalPrice     int64            `json:"final_price"`
}

// Hours возвращает длительность бронирования в целых часах.
func (m CheckoutMetadata) Hours() int {
	return int(m.EndTime.Sub(m.StartTime).Hours())
}

// CallbackResult — уведомление платёжного шлюза о статусе транзакции.
type CallbackResult struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	StatusCode        string `json:"status_code"`
	PaymentType       string `json:"payment_type"`
	GrossAmount       string `json:"gross_amount"`
}

// CanTransition сообщает, допустим ли переход бронирования из статуса from в статус to.
func CanTransition(from, to BookingStatus) bool {
	switch to {
	case BookingStatusAccepted, BookingStatusRejected:
		return from == BookingStatusPending
	case BookingStatusLive:
		return from == BookingStatusAccepted
	case BookingStatusCompleted:
		return from == BookingStatusLive
	case BookingStatusCancelled:
		return from == BookingStatusPending || from == BookingStatusAccepted || from == BookingStatusLive
	default:
		return false
	}
}
