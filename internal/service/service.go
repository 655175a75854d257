// Package service реализует бизнес-логику сервиса бронирования Salda.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/salda-id/booking-system/internal/midtrans"
	"github.com/salda-id/booking-system/internal/model"
	"github.com/salda-id/booking-system/internal/repository"
	"github.com/salda-id/booking-system/internal/validation"
)

// ErrInvalidInput возвращается при некорректных входных данных запроса.
var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials возвращается при неверной паре email/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrVoucherInactive возвращается для деактивированного ваучера.
	ErrVoucherInactive = errors.New("voucher inactive")
	// ErrVoucherExpired возвращается для ваучера с истёкшим сроком действия.
	ErrVoucherExpired = errors.New("voucher expired")
	// ErrPaymentGateway возвращается при сбое взаимодействия с платёжным шлюзом.
	ErrPaymentGateway = errors.New("payment gateway error")
	// ErrForbidden возвращается, когда операция недоступна этому пользователю.
	ErrForbidden = errors.New("operation not allowed")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, email, firstName, lastName string, passwordHash []byte, role model.UserRole) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	CreateStreamer(ctx context.Context, userID int64, firstName, lastName string, hourlyRate int64) (int64, error)
	GetStreamerByID(ctx context.Context, id int64) (*model.Streamer, error)
	GetStreamerByUserID(ctx context.Context, userID int64) (*model.Streamer, error)
	GetScheduleTemplate(ctx context.Context, streamerID int64) (model.WeeklyTemplate, error)
	UpsertScheduleTemplate(ctx context.Context, streamerID int64, tpl model.WeeklyTemplate) error
	GetBlockingBookings(ctx context.Context, streamerID int64, from, to time.Time) ([]model.Booking, error)
	GetBookingsByClient(ctx context.Context, clientID int64) ([]model.Booking, error)
	GetBookingsByStreamer(ctx context.Context, streamerID int64) ([]model.Booking, error)
	GetBookingByID(ctx context.Context, id int64) (*model.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, to model.BookingStatus, allowedFrom []model.BookingStatus) error
	CommitPaidBooking(ctx context.Context, p repository.CommitBookingParams) (int64, error)
	GetBookingIDByTransaction(ctx context.Context, transactionID string) (int64, error)
	CreateVoucher(ctx context.Context, v model.Voucher) (int64, error)
	GetVoucherByCode(ctx context.Context, code string) (*model.Voucher, error)
	ListVouchers(ctx context.Context) ([]model.Voucher, error)
	GetRedemptionsByVoucher(ctx context.Context, voucherID int64) ([]model.VoucherRedemption, error)
}

// Gateway описывает контракт платёжного шлюза, используемый сервисом.
type Gateway interface {
	CreateCharge(ctx context.Context, req midtrans.ChargeRequest) (string, error)
}

// Service содержит бизнес-логику сервиса бронирования.
type Service struct {
	repo    Repository
	gateway Gateway
	cache   *AvailabilityCache
	logger  *zap.Logger
	loc     *time.Location
}

// NewService создаёт сервис с указанным репозиторием, платёжным шлюзом и
// необязательным кэшем доступности.
func NewService(repo Repository, gateway Gateway, cache *AvailabilityCache, logger *zap.Logger, loc *time.Location) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:    repo,
		gateway: gateway,
		cache:   cache,
		logger:  logger,
		loc:     loc,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.cache != nil {
		_ = s.cache.Close()
	}
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя с указанной ролью.
func (s *Service) RegisterUser(ctx context.Context, email, password, firstName, lastName string, role model.UserRole) (int64, error) {
	if email == "" || password == "" {
		return 0, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	hashed := hashPassword(email, password)
	id, err := s.repo.CreateUser(ctx, email, firstName, lastName, hashed, role)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// AuthenticateUser проверяет email и пароль пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	hashed := hashPassword(email, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func hashPassword(email, password string) []byte {
	sum := sha256.Sum256([]byte(email + ":" + password))
	return sum[:]
}

// CreateStreamerProfile создаёт профиль стримера для пользователя с ролью streamer.
func (s *Service) CreateStreamerProfile(ctx context.Context, userID int64, hourlyRate int64) (int64, error) {
	if hourlyRate <= 0 {
		return 0, fmt.Errorf("%w: hourly rate must be positive", ErrInvalidInput)
	}

	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if u.Role != model.RoleStreamer {
		return 0, ErrForbidden
	}

	return s.repo.CreateStreamer(ctx, userID, u.FirstName, u.LastName, hourlyRate)
}

// UpdateSchedule сохраняет недельный шаблон расписания стримера, которым
// владеет пользователь userID. Интервалы в пределах дня не должны пересекаться.
func (s *Service) UpdateSchedule(ctx context.Context, userID int64, tpl model.WeeklyTemplate) error {
	if err := validateTemplate(tpl); err != nil {
		return err
	}

	streamer, err := s.repo.GetStreamerByUserID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.repo.UpsertScheduleTemplate(ctx, streamer.ID, tpl); err != nil {
		return err
	}

	s.invalidateAvailability(ctx, streamer.ID)
	return nil
}

func validateTemplate(tpl model.WeeklyTemplate) error {
	for day, ranges := range tpl {
		if day < 0 || day > 6 {
			return fmt.Errorf("%w: weekday %d out of range", ErrInvalidInput, day)
		}

		type span struct{ start, end int }
		var spans []span
		for _, r := range ranges {
			if !validation.IsValidHour(r.Start) || !validation.IsValidHour(r.End) {
				return fmt.Errorf("%w: malformed hour range %s-%s", ErrInvalidInput, r.Start, r.End)
			}
			start := hourOf(r.Start)
			end := hourOf(r.End)
			if start >= end {
				return fmt.Errorf("%w: empty hour range %s-%s", ErrInvalidInput, r.Start, r.End)
			}
			for _, sp := range spans {
				if start < sp.end && end > sp.start {
					return fmt.Errorf("%w: overlapping ranges on weekday %d", ErrInvalidInput, day)
				}
			}
			spans = append(spans, span{start, end})
		}
	}
	return nil
}

func hourOf(hour string) int {
	return int(hour[0]-'0')*10 + int(hour[1]-'0')
}

// GetBookingsByClient возвращает бронирования клиента.
func (s *Service) GetBookingsByClient(ctx context.Context, clientID int64) ([]model.Booking, error) {
	return s.repo.GetBookingsByClient(ctx, clientID)
}

// GetBookingsByStreamerUser возвращает бронирования стримера по его пользователю.
func (s *Service) GetBookingsByStreamerUser(ctx context.Context, userID int64) ([]model.Booking, error) {
	streamer, err := s.repo.GetStreamerByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetBookingsByStreamer(ctx, streamer.ID)
}

// transitionSources возвращает статусы, из которых допустим переход в to.
func transitionSources(to model.BookingStatus) []model.BookingStatus {
	all := []model.BookingStatus{
		model.BookingStatusPending,
		model.BookingStatusAccepted,
		model.BookingStatusRejected,
		model.BookingStatusLive,
		model.BookingStatusCompleted,
		model.BookingStatusCancelled,
	}

	var res []model.BookingStatus
	for _, from := range all {
		if model.CanTransition(from, to) {
			res = append(res, from)
		}
	}
	return res
}

// TransitionBooking переводит бронирование в статус to от имени пользователя
// userID. Accept/reject/live/complete доступны только стримеру бронирования,
// отмена — стримеру или клиенту.
func (s *Service) TransitionBooking(ctx context.Context, userID, bookingID int64, to model.BookingStatus) error {
	allowedFrom := transitionSources(to)
	if len(allowedFrom) == 0 {
		return fmt.Errorf("%w: unknown target status %s", ErrInvalidInput, to)
	}

	booking, err := s.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return err
	}

	if err := s.checkTransitionActor(ctx, userID, booking, to); err != nil {
		return err
	}

	if err := s.repo.UpdateBookingStatus(ctx, bookingID, to, allowedFrom); err != nil {
		return err
	}

	s.invalidateAvailability(ctx, booking.StreamerID)
	return nil
}

func (s *Service) checkTransitionActor(ctx context.Context, userID int64, booking *model.Booking, to model.BookingStatus) error {
	if to == model.BookingStatusCancelled && booking.ClientID == userID {
		return nil
	}

	streamer, err := s.repo.GetStreamerByID(ctx, booking.StreamerID)
	if err != nil {
		return err
	}
	if streamer.UserID != userID {
		return ErrForbidden
	}
	return nil
}

func (s *Service) invalidateAvailability(ctx context.Context, streamerID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx, streamerID); err != nil {
		s.logger.Warn("availability cache invalidation failed",
			zap.Int64("streamerID", streamerID), zap.Error(err))
	}
}
