package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/salda-id/booking-system/internal/midtrans"
	"github.com/salda-id/booking-system/internal/model"
	"github.com/salda-id/booking-system/internal/repository"
)

type stubRepo struct {
	user        *model.User
	userErr     error
	streamer    *model.Streamer
	streamerErr error

	template    model.WeeklyTemplate
	templateErr error

	blocking    []model.Booking
	blockingErr error

	voucher    *model.Voucher
	voucherErr error

	booking    *model.Booking
	bookingErr error

	commitID     int64
	commitErr    error
	commitCalls  int
	commitParams repository.CommitBookingParams

	txBookingID  int64
	txBookingErr error

	updateStatusErr error
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateUser(ctx context.Context, email, firstName, lastName string, passwordHash []byte, role model.UserRole) (int64, error) {
	return 1, nil
}

func (s *stubRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.user, s.userErr
}

func (s *stubRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.user, s.userErr
}

func (s *stubRepo) CreateStreamer(ctx context.Context, userID int64, firstName, lastName string, hourlyRate int64) (int64, error) {
	return 1, nil
}

func (s *stubRepo) GetStreamerByID(ctx context.Context, id int64) (*model.Streamer, error) {
	return s.streamer, s.streamerErr
}

func (s *stubRepo) GetStreamerByUserID(ctx context.Context, userID int64) (*model.Streamer, error) {
	return s.streamer, s.streamerErr
}

func (s *stubRepo) GetScheduleTemplate(ctx context.Context, streamerID int64) (model.WeeklyTemplate, error) {
	return s.template, s.templateErr
}

func (s *stubRepo) UpsertScheduleTemplate(ctx context.Context, streamerID int64, tpl model.WeeklyTemplate) error {
	return nil
}

func (s *stubRepo) GetBlockingBookings(ctx context.Context, streamerID int64, from, to time.Time) ([]model.Booking, error) {
	return s.blocking, s.blockingErr
}

func (s *stubRepo) GetBookingsByClient(ctx context.Context, clientID int64) ([]model.Booking, error) {
	return nil, nil
}

func (s *stubRepo) GetBookingsByStreamer(ctx context.Context, streamerID int64) ([]model.Booking, error) {
	return nil, nil
}

func (s *stubRepo) GetBookingByID(ctx context.Context, id int64) (*model.Booking, error) {
	return s.booking, s.bookingErr
}

func (s *stubRepo) UpdateBookingStatus(ctx context.Context, id int64, to model.BookingStatus, allowedFrom []model.BookingStatus) error {
	return s.updateStatusErr
}

func (s *stubRepo) CommitPaidBooking(ctx context.Context, p repository.CommitBookingParams) (int64, error) {
	s.commitCalls++
	s.commitParams = p
	return s.commitID, s.commitErr
}

func (s *stubRepo) GetBookingIDByTransaction(ctx context.Context, transactionID string) (int64, error) {
	return s.txBookingID, s.txBookingErr
}

func (s *stubRepo) CreateVoucher(ctx context.Context, v model.Voucher) (int64, error) {
	return 1, nil
}

func (s *stubRepo) GetVoucherByCode(ctx context.Context, code string) (*model.Voucher, error) {
	return s.voucher, s.voucherErr
}

func (s *stubRepo) ListVouchers(ctx context.Context) ([]model.Voucher, error) {
	return nil, nil
}

func (s *stubRepo) GetRedemptionsByVoucher(ctx context.Context, voucherID int64) ([]model.VoucherRedemption, error) {
	return nil, nil
}

type stubGateway struct {
	token string
	err   error
	req   midtrans.ChargeRequest
	calls int
}

func (g *stubGateway) CreateCharge(ctx context.Context, req midtrans.ChargeRequest) (string, error) {
	g.calls++
	g.req = req
	return g.token, g.err
}

func newTestService(repo *stubRepo, gw *stubGateway) *Service {
	return NewService(repo, gw, nil, nil, time.UTC)
}

func farFuture() time.Time {
	return time.Now().Add(365 * 24 * time.Hour)
}

func activeVoucher() *model.Voucher {
	return &model.Voucher{
		ID:                7,
		Code:              "SAVE10",
		DiscountAmount:    50_000,
		TotalQuantity:     10,
		RemainingQuantity: 1,
		IsActive:          true,
		ExpiresAt:         farFuture(),
	}
}

func TestHashPasswordDeterministic(t *testing.T) {
	a := hashPassword("user@example.com", "pass")
	b := hashPassword("user@example.com", "pass")
	c := hashPassword("user@example.com", "other")

	if string(a) != string(b) {
		t.Fatalf("hashPassword must be deterministic, got %x and %x", a, b)
	}
	if string(a) == string(c) {
		t.Fatalf("different passwords must produce different hashes")
	}
}

func TestAuthenticateUser_InvalidCredentials(t *testing.T) {
	repo := &stubRepo{
		user: &model.User{
			ID:           1,
			Email:        "user@example.com",
			PasswordHash: hashPassword("user@example.com", "correct"),
		},
	}
	svc := newTestService(repo, nil)

	_, err := svc.AuthenticateUser(context.Background(), "user@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestValidateVoucher(t *testing.T) {
	expired := activeVoucher()
	expired.ExpiresAt = time.Now().Add(-time.Hour)

	inactive := activeVoucher()
	inactive.IsActive = false

	exhausted := activeVoucher()
	exhausted.RemainingQuantity = 0

	tests := []struct {
		name    string
		code    string
		total   int64
		voucher *model.Voucher
		repoErr error
		wantErr error
	}{
		{"not found", "NOSUCH", 288_600, nil, repository.ErrVoucherNotFound, repository.ErrVoucherNotFound},
		{"inactive", "SAVE10", 288_600, inactive, nil, ErrVoucherInactive},
		{"expired", "SAVE10", 288_600, expired, nil, ErrVoucherExpired},
		{"exhausted", "SAVE10", 288_600, exhausted, nil, repository.ErrVoucherExhausted},
		{"malformed code", "BAD", 288_600, nil, nil, ErrInvalidInput},
		{"valid", "SAVE10", 288_600, activeVoucher(), nil, nil},
		{"valid lower case", "save10", 288_600, activeVoucher(), nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &stubRepo{voucher: tt.voucher, voucherErr: tt.repoErr}
			svc := newTestService(repo, nil)

			res, err := svc.ValidateVoucher(context.Background(), tt.code, tt.total)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("ValidateVoucher error: %v", err)
			}
			if res.DiscountAmount != 50_000 {
				t.Fatalf("discount = %d, want 50000", res.DiscountAmount)
			}
		})
	}
}

func TestValidateVoucher_DiscountCappedByTotal(t *testing.T) {
	repo := &stubRepo{voucher: activeVoucher()}
	svc := newTestService(repo, nil)

	res, err := svc.ValidateVoucher(context.Background(), "SAVE10", 30_000)
	if err != nil {
		t.Fatalf("ValidateVoucher error: %v", err)
	}
	if res.DiscountAmount != 30_000 {
		t.Fatalf("discount = %d, want capped 30000", res.DiscountAmount)
	}
}

// 3 сентября 2025 — среда.
const testDate = "2025-09-03"

func wednesdayTemplate() model.WeeklyTemplate {
	return model.WeeklyTemplate{
		int(time.Wednesday): {{Start: "10:00", End: "14:00"}},
	}
}

func TestAvailableSlots(t *testing.T) {
	repo := &stubRepo{template: wednesdayTemplate()}
	svc := newTestService(repo, nil)

	hours, err := svc.AvailableSlots(context.Background(), 1, testDate, 0, 24)
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}

	want := []string{"10:00", "11:00", "12:00", "13:00"}
	if len(hours) != len(want) {
		t.Fatalf("hours = %v, want %v", hours, want)
	}
	for i := range want {
		if hours[i] != want[i] {
			t.Fatalf("hours = %v, want %v", hours, want)
		}
	}
}

func TestAvailableSlots_FailClosed(t *testing.T) {
	repo := &stubRepo{templateErr: errors.New("connection refused")}
	svc := newTestService(repo, nil)

	hours, err := svc.AvailableSlots(context.Background(), 1, testDate, 0, 24)
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}
	if len(hours) != 0 {
		t.Fatalf("expected no slots on backend failure, got %v", hours)
	}
}

func TestComputeAvailableSlots_BackendFailureNotCacheable(t *testing.T) {
	repo := &stubRepo{templateErr: errors.New("connection refused")}
	svc := newTestService(repo, nil)

	day := time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC)
	hours, ok := svc.computeAvailableSlots(context.Background(), 1, day, 0, 24)
	if ok {
		t.Fatalf("backend failure must not produce a cacheable snapshot")
	}
	if len(hours) != 0 {
		t.Fatalf("expected no slots, got %v", hours)
	}
}

func TestComputeAvailableSlots_MissingScheduleCacheable(t *testing.T) {
	repo := &stubRepo{templateErr: repository.ErrScheduleNotFound}
	svc := newTestService(repo, nil)

	day := time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC)
	hours, ok := svc.computeAvailableSlots(context.Background(), 1, day, 0, 24)
	if !ok {
		t.Fatalf("missing schedule is an ordinary empty result, not a failure")
	}
	if len(hours) != 0 {
		t.Fatalf("expected no slots, got %v", hours)
	}
}

func TestAvailableSlots_MalformedDate(t *testing.T) {
	svc := newTestService(&stubRepo{}, nil)

	_, err := svc.AvailableSlots(context.Background(), 1, "03.09.2025", 0, 24)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func checkoutStubs() (*stubRepo, *stubGateway) {
	repo := &stubRepo{
		user: &model.User{
			ID:        2,
			Email:     "client@example.com",
			FirstName: "Budi",
			LastName:  "Santoso",
			Role:      model.RoleClient,
		},
		streamer: &model.Streamer{
			ID:         1,
			UserID:     9,
			FirstName:  "Sari",
			HourlyRate: 100_000,
		},
		template: wednesdayTemplate(),
		voucher:  activeVoucher(),
	}
	gw := &stubGateway{token: "snap-token"}
	return repo, gw
}

func TestCreateCheckout_ServerSidePrice(t *testing.T) {
	repo, gw := checkoutStubs()
	svc := newTestService(repo, gw)

	res, err := svc.CreateCheckout(context.Background(), CheckoutRequest{
		UserID:      2,
		StreamerID:  1,
		Date:        testDate,
		Hours:       []string{"10:00", "11:00"},
		Platform:    "shopee",
		VoucherCode: "SAVE10",
	})
	if err != nil {
		t.Fatalf("CreateCheckout error: %v", err)
	}

	if res.Token != "snap-token" {
		t.Fatalf("token = %q", res.Token)
	}
	if res.Quote.Total != 288_600 {
		t.Fatalf("total = %d, want 288600", res.Quote.Total)
	}
	if res.Quote.FinalPrice != 238_600 {
		t.Fatalf("final price = %d, want 238600", res.Quote.FinalPrice)
	}
	if gw.req.GrossAmount != 238_600 {
		t.Fatalf("charged amount = %d, want server-derived 238600", gw.req.GrossAmount)
	}
	if res.Metadata.Voucher == nil || res.Metadata.Voucher.Code != "SAVE10" {
		t.Fatalf("voucher snapshot missing: %+v", res.Metadata.Voucher)
	}
	if got := res.Metadata.EndTime.Sub(res.Metadata.StartTime); got != 2*time.Hour {
		t.Fatalf("booking range = %v, want 2h", got)
	}
}

func TestCreateCheckout_UnavailableHours(t *testing.T) {
	repo, gw := checkoutStubs()
	repo.blocking = []model.Booking{
		{
			StartTime: time.Date(2025, 9, 3, 10, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2025, 9, 3, 14, 0, 0, 0, time.UTC),
			Status:    model.BookingStatusAccepted,
		},
	}
	svc := newTestService(repo, gw)

	_, err := svc.CreateCheckout(context.Background(), CheckoutRequest{
		UserID:     2,
		StreamerID: 1,
		Date:       testDate,
		Hours:      []string{"10:00", "11:00"},
		Platform:   "shopee",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if gw.calls != 0 {
		t.Fatalf("gateway must not be called for unavailable hours")
	}
}

func TestCreateCheckout_GatewayFailure(t *testing.T) {
	repo, gw := checkoutStubs()
	gw.err = errors.New("timeout")
	gw.token = ""
	svc := newTestService(repo, gw)

	_, err := svc.CreateCheckout(context.Background(), CheckoutRequest{
		UserID:     2,
		StreamerID: 1,
		Date:       testDate,
		Hours:      []string{"10:00"},
		Platform:   "tiktok",
	})
	if !errors.Is(err, ErrPaymentGateway) {
		t.Fatalf("expected ErrPaymentGateway, got %v", err)
	}
}

func confirmMeta(voucher *model.VoucherSnapshot) model.CheckoutMetadata {
	return model.CheckoutMetadata{
		StreamerID: 1,
		UserID:     2,
		StartTime:  time.Date(2025, 9, 3, 10, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2025, 9, 3, 12, 0, 0, 0, time.UTC),
		Platform:   model.PlatformShopee,
		FirstName:  "Budi",
		LastName:   "Santoso",
		Price:      288_600,
		Voucher:    voucher,
		FinalPrice: 238_600,
	}
}

const testOrderID = "BOOKING-8a3f2f0e-6f4c-4b4f-9f3a-2a1b45c6d7e8"

func TestConfirmPayment_Settlement(t *testing.T) {
	repo, _ := checkoutStubs()
	repo.commitID = 55
	svc := newTestService(repo, nil)

	meta := confirmMeta(&model.VoucherSnapshot{ID: 7, Code: "SAVE10", DiscountAmount: 50_000})

	bookingID, status, err := svc.ConfirmPayment(context.Background(), model.CallbackResult{
		OrderID:           testOrderID,
		TransactionID:     "TX123",
		TransactionStatus: "settlement",
		StatusCode:        "200",
	}, meta)
	if err != nil {
		t.Fatalf("ConfirmPayment error: %v", err)
	}

	if bookingID != 55 {
		t.Fatalf("booking id = %d, want 55", bookingID)
	}
	if status != model.PaymentStatusSuccess {
		t.Fatalf("status = %s, want success", status)
	}
	if repo.commitCalls != 1 {
		t.Fatalf("commit calls = %d, want 1", repo.commitCalls)
	}
	if repo.commitParams.TransactionID != "TX123" {
		t.Fatalf("transaction id = %q", repo.commitParams.TransactionID)
	}
	if repo.commitParams.Meta.FinalPrice != 238_600 {
		t.Fatalf("final price = %d, want server-derived 238600", repo.commitParams.Meta.FinalPrice)
	}
}

func TestConfirmPayment_TamperedPriceRederived(t *testing.T) {
	repo, _ := checkoutStubs()
	repo.commitID = 56
	svc := newTestService(repo, nil)

	meta := confirmMeta(nil)
	meta.Price = 1
	meta.FinalPrice = 1

	_, _, err := svc.ConfirmPayment(context.Background(), model.CallbackResult{
		OrderID:           testOrderID,
		TransactionID:     "TX124",
		TransactionStatus: "settlement",
	}, meta)
	if err != nil {
		t.Fatalf("ConfirmPayment error: %v", err)
	}

	if repo.commitParams.Meta.Price != 288_600 || repo.commitParams.Meta.FinalPrice != 288_600 {
		t.Fatalf("committed price = %d/%d, want server-derived 288600/288600",
			repo.commitParams.Meta.Price, repo.commitParams.Meta.FinalPrice)
	}
}

func TestConfirmPayment_NonSuccessStatusIsNoOp(t *testing.T) {
	repo, _ := checkoutStubs()
	svc := newTestService(repo, nil)

	_, status, err := svc.ConfirmPayment(context.Background(), model.CallbackResult{
		OrderID:           testOrderID,
		TransactionID:     "TX125",
		TransactionStatus: "deny",
	}, confirmMeta(nil))
	if err != nil {
		t.Fatalf("ConfirmPayment error: %v", err)
	}

	if status != model.PaymentStatusFailure {
		t.Fatalf("status = %s, want failure", status)
	}
	if repo.commitCalls != 0 {
		t.Fatalf("commit must not run for non-success status")
	}
}

func TestConfirmPayment_DuplicateCallback(t *testing.T) {
	repo, _ := checkoutStubs()
	repo.commitErr = repository.ErrPaymentExists
	repo.txBookingID = 55
	svc := newTestService(repo, nil)

	bookingID, _, err := svc.ConfirmPayment(context.Background(), model.CallbackResult{
		OrderID:           testOrderID,
		TransactionID:     "TX123",
		TransactionStatus: "settlement",
	}, confirmMeta(nil))
	if err != nil {
		t.Fatalf("ConfirmPayment error: %v", err)
	}

	if bookingID != 55 {
		t.Fatalf("booking id = %d, want existing 55", bookingID)
	}
}

func TestConfirmPayment_SlotConflict(t *testing.T) {
	repo, _ := checkoutStubs()
	repo.commitErr = repository.ErrSlotConflict
	repo.txBookingErr = repository.ErrBookingNotFound
	svc := newTestService(repo, nil)

	_, _, err := svc.ConfirmPayment(context.Background(), model.CallbackResult{
		OrderID:           testOrderID,
		TransactionID:     "TX126",
		TransactionStatus: "settlement",
	}, confirmMeta(nil))
	if !errors.Is(err, repository.ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}
}

func TestConfirmPayment_ConflictFromDuplicateReturnsExisting(t *testing.T) {
	repo, _ := checkoutStubs()
	repo.commitErr = repository.ErrSlotConflict
	repo.txBookingID = 55
	svc := newTestService(repo, nil)

	bookingID, status, err := svc.ConfirmPayment(context.Background(), model.CallbackResult{
		OrderID:           testOrderID,
		TransactionID:     "TX123",
		TransactionStatus: "settlement",
	}, confirmMeta(nil))
	if err != nil {
		t.Fatalf("ConfirmPayment error: %v", err)
	}

	if bookingID != 55 {
		t.Fatalf("booking id = %d, want existing 55", bookingID)
	}
	if status != model.PaymentStatusSuccess {
		t.Fatalf("status = %s, want success", status)
	}
}

func TestConfirmPayment_SettlementFailuresLogged(t *testing.T) {
	tests := []struct {
		name string
		repo func() *stubRepo
	}{
		{
			name: "price derivation failure",
			repo: func() *stubRepo {
				repo, _ := checkoutStubs()
				repo.streamerErr = errors.New("connection refused")
				return repo
			},
		},
		{
			name: "commit failure",
			repo: func() *stubRepo {
				repo, _ := checkoutStubs()
				repo.commitErr = errors.New("connection refused")
				return repo
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.ErrorLevel)
			svc := NewService(tt.repo(), nil, nil, zap.New(core), time.UTC)

			_, _, err := svc.ConfirmPayment(context.Background(), model.CallbackResult{
				OrderID:           testOrderID,
				TransactionID:     "TX127",
				TransactionStatus: "settlement",
			}, confirmMeta(nil))
			if err == nil {
				t.Fatalf("expected error")
			}

			entries := logs.All()
			if len(entries) != 1 {
				t.Fatalf("log entries = %d, want 1", len(entries))
			}
			fields := entries[0].ContextMap()
			if fields["transactionID"] != "TX127" {
				t.Fatalf("transactionID field = %v", fields["transactionID"])
			}
			if fields["streamerID"] != int64(1) {
				t.Fatalf("streamerID field = %v", fields["streamerID"])
			}
		})
	}
}

func TestConfirmPayment_MalformedOrderID(t *testing.T) {
	svc := newTestService(&stubRepo{}, nil)

	_, _, err := svc.ConfirmPayment(context.Background(), model.CallbackResult{
		OrderID:           "ORDER-123",
		TransactionStatus: "settlement",
	}, confirmMeta(nil))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTransitionBooking_ForbiddenForStranger(t *testing.T) {
	repo := &stubRepo{
		booking: &model.Booking{
			ID:         10,
			StreamerID: 1,
			ClientID:   2,
			Status:     model.BookingStatusPending,
		},
		streamer: &model.Streamer{ID: 1, UserID: 9},
	}
	svc := newTestService(repo, nil)

	err := svc.TransitionBooking(context.Background(), 777, 10, model.BookingStatusAccepted)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestTransitionBooking_ClientMayCancel(t *testing.T) {
	repo := &stubRepo{
		booking: &model.Booking{
			ID:         10,
			StreamerID: 1,
			ClientID:   2,
			Status:     model.BookingStatusPending,
		},
		streamer: &model.Streamer{ID: 1, UserID: 9},
	}
	svc := newTestService(repo, nil)

	if err := svc.TransitionBooking(context.Background(), 2, 10, model.BookingStatusCancelled); err != nil {
		t.Fatalf("client cancel error: %v", err)
	}
}

func TestUpdateSchedule_RejectsOverlap(t *testing.T) {
	repo := &stubRepo{streamer: &model.Streamer{ID: 1, UserID: 9}}
	svc := newTestService(repo, nil)

	tpl := model.WeeklyTemplate{
		1: {
			{Start: "10:00", End: "14:00"},
			{Start: "12:00", End: "16:00"},
		},
	}

	err := svc.UpdateSchedule(context.Background(), 9, tpl)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
