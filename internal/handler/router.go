package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/salda-id/booking-system/internal/middleware"
	"github.com/salda-id/booking-system/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса бронирований.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/user/register", h.Register)
		r.Post("/user/login", h.Login)

		r.Get("/streamers/{streamerID}/slots", h.GetSlots)

		// Колбэк вызывается платёжным шлюзом и не несёт пользовательской сессии.
		r.Post("/payments/callback", h.PaymentCallback)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/vouchers/validate", h.ValidateVoucher)
			r.Post("/payments/create", h.CreatePayment)

			r.Get("/bookings", h.GetClientBookings)
			r.Post("/bookings/{bookingID}/accept", h.TransitionBooking(model.BookingStatusAccepted))
			r.Post("/bookings/{bookingID}/reject", h.TransitionBooking(model.BookingStatusRejected))
			r.Post("/bookings/{bookingID}/cancel", h.TransitionBooking(model.BookingStatusCancelled))
			r.Post("/bookings/{bookingID}/live", h.TransitionBooking(model.BookingStatusLive))
			r.Post("/bookings/{bookingID}/complete", h.TransitionBooking(model.BookingStatusCompleted))

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.RequireRole(model.RoleStreamer))

				r.Post("/streamer/profile", h.CreateStreamerProfile)
				r.Put("/streamer/schedule", h.UpdateSchedule)
				r.Get("/streamer/bookings", h.GetStreamerBookings)
			})

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.RequireRole(model.RoleAdmin))

				r.Post("/admin/vouchers", h.CreateVoucher)
				r.Get("/admin/vouchers", h.ListVouchers)
				r.Get("/admin/vouchers/{voucherID}/redemptions", h.GetVoucherRedemptions)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
