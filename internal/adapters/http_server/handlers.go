package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
)

type Handlers struct{ Svc *app.BookingService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Post("/v1/bookings", h.createBooking)
	s.mux.Get("/v1/bookings/{id}", h.getBooking)
	s.mux.Post("/v1/bookings/{id}/payment", h.confirmPayment)
	s.mux.Post("/v1/bookings/{id}/cancel", h.cancelBooking)
	s.mux.Post("/v1/bookings/{id}/checkin", h.checkIn)
	s.mux.Post("/v1/bookings/{id}/checkout", h.checkOut)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeDomainError maps the engine's error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrHotelNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "hotel not found")
	case errors.Is(err, domain.ErrBookingNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "booking not found")
	case errors.Is(err, domain.ErrRoomTypeUnavailable):
		writeProblem(w, http.StatusNotFound, "Not Found", "room type not offered by hotel")
	case errors.Is(err, domain.ErrNoAvailability):
		writeProblem(w, http.StatusConflict, "No Availability", "no rooms available for the requested dates")
	case errors.Is(err, domain.ErrInvalidTransition):
		writeProblem(w, http.StatusConflict, "Conflict", "booking is not in a state that allows this operation")
	case errors.Is(err, domain.ErrNotAuthorized):
		writeProblem(w, http.StatusForbidden, "Forbidden", "actor not permitted")
	case errors.Is(err, domain.ErrInvalidSignature):
		writeProblem(w, http.StatusUnauthorized, "Invalid Signature", "payment confirmation rejected")
	case errors.Is(err, domain.ErrValidation):
		writeProblem(w, http.StatusBadRequest, "Invalid Request", err.Error())
	default:
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// actor pulls the authenticated caller from headers set by the
// identity layer in front of this service.
func actor(r *http.Request) (app.Actor, bool) {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		return app.Actor{}, false
	}
	role := r.Header.Get("X-User-Role")
	if role == "" {
		role = "guest"
	}
	return app.Actor{ID: id, Role: role}, true
}

const dateLayout = "2006-01-02"

type createBookingRequest struct {
	HotelID    int64  `json:"hotel_id"`
	RoomType   string `json:"room_type"`
	CheckIn    string `json:"check_in"`  // YYYY-MM-DD
	CheckOut   string `json:"check_out"` // YYYY-MM-DD
	Guests     int    `json:"guests"`
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	GuestPhone string `json:"guest_phone"`
	Method     string `json:"payment_method"`
}

type createBookingResponse struct {
	BookingID        string `json:"booking_id"`
	TotalAmount      int64  `json:"total_amount"`
	PaymentIntentRef string `json:"payment_intent_ref"`
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeProblem(w, http.StatusForbidden, "Forbidden", "missing X-User-ID")
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	checkIn, err := time.ParseInLocation(dateLayout, req.CheckIn, time.UTC)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "check_in must be YYYY-MM-DD")
		return
	}
	checkOut, err := time.ParseInLocation(dateLayout, req.CheckOut, time.UTC)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "check_out must be YYYY-MM-DD")
		return
	}

	res, err := h.Svc.CreateBooking(r.Context(), app.CreateBookingRequest{
		UserID:    act.ID,
		HotelID:   req.HotelID,
		RoomClass: domain.RoomClass(req.RoomType),
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Guests:    req.Guests,
		Details: domain.GuestDetails{
			Name:  req.GuestName,
			Email: req.GuestEmail,
			Phone: req.GuestPhone,
		},
		Method: req.Method,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createBookingResponse{
		BookingID:        res.BookingID,
		TotalAmount:      res.TotalAmount,
		PaymentIntentRef: res.PaymentIntentRef,
	})
}

type confirmPaymentRequest struct {
	TransactionID string `json:"transaction_id"`
	Signature     string `json:"signature"`
}

func (h *Handlers) confirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if req.TransactionID == "" || req.Signature == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "transaction_id and signature required")
		return
	}

	b, err := h.Svc.ConfirmPayment(r.Context(), chi.URLParam(r, "id"), req.TransactionID, req.Signature)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(b.Status)})
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (h *Handlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeProblem(w, http.StatusForbidden, "Forbidden", "missing X-User-ID")
		return
	}
	var req cancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}

	refund, err := h.Svc.CancelBooking(r.Context(), chi.URLParam(r, "id"), act.ID, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"refund_amount": refund})
}

type bookingResponse struct {
	ID           string                `json:"id"`
	UserID       string                `json:"user_id"`
	HotelID      int64                 `json:"hotel_id"`
	RoomType     string                `json:"room_type"`
	CheckIn      string                `json:"check_in"`
	CheckOut     string                `json:"check_out"`
	Guests       int                   `json:"guests"`
	Nights       int64                 `json:"nights"`
	Status       string                `json:"status"`
	Total        int64                 `json:"total"`
	RefundAmount *int64                `json:"refund_amount,omitempty"`
	PaidAt       *time.Time            `json:"paid_at,omitempty"`
	Pricing      domain.Pricing        `json:"pricing"`
	Details      domain.GuestDetails   `json:"guest_details"`
	Notified     []domain.Notification `json:"notifications,omitempty"`
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeProblem(w, http.StatusForbidden, "Forbidden", "missing X-User-ID")
		return
	}

	b, err := h.Svc.GetBooking(r.Context(), chi.URLParam(r, "id"), act)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := bookingResponse{
		ID:       b.ID,
		UserID:   b.UserID,
		HotelID:  b.HotelID,
		RoomType: string(b.RoomClass),
		CheckIn:  b.CheckIn.Format(dateLayout),
		CheckOut: b.CheckOut.Format(dateLayout),
		Guests:   b.Guests,
		Nights:   b.Nights(),
		Status:   string(b.Status),
		Total:    b.Pricing.Total,
		PaidAt:   b.Payment.PaidAt,
		Pricing:  b.Pricing,
		Details:  b.Details,
		Notified: b.Notifications,
	}
	if b.Cancellation != nil {
		resp.RefundAmount = &b.Cancellation.RefundAmount
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) checkIn(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(r); !ok {
		writeProblem(w, http.StatusForbidden, "Forbidden", "missing X-User-ID")
		return
	}
	if err := h.Svc.CheckIn(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusCheckedIn)})
}

func (h *Handlers) checkOut(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(r); !ok {
		writeProblem(w, http.StatusForbidden, "Forbidden", "missing X-User-ID")
		return
	}
	if err := h.Svc.CheckOut(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusCheckedOut)})
}
