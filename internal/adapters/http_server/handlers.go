// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	Store      domain.Store
	Bookings   *app.BookingService
	Engine     *app.ReservationEngine
	Calendar   *app.Calendar
	Policies   *app.PolicyService
	Reconciler *app.Reconciler
	Validate   *validator.Validate

	DefaultDaysAhead int
	WebhookKey       string
	WebhookLimiter   *rate.Limiter
}

type failure struct {
	Success     bool           `json:"success"`
	Code        domain.Code    `json:"code"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Status      int            `json:"status"`
	Detail      string         `json:"detail,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	Diagnostics map[string]any `json:"diagnostics,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Get("/v1/rooms/{id}/availability", h.getAvailability)
	s.mux.Post("/v1/rooms/{id}/calendar", h.ensureCalendar)

	s.mux.Post("/v1/bookings", h.createBooking)
	s.mux.Get("/v1/bookings/{id}", h.getBooking)
	s.mux.Post("/v1/bookings/{id}/confirm", h.confirmBooking)
	s.mux.Post("/v1/bookings/{id}/cancel", h.cancelBooking)

	s.mux.Get("/v1/policies/{id}", h.getPolicy)
	s.mux.Put("/v1/policies/{id}", h.putPolicy)

	s.mux.Group(func(r chi.Router) {
		r.Use(RequireAPIKey(h.WebhookKey))
		if h.WebhookLimiter != nil {
			r.Use(RateLimit(h.WebhookLimiter))
		}
		r.Post("/v1/payments/webhook", h.paymentWebhook)
	})
}

// ---- responses ----

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	code := domain.CodeInvalidRequest
	switch {
	case status == http.StatusNotFound:
		code = domain.CodeNotFound
	case status >= 500:
		code = domain.CodeInternal
	}
	writeJSONStatus(w, status, "application/problem+json", failure{
		Code: code, Type: "about:blank", Title: title, Status: status, Detail: detail,
	})
}

func statusFor(code domain.Code) int {
	switch code {
	case domain.CodeInvalidRequest:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeRoomNotAvailable, domain.CodeCancellationClosed,
		domain.CodePaymentAlreadyPaid, domain.CodeInvalidBookingState:
		return http.StatusConflict
	case domain.CodeVoucherExpired, domain.CodeVoucherLimitReached, domain.CodeVoucherMinSpend,
		domain.CodeVoucherNotFound, domain.CodePaymentAmountMismatch, domain.CodeNoMatchingBooking,
		domain.CodePaymentRefAmbiguous:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure maps a service error to its reason code and HTTP status.
// Anything that is not a *domain.Error is logged and reported as INTERNAL.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "internal error")
		return
	}
	status := statusFor(de.Code)
	body := failure{
		Code: de.Code, Type: "about:blank", Title: http.StatusText(status), Status: status,
		Detail: de.Msg, Details: de.Details,
	}
	writeJSONStatus(w, status, "application/problem+json", body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	writeJSONStatus(w, status, "application/json", v)
}

func writeJSONStatus(w http.ResponseWriter, status int, contentType string, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeCacheable(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

// ---- request decoding ----

// decodeBody decodes and validates a JSON body. An empty body is accepted
// when optional is set, leaving dst at its zero value.
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if !(optional && errors.Is(err, io.EOF)) {
			writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
			return false
		}
	}
	if err := h.Validate.Struct(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Validation failed", validationDetail(err))
		return false
	}
	return true
}

func validationDetail(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, fe.Namespace()+" failed "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}

func int64Param(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", name+" must be a positive number")
		return 0, false
	}
	return id, true
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(domain.DateLayout, s, time.UTC)
}

// ---- rooms ----

func (h *Handlers) getAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	q := r.URL.Query()
	checkIn, err := parseDate(q.Get("checkIn"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid checkIn", "checkIn must be YYYY-MM-DD")
		return
	}
	checkOut, err := parseDate(q.Get("checkOut"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid checkOut", "checkOut must be YYYY-MM-DD")
		return
	}
	out, err := h.Engine.AvailabilitySummary(r.Context(), id, checkIn, checkOut)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type calendarRequest struct {
	DaysAhead *int `json:"daysAhead" validate:"omitempty,gte=0,lte=1095"`
}

func (h *Handlers) ensureCalendar(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	var req calendarRequest
	if !h.decodeBody(w, r, &req, true) {
		return
	}
	days := h.DefaultDaysAhead
	if req.DaysAhead != nil {
		days = *req.DaysAhead
	}
	room, err := h.Store.GetRoom(r.Context(), id)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	n, err := h.Calendar.EnsureFutureCalendar(r.Context(), room, days)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "roomId": room.ID, "nights": n, "total": room.Quantity})
}

// ---- bookings ----

type guestRequest struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,max=64"`
}

type createBookingRequest struct {
	HotelID       int64        `json:"hotelId" validate:"gte=0"`
	RoomID        int64        `json:"roomId" validate:"required,gt=0"`
	UserID        int64        `json:"userId" validate:"required,gt=0"`
	CheckIn       string       `json:"checkIn" validate:"required,datetime=2006-01-02"`
	CheckOut      string       `json:"checkOut" validate:"required,datetime=2006-01-02"`
	Guest         guestRequest `json:"guest"`
	VoucherCode   string       `json:"voucherCode" validate:"omitempty,max=64"`
	PaymentMethod string       `json:"paymentMethod" validate:"omitempty,oneof=BANK_TRANSFER CARD PAY_AT_HOTEL"`
}

type createBookingResponse struct {
	Success     bool                  `json:"success"`
	BookingID   string                `json:"bookingId"`
	Status      domain.BookingStatus  `json:"status"`
	PaymentCode string                `json:"paymentCode"`
	Price       domain.PriceBreakdown `json:"priceBreakdown"`
	Booking     domain.Booking        `json:"booking"`
	Payment     domain.Payment        `json:"payment"`
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if !h.decodeBody(w, r, &req, false) {
		return
	}
	// both already passed the datetime validator
	checkIn, _ := parseDate(req.CheckIn)
	checkOut, _ := parseDate(req.CheckOut)

	res, err := h.Bookings.Create(r.Context(), app.CreateBookingInput{
		HotelID:       req.HotelID,
		RoomID:        req.RoomID,
		UserID:        req.UserID,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		Guest:         domain.GuestInfo{Name: req.Guest.Name, Email: req.Guest.Email, Phone: req.Guest.Phone},
		VoucherCode:   req.VoucherCode,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/bookings/"+res.Booking.ID)
	writeJSON(w, http.StatusCreated, createBookingResponse{
		Success:     true,
		BookingID:   res.Booking.ID,
		Status:      res.Booking.Status,
		PaymentCode: res.Booking.PaymentCode(),
		Price:       res.Price,
		Booking:     res.Booking,
		Payment:     res.Payment,
	})
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	out, err := h.Bookings.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeCacheable(w, r, out)
}

type confirmRequest struct {
	Method      string `json:"method" validate:"omitempty,oneof=BANK_TRANSFER CARD PAY_AT_HOTEL"`
	ProviderRef string `json:"providerRef" validate:"omitempty,max=255"`
}

func (h *Handlers) confirmBooking(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !h.decodeBody(w, r, &req, true) {
		return
	}
	out, err := h.Bookings.Confirm(r.Context(), app.ConfirmInput{
		BookingID:   chi.URLParam(r, "id"),
		Method:      domain.PaymentMethod(req.Method),
		ProviderRef: req.ProviderRef,
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *Handlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !h.decodeBody(w, r, &req, true) {
		return
	}
	out, err := h.Bookings.Cancel(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ---- payments ----

type webhookRequest struct {
	Amount        int64  `json:"amount" validate:"gte=0"`
	Description   string `json:"description" validate:"required,max=1000"`
	TransactionID string `json:"transactionId" validate:"required,max=255"`
	BankAccount   string `json:"bankAccount" validate:"omitempty,max=64"`
	Timestamp     string `json:"timestamp" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

func (h *Handlers) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if !h.decodeBody(w, r, &req, false) {
		return
	}
	ts := time.Now().UTC()
	if req.Timestamp != "" {
		ts, _ = time.Parse(time.RFC3339, req.Timestamp)
	}
	out, err := h.Reconciler.Reconcile(r.Context(), app.PaymentNotification{
		Amount:        req.Amount,
		Description:   req.Description,
		TransactionID: req.TransactionID,
		BankAccount:   req.BankAccount,
		Timestamp:     ts,
	})
	if err != nil {
		var de *domain.Error
		if !errors.As(err, &de) {
			writeFailure(w, r, err)
			return
		}
		status := statusFor(de.Code)
		writeJSONStatus(w, status, "application/problem+json", failure{
			Code: de.Code, Type: "about:blank", Title: http.StatusText(status), Status: status,
			Detail: de.Msg, Diagnostics: de.Details,
		})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ---- policies ----

func (h *Handlers) getPolicy(w http.ResponseWriter, r *http.Request) {
	p, err := h.Policies.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeCacheable(w, r, p)
}

func (h *Handlers) putPolicy(w http.ResponseWriter, r *http.Request) {
	var p domain.Policy
	if !h.decodeBody(w, r, &p, false) {
		return
	}
	p.ID = chi.URLParam(r, "id")
	out, err := h.Policies.Put(r.Context(), p)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
