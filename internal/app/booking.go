package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/domain"
)

const notifyTimeout = 5 * time.Second

type CreateBookingInput struct {
	HotelID       int64
	RoomID        int64
	UserID        int64
	CheckIn       time.Time
	CheckOut      time.Time
	Guest         domain.GuestInfo
	VoucherCode   string
	PaymentMethod domain.PaymentMethod
}

type CreateBookingResult struct {
	Booking domain.Booking        `json:"booking"`
	Payment domain.Payment        `json:"payment"`
	Price   domain.PriceBreakdown `json:"priceBreakdown"`
}

type ConfirmInput struct {
	BookingID   string
	Method      domain.PaymentMethod
	ProviderRef string
}

type ConfirmResult struct {
	Booking      domain.Booking `json:"booking"`
	Payment      domain.Payment `json:"payment"`
	PointsEarned int64          `json:"pointsEarned"`
}

type Refund struct {
	Amount  int64   `json:"amount"`
	Percent float64 `json:"percent"`
}

type CancelResult struct {
	Booking          domain.Booking `json:"booking"`
	Refund           Refund         `json:"refund"`
	Deadline         time.Time      `json:"deadline"`
	AlreadyCancelled bool           `json:"alreadyCancelled,omitempty"`
}

type BookingView struct {
	Booking domain.Booking `json:"booking"`
	Payment domain.Payment `json:"payment"`
}

// BookingService drives a booking through PENDING/PENDING_PAYMENT →
// CONFIRMED or CANCELLED. Every transition is one store transaction covering
// inventory, booking, payment and voucher rows.
type BookingService struct {
	store    domain.Store
	engine   *ReservationEngine
	calendar *Calendar
	policies *PolicyService
	notifier domain.Notifier
	now      func() time.Time
	newID    func() string
}

func NewBookingService(s domain.Store, e *ReservationEngine, c *Calendar, p *PolicyService, n domain.Notifier, opts ...Option) *BookingService {
	o := buildOptions(opts)
	return &BookingService{store: s, engine: e, calendar: c, policies: p, notifier: n, now: o.now, newID: o.newID}
}

func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (CreateBookingResult, error) {
	var out CreateBookingResult

	nights := domain.EnumerateNights(in.CheckIn, in.CheckOut)
	if len(nights) == 0 {
		return out, domain.ErrInvalidRequest.WithMsg("checkOut must be at least one night after checkIn")
	}
	method := in.PaymentMethod
	if method == "" {
		method = domain.MethodBankTransfer
	}
	room, err := s.store.GetRoom(ctx, in.RoomID)
	if err != nil {
		return out, err
	}
	if in.HotelID != 0 && room.HotelID != in.HotelID {
		return out, domain.ErrInvalidRequest.WithMsg("room does not belong to hotel").With("hotelId", in.HotelID)
	}
	policy, err := s.policies.Get(ctx, "")
	if err != nil {
		return out, err
	}

	now := s.now()
	status := domain.BookingPending
	if method.SettledExternally() {
		status = domain.BookingPendingPayment
	}

	err = s.store.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		if err := s.calendar.EnsureRows(ctx, tx, room, nights); err != nil {
			return err
		}
		if err := s.engine.ReserveOrFail(ctx, tx, room.ID, nights); err != nil {
			return err
		}

		var (
			discount  int64
			voucherID *int64
			code      string
		)
		if c := strings.TrimSpace(in.VoucherCode); c != "" {
			v, err := tx.GetVoucherByCodeForUpdate(ctx, c)
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrVoucherNotFound.With("code", c)
			}
			if err != nil {
				return err
			}
			discount, err = domain.EvaluateVoucher(v, domain.BaseAmount(room.PricePerNight, len(nights)), now)
			if err != nil {
				return err
			}
			ok, err := tx.IncrementVoucherUsage(ctx, v.ID)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrVoucherLimitReached.With("usageLimit", v.UsageLimit)
			}
			id := v.ID
			voucherID, code = &id, v.Code
		}

		price := domain.Quote(room.PricePerNight, len(nights), policy, discount, code)
		b := domain.Booking{
			ID:         s.newID(),
			HotelID:    room.HotelID,
			RoomID:     room.ID,
			UserID:     in.UserID,
			CheckIn:    domain.DateOnly(in.CheckIn),
			CheckOut:   domain.DateOnly(in.CheckOut),
			Status:     status,
			TotalPrice: price.Total,
			VoucherID:  voucherID,
			Guest:      in.Guest,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		p := domain.Payment{BookingID: b.ID, Status: domain.PaymentUnset, Amount: price.Total, Method: method}
		if err := tx.UpsertPayment(ctx, p); err != nil {
			return err
		}
		out = CreateBookingResult{Booking: b, Payment: p, Price: price}
		return nil
	})
	if err != nil {
		observability.ObserveBooking("create_failed", string(domain.CodeOf(err)))
		return CreateBookingResult{}, err
	}

	observability.ObserveBooking("created", "")
	log.Info().
		Str("booking", out.Booking.ID).
		Int64("room", room.ID).
		Int("nights", len(nights)).
		Int64("total", out.Price.Total).
		Str("status", string(out.Booking.Status)).
		Msg("booking created")
	return out, nil
}

// Confirm marks the payment PAID and the booking CONFIRMED, crediting loyalty
// points. A second confirmation of a paid booking is rejected.
func (s *BookingService) Confirm(ctx context.Context, in ConfirmInput) (ConfirmResult, error) {
	var out ConfirmResult
	now := s.now()

	err := s.store.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		b, err := tx.GetBookingForUpdate(ctx, in.BookingID)
		if err != nil {
			return err
		}
		if b.Status == domain.BookingCancelled {
			return domain.ErrInvalidBookingState.With("status", b.Status)
		}
		p, err := s.lockPayment(ctx, tx, b)
		if err != nil {
			return err
		}
		if p.Status == domain.PaymentPaid {
			return domain.ErrPaymentAlreadyPaid.With("bookingId", b.ID)
		}

		p.Status = domain.PaymentPaid
		p.Amount = b.TotalPrice
		if in.Method != "" {
			p.Method = in.Method
		}
		if in.ProviderRef != "" {
			ref := in.ProviderRef
			p.ProviderRef = &ref
		}
		p.PaidAt = &now
		if err := tx.UpsertPayment(ctx, p); err != nil {
			return err
		}
		if err := tx.UpdateBookingStatus(ctx, b.ID, domain.BookingConfirmed, nil); err != nil {
			return err
		}
		points := domain.LoyaltyPoints(b.TotalPrice)
		if points > 0 {
			if err := tx.AddLoyaltyPoints(ctx, b.UserID, points); err != nil {
				return err
			}
		}
		b.Status, b.UpdatedAt = domain.BookingConfirmed, now
		out = ConfirmResult{Booking: b, Payment: p, PointsEarned: points}
		return nil
	})
	if err != nil {
		observability.ObserveBooking("confirm_failed", string(domain.CodeOf(err)))
		return ConfirmResult{}, err
	}

	observability.ObserveBooking("confirmed", "")
	log.Info().Str("booking", out.Booking.ID).Int64("points", out.PointsEarned).Msg("booking confirmed")
	ev := s.event(domain.EventBookingConfirmed, out.Booking, now)
	ev.PointsEarned = out.PointsEarned
	s.emit(ctx, ev)
	return out, nil
}

// Cancel releases the stay and reverses payment and voucher state. A paid
// booking can no longer be cancelled once checkIn - cancellationDeadlineHours
// has passed.
func (s *BookingService) Cancel(ctx context.Context, bookingID, reason string) (CancelResult, error) {
	var out CancelResult
	policy, err := s.policies.Get(ctx, "")
	if err != nil {
		return out, err
	}
	now := s.now()

	err = s.store.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		b, err := tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		deadline := b.CheckIn.Add(-time.Duration(policy.CancellationDeadlineHours) * time.Hour)
		if b.Status == domain.BookingCancelled {
			out = CancelResult{Booking: b, Deadline: deadline, AlreadyCancelled: true}
			return nil
		}
		p, err := s.lockPayment(ctx, tx, b)
		if err != nil {
			return err
		}
		paid := p.Status == domain.PaymentPaid
		if paid && now.After(deadline) {
			return domain.ErrCancellationClosed.With("deadline", deadline)
		}

		if err := s.engine.Release(ctx, tx, b.RoomID, b.Nights()); err != nil {
			return err
		}
		p.Status = domain.PaymentCancelled
		if err := tx.UpsertPayment(ctx, p); err != nil {
			return err
		}
		if b.VoucherID != nil {
			if err := tx.DecrementVoucherUsage(ctx, *b.VoucherID); err != nil {
				return err
			}
		}
		var why *string
		if r := strings.TrimSpace(reason); r != "" {
			why = &r
		}
		if err := tx.UpdateBookingStatus(ctx, b.ID, domain.BookingCancelled, why); err != nil {
			return err
		}

		b.Status, b.CancelReason, b.UpdatedAt = domain.BookingCancelled, why, now
		out = CancelResult{Booking: b, Deadline: deadline}
		if paid {
			out.Refund = Refund{Amount: domain.RefundAmount(b.TotalPrice, policy.RefundPercent), Percent: policy.RefundPercent}
		}
		return nil
	})
	if err != nil {
		observability.ObserveBooking("cancel_failed", string(domain.CodeOf(err)))
		return CancelResult{}, err
	}
	if out.AlreadyCancelled {
		return out, nil
	}

	observability.ObserveBooking("cancelled", "")
	log.Info().Str("booking", out.Booking.ID).Int64("refund", out.Refund.Amount).Msg("booking cancelled")
	ev := s.event(domain.EventBookingCancelled, out.Booking, now)
	ev.RefundAmount = out.Refund.Amount
	s.emit(ctx, ev)
	return out, nil
}

func (s *BookingService) Get(ctx context.Context, bookingID string) (BookingView, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return BookingView{}, err
	}
	p, err := s.store.GetPayment(ctx, bookingID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return BookingView{}, err
	}
	if p.BookingID == "" {
		p = domain.Payment{BookingID: b.ID, Amount: b.TotalPrice}
	}
	return BookingView{Booking: b, Payment: p}, nil
}

// lockPayment loads the payment row for update, synthesising the unset row
// for bookings created before payments were recorded.
func (s *BookingService) lockPayment(ctx context.Context, tx domain.Tx, b domain.Booking) (domain.Payment, error) {
	p, err := tx.GetPaymentForUpdate(ctx, b.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Payment{BookingID: b.ID, Amount: b.TotalPrice}, nil
	}
	return p, err
}

func (s *BookingService) event(typ string, b domain.Booking, at time.Time) domain.BookingEvent {
	return domain.BookingEvent{
		Type:       typ,
		BookingID:  b.ID,
		HotelID:    b.HotelID,
		RoomID:     b.RoomID,
		UserID:     b.UserID,
		GuestEmail: b.Guest.Email,
		CheckIn:    b.CheckIn.Format(domain.DateLayout),
		CheckOut:   b.CheckOut.Format(domain.DateLayout),
		TotalPrice: b.TotalPrice,
		OccurredAt: at,
	}
}

// emit runs after commit; delivery failures are logged and never undo the
// transition.
func (s *BookingService) emit(ctx context.Context, ev domain.BookingEvent) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, ev); err != nil {
		log.Warn().Err(err).Str("err_type", observability.LabelErr(err)).Str("booking", ev.BookingID).Str("event", ev.Type).Msg("notify failed")
	}
}
