package app

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/domain"
)

// DefaultAmountTolerance absorbs bank rounding and fee noise.
const DefaultAmountTolerance int64 = 1000

// PaymentNotification is an inbound bank transfer notice.
type PaymentNotification struct {
	Amount        int64
	Description   string
	TransactionID string
	BankAccount   string
	Timestamp     time.Time
}

type ReconcileResult struct {
	Success          bool           `json:"success"`
	MatchedBookingID string         `json:"matchedBookingId,omitempty"`
	Duplicate        bool           `json:"duplicate,omitempty"`
	Confirmation     *ConfirmResult `json:"confirmation,omitempty"`
}

// Reference is the parsed booking code from a transfer note. A marked
// reference carries exactly one code; an unmarked one lists every standalone
// six-character token in order of appearance.
type Reference struct {
	Codes  []string
	Marked bool
}

var ErrNoReference = domain.ErrNoMatchingBooking.WithMsg("no payment reference found in description")

var bareCode = regexp.MustCompile(`(?i)\b([a-z0-9]{6})\b`)

type ReferenceParser struct{ marked *regexp.Regexp }

func NewReferenceParser(marker string) *ReferenceParser {
	p := &ReferenceParser{}
	if m := strings.TrimSpace(marker); m != "" {
		p.marked = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(m) + `[\s:#\-]*([a-z0-9]{6})\b`)
	}
	return p
}

func (p *ReferenceParser) Parse(description string) (Reference, error) {
	if p.marked != nil {
		if m := p.marked.FindStringSubmatch(description); m != nil {
			return Reference{Codes: []string{strings.ToUpper(m[1])}, Marked: true}, nil
		}
	}
	var ref Reference
	for _, m := range bareCode.FindAllStringSubmatch(description, -1) {
		ref.Codes = append(ref.Codes, strings.ToUpper(m[1]))
	}
	if len(ref.Codes) == 0 {
		return Reference{}, ErrNoReference
	}
	return ref, nil
}

// Reconciler correlates payment notifications with pending bookings by the
// last six characters of the booking id.
//
// Suffixes are not guaranteed unique; a collision is reported as
// PAYMENT_REFERENCE_AMBIGUOUS instead of picking one booking.
type Reconciler struct {
	store     domain.Store
	bookings  *BookingService
	parser    *ReferenceParser
	tolerance int64
}

func NewReconciler(s domain.Store, b *BookingService, marker string, tolerance int64) *Reconciler {
	if tolerance < 0 {
		tolerance = DefaultAmountTolerance
	}
	return &Reconciler{store: s, bookings: b, parser: NewReferenceParser(marker), tolerance: tolerance}
}

func (r *Reconciler) Reconcile(ctx context.Context, n PaymentNotification) (ReconcileResult, error) {
	res, err := r.reconcile(ctx, n)
	if err != nil {
		observability.ObserveWebhook(string(domain.CodeOf(err)))
		log.Warn().Err(err).Str("txn", n.TransactionID).Int64("amount", n.Amount).Msg("payment notification rejected")
		return res, err
	}
	outcome := "matched"
	if res.Duplicate {
		outcome = "duplicate"
	}
	observability.ObserveWebhook(outcome)
	return res, nil
}

func (r *Reconciler) reconcile(ctx context.Context, n PaymentNotification) (ReconcileResult, error) {
	pending, err := r.store.ListBookingsByStatus(ctx, domain.BookingPending, domain.BookingPendingPayment)
	if err != nil {
		return ReconcileResult{}, err
	}
	ref, err := r.parser.Parse(n.Description)
	if err != nil {
		return ReconcileResult{}, ErrNoReference.With("pendingCodes", pendingCodes(pending))
	}

	var matches []domain.Booking
	for _, code := range ref.Codes {
		for _, b := range pending {
			if b.PaymentCode() == code {
				matches = append(matches, b)
			}
		}
		if len(matches) > 0 {
			break
		}
	}

	switch {
	case len(matches) > 1:
		ids := make([]string, 0, len(matches))
		for _, b := range matches {
			ids = append(ids, b.ID)
		}
		return ReconcileResult{}, domain.ErrPaymentRefAmbiguous.With("code", matches[0].PaymentCode()).With("bookingIds", ids)
	case len(matches) == 0:
		if b, ok := r.alreadyConfirmed(ctx, ref); ok {
			return ReconcileResult{Success: true, MatchedBookingID: b.ID, Duplicate: true}, nil
		}
		return ReconcileResult{}, domain.ErrNoMatchingBooking.With("codes", ref.Codes).With("pendingCodes", pendingCodes(pending))
	}

	b := matches[0]
	if diff := n.Amount - b.TotalPrice; diff > r.tolerance || -diff > r.tolerance {
		return ReconcileResult{}, domain.ErrPaymentAmountMismatch.
			With("bookingId", b.ID).
			With("expected", b.TotalPrice).
			With("received", n.Amount).
			With("tolerance", r.tolerance)
	}

	conf, err := r.bookings.Confirm(ctx, ConfirmInput{
		BookingID:   b.ID,
		Method:      domain.MethodBankTransfer,
		ProviderRef: n.TransactionID,
	})
	if errors.Is(err, domain.ErrPaymentAlreadyPaid) {
		// a concurrent copy of this notification won the race
		return ReconcileResult{Success: true, MatchedBookingID: b.ID, Duplicate: true}, nil
	}
	if err != nil {
		return ReconcileResult{}, err
	}
	return ReconcileResult{Success: true, MatchedBookingID: b.ID, Confirmation: &conf}, nil
}

func pendingCodes(pending []domain.Booking) []string {
	codes := make([]string, 0, len(pending))
	for _, b := range pending {
		codes = append(codes, b.PaymentCode())
	}
	return codes
}

func (r *Reconciler) alreadyConfirmed(ctx context.Context, ref Reference) (domain.Booking, bool) {
	for _, code := range ref.Codes {
		found, err := r.store.FindBookingsByCode(ctx, code)
		if err != nil {
			log.Warn().Err(err).Str("code", code).Msg("lookup confirmed bookings failed")
			return domain.Booking{}, false
		}
		for _, b := range found {
			if b.Status == domain.BookingConfirmed {
				return b, true
			}
		}
	}
	return domain.Booking{}, false
}
