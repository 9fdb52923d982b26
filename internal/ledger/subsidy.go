package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pradipta/schedule-engine/internal/domain"
	"github.com/pradipta/schedule-engine/pkg/datetime"
	apperrors "github.com/pradipta/schedule-engine/pkg/errors"
)

// SubsidyLedger tracks subsidy grant/revoke events for one loan. The active
// subsidy at a date reduces the interest-bearing balance only; the principal
// repayment ledger is untouched.
type SubsidyLedger struct {
	loanID string
	events []domain.SubsidyEvent
}

func NewSubsidyLedger(loanID string, events []domain.SubsidyEvent) *SubsidyLedger {
	l := &SubsidyLedger{loanID: loanID, events: make([]domain.SubsidyEvent, len(events))}
	copy(l.events, events)
	l.sortEvents()
	return l
}

// Grant records a subsidy of amount effective from date.
func (l *SubsidyLedger) Grant(date time.Time, amount decimal.Decimal) (*domain.SubsidyEvent, error) {
	if !amount.IsPositive() {
		return nil, apperrors.WrapInvalidTerms("subsidy amount must be greater than zero")
	}
	event := domain.SubsidyEvent{
		ID:            uuid.New(),
		LoanID:        l.loanID,
		EffectiveDate: datetime.Date(date),
		Amount:        amount,
		Direction:     domain.SubsidyGrant,
		CreatedAt:     time.Now(),
	}
	l.events = append(l.events, event)
	l.sortEvents()
	return &event, nil
}

// Revoke reverses the subsidy active at date. The revoke event carries the
// active amount so the running sum nets out from its effective date on.
func (l *SubsidyLedger) Revoke(date time.Time) (*domain.SubsidyEvent, error) {
	date = datetime.Date(date)
	active := l.EffectiveSubsidy(date)
	if !active.IsPositive() {
		return nil, apperrors.WrapNoActiveSubsidy(l.loanID)
	}
	event := domain.SubsidyEvent{
		ID:            uuid.New(),
		LoanID:        l.loanID,
		EffectiveDate: date,
		Amount:        active,
		Direction:     domain.SubsidyRevoke,
		CreatedAt:     time.Now(),
	}
	l.events = append(l.events, event)
	l.sortEvents()
	return &event, nil
}

// EffectiveSubsidy is the running sum of grants minus revokes effective
// on/before atDate, clamped at zero.
func (l *SubsidyLedger) EffectiveSubsidy(atDate time.Time) decimal.Decimal {
	atDate = datetime.Date(atDate)
	sum := decimal.Zero
	for _, e := range l.events {
		if e.EffectiveDate.After(atDate) {
			break
		}
		if e.Direction == domain.SubsidyGrant {
			sum = sum.Add(e.Amount)
		} else {
			sum = sum.Sub(e.Amount)
		}
	}
	if sum.IsNegative() {
		return decimal.Zero
	}
	return sum
}

// Events returns the ledger's rows ordered by effective date.
func (l *SubsidyLedger) Events() []domain.SubsidyEvent {
	out := make([]domain.SubsidyEvent, len(l.events))
	copy(out, l.events)
	return out
}

func (l *SubsidyLedger) sortEvents() {
	sort.SliceStable(l.events, func(i, j int) bool {
		return l.events[i].EffectiveDate.Before(l.events[j].EffectiveDate)
	})
}
