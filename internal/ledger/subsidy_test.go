package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pradipta/schedule-engine/internal/domain"
	"github.com/pradipta/schedule-engine/pkg/datetime"
	apperrors "github.com/pradipta/schedule-engine/pkg/errors"
)

func TestSubsidyLedgerGrantAndEffectiveSubsidy(t *testing.T) {
	l := NewSubsidyLedger("LOAN-001", nil)
	grantDate := datetime.NewDate(2020, time.June, 1)

	event, err := l.Grant(grantDate, decimal.NewFromInt(5000))
	require.NoError(t, err)
	assert.Equal(t, domain.SubsidyGrant, event.Direction)

	// Inactive before its effective date; active from it on.
	assert.True(t, l.EffectiveSubsidy(grantDate.AddDate(0, 0, -1)).IsZero())
	assert.True(t, l.EffectiveSubsidy(grantDate).Equal(decimal.NewFromInt(5000)))
	assert.True(t, l.EffectiveSubsidy(grantDate.AddDate(1, 0, 0)).Equal(decimal.NewFromInt(5000)))

	// Grants stack.
	_, err = l.Grant(grantDate.AddDate(0, 2, 0), decimal.NewFromInt(2000))
	require.NoError(t, err)
	assert.True(t, l.EffectiveSubsidy(grantDate).Equal(decimal.NewFromInt(5000)))
	assert.True(t, l.EffectiveSubsidy(grantDate.AddDate(0, 2, 0)).Equal(decimal.NewFromInt(7000)))

	_, err = l.Grant(grantDate, decimal.Zero)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTerms)
}

func TestSubsidyLedgerRevoke(t *testing.T) {
	l := NewSubsidyLedger("LOAN-001", nil)
	grantDate := datetime.NewDate(2020, time.June, 1)
	revokeDate := datetime.NewDate(2020, time.September, 1)

	_, err := l.Revoke(revokeDate)
	assert.ErrorIs(t, err, apperrors.ErrNoActiveSubsidy)

	_, err = l.Grant(grantDate, decimal.NewFromInt(5000))
	require.NoError(t, err)
	event, err := l.Revoke(revokeDate)
	require.NoError(t, err)
	assert.Equal(t, domain.SubsidyRevoke, event.Direction)
	assert.True(t, event.Amount.Equal(decimal.NewFromInt(5000)))

	// History before the revoke is untouched; from the revoke date on the
	// running sum nets to zero.
	assert.True(t, l.EffectiveSubsidy(grantDate).Equal(decimal.NewFromInt(5000)))
	assert.True(t, l.EffectiveSubsidy(revokeDate).IsZero())
	assert.True(t, l.EffectiveSubsidy(revokeDate.AddDate(1, 0, 0)).IsZero())

	// A later grant reactivates the subsidy.
	regrant := datetime.NewDate(2020, time.November, 1)
	_, err = l.Grant(regrant, decimal.NewFromInt(3000))
	require.NoError(t, err)
	assert.True(t, l.EffectiveSubsidy(regrant).Equal(decimal.NewFromInt(3000)))
	assert.True(t, l.EffectiveSubsidy(revokeDate).IsZero())
}

func TestSubsidyLedgerEventsOrdered(t *testing.T) {
	l := NewSubsidyLedger("LOAN-001", nil)
	_, err := l.Grant(datetime.NewDate(2020, time.August, 1), decimal.NewFromInt(1000))
	require.NoError(t, err)
	_, err = l.Grant(datetime.NewDate(2020, time.June, 1), decimal.NewFromInt(2000))
	require.NoError(t, err)

	events := l.Events()
	require.Len(t, events, 2)
	assert.True(t, events[0].EffectiveDate.Before(events[1].EffectiveDate))
}
