package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pradipta/schedule-engine/internal/domain"
)

type calendarRepository struct {
	db *sqlx.DB
}

func NewCalendarRepository(db *sqlx.DB) CalendarRepository {
	return &calendarRepository{db: db}
}

func (r *calendarRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.MeetingCalendar, error) {
	var head struct {
		ID                  uuid.UUID `db:"id"`
		SkipFirstDayOfMonth bool      `db:"skip_first_day_of_month"`
		WorkingDaysMask     int       `db:"working_days_mask"`
	}
	err := r.db.GetContext(ctx, &head,
		`SELECT id, skip_first_day_of_month, working_days_mask FROM meeting_calendars WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}

	var rules []domain.CalendarRule
	err = r.db.SelectContext(ctx, &rules, `
		SELECT frequency, interval, weekday, day_of_month, start_date, effective_from
		FROM calendar_rules
		WHERE calendar_id = $1
		ORDER BY effective_from
	`, id)
	if err != nil {
		return nil, err
	}

	cal := &domain.MeetingCalendar{
		ID:                  head.ID,
		Rules:               rules,
		SkipFirstDayOfMonth: head.SkipFirstDayOfMonth,
	}
	for i := 0; i < 7; i++ {
		cal.WorkingDays[i] = head.WorkingDaysMask&(1<<i) != 0
	}
	return cal, nil
}

func (r *calendarRepository) AppendRule(ctx context.Context, id uuid.UUID, rule domain.CalendarRule) error {
	query := `
		INSERT INTO calendar_rules (calendar_id, frequency, interval, weekday, day_of_month, start_date, effective_from)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		id, rule.Frequency, rule.Interval, rule.Weekday, rule.DayOfMonth, rule.StartDate, rule.EffectiveFrom,
	)
	return err
}
