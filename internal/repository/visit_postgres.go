package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medcenter/internal/domain"
)

type VisitRepo struct {
	db *pgxpool.Pool
}

func NewVisitRepository(db *pgxpool.Pool) *VisitRepo {
	return &VisitRepo{
		db: db,
	}
}

const visitSelect = `
	SELECT v.id, v.doctor_id, v.patient_id,
	       s.id, to_char(s.date, 'YYYY-MM-DD'), to_char(s.time_start, 'HH24:MI'), to_char(s.time_end, 'HH24:MI'),
	       v.visit_type, v.status, v.created_at, v.updated_at,
	       EXISTS (SELECT 1 FROM visit_summaries vs WHERE vs.visit_id = v.id),
	       d.first_name || ' ' || d.last_name, p.first_name || ' ' || p.last_name,
	       d.user_id, p.user_id
	FROM visits v
	JOIN visit_schedules s ON s.id = v.visit_schedule_id
	JOIN doctors d ON d.id = v.doctor_id
	JOIN patients p ON p.id = v.patient_id
`

func scanVisit(row pgx.Row) (*domain.Visit, error) {
	var v domain.Visit
	err := row.Scan(
		&v.ID,
		&v.DoctorID,
		&v.PatientID,
		&v.Schedule.ID,
		&v.Schedule.Date,
		&v.Schedule.TimeStart,
		&v.Schedule.TimeEnd,
		&v.VisitType,
		&v.Status,
		&v.CreatedAt,
		&v.UpdatedAt,
		&v.HasSummary,
		&v.DoctorName,
		&v.PatientName,
		&v.DoctorUserID,
		&v.PatientUserID,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VisitRepo) Create(ctx context.Context, req domain.BookingRequest) (*domain.BookingResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serializes bookings of one patient so the limit check below cannot race.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended('visits:patient:' || $1::bigint::text, 0))`, req.PatientID); err != nil {
		return nil, fmt.Errorf("ошибка блокировки пациента: %w", err)
	}

	if req.MaxActiveVisits > 0 {
		var active int
		err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM visits WHERE patient_id = $1 AND status = $2`,
			req.PatientID, domain.VisitStatusPending,
		).Scan(&active)
		if err != nil {
			return nil, wrapError(err, "ошибка подсчета активных визитов")
		}
		if active >= req.MaxActiveVisits {
			return nil, fmt.Errorf("пациент %d: %w", req.PatientID, domain.ErrVisitLimitExceeded)
		}
	}

	result := &domain.BookingResult{}

	if req.ConflictPolicy != domain.ConflictPolicyAllow {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended('visits:doctor:' || $1::bigint::text, 0))`, req.DoctorID); err != nil {
			return nil, fmt.Errorf("ошибка блокировки врача: %w", err)
		}

		checkQuery := `
			SELECT COUNT(*)
			FROM visits v
			JOIN visit_schedules s ON s.id = v.visit_schedule_id
			WHERE v.doctor_id = $1
			AND v.status != 'cancelled'
			AND s.date = $2::date
			AND s.time_start < $4::time
			AND s.time_end > $3::time
		`
		err := tx.QueryRow(ctx, checkQuery,
			req.DoctorID, req.Slot.Date, req.Slot.TimeStart, req.Slot.TimeEnd,
		).Scan(&result.Overlapping)
		if err != nil {
			return nil, wrapError(err, "ошибка проверки доступности слота")
		}

		if result.Overlapping > 0 && req.ConflictPolicy == domain.ConflictPolicyReject {
			return nil, fmt.Errorf("врач %d, %s %s: %w", req.DoctorID, req.Slot.Date, req.Slot.TimeStart, domain.ErrSlotTaken)
		}
	}

	var scheduleID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO visit_schedules (date, time_start, time_end) VALUES ($1::date, $2::time, $3::time) RETURNING id`,
		req.Slot.Date, req.Slot.TimeStart, req.Slot.TimeEnd,
	).Scan(&scheduleID)
	if err != nil {
		return nil, wrapError(err, "ошибка создания расписания визита")
	}

	insertQuery := `
		INSERT INTO visits (doctor_id, patient_id, visit_schedule_id, visit_type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`

	var visitID int64
	err = tx.QueryRow(ctx, insertQuery,
		req.DoctorID,
		req.PatientID,
		scheduleID,
		req.VisitType,
		domain.VisitStatusPending,
		req.CreatedAt,
	).Scan(&visitID)
	if err != nil {
		return nil, wrapError(err, "ошибка создания визита")
	}

	result.Visit, err = scanVisit(tx.QueryRow(ctx, visitSelect+` WHERE v.id = $1`, visitID))
	if err != nil {
		return nil, wrapError(err, "ошибка чтения созданного визита")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка при коммите транзакции: %w", err)
	}

	return result, nil
}

func (r *VisitRepo) GetByID(ctx context.Context, id int64) (*domain.Visit, error) {
	visit, err := scanVisit(r.db.QueryRow(ctx, visitSelect+` WHERE v.id = $1`, id))
	if err != nil {
		return nil, wrapError(err, "визит с ID %d", id)
	}
	return visit, nil
}

func (r *VisitRepo) List(ctx context.Context, filter domain.VisitFilter) ([]domain.Visit, error) {
	where, args := visitWhere(filter)
	limit, offset := normalizePage(filter.Limit, filter.Offset)

	query := fmt.Sprintf(`%s %s ORDER BY s.date DESC, s.time_start DESC, v.id DESC LIMIT $%d OFFSET $%d`,
		visitSelect, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapError(err, "ошибка получения списка визитов")
	}
	defer rows.Close()

	visits := []domain.Visit{}
	for rows.Next() {
		visit, err := scanVisit(rows)
		if err != nil {
			return nil, wrapError(err, "ошибка сканирования визита")
		}
		visits = append(visits, *visit)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapError(err, "ошибка при обработке результатов запроса")
	}

	return visits, nil
}

func (r *VisitRepo) CountByFilter(ctx context.Context, filter domain.VisitFilter) (int, error) {
	where, args := visitWhere(filter)

	query := `
		SELECT COUNT(*)
		FROM visits v
		JOIN visit_schedules s ON s.id = v.visit_schedule_id
	` + where

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, wrapError(err, "ошибка подсчета визитов")
	}

	return count, nil
}

func (r *VisitRepo) CountActiveByPatient(ctx context.Context, patientID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM visits WHERE patient_id = $1 AND status = $2`,
		patientID, domain.VisitStatusPending,
	).Scan(&count)
	if err != nil {
		return 0, wrapError(err, "ошибка подсчета активных визитов")
	}

	return count, nil
}

func (r *VisitRepo) HasFinishedVisit(ctx context.Context, patientID, doctorID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM visits WHERE patient_id = $1 AND doctor_id = $2 AND status = $3)`,
		patientID, doctorID, domain.VisitStatusFinished,
	).Scan(&exists)
	if err != nil {
		return false, wrapError(err, "ошибка проверки завершенных визитов")
	}

	return exists, nil
}

// Cancel compares now with the slot's wall-clock time, so now must be
// expressed in the clinic's time zone.
func (r *VisitRepo) Cancel(ctx context.Context, id int64, now time.Time) (bool, error) {
	query := `
		UPDATE visits v
		SET status = $2, updated_at = $3
		FROM visit_schedules s
		WHERE v.id = $1
		AND s.id = v.visit_schedule_id
		AND v.status = $4
		AND (s.date + s.time_start) > $5::timestamp
	`

	tag, err := r.db.Exec(ctx, query, cancelVisitArgs(id, now)...)
	if err != nil {
		return false, wrapError(err, "ошибка отмены визита")
	}

	return tag.RowsAffected() == 1, nil
}

// cancelVisitArgs stamps updated_at with the same now used for the start check.
func cancelVisitArgs(id int64, now time.Time) []interface{} {
	return []interface{}{
		id,
		domain.VisitStatusCancelled,
		now,
		domain.VisitStatusPending,
		now.Format("2006-01-02 15:04:05"),
	}
}

func visitWhere(filter domain.VisitFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.DoctorID != nil {
		args = append(args, *filter.DoctorID)
		conditions = append(conditions, fmt.Sprintf("v.doctor_id = $%d", len(args)))
	}
	if filter.PatientID != nil {
		args = append(args, *filter.PatientID)
		conditions = append(conditions, fmt.Sprintf("v.patient_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("v.status = $%d", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		conditions = append(conditions, fmt.Sprintf("s.date >= $%d::date", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		conditions = append(conditions, fmt.Sprintf("s.date <= $%d::date", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
