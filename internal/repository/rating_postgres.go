package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"medcenter/internal/domain"
)

type RatingRepo struct {
	db *pgxpool.Pool
}

func NewRatingRepository(db *pgxpool.Pool) *RatingRepo {
	return &RatingRepo{
		db: db,
	}
}

// Upsert keeps one rating per doctor and patient. A repeated rating
// replaces the score and comment of the existing row.
func (r *RatingRepo) Upsert(ctx context.Context, doctorID, patientID int64, dto domain.RateDoctorDTO) (*domain.DoctorRating, error) {
	query := `
		INSERT INTO doctor_ratings (doctor_id, patient_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (doctor_id, patient_id)
		DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, updated_at = EXCLUDED.updated_at
		RETURNING id, doctor_id, patient_id, rating, comment, created_at, updated_at
	`

	var rating domain.DoctorRating
	err := r.db.QueryRow(ctx, query, doctorID, patientID, dto.Rating, dto.Comment, time.Now()).Scan(
		&rating.ID,
		&rating.DoctorID,
		&rating.PatientID,
		&rating.Rating,
		&rating.Comment,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	)
	if err != nil {
		return nil, wrapError(err, "ошибка сохранения оценки")
	}

	return &rating, nil
}

func (r *RatingRepo) GetByID(ctx context.Context, id int64) (*domain.DoctorRating, error) {
	query := `
		SELECT r.id, r.doctor_id, r.patient_id, r.rating, r.comment, r.created_at, r.updated_at,
		       p.first_name || ' ' || p.last_name, p.user_id
		FROM doctor_ratings r
		JOIN patients p ON p.id = r.patient_id
		WHERE r.id = $1
	`

	var rating domain.DoctorRating
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rating.ID,
		&rating.DoctorID,
		&rating.PatientID,
		&rating.Rating,
		&rating.Comment,
		&rating.CreatedAt,
		&rating.UpdatedAt,
		&rating.PatientName,
		&rating.PatientUserID,
	)
	if err != nil {
		return nil, wrapError(err, "оценка с ID %d", id)
	}

	return &rating, nil
}

func (r *RatingRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM doctor_ratings WHERE id = $1`, id)
	if err != nil {
		return wrapError(err, "ошибка удаления оценки")
	}
	if tag.RowsAffected() == 0 {
		return wrapError(errNoRows, "оценка с ID %d", id)
	}

	return nil
}

func (r *RatingRepo) ListByDoctor(ctx context.Context, doctorID int64, limit, offset int) ([]domain.DoctorRating, error) {
	limit, offset = normalizePage(limit, offset)

	query := `
		SELECT r.id, r.doctor_id, r.patient_id, r.rating, r.comment, r.created_at, r.updated_at,
		       p.first_name || ' ' || p.last_name
		FROM doctor_ratings r
		JOIN patients p ON p.id = r.patient_id
		WHERE r.doctor_id = $1
		ORDER BY r.updated_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, doctorID, limit, offset)
	if err != nil {
		return nil, wrapError(err, "ошибка получения оценок врача")
	}
	defer rows.Close()

	ratings := []domain.DoctorRating{}
	for rows.Next() {
		var rating domain.DoctorRating
		if err := rows.Scan(
			&rating.ID,
			&rating.DoctorID,
			&rating.PatientID,
			&rating.Rating,
			&rating.Comment,
			&rating.CreatedAt,
			&rating.UpdatedAt,
			&rating.PatientName,
		); err != nil {
			return nil, wrapError(err, "ошибка сканирования оценки")
		}
		ratings = append(ratings, rating)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapError(err, "ошибка при обработке результатов запроса")
	}

	return ratings, nil
}

func (r *RatingRepo) StatsByDoctor(ctx context.Context, doctorID int64) (*domain.DoctorRatingStats, error) {
	stats := domain.DoctorRatingStats{DoctorID: doctorID}
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(AVG(rating), 0)::float8, COUNT(*) FROM doctor_ratings WHERE doctor_id = $1`,
		doctorID,
	).Scan(&stats.Average, &stats.Count)
	if err != nil {
		return nil, wrapError(err, "ошибка получения статистики оценок")
	}

	return &stats, nil
}
