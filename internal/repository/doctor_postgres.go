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

type DoctorRepo struct {
	db *pgxpool.Pool
}

func NewDoctorRepository(db *pgxpool.Pool) *DoctorRepo {
	return &DoctorRepo{
		db: db,
	}
}

const doctorColumns = `
	d.id, d.user_id, d.first_name, d.last_name, d.description, d.date_of_birth, d.sex,
	COALESCE(d.image_key, ''), d.created_at, d.updated_at,
	(SELECT AVG(r.rating)::float8 FROM doctor_ratings r WHERE r.doctor_id = d.id)
`

func scanDoctor(row pgx.Row) (*domain.Doctor, error) {
	var d domain.Doctor
	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.FirstName,
		&d.LastName,
		&d.Description,
		&d.DateOfBirth,
		&d.Sex,
		&d.ImageKey,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.AverageRating,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts the profile and its specializations in one transaction.
func (r *DoctorRepo) Create(ctx context.Context, userID int64, dto domain.CreateDoctorDTO) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO doctors (user_id, first_name, last_name, description, date_of_birth, sex, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id
	`

	var id int64
	err = tx.QueryRow(ctx, query,
		userID,
		dto.FirstName,
		dto.LastName,
		dto.Description,
		dto.DateOfBirth,
		dto.Sex,
		time.Now(),
	).Scan(&id)
	if err != nil {
		return 0, wrapError(err, "ошибка создания врача")
	}

	for _, specID := range dto.SpecializationIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO doctor_specializations (doctor_id, specialization_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			id, specID,
		)
		if err != nil {
			return 0, wrapError(err, "ошибка добавления специализации %d", specID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("ошибка при коммите транзакции: %w", err)
	}

	return id, nil
}

func (r *DoctorRepo) GetByID(ctx context.Context, id int64) (*domain.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors d WHERE d.id = $1`

	doctor, err := scanDoctor(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrapError(err, "врач с ID %d", id)
	}

	if err := r.loadSpecializations(ctx, []*domain.Doctor{doctor}); err != nil {
		return nil, err
	}

	return doctor, nil
}

func (r *DoctorRepo) GetByUserID(ctx context.Context, userID int64) (*domain.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors d WHERE d.user_id = $1`

	doctor, err := scanDoctor(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, wrapError(err, "врач пользователя %d", userID)
	}

	if err := r.loadSpecializations(ctx, []*domain.Doctor{doctor}); err != nil {
		return nil, err
	}

	return doctor, nil
}

func (r *DoctorRepo) List(ctx context.Context, filter domain.DoctorFilter) ([]domain.Doctor, error) {
	where, args := doctorWhere(filter)
	limit, offset := normalizePage(filter.Limit, filter.Offset)

	query := fmt.Sprintf(`SELECT %s FROM doctors d %s ORDER BY d.last_name, d.first_name, d.id LIMIT $%d OFFSET $%d`,
		doctorColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapError(err, "ошибка получения списка врачей")
	}
	defer rows.Close()

	doctors := []domain.Doctor{}
	for rows.Next() {
		doctor, err := scanDoctor(rows)
		if err != nil {
			return nil, wrapError(err, "ошибка сканирования врача")
		}
		doctors = append(doctors, *doctor)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapError(err, "ошибка при обработке результатов запроса")
	}

	ptrs := make([]*domain.Doctor, len(doctors))
	for i := range doctors {
		ptrs[i] = &doctors[i]
	}
	if err := r.loadSpecializations(ctx, ptrs); err != nil {
		return nil, err
	}

	return doctors, nil
}

func (r *DoctorRepo) CountByFilter(ctx context.Context, filter domain.DoctorFilter) (int, error) {
	where, args := doctorWhere(filter)

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM doctors d `+where, args...).Scan(&count); err != nil {
		return 0, wrapError(err, "ошибка подсчета врачей")
	}

	return count, nil
}

func (r *DoctorRepo) UpdateImage(ctx context.Context, id int64, imageKey string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE doctors SET image_key = NULLIF($1, ''), updated_at = $2 WHERE id = $3`,
		imageKey, time.Now(), id,
	)
	if err != nil {
		return wrapError(err, "ошибка обновления фото врача")
	}
	if tag.RowsAffected() == 0 {
		return wrapError(errNoRows, "врач с ID %d", id)
	}

	return nil
}

func (r *DoctorRepo) AddSpecialization(ctx context.Context, doctorID, specializationID int64) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO doctor_specializations (doctor_id, specialization_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		doctorID, specializationID,
	)
	if err != nil {
		return wrapError(err, "ошибка добавления специализации врачу")
	}
	return nil
}

func (r *DoctorRepo) RemoveSpecialization(ctx context.Context, doctorID, specializationID int64) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM doctor_specializations WHERE doctor_id = $1 AND specialization_id = $2`,
		doctorID, specializationID,
	)
	if err != nil {
		return wrapError(err, "ошибка удаления специализации врача")
	}
	if tag.RowsAffected() == 0 {
		return wrapError(errNoRows, "специализация %d у врача %d", specializationID, doctorID)
	}
	return nil
}

func (r *DoctorRepo) loadSpecializations(ctx context.Context, doctors []*domain.Doctor) error {
	if len(doctors) == 0 {
		return nil
	}

	ids := make([]int64, len(doctors))
	byID := make(map[int64]*domain.Doctor, len(doctors))
	for i, d := range doctors {
		ids[i] = d.ID
		d.Specializations = []domain.Specialization{}
		byID[d.ID] = d
	}

	query := `
		SELECT ds.doctor_id, s.id, s.name, s.created_at
		FROM doctor_specializations ds
		JOIN specializations s ON s.id = ds.specialization_id
		WHERE ds.doctor_id = ANY($1)
		ORDER BY s.name
	`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return wrapError(err, "ошибка получения специализаций врачей")
	}
	defer rows.Close()

	for rows.Next() {
		var doctorID int64
		var spec domain.Specialization
		if err := rows.Scan(&doctorID, &spec.ID, &spec.Name, &spec.CreatedAt); err != nil {
			return wrapError(err, "ошибка сканирования специализации")
		}
		if d, ok := byID[doctorID]; ok {
			d.Specializations = append(d.Specializations, spec)
		}
	}

	return rows.Err()
}

func doctorWhere(filter domain.DoctorFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.SpecializationID != nil {
		args = append(args, *filter.SpecializationID)
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM doctor_specializations ds WHERE ds.doctor_id = d.id AND ds.specialization_id = $%d)", len(args)))
	}
	if filter.Search != nil && *filter.Search != "" {
		args = append(args, "%"+*filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(d.first_name ILIKE $%d OR d.last_name ILIKE $%d)", len(args), len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
