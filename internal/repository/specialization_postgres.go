package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"medcenter/internal/domain"
)

type SpecializationRepo struct {
	db *pgxpool.Pool
}

func NewSpecializationRepository(db *pgxpool.Pool) *SpecializationRepo {
	return &SpecializationRepo{
		db: db,
	}
}

func (r *SpecializationRepo) Create(ctx context.Context, dto domain.CreateSpecializationDTO) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO specializations (name, created_at) VALUES ($1, $2) RETURNING id`,
		strings.TrimSpace(dto.Name), time.Now(),
	).Scan(&id)
	if err != nil {
		return 0, wrapError(err, "ошибка создания специализации")
	}

	return id, nil
}

func (r *SpecializationRepo) GetByID(ctx context.Context, id int64) (*domain.Specialization, error) {
	var spec domain.Specialization
	err := r.db.QueryRow(ctx,
		`SELECT id, name, created_at FROM specializations WHERE id = $1`, id,
	).Scan(&spec.ID, &spec.Name, &spec.CreatedAt)
	if err != nil {
		return nil, wrapError(err, "специализация с ID %d", id)
	}

	return &spec, nil
}

func (r *SpecializationRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM specializations WHERE id = $1`, id)
	if err != nil {
		return wrapError(err, "ошибка удаления специализации")
	}
	if tag.RowsAffected() == 0 {
		return wrapError(errNoRows, "специализация с ID %d", id)
	}

	return nil
}

func (r *SpecializationRepo) List(ctx context.Context) ([]domain.Specialization, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM specializations ORDER BY name`)
	if err != nil {
		return nil, wrapError(err, "ошибка получения списка специализаций")
	}
	defer rows.Close()

	specs := []domain.Specialization{}
	for rows.Next() {
		var spec domain.Specialization
		if err := rows.Scan(&spec.ID, &spec.Name, &spec.CreatedAt); err != nil {
			return nil, wrapError(err, "ошибка сканирования специализации")
		}
		specs = append(specs, spec)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapError(err, "ошибка при обработке результатов запроса")
	}

	return specs, nil
}
