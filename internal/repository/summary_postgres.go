package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medcenter/internal/domain"
)

type SummaryRepo struct {
	db *pgxpool.Pool
}

func NewSummaryRepository(db *pgxpool.Pool) *SummaryRepo {
	return &SummaryRepo{
		db: db,
	}
}

func (r *SummaryRepo) Create(ctx context.Context, visitID int64, description string, files []domain.UserFile, owners []int64) (*domain.VisitSummary, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var status domain.VisitStatus
	err = tx.QueryRow(ctx, `SELECT status FROM visits WHERE id = $1 FOR UPDATE`, visitID).Scan(&status)
	if err != nil {
		return nil, wrapError(err, "визит с ID %d", visitID)
	}

	var hasSummary bool
	err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM visit_summaries WHERE visit_id = $1)`, visitID).Scan(&hasSummary)
	if err != nil {
		return nil, wrapError(err, "ошибка проверки заключения визита")
	}

	if hasSummary || !status.CanTransitionTo(domain.VisitStatusFinished) {
		return nil, fmt.Errorf("визит %d в статусе %s: %w", visitID, status, domain.ErrAlreadyFinished)
	}

	now := time.Now()
	summary := &domain.VisitSummary{
		VisitID:     visitID,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO visit_summaries (visit_id, description, created_at, updated_at) VALUES ($1, $2, $3, $3) RETURNING id`,
		visitID, description, now,
	).Scan(&summary.ID)
	if err != nil {
		return nil, wrapError(err, "ошибка создания заключения")
	}

	if summary.Files, err = insertSummaryFiles(ctx, tx, summary.ID, files, owners, now); err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE visits SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		domain.VisitStatusFinished, now, visitID, domain.VisitStatusPending,
	)
	if err != nil {
		return nil, wrapError(err, "ошибка завершения визита")
	}
	if tag.RowsAffected() != 1 {
		return nil, fmt.Errorf("визит %d: %w", visitID, domain.ErrAlreadyFinished)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка при коммите транзакции: %w", err)
	}

	return summary, nil
}

func (r *SummaryRepo) Update(ctx context.Context, visitID int64, description string, files []domain.UserFile, owners []int64) (*domain.VisitSummary, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()

	var summaryID int64
	err = tx.QueryRow(ctx,
		`UPDATE visit_summaries SET description = $1, updated_at = $2 WHERE visit_id = $3 RETURNING id`,
		description, now, visitID,
	).Scan(&summaryID)
	if err != nil {
		return nil, wrapError(err, "заключение визита %d", visitID)
	}

	if _, err := insertSummaryFiles(ctx, tx, summaryID, files, owners, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка при коммите транзакции: %w", err)
	}

	return r.GetByVisitID(ctx, visitID)
}

func (r *SummaryRepo) GetByVisitID(ctx context.Context, visitID int64) (*domain.VisitSummary, error) {
	var summary domain.VisitSummary
	err := r.db.QueryRow(ctx,
		`SELECT id, visit_id, description, created_at, updated_at FROM visit_summaries WHERE visit_id = $1`,
		visitID,
	).Scan(&summary.ID, &summary.VisitID, &summary.Description, &summary.CreatedAt, &summary.UpdatedAt)
	if err != nil {
		return nil, wrapError(err, "заключение визита %d", visitID)
	}

	query := `
		SELECT f.id, f.file_name, f.object_key, f.content_type, f.size, f.created_at
		FROM visit_summary_files sf
		JOIN user_files f ON f.id = sf.file_id
		WHERE sf.summary_id = $1
		ORDER BY f.id
	`

	rows, err := r.db.Query(ctx, query, summary.ID)
	if err != nil {
		return nil, wrapError(err, "ошибка получения файлов заключения")
	}
	defer rows.Close()

	summary.Files = []domain.UserFile{}
	for rows.Next() {
		var f domain.UserFile
		if err := rows.Scan(&f.ID, &f.FileName, &f.ObjectKey, &f.ContentType, &f.Size, &f.CreatedAt); err != nil {
			return nil, wrapError(err, "ошибка сканирования файла")
		}
		summary.Files = append(summary.Files, f)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapError(err, "ошибка при обработке результатов запроса")
	}

	return &summary, nil
}

func insertSummaryFiles(ctx context.Context, tx pgx.Tx, summaryID int64, files []domain.UserFile, owners []int64, now time.Time) ([]domain.UserFile, error) {
	stored := make([]domain.UserFile, 0, len(files))

	for _, file := range files {
		err := tx.QueryRow(ctx,
			`INSERT INTO user_files (file_name, object_key, content_type, size, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			file.FileName, file.ObjectKey, file.ContentType, file.Size, now,
		).Scan(&file.ID)
		if err != nil {
			return nil, wrapError(err, "ошибка сохранения файла %s", file.FileName)
		}
		file.CreatedAt = now

		for _, ownerID := range owners {
			_, err := tx.Exec(ctx,
				`INSERT INTO user_file_owners (file_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				file.ID, ownerID,
			)
			if err != nil {
				return nil, wrapError(err, "ошибка назначения владельца файла")
			}
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO visit_summary_files (summary_id, file_id) VALUES ($1, $2)`,
			summaryID, file.ID,
		); err != nil {
			return nil, wrapError(err, "ошибка привязки файла к заключению")
		}

		stored = append(stored, file)
	}

	return stored, nil
}
