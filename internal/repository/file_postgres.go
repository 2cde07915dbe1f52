package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"medcenter/internal/domain"
)

type FileRepo struct {
	db *pgxpool.Pool
}

func NewFileRepository(db *pgxpool.Pool) *FileRepo {
	return &FileRepo{
		db: db,
	}
}

func (r *FileRepo) GetByID(ctx context.Context, id int64) (*domain.UserFile, error) {
	var f domain.UserFile
	err := r.db.QueryRow(ctx,
		`SELECT id, file_name, object_key, content_type, size, created_at FROM user_files WHERE id = $1`, id,
	).Scan(&f.ID, &f.FileName, &f.ObjectKey, &f.ContentType, &f.Size, &f.CreatedAt)
	if err != nil {
		return nil, wrapError(err, "файл с ID %d", id)
	}

	return &f, nil
}

func (r *FileRepo) IsOwner(ctx context.Context, fileID, userID int64) (bool, error) {
	var owner bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_file_owners WHERE file_id = $1 AND user_id = $2)`,
		fileID, userID,
	).Scan(&owner)
	if err != nil {
		return false, wrapError(err, "ошибка проверки владельца файла")
	}

	return owner, nil
}
