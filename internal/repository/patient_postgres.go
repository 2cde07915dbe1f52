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

type PatientRepo struct {
	db *pgxpool.Pool
}

func NewPatientRepository(db *pgxpool.Pool) *PatientRepo {
	return &PatientRepo{
		db: db,
	}
}

const patientColumns = `
	id, user_id, first_name, last_name, phone, pesel, date_of_birth, sex,
	street, house_number, province, district, postal_code, city, created_at, updated_at
`

func scanPatient(row pgx.Row) (*domain.Patient, error) {
	var p domain.Patient
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.FirstName,
		&p.LastName,
		&p.Phone,
		&p.PESEL,
		&p.DateOfBirth,
		&p.Sex,
		&p.Address.Street,
		&p.Address.HouseNumber,
		&p.Address.Province,
		&p.Address.District,
		&p.Address.PostalCode,
		&p.Address.City,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PatientRepo) Create(ctx context.Context, userID int64, dto domain.CreatePatientDTO) (int64, error) {
	query := `
		INSERT INTO patients (user_id, first_name, last_name, phone, pesel, date_of_birth, sex,
			street, house_number, province, district, postal_code, city, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(ctx, query,
		userID,
		dto.FirstName,
		dto.LastName,
		dto.Phone,
		dto.PESEL,
		dto.DateOfBirth,
		dto.Sex,
		dto.Address.Street,
		dto.Address.HouseNumber,
		dto.Address.Province,
		dto.Address.District,
		dto.Address.PostalCode,
		dto.Address.City,
		time.Now(),
	).Scan(&id)
	if err != nil {
		return 0, wrapError(err, "ошибка создания пациента")
	}

	return id, nil
}

func (r *PatientRepo) GetByID(ctx context.Context, id int64) (*domain.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`

	patient, err := scanPatient(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrapError(err, "пациент с ID %d", id)
	}

	return patient, nil
}

func (r *PatientRepo) GetByUserID(ctx context.Context, userID int64) (*domain.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE user_id = $1`

	patient, err := scanPatient(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, wrapError(err, "пациент пользователя %d", userID)
	}

	return patient, nil
}

func (r *PatientRepo) Update(ctx context.Context, id int64, dto domain.UpdatePatientDTO) error {
	var updateFields []string
	var args []interface{}
	argID := 1

	set := func(column string, value interface{}) {
		updateFields = append(updateFields, fmt.Sprintf("%s = $%d", column, argID))
		args = append(args, value)
		argID++
	}

	if dto.FirstName != nil {
		set("first_name", *dto.FirstName)
	}
	if dto.LastName != nil {
		set("last_name", *dto.LastName)
	}
	if dto.Phone != nil {
		set("phone", *dto.Phone)
	}
	if dto.Address != nil {
		set("street", dto.Address.Street)
		set("house_number", dto.Address.HouseNumber)
		set("province", dto.Address.Province)
		set("district", dto.Address.District)
		set("postal_code", dto.Address.PostalCode)
		set("city", dto.Address.City)
	}

	if len(updateFields) == 0 {
		return nil
	}

	set("updated_at", time.Now())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE patients SET %s WHERE id = $%d", strings.Join(updateFields, ", "), argID)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return wrapError(err, "ошибка обновления пациента")
	}
	if tag.RowsAffected() == 0 {
		return wrapError(errNoRows, "пациент с ID %d", id)
	}

	return nil
}

func (r *PatientRepo) List(ctx context.Context, filter domain.PatientFilter) ([]domain.Patient, error) {
	where, args := patientWhere(filter)
	limit, offset := normalizePage(filter.Limit, filter.Offset)

	query := fmt.Sprintf(`SELECT %s FROM patients %s ORDER BY last_name, first_name, id LIMIT $%d OFFSET $%d`,
		patientColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapError(err, "ошибка получения списка пациентов")
	}
	defer rows.Close()

	var patients []domain.Patient
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			return nil, wrapError(err, "ошибка сканирования пациента")
		}
		patients = append(patients, *patient)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapError(err, "ошибка при обработке результатов запроса")
	}

	return patients, nil
}

func (r *PatientRepo) CountByFilter(ctx context.Context, filter domain.PatientFilter) (int, error) {
	where, args := patientWhere(filter)

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM patients `+where, args...).Scan(&count); err != nil {
		return 0, wrapError(err, "ошибка подсчета пациентов")
	}

	return count, nil
}

func patientWhere(filter domain.PatientFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Search != nil && *filter.Search != "" {
		args = append(args, "%"+*filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(first_name ILIKE $%d OR last_name ILIKE $%d)", len(args), len(args)))
	}
	if filter.PESEL != nil && *filter.PESEL != "" {
		args = append(args, *filter.PESEL)
		conditions = append(conditions, fmt.Sprintf("pesel = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
