package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"medcenter/internal/domain"
)

type Repositories struct {
	User           UserRepository
	Auth           AuthRepository
	Patient        PatientRepository
	Doctor         DoctorRepository
	Specialization SpecializationRepository
	Visit          VisitRepository
	Summary        SummaryRepository
	File           FileRepository
	Rating         RatingRepository
}

func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		User:           NewUserRepository(db),
		Auth:           NewAuthRepository(db),
		Patient:        NewPatientRepository(db),
		Doctor:         NewDoctorRepository(db),
		Specialization: NewSpecializationRepository(db),
		Visit:          NewVisitRepository(db),
		Summary:        NewSummaryRepository(db),
		File:           NewFileRepository(db),
		Rating:         NewRatingRepository(db),
	}
}

type UserRepository interface {
	Create(ctx context.Context, user domain.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
	Count(ctx context.Context) (int, error)
}

type AuthRepository interface {
	CreateSession(ctx context.Context, session domain.Session) error
	GetSessionByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteSessionsByUserID(ctx context.Context, userID int64) error
}

type PatientRepository interface {
	Create(ctx context.Context, userID int64, dto domain.CreatePatientDTO) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Patient, error)
	GetByUserID(ctx context.Context, userID int64) (*domain.Patient, error)
	Update(ctx context.Context, id int64, dto domain.UpdatePatientDTO) error
	List(ctx context.Context, filter domain.PatientFilter) ([]domain.Patient, error)
	CountByFilter(ctx context.Context, filter domain.PatientFilter) (int, error)
}

type DoctorRepository interface {
	Create(ctx context.Context, userID int64, dto domain.CreateDoctorDTO) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Doctor, error)
	GetByUserID(ctx context.Context, userID int64) (*domain.Doctor, error)
	List(ctx context.Context, filter domain.DoctorFilter) ([]domain.Doctor, error)
	CountByFilter(ctx context.Context, filter domain.DoctorFilter) (int, error)
	UpdateImage(ctx context.Context, id int64, imageKey string) error
	AddSpecialization(ctx context.Context, doctorID, specializationID int64) error
	RemoveSpecialization(ctx context.Context, doctorID, specializationID int64) error
}

type SpecializationRepository interface {
	Create(ctx context.Context, dto domain.CreateSpecializationDTO) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Specialization, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.Specialization, error)
}

type VisitRepository interface {
	// Create persists the slot and the visit in one transaction, re-checking
	// the patient's active visit limit and the doctor's conflicts under a
	// per-patient lock.
	Create(ctx context.Context, req domain.BookingRequest) (*domain.BookingResult, error)
	GetByID(ctx context.Context, id int64) (*domain.Visit, error)
	List(ctx context.Context, filter domain.VisitFilter) ([]domain.Visit, error)
	CountByFilter(ctx context.Context, filter domain.VisitFilter) (int, error)
	CountActiveByPatient(ctx context.Context, patientID int64) (int, error)
	HasFinishedVisit(ctx context.Context, patientID, doctorID int64) (bool, error)
	// Cancel moves a pending visit whose slot starts after now to cancelled.
	// It reports false when no row satisfied those conditions.
	Cancel(ctx context.Context, id int64, now time.Time) (bool, error)
}

type SummaryRepository interface {
	// Create stores the summary with its files and finishes the visit in one
	// transaction. It fails with domain.ErrAlreadyFinished when the visit is
	// no longer pending or already has a summary.
	Create(ctx context.Context, visitID int64, description string, files []domain.UserFile, owners []int64) (*domain.VisitSummary, error)
	Update(ctx context.Context, visitID int64, description string, files []domain.UserFile, owners []int64) (*domain.VisitSummary, error)
	GetByVisitID(ctx context.Context, visitID int64) (*domain.VisitSummary, error)
}

type FileRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.UserFile, error)
	IsOwner(ctx context.Context, fileID, userID int64) (bool, error)
}

type RatingRepository interface {
	Upsert(ctx context.Context, doctorID, patientID int64, dto domain.RateDoctorDTO) (*domain.DoctorRating, error)
	GetByID(ctx context.Context, id int64) (*domain.DoctorRating, error)
	Delete(ctx context.Context, id int64) error
	ListByDoctor(ctx context.Context, doctorID int64, limit, offset int) ([]domain.DoctorRating, error)
	StatsByDoctor(ctx context.Context, doctorID int64) (*domain.DoctorRatingStats, error)
}
