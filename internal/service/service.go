package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"medcenter/config"
	"medcenter/internal/domain"
	"medcenter/internal/repository"
	"medcenter/internal/storage"
)

// Notifier receives visit events after the change is committed. Delivery is
// best effort.
type Notifier interface {
	Publish(event domain.VisitEvent)
}

type noopNotifier struct{}

func (noopNotifier) Publish(domain.VisitEvent) {}

type Deps struct {
	Repos       *repository.Repositories
	Logger      *zap.Logger
	Config      *config.Config
	FileStorage storage.FileStorage
	Notifier    Notifier
}

type Services struct {
	User           UserService
	Auth           AuthService
	Patient        PatientService
	Doctor         DoctorService
	Specialization SpecializationService
	Visit          VisitService
	Summary        SummaryService
	Rating         RatingService
	File           FileService
}

func NewServices(deps Deps) *Services {
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}

	policy, err := domain.ParseConflictPolicy(deps.Config.Booking.ConflictPolicy)
	if err != nil {
		deps.Logger.Warn("неизвестная политика конфликтов, используется reject",
			zap.String("policy", deps.Config.Booking.ConflictPolicy))
		policy = domain.ConflictPolicyReject
	}

	booking := BookingSettings{
		MaxActiveVisits:  deps.Config.Booking.MaxActiveVisits,
		VisitDuration:    deps.Config.Booking.VisitDuration,
		ConflictPolicy:   policy,
		DefaultVisitType: deps.Config.Booking.DefaultVisitType,
		Location:         deps.Config.Booking.Location,
	}

	files := FileSettings{
		MaxFiles:      deps.Config.Files.MaxSummaryFiles,
		MaxFileSize:   int64(deps.Config.Files.MaxFileSizeMB) << 20,
		PresignExpiry: deps.Config.Files.PresignExpiry,
	}

	return &Services{
		User:           NewUserService(deps.Repos.User, deps.Logger),
		Auth:           NewAuthService(deps.Repos.Auth, deps.Repos.User, deps.Config.JWT, deps.Logger),
		Patient:        NewPatientService(deps.Repos.Patient, deps.Repos.User, deps.Logger),
		Doctor:         NewDoctorService(deps.Repos.Doctor, deps.Repos.User, deps.FileStorage, files, deps.Logger),
		Specialization: NewSpecializationService(deps.Repos.Specialization, deps.Repos.Doctor, deps.Logger),
		Visit:          NewVisitService(deps.Repos.Visit, deps.Repos.Doctor, deps.Repos.Patient, deps.Notifier, booking, deps.Logger),
		Summary:        NewSummaryService(deps.Repos.Summary, deps.Repos.Visit, deps.FileStorage, deps.Notifier, files, deps.Logger),
		Rating:         NewRatingService(deps.Repos.Rating, deps.Repos.Visit, deps.Repos.Patient, deps.Repos.Doctor, deps.Logger),
		File:           NewFileService(deps.Repos.File, deps.FileStorage, files, deps.Logger),
	}
}

// BookingSettings are the booking rules taken from configuration.
type BookingSettings struct {
	MaxActiveVisits  int
	VisitDuration    time.Duration
	ConflictPolicy   domain.ConflictPolicy
	DefaultVisitType string
	Location         *time.Location
}

type FileSettings struct {
	MaxFiles      int
	MaxFileSize   int64
	PresignExpiry time.Duration
}

type UserService interface {
	Create(ctx context.Context, dto domain.CreateUserDTO) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]domain.User, int, error)
	// EnsureAdmin creates the admin account if no user with that email exists.
	EnsureAdmin(ctx context.Context, email, password string) (bool, error)
}

type AuthService interface {
	Login(ctx context.Context, dto domain.LoginRequest, userAgent, ip string) (*domain.Tokens, error)
	RefreshTokens(ctx context.Context, refreshToken, userAgent, ip string) (*domain.Tokens, error)
	Logout(ctx context.Context, refreshToken string) error
	ParseToken(ctx context.Context, token string) (int64, domain.UserRole, error)
}

type PatientService interface {
	Create(ctx context.Context, actor domain.Actor, dto domain.CreatePatientDTO) (*domain.Patient, error)
	GetByID(ctx context.Context, actor domain.Actor, id int64) (*domain.Patient, error)
	GetByUserID(ctx context.Context, userID int64) (*domain.Patient, error)
	Update(ctx context.Context, actor domain.Actor, id int64, dto domain.UpdatePatientDTO) (*domain.Patient, error)
	List(ctx context.Context, filter domain.PatientFilter) ([]domain.Patient, int, error)
}

type DoctorService interface {
	Create(ctx context.Context, dto domain.CreateDoctorDTO) (*domain.Doctor, error)
	GetByID(ctx context.Context, id int64) (*domain.Doctor, error)
	List(ctx context.Context, filter domain.DoctorFilter) ([]domain.Doctor, int, error)
	UploadPhoto(ctx context.Context, id int64, data []byte, filename string) (*domain.Doctor, error)
	AddSpecialization(ctx context.Context, doctorID, specializationID int64) error
	RemoveSpecialization(ctx context.Context, doctorID, specializationID int64) error
}

type SpecializationService interface {
	Create(ctx context.Context, dto domain.CreateSpecializationDTO) (*domain.Specialization, error)
	GetByID(ctx context.Context, id int64) (*domain.Specialization, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.Specialization, error)
	ListDoctors(ctx context.Context, id int64, limit, offset int) ([]domain.Doctor, int, error)
}

type VisitService interface {
	// Create books a pending visit. Checks run in this order: active visit
	// limit, slot validity, doctor and patient existence, then the
	// transactional insert.
	Create(ctx context.Context, actor domain.Actor, dto domain.CreateVisitDTO) (*domain.Visit, error)
	GetByID(ctx context.Context, actor domain.Actor, id int64) (*domain.Visit, error)
	List(ctx context.Context, actor domain.Actor, filter domain.VisitFilter) ([]domain.Visit, int, error)
	Cancel(ctx context.Context, actor domain.Actor, id int64) (*domain.Visit, error)
	HasReachedActiveVisitsLimit(ctx context.Context, patientID int64) (bool, error)
	HasUserReachedActiveVisitsLimit(ctx context.Context, userID int64) (bool, error)
}

type SummaryService interface {
	Attach(ctx context.Context, actor domain.Actor, visitID int64, dto domain.SummaryDTO, files []domain.UploadedFile) (*domain.VisitSummary, error)
	Update(ctx context.Context, actor domain.Actor, visitID int64, dto domain.SummaryDTO, files []domain.UploadedFile) (*domain.VisitSummary, error)
	Get(ctx context.Context, actor domain.Actor, visitID int64) (*domain.VisitSummary, error)
}

type RatingService interface {
	Rate(ctx context.Context, actor domain.Actor, dto domain.RateDoctorDTO) (*domain.DoctorRating, error)
	CanRate(ctx context.Context, actor domain.Actor, doctorID int64) (bool, error)
	ListByDoctor(ctx context.Context, doctorID int64, limit, offset int) ([]domain.DoctorRating, *domain.DoctorRatingStats, error)
	Delete(ctx context.Context, actor domain.Actor, id int64) error
}

type FileService interface {
	GetDownloadURL(ctx context.Context, actor domain.Actor, fileID int64) (string, error)
}
