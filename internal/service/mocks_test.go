package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"medcenter/internal/domain"
)

// -- In-memory store shared by the fake repositories --

type fakeStore struct {
	mu sync.Mutex

	nextID    int64
	doctors   map[int64]*domain.Doctor
	patients  map[int64]*domain.Patient
	visits    map[int64]*domain.Visit
	summaries map[int64]*domain.VisitSummary
	files     map[int64]*domain.UserFile
	owners    map[int64][]int64
	ratings   map[int64]*domain.DoctorRating

	scheduleInserts int
	failSummary     error
	failProfile     error
	loseCancelRace  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		doctors:   make(map[int64]*domain.Doctor),
		patients:  make(map[int64]*domain.Patient),
		visits:    make(map[int64]*domain.Visit),
		summaries: make(map[int64]*domain.VisitSummary),
		files:     make(map[int64]*domain.UserFile),
		owners:    make(map[int64][]int64),
		ratings:   make(map[int64]*domain.DoctorRating),
	}
}

func (s *fakeStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) addDoctor(userID int64, first, last string) *domain.Doctor {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := &domain.Doctor{ID: s.id(), UserID: userID, FirstName: first, LastName: last}
	s.doctors[d.ID] = d
	return d
}

func (s *fakeStore) addPatient(userID int64, first, last string) *domain.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &domain.Patient{ID: s.id(), UserID: userID, FirstName: first, LastName: last}
	s.patients[p.ID] = p
	return p
}

func (s *fakeStore) addVisit(doctor *domain.Doctor, patient *domain.Patient, date, start string, status domain.VisitStatus) *domain.Visit {
	slot, err := domain.NewVisitSlot(date, start, domain.DefaultVisitDuration)
	if err != nil {
		panic(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	v := &domain.Visit{
		ID:            s.id(),
		DoctorID:      doctor.ID,
		PatientID:     patient.ID,
		Schedule:      domain.VisitSchedule{ID: s.id(), VisitSlot: slot},
		VisitType:     "Wizyta kontrolna",
		Status:        status,
		DoctorUserID:  doctor.UserID,
		PatientUserID: patient.UserID,
	}
	s.visits[v.ID] = v
	return v
}

func (s *fakeStore) visit(id int64) domain.Visit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.visits[id]
}

func (s *fakeStore) visitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visits)
}

func notFound(what string, id int64) error {
	return fmt.Errorf("%s %d: %w", what, id, domain.ErrNotFound)
}

// -- Doctors --

type fakeDoctorRepo struct{ s *fakeStore }

func (r fakeDoctorRepo) Create(_ context.Context, userID int64, dto domain.CreateDoctorDTO) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failProfile != nil {
		return 0, r.s.failProfile
	}
	d := &domain.Doctor{ID: r.s.id(), UserID: userID, FirstName: dto.FirstName, LastName: dto.LastName}
	r.s.doctors[d.ID] = d
	return d.ID, nil
}

func (r fakeDoctorRepo) GetByID(_ context.Context, id int64) (*domain.Doctor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.doctors[id]
	if !ok {
		return nil, notFound("врач", id)
	}
	cp := *d
	return &cp, nil
}

func (r fakeDoctorRepo) GetByUserID(_ context.Context, userID int64) (*domain.Doctor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.doctors {
		if d.UserID == userID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, notFound("врач пользователя", userID)
}

func (r fakeDoctorRepo) List(_ context.Context, _ domain.DoctorFilter) ([]domain.Doctor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	doctors := []domain.Doctor{}
	for _, d := range r.s.doctors {
		doctors = append(doctors, *d)
	}
	return doctors, nil
}

func (r fakeDoctorRepo) CountByFilter(_ context.Context, _ domain.DoctorFilter) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.doctors), nil
}

func (r fakeDoctorRepo) UpdateImage(_ context.Context, id int64, key string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.doctors[id]
	if !ok {
		return notFound("врач", id)
	}
	d.ImageKey = key
	return nil
}

func (r fakeDoctorRepo) AddSpecialization(_ context.Context, _, _ int64) error    { return nil }
func (r fakeDoctorRepo) RemoveSpecialization(_ context.Context, _, _ int64) error { return nil }

// -- Patients --

type fakePatientRepo struct{ s *fakeStore }

func (r fakePatientRepo) Create(_ context.Context, userID int64, dto domain.CreatePatientDTO) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failProfile != nil {
		return 0, r.s.failProfile
	}
	p := &domain.Patient{ID: r.s.id(), UserID: userID, FirstName: dto.FirstName, LastName: dto.LastName, PESEL: dto.PESEL}
	r.s.patients[p.ID] = p
	return p.ID, nil
}

func (r fakePatientRepo) GetByID(_ context.Context, id int64) (*domain.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.patients[id]
	if !ok {
		return nil, notFound("пациент", id)
	}
	cp := *p
	return &cp, nil
}

func (r fakePatientRepo) GetByUserID(_ context.Context, userID int64) (*domain.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.patients {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, notFound("пациент пользователя", userID)
}

func (r fakePatientRepo) Update(_ context.Context, id int64, dto domain.UpdatePatientDTO) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.patients[id]
	if !ok {
		return notFound("пациент", id)
	}
	if dto.FirstName != nil {
		p.FirstName = *dto.FirstName
	}
	if dto.LastName != nil {
		p.LastName = *dto.LastName
	}
	if dto.Phone != nil {
		p.Phone = *dto.Phone
	}
	return nil
}

func (r fakePatientRepo) List(_ context.Context, _ domain.PatientFilter) ([]domain.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	patients := []domain.Patient{}
	for _, p := range r.s.patients {
		patients = append(patients, *p)
	}
	return patients, nil
}

func (r fakePatientRepo) CountByFilter(_ context.Context, _ domain.PatientFilter) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.patients), nil
}

// -- Users --

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user domain.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return 0, fmt.Errorf("users_email_key: %w", domain.ErrConflict)
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	return user.ID, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, notFound("пользователь", id)
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("пользователь %s: %w", email, domain.ErrNotFound)
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return notFound("пользователь", id)
	}
	u.PasswordHash = hash
	r.users[id] = u
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, _, _ int) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := []domain.User{}
	for _, u := range r.users {
		users = append(users, u)
	}
	return users, nil
}

func (r *fakeUserRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), nil
}

// -- Visits --

type fakeVisitRepo struct{ s *fakeStore }

func (r fakeVisitRepo) Create(_ context.Context, req domain.BookingRequest) (*domain.BookingResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if req.MaxActiveVisits > 0 {
		active := 0
		for _, v := range r.s.visits {
			if v.PatientID == req.PatientID && v.Status == domain.VisitStatusPending {
				active++
			}
		}
		if active >= req.MaxActiveVisits {
			return nil, fmt.Errorf("пациент %d: %w", req.PatientID, domain.ErrVisitLimitExceeded)
		}
	}

	result := &domain.BookingResult{}
	if req.ConflictPolicy != domain.ConflictPolicyAllow {
		for _, v := range r.s.visits {
			if v.DoctorID == req.DoctorID && v.Status != domain.VisitStatusCancelled && v.Schedule.Overlaps(req.Slot) {
				result.Overlapping++
			}
		}
		if result.Overlapping > 0 && req.ConflictPolicy == domain.ConflictPolicyReject {
			return nil, domain.ErrSlotTaken
		}
	}

	doctor, ok := r.s.doctors[req.DoctorID]
	if !ok {
		return nil, notFound("врач", req.DoctorID)
	}
	patient, ok := r.s.patients[req.PatientID]
	if !ok {
		return nil, notFound("пациент", req.PatientID)
	}

	r.s.scheduleInserts++
	v := &domain.Visit{
		ID:            r.s.id(),
		DoctorID:      req.DoctorID,
		PatientID:     req.PatientID,
		Schedule:      domain.VisitSchedule{ID: r.s.id(), VisitSlot: req.Slot},
		VisitType:     req.VisitType,
		Status:        domain.VisitStatusPending,
		CreatedAt:     req.CreatedAt,
		UpdatedAt:     req.CreatedAt,
		DoctorName:    doctor.FullName(),
		PatientName:   patient.FullName(),
		DoctorUserID:  doctor.UserID,
		PatientUserID: patient.UserID,
	}
	r.s.visits[v.ID] = v

	cp := *v
	result.Visit = &cp
	return result, nil
}

func (r fakeVisitRepo) GetByID(_ context.Context, id int64) (*domain.Visit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.visits[id]
	if !ok {
		return nil, notFound("визит", id)
	}
	cp := *v
	_, cp.HasSummary = r.s.summaries[id]
	return &cp, nil
}

func (r fakeVisitRepo) List(_ context.Context, filter domain.VisitFilter) ([]domain.Visit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	visits := []domain.Visit{}
	for _, v := range r.s.visits {
		if filter.DoctorID != nil && v.DoctorID != *filter.DoctorID {
			continue
		}
		if filter.PatientID != nil && v.PatientID != *filter.PatientID {
			continue
		}
		if filter.Status != nil && v.Status != *filter.Status {
			continue
		}
		visits = append(visits, *v)
	}
	sort.Slice(visits, func(i, j int) bool { return visits[i].ID < visits[j].ID })
	return visits, nil
}

func (r fakeVisitRepo) CountByFilter(ctx context.Context, filter domain.VisitFilter) (int, error) {
	visits, err := r.List(ctx, filter)
	return len(visits), err
}

func (r fakeVisitRepo) CountActiveByPatient(_ context.Context, patientID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, v := range r.s.visits {
		if v.PatientID == patientID && v.Status == domain.VisitStatusPending {
			count++
		}
	}
	return count, nil
}

func (r fakeVisitRepo) HasFinishedVisit(_ context.Context, patientID, doctorID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.visits {
		if v.PatientID == patientID && v.DoctorID == doctorID && v.Status == domain.VisitStatusFinished {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeVisitRepo) Cancel(_ context.Context, id int64, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.loseCancelRace {
		return false, nil
	}
	v, ok := r.s.visits[id]
	if !ok || v.Status != domain.VisitStatusPending {
		return false, nil
	}
	start, err := v.Schedule.Start(now.Location())
	if err != nil || !start.After(now) {
		return false, nil
	}
	v.Status = domain.VisitStatusCancelled
	v.UpdatedAt = now
	return true, nil
}

// -- Summaries and files --

type fakeSummaryRepo struct{ s *fakeStore }

func (r fakeSummaryRepo) Create(_ context.Context, visitID int64, description string, files []domain.UserFile, owners []int64) (*domain.VisitSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.failSummary != nil {
		return nil, r.s.failSummary
	}

	v, ok := r.s.visits[visitID]
	if !ok {
		return nil, notFound("визит", visitID)
	}
	if _, exists := r.s.summaries[visitID]; exists || v.Status != domain.VisitStatusPending {
		return nil, domain.ErrAlreadyFinished
	}

	summary := &domain.VisitSummary{ID: r.s.id(), VisitID: visitID, Description: description}
	summary.Files = r.s.storeFiles(files, owners)
	r.s.summaries[visitID] = summary
	v.Status = domain.VisitStatusFinished

	cp := *summary
	return &cp, nil
}

func (r fakeSummaryRepo) Update(_ context.Context, visitID int64, description string, files []domain.UserFile, owners []int64) (*domain.VisitSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.failSummary != nil {
		return nil, r.s.failSummary
	}

	summary, ok := r.s.summaries[visitID]
	if !ok {
		return nil, notFound("заключение визита", visitID)
	}
	summary.Description = description
	summary.Files = append(summary.Files, r.s.storeFiles(files, owners)...)

	cp := *summary
	return &cp, nil
}

func (r fakeSummaryRepo) GetByVisitID(_ context.Context, visitID int64) (*domain.VisitSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	summary, ok := r.s.summaries[visitID]
	if !ok {
		return nil, notFound("заключение визита", visitID)
	}
	cp := *summary
	return &cp, nil
}

// storeFiles expects s.mu to be held.
func (s *fakeStore) storeFiles(files []domain.UserFile, owners []int64) []domain.UserFile {
	stored := make([]domain.UserFile, 0, len(files))
	for _, f := range files {
		f.ID = s.id()
		cp := f
		s.files[f.ID] = &cp
		s.owners[f.ID] = append([]int64(nil), owners...)
		stored = append(stored, f)
	}
	return stored
}

type fakeFileRepo struct{ s *fakeStore }

func (r fakeFileRepo) GetByID(_ context.Context, id int64) (*domain.UserFile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.files[id]
	if !ok {
		return nil, notFound("файл", id)
	}
	cp := *f
	return &cp, nil
}

func (r fakeFileRepo) IsOwner(_ context.Context, fileID, userID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, owner := range r.s.owners[fileID] {
		if owner == userID {
			return true, nil
		}
	}
	return false, nil
}

// -- Ratings --

type fakeRatingRepo struct{ s *fakeStore }

func (r fakeRatingRepo) Upsert(_ context.Context, doctorID, patientID int64, dto domain.RateDoctorDTO) (*domain.DoctorRating, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rating := range r.s.ratings {
		if rating.DoctorID == doctorID && rating.PatientID == patientID {
			rating.Rating = dto.Rating
			rating.Comment = dto.Comment
			cp := *rating
			return &cp, nil
		}
	}
	rating := &domain.DoctorRating{
		ID:            r.s.id(),
		DoctorID:      doctorID,
		PatientID:     patientID,
		Rating:        dto.Rating,
		Comment:       dto.Comment,
		PatientUserID: r.s.patients[patientID].UserID,
	}
	r.s.ratings[rating.ID] = rating
	cp := *rating
	return &cp, nil
}

func (r fakeRatingRepo) GetByID(_ context.Context, id int64) (*domain.DoctorRating, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rating, ok := r.s.ratings[id]
	if !ok {
		return nil, notFound("оценка", id)
	}
	cp := *rating
	return &cp, nil
}

func (r fakeRatingRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.ratings[id]; !ok {
		return notFound("оценка", id)
	}
	delete(r.s.ratings, id)
	return nil
}

func (r fakeRatingRepo) ListByDoctor(_ context.Context, doctorID int64, _, _ int) ([]domain.DoctorRating, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ratings := []domain.DoctorRating{}
	for _, rating := range r.s.ratings {
		if rating.DoctorID == doctorID {
			ratings = append(ratings, *rating)
		}
	}
	return ratings, nil
}

func (r fakeRatingRepo) StatsByDoctor(_ context.Context, doctorID int64) (*domain.DoctorRatingStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stats := &domain.DoctorRatingStats{DoctorID: doctorID}
	sum := 0
	for _, rating := range r.s.ratings {
		if rating.DoctorID == doctorID {
			sum += rating.Rating
			stats.Count++
		}
	}
	if stats.Count > 0 {
		stats.Average = float64(sum) / float64(stats.Count)
	}
	return stats, nil
}

// -- File storage --

type fakeStorage struct {
	mu         sync.Mutex
	objects    map[string][]byte
	failUpload bool
	deleted    []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) Upload(_ context.Context, prefix string, data []byte, filename string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpload {
		return "", fmt.Errorf("s3 недоступно")
	}
	key := fmt.Sprintf("%s/%d-%s", prefix, len(f.objects)+len(f.deleted)+1, filename)
	f.objects[key] = data
	return key, nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://files.example/" + key + "?signature=test", nil
}

func (f *fakeStorage) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// -- Sessions --

type fakeAuthRepo struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{sessions: make(map[string]domain.Session)}
}

func (r *fakeAuthRepo) CreateSession(_ context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	return nil
}

func (r *fakeAuthRepo) GetSessionByRefreshToken(_ context.Context, token string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.RefreshToken == token {
			return &s, nil
		}
	}
	return nil, fmt.Errorf("сессия: %w", domain.ErrNotFound)
}

func (r *fakeAuthRepo) DeleteSession(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *fakeAuthRepo) DeleteSessionsByUserID(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

// -- Notifier --

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.VisitEvent
}

func (n *recordingNotifier) Publish(event domain.VisitEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) last() (domain.VisitEvent, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		return domain.VisitEvent{}, false
	}
	return n.events[len(n.events)-1], true
}
