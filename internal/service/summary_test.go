package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"medcenter/internal/domain"
)

type summaryFixture struct {
	store    *fakeStore
	storage  *fakeStorage
	notifier *recordingNotifier
	svc      *SummaryServiceImpl

	doctor  *domain.Doctor
	patient *domain.Patient
	visit   *domain.Visit
}

func newSummaryFixture(t *testing.T) *summaryFixture {
	t.Helper()

	store := newFakeStore()
	storage := newFakeStorage()
	notifier := &recordingNotifier{}

	f := &summaryFixture{
		store:    store,
		storage:  storage,
		notifier: notifier,
		svc: NewSummaryService(
			fakeSummaryRepo{store},
			fakeVisitRepo{store},
			storage,
			notifier,
			FileSettings{MaxFiles: 2, MaxFileSize: 1 << 20},
			zap.NewNop(),
		),
		doctor:  store.addDoctor(100, "Anna", "Nowak"),
		patient: store.addPatient(200, "Jan", "Kowalski"),
	}
	f.visit = store.addVisit(f.doctor, f.patient, "2025-12-01", "14:00", domain.VisitStatusPending)

	return f
}

var (
	doctorActor  = domain.Actor{UserID: 100, Role: domain.UserRoleDoctor}
	patientActor = domain.Actor{UserID: 200, Role: domain.UserRolePatient}
	adminActor   = domain.Actor{UserID: 1, Role: domain.UserRoleAdmin}
)

func pdf(name string) domain.UploadedFile {
	return domain.UploadedFile{FileName: name, Data: []byte("%PDF-1.4 wyniki badań")}
}

func TestSummaryAttach_FinishesVisit(t *testing.T) {
	f := newSummaryFixture(t)

	summary, err := f.svc.Attach(context.Background(), doctorActor, f.visit.ID,
		domain.SummaryDTO{Description: "Pacjent zdrowy, kontrola za rok."},
		[]domain.UploadedFile{pdf("wyniki.pdf")},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.store.visit(f.visit.ID).Status; got != domain.VisitStatusFinished {
		t.Errorf("expected finished, got %s", got)
	}
	if len(summary.Files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(summary.Files))
	}
	if !strings.HasPrefix(summary.Files[0].ObjectKey, "summaries/") {
		t.Errorf("unexpected object key %q", summary.Files[0].ObjectKey)
	}
	if summary.Files[0].ContentType != "application/pdf" {
		t.Errorf("expected application/pdf, got %q", summary.Files[0].ContentType)
	}

	owners := f.store.owners[summary.Files[0].ID]
	if len(owners) != 2 {
		t.Errorf("expected doctor and patient as owners, got %v", owners)
	}

	event, ok := f.notifier.last()
	if !ok || event.Type != domain.VisitEventFinished || event.Status != domain.VisitStatusFinished {
		t.Errorf("expected visit.finished event, got %+v", event)
	}
}

func TestSummaryAttach_OnlyOnce(t *testing.T) {
	f := newSummaryFixture(t)
	dto := domain.SummaryDTO{Description: "Zalecenia: odpoczynek."}

	if _, err := f.svc.Attach(context.Background(), doctorActor, f.visit.ID, dto, nil); err != nil {
		t.Fatalf("first attach: %v", err)
	}

	_, err := f.svc.Attach(context.Background(), doctorActor, f.visit.ID, dto, []domain.UploadedFile{pdf("a.pdf")})
	if !errors.Is(err, domain.ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished, got %v", err)
	}
	if f.storage.count() != 0 {
		t.Errorf("expected nothing uploaded for a rejected attach, got %d objects", f.storage.count())
	}
}

func TestSummaryAttach_OnlyWhilePending(t *testing.T) {
	f := newSummaryFixture(t)
	cancelled := f.store.addVisit(f.doctor, f.patient, "2025-12-02", "10:00", domain.VisitStatusCancelled)

	_, err := f.svc.Attach(context.Background(), doctorActor, cancelled.ID, domain.SummaryDTO{Description: "x"}, nil)
	if !errors.Is(err, domain.ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished, got %v", err)
	}

	if _, err := f.svc.Attach(context.Background(), doctorActor, 9999, domain.SummaryDTO{Description: "x"}, nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSummaryAttach_Authorization(t *testing.T) {
	f := newSummaryFixture(t)
	dto := domain.SummaryDTO{Description: "Opis"}

	for _, actor := range []domain.Actor{
		patientActor,
		{UserID: 101, Role: domain.UserRoleDoctor},
		{UserID: 2, Role: domain.UserRoleReceptionist},
	} {
		if _, err := f.svc.Attach(context.Background(), actor, f.visit.ID, dto, nil); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("actor %+v: expected ErrForbidden, got %v", actor, err)
		}
	}

	if _, err := f.svc.Attach(context.Background(), adminActor, f.visit.ID, dto, nil); err != nil {
		t.Errorf("admin attach: unexpected error %v", err)
	}
}

func TestSummaryAttach_Validation(t *testing.T) {
	f := newSummaryFixture(t)

	tests := []struct {
		name  string
		dto   domain.SummaryDTO
		files []domain.UploadedFile
	}{
		{"empty description", domain.SummaryDTO{Description: "   "}, nil},
		{"too long", domain.SummaryDTO{Description: strings.Repeat("a", domain.SummaryDescriptionMaxLen+1)}, nil},
		{"too many files", domain.SummaryDTO{Description: "ok"}, []domain.UploadedFile{pdf("1.pdf"), pdf("2.pdf"), pdf("3.pdf")}},
		{"empty file", domain.SummaryDTO{Description: "ok"}, []domain.UploadedFile{{FileName: "empty.pdf"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Attach(context.Background(), doctorActor, f.visit.ID, tt.dto, tt.files)
			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}

	if got := f.store.visit(f.visit.ID).Status; got != domain.VisitStatusPending {
		t.Errorf("expected visit to stay pending, got %s", got)
	}
	if f.storage.count() != 0 {
		t.Errorf("expected no uploads, got %d", f.storage.count())
	}
}

func TestSummaryAttach_RemovesUploadsWhenTransactionFails(t *testing.T) {
	f := newSummaryFixture(t)
	f.store.failSummary = errors.New("deadlock detected")

	_, err := f.svc.Attach(context.Background(), doctorActor, f.visit.ID,
		domain.SummaryDTO{Description: "Opis"},
		[]domain.UploadedFile{pdf("a.pdf"), pdf("b.pdf")},
	)
	if err == nil {
		t.Fatal("expected error")
	}

	if f.storage.count() != 0 {
		t.Errorf("expected uploads to be removed, %d left", f.storage.count())
	}
	if len(f.storage.deleted) != 2 {
		t.Errorf("expected 2 deletions, got %d", len(f.storage.deleted))
	}
	if got := f.store.visit(f.visit.ID).Status; got != domain.VisitStatusPending {
		t.Errorf("expected visit to stay pending, got %s", got)
	}
}

func TestSummaryAttach_StorageFailure(t *testing.T) {
	f := newSummaryFixture(t)
	f.storage.failUpload = true

	_, err := f.svc.Attach(context.Background(), doctorActor, f.visit.ID,
		domain.SummaryDTO{Description: "Opis"},
		[]domain.UploadedFile{pdf("a.pdf")},
	)
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if got := f.store.visit(f.visit.ID).Status; got != domain.VisitStatusPending {
		t.Errorf("expected visit to stay pending, got %s", got)
	}
}

func TestSummaryUpdate_AppendsFiles(t *testing.T) {
	f := newSummaryFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Attach(ctx, doctorActor, f.visit.ID, domain.SummaryDTO{Description: "Pierwsza wersja"}, []domain.UploadedFile{pdf("a.pdf")}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	updated, err := f.svc.Update(ctx, doctorActor, f.visit.ID, domain.SummaryDTO{Description: "Druga wersja"}, []domain.UploadedFile{pdf("b.pdf")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != "Druga wersja" {
		t.Errorf("expected replaced description, got %q", updated.Description)
	}
	if len(updated.Files) != 2 {
		t.Errorf("expected 2 files, got %d", len(updated.Files))
	}

	// Limit counts files already attached.
	_, err = f.svc.Update(ctx, doctorActor, f.visit.ID, domain.SummaryDTO{Description: "Trzecia"}, []domain.UploadedFile{pdf("c.pdf")})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSummaryUpdate_WithoutSummary(t *testing.T) {
	f := newSummaryFixture(t)

	_, err := f.svc.Update(context.Background(), doctorActor, f.visit.ID, domain.SummaryDTO{Description: "Opis"}, nil)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSummaryGet_Authorization(t *testing.T) {
	f := newSummaryFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Attach(ctx, doctorActor, f.visit.ID, domain.SummaryDTO{Description: "Opis"}, nil); err != nil {
		t.Fatalf("attach: %v", err)
	}

	for _, actor := range []domain.Actor{doctorActor, patientActor, adminActor} {
		if _, err := f.svc.Get(ctx, actor, f.visit.ID); err != nil {
			t.Errorf("actor %+v: unexpected error %v", actor, err)
		}
	}

	stranger := domain.Actor{UserID: 300, Role: domain.UserRolePatient}
	if _, err := f.svc.Get(ctx, stranger, f.visit.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}
