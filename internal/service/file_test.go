package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"medcenter/internal/domain"
)

func TestFileGetDownloadURL(t *testing.T) {
	store := newFakeStore()
	store.mu.Lock()
	stored := store.storeFiles([]domain.UserFile{{FileName: "wyniki.pdf", ObjectKey: "summaries/1/abc.pdf"}}, []int64{100, 200})
	store.mu.Unlock()
	fileID := stored[0].ID

	svc := NewFileService(fakeFileRepo{store}, newFakeStorage(), FileSettings{PresignExpiry: time.Minute}, zap.NewNop())
	ctx := context.Background()

	for _, actor := range []domain.Actor{doctorActor, patientActor, adminActor} {
		url, err := svc.GetDownloadURL(ctx, actor, fileID)
		if err != nil {
			t.Fatalf("actor %+v: unexpected error %v", actor, err)
		}
		if !strings.Contains(url, "summaries/1/abc.pdf") {
			t.Errorf("unexpected url %q", url)
		}
	}

	stranger := domain.Actor{UserID: 300, Role: domain.UserRoleReceptionist}
	if _, err := svc.GetDownloadURL(ctx, stranger, fileID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	if _, err := svc.GetDownloadURL(ctx, patientActor, 9999); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	noStorage := NewFileService(fakeFileRepo{store}, nil, FileSettings{}, zap.NewNop())
	if _, err := noStorage.GetDownloadURL(ctx, patientActor, fileID); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("expected ErrStorageUnavailable, got %v", err)
	}
}
