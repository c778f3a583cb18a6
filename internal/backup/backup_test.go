package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/foodlottery/internal/database"
	"github.com/dukerupert/foodlottery/internal/model"
	"github.com/dukerupert/foodlottery/internal/store"
)

type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, _ := io.ReadAll(input.Body)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

var testS3 = S3Config{Bucket: "meals", AccessKey: "key", SecretKey: "secret", Region: "us-east-1", Prefix: "foodlottery"}

func setupManager(t *testing.T, cb StatusCallback) (*Manager, *mockS3Client, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := NewManager(Config{S3: testS3}, db, store.NewBackupStore(db), cb, slog.Default())
	mock := newMockS3()
	m.client = mock
	return m, mock, db
}

func TestManagerDisabledWithoutCredentials(t *testing.T) {
	m := NewManager(Config{}, nil, nil, nil, slog.Default())
	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q", m.Status().State, StateDisabled)
	}
	if _, err := m.RunNow(context.Background(), "pw"); !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}
	if err := m.Cleanup(context.Background(), 30); err != nil {
		t.Errorf("cleanup on disabled manager: %v", err)
	}

	// Start is a no-op and Stop must not block.
	m.Start(context.Background())
	m.Stop()
}

func TestRunNowUploadsEncryptedSnapshot(t *testing.T) {
	var states []State
	var mu sync.Mutex
	m, mock, db := setupManager(t, func(s Status) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})

	if _, err := db.Exec(`INSERT INTO foods (id, name, category, icon) VALUES (13, 'Hot Pot', 'staple', 'fa-cutlery')`); err != nil {
		t.Fatalf("insert food: %v", err)
	}

	id, err := m.RunNow(context.Background(), "s3cret")
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}

	record, err := m.store.GetByID(id)
	if err != nil || record == nil {
		t.Fatalf("get backup record: %v", err)
	}
	if record.Status != model.BackupStatusCompleted {
		t.Errorf("status = %q, want completed", record.Status)
	}
	if !strings.HasPrefix(record.S3Key, "foodlottery/backup-") {
		t.Errorf("key = %q", record.S3Key)
	}

	data, ok := mock.objects[record.S3Key]
	if !ok {
		t.Fatalf("object %s not uploaded", record.S3Key)
	}
	if int64(len(data)) != record.SizeBytes {
		t.Errorf("size = %d, recorded %d", len(data), record.SizeBytes)
	}
	if bytes.HasPrefix(data, []byte("SQLite format 3")) {
		t.Error("uploaded object is not encrypted")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 2 || states[0] != StateRunning || states[1] != StateIdle {
		t.Errorf("states = %v, want [running idle]", states)
	}
	if m.Status().LastBackup == nil {
		t.Error("expected last backup time")
	}
}

func TestFetchRestoresDatabase(t *testing.T) {
	m, _, _ := setupManager(t, nil)
	ctx := context.Background()

	id, err := m.RunNow(ctx, "s3cret")
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "restored.db")
	if err := m.Fetch(ctx, id, "s3cret", dst); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	restored, err := sql.Open("sqlite", dst)
	if err != nil {
		t.Fatalf("open restored: %v", err)
	}
	defer restored.Close()
	var n int
	if err := restored.QueryRow(`SELECT COUNT(*) FROM foods`).Scan(&n); err != nil {
		t.Fatalf("count foods: %v", err)
	}
	if n != 12 {
		t.Errorf("restored foods = %d, want 12", n)
	}

	if err := m.Fetch(ctx, id, "wrong", filepath.Join(t.TempDir(), "x.db")); err == nil {
		t.Error("expected error with wrong passphrase")
	}
	if err := m.Fetch(ctx, 999, "s3cret", dst); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRunNowUploadFailure(t *testing.T) {
	m, mock, _ := setupManager(t, nil)
	mock.putErr = errors.New("bucket gone")

	if _, err := m.RunNow(context.Background(), "pw"); err == nil {
		t.Fatal("expected upload error")
	}
	if m.Status().State != StateError {
		t.Errorf("state = %q, want %q", m.Status().State, StateError)
	}

	list, _ := m.store.List(10)
	if len(list) != 1 || list[0].Status != model.BackupStatusFailed {
		t.Fatalf("records = %+v, want one failed", list)
	}
	if list[0].ErrorMessage != "bucket gone" {
		t.Errorf("error message = %q", list[0].ErrorMessage)
	}

	// A failed run does not leave the manager stuck in progress.
	mock.putErr = nil
	if _, err := m.RunNow(context.Background(), "pw"); err != nil {
		t.Errorf("retry: %v", err)
	}
}

func TestCleanupRemovesOldObjects(t *testing.T) {
	m, mock, _ := setupManager(t, nil)
	ctx := context.Background()

	if _, err := m.RunNow(ctx, "pw"); err != nil {
		t.Fatalf("run backup: %v", err)
	}
	if len(mock.objects) != 1 {
		t.Fatalf("objects = %d, want 1", len(mock.objects))
	}

	// Pretend a month has passed.
	m.now = func() time.Time { return time.Now().AddDate(0, 0, 31) }
	if err := m.Cleanup(ctx, 30); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if len(mock.objects) != 0 {
		t.Errorf("objects after cleanup = %d, want 0", len(mock.objects))
	}
}

func TestCheckScheduleRunsAtConfiguredHour(t *testing.T) {
	m, mock, _ := setupManager(t, nil)
	m.cfg.Passphrase = "pw"
	m.cfg.ScheduleHour = 3

	m.now = func() time.Time { return time.Date(2026, 5, 1, 2, 0, 0, 0, time.UTC) }
	m.checkSchedule(context.Background())
	if len(mock.objects) != 0 {
		t.Fatal("backup ran outside the scheduled hour")
	}

	m.now = func() time.Time { return time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC) }
	m.checkSchedule(context.Background())
	if len(mock.objects) != 1 {
		t.Errorf("objects = %d, want 1", len(mock.objects))
	}
}

func TestManagerStopSafety(t *testing.T) {
	m, _, _ := setupManager(t, nil)
	m.cfg.Passphrase = "pw"

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	cancel()
	m.Stop()
	m.Stop()
}
