package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/barangaylink/sglgb-backend/internal/platform/dbctx"
	"github.com/barangaylink/sglgb-backend/internal/platform/gcp"
	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
	"github.com/barangaylink/sglgb-backend/internal/repos"
	"github.com/barangaylink/sglgb-backend/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	// One connection keeps the in-memory database alive for the whole test.
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&types.User{},
		&types.Barangay{},
		&types.GovernanceArea{},
		&types.Indicator{},
		&types.Assessment{},
		&types.AssessmentResponse{},
		&types.MOV{},
		&types.FeedbackComment{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func createBarangay(t *testing.T, db *gorm.DB, name string) *types.Barangay {
	t.Helper()
	b := &types.Barangay{ID: uuid.New(), Name: name}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("create barangay: %v", err)
	}
	return b
}

func createBLGUUser(t *testing.T, db *gorm.DB, barangayID uuid.UUID) *types.User {
	t.Helper()
	u := &types.User{
		ID:             uuid.New(),
		Email:          fmt.Sprintf("blgu-%s@example.com", uuid.New().String()[:8]),
		Name:           "Test BLGU User",
		HashedPassword: "x",
		Role:           types.RoleBLGUUser,
		BarangayID:     &barangayID,
		IsActive:       true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create blgu user: %v", err)
	}
	return u
}

func createAssessor(t *testing.T, db *gorm.DB, areaID uuid.UUID) *types.User {
	t.Helper()
	u := &types.User{
		ID:               uuid.New(),
		Email:            fmt.Sprintf("assessor-%s@example.com", uuid.New().String()[:8]),
		Name:             "Test Assessor",
		HashedPassword:   "x",
		Role:             types.RoleAreaAssessor,
		GovernanceAreaID: &areaID,
		IsActive:         true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create assessor: %v", err)
	}
	return u
}

func createArea(t *testing.T, db *gorm.DB, name, areaType string) *types.GovernanceArea {
	t.Helper()
	a := &types.GovernanceArea{ID: uuid.New(), Name: name, AreaType: areaType}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("create governance area: %v", err)
	}
	return a
}

func createIndicator(t *testing.T, db *gorm.DB, areaID uuid.UUID, schema map[string]interface{}) *types.Indicator {
	t.Helper()
	raw, err := json.Marshal(schema)
	if err != nil {
		t.Fatalf("marshal schema: %v", err)
	}
	ind := &types.Indicator{
		ID:               uuid.New(),
		GovernanceAreaID: areaID,
		Name:             fmt.Sprintf("Indicator %s", uuid.New().String()[:8]),
		FormSchema:       raw,
	}
	if err := db.Create(ind).Error; err != nil {
		t.Fatalf("create indicator: %v", err)
	}
	return ind
}

func createAssessment(t *testing.T, db *gorm.DB, userID uuid.UUID, status string) *types.Assessment {
	t.Helper()
	a := &types.Assessment{ID: uuid.New(), BLGUUserID: userID, Status: status}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("create assessment: %v", err)
	}
	return a
}

func createResponse(t *testing.T, db *gorm.DB, assessmentID, indicatorID uuid.UUID, data map[string]interface{}, validationStatus *string) *types.AssessmentResponse {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal response data: %v", err)
	}
	r := &types.AssessmentResponse{
		ID:               uuid.New(),
		AssessmentID:     assessmentID,
		IndicatorID:      indicatorID,
		ResponseData:     raw,
		ValidationStatus: validationStatus,
	}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("create response: %v", err)
	}
	return r
}

func attachTestMOV(t *testing.T, db *gorm.DB, responseID uuid.UUID, storagePath string) *types.MOV {
	t.Helper()
	m := &types.MOV{
		ID:          uuid.New(),
		ResponseID:  responseID,
		Filename:    "evidence.pdf",
		StoragePath: storagePath,
		Status:      types.MOVStatusUploaded,
		UploadedAt:  time.Now().UTC(),
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("create mov: %v", err)
	}
	return m
}

func strPtr(s string) *string { return &s }

// stubBucket records storage calls in memory and can be told to fail
// deletes, for exercising the fail-closed removal path.
type stubBucket struct {
	mu         sync.Mutex
	objects    map[string][]byte
	failDelete bool
	deletes    []string
}

func newStubBucket() *stubBucket {
	return &stubBucket{objects: map[string][]byte{}}
}

func (b *stubBucket) UploadFile(dbc dbctx.Context, key string, contentType string, file io.Reader) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return nil
}

func (b *stubBucket) DeleteFile(dbc dbctx.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failDelete {
		return fmt.Errorf("storage unavailable")
	}
	b.deletes = append(b.deletes, key)
	delete(b.objects, key)
	return nil
}

func (b *stubBucket) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %q not found", key)
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (b *stubBucket) GetObjectAttrs(ctx context.Context, key string) (*gcp.ObjectAttrs, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %q not found", key)
	}
	return &gcp.ObjectAttrs{Size: int64(len(data))}, nil
}

func (b *stubBucket) GetPublicURL(key string) string { return "stub://" + key }

// stubGeminiClient returns a canned payload and counts calls.
type stubGeminiClient struct {
	mu       sync.Mutex
	calls    int
	response string
	err      error
}

func (c *stubGeminiClient) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

// memQueue is an in-memory NotificationQueue for worker and notifier tests.
type memQueue struct {
	mu    sync.Mutex
	tasks []*NotificationTask
}

func (q *memQueue) Enqueue(ctx context.Context, task NotificationTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, &task)
	return nil
}

func (q *memQueue) Dequeue(ctx context.Context, block time.Duration) (*NotificationTask, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, nil
	}
	task := q.tasks[0]
	q.tasks = q.tasks[1:]
	return task, nil
}

func (q *memQueue) Close() error { return nil }

func (q *memQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *memQueue) kinds() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.tasks))
	for _, task := range q.tasks {
		out = append(out, task.Kind)
	}
	return out
}

func newClassificationFixture(t *testing.T, db *gorm.DB) (ClassificationService, repos.AssessmentRepo, repos.ResponseRepo) {
	t.Helper()
	log := newTestLogger(t)
	assessmentRepo := repos.NewAssessmentRepo(db, log)
	areaRepo := repos.NewGovernanceAreaRepo(db, log)
	indicatorRepo := repos.NewIndicatorRepo(db, log)
	responseRepo := repos.NewResponseRepo(db, log)
	svc := NewClassificationService(db, log, assessmentRepo, areaRepo, indicatorRepo, responseRepo)
	return svc, assessmentRepo, responseRepo
}
