package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/barease/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu        sync.Mutex
	data      map[string][]byte
	getError  error
	setError  error
	getCalls  int
	setCalls  int
	deletions []string
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{data: make(map[string][]byte)}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletions = append(m.deletions, key)
	delete(m.data, key)
	return nil
}

// MockSnapshotStore is a mock implementation of domain.SnapshotStore
type MockSnapshotStore struct {
	menu          *domain.MenuSnapshot
	embeddings    []domain.EmbeddingRecord
	getMenuError  error
	getEmbedError error
	putError      error
	menuReads     int
	embedReads    int
	putMenu       *domain.MenuSnapshot
	putEmbeddings []domain.EmbeddingRecord
}

func (m *MockSnapshotStore) GetMenu(ctx context.Context) (*domain.MenuSnapshot, error) {
	m.menuReads++
	if m.getMenuError != nil {
		return nil, m.getMenuError
	}
	if m.menu == nil {
		return &domain.MenuSnapshot{Items: []domain.MenuItem{}}, nil
	}
	return m.menu, nil
}

func (m *MockSnapshotStore) PutMenu(ctx context.Context, menu *domain.MenuSnapshot) error {
	if m.putError != nil {
		return m.putError
	}
	m.putMenu = menu
	return nil
}

func (m *MockSnapshotStore) GetEmbeddings(ctx context.Context) ([]domain.EmbeddingRecord, error) {
	m.embedReads++
	if m.getEmbedError != nil {
		return nil, m.getEmbedError
	}
	return m.embeddings, nil
}

func (m *MockSnapshotStore) PutEmbeddings(ctx context.Context, records []domain.EmbeddingRecord) error {
	if m.putError != nil {
		return m.putError
	}
	m.putEmbeddings = records
	return nil
}

// MockEmbedder is a mock implementation of domain.Embedder.
// Vectors are looked up by exact text; errs are returned in order before any vector.
type MockEmbedder struct {
	mu       sync.Mutex
	vectors  map[string][]float64
	fallback []float64
	errs     []error
	calls    []string
}

func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, text)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return m.fallback, nil
}

// MockSheetRepository is an in-memory domain.SheetRepository
type MockSheetRepository struct {
	rows      map[string]*domain.SheetRow
	listError error
	findError error
	updError  error
	updates   []sheetUpdateCall
	deleted   []domain.SheetKey
}

type sheetUpdateCall struct {
	key    domain.SheetKey
	update domain.SheetUpdate
}

func NewMockSheetRepository(rows ...domain.SheetRow) *MockSheetRepository {
	m := &MockSheetRepository{rows: make(map[string]*domain.SheetRow)}
	for i := range rows {
		row := rows[i]
		if row.Key.PK == "" {
			row.Key = domain.NewSheetKey(row.ID)
		}
		m.rows[row.ID] = &row
	}
	return m
}

func (m *MockSheetRepository) ListRows(ctx context.Context) ([]domain.SheetRow, error) {
	if m.listError != nil {
		return nil, m.listError
	}
	rows := make([]domain.SheetRow, 0, len(m.rows))
	for _, id := range sortedKeys(m.rows) {
		rows = append(rows, *m.rows[id])
	}
	return rows, nil
}

func (m *MockSheetRepository) FindByID(ctx context.Context, id string) (*domain.SheetRow, error) {
	if m.findError != nil {
		return nil, m.findError
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	copied := *row
	return &copied, nil
}

func (m *MockSheetRepository) Update(ctx context.Context, key domain.SheetKey, update domain.SheetUpdate) error {
	if m.updError != nil {
		return m.updError
	}
	m.updates = append(m.updates, sheetUpdateCall{key: key, update: update})
	return nil
}

func (m *MockSheetRepository) Delete(ctx context.Context, key domain.SheetKey) error {
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *MockSheetRepository) lastUpdate() domain.SheetUpdate {
	if len(m.updates) == 0 {
		return domain.SheetUpdate{}
	}
	return m.updates[len(m.updates)-1].update
}

func sortedKeys(rows map[string]*domain.SheetRow) []string {
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MockImageStore is a mock implementation of domain.ImageStore
type MockImageStore struct {
	copyError      error
	copies         [][2]string
	deletedPublic  []string
	deletedStaging []string
}

func (m *MockImageStore) CopyToPublic(ctx context.Context, stagingKey, publicKey string) error {
	if m.copyError != nil {
		return m.copyError
	}
	m.copies = append(m.copies, [2]string{stagingKey, publicKey})
	return nil
}

func (m *MockImageStore) DeletePublic(ctx context.Context, key string) error {
	m.deletedPublic = append(m.deletedPublic, key)
	return nil
}

func (m *MockImageStore) DeleteStaging(ctx context.Context, key string) error {
	m.deletedStaging = append(m.deletedStaging, key)
	return nil
}

func (m *MockImageStore) PublicURL(key string) string {
	return "https://public.example/" + key
}

// MockMenuGenerator records regeneration requests
type MockMenuGenerator struct {
	calls int
	err   error
}

func (m *MockMenuGenerator) Generate(ctx context.Context) (*GenerateResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &GenerateResult{}, nil
}

// MockTextGenerator is a mock implementation of domain.TextGenerator
type MockTextGenerator struct {
	replies []string
	err     error
	prompts []string
	opts    []domain.CompletionOptions
}

func (m *MockTextGenerator) Complete(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return "", m.err
	}
	if len(m.replies) == 0 {
		return "{}", nil
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return reply, nil
}

func floatPtr(v float64) *float64 {
	return &v
}

func intPtr(v int) *int {
	return &v
}
