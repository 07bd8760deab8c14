// mock_provider.go - In-memory storage provider for testing
package testutil

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/hojasdevida/backend/internal/storage"
)

// MockProvider implements storage.Provider in memory. Files are kept per category
// the way the hosted provider does, so a lookup under the wrong category misses.
type MockProvider struct {
	files map[storage.ResourceType]map[string]*mockFile
	calls []string
	mu    sync.RWMutex

	// Error injection. A non-nil value makes the matching method fail.
	UploadErr   error
	DestroyErr  error
	ResourceErr error
	URLErr      error
	PingErr     error
}

type mockFile struct {
	data        []byte
	contentType string
	createdAt   time.Time
}

// NewMockProvider creates an empty provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{files: make(map[storage.ResourceType]map[string]*mockFile)}
}

func (m *MockProvider) Upload(ctx context.Context, r io.Reader, params storage.UploadParams) (*storage.UploadResult, error) {
	m.record("upload", params.ResourceType, params.PublicID)
	if m.UploadErr != nil {
		return nil, m.UploadErr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	rt := params.ResourceType
	if rt == "" || rt == storage.ResourceAuto {
		rt = storage.ResourceImage
	}
	publicID := params.PublicID
	if params.Folder != "" {
		publicID = params.Folder + "/" + publicID
	}

	m.mu.Lock()
	if m.files[rt] == nil {
		m.files[rt] = make(map[string]*mockFile)
	}
	m.files[rt][publicID] = &mockFile{data: data, contentType: params.ContentType, createdAt: time.Now().UTC()}
	m.mu.Unlock()

	return &storage.UploadResult{
		PublicID:     publicID,
		SecureURL:    mockURL(rt, "", publicID),
		Format:       strings.TrimPrefix(path.Ext(publicID), "."),
		ResourceType: rt,
		Bytes:        int64(len(data)),
	}, nil
}

func (m *MockProvider) Destroy(ctx context.Context, publicID string, rt storage.ResourceType) (*storage.DestroyResult, error) {
	rt = mockCategory(rt)
	m.record("destroy", rt, publicID)
	if m.DestroyErr != nil {
		return nil, m.DestroyErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[rt][publicID]; !ok {
		return &storage.DestroyResult{Result: storage.ResultNotFound}, nil
	}
	delete(m.files[rt], publicID)
	return &storage.DestroyResult{Result: storage.ResultOK}, nil
}

func (m *MockProvider) Resource(ctx context.Context, publicID string, rt storage.ResourceType) (*storage.Asset, error) {
	rt = mockCategory(rt)
	m.record("resource", rt, publicID)
	if m.ResourceErr != nil {
		return nil, m.ResourceErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[rt][publicID]
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", storage.ErrNotFound, publicID, rt)
	}
	return &storage.Asset{
		PublicID:     publicID,
		SecureURL:    mockURL(rt, "", publicID),
		Format:       strings.TrimPrefix(path.Ext(publicID), "."),
		ResourceType: rt,
		Bytes:        int64(len(f.data)),
		CreatedAt:    f.createdAt,
	}, nil
}

func (m *MockProvider) URL(publicID string, opts storage.URLOptions) (string, error) {
	if m.URLErr != nil {
		return "", m.URLErr
	}
	return mockURL(mockCategory(opts.ResourceType), opts.Flags, publicID), nil
}

func (m *MockProvider) Ping(ctx context.Context) error {
	return m.PingErr
}

// Ensure MockProvider implements storage.Provider
var _ storage.Provider = (*MockProvider)(nil)

// Test Helper Methods

// AddFile stores data directly under the given category.
func (m *MockProvider) AddFile(rt storage.ResourceType, publicID string, data []byte) {
	rt = mockCategory(rt)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files[rt] == nil {
		m.files[rt] = make(map[string]*mockFile)
	}
	m.files[rt][publicID] = &mockFile{data: data, createdAt: time.Now().UTC()}
}

// HasFile reports whether publicID is stored under rt.
func (m *MockProvider) HasFile(rt storage.ResourceType, publicID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[mockCategory(rt)][publicID]
	return ok
}

// FileCount returns the number of stored files across categories.
func (m *MockProvider) FileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, files := range m.files {
		n += len(files)
	}
	return n
}

// Calls returns the provider calls in order, formatted as "<op> <category> <public id>".
func (m *MockProvider) Calls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.calls...)
}

func (m *MockProvider) record(op string, rt storage.ResourceType, publicID string) {
	m.mu.Lock()
	m.calls = append(m.calls, fmt.Sprintf("%s %s %s", op, rt, publicID))
	m.mu.Unlock()
}

// mockCategory resolves "auto" to "image" like the hosted provider.
func mockCategory(rt storage.ResourceType) storage.ResourceType {
	if rt == "" || rt == storage.ResourceAuto {
		return storage.ResourceImage
	}
	return rt
}

// mockURL produces https://cdn.test/<category>/upload/[fl_<flags>/]<public id>.
func mockURL(rt storage.ResourceType, flags, publicID string) string {
	u := "https://cdn.test/" + string(rt) + "/upload/"
	if flags != "" {
		u += "fl_" + flags + "/"
	}
	return u + publicID
}
