package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"careshare-service/internal/models"
	"careshare-service/internal/store/storetest"
)

type memStore = storetest.Memory

func newMemStore() *memStore { return storetest.NewMemory() }

// recordingNotifier captures notifications instead of delivering them
type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) all() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Notification(nil), r.sent...)
}

func (r *recordingNotifier) audiences() []string {
	var out []string
	for _, n := range r.all() {
		out = append(out, n.Audience)
	}
	return out
}

func (r *recordingNotifier) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

// memStorage keeps uploads in memory
type memStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{files: map[string][]byte{}}
}

func (s *memStorage) Save(_ context.Context, folder, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := "/uploads/" + folder + "/" + filename
	s.files[ref] = data
	return ref, nil
}

func (s *memStorage) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, ref)
	return nil
}

func (s *memStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// memCache is a ListingCache backed by maps
type memCache struct {
	mu       sync.Mutex
	entries  map[string]interface{}
	versions map[string]int64
	gets     int
	hits     int
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]interface{}{}, versions: map[string]int64{}}
}

func (c *memCache) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	c.hits++
	*(dst.(*[]ProductView)) = v.([]ProductView)
	return true, nil
}

func (c *memCache) SetJSON(_ context.Context, key string, v interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = v
	return nil
}

func (c *memCache) Version(_ context.Context, ns string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[ns], nil
}

func (c *memCache) BumpVersion(_ context.Context, ns string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[ns]++
	return nil
}

var errInsertFailed = errors.New("insert failed")

// failingProducts rejects every insert
type failingProducts struct{ ProductStore }

func (failingProducts) CreateProduct(context.Context, *models.Product) error { return errInsertFailed }

// failingExchanges rejects every insert
type failingExchanges struct{ ExchangeStore }

func (failingExchanges) CreateExchangeRequest(context.Context, *models.ExchangeRequest) error {
	return errInsertFailed
}

func imageUpload(name string) *Upload {
	body := "fake-image-bytes"
	return &Upload{Filename: name, Size: int64(len(body)), Content: strings.NewReader(body)}
}
