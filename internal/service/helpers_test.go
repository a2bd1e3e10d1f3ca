package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/cirkle/internal/adapter/store"
	"github.com/arturoeanton/cirkle/internal/domain"
	"github.com/arturoeanton/cirkle/internal/port"
)

var errBoom = errors.New("boom")

// recorder is an in-memory port.EventPublisher.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(evt domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) ofType(typ string) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// fakeDrive is an in-memory port.DriveProvider.
type fakeDrive struct {
	mu       sync.Mutex
	files    map[string]*port.DriveFile
	next     int
	shared   []string
	deleted  []string
	shareErr error
	getErr   map[string]error
	delErr   error
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{files: map[string]*port.DriveFile{}, getErr: map[string]error{}}
}

func (d *fakeDrive) add(name, mimeType string, size int64) *port.DriveFile {
	d.next++
	id := fmt.Sprintf("file-%d", d.next)
	f := &port.DriveFile{ID: id, Name: name, MimeType: mimeType, Size: size, WebViewLink: "https://drive.example/" + id}
	d.files[id] = f
	return f
}

func (d *fakeDrive) CreateFile(_ context.Context, name, mimeType string) (*port.DriveFile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := d.add(name, mimeType, 0)
	return &port.DriveFile{ID: f.ID}, nil
}

func (d *fakeDrive) Upload(_ context.Context, name, mimeType string, content io.Reader) (*port.DriveFile, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, content); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	f := d.add(name, mimeType, int64(buf.Len()))
	return &port.DriveFile{ID: f.ID}, nil
}

func (d *fakeDrive) GetFile(_ context.Context, fileID string) (*port.DriveFile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.getErr[fileID]; err != nil {
		return nil, err
	}
	f, ok := d.files[fileID]
	if !ok {
		return nil, errors.New("drive: file not found")
	}
	out := *f
	return &out, nil
}

func (d *fakeDrive) ShareWithLink(_ context.Context, fileID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shareErr != nil {
		return d.shareErr
	}
	d.shared = append(d.shared, fileID)
	return nil
}

func (d *fakeDrive) DeleteFile(_ context.Context, fileID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.delErr != nil {
		return d.delErr
	}
	delete(d.files, fileID)
	d.deleted = append(d.deleted, fileID)
	return nil
}

func (d *fakeDrive) rename(fileID, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files[fileID].Name = name
}

// failingScores wraps a store and fails reads or writes on demand.
type failingScores struct {
	port.ScoreStore
	readErr  error
	writeErr error
	writes   int
}

func (f *failingScores) GetScore(ctx context.Context, groupID, userID string) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	return f.ScoreStore.GetScore(ctx, groupID, userID)
}

func (f *failingScores) UpsertScore(ctx context.Context, rec domain.ScoreRecord) error {
	f.writes++
	if f.writeErr != nil {
		return f.writeErr
	}
	return f.ScoreStore.UpsertScore(ctx, rec)
}

// newUser stores a Google user with a Drive token and returns its context.
func newUser(t *testing.T, s *store.MemoryStore, name string) domain.UserContext {
	t.Helper()
	u, err := s.UpsertUser(context.Background(), &domain.User{
		Email: name + "@example.com", Name: name, Provider: "google", ProviderID: name,
		AccessToken: "token-" + name,
	})
	require.NoError(t, err)
	return domain.UserContext{UserID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// slowReads holds GetScore until released. The inner read ignores the
// caller's context, so only the service itself can refuse the write.
type slowReads struct {
	port.ScoreStore
	entered chan struct{}
	release chan struct{}
}

func newSlowReads(inner port.ScoreStore) *slowReads {
	return &slowReads{ScoreStore: inner, entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (s *slowReads) GetScore(_ context.Context, groupID, userID string) (int, error) {
	s.entered <- struct{}{}
	<-s.release
	return s.ScoreStore.GetScore(context.Background(), groupID, userID)
}
