package services_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cppla/bbsforum/models"
	"github.com/cppla/bbsforum/utils"
)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

// recordingMailer keeps every message instead of sending it.
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (r *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMail{To: to, Subject: subject, Body: body})
	return r.err
}

func (r *recordingMailer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func (r *recordingMailer) last() sentMail {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return sentMail{}
	}
	return r.sent[len(r.sent)-1]
}

// memoryFileStore keeps uploads in a map.
type memoryFileStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	next    int
	failAt  int // 1-based Save call that fails; 0 never
	calls   int
	deleted []string
}

func newMemoryFileStore() *memoryFileStore {
	return &memoryFileStore{files: map[string][]byte{}}
}

func (s *memoryFileStore) Save(_ context.Context, name string, r io.Reader) (utils.StoredFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failAt == s.calls {
		return utils.StoredFile{}, fmt.Errorf("%w: test limit", utils.ErrFileTooLarge)
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return utils.StoredFile{}, err
	}
	s.next++
	stored := fmt.Sprintf("f%d-%s", s.next, name)
	path := "2024/01/01/" + stored
	s.files[path] = buf.Bytes()
	return utils.StoredFile{StoredFilename: stored, StoredPath: path, Size: n}, nil
}

func (s *memoryFileStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, path)
	s.deleted = append(s.deleted, path)
	return nil
}

func (s *memoryFileStore) Path(path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[path]; !ok {
		return "", errors.New("missing")
	}
	return "/mem/" + path, nil
}

func (s *memoryFileStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

func member(id uint, nickname string, role models.Role) *models.Member {
	return &models.Member{
		ID:       id,
		Username: fmt.Sprintf("%s@example.com", nickname),
		Nickname: nickname,
		Role:     role,
		AuthInfo: models.AuthInfo{Authenticated: true},
	}
}
