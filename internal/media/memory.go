package media

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"gochat/internal/common"
)

type memoryObject struct {
	file File
	data []byte
}

// MemoryStorage keeps files in process. Used by the "memory" media driver.
type MemoryStorage struct {
	mu    sync.RWMutex
	files map[string]memoryObject
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{files: make(map[string]memoryObject)}
}

func (s *MemoryStorage) Upload(ctx context.Context, filename, contentType, uploaderID string, content io.Reader) (*File, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	file := File{
		ID:          uuid.NewString(),
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadedBy:  uploaderID,
		UploadedAt:  time.Now().UTC(),
	}

	s.mu.Lock()
	s.files[file.ID] = memoryObject{file: file, data: data}
	s.mu.Unlock()
	return &file, nil
}

func (s *MemoryStorage) Download(ctx context.Context, fileID string) (io.ReadCloser, *File, error) {
	s.mu.RLock()
	obj, ok := s.files[fileID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, common.NotFoundError("file %s", fileID)
	}
	file := obj.file
	return io.NopCloser(bytes.NewReader(obj.data)), &file, nil
}

func (s *MemoryStorage) Delete(ctx context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[fileID]; !ok {
		return common.NotFoundError("file %s", fileID)
	}
	delete(s.files, fileID)
	return nil
}
