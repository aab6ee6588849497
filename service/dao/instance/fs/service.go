package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/fixflow/runtime/instance"
	"github.com/viant/fixflow/service/dao"
	"github.com/viant/fixflow/service/dao/criteria"
	daoinstance "github.com/viant/fixflow/service/dao/instance"
)

// Service implements a filesystem-based instance storage, one JSON object
// per instance.
type Service struct {
	basePath string
	fs       afs.Service
	mu       sync.RWMutex
	logger   *slog.Logger
}

// Ensure Service implements dao.Service
var _ dao.Service[string, instance.Instance] = (*Service)(nil)

// Save persists an instance to the filesystem
func (s *Service) Save(ctx context.Context, inst *instance.Instance) error {
	if inst == nil {
		return dao.ErrNilEntity
	}
	if inst.ID == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(inst)
	if err != nil {
		return fmt.Errorf("failed to marshal instance: %w", err)
	}

	filePath := s.instancePath(inst.ID)
	if err = s.fs.Upload(ctx, filePath, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save instance to file %s: %w", filePath, err)
	}
	return nil
}

// Load retrieves an instance from the filesystem
func (s *Service) Load(ctx context.Context, id string) (*instance.Instance, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	filePath := s.instancePath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check if instance exists: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("instance %s: %w", id, dao.ErrNotFound)
	}

	data, err := s.fs.DownloadWithURL(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read instance file: %w", err)
	}

	var inst instance.Instance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("failed to unmarshal instance data: %w", err)
	}
	return &inst, nil
}

// Delete removes an instance from the filesystem
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.instancePath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return fmt.Errorf("failed to check if instance exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("instance %s: %w", id, dao.ErrNotFound)
	}
	if err := s.fs.Delete(ctx, filePath); err != nil {
		return fmt.Errorf("failed to delete instance file: %w", err)
	}
	return nil
}

// List returns all instances matching parameters
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*instance.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, err := s.fs.List(ctx, s.basePath, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list instance files: %w", err)
	}

	var instances []*instance.Instance
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			s.logger.Warn("failed to read instance file", "url", object.URL(), "error", err)
			continue
		}
		var inst instance.Instance
		if err := json.Unmarshal(data, &inst); err != nil {
			s.logger.Warn("failed to unmarshal instance", "url", object.URL(), "error", err)
			continue
		}
		if !criteria.Match(daoinstance.Fields(&inst), parameters) {
			continue
		}
		instances = append(instances, &inst)
	}
	return instances, nil
}

func (s *Service) instancePath(id string) string {
	return url.Join(s.basePath, id+".json")
}

// Option customises the fs Service.
type Option func(*Service)

// WithLogger sets the logger used for skipped files.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithFS sets the afs backend.
func WithFS(fs afs.Service) Option {
	return func(s *Service) { s.fs = fs }
}

// New creates a new filesystem instance storage service
func New(basePath string, opts ...Option) (*Service, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	ret := &Service{fs: afs.New(), logger: slog.Default()}
	for _, opt := range opts {
		opt(ret)
	}

	ctx := context.Background()
	basePath = url.Normalize(basePath, file.Scheme)
	exists, _ := ret.fs.Exists(ctx, basePath)
	if !exists {
		if err := ret.fs.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}
	ret.basePath = basePath
	return ret, nil
}
