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
	"github.com/viant/fixflow/runtime/inspection"
	"github.com/viant/fixflow/service/dao"
	"github.com/viant/fixflow/service/dao/criteria"
)

// Service keeps inspections as JSON files under a base URL so that they
// survive a restart together with the instance and audit stores.
type Service struct {
	baseURL string
	fs      afs.Service
	mu      sync.RWMutex
	logger  *slog.Logger
}

var _ dao.Service[string, inspection.Inspection] = (*Service)(nil)

// Save writes the inspection, replacing an earlier version.
func (s *Service) Save(ctx context.Context, insp *inspection.Inspection) error {
	if insp == nil {
		return dao.ErrNilEntity
	}
	if insp.ID == "" {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(insp)
	if err != nil {
		return fmt.Errorf("failed to marshal inspection %s: %w", insp.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	URL := s.url(insp.ID)
	if err = s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to upload inspection %s: %w", URL, err)
	}
	return nil
}

// Load returns the inspection or dao.ErrNotFound.
func (s *Service) Load(ctx context.Context, id string) (*inspection.Inspection, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	URL := s.url(id)
	if ok, err := s.fs.Exists(ctx, URL); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("inspection %s: %w", id, dao.ErrNotFound)
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to download inspection %s: %w", URL, err)
	}
	ret := &inspection.Inspection{}
	if err = json.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode inspection %s: %w", URL, err)
	}
	return ret, nil
}

// Delete removes the inspection file.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	URL := s.url(id)
	if ok, err := s.fs.Exists(ctx, URL); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("inspection %s: %w", id, dao.ErrNotFound)
	}
	return s.fs.Delete(ctx, URL)
}

// List decodes every inspection file and keeps those matching parameters.
// Unreadable files are logged and skipped.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*inspection.Inspection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, err := s.fs.List(ctx, s.baseURL, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list inspections %s: %w", s.baseURL, err)
	}
	var ret []*inspection.Inspection
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			s.logger.Warn("skipping inspection", "url", object.URL(), "error", err)
			continue
		}
		insp := &inspection.Inspection{}
		if err = json.Unmarshal(data, insp); err != nil {
			s.logger.Warn("skipping inspection", "url", object.URL(), "error", err)
			continue
		}
		if criteria.Match(insp.Field, parameters) {
			ret = append(ret, insp)
		}
	}
	return ret, nil
}

func (s *Service) url(id string) string {
	return url.Join(s.baseURL, id+".json")
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

// New creates the store, creating baseURL when missing.
func New(baseURL string, opts ...Option) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("inspection store: base URL cannot be empty")
	}
	ret := &Service{fs: afs.New(), logger: slog.Default()}
	for _, opt := range opts {
		opt(ret)
	}
	ctx := context.Background()
	ret.baseURL = url.Normalize(baseURL, file.Scheme)
	if ok, _ := ret.fs.Exists(ctx, ret.baseURL); !ok {
		if err := ret.fs.Create(ctx, ret.baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create inspection store %s: %w", ret.baseURL, err)
		}
	}
	return ret, nil
}
