package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/fixflow/service/audit"
)

// Trail persists every audit record as its own JSON object under
// <base>/<instanceID>/<seq>.json. Objects are never rewritten.
type Trail struct {
	basePath string
	fs       afs.Service
	mux      sync.Mutex
	// last caches the tail record per instance
	last map[string]*audit.Record
}

var _ audit.Trail = (*Trail)(nil)

func (t *Trail) Append(ctx context.Context, record *audit.Record) error {
	if record == nil || record.InstanceID == "" {
		return audit.ErrInvalidRecord
	}
	t.mux.Lock()
	defer t.mux.Unlock()
	last, err := t.tail(ctx, record.InstanceID)
	if err != nil {
		return err
	}
	if err = audit.CheckNext(last, record); err != nil {
		return err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}
	location := t.recordURL(record.InstanceID, record.Seq)
	exists, err := t.fs.Exists(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to check audit record %s: %w", location, err)
	}
	if exists {
		return fmt.Errorf("%w: seq %d already stored", audit.ErrOutOfOrder, record.Seq)
	}
	if err = t.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to store audit record %s: %w", location, err)
	}
	t.last[record.InstanceID] = record.Clone()
	return nil
}

func (t *Trail) Latest(ctx context.Context, instanceID, state string) (*audit.Record, error) {
	records, err := t.List(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return audit.EntryFor(records, state), nil
}

func (t *Trail) List(ctx context.Context, instanceID string) ([]*audit.Record, error) {
	dir := url.Join(t.basePath, instanceID)
	exists, err := t.fs.Exists(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to check audit log %s: %w", dir, err)
	}
	if !exists {
		return nil, nil
	}
	objects, err := t.fs.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log %s: %w", dir, err)
	}
	var records []*audit.Record
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := t.fs.Download(ctx, object)
		if err != nil {
			return nil, fmt.Errorf("failed to read audit record %s: %w", object.URL(), err)
		}
		record := &audit.Record{}
		if err = json.Unmarshal(data, record); err != nil {
			return nil, fmt.Errorf("failed to decode audit record %s: %w", object.URL(), err)
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })
	return records, nil
}

func (t *Trail) tail(ctx context.Context, instanceID string) (*audit.Record, error) {
	if last, ok := t.last[instanceID]; ok {
		return last, nil
	}
	records, err := t.List(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	var last *audit.Record
	if len(records) > 0 {
		last = records[len(records)-1]
	}
	t.last[instanceID] = last
	return last, nil
}

func (t *Trail) recordURL(instanceID string, seq int) string {
	return url.Join(t.basePath, instanceID, fmt.Sprintf("%020d.json", seq))
}

// New creates a file based trail rooted at basePath.
func New(basePath string, fs afs.Service) (*Trail, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if fs == nil {
		fs = afs.New()
	}
	basePath = url.Normalize(basePath, file.Scheme)
	ctx := context.Background()
	exists, _ := fs.Exists(ctx, basePath)
	if !exists {
		if err := fs.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create audit directory: %w", err)
		}
	}
	return &Trail{basePath: basePath, fs: fs, last: map[string]*audit.Record{}}, nil
}
