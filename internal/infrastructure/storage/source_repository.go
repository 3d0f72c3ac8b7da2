package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/ports"
)

// SourceRepository keeps feed sources in memory, indexed by id and url, and
// mirrors them to a JSON array file. When no valid source can be loaded it
// seeds the configured defaults and persists them.
type SourceRepository struct {
	path     string
	defaults []domain.Source
	logger   *slog.Logger
	writer   *debouncedWriter

	mu          sync.RWMutex
	initialized bool
	closed      bool
	byID        map[string]domain.Source
	byURL       map[string]string
	order       []string
}

var _ ports.SourceRepository = (*SourceRepository)(nil)

// NewSourceRepository builds an uninitialized repository backed by path.
func NewSourceRepository(path string, defaults []domain.Source, opts Options) *SourceRepository {
	r := &SourceRepository{
		path:     path,
		defaults: slices.Clone(defaults),
		logger:   opts.logger(),
	}
	r.reset()
	r.writer = newDebouncedWriter("sources", path, opts.Debounce, r.snapshot, r.logger, opts.Metrics)
	return r
}

// Initialize loads the backing file once, seeding defaults when it holds no
// usable source.
func (r *SourceRepository) Initialize(ctx context.Context) error {
	r.mu.Lock()
	if r.initialized {
		r.mu.Unlock()
		return nil
	}
	seeded := r.load()
	r.initialized = true
	r.mu.Unlock()

	if seeded {
		r.writer.schedule()
	}
	return nil
}

// load fills the index and reports whether defaults were seeded. Callers hold mu.
func (r *SourceRepository) load() bool {
	r.reset()

	raw, err := readRecords(r.path)
	if err != nil {
		r.logger.Error("cannot load sources, falling back to defaults", "path", r.path, "error", err)
	}

	for i, item := range raw {
		var rec sourceRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			r.logger.Warn("skip undecodable source record", "index", i, "error", err)
			continue
		}
		src, err := rec.toSource()
		if err != nil {
			r.logger.Warn("skip invalid source record", "index", i, "error", err)
			continue
		}
		r.put(src)
	}

	if len(r.byID) > 0 || len(r.defaults) == 0 {
		r.logger.Info("sources loaded", "path", r.path, "count", len(r.byID))
		return false
	}

	for _, def := range r.defaults {
		src, err := domain.NewSource(def.ID, def.Name, def.URL)
		if err != nil {
			r.logger.Warn("skip invalid default source", "name", def.Name, "error", err)
			continue
		}
		r.put(src)
	}
	r.logger.Info("seeded default sources", "path", r.path, "count", len(r.byID))
	return len(r.byID) > 0
}

func (r *SourceRepository) reset() {
	r.byID = map[string]domain.Source{}
	r.byURL = map[string]string{}
	r.order = nil
}

// put indexes src, replacing any entry with the same id. Callers hold mu.
func (r *SourceRepository) put(src domain.Source) {
	if prev, ok := r.byID[src.ID]; ok {
		if id := r.byURL[prev.URL]; id == prev.ID {
			delete(r.byURL, prev.URL)
		}
	} else {
		r.order = append(r.order, src.ID)
	}
	r.byID[src.ID] = src
	r.byURL[src.URL] = src.ID
}

func (r *SourceRepository) ensure(ctx context.Context) error {
	r.mu.RLock()
	ready := r.initialized
	r.mu.RUnlock()
	if ready {
		return nil
	}
	return r.Initialize(ctx)
}

// Save stores src, generating an id when missing.
func (r *SourceRepository) Save(ctx context.Context, src domain.Source) (domain.Source, error) {
	if err := r.ensure(ctx); err != nil {
		return domain.Source{}, err
	}

	valid, err := domain.NewSource(src.ID, src.Name, src.URL)
	if err != nil {
		return domain.Source{}, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return domain.Source{}, ErrClosed
	}
	r.put(valid)
	r.mu.Unlock()

	r.writer.schedule()
	return valid, nil
}

// Update replaces name and url of an existing source.
func (r *SourceRepository) Update(ctx context.Context, src domain.Source) (domain.Source, error) {
	if err := r.ensure(ctx); err != nil {
		return domain.Source{}, err
	}
	if src.ID == "" {
		return domain.Source{}, fmt.Errorf("%w: id is required for update", domain.ErrInvalidSource)
	}

	valid, err := domain.NewSource(src.ID, src.Name, src.URL)
	if err != nil {
		return domain.Source{}, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return domain.Source{}, ErrClosed
	}
	if _, ok := r.byID[valid.ID]; !ok {
		r.mu.Unlock()
		return domain.Source{}, domain.ErrNotFound
	}
	if owner, ok := r.byURL[valid.URL]; ok && owner != valid.ID {
		r.mu.Unlock()
		return domain.Source{}, fmt.Errorf("source url %s: %w", valid.URL, domain.ErrAlreadyExists)
	}
	r.put(valid)
	r.mu.Unlock()

	r.writer.schedule()
	return valid, nil
}

// FindAll returns sources in insertion order.
func (r *SourceRepository) FindAll(ctx context.Context) ([]domain.Source, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Source, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out, nil
}

func (r *SourceRepository) FindByID(ctx context.Context, id string) (domain.Source, error) {
	if err := r.ensure(ctx); err != nil {
		return domain.Source{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.byID[id]
	if !ok {
		return domain.Source{}, domain.ErrNotFound
	}
	return src, nil
}

func (r *SourceRepository) FindByURL(ctx context.Context, url string) (domain.Source, error) {
	if err := r.ensure(ctx); err != nil {
		return domain.Source{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byURL[url]
	if !ok {
		return domain.Source{}, domain.ErrNotFound
	}
	return r.byID[id], nil
}

// Delete removes the source with the given id.
func (r *SourceRepository) Delete(ctx context.Context, id string) (domain.Source, error) {
	if err := r.ensure(ctx); err != nil {
		return domain.Source{}, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return domain.Source{}, ErrClosed
	}
	src, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return domain.Source{}, domain.ErrNotFound
	}
	delete(r.byID, id)
	if owner := r.byURL[src.URL]; owner == id {
		delete(r.byURL, src.URL)
	}
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })
	r.mu.Unlock()

	r.writer.schedule()
	return src, nil
}

func (r *SourceRepository) DeleteAll(ctx context.Context) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.reset()
	r.mu.Unlock()

	r.writer.schedule()
	return nil
}

// Flush writes any pending state immediately.
func (r *SourceRepository) Flush() error {
	return r.writer.flush()
}

// Close flushes pending state and rejects further mutations.
func (r *SourceRepository) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return r.writer.close()
}

func (r *SourceRepository) snapshot() ([]byte, error) {
	r.mu.RLock()
	records := make([]sourceRecord, 0, len(r.order))
	for _, id := range r.order {
		src := r.byID[id]
		records = append(records, sourceRecord{ID: src.ID, Name: src.Name, URL: src.URL})
	}
	r.mu.RUnlock()

	return marshalRecords(records)
}
