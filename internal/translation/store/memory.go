package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"lokal/internal/translation/models"
	"lokal/pkg/platform/sentinel"
)

type resourceRecord struct {
	id           uuid.UUID
	sid          string
	translations []models.Translation
}

// InMemoryStore keeps aggregates in a map guarded by one lock. Save validates
// and applies a whole unit of work under the write lock.
type InMemoryStore struct {
	mu        sync.RWMutex
	resources map[string]resourceRecord
	nextID    int64
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{resources: make(map[string]resourceRecord)}
}

func (s *InMemoryStore) Begin() Repository {
	return &memoryRepository{
		store:   s,
		tracked: make(map[string]trackedResource),
		deleted: make(map[string]struct{}),
	}
}

type memoryRepository struct {
	store     *InMemoryStore
	tracked   map[string]trackedResource
	added     []*models.TextResource
	deleted   map[string]struct{}
	committed bool
}

func (r *memoryRepository) ListSids(_ context.Context) ([]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	sids := make([]string, 0, len(r.store.resources))
	for sid := range r.store.resources {
		sids = append(sids, sid)
	}
	sort.Strings(sids)
	return sids, nil
}

func (r *memoryRepository) List(_ context.Context) ([]*models.TextResource, error) {
	r.store.mu.RLock()
	records := make([]resourceRecord, 0, len(r.store.resources))
	for _, rec := range r.store.resources {
		records = append(records, rec)
	}
	r.store.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool { return records[i].sid < records[j].sid })
	out := make([]*models.TextResource, 0, len(records))
	for _, rec := range records {
		if _, gone := r.deleted[rec.sid]; gone {
			continue
		}
		out = append(out, r.track(rec))
	}
	return out, nil
}

func (r *memoryRepository) GetBySid(_ context.Context, sid string) (*models.TextResource, error) {
	for _, res := range r.added {
		if res.Sid() == sid {
			return res, nil
		}
	}
	if _, gone := r.deleted[sid]; gone {
		return nil, fmt.Errorf("text resource %q: %w", sid, sentinel.ErrNotFound)
	}
	if t, ok := r.tracked[sid]; ok {
		return t.res, nil
	}

	r.store.mu.RLock()
	rec, ok := r.store.resources[sid]
	r.store.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("text resource %q: %w", sid, sentinel.ErrNotFound)
	}
	return r.track(rec), nil
}

// track returns the identity-mapped aggregate for rec, loading a private copy
// the first time.
func (r *memoryRepository) track(rec resourceRecord) *models.TextResource {
	if t, ok := r.tracked[rec.sid]; ok {
		return t.res
	}
	loaded := make(map[int64]string, len(rec.translations))
	for _, t := range rec.translations {
		loaded[t.ID()] = t.Text()
	}
	res := models.Restore(rec.id, rec.sid, rec.translations)
	r.tracked[rec.sid] = trackedResource{res: res, loaded: loaded}
	return res
}

func (r *memoryRepository) Add(_ context.Context, resource *models.TextResource) error {
	if resource == nil {
		return errors.New("text resource is required")
	}
	r.added = append(r.added, resource)
	return nil
}

func (r *memoryRepository) DeleteBySid(_ context.Context, sid string) error {
	kept := r.added[:0]
	for _, res := range r.added {
		if res.Sid() != sid {
			kept = append(kept, res)
		}
	}
	r.added = kept
	delete(r.tracked, sid)
	r.deleted[sid] = struct{}{}
	return nil
}

func (r *memoryRepository) Save(_ context.Context) error {
	if r.committed {
		return fmt.Errorf("unit of work already saved: %w", sentinel.ErrInvalidState)
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	exists := func(sid string) bool {
		if _, gone := r.deleted[sid]; gone {
			return false
		}
		_, ok := s.resources[sid]
		return ok
	}

	// Build every new record before touching shared state.
	var pending []pendingWrite
	seen := make(map[string]struct{}, len(r.added))
	for _, res := range r.added {
		if _, dup := seen[res.Sid()]; dup || exists(res.Sid()) {
			return fmt.Errorf("text resource %q: %w", res.Sid(), sentinel.ErrConflict)
		}
		seen[res.Sid()] = struct{}{}
		pending = append(pending, pendingWrite{res: res, rec: resourceRecord{id: res.ID(), sid: res.Sid(), translations: res.Translations()}})
	}
	for sid, t := range r.tracked {
		if !exists(sid) {
			return fmt.Errorf("text resource %q: %w", sid, sentinel.ErrNotFound)
		}
		rec, err := merge(s.resources[sid], t)
		if err != nil {
			return err
		}
		pending = append(pending, pendingWrite{res: t.res, rec: rec})
	}

	for sid := range r.deleted {
		delete(s.resources, sid)
	}
	for _, w := range pending {
		for i, t := range w.rec.translations {
			if t.ID() != 0 {
				continue
			}
			s.nextID++
			w.rec.translations[i] = models.RestoreTranslation(s.nextID, t.Sid(), t.LangID(), t.Text())
			w.res.AssignTranslationID(t.LangID(), s.nextID)
		}
		s.resources[w.rec.sid] = w.rec
	}

	r.committed = true
	r.added = nil
	r.deleted = make(map[string]struct{})
	return nil
}

type pendingWrite struct {
	res *models.TextResource
	rec resourceRecord
}

// merge applies the aggregate's text changes and new translations onto the
// stored record, so concurrent units of work touching different languages of
// one resource do not overwrite each other. Only texts that differ from what
// the unit loaded are written back. A new translation whose langID is already
// stored violates the (sid, lower(lang_id)) constraint.
func merge(stored resourceRecord, tracked trackedResource) (resourceRecord, error) {
	out := resourceRecord{id: stored.id, sid: stored.sid, translations: append([]models.Translation(nil), stored.translations...)}
	for _, t := range tracked.res.Translations() {
		if t.ID() == 0 {
			for _, existing := range out.translations {
				if strings.EqualFold(existing.LangID(), t.LangID()) {
					return resourceRecord{}, fmt.Errorf("translation %q/%q: %w", t.Sid(), t.LangID(), sentinel.ErrConflict)
				}
			}
			out.translations = append(out.translations, t)
			continue
		}
		if text, ok := tracked.loaded[t.ID()]; ok && text == t.Text() {
			continue
		}
		for i, existing := range out.translations {
			if existing.ID() == t.ID() {
				out.translations[i] = models.RestoreTranslation(existing.ID(), existing.Sid(), existing.LangID(), t.Text())
			}
		}
	}
	return out, nil
}
