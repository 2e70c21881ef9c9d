package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"lokal/internal/platform/postgres"
	"lokal/internal/translation/models"
	"lokal/pkg/platform/sentinel"
	"lokal/pkg/platform/tx"
)

const (
	selectResourcesSQL = `
		SELECT r.id, r.sid, t.id, t.lang_id, t.text
		FROM text_resources r
		LEFT JOIN translations t ON t.sid = r.sid`
	listSidsSQL          = `SELECT sid FROM text_resources ORDER BY sid`
	insertResourceSQL    = `INSERT INTO text_resources (id, sid) VALUES ($1, $2)`
	deleteResourceSQL    = `DELETE FROM text_resources WHERE sid = $1`
	insertTranslationSQL = `INSERT INTO translations (sid, lang_id, text) VALUES ($1, $2, $3) RETURNING id`
	updateTranslationSQL = `UPDATE translations SET text = $1 WHERE id = $2`
)

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists aggregates in the text_resources and translations tables.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed resource store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Begin() Repository {
	return &postgresRepository{
		db:      s.db,
		tracked: make(map[string]trackedResource),
		deleted: make(map[string]struct{}),
	}
}

// trackedResource remembers the texts an aggregate was loaded with so Save
// only writes what changed.
type trackedResource struct {
	res    *models.TextResource
	loaded map[int64]string
}

type postgresRepository struct {
	db        *sql.DB
	tracked   map[string]trackedResource
	added     []*models.TextResource
	deleted   map[string]struct{}
	order     []string
	committed bool
}

func (r *postgresRepository) execer(ctx context.Context) dbtx {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return r.db
}

func (r *postgresRepository) ListSids(ctx context.Context) ([]string, error) {
	rows, err := r.execer(ctx).QueryContext(ctx, listSidsSQL)
	if err != nil {
		return nil, fmt.Errorf("list sids: %w", err)
	}
	defer rows.Close()

	var sids []string
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, fmt.Errorf("scan sid: %w", err)
		}
		sids = append(sids, sid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sids: %w", err)
	}
	return sids, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]*models.TextResource, error) {
	loaded, err := r.load(ctx, selectResourcesSQL+` ORDER BY r.sid, t.id`)
	if err != nil {
		return nil, fmt.Errorf("list text resources: %w", err)
	}
	out := make([]*models.TextResource, 0, len(loaded))
	for _, res := range loaded {
		if _, gone := r.deleted[res.Sid()]; gone {
			continue
		}
		out = append(out, r.track(res))
	}
	return out, nil
}

func (r *postgresRepository) GetBySid(ctx context.Context, sid string) (*models.TextResource, error) {
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

	loaded, err := r.load(ctx, selectResourcesSQL+` WHERE r.sid = $1 ORDER BY t.id`, sid)
	if err != nil {
		return nil, fmt.Errorf("get text resource %q: %w", sid, err)
	}
	if len(loaded) == 0 {
		return nil, fmt.Errorf("text resource %q: %w", sid, sentinel.ErrNotFound)
	}
	return r.track(loaded[0]), nil
}

// load runs a resource/translation join and groups rows into aggregates,
// preserving row order.
func (r *postgresRepository) load(ctx context.Context, query string, args ...any) ([]*models.TextResource, error) {
	rows, err := r.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type group struct {
		id           uuid.UUID
		sid          string
		translations []models.Translation
	}
	var groups []*group
	bySid := make(map[string]*group)
	for rows.Next() {
		var (
			resID  uuid.UUID
			sid    string
			trID   sql.NullInt64
			langID sql.NullString
			text   sql.NullString
		)
		if err := rows.Scan(&resID, &sid, &trID, &langID, &text); err != nil {
			return nil, fmt.Errorf("scan text resource: %w", err)
		}
		g, ok := bySid[sid]
		if !ok {
			g = &group{id: resID, sid: sid}
			bySid[sid] = g
			groups = append(groups, g)
		}
		if trID.Valid {
			g.translations = append(g.translations, models.RestoreTranslation(trID.Int64, sid, langID.String, text.String))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*models.TextResource, 0, len(groups))
	for _, g := range groups {
		out = append(out, models.Restore(g.id, g.sid, g.translations))
	}
	return out, nil
}

func (r *postgresRepository) track(res *models.TextResource) *models.TextResource {
	if t, ok := r.tracked[res.Sid()]; ok {
		return t.res
	}
	loaded := make(map[int64]string)
	for _, t := range res.Translations() {
		loaded[t.ID()] = t.Text()
	}
	r.tracked[res.Sid()] = trackedResource{res: res, loaded: loaded}
	r.order = append(r.order, res.Sid())
	return res
}

func (r *postgresRepository) Add(_ context.Context, resource *models.TextResource) error {
	if resource == nil {
		return errors.New("text resource is required")
	}
	r.added = append(r.added, resource)
	return nil
}

func (r *postgresRepository) DeleteBySid(_ context.Context, sid string) error {
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

type idAssignment struct {
	res    *models.TextResource
	langID string
	id     int64
}

func (r *postgresRepository) Save(ctx context.Context) error {
	if r.committed {
		return fmt.Errorf("unit of work already saved: %w", sentinel.ErrInvalidState)
	}

	var assigned []idAssignment
	err := tx.Run(ctx, r.db, func(ctx context.Context) error {
		q := r.execer(ctx)
		for _, sid := range sortedKeys(r.deleted) {
			if _, err := q.ExecContext(ctx, deleteResourceSQL, sid); err != nil {
				return fmt.Errorf("delete text resource %q: %w", sid, err)
			}
		}
		for _, res := range r.added {
			if _, err := q.ExecContext(ctx, insertResourceSQL, res.ID(), res.Sid()); err != nil {
				return fmt.Errorf("insert text resource %q: %w", res.Sid(), err)
			}
			ids, err := insertTranslations(ctx, q, res, res.Translations())
			if err != nil {
				return err
			}
			assigned = append(assigned, ids...)
		}
		for _, sid := range r.order {
			t, ok := r.tracked[sid]
			if !ok {
				continue
			}
			var fresh []models.Translation
			for _, tr := range t.res.Translations() {
				if tr.ID() == 0 {
					fresh = append(fresh, tr)
					continue
				}
				if prev, ok := t.loaded[tr.ID()]; ok && prev == tr.Text() {
					continue
				}
				if _, err := q.ExecContext(ctx, updateTranslationSQL, tr.Text(), tr.ID()); err != nil {
					return fmt.Errorf("update translation %d: %w", tr.ID(), err)
				}
			}
			ids, err := insertTranslations(ctx, q, t.res, fresh)
			if err != nil {
				return err
			}
			assigned = append(assigned, ids...)
		}
		return nil
	})
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("save text resources: %w: %s", sentinel.ErrConflict, err.Error())
		}
		return fmt.Errorf("save text resources: %w", err)
	}

	for _, a := range assigned {
		a.res.AssignTranslationID(a.langID, a.id)
	}
	r.committed = true
	r.added = nil
	r.deleted = make(map[string]struct{})
	return nil
}

func insertTranslations(ctx context.Context, q dbtx, res *models.TextResource, translations []models.Translation) ([]idAssignment, error) {
	out := make([]idAssignment, 0, len(translations))
	for _, t := range translations {
		var id int64
		if err := q.QueryRowContext(ctx, insertTranslationSQL, res.Sid(), t.LangID(), t.Text()).Scan(&id); err != nil {
			return nil, fmt.Errorf("insert translation %s/%s: %w", res.Sid(), t.LangID(), err)
		}
		out = append(out, idAssignment{res: res, langID: t.LangID(), id: id})
	}
	return out, nil
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
