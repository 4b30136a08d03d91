package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/hevysync/internal/models"
)

// Policy selects how a row set is merged into its table.
type Policy string

const (
	// PolicyOverwrite purges the table and inserts the row set.
	PolicyOverwrite Policy = "overwrite"
	// PolicyAppendUnique inserts only rows whose identity is not yet stored.
	PolicyAppendUnique Policy = "append_unique"
)

// FilterOp is a comparison understood by every Store backend.
type FilterOp string

// FilterNotEqual matches rows whose column differs from the value.
const FilterNotEqual FilterOp = "neq"

// Filter scopes a delete to the rows matching Column Op Value.
type Filter struct {
	Column string
	Op     FilterOp
	Value  any
}

// Store is the table-oriented interface the reconciler needs from a backend.
// Insert receives a single chunk; chunking is the caller's job.
type Store interface {
	Exists(ctx context.Context, table string) (bool, error)
	Create(ctx context.Context, table string, columns []models.Column) error
	Select(ctx context.Context, table string, columns []string, offset, limit int) ([]map[string]any, error)
	Delete(ctx context.Context, table string, filter Filter) error
	Insert(ctx context.Context, table string, columns []string, rows [][]any) error
}

// Options tunes chunking and pagination. Zero sizes and column names take
// the defaults; a zero PageDelay disables pacing.
type Options struct {
	ChunkSize      int
	PageSize       int
	PageDelay      time.Duration
	IdentityColumn string
	PurgeColumn    string
}

// DefaultOptions returns the store limits the sync was tuned against.
func DefaultOptions() Options {
	return Options{
		ChunkSize:      400,
		PageSize:       1000,
		PageDelay:      200 * time.Millisecond,
		IdentityColumn: "row_id",
		PurgeColumn:    "workout_id",
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ChunkSize <= 0 {
		o.ChunkSize = d.ChunkSize
	}
	if o.PageSize <= 0 {
		o.PageSize = d.PageSize
	}
	if o.PageDelay < 0 {
		o.PageDelay = 0
	}
	if o.IdentityColumn == "" {
		o.IdentityColumn = d.IdentityColumn
	}
	if o.PurgeColumn == "" {
		o.PurgeColumn = d.PurgeColumn
	}
	return o
}

// Result summarizes one reconciliation.
type Result struct {
	Table    string `json:"table"`
	Policy   Policy `json:"policy"`
	Created  bool   `json:"created"`
	Deleted  bool   `json:"deleted"`
	Existing int    `json:"existing"`
	Inserted int    `json:"inserted"`
	Chunks   int    `json:"chunks"`
	NoOp     bool   `json:"no_op"`
}

// Reconciler synchronizes canonical row sets with tables in a Store.
type Reconciler struct {
	store Store
	opts  Options
	log   *slog.Logger
}

// New creates a Reconciler.
func New(store Store, opts Options, log *slog.Logger) *Reconciler {
	return &Reconciler{store: store, opts: opts.withDefaults(), log: log}
}

// Options returns the effective options.
func (r *Reconciler) Options() Options {
	return r.opts
}

// Sync dispatches to the given policy.
func (r *Reconciler) Sync(ctx context.Context, table string, policy Policy, rows models.RowSet) (*Result, error) {
	switch policy {
	case PolicyOverwrite:
		return r.Overwrite(ctx, table, rows)
	case PolicyAppendUnique:
		return r.AppendUnique(ctx, table, rows)
	default:
		return nil, fmt.Errorf("unknown policy %q", policy)
	}
}

// Overwrite replaces the contents of table with rows. The purge and the
// inserts are separate calls: a failure in between leaves the table empty or
// partially populated, and the caller must re-run.
func (r *Reconciler) Overwrite(ctx context.Context, table string, rows models.RowSet) (*Result, error) {
	res := &Result{Table: table, Policy: PolicyOverwrite}

	created, err := r.ensureTable(ctx, table, rows.Columns)
	if err != nil {
		return res, err
	}
	res.Created = created

	// The purge filter is always true: the purge column is never empty.
	purge := Filter{Column: r.opts.PurgeColumn, Op: FilterNotEqual, Value: ""}
	if err := r.store.Delete(ctx, table, purge); err != nil {
		return res, fmt.Errorf("purging %s: %w", table, err)
	}
	res.Deleted = true
	r.log.Info("table purged", "table", table)

	if err := r.insertChunks(ctx, table, rows.ColumnNames(), rows.Rows, res); err != nil {
		return res, err
	}
	r.log.Info("table overwritten", "table", table, "rows", res.Inserted, "chunks", res.Chunks)
	return res, nil
}

// AppendUnique inserts the rows of rows whose identity column value is not
// present in table. Stored rows are never modified.
func (r *Reconciler) AppendUnique(ctx context.Context, table string, rows models.RowSet) (*Result, error) {
	res := &Result{Table: table, Policy: PolicyAppendUnique}

	idCol := rows.Index(r.opts.IdentityColumn)
	if idCol < 0 {
		return res, fmt.Errorf("row set for %s has no identity column %q", table, r.opts.IdentityColumn)
	}

	created, err := r.ensureTable(ctx, table, rows.Columns)
	if err != nil {
		return res, err
	}
	res.Created = created
	if created {
		if err := r.insertChunks(ctx, table, rows.ColumnNames(), rows.Rows, res); err != nil {
			return res, err
		}
		r.log.Info("table populated", "table", table, "rows", res.Inserted, "chunks", res.Chunks)
		return res, nil
	}

	seen, err := r.existingIdentities(ctx, table)
	if err != nil {
		return res, err
	}
	res.Existing = len(seen)

	fresh := make([][]any, 0, len(rows.Rows))
	for _, row := range rows.Rows {
		id, ok := identityKey(row[idCol])
		if !ok {
			return res, fmt.Errorf("row for %s has empty %s", table, r.opts.IdentityColumn)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		fresh = append(fresh, row)
	}

	if len(fresh) == 0 {
		res.NoOp = true
		r.log.Info("no new rows", "table", table, "existing", res.Existing)
		return res, nil
	}

	if err := r.insertChunks(ctx, table, rows.ColumnNames(), fresh, res); err != nil {
		return res, err
	}
	r.log.Info("rows appended", "table", table, "rows", res.Inserted, "existing", res.Existing, "chunks", res.Chunks)
	return res, nil
}

// ensureTable creates table from columns when it does not exist yet.
func (r *Reconciler) ensureTable(ctx context.Context, table string, columns []models.Column) (bool, error) {
	ok, err := r.store.Exists(ctx, table)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", table, err)
	}
	if ok {
		return false, nil
	}
	if err := r.store.Create(ctx, table, columns); err != nil {
		return false, fmt.Errorf("creating table %s: %w", table, err)
	}
	r.log.Info("table created", "table", table, "columns", len(columns))
	return true, nil
}

// existingIdentities pages through the identity column until a page comes
// back empty, pausing PageDelay between requests.
func (r *Reconciler) existingIdentities(ctx context.Context, table string) (map[string]struct{}, error) {
	seen := make(map[string]struct{})
	cols := []string{r.opts.IdentityColumn}

	for offset := 0; ; {
		page, err := r.store.Select(ctx, table, cols, offset, r.opts.PageSize)
		if err != nil {
			return nil, fmt.Errorf("reading %s identities at offset %d: %w", table, offset, err)
		}
		if len(page) == 0 {
			return seen, nil
		}
		for _, rec := range page {
			if id, ok := identityKey(rec[r.opts.IdentityColumn]); ok {
				seen[id] = struct{}{}
			}
		}
		offset += len(page)

		if err := sleep(ctx, r.opts.PageDelay); err != nil {
			return nil, err
		}
	}
}

// insertChunks encodes rows and inserts them ChunkSize at a time.
func (r *Reconciler) insertChunks(ctx context.Context, table string, columns []string, rows [][]any, res *Result) error {
	encoded := encodeRows(rows)
	for start := 0; start < len(encoded); start += r.opts.ChunkSize {
		end := min(start+r.opts.ChunkSize, len(encoded))
		if err := r.store.Insert(ctx, table, columns, encoded[start:end]); err != nil {
			return fmt.Errorf("inserting into %s (rows %d-%d): %w", table, start, end-1, err)
		}
		res.Chunks++
		res.Inserted += end - start
		r.log.Debug("chunk inserted", "table", table, "rows", end-start)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
