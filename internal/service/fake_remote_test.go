package service

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-sync-core/internal/adapter"
	"github.com/MKhiriev/go-sync-core/internal/config"
	"github.com/MKhiriev/go-sync-core/internal/logger"
	"github.com/MKhiriev/go-sync-core/internal/retry"
	"github.com/MKhiriev/go-sync-core/internal/store"
	"github.com/MKhiriev/go-sync-core/internal/utils"
	"github.com/MKhiriev/go-sync-core/internal/validators"
	"github.com/MKhiriev/go-sync-core/models"
)

// ── clock ─────────────────────────────────────────────────────────────────────

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{t: t}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// ── fake remote ───────────────────────────────────────────────────────────────

type fakeRecord struct {
	ServerID  string
	LocalID   string
	Type      string
	Payload   models.Payload
	Version   int64
	UpdatedAt time.Time
	Deleted   bool
}

// fakeRemote is an in-memory record service with the same contract as the
// HTTP server: a change log served page by page, optimistic version tokens
// on update and idempotent deletes.
type fakeRemote struct {
	mu       sync.Mutex
	records  map[string]*fakeRecord
	log      []models.RemoteChange
	nextID   int
	clock    *testClock
	pageSize int
	// omitHasMore serves pages without the hasMore hint
	omitHasMore bool

	creates     int
	updates     int
	deleteCalls map[string]int
	pulls       []string

	failures map[string][]error
	// hooks run before the named operation, outside the lock
	hooks map[string]func(ctx context.Context) error
}

func newFakeRemote(start time.Time) *fakeRemote {
	return &fakeRemote{
		records:     make(map[string]*fakeRecord),
		clock:       newTestClock(start),
		deleteCalls: make(map[string]int),
		failures:    make(map[string][]error),
		hooks:       make(map[string]func(ctx context.Context) error),
	}
}

func transientErr(op string) error {
	return &adapter.NetworkError{Op: op, StatusCode: http.StatusServiceUnavailable, Transient: true,
		Err: fmt.Errorf("%w: try later", adapter.ErrServerUnavailable)}
}

func definitiveErr(op string) error {
	return &adapter.NetworkError{Op: op, StatusCode: http.StatusBadRequest,
		Err: fmt.Errorf("%w: rejected", adapter.ErrBadRequest)}
}

// failNext queues errors returned by the next calls of op.
func (f *fakeRemote) failNext(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], errs...)
}

func (f *fakeRemote) onNext(op string, hook func(ctx context.Context) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[op] = hook
}

func (f *fakeRemote) before(ctx context.Context, op string) error {
	f.mu.Lock()
	hook := f.hooks[op]
	delete(f.hooks, op)
	var err error
	if q := f.failures[op]; len(q) > 0 {
		err, f.failures[op] = q[0], q[1:]
	}
	f.mu.Unlock()

	if hook != nil {
		if herr := hook(ctx); herr != nil {
			return herr
		}
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (f *fakeRemote) tickLocked() time.Time {
	f.clock.Advance(time.Second)
	return f.clock.Now()
}

func (f *fakeRemote) appendLogLocked(r *fakeRecord) {
	f.log = append(f.log, models.RemoteChange{
		ServerID:  r.ServerID,
		Type:      r.Type,
		Payload:   r.Payload.Clone(),
		UpdatedAt: r.UpdatedAt,
		Deleted:   r.Deleted,
		Version:   r.Version,
	})
}

func (f *fakeRemote) PullChanges(ctx context.Context, cursor string, limit int) (models.ChangesPage, error) {
	if err := f.before(ctx, "pull"); err != nil {
		return models.ChangesPage{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls = append(f.pulls, cursor)

	from := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return models.ChangesPage{}, definitiveErr("pull")
		}
		from = n
	}
	size := limit
	if f.pageSize > 0 {
		size = f.pageSize
	}
	to := len(f.log)
	if size > 0 && from+size < to {
		to = from + size
	}

	// like a real changes feed, a record superseded later in the log is
	// reported only at its latest position
	latest := make(map[string]int, len(f.log))
	for i, ch := range f.log {
		latest[ch.ServerID] = i
	}
	page := models.ChangesPage{NextCursor: strconv.Itoa(to)}
	if !f.omitHasMore {
		more := to < len(f.log)
		page.HasMore = &more
	}
	for i := from; i < to; i++ {
		if latest[f.log[i].ServerID] == i {
			page.Changes = append(page.Changes, f.log[i])
		}
	}
	return page, nil
}

func (f *fakeRemote) Create(ctx context.Context, req models.CreateRecordRequest) (models.CreateRecordResponse, error) {
	if err := f.before(ctx, "create"); err != nil {
		return models.CreateRecordResponse{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	f.nextID++
	r := &fakeRecord{
		ServerID:  fmt.Sprintf("srv-%d", f.nextID),
		LocalID:   req.LocalID,
		Type:      req.Type,
		Payload:   req.Payload.Clone(),
		Version:   req.Version,
		UpdatedAt: f.tickLocked(),
	}
	f.records[r.ServerID] = r
	f.appendLogLocked(r)
	return models.CreateRecordResponse{ServerID: r.ServerID, UpdatedAt: r.UpdatedAt}, nil
}

func (f *fakeRemote) Update(ctx context.Context, serverID string, req models.UpdateRecordRequest) (models.UpdateRecordResponse, error) {
	if err := f.before(ctx, "update"); err != nil {
		return models.UpdateRecordResponse{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	r, ok := f.records[serverID]
	if !ok || r.Deleted {
		return models.UpdateRecordResponse{}, &adapter.NetworkError{
			Op: "update", StatusCode: http.StatusNotFound, Err: adapter.ErrNotFound}
	}
	if req.Version <= r.Version {
		return models.UpdateRecordResponse{}, &adapter.StaleTokenError{
			ServerID: serverID,
			Current: models.StaleRecordResponse{
				CurrentPayload:   r.Payload.Clone(),
				CurrentUpdatedAt: r.UpdatedAt,
				CurrentVersion:   r.Version,
			},
		}
	}
	r.Payload = req.Payload.Clone()
	r.Version = req.Version
	r.UpdatedAt = f.tickLocked()
	f.appendLogLocked(r)
	return models.UpdateRecordResponse{UpdatedAt: r.UpdatedAt}, nil
}

func (f *fakeRemote) Delete(ctx context.Context, serverID string) error {
	if err := f.before(ctx, "delete"); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls[serverID]++
	r, ok := f.records[serverID]
	if !ok || r.Deleted {
		return nil
	}
	r.Deleted = true
	r.Payload = nil
	r.UpdatedAt = f.tickLocked()
	f.appendLogLocked(r)
	return nil
}

func (f *fakeRemote) Ping(ctx context.Context) error {
	return f.before(ctx, "ping")
}

// serverEdit simulates another device updating the record at the given time.
func (f *fakeRemote) serverEdit(serverID string, payload models.Payload, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.records[serverID]
	r.Payload = payload.Clone()
	r.Version++
	r.UpdatedAt = at
	f.appendLogLocked(r)
}

// serverDelete simulates another device deleting the record.
func (f *fakeRemote) serverDelete(serverID string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.records[serverID]
	r.Deleted = true
	r.Payload = nil
	r.Version++
	r.UpdatedAt = at
	f.appendLogLocked(r)
}

// serverInsert simulates a record created by another device.
func (f *fakeRemote) serverInsert(payload models.Payload, at time.Time) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r := &fakeRecord{
		ServerID:  fmt.Sprintf("srv-%d", f.nextID),
		Type:      "note",
		Payload:   payload.Clone(),
		Version:   1,
		UpdatedAt: at,
	}
	f.records[r.ServerID] = r
	f.appendLogLocked(r)
	return r.ServerID
}

func (f *fakeRemote) record(serverID string) fakeRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.records[serverID]
}

func (f *fakeRemote) counts() (creates, updates int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates, f.updates
}

func (f *fakeRemote) deletesOf(serverID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteCalls[serverID]
}

func (f *fakeRemote) pullCursors() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pulls...)
}

// ── harness ───────────────────────────────────────────────────────────────────

func noteSchemas() *validators.SchemaRegistry {
	return validators.NewSchemaRegistry(validators.Schema{
		Type: "note",
		Fields: map[string]validators.FieldSpec{
			"title": {Kind: validators.KindString, Required: true},
			"body":  {Kind: validators.KindString, Mergeable: true},
			"tags":  {Kind: validators.KindArray, Mergeable: true},
		},
	})
}

type harness struct {
	storages *store.Storages
	remote   *fakeRemote
	engine   SyncEngine
	clock    *testClock
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newHarness(t *testing.T, opts ...EngineOption) *harness {
	t.Helper()
	ctx := context.Background()
	log := logger.Nop()

	db, err := store.NewConnectSQLite(ctx, config.ClientDB{DSN: filepath.Join(t.TempDir(), "sync.db")}, log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clk := newTestClock(t0)
	schemas := noteSchemas()
	storages := store.NewStorages(db, schemas, log,
		store.WithClock(clk.Now),
		store.WithIDGenerator(utils.NewSequenceGenerator("loc")),
	)
	t.Cleanup(storages.Close)

	remote := newFakeRemote(t0)
	opts = append([]EngineOption{
		WithRetryConfig(&retry.Config{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}),
		WithEngineClock(clk.Now),
	}, opts...)
	engine := NewSyncEngine(storages, remote, NewConflictResolver(schemas, log), log, opts...)

	return &harness{storages: storages, remote: remote, engine: engine, clock: clk}
}

func notePayload(title string) models.Payload {
	return models.MustPayload(map[string]any{"title": title})
}

func (h *harness) put(t *testing.T, rec models.Record) models.Record {
	t.Helper()
	h.clock.Advance(time.Second)
	out, err := h.storages.Records.Put(context.Background(), rec)
	require.NoError(t, err)
	return out
}

func (h *harness) create(t *testing.T, title string) models.Record {
	t.Helper()
	return h.put(t, models.Record{Type: "note", Payload: notePayload(title)})
}

func (h *harness) pass(t *testing.T) models.PassReport {
	t.Helper()
	return h.engine.RunPass(context.Background(), models.TriggerExplicit)
}

func (h *harness) get(t *testing.T, localID string) (models.Record, models.SyncState) {
	t.Helper()
	rec, err := h.storages.Records.Get(context.Background(), localID)
	require.NoError(t, err)
	st, err := h.storages.Tracker.State(context.Background(), localID)
	require.NoError(t, err)
	return rec, st
}

// synced creates a record and pushes it so that it is clean with a server id.
func (h *harness) synced(t *testing.T, title string) models.Record {
	t.Helper()
	rec := h.create(t, title)
	report := h.pass(t)
	require.Equal(t, models.PassSuccess, report.Outcome, report.Error)
	rec, st := h.get(t, rec.LocalID)
	require.False(t, st.Dirty)
	require.True(t, rec.HasServerID())
	return rec
}
