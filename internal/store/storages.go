package store

import (
	"time"

	"github.com/MKhiriev/go-sync-core/internal/logger"
	"github.com/MKhiriev/go-sync-core/internal/notify"
	"github.com/MKhiriev/go-sync-core/internal/utils"
	"github.com/MKhiriev/go-sync-core/internal/validators"
	"github.com/MKhiriev/go-sync-core/models"
)

const defaultLockStripes = 64

// Storages groups the local storage components sharing one database.
type Storages struct {
	Records RecordStore
	Tracker SyncStateTracker
	Meta    SyncMetaStorage

	changes *notify.Broadcaster[models.ChangeEvent]
}

type options struct {
	now     func() time.Time
	ids     utils.IDGenerator
	stripes int
}

// Option customises [NewStorages].
type Option func(*options)

// WithClock replaces time.Now as the source of local timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator replaces the UUIDv7 local id generator.
func WithIDGenerator(ids utils.IDGenerator) Option {
	return func(o *options) { o.ids = ids }
}

// WithLockStripes sets the number of per-record lock stripes.
func WithLockStripes(n int) Option {
	return func(o *options) { o.stripes = n }
}

// NewStorages wires the record store, the sync state tracker and the meta
// storage over db. validator checks every payload passed to Put.
func NewStorages(db *DB, validator validators.Validator, log *logger.Logger, opts ...Option) *Storages {
	o := options{
		now:     time.Now,
		ids:     utils.NewUUIDGenerator(),
		stripes: defaultLockStripes,
	}
	for _, opt := range opts {
		opt(&o)
	}

	locks := newStripedLocks(o.stripes)
	changes := notify.NewBroadcaster[models.ChangeEvent]()

	meta := &syncMetaRepository{
		DB:     db,
		logger: log.WithComponent("sync_meta"),
	}
	tracker := &syncStateRepository{
		DB:     db,
		locks:  locks,
		now:    o.now,
		logger: log.WithComponent("sync_state"),
	}
	records := &recordRepository{
		DB:        db,
		tracker:   tracker,
		meta:      meta,
		validator: validator,
		locks:     locks,
		ids:       o.ids,
		now:       o.now,
		changes:   changes,
		logger:    log.WithComponent("record_store"),
	}

	return &Storages{
		Records: records,
		Tracker: tracker,
		Meta:    meta,
		changes: changes,
	}
}

// Close ends the change stream. Subscribers get the queued events first.
func (s *Storages) Close() {
	s.changes.Close()
}
