package service

import (
	"context"
	"slices"

	"github.com/MKhiriev/go-sync-core/internal/logger"
	"github.com/MKhiriev/go-sync-core/internal/validators"
	"github.com/MKhiriev/go-sync-core/models"
)

// ConflictResolver implements store.ConflictPolicy.
//
// A tombstone on either side always wins. Otherwise the later timestamp wins
// (remote updatedAt against local UpdatedAt, a tie goes to the remote) and
// every mergeable field that only the losing side changed since the common
// base is carried over into the merged payload.
type ConflictResolver struct {
	merge  validators.MergePolicy
	logger *logger.Logger
}

// NewConflictResolver creates a resolver. A nil merge policy disables field
// merging.
func NewConflictResolver(merge validators.MergePolicy, log *logger.Logger) *ConflictResolver {
	return &ConflictResolver{merge: merge, logger: log}
}

func (r *ConflictResolver) Resolve(ctx context.Context, local models.Record, state models.SyncState, change models.RemoteChange) models.ConflictResolution {
	res := models.ConflictResolution{
		LocalID:         local.LocalID,
		ServerID:        change.ServerID,
		LocalVersion:    local.Version,
		LocalUpdatedAt:  local.UpdatedAt,
		LocalDeleted:    state.Deleted,
		RemoteUpdatedAt: change.UpdatedAt,
		RemoteDeleted:   change.Deleted,
		LocalPayload:    local.Payload.Clone(),
		RemotePayload:   change.Payload.Clone(),
	}

	switch {
	case state.Deleted && change.Deleted:
		res.Winner = models.WinnerRemote
		res.Reason = models.ReasonBothTombstones
	case state.Deleted:
		res.Winner = models.WinnerLocal
		res.Reason = models.ReasonLocalTombstone
		res.LosingPayload = change.Payload.Clone()
	case change.Deleted:
		res.Winner = models.WinnerRemote
		res.Reason = models.ReasonRemoteTombstone
		res.LosingPayload = local.Payload.Clone()
	default:
		res.Reason = models.ReasonLastWriterWins
		winner, loser := change.Payload, local.Payload
		res.Winner = models.WinnerRemote
		if local.UpdatedAt.After(change.UpdatedAt) {
			res.Winner = models.WinnerLocal
			winner, loser = loser, winner
		}
		res.LosingPayload = loser.Clone()
		res.MergedPayload, res.MergedFields = r.mergeFields(local.Type, winner, loser, state.Base)
	}

	r.log(ctx, res)
	return res
}

// mergeFields starts from winner and copies every mergeable field that loser
// changed relative to base while winner kept it as in base. Without a base
// nothing is merged.
func (r *ConflictResolver) mergeFields(recordType string, winner, loser, base models.Payload) (models.Payload, []string) {
	merged := winner.Clone()
	if merged == nil {
		merged = models.Payload{}
	}
	if base == nil || r.merge == nil {
		return merged, nil
	}

	var fields []string
	for _, field := range winner.Fields(loser, base) {
		if !r.merge.Mergeable(recordType, field) {
			continue
		}
		if loser.FieldEqual(base, field) || !winner.FieldEqual(base, field) {
			continue
		}
		if v, ok := loser[field]; ok {
			merged[field] = slices.Clone(v)
		} else {
			delete(merged, field)
		}
		fields = append(fields, field)
	}
	return merged, fields
}

func (r *ConflictResolver) log(ctx context.Context, res models.ConflictResolution) {
	log := r.logger
	if log == nil {
		log = logger.FromContext(ctx)
	}
	log.Info().
		Str("func", "ConflictResolver.Resolve").
		Str("local_id", res.LocalID).
		Str("server_id", res.ServerID).
		Str("winner", string(res.Winner)).
		Str("reason", string(res.Reason)).
		Int64("local_version", res.LocalVersion).
		Time("local_updated_at", res.LocalUpdatedAt).
		Time("remote_updated_at", res.RemoteUpdatedAt).
		Strs("merged_fields", res.MergedFields).
		Msg("conflict resolved")
}
