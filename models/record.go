// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"
)

// Payload holds the domain fields of a record. Every value is kept in its
// canonical JSON form so that a payload pushed to the server and pulled back
// compares byte-for-byte equal.
type Payload map[string]json.RawMessage

// NewPayload encodes every value of fields to JSON and returns the resulting
// [Payload]. Returns an error if any value cannot be marshalled.
func NewPayload(fields map[string]any) (Payload, error) {
	p := make(Payload, len(fields))
	for name, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w", name, err)
		}
		p[name] = raw
	}
	return p, nil
}

// MustPayload is like [NewPayload] but panics on error. Intended for tests
// and static fixtures.
func MustPayload(fields map[string]any) Payload {
	p, err := NewPayload(fields)
	if err != nil {
		panic(err)
	}
	return p
}

// Decode unmarshals the named field into dst. Returns false when the field is
// absent.
func (p Payload) Decode(field string, dst any) (bool, error) {
	raw, ok := p[field]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

// Clone returns a deep copy of p.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = slices.Clone(v)
	}
	return out
}

// Equal reports whether p and other carry the same fields with identical
// encoded values.
func (p Payload) Equal(other Payload) bool {
	return maps.EqualFunc(p, other, func(a, b json.RawMessage) bool {
		return bytes.Equal(compactJSON(a), compactJSON(b))
	})
}

// FieldEqual reports whether the named field has the same encoded value in p
// and other. A field missing on both sides is considered equal.
func (p Payload) FieldEqual(other Payload, field string) bool {
	a, okA := p[field]
	b, okB := other[field]
	if okA != okB {
		return false
	}
	return bytes.Equal(compactJSON(a), compactJSON(b))
}

// Fields returns the sorted union of field names of p and others.
func (p Payload) Fields(others ...Payload) []string {
	set := make(map[string]struct{}, len(p))
	for k := range p {
		set[k] = struct{}{}
	}
	for _, o := range others {
		for k := range o {
			set[k] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(set))
}

func compactJSON(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

// Record is a single typed payload kept in the local store.
type Record struct {
	// LocalID is generated on the device when the record is first stored.
	// It is never reused and never changes.
	LocalID string `json:"local_id"`

	// ServerID is assigned by the remote authority after the first
	// successful push. Empty means the record is still create-pending.
	ServerID string `json:"server_id,omitempty"`

	// Type names the schema the payload is validated against.
	Type string `json:"type"`

	// Payload holds the domain fields.
	Payload Payload `json:"payload"`

	// Version is incremented on every local mutation.
	Version int64 `json:"version"`

	// UpdatedAt is the local wall-clock time of the last mutation.
	UpdatedAt time.Time `json:"updated_at"`
}

// HasServerID reports whether the record was ever pushed successfully.
func (r Record) HasServerID() bool {
	return r.ServerID != ""
}

// Clone returns a copy of r that shares no payload memory with it.
func (r Record) Clone() Record {
	r.Payload = r.Payload.Clone()
	return r
}
