// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package validators provides abstractions for payload validation against
// static per-type record schemas.
//
// Core concepts:
//   - Validator: generic interface to validate arbitrary values or structures.
//     Supports optional field-level scoping for targeted validation.
//   - Schema: a static mapping from field name to [FieldSpec] for one record
//     type. Schemas are declared up front; nothing is discovered by reflection.
//   - SchemaRegistry: a set of schemas implementing Validator for records and
//     answering which fields may be merged independently during conflict
//     resolution.
package validators

import "context"

// Validator defines a generic validation interface for arbitrary input values.
// Implementations may perform structural validation, semantic checks,
// cross-field rules.
type Validator interface {

	// Validate validates the provided input and optionally
	// restricts validation to specific named fields.
	Validate(context.Context, any, ...string) error
}

// MergePolicy reports whether a field of a record type may be merged
// independently of the rest of the payload.
type MergePolicy interface {
	Mergeable(recordType, field string) bool
}
