// Package schema contains Ent schema definitions for the stateflow data model.
//
// The runtime schema is applied from internal/repository/sqlc/schema.sql;
// these definitions describe the same tables for ent tooling and must be
// kept in step with it.
package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/mixin"
)

// TimeMixin adds created_at and updated_at fields to schemas.
type TimeMixin struct {
	mixin.Schema
}

// Fields of the TimeMixin.
func (TimeMixin) Fields() []ent.Field {
	return []ent.Field{
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// AuditMixin adds created_at (immutable, no updated_at) for rows that are
// replaced rather than updated.
type AuditMixin struct {
	mixin.Schema
}

// Fields of the AuditMixin.
func (AuditMixin) Fields() []ent.Field {
	return []ent.Field{
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// ActorMixin records who created and last updated a row.
type ActorMixin struct {
	mixin.Schema
}

// Fields of the ActorMixin.
func (ActorMixin) Fields() []ent.Field {
	return []ent.Field{
		field.String("created_by").
			Default("").
			Immutable(),
		field.String("updated_by").
			Default(""),
	}
}
