package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// StateIOLink holds the schema definition for the StateIOLink entity.
// Links are deleted and re-inserted on every sync, so they carry no
// updated_at.
type StateIOLink struct {
	ent.Schema
}

// Annotations of the StateIOLink.
func (StateIOLink) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "state_io_links"},
	}
}

// Mixin of the StateIOLink.
func (StateIOLink) Mixin() []ent.Mixin {
	return []ent.Mixin{
		AuditMixin{},
	}
}

// Fields of the StateIOLink.
func (StateIOLink) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("state_id").
			Immutable(),
		field.String("io_term_id").
			Immutable(),
		field.Enum("usage_type").
			Values("input", "output").
			Immutable(),
		field.Int("order").
			NonNegative().
			Immutable(),
	}
}

// Edges of the StateIOLink.
func (StateIOLink) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("state", State.Type).
			Ref("io_links").
			Field("state_id").
			Unique().
			Required().
			Immutable(),
		edge.From("io_term", StateIOTerm.Type).
			Ref("links").
			Field("io_term_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the StateIOLink.
func (StateIOLink) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("state_id", "io_term_id", "usage_type").Unique(),
		index.Fields("state_id", "usage_type", "order").Unique(),
		index.Fields("io_term_id", "usage_type"),
	}
}
