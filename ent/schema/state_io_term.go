package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
)

// StateIOTerm holds the schema definition for the StateIOTerm entity.
// Terms are shared across states and never deleted.
type StateIOTerm struct {
	ent.Schema
}

// Annotations of the StateIOTerm.
func (StateIOTerm) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "state_io_terms"},
	}
}

// Mixin of the StateIOTerm.
func (StateIOTerm) Mixin() []ent.Mixin {
	return []ent.Mixin{
		TimeMixin{},
		ActorMixin{},
	}
}

// Fields of the StateIOTerm.
// Label uniqueness is case-insensitive; the backing index is
// UNIQUE (LOWER(label)) in schema.sql, which ent indexes cannot express.
func (StateIOTerm) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("label").
			NotEmpty().
			MaxLen(255),
		field.Text("description").
			Default("").
			MaxLen(2000),
	}
}

// Edges of the StateIOTerm.
func (StateIOTerm) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("links", StateIOLink.Type),
	}
}
