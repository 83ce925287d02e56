package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// State holds the schema definition for the State entity.
// A state owns its input and output summaries; each direction is either
// free text or the join of its linked term labels.
type State struct {
	ent.Schema
}

// Annotations of the State.
func (State) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "states"},
	}
}

// Mixin of the State.
func (State) Mixin() []ent.Mixin {
	return []ent.Mixin{
		TimeMixin{},
		ActorMixin{},
	}
}

// Fields of the State.
func (State) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("project_id").
			NotEmpty().
			Immutable(),
		field.String("name").
			NotEmpty().
			MaxLen(255),
		field.Text("description").
			Default(""),
		field.Text("input_summary").
			Default(""),
		field.Text("output_summary").
			Default(""),
		field.Enum("input_source").
			Values("text", "terms").
			Default("text"),
		field.Enum("output_source").
			Values("text", "terms").
			Default("text"),
	}
}

// Edges of the State.
func (State) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("io_links", StateIOLink.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the State.
func (State) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("project_id", "name").Unique(), // name unique per project
	}
}
