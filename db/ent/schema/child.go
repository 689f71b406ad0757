package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"

	"github.com/google/uuid"
)

type Child struct {
	ent.Schema
}

func (Child) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "children"},
	}
}

func (Child) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable().
			StorageKey("id"),
		field.String("name").NotEmpty(),
		field.String("grade_level").Optional(), // e.g. "3. Klasse"
		field.String("target_language").Default("de"),
		field.Time("created_at").Default(time.Now),
	}
}

func (Child) Edges() []ent.Edge {
	return []ent.Edge{
		// ONE child -> MANY uploads
		edge.To("uploads", Upload.Type),
	}
}
