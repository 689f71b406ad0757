package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/google/uuid"

	"github.com/lernblick/lernblick/constants"
	"github.com/lernblick/lernblick/db/ent/schema/utils"
)

type Upload struct {
	ent.Schema
}

func (Upload) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "uploads"},
	}
}

func (Upload) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable().
			StorageKey("id"),
		// explicit FK so we can define indexes on it
		field.UUID("child_id", uuid.UUID{}),
		field.String("source_path").NotEmpty(),
		field.String("filename").NotEmpty(),
		field.String("file_ext").NotEmpty(),
		field.Int("file_size").NonNegative(),
		field.String("status").
			Default(string(constants.StatusUploaded)).
			Validate(utils.EnumValidator(constants.UploadStatuses...)),
		field.String("error_message").Optional(),
		field.Time("uploaded_at").Default(time.Now),
	}
}

func (Upload) Edges() []ent.Edge {
	return []ent.Edge{
		// MANY uploads -> ONE child
		edge.From("child", Child.Type).
			Ref("uploads").
			Field("child_id").
			Required().
			Unique(),
		// ONE upload -> ONE result
		edge.To("result", AnalysisResult.Type).
			Unique(),
	}
}

func (Upload) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("child_id", "uploaded_at"),
		index.Fields("status"),
	}
}
