package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"

	"github.com/google/uuid"

	"github.com/lernblick/lernblick/constants"
	"github.com/lernblick/lernblick/db/ent/schema/utils"
)

type AnalysisResult struct {
	ent.Schema
}

func (AnalysisResult) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "analysis_results"},
	}
}

func (AnalysisResult) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable().
			StorageKey("id"),
		field.UUID("upload_id", uuid.UUID{}).Unique(),
		// full MergedAnalysis, opaque to the schema
		field.JSON("merged", map[string]any{}).
			SchemaType(map[string]string{dialect.Postgres: "jsonb"}),
		field.Text("extracted_text").Optional(),
		field.Float32("ocr_confidence").Optional(),
		field.String("grade").Optional(),
		field.String("grade_agreement").
			Default(string(constants.AgreementNone)).
			Validate(utils.EnumValidator(
				string(constants.AgreementFull),
				string(constants.AgreementPartial),
				string(constants.AgreementNone),
			)),
		field.Int("consensus_score").NonNegative().Default(0),
		field.Strings("providers").Optional(),
		field.Time("created_at").Default(time.Now),
	}
}

func (AnalysisResult) Edges() []ent.Edge {
	return []ent.Edge{
		// ONE result -> ONE upload
		edge.From("upload", Upload.Type).
			Ref("result").
			Field("upload_id").
			Required().
			Unique(),
	}
}
