package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	// MasteryStatesColumns holds the columns for the "mastery_states" table.
	MasteryStatesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "user_id", Type: field.TypeString},
		{Name: "knowledge_component", Type: field.TypeString},
		{Name: "mastery", Type: field.TypeFloat64},
		{Name: "attempts", Type: field.TypeInt, Default: 0},
		{Name: "last_correct", Type: field.TypeBool, Default: false},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// MasteryStatesTable holds the schema information for the "mastery_states" table.
	MasteryStatesTable = &schema.Table{
		Name:       "mastery_states",
		Columns:    MasteryStatesColumns,
		PrimaryKey: []*schema.Column{MasteryStatesColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "masterystate_user_id_knowledge_component",
				Unique:  true,
				Columns: []*schema.Column{MasteryStatesColumns[1], MasteryStatesColumns[2]},
			},
		},
	}

	// QuizzesColumns holds the columns for the "quizzes" table.
	QuizzesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "module_id", Type: field.TypeString, Default: ""},
		{Name: "title", Type: field.TypeString},
		{Name: "difficulty", Type: field.TypeInt, Default: 1},
		{Name: "max_questions", Type: field.TypeInt, Default: 0},
	}
	// QuizzesTable holds the schema information for the "quizzes" table.
	QuizzesTable = &schema.Table{
		Name:       "quizzes",
		Columns:    QuizzesColumns,
		PrimaryKey: []*schema.Column{QuizzesColumns[0]},
	}

	// QuestionsColumns holds the columns for the "questions" table.
	QuestionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "quiz_id", Type: field.TypeString},
		{Name: "position", Type: field.TypeInt},
		{Name: "stem", Type: field.TypeString, Size: 2147483647},
		{Name: "options", Type: field.TypeJSON},
		{Name: "correct_index", Type: field.TypeInt},
		{Name: "explanation", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "tags", Type: field.TypeJSON},
		{Name: "difficulty", Type: field.TypeFloat64, Default: 1.0},
		{Name: "discrimination", Type: field.TypeFloat64, Default: 0.0},
	}
	// QuestionsTable holds the schema information for the "questions" table.
	QuestionsTable = &schema.Table{
		Name:       "questions",
		Columns:    QuestionsColumns,
		PrimaryKey: []*schema.Column{QuestionsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "question_quiz_id_position",
				Unique:  false,
				Columns: []*schema.Column{QuestionsColumns[1], QuestionsColumns[2]},
			},
		},
	}

	// AttemptsColumns holds the columns for the "attempts" table.
	AttemptsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "quiz_id", Type: field.TypeString},
		{Name: "user_id", Type: field.TypeString},
		{Name: "score", Type: field.TypeFloat64},
		{Name: "total_questions", Type: field.TypeInt},
		{Name: "correct_answers", Type: field.TypeInt},
		{Name: "started_at", Type: field.TypeTime},
		{Name: "completed_at", Type: field.TypeTime, Nullable: true},
		{Name: "item_stats", Type: field.TypeJSON},
		{Name: "adaptive_data", Type: field.TypeJSON, Nullable: true},
		{Name: "seq", Type: field.TypeInt64, Default: 0},
	}
	// AttemptsTable holds the schema information for the "attempts" table.
	AttemptsTable = &schema.Table{
		Name:       "attempts",
		Columns:    AttemptsColumns,
		PrimaryKey: []*schema.Column{AttemptsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "attempt_user_id_started_at_seq",
				Unique:  false,
				Columns: []*schema.Column{AttemptsColumns[2], AttemptsColumns[6], AttemptsColumns[10]},
			},
		},
	}

	// RecommendationsColumns holds the columns for the "recommendations" table.
	RecommendationsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "user_id", Type: field.TypeString},
		{Name: "module_id", Type: field.TypeString},
		{Name: "title", Type: field.TypeString, Default: ""},
		{Name: "reason", Type: field.TypeString, Size: 2147483647},
		{Name: "confidence", Type: field.TypeFloat64, Default: 0.5},
		{Name: "mastery_gain", Type: field.TypeFloat64},
		{Name: "difficulty", Type: field.TypeInt},
		{Name: "estimated_time", Type: field.TypeInt},
		{Name: "model_version", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeTime},
	}
	// RecommendationsTable holds the schema information for the "recommendations" table.
	RecommendationsTable = &schema.Table{
		Name:       "recommendations",
		Columns:    RecommendationsColumns,
		PrimaryKey: []*schema.Column{RecommendationsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "recommendation_user_id_created_at",
				Unique:  false,
				Columns: []*schema.Column{RecommendationsColumns[1], RecommendationsColumns[10]},
			},
		},
	}

	// FlRoundsColumns holds the columns for the "fl_rounds" table.
	FlRoundsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "round_num", Type: field.TypeInt, Unique: true},
		{Name: "client_count", Type: field.TypeInt},
		{Name: "participating_clients", Type: field.TypeInt},
		{Name: "dp_epsilon", Type: field.TypeFloat64, Nullable: true},
		{Name: "status", Type: field.TypeString, Default: RoundPending},
		{Name: "global_metrics", Type: field.TypeJSON, Nullable: true},
		{Name: "started_at", Type: field.TypeTime},
		{Name: "completed_at", Type: field.TypeTime, Nullable: true},
	}
	// FlRoundsTable holds the schema information for the "fl_rounds" table.
	FlRoundsTable = &schema.Table{
		Name:       "fl_rounds",
		Columns:    FlRoundsColumns,
		PrimaryKey: []*schema.Column{FlRoundsColumns[0]},
	}

	// ModulesColumns holds the columns for the "modules" table.
	ModulesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "position", Type: field.TypeInt},
		{Name: "title", Type: field.TypeString},
		{Name: "difficulty", Type: field.TypeInt, Default: 1},
		{Name: "estimated_time", Type: field.TypeInt, Default: 0},
		{Name: "knowledge_components", Type: field.TypeJSON, Nullable: true},
	}
	// ModulesTable holds the schema information for the "modules" table.
	ModulesTable = &schema.Table{
		Name:       "modules",
		Columns:    ModulesColumns,
		PrimaryKey: []*schema.Column{ModulesColumns[0]},
	}

	// PrivacyLogsColumns holds the columns for the "privacy_logs" table.
	PrivacyLogsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "user_id", Type: field.TypeString, Default: ""},
		{Name: "operation", Type: field.TypeString},
		{Name: "epsilon_used", Type: field.TypeFloat64},
		{Name: "noise_level", Type: field.TypeFloat64},
		{Name: "data_subjects", Type: field.TypeInt, Default: 1},
		{Name: "purpose", Type: field.TypeString, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
	}
	// PrivacyLogsTable holds the schema information for the "privacy_logs" table.
	PrivacyLogsTable = &schema.Table{
		Name:       "privacy_logs",
		Columns:    PrivacyLogsColumns,
		PrimaryKey: []*schema.Column{PrivacyLogsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "privacylog_user_id",
				Unique:  false,
				Columns: []*schema.Column{PrivacyLogsColumns[1]},
			},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		MasteryStatesTable,
		QuizzesTable,
		QuestionsTable,
		AttemptsTable,
		RecommendationsTable,
		FlRoundsTable,
		ModulesTable,
		PrivacyLogsTable,
	}
)
