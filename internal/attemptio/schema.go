package attemptio

// Schema is a named JSON Schema document.
type Schema struct {
	Name       string
	Definition map[string]any
}

var itemStatSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"correct":      map[string]any{"type": "boolean"},
		"answer_index": map[string]any{"type": "integer", "minimum": 0},
		"time_ms":      map[string]any{"type": "integer", "minimum": 0},
	},
	"required": []any{"correct"},
}

// AttemptSchema describes a submitted quiz attempt.
var AttemptSchema = &Schema{
	Name: "quiz-attempt",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":              map[string]any{"type": "string"},
			"quiz_id":         map[string]any{"type": "string", "minLength": 1},
			"user_id":         map[string]any{"type": "string", "minLength": 1},
			"score":           map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			"total_questions": map[string]any{"type": "integer", "minimum": 0},
			"correct_answers": map[string]any{"type": "integer", "minimum": 0},
			"started_at":      map[string]any{"type": "string"},
			"completed_at":    map[string]any{"type": "string"},
			"item_stats": map[string]any{
				"type":                 "object",
				"additionalProperties": itemStatSchema,
			},
			"adaptive_data": map[string]any{"type": "object"},
		},
		"required":             []any{"quiz_id", "user_id", "item_stats"},
		"additionalProperties": false,
	},
}

var moduleSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"id":             map[string]any{"type": "string", "minLength": 1},
		"title":          map[string]any{"type": "string", "minLength": 1},
		"difficulty":     map[string]any{"type": "integer", "minimum": 1, "maximum": 5},
		"estimated_time": map[string]any{"type": "integer", "minimum": 0},
		"knowledge_components": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string", "minLength": 1},
		},
	},
	"required":             []any{"id", "title", "difficulty"},
	"additionalProperties": false,
}

var questionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"id":   map[string]any{"type": "string"},
		"stem": map[string]any{"type": "string", "minLength": 1},
		"options": map[string]any{
			"type":     "array",
			"items":    map[string]any{"type": "string"},
			"minItems": 2,
		},
		"correct_index":  map[string]any{"type": "integer", "minimum": 0},
		"explanation":    map[string]any{"type": "string"},
		"tags":           map[string]any{"type": "array", "items": map[string]any{"type": "string", "minLength": 1}},
		"difficulty":     map[string]any{"type": "number", "minimum": 0, "maximum": 5},
		"discrimination": map[string]any{"type": "number", "minimum": 0},
	},
	"required":             []any{"stem", "options", "correct_index", "tags", "difficulty"},
	"additionalProperties": false,
}

// CatalogSchema describes a module, quiz and question bank import.
var CatalogSchema = &Schema{
	Name: "content-catalog",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"modules": map[string]any{"type": "array", "items": moduleSchema},
			"quizzes": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":            map[string]any{"type": "string", "minLength": 1},
						"module_id":     map[string]any{"type": "string"},
						"title":         map[string]any{"type": "string", "minLength": 1},
						"difficulty":    map[string]any{"type": "integer", "minimum": 1, "maximum": 5},
						"max_questions": map[string]any{"type": "integer", "minimum": 0},
						"questions":     map[string]any{"type": "array", "items": questionSchema},
					},
					"required":             []any{"id", "title"},
					"additionalProperties": false,
				},
			},
		},
		"additionalProperties": false,
	},
}
