// Package viewer exposes the model registry as a browsable schema: a JSON API describing
// apps, models, fields and relationships, and a static HTML page that renders it.
package viewer

// ModelInfo describes one registered model.
type ModelInfo struct {
	AppLabel          string           `json:"app_label"`                 // App label (namespace id)
	ModelName         string           `json:"model_name"`                // Lower-cased model name
	VerboseName       string           `json:"verbose_name"`              // Singular display name
	VerboseNamePlural string           `json:"verbose_name_plural"`       // Plural display name
	DBTable           string           `json:"db_table"`                  // Storage table name
	Abstract          bool             `json:"abstract"`                  // Abstract base model
	Proxy             bool             `json:"proxy"`                     // Proxy over a concrete model
	Managed           bool             `json:"managed"`                   // Table managed by the framework
	AppConfig         string           `json:"app_config"`                // App display name
	Parents           []ModelRef       `json:"parents,omitempty"`         // Concrete parent models
	Fields            []FieldInfo      `json:"fields"`                    // Non-relation fields
	Relationships     []RelationInfo   `json:"relationships"`             // Forward and reverse relations
	Indexes           []IndexInfo      `json:"indexes,omitempty"`         // Declared indexes
	Constraints       []ConstraintInfo `json:"constraints,omitempty"`     // Declared constraints
	UniqueTogether    [][]string       `json:"unique_together,omitempty"` // Legacy multi-field uniqueness
}

// ModelRef points at a model by app label and model name.
type ModelRef struct {
	App   string `json:"app"`
	Model string `json:"model"`
}

// FieldInfo describes a concrete field.
type FieldInfo struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"` // Primitive type tag (e.g., "string", "bigauto")
	VerboseName string       `json:"verbose_name"`
	HelpText    string       `json:"help_text,omitempty"`
	PrimaryKey  bool         `json:"primary_key"`
	Unique      bool         `json:"unique"`
	Null        bool         `json:"null"`
	Blank       bool         `json:"blank"`
	DBIndex     bool         `json:"db_index"`
	Editable    bool         `json:"editable"`
	Default     *string      `json:"default,omitempty"` // Stringified default or placeholder
	Choices     []ChoiceInfo `json:"choices,omitempty"`
	MaxLength   *int         `json:"max_length,omitempty"`
}

// ChoiceInfo is one allowed value of a field.
type ChoiceInfo struct {
	Value interface{} `json:"value"`
	Label string      `json:"label"`
}

// RelationInfo describes a relation. Forward relations carry related_name, null, on_delete
// and through; reverse relations carry field_name.
type RelationInfo struct {
	Name        string    `json:"name"`
	Type        string    `json:"type"`      // foreign_key, one_to_one or many_to_many
	Direction   string    `json:"direction"` // forward or reverse
	TargetApp   string    `json:"target_app"`
	TargetModel string    `json:"target_model"`
	RelatedName string    `json:"related_name,omitempty"`
	Null        *bool     `json:"null,omitempty"`
	OnDelete    string    `json:"on_delete,omitempty"`
	Through     *ModelRef `json:"through,omitempty"`
	FieldName   string    `json:"field_name,omitempty"`
}

// IndexInfo describes an index.
type IndexInfo struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
}

// ConstraintInfo describes a constraint.
type ConstraintInfo struct {
	Name string `json:"name"`
	Type string `json:"type"` // check or unique
}

// MethodInfo names a model method.
type MethodInfo struct {
	Name string `json:"name"`
}

// ManagerInfo describes a model manager.
type ManagerInfo struct {
	Name  string `json:"name"`
	Class string `json:"class"`
}

// ModelDetail is the single-model response: the model descriptor plus its methods and managers.
type ModelDetail struct {
	ModelInfo
	Methods  []MethodInfo  `json:"methods,omitempty"`
	Managers []ManagerInfo `json:"managers,omitempty"`
}

// AppSchema groups the models of one app.
type AppSchema struct {
	VerboseName string                `json:"verbose_name"`
	Models      map[string]*ModelInfo `json:"models"`
}

// SchemaDocument is the full-schema response.
type SchemaDocument struct {
	Apps map[string]*AppSchema `json:"apps"`
}
