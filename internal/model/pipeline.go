package model

import "time"

// StageDecl is one entry in a DeclaredPipeline's ordered stage list.
//
// BodyHandle is an opaque reference to the stage's compiled script body; it
// is only ever dereferenced by the execution-sandbox evaluator in package
// scriptlang. Nothing outside that package may inspect its concrete type,
// mirroring the teacher's hcl.Expression fields that defer evaluation to a
// later stage (model/step.go's doc comment on "Why store raw
// hcl.Expression fields?" explains the same deferral for a different
// engine).
type StageDecl struct {
	Name             string
	Container        string // image reference; empty if the stage has none
	HasCondition     bool
	ConditionHandle  any
	BodyHandle       any
}

// DeclaredPipeline is the metadata-sandbox extraction of a pipeline script:
// its declarative structure, with stage bodies left as opaque handles.
type DeclaredPipeline struct {
	Name        string
	Description string
	Inputs      map[string]InputDefinition
	RunnerTags  TagSet
	Plugins     []string
	Stages      []StageDecl
}

// Pipeline is immutable after creation (spec §3).
type Pipeline struct {
	ID          string
	Name        string
	Description string
	Source      string
	Declared    DeclaredPipeline
	CreatedAt   time.Time
}
