package forge

// Stage is the orchestrator's position in the fixed six-step pipeline. The
// stage only ever moves forward: regenerating examples would invalidate
// prior labels and refining would invalidate derived documents, so instead
// of cascade invalidation there is simply no back transition.
type Stage int

const (
	StageDefineIntent Stage = iota
	StageReviewMachine
	StageLabelExamples
	StageReviewRefined
	StageReviewDerived
	StageDownload
)

var stageNames = map[Stage]string{
	StageDefineIntent:  "define-intent",
	StageReviewMachine: "review-machine-policy",
	StageLabelExamples: "label-examples",
	StageReviewRefined: "review-refined-policy",
	StageReviewDerived: "review-derived-policies",
	StageDownload:      "download",
}

// String returns the stage's stable name.
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the pipeline has reached its final stage.
func (s Stage) Terminal() bool { return s == StageDownload }
