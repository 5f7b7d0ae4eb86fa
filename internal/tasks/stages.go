package tasks

// stageLabels maps backend stage strings to user-facing text. Unknown stages
// pass through verbatim.
var stageLabels = map[string]string{
	"preparing":        "Preparing",
	"optimizing":       "Optimizing prompt",
	"generating":       "Generating",
	"generating image": "Generating image",
	"generating video": "Generating video",
	"downloading":      "Downloading result",
	"saving":           "Saving to gallery",
	"completed":        "Completed",
	"failed":           "Failed",
	"not_found":        "Task not found",
}

// StageLabel returns the user-facing label for a backend stage string.
func StageLabel(stage string) string {
	if label, ok := stageLabels[stage]; ok {
		return label
	}
	return stage
}
