package domain

// TaskStatus enumerates generation task lifecycle states. Transitions only
// move forward along pending -> generating -> {completed|failed}.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusGenerating TaskStatus = "generating"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether no further transition can occur.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// GenerationTask is a backend-tracked asynchronous image/video generation
// job, identified by an opaque task id stable for the job's lifetime.
type GenerationTask struct {
	TaskID            string     `json:"task_id"`
	Status            TaskStatus `json:"status"`
	Progress          int        `json:"progress"`
	Stage             string     `json:"stage"`
	Prompt            string     `json:"prompt"`
	ReferenceImageURL string     `json:"reference_image_url,omitempty"`
	ResultURL         string     `json:"result_url,omitempty"`
	Error             string     `json:"error,omitempty"`
	CreatedAt         string     `json:"created_at"`
}
