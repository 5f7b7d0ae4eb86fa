package tasks

import (
	"sort"
	"strings"
	"sync"

	"studio/internal/domain"
	"studio/internal/infra"
)

// syntheticPrefixes mark task ids minted locally for secondary flows (direct
// edits, animation jobs). Those are surfaced elsewhere and excluded from the
// active set.
var syntheticPrefixes = []string{"edit-", "anim-"}

// delivered records which terminal outcomes have already been handed to the
// caller. The guards live inside the record so a re-registration under a new
// id naturally resets them.
type delivered struct {
	completion bool
	failure    bool
}

type record struct {
	task      domain.GenerationTask
	delivered delivered
}

// Tracker owns the set of active generation task records, keyed by task id,
// and guarantees each task's completion or failure is acted upon exactly
// once no matter how often the same terminal snapshot is observed.
type Tracker struct {
	mu          sync.Mutex
	tasks       map[string]*record
	onCompleted func(domain.GenerationTask)
	onFailed    func(domain.GenerationTask)
	logger      infra.Logger
}

// NewTracker builds a tracker delivering terminal outcomes to the given
// callbacks. Either callback may be nil.
func NewTracker(logger infra.Logger, onCompleted, onFailed func(domain.GenerationTask)) *Tracker {
	return &Tracker{
		tasks:       make(map[string]*record),
		onCompleted: onCompleted,
		onFailed:    onFailed,
		logger:      logger,
	}
}

// Register adds or replaces the tracked record for task.TaskID. A previously
// unseen id starts with fresh delivery guards; re-registering an id that is
// already tracked keeps its guards, so delivery cannot be re-armed by
// repeating the same registration.
func (t *Tracker) Register(task domain.GenerationTask) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.tasks[task.TaskID]; ok {
		existing.task = task
		return
	}
	t.tasks[task.TaskID] = &record{task: task}
	t.logger.Debug().Str("task_id", task.TaskID).Str("status", string(task.Status)).Msg("tracker: registered task")
}

// Observe applies a fresher snapshot of a tracked task. Non-terminal
// observations only update display state. A completed snapshot with a result
// URL fires the completion callback exactly once per registration; a failed
// snapshot with an error fires the failure callback exactly once.
// Snapshots for unknown ids are ignored.
func (t *Tracker) Observe(snapshot domain.GenerationTask) {
	t.mu.Lock()
	rec, ok := t.tasks[snapshot.TaskID]
	if !ok {
		t.mu.Unlock()
		return
	}
	rec.task = snapshot

	var fire func(domain.GenerationTask)
	switch {
	case snapshot.Status == domain.TaskStatusCompleted && snapshot.ResultURL != "" && !rec.delivered.completion:
		rec.delivered.completion = true
		fire = t.onCompleted
	case snapshot.Status == domain.TaskStatusFailed && snapshot.Error != "" && !rec.delivered.failure:
		rec.delivered.failure = true
		fire = t.onFailed
	}
	t.mu.Unlock()

	if fire != nil {
		t.logger.Info().Str("task_id", snapshot.TaskID).Str("status", string(snapshot.Status)).Msg("tracker: delivering terminal outcome")
		fire(snapshot)
	}
}

// Get returns the current snapshot for a task id.
func (t *Tracker) Get(taskID string) (domain.GenerationTask, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.tasks[taskID]
	if !ok {
		return domain.GenerationTask{}, false
	}
	return rec.task, true
}

// ActiveTasks returns the tasks still pending or generating, excluding
// synthetic ids tracked for secondary flows. Recomputed on every call.
func (t *Tracker) ActiveTasks() []domain.GenerationTask {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []domain.GenerationTask
	for id, rec := range t.tasks {
		if rec.task.Status.Terminal() {
			continue
		}
		if isSynthetic(id) {
			continue
		}
		out = append(out, rec.task)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].TaskID < out[j].TaskID
	})
	return out
}

// Release drops a task record once its terminal side effect has been
// acknowledged by the caller.
func (t *Tracker) Release(taskID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tasks, taskID)
}

// Reset drops all records, for use when the owning session is cleared.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tasks = make(map[string]*record)
}

func isSynthetic(taskID string) bool {
	for _, prefix := range syntheticPrefixes {
		if strings.HasPrefix(taskID, prefix) {
			return true
		}
	}
	return false
}

// DisplayProgress clamps a task's progress to [0,100] for display without
// mutating the stored record.
func DisplayProgress(task domain.GenerationTask) int {
	if task.Progress < 0 {
		return 0
	}
	if task.Progress > 100 {
		return 100
	}
	return task.Progress
}
