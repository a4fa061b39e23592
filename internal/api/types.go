// Package api is the HTTP/JSON client for the gridd cluster control plane.
package api

import "time"

// TaskStatus is the lifecycle state of a task as reported by the cluster.
type TaskStatus int

const (
	TaskStatusUnspecified TaskStatus = iota
	TaskStatusCreating
	TaskStatusSubmitted
	TaskStatusDispatched
	TaskStatusProcessing
	TaskStatusProcessed
	TaskStatusCompleted
	TaskStatusCancelling
	TaskStatusCancelled
	TaskStatusError
	TaskStatusTimeout
	TaskStatusRetried
)

var taskStatusNames = [...]string{
	"UNSPECIFIED", "CREATING", "SUBMITTED", "DISPATCHED", "PROCESSING",
	"PROCESSED", "COMPLETED", "CANCELLING", "CANCELLED", "ERROR", "TIMEOUT",
	"RETRIED",
}

func (s TaskStatus) String() string {
	if int(s) < 0 || int(s) >= len(taskStatusNames) {
		return "UNKNOWN"
	}
	return taskStatusNames[s]
}

// TaskStatusLabels returns the names of every task status, in declaration
// order. The watch tracker seeds one interval sequence per label.
func TaskStatusLabels() []string {
	labels := make([]string, len(taskStatusNames))
	copy(labels, taskStatusNames[:])
	return labels
}

// ResultStatus is the lifecycle state of a result.
type ResultStatus int

const (
	ResultStatusUnspecified ResultStatus = iota
	ResultStatusCreated
	ResultStatusCompleted
	ResultStatusAborted
	ResultStatusDeleted
)

var resultStatusNames = [...]string{
	"UNSPECIFIED", "CREATED", "COMPLETED", "ABORTED", "DELETED",
}

func (s ResultStatus) String() string {
	if int(s) < 0 || int(s) >= len(resultStatusNames) {
		return "UNKNOWN"
	}
	return resultStatusNames[s]
}

// ResultStatusLabels returns the names of every result status, in declaration
// order.
func ResultStatusLabels() []string {
	labels := make([]string, len(resultStatusNames))
	copy(labels, resultStatusNames[:])
	return labels
}

// SessionStatus is the lifecycle state of a session.
type SessionStatus int

const (
	SessionStatusUnspecified SessionStatus = iota
	SessionStatusRunning
	SessionStatusPaused
	SessionStatusCancelled
	SessionStatusClosed
	SessionStatusPurged
	SessionStatusDeleted
)

var sessionStatusNames = [...]string{
	"UNSPECIFIED", "RUNNING", "PAUSED", "CANCELLED", "CLOSED", "PURGED",
	"DELETED",
}

func (s SessionStatus) String() string {
	if int(s) < 0 || int(s) >= len(sessionStatusNames) {
		return "UNKNOWN"
	}
	return sessionStatusNames[s]
}

// TaskOptions are the default execution options attached to a session or an
// individual task.
type TaskOptions struct {
	MaxDuration          time.Duration     `json:"max_duration"`
	MaxRetries           int               `json:"max_retries"`
	Priority             int               `json:"priority"`
	PartitionID          string            `json:"partition_id,omitempty"`
	ApplicationName      string            `json:"application_name,omitempty"`
	ApplicationVersion   string            `json:"application_version,omitempty"`
	ApplicationNamespace string            `json:"application_namespace,omitempty"`
	ApplicationService   string            `json:"application_service,omitempty"`
	EngineType           string            `json:"engine_type,omitempty"`
	Options              map[string]string `json:"options,omitempty"`
}

// Task is a unit of work scheduled on the cluster.
type Task struct {
	ID                    string       `json:"id"`
	SessionID             string       `json:"session_id"`
	OwnerPodID            string       `json:"owner_pod_id,omitempty"`
	PodHostname           string       `json:"pod_hostname,omitempty"`
	PayloadID             string       `json:"payload_id,omitempty"`
	Status                TaskStatus   `json:"status"`
	StatusMessage         string       `json:"status_message,omitempty"`
	CountDataDependencies int          `json:"count_data_dependencies"`
	CountExpectedOutputs  int          `json:"count_expected_outputs"`
	CreatedAt             time.Time    `json:"created_at"`
	StartedAt             *time.Time   `json:"started_at,omitempty"`
	EndedAt               *time.Time   `json:"ended_at,omitempty"`
	Options               *TaskOptions `json:"options,omitempty"`
}

// ResultDefinition describes a result to create. A nil Data creates the
// metadata only; the data can be uploaded later.
type ResultDefinition struct {
	Name string `json:"name"`
	Data []byte `json:"data,omitempty"`
}

// TaskDefinition describes a task to submit.
type TaskDefinition struct {
	PayloadID        string       `json:"payload_id"`
	ExpectedOutputs  []string     `json:"expected_outputs"`
	DataDependencies []string     `json:"data_dependencies,omitempty"`
	Options          *TaskOptions `json:"options,omitempty"`
}

// Result is a piece of data produced or consumed by tasks.
type Result struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	SessionID   string       `json:"session_id"`
	OwnerTaskID string       `json:"owner_task_id,omitempty"`
	CreatedBy   string       `json:"created_by,omitempty"`
	Status      ResultStatus `json:"status"`
	Size        int64        `json:"size"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// Session groups tasks and results under shared default options.
type Session struct {
	ID           string        `json:"id"`
	Status       SessionStatus `json:"status"`
	PartitionIDs []string      `json:"partition_ids"`
	Options      *TaskOptions  `json:"options,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	CancelledAt  *time.Time    `json:"cancelled_at,omitempty"`
	ClosedAt     *time.Time    `json:"closed_at,omitempty"`
}

// Partition is a pool of compute pods tasks can be scheduled on.
type Partition struct {
	ID                   string   `json:"id"`
	ParentPartitionIDs   []string `json:"parent_partition_ids,omitempty"`
	PodMax               int      `json:"pod_max"`
	PodReserved          int      `json:"pod_reserved"`
	PreemptionPercentage int      `json:"preemption_percentage"`
	Priority             int      `json:"priority"`
}

// SortDirection orders list responses.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ListQuery selects and orders one page of entities.
type ListQuery struct {
	Filter        string
	SessionID     string
	Page          int
	PageSize      int
	SortBy        string
	SortDirection SortDirection
}

// VersionInfo reports the component versions of the cluster.
type VersionInfo struct {
	Core string `json:"core"`
	API  string `json:"api"`
}

// HealthCheck is the reported health of one cluster component.
type HealthCheck struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}
