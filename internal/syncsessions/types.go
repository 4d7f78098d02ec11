package syncsessions

import "time"

// Session, location and operation statuses.
const (
	StatusInProgress = "InProgress"
	StatusCompleted  = "Completed"
	StatusSkipped    = "Skipped"
	StatusFailed     = "Failed"
	StatusUpdated    = "Updated"
)

const entityName = "SYNC_SESSION"

type LogEntry struct {
	At      time.Time         `dynamodbav:"at" json:"at"`
	Message string            `dynamodbav:"message" json:"message"`
	Details map[string]string `dynamodbav:"details,omitempty" json:"details,omitempty"`
}

// Operation is the result of reconciling one SKU.
type Operation struct {
	SKU    string     `dynamodbav:"sku" json:"sku"`
	OldQty int        `dynamodbav:"old_qty" json:"oldQty"`
	NewQty int        `dynamodbav:"new_qty" json:"newQty"`
	At     time.Time  `dynamodbav:"at" json:"at"`
	Result string     `dynamodbav:"result" json:"result"`
	Logs   []LogEntry `dynamodbav:"logs,omitempty" json:"logs,omitempty"`
}

func (o *Operation) Log(at time.Time, msg string, details map[string]string) {
	o.Logs = append(o.Logs, LogEntry{At: at, Message: msg, Details: details})
}

type LocationInfo struct {
	ID   string `dynamodbav:"id" json:"id"`
	Name string `dynamodbav:"name" json:"name"`
}

// LocationResult collects the operations run against one location.
type LocationResult struct {
	Location   LocationInfo `dynamodbav:"location" json:"location"`
	Status     string       `dynamodbav:"status" json:"status"`
	Logs       []LogEntry   `dynamodbav:"logs,omitempty" json:"logs,omitempty"`
	Operations []Operation  `dynamodbav:"operations" json:"operations"`
}

func (l *LocationResult) Log(at time.Time, msg string, details map[string]string) {
	l.Logs = append(l.Logs, LogEntry{At: at, Message: msg, Details: details})
}

// Count returns how many operations ended with result.
func (l *LocationResult) Count(result string) int {
	n := 0
	for _, op := range l.Operations {
		if op.Result == result {
			n++
		}
	}
	return n
}

// Session is one reconciliation run. It is written once, when the run ends.
type Session struct {
	ID          string           `dynamodbav:"id" json:"id"`
	Title       string           `dynamodbav:"title" json:"title"`
	Description string           `dynamodbav:"description" json:"description"`
	StartedAt   time.Time        `dynamodbav:"started_at" json:"startedAt"`
	FinishedAt  *time.Time       `dynamodbav:"finished_at,omitempty" json:"finishedAt,omitempty"`
	Status      string           `dynamodbav:"status" json:"status"`
	Logs        []LogEntry       `dynamodbav:"logs,omitempty" json:"logs,omitempty"`
	Locations   []LocationResult `dynamodbav:"locations" json:"locations"`
	Entity      string           `dynamodbav:"entity" json:"-"`
	SortKey     string           `dynamodbav:"sort_key" json:"-"`
}

func (s *Session) Log(at time.Time, msg string, details map[string]string) {
	s.Logs = append(s.Logs, LogEntry{At: at, Message: msg, Details: details})
}

// Count sums operations with result across every location.
func (s *Session) Count(result string) int {
	n := 0
	for i := range s.Locations {
		n += s.Locations[i].Count(result)
	}
	return n
}
