package model

// Todo is one checklist entry kept by the remote store next to events.
type Todo struct {
	// ID is assigned by the remote store; 0 means not yet assigned.
	ID        int64  `json:"id,omitempty"`
	Content   string `json:"content"`
	Completed Flag   `json:"completed"`
}
