package graph

import "time"

// DefaultLogSize bounds change and interaction logs unless configured otherwise.
const DefaultLogSize = 20

type Action string

const (
	ActionAddNode    Action = "add_node"
	ActionUpdateNode Action = "update_node"
	ActionDeleteNode Action = "delete_node"
	ActionAddEdge    Action = "add_edge"
	ActionUpdateEdge Action = "update_edge"
	ActionDeleteEdge Action = "delete_edge"
)

// EdgeRef identifies an arena slot together with its endpoints.
type EdgeRef struct {
	Index  int    `json:"index"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Change is one logged mutation. Previous holds the pre-image for updates and deletes.
type Change struct {
	Action     Action     `json:"action"`
	Node       string     `json:"node,omitempty"`
	Edge       *EdgeRef   `json:"edge,omitempty"`
	Properties Properties `json:"properties,omitempty"`
	Previous   Properties `json:"previous,omitempty"`
	At         time.Time  `json:"at"`
}

// ChangeLog is a fixed-capacity ring; the oldest entry is overwritten when full.
// It is not safe for concurrent use on its own.
type ChangeLog struct {
	entries []Change
	start   int
	size    int
}

func NewChangeLog(capacity int) *ChangeLog {
	if capacity <= 0 {
		capacity = DefaultLogSize
	}
	return &ChangeLog{entries: make([]Change, capacity)}
}

func (l *ChangeLog) Append(c Change) {
	if c.At.IsZero() {
		c.At = time.Now()
	}
	n := len(l.entries)
	if l.size < n {
		l.entries[(l.start+l.size)%n] = c
		l.size++
		return
	}
	l.entries[l.start] = c
	l.start = (l.start + 1) % n
}

// Changes returns the retained entries, oldest first.
func (l *ChangeLog) Changes() []Change {
	out := make([]Change, 0, l.size)
	for i := 0; i < l.size; i++ {
		out = append(out, l.entries[(l.start+i)%len(l.entries)])
	}
	return out
}

func (l *ChangeLog) Len() int { return l.size }

func (l *ChangeLog) Cap() int { return len(l.entries) }
