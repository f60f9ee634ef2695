// Package analysis defines the contract with the external graph-analysis service.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"

	"github.com/DrSkyle/netscope/pkg/graph"
)

type TaskKind string

const (
	SocialInfluence    TaskKind = "social_influence_analysis"
	CommunityDetection TaskKind = "community_detection"
	LinkPrediction     TaskKind = "link_prediction"
	NodeEmbedding      TaskKind = "node_embedding"
)

// ErrUpstream reports that the service answered with success 0.
var ErrUpstream = errors.New("analysis failed")

type Options struct {
	Method     string         `json:"method"`
	Parameters map[string]any `json:"parameters"`
}

type Network struct {
	Edges []graph.EdgeRecord `json:"edges"`
}

// Task is the request body sent to the service.
type Task struct {
	TaskID  TaskKind `json:"task_id"`
	Network Network  `json:"network"`
	Options Options  `json:"options"`
}

// Result carries one of three payloads depending on the task kind.
type Result struct {
	Success int    `json:"success"`
	Message string `json:"message"`

	Scores map[string]float64 `json:"scores,omitempty"`

	Communities []map[string]float64          `json:"communities,omitempty"`
	Membership  map[string]map[string]float64 `json:"membership,omitempty"`

	Predictions map[string][]string `json:"predictions,omitempty"`
}

// Err returns an ErrUpstream wrapped error when the service reported failure.
func (r *Result) Err() error {
	if r == nil {
		return fmt.Errorf("%w: empty response", ErrUpstream)
	}
	if r.Success == 0 {
		return fmt.Errorf("%w: %s", ErrUpstream, r.Message)
	}
	return nil
}

// Gateway submits a task and waits for its result.
type Gateway interface {
	Submit(ctx context.Context, task Task) (*Result, error)
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, task Task) (*Result, error)

func (f GatewayFunc) Submit(ctx context.Context, task Task) (*Result, error) { return f(ctx, task) }

// Signature identifies the most recent analysis applied to a view.
type Signature struct {
	TaskID  TaskKind `json:"task_id"`
	Options Options  `json:"options"`
}

// SignatureOf copies the identifying part of task.
func SignatureOf(task Task) Signature {
	return Signature{
		TaskID: task.TaskID,
		Options: Options{
			Method:     task.Options.Method,
			Parameters: maps.Clone(task.Options.Parameters),
		},
	}
}

// SameTask reports whether task would reproduce last. Link prediction never
// matches, and community detection must also agree on K.
func SameTask(last *Signature, task Task) bool {
	if last == nil {
		return false
	}
	if last.TaskID == LinkPrediction || task.TaskID == LinkPrediction {
		return false
	}
	if last.TaskID != task.TaskID || last.Options.Method != task.Options.Method {
		return false
	}
	if task.TaskID == CommunityDetection {
		newK, hasNew := task.Options.Parameters["K"]
		oldK, hasOld := last.Options.Parameters["K"]
		if hasNew && hasOld && !graph.ValuesEqual(oldK, newK) {
			return false
		}
	}
	return true
}

// TopTargets returns up to k targets with the highest scores, ties broken by key.
func TopTargets(scores map[string]float64, k int) []string {
	if k <= 0 {
		k = 3
	}
	keys := make([]string, 0, len(scores))
	for key := range scores {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if scores[keys[i]] != scores[keys[j]] {
			return scores[keys[i]] > scores[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > k {
		keys = keys[:k]
	}
	return keys
}
