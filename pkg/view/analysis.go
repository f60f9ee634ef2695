package view

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/DrSkyle/netscope/pkg/analysis"
)

// Request describes one analysis run over the view.
type Request struct {
	Task       analysis.TaskKind
	Method     string
	Parameters map[string]any
	// ResultOnly returns the service answer without attaching it.
	ResultOnly bool
	// SkipDefaults leaves Parameters untouched. Otherwise link prediction
	// gets the selected nodes as its sources.
	SkipDefaults bool
}

// Task builds the gateway task for req over the visible active edges.
func (v *View) Task(req Request) analysis.Task {
	params := maps.Clone(req.Parameters)
	if params == nil {
		params = make(map[string]any)
	}
	if !req.SkipDefaults && req.Task == analysis.LinkPrediction {
		params["sources"] = v.SelectedNodes()
	}
	return analysis.Task{
		TaskID:  req.Task,
		Network: analysis.Network{Edges: v.ActiveEdgeRecords(false)},
		Options: analysis.Options{Method: req.Method, Parameters: params},
	}
}

// ApplyAnalysis submits req to gw and attaches the result to the active
// elements. A rejected task leaves the view untouched and returns an error
// wrapping analysis.ErrUpstream together with the service result.
func (v *View) ApplyAnalysis(ctx context.Context, gw analysis.Gateway, req Request) (res *analysis.Result, err error) {
	ctx, span := otel.Tracer("netscope/view").Start(ctx, "View.ApplyAnalysis")
	defer span.End()
	span.SetAttributes(
		attribute.String("analysis.task", string(req.Task)),
		attribute.String("analysis.method", req.Method),
		attribute.Bool("analysis.result_only", req.ResultOnly),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	task := v.Task(req)
	if req.ResultOnly {
		return gw.Submit(ctx, task)
	}
	if analysis.SameTask(v.last, task) {
		v.logger.Debug("recomputing analysis identical to the last one", "task", task.TaskID, "method", task.Options.Method)
	}

	res, err = gw.Submit(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to submit %s: %w", task.TaskID, err)
	}
	if err := res.Err(); err != nil {
		v.logger.Warn("analysis rejected", "task", task.TaskID, "method", task.Options.Method, "error", err)
		return res, err
	}

	sig := analysis.SignatureOf(task)
	v.last = &sig
	switch task.TaskID {
	case analysis.SocialInfluence:
		v.applyInfluence(res.Scores)
	case analysis.CommunityDetection:
		v.applyCommunities(res.Membership)
	case analysis.LinkPrediction:
		v.applyPredictions(res.Predictions)
	case analysis.NodeEmbedding:
	default:
		v.logger.Warn("analysis result not attached", "task", task.TaskID)
	}
	return res, nil
}

// invalidateAnalysis drops every attached result. It runs on each change of
// active membership.
func (v *View) invalidateAnalysis() {
	v.eraseInfluence()
	v.eraseCommunities()
	v.removePredicted(nil)
	v.last = nil
}

func (v *View) eraseInfluence() {
	d := Defaults()
	for _, el := range v.elements {
		if el.Kind == KindNode {
			el.InfluenceScore = d.InfluenceScore
			el.VisualInfluenceScore = d.VisualInfluenceScore
		}
	}
}

func (v *View) eraseCommunities() {
	d := Defaults()
	for _, el := range v.elements {
		if el.Kind == KindNode {
			el.Community = d.Community
			el.CommunityConfidence = d.CommunityConfidence
		}
	}
}

func (v *View) applyInfluence(scores map[string]float64) {
	v.eraseInfluence()
	v.eraseCommunities()
	if len(scores) == 0 {
		return
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range scores {
		lo = min(lo, s)
		hi = max(hi, s)
	}
	for key, s := range scores {
		el := v.nodeElement(key)
		if el == nil {
			continue
		}
		el.InfluenceScore = s
		el.VisualInfluenceScore = scale(s, lo, hi, v.cfg.InfluenceMin, v.cfg.InfluenceMax)
	}
}

// scale maps x from [lo, hi] onto [outLo, outHi]. A degenerate input range
// maps to outHi.
func scale(x, lo, hi, outLo, outHi float64) float64 {
	if hi <= lo {
		return outHi
	}
	return outLo + (x-lo)*(outHi-outLo)/(hi-lo)
}

func (v *View) applyCommunities(membership map[string]map[string]float64) {
	v.eraseInfluence()
	v.eraseCommunities()
	for key, m := range membership {
		el := v.nodeElement(key)
		if el == nil {
			continue
		}
		label, conf, ok := v.topCommunity(key, m)
		if !ok {
			continue
		}
		el.Community = label
		el.CommunityConfidence = conf
	}
}

// topCommunity picks the highest-confidence community, ties going to the smallest label.
func (v *View) topCommunity(key string, m map[string]float64) (int, float64, bool) {
	best, bestConf, found := 0, 0.0, false
	for raw, conf := range m {
		label, err := strconv.Atoi(raw)
		if err != nil {
			v.logger.Warn("ignoring non-numeric community label", "node", key, "community", raw)
			continue
		}
		if !found || conf > bestConf || (conf == bestConf && label < best) {
			best, bestConf, found = label, conf, true
		}
	}
	return best, bestConf, found
}

func (v *View) applyPredictions(predictions map[string][]string) {
	v.removePredicted(nil)
	sources := slices.Sorted(maps.Keys(predictions))
	for _, source := range sources {
		if !v.IsActive(source) {
			v.logger.Warn("ignoring predictions for inactive source", "source", source)
			continue
		}
		seen := make(map[string]struct{})
		for _, target := range predictions[source] {
			if _, dup := seen[target]; dup {
				continue
			}
			seen[target] = struct{}{}
			if !v.IsActive(target) {
				v.logger.Warn("ignoring prediction to inactive target", "source", source, "target", target)
				continue
			}
			v.elements = append(v.elements, newPredictedElement(source, target))
			v.predicted[source] = append(v.predicted[source], len(v.elements)-1)
		}
	}
}
