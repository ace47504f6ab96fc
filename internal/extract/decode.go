package extract

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-assist/internal/model"
)

// Decode targets, used in DecodeError.Target.
const (
	TargetLeadAnalysis    = "lead_analysis"
	TargetTaskDrafts      = "task_drafts"
	TargetSearchRelevance = "search_relevance"
)

// parse normalizes text for JSON and unmarshals it into a generic value.
func parse(target, text string) (any, error) {
	cleaned := Normalize(text, ModeJSON)
	if cleaned == "" {
		return nil, &DecodeError{Target: target, Err: eris.New("extract: empty response")}
	}
	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, &DecodeError{Target: target, Err: eris.Wrap(err, "extract: parse json")}
	}
	return doc, nil
}

// DecodeLeadAnalysis reads a lead analysis object. leadScore may be a number
// or numeric string and is rounded and clamped into [0,100]; a missing or
// non-numeric score is a DecodeError. An invalid priority is replaced by
// derive(score). Source and Provider are left for the caller.
func DecodeLeadAnalysis(text string, derive func(score int) model.Priority) (model.LeadAnalysis, error) {
	doc, err := parse(TargetLeadAnalysis, text)
	if err != nil {
		return model.LeadAnalysis{}, err
	}
	if err := validateShape(leadAnalysisShape, doc); err != nil {
		return model.LeadAnalysis{}, &DecodeError{Target: TargetLeadAnalysis, Err: err}
	}
	obj := doc.(map[string]any)

	raw, _ := lookup(obj, "leadScore", "lead_score", "score")
	score, ok := toNumber(raw)
	if !ok {
		return model.LeadAnalysis{}, &DecodeError{
			Target: TargetLeadAnalysis,
			Err:    eris.Errorf("extract: lead score %v is not numeric", raw),
		}
	}

	out := model.LeadAnalysis{
		LeadScore:  ClampScore(score),
		NextAction: stringField(obj, "nextAction", "next_action"),
		Reasoning:  stringField(obj, "reasoning", "reason"),
	}
	if p, ok := model.ParsePriority(stringField(obj, "actionPriority", "action_priority", "priority")); ok {
		out.ActionPriority = p
	} else {
		out.ActionPriority = derive(out.LeadScore)
	}
	return out, nil
}

// ClampScore rounds score to the nearest integer within [0,100].
func ClampScore(score float64) int {
	switch {
	case math.IsNaN(score):
		return 0
	case score <= 0:
		return 0
	case score >= 100:
		return 100
	default:
		return int(math.Round(score))
	}
}

// DecodeTaskDrafts reads an array of task objects, or an object holding one
// under "tasks". Non-object entries and entries without a title are dropped;
// if nothing usable remains the result is a DecodeError. Field values are
// passed through raw for the materializer to correct.
func DecodeTaskDrafts(text string) ([]model.TaskDraft, error) {
	doc, err := parse(TargetTaskDrafts, text)
	if err != nil {
		return nil, err
	}
	if err := validateShape(taskPayloadShape, doc); err != nil {
		return nil, &DecodeError{Target: TargetTaskDrafts, Err: err}
	}

	items, ok := doc.([]any)
	if !ok {
		items, _ = doc.(map[string]any)["tasks"].([]any)
	}

	drafts := make([]model.TaskDraft, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		title := stringField(obj, "title", "name")
		if title == "" {
			continue
		}
		d := model.TaskDraft{
			Title:       title,
			Description: stringField(obj, "description", "details"),
			Type:        model.TaskType(stringField(obj, "type", "taskType", "task_type")),
			Priority:    stringField(obj, "priority"),
			DueDate:     stringField(obj, "dueDate", "due_date", "due"),
		}
		if raw, ok := lookup(obj, "estimatedDuration", "estimated_duration", "duration"); ok {
			if n, ok := toNumber(raw); ok && n > 0 && n < math.MaxInt32 {
				d.EstimatedDuration = int(math.Round(n))
			}
		}
		drafts = append(drafts, d)
	}

	if len(drafts) == 0 {
		return nil, &DecodeError{Target: TargetTaskDrafts, Err: eris.New("extract: no usable tasks")}
	}
	return drafts, nil
}

// DecodeSearchRelevance reads an ordered array of client IDs. Text that is
// not JSON is a DecodeError; JSON that is not an array yields no IDs.
// Non-string entries and IDs outside candidateIDs are dropped, as are
// repeats; order is preserved.
func DecodeSearchRelevance(text string, candidateIDs []string) ([]string, error) {
	doc, err := parse(TargetSearchRelevance, text)
	if err != nil {
		return nil, err
	}

	items, ok := doc.([]any)
	if !ok {
		return []string{}, nil
	}

	allowed := make(map[string]bool, len(candidateIDs))
	for _, id := range candidateIDs {
		allowed[id] = true
	}

	ids := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		id, ok := item.(string)
		if !ok {
			continue
		}
		id = strings.TrimSpace(id)
		if !allowed[id] || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func lookup(obj map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(obj map[string]any, keys ...string) string {
	v, ok := lookup(obj, keys...)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(n), "%"), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
