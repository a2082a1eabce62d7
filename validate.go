package flow

import (
	"cmp"
	"slices"
	"strings"
)

// Validation messages. They are shown verbatim to the user.
const (
	MsgLabelRequired         = "Task label is required"
	MsgAssignmentRequired    = "Role/User/Supplier selection is required"
	MsgActionLabelsEmpty     = "Accept/Reject labels cannot be empty"
	MsgAPIRequired           = "API selection is required"
	MsgSendBackNotPrevious   = "Send-back step must be a previous step"
	MsgNotifyStepNotPrevious = "Notification step must be a previous step"
)

// Validate checks a task's configuration against the rules of its type and
// returns the findings in rule order. It never fails; missing fields are
// reported as missing. PreviousSteps in d is the context for rules that
// reference earlier steps.
func Validate(t TaskType, d TaskData) []string {
	var errs []string

	if strings.TrimSpace(d.Label) == "" {
		errs = append(errs, MsgLabelRequired)
	}

	switch t {
	case TaskCreate:
		if !assigned(d.Assignment) {
			errs = append(errs, MsgAssignmentRequired)
		}
	case TaskApproval:
		if !assigned(d.Assignment) {
			errs = append(errs, MsgAssignmentRequired)
		}
		for _, a := range d.Actions {
			if strings.TrimSpace(a.Label) == "" {
				errs = append(errs, MsgActionLabelsEmpty)
				break
			}
		}
		for _, a := range d.Actions {
			if a.Kind == ActionSendBack && !hasStep(d.PreviousSteps, a.SendBackTo) {
				errs = append(errs, MsgSendBackNotPrevious)
				break
			}
		}
	case TaskIntegration:
		if d.APIConfig == nil || strings.TrimSpace(d.APIConfig.SelectedAPI) == "" {
			errs = append(errs, MsgAPIRequired)
		}
	}

	for _, id := range d.NotifySteps {
		if !hasStep(d.PreviousSteps, id) {
			errs = append(errs, MsgNotifyStepNotPrevious)
			break
		}
	}

	return errs
}

func assigned(a *Assignment) bool {
	return a != nil && strings.TrimSpace(string(a.Type)) != ""
}

func hasStep(steps []PreviousStep, id string) bool {
	if id == "" {
		return false
	}
	for _, s := range steps {
		if s.ID == id {
			return true
		}
	}
	return false
}

// NodeErrors is one row of the workflow-level error summary.
type NodeErrors struct {
	NodeID         string   `json:"nodeId"`
	Label          string   `json:"label"`
	SequenceNumber int      `json:"sequenceNumber"`
	Errors         []string `json:"errors"`
}

// CollectErrors lists every task node that has validation errors, sorted
// ascending by sequence number.
func CollectErrors(g Graph) []NodeErrors {
	out := []NodeErrors{}
	for _, n := range g.Tasks() {
		if len(n.Data.ValidationErrors) == 0 {
			continue
		}
		out = append(out, NodeErrors{
			NodeID:         n.ID,
			Label:          n.Data.Label,
			SequenceNumber: n.Data.SequenceNumber,
			Errors:         cloneSlice(n.Data.ValidationErrors),
		})
	}
	slices.SortStableFunc(out, func(a, b NodeErrors) int {
		return cmp.Compare(a.SequenceNumber, b.SequenceNumber)
	})
	return out
}

// CanPublish reports whether g is free of configuration errors.
func CanPublish(g Graph) bool {
	return len(CollectErrors(g)) == 0
}
