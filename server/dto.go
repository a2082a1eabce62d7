package main

import "github.com/meikuraledutech/flow"

type createWorkflowRequest struct {
	ID string `json:"id" validate:"omitempty,max=128,excludesall=/"`
}

type insertTaskRequest struct {
	AnchorEdgeID string `json:"anchor_edge_id" validate:"required"`
	TaskType     string `json:"task_type" validate:"required,oneof=create approval integration"`
	Version      *int64 `json:"version" validate:"omitempty,min=0"`
}

type assignmentRequest struct {
	Type   string   `json:"type" validate:"omitempty,oneof=role user supplier manager skip_level_manager department_manager"`
	Values []string `json:"values"`
}

type actionRequest struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Kind       string `json:"kind" validate:"required,oneof=accept reject send_back"`
	SendBackTo string `json:"send_back_to"`
}

type apiConfigRequest struct {
	SelectedAPI string            `json:"selected_api"`
	Method      string            `json:"method" validate:"omitempty,oneof=GET POST PUT PATCH DELETE"`
	Mappings    map[string]string `json:"mappings"`
}

type updateTaskRequest struct {
	Label       *string            `json:"label"`
	Tags        *[]string          `json:"tags"`
	Assignment  *assignmentRequest `json:"assignment"`
	Actions     *[]actionRequest   `json:"actions" validate:"omitempty,dive"`
	APIConfig   *apiConfigRequest  `json:"api_config"`
	NotifySteps *[]string          `json:"notify_steps"`
	Version     *int64             `json:"version" validate:"omitempty,min=0"`
}

func (r updateTaskRequest) patch() flow.TaskPatch {
	p := flow.TaskPatch{
		Label:       r.Label,
		Tags:        r.Tags,
		NotifySteps: r.NotifySteps,
	}
	if r.Assignment != nil {
		p.Assignment = &flow.Assignment{
			Type:   flow.AssignmentType(r.Assignment.Type),
			Values: r.Assignment.Values,
		}
	}
	if r.Actions != nil {
		actions := make([]flow.Action, 0, len(*r.Actions))
		for _, a := range *r.Actions {
			actions = append(actions, flow.Action{
				ID:         a.ID,
				Label:      a.Label,
				Kind:       flow.ActionKind(a.Kind),
				SendBackTo: a.SendBackTo,
			})
		}
		p.Actions = &actions
	}
	if r.APIConfig != nil {
		p.APIConfig = &flow.APIConfig{
			SelectedAPI: r.APIConfig.SelectedAPI,
			Method:      r.APIConfig.Method,
			Mappings:    r.APIConfig.Mappings,
		}
	}
	return p
}

type connectRequest struct {
	Source  string `json:"source" validate:"required"`
	Target  string `json:"target" validate:"required,nefield=Source"`
	Version *int64 `json:"version" validate:"omitempty,min=0"`
}

type errorsResponse struct {
	Errors      []flow.NodeErrors `json:"errors"`
	Publishable bool              `json:"publishable"`
}

func versionOf(v *int64) int64 {
	if v == nil {
		return flow.AnyVersion
	}
	return *v
}
