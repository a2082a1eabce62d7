package flow_test

import (
	"testing"

	"github.com/meikuraledutech/flow"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	prev := []flow.PreviousStep{{ID: "n1", Label: "Create Request", SequenceNumber: 1}}

	tests := []struct {
		name     string
		taskType flow.TaskType
		data     flow.TaskData
		expected []string
	}{
		{
			name:     "create without assignment",
			taskType: flow.TaskCreate,
			data:     flow.TaskData{Label: "Raise PO"},
			expected: []string{flow.MsgAssignmentRequired},
		},
		{
			name:     "create with empty assignment type",
			taskType: flow.TaskCreate,
			data:     flow.TaskData{Label: "Raise PO", Assignment: &flow.Assignment{Type: " "}},
			expected: []string{flow.MsgAssignmentRequired},
		},
		{
			name:     "create fully configured",
			taskType: flow.TaskCreate,
			data:     flow.TaskData{Label: "Raise PO", Assignment: &flow.Assignment{Type: flow.AssignRole, Values: []string{"buyer"}}},
		},
		{
			name:     "blank label is reported first",
			taskType: flow.TaskCreate,
			data:     flow.TaskData{Label: "   "},
			expected: []string{flow.MsgLabelRequired, flow.MsgAssignmentRequired},
		},
		{
			name:     "approval missing assignment and with empty action label",
			taskType: flow.TaskApproval,
			data:     flow.TaskData{Label: "Review", Actions: []flow.Action{{Label: ""}}},
			expected: []string{flow.MsgAssignmentRequired, flow.MsgActionLabelsEmpty},
		},
		{
			name:     "approval reports empty action labels once",
			taskType: flow.TaskApproval,
			data: flow.TaskData{
				Label:      "Review",
				Assignment: &flow.Assignment{Type: flow.AssignManager},
				Actions:    []flow.Action{{Label: " "}, {Label: ""}},
			},
			expected: []string{flow.MsgActionLabelsEmpty},
		},
		{
			name:     "approval with send-back to a previous step",
			taskType: flow.TaskApproval,
			data: flow.TaskData{
				Label:         "Review",
				Assignment:    &flow.Assignment{Type: flow.AssignUser},
				Actions:       []flow.Action{{Label: "Back", Kind: flow.ActionSendBack, SendBackTo: "n1"}},
				PreviousSteps: prev,
			},
		},
		{
			name:     "approval with send-back to an unknown step",
			taskType: flow.TaskApproval,
			data: flow.TaskData{
				Label:         "Review",
				Assignment:    &flow.Assignment{Type: flow.AssignUser},
				Actions:       []flow.Action{{Label: "Back", Kind: flow.ActionSendBack, SendBackTo: "gone"}},
				PreviousSteps: prev,
			},
			expected: []string{flow.MsgSendBackNotPrevious},
		},
		{
			name:     "integration without api",
			taskType: flow.TaskIntegration,
			data:     flow.TaskData{Label: "Sync ERP"},
			expected: []string{flow.MsgAPIRequired},
		},
		{
			name:     "integration with blank api",
			taskType: flow.TaskIntegration,
			data:     flow.TaskData{Label: "Sync ERP", APIConfig: &flow.APIConfig{}},
			expected: []string{flow.MsgAPIRequired},
		},
		{
			name:     "integration configured",
			taskType: flow.TaskIntegration,
			data:     flow.TaskData{Label: "Sync ERP", APIConfig: &flow.APIConfig{SelectedAPI: "erp.create_order"}},
		},
		{
			name:     "notification step not among previous steps",
			taskType: flow.TaskIntegration,
			data: flow.TaskData{
				Label:         "Sync ERP",
				APIConfig:     &flow.APIConfig{SelectedAPI: "erp.create_order"},
				NotifySteps:   []string{"n1", "n9"},
				PreviousSteps: prev,
			},
			expected: []string{flow.MsgNotifyStepNotPrevious},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, flow.Validate(tt.taskType, tt.data))
		})
	}
}

func TestCollectErrors(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	g := chain(t, e)

	summary := flow.CollectErrors(g)
	assert.Len(t, summary, 3)
	assert.False(t, flow.CanPublish(g))

	g, err := e.UpdateTask(g, "n2", flow.TaskPatch{Assignment: &flow.Assignment{Type: flow.AssignManager}})
	assert.NoError(t, err)

	summary = flow.CollectErrors(g)
	if assert.Len(t, summary, 2) {
		assert.Equal(t, "n1", summary[0].NodeID)
		assert.Equal(t, 1, summary[0].SequenceNumber)
		assert.Equal(t, []string{flow.MsgAssignmentRequired}, summary[0].Errors)
		assert.Equal(t, "n3", summary[1].NodeID)
		assert.Equal(t, 3, summary[1].SequenceNumber)
		assert.Equal(t, []string{flow.MsgAPIRequired}, summary[1].Errors)
	}

	g, err = e.UpdateTask(g, "n1", flow.TaskPatch{Assignment: &flow.Assignment{Type: flow.AssignRole}})
	assert.NoError(t, err)
	g, err = e.UpdateTask(g, "n3", flow.TaskPatch{APIConfig: &flow.APIConfig{SelectedAPI: "erp"}})
	assert.NoError(t, err)

	assert.Empty(t, flow.CollectErrors(g))
	assert.True(t, flow.CanPublish(g))
}
