// Package web provides HTTP request and response types for the workflow API.
package web

import "github.com/flowmate/flowmate/pkg/models"

// CreateWorkflowRequest represents the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	Name        string          `json:"name"        validate:"required,min=3"`
	Description string          `json:"description"`
	Trigger     models.Trigger  `json:"trigger"     validate:"required"`
	Actions     []models.Action `json:"actions"`
	Status      string          `json:"status"      validate:"omitempty,oneof=active paused error"`
}

// UpdateWorkflowRequest represents the request body for updating an existing
// workflow. All fields are optional to support partial updates; a nil Actions
// slice leaves the stored actions untouched while an empty one clears them.
type UpdateWorkflowRequest struct {
	Name        *string         `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string         `json:"description,omitempty"`
	Trigger     *models.Trigger `json:"trigger,omitempty"`
	Actions     []models.Action `json:"actions,omitempty"`
	Status      *string         `json:"status,omitempty"      validate:"omitempty,oneof=active paused error"`
}

// ToModel builds the workflow the create request describes. The service
// layer owns ID assignment and status defaulting.
func (r CreateWorkflowRequest) ToModel() *models.Workflow {
	return &models.Workflow{
		Name:        r.Name,
		Description: r.Description,
		Trigger:     r.Trigger,
		Actions:     r.Actions,
		Status:      models.WorkflowStatus(r.Status),
	}
}

// ApplyTo merges the non-nil request fields onto the stored workflow.
func (r UpdateWorkflowRequest) ApplyTo(workflow *models.Workflow) {
	if r.Name != nil {
		workflow.Name = *r.Name
	}

	if r.Description != nil {
		workflow.Description = *r.Description
	}

	if r.Trigger != nil {
		workflow.Trigger = *r.Trigger
	}

	if r.Actions != nil {
		workflow.Actions = r.Actions
	}

	if r.Status != nil {
		workflow.Status = models.WorkflowStatus(*r.Status)
	}
}
