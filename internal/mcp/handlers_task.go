package mcp

import (
	"context"
	"fmt"
	"strings"

	mcp_sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/HyphaGroup/manus-mcp/internal/manus"
)

// CreateTaskParams for the create_task tool
type CreateTaskParams struct {
	Prompt       string `json:"prompt" description:"The task description or question for Manus to work on"`
	AgentProfile string `json:"agent_profile,omitempty" description:"Agent profile to use (defaults to the server's configured profile)"`
	TaskMode     string `json:"task_mode,omitempty" description:"Task mode: 'agent' for full autonomy or 'chat' for conversational replies (default: agent)"`
	ProjectID    string `json:"project_id,omitempty" description:"Optional Manus project to attach the task to"`
}

// GetTaskStatusParams for the get_task_status tool
type GetTaskStatusParams struct {
	TaskID string `json:"task_id" description:"The ID of the task to check"`
}

// ListTasksParams for the list_tasks tool
type ListTasksParams struct {
	Status    string `json:"status,omitempty" description:"Filter by task status: pending, running, completed, or failed"`
	Limit     int    `json:"limit,omitempty" description:"Maximum number of tasks to return (default: 20)"`
	ProjectID string `json:"project_id,omitempty" description:"Only return tasks belonging to this project"`
}

// ContinueTaskParams for the continue_task tool
type ContinueTaskParams struct {
	TaskID string `json:"task_id" description:"The ID of the task to continue"`
	Prompt string `json:"prompt" description:"The follow-up message or instruction for the task"`
}

func (s *Server) handleCreateTask(ctx context.Context, req *mcp_sdk.CallToolRequest, params CreateTaskParams) (*mcp_sdk.CallToolResult, any, error) {
	if strings.TrimSpace(params.Prompt) == "" {
		return nil, nil, fmt.Errorf("prompt is required")
	}

	result := s.callUpstream("create_task", func() *manus.Envelope {
		return s.client.CreateTask(ctx, params.Prompt, manus.CreateTaskOptions{
			AgentProfile: params.AgentProfile,
			TaskMode:     params.TaskMode,
			ProjectID:    params.ProjectID,
		})
	})
	return nil, result, nil
}

func (s *Server) handleGetTaskStatus(ctx context.Context, req *mcp_sdk.CallToolRequest, params GetTaskStatusParams) (*mcp_sdk.CallToolResult, any, error) {
	if strings.TrimSpace(params.TaskID) == "" {
		return nil, nil, fmt.Errorf("task_id is required")
	}

	result := s.callUpstream("get_task_status", func() *manus.Envelope {
		return s.client.GetTaskStatus(ctx, params.TaskID)
	})
	return nil, result, nil
}

func (s *Server) handleListTasks(ctx context.Context, req *mcp_sdk.CallToolRequest, params ListTasksParams) (*mcp_sdk.CallToolResult, any, error) {
	result := s.callUpstream("list_tasks", func() *manus.Envelope {
		return s.client.ListTasks(ctx, manus.ListTasksOptions{
			Status:    params.Status,
			Limit:     params.Limit,
			ProjectID: params.ProjectID,
		})
	})
	return nil, result, nil
}

func (s *Server) handleContinueTask(ctx context.Context, req *mcp_sdk.CallToolRequest, params ContinueTaskParams) (*mcp_sdk.CallToolResult, any, error) {
	if strings.TrimSpace(params.TaskID) == "" {
		return nil, nil, fmt.Errorf("task_id is required")
	}
	if strings.TrimSpace(params.Prompt) == "" {
		return nil, nil, fmt.Errorf("prompt is required")
	}

	result := s.callUpstream("continue_task", func() *manus.Envelope {
		return s.client.ContinueTask(ctx, params.TaskID, params.Prompt)
	})
	return nil, result, nil
}
