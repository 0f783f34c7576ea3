package mcp

// registerAllTools registers all MCP tools with the registry
func (s *Server) registerAllTools(r *Registry) {
	Register(r, ToolDef{
		Name: "create_task",
		Description: `Create a new task on Manus AI and start working on it.

Manus runs the task asynchronously: this returns immediately with a task ID
and URL, not the finished result. Poll with get_task_status to see progress.

Parameters:
  prompt         — What Manus should do (required)
  agent_profile  — Agent profile override (defaults to the configured profile)
  task_mode      — "agent" for full autonomy, "chat" for conversational replies (default: agent)
  project_id     — Attach the task to an existing Manus project`,
		Access: AccessWrite,
	}, s.handleCreateTask)

	Register(r, ToolDef{
		Name: "get_task_status",
		Description: `Get the current status and output of a Manus task.

Returns the task's state (pending, running, completed, failed) along with
any output produced so far. Requires task_id from create_task or list_tasks.`,
		Access: AccessRead,
	}, s.handleGetTaskStatus)

	Register(r, ToolDef{
		Name: "list_tasks",
		Description: `List recent Manus tasks.

Optionally filter by status (pending, running, completed, failed) or
project_id, and cap the result count with limit (default: 20).`,
		Access: AccessRead,
	}, s.handleListTasks)

	Register(r, ToolDef{
		Name: "continue_task",
		Description: `Send a follow-up message to an existing Manus task.

Use this to answer a question the task asked, refine its direction, or
request changes to its output. Requires task_id and the follow-up prompt.`,
		Access: AccessWrite,
	}, s.handleContinueTask)

	Register(r, ToolDef{
		Name: "get_server_info",
		Description: `Get information about this MCP server.

Returns the server name, version, configured Manus API base URL, and
default agent profile. Answered locally without calling the Manus API.`,
		Access: AccessLocal,
	}, s.handleGetServerInfo)
}
