package assertion

// Canonical returns the fixed assertion set for an opencode orchestrator
// installation, in display order. The six permission locks are required: the
// orchestrator must delegate through subagents instead of touching files or
// running commands itself. The provider and MCP checks are informational
// continuity checks and stay advisory.
func Canonical() []Assertion {
	return []Assertion{
		{
			ID:          "bash-denied",
			Description: "bash execution denied for orchestrator",
			Path:        "permission.bash",
			Op:          OpEq,
			Want:        "deny",
			Severity:    Required,
		},
		{
			ID:          "edit-denied",
			Description: "file edit denied for orchestrator",
			Path:        "permission.edit",
			Op:          OpEq,
			Want:        "deny",
			Severity:    Required,
		},
		{
			ID:          "write-denied",
			Description: "file write denied for orchestrator",
			Path:        "permission.write",
			Op:          OpEq,
			Want:        "deny",
			Severity:    Required,
		},
		{
			ID:          "patch-denied",
			Description: "patch application denied for orchestrator",
			Path:        "permission.patch",
			Op:          OpEq,
			Want:        "deny",
			Severity:    Required,
		},
		{
			ID:          "multiedit-denied",
			Description: "multi-file edit denied for orchestrator",
			Path:        "permission.multiedit",
			Op:          OpEq,
			Want:        "deny",
			Severity:    Required,
		},
		{
			ID:          "todowrite-denied",
			Description: "todo-list writing denied for orchestrator",
			Path:        "permission.todowrite",
			Op:          OpEq,
			Want:        "deny",
			Severity:    Required,
		},
		{
			ID:          "orchestrator-agent",
			Description: "orchestrator agent declared",
			Path:        "agent.orchestrator",
			Op:          OpExists,
			Severity:    Required,
		},
		{
			ID:          "question-tool",
			Description: "question tool available",
			Path:        "tool.question",
			Op:          OpExists,
			Severity:    Required,
		},
		{
			ID:          "provider-present",
			Description: "model provider configured",
			Path:        "provider",
			Op:          OpExists,
			Severity:    Advisory,
		},
		{
			ID:          "mcp-present",
			Description: "MCP server configured",
			Path:        "mcp",
			Op:          OpExists,
			Severity:    Advisory,
		},
	}
}
