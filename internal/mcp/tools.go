package mcp

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func intProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description}
}

func boolProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "boolean", "description": description}
}

func numberProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": description}
}

// ToolDefinitions contains all available MCP tools
var ToolDefinitions = []Tool{
	{
		Name:        "read_compatibility",
		Description: "Get the compatibility between two users from the first user's point of view. Uncomputed pairs are scored on the fly.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"user":             stringProp("Username or ID of the requesting user"),
				"other":            stringProp("Username or ID of the other user"),
				"required_only":    boolProp("Score only the questions either user marked required"),
				"exclude_required": boolProp("Score only the questions neither user marked required"),
			},
			"required": []string{"user", "other"},
		},
	},
	{
		Name:        "get_matches",
		Description: "List a user's stored matches, best first, filtered by a score range.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"user": stringProp("Username or ID"),
				"sort_by": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"overall", "compatible_with_me", "im_compatible_with"},
					"description": "Score to sort and filter by (default: overall)",
				},
				"required_only": boolProp("Use the required-question scores"),
				"min":           numberProp("Minimum score, 0-100 (default: 0)"),
				"max":           numberProp("Maximum score, 0-100 (default: 100)"),
				"limit":         intProp("Maximum number of results to return (default: 20)"),
				"offset":        intProp("Number of results to skip"),
			},
			"required": []string{"user"},
		},
	},
	{
		Name:        "submit_answer",
		Description: "Store a user's answer to a question and queue their pairs for recalculation when appropriate.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"user":                    stringProp("Username or ID"),
				"question_id":             stringProp("Question identifier"),
				"me_value":                intProp("The user's own answer, 1-6"),
				"me_open_to_all":          boolProp("The user has no position of their own"),
				"me_importance":           intProp("How much the user's own answer matters, 1-5"),
				"looking_for_value":       intProp("The answer the user wants from others, 1-6"),
				"looking_for_open_to_all": boolProp("Any answer from others is acceptable"),
				"looking_for_importance":  intProp("How much the other user's answer matters, 1-5"),
			},
			"required": []string{"user", "question_id", "me_value", "me_importance", "looking_for_value", "looking_for_importance"},
		},
	},
	{
		Name:        "job_status",
		Description: "Get the recalculation job for a user.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"user": stringProp("Username or ID"),
			},
			"required": []string{"user"},
		},
	},
	{
		Name:        "enqueue_user",
		Description: "Queue a user's pairs for recalculation.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"user":  stringProp("Username or ID"),
				"force": boolProp("Reset the job to pending even if the user is below the answer threshold"),
			},
			"required": []string{"user"},
		},
	},
	{
		Name:        "run_tick",
		Description: "Process pending recalculation jobs once within an item and time budget.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"max_items":   intProp("Maximum number of jobs to process (default: configured budget)"),
				"max_seconds": intProp("Time budget in seconds (default: configured budget)"),
			},
		},
	},
	{
		Name:        "get_constants",
		Description: "Get the scoring constants currently in effect.",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	},
	{
		Name:        "get_stats",
		Description: "Get counts of users, answers, stored pairs and jobs by status.",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	},
}
