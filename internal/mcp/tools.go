package mcp

import (
	"context"
	"encoding/json"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolDefinition describes one MCP tool.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func num(desc string) map[string]any {
	return map[string]any{"type": "number", "description": desc}
}

func integer(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

func boolean(desc string) map[string]any {
	return map[string]any{"type": "boolean", "description": desc}
}

func object(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

var vhcSchema = map[string]any{
	"type":        "string",
	"description": "Vehicle health check outcome (empty when not performed)",
	"enum":        []string{"", "green", "amber", "red"},
}

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []ToolDefinition {
	return []ToolDefinition{
		// Jobs
		{
			Name:        "create_job",
			Description: "Record a completed job. Time is derived from the AW value (1 AW = 5 minutes)",
			InputSchema: object(map[string]any{
				"wip_number":           str("Workshop WIP number"),
				"vehicle_registration": str("Vehicle registration, stored upper case"),
				"aw_value":             num("Labour units sold (non-negative)"),
				"notes":                str("Free-form notes"),
				"job_description":      str("What was done"),
				"vhc_status":           vhcSchema,
				"date_created":         str("When the job was done (RFC 3339 or YYYY-MM-DD, defaults to now)"),
			}, "wip_number", "aw_value"),
		},
		{
			Name:        "update_job",
			Description: "Change fields of an existing job; omitted fields are left as they are",
			InputSchema: object(map[string]any{
				"id":                   str("Job ID"),
				"wip_number":           str("Workshop WIP number"),
				"vehicle_registration": str("Vehicle registration"),
				"aw_value":             num("Labour units sold (non-negative)"),
				"notes":                str("Free-form notes"),
				"job_description":      str("What was done"),
				"vhc_status":           vhcSchema,
			}, "id"),
		},
		{
			Name:        "get_job",
			Description: "Get a single job by ID",
			InputSchema: object(map[string]any{"id": str("Job ID")}, "id"),
		},
		{
			Name:        "list_jobs",
			Description: "List jobs, newest first, optionally filtered by date range or WIP number",
			InputSchema: object(map[string]any{
				"from":       str("Earliest creation time (RFC 3339 or YYYY-MM-DD)"),
				"to":         str("Latest creation time (RFC 3339 or YYYY-MM-DD, inclusive)"),
				"wip_number": str("Exact WIP number"),
				"limit":      integer("Maximum number of jobs"),
				"offset":     integer("Offset for pagination"),
			}),
		},
		{
			Name:        "delete_job",
			Description: "Delete a job by ID",
			InputSchema: object(map[string]any{"id": str("Job ID")}, "id"),
		},
		{
			Name:        "clear_jobs",
			Description: "Delete every job. Export a backup first",
			InputSchema: object(map[string]any{"confirm": boolean("Must be true")}, "confirm"),
		},

		// Reporting
		{
			Name:        "get_stats",
			Description: "Total AWs, hours, job count and utilization for a day, week, month or custom range",
			InputSchema: object(map[string]any{
				"period": map[string]any{
					"type":        "string",
					"description": "Period to summarize (defaults to month)",
					"enum":        []string{"day", "week", "month", "range"},
				},
				"date": str("Reference date for day/week/month (defaults to today)"),
				"from": str("Range start, required when period is range"),
				"to":   str("Range end, required when period is range"),
			}),
		},
		{
			Name:        "get_monthly_report",
			Description: "Monthly performance against target, adjusted for absence, with working days and a daily breakdown",
			InputSchema: object(map[string]any{
				"month": integer("Month 1-12 (defaults to current)"),
				"year":  integer("Year (defaults to current)"),
			}),
		},

		// Settings
		{
			Name:        "get_settings",
			Description: "Get the technician's settings",
			InputSchema: object(map[string]any{}),
		},
		{
			Name:        "update_settings",
			Description: "Change monthly target, theme, biometric flag or technician name",
			InputSchema: object(map[string]any{
				"monthly_target_hours": num("Hours expected per month (positive)"),
				"theme": map[string]any{
					"type": "string",
					"enum": []string{"light", "dark", "system"},
				},
				"biometric_enabled": boolean("Allow biometric unlock"),
				"technician_name":   str("Name shown on reports and backups"),
			}),
		},
		{
			Name:        "set_absence",
			Description: "Record absence hours for the current month; they reduce the monthly target",
			InputSchema: object(map[string]any{"hours": num("Absence hours (non-negative)")}, "hours"),
		},
		{
			Name:        "set_pin",
			Description: "Set or replace the unlock PIN",
			InputSchema: object(map[string]any{"pin": str("4 to 8 digits")}, "pin"),
		},
		{
			Name:        "authenticate",
			Description: "Unlock with the PIN",
			InputSchema: object(map[string]any{"pin": str("PIN")}, "pin"),
		},
		{
			Name:        "lock",
			Description: "Lock the app until the PIN is entered again",
			InputSchema: object(map[string]any{}),
		},

		// Backup
		{
			Name:        "export_backup",
			Description: "Export all jobs and settings as a backup document and store it in the configured archive",
			InputSchema: object(map[string]any{
				"technician_name": str("Overrides the name recorded in the backup"),
				"include_content": boolean("Return the document JSON inline"),
			}),
		},
		{
			Name:        "preview_import",
			Description: "Validate a backup and report what a merge would create, update and skip. Nothing is written",
			InputSchema: object(map[string]any{
				"content":  str("Backup document JSON"),
				"location": str("Archive location returned by export_backup"),
			}),
		},
		{
			Name:        "apply_import",
			Description: "Merge a backup into the job list. Pass the counts from preview_import; the merge is refused if they no longer match",
			InputSchema: object(map[string]any{
				"content":          str("Backup document JSON"),
				"location":         str("Archive location returned by export_backup"),
				"expected_created": integer("created count from preview_import"),
				"expected_updated": integer("updated count from preview_import"),
				"restore_settings": boolean("Also restore settings from the backup"),
			}, "expected_created", "expected_updated"),
		},

		// Activity
		{
			Name:        "get_recent_activity",
			Description: "Get recent activity entries, optionally for one job or activity type",
			InputSchema: object(map[string]any{
				"job_id": str("Job ID to filter by"),
				"type":   str("Activity type to filter by"),
				"limit":  integer("Maximum number of activity entries"),
			}),
		},
	}
}

// registerTools adds every catalog tool to the server, dispatching through the handler.
func registerTools(server *sdkmcp.Server, h *Handler) {
	for _, def := range buildToolCatalog() {
		name := def.Name
		server.AddTool(&sdkmcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}, func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
			var args json.RawMessage
			if req.Params != nil {
				args = req.Params.Arguments
			}
			sessionID := getSessionID(ctx)
			if sessionID == "" && req.Session != nil {
				sessionID = req.Session.ID()
			}
			result, err := h.Handle(ctx, getTenantID(ctx), sessionID, name, args)
			return toolResult(result, err)
		})
	}
}

// toolResult renders a handler result as JSON text. Domain errors become
// tool errors so the model can read the code and recovery hint.
func toolResult(result any, err error) (*sdkmcp.CallToolResult, error) {
	if err != nil {
		apiErr := MapError(err)
		if apiErr == nil {
			return nil, err
		}
		data, mErr := json.Marshal(apiErr)
		if mErr != nil {
			return nil, mErr
		}
		return &sdkmcp.CallToolResult{
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
			IsError: true,
		}, nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil
}
