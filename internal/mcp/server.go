// Package mcp exposes the scheduling engine as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/javiermolinar/lifeplan/internal/dateutil"
	"github.com/javiermolinar/lifeplan/internal/engine"
	"github.com/javiermolinar/lifeplan/internal/routine"
	"github.com/javiermolinar/lifeplan/internal/task"
)

// MCPServer handles MCP tool calls against an engine.
type MCPServer struct {
	engine  *engine.Engine
	logger  *slog.Logger
	version string
}

// NewMCPServer creates a new MCP server instance.
func NewMCPServer(eng *engine.Engine, logger *slog.Logger, version string) *MCPServer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MCPServer{engine: eng, logger: logger, version: version}
}

// Run starts the MCP server using stdio transport.
func (s *MCPServer) Run() error {
	mcpServer := server.NewMCPServer(
		"lifeplan",
		s.version,
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)

	s.logger.Info("MCP server starting on stdio")
	return server.ServeStdio(mcpServer)
}

func (s *MCPServer) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(mcp.NewTool("plan_today",
		mcp.WithDescription("Place the most urgent inbox tasks into free time today, between the working hours."),
	), s.handlePlanToday)

	mcpServer.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks, optionally filtered by status."),
		mcp.WithString("status",
			mcp.Description("Filter by status"),
			mcp.Enum("inbox", "scheduled", "done", "skipped", "canceled"),
		),
	), s.handleListTasks)

	mcpServer.AddTool(mcp.NewTool("add_task",
		mcp.WithDescription("Add a task to the inbox."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
		mcp.WithString("domain", mcp.Required(),
			mcp.Enum("time", "finance", "physical", "mental", "social", "spiritual", "admin")),
		mcp.WithString("use", mcp.Required(),
			mcp.Enum("plan", "execute", "review", "learn", "budget", "recover", "reflect")),
		mcp.WithString("priority", mcp.Enum("now", "soon", "later"), mcp.Description("Defaults to later")),
		mcp.WithNumber("effort_minutes", mcp.Description("Expected effort; 0 uses the default"), mcp.Min(0)),
	), s.handleAddTask)

	mcpServer.AddTool(mcp.NewTool("apply_routine",
		mcp.WithDescription("Create scheduled tasks from a routine."),
		mcp.WithString("routine_id", mcp.Required(), mcp.Description("Routine ID")),
		mcp.WithString("date", mcp.Description("Anchor date: YYYY-MM-DD, today, tomorrow or a weekday; defaults to today")),
		mcp.WithString("time", mcp.Required(), mcp.Description("Start time, HH:MM")),
		mcp.WithString("days", mcp.Description("Comma-separated weekdays within the week from the anchor date")),
	), s.handleApplyRoutine)

	mcpServer.AddTool(mcp.NewTool("list_suggestions",
		mcp.WithDescription("Evaluate suggestion rules and list the active suggestions."),
	), s.handleListSuggestions)

	mcpServer.AddTool(mcp.NewTool("accept_suggestion",
		mcp.WithDescription("Accept a suggestion, turning it into a scheduled task."),
		mcp.WithString("suggestion_id", mcp.Required(), mcp.Description("Suggestion ID")),
	), s.handleAcceptSuggestion)

	s.logger.Debug("MCP tools registered", "count", 6)
}

func (s *MCPServer) handlePlanToday(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.engine.PlanToday(ctx)
	if err != nil {
		s.logger.Error("plan today", "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("planning failed: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Placed %d of %d tasks\n", len(res.Placed), res.Total())
	for _, t := range res.Placed {
		fmt.Fprintf(&b, "  %s  %s\n", s.formatSlot(t), t.Title)
	}
	for _, c := range res.Conflicts {
		fmt.Fprintf(&b, "  not placed: %s (%v)\n", c.Task.Title, c.Reason)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *MCPServer) handleListTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var filter task.TaskFilter
	if v := mcp.ParseString(request, "status", ""); v != "" {
		status, err := task.ParseStatus(v)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filter.Status = status
	}

	tasks, err := s.engine.ListTasks(ctx, filter)
	if err != nil {
		s.logger.Error("list tasks", "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("listing tasks failed: %v", err)), nil
	}
	if len(tasks) == 0 {
		return mcp.NewToolResultText("No tasks found"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d tasks:\n\n", len(tasks))
	for _, t := range tasks {
		fmt.Fprintf(&b, "%s  %s\n", t.ID, t.Title)
		fmt.Fprintf(&b, "  %s/%s, priority %s, status %s\n", t.Domain, t.Use, t.Priority, t.Status)
		if t.IsScheduled() {
			fmt.Fprintf(&b, "  scheduled %s\n", s.formatSlot(t))
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *MCPServer) handleAddTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t, err := task.New(
		mcp.ParseString(request, "title", ""),
		mcp.ParseString(request, "domain", ""),
		mcp.ParseString(request, "use", ""),
		mcp.ParseString(request, "priority", string(task.PriorityLater)),
		int(mcp.ParseFloat64(request, "effort_minutes", 0)),
		s.engine.Now(),
	)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.engine.AddTask(ctx, t); err != nil {
		s.logger.Error("add task", "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("adding task failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Task added\nID: %s", t.ID)), nil
}

func (s *MCPServer) handleApplyRoutine(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := mcp.ParseString(request, "routine_id", "")
	day, err := dateutil.ParseRelativeDate(mcp.ParseString(request, "date", ""), s.engine.Now())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid date: %v", err)), nil
	}
	days, err := dateutil.ParseWeekdays(mcp.ParseString(request, "days", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	applied, err := s.engine.ApplyRoutine(ctx, id, routine.ApplyParams{
		Start: day,
		Days:  days,
		Time:  mcp.ParseString(request, "time", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("applying routine failed: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Created %d tasks from %q\n", len(applied.Tasks), applied.Routine.Title)
	for _, t := range applied.Tasks {
		fmt.Fprintf(&b, "  %s  %s\n", s.formatSlot(t), t.ID)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *MCPServer) handleListSuggestions(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := s.engine.EvaluateSuggestions(ctx); err != nil {
		s.logger.Error("evaluate suggestions", "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("evaluating suggestions failed: %v", err)), nil
	}
	list, err := s.engine.ListActiveSuggestions(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing suggestions failed: %v", err)), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("No active suggestions"), nil
	}

	var b strings.Builder
	for _, sg := range list {
		fmt.Fprintf(&b, "%s  [%s, confidence %.2f]\n  %s\n", sg.ID, sg.Type, sg.Confidence, sg.Explanation)
		if sg.ExpiresAt != nil {
			fmt.Fprintf(&b, "  expires %s\n", sg.ExpiresAt.In(s.engine.Location()).Format("2006-01-02 15:04"))
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *MCPServer) handleAcceptSuggestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := mcp.ParseString(request, "suggestion_id", "")
	accepted, err := s.engine.AcceptSuggestion(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("accepting suggestion failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Scheduled %q at %s\nTask ID: %s",
		accepted.Task.Title, s.formatSlot(accepted.Task), accepted.Task.ID)), nil
}

func (s *MCPServer) formatSlot(t *task.Task) string {
	start, end, ok := t.Slot()
	if !ok {
		return "-"
	}
	loc := s.engine.Location()
	start, end = start.In(loc), end.In(loc)
	return fmt.Sprintf("%s %s-%s", start.Format("2006-01-02"), start.Format("15:04"), end.Format("15:04"))
}
