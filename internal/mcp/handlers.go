package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/itinvault/itinvault/internal/cached"
	"github.com/itinvault/itinvault/internal/config"
	"github.com/itinvault/itinvault/internal/errors"
	"github.com/itinvault/itinvault/internal/scenario"
	"github.com/itinvault/itinvault/internal/store"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store *cached.Store
	cfg   *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(s *cached.Store, cfg *config.Config) *Handlers {
	return &Handlers{store: s, cfg: cfg}
}

// Request types for each tool

// CreateRequest represents the arguments for create.
type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// SaveVersionRequest represents the arguments for save_version.
type SaveVersionRequest struct {
	ScenarioID  string          `json:"scenario_id"`
	Itinerary   json.RawMessage `json:"itinerary"`
	VersionName string          `json:"version_name,omitempty"`
}

// VersionRequest identifies one version of a scenario.
type VersionRequest struct {
	ScenarioID    string `json:"scenario_id"`
	VersionNumber int    `json:"version_number"`
}

// ScenarioRequest identifies a scenario.
type ScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// PruneRequest represents the arguments for prune.
type PruneRequest struct {
	ScenarioID string `json:"scenario_id"`
	KeepLatest bool   `json:"keep_latest"`
}

// HistoryRequest represents the arguments for history.
type HistoryRequest struct {
	ScenarioID string `json:"scenario_id"`
	Limit      int    `json:"limit,omitempty"`
}

// NameVersionRequest represents the arguments for name_version.
type NameVersionRequest struct {
	ScenarioID    string `json:"scenario_id"`
	VersionNumber int    `json:"version_number"`
	Name          string `json:"name"`
}

// RenameRequest represents the arguments for rename.
type RenameRequest struct {
	ScenarioID string `json:"scenario_id"`
	Name       string `json:"name"`
}

// ListRequest represents the arguments for list.
type ListRequest struct {
	IncludeLatest *bool `json:"include_latest,omitempty"`
}

// UpdateSegmentRequest represents the arguments for update_segment.
type UpdateSegmentRequest struct {
	ScenarioID string         `json:"scenario_id"`
	SegmentID  string         `json:"segment_id"`
	Fields     map[string]any `json:"fields"`
}

// SummarySaveRequest represents the arguments for summary_save.
type SummarySaveRequest struct {
	ScenarioID string `json:"scenario_id"`
	Markdown   string `json:"markdown"`
	ForVersion int    `json:"for_version"`
}

// ListItem pairs a scenario with its latest version in list results.
type ListItem struct {
	Scenario      scenario.Scenario `json:"scenario"`
	LatestVersion *scenario.Version `json:"latest_version,omitempty"`
}

// Handler implementations

// HandleCreate handles the create tool call.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	sc, created, err := h.store.GetOrCreateScenario(ctx, input.Name, input.Description)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"scenario": sc,
		"created":  created,
	})
}

// HandleSaveVersion handles the save_version tool call.
func (h *Handlers) HandleSaveVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveVersionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if len(input.Itinerary) == 0 {
		return errorResult(errors.NewInvalidRequest("itinerary is required")), nil
	}

	itinerary, err := scenario.ParseItinerary(input.Itinerary)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.store.SaveVersion(ctx, store.SaveVersionInput{
		ScenarioID:  input.ScenarioID,
		Data:        itinerary,
		Named:       input.VersionName != "",
		VersionName: input.VersionName,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleLatest handles the latest tool call.
func (h *Handlers) HandleLatest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ScenarioRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	version, err := h.store.GetLatestVersion(ctx, input.ScenarioID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"version": version})
}

// HandleGetVersion handles the get_version tool call.
func (h *Handlers) HandleGetVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[VersionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	version, err := h.store.GetVersion(ctx, input.ScenarioID, input.VersionNumber)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"version": version})
}

// HandleHistory handles the history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	versions, err := h.store.GetVersionHistory(ctx, input.ScenarioID, input.Limit)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"versions": versions,
		"count":    len(versions),
	})
}

// HandleRevert handles the revert tool call.
func (h *Handlers) HandleRevert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[VersionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	version, err := h.store.RevertToVersion(ctx, input.ScenarioID, input.VersionNumber)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"version": version})
}

// HandleNameVersion handles the name_version tool call.
func (h *Handlers) HandleNameVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NameVersionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if err := h.store.NameVersion(ctx, input.ScenarioID, input.VersionNumber, input.Name); err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"scenario_id":    input.ScenarioID,
		"version_number": input.VersionNumber,
		"version_name":   input.Name,
	})
}

// HandleDeleteVersion handles the delete_version tool call.
func (h *Handlers) HandleDeleteVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[VersionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if err := h.store.DeleteVersion(ctx, input.ScenarioID, input.VersionNumber); err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"scenario_id":    input.ScenarioID,
		"version_number": input.VersionNumber,
		"deleted":        true,
	})
}

// HandlePrune handles the prune tool call.
func (h *Handlers) HandlePrune(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PruneRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	deleted, err := h.store.DeleteUnlabeledVersions(ctx, input.ScenarioID, input.KeepLatest)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"scenario_id": input.ScenarioID,
		"deleted":     deleted,
	})
}

// HandleRename handles the rename tool call.
func (h *Handlers) HandleRename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RenameRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if err := h.store.RenameScenario(ctx, input.ScenarioID, input.Name); err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"scenario_id": input.ScenarioID,
		"name":        input.Name,
	})
}

// HandleDelete handles the delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ScenarioRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if err := h.store.DeleteScenario(ctx, input.ScenarioID); err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"scenario_id": input.ScenarioID,
		"deleted":     true,
	})
}

// HandleList handles the list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	scenarios, err := h.store.ListScenarios(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	includeLatest := input.IncludeLatest == nil || *input.IncludeLatest

	items := make([]ListItem, len(scenarios))
	for i, sc := range scenarios {
		items[i] = ListItem{Scenario: sc}
	}

	if includeLatest && len(scenarios) > 0 {
		ids := make([]string, len(scenarios))
		for i, sc := range scenarios {
			ids[i] = sc.ID
		}
		latest, err := h.store.GetLatestVersions(ctx, ids)
		if err != nil {
			return errorResult(err), nil
		}
		for i := range items {
			items[i].LatestVersion = latest[items[i].Scenario.ID]
		}
	}

	return successResult(map[string]any{
		"scenarios": items,
		"count":     len(items),
	})
}

// HandleUpdateSegment handles the update_segment tool call.
func (h *Handlers) HandleUpdateSegment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateSegmentRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if len(input.Fields) == 0 {
		return errorResult(errors.NewInvalidRequest("fields is required")), nil
	}

	result, err := h.store.UpdateSegment(ctx, input.ScenarioID, input.SegmentID, input.Fields)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSummarySave handles the summary_save tool call.
func (h *Handlers) HandleSummarySave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SummarySaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if err := h.store.SaveSummary(ctx, input.ScenarioID, input.Markdown, input.ForVersion); err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"scenario_id": input.ScenarioID,
		"for_version": input.ForVersion,
	})
}

// HandleSummaryGet handles the summary_get tool call.
func (h *Handlers) HandleSummaryGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[VersionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	summary, err := h.store.GetSummary(ctx, input.ScenarioID, input.VersionNumber)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"summary": summary})
}

// HandleSummaryDelete handles the summary_delete tool call.
func (h *Handlers) HandleSummaryDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ScenarioRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if err := h.store.DeleteSummary(ctx, input.ScenarioID); err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"scenario_id": input.ScenarioID,
		"deleted":     true,
	})
}

// HandleCacheStats handles the cache_stats tool call.
func (h *Handlers) HandleCacheStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := h.store.Cache().Stats()
	return successResult(map[string]any{
		"enabled":   h.store.Cache().Enabled(),
		"hits":      stats.Hits,
		"misses":    stats.Misses,
		"evictions": stats.Evictions,
		"size":      stats.Size,
		"hit_rate":  h.store.Cache().HitRate(),
	})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if vErr, ok := err.(*errors.VaultError); ok {
		errorObj := map[string]any{
			"code":    vErr.Code,
			"message": vErr.Message,
			"status":  vErr.Status,
		}
		if vErr.Code != errors.ErrInternal && vErr.Details != nil {
			errorObj["details"] = vErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
