package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions. Itinerary payloads are passed as free-form JSON objects
// so agents can carry fields the schema does not name; unknown keys are
// preserved in the stored snapshot.

var createToolDef = mcp.NewTool(
	"scenario_create",
	mcp.WithDescription("Create a travel scenario, or fetch it if one with the same name already exists."),
	mcp.WithString("name",
		mcp.Required(),
		mcp.Description("Scenario name, unique per owner"),
	),
	mcp.WithString("description",
		mcp.Description("Optional free-text description, used only on creation"),
	),
)

var saveVersionToolDef = mcp.NewTool(
	"scenario_save_version",
	mcp.WithDescription("Save an itinerary snapshot. Without version_name this is an autosave and is skipped when the content matches the latest version; with version_name it is always written and exempt from pruning."),
	mcp.WithString("scenario_id",
		mcp.Required(),
		mcp.Description("Scenario ULID"),
	),
	mcp.WithObject("itinerary",
		mcp.Required(),
		mcp.Description("Itinerary document as a JSON object"),
	),
	mcp.WithString("version_name",
		mcp.Description("Name for a pinned version; omit for an autosave"),
	),
)

var latestToolDef = mcp.NewTool(
	"scenario_latest",
	mcp.WithDescription("Fetch the latest version of a scenario."),
	mcp.WithString("scenario_id",
		mcp.Required(),
		mcp.Description("Scenario ULID"),
	),
)

var getVersionToolDef = mcp.NewTool(
	"scenario_get_version",
	mcp.WithDescription("Fetch one version of a scenario by number."),
	mcp.WithString("scenario_id",
		mcp.Required(),
		mcp.Description("Scenario ULID"),
	),
	mcp.WithNumber("version_number",
		mcp.Required(),
		mcp.Min(1),
		mcp.Description("Version number"),
	),
)

var historyToolDef = mcp.NewTool(
	"scenario_history",
	mcp.WithDescription("List a scenario's versions, newest first."),
	mcp.WithString("scenario_id",
		mcp.Required(),
		mcp.Description("Scenario ULID"),
	),
	mcp.WithNumber("limit",
		mcp.Min(1),
		mcp.Description("Maximum versions to return (default 20, max 100)"),
	),
)

var revertToolDef = mcp.NewTool(
	"scenario_revert",
	mcp.WithDescription("Restore an earlier version by appending a new named version with a copy of its data. History is never rewritten."),
	mcp.WithString("scenario_id",
		mcp.Required(),
		mcp.Description("Scenario ULID"),
	),
	mcp.WithNumber("version_number",
		mcp.Required(),
		mcp.Min(1),
		mcp.Description("Version to restore"),
	),
)

var nameVersionToolDef = mcp.NewTool(
	"scenario_name_version",
	mcp.WithDescription("Name an existing version, promoting an autosave to a pinned version exempt from pruning."),
	mcp.WithString("scenario_id",
		mcp.Required(),
		mcp.Description("Scenario ULID"),
	),
	mcp.WithNumber("version_number",
		mcp.Required(),
		mcp.Min(1),
		mcp.Description("Version to name"),
	),
	mcp.WithString("name",
		mcp.Required(),
		mcp.Description("Version name"),
	),
)

var deleteVersionToolDef = mcp.NewTool(
	"scenario_delete_version",
	mcp.WithDescription("Delete one version from a scenario's history."),
	mcp.WithString("scenario_id",
		mcp.Required(),
		mcp.Description("Scenario ULID"),
	),
	mcp.WithNumber("version_number",
		mcp.Required(),
		mcp.Min(1),
		mcp.Description("Version to delete"),
	),
)

var pruneToolDef = mcp.NewTool(
	"scenario_prune",
	mcp.WithDescription("Delete all unnamed versions of a scenario. Named versions are kept."),
	mcp.WithString("scenario_id",
		mcp.Required(),
		mcp.Description("Scenario ULID"),
	),
	mcp.WithBoolean("keep_latest",
		mcp.Description("Keep the newest unnamed version"),
	),
)

var renameToolDef = mcp.NewTool(
	"scenario_rename",
	mcp.WithDescription("Rename a scenario."),
	mcp.WithString("scenario_id",
		mcp.Required(),
		mcp.Description("Scenario ULID"),
	),
	mcp.WithString("name",
		mcp.Required(),
		mcp.Description("New scenario name"),
	),
)

var deleteToolDef = mcp.NewTool(
	"scenario_delete",
	mcp.WithDescription("Delete a scenario and all of its versions."),
	mcp.WithString("scenario_id",
		mcp.Required(),
		mcp.Description("Scenario ULID"),
	),
)

var listToolDef = mcp.NewTool(
	"scenario_list",
	mcp.WithDescription("List all scenarios with their latest versions."),
	mcp.WithBoolean("include_latest",
		mcp.Description("Attach each scenario's latest version (default true)"),
	),
)

var updateSegmentToolDef = mcp.NewTool(
	"scenario_update_segment",
	mcp.WithDescription("Merge fields into one segment of the latest itinerary and autosave the result. Known fields (kind, title, location, start_time, end_time, cost) update the segment; other fields land in its details map."),
	mcp.WithString("scenario_id",
		mcp.Required(),
		mcp.Description("Scenario ULID"),
	),
	mcp.WithString("segment_id",
		mcp.Required(),
		mcp.Description("Segment id within the itinerary"),
	),
	mcp.WithObject("fields",
		mcp.Required(),
		mcp.Description("Field name to value map to merge into the segment"),
	),
)

var summarySaveToolDef = mcp.NewTool(
	"scenario_summary_save",
	mcp.WithDescription("Store a generated markdown summary for a scenario version."),
	mcp.WithString("scenario_id",
		mcp.Required(),
		mcp.Description("Scenario ULID"),
	),
	mcp.WithString("markdown",
		mcp.Required(),
		mcp.Description("Summary markdown"),
	),
	mcp.WithNumber("for_version",
		mcp.Required(),
		mcp.Min(1),
		mcp.Description("Version the summary was generated for"),
	),
)

var summaryGetToolDef = mcp.NewTool(
	"scenario_summary_get",
	mcp.WithDescription("Fetch the stored summary generated for a scenario version. Returns null when none matches."),
	mcp.WithString("scenario_id",
		mcp.Required(),
		mcp.Description("Scenario ULID"),
	),
	mcp.WithNumber("version_number",
		mcp.Required(),
		mcp.Min(1),
		mcp.Description("Version the summary must have been generated for"),
	),
)

var summaryDeleteToolDef = mcp.NewTool(
	"scenario_summary_delete",
	mcp.WithDescription("Delete a scenario's stored summary."),
	mcp.WithString("scenario_id",
		mcp.Required(),
		mcp.Description("Scenario ULID"),
	),
)

var cacheStatsToolDef = mcp.NewTool(
	"scenario_cache_stats",
	mcp.WithDescription("Report query cache statistics: hits, misses, evictions, size, hit rate."),
)
