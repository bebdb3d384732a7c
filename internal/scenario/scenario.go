package scenario

// Scenario is a named, user-owned container for one itinerary's version
// history. CurrentVersion always equals the highest existing version number,
// or 0 if no versions exist.
type Scenario struct {
	// ID is a ULID that uniquely identifies this scenario
	ID string `json:"id"`

	// OwnerID identifies the owning user; (OwnerID, Name) is unique
	OwnerID string `json:"owner_id"`

	// Name is the user-visible scenario name
	Name string `json:"name"`

	// Description is an optional free-form description
	Description string `json:"description,omitempty"`

	// CurrentVersion is the highest version number that exists (0 if none)
	CurrentVersion int `json:"current_version"`

	// CreatedAt is the Unix millisecond timestamp of creation
	CreatedAt int64 `json:"created_at"`

	// UpdatedAt is the Unix millisecond timestamp of the last mutation
	UpdatedAt int64 `json:"updated_at"`

	// LastAutosaveAt tracks the last autosave attempt, including skipped
	// ones (0 if never autosaved)
	LastAutosaveAt int64 `json:"last_autosave_at,omitempty"`
}

// Version is an immutable, numbered snapshot of a scenario's itinerary.
// Numbers start at 1 and strictly increase by creation order; gaps are
// permitted after deletions but numbers in use are never shared.
type Version struct {
	// ScenarioID identifies the owning scenario
	ScenarioID string `json:"scenario_id"`

	// VersionNumber is the monotonically increasing snapshot number
	VersionNumber int `json:"version_number"`

	// Data is a full deep copy of the itinerary at this point
	Data *Itinerary `json:"data"`

	// IsNamed marks versions explicitly tagged by the user; named versions
	// are exempt from retention cleanup and never skipped by autosave dedup
	IsNamed bool `json:"is_named"`

	// VersionName is the user-supplied tag (empty unless named)
	VersionName string `json:"version_name,omitempty"`

	// DataHash is the stable content hash, populated only for autosaves
	DataHash string `json:"data_hash,omitempty"`

	// CreatedAt is the Unix millisecond timestamp of creation
	CreatedAt int64 `json:"created_at"`
}

// Summary is a derived read-only artifact attached to a scenario.
// Absence is a valid state, not an error.
type Summary struct {
	// ScenarioID identifies the owning scenario
	ScenarioID string `json:"scenario_id"`

	// Markdown is the summary body
	Markdown string `json:"markdown"`

	// GeneratedAt is the Unix millisecond timestamp of generation
	GeneratedAt int64 `json:"generated_at"`

	// GeneratedForVersion is the scenario's CurrentVersion at generation time
	GeneratedForVersion int `json:"generated_for_version"`
}
