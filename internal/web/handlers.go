package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/itinvault/itinvault/internal/cached"
	"github.com/itinvault/itinvault/internal/config"
	"github.com/itinvault/itinvault/internal/errors"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	store    *cached.Store
	cfg      *config.Config
	renderer *Renderer
}

// HandleList handles GET /scenarios, listing all scenarios with their latest versions.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	scenarios, err := h.store.ListScenarios(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	items := make([]ListItem, len(scenarios))
	for i, sc := range scenarios {
		items[i] = ListItem{Scenario: sc}
	}

	if len(scenarios) > 0 {
		ids := make([]string, len(scenarios))
		for i, sc := range scenarios {
			ids[i] = sc.ID
		}
		latest, err := h.store.GetLatestVersions(r.Context(), ids)
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		for i := range items {
			items[i].Latest = latest[items[i].Scenario.ID]
		}
	}

	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData: PageData{
			Title:   "Scenarios",
			Version: h.renderer.version,
		},
		Items: items,
	})
}

// HandleDetail handles GET /scenarios/{id}: scenario metadata, version
// history, and the rendered summary.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("scenario ID is required"))
		return
	}

	sc, err := h.store.GetScenario(r.Context(), id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	latest, err := h.store.GetLatestVersion(r.Context(), id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	history, err := h.store.GetVersionHistory(r.Context(), id, parseIntParam(r, "limit", 0))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	data := DetailPageData{
		PageData: PageData{
			Title:   sc.Name,
			Version: h.renderer.version,
		},
		Scenario: sc,
		Latest:   latest,
		History:  history,
	}

	if sc.CurrentVersion > 0 {
		summary, err := h.store.GetSummary(r.Context(), id, sc.CurrentVersion)
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		if summary != nil {
			data.SummaryHTML = renderMarkdown(summary.Markdown)
			data.HasSummary = true
		}
	}

	h.renderer.renderPage(w, r, "detail", data)
}

// HandleVersion handles GET /scenarios/{id}/versions/{number}: one version
// with its itinerary as pretty-printed JSON.
func (h *Handlers) HandleVersion(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("scenario ID is required"))
		return
	}

	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("version number must be an integer"))
		return
	}

	sc, err := h.store.GetScenario(r.Context(), id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	version, err := h.store.GetVersion(r.Context(), id, number)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	pretty, err := json.MarshalIndent(version.Data, "", "  ")
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}

	h.renderer.renderPage(w, r, "version", VersionPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("%s · v%d", sc.Name, number),
			Version: h.renderer.version,
		},
		Scenario:      sc,
		Version:       version,
		ItineraryJSON: string(pretty),
	})
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
