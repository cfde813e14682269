package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/safarai/intelwatch/app/database"
	"github.com/safarai/intelwatch/app/pipeline"
)

func NewHandler(orchestrator *pipeline.Orchestrator, store pipeline.Store) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		sourceRepo:   store.Sources,
		itemRepo:     store.Items,
		runRepo:      store.Runs,
		eventRepo:    store.Events,
		briefRepo:    store.Briefs,
		logRepo:      store.Logs,
	}
}

// TriggerRun starts a monitoring run. A run already in flight is a
// conflict, not a queue entry.
func (h *Handler) TriggerRun(c *gin.Context) {
	run, err := h.orchestrator.Trigger(c.Request.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrRunActive) {
			c.JSON(http.StatusConflict, gin.H{"error": "A run is already active"})
			return
		}
		slog.Error("Failed to trigger run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start run"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"run_id":     run.ID,
		"status":     run.Status,
		"started_at": run.StartedAt.Format(time.RFC3339),
	})
}

func (h *Handler) GetRun(c *gin.Context) {
	run, err := h.runRepo.GetRun(c.Param("id"))
	if err != nil {
		slog.Error("Database error", "operation", "get_run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}

	c.JSON(http.StatusOK, runView(run))
}

// GetLatestRun answers "what happened last" as a query over stored runs,
// including one still in flight.
func (h *Handler) GetLatestRun(c *gin.Context) {
	run, err := h.runRepo.GetLatestRun()
	if err != nil {
		slog.Error("Database error", "operation", "get_latest_run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No runs recorded yet"})
		return
	}

	c.JSON(http.StatusOK, runView(run))
}

func (h *Handler) ListRunEvents(c *gin.Context) {
	runID := c.Param("id")

	run, err := h.runRepo.GetRun(runID)
	if err != nil {
		slog.Error("Database error", "operation", "get_run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}

	events, err := h.eventRepo.GetEventsByRun(runID)
	if err != nil {
		slog.Error("Database error", "operation", "get_events", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	views := make([]map[string]interface{}, 0, len(events))
	for i := range events {
		views = append(views, eventView(&events[i]))
	}

	c.JSON(http.StatusOK, gin.H{"run_id": runID, "events": views, "total": len(views)})
}

func (h *Handler) ListRunLogs(c *gin.Context) {
	h.renderLogs(c, c.Param("run_id"))
}

// ListLatestLogs shows the log trail of the most recent run, finished or
// not.
func (h *Handler) ListLatestLogs(c *gin.Context) {
	run, err := h.runRepo.GetLatestRun()
	if err != nil {
		slog.Error("Database error", "operation", "get_latest_run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No runs recorded yet"})
		return
	}

	h.renderLogs(c, run.ID)
}

func (h *Handler) renderLogs(c *gin.Context, runID string) {
	level := c.Query("level")

	entries, err := h.logRepo.GetLogsByRun(runID, level)
	if err != nil {
		slog.Error("Database error", "operation", "get_logs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	views := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		views = append(views, map[string]interface{}{
			"level":      entry.Level,
			"message":    entry.Message,
			"meta":       entry.Meta,
			"created_at": entry.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{"run_id": runID, "logs": views, "total": len(views)})
}

func (h *Handler) GetLatestBrief(c *gin.Context) {
	brief, err := h.briefRepo.GetLatestBrief()
	if err != nil {
		slog.Error("Database error", "operation", "get_latest_brief", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if brief == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No briefs recorded yet"})
		return
	}

	h.renderBrief(c, brief)
}

func (h *Handler) GetBriefByRun(c *gin.Context) {
	brief, err := h.briefRepo.GetBriefByRun(c.Param("run_id"))
	if err != nil {
		slog.Error("Database error", "operation", "get_brief", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if brief == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Brief not found"})
		return
	}

	h.renderBrief(c, brief)
}

// renderBrief inlines the referenced events so clients get a complete
// document in one round trip.
func (h *Handler) renderBrief(c *gin.Context, brief *database.Brief) {
	events, err := h.eventRepo.GetEventsByRun(brief.RunID)
	if err != nil {
		slog.Error("Database error", "operation", "get_events", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	byID := make(map[string]*database.Event, len(events))
	for i := range events {
		byID[events[i].ID] = &events[i]
	}

	sections := make([]map[string]interface{}, 0, len(brief.Sections))
	for _, section := range brief.Sections {
		sectionEvents := make([]map[string]interface{}, 0, len(section.EventIDs))
		for _, id := range section.EventIDs {
			if event, ok := byID[id]; ok {
				sectionEvents = append(sectionEvents, eventView(event))
			}
		}
		sections = append(sections, map[string]interface{}{
			"name":   section.Name,
			"events": sectionEvents,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         brief.ID,
		"run_id":     brief.RunID,
		"sections":   sections,
		"created_at": brief.CreatedAt.Format(time.RFC3339),
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if sourceCount, err := h.sourceRepo.GetSourceCount(); err == nil {
		health["sources"] = sourceCount
	}
	health["run_active"] = h.orchestrator.Active()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{}

	if count, err := h.sourceRepo.GetSourceCount(); err == nil {
		stats["sources"] = count
	}
	if count, err := h.sourceRepo.GetActiveSourceCount(); err == nil {
		stats["active_sources"] = count
	}
	if count, err := h.itemRepo.GetItemCount(); err == nil {
		stats["items"] = count
	}
	if count, err := h.runRepo.GetRunCount(); err == nil {
		stats["runs"] = count
	}
	if count, err := h.eventRepo.GetEventCount(); err == nil {
		stats["events"] = count
	}

	if run, err := h.runRepo.GetLatestRun(); err == nil && run != nil {
		stats["latest_run"] = runView(run)
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListSources(c *gin.Context) {
	sources, err := h.sourceRepo.ListSources()
	if err != nil {
		slog.Error("Database error", "operation", "list_sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	views := make([]map[string]interface{}, 0, len(sources))
	for i := range sources {
		views = append(views, sourceView(&sources[i]))
	}

	c.JSON(http.StatusOK, gin.H{"sources": views, "total": len(views)})
}

func (h *Handler) CreateSource(c *gin.Context) {
	var req createSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and url are required"})
		return
	}

	category := req.Category
	if category == "" {
		category = database.CategoryGeneral
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	source := database.Source{
		ID:        uuid.NewString(),
		Name:      req.Name,
		URL:       req.URL,
		Category:  category,
		Active:    active,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.sourceRepo.CreateSource(source); err != nil {
		slog.Error("Database error", "operation", "create_source", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create source"})
		return
	}

	c.JSON(http.StatusCreated, sourceView(&source))
}

func (h *Handler) UpdateSource(c *gin.Context) {
	var req updateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	source, err := h.sourceRepo.UpdateSource(c.Param("id"), req.Name, req.URL, req.Category, req.Active)
	if err != nil {
		slog.Error("Database error", "operation", "update_source", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update source"})
		return
	}
	if source == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}

	c.JSON(http.StatusOK, sourceView(source))
}

func (h *Handler) DeleteSource(c *gin.Context) {
	if err := h.sourceRepo.DeleteSource(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func runView(run *database.Run) map[string]interface{} {
	view := map[string]interface{}{
		"id":              run.ID,
		"status":          run.Status,
		"started_at":      run.StartedAt.Format(time.RFC3339),
		"sources_total":   run.SourcesTotal,
		"sources_ok":      run.SourcesOK,
		"sources_failed":  run.SourcesFailed,
		"items_total":     run.ItemsTotal,
		"items_new":       run.ItemsNew,
		"items_updated":   run.ItemsUpdated,
		"items_unchanged": run.ItemsUnchanged,
		"events_created":  run.EventsCreated,
		"emails_sent":     run.EmailsSent,
	}
	if run.FinishedAt != nil {
		view["finished_at"] = run.FinishedAt.Format(time.RFC3339)
	}
	return view
}

func eventView(event *database.Event) map[string]interface{} {
	return map[string]interface{}{
		"id":                event.ID,
		"seq":               event.Seq,
		"event_type":        event.Type,
		"title":             event.Title,
		"company":           event.Company,
		"summary":           event.Summary,
		"why_it_matters":    event.WhyItMatters,
		"evidence_quotes":   event.Quotes,
		"materiality_score": event.Score,
		"confidence":        event.Confidence,
		"meta":              event.Meta,
		"source_url":        event.SourceURL,
		"created_at":        event.CreatedAt.Format(time.RFC3339),
	}
}

func sourceView(source *database.Source) map[string]interface{} {
	return map[string]interface{}{
		"id":         source.ID,
		"name":       source.Name,
		"url":        source.URL,
		"category":   source.Category,
		"active":     source.Active,
		"created_at": source.CreatedAt.Format(time.RFC3339),
	}
}
