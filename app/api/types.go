package api

import (
	"github.com/safarai/intelwatch/app/database"
	"github.com/safarai/intelwatch/app/pipeline"
)

// Handler carries the dependencies the HTTP endpoints read and write
// through.
type Handler struct {
	orchestrator *pipeline.Orchestrator
	sourceRepo   database.SourceRepository
	itemRepo     database.ItemRepository
	runRepo      database.RunRepository
	eventRepo    database.EventRepository
	briefRepo    database.BriefRepository
	logRepo      database.LogRepository
}

type createSourceRequest struct {
	Name     string `json:"name" binding:"required"`
	URL      string `json:"url" binding:"required"`
	Category string `json:"category"`
	Active   *bool  `json:"active"`
}

type updateSourceRequest struct {
	Name     *string `json:"name"`
	URL      *string `json:"url"`
	Category *string `json:"category"`
	Active   *bool   `json:"active"`
}
