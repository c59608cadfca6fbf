package handler

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/KattaManasa0402/Marine-life/internal/middleware"
	"github.com/KattaManasa0402/Marine-life/internal/model"
	"github.com/KattaManasa0402/Marine-life/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ProjectionHandler struct {
	svc *service.ProjectionService
}

func NewProjectionHandler(svc *service.ProjectionService) *ProjectionHandler {
	return &ProjectionHandler{svc: svc}
}

// GetStats handles GET /api/stats
func (h *ProjectionHandler) GetStats(c fiber.Ctx) error {
	stats, err := h.svc.Stats(c.Context())
	if err != nil {
		return serviceError(c, err, "Failed to fetch statistics")
	}
	return c.JSON(stats)
}

// MapData handles GET /api/map/data
func (h *ProjectionHandler) MapData(c fiber.Ctx) error {
	var f model.MapFilter
	bounds := []struct {
		dst  **float64
		name string
	}{
		{&f.MinLat, "min_lat"}, {&f.MaxLat, "max_lat"},
		{&f.MinLng, "min_lng"}, {&f.MaxLng, "max_lng"},
	}
	for _, b := range bounds {
		v, errMsg := middleware.ParseOptionalFloat(c.Query(b.name), b.name)
		if errMsg != "" {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
		}
		*b.dst = v
	}
	f.Skip, f.Limit = middleware.ParsePage(c, 1000)

	points, err := h.svc.MapData(c.Context(), f)
	if err != nil {
		return serviceError(c, err, "Failed to fetch map data")
	}
	return c.JSON(points)
}

// ResearchData handles GET /api/research/data
func (h *ProjectionHandler) ResearchData(c fiber.Ctx) error {
	f, errMsg := researchFilter(c)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	records, err := h.svc.ResearchData(c.Context(), f)
	if err != nil {
		return serviceError(c, err, "Failed to fetch research data")
	}
	return c.JSON(records)
}

// Export handles GET /api/research/export.xlsx
func (h *ProjectionHandler) Export(c fiber.Ctx) error {
	f, errMsg := researchFilter(c)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	var buf bytes.Buffer
	n, err := h.svc.ExportResearch(c.Context(), f, &buf)
	if err != nil {
		return serviceError(c, err, "Failed to export research data")
	}
	log.Info().Int("rows", n).Msg("research export generated")

	filename := fmt.Sprintf("marine_research_%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(buf.Bytes())
}

func researchFilter(c fiber.Ctx) (model.ResearchFilter, string) {
	f := model.ResearchFilter{
		Species:       c.Query("species"),
		HealthStatus:  c.Query("health_status"),
		OnlyValidated: fiber.Query[bool](c, "only_validated"),
	}
	var errMsg string
	if f.DateFrom, errMsg = middleware.ParseOptionalTime(c.Query("date_from"), "date_from"); errMsg != "" {
		return f, errMsg
	}
	if f.DateTo, errMsg = middleware.ParseOptionalTime(c.Query("date_to"), "date_to"); errMsg != "" {
		return f, errMsg
	}
	f.Skip, f.Limit = middleware.ParsePage(c, 100)
	return f, ""
}
