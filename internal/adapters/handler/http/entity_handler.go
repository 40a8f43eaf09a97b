package http

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/vncsmyrnk/accounts/internal/core/domain"
	"github.com/vncsmyrnk/accounts/internal/core/ports"
)

type EntityHandler struct {
	service ports.EntityService
	logger  *zap.Logger
}

func NewEntityHandler(service ports.EntityService, logger *zap.Logger) *EntityHandler {
	return &EntityHandler{
		service: service,
		logger:  logger,
	}
}

type entityRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type entityListResponse struct {
	Entities []*domain.Entity `json:"entities"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
}

// List godoc
// @Summary      Lists entities
// @Tags         entities
// @Produce      json
// @Security     BearerAuth
// @Param        page  query     int  false  "Page number"  default(1)
// @Success      200   {object}  entityListResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /entities [get]
func (h *EntityHandler) List(w http.ResponseWriter, r *http.Request) {
	page := pageParam(r)
	entities, total, err := h.service.List(r.Context(), page)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entityListResponse{Entities: entities, Total: total, Page: page})
}

// Get godoc
// @Summary      Returns an entity
// @Tags         entities
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Entity ID"
// @Success      200  {object}  domain.Entity
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /entities/{id} [get]
func (h *EntityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	entity, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

// Create godoc
// @Summary      Creates an entity
// @Tags         entities
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        entity  body      entityRequest  true  "New entity"
// @Success      201     {object}  domain.Entity
// @Failure      400     {object}  errorResponse
// @Failure      401     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Router       /entities [post]
func (h *EntityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req entityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	entity, err := h.service.Create(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, entity)
}

// Update godoc
// @Summary      Renames an entity
// @Tags         entities
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      int            true  "Entity ID"
// @Param        entity  body      entityRequest  true  "New name"
// @Success      200     {object}  domain.Entity
// @Failure      400     {object}  errorResponse
// @Failure      401     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Failure      404     {object}  errorResponse
// @Router       /entities/{id} [put]
func (h *EntityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req entityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	entity, err := h.service.Update(r.Context(), id, req.Name)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

// Delete godoc
// @Summary      Deletes an entity
// @Tags         entities
// @Security     BearerAuth
// @Param        id  path  int  true  "Entity ID"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /entities/{id} [delete]
func (h *EntityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
