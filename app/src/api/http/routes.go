package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"mission-telemetry/app/src/core"
	"mission-telemetry/app/src/domain"
	"mission-telemetry/app/src/infra"
	"mission-telemetry/app/src/infra/utils"
	"mission-telemetry/app/src/shared/constants"
	sharederrors "mission-telemetry/app/src/shared/errors"

	"github.com/go-chi/chi/v5"
)

const paramMissionID = "id"

// handler contains the HTTP handlers and shared dependencies for the REST API.
type handler struct {
	service      domain.MissionService
	logger       *infra.Logger
	maxBodyBytes int64
}

func registerRoutes(router chi.Router, h *handler) {
	router.Get("/health", h.handleHealth)
	router.Get("/healthz", h.handleHealth)

	router.Route("/mission", func(r chi.Router) {
		r.Get("/", h.handleListMissions)
		r.Post("/create", h.handleCreateMission)
		r.Get("/live", h.handleLiveMission)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetMission)
			r.Get("/records", h.handleListRecords)
			r.Post("/records/import", h.handleImportRecords)
			r.Post("/add-record", h.handleAddRecord)
			r.Post("/update", h.handleUpdateMission)
		})
	})
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func ok(message string) envelope {
	return envelope{Success: true, Message: message}
}

type missionJSON struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	StartDate  *string `json:"start_date"`
	EndDate    *string `json:"end_date"`
	Duration   *string `json:"duration"`
	IsRealtime bool    `json:"is_realtime"`
	CreatedAt  string  `json:"created_at"`
}

type recordJSON struct {
	ID        int64          `json:"id"`
	Data      domain.Payload `json:"data"`
	CreatedAt string         `json:"created_at"`
}

type missionResponse struct {
	envelope
	Mission missionJSON `json:"mission"`
}

type missionListResponse struct {
	envelope
	Missions []missionJSON `json:"missions"`
}

type liveMissionResponse struct {
	envelope
	MissionID *int64 `json:"mission_id"`
}

type importResponse struct {
	envelope
	Count     int   `json:"count"`
	MissionID int64 `json:"mission_id"`
}

type addRecordResponse struct {
	envelope
	RecordID int64 `json:"record_id"`
}

type recordListResponse struct {
	envelope
	Records []recordJSON `json:"records"`
}

type createMissionRequest struct {
	Name       string `json:"name"`
	IsRealtime bool   `json:"is_realtime"`
}

type importRequest struct {
	Records []struct {
		Data domain.Payload `json:"data"`
	} `json:"records"`
}

type updateMissionRequest struct {
	EndDate  *string `json:"end_date"`
	Duration *string `json:"duration"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.logger != nil && r.URL.Path == "/health" {
		h.logger.Println(r.Context(), "health check OK")
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleListMissions(w http.ResponseWriter, r *http.Request) {
	missions, err := h.service.ListMissions(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	payload := make([]missionJSON, len(missions))
	for i, mission := range missions {
		payload[i] = toMissionJSON(mission)
	}
	h.writeJSON(w, http.StatusOK, missionListResponse{envelope: ok("missions retrieved"), Missions: payload})
}

func (h *handler) handleCreateMission(w http.ResponseWriter, r *http.Request) {
	var req createMissionRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	mission, err := h.service.CreateMission(r.Context(), domain.NewMission{
		Name: req.Name,
		Mode: domain.ModeFromRealtime(req.IsRealtime),
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, missionResponse{envelope: ok("mission created"), Mission: toMissionJSON(mission)})
}

func (h *handler) handleLiveMission(w http.ResponseWriter, r *http.Request) {
	mission, found, err := h.service.CurrentLiveMission(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	resp := liveMissionResponse{envelope: ok("no live mission")}
	if found {
		resp.Message = "live mission found"
		resp.MissionID = &mission.ID
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleGetMission(w http.ResponseWriter, r *http.Request) {
	id, valid := h.missionID(w, r)
	if !valid {
		return
	}

	mission, err := h.service.GetMission(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, missionResponse{envelope: ok("mission retrieved"), Mission: toMissionJSON(mission)})
}

func (h *handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	id, valid := h.missionID(w, r)
	if !valid {
		return
	}

	records, err := h.service.ListRecords(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	payload := make([]recordJSON, len(records))
	for i, record := range records {
		payload[i] = recordJSON{
			ID:        record.ID,
			Data:      record.Data,
			CreatedAt: record.CreatedAt.UTC().Format(constants.TimeFormat),
		}
	}
	h.writeJSON(w, http.StatusOK, recordListResponse{envelope: ok("records retrieved"), Records: payload})
}

func (h *handler) handleImportRecords(w http.ResponseWriter, r *http.Request) {
	id, valid := h.missionID(w, r)
	if !valid {
		return
	}

	var req importRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	payloads := make([]domain.Payload, len(req.Records))
	for i, record := range req.Records {
		if record.Data == nil {
			record.Data = domain.Payload{}
		}
		payloads[i] = record.Data
	}

	result, err := h.service.ImportRecords(r.Context(), id, payloads)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, importResponse{
		envelope:  ok("records imported"),
		Count:     result.Count,
		MissionID: result.MissionID,
	})
}

func (h *handler) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	id, valid := h.missionID(w, r)
	if !valid {
		return
	}

	var payload domain.Payload
	if !h.decodeBody(w, r, &payload) {
		return
	}
	if payload == nil {
		h.writeError(w, http.StatusBadRequest, "record must be a JSON object")
		return
	}

	recordID, err := h.service.AppendRecord(r.Context(), id, payload)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, addRecordResponse{envelope: ok("record added"), RecordID: recordID})
}

func (h *handler) handleUpdateMission(w http.ResponseWriter, r *http.Request) {
	id, valid := h.missionID(w, r)
	if !valid {
		return
	}

	var req updateMissionRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if _, err := h.service.UpdateMission(r.Context(), id, domain.MissionUpdate{
		EndDate:  req.EndDate,
		Duration: req.Duration,
	}); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ok("mission updated"))
}

func (h *handler) missionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := constants.ParseID(chi.URLParam(r, paramMissionID))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid mission id")
		return 0, false
	}
	return id, true
}

// decodeBody reads a single JSON document into dst, answering the request itself on failure.
// Numbers inside opaque payloads stay json.Number so large integers survive storage unchanged.
func (h *handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := r.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		if h.logger != nil {
			h.logger.Printf(r.Context(), "%v: %v", sharederrors.ErrInvalidBody, err)
		}
		h.writeError(w, http.StatusBadRequest, sharederrors.ErrInvalidBody.Error())
		return false
	}
	return true
}

func (h *handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "mission not found")
	case errors.Is(err, domain.ErrMissionClosed):
		h.writeError(w, http.StatusConflict, domain.ErrMissionClosed.Error())
	default:
		if h.logger != nil {
			h.logger.Errorf(r.Context(), "request failed: %v", err)
		}
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, envelope{Success: false, Message: message})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func toMissionJSON(m domain.Mission) missionJSON {
	out := missionJSON{
		ID:         m.ID,
		Name:       m.Name,
		StartDate:  formatTime(m.StartDate),
		EndDate:    formatTime(m.EndDate),
		IsRealtime: m.IsRealtime(),
		CreatedAt:  m.CreatedAt.UTC().Format(constants.TimeFormat),
	}
	if m.Duration != nil {
		out.Duration = utils.Ptr(core.FormatDuration(*m.Duration))
	}
	return out
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	return utils.Ptr(t.UTC().Format(constants.TimeFormat))
}
