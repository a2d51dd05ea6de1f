package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/conveyor/id"
	"github.com/xraph/conveyor/job"
)

type sendJobRequest struct {
	Data    json.RawMessage `json:"data"`
	Options job.SendOptions `json:"options"`
}

type sendJobResponse struct {
	ID string `json:"id"`
}

// sendJob handles POST /v1/jobs/{name}
func (a *API) sendJob(w http.ResponseWriter, r *http.Request) {
	var req sendJobRequest
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}
	if len(req.Data) == 0 {
		req.Data = json.RawMessage("null")
	}

	jobID, err := a.eng.Jobs(userID(r)).Send(r.Context(), chi.URLParam(r, "name"), req.Data, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sendJobResponse{ID: jobID.String()})
}

// getJob handles GET /v1/jobs/{name}/{jobId}
func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := id.ParseJobID(chi.URLParam(r, "jobId"))
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid job ID: %v", err)
		return
	}

	j, err := a.eng.Jobs(userID(r)).GetJobByID(r.Context(), chi.URLParam(r, "name"), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// cancelJob handles POST /v1/jobs/{name}/{jobId}/cancel
func (a *API) cancelJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := id.ParseJobID(chi.URLParam(r, "jobId"))
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid job ID: %v", err)
		return
	}

	if err := a.eng.Jobs(userID(r)).Cancel(r.Context(), chi.URLParam(r, "name"), jobID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
