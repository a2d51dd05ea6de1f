package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/conveyor/dlq"
	"github.com/xraph/conveyor/message"
)

type replayRequest struct {
	IDs []string `json:"ids"`
}

type replayWindowRequest struct {
	Since time.Time `json:"since"`
	Until time.Time `json:"until"`
}

type replayResponse struct {
	Replayed int      `json:"replayed"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
}

func toReplayResponse(res dlq.ReplayResult) replayResponse {
	return replayResponse{
		Replayed: res.Replayed,
		Failed:   res.Failed,
		Errors:   errorStrings(res.Errors),
	}
}

// listDLQ handles GET /v1/dlq?limit=&topic=
func (a *API) listDLQ(w http.ResponseWriter, r *http.Request) {
	opts := dlq.FetchOptions{}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			httpError(w, http.StatusBadRequest, "invalid limit %q", s)
			return
		}
		opts.Limit = n
	}
	if s := r.URL.Query().Get("topic"); s != "" {
		topic, err := message.ParseTopic(s)
		if err != nil {
			writeError(w, err)
			return
		}
		opts.Topic = topic
	}

	msgs, err := a.eng.DLQ(userID(r)).FetchMessages(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// dlqStats handles GET /v1/dlq/stats
func (a *API) dlqStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.eng.DLQ(userID(r)).Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// dlqAlerts handles GET /v1/dlq/alerts?maxMessages=&maxAge=
func (a *API) dlqAlerts(w http.ResponseWriter, r *http.Request) {
	var th dlq.Thresholds
	q := r.URL.Query()
	if s := q.Get("maxMessages"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid maxMessages %q", s)
			return
		}
		th.MaxMessages = n
	}
	if s := q.Get("maxAge"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid maxAge %q", s)
			return
		}
		th.MaxAge = d
	}

	alert, err := a.eng.DLQ(userID(r)).CheckAlertThresholds(r.Context(), th)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// replayDLQ handles POST /v1/dlq/replay
func (a *API) replayDLQ(w http.ResponseWriter, r *http.Request) {
	var req replayRequest
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}
	if len(req.IDs) == 0 {
		httpError(w, http.StatusBadRequest, "`ids` is required")
		return
	}

	res, err := a.eng.DLQ(userID(r)).ReplayByID(r.Context(), req.IDs...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReplayResponse(res))
}

// replayDLQTopic handles POST /v1/dlq/replay/topic/{topic}
func (a *API) replayDLQTopic(w http.ResponseWriter, r *http.Request) {
	topic, err := message.ParseTopic(chi.URLParam(r, "topic"))
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := a.eng.DLQ(userID(r)).ReplayByTopic(r.Context(), topic)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReplayResponse(res))
}

// replayDLQWindow handles POST /v1/dlq/replay/window
func (a *API) replayDLQWindow(w http.ResponseWriter, r *http.Request) {
	var req replayWindowRequest
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}

	res, err := a.eng.DLQ(userID(r)).ReplayByTimeWindow(r.Context(), req.Since, req.Until)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReplayResponse(res))
}
