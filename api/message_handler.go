package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/conveyor/message"
	"github.com/xraph/conveyor/producer"
)

type produceRequest struct {
	Data           json.RawMessage `json:"data"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
}

type produceResponse struct {
	ID        string `json:"id"`
	Topic     string `json:"topic"`
	Partition int    `json:"partition"`
	Offset    int64  `json:"offset"`
	Attempts  int    `json:"attempts"`
}

func (a *API) produce(w http.ResponseWriter, r *http.Request) {
	topic, err := message.ParseTopic(chi.URLParam(r, "topic"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req produceRequest
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}
	if len(req.Data) == 0 || string(req.Data) == "null" {
		httpError(w, http.StatusBadRequest, "`data` is required")
		return
	}

	var opts []producer.ProduceOption
	if req.IdempotencyKey != "" {
		opts = append(opts, producer.WithIdempotencyKey(req.IdempotencyKey))
	}

	res := a.eng.Producer(userID(r)).Produce(r.Context(), topic, req.Data, opts...)
	if !res.Success {
		writeError(w, res.Err)
		return
	}
	writeJSON(w, http.StatusCreated, produceResponse{
		ID:        res.ID,
		Topic:     res.Topic.String(),
		Partition: res.Partition,
		Offset:    res.Offset,
		Attempts:  res.Attempts,
	})
}
