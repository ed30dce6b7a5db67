package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/airbusgeo/stac-ingester/common"
	"github.com/airbusgeo/stac-ingester/service"
	"github.com/airbusgeo/stac-ingester/service/log"
	"github.com/gorilla/mux"
)

// NewHandler returns the routes of the workflow api. "/" is a health check
func (wf *Workflow) NewHandler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) { w.Write([]byte("ok")) }).Methods("GET")
	r.HandleFunc("/discovery", wf.DiscoveryHandler).Methods("POST")
	r.HandleFunc("/discovery/run", wf.RunDiscoveryHandler).Methods("POST")
	r.HandleFunc("/stac", wf.StacHandler).Methods("POST")
	return r
}

// statusCode returns the http status corresponding to the error
func statusCode(err error) int {
	var notFound service.ErrNotFound
	switch {
	case errors.As(err, &notFound):
		return 404
	case service.Validation(err):
		return 400
	case service.Temporary(err):
		return 503
	}
	return 500
}

func writeError(w http.ResponseWriter, req *http.Request, msg string, err error) {
	code := statusCode(err)
	if code >= 500 {
		log.Logger(req.Context()).Sugar().Warnf("%s: %v", msg, err)
	}
	w.WriteHeader(code)
	fmt.Fprintf(w, "%v", err)
}

// DiscoveryHandler returns one batch of files
func (wf *Workflow) DiscoveryHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	var dreq common.DiscoveryRequest
	if err := json.NewDecoder(req.Body).Decode(&dreq); err != nil {
		writeError(w, req, "wf.discovery", service.ErrInvalidInput{Field: "body", Reason: err.Error()})
		return
	}
	batch, err := wf.Discover(ctx, &dreq)
	if err != nil {
		writeError(w, req, "wf.discovery", err)
		return
	}
	b, err := common.MarshalJSON(batch)
	if err != nil {
		writeError(w, req, "wf.discovery", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}

// RunDiscoveryHandler discovers all the files and publishes their events
func (wf *Workflow) RunDiscoveryHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	var dreq common.DiscoveryRequest
	if err := json.NewDecoder(req.Body).Decode(&dreq); err != nil {
		writeError(w, req, "wf.rundiscovery", service.ErrInvalidInput{Field: "body", Reason: err.Error()})
		return
	}
	n, results, err := wf.RunDiscovery(ctx, dreq)
	if err != nil {
		writeError(w, req, "wf.rundiscovery", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Files   int             `json:"files"`
		Results []common.Result `json:"results,omitempty"`
	}{n, results})
}

// StacHandler builds the item of the event given in the body
func (wf *Workflow) StacHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	payload, err := io.ReadAll(req.Body)
	if err != nil {
		writeError(w, req, "wf.stac", service.ErrInvalidInput{Field: "body", Reason: err.Error()})
		return
	}
	out, err := wf.HandleEvent(ctx, payload)
	if err != nil {
		writeError(w, req, "wf.stac", err)
		return
	}
	b, err := common.MarshalJSON(out)
	if err != nil {
		writeError(w, req, "wf.stac", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}
