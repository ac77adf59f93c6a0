package handler

// response.go builds the JSON responses and writes them (compressed if the client accepts gzip)

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/dolmen-go/jsonmap"
	"github.com/klauspost/compress/gzip"
	"github.com/sourcegraph/conc/iter"
	"github.com/vektah/gqlparser/v2/ast"
	"go.uber.org/zap"

	"github.com/andrewwphillips/gqlview/engine"
)

type batchResult struct {
	body   []byte
	status int
	err    error
}

// getResponse executes one request and returns the encoded response and HTTP status code
func (h *Handler) getResponse(r *http.Request, data requestData, log *zap.Logger) ([]byte, int, error) {
	p, err := getParams(r, data)
	if err != nil {
		return nil, 0, err
	}
	resp, err := h.executeRequest(r, p, log)
	if err != nil {
		return nil, 0, err
	}

	status := http.StatusOK
	out := jsonmap.Ordered{Data: make(map[string]interface{}, 4), Order: make([]string, 0, 4)}
	if len(resp.Errors) > 0 {
		set(&out, "errors", resp.Errors)
	}
	if engine.HasPathless(resp.Errors) {
		status = http.StatusBadRequest // the request could not be executed (syntax or validation errors)
	} else {
		set(&out, "data", resp.Data)
	}
	if h.batch {
		set(&out, "id", p.id)
		set(&out, "status", status)
	}

	body, err := h.jsonEncode(r, &out)
	if err != nil {
		return nil, 0, err
	}
	return body, status, nil
}

// getBatchResponse executes all the requests of a batch returning a JSON list of the responses.  The status
// is the highest status of the individual responses.  If any request has an HTTP error the whole batch fails.
func (h *Handler) getBatchResponse(r *http.Request, batch []requestData, log *zap.Logger) ([]byte, int, error) {
	run := func(data *requestData) batchResult {
		body, status, err := h.getResponse(r, *data, log)
		return batchResult{body, status, err}
	}

	var results []batchResult
	if h.noConcurrency || !readOnly(r, batch) {
		results = make([]batchResult, len(batch))
		for i := range batch {
			results[i] = run(&batch[i])
		}
	} else {
		results = iter.Mapper[requestData, batchResult]{MaxGoroutines: h.maxBatchConcurrency}.Map(batch, run)
	}

	var buf bytes.Buffer
	status := 0
	buf.WriteByte('[')
	for i, result := range results {
		if result.err != nil {
			return nil, 0, result.err
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(result.body)
		if result.status > status {
			status = result.status
		}
	}
	buf.WriteByte(']')
	if status == 0 {
		status = http.StatusOK
	}
	return buf.Bytes(), status, nil
}

// readOnly is true if all the requests of a batch are queries, so they can safely be run concurrently
func readOnly(r *http.Request, batch []requestData) bool {
	for _, data := range batch {
		p, err := getParams(r, data)
		if err != nil {
			return false
		}
		op, err := parseOperation(p.query, p.operationName)
		if err != nil || op == nil || op.Operation != ast.Query {
			return false
		}
	}
	return true
}

func set(o *jsonmap.Ordered, key string, value interface{}) {
	if _, ok := o.Data[key]; !ok {
		o.Order = append(o.Order, key)
	}
	o.Data[key] = value
}

// jsonEncode encodes the response compactly (keys in the order added) or, if pretty output was asked
// for, indented with the keys sorted at every level
func (h *Handler) jsonEncode(r *http.Request, out *jsonmap.Ordered) ([]byte, error) {
	compact, err := json.Marshal(out)
	if err != nil || (!h.pretty && r.URL.Query().Get("pretty") == "") {
		return compact, err
	}

	// Structs (eg gqlerror.Error) and raw engine output keep their own key order, so decode everything
	// into maps, which encoding/json writes sorted.  Numbers are kept as written.
	var v interface{}
	if err := decodeJSON(compact, &v); err != nil {
		return nil, err
	}
	return json.MarshalIndent(v, "", "  ")
}

// writeError writes the response for an error that prevented GraphQL execution, returning the status
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) int {
	e, ok := err.(*httpError)
	if !ok {
		log.Error("internal error handling GraphQL request", zap.Error(err))
		e = newHTTPError(http.StatusInternalServerError, err.Error())
	}
	e.header(w)

	out := jsonmap.Ordered{
		Data:  map[string]interface{}{"errors": []interface{}{map[string]interface{}{"message": e.message}}},
		Order: []string{"errors"},
	}
	body, encErr := h.jsonEncode(r, &out)
	if encErr != nil {
		log.Error("encoding error response", zap.Error(encErr))
		body = []byte(`{"errors":[{"message":"Error encoding JSON response"}]}`)
	}
	h.write(w, r, log, e.status, "application/json", body)
	return e.status
}

// write sends the body, using gzip if the client accepts it
func (h *Handler) write(w http.ResponseWriter, r *http.Request, log *zap.Logger, status int, ct string, body []byte) {
	w.Header().Set("Content-Type", ct)
	if !acceptsGzip(r) {
		w.WriteHeader(status)
		if _, err := w.Write(body); err != nil {
			log.Debug("writing response", zap.Error(err))
		}
		return
	}

	w.Header().Set("Content-Encoding", "gzip")
	w.Header().Add("Vary", "Accept-Encoding")
	w.WriteHeader(status)
	gzw := gzip.NewWriter(w)
	defer gzw.Close()
	if _, err := gzw.Write(body); err != nil {
		log.Debug("writing compressed response", zap.Error(err))
	}
}
