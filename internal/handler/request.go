package handler

// request.go extracts the GraphQL parameters from the HTTP request (URL query string and body)

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

const maxMultipartMemory = 32 << 20

type (
	// requestData is the decoded body of a request: a JSON object, form values or {"query": <body>}
	requestData map[string]interface{}

	// params are the GraphQL parameters of one request
	params struct {
		query         string
		variables     map[string]interface{}
		operationName string
		id            interface{} // only used in batch responses
	}
)

// contentType returns the media type of the request (lower case, without parameters)
func contentType(r *http.Request) string {
	ct := r.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// parseBody decodes the body according to the content type.  In batch mode a JSON body is returned as a list
// (the second return value) otherwise as an object.  For unknown content types data is empty (not nil).
func (h *Handler) parseBody(r *http.Request) (data requestData, batch []requestData, err error) {
	if r.Body != nil && h.maxBodySize >= 0 {
		r.Body = http.MaxBytesReader(nil, r.Body, h.maxBodySize)
	}
	if r.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			return nil, nil, bodyError(err, "Unable to decompress gzip request body: %v")
		}
		defer zr.Close()
		r.Body = io.NopCloser(zr)
		if h.maxBodySize >= 0 {
			// the limit also applies after decompression
			r.Body = http.MaxBytesReader(nil, r.Body, h.maxBodySize)
		}
	}

	switch contentType(r) {
	case "application/graphql":
		body, err := readBody(r)
		if err != nil {
			return nil, nil, err
		}
		return requestData{"query": string(body)}, nil, nil

	case "application/json":
		body, err := readBody(r)
		if err != nil {
			return nil, nil, err
		}
		if !utf8.Valid(body) {
			return nil, nil, badRequest("The request body is not valid UTF-8.")
		}
		var v interface{}
		if err := decodeJSON(body, &v); err != nil {
			return nil, nil, badRequest("POST body sent invalid JSON.")
		}
		if h.batch {
			list, ok := v.([]interface{})
			if !ok {
				return nil, nil, badRequest("Batch requests should receive a list, but received %s.",
					bytes.TrimSpace(body))
			}
			if len(list) == 0 {
				return nil, nil, badRequest("Received an empty list in the batch request.")
			}
			batch = make([]requestData, len(list))
			for i, entry := range list {
				m, _ := entry.(map[string]interface{}) // non-objects give an empty entry (no query)
				batch[i] = m
			}
			return requestData{}, batch, nil
		}
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, nil, badRequest("The received data is not a valid JSON query.")
		}
		return m, nil, nil

	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, nil, bodyError(err, "%v")
		}
		return formData(r), nil, nil

	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return nil, nil, bodyError(err, "%v")
		}
		return formData(r), nil, nil
	}
	return requestData{}, nil, nil
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, bodyError(err, "%v")
	}
	return body, nil
}

// bodyError converts an error reading the body into a 413 if the size limit was hit, else a 400
func bodyError(err error, format string) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return newHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Request body exceeded the limit of %d bytes.", tooBig.Limit))
	}
	return badRequest(format, err)
}

// formData returns the first value of each field of the POST form (empty for GET requests)
func formData(r *http.Request) requestData {
	data := make(requestData, len(r.PostForm))
	for k, v := range r.PostForm {
		if len(v) > 0 {
			data[k] = v[0]
		}
	}
	return data
}

// decodeJSON decodes a complete JSON document (trailing data is an error) keeping numbers as json.Number
func decodeJSON(body []byte, v interface{}) error {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber() // allows us to distinguish ints from floats (see FixNumberVariables() below)
	if err := decoder.Decode(v); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errTrailingData
	}
	return nil
}

var errTrailingData = errors.New("trailing data after JSON value")

// getParams gets the GraphQL parameters.  Each is taken from the URL query string if present (and not empty)
// else from the body.
func getParams(r *http.Request, data requestData) (p params, err error) {
	q := r.URL.Query()

	p.query = q.Get("query")
	if p.query == "" {
		p.query, _ = data["query"].(string)
	}

	var variables interface{}
	if v := q.Get("variables"); v != "" {
		variables = v
	} else {
		variables = data["variables"]
	}
	if s, ok := variables.(string); ok {
		variables = nil
		if s != "" && decodeJSON([]byte(s), &variables) != nil {
			return p, badRequest("Variables are invalid JSON.")
		}
	}
	switch v := variables.(type) {
	case nil:
	case map[string]interface{}:
		p.variables = v
		FixNumberVariables(p.variables)
	default:
		return p, badRequest("Variables are invalid JSON.")
	}

	p.operationName = q.Get("operationName")
	if p.operationName == "" {
		p.operationName, _ = data["operationName"].(string)
	}
	if p.operationName == "null" {
		p.operationName = ""
	}

	if id := q.Get("id"); id != "" {
		p.id = id
	} else {
		p.id = data["id"]
	}
	return p, nil
}

// FixNumberVariables goes through the structure created by the JSON decoder, converting any json.Number values to
// either an int64 or a float64.  This assumes that all the JSON numbers were decoded into a json.Number type, rather
// than int/float, by use of the json.Decode.UseNumber() method.
func FixNumberVariables(m map[string]interface{}) {
	for key, val := range m {
		m[key] = fixNumber(val)
	}
}

func fixNumber(val interface{}) interface{} {
	switch v := val.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String() // out of range for float64 (the JSON decoder has already checked the syntax)

	case map[string]interface{}:
		FixNumberVariables(v) // recursively handle nested numbers

	case []interface{}:
		for i := range v {
			v[i] = fixNumber(v[i])
		}
	}
	return val
}
