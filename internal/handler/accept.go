package handler

// accept.go decides whether the client would rather have HTML (GraphiQL) or JSON

import (
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var qualityRegexp = regexp.MustCompile(`(^|;)q=(0(\.\d{0,3})?|1(\.0{0,3})?)(;|$)`)

type qualified struct {
	value string
	q     float64
}

// qualityValues splits a header like Accept or Accept-Encoding into its values, most preferred first.  Values
// without a (valid) q weight have a weight of 1.  Values of equal weight keep the order they had in the header.
func qualityValues(header string) []qualified {
	parts := strings.Split(header, ",")
	values := make([]qualified, 0, len(parts))
	for _, part := range parts {
		value, params, _ := strings.Cut(part, ";")
		v := qualified{value: strings.TrimSpace(value), q: 1}
		params = strings.ReplaceAll(params, " ", "")
		if m := qualityRegexp.FindStringSubmatch(params); m != nil {
			if q, err := strconv.ParseFloat(m[2], 64); err == nil {
				v.q = q
			}
		}
		values = append(values, v)
	}
	sort.SliceStable(values, func(i, j int) bool { return values[i].q > values[j].q })
	return values
}

// acceptedContentTypes returns the media types of the Accept header, most preferred first
func acceptedContentTypes(r *http.Request) []string {
	header := r.Header.Get("Accept")
	if header == "" {
		header = "*/*"
	}
	values := qualityValues(header)
	r2 := make([]string, len(values))
	for i, v := range values {
		r2[i] = v.value
	}
	return r2
}

// acceptsGzip reports whether the Accept-Encoding header allows a gzip response.  An explicit "gzip" entry
// takes precedence over "*" and a weight of 0 means not acceptable.
func acceptsGzip(r *http.Request) bool {
	header := r.Header.Get("Accept-Encoding")
	if header == "" {
		return false
	}
	wildcard := false
	for _, v := range qualityValues(header) {
		switch strings.ToLower(v.value) {
		case "gzip", "x-gzip":
			return v.q > 0
		case "*":
			wildcard = v.q > 0
		}
	}
	return wildcard
}

// wantsHTML reports whether text/html is preferred to application/json.  A type that is not listed has
// the lowest priority.
func wantsHTML(r *http.Request) bool {
	accepted := acceptedContentTypes(r)
	priority := func(mediaType string) int {
		for i, t := range accepted {
			if t == mediaType {
				return len(accepted) - i
			}
		}
		return 0
	}
	return priority("text/html") > priority("application/json")
}

// canDisplayGraphiQL is true if the request is from a browser and the raw output was not asked for
func (h *Handler) canDisplayGraphiQL(r *http.Request, data requestData) bool {
	if _, raw := r.URL.Query()["raw"]; raw {
		return false
	}
	if _, raw := data["raw"]; raw {
		return false
	}
	return wantsHTML(r)
}
