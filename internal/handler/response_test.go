package handler_test

import (
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/andrewwphillips/gqlview/internal/handler"
)

// batchData tests batch mode where the body is a list of requests and the response a list of results
var batchData = map[string]struct {
	contentType string
	body        string
	noConcur    bool

	status   int
	expected string // expected response body (exact)
	expError string // expected error message (when the whole batch fails)
}{
	"Two": {
		contentType: jsonType, body: `[{"id":1,"query":"{hello}"},{"id":2,"query":"{dbl(v:2)}"}]`,
		status:   http.StatusOK,
		expected: `[{"data":{"hello":"world"},"id":1,"status":200},{"data":{"dbl":4},"id":2,"status":200}]`,
	},
	"TwoSequential": {
		contentType: jsonType, body: `[{"id":1,"query":"{hello}"},{"id":2,"query":"{dbl(v:2)}"}]`, noConcur: true,
		status:   http.StatusOK,
		expected: `[{"data":{"hello":"world"},"id":1,"status":200},{"data":{"dbl":4},"id":2,"status":200}]`,
	},
	"StringID": {
		contentType: jsonType, body: `[{"id":"a","query":"{hello}"}]`,
		status:   http.StatusOK,
		expected: `[{"data":{"hello":"world"},"id":"a","status":200}]`,
	},
	"NoID": {
		contentType: jsonType, body: `[{"query":"{hello}"}]`,
		status:   http.StatusOK,
		expected: `[{"data":{"hello":"world"},"id":null,"status":200}]`,
	},
	"ResolverError": {
		contentType: jsonType, body: `[{"id":1,"query":"{fail}"}]`,
		status: http.StatusOK,
		expected: `[{"errors":[{"message":"resolver func error","path":["fail"],"locations":[{"line":1,"column":2}]}],` +
			`"data":{"fail":null},"id":1,"status":200}]`,
	},
	"OneBad": {
		contentType: jsonType, body: `[{"id":1,"query":"{hello}"},{"id":2,"query":"{zzzzzzzzzz}"}]`,
		status: http.StatusBadRequest,
		expected: `[{"data":{"hello":"world"},"id":1,"status":200},` +
			`{"errors":[{"message":"Cannot query field \"zzzzzzzzzz\" on type \"Query\".","locations":[{"line":1,"column":2}]}],` +
			`"id":2,"status":400}]`,
	},
	"Form": {
		contentType: formType, body: "query=" + url.QueryEscape("{hello}"),
		status:   http.StatusOK,
		expected: `[{"data":{"hello":"world"},"id":null,"status":200}]`,
	},
	"NotList": {
		contentType: jsonType, body: `{"query":"{hello}"}`,
		status: http.StatusBadRequest, expError: `Batch requests should receive a list, but received {"query":"{hello}"}.`,
	},
	"Empty": {
		contentType: jsonType, body: `[]`,
		status: http.StatusBadRequest, expError: "Received an empty list in the batch request.",
	},
	"MissingQuery": {
		contentType: jsonType, body: `[{"id":1,"query":"{hello}"},{"id":2}]`,
		status: http.StatusBadRequest, expError: "Must provide query string.",
	},
	"NotObject": {
		contentType: jsonType, body: `[1]`,
		status: http.StatusBadRequest, expError: "Must provide query string.",
	},
}

func TestBatch(t *testing.T) {
	for name, testData := range batchData {
		h := newHandler(handler.Batch(true), handler.NoConcurrency(testData.noConcur))
		writer := serve(h, http.MethodPost, "/", testData.contentType, testData.body)

		Assertf(t, writer.Code == testData.status, "%14s: Expected status %d, got %d", name, testData.status, writer.Code)
		if testData.expError != "" {
			expected := `{"errors":[{"message":` + jsonString(testData.expError) + `}]}`
			Assertf(t, writer.Body.String() == expected, "%14s: Expected %s, got %s", name, expected, writer.Body.String())
			continue
		}
		Assertf(t, writer.Body.String() == testData.expected, "%14s: Expected %s, got %s",
			name, testData.expected, writer.Body.String())
	}
}

// TestBatchMutations checks that mutations in a batch are run in order
func TestBatchMutations(t *testing.T) {
	h := newHandler(handler.Batch(true))
	writer := serve(h, http.MethodPost, "/", jsonType,
		`[{"id":1,"query":"mutation{store(p:1)}"},{"id":2,"query":"mutation{store(p:2)}"},{"id":3,"query":"mutation{store(p:3)}"}]`)

	expected := `[{"data":{"store":2},"id":1,"status":200},{"data":{"store":4},"id":2,"status":200},` +
		`{"data":{"store":6},"id":3,"status":200}]`
	Assertf(t, writer.Body.String() == expected, "Expected %s, got %s", expected, writer.Body.String())
	Assertf(t, stored.Load() == 3, "Expected last stored value 3, got %d", stored.Load())
}

func TestBatchAndGraphiQL(t *testing.T) {
	defer func() {
		Assertf(t, recover() != nil, "Expected panic using GraphiQL and batch together")
	}()
	newHandler(handler.Batch(true), handler.GraphiQL(true))
}

var prettyData = map[string]struct {
	pretty   bool
	target   string
	query    string
	expected string
}{
	"Compact": {false, "/", `{hello}`, `{"data":{"hello":"world"}}`},
	"Option":  {true, "/", `{hello}`, "{\n  \"data\": {\n    \"hello\": \"world\"\n  }\n}"},
	"URL":     {false, "/?pretty=1", `{hello}`, "{\n  \"data\": {\n    \"hello\": \"world\"\n  }\n}"},
	"Sorted": {true, "/", `{fail}`, `{
  "data": {
    "fail": null
  },
  "errors": [
    {
      "locations": [
        {
          "column": 2,
          "line": 1
        }
      ],
      "message": "resolver func error",
      "path": [
        "fail"
      ]
    }
  ]
}`},
	"Error":   {true, "/", ``, "{\n  \"errors\": [\n    {\n      \"message\": \"Must provide query string.\"\n    }\n  ]\n}"},
}

func TestPretty(t *testing.T) {
	for name, testData := range prettyData {
		h := newHandler(handler.Pretty(testData.pretty))
		writer := serve(h, http.MethodPost, testData.target, graphType, testData.query)
		Assertf(t, writer.Body.String() == testData.expected, "%8s: Expected\n%s\ngot\n%s",
			name, testData.expected, writer.Body.String())
	}
}

func TestGzipResponse(t *testing.T) {
	writer := serve(newHandler(), http.MethodPost, "/", jsonType, `{"query":"{hello}"}`, "Accept-Encoding", "gzip, deflate")
	Assertf(t, writer.Header().Get("Content-Encoding") == "gzip", "Expected gzip encoding, got %q",
		writer.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(writer.Body)
	if err != nil {
		Assertf(t, false, "Expected gzip body, got error %v", err)
		return
	}
	body, err := io.ReadAll(zr)
	Assertf(t, err == nil, "Expected no error decompressing, got %v", err)
	Assertf(t, string(body) == `{"data":{"hello":"world"}}`, "Unexpected body %s", body)
}

var acceptEncodingData = map[string]struct {
	header string
	gzip   bool
}{
	"None":      {"", false},
	"Identity":  {"identity", false},
	"Gzip":      {"gzip", true},
	"Weighted":  {"gzip;q=0.5, br", true},
	"Refused":   {"gzip;q=0, deflate", false},
	"RefusedSp": {"deflate, gzip ; q=0.000", false},
	"Wildcard":  {"*", true},
	"WildNoZip": {"*;q=1, gzip;q=0", false},
	"WildZero":  {"*;q=0", false},
}

func TestAcceptEncoding(t *testing.T) {
	for name, testData := range acceptEncodingData {
		writer := serve(newHandler(), http.MethodPost, "/", jsonType, `{"query":"{hello}"}`,
			"Accept-Encoding", testData.header)
		got := writer.Header().Get("Content-Encoding") == "gzip"
		Assertf(t, got == testData.gzip, "%10s: Expected gzip %v, got %v", name, testData.gzip, got)
		if !testData.gzip {
			Assertf(t, writer.Body.String() == `{"data":{"hello":"world"}}`, "%10s: Unexpected body %s",
				name, writer.Body.String())
		}
	}
}

var csrfToken = regexp.MustCompile(`^[a-zA-Z0-9]{32}$`)

func TestCSRFCookie(t *testing.T) {
	h := newHandler()

	// New token
	writer := serve(h, http.MethodGet, "/?query="+url.QueryEscape("{hello}"), "", "")
	cookie := findCookie(writer.Result().Cookies(), "csrftoken")
	if cookie == nil {
		Assertf(t, false, "Expected csrftoken cookie")
		return
	}
	Assertf(t, csrfToken.MatchString(cookie.Value), "Expected 32 char token, got %q", cookie.Value)
	Assertf(t, cookie.Path == "/", "Expected path /, got %q", cookie.Path)
	Assertf(t, cookie.MaxAge == 31449600, "Expected max age of a year, got %d", cookie.MaxAge)
	Assertf(t, cookie.SameSite == http.SameSiteLaxMode, "Expected SameSite=Lax, got %v", cookie.SameSite)

	// Valid token is kept (even for an error response)
	const token = "abcdefghijklmnopqrstuvwxyzABCDEF"
	writer = serve(h, http.MethodPut, "/", "", "", "Cookie", "csrftoken="+token)
	cookie = findCookie(writer.Result().Cookies(), "csrftoken")
	Assertf(t, cookie != nil && cookie.Value == token, "Expected token to be kept, got %v", cookie)

	// Invalid token is replaced
	writer = serve(h, http.MethodGet, "/", "", "", "Cookie", "csrftoken=bad")
	cookie = findCookie(writer.Result().Cookies(), "csrftoken")
	Assertf(t, cookie != nil && csrfToken.MatchString(cookie.Value), "Expected new token, got %v", cookie)

	// Cookie name option
	writer = serve(newHandler(handler.CSRFCookie("xsrf")), http.MethodGet, "/", "", "")
	Assertf(t, findCookie(writer.Result().Cookies(), "xsrf") != nil, "Expected xsrf cookie")
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRequestID(t *testing.T) {
	writer := serve(newHandler(), http.MethodPost, "/", graphType, `{hello}`, "X-Request-ID", "req-1")
	Assertf(t, writer.Header().Get("X-Request-ID") == "req-1", "Expected request ID to be echoed, got %q",
		writer.Header().Get("X-Request-ID"))

	writer = serve(newHandler(), http.MethodPost, "/", graphType, `{hello}`)
	Assertf(t, len(writer.Header().Get("X-Request-ID")) == 36, "Expected generated UUID, got %q",
		writer.Header().Get("X-Request-ID"))
}

func jsonString(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
