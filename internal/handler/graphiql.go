package handler

// graphiql.go serves the GraphiQL console page

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

// Versions (and subresource integrity hashes) of the scripts loaded by the GraphiQL page
const (
	whatwgFetchVersion = "3.6.2"
	whatwgFetchSRI     = "sha256-+pQdxwAcHJdQ3e/9S4RK6g8ZkwdMgFQuHvLuN5uyk5c="

	reactVersion = "17.0.2"
	reactSRI     = "sha256-Ipu/TQ50iCCVZBUsZyNJfxrDk0E2yhaEIz0vqI+kFG8="
	reactDOMSRI  = "sha256-nbMykgB6tsOFJ7OdVmPpdqMFVk4ZsqWocT6issAPUF0="

	graphiqlVersion = "1.4.1"
	graphiqlSRI     = "sha256-JUMkXBQWZMfJ7fGEsTXalxVA10lzKOS9loXdLjwZKi4="
	graphiqlCSSSRI  = "sha256-Md3vdR7PDzWyo/aGfsFVF4tvS5/eAUWuIsg9QHUusCY="

	subscriptionsTransportWSVersion = "0.9.18"
	subscriptionsTransportWSSRI     = "sha256-i0hAXd4PdJ/cHX3/8tIy/Q/qKiWr5WSTxMFuL9tACkw="
)

//go:embed templates/graphiql.html
var templates embed.FS

var graphiqlTemplate = template.Must(template.ParseFS(templates, "templates/graphiql.html"))

type graphiqlData struct {
	WhatwgFetchVersion, WhatwgFetchSRI                           string
	ReactVersion, ReactSRI, ReactDOMSRI                          string
	GraphiQLVersion, GraphiQLSRI, GraphiQLCSSSRI                 string
	SubscriptionsTransportWSVersion, SubscriptionsTransportWSSRI string

	SubscriptionPath    string
	HeaderEditorEnabled bool
	CSRFCookie          string
}

// renderGraphiQL writes the GraphiQL page returning the HTTP status
func (h *Handler) renderGraphiQL(w http.ResponseWriter, r *http.Request, log *zap.Logger) int {
	data := graphiqlData{
		WhatwgFetchVersion:              whatwgFetchVersion,
		WhatwgFetchSRI:                  whatwgFetchSRI,
		ReactVersion:                    reactVersion,
		ReactSRI:                        reactSRI,
		ReactDOMSRI:                     reactDOMSRI,
		GraphiQLVersion:                 graphiqlVersion,
		GraphiQLSRI:                     graphiqlSRI,
		GraphiQLCSSSRI:                  graphiqlCSSSRI,
		SubscriptionsTransportWSVersion: subscriptionsTransportWSVersion,
		SubscriptionsTransportWSSRI:     subscriptionsTransportWSSRI,
		SubscriptionPath:                h.subscriptionPath,
		HeaderEditorEnabled:             h.headerEditor,
		CSRFCookie:                      h.csrfCookie,
	}
	var buf bytes.Buffer
	if err := graphiqlTemplate.Execute(&buf, data); err != nil {
		return h.writeError(w, r, log, err)
	}
	h.write(w, r, log, http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
	return http.StatusOK
}
