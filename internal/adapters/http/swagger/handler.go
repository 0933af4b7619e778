// Package swagger serves the API documentation.
package swagger

import (
	"context"
	"net/http"
)

// redocScript is the ReDoc standalone bundle.
const redocScript = "https://cdn.redoc.ly/redoc/v2.1.5/bundles/redoc.standalone.js"

// docsMaxAge is how long clients may cache the docs routes, in seconds.
const docsMaxAge = "max-age=300"

// Register attaches the API docs and the OpenAPI document to mux.
//
//	GET /api-docs      -> ReDoc page
//	GET /openapi.yaml  -> embedded OpenAPI document
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/api-docs", static("text/html; charset=utf-8", []byte(indexHTML)))
	mux.Handle("/openapi.yaml", static("application/yaml; charset=utf-8", OpenAPI))
}

// static serves body for GET and HEAD only.
func static(contentType string, body []byte) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", docsMaxAge)
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(body)
	})
}

const indexHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>marquee API Docs</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="` + redocScript + `"></script>
    <script>Redoc.init('/openapi.yaml', { suppressWarnings: true }, document.getElementById('redoc-container'));</script>
  </body>
</html>`
