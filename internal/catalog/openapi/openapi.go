// Package openapi embeds the catalog API description and serves it together
// with a Swagger UI page.
package openapi

import (
	_ "embed"
	"fmt"
	"net/http"
)

//go:embed openapi.json
var JSON []byte

const uiPage = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>API de Produtos</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '%s',
        dom_id: '#swagger-ui'
      });
    </script>
  </body>
</html>`

func DocumentHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(JSON)
}

func UIHandler(specURL string) http.HandlerFunc {
	page := []byte(fmt.Sprintf(uiPage, specURL))
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	}
}
