package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"billcast/internal/audit"
	"billcast/internal/domain"
	"billcast/internal/forecast"
)

// Config for the HTTP API handler.
type Config struct {
	Orchestrator *forecast.Orchestrator
	Audit        *audit.Writer
	Watchlist    []domain.BillID
	BasePath     string
	JWTSecret    string
	Logger       *log.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"bad_request"`
	Message string         `json:"message" example:"invalid bill identifier"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the billcast API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	if cfg.Logger != nil {
		router.Use(newRequestLogger(cfg.Logger))
	}
	if cfg.JWTSecret != "" {
		router.Use(newAuthMiddleware(basePath, cfg.JWTSecret))
	}
	hcfg := huma.DefaultConfig("Billcast API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerForecast(group, cfg.Orchestrator)
	registerSector(group, cfg.Orchestrator, cfg.Watchlist)
	registerEvents(group, cfg.Audit)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newRequestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Printf("%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond))
		})
	}
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			spec, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Billcast API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerForecast(api huma.API, o *forecast.Orchestrator) {
	huma.Register(api, huma.Operation{
		OperationID: "get-forecast",
		Method:      http.MethodGet,
		Path:        "/bills/{kind}/{number}/{year}/forecast",
		Summary:     "Forecast one bill",
		Description: "Computes or returns the cached approval forecast for a bill.",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Kind   string `path:"kind" example:"PL"`
		Number string `path:"number" example:"2234"`
		Year   string `path:"year" example:"2022"`
		Force  bool   `query:"force" doc:"Bypass the cache and recompute"`
	}) (*struct {
		Body domain.Forecast `json:"body"`
	}, error) {
		id, err := domain.ParseBillID(fmt.Sprintf("%s_%s_%s", input.Kind, input.Number, input.Year))
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		f := o.Forecast(ctx, id, input.Force)
		return &struct {
			Body domain.Forecast `json:"body"`
		}{Body: f}, nil
	})
}

func registerSector(api huma.API, o *forecast.Orchestrator, watchlist []domain.BillID) {
	type sectorRequest struct {
		IDs   []string `json:"ids,omitempty" doc:"Bill ids like 'PL 2234/2022'; empty uses the configured watchlist"`
		Force bool     `json:"force,omitempty"`
	}
	huma.Register(api, huma.Operation{
		OperationID: "sector-overview",
		Method:      http.MethodPost,
		Path:        "/sector/overview",
		Summary:     "Aggregate forecasts over a set of bills",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body sectorRequest `json:"body"`
	}) (*struct {
		Body domain.SectorOverview `json:"body"`
	}, error) {
		ids := watchlist
		if len(input.Body.IDs) > 0 {
			ids = make([]domain.BillID, 0, len(input.Body.IDs))
			for _, raw := range input.Body.IDs {
				id, err := domain.ParseBillID(raw)
				if err != nil {
					return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"id": raw})
				}
				ids = append(ids, id)
			}
		}
		overview := o.SectorOverview(ctx, ids, input.Body.Force)
		return &struct {
			Body domain.SectorOverview `json:"body"`
		}{Body: overview}, nil
	})
}

func registerEvents(api huma.API, w *audit.Writer) {
	type eventsBody struct {
		Items []audit.Event `json:"items"`
	}
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent audit events",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type  string `query:"type"`
		Bill  string `query:"bill" doc:"Bill key like PL_2234_2022"`
		Limit uint64 `query:"limit" default:"20"`
	}) (*struct {
		Body eventsBody `json:"body"`
	}, error) {
		if w == nil {
			return &struct {
				Body eventsBody `json:"body"`
			}{Body: eventsBody{Items: []audit.Event{}}}, nil
		}
		items, err := w.Tail(ctx, audit.Filter{Type: input.Type, BillKey: input.Bill, Limit: input.Limit})
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
		}
		if items == nil {
			items = []audit.Event{}
		}
		return &struct {
			Body eventsBody `json:"body"`
		}{Body: eventsBody{Items: items}}, nil
	})
}
