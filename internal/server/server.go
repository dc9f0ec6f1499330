package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"genart/internal/gallery"
	"genart/internal/metrics"
	"genart/internal/schedule"
	"genart/internal/status"
)

// filesPrefix is where companion files are served from.
const filesPrefix = "/gallery"

// Config for the HTTP handler.
type Config struct {
	Gallery  *gallery.Cache
	Poller   *status.Poller
	Cycle    *schedule.Schedule
	BasePath string
	Site     Site
	Logger   *zap.Logger
	Metrics  *metrics.Collector
	Now      func() time.Time
}

type Site struct {
	Title   string
	Tagline string
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"date folder not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"date\":\"2026-01-24\"}"`
}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler serving the gallery page, companion files and the JSON API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Gallery == nil {
		return nil, errors.New("server: gallery cache is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the requested envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	pages, err := newPages(cfg)
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(requestID)
	router.Use(recoverer(cfg.Logger))
	router.Use(requestLogger(cfg.Logger, cfg.Metrics))

	hcfg := huma.DefaultConfig("Genart Gallery API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerPages(router, pages)
	registerFiles(router, cfg.Gallery.Scanner().Root)
	if cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics.Handler())
	}
	registerDocs(router, basePath)
	registerHealth(group)
	registerArtworks(group, cfg.Gallery)
	registerDates(group, cfg.Gallery.Scanner())
	registerStatus(group, cfg)
	registerOpenAPI(router, api, basePath)

	return router, nil
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

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, gallery.ErrInvalidDate) {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func cacheControl(ttl time.Duration) string {
	if ttl <= 0 {
		return "no-cache"
	}
	return fmt.Sprintf("public, max-age=%d", int(ttl.Seconds()))
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var (
		once sync.Once
		spec []byte
	)
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			spec, _ = json.Marshal(oas)
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Genart Gallery API Docs</title>
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

func registerArtworks(api huma.API, cache *gallery.Cache) {
	huma.Register(api, huma.Operation{
		OperationID: "list-artworks",
		Method:      http.MethodGet,
		Path:        "/artworks",
		Summary:     "List artworks, most recent first",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" minimum:"0" doc:"Return at most this many artworks; 0 means all"`
	}) (*struct {
		CacheControl string      `header:"Cache-Control"`
		Body         ArtworkList `json:"body"`
	}, error) {
		recs, err := cache.Artworks()
		if err != nil {
			return nil, handleError(err)
		}
		if input.Limit > 0 && input.Limit < len(recs) {
			recs = recs[:input.Limit]
		}
		return &struct {
			CacheControl string      `header:"Cache-Control"`
			Body         ArtworkList `json:"body"`
		}{CacheControl: cacheControl(cache.TTL()), Body: artworkList(recs, filesPrefix)}, nil
	})
}

func registerDates(api huma.API, scanner *gallery.Scanner) {
	huma.Register(api, huma.Operation{
		OperationID: "list-dates",
		Method:      http.MethodGet,
		Path:        "/dates",
		Summary:     "List date folders, newest first",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body DateList `json:"body"`
	}, error) {
		dates, err := scanner.Dates()
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DateList `json:"body"`
		}{Body: DateList{Items: dates}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-archive",
		Method:      http.MethodGet,
		Path:        "/dates/{date}/archive",
		Summary:     "List archived attempts for a date",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Date string `path:"date" example:"2026-01-26"`
	}) (*struct {
		Body ArtworkList `json:"body"`
	}, error) {
		entries, err := scanner.ScanArchive(input.Date)
		if err != nil {
			return nil, handleError(err)
		}
		list := ArtworkList{Items: make([]ArtworkResponse, 0, len(entries)), Count: len(entries)}
		for _, e := range entries {
			item := artworkResponse(e.Record, filesPrefix)
			item.ImageURL = path.Join(filesPrefix, e.ImagePath())
			item.CodeURL = path.Join(filesPrefix, e.CodePath())
			item.MetadataURL = path.Join(filesPrefix, e.MetadataPath())
			list.Items = append(list.Items, item)
		}
		return &struct {
			Body ArtworkList `json:"body"`
		}{Body: list}, nil
	})
}

func registerStatus(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Latest generator status",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		CacheControl string         `header:"Cache-Control"`
		Body         StatusResponse `json:"body"`
	}, error) {
		return &struct {
			CacheControl string         `header:"Cache-Control"`
			Body         StatusResponse `json:"body"`
		}{CacheControl: "no-store", Body: statusResponse(cfg.Poller, cfg.Cycle, cfg.Now())}, nil
	})
}
