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

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"gigledger/internal/engine"
	"gigledger/internal/engine/auth"
	"gigledger/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine    engine.Engine
	BasePath  string
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"invalid_state"`
	Message string         `json:"message" example:"release not allowed while gig is open"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"status\":\"open\"}"`
}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Gigledger API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the required envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	m := newMetrics()
	router := chi.NewRouter()
	router.Use(m.middleware)
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	router.Use(newRateLimitMiddleware(cfg.RateLimit))
	hcfg := huma.DefaultConfig("Gigledger API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	router.Method(http.MethodGet, "/metrics", m.handler())
	registerHealth(group)
	registerStatus(group, cfg.Engine)
	registerGigs(group, cfg.Engine, m)
	registerUsers(group, cfg.Engine, m)
	registerAccounts(group, cfg.Engine, m)
	registerEvents(group, cfg.Engine)
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
	var unauthorized auth.UnauthorizedError
	if errors.As(err, &unauthorized) {
		return newAPIError(http.StatusForbidden, "unauthorized", err.Error(), map[string]any{"role": unauthorized.Role})
	}
	var invalidState engine.InvalidStateError
	if errors.As(err, &invalidState) {
		return newAPIError(http.StatusConflict, "invalid_state", err.Error(), map[string]any{"status": invalidState.Status})
	}
	var invalidAmount engine.InvalidAmountError
	if errors.As(err, &invalidAmount) {
		return newAPIError(http.StatusBadRequest, "invalid_amount", err.Error(), nil)
	}
	var budget engine.BudgetExceededError
	if errors.As(err, &budget) {
		return newAPIError(http.StatusUnprocessableEntity, "budget_exceeded", err.Error(), map[string]any{
			"payment":   budget.Payment,
			"allocated": budget.Allocated,
			"requested": budget.Requested,
		})
	}
	var invalidRating engine.InvalidRatingError
	if errors.As(err, &invalidRating) {
		return newAPIError(http.StatusBadRequest, "invalid_rating", err.Error(), map[string]any{"score": invalidRating.Score})
	}
	var insufficient engine.InsufficientFundsError
	if errors.As(err, &insufficient) {
		return newAPIError(http.StatusUnprocessableEntity, "insufficient_funds", err.Error(), map[string]any{
			"need": insufficient.Need,
			"have": insufficient.Have,
		})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "exceed"):
		return newAPIError(http.StatusUnprocessableEntity, "limit_exceeded", msg, nil)
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "unauthorized"
	case http.StatusTooManyRequests:
		return "rate_limited"
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
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
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
    <title>Gigledger API Docs</title>
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
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
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

func registerStatus(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Ledger status",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]any `json:"body"`
	}, error) {
		counts, err := e.Repo.CountGigsByStatus(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		ledgerID := ""
		if e.Config != nil {
			ledgerID = e.Config.Ledger.ID
		}
		return &struct {
			Body map[string]any `json:"body"`
		}{Body: map[string]any{
			"ledger_id":  ledgerID,
			"gig_counts": counts,
		}}, nil
	})
}

func registerGigs(api huma.API, e engine.Engine, m *metrics) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-gig",
		Method:        http.MethodPost,
		Path:          "/gigs",
		Summary:       "Post a gig",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateGigRequest `json:"body"`
	}) (*struct {
		Body GigResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		g, err := e.CreateGig(ctx, caller, input.Body.Title, stringOrEmpty(input.Body.Description), input.Body.Payment)
		if err != nil {
			return nil, handleError(err)
		}
		m.recordOp("create_gig")
		return &struct {
			Body GigResponse `json:"body"`
		}{Body: gigResponse(g)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-gigs",
		Method:      http.MethodGet,
		Path:        "/gigs",
		Summary:     "List gigs",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Owner  string `query:"owner"`
		Worker string `query:"worker"`
		Status string `query:"status"`
		Limit  int    `query:"limit" default:"50" minimum:"1" maximum:"200"`
		Cursor uint64 `query:"cursor"`
	}) (*struct {
		Body paginatedGigs `json:"body"`
	}, error) {
		limit := input.Limit
		if limit <= 0 {
			limit = 50
		}
		if limit > 200 {
			limit = 200
		}
		gigs, err := e.ListGigs(ctx, repo.GigFilters{
			Owner:    input.Owner,
			Worker:   input.Worker,
			Status:   input.Status,
			Limit:    limit + 1,
			CursorID: input.Cursor,
		})
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedGigs{Items: []GigResponse{}}
		if len(gigs) > limit {
			resp.NextCursor = fmt.Sprintf("%d", gigs[limit-1].ID)
			gigs = gigs[:limit]
		}
		resp.Items = mapGigs(gigs)
		return &struct {
			Body paginatedGigs `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-gig",
		Method:      http.MethodGet,
		Path:        "/gigs/{gig_id}",
		Summary:     "Get gig",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		GigID uint64 `path:"gig_id"`
	}) (*struct {
		Body GigResponse `json:"body"`
	}, error) {
		g, err := e.GetGig(ctx, input.GigID)
		if err != nil {
			return nil, handleError(err)
		}
		if g == nil {
			return nil, newAPIError(http.StatusNotFound, "not_found", fmt.Sprintf("gig %d not found", input.GigID), nil)
		}
		return &struct {
			Body GigResponse `json:"body"`
		}{Body: gigResponse(*g)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "accept-gig",
		Method:      http.MethodPost,
		Path:        "/gigs/{gig_id}/accept",
		Summary:     "Accept a gig as worker",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		GigID uint64 `path:"gig_id"`
	}) (*struct {
		Body GigResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		g, err := e.AcceptGig(ctx, caller, input.GigID)
		if err != nil {
			return nil, handleError(err)
		}
		m.recordOp("accept_gig")
		return &struct {
			Body GigResponse `json:"body"`
		}{Body: gigResponse(g)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-gig",
		Method:      http.MethodPost,
		Path:        "/gigs/{gig_id}/complete",
		Summary:     "Mark gig delivered",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		GigID uint64 `path:"gig_id"`
	}) (*struct {
		Body GigResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		g, err := e.CompleteGig(ctx, caller, input.GigID)
		if err != nil {
			return nil, handleError(err)
		}
		m.recordOp("complete_gig")
		return &struct {
			Body GigResponse `json:"body"`
		}{Body: gigResponse(g)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "release-payment",
		Method:      http.MethodPost,
		Path:        "/gigs/{gig_id}/release",
		Summary:     "Release escrow to the worker",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		GigID uint64 `path:"gig_id"`
	}) (*struct {
		Body GigResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		g, err := e.ReleasePayment(ctx, caller, input.GigID)
		if err != nil {
			return nil, handleError(err)
		}
		m.recordOp("release_payment")
		return &struct {
			Body GigResponse `json:"body"`
		}{Body: gigResponse(g)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-dispute",
		Method:        http.MethodPost,
		Path:          "/gigs/{gig_id}/disputes",
		Summary:       "Raise a dispute",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		GigID uint64         `path:"gig_id"`
		Body  DisputeRequest `json:"body"`
	}) (*struct {
		Body DisputeResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.CreateDispute(ctx, caller, input.GigID, input.Body.Description)
		if err != nil {
			return nil, handleError(err)
		}
		m.recordOp("create_dispute")
		return &struct {
			Body DisputeResponse `json:"body"`
		}{Body: disputeResponse(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-milestone",
		Method:        http.MethodPost,
		Path:          "/gigs/{gig_id}/milestones",
		Summary:       "Book a milestone against the payment",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		GigID uint64           `path:"gig_id"`
		Body  MilestoneRequest `json:"body"`
	}) (*struct {
		Body MilestoneResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ms, err := e.AddMilestone(ctx, caller, input.GigID, input.Body.Description, input.Body.Amount)
		if err != nil {
			return nil, handleError(err)
		}
		m.recordOp("add_milestone")
		return &struct {
			Body MilestoneResponse `json:"body"`
		}{Body: milestoneResponse(ms)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-milestone",
		Method:      http.MethodPost,
		Path:        "/gigs/{gig_id}/milestones/{position}/complete",
		Summary:     "Mark a milestone done",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		GigID    uint64 `path:"gig_id"`
		Position int    `path:"position"`
	}) (*struct {
		Body MilestoneResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ms, err := e.CompleteMilestone(ctx, caller, input.GigID, input.Position)
		if err != nil {
			return nil, handleError(err)
		}
		m.recordOp("complete_milestone")
		return &struct {
			Body MilestoneResponse `json:"body"`
		}{Body: milestoneResponse(ms)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-categories",
		Method:      http.MethodPost,
		Path:        "/gigs/{gig_id}/categories",
		Summary:     "Tag a gig with categories",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		GigID uint64            `path:"gig_id"`
		Body  CategoriesRequest `json:"body"`
	}) (*struct {
		Body struct {
			Categories []string `json:"categories"`
		} `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		labels, err := e.AddCategories(ctx, caller, input.GigID, input.Body.Labels)
		if err != nil {
			return nil, handleError(err)
		}
		m.recordOp("add_categories")
		if labels == nil {
			labels = []string{}
		}
		out := &struct {
			Body struct {
				Categories []string `json:"categories"`
			} `json:"body"`
		}{}
		out.Body.Categories = labels
		return out, nil
	})
}

func registerUsers(api huma.API, e engine.Engine, m *metrics) {
	huma.Register(api, huma.Operation{
		OperationID: "get-user-gigs",
		Method:      http.MethodGet,
		Path:        "/users/{principal}/gigs",
		Summary:     "Gigs a principal owns or works",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Principal string `path:"principal"`
	}) (*struct {
		Body UserGigsResponse `json:"body"`
	}, error) {
		ug, err := e.GetUserGigs(ctx, input.Principal)
		if err != nil {
			return nil, handleError(err)
		}
		if ug == nil {
			return nil, newAPIError(http.StatusNotFound, "not_found", fmt.Sprintf("no gigs for %s", input.Principal), nil)
		}
		return &struct {
			Body UserGigsResponse `json:"body"`
		}{Body: userGigsResponse(*ug)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-profile",
		Method:      http.MethodGet,
		Path:        "/users/{principal}/profile",
		Summary:     "Get portfolio",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Principal string `path:"principal"`
	}) (*struct {
		Body ProfileResponse `json:"body"`
	}, error) {
		p, err := e.Repo.GetProfile(ctx, input.Principal)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProfileResponse `json:"body"`
		}{Body: profileResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-rating",
		Method:      http.MethodGet,
		Path:        "/users/{principal}/rating",
		Summary:     "Get running rating",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Principal string `path:"principal"`
	}) (*struct {
		Body RatingResponse `json:"body"`
	}, error) {
		rec, err := e.Repo.GetRating(ctx, input.Principal)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RatingResponse `json:"body"`
		}{Body: ratingResponse(rec)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-balance",
		Method:      http.MethodGet,
		Path:        "/users/{principal}/balance",
		Summary:     "Get account balance",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Principal string `path:"principal"`
	}) (*struct {
		Body AccountResponse `json:"body"`
	}, error) {
		acc, err := e.Repo.GetAccount(ctx, input.Principal)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AccountResponse `json:"body"`
		}{Body: accountResponse(acc)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "rate-user",
		Method:        http.MethodPost,
		Path:          "/users/{principal}/ratings",
		Summary:       "Rate a user",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
		},
	}, func(ctx context.Context, input *struct {
		Principal string        `path:"principal"`
		Body      RatingRequest `json:"body"`
	}) (*struct {
		Body RatingResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rec, err := e.RateUser(ctx, caller, input.Principal, input.Body.Score)
		if err != nil {
			return nil, handleError(err)
		}
		m.recordOp("rate_user")
		return &struct {
			Body RatingResponse `json:"body"`
		}{Body: ratingResponse(rec)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-portfolio",
		Method:      http.MethodPut,
		Path:        "/me/portfolio",
		Summary:     "Replace own portfolio",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		Body PortfolioRequest `json:"body"`
	}) (*struct {
		Body ProfileResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.UpdatePortfolio(ctx, caller, input.Body.Skills, input.Body.Bio)
		if err != nil {
			return nil, handleError(err)
		}
		m.recordOp("update_portfolio")
		return &struct {
			Body ProfileResponse `json:"body"`
		}{Body: profileResponse(p)}, nil
	})
}

func registerAccounts(api huma.API, e engine.Engine, m *metrics) {
	huma.Register(api, huma.Operation{
		OperationID: "deposit",
		Method:      http.MethodPost,
		Path:        "/accounts/deposit",
		Summary:     "Deposit into own account",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
		},
	}, func(ctx context.Context, input *struct {
		Body DepositRequest `json:"body"`
	}) (*struct {
		Body AccountResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		acc, err := e.Deposit(ctx, caller, input.Body.Amount)
		if err != nil {
			return nil, handleError(err)
		}
		m.recordOp("deposit")
		return &struct {
			Body AccountResponse `json:"body"`
		}{Body: accountResponse(acc)}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Audit log, newest first",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50" minimum:"1" maximum:"500"`
		Cursor     int64  `query:"cursor"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		limit := input.Limit
		if limit <= 0 {
			limit = 50
		}
		if limit > 500 {
			limit = 500
		}
		events, err := e.Repo.LatestEventsFrom(ctx, limit, input.Cursor, input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: mapEvents(events)}, nil
	})
}
