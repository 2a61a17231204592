package redashtest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/goliatone/go-redash/pkg/redash"
)

// HandlerOptions configures NewHandler.
type HandlerOptions struct {
	// APIKey, when set, must be presented as "Authorization: Key <api key>".
	APIKey string
}

// NewHandler serves the backend over the same REST surface as a Redash instance.
func NewHandler(b *Backend, opts HandlerOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	if opts.APIKey != "" {
		r.Use(requireKey(opts.APIKey))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/queries", func(r chi.Router) {
			r.Get("/", listQueries(b, redash.ScopeAll))
			r.Get("/my", listQueries(b, redash.ScopeMine))
			r.Get("/favorites", listQueries(b, redash.ScopeFavorites))
			r.Get("/archive", listQueries(b, redash.ScopeArchive))
			r.Post("/", saveQuery(b))
			r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
				q, err := b.Query(idParam(r))
				respond(w, q, err)
			})
			r.Post("/{id}", saveQuery(b))
			r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
				respond(w, nil, b.ArchiveQuery(idParam(r)))
			})
			r.Get("/{id}/results.json", func(w http.ResponseWriter, r *http.Request) {
				cols, err := b.QueryColumns(idParam(r))
				respond(w, map[string]any{"query_result": map[string]any{"data": map[string]any{"columns": cols, "rows": []any{}}}}, err)
			})
		})
		r.Get("/admin/queries/outdated", func(w http.ResponseWriter, r *http.Request) {
			respond(w, b.Outdated(), nil)
		})

		r.Route("/dashboards", func(r chi.Router) {
			r.Get("/", listDashboards(b, redash.ScopeAll))
			r.Get("/favorites", listDashboards(b, redash.ScopeFavorites))
			r.Post("/{id}/share", func(w http.ResponseWriter, r *http.Request) {
				share, err := b.SetDashboardSharing(idParam(r), true)
				respond(w, share, err)
			})
			r.Delete("/{id}/share", func(w http.ResponseWriter, r *http.Request) {
				_, err := b.SetDashboardSharing(idParam(r), false)
				respond(w, nil, err)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				page, err := b.ListUsers(ParseListParams(r.URL.Query()), r.URL.Query())
				respond(w, page, err)
			})
			r.Post("/", func(w http.ResponseWriter, r *http.Request) {
				var body struct {
					Name  string `json:"name"`
					Email string `json:"email"`
				}
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					respond(w, nil, ErrInvalid)
					return
				}
				u, err := b.CreateUser(body.Name, body.Email)
				respond(w, u, err)
			})
			r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
				respond(w, nil, b.DeleteUser(idParam(r)))
			})
			r.Post("/{id}/disable", func(w http.ResponseWriter, r *http.Request) {
				u, err := b.SetUserDisabled(idParam(r), true)
				respond(w, u, err)
			})
			r.Delete("/{id}/disable", func(w http.ResponseWriter, r *http.Request) {
				u, err := b.SetUserDisabled(idParam(r), false)
				respond(w, u, err)
			})
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				respond(w, b.Alerts(), nil)
			})
			r.Post("/", saveAlert(b))
			r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
				a, err := b.Alert(idParam(r))
				respond(w, a, err)
			})
			r.Post("/{id}", saveAlert(b))
			r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
				respond(w, nil, b.DeleteAlert(idParam(r)))
			})
			r.Post("/{id}/mute", func(w http.ResponseWriter, r *http.Request) {
				respond(w, nil, b.SetAlertMuted(idParam(r), true))
			})
			r.Delete("/{id}/mute", func(w http.ResponseWriter, r *http.Request) {
				respond(w, nil, b.SetAlertMuted(idParam(r), false))
			})
		})

		r.Get("/query_snippets", func(w http.ResponseWriter, r *http.Request) {
			respond(w, b.Snippets(), nil)
		})
	})
	return r
}

func listQueries(b *Backend, scope string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := b.ListQueries(scope, ParseListParams(r.URL.Query()))
		respond(w, page, err)
	}
}

func listDashboards(b *Backend, scope string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := b.ListDashboards(scope, ParseListParams(r.URL.Query()))
		respond(w, page, err)
	}
}

func saveQuery(b *Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			respond(w, nil, ErrInvalid)
			return
		}
		if id := idParam(r); id != 0 {
			fields["id"] = id
		} else {
			delete(fields, "id")
		}
		q, err := b.SaveQuery(fields)
		respond(w, q, err)
	}
}

func saveAlert(b *Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload redash.Alert
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			respond(w, nil, ErrInvalid)
			return
		}
		a, err := b.SaveAlert(idParam(r), payload)
		respond(w, a, err)
	}
}

func requireKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Key "+key {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Couldn't find resource. Please login and try again."})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func idParam(r *http.Request) int {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	return id
}

// StatusFor maps backend errors to HTTP statuses.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respond(w http.ResponseWriter, body any, err error) {
	if err != nil {
		writeJSON(w, StatusFor(err), map[string]string{"message": err.Error()})
		return
	}
	if body == nil {
		body = map[string]any{}
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
