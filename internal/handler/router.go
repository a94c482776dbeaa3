package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aryan0dhankhar/teamspace/internal/observability/metrics"
	"github.com/aryan0dhankhar/teamspace/internal/security/audit"
	"github.com/aryan0dhankhar/teamspace/internal/security/auth"
	"github.com/aryan0dhankhar/teamspace/internal/security/middleware"
	"github.com/aryan0dhankhar/teamspace/internal/security/ratelimit"
)

// RouterDeps is everything the HTTP surface is built from.
type RouterDeps struct {
	Auth        *AuthHandler
	Tenants     *TenantHandler
	Dialogs     *DialogHandler
	Health      *HealthHandler
	Tokens      *auth.TokenManager
	Limiter     ratelimit.Allower
	Audit       *audit.Logger
	CORSOrigins []string
	Logger      *slog.Logger
}

// NewRouter wires every route. CORS and request ids wrap the router so they
// also apply to unmatched routes and preflight requests.
func NewRouter(d RouterDeps) http.Handler {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}

	r := mux.NewRouter()
	r.Use(
		middleware.Logging(log),
		metrics.HTTPMetricsMiddleware,
		middleware.SanitizePath(log),
		middleware.LimitBody(maxBodyBytes),
	)

	r.HandleFunc("/healthz", d.Health.Health).Methods(http.MethodGet)
	r.HandleFunc("/readyz", d.Health.Ready).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	public := func(h http.HandlerFunc) http.Handler {
		return middleware.RateLimit(d.Limiter, log)(middleware.ValidateJSONContentType(log)(h))
	}
	r.Handle("/v1/user/register", public(d.Auth.Register)).Methods(http.MethodPost)
	r.Handle("/v1/user/login", public(d.Auth.Login)).Methods(http.MethodPost)

	api := r.PathPrefix("/v1").Subrouter()
	api.Use(
		middleware.JWT(d.Tokens, d.Audit, log),
		middleware.RateLimit(d.Limiter, log),
		middleware.ValidateJSONContentType(log),
		middleware.Audit(d.Audit),
	)

	api.HandleFunc("/user/info", d.Auth.Info).Methods(http.MethodGet)
	api.HandleFunc("/user/change-password", d.Auth.ChangePassword).Methods(http.MethodPost)

	api.HandleFunc("/tenant/create", d.Tenants.Create).Methods(http.MethodPost)
	api.HandleFunc("/tenant/list", d.Tenants.ListJoined).Methods(http.MethodGet)
	api.HandleFunc("/tenant/all", d.Tenants.ListAll).Methods(http.MethodGet)
	api.HandleFunc("/tenant/agree/{tenant_id}", d.Tenants.Agree).Methods(http.MethodPut)
	api.HandleFunc("/tenant/{tenant_id}/apply", d.Tenants.Apply).Methods(http.MethodPost)
	api.HandleFunc("/tenant/{tenant_id}/handle_application", d.Tenants.HandleApplication).Methods(http.MethodPost)
	api.HandleFunc("/tenant/{tenant_id}/user/list", d.Tenants.ListUsers).Methods(http.MethodGet)
	api.HandleFunc("/tenant/{tenant_id}/members", d.Tenants.Members).Methods(http.MethodGet)
	api.HandleFunc("/tenant/{tenant_id}/user", d.Tenants.Invite).Methods(http.MethodPost)
	api.HandleFunc("/tenant/{tenant_id}/user/{user_id}", d.Tenants.RemoveUser).Methods(http.MethodDelete)

	api.HandleFunc("/dialog/set", d.Dialogs.Set).Methods(http.MethodPost)
	api.HandleFunc("/dialog/get", d.Dialogs.Get).Methods(http.MethodGet)
	api.HandleFunc("/dialog/list", d.Dialogs.List).Methods(http.MethodGet)
	api.HandleFunc("/dialog/rm", d.Dialogs.Remove).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, Envelope{Code: CodeDataError, Message: "route not found"})
	})

	return middleware.RequestID(middleware.CORS(d.CORSOrigins)(r))
}
