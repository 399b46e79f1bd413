// Package api exposes the treasury services over HTTP. Every JSON response
// uses the {code, message, data} envelope.
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"gitlab.com/sgtreasury/tally/internal/service"
)

// DefaultMaxUploadBytes caps multipart bodies when Options leaves it unset.
const DefaultMaxUploadBytes = 10 << 20

// Services are the handlers' dependencies.
type Services struct {
	Users          *service.UserService
	Clubs          *service.ClubService
	Memberships    *service.MembershipService
	Invites        *service.InviteService
	Budget         *service.BudgetService
	Reimbursements *service.ReimbursementService
	Receipts       *service.ReceiptService
}

// Options tunes the router.
type Options struct {
	Verifier       *TokenVerifier
	AllowedOrigins []string
	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	// Only set it behind a proxy that overwrites those headers.
	TrustProxy     bool
	RateLimitRPS   float64
	RateLimitBurst int
	MaxUploadBytes int64
	StaticDir      string
	// Registry receives the HTTP metrics and backs /metrics. A fresh
	// registry is used when nil.
	Registry *prometheus.Registry
	// Health reports readiness for /healthz.
	Health func(*http.Request) error
}

// Server holds the handlers.
type Server struct {
	svc       Services
	maxUpload int64
}

// NewRouter builds the full HTTP handler.
func NewRouter(svc Services, opts Options) http.Handler {
	s := &Server{svc: svc, maxUpload: opts.MaxUploadBytes}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUploadBytes
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := NewMetrics(reg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(AccessLog)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(CORSMiddleware(opts.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if opts.Health != nil {
			if err := opts.Health(r); err != nil {
				respondError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
		}
		respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		// The limiter runs before the gate so rejected credentials are
		// counted too.
		if opts.RateLimitRPS > 0 {
			burst := opts.RateLimitBurst
			if burst <= 0 {
				burst = int(opts.RateLimitRPS) + 1
			}
			r.Use(apiOnly(RateLimitMiddleware(NewIPRateLimiter(rate.Limit(opts.RateLimitRPS), burst))))
		}
		r.Use(AuthGate(opts.Verifier))

		r.Route("/api", func(r chi.Router) {
			s.routes(r)
			r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
				respondError(w, http.StatusNotFound, "route not found")
			})
			r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
				respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			})
		})

		pages := http.NotFoundHandler()
		if opts.StaticDir != "" {
			pages = spaHandler(opts.StaticDir)
		}
		r.NotFound(pages.ServeHTTP)
	})

	return otelhttp.NewHandler(r, "tally.http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

func (s *Server) routes(r chi.Router) {
	r.Get("/users", s.getUsers)
	r.Post("/users", s.syncUser)
	r.Put("/users", s.updateUser)
	r.Get("/users/me", s.getMe)

	r.Get("/clubs", s.getClubs)
	r.Post("/clubs", s.createClub)
	r.Put("/clubs", s.updateClub)
	r.Delete("/clubs", s.deleteClub)

	r.Get("/clubMemberships", s.getMemberships)
	r.Post("/clubMemberships", s.createMembership)
	r.Put("/clubMemberships", s.updateMembership)
	r.Delete("/clubMemberships", s.deleteMembership)

	r.Get("/clubInvites", s.getInvites)
	r.Post("/clubInvites", s.createInvite)
	r.Put("/clubInvites", s.updateInvite)
	r.Delete("/clubInvites", s.deleteInvite)
	r.Get("/clubInvites/pending", s.pendingInvites)
	r.Post("/clubInvites/accept", s.acceptInvite)
	r.Post("/clubInvites/decline", s.declineInvite)

	r.Get("/budgetSections", s.getSections)
	r.Post("/budgetSections", s.createSection)
	r.Put("/budgetSections", s.updateSection)
	r.Delete("/budgetSections", s.deleteSection)
	r.Get("/budgetSections/chart", s.budgetChart)

	r.Get("/budgetItems", s.getItems)
	r.Post("/budgetItems", s.createItem)
	r.Put("/budgetItems", s.updateItem)
	r.Delete("/budgetItems", s.deleteItem)

	r.Get("/reimbursements", s.getReimbursements)
	r.Post("/reimbursements", s.createReimbursement)
	r.Put("/reimbursements", s.updateReimbursement)
	r.Delete("/reimbursements", s.deleteReimbursement)
	r.Get("/reimbursements/signed-url", s.signedURL)
	r.Post("/reimbursements/form", s.generateForm)
	r.Get("/reimbursements/export", s.exportReimbursements)

	r.Post("/uploads", s.upload)
	r.Post("/receipts/scan", s.scanReceipt)
}

// apiOnly applies mw to /api requests and lets page loads through.
func apiOnly(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// spaHandler serves files from dir and falls back to index.html so
// client-side routes resolve.
func spaHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		clean := filepath.Clean("/" + r.URL.Path)
		if info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(clean))); err == nil && !info.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		if strings.Contains(filepath.Base(clean), ".") {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	})
}
