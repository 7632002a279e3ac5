package console

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/edgeflare/replica/pkg/broadcast"
	"github.com/edgeflare/replica/pkg/flow"
	"github.com/edgeflare/replica/pkg/httputil"
	"github.com/edgeflare/replica/pkg/httputil/middleware"
	"github.com/edgeflare/replica/pkg/metrics"
	"github.com/edgeflare/replica/pkg/notify"
	"github.com/edgeflare/replica/pkg/pgx"
	"github.com/edgeflare/replica/pkg/setup"
	"github.com/edgeflare/replica/pkg/topology"
	"go.uber.org/zap"
)

//go:embed web
var webFS embed.FS

// Operations are the setup operations the console exposes.
type Operations interface {
	SetupSource(ctx context.Context, in setup.SourceSetup) (*setup.Report, error)
	TeardownSource(ctx context.Context) (*setup.Report, error)
	SetupTargets(ctx context.Context) (*setup.Report, error)
	TeardownTargets(ctx context.Context) (*setup.Report, error)
	SetupSink(ctx context.Context, in setup.SinkSetup) (*setup.Report, error)
	TeardownSink(ctx context.Context, host, db, table string) (*setup.Report, error)
	AssignTargets(ctx context.Context, in setup.TargetAssignment) (*setup.Report, error)
	Targets(ctx context.Context, accountID int) ([]string, error)
}

// Server is the console HTTP surface.
type Server struct {
	router        *httputil.Router
	loader        *topology.Loader
	ops           Operations
	notifications *notify.Hub
	broadcast     *broadcast.Hub
	prober        *pgx.Prober
	logger        *zap.Logger
	template      string
	selectedColor string
	corsOrigins   []string
	routerOpts    []httputil.RouterOptions
}

type Option func(*Server)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithTemplate replaces the default diagram template.
func WithTemplate(template string) Option {
	return func(s *Server) {
		if template != "" {
			s.template = template
		}
	}
}

func WithSelectedColor(color string) Option {
	return func(s *Server) {
		if color != "" {
			s.selectedColor = color
		}
	}
}

// WithNotifications streams notifications of hub on /ws/notifications.
func WithNotifications(hub *notify.Hub) Option {
	return func(s *Server) { s.notifications = hub }
}

// WithBroadcast streams account sync status of hub on /ws/broadcast/{acct}/.
func WithBroadcast(hub *broadcast.Hub) Option {
	return func(s *Server) { s.broadcast = hub }
}

// WithProber attaches reachability probes to the databases pane.
func WithProber(p *pgx.Prober) Option {
	return func(s *Server) { s.prober = p }
}

// WithCORSOrigins restricts CORS to origins. Empty allows any origin.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

func WithRouterOptions(opts ...httputil.RouterOptions) Option {
	return func(s *Server) { s.routerOpts = append(s.routerOpts, opts...) }
}

func NewServer(loader *topology.Loader, ops Operations, opts ...Option) *Server {
	s := &Server{
		loader:        loader,
		ops:           ops,
		logger:        zap.NewNop(),
		template:      topology.DefaultTemplate,
		selectedColor: flow.DefaultSelectedColor,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = httputil.NewRouter(append([]httputil.RouterOptions{httputil.WithLogger(s.logger)}, s.routerOpts...)...)
	s.router.Use(
		middleware.RequestID,
		middleware.LoggerWithOptions(&middleware.LoggerOptions{Logger: s.logger}),
		middleware.CORSWithOptions(s.cors()),
	)
	s.routes()
	return s
}

func (s *Server) cors() *middleware.CORSOptions {
	if len(s.corsOrigins) == 0 {
		return nil
	}
	return &middleware.CORSOptions{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
	}
}

func (s *Server) routes() {
	web, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}
	s.router.Handle("GET /", middleware.Static(web, true))
	s.router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.Text(w, http.StatusOK, "ok")
	})
	// unknown api and socket paths stay out of the page fallback
	for _, prefix := range []string{"GET /api/", "GET /ws/"} {
		s.router.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
			httputil.Error(w, http.StatusNotFound, "no route for "+r.URL.Path)
		})
	}

	api := s.router.Group("/api")
	api.HandleFunc("GET /groups", s.handleGroups)
	api.HandleFunc("POST /reload", s.handleReload)
	api.HandleFunc("GET /diagram", s.handleDiagram)
	api.HandleFunc("GET /diagram/click", s.handleClick)
	api.HandleFunc("GET /inspect", s.handleInspect)

	api.HandleFunc("POST /source", s.handleSetupSource)
	api.HandleFunc("DELETE /source", s.handleTeardownSource)
	api.HandleFunc("POST /targets", s.handleSetupTargets)
	api.HandleFunc("DELETE /targets", s.handleTeardownTargets)
	api.HandleFunc("POST /sinks", s.handleSetupSink)
	api.HandleFunc("DELETE /sinks/{host}/{db}/{table}", s.handleTeardownSink)
	api.HandleFunc("GET /accounts/{id}/targets", s.handleTargets)
	api.HandleFunc("PUT /accounts/{id}/targets", s.handleAssignTargets)

	if s.broadcast != nil {
		s.router.Handle("GET /ws/broadcast/{acct}/", s.broadcast.Handler())
	}
	if s.notifications != nil {
		s.router.Handle("GET /ws/notifications", s.notifications.Handler())
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	return s.router.ListenAndServe(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.router.Shutdown(ctx)
}

type DiagramResponse struct {
	Selected *flow.SelectedNode `json:"selected"`
	Chart    string             `json:"chart"`
}

type ClickResponse struct {
	Route string `json:"route"`
}

type InspectResponse struct {
	Pane     Pane               `json:"pane"`
	Selected *flow.SelectedNode `json:"selected"`
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	groups := s.loader.Groups()
	if groups == nil {
		groups = flow.Groups{}
	}
	httputil.JSON(w, http.StatusOK, groups)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	groups, err := s.loader.Load(r.Context())
	switch {
	case errors.Is(err, topology.ErrStale):
	case err != nil:
		middleware.LoggerFromContext(r.Context()).Warn("reload topology", zap.Error(err))
		httputil.Error(w, http.StatusBadGateway, err.Error())
		return
	}
	httputil.JSON(w, http.StatusOK, groups)
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	groups := s.loader.Groups()
	sel := flow.Select(flow.ParseRoute(r.URL.Query().Get("path")), groups)

	chart := flow.Render(s.template, groups, sel, flow.Options{
		Labeler:       topology.Labeler,
		SelectedColor: s.selectedColor,
	})
	metrics.DiagramRenderDuration.Observe(time.Since(start).Seconds())
	httputil.JSON(w, http.StatusOK, DiagramResponse{Chart: chart, Selected: sel})
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		httputil.Error(w, http.StatusBadRequest, "missing element id")
		return
	}
	route := flow.ResolveClick(id, s.loader.Groups())
	httputil.JSON(w, http.StatusOK, ClickResponse{Route: route.String()})
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	groups := s.loader.Groups()
	sel := flow.Select(flow.ParseRoute(r.URL.Query().Get("path")), groups)
	pane := Inspect(sel, groups)
	if pane == nil {
		httputil.Error(w, http.StatusNotFound, "nothing to inspect")
		return
	}
	if dbs, ok := pane.(DatabasesPane); ok && s.prober != nil {
		pane = s.probe(r.Context(), dbs)
	}
	httputil.JSON(w, http.StatusOK, InspectResponse{Pane: pane, Selected: sel})
}

func (s *Server) probe(ctx context.Context, p DatabasesPane) DatabasesPane {
	conns := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		if it.ConnString != "" {
			conns = append(conns, it.ConnString)
		}
	}
	statuses := s.prober.ProbeAll(ctx, conns)
	for i := range p.Items {
		if st, ok := statuses[p.Items[i].ConnString]; ok {
			p.Items[i].Probe = &st
		}
	}
	if p.Selected != nil {
		for i := range p.Items {
			if p.Items[i].ID == p.Selected.ID {
				p.Selected = &p.Items[i]
			}
		}
	}
	return p
}

func (s *Server) handleSetupSource(w http.ResponseWriter, r *http.Request) {
	var in setup.SourceSetup
	if err := httputil.BindOrError(r, w, &in); err != nil {
		return
	}
	report, err := s.ops.SetupSource(r.Context(), in)
	s.respond(w, r, report, err)
}

func (s *Server) handleTeardownSource(w http.ResponseWriter, r *http.Request) {
	report, err := s.ops.TeardownSource(r.Context())
	s.respond(w, r, report, err)
}

func (s *Server) handleSetupTargets(w http.ResponseWriter, r *http.Request) {
	report, err := s.ops.SetupTargets(r.Context())
	s.respond(w, r, report, err)
}

func (s *Server) handleTeardownTargets(w http.ResponseWriter, r *http.Request) {
	report, err := s.ops.TeardownTargets(r.Context())
	s.respond(w, r, report, err)
}

func (s *Server) handleSetupSink(w http.ResponseWriter, r *http.Request) {
	var in setup.SinkSetup
	if err := httputil.BindOrError(r, w, &in); err != nil {
		return
	}
	report, err := s.ops.SetupSink(r.Context(), in)
	s.respond(w, r, report, err)
}

func (s *Server) handleTeardownSink(w http.ResponseWriter, r *http.Request) {
	report, err := s.ops.TeardownSink(r.Context(), r.PathValue("host"), r.PathValue("db"), r.PathValue("table"))
	s.respond(w, r, report, err)
}

type TargetsResponse struct {
	Targets   []string `json:"targets"`
	AccountID int      `json:"accountId"`
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	targets, err := s.ops.Targets(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if targets == nil {
		targets = []string{}
	}
	httputil.JSON(w, http.StatusOK, TargetsResponse{AccountID: id, Targets: targets})
}

func (s *Server) handleAssignTargets(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	var in setup.TargetAssignment
	if err := httputil.BindOrError(r, w, &in); err != nil {
		return
	}
	in.AccountID = id
	report, err := s.ops.AssignTargets(r.Context(), in)
	s.respond(w, r, report, err)
}

func accountID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid account id")
		return 0, false
	}
	return id, true
}

// ReportError is the body of a failed operation.
type ReportError struct {
	Report  *setup.Report     `json:"report,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Message string            `json:"message"`
	Code    int               `json:"code"`
}

// respond writes the operation report and refreshes the topology, since every operation
// adds or removes connectors.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, report *setup.Report, err error) {
	if report != nil {
		if _, lerr := s.loader.Load(r.Context()); lerr != nil && !errors.Is(lerr, topology.ErrStale) {
			middleware.LoggerFromContext(r.Context()).Warn("refresh topology after operation", zap.Error(lerr))
		}
	}
	if err != nil {
		if report != nil {
			httputil.JSON(w, http.StatusBadGateway, ReportError{
				Report:  report,
				Message: err.Error(),
				Code:    http.StatusBadGateway,
			})
			return
		}
		s.fail(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, report)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *setup.ValidationError
	if errors.As(err, &verr) {
		httputil.JSON(w, http.StatusBadRequest, ReportError{
			Fields:  verr.Fields,
			Message: verr.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}
	middleware.LoggerFromContext(r.Context()).Error("console operation failed", zap.Error(err))
	httputil.Error(w, http.StatusBadGateway, err.Error())
}
