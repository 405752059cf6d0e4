package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"tmsbridge/internal/api"
	"tmsbridge/internal/broker"
	"tmsbridge/internal/config"
	"tmsbridge/internal/ingest"
	"tmsbridge/internal/logging"
	"tmsbridge/internal/metadata"
	"tmsbridge/internal/services"
)

const requestIDHeader = "X-Request-ID"

type apiServer struct {
	bind     string
	logger   *slog.Logger
	daemon   *Daemon
	maxBody  int64
	handler  http.Handler
	server   *http.Server
	listener net.Listener
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:    strings.TrimSpace(cfg.Paths.APIBind),
		logger:  logging.NewComponentLogger(logger, "api-server"),
		daemon:  d,
		maxBody: cfg.Webhook.MaxBodyBytes,
	}
	token := cfg.Paths.APIToken

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", srv.handleHealth)
	mux.HandleFunc("/webhook", webhookAuth(cfg.Webhook.Secret, srv.handleWebhook))
	if cfg.Metrics.Enabled && d.metrics != nil {
		mux.Handle("GET /metrics", authMiddleware(token, d.metrics.Handler().ServeHTTP))
	}

	mux.HandleFunc("GET /api/status", authMiddleware(token, srv.handleStatus))
	mux.HandleFunc("GET /api/profiles/{profile}", authMiddleware(token, srv.handleProfile))
	mux.HandleFunc("GET /api/units", authMiddleware(token, srv.handleUnits))
	mux.HandleFunc("POST /api/units/disassociate-all", authMiddleware(token, srv.handleDisassociateAll))
	mux.HandleFunc("GET /api/units/{kind}/{id}", authMiddleware(token, srv.handleUnit))
	mux.HandleFunc("POST /api/units/{kind}/{id}/{action}", authMiddleware(token, srv.handleUnitAction))
	mux.HandleFunc("POST /api/units/{kind}/{id}/targets/{locale}/{action}", authMiddleware(token, srv.handleTargetAction))
	mux.HandleFunc("GET /api/units/{kind}/{id}/targets/{locale}/content", authMiddleware(token, srv.handleTargetContent))

	srv.handler = withRequestID(mux)
	srv.server = &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * cfg.TMSTimeout(),
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *apiServer) address() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.daemon.store.Counts(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, api.HealthResponse{Status: "degraded", Store: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok", Store: s.daemon.store.Driver()})
}

func (s *apiServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	ev, err := s.parseWebhook(w, r)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "webhook payload rejected", "webhook_invalid",
			logging.Error(err),
			logging.String(logging.FieldImpact, "notification dropped; the TMS may retry"),
		)
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	decision, err := s.daemon.broker.HandleNotification(r.Context(), ev)
	if err != nil {
		s.writeError(w, services.HTTPStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, decision)
}

func (s *apiServer) parseWebhook(w http.ResponseWriter, r *http.Request) (ingest.Event, error) {
	if r.Method == http.MethodGet {
		return ingest.ParseValues(r.URL.Query())
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return ingest.Event{}, services.Wrap(services.ErrValidation, "webhook", "read body", "", err)
		}
		return ingest.ParseJSON(body)
	}
	if err := r.ParseForm(); err != nil {
		return ingest.Event{}, services.Wrap(services.ErrValidation, "webhook", "parse form", "", err)
	}
	return ingest.ParseValues(r.Form)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.daemon.Status(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status.Counts)
}

func (s *apiServer) handleProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("profile")
	s.writeJSON(w, http.StatusOK, api.ProfileResponse{
		ProfileID: id,
		Policies:  api.FromPolicies(s.daemon.broker.Policies(id)),
	})
}

func (s *apiServer) handleUnits(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	statuses, err := api.ParseSourceFilter(query["status"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	filter := metadata.Filter{
		Kind:        strings.TrimSpace(query.Get("kind")),
		Statuses:    statuses,
		TrackedOnly: parseBool(query.Get("tracked")),
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	units, err := s.daemon.broker.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.UnitListResponse{Units: api.FromUnits(units)})
}

func (s *apiServer) handleUnit(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.pathRef(w, r)
	if !ok {
		return
	}
	unit, err := s.daemon.broker.Status(r.Context(), ref)
	if err != nil {
		s.writeError(w, services.HTTPStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.UnitResponse{Unit: api.FromUnit(unit)})
}

func (s *apiServer) handleUnitAction(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.pathRef(w, r)
	if !ok {
		return
	}
	action := r.PathValue("action")
	b := s.daemon.broker
	ctx := r.Context()
	resp := api.ActionResponse{Action: action}

	var err error
	switch action {
	case "upload", "update", "edited":
		var src *broker.SourceData
		src, err = s.decodeSource(w, r, action != "edited")
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		switch action {
		case "upload":
			resp.DocumentID, err = b.Upload(ctx, ref, *src)
		case "update":
			err = b.Update(ctx, ref, *src)
		default:
			err = b.ContentChanged(ctx, ref, src)
		}
	case "check":
		err = b.CheckUpload(ctx, ref)
	case "cancel":
		err = b.Cancel(ctx, ref)
	case "disassociate":
		err = b.Disassociate(ctx, ref)
	case "forget":
		err = b.Forget(ctx, ref)
	default:
		s.writeError(w, http.StatusNotFound, fmt.Errorf("unknown action %q", action))
		return
	}
	s.finishAction(w, r, ref, resp, err)
}

func (s *apiServer) handleTargetAction(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.pathRef(w, r)
	if !ok {
		return
	}
	locale := r.PathValue("locale")
	action := r.PathValue("action")
	b := s.daemon.broker
	resp := api.ActionResponse{Action: action}

	var err error
	switch action {
	case "request":
		err = b.RequestTarget(r.Context(), ref, locale)
	case "check":
		err = b.CheckTarget(r.Context(), ref, locale)
	case "download":
		_, err = b.Download(r.Context(), ref, locale)
	default:
		s.writeError(w, http.StatusNotFound, fmt.Errorf("unknown target action %q", action))
		return
	}
	s.finishAction(w, r, ref, resp, err)
}

// handleTargetContent downloads the target and answers with the raw artifact.
func (s *apiServer) handleTargetContent(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.pathRef(w, r)
	if !ok {
		return
	}
	payload, err := s.daemon.broker.Download(r.Context(), ref, r.PathValue("locale"))
	if err != nil {
		s.writeError(w, services.HTTPStatus(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (s *apiServer) handleDisassociateAll(w http.ResponseWriter, r *http.Request) {
	report, err := s.daemon.broker.DisassociateAll(r.Context())
	status := http.StatusOK
	if err != nil {
		status = http.StatusMultiStatus
		if report.Total == 0 {
			status = http.StatusInternalServerError
		}
	}
	s.writeJSON(w, status, api.FromReport(report))
}

// finishAction answers with the stored unit so callers see the resulting
// status even when the action failed.
func (s *apiServer) finishAction(w http.ResponseWriter, r *http.Request, ref metadata.Ref, resp api.ActionResponse, actionErr error) {
	if actionErr != nil {
		s.writeError(w, services.HTTPStatus(actionErr), actionErr)
		return
	}
	unit, err := s.daemon.store.FindByRef(r.Context(), ref)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if unit != nil {
		view := api.FromUnit(unit)
		resp.Unit = &view
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) decodeSource(w http.ResponseWriter, r *http.Request, required bool) (*broker.SourceData, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		if required {
			return nil, errors.New("request body is required")
		}
		return nil, nil
	}
	var req api.SourceRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return &broker.SourceData{
		Title:        req.Title,
		Content:      req.Content,
		RevisionID:   req.RevisionID,
		SourceLocale: req.SourceLocale,
		JobID:        req.JobID,
		ProfileID:    req.ProfileID,
	}, nil
}

func (s *apiServer) pathRef(w http.ResponseWriter, r *http.Request) (metadata.Ref, bool) {
	ref := metadata.Ref{Kind: r.PathValue("kind"), ID: r.PathValue("id")}
	if err := ref.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return metadata.Ref{}, false
	}
	return ref, true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, err error) {
	kind := services.Kind(err)
	if kind == "unknown" {
		kind = ""
	}
	s.writeJSON(w, status, api.ErrorResponse{Error: err.Error(), Kind: kind})
}

func parseBool(value string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && parsed
}
