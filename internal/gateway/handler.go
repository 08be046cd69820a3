package gateway

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zbee/trigger-gw/internal/audit"
	"github.com/zbee/trigger-gw/internal/authz"
	"github.com/zbee/trigger-gw/internal/fault"
	"github.com/zbee/trigger-gw/internal/trigger"
)

// Headers a genuine webhook dispatcher always sends.
const (
	headerSignature = "X-Hub-Signature-256"
	headerDelivery  = "X-GitHub-Delivery"
	headerEvent     = "X-GitHub-Event"

	userAgentPrefix = "GitHub-Hookshot/"
)

// pipelineResult carries what the linear pipeline produced, for the
// response and the audit log.
type pipelineResult struct {
	record   *trigger.Record
	identity string
	targets  []string
	err      error
}

// handleDelivery runs the full pipeline for one webhook delivery.
func (s *Server) handleDelivery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	deliveryID := r.Header.Get(headerDelivery)
	logger := s.logger.With("delivery_id", deliveryID, "path", r.URL.Path)

	// Origin checks happen before the body is read and before any remote
	// fetch: a request without the dispatcher headers never costs a store
	// round-trip.
	if f := checkOrigin(r); f != nil {
		logger.Warn("delivery rejected", "code", f.Code, "detail", f.Detail)
		s.respondFault(w, f)
		s.recordAudit(r.Context(), deliveryID, pipelineResult{err: f}, start)
		return
	}

	limitedReader := io.LimitReader(r.Body, s.config.MaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read request body")
		return
	}
	if int64(len(body)) > s.config.MaxBodySize {
		s.respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	result := s.runPipeline(r.Context(), r.URL, r.Header.Get(headerSignature), body)

	if result.err != nil {
		f := asFault(result.err)
		logger.Warn("delivery rejected",
			"code", f.Code,
			"detail", f.Detail,
			"identity", result.identity,
			"targets", strings.Join(result.targets, ","),
		)
		s.respondFault(w, f)
	} else {
		logger.Info("trigger dispatched",
			"identity", result.identity,
			"target_repo", result.record.TargetRepo,
			"target_name", result.record.TargetName,
			"branch", result.record.CodeBranch,
			"comment", result.record.CommentURL,
		)
		s.respondJSON(w, http.StatusOK, result.record)
	}

	s.recordAudit(r.Context(), deliveryID, result, start)
}

// runPipeline executes the linear stage sequence. Each stage either
// produces its output or terminates the delivery with a fault; there is no
// backtracking and no retry.
func (s *Server) runPipeline(ctx context.Context, u *url.URL, sigHeader string, body []byte) pipelineResult {
	var result pipelineResult

	fetchCtx, cancel := context.WithTimeout(ctx, s.config.UpstreamTimeout)
	defer cancel()
	set, err := s.store.Fetch(fetchCtx)
	if err != nil {
		result.err = err
		return result
	}

	identity, err := set.Resolve(sigHeader, body)
	if err != nil {
		result.err = err
		return result
	}
	result.identity = identity

	result.targets = authz.ParseTargets(u.Path)

	engine := authz.NewEngine(set.GlobalBlob(), set.UserBlob())
	if err := engine.Authorize(result.targets, identity); err != nil {
		result.err = err
		return result
	}

	payload, err := trigger.ParsePayload(body)
	if err != nil {
		result.err = err
		return result
	}

	record, err := trigger.Build(s.config.WorkerVersion, identity, result.targets, u.Query(), payload)
	if err != nil {
		result.err = err
		return result
	}
	result.record = record

	notifyCtx, cancel := context.WithTimeout(ctx, s.config.UpstreamTimeout)
	defer cancel()
	commentURL, err := s.notifier.Notify(notifyCtx, record)
	if err != nil {
		result.err = err
		return result
	}
	record.CommentURL = commentURL

	return result
}

// checkOrigin validates the headers a genuine dispatcher always sends.
func checkOrigin(r *http.Request) *fault.Fault {
	switch {
	case !strings.HasPrefix(r.UserAgent(), userAgentPrefix):
		return fault.New(fault.NonPermissibleOrigin, "user agent does not identify a known webhook dispatcher")
	case r.Header.Get(headerDelivery) == "":
		return fault.New(fault.NonPermissibleOrigin, "missing delivery id header")
	case r.Header.Get(headerEvent) == "":
		return fault.New(fault.NonPermissibleOrigin, "missing event type header")
	case !strings.HasPrefix(r.Header.Get(headerSignature), "sha256="):
		return fault.New(fault.NonPermissibleOrigin, "missing or malformed signature header")
	}
	return nil
}

// asFault normalizes an error to a Fault; anything that is not already one
// is an internal error, which should not happen.
func asFault(err error) *fault.Fault {
	if f, ok := fault.From(err); ok {
		return f
	}
	return &fault.Fault{Code: "internal", Detail: err.Error()}
}

// recordAudit appends the delivery decision to the audit log, if enabled.
func (s *Server) recordAudit(ctx context.Context, deliveryID string, result pipelineResult, start time.Time) {
	if s.auditLog == nil {
		return
	}

	outcome := "ok"
	status := http.StatusOK
	if result.err != nil {
		f := asFault(result.err)
		outcome = string(f.Code)
		status = statusForCode(f.Code)
	}

	if err := s.auditLog.Record(ctx, audit.Entry{
		DeliveryID: deliveryID,
		Identity:   result.identity,
		Targets:    result.targets,
		Outcome:    outcome,
		Status:     status,
		Duration:   time.Since(start),
	}); err != nil {
		s.logger.Error("failed to record delivery audit", "error", err)
	}
}
