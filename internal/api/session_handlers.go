package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/cellarclub/cellar-server/internal/domain"
	apperrors "github.com/cellarclub/cellar-server/internal/errors"
	"github.com/cellarclub/cellar-server/internal/service"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "startImportSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/import-sessions",
		Summary:     "Start bulk import session",
		Description: "Starts a session, or resumes the caller's active session when its target pack matches",
		Tags:        []string{"Bulk Import"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleStartSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "listImportSessions",
		Method:      http.MethodGet,
		Path:        "/api/v1/import-sessions",
		Summary:     "List recent sessions",
		Description: "Returns recent bulk import sessions, newest first",
		Tags:        []string{"Bulk Import"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListSessions)

	huma.Register(s.api, huma.Operation{
		OperationID: "getActiveImportSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/import-sessions/active",
		Summary:     "Get active session",
		Description: "Returns the caller's active bulk import session",
		Tags:        []string{"Bulk Import"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetActiveSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "getImportSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/import-sessions/{id}",
		Summary:     "Get session",
		Description: "Returns a session with its scan log",
		Tags:        []string{"Bulk Import"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "addImportScan",
		Method:      http.MethodPost,
		Path:        "/api/v1/import-sessions/{id}/scans",
		Summary:     "Add scan",
		Description: "Processes one scanned UID against the caller's active session; rejections are reported per scan, not raised",
		Tags:        []string{"Bulk Import"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAddScan)

	huma.Register(s.api, huma.Operation{
		OperationID: "endImportSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/import-sessions/{id}/end",
		Summary:     "End session",
		Description: "Completes the caller's session and returns the final tally",
		Tags:        []string{"Bulk Import"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleEndSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "abandonImportSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/import-sessions/{id}/abandon",
		Summary:     "Abandon session",
		Description: "Cancels the caller's session; already-added tags are kept",
		Tags:        []string{"Bulk Import"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAbandonSession)
}

// === DTOs ===

// SessionResponse contains bulk import session data in API responses.
type SessionResponse struct {
	ID              string     `json:"id" doc:"Session ID"`
	PackID          *string    `json:"pack_id" doc:"Target pack ID, if any"`
	PackCode        string     `json:"pack_code,omitempty" doc:"Target pack code, if any"`
	Status          string     `json:"status" doc:"Lifecycle status" enum:"active,completed,abandoned"`
	DuplicatePolicy string     `json:"duplicate_policy" doc:"Re-scan handling" enum:"reconfirm,reject"`
	TagsAdded       int        `json:"tags_added" doc:"Successful scans"`
	TagsFailed      int        `json:"tags_failed" doc:"Rejected scans"`
	StartedBy       string     `json:"started_by" doc:"Operator user ID"`
	StartedAt       time.Time  `json:"started_at" doc:"Start time"`
	EndedAt         *time.Time `json:"ended_at" doc:"End time, once terminal"`
	Notes           string     `json:"notes,omitempty" doc:"Operator notes"`
}

func toSessionResponse(view *service.SessionView) SessionResponse {
	sess := view.Session
	return SessionResponse{
		ID:              sess.ID,
		PackID:          sess.PackID,
		PackCode:        view.PackCode,
		Status:          string(sess.Status),
		DuplicatePolicy: string(sess.DuplicatePolicy),
		TagsAdded:       sess.TagsAdded,
		TagsFailed:      sess.TagsFailed,
		StartedBy:       sess.StartedBy,
		StartedAt:       sess.StartedAt,
		EndedAt:         sess.EndedAt,
		Notes:           sess.Notes,
	}
}

// StartSessionRequest is the request body for starting a session.
type StartSessionRequest struct {
	PackID          *string `json:"pack_id,omitempty" doc:"Target pack; scans also attach to it"`
	DuplicatePolicy string  `json:"duplicate_policy,omitempty" validate:"omitempty,oneof=reconfirm reject" doc:"Re-scan handling; server default applies when omitted"`
	Notes           string  `json:"notes,omitempty" validate:"omitempty,max=500" doc:"Operator notes"`
}

// StartSessionInput wraps the start session request for Huma.
type StartSessionInput struct {
	Authorization string `header:"Authorization"`
	Body          StartSessionRequest
}

// StartSessionResponse contains the started or resumed session.
type StartSessionResponse struct {
	Session SessionResponse `json:"session" doc:"The session"`
	Resumed bool            `json:"resumed" doc:"True when an existing active session was resumed"`
}

// StartSessionOutput wraps the start session response for Huma.
type StartSessionOutput struct {
	Body StartSessionResponse
}

// ListSessionsInput contains parameters for listing sessions.
type ListSessionsInput struct {
	Authorization string `header:"Authorization"`
	Limit         int    `query:"limit" doc:"Max results"`
}

// ListSessionsResponse contains recent sessions.
type ListSessionsResponse struct {
	Sessions []SessionResponse `json:"sessions" doc:"Recent sessions"`
}

// ListSessionsOutput wraps the list sessions response for Huma.
type ListSessionsOutput struct {
	Body ListSessionsResponse
}

// GetActiveSessionInput contains parameters for fetching the active session.
type GetActiveSessionInput struct {
	Authorization string `header:"Authorization"`
}

// SessionOutput wraps a single session response for Huma.
type SessionOutput struct {
	Body SessionResponse
}

// GetSessionInput contains parameters for fetching a session.
type GetSessionInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Session ID"`
}

// ScanEntryResponse is one row of a session's scan log.
type ScanEntryResponse struct {
	SequenceNumber int       `json:"sequence_number" doc:"1-based scan order within the session"`
	NfcUID         string    `json:"nfc_uid" doc:"Scanned UID"`
	Success        bool      `json:"success" doc:"Whether the scan was accepted"`
	Error          string    `json:"error,omitempty" doc:"Machine-readable rejection reason"`
	Duplicate      bool      `json:"duplicate,omitempty" doc:"True when the scan reconfirmed an earlier one"`
	CreatedAt      time.Time `json:"created_at" doc:"Scan time"`
}

func toScanEntryResponse(e *domain.BulkImportEntry) ScanEntryResponse {
	return ScanEntryResponse{
		SequenceNumber: e.SequenceNumber,
		NfcUID:         e.NfcUID,
		Success:        e.Success,
		Error:          e.ErrorReason,
		Duplicate:      e.Duplicate,
		CreatedAt:      e.CreatedAt,
	}
}

// SessionDetailResponse contains a session with its scan log.
type SessionDetailResponse struct {
	Session SessionResponse     `json:"session" doc:"The session"`
	Entries []ScanEntryResponse `json:"entries" doc:"Scan log in sequence order"`
}

// SessionDetailOutput wraps the session detail response for Huma.
type SessionDetailOutput struct {
	Body SessionDetailResponse
}

// AddScanRequest is the request body for adding a scan.
type AddScanRequest struct {
	NfcUID string `json:"nfc_uid" validate:"required" doc:"Raw scanned UID"`
}

// AddScanInput wraps the add scan request for Huma.
type AddScanInput struct {
	Authorization  string `header:"Authorization"`
	IdempotencyKey string `header:"Idempotency-Key" doc:"UUID deduplicating network retries of the same scan"`
	ID             string `path:"id" doc:"Session ID"`
	Body           AddScanRequest
}

// AddScanResponse is the structured per-scan result.
type AddScanResponse struct {
	Entry     ScanEntryResponse `json:"entry" doc:"The recorded scan"`
	Session   SessionResponse   `json:"session" doc:"Session with updated counters"`
	Tag       *TagResponse      `json:"tag,omitempty" doc:"The registered tag, on success"`
	Duplicate bool              `json:"duplicate,omitempty" doc:"True when an earlier scan was replayed"`
}

// AddScanOutput wraps the add scan response for Huma.
type AddScanOutput struct {
	Body AddScanResponse
}

// EndSessionInput contains parameters for ending a session.
type EndSessionInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Session ID"`
}

// SessionSummaryResponse is the final tally of an ended session.
type SessionSummaryResponse struct {
	Session         SessionResponse `json:"session" doc:"The terminal session"`
	TagsAdded       int             `json:"tags_added" doc:"Successful scans"`
	TagsFailed      int             `json:"tags_failed" doc:"Rejected scans"`
	DurationSeconds float64         `json:"duration_seconds" doc:"Session length in seconds"`
}

// SessionSummaryOutput wraps the session summary response for Huma.
type SessionSummaryOutput struct {
	Body SessionSummaryResponse
}

// === Handlers ===

func (s *Server) handleStartSession(ctx context.Context, input *StartSessionInput) (*StartSessionOutput, error) {
	claims, err := s.authenticateAndRequireAdmin(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	view, resumed, err := s.services.BulkImport.Start(ctx, claims.UserID, input.Body.PackID, domain.DuplicatePolicy(input.Body.DuplicatePolicy), input.Body.Notes)
	if err != nil {
		return nil, err
	}

	return &StartSessionOutput{Body: StartSessionResponse{
		Session: toSessionResponse(view),
		Resumed: resumed,
	}}, nil
}

func (s *Server) handleListSessions(ctx context.Context, input *ListSessionsInput) (*ListSessionsOutput, error) {
	if _, err := s.authenticateAndRequireAdmin(ctx, input.Authorization); err != nil {
		return nil, err
	}

	views, err := s.services.BulkImport.ListRecent(ctx, input.Limit)
	if err != nil {
		return nil, err
	}

	resp := make([]SessionResponse, len(views))
	for i, view := range views {
		resp[i] = toSessionResponse(view)
	}

	return &ListSessionsOutput{Body: ListSessionsResponse{Sessions: resp}}, nil
}

func (s *Server) handleGetActiveSession(ctx context.Context, input *GetActiveSessionInput) (*SessionOutput, error) {
	claims, err := s.authenticateAndRequireAdmin(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	view, err := s.services.BulkImport.Active(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	return &SessionOutput{Body: toSessionResponse(view)}, nil
}

func (s *Server) handleGetSession(ctx context.Context, input *GetSessionInput) (*SessionDetailOutput, error) {
	if _, err := s.authenticateAndRequireAdmin(ctx, input.Authorization); err != nil {
		return nil, err
	}

	view, err := s.services.BulkImport.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	entries, err := s.services.BulkImport.Entries(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	resp := SessionDetailResponse{
		Session: toSessionResponse(view),
		Entries: make([]ScanEntryResponse, len(entries)),
	}
	for i, e := range entries {
		resp.Entries[i] = toScanEntryResponse(e)
	}

	return &SessionDetailOutput{Body: resp}, nil
}

func (s *Server) handleAddScan(ctx context.Context, input *AddScanInput) (*AddScanOutput, error) {
	claims, err := s.authenticateAndRequireAdmin(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	// The physical reader is the throughput bottleneck; this cap only stops
	// runaway clients.
	if !s.scanLimiter.Allow(claims.UserID) {
		return nil, huma.Error429TooManyRequests("Scan rate limit exceeded")
	}

	var idempotencyKey *string
	if input.IdempotencyKey != "" {
		if _, err := uuid.Parse(input.IdempotencyKey); err != nil {
			return nil, apperrors.Validation("Idempotency-Key must be a UUID")
		}
		idempotencyKey = &input.IdempotencyKey
	}

	outcome, err := s.services.BulkImport.Add(ctx, input.ID, claims.UserID, input.Body.NfcUID, idempotencyKey)
	if err != nil {
		return nil, err
	}

	resp := AddScanResponse{
		Entry:     toScanEntryResponse(outcome.Entry),
		Session:   toSessionResponse(&service.SessionView{Session: outcome.Session}),
		Duplicate: outcome.Duplicate,
	}
	if outcome.Tag != nil {
		tag := toTagResponse(outcome.Tag)
		resp.Tag = &tag
	}

	return &AddScanOutput{Body: resp}, nil
}

func (s *Server) handleEndSession(ctx context.Context, input *EndSessionInput) (*SessionSummaryOutput, error) {
	claims, err := s.authenticateAndRequireAdmin(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	summary, err := s.services.BulkImport.End(ctx, input.ID, claims.UserID)
	if err != nil {
		return nil, err
	}

	return &SessionSummaryOutput{Body: toSummaryResponse(summary)}, nil
}

func (s *Server) handleAbandonSession(ctx context.Context, input *EndSessionInput) (*SessionSummaryOutput, error) {
	claims, err := s.authenticateAndRequireAdmin(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	summary, err := s.services.BulkImport.Abandon(ctx, input.ID, claims.UserID)
	if err != nil {
		return nil, err
	}

	return &SessionSummaryOutput{Body: toSummaryResponse(summary)}, nil
}

func toSummaryResponse(summary *service.SessionSummary) SessionSummaryResponse {
	return SessionSummaryResponse{
		Session:         toSessionResponse(&service.SessionView{Session: summary.Session}),
		TagsAdded:       summary.TagsAdded,
		TagsFailed:      summary.TagsFailed,
		DurationSeconds: summary.DurationSeconds,
	}
}
