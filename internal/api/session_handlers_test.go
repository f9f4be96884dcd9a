package api

import (
	"encoding/json/v2"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (ts *testServer) startSession(t *testing.T, token string, body map[string]any) StartSessionResponse {
	t.Helper()

	resp := ts.api.Post("/api/v1/import-sessions", body,
		"Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope testEnvelope[StartSessionResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestBulkImportScanFlow(t *testing.T) {
	ts := setupTestServer(t)

	token, _ := ts.newUser(t, "admin@example.com", true)
	pack := ts.createPack(t, token, "PACK-2026-0042", 10)

	started := ts.startSession(t, token, map[string]any{"pack_id": pack.ID})
	assert.False(t, started.Resumed)
	assert.Equal(t, "active", started.Session.Status)
	assert.Equal(t, "PACK-2026-0042", started.Session.PackCode)
	sessionID := started.Session.ID

	resp := ts.api.Post("/api/v1/import-sessions/"+sessionID+"/scans",
		map[string]any{"nfc_uid": "04:AA:AA:00:01"},
		"Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var scan testEnvelope[AddScanResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &scan))
	assert.True(t, scan.Data.Entry.Success)
	assert.Equal(t, 1, scan.Data.Entry.SequenceNumber)
	assert.Equal(t, "04AAAA0001", scan.Data.Entry.NfcUID)
	assert.Equal(t, 1, scan.Data.Session.TagsAdded)
	require.NotNil(t, scan.Data.Tag)
	assert.Equal(t, pack.ID, *scan.Data.Tag.PackID)

	// Re-scan under the reconfirm policy reports a duplicate without
	// moving the counters.
	resp = ts.api.Post("/api/v1/import-sessions/"+sessionID+"/scans",
		map[string]any{"nfc_uid": "04AAAA0001"},
		"Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &scan))
	assert.True(t, scan.Data.Duplicate)
	assert.Equal(t, 1, scan.Data.Session.TagsAdded)

	resp = ts.api.Post("/api/v1/import-sessions/"+sessionID+"/end",
		"Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)

	var summary testEnvelope[SessionSummaryResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &summary))
	assert.Equal(t, "completed", summary.Data.Session.Status)
	assert.Equal(t, 1, summary.Data.TagsAdded)
	assert.Equal(t, 0, summary.Data.TagsFailed)
	assert.GreaterOrEqual(t, summary.Data.DurationSeconds, 0.0)
}

func TestAddScan_FailureRecordedPerScan(t *testing.T) {
	ts := setupTestServer(t)

	token, _ := ts.newUser(t, "admin@example.com", true)
	started := ts.startSession(t, token, map[string]any{})
	sessionID := started.Session.ID

	// A bad UID is a recorded failure, not an HTTP error.
	resp := ts.api.Post("/api/v1/import-sessions/"+sessionID+"/scans",
		map[string]any{"nfc_uid": "!!!"},
		"Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)

	var scan testEnvelope[AddScanResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &scan))
	assert.False(t, scan.Data.Entry.Success)
	assert.Equal(t, "malformed_uid", scan.Data.Entry.Error)
	assert.Equal(t, 1, scan.Data.Session.TagsFailed)
	assert.Nil(t, scan.Data.Tag)
}

func TestAddScan_IdempotencyKeyReplay(t *testing.T) {
	ts := setupTestServer(t)

	token, _ := ts.newUser(t, "admin@example.com", true)
	started := ts.startSession(t, token, map[string]any{})
	sessionID := started.Session.ID

	key := uuid.NewString()

	resp := ts.api.Post("/api/v1/import-sessions/"+sessionID+"/scans",
		map[string]any{"nfc_uid": "04AAAA0001"},
		"Authorization: Bearer "+token,
		"Idempotency-Key: "+key)
	require.Equal(t, http.StatusOK, resp.Code)

	var first testEnvelope[AddScanResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &first))
	require.True(t, first.Data.Entry.Success)

	// Network retry with the same key replays the original entry.
	resp = ts.api.Post("/api/v1/import-sessions/"+sessionID+"/scans",
		map[string]any{"nfc_uid": "04AAAA0001"},
		"Authorization: Bearer "+token,
		"Idempotency-Key: "+key)
	require.Equal(t, http.StatusOK, resp.Code)

	var second testEnvelope[AddScanResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &second))
	assert.True(t, second.Data.Duplicate)
	assert.Equal(t, first.Data.Entry.SequenceNumber, second.Data.Entry.SequenceNumber)
	assert.Equal(t, 1, second.Data.Session.TagsAdded)
}

func TestAddScan_RejectsNonUUIDIdempotencyKey(t *testing.T) {
	ts := setupTestServer(t)

	token, _ := ts.newUser(t, "admin@example.com", true)
	started := ts.startSession(t, token, map[string]any{})

	resp := ts.api.Post("/api/v1/import-sessions/"+started.Session.ID+"/scans",
		map[string]any{"nfc_uid": "04AAAA0001"},
		"Authorization: Bearer "+token,
		"Idempotency-Key: not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	var envelope testEnvelope[any]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "VALIDATION", envelope.Code)
}

func TestStartSession_InvalidPolicy(t *testing.T) {
	ts := setupTestServer(t)

	token, _ := ts.newUser(t, "admin@example.com", true)

	resp := ts.api.Post("/api/v1/import-sessions",
		map[string]any{"duplicate_policy": "sometimes"},
		"Authorization: Bearer "+token)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	var envelope testEnvelope[any]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "VALIDATION", envelope.Code)
}

func TestStartSession_ResumesMatchingTarget(t *testing.T) {
	ts := setupTestServer(t)

	token, _ := ts.newUser(t, "admin@example.com", true)
	pack := ts.createPack(t, token, "PACK-A", 10)

	first := ts.startSession(t, token, map[string]any{"pack_id": pack.ID})
	second := ts.startSession(t, token, map[string]any{"pack_id": pack.ID})

	assert.True(t, second.Resumed)
	assert.Equal(t, first.Session.ID, second.Session.ID)

	// A different target conflicts with the open session.
	other := ts.createPack(t, token, "PACK-B", 10)
	resp := ts.api.Post("/api/v1/import-sessions",
		map[string]any{"pack_id": other.ID},
		"Authorization: Bearer "+token)
	assert.Equal(t, http.StatusConflict, resp.Code)

	var envelope testEnvelope[any]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "CONFLICT", envelope.Code)
}

func TestGetActiveSession(t *testing.T) {
	ts := setupTestServer(t)

	token, _ := ts.newUser(t, "admin@example.com", true)

	resp := ts.api.Get("/api/v1/import-sessions/active",
		"Authorization: Bearer "+token)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	started := ts.startSession(t, token, map[string]any{})

	resp = ts.api.Get("/api/v1/import-sessions/active",
		"Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)

	var active testEnvelope[SessionResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &active))
	assert.Equal(t, started.Session.ID, active.Data.ID)
}

func TestAddScan_ForeignSession(t *testing.T) {
	ts := setupTestServer(t)

	ownerToken, _ := ts.newUser(t, "owner@example.com", true)
	otherToken, _ := ts.newUser(t, "other@example.com", true)

	started := ts.startSession(t, ownerToken, map[string]any{})

	resp := ts.api.Post("/api/v1/import-sessions/"+started.Session.ID+"/scans",
		map[string]any{"nfc_uid": "04AAAA0001"},
		"Authorization: Bearer "+otherToken)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestAbandonSession(t *testing.T) {
	ts := setupTestServer(t)

	token, _ := ts.newUser(t, "admin@example.com", true)
	started := ts.startSession(t, token, map[string]any{})
	sessionID := started.Session.ID

	resp := ts.api.Post("/api/v1/import-sessions/"+sessionID+"/scans",
		map[string]any{"nfc_uid": "04AAAA0001"},
		"Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/import-sessions/"+sessionID+"/abandon",
		"Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)

	var summary testEnvelope[SessionSummaryResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &summary))
	assert.Equal(t, "abandoned", summary.Data.Session.Status)

	// Tags added before the abandon stay registered.
	resp = ts.api.Get("/api/v1/tags/lookup?uid=04AAAA0001",
		"Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)

	// A terminal session accepts no further scans.
	resp = ts.api.Post("/api/v1/import-sessions/"+sessionID+"/scans",
		map[string]any{"nfc_uid": "04AAAA0002"},
		"Authorization: Bearer "+token)
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestGetSession_WithScanLog(t *testing.T) {
	ts := setupTestServer(t)

	token, _ := ts.newUser(t, "admin@example.com", true)
	started := ts.startSession(t, token, map[string]any{})
	sessionID := started.Session.ID

	for _, uid := range []string{"04AAAA0001", "!!!", "04AAAA0002"} {
		resp := ts.api.Post("/api/v1/import-sessions/"+sessionID+"/scans",
			map[string]any{"nfc_uid": uid},
			"Authorization: Bearer "+token)
		require.Equal(t, http.StatusOK, resp.Code)
	}

	resp := ts.api.Get("/api/v1/import-sessions/"+sessionID,
		"Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)

	var detail testEnvelope[SessionDetailResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &detail))
	assert.Equal(t, 2, detail.Data.Session.TagsAdded)
	assert.Equal(t, 1, detail.Data.Session.TagsFailed)
	require.Len(t, detail.Data.Entries, 3)
	for i, entry := range detail.Data.Entries {
		assert.Equal(t, i+1, entry.SequenceNumber)
	}
}

func TestListSessions(t *testing.T) {
	ts := setupTestServer(t)

	token, _ := ts.newUser(t, "admin@example.com", true)

	first := ts.startSession(t, token, map[string]any{})
	resp := ts.api.Post("/api/v1/import-sessions/"+first.Session.ID+"/end",
		"Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)

	second := ts.startSession(t, token, map[string]any{})

	resp = ts.api.Get("/api/v1/import-sessions", "Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)

	var listed testEnvelope[ListSessionsResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &listed))
	require.Len(t, listed.Data.Sessions, 2)
	assert.Equal(t, second.Session.ID, listed.Data.Sessions[0].ID)
	assert.Equal(t, first.Session.ID, listed.Data.Sessions[1].ID)
}
