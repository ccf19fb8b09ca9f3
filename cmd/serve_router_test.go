package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-research/internal/leadimport"
	"github.com/sells-group/lead-research/internal/model"
	"github.com/sells-group/lead-research/internal/orchestrator"
	"github.com/sells-group/lead-research/internal/provider"
	"github.com/sells-group/lead-research/internal/store"
)

type stubProvider struct{}

func (stubProvider) Research(ctx context.Context, lead model.Lead) (*model.ResearchPacket, provider.Outcome, error) {
	return &model.ResearchPacket{
		LeadID:       lead.ID,
		CompanyIntel: "intel",
		FitScore:     55,
		Priority:     model.PriorityWarm,
	}, provider.OutcomeOK, nil
}

func newTestEnv(t *testing.T) *appEnv {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "serve.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	coord := orchestrator.NewCoordinator(2)
	orch := orchestrator.New(st, stubProvider{}, coord, nil)

	return &appEnv{
		Store:        st,
		Orchestrator: orch,
		Coordinator:  coord,
		Importer:     leadimport.New(st, orch, 10),
	}
}

func createTestLead(t *testing.T, env *appEnv) model.Lead {
	t.Helper()
	lead, err := env.Store.CreateLead(context.Background(), model.Lead{
		Company: "Acme",
		Website: "https://acme.example",
		Email:   "jane@acme.example",
	})
	require.NoError(t, err)
	return *lead
}

func TestBuildRouter_Health(t *testing.T) {
	router := buildRouter(context.Background(), newTestEnv(t))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
}

func TestBuildRouter_CreateAndGetLead(t *testing.T) {
	env := newTestEnv(t)
	router := buildRouter(context.Background(), env)

	body, _ := json.Marshal(map[string]string{"company": "Globex", "email": "john@globex.example"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/leads", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code)

	var created model.Lead
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/leads/"+created.ID, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestBuildRouter_PacketNotFound(t *testing.T) {
	env := newTestEnv(t)
	router := buildRouter(context.Background(), env)
	lead := createTestLead(t, env)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/leads/"+lead.ID+"/packet", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestBuildRouter_ResearchAccepted(t *testing.T) {
	env := newTestEnv(t)
	router := buildRouter(context.Background(), env)
	lead := createTestLead(t, env)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/leads/"+lead.ID+"/research", nil))
	require.Equal(t, http.StatusAccepted, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp["status"])

	// Background research persists a packet shortly after the 202.
	assert.Eventually(t, func() bool {
		packet, err := env.Store.GetPacketByLead(context.Background(), lead.ID)
		return err == nil && packet != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBuildRouter_ResearchConflictWhenInFlight(t *testing.T) {
	env := newTestEnv(t)
	router := buildRouter(context.Background(), env)
	lead := createTestLead(t, env)

	require.True(t, env.Coordinator.Begin(lead.ID))
	defer env.Coordinator.End(lead.ID)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/leads/"+lead.ID+"/research", nil))
	require.Equal(t, http.StatusConflict, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "in_flight", resp["status"])
	assert.Equal(t, lead.ID, resp["lead_id"])
}

func TestBuildRouter_BatchRejectsEmptyIDs(t *testing.T) {
	router := buildRouter(context.Background(), newTestEnv(t))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/research/batch", bytes.NewReader([]byte(`{"lead_ids":[]}`))))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
