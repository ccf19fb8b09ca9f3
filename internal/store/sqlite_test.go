package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-research/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_CreateAndGetLead(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateLead(ctx, model.Lead{
		Company:     "Acme",
		Website:     "https://acme.example",
		ContactName: "Jo Smith",
		Email:       "jo@acme.example",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, model.LeadStatusNew, created.Status)

	got, err := st.GetLead(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Company)
	assert.Equal(t, "jo@acme.example", got.Email)
	assert.Nil(t, got.FitScore)
}

func TestSQLite_GetLead_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetLead(context.Background(), "nonexistent")
	assert.Error(t, err)
}

func TestSQLite_GetLeadByEmail(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.CreateLead(ctx, model.Lead{Company: "Acme", Email: "jo@acme.example"})
	require.NoError(t, err)

	got, err := st.GetLeadByEmail(ctx, "jo@acme.example")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme", got.Company)

	missing, err := st.GetLeadByEmail(ctx, "nobody@acme.example")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Empty email never matches, even if rows carry empty emails.
	_, err = st.CreateLead(ctx, model.Lead{Company: "NoMail"})
	require.NoError(t, err)
	blank, err := st.GetLeadByEmail(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, blank)
}

func TestSQLite_UpdateLead_Partial(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateLead(ctx, model.Lead{Company: "Acme", Phone: "555-0001"})
	require.NoError(t, err)

	score := 72
	priority := model.PriorityWarm
	updated, err := st.UpdateLead(ctx, created.ID, model.LeadUpdate{
		FitScore: &score,
		Priority: &priority,
	})
	require.NoError(t, err)

	require.NotNil(t, updated.FitScore)
	assert.Equal(t, 72, *updated.FitScore)
	assert.Equal(t, model.PriorityWarm, updated.Priority)
	// Untouched fields survive.
	assert.Equal(t, "Acme", updated.Company)
	assert.Equal(t, "555-0001", updated.Phone)
}

func TestSQLite_UpdateLead_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	phone := "555-0002"
	_, err := st.UpdateLead(context.Background(), "missing", model.LeadUpdate{Phone: &phone})
	assert.Error(t, err)
}

func TestSQLite_UpdateLead_EmptyUpdateReturnsCurrent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateLead(ctx, model.Lead{Company: "Acme"})
	require.NoError(t, err)

	got, err := st.UpdateLead(ctx, created.ID, model.LeadUpdate{})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestSQLite_ListLeads_FilterByStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.CreateLead(ctx, model.Lead{Company: "A", Status: model.LeadStatusNew})
	require.NoError(t, err)
	_, err = st.CreateLead(ctx, model.Lead{Company: "B", Status: model.LeadStatusContacted})
	require.NoError(t, err)

	leads, err := st.ListLeads(ctx, LeadFilter{Status: model.LeadStatusContacted})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "B", leads[0].Company)

	all, err := st.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLite_PacketRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	lead, err := st.CreateLead(ctx, model.Lead{Company: "Acme"})
	require.NoError(t, err)

	created, err := st.CreatePacket(ctx, model.ResearchPacket{
		LeadID:             lead.ID,
		CompanyIntel:       "intel",
		TalkTrack:          "track",
		DiscoveryQuestions: []string{"q1", "q2"},
		ObjectionHandles:   []string{"o1"},
		FitScore:           85,
		Priority:           model.PriorityHot,
		Sources:            "website, filings",
	})
	require.NoError(t, err)
	assert.Equal(t, model.VerificationAIGenerated, created.Verification)

	got, err := st.GetPacketByLead(ctx, lead.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "intel", got.CompanyIntel)
	assert.Equal(t, []string{"q1", "q2"}, got.DiscoveryQuestions)
	assert.Equal(t, 85, got.FitScore)
	assert.False(t, got.Degraded)
}

func TestSQLite_GetPacketByLead_None(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetPacketByLead(context.Background(), "no-such-lead")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_UpdatePacket(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	lead, err := st.CreateLead(ctx, model.Lead{Company: "Acme"})
	require.NoError(t, err)

	created, err := st.CreatePacket(ctx, model.ResearchPacket{
		LeadID:   lead.ID,
		FitScore: 40,
		Priority: model.PriorityCold,
	})
	require.NoError(t, err)

	score := 85
	priority := model.PriorityHot
	degraded := false
	updated, err := st.UpdatePacket(ctx, created.ID, model.PacketUpdate{
		FitScore: &score,
		Priority: &priority,
		Degraded: &degraded,
	})
	require.NoError(t, err)
	assert.Equal(t, 85, updated.FitScore)
	assert.Equal(t, model.PriorityHot, updated.Priority)
}

func TestSQLite_UpdatePacket_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	score := 1
	_, err := st.UpdatePacket(context.Background(), "missing", model.PacketUpdate{FitScore: &score})
	assert.Error(t, err)
}
