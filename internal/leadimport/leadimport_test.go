package leadimport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-research/internal/model"
	"github.com/sells-group/lead-research/internal/orchestrator"
	"github.com/sells-group/lead-research/internal/provider"
	"github.com/sells-group/lead-research/internal/store"
)

// fakeQueuer records which lead IDs were queued.
type fakeQueuer struct {
	queued [][]string
}

func (q *fakeQueuer) ProcessQueue(ctx context.Context, leadIDs []string, opts orchestrator.Options) *orchestrator.BatchHandle {
	q.queued = append(q.queued, leadIDs)
	return nil
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "leads.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func writeCSV(t *testing.T, rows ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leads.csv")
	content := ""
	for _, row := range rows {
		content += row + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportCSV(t *testing.T) {
	st := newTestStore(t)
	q := &fakeQueuer{}
	im := New(st, q, 10)

	path := writeCSV(t,
		"Company,Website,Contact Name,Email,Phone",
		"Acme,https://acme.example,Jane Doe,jane@acme.example,555-1000",
		"Globex,,John Roe,john@globex.example,",
		",,,,",
	)

	result, err := im.ImportCSV(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, result.CreatedIDs, 2)
	assert.Equal(t, 1, result.Skipped)
	assert.False(t, result.RequiresApproval)
	require.Len(t, q.queued, 1)
	assert.Equal(t, result.CreatedIDs, q.queued[0])

	lead, err := st.GetLeadByEmail(context.Background(), "jane@acme.example")
	require.NoError(t, err)
	require.NotNil(t, lead)
	assert.Equal(t, "Acme", lead.Company)
	assert.Equal(t, "555-1000", lead.Phone)
}

func TestImportCSV_SkipsExistingByNormalizedEmail(t *testing.T) {
	st := newTestStore(t)
	_, err := st.CreateLead(context.Background(), model.Lead{
		Company: "Acme", Email: "jane@acme.example",
	})
	require.NoError(t, err)

	im := New(st, nil, 10)
	path := writeCSV(t,
		"company,email",
		"Acme Corp,  JANE@Acme.Example ",
	)

	result, err := im.ImportCSV(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, result.CreatedIDs)
	assert.Equal(t, 1, result.Skipped)
}

func TestImport_ThresholdGate(t *testing.T) {
	makeRows := func(n int) []string {
		rows := []string{"company,email"}
		for i := 0; i < n; i++ {
			rows = append(rows, fmt.Sprintf("Company %d,contact%d@example.com", i, i))
		}
		return rows
	}

	t.Run("eleven leads need approval", func(t *testing.T) {
		st := newTestStore(t)
		q := &fakeQueuer{}
		im := New(st, q, 10)

		result, err := im.ImportCSV(context.Background(), writeCSV(t, makeRows(11)...))
		require.NoError(t, err)
		assert.Len(t, result.CreatedIDs, 11)
		assert.True(t, result.RequiresApproval)
		assert.Empty(t, q.queued, "oversized imports must not auto-queue")
	})

	t.Run("ten leads auto-queue", func(t *testing.T) {
		st := newTestStore(t)
		q := &fakeQueuer{}
		im := New(st, q, 10)

		result, err := im.ImportCSV(context.Background(), writeCSV(t, makeRows(10)...))
		require.NoError(t, err)
		assert.Len(t, result.CreatedIDs, 10)
		assert.False(t, result.RequiresApproval)
		require.Len(t, q.queued, 1)
		assert.Len(t, q.queued[0], 10)
	})
}

type stubProvider struct{}

func (stubProvider) Research(ctx context.Context, lead model.Lead) (*model.ResearchPacket, provider.Outcome, error) {
	return &model.ResearchPacket{
		LeadID:       lead.ID,
		CompanyIntel: "intel for " + lead.Company,
		FitScore:     60,
		Priority:     model.PriorityWarm,
	}, provider.OutcomeOK, nil
}

// An auto-queued import hands back a joinable handle; waiting on it must
// leave finished research in the store so short-lived callers can join the
// batch before tearing down.
func TestImportCSV_AutoQueuedHandleJoins(t *testing.T) {
	st := newTestStore(t)
	orch := orchestrator.New(st, stubProvider{}, orchestrator.NewCoordinator(2), nil)
	im := New(st, orch, 10)

	path := writeCSV(t,
		"company,email",
		"Acme,jane@acme.example",
		"Globex,john@globex.example",
	)

	result, err := im.ImportCSV(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, result.CreatedIDs, 2)
	require.NotNil(t, result.Handle, "small imports must return a joinable handle")

	stats := result.Handle.Wait()
	assert.Equal(t, 2, stats.Researched)
	assert.Zero(t, stats.Failed)

	for _, id := range result.CreatedIDs {
		packet, err := st.GetPacketByLead(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, packet, "research for lead %s must be persisted once the handle is joined", id)
		assert.Equal(t, 60, packet.FitScore)
	}
}

func TestImportXLSX(t *testing.T) {
	st := newTestStore(t)
	im := New(st, nil, 10)

	path := filepath.Join(t.TempDir(), "leads.xlsx")
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	require.NoError(t, err)

	for _, row := range [][]string{
		{"Company", "Website", "Email", "Title"},
		{"Acme", "https://acme.example", "jane@acme.example", "VP Ops"},
		{"Globex", "", "john@globex.example", ""},
	} {
		r := sheet.AddRow()
		for _, v := range row {
			r.AddCell().SetString(v)
		}
	}
	require.NoError(t, f.Save(path))

	result, err := im.ImportXLSX(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, result.CreatedIDs, 2)

	lead, err := st.GetLeadByEmail(context.Background(), "jane@acme.example")
	require.NoError(t, err)
	require.NotNil(t, lead)
	assert.Equal(t, "VP Ops", lead.Title)
}

func TestImportCSV_NoRecognizedColumns(t *testing.T) {
	st := newTestStore(t)
	im := New(st, nil, 10)

	_, err := im.ImportCSV(context.Background(), writeCSV(t, "foo,bar", "1,2"))
	assert.Error(t, err)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@acme.example", NormalizeEmail("  JANE@Acme.Example "))
	assert.Equal(t, "", NormalizeEmail("   "))
}
