// Package leadimport ingests leads from CSV and XLSX files, deduplicating
// against the store by email, and decides whether the new leads auto-queue
// for research or need an explicit batch approval.
package leadimport

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/lead-research/internal/model"
	"github.com/sells-group/lead-research/internal/orchestrator"
	"github.com/sells-group/lead-research/internal/store"
)

// ResearchQueuer schedules background research for a set of leads.
type ResearchQueuer interface {
	ProcessQueue(ctx context.Context, leadIDs []string, opts orchestrator.Options) *orchestrator.BatchHandle
}

// Result summarizes one import run.
type Result struct {
	CreatedIDs []string
	Skipped    int

	// RequiresApproval is set when the import created more leads than the
	// auto-queue threshold allows; research must then be started with an
	// explicit batch action. Each provider call costs real money, so large
	// imports never kick off research implicitly.
	RequiresApproval bool

	// Handle is the running research batch when the import auto-queued,
	// nil otherwise.
	Handle *orchestrator.BatchHandle
}

// Importer reads lead files into the store.
type Importer struct {
	store     store.Store
	queuer    ResearchQueuer
	threshold int
}

// New creates an importer. threshold is the largest import that still
// auto-queues research; <= 0 falls back to 10. queuer may be nil to disable
// auto-queueing entirely.
func New(st store.Store, queuer ResearchQueuer, threshold int) *Importer {
	if threshold <= 0 {
		threshold = 10
	}
	return &Importer{store: st, queuer: queuer, threshold: threshold}
}

// ImportCSV imports leads from a CSV file with a header row.
func (im *Importer) ImportCSV(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "leadimport: open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "leadimport: read header from %s", path)
	}

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "leadimport: read %s", path)
		}
		rows = append(rows, record)
	}

	return im.importRows(ctx, header, rows)
}

// ImportXLSX imports leads from the first sheet of an XLSX workbook with a
// header row.
func (im *Importer) ImportXLSX(ctx context.Context, path string) (*Result, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "leadimport: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("leadimport: %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("leadimport: %s sheet is empty", path)
	}

	header := rowToStrings(sheet.Rows[0])
	rows := make([][]string, 0, len(sheet.Rows)-1)
	for _, row := range sheet.Rows[1:] {
		rows = append(rows, rowToStrings(row))
	}

	return im.importRows(ctx, header, rows)
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		cells[i] = cell.String()
	}
	return cells
}

// columnAliases maps recognized header names to lead fields.
var columnAliases = map[string]string{
	"company":      "company",
	"company name": "company",
	"website":      "website",
	"url":          "website",
	"industry":     "industry",
	"size":         "size",
	"company size": "size",
	"contact":      "contact_name",
	"contact name": "contact_name",
	"name":         "contact_name",
	"title":        "title",
	"job title":    "title",
	"email":        "email",
	"phone":        "phone",
	"linkedin":     "linkedin_url",
	"linkedin url": "linkedin_url",
}

func (im *Importer) importRows(ctx context.Context, header []string, rows [][]string) (*Result, error) {
	cols := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if field, ok := columnAliases[key]; ok {
			cols[field] = i
		}
	}
	if len(cols) == 0 {
		return nil, eris.New("leadimport: no recognized columns in header")
	}

	result := &Result{}
	for _, row := range rows {
		get := func(field string) string {
			i, ok := cols[field]
			if !ok || i >= len(row) {
				return ""
			}
			return norm.NFC.String(strings.TrimSpace(row[i]))
		}

		lead := model.Lead{
			Company:     get("company"),
			Website:     get("website"),
			Industry:    get("industry"),
			Size:        get("size"),
			ContactName: get("contact_name"),
			Title:       get("title"),
			Email:       NormalizeEmail(get("email")),
			Phone:       get("phone"),
			LinkedInURL: get("linkedin_url"),
		}

		if lead.Company == "" && lead.Website == "" && lead.Email == "" {
			result.Skipped++
			continue
		}

		if lead.Email != "" {
			existing, err := im.store.GetLeadByEmail(ctx, lead.Email)
			if err != nil {
				return nil, eris.Wrapf(err, "leadimport: look up %s", lead.Email)
			}
			if existing != nil {
				result.Skipped++
				continue
			}
		}

		created, err := im.store.CreateLead(ctx, lead)
		if err != nil {
			return nil, eris.Wrapf(err, "leadimport: create lead %s", lead.Company)
		}
		result.CreatedIDs = append(result.CreatedIDs, created.ID)
	}

	zap.L().Info("leadimport: import complete",
		zap.Int("created", len(result.CreatedIDs)),
		zap.Int("skipped", result.Skipped),
	)

	if len(result.CreatedIDs) == 0 {
		return result, nil
	}

	if len(result.CreatedIDs) > im.threshold {
		result.RequiresApproval = true
		zap.L().Info("leadimport: import exceeds auto-queue threshold, research needs approval",
			zap.Int("created", len(result.CreatedIDs)),
			zap.Int("threshold", im.threshold),
		)
		return result, nil
	}

	if im.queuer != nil {
		result.Handle = im.queuer.ProcessQueue(ctx, result.CreatedIDs, orchestrator.Options{})
	}

	return result, nil
}

// NormalizeEmail lowercases and trims an email address with full Unicode
// case folding so imported duplicates match regardless of input casing.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}
