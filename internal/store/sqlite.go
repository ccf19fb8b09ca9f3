package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lead-research/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id           TEXT PRIMARY KEY,
	company      TEXT NOT NULL DEFAULT '',
	website      TEXT NOT NULL DEFAULT '',
	industry     TEXT NOT NULL DEFAULT '',
	size         TEXT NOT NULL DEFAULT '',
	contact_name TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL DEFAULT '',
	phone        TEXT NOT NULL DEFAULT '',
	linkedin_url TEXT NOT NULL DEFAULT '',
	fit_score    INTEGER,
	priority     TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'new',
	created_at   TIMESTAMP NOT NULL,
	updated_at   TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_email ON leads(email);

CREATE TABLE IF NOT EXISTS research_packets (
	id                      TEXT PRIMARY KEY,
	lead_id                 TEXT NOT NULL REFERENCES leads(id),
	company_intel           TEXT NOT NULL DEFAULT '',
	contact_intel           TEXT NOT NULL DEFAULT '',
	pain_signals            TEXT NOT NULL DEFAULT '',
	fit_analysis            TEXT NOT NULL DEFAULT '',
	talk_track              TEXT NOT NULL DEFAULT '',
	discovery_questions     TEXT NOT NULL DEFAULT '[]',
	objection_handles       TEXT NOT NULL DEFAULT '[]',
	fit_score               INTEGER NOT NULL DEFAULT 0,
	priority                TEXT NOT NULL DEFAULT '',
	discovered_phone        TEXT NOT NULL DEFAULT '',
	discovered_title        TEXT NOT NULL DEFAULT '',
	discovered_linkedin_url TEXT NOT NULL DEFAULT '',
	discovered_website      TEXT NOT NULL DEFAULT '',
	sources                 TEXT NOT NULL DEFAULT '',
	degraded                INTEGER NOT NULL DEFAULT 0,
	verification            TEXT NOT NULL DEFAULT 'ai_generated',
	created_at              TIMESTAMP NOT NULL,
	updated_at              TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_research_packets_lead_id ON research_packets(lead_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return eris.Wrap(s.db.Close(), "sqlite: close")
}

func (s *SQLiteStore) CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error) {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.Status == "" {
		lead.Status = model.LeadStatusNew
	}
	now := time.Now().UTC()
	lead.CreatedAt = now
	lead.UpdatedAt = now

	var fitScore any
	if lead.FitScore != nil {
		fitScore = *lead.FitScore
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (id, company, website, industry, size, contact_name, title, email, phone, linkedin_url, fit_score, priority, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ID, lead.Company, lead.Website, lead.Industry, lead.Size,
		lead.ContactName, lead.Title, lead.Email, lead.Phone, lead.LinkedInURL,
		fitScore, string(lead.Priority), string(lead.Status), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert lead")
	}
	return &lead, nil
}

const sqliteLeadSelect = `SELECT id, company, website, industry, size, contact_name, title, email, phone, linkedin_url, fit_score, priority, status, created_at, updated_at FROM leads`

func scanSQLiteLead(row *sql.Row) (*model.Lead, error) {
	var l model.Lead
	var fitScore sql.NullInt64
	var priority, status string
	err := row.Scan(&l.ID, &l.Company, &l.Website, &l.Industry, &l.Size,
		&l.ContactName, &l.Title, &l.Email, &l.Phone, &l.LinkedInURL,
		&fitScore, &priority, &status, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if fitScore.Valid {
		v := int(fitScore.Int64)
		l.FitScore = &v
	}
	l.Priority = model.Priority(priority)
	l.Status = model.LeadStatus(status)
	return &l, nil
}

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	l, err := scanSQLiteLead(s.db.QueryRowContext(ctx, sqliteLeadSelect+` WHERE id = ?`, id))
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get lead %s", id)
	}
	return l, nil
}

func (s *SQLiteStore) GetLeadByEmail(ctx context.Context, email string) (*model.Lead, error) {
	l, err := scanSQLiteLead(s.db.QueryRowContext(ctx,
		sqliteLeadSelect+` WHERE email = ? AND email <> '' ORDER BY created_at ASC LIMIT 1`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get lead by email")
	}
	return l, nil
}

func (s *SQLiteStore) UpdateLead(ctx context.Context, id string, update model.LeadUpdate) (*model.Lead, error) {
	set := []string{}
	args := []any{}

	add := func(col string, val any) {
		set = append(set, col+" = ?")
		args = append(args, val)
	}

	if update.Company != nil {
		add("company", *update.Company)
	}
	if update.Website != nil {
		add("website", *update.Website)
	}
	if update.Industry != nil {
		add("industry", *update.Industry)
	}
	if update.Size != nil {
		add("size", *update.Size)
	}
	if update.ContactName != nil {
		add("contact_name", *update.ContactName)
	}
	if update.Title != nil {
		add("title", *update.Title)
	}
	if update.Phone != nil {
		add("phone", *update.Phone)
	}
	if update.LinkedInURL != nil {
		add("linkedin_url", *update.LinkedInURL)
	}
	if update.FitScore != nil {
		add("fit_score", *update.FitScore)
	}
	if update.Priority != nil {
		add("priority", string(*update.Priority))
	}
	if update.Status != nil {
		add("status", string(*update.Status))
	}

	if len(set) == 0 {
		return s.GetLead(ctx, id)
	}

	add("updated_at", time.Now().UTC())
	args = append(args, id)

	query := "UPDATE leads SET "
	for i, clause := range set {
		if i > 0 {
			query += ", "
		}
		query += clause
	}
	query += " WHERE id = ?"

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update lead %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return nil, eris.Errorf("lead not found: %s", id)
	}
	return s.GetLead(ctx, id)
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := sqliteLeadSelect + ` WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		var fitScore sql.NullInt64
		var priority, status string
		if err := rows.Scan(&l.ID, &l.Company, &l.Website, &l.Industry, &l.Size,
			&l.ContactName, &l.Title, &l.Email, &l.Phone, &l.LinkedInURL,
			&fitScore, &priority, &status, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		if fitScore.Valid {
			v := int(fitScore.Int64)
			l.FitScore = &v
		}
		l.Priority = model.Priority(priority)
		l.Status = model.LeadStatus(status)
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

const sqlitePacketSelect = `SELECT id, lead_id, company_intel, contact_intel, pain_signals, fit_analysis, talk_track, discovery_questions, objection_handles, fit_score, priority, discovered_phone, discovered_title, discovered_linkedin_url, discovered_website, sources, degraded, verification, created_at, updated_at FROM research_packets`

func scanSQLitePacket(row *sql.Row) (*model.ResearchPacket, error) {
	var p model.ResearchPacket
	var questionsJSON, handlesJSON string
	var priority, verification string
	err := row.Scan(&p.ID, &p.LeadID, &p.CompanyIntel, &p.ContactIntel, &p.PainSignals,
		&p.FitAnalysis, &p.TalkTrack, &questionsJSON, &handlesJSON, &p.FitScore,
		&priority, &p.DiscoveredPhone, &p.DiscoveredTitle, &p.DiscoveredLinkedInURL,
		&p.DiscoveredWebsite, &p.Sources, &p.Degraded, &verification,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(questionsJSON), &p.DiscoveryQuestions); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal discovery questions")
	}
	if err := json.Unmarshal([]byte(handlesJSON), &p.ObjectionHandles); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal objection handles")
	}
	p.Priority = model.Priority(priority)
	p.Verification = model.Verification(verification)
	return &p, nil
}

func (s *SQLiteStore) GetPacketByLead(ctx context.Context, leadID string) (*model.ResearchPacket, error) {
	p, err := scanSQLitePacket(s.db.QueryRowContext(ctx,
		sqlitePacketSelect+` WHERE lead_id = ? ORDER BY updated_at DESC LIMIT 1`, leadID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get packet for lead %s", leadID)
	}
	return p, nil
}

func (s *SQLiteStore) CreatePacket(ctx context.Context, packet model.ResearchPacket) (*model.ResearchPacket, error) {
	if packet.ID == "" {
		packet.ID = uuid.New().String()
	}
	if packet.Verification == "" {
		packet.Verification = model.VerificationAIGenerated
	}
	now := time.Now().UTC()
	packet.CreatedAt = now
	packet.UpdatedAt = now

	questionsJSON, err := json.Marshal(packet.DiscoveryQuestions)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal discovery questions")
	}
	handlesJSON, err := json.Marshal(packet.ObjectionHandles)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal objection handles")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO research_packets (id, lead_id, company_intel, contact_intel, pain_signals, fit_analysis, talk_track, discovery_questions, objection_handles, fit_score, priority, discovered_phone, discovered_title, discovered_linkedin_url, discovered_website, sources, degraded, verification, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		packet.ID, packet.LeadID, packet.CompanyIntel, packet.ContactIntel, packet.PainSignals,
		packet.FitAnalysis, packet.TalkTrack, string(questionsJSON), string(handlesJSON),
		packet.FitScore, string(packet.Priority), packet.DiscoveredPhone, packet.DiscoveredTitle,
		packet.DiscoveredLinkedInURL, packet.DiscoveredWebsite, packet.Sources,
		packet.Degraded, string(packet.Verification), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert packet")
	}
	return &packet, nil
}

func (s *SQLiteStore) UpdatePacket(ctx context.Context, id string, update model.PacketUpdate) (*model.ResearchPacket, error) {
	set := []string{}
	args := []any{}

	add := func(col string, val any) {
		set = append(set, col+" = ?")
		args = append(args, val)
	}

	if update.CompanyIntel != nil {
		add("company_intel", *update.CompanyIntel)
	}
	if update.ContactIntel != nil {
		add("contact_intel", *update.ContactIntel)
	}
	if update.PainSignals != nil {
		add("pain_signals", *update.PainSignals)
	}
	if update.FitAnalysis != nil {
		add("fit_analysis", *update.FitAnalysis)
	}
	if update.TalkTrack != nil {
		add("talk_track", *update.TalkTrack)
	}
	if update.DiscoveryQuestions != nil {
		questionsJSON, err := json.Marshal(*update.DiscoveryQuestions)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal discovery questions")
		}
		add("discovery_questions", string(questionsJSON))
	}
	if update.ObjectionHandles != nil {
		handlesJSON, err := json.Marshal(*update.ObjectionHandles)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal objection handles")
		}
		add("objection_handles", string(handlesJSON))
	}
	if update.FitScore != nil {
		add("fit_score", *update.FitScore)
	}
	if update.Priority != nil {
		add("priority", string(*update.Priority))
	}
	if update.DiscoveredPhone != nil {
		add("discovered_phone", *update.DiscoveredPhone)
	}
	if update.DiscoveredTitle != nil {
		add("discovered_title", *update.DiscoveredTitle)
	}
	if update.DiscoveredLinkedInURL != nil {
		add("discovered_linkedin_url", *update.DiscoveredLinkedInURL)
	}
	if update.DiscoveredWebsite != nil {
		add("discovered_website", *update.DiscoveredWebsite)
	}
	if update.Sources != nil {
		add("sources", *update.Sources)
	}
	if update.Degraded != nil {
		add("degraded", *update.Degraded)
	}
	if update.Verification != nil {
		add("verification", string(*update.Verification))
	}

	if len(set) == 0 {
		return s.getPacket(ctx, id)
	}

	add("updated_at", time.Now().UTC())
	args = append(args, id)

	query := "UPDATE research_packets SET "
	for i, clause := range set {
		if i > 0 {
			query += ", "
		}
		query += clause
	}
	query += " WHERE id = ?"

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update packet %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return nil, eris.Errorf("packet not found: %s", id)
	}
	return s.getPacket(ctx, id)
}

func (s *SQLiteStore) getPacket(ctx context.Context, id string) (*model.ResearchPacket, error) {
	p, err := scanSQLitePacket(s.db.QueryRowContext(ctx, sqlitePacketSelect+` WHERE id = ?`, id))
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get packet %s", id)
	}
	return p, nil
}
