package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-research/internal/model"
)

// pgPool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool pgPool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// the hot paths of the research orchestrator.
var preparedStatements = map[string]string{
	"get_lead":           leadSelect + ` WHERE id = $1`,
	"get_lead_by_email":  leadSelect + ` WHERE email = $1 AND email <> '' ORDER BY created_at ASC LIMIT 1`,
	"get_packet_by_lead": packetSelect + ` WHERE lead_id = $1 ORDER BY updated_at DESC LIMIT 1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
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
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_email ON leads(email) WHERE email <> '';

CREATE TABLE IF NOT EXISTS research_packets (
	id                      TEXT PRIMARY KEY,
	lead_id                 TEXT NOT NULL REFERENCES leads(id),
	company_intel           TEXT NOT NULL DEFAULT '',
	contact_intel           TEXT NOT NULL DEFAULT '',
	pain_signals            TEXT NOT NULL DEFAULT '',
	fit_analysis            TEXT NOT NULL DEFAULT '',
	talk_track              TEXT NOT NULL DEFAULT '',
	discovery_questions     JSONB NOT NULL DEFAULT '[]',
	objection_handles       JSONB NOT NULL DEFAULT '[]',
	fit_score               INTEGER NOT NULL DEFAULT 0,
	priority                TEXT NOT NULL DEFAULT '',
	discovered_phone        TEXT NOT NULL DEFAULT '',
	discovered_title        TEXT NOT NULL DEFAULT '',
	discovered_linkedin_url TEXT NOT NULL DEFAULT '',
	discovered_website      TEXT NOT NULL DEFAULT '',
	sources                 TEXT NOT NULL DEFAULT '',
	degraded                BOOLEAN NOT NULL DEFAULT false,
	verification            TEXT NOT NULL DEFAULT 'ai_generated',
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_research_packets_lead_id ON research_packets(lead_id);
`

const leadSelect = `SELECT id, company, website, industry, size, contact_name, title, email, phone, linkedin_url, fit_score, priority, status, created_at, updated_at FROM leads`

const packetSelect = `SELECT id, lead_id, company_intel, contact_intel, pain_signals, fit_analysis, talk_track, discovery_questions, objection_handles, fit_score, priority, discovered_phone, discovered_title, discovered_linkedin_url, discovered_website, sources, degraded, verification, created_at, updated_at FROM research_packets`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error) {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.Status == "" {
		lead.Status = model.LeadStatusNew
	}
	now := time.Now().UTC()
	lead.CreatedAt = now
	lead.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO leads (id, company, website, industry, size, contact_name, title, email, phone, linkedin_url, fit_score, priority, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		lead.ID, lead.Company, lead.Website, lead.Industry, lead.Size,
		lead.ContactName, lead.Title, lead.Email, lead.Phone, lead.LinkedInURL,
		lead.FitScore, string(lead.Priority), string(lead.Status), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert lead")
	}
	return &lead, nil
}

func scanLead(row pgx.Row) (*model.Lead, error) {
	var l model.Lead
	err := row.Scan(&l.ID, &l.Company, &l.Website, &l.Industry, &l.Size,
		&l.ContactName, &l.Title, &l.Email, &l.Phone, &l.LinkedInURL,
		&l.FitScore, &l.Priority, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	l, err := scanLead(s.pool.QueryRow(ctx, leadSelect+` WHERE id = $1`, id))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead %s", id)
	}
	return l, nil
}

func (s *PostgresStore) GetLeadByEmail(ctx context.Context, email string) (*model.Lead, error) {
	l, err := scanLead(s.pool.QueryRow(ctx,
		leadSelect+` WHERE email = $1 AND email <> '' ORDER BY created_at ASC LIMIT 1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get lead by email")
	}
	return l, nil
}

func (s *PostgresStore) UpdateLead(ctx context.Context, id string, update model.LeadUpdate) (*model.Lead, error) {
	set := []string{}
	args := []any{}
	argIdx := 1

	add := func(col string, val any) {
		set = append(set, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
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
	query += fmt.Sprintf(" WHERE id = $%d", argIdx)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: update lead %s", id)
	}
	if tag.RowsAffected() == 0 {
		return nil, eris.Errorf("lead not found: %s", id)
	}
	return s.GetLead(ctx, id)
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := leadSelect + ` WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		if err := rows.Scan(&l.ID, &l.Company, &l.Website, &l.Industry, &l.Size,
			&l.ContactName, &l.Title, &l.Email, &l.Phone, &l.LinkedInURL,
			&l.FitScore, &l.Priority, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func scanPacket(row pgx.Row) (*model.ResearchPacket, error) {
	var p model.ResearchPacket
	var questionsJSON, handlesJSON []byte
	err := row.Scan(&p.ID, &p.LeadID, &p.CompanyIntel, &p.ContactIntel, &p.PainSignals,
		&p.FitAnalysis, &p.TalkTrack, &questionsJSON, &handlesJSON, &p.FitScore,
		&p.Priority, &p.DiscoveredPhone, &p.DiscoveredTitle, &p.DiscoveredLinkedInURL,
		&p.DiscoveredWebsite, &p.Sources, &p.Degraded, &p.Verification,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questionsJSON, &p.DiscoveryQuestions); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal discovery questions")
	}
	if err := json.Unmarshal(handlesJSON, &p.ObjectionHandles); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal objection handles")
	}
	return &p, nil
}

func (s *PostgresStore) GetPacketByLead(ctx context.Context, leadID string) (*model.ResearchPacket, error) {
	p, err := scanPacket(s.pool.QueryRow(ctx,
		packetSelect+` WHERE lead_id = $1 ORDER BY updated_at DESC LIMIT 1`, leadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get packet for lead %s", leadID)
	}
	return p, nil
}

func (s *PostgresStore) CreatePacket(ctx context.Context, packet model.ResearchPacket) (*model.ResearchPacket, error) {
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
		return nil, eris.Wrap(err, "postgres: marshal discovery questions")
	}
	handlesJSON, err := json.Marshal(packet.ObjectionHandles)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal objection handles")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO research_packets (id, lead_id, company_intel, contact_intel, pain_signals, fit_analysis, talk_track, discovery_questions, objection_handles, fit_score, priority, discovered_phone, discovered_title, discovered_linkedin_url, discovered_website, sources, degraded, verification, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		packet.ID, packet.LeadID, packet.CompanyIntel, packet.ContactIntel, packet.PainSignals,
		packet.FitAnalysis, packet.TalkTrack, questionsJSON, handlesJSON, packet.FitScore,
		string(packet.Priority), packet.DiscoveredPhone, packet.DiscoveredTitle,
		packet.DiscoveredLinkedInURL, packet.DiscoveredWebsite, packet.Sources,
		packet.Degraded, string(packet.Verification), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert packet")
	}
	return &packet, nil
}

func (s *PostgresStore) UpdatePacket(ctx context.Context, id string, update model.PacketUpdate) (*model.ResearchPacket, error) {
	set := []string{}
	args := []any{}
	argIdx := 1

	add := func(col string, val any) {
		set = append(set, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
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
			return nil, eris.Wrap(err, "postgres: marshal discovery questions")
		}
		add("discovery_questions", questionsJSON)
	}
	if update.ObjectionHandles != nil {
		handlesJSON, err := json.Marshal(*update.ObjectionHandles)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal objection handles")
		}
		add("objection_handles", handlesJSON)
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
		p, err := scanPacket(s.pool.QueryRow(ctx, packetSelect+` WHERE id = $1`, id))
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: get packet %s", id)
		}
		return p, nil
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
	query += fmt.Sprintf(" WHERE id = $%d", argIdx)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: update packet %s", id)
	}
	if tag.RowsAffected() == 0 {
		return nil, eris.Errorf("packet not found: %s", id)
	}

	p, err := scanPacket(s.pool.QueryRow(ctx, packetSelect+` WHERE id = $1`, id))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get packet %s", id)
	}
	return p, nil
}
