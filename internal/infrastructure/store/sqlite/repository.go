// Package sqlite provides a SQLite implementation of the Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vigie-publique/vigie-core/internal/domain/entities"
	"github.com/vigie-publique/vigie-core/internal/domain/ports"
	"github.com/vigie-publique/vigie-core/internal/infrastructure/config"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// Repository implements ports.Store using SQLite.
type Repository struct {
	db   *sql.DB
	path string
}

// NewRepository creates a new SQLite repository.
func NewRepository(cfg config.SQLiteConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// Enable foreign keys for referential integrity
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &Repository{
		db:   db,
		path: cfg.Path,
	}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	-- Public figures with derived prominence and publication status
	CREATE TABLE IF NOT EXISTS figures (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		normalized_full_name TEXT NOT NULL,
		normalized_last_name TEXT NOT NULL,
		birth_date TIMESTAMP,
		death_date TIMESTAMP,
		votes INTEGER NOT NULL DEFAULT 0,
		media_mentions INTEGER NOT NULL DEFAULT 0,
		fact_check_mentions INTEGER NOT NULL DEFAULT 0,
		recent_media_mentions INTEGER NOT NULL DEFAULT 0,
		affair_count INTEGER NOT NULL DEFAULT 0,
		prominence_score INTEGER NOT NULL DEFAULT 0,
		publication_status TEXT NOT NULL DEFAULT 'draft',
		status_override INTEGER NOT NULL DEFAULT 0,
		has_photo INTEGER NOT NULL DEFAULT 0,
		has_bio INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(normalized_full_name)
	);
	CREATE INDEX IF NOT EXISTS idx_figures_status ON figures(publication_status);
	CREATE INDEX IF NOT EXISTS idx_figures_normalized ON figures(normalized_full_name);

	-- Political mandates held by figures
	CREATE TABLE IF NOT EXISTS mandates (
		id TEXT PRIMARY KEY,
		figure_id TEXT NOT NULL REFERENCES figures(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		current INTEGER NOT NULL DEFAULT 0,
		start_date TIMESTAMP,
		end_date TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_mandates_figure ON mandates(figure_id);

	-- Party role history
	CREATE TABLE IF NOT EXISTS party_roles (
		id TEXT PRIMARY KEY,
		figure_id TEXT NOT NULL REFERENCES figures(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		party TEXT,
		end_date TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_party_roles_figure ON party_roles(figure_id);

	-- Political organizations, for party mention matching
	CREATE TABLE IF NOT EXISTS parties (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		short_name TEXT,
		normalized_name TEXT NOT NULL,
		normalized_short_name TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(normalized_name)
	);

	-- Allegation records
	CREATE TABLE IF NOT EXISTS affairs (
		id TEXT PRIMARY KEY,
		figure_id TEXT NOT NULL REFERENCES figures(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		judicial_status TEXT NOT NULL DEFAULT '',
		offense_category TEXT NOT NULL DEFAULT '',
		involvement TEXT NOT NULL DEFAULT 'accused',
		publication_status TEXT NOT NULL DEFAULT 'draft',
		sentence_detail TEXT NOT NULL DEFAULT '',
		court_name TEXT NOT NULL DEFAULT '',
		facts_date TIMESTAMP,
		decision_date TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_affairs_figure ON affairs(figure_id);
	CREATE INDEX IF NOT EXISTS idx_affairs_status ON affairs(publication_status);

	-- Ordered sources backing affairs
	CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		affair_id TEXT NOT NULL REFERENCES affairs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		publisher TEXT NOT NULL DEFAULT '',
		date TIMESTAMP,
		type TEXT NOT NULL DEFAULT 'press',
		position INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_sources_affair ON sources(affair_id);

	-- Moderation reviews; applied_at NULL means pending
	CREATE TABLE IF NOT EXISTS reviews (
		id TEXT PRIMARY KEY,
		affair_id TEXT NOT NULL REFERENCES affairs(id) ON DELETE CASCADE,
		recommendation TEXT NOT NULL,
		confidence INTEGER NOT NULL DEFAULT 0,
		reasoning TEXT NOT NULL DEFAULT '',
		corrections TEXT,
		issues TEXT,
		duplicate_of_id TEXT,
		applied_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_reviews_affair ON reviews(affair_id);
	CREATE INDEX IF NOT EXISTS idx_reviews_pending ON reviews(affair_id, applied_at);

	-- Audit log of automated actions
	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		affair_id TEXT,
		figure_id TEXT,
		details TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_audit_log_affair ON audit_log(affair_id);
	CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);
	`

	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// SaveFigure saves or updates a figure and replaces its mandates and party
// roles, in one transaction.
func (r *Repository) SaveFigure(ctx context.Context, figure *entities.Figure) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO figures (id, full_name, last_name, normalized_full_name, normalized_last_name,
			birth_date, death_date, votes, media_mentions, fact_check_mentions,
			recent_media_mentions, affair_count, prominence_score, publication_status,
			status_override, has_photo, has_bio, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			last_name = excluded.last_name,
			normalized_full_name = excluded.normalized_full_name,
			normalized_last_name = excluded.normalized_last_name,
			birth_date = excluded.birth_date,
			death_date = excluded.death_date,
			votes = excluded.votes,
			media_mentions = excluded.media_mentions,
			fact_check_mentions = excluded.fact_check_mentions,
			recent_media_mentions = excluded.recent_media_mentions,
			affair_count = excluded.affair_count,
			prominence_score = excluded.prominence_score,
			publication_status = excluded.publication_status,
			status_override = excluded.status_override,
			has_photo = excluded.has_photo,
			has_bio = excluded.has_bio
	`
	_, err = tx.ExecContext(ctx, query,
		figure.ID,
		figure.FullName,
		figure.LastName,
		figure.NormalizedFullName,
		figure.NormalizedLastName,
		nullTime(figure.BirthDate),
		nullTime(figure.DeathDate),
		figure.Activity.Votes,
		figure.Activity.MediaMentions,
		figure.Activity.FactCheckMentions,
		figure.Activity.RecentMediaMentions,
		figure.Activity.AffairCount,
		figure.ProminenceScore,
		string(figure.PublicationStatus),
		figure.StatusOverride,
		figure.HasPhoto,
		figure.HasBio,
		figure.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving figure: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM mandates WHERE figure_id = ?`, figure.ID); err != nil {
		return fmt.Errorf("clearing mandates: %w", err)
	}
	for _, m := range figure.Mandates {
		id := m.ID
		if id == "" {
			id = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO mandates (id, figure_id, role, current, start_date, end_date) VALUES (?, ?, ?, ?, ?, ?)`,
			id, figure.ID, string(m.Role), m.Current, nullTime(m.Start), nullTime(m.End),
		)
		if err != nil {
			return fmt.Errorf("saving mandate: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM party_roles WHERE figure_id = ?`, figure.ID); err != nil {
		return fmt.Errorf("clearing party roles: %w", err)
	}
	for _, pr := range figure.PartyRoles {
		id := pr.ID
		if id == "" {
			id = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO party_roles (id, figure_id, role, party, end_date) VALUES (?, ?, ?, ?, ?)`,
			id, figure.ID, pr.Role, pr.Party, nullTime(pr.End),
		)
		if err != nil {
			return fmt.Errorf("saving party role: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing figure: %w", err)
	}
	return nil
}

const figureColumns = `id, full_name, last_name, normalized_full_name, normalized_last_name,
	birth_date, death_date, votes, media_mentions, fact_check_mentions,
	recent_media_mentions, affair_count, prominence_score, publication_status,
	status_override, has_photo, has_bio, created_at`

// FindFigureByID finds a figure by its ID, with mandates and party roles.
func (r *Repository) FindFigureByID(ctx context.Context, figureID string) (*entities.Figure, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+figureColumns+` FROM figures WHERE id = ?`, figureID)

	figure, err := scanFigure(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadFigureChildren(ctx, figure); err != nil {
		return nil, err
	}
	return figure, nil
}

// ListFigures lists figures ordered by name. A limit of 0 means no limit.
func (r *Repository) ListFigures(ctx context.Context, limit, offset int) ([]*entities.Figure, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+figureColumns+` FROM figures ORDER BY full_name ASC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("querying figures: %w", err)
	}
	defer rows.Close()

	var figures []*entities.Figure
	for rows.Next() {
		figure, err := scanFigure(rows)
		if err != nil {
			return nil, err
		}
		figures = append(figures, figure)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, figure := range figures {
		if err := r.loadFigureChildren(ctx, figure); err != nil {
			return nil, err
		}
	}
	return figures, nil
}

// CountFigures returns the total number of figures.
func (r *Repository) CountFigures(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM figures`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting figures: %w", err)
	}
	return count, nil
}

// UpdateFigureStatuses sets the publication status for all given figures in
// one transaction, with an audit entry.
func (r *Repository) UpdateFigureStatuses(ctx context.Context, figureIDs []string, status entities.FigureStatus) error {
	if len(figureIDs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := make([]string, len(figureIDs))
	args := make([]any, 0, len(figureIDs)+1)
	args = append(args, string(status))
	for i, id := range figureIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(`UPDATE figures SET publication_status = ? WHERE id IN (%s)`, strings.Join(placeholders, ","))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("updating figure statuses: %w", err)
	}

	if err := insertAudit(ctx, tx, entities.AuditActionStatusChange, "", "", map[string]any{
		"status": string(status),
		"count":  len(figureIDs),
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing status update: %w", err)
	}
	return nil
}

// UpdateProminenceScores writes recomputed scores in one transaction.
func (r *Repository) UpdateProminenceScores(ctx context.Context, scores map[string]int) error {
	if len(scores) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for figureID, score := range scores {
		if _, err := tx.ExecContext(ctx, `UPDATE figures SET prominence_score = ? WHERE id = ?`, score, figureID); err != nil {
			return fmt.Errorf("updating prominence for %s: %w", figureID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing prominence update: %w", err)
	}
	return nil
}

// SaveParty saves or updates a party.
func (r *Repository) SaveParty(ctx context.Context, party *entities.Party) error {
	query := `
		INSERT INTO parties (id, name, short_name, normalized_name, normalized_short_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(normalized_name) DO UPDATE SET
			name = excluded.name,
			short_name = excluded.short_name,
			normalized_short_name = excluded.normalized_short_name
	`
	_, err := r.db.ExecContext(ctx, query,
		party.ID,
		party.Name,
		party.ShortName,
		party.NormalizedName,
		party.NormalizedShortName,
		party.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving party: %w", err)
	}
	return nil
}

// ListParties lists all parties ordered by name.
func (r *Repository) ListParties(ctx context.Context) ([]*entities.Party, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, short_name, normalized_name, normalized_short_name, created_at FROM parties ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying parties: %w", err)
	}
	defer rows.Close()

	var parties []*entities.Party
	for rows.Next() {
		var p entities.Party
		var shortName, normalizedShort sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &shortName, &p.NormalizedName, &normalizedShort, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning party: %w", err)
		}
		p.ShortName = shortName.String
		p.NormalizedShortName = normalizedShort.String
		parties = append(parties, &p)
	}
	return parties, rows.Err()
}

// SaveAffair saves or updates an affair and replaces its sources, in one
// transaction. Reviews are persisted separately through SaveReview.
func (r *Repository) SaveAffair(ctx context.Context, affair *entities.Affair) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO affairs (id, figure_id, title, description, judicial_status, offense_category,
			involvement, publication_status, sentence_detail, court_name, facts_date, decision_date,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			figure_id = excluded.figure_id,
			title = excluded.title,
			description = excluded.description,
			judicial_status = excluded.judicial_status,
			offense_category = excluded.offense_category,
			involvement = excluded.involvement,
			publication_status = excluded.publication_status,
			sentence_detail = excluded.sentence_detail,
			court_name = excluded.court_name,
			facts_date = excluded.facts_date,
			decision_date = excluded.decision_date,
			updated_at = excluded.updated_at
	`
	_, err = tx.ExecContext(ctx, query,
		affair.ID,
		affair.FigureID,
		affair.Title,
		affair.Description,
		string(affair.JudicialStatus),
		affair.OffenseCategory,
		string(affair.Involvement),
		string(affair.PublicationStatus),
		affair.SentenceDetail,
		affair.CourtName,
		nullTime(affair.FactsDate),
		nullTime(affair.DecisionDate),
		affair.CreatedAt,
		affair.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving affair: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE affair_id = ?`, affair.ID); err != nil {
		return fmt.Errorf("clearing sources: %w", err)
	}
	for i, src := range affair.Sources {
		id := src.ID
		if id == "" {
			id = uuid.New().String()
		}
		createdAt := src.CreatedAt
		if createdAt.IsZero() {
			createdAt = timeNow()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sources (id, affair_id, url, title, publisher, date, type, position, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, affair.ID, src.URL, src.Title, src.Publisher, nullTime(src.Date), string(src.Type), i, createdAt,
		)
		if err != nil {
			return fmt.Errorf("saving source: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing affair: %w", err)
	}
	return nil
}

const affairColumns = `id, figure_id, title, description, judicial_status, offense_category,
	involvement, publication_status, sentence_detail, court_name, facts_date, decision_date,
	created_at, updated_at`

// FindAffairByID loads an affair with its sources and reviews.
func (r *Repository) FindAffairByID(ctx context.Context, affairID string) (*entities.Affair, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+affairColumns+` FROM affairs WHERE id = ?`, affairID)

	affair, err := scanAffair(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadAffairChildren(ctx, affair, true); err != nil {
		return nil, err
	}
	return affair, nil
}

// ListActiveAffairs returns draft and published affairs with sources loaded.
func (r *Repository) ListActiveAffairs(ctx context.Context, limit int) ([]*entities.Affair, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+affairColumns+` FROM affairs
		 WHERE publication_status IN ('draft', 'published')
		 ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying affairs: %w", err)
	}
	defer rows.Close()

	affairs, err := collectAffairs(rows)
	if err != nil {
		return nil, err
	}
	for _, affair := range affairs {
		if err := r.loadAffairChildren(ctx, affair, false); err != nil {
			return nil, err
		}
	}
	return affairs, nil
}

// ListDraftAffairsWithoutPendingReview returns draft affairs with no pending
// review, sources loaded. The NOT EXISTS filter is what makes re-running the
// classification phase idempotent.
func (r *Repository) ListDraftAffairsWithoutPendingReview(ctx context.Context, limit int) ([]*entities.Affair, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+affairColumns+` FROM affairs a
		 WHERE a.publication_status = 'draft'
		   AND NOT EXISTS (
			SELECT 1 FROM reviews rv WHERE rv.affair_id = a.id AND rv.applied_at IS NULL
		   )
		 ORDER BY a.created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying unreviewed drafts: %w", err)
	}
	defer rows.Close()

	affairs, err := collectAffairs(rows)
	if err != nil {
		return nil, err
	}
	for _, affair := range affairs {
		if err := r.loadAffairChildren(ctx, affair, false); err != nil {
			return nil, err
		}
	}
	return affairs, nil
}

// ListSiblingAffairTitles returns titles of the figure's other affairs.
func (r *Repository) ListSiblingAffairTitles(ctx context.Context, figureID, excludeAffairID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT title FROM affairs WHERE figure_id = ? AND id != ? ORDER BY created_at ASC`,
		figureID, excludeAffairID)
	if err != nil {
		return nil, fmt.Errorf("querying sibling titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scanning title: %w", err)
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

// MergeAffairs folds the loser's sources and reviews into the winner and
// deletes the loser, all in one transaction. Sources whose URL the winner
// already carries are dropped; the rest are appended in order.
func (r *Repository) MergeAffairs(ctx context.Context, winnerID, loserID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	winnerURLs, maxPosition, err := sourceURLSet(ctx, tx, winnerID)
	if err != nil {
		return err
	}

	var loserExists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM affairs WHERE id = ?`, loserID).Scan(&loserExists); err != nil {
		return fmt.Errorf("checking loser affair: %w", err)
	}
	if loserExists == 0 {
		return fmt.Errorf("affair not found: %s", loserID)
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, url FROM sources WHERE affair_id = ? ORDER BY position ASC`, loserID)
	if err != nil {
		return fmt.Errorf("querying loser sources: %w", err)
	}
	type loserSource struct{ id, url string }
	var loserSources []loserSource
	for rows.Next() {
		var s loserSource
		if err := rows.Scan(&s.id, &s.url); err != nil {
			rows.Close()
			return fmt.Errorf("scanning loser source: %w", err)
		}
		loserSources = append(loserSources, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	position := maxPosition + 1
	for _, src := range loserSources {
		if _, dup := winnerURLs[entities.NormalizeURL(src.url)]; dup {
			if _, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, src.id); err != nil {
				return fmt.Errorf("dropping duplicate source: %w", err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sources SET affair_id = ?, position = ? WHERE id = ?`,
			winnerID, position, src.id); err != nil {
			return fmt.Errorf("moving source: %w", err)
		}
		position++
	}

	// Re-point reviews, then drop duplicate flags that became self-referential.
	if _, err := tx.ExecContext(ctx, `UPDATE reviews SET affair_id = ? WHERE affair_id = ?`, winnerID, loserID); err != nil {
		return fmt.Errorf("moving reviews: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE reviews SET duplicate_of_id = ? WHERE duplicate_of_id = ?`, winnerID, loserID); err != nil {
		return fmt.Errorf("re-pointing duplicate references: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM reviews WHERE affair_id = ? AND affair_id = duplicate_of_id`,
		winnerID); err != nil {
		return fmt.Errorf("dropping self-referential reviews: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM affairs WHERE id = ?`, loserID); err != nil {
		return fmt.Errorf("deleting loser affair: %w", err)
	}

	if err := insertAudit(ctx, tx, entities.AuditActionMerge, winnerID, "", map[string]any{
		"merged_from":   loserID,
		"sources_moved": position - maxPosition - 1,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing merge: %w", err)
	}
	return nil
}

// SaveReview persists a moderation review.
func (r *Repository) SaveReview(ctx context.Context, review *entities.ModerationReview) error {
	corrections, err := marshalNullable(review.Corrections)
	if err != nil {
		return fmt.Errorf("marshaling corrections: %w", err)
	}
	issues, err := marshalNullable(review.Issues)
	if err != nil {
		return fmt.Errorf("marshaling issues: %w", err)
	}

	query := `
		INSERT INTO reviews (id, affair_id, recommendation, confidence, reasoning,
			corrections, issues, duplicate_of_id, applied_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			recommendation = excluded.recommendation,
			confidence = excluded.confidence,
			reasoning = excluded.reasoning,
			corrections = excluded.corrections,
			issues = excluded.issues,
			duplicate_of_id = excluded.duplicate_of_id,
			applied_at = excluded.applied_at
	`
	_, err = r.db.ExecContext(ctx, query,
		review.ID,
		review.AffairID,
		string(review.Recommendation),
		review.Confidence,
		review.Reasoning,
		corrections,
		issues,
		nullString(review.DuplicateOfID),
		nullTime(review.AppliedAt),
		review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving review: %w", err)
	}
	return nil
}

const reviewColumns = `id, affair_id, recommendation, confidence, reasoning,
	corrections, issues, duplicate_of_id, applied_at, created_at`

// FindReviewByID finds a review by its ID.
func (r *Repository) FindReviewByID(ctx context.Context, reviewID string) (*entities.ModerationReview, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = ?`, reviewID)
	review, err := scanReview(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return review, err
}

// PendingDuplicateReviewExists reports whether a pending duplicate review
// links the two affairs, checking both orientations explicitly.
func (r *Repository) PendingDuplicateReviewExists(ctx context.Context, affairID, duplicateOfID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews
		 WHERE applied_at IS NULL
		   AND ((affair_id = ? AND duplicate_of_id = ?) OR (affair_id = ? AND duplicate_of_id = ?))`,
		affairID, duplicateOfID, duplicateOfID, affairID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking pending duplicate review: %w", err)
	}
	return count > 0, nil
}

// ListPendingRejectReviews returns pending reviews recommending reject.
func (r *Repository) ListPendingRejectReviews(ctx context.Context, limit int) ([]*entities.ModerationReview, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews
		 WHERE applied_at IS NULL AND recommendation = 'reject'
		 ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying reject reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*entities.ModerationReview
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

// ApplyReview stamps the review applied and moves the affair to the given
// status in one transaction.
func (r *Repository) ApplyReview(ctx context.Context, reviewID string, status entities.AffairStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var affairID string
	err = tx.QueryRowContext(ctx,
		`SELECT affair_id FROM reviews WHERE id = ? AND applied_at IS NULL`, reviewID,
	).Scan(&affairID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("pending review not found: %s", reviewID)
	}
	if err != nil {
		return fmt.Errorf("loading review: %w", err)
	}

	now := timeNow()
	if _, err := tx.ExecContext(ctx, `UPDATE reviews SET applied_at = ? WHERE id = ?`, now, reviewID); err != nil {
		return fmt.Errorf("stamping review: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE affairs SET publication_status = ?, updated_at = ? WHERE id = ?`,
		string(status), now, affairID); err != nil {
		return fmt.Errorf("updating affair status: %w", err)
	}

	if err := insertAudit(ctx, tx, entities.AuditActionReviewApply, affairID, "", map[string]any{
		"review_id": reviewID,
		"status":    string(status),
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing review apply: %w", err)
	}
	return nil
}

// ApplyEnrichment performs the enrichment write in one transaction: field
// updates, appended sources, the review forced to needs-review, and the
// audit entry. A failure anywhere rolls the whole update back.
func (r *Repository) ApplyEnrichment(ctx context.Context, update ports.EnrichmentUpdate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	setClauses := []string{"updated_at = ?"}
	args := []any{timeNow()}
	addSet := func(column string, value any) {
		setClauses = append(setClauses, column+" = ?")
		args = append(args, value)
	}
	ch := update.Changes
	if ch.Title != nil {
		addSet("title", *ch.Title)
	}
	if ch.Description != nil {
		addSet("description", *ch.Description)
	}
	if ch.JudicialStatus != nil {
		addSet("judicial_status", *ch.JudicialStatus)
	}
	if ch.OffenseCategory != nil {
		addSet("offense_category", *ch.OffenseCategory)
	}
	if ch.SentenceDetail != nil {
		addSet("sentence_detail", *ch.SentenceDetail)
	}
	if ch.CourtName != nil {
		addSet("court_name", *ch.CourtName)
	}
	if ch.FactsDate != nil {
		addSet("facts_date", *ch.FactsDate)
	}
	if ch.DecisionDate != nil {
		addSet("decision_date", *ch.DecisionDate)
	}

	query := fmt.Sprintf(`UPDATE affairs SET %s WHERE id = ?`, strings.Join(setClauses, ", "))
	args = append(args, update.AffairID)
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating affair: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("affair not found: %s", update.AffairID)
	}

	for _, src := range update.NewSources {
		id := src.ID
		if id == "" {
			id = uuid.New().String()
		}
		createdAt := src.CreatedAt
		if createdAt.IsZero() {
			createdAt = timeNow()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sources (id, affair_id, url, title, publisher, date, type, position, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, update.AffairID, src.URL, src.Title, src.Publisher, nullTime(src.Date), string(src.Type), src.Position, createdAt,
		)
		if err != nil {
			return fmt.Errorf("inserting source: %w", err)
		}
	}

	// The enriched record still needs a human look: never publish.
	if _, err := tx.ExecContext(ctx,
		`UPDATE reviews SET recommendation = ?, reasoning = ? WHERE id = ? AND applied_at IS NULL`,
		string(entities.RecommendNeedsReview), update.Reasoning, update.ReviewID,
	); err != nil {
		return fmt.Errorf("upgrading review: %w", err)
	}

	if err := insertAudit(ctx, tx, entities.AuditActionEnrichment, update.AffairID, "", update.Details); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing enrichment: %w", err)
	}
	return nil
}

// LogAction appends an audit entry.
func (r *Repository) LogAction(ctx context.Context, action, affairID, figureID string, details map[string]any) error {
	var detailsJSON sql.NullString
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshaling details: %w", err)
		}
		detailsJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (action, affair_id, figure_id, details) VALUES (?, ?, ?, ?)`,
		action, nullString(affairID), nullString(figureID), detailsJSON)
	if err != nil {
		return fmt.Errorf("logging action: %w", err)
	}
	return nil
}

// FindAuditLog returns audit entries for an affair, newest first.
func (r *Repository) FindAuditLog(ctx context.Context, affairID string) ([]entities.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, action, affair_id, figure_id, details, created_at
		 FROM audit_log WHERE affair_id = ? ORDER BY created_at DESC`, affairID)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var entries []entities.AuditEntry
	for rows.Next() {
		var entry entities.AuditEntry
		var affair, figure, details sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Action, &affair, &figure, &details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		entry.AffairID = affair.String
		entry.FigureID = figure.String
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &entry.Details); err != nil {
				return nil, fmt.Errorf("unmarshaling details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows for the shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanFigure(s scanner) (*entities.Figure, error) {
	var f entities.Figure
	var birth, death sql.NullTime
	var status string
	err := s.Scan(
		&f.ID,
		&f.FullName,
		&f.LastName,
		&f.NormalizedFullName,
		&f.NormalizedLastName,
		&birth,
		&death,
		&f.Activity.Votes,
		&f.Activity.MediaMentions,
		&f.Activity.FactCheckMentions,
		&f.Activity.RecentMediaMentions,
		&f.Activity.AffairCount,
		&f.ProminenceScore,
		&status,
		&f.StatusOverride,
		&f.HasPhoto,
		&f.HasBio,
		&f.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning figure: %w", err)
	}
	f.PublicationStatus = entities.FigureStatus(status)
	f.BirthDate = timePtr(birth)
	f.DeathDate = timePtr(death)
	return &f, nil
}

func (r *Repository) loadFigureChildren(ctx context.Context, figure *entities.Figure) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, role, current, start_date, end_date FROM mandates WHERE figure_id = ?`, figure.ID)
	if err != nil {
		return fmt.Errorf("querying mandates: %w", err)
	}
	for rows.Next() {
		var m entities.Mandate
		var role string
		var start, end sql.NullTime
		if err := rows.Scan(&m.ID, &role, &m.Current, &start, &end); err != nil {
			rows.Close()
			return fmt.Errorf("scanning mandate: %w", err)
		}
		m.Role = entities.MandateRole(role)
		m.Start = timePtr(start)
		m.End = timePtr(end)
		figure.Mandates = append(figure.Mandates, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT id, role, party, end_date FROM party_roles WHERE figure_id = ?`, figure.ID)
	if err != nil {
		return fmt.Errorf("querying party roles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pr entities.PartyRoleHistory
		var party sql.NullString
		var end sql.NullTime
		if err := rows.Scan(&pr.ID, &pr.Role, &party, &end); err != nil {
			return fmt.Errorf("scanning party role: %w", err)
		}
		pr.Party = party.String
		pr.End = timePtr(end)
		figure.PartyRoles = append(figure.PartyRoles, pr)
	}
	return rows.Err()
}

func scanAffair(s scanner) (*entities.Affair, error) {
	var a entities.Affair
	var judicial, involvement, status string
	var facts, decision sql.NullTime
	err := s.Scan(
		&a.ID,
		&a.FigureID,
		&a.Title,
		&a.Description,
		&judicial,
		&a.OffenseCategory,
		&involvement,
		&status,
		&a.SentenceDetail,
		&a.CourtName,
		&facts,
		&decision,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning affair: %w", err)
	}
	a.JudicialStatus = entities.JudicialStatus(judicial)
	a.Involvement = entities.Involvement(involvement)
	a.PublicationStatus = entities.AffairStatus(status)
	a.FactsDate = timePtr(facts)
	a.DecisionDate = timePtr(decision)
	return &a, nil
}

func collectAffairs(rows *sql.Rows) ([]*entities.Affair, error) {
	var affairs []*entities.Affair
	for rows.Next() {
		affair, err := scanAffair(rows)
		if err != nil {
			return nil, err
		}
		affairs = append(affairs, affair)
	}
	return affairs, rows.Err()
}

// loadAffairChildren loads sources, and reviews when withReviews is set.
func (r *Repository) loadAffairChildren(ctx context.Context, affair *entities.Affair, withReviews bool) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, affair_id, url, title, publisher, date, type, position, created_at
		 FROM sources WHERE affair_id = ? ORDER BY position ASC`, affair.ID)
	if err != nil {
		return fmt.Errorf("querying sources: %w", err)
	}
	for rows.Next() {
		var src entities.Source
		var date sql.NullTime
		var srcType string
		if err := rows.Scan(&src.ID, &src.AffairID, &src.URL, &src.Title, &src.Publisher, &date, &srcType, &src.Position, &src.CreatedAt); err != nil {
			rows.Close()
			return fmt.Errorf("scanning source: %w", err)
		}
		src.Date = timePtr(date)
		src.Type = entities.SourceType(srcType)
		affair.Sources = append(affair.Sources, src)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if !withReviews {
		return nil
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE affair_id = ? ORDER BY created_at ASC`, affair.ID)
	if err != nil {
		return fmt.Errorf("querying reviews: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return err
		}
		affair.Reviews = append(affair.Reviews, *review)
	}
	return rows.Err()
}

func scanReview(s scanner) (*entities.ModerationReview, error) {
	var rv entities.ModerationReview
	var recommendation string
	var corrections, issues, duplicateOf sql.NullString
	var appliedAt sql.NullTime
	err := s.Scan(
		&rv.ID,
		&rv.AffairID,
		&recommendation,
		&rv.Confidence,
		&rv.Reasoning,
		&corrections,
		&issues,
		&duplicateOf,
		&appliedAt,
		&rv.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning review: %w", err)
	}
	rv.Recommendation = entities.Recommendation(recommendation)
	rv.DuplicateOfID = duplicateOf.String
	rv.AppliedAt = timePtr(appliedAt)
	if corrections.Valid && corrections.String != "" {
		if err := json.Unmarshal([]byte(corrections.String), &rv.Corrections); err != nil {
			return nil, fmt.Errorf("unmarshaling corrections: %w", err)
		}
	}
	if issues.Valid && issues.String != "" {
		if err := json.Unmarshal([]byte(issues.String), &rv.Issues); err != nil {
			return nil, fmt.Errorf("unmarshaling issues: %w", err)
		}
	}
	return &rv, nil
}

// marshalNullable marshals v to JSON unless it is the zero value.
func marshalNullable(v any) (sql.NullString, error) {
	switch value := v.(type) {
	case *entities.AffairCorrections:
		if value.Empty() {
			return sql.NullString{}, nil
		}
	case []entities.ReviewIssue:
		if len(value) == 0 {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// sourceURLSet returns the affair's normalized URL set and max position.
func sourceURLSet(ctx context.Context, tx *sql.Tx, affairID string) (map[string]struct{}, int, error) {
	rows, err := tx.QueryContext(ctx, `SELECT url, position FROM sources WHERE affair_id = ?`, affairID)
	if err != nil {
		return nil, 0, fmt.Errorf("querying winner sources: %w", err)
	}
	defer rows.Close()

	urls := make(map[string]struct{})
	maxPosition := -1
	for rows.Next() {
		var url string
		var position int
		if err := rows.Scan(&url, &position); err != nil {
			return nil, 0, fmt.Errorf("scanning winner source: %w", err)
		}
		urls[entities.NormalizeURL(url)] = struct{}{}
		if position > maxPosition {
			maxPosition = position
		}
	}
	return urls, maxPosition, rows.Err()
}

func insertAudit(ctx context.Context, tx *sql.Tx, action, affairID, figureID string, details map[string]any) error {
	var detailsJSON sql.NullString
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshaling audit details: %w", err)
		}
		detailsJSON = sql.NullString{String: string(data), Valid: true}
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO audit_log (action, affair_id, figure_id, details) VALUES (?, ?, ?, ?)`,
		action, nullString(affairID), nullString(figureID), detailsJSON)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	value := t.Time
	return &value
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
