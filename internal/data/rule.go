package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
	"github.com/devricklin/chat-forwarder/internal/biz/repo"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ruleRepo implements the rule store on sqlite
type ruleRepo struct {
	db *sql.DB
}

var ruleSchema = []string{
	`CREATE TABLE IF NOT EXISTS forward_rules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL DEFAULT '',
		source_chat_id INTEGER NOT NULL,
		target_chat_id TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		message_mode TEXT NOT NULL DEFAULT 'plain',
		preview_mode TEXT NOT NULL DEFAULT 'follow',
		original_link INTEGER NOT NULL DEFAULT 0,
		original_sender INTEGER NOT NULL DEFAULT 0,
		original_time INTEGER NOT NULL DEFAULT 0,
		max_media_size_mb INTEGER NOT NULL DEFAULT 0,
		media_type_filter INTEGER NOT NULL DEFAULT 0,
		media_extension_filter INTEGER NOT NULL DEFAULT 0,
		sync_enabled INTEGER NOT NULL DEFAULT 0,
		sync_domain TEXT NOT NULL DEFAULT '',
		sync_item TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_forward_rules_source ON forward_rules(source_chat_id)`,
	`CREATE TABLE IF NOT EXISTS keywords (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rule_id INTEGER NOT NULL REFERENCES forward_rules(id) ON DELETE CASCADE,
		keyword TEXT NOT NULL,
		is_regex INTEGER NOT NULL DEFAULT 0,
		is_blacklist INTEGER NOT NULL DEFAULT 0,
		UNIQUE(rule_id, keyword, is_blacklist)
	)`,
	`CREATE TABLE IF NOT EXISTS replace_rules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rule_id INTEGER NOT NULL REFERENCES forward_rules(id) ON DELETE CASCADE,
		pattern TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS media_types (
		rule_id INTEGER PRIMARY KEY REFERENCES forward_rules(id) ON DELETE CASCADE,
		photo INTEGER NOT NULL DEFAULT 0,
		document INTEGER NOT NULL DEFAULT 0,
		video INTEGER NOT NULL DEFAULT 0,
		audio INTEGER NOT NULL DEFAULT 0,
		voice INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS media_extensions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rule_id INTEGER NOT NULL REFERENCES forward_rules(id) ON DELETE CASCADE,
		extension TEXT NOT NULL,
		UNIQUE(rule_id, extension)
	)`,
}

// NewRuleRepo opens (and migrates) the rule database
func NewRuleRepo(dbPath string) (repo.RuleRepo, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	for _, stmt := range ruleSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &ruleRepo{db: db}, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

const ruleColumns = `id, name, source_chat_id, target_chat_id, enabled, message_mode, preview_mode,
	original_link, original_sender, original_time, max_media_size_mb, media_type_filter,
	media_extension_filter, sync_enabled, sync_domain, sync_item`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*domain.ForwardRule, error) {
	var r domain.ForwardRule
	var mode, preview, item string
	err := row.Scan(&r.ID, &r.Name, &r.SourceChatID, &r.TargetChatID, &r.Enabled, &mode, &preview,
		&r.OriginalLink, &r.OriginalSender, &r.OriginalTime, &r.MaxMediaSizeMB, &r.MediaTypeFilterOn,
		&r.MediaExtensionFilterOn, &r.SyncEnabled, &r.SyncDomain, &item)
	if err != nil {
		return nil, err
	}
	r.MessageMode = domain.MessageMode(mode)
	r.PreviewMode = domain.PreviewMode(preview)
	r.SyncItem = domain.SyncItem(item)
	return &r, nil
}

func (r *ruleRepo) listRules(ctx context.Context, where string, args ...any) ([]*domain.ForwardRule, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+ruleColumns+` FROM forward_rules WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []*domain.ForwardRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// GetRule gets a rule by ID
func (r *ruleRepo) GetRule(ctx context.Context, id int64) (*domain.ForwardRule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM forward_rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query rule: %w", err)
	}
	return rule, nil
}

// ListRules lists every rule
func (r *ruleRepo) ListRules(ctx context.Context) ([]*domain.ForwardRule, error) {
	return r.listRules(ctx, `1 = 1`)
}

// ListRulesBySource lists enabled rules for a source chat
func (r *ruleRepo) ListRulesBySource(ctx context.Context, chatID int64) ([]*domain.ForwardRule, error) {
	return r.listRules(ctx, `source_chat_id = ? AND enabled = 1`, chatID)
}

// ListSyncRules lists rules taking part in keyword sync
func (r *ruleRepo) ListSyncRules(ctx context.Context) ([]*domain.ForwardRule, error) {
	return r.listRules(ctx, `sync_enabled = 1 AND sync_domain != ''`)
}

// SaveRule inserts or updates a rule
func (r *ruleRepo) SaveRule(ctx context.Context, rule *domain.ForwardRule) error {
	args := []any{rule.Name, rule.SourceChatID, rule.TargetChatID, rule.Enabled, string(rule.MessageMode),
		string(rule.PreviewMode), rule.OriginalLink, rule.OriginalSender, rule.OriginalTime, rule.MaxMediaSizeMB,
		rule.MediaTypeFilterOn, rule.MediaExtensionFilterOn, rule.SyncEnabled, rule.SyncDomain, string(rule.SyncItem)}

	if rule.ID == 0 {
		result, err := r.db.ExecContext(ctx, `
			INSERT INTO forward_rules (name, source_chat_id, target_chat_id, enabled, message_mode, preview_mode,
				original_link, original_sender, original_time, max_media_size_mb, media_type_filter,
				media_extension_filter, sync_enabled, sync_domain, sync_item)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, args...)
		if err != nil {
			return fmt.Errorf("failed to insert rule: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read rule id: %w", err)
		}
		rule.ID = id
		return nil
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE forward_rules SET name = ?, source_chat_id = ?, target_chat_id = ?, enabled = ?, message_mode = ?,
			preview_mode = ?, original_link = ?, original_sender = ?, original_time = ?, max_media_size_mb = ?,
			media_type_filter = ?, media_extension_filter = ?, sync_enabled = ?, sync_domain = ?, sync_item = ?
		WHERE id = ?
	`, append(args, rule.ID)...)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ========== Keyword Operations ==========

func scanKeywords(rows *sql.Rows) ([]domain.Keyword, error) {
	var keywords []domain.Keyword
	for rows.Next() {
		var k domain.Keyword
		if err := rows.Scan(&k.ID, &k.RuleID, &k.Pattern, &k.IsRegex, &k.IsBlacklist); err != nil {
			return nil, fmt.Errorf("failed to scan keyword: %w", err)
		}
		keywords = append(keywords, k)
	}
	return keywords, rows.Err()
}

// ListKeywords lists every keyword of a rule
func (r *ruleRepo) ListKeywords(ctx context.Context, ruleID int64) ([]domain.Keyword, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, rule_id, keyword, is_regex, is_blacklist FROM keywords WHERE rule_id = ? ORDER BY id
	`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query keywords: %w", err)
	}
	defer rows.Close()
	return scanKeywords(rows)
}

// ListKeywordsByMode lists whitelist or blacklist keywords
func (r *ruleRepo) ListKeywordsByMode(ctx context.Context, ruleID int64, blacklist bool) ([]domain.Keyword, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, rule_id, keyword, is_regex, is_blacklist FROM keywords
		WHERE rule_id = ? AND is_blacklist = ? ORDER BY id
	`, ruleID, blacklist)
	if err != nil {
		return nil, fmt.Errorf("failed to query keywords: %w", err)
	}
	defer rows.Close()
	return scanKeywords(rows)
}

// AddKeyword adds one keyword
func (r *ruleRepo) AddKeyword(ctx context.Context, kw *domain.Keyword) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO keywords (rule_id, keyword, is_regex, is_blacklist) VALUES (?, ?, ?, ?)
	`, kw.RuleID, kw.Pattern, kw.IsRegex, kw.IsBlacklist)
	if isUniqueViolation(err) {
		return repo.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to add keyword: %w", err)
	}
	kw.ID, _ = result.LastInsertId()
	return nil
}

// DeleteKeyword deletes one keyword
func (r *ruleRepo) DeleteKeyword(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM keywords WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete keyword: %w", err)
	}
	return nil
}

// ReplaceKeywords swaps the keyword set of a rule atomically
func (r *ruleRepo) ReplaceKeywords(ctx context.Context, ruleID int64, keywords []domain.Keyword) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM keywords WHERE rule_id = ?`, ruleID); err != nil {
		return 0, fmt.Errorf("failed to clear keywords: %w", err)
	}

	inserted := 0
	for _, k := range keywords {
		// the same pattern may arrive as both literal and regex
		result, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO keywords (rule_id, keyword, is_regex, is_blacklist) VALUES (?, ?, ?, ?)
		`, ruleID, k.Pattern, k.IsRegex, k.IsBlacklist)
		if err != nil {
			return 0, fmt.Errorf("failed to insert keyword: %w", err)
		}
		n, _ := result.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit keywords: %w", err)
	}
	return inserted, nil
}

// ========== Replace Rule Operations ==========

// ListReplaceRules lists replace rules in insertion order
func (r *ruleRepo) ListReplaceRules(ctx context.Context, ruleID int64) ([]domain.ReplaceRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, rule_id, pattern, content FROM replace_rules WHERE rule_id = ? ORDER BY id
	`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query replace rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.ReplaceRule
	for rows.Next() {
		var rr domain.ReplaceRule
		if err := rows.Scan(&rr.ID, &rr.RuleID, &rr.Pattern, &rr.Content); err != nil {
			return nil, fmt.Errorf("failed to scan replace rule: %w", err)
		}
		rules = append(rules, rr)
	}
	return rules, rows.Err()
}

// AddReplaceRule appends a replace rule
func (r *ruleRepo) AddReplaceRule(ctx context.Context, rr *domain.ReplaceRule) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO replace_rules (rule_id, pattern, content) VALUES (?, ?, ?)
	`, rr.RuleID, rr.Pattern, rr.Content)
	if isUniqueViolation(err) {
		return repo.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to add replace rule: %w", err)
	}
	rr.ID, _ = result.LastInsertId()
	return nil
}

// DeleteReplaceRule deletes a replace rule
func (r *ruleRepo) DeleteReplaceRule(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM replace_rules WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete replace rule: %w", err)
	}
	return nil
}

// ========== Media Settings Operations ==========

// GetMediaTypes gets media type settings, creating the all-false row if missing
func (r *ruleRepo) GetMediaTypes(ctx context.Context, ruleID int64) (*domain.MediaTypeSettings, error) {
	if _, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO media_types (rule_id) VALUES (?)`, ruleID); err != nil {
		return nil, fmt.Errorf("failed to create media types: %w", err)
	}

	s := &domain.MediaTypeSettings{RuleID: ruleID}
	err := r.db.QueryRowContext(ctx, `
		SELECT photo, document, video, audio, voice FROM media_types WHERE rule_id = ?
	`, ruleID).Scan(&s.Photo, &s.Document, &s.Video, &s.Audio, &s.Voice)
	if err != nil {
		return nil, fmt.Errorf("failed to query media types: %w", err)
	}
	return s, nil
}

// SaveMediaTypes stores media type settings
func (r *ruleRepo) SaveMediaTypes(ctx context.Context, s *domain.MediaTypeSettings) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO media_types (rule_id, photo, document, video, audio, voice)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.RuleID, s.Photo, s.Document, s.Video, s.Audio, s.Voice)
	if err != nil {
		return fmt.Errorf("failed to save media types: %w", err)
	}
	return nil
}

// ListMediaExtensions lists allowed extensions
func (r *ruleRepo) ListMediaExtensions(ctx context.Context, ruleID int64) ([]domain.MediaExtension, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, rule_id, extension FROM media_extensions WHERE rule_id = ? ORDER BY id
	`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query media extensions: %w", err)
	}
	defer rows.Close()

	var exts []domain.MediaExtension
	for rows.Next() {
		var e domain.MediaExtension
		if err := rows.Scan(&e.ID, &e.RuleID, &e.Extension); err != nil {
			return nil, fmt.Errorf("failed to scan media extension: %w", err)
		}
		exts = append(exts, e)
	}
	return exts, rows.Err()
}

// AddMediaExtension adds an allowed extension
func (r *ruleRepo) AddMediaExtension(ctx context.Context, ext *domain.MediaExtension) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO media_extensions (rule_id, extension) VALUES (?, ?)
	`, ext.RuleID, ext.Extension)
	if isUniqueViolation(err) {
		return repo.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to add media extension: %w", err)
	}
	ext.ID, _ = result.LastInsertId()
	return nil
}

// DeleteMediaExtension deletes an extension of the rule
func (r *ruleRepo) DeleteMediaExtension(ctx context.Context, ruleID, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM media_extensions WHERE id = ? AND rule_id = ?`, id, ruleID)
	if err != nil {
		return fmt.Errorf("failed to delete media extension: %w", err)
	}
	return nil
}

// Close closes the database connection
func (r *ruleRepo) Close() error {
	return r.db.Close()
}
