package repo

import (
	"context"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
)

// RuleRepo is the rule store interface.
// The pipeline only reads from it; rule management and the sync protocol write.
type RuleRepo interface {
	// GetRule gets a rule by ID, ErrNotFound when absent
	GetRule(ctx context.Context, id int64) (*domain.ForwardRule, error)

	// ListRules lists every rule
	ListRules(ctx context.Context) ([]*domain.ForwardRule, error)

	// ListRulesBySource lists enabled rules for a source chat
	ListRulesBySource(ctx context.Context, chatID int64) ([]*domain.ForwardRule, error)

	// ListSyncRules lists rules with sync enabled and a domain configured
	ListSyncRules(ctx context.Context) ([]*domain.ForwardRule, error)

	// SaveRule inserts a rule when ID is 0, otherwise updates it
	SaveRule(ctx context.Context, rule *domain.ForwardRule) error

	// ListKeywords lists all keywords of a rule in insertion order
	ListKeywords(ctx context.Context, ruleID int64) ([]domain.Keyword, error)

	// ListKeywordsByMode lists the whitelist or blacklist keywords of a rule
	ListKeywordsByMode(ctx context.Context, ruleID int64, blacklist bool) ([]domain.Keyword, error)

	// AddKeyword adds a keyword, ErrDuplicate on (rule, pattern, blacklist) conflict
	AddKeyword(ctx context.Context, kw *domain.Keyword) error

	// DeleteKeyword deletes a keyword by ID
	DeleteKeyword(ctx context.Context, id int64) error

	// ReplaceKeywords clears every keyword of a rule and inserts the given ones in one transaction.
	// Returns the number of inserted rows.
	ReplaceKeywords(ctx context.Context, ruleID int64, keywords []domain.Keyword) (int, error)

	// ListReplaceRules lists replace rules in application order
	ListReplaceRules(ctx context.Context, ruleID int64) ([]domain.ReplaceRule, error)

	// AddReplaceRule appends a replace rule
	AddReplaceRule(ctx context.Context, rr *domain.ReplaceRule) error

	// DeleteReplaceRule deletes a replace rule by ID
	DeleteReplaceRule(ctx context.Context, id int64) error

	// GetMediaTypes gets the media type settings, creating the default row on first read
	GetMediaTypes(ctx context.Context, ruleID int64) (*domain.MediaTypeSettings, error)

	// SaveMediaTypes stores the media type settings
	SaveMediaTypes(ctx context.Context, settings *domain.MediaTypeSettings) error

	// ListMediaExtensions lists the allowed extensions of a rule
	ListMediaExtensions(ctx context.Context, ruleID int64) ([]domain.MediaExtension, error)

	// AddMediaExtension adds an extension, ErrDuplicate when already present
	AddMediaExtension(ctx context.Context, ext *domain.MediaExtension) error

	// DeleteMediaExtension deletes an extension by ID, scoped to the rule
	DeleteMediaExtension(ctx context.Context, ruleID, id int64) error

	// Close closes the store
	Close() error
}
