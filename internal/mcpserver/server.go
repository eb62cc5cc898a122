package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
	"github.com/devricklin/chat-forwarder/internal/biz/usecase"
)

// Server exposes forwarding rule management as MCP tools
type Server struct {
	server *mcp.Server
	rules  *usecase.RuleUsecase
	sync   *usecase.SyncUsecase
	log    *zap.Logger
}

// NewServer creates the MCP server and registers its tools
func NewServer(rules *usecase.RuleUsecase, syncUC *usecase.SyncUsecase, log *zap.Logger) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "forwarder-tools",
			Version: "v1.0.0",
		}, nil),
		rules: rules,
		sync:  syncUC,
		log:   log.Named("mcp"),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "forwarder_list_rules",
		Description: "List forwarding rules with their source and target chats.",
	}, s.handleListRules)

	// Keyword management tools
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "forwarder_list_keywords",
		Description: "List the keywords of a rule. Indexes are 1-based and used for deletion.",
	}, s.handleListKeywords)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "forwarder_add_keywords",
		Description: "Add whitelist or blacklist keywords to a rule. Existing keywords are counted as duplicates.",
	}, s.handleAddKeywords)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "forwarder_delete_keywords",
		Description: "Delete keywords of a rule by their 1-based index from forwarder_list_keywords.",
	}, s.handleDeleteKeywords)

	// Replace rule tools
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "forwarder_add_replace_rule",
		Description: "Add a text replacement to a rule. The pattern is a regular expression, an empty content deletes matches.",
	}, s.handleAddReplaceRule)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "forwarder_list_replace_rules",
		Description: "List the replacements of a rule in application order.",
	}, s.handleListReplaceRules)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "forwarder_delete_replace_rules",
		Description: "Delete replacements of a rule by their 1-based index.",
	}, s.handleDeleteReplaceRules)

	// Media filter tools
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "forwarder_toggle_media_type",
		Description: "Toggle blocking of a media type (photo, document, video, audio, voice) for a rule.",
	}, s.handleToggleMediaType)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "forwarder_add_media_extensions",
		Description: "Allow file extensions for a rule. A leading dot is ignored.",
	}, s.handleAddMediaExtensions)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "forwarder_sync_push",
		Description: "Push the keywords of every sync-enabled rule to the configuration service.",
	}, s.handleSyncPush)
}

// Run serves the tools over stdio until ctx is done
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("serving tools over stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// ============ Rule Tools ============

// ListRulesInput is the input for forwarder_list_rules
type ListRulesInput struct{}

// RuleInfo is one rule in a listing
type RuleInfo struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	SourceChat int64  `json:"source_chat"`
	TargetChat string `json:"target_chat"`
	Enabled    bool   `json:"enabled"`
	SyncDomain string `json:"sync_domain,omitempty"`
}

// ListRulesOutput is the output for forwarder_list_rules
type ListRulesOutput struct {
	Rules []RuleInfo `json:"rules"`
}

func (s *Server) handleListRules(ctx context.Context, req *mcp.CallToolRequest, input ListRulesInput) (*mcp.CallToolResult, ListRulesOutput, error) {
	rules, err := s.rules.ListRules(ctx)
	if err != nil {
		return nil, ListRulesOutput{}, err
	}
	out := ListRulesOutput{Rules: []RuleInfo{}}
	for _, r := range rules {
		info := RuleInfo{
			ID:         r.ID,
			Name:       r.Name,
			SourceChat: r.SourceChatID,
			TargetChat: r.TargetChatID,
			Enabled:    r.Enabled,
		}
		if r.SyncEnabled {
			info.SyncDomain = r.SyncDomain
		}
		out.Rules = append(out.Rules, info)
	}
	return nil, out, nil
}

// ============ Keyword Tools ============

// RuleInput selects a rule
type RuleInput struct {
	RuleID int64 `json:"rule_id" jsonschema:"the forwarding rule id"`
}

// KeywordInfo is one keyword in a listing
type KeywordInfo struct {
	Index     int    `json:"index"`
	Pattern   string `json:"pattern"`
	Regex     bool   `json:"regex"`
	Blacklist bool   `json:"blacklist"`
}

// ListKeywordsOutput is the output for forwarder_list_keywords
type ListKeywordsOutput struct {
	Keywords []KeywordInfo `json:"keywords"`
}

func (s *Server) handleListKeywords(ctx context.Context, req *mcp.CallToolRequest, input RuleInput) (*mcp.CallToolResult, ListKeywordsOutput, error) {
	keywords, err := s.rules.ListKeywords(ctx, input.RuleID)
	if err != nil {
		return nil, ListKeywordsOutput{}, err
	}
	out := ListKeywordsOutput{Keywords: []KeywordInfo{}}
	for i, k := range keywords {
		out.Keywords = append(out.Keywords, KeywordInfo{
			Index:     i + 1,
			Pattern:   k.Pattern,
			Regex:     k.IsRegex,
			Blacklist: k.IsBlacklist,
		})
	}
	return nil, out, nil
}

// AddKeywordsInput is the input for forwarder_add_keywords
type AddKeywordsInput struct {
	RuleID    int64    `json:"rule_id" jsonschema:"the forwarding rule id"`
	Keywords  []string `json:"keywords" jsonschema:"keywords or regular expressions to add"`
	Regex     bool     `json:"regex,omitempty" jsonschema:"treat keywords as regular expressions"`
	Blacklist bool     `json:"blacklist,omitempty" jsonschema:"add to the blacklist instead of the whitelist"`
}

// CountOutput reports how many items were added and how many already existed
type CountOutput struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
}

func (s *Server) handleAddKeywords(ctx context.Context, req *mcp.CallToolRequest, input AddKeywordsInput) (*mcp.CallToolResult, CountOutput, error) {
	if len(input.Keywords) == 0 {
		return nil, CountOutput{}, fmt.Errorf("keywords are required")
	}
	added, dup, err := s.rules.AddKeywords(ctx, input.RuleID, input.Keywords, input.Regex, input.Blacklist)
	if err != nil {
		return nil, CountOutput{}, err
	}
	s.log.Info("keywords added", zap.Int64("rule_id", input.RuleID), zap.Int("added", added), zap.Int("duplicates", dup))
	return nil, CountOutput{Added: added, Duplicates: dup}, nil
}

// DeleteInput selects items of a rule by 1-based index
type DeleteInput struct {
	RuleID  int64 `json:"rule_id" jsonschema:"the forwarding rule id"`
	Indexes []int `json:"indexes" jsonschema:"1-based indexes from the matching list tool"`
}

// DeleteOutput reports how many items were deleted
type DeleteOutput struct {
	Deleted int `json:"deleted"`
}

func (s *Server) handleDeleteKeywords(ctx context.Context, req *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, DeleteOutput, error) {
	n, err := s.rules.DeleteKeywords(ctx, input.RuleID, input.Indexes)
	if err != nil {
		return nil, DeleteOutput{}, err
	}
	return nil, DeleteOutput{Deleted: n}, nil
}

// ============ Replace Tools ============

// AddReplaceRuleInput is the input for forwarder_add_replace_rule
type AddReplaceRuleInput struct {
	RuleID  int64  `json:"rule_id" jsonschema:"the forwarding rule id"`
	Pattern string `json:"pattern" jsonschema:"regular expression to replace"`
	Content string `json:"content,omitempty" jsonschema:"replacement text, empty deletes the match"`
}

// ReplaceRuleInfo is one replacement in a listing
type ReplaceRuleInfo struct {
	Index   int    `json:"index"`
	Pattern string `json:"pattern"`
	Content string `json:"content"`
}

// AddReplaceRuleOutput is the output for forwarder_add_replace_rule
type AddReplaceRuleOutput struct {
	ID int64 `json:"id"`
}

func (s *Server) handleAddReplaceRule(ctx context.Context, req *mcp.CallToolRequest, input AddReplaceRuleInput) (*mcp.CallToolResult, AddReplaceRuleOutput, error) {
	rr, err := s.rules.AddReplaceRule(ctx, input.RuleID, input.Pattern, input.Content)
	if err != nil {
		return nil, AddReplaceRuleOutput{}, err
	}
	return nil, AddReplaceRuleOutput{ID: rr.ID}, nil
}

// ListReplaceRulesOutput is the output for forwarder_list_replace_rules
type ListReplaceRulesOutput struct {
	Rules []ReplaceRuleInfo `json:"rules"`
}

func (s *Server) handleListReplaceRules(ctx context.Context, req *mcp.CallToolRequest, input RuleInput) (*mcp.CallToolResult, ListReplaceRulesOutput, error) {
	rules, err := s.rules.ListReplaceRules(ctx, input.RuleID)
	if err != nil {
		return nil, ListReplaceRulesOutput{}, err
	}
	out := ListReplaceRulesOutput{Rules: []ReplaceRuleInfo{}}
	for i, rr := range rules {
		out.Rules = append(out.Rules, ReplaceRuleInfo{Index: i + 1, Pattern: rr.Pattern, Content: rr.Content})
	}
	return nil, out, nil
}

func (s *Server) handleDeleteReplaceRules(ctx context.Context, req *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, DeleteOutput, error) {
	n, err := s.rules.DeleteReplaceRules(ctx, input.RuleID, input.Indexes)
	if err != nil {
		return nil, DeleteOutput{}, err
	}
	return nil, DeleteOutput{Deleted: n}, nil
}

// ============ Media Tools ============

// ToggleMediaTypeInput is the input for forwarder_toggle_media_type
type ToggleMediaTypeInput struct {
	RuleID int64  `json:"rule_id" jsonschema:"the forwarding rule id"`
	Type   string `json:"type" jsonschema:"one of photo, document, video, audio, voice"`
}

// ToggleMediaTypeOutput reports the new state of the media type
type ToggleMediaTypeOutput struct {
	Type    string `json:"type"`
	Blocked bool   `json:"blocked"`
}

func (s *Server) handleToggleMediaType(ctx context.Context, req *mcp.CallToolRequest, input ToggleMediaTypeInput) (*mcp.CallToolResult, ToggleMediaTypeOutput, error) {
	blocked, err := s.rules.ToggleMediaType(ctx, input.RuleID, domain.MediaKind(input.Type))
	if err != nil {
		return nil, ToggleMediaTypeOutput{}, err
	}
	return nil, ToggleMediaTypeOutput{Type: input.Type, Blocked: blocked}, nil
}

// AddMediaExtensionsInput is the input for forwarder_add_media_extensions
type AddMediaExtensionsInput struct {
	RuleID     int64    `json:"rule_id" jsonschema:"the forwarding rule id"`
	Extensions []string `json:"extensions" jsonschema:"file extensions such as pdf or .zip"`
}

func (s *Server) handleAddMediaExtensions(ctx context.Context, req *mcp.CallToolRequest, input AddMediaExtensionsInput) (*mcp.CallToolResult, CountOutput, error) {
	added, dup, err := s.rules.AddMediaExtensions(ctx, input.RuleID, input.Extensions)
	if err != nil {
		return nil, CountOutput{}, err
	}
	return nil, CountOutput{Added: added, Duplicates: dup}, nil
}

// ============ Sync Tools ============

// SyncPushInput is the input for forwarder_sync_push
type SyncPushInput struct{}

// SyncPushOutput is the output for forwarder_sync_push
type SyncPushOutput struct {
	Success bool `json:"success"`
}

func (s *Server) handleSyncPush(ctx context.Context, req *mcp.CallToolRequest, input SyncPushInput) (*mcp.CallToolResult, SyncPushOutput, error) {
	if err := s.sync.PushAll(ctx); err != nil {
		return nil, SyncPushOutput{}, err
	}
	return nil, SyncPushOutput{Success: true}, nil
}
