package conf

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
	"github.com/devricklin/chat-forwarder/internal/biz/usecase"
)

// RulesFile is the YAML rule seed
type RulesFile struct {
	Rules []RuleSeed `yaml:"rules"`
}

// RuleSeed describes one forwarding rule and its settings
type RuleSeed struct {
	Name           string `yaml:"name"`
	SourceChatID   int64  `yaml:"source_chat_id"`
	TargetChatID   string `yaml:"target_chat_id"`
	Enabled        *bool  `yaml:"enabled"`
	MessageMode    string `yaml:"message_mode"`
	PreviewMode    string `yaml:"preview_mode"`
	OriginalLink   bool   `yaml:"original_link"`
	OriginalSender bool   `yaml:"original_sender"`
	OriginalTime   bool   `yaml:"original_time"`
	MaxMediaSizeMB int    `yaml:"max_media_size_mb"`

	BlockedMediaTypes []string `yaml:"blocked_media_types"`
	MediaExtensions   []string `yaml:"media_extensions"`

	Sync     SyncSeed      `yaml:"sync"`
	Keywords []KeywordSeed `yaml:"keywords"`
	Replace  []ReplaceSeed `yaml:"replace"`
}

// SyncSeed is the keyword sync binding of a rule
type SyncSeed struct {
	Enabled bool   `yaml:"enabled"`
	Domain  string `yaml:"domain"`
	Item    string `yaml:"item"`
}

// KeywordSeed is one keyword of a rule
type KeywordSeed struct {
	Pattern   string `yaml:"pattern"`
	Regex     bool   `yaml:"regex"`
	Blacklist bool   `yaml:"blacklist"`
}

// ReplaceSeed is one replace rule
type ReplaceSeed struct {
	Pattern string `yaml:"pattern"`
	Content string `yaml:"content"`
}

// LoadRulesFile loads the rule seed from a YAML file
func LoadRulesFile(path string) (*RulesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var f RulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &f, nil
}

// ToImport validates the seed and converts it for RuleUsecase.Import
func (s *RuleSeed) ToImport() (*usecase.RuleImport, error) {
	if s.Name == "" {
		return nil, &ConfigError{Field: "rules.name", Message: "required"}
	}
	if s.SourceChatID == 0 || s.TargetChatID == "" {
		return nil, &ConfigError{Field: "rules." + s.Name, Message: "source_chat_id and target_chat_id are required"}
	}

	mode, err := domain.ParseMessageMode(s.MessageMode)
	if err != nil {
		return nil, &ConfigError{Field: "rules." + s.Name + ".message_mode", Message: err.Error()}
	}
	preview, err := domain.ParsePreviewMode(s.PreviewMode)
	if err != nil {
		return nil, &ConfigError{Field: "rules." + s.Name + ".preview_mode", Message: err.Error()}
	}
	item, err := domain.ParseSyncItem(s.Sync.Item)
	if err != nil {
		return nil, &ConfigError{Field: "rules." + s.Name + ".sync.item", Message: err.Error()}
	}

	enabled := true
	if s.Enabled != nil {
		enabled = *s.Enabled
	}

	in := &usecase.RuleImport{
		Rule: &domain.ForwardRule{
			Name:                   s.Name,
			SourceChatID:           s.SourceChatID,
			TargetChatID:           s.TargetChatID,
			Enabled:                enabled,
			MessageMode:            mode,
			PreviewMode:            preview,
			OriginalLink:           s.OriginalLink,
			OriginalSender:         s.OriginalSender,
			OriginalTime:           s.OriginalTime,
			MaxMediaSizeMB:         s.MaxMediaSizeMB,
			MediaTypeFilterOn:      len(s.BlockedMediaTypes) > 0,
			MediaExtensionFilterOn: len(s.MediaExtensions) > 0,
			SyncEnabled:            s.Sync.Enabled,
			SyncDomain:             s.Sync.Domain,
			SyncItem:               item,
		},
		Extensions: s.MediaExtensions,
	}

	for _, t := range s.BlockedMediaTypes {
		in.Blocked = append(in.Blocked, domain.MediaKind(t))
	}
	for _, k := range s.Keywords {
		in.Keywords = append(in.Keywords, domain.Keyword{Pattern: k.Pattern, IsRegex: k.Regex, IsBlacklist: k.Blacklist})
	}
	for _, r := range s.Replace {
		in.Replace = append(in.Replace, domain.ReplaceRule{Pattern: r.Pattern, Content: r.Content})
	}
	return in, nil
}
