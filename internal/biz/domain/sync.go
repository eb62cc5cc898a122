package domain

import "fmt"

// SyncItem selects one of the four keyword slots of a remote domain config
type SyncItem string

const (
	SyncItemUnset           SyncItem = ""
	SyncItemMain            SyncItem = "main"
	SyncItemContent         SyncItem = "content"
	SyncItemMainUsername    SyncItem = "main_username"
	SyncItemContentUsername SyncItem = "content_username"
)

// ParseSyncItem validates an item-kind name. The empty string is allowed and means unset.
func ParseSyncItem(s string) (SyncItem, error) {
	switch item := SyncItem(s); item {
	case SyncItemUnset, SyncItemMain, SyncItemContent, SyncItemMainUsername, SyncItemContentUsername:
		return item, nil
	}
	return SyncItemUnset, fmt.Errorf("unknown sync item %q", s)
}

// SlotKey returns the JSON key of the keyword slot inside a domain node
func (i SyncItem) SlotKey() (string, bool) {
	switch i {
	case SyncItemMain:
		return "mainAndSubPageKeywords", true
	case SyncItemContent:
		return "contentPageKeywords", true
	case SyncItemMainUsername:
		return "mainAndSubPageUserKeywords", true
	case SyncItemContentUsername:
		return "contentPageUserKeywords", true
	}
	return "", false
}

// SyncItems lists every addressable item-kind
var SyncItems = []SyncItem{SyncItemMain, SyncItemContent, SyncItemMainUsername, SyncItemContentUsername}

// KeywordSet is the content of one keyword slot
type KeywordSet struct {
	Keywords      []string `json:"keywords"`
	RegexPatterns []string `json:"regexPatterns"`
}

// DomainConfig is one userConfig node of the sync document
type DomainConfig struct {
	Domain string
	Slots  map[SyncItem]KeywordSet
}

// SyncDocument is the decoded view of the remote configuration document.
// Only the parts the keyword reconciliation needs are modeled.
type SyncDocument struct {
	Domains      []DomainConfig
	LastSyncTime int64 // milliseconds since epoch, 0 when absent
}

// Find returns the node for a domain
func (d *SyncDocument) Find(domain string) (*DomainConfig, bool) {
	for i := range d.Domains {
		if d.Domains[i].Domain == domain {
			return &d.Domains[i], true
		}
	}
	return nil, false
}

// KeywordsFor splits rule keywords into the literal and regex lists of a slot
func KeywordsFor(keywords []Keyword) KeywordSet {
	set := KeywordSet{Keywords: []string{}, RegexPatterns: []string{}}
	for _, k := range keywords {
		if k.IsRegex {
			set.RegexPatterns = append(set.RegexPatterns, k.Pattern)
		} else {
			set.Keywords = append(set.Keywords, k.Pattern)
		}
	}
	return set
}
