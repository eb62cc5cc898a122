package biz

import (
	"github.com/devricklin/chat-forwarder/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Chain *usecase.FilterChain
	Rules *usecase.RuleUsecase
	Sync  *usecase.SyncUsecase
}
