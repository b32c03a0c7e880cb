package convlog

import (
	"fmt"

	"github.com/campushelp/faq-bot/internal/config"
	"github.com/campushelp/faq-bot/internal/pkg/logger"
)

// NewStore creates a conversation log store from configuration.
func NewStore(cfg config.ConvLogConfig, log *logger.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.Path, log)
	case "redis":
		return NewRedisStore(cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unknown conversation log backend: %s", cfg.Backend)
	}
}
