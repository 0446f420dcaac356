package cli

import (
	"fmt"
	"os"

	"ai-agents/internal/hub"
)

func setHubEnv(cfg hub.Config) {
	if cfg.Socket.Enabled && cfg.Socket.Path != "" {
		_ = os.Setenv("AI_AGENTS_SOCKET", cfg.Socket.Path)
	} else {
		_ = os.Unsetenv("AI_AGENTS_SOCKET")
	}

	if cfg.HTTP.Enabled && cfg.HTTP.Host != "" && cfg.HTTP.Port != 0 {
		_ = os.Setenv("AI_AGENTS_URL", fmt.Sprintf("http://%s:%d", cfg.HTTP.Host, cfg.HTTP.Port))
	} else {
		_ = os.Unsetenv("AI_AGENTS_URL")
	}
}
