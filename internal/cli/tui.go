package cli

import (
	"flag"
	"fmt"
	"os"

	"ai-agents/internal/hub"
	"ai-agents/internal/tui"
	"ai-agents/internal/utils"
)

func runTUI(args []string) int {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	httpPort := fs.Int("http-port", 8080, "http port")
	noHTTP := fs.Bool("no-http", false, "disable http")
	socketPath := fs.String("socket", "/tmp/ai-agents-hub.sock", "unix socket path")
	noSocket := fs.Bool("no-socket", false, "disable unix socket")
	verbose := fs.Bool("verbose", false, "debug logging")
	routerAgents := fs.String("router-agents", "", "comma-separated agent IDs the router may delegate to")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := hub.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	cfg.Socket.Path = *socketPath
	cfg.Socket.Enabled = !*noSocket
	cfg.HTTP.Port = *httpPort
	cfg.HTTP.Enabled = !*noHTTP
	if agents := resolveRouterAgents(*routerAgents); agents != nil {
		cfg.Router.Agents = agents
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}

	logger := utils.NewLogger(cfg.Logging.Level)
	setHubEnv(cfg)
	if err := tui.Run(cfg, logger); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	return 0
}
