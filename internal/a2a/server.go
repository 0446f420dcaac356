package a2a

import (
	"net/http"
	"strings"

	"ai-agents/internal/hub"
	"ai-agents/internal/types"

	sdka2a "github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
)

// A2AServer wraps the A2A protocol handler for HTTP.
type A2AServer struct {
	handler a2asrv.RequestHandler
	server  *hub.Server
	baseURL string
}

func NewA2AServer(server *hub.Server, baseURL string) (*A2AServer, error) {
	executor := NewHubExecutor(server)
	taskStore := NewTaskStoreAdapter(server.Tasks())

	handler := a2asrv.NewHandler(
		executor,
		a2asrv.WithTaskStore(taskStore),
	)

	return &A2AServer{
		handler: handler,
		server:  server,
		baseURL: baseURL,
	}, nil
}

// RegisterRoutes adds the A2A JSON-RPC endpoint to the mux. The well-known
// card routes stay on HTTPTransport to avoid route conflicts.
func (s *A2AServer) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/a2a", a2asrv.NewJSONRPCHandler(s.handler))
}

func (s *A2AServer) buildHubAgentCard() *sdka2a.AgentCard {
	a2aURL := strings.TrimRight(s.baseURL, "/") + "/a2a"
	agents := s.server.Registry().List()
	skills := make([]sdka2a.AgentSkill, 0, len(agents))
	for _, info := range agents {
		card := info.Agent.Card()
		skills = append(skills, sdka2a.AgentSkill{
			ID:          info.Agent.ID(),
			Name:        card.Name,
			Description: card.Description,
			Tags:        []string{"agent"},
			InputModes:  []string{"text/plain"},
			OutputModes: []string{"text/plain"},
		})
	}

	return &sdka2a.AgentCard{
		Name:            "AI Agents Hub",
		Description:     "Local hub of task-focused LLM agents supporting the A2A protocol",
		URL:             a2aURL,
		Version:         "1.0.0",
		ProtocolVersion: "1.0",
		Provider: &sdka2a.AgentProvider{
			Org: "Local",
			URL: s.baseURL,
		},
		PreferredTransport: sdka2a.TransportProtocolJSONRPC,
		AdditionalInterfaces: []sdka2a.AgentInterface{
			{URL: a2aURL, Transport: sdka2a.TransportProtocolJSONRPC},
		},
		Capabilities: sdka2a.AgentCapabilities{
			Streaming:              true,
			PushNotifications:      false,
			StateTransitionHistory: true,
		},
		Skills:             skills,
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"text/plain"},
	}
}

// GetInternalCard returns the hub's card in internal format.
func (s *A2AServer) GetInternalCard() types.AgentCard {
	return FromSDKAgentCard(s.buildHubAgentCard())
}
