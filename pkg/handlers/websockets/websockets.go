package websockets

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/chris/library-ledger/pkg/websockets"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Handler handles dashboard WebSocket connections.
type Handler struct {
	connManager websockets.ConnectionManager
	hub         *websockets.Hub
}

// NewHandler creates a Handler for API Gateway websocket routes.
func NewHandler(connManager websockets.ConnectionManager) *Handler {
	return &Handler{connManager: connManager}
}

// NewLocalHandler creates a Handler that serves websockets itself and registers them in hub.
func NewLocalHandler(hub *websockets.Hub) *Handler {
	return &Handler{hub: hub}
}

// HandleRoute dispatches an API Gateway websocket event on its route key.
func (h *Handler) HandleRoute(ctx context.Context, request events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch request.RequestContext.RouteKey {
	case "$connect":
		return h.HandleConnect(ctx, request)
	case "$disconnect":
		return h.HandleDisconnect(ctx, request)
	default:
		return h.HandleDefault(ctx, request)
	}
}

// HandleConnect registers a dashboard connection.
func (h *Handler) HandleConnect(ctx context.Context, request events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	return h.track(ctx, request, "dashboard connected", h.connManager.AddConnection)
}

// HandleDisconnect forgets a dashboard connection.
func (h *Handler) HandleDisconnect(ctx context.Context, request events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	return h.track(ctx, request, "dashboard disconnected", h.connManager.RemoveConnection)
}

// HandleDefault accepts and drops messages sent by a dashboard.
func (h *Handler) HandleDefault(ctx context.Context, request events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	slog.DebugContext(ctx, "ignoring dashboard message", "connectionId", request.RequestContext.ConnectionID, "bytes", len(request.Body))
	return events.APIGatewayProxyResponse{StatusCode: http.StatusOK}, nil
}

func (h *Handler) track(ctx context.Context, request events.APIGatewayWebsocketProxyRequest, msg string, update func(context.Context, string) error) (events.APIGatewayProxyResponse, error) {
	logger := slog.With("connectionId", request.RequestContext.ConnectionID, "route", request.RequestContext.RouteKey)
	if err := update(ctx, request.RequestContext.ConnectionID); err != nil {
		logger.ErrorContext(ctx, "failed to update dashboard connections", "error", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError}, err
	}
	logger.InfoContext(ctx, msg)
	return events.APIGatewayProxyResponse{StatusCode: http.StatusOK}, nil
}

// maxDashboardMessage caps what a dashboard may send; its messages are discarded.
const maxDashboardMessage = 512

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeHTTP upgrades a local dashboard and keeps it in the hub until it goes away.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade dashboard connection", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxDashboardMessage)

	connectionID := uuid.New().String()
	logger := slog.With("connectionId", connectionID, "remoteAddr", r.RemoteAddr)
	h.hub.Register(connectionID, conn)
	logger.Info("dashboard connected locally", "dashboards", h.hub.Len())
	defer func() {
		h.hub.Unregister(connectionID)
		logger.Info("dashboard disconnected locally", "dashboards", h.hub.Len())
	}()

	for {
		if _, _, err := conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("dashboard connection dropped", "error", err)
			}
			return
		}
	}
}
