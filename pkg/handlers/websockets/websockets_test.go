package websockets

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockConnManager struct {
	mock.Mock
}

func (m *mockConnManager) AddConnection(ctx context.Context, connectionID string) error {
	return m.Called(ctx, connectionID).Error(0)
}

func (m *mockConnManager) RemoveConnection(ctx context.Context, connectionID string) error {
	return m.Called(ctx, connectionID).Error(0)
}

func wsRequest(route, id string) events.APIGatewayWebsocketProxyRequest {
	return events.APIGatewayWebsocketProxyRequest{
		RequestContext: events.APIGatewayWebsocketProxyRequestContext{RouteKey: route, ConnectionID: id},
	}
}

func TestHandleRoute(t *testing.T) {
	ctx := context.Background()

	t.Run("Connect", func(t *testing.T) {
		cm := new(mockConnManager)
		cm.On("AddConnection", mock.Anything, "c1").Return(nil)

		resp, err := NewHandler(cm).HandleRoute(ctx, wsRequest("$connect", "c1"))
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		cm.AssertExpectations(t)
	})

	t.Run("Disconnect Failure", func(t *testing.T) {
		cm := new(mockConnManager)
		cm.On("RemoveConnection", mock.Anything, "c1").Return(errors.New("boom"))

		resp, err := NewHandler(cm).HandleRoute(ctx, wsRequest("$disconnect", "c1"))
		assert.Error(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		cm.AssertExpectations(t)
	})

	t.Run("Default", func(t *testing.T) {
		cm := new(mockConnManager)
		resp, err := NewHandler(cm).HandleRoute(ctx, wsRequest("$default", "c1"))
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		cm.AssertNotCalled(t, "AddConnection", mock.Anything, mock.Anything)
	})
}
