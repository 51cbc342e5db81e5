package websockets_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/chris/library-ledger/pkg/notify"
	"github.com/chris/library-ledger/pkg/websockets"
	"github.com/chris/library-ledger/pkg/websockets/mocks"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type memoryConnections struct {
	mu  sync.Mutex
	ids []string
}

func (m *memoryConnections) AddConnection(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, id)
	return nil
}

func (m *memoryConnections) RemoveConnection(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.ids {
		if existing == id {
			m.ids = append(m.ids[:i], m.ids[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memoryConnections) GetAllConnections(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ids...), nil
}

func TestGatewayPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("Removes Gone Connections", func(t *testing.T) {
		store := &memoryConnections{ids: []string{"c1", "c2"}}
		client := mocks.NewGatewayAPI(t)
		client.On("PostToConnection", mock.Anything, mock.MatchedBy(func(in *apigatewaymanagementapi.PostToConnectionInput) bool {
			return aws.ToString(in.ConnectionId) == "c1"
		})).Return(&apigatewaymanagementapi.PostToConnectionOutput{}, nil)
		client.On("PostToConnection", mock.Anything, mock.MatchedBy(func(in *apigatewaymanagementapi.PostToConnectionInput) bool {
			return aws.ToString(in.ConnectionId) == "c2"
		})).Return(nil, &apigwtypes.GoneException{})

		p := websockets.NewGatewayPublisher(store, client)
		err := p.Publish(ctx, websockets.Message{Type: websockets.MessageTypeNotification, Payload: "hi"})

		require.NoError(t, err)
		ids, _ := store.GetAllConnections(ctx)
		assert.Equal(t, []string{"c1"}, ids)
	})

	t.Run("Reports Failed Posts", func(t *testing.T) {
		store := &memoryConnections{ids: []string{"c1", "c2"}}
		client := mocks.NewGatewayAPI(t)
		client.On("PostToConnection", mock.Anything, mock.MatchedBy(func(in *apigatewaymanagementapi.PostToConnectionInput) bool {
			return aws.ToString(in.ConnectionId) == "c1"
		})).Return(nil, errors.New("throttled"))
		client.On("PostToConnection", mock.Anything, mock.MatchedBy(func(in *apigatewaymanagementapi.PostToConnectionInput) bool {
			return aws.ToString(in.ConnectionId) == "c2"
		})).Return(&apigatewaymanagementapi.PostToConnectionOutput{}, nil)

		err := websockets.NewGatewayPublisher(store, client).Publish(ctx, websockets.Message{Type: websockets.MessageTypeNotification})

		assert.ErrorContains(t, err, "connection c1")
		ids, _ := store.GetAllConnections(ctx)
		assert.Len(t, ids, 2)
	})

	t.Run("Posts Encoded Message", func(t *testing.T) {
		store := &memoryConnections{ids: []string{"c1"}}
		client := mocks.NewGatewayAPI(t)
		client.On("PostToConnection", mock.Anything, mock.MatchedBy(func(in *apigatewaymanagementapi.PostToConnectionInput) bool {
			var msg map[string]any
			return json.Unmarshal(in.Data, &msg) == nil && msg["type"] == "notification"
		})).Return(&apigatewaymanagementapi.PostToConnectionOutput{}, nil)

		sender := websockets.NewSender(websockets.NewGatewayPublisher(store, client))
		err := sender.Send(ctx, notify.Message{To: "management@library.com", Subject: "Book Restocked", Body: "restocked"})
		require.NoError(t, err)
	})
}

func TestNoOpPublisher(t *testing.T) {
	var publisher websockets.Publisher = &websockets.NoOpPublisher{}
	err := publisher.Publish(context.Background(), websockets.Message{Type: websockets.MessageTypeNotification, Payload: "b1"})
	assert.NoError(t, err)
}

func TestHub(t *testing.T) {
	hub := websockets.NewHub()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register("local", conn)
	}))
	defer server.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	sender := websockets.NewSender(hub)
	require.NoError(t, sender.Send(context.Background(), notify.Message{To: "u1", Subject: "Book Return Reminder", Body: "please return"}))

	_ = client.SetReadDeadline(time.Now().Add(time.Second))
	var got struct {
		Type    string                          `json:"type"`
		Payload websockets.NotificationPayload `json:"payload"`
	}
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, "notification", got.Type)
	assert.Equal(t, "Book Return Reminder", got.Payload.Subject)

	hub.Unregister("local")
	assert.Zero(t, hub.Len())
}
