package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uof-sdk/pkg/common"
	"uof-sdk/pkg/producer"
)

type recordingNotifier struct {
	mu     sync.Mutex
	titles []string
	err    error
}

func (r *recordingNotifier) Send(ctx context.Context, title string, lines []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
	return r.err
}

func TestProducerAlerts(t *testing.T) {
	ok := &recordingNotifier{}
	failing := &recordingNotifier{err: errors.New("webhook down")}
	alerts := NewProducerAlerts(common.NewNopLogger(), failing, ok)

	p := producer.Producer{ID: 1, Name: "LO"}
	alerts.OnProducerDown(p, "alive timeout")
	alerts.Wait()
	alerts.OnProducerUp(p)
	alerts.Wait()

	assert.Equal(t, []string{"Producer Down", "Producer Recovered"}, ok.titles)
	assert.Equal(t, []string{"Producer Down", "Producer Recovered"}, failing.titles)
}

func TestLarkNotifier_Send(t *testing.T) {
	var got LarkMessage
	var content struct {
		Post LarkPost `json:"post"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw struct {
			MsgType string          `json:"msg_type"`
			Content json.RawMessage `json:"content"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		got.MsgType = raw.MsgType
		require.NoError(t, json.Unmarshal(raw.Content, &content))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewLarkNotifier(srv.URL)
	require.NoError(t, n.Send(context.Background(), "Producer Down", []string{"Producer: 1", "Reason: x"}))
	assert.Equal(t, "post", got.MsgType)
	assert.Equal(t, "Producer Down", content.Post.ZhCn.Title)
	require.Len(t, content.Post.ZhCn.Content, 2)
	assert.Equal(t, "Producer: 1\n", content.Post.ZhCn.Content[0][0].Text)

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer bad.Close()
	assert.Error(t, NewLarkNotifier(bad.URL).Send(context.Background(), "t", nil))
}

func TestTelegramNotifier_Send(t *testing.T) {
	var mu sync.Mutex
	var sent []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"uof","username":"uof_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			require.NoError(t, r.ParseForm())
			mu.Lock()
			sent = append(sent, r.PostForm.Get("chat_id")+":"+r.PostForm.Get("text"))
			mu.Unlock()
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	n, err := NewTelegramNotifierWithEndpoint("token", srv.URL+"/bot%s/%s", 42, srv.Client())
	require.NoError(t, err)
	require.NoError(t, n.Send(context.Background(), "Producer Down", []string{"Producer: 1"}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"42:Producer Down\nProducer: 1"}, sent)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Send(ctx, "t", nil), context.Canceled)
}
