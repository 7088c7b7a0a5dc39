package monitor

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gocitcom/model_problems/Energy"
)

func TestHub(t *testing.T) {
	l, _ := test.NewNullLogger()
	h := NewHub("run-1", logrus.NewEntry(l))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	srv := httptest.NewServer(h)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, h.Publish(Energy.Report{Step: 3, Tmax: 0.98}))
	require.NoError(t, h.Publish(Energy.Report{Step: 4, Stop: true}))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Msg
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "step", msg.Type)
	assert.Equal(t, "run-1", msg.RunID)
	assert.Equal(t, 3, msg.Content.Step)
	assert.Equal(t, 0.98, msg.Content.Tmax)
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "stop", msg.Type)

	conn.Close()
	assert.Eventually(t, func() bool { return h.Clients() == 0 }, time.Second, 10*time.Millisecond)
}
