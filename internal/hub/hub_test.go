package hub

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

// frame is one SSE event as read from the stream
type frame struct {
	id, event, data string
}

func readFrame(t *testing.T, br *bufio.Reader) frame {
	t.Helper()
	var f frame
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSuffix(line, "\n")
		switch {
		case line == "":
			if f.event != "" {
				return f
			}
		case strings.HasPrefix(line, "id: "):
			f.id = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "event: "):
			f.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			f.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := New(quietLogger())
	go h.Run(ctx)
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return h, srv
}

func subscribe(t *testing.T, url string) *bufio.Reader {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	br := bufio.NewReader(resp.Body)
	line, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)
	return br
}

func TestHubBroadcast(t *testing.T) {
	h, srv := startHub(t)
	br := subscribe(t, srv.URL)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	h.Broadcast("collection_started", "sw1", map[string]string{"device": "sw1"})
	h.Broadcast("collection_completed", "sw1", map[string]string{"device": "sw1"})

	f := readFrame(t, br)
	assert.Equal(t, "1", f.id)
	assert.Equal(t, "collection_started", f.event)
	assert.JSONEq(t, `{"device":"sw1"}`, f.data)

	f = readFrame(t, br)
	assert.Equal(t, "2", f.id)
	assert.Equal(t, "collection_completed", f.event)
}

func TestHubDeviceFilter(t *testing.T) {
	h, srv := startHub(t)
	br := subscribe(t, srv.URL+"?device=sw2")
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	h.Broadcast("collection_started", "sw1", map[string]string{"device": "sw1"})
	h.Broadcast("collection_started", "sw2", map[string]string{"device": "sw2"})

	f := readFrame(t, br)
	assert.Equal(t, "2", f.id, "sw1 event should be filtered out")
	assert.JSONEq(t, `{"device":"sw2"}`, f.data)
}

func TestHubShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New(quietLogger())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-stopped
	assert.Zero(t, h.ClientCount())
}
