package e2e_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleryspace/relay/internal/api"
	"github.com/galleryspace/relay/internal/factory"
	"github.com/galleryspace/relay/internal/model"
	"github.com/galleryspace/relay/internal/services/session"
	"github.com/galleryspace/relay/internal/transport/ws"
)

// cliRunner manages relayctl binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	projectRoot := findProjectRoot(t)

	binaryPath := filepath.Join(projectRoot, "bin", "relayctl-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/relayctl")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build relayctl: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--name", "Admin",
		"--secret", "hunter2",
		"--timeout", "5s",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real relay server for e2e tests
type testServer struct {
	wsURL    string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	app, err := factory.New(factory.Config{
		SessionConfig: session.Config{
			MaxSessions: 10,
			Open:        true,
			Credentials: []session.Credential{{Name: "Admin", Secret: "hunter2"}},
		},
		SnapshotPath: filepath.Join(t.TempDir(), "db.json"),
		Logger:       logger,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go app.Dispatcher.Run(ctx)

	router := api.NewRouter(api.RouterConfig{
		Logger:    logger,
		WSHandler: ws.NewHandler(app.Dispatcher, logger),
	})

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	waitForServer(t, "http://"+addr+"/healthz")

	return &testServer{
		wsURL: "ws://" + addr + "/ws",
		shutdown: func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = server.Shutdown(shutdownCtx)
			cancel()
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// participant is a raw websocket client joined as a regular visitor
type participant struct {
	t    *testing.T
	conn *websocket.Conn
}

func joinParticipant(t *testing.T, wsURL, name string) *participant {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	p := &participant{t: t, conn: conn}
	t.Cleanup(func() { _ = conn.Close() })

	_, ok := p.waitEvent(model.EventSocketConnect, 5*time.Second)
	require.True(t, ok, "no connection ack")

	require.NoError(t, conn.WriteJSON(model.NewEnvelope(model.EventJoin, map[string]string{"nickName": name})))

	_, ok = p.waitEvent(model.EventPlayerJoin, 5*time.Second)
	require.True(t, ok, "join was not acknowledged")

	return p
}

// waitEvent reads until an envelope with the given event arrives
func (p *participant) waitEvent(event string, wait time.Duration) (model.Envelope, bool) {
	p.t.Helper()

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		_ = p.conn.SetReadDeadline(deadline)
		var env model.Envelope
		if err := p.conn.ReadJSON(&env); err != nil {
			return model.Envelope{}, false
		}
		if env.Event == event {
			return env, true
		}
	}
	return model.Envelope{}, false
}

// waitClosed reads until the connection drops
func (p *participant) waitClosed(wait time.Duration) bool {
	p.t.Helper()

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		_ = p.conn.SetReadDeadline(deadline)
		var env model.Envelope
		if err := p.conn.ReadJSON(&env); err != nil {
			return true
		}
	}
	return false
}

func TestRelayctl(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	server := startTestServer(t)
	defer server.shutdown()
	cli := newCLIRunner(t, server.wsURL)

	t.Run("players reports the connected count", func(t *testing.T) {
		p := joinParticipant(t, server.wsURL, "Alice")
		defer p.conn.Close()

		output, err := cli.run("players")
		require.NoError(t, err, "relayctl players failed: %s", output)
		assert.Contains(t, output, "2 players connected")
	})

	t.Run("announce reaches participants", func(t *testing.T) {
		p := joinParticipant(t, server.wsURL, "Bob")
		defer p.conn.Close()

		output, err := cli.run("announce", "maintenance", "soon")
		require.NoError(t, err, "relayctl announce failed: %s", output)

		for {
			env, ok := p.waitEvent(model.EventChatMessage, 5*time.Second)
			require.True(t, ok, "announcement never arrived")
			var msg model.ChatMessage
			require.NoError(t, json.Unmarshal(env.Data, &msg))
			if msg.ID == "server" && msg.Message == "maintenance soon" {
				return
			}
		}
	})

	t.Run("kick disconnects the target", func(t *testing.T) {
		p := joinParticipant(t, server.wsURL, "Carol")

		output, err := cli.run("kick", "Carol")
		require.NoError(t, err, "relayctl kick failed: %s", output)

		assert.True(t, p.waitClosed(5*time.Second), "kicked participant still connected")
	})

	t.Run("kick unknown target reports the failure", func(t *testing.T) {
		output, err := cli.run("kick", "Nobody")
		require.NoError(t, err, "relayctl returned error: %s", output)
		assert.Contains(t, output, "I can't find a user named Nobody")
	})

	t.Run("close refuses new visitors and open readmits them", func(t *testing.T) {
		output, err := cli.run("close")
		require.NoError(t, err, "relayctl close failed: %s", output)

		conn, _, err := websocket.DefaultDialer.Dial(server.wsURL, nil)
		require.NoError(t, err)
		refused := &participant{t: t, conn: conn}
		_, ok := refused.waitEvent(model.EventSocketConnect, 5*time.Second)
		require.True(t, ok)
		require.NoError(t, conn.WriteJSON(model.NewEnvelope(model.EventJoin, map[string]string{"nickName": "Dave"})))
		assert.True(t, refused.waitClosed(5*time.Second), "visitor admitted while closed")
		_ = conn.Close()

		output, err = cli.run("open")
		require.NoError(t, err, "relayctl open failed: %s", output)

		p := joinParticipant(t, server.wsURL, "Dave")
		_ = p.conn.Close()
	})
}
