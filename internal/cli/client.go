package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/galleryspace/relay/internal/model"
)

// ErrNoReply indicates the server sent nothing before the wait deadline
var ErrNoReply = errors.New("no reply from server")

// Client is a websocket client that joins the relay as a privileged
// participant and issues operator commands through chat
type Client struct {
	conn    *websocket.Conn
	timeout time.Duration
}

// Dial connects to the relay and consumes the connection acknowledgement
func Dial(ctx context.Context, url string, timeout time.Duration) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}

	c := &Client{conn: conn, timeout: timeout}

	env, err := c.read()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if env.Event != model.EventSocketConnect {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected first message %q", env.Event)
	}

	return c, nil
}

// Join claims a privileged identity. The claim is sent as "name|secret";
// the call succeeds once the server broadcasts the joiner's own profile.
func (c *Client) Join(name, secret string) error {
	claim := name
	if secret != "" {
		claim = name + "|" + secret
	}

	payload := map[string]string{"nickName": claim}
	if err := c.send(model.NewEnvelope(model.EventJoin, payload)); err != nil {
		return err
	}

	for {
		env, err := c.read()
		if err != nil {
			return err
		}

		switch env.Event {
		case model.EventNameError:
			var ne model.NameError
			if err := json.Unmarshal(env.Data, &ne); err != nil {
				return fmt.Errorf("malformed rejection: %w", err)
			}
			return fmt.Errorf("join rejected: %s", ne.Num)
		case model.EventChatMessage:
			// Full and closed notices arrive as server chat before
			// admission
			var msg model.ChatMessage
			if err := json.Unmarshal(env.Data, &msg); err == nil && msg.ID == "server" {
				return fmt.Errorf("join refused: %s", msg.Message)
			}
		case model.EventPlayerJoin:
			var profile struct {
				Admin bool `json:"admin"`
			}
			_ = json.Unmarshal(env.Data, &profile)
			if !profile.Admin {
				return errors.New("admitted without operator privileges; check RELAYCTL_NAME and RELAYCTL_SECRET")
			}
			return nil
		}
		// Replayed state (addPlayerData, instantiate, ...) is skipped
	}
}

// Command sends an operator command line as a chat message
func (c *Client) Command(line string) error {
	return c.send(model.NewEnvelope(model.EventChatMessage, model.ChatMessage{Message: line}))
}

// WaitServerMessage reads until a server-originated chat message arrives or
// the wait deadline passes, returning ErrNoReply on the deadline
func (c *Client) WaitServerMessage(wait time.Duration) (string, error) {
	deadline := time.Now().Add(wait)
	for {
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return "", err
		}

		var env model.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
				return "", ErrNoReply
			}
			return "", err
		}

		if env.Event != model.EventChatMessage {
			continue
		}
		var msg model.ChatMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil || msg.ID != "server" {
			continue
		}
		return msg.Message, nil
	}
}

// Close announces departure and drops the connection
func (c *Client) Close() error {
	_ = c.send(model.Envelope{Event: model.EventQuit})
	return c.conn.Close()
}

func (c *Client) send(env model.Envelope) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(env)
}

func (c *Client) read() (model.Envelope, error) {
	var env model.Envelope
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return env, err
	}
	if err := c.conn.ReadJSON(&env); err != nil {
		return env, err
	}
	return env, nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
