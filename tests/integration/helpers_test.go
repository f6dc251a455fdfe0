//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	wsmsg "github.com/hectoclash/hectoclash/pkg/http/ws"
)

type playerInfo struct {
	ID           string
	Username     string
	AccessToken  string
	RefreshToken string
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func baseHTTPURL() string {
	return envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
}

func baseWSURL() string {
	return envOrDefault("INTEGRATION_WS_URL", "ws://localhost:8080/ws/matches")
}

// registerPlayer creates a fresh account with a unique username so tests can
// run repeatedly against the same database.
func registerPlayer(t *testing.T, baseURL, prefix string) playerInfo {
	t.Helper()

	username := fmt.Sprintf("%s%d", prefix, time.Now().UnixNano())
	payload := map[string]string{
		"name":             prefix,
		"username":         username,
		"email":            username + "@integration.test",
		"password":         "integration-pass",
		"confirm_password": "integration-pass",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal register payload: %v", err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/auth/register", baseURL), "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected register response status: %d", resp.StatusCode)
	}

	var out struct {
		User struct {
			UserID   string `json:"user_id"`
			Username string `json:"username"`
		} `json:"user"`
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode register response failed: %v", err)
	}

	if out.AccessToken == "" {
		t.Fatalf("empty access token in register response")
	}

	return playerInfo{
		ID:           out.User.UserID,
		Username:     out.User.Username,
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
	}
}

func dialMatchWS(t *testing.T, wsBase, token string) *websocket.Conn {
	t.Helper()

	u, err := url.Parse(wsBase)
	if err != nil {
		t.Fatalf("invalid WS url: %v", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial WS failed: %v", err)
	}
	return conn
}

func sendWS(t *testing.T, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()

	msg := wsmsg.Message{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal %s payload: %v", msgType, err)
		}
		msg.Payload = raw
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s failed: %v", msgType, err)
	}
}

// waitForMessage reads until a message of the wanted type arrives, failing
// on timeout. Other message types are discarded.
func waitForMessage(t *testing.T, conn *websocket.Conn, wantType string, timeout time.Duration) wsmsg.Message {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		_ = conn.SetReadDeadline(deadline)
		var msg wsmsg.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", wantType, err)
		}
		if msg.Type == wantType {
			return msg
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", wantType)
		}
	}
}

func decodePayload(t *testing.T, msg wsmsg.Message, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(msg.Payload, out); err != nil {
		t.Fatalf("decode %s payload: %v", msg.Type, err)
	}
}

func authorizedGet(t *testing.T, rawURL, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s failed: %v", rawURL, err)
	}
	return resp
}
