//go:build integration
// +build integration

package integration

import (
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	wsmsg "github.com/hectoclash/hectoclash/pkg/http/ws"
)

func TestWSRejectsMissingToken(t *testing.T) {
	_, resp, err := websocket.DefaultDialer.Dial(baseWSURL(), nil)
	if err == nil {
		t.Fatalf("expected upgrade without token to fail")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Fatalf("expected 401 response, got %+v", resp)
	}
}

func TestWSRejectsInvalidToken(t *testing.T) {
	u, err := url.Parse(baseWSURL())
	if err != nil {
		t.Fatalf("invalid WS url: %v", err)
	}
	q := u.Query()
	q.Set("token", "not-a-jwt")
	u.RawQuery = q.Encode()

	_, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err == nil {
		t.Fatalf("expected upgrade with bogus token to fail")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Fatalf("expected 401 response, got %+v", resp)
	}
}

func TestWSPingPong(t *testing.T) {
	player := registerPlayer(t, baseHTTPURL(), "Pinger")
	conn := dialMatchWS(t, baseWSURL(), player.AccessToken)
	defer conn.Close()

	sendWS(t, conn, wsmsg.TypePing, nil)
	waitForMessage(t, conn, wsmsg.TypePong, 5*time.Second)
}
