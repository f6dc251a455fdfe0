//go:build integration
// +build integration

package integration

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	wsmsg "github.com/hectoclash/hectoclash/pkg/http/ws"
)

func expectError(t *testing.T, conn interface {
	SetReadDeadline(time.Time) error
	ReadJSON(interface{}) error
}, wantCode string) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var msg wsmsg.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for error %s: %v", wantCode, err)
		}
		if msg.Type != wsmsg.TypeError {
			continue
		}
		var payload wsmsg.ErrorPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			t.Fatalf("decode error payload: %v", err)
		}
		if payload.Code != wantCode {
			t.Fatalf("expected error code %s, got %s", wantCode, payload.Code)
		}
		return
	}
}

func TestUnknownMessageTypeReturnsError(t *testing.T) {
	player := registerPlayer(t, baseHTTPURL(), "Proto")
	conn := dialMatchWS(t, baseWSURL(), player.AccessToken)
	defer conn.Close()

	sendWS(t, conn, "teleport", nil)
	expectError(t, conn, "unknown_message_type")
}

func TestSubmitForUnknownMatchReturnsError(t *testing.T) {
	player := registerPlayer(t, baseHTTPURL(), "ProtoSubmit")
	conn := dialMatchWS(t, baseWSURL(), player.AccessToken)
	defer conn.Close()

	sendWS(t, conn, wsmsg.TypeSubmitAnswer, wsmsg.SubmitAnswerPayload{
		MatchID:    uuid.NewString(),
		Expression: "1+2+3+4+5+6",
	})
	expectError(t, conn, "match_already_completed")
}

func TestDuplicateJoinQueueReturnsError(t *testing.T) {
	player := registerPlayer(t, baseHTTPURL(), "ProtoQueue")
	conn := dialMatchWS(t, baseWSURL(), player.AccessToken)
	defer conn.Close()

	sendWS(t, conn, wsmsg.TypeJoinQueue, nil)
	waitForMessage(t, conn, wsmsg.TypeQueueUpdate, 5*time.Second)

	sendWS(t, conn, wsmsg.TypeJoinQueue, nil)
	expectError(t, conn, "already_queued")

	// Leave so the dangling entry cannot pair with a later test's player.
	sendWS(t, conn, wsmsg.TypeLeaveQueue, nil)
}

func TestLeaveQueueWhenNotQueuedReturnsError(t *testing.T) {
	player := registerPlayer(t, baseHTTPURL(), "ProtoLeave")
	conn := dialMatchWS(t, baseWSURL(), player.AccessToken)
	defer conn.Close()

	sendWS(t, conn, wsmsg.TypeLeaveQueue, nil)
	expectError(t, conn, "not_queued")
}
