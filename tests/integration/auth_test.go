//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
)

func TestRegisterLoginAndMe(t *testing.T) {
	baseURL := baseHTTPURL()
	player := registerPlayer(t, baseURL, "AuthFlow")

	// Login with the username and verify the identity matches.
	loginBody, _ := json.Marshal(map[string]string{
		"identifier": player.Username,
		"password":   "integration-pass",
	})
	resp, err := http.Post(fmt.Sprintf("%s/v1/auth/login", baseURL), "application/json", bytes.NewReader(loginBody))
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected login status: %d", resp.StatusCode)
	}

	var loginOut struct {
		User struct {
			UserID string `json:"user_id"`
		} `json:"user"`
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&loginOut); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if loginOut.User.UserID != player.ID {
		t.Fatalf("login returned different user: %s vs %s", loginOut.User.UserID, player.ID)
	}

	// Authenticated profile fetch.
	meResp := authorizedGet(t, fmt.Sprintf("%s/v1/users/me", baseURL), loginOut.AccessToken)
	defer meResp.Body.Close()

	if meResp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected /users/me status: %d", meResp.StatusCode)
	}

	var me struct {
		UserID string `json:"user_id"`
		Rating int    `json:"rating"`
	}
	if err := json.NewDecoder(meResp.Body).Decode(&me); err != nil {
		t.Fatalf("decode /users/me response: %v", err)
	}
	if me.UserID != player.ID {
		t.Fatalf("/users/me returned wrong user")
	}
	if me.Rating == 0 {
		t.Fatalf("expected a non-zero initial rating")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	baseURL := baseHTTPURL()
	player := registerPlayer(t, baseURL, "BadLogin")

	body, _ := json.Marshal(map[string]string{
		"identifier": player.Username,
		"password":   "not-the-password",
	})
	resp, err := http.Post(fmt.Sprintf("%s/v1/auth/login", baseURL), "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", resp.StatusCode)
	}
}

func TestRefreshToken(t *testing.T) {
	baseURL := baseHTTPURL()
	player := registerPlayer(t, baseURL, "Refresh")

	body, _ := json.Marshal(map[string]string{
		"refresh_token": player.RefreshToken,
	})
	resp, err := http.Post(fmt.Sprintf("%s/v1/auth/refresh", baseURL), "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("refresh request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected refresh status: %d", resp.StatusCode)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode refresh response: %v", err)
	}
	if out.AccessToken == "" {
		t.Fatalf("expected a fresh access token")
	}
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	baseURL := baseHTTPURL()
	player := registerPlayer(t, baseURL, "Duplicate")

	body, _ := json.Marshal(map[string]string{
		"name":             "Duplicate",
		"username":         player.Username,
		"email":            player.Username + "@integration.test",
		"password":         "integration-pass",
		"confirm_password": "integration-pass",
	})
	resp, err := http.Post(fmt.Sprintf("%s/v1/auth/register", baseURL), "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate registration, got %d", resp.StatusCode)
	}
}
