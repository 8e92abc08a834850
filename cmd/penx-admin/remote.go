package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"penx/internal/auth"
	"penx/internal/config"
	"penx/pkg/models"
)

// serverURL turns a listen address into a loopback base URL.
func serverURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// fetchAnalytics asks the running server for the admin report. The admin
// token is signed locally with the shared JWT secret.
func fetchAnalytics(ctx context.Context, base string, cfg *config.Config) (models.Analytics, error) {
	var report models.Analytics

	subject := cfg.Admin.Username
	if subject == "" {
		subject = auth.RoleAdmin
	}
	token, err := auth.NewManager(cfg.Auth.JWTSecret, time.Minute).GenerateToken(subject, auth.RoleAdmin)
	if err != nil {
		return report, err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	url := strings.TrimRight(base, "/") + "/api/admin/analytics"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return report, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return report, fmt.Errorf("data directory is in use and the server at %s is unreachable: %w", base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return report, fmt.Errorf("server analytics: %s %s", resp.Status, body.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return report, fmt.Errorf("decode server analytics: %w", err)
	}
	return report, nil
}
