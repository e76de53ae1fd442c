package clientlogin

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-push-relay/internal/config"
)

// Client fetches delivery-service auth tokens from the upstream ClientLogin
// endpoint using fixed service credentials.
type Client struct {
	endpoint string
	email    string
	passwd   string
	source   string
	http     *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		endpoint: cfg.ClientLoginURL,
		email:    cfg.ClientLoginEmail,
		passwd:   cfg.ClientLoginPasswd,
		source:   cfg.ClientLoginSource,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchToken obtains a fresh auth token. The endpoint answers with key=value
// lines; the token is the Auth line.
func (c *Client) FetchToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("accountType", "GOOGLE")
	form.Set("Email", c.email)
	form.Set("Passwd", c.passwd)
	form.Set("service", "ac2dm")
	form.Set("source", c.source)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth endpoint returned status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "Auth=") {
			return strings.TrimPrefix(line, "Auth="), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read auth response: %w", err)
	}
	return "", fmt.Errorf("no Auth line in response")
}
