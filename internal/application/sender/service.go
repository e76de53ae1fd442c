package sender

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-push-relay/internal/domain"
)

// updateClientAuthHeader carries a replacement auth token the delivery
// service wants the client to use from now on.
const updateClientAuthHeader = "Update-Client-Auth"

// TokenSource is the auth-token lifecycle the sender depends on.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
	UpdateToken(ctx context.Context, newToken string) error
	InvalidateCachedToken()
	Endpoint(ctx context.Context) (string, error)
}

type retryScheduler interface {
	ScheduleRetry(ctx context.Context, msg domain.OutboundMessage) error
}

// Service synchronously delivers push messages and classifies the outcome.
// SendNoRetry returns (true, nil) when the delivery service accepted the
// message, (false, nil) when the attempt should be retried later, and a
// non-nil error for conditions that must not be retried
// (domain.ErrPermanentDelivery, domain.ErrAuthUnavailable).
type Service struct {
	tokens    TokenSource
	scheduler retryScheduler
	http      *http.Client
}

func NewService(tokens TokenSource, scheduler retryScheduler) *Service {
	return &Service{
		tokens:    tokens,
		scheduler: scheduler,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *Service) SendNoRetry(ctx context.Context, msg domain.OutboundMessage) (bool, error) {
	form := url.Values{}
	form.Set(domain.ParamRegistrationID, msg.RegistrationID)
	form.Set(domain.ParamCollapseKey, msg.CollapseKey)
	if msg.DelayWhileIdle {
		form.Set(domain.ParamDelayWhileIdle, "1")
	}
	for k, v := range msg.Data {
		form.Set(domain.DataPrefix+k, v)
	}

	// Resolve credentials first; the POST below runs without any lock held.
	authToken, err := s.tokens.GetToken(ctx)
	if err != nil {
		return false, err
	}
	endpoint, err := s.tokens.Endpoint(ctx)
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("build delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
	req.Header.Set("Authorization", "GoogleLogin auth="+authToken)

	resp, err := s.http.Do(req)
	if err != nil {
		slog.Warn("delivery request failed, will retry", "err", err)
		return false, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// The token is too old. Another process may already have stored a
		// refreshed one; dropping the cache makes the next attempt pick
		// it up.
		slog.Warn("delivery unauthorized, invalidating cached token", "status", resp.StatusCode)
		s.tokens.InvalidateCachedToken()
		return false, nil
	}

	if updated := resp.Header.Get(updateClientAuthHeader); updated != "" && updated != authToken {
		slog.Info("delivery service pushed an updated auth token")
		if err := s.tokens.UpdateToken(ctx, updated); err != nil {
			slog.Warn("could not persist updated auth token", "err", err)
		}
	}

	line, _ := bufio.NewReader(resp.Body).ReadString('\n')
	body := strings.TrimSpace(line)
	if body == "" {
		slog.Warn("empty response from delivery service, will retry", "status", resp.StatusCode)
		return false, nil
	}

	key, value, found := strings.Cut(body, "=")
	if !found {
		slog.Warn("unparseable response from delivery service, will retry", "status", resp.StatusCode, "body", body)
		return false, nil
	}

	switch key {
	case "id":
		return true, nil
	case "Error":
		// The upstream classification is final; never requeue.
		return false, fmt.Errorf("delivery rejected with %s: %w", value, domain.ErrPermanentDelivery)
	default:
		slog.Warn("unexpected response from delivery service, will retry", "status", resp.StatusCode, "body", body)
		return false, nil
	}
}

// SendNoRetryPairs is the fire-and-forget form: data params as a flat
// (name, value, name, value, ...) list. A trailing unpaired entry is
// dropped, entries with an empty name or value are skipped, and every
// failure collapses to false.
func (s *Service) SendNoRetryPairs(ctx context.Context, registrationID, collapseKey string, nameValues ...string) bool {
	data := make(map[string]string)
	n := len(nameValues)
	if n%2 == 1 {
		n-- // ignore last
	}
	for i := 0; i < n; i += 2 {
		name, value := nameValues[i], nameValues[i+1]
		if name == "" || value == "" {
			continue
		}
		data[name] = value
	}

	sent, err := s.SendNoRetry(ctx, domain.OutboundMessage{
		RegistrationID: registrationID,
		CollapseKey:    collapseKey,
		DelayWhileIdle: true,
		Data:           data,
	})
	if err != nil {
		slog.Warn("send failed", "collapse_key", collapseKey, "err", err)
		return false
	}
	return sent
}

// SendWithRetry attempts a synchronous send and, on a retryable failure,
// hands the identical message to the scheduler. It never blocks the caller
// on redelivery; permanent and auth errors surface unchanged.
func (s *Service) SendWithRetry(ctx context.Context, msg domain.OutboundMessage) error {
	sent, err := s.SendNoRetry(ctx, msg)
	if err != nil {
		return err
	}
	if !sent {
		if err := s.scheduler.ScheduleRetry(ctx, msg); err != nil {
			return fmt.Errorf("schedule retry: %w", err)
		}
	}
	return nil
}
