package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TwilioSender posts messages through Twilio's REST API.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewTwilioSender(accountSID, authToken, from string, logger *zap.Logger) *TwilioSender {
	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    "https://api.twilio.com",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

var _ Sender = (*TwilioSender)(nil)

func (s *TwilioSender) Send(ctx context.Context, to, body string) error {
	if s.accountSID == "" || s.authToken == "" {
		return errors.New("sms: twilio credentials missing")
	}
	if to == "" {
		return errors.New("sms: to required")
	}
	if strings.TrimSpace(body) == "" {
		return errors.New("sms: body required")
	}

	payload := url.Values{}
	payload.Set("To", to)
	payload.Set("From", s.from)
	payload.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
	if err != nil {
		return fmt.Errorf("sms: build request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		var apiErr struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("sms: twilio %d (code %d): %s", resp.StatusCode, apiErr.Code, apiErr.Message)
		}

		s.logger.Warn("twilio returned unexpected body",
			zap.Int("status", resp.StatusCode),
			zap.String("to", to),
		)
		return fmt.Errorf("sms: twilio returned status %d", resp.StatusCode)
	}

	return nil
}
