package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SendGridMailer posts to the SendGrid v3 mail/send endpoint.
type SendGridMailer struct {
	BaseURL     string
	APIKey      string
	FromAddress string
	FromName    string
	Client      *http.Client
}

func NewSendGridMailer(baseURL, apiKey, fromAddress, fromName string) *SendGridMailer {
	return &SendGridMailer{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		APIKey:      apiKey,
		FromAddress: fromAddress,
		FromName:    fromName,
		Client:      &http.Client{Timeout: 15 * time.Second},
	}
}

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridPayload struct {
	Personalizations []struct {
		To []sendGridAddress `json:"to"`
	} `json:"personalizations"`
	From    sendGridAddress `json:"from"`
	Subject string          `json:"subject"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

func (s *SendGridMailer) Send(ctx context.Context, email Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("sendgrid: no recipients")
	}

	payload := sendGridPayload{
		From:    sendGridAddress{Email: s.FromAddress, Name: s.FromName},
		Subject: email.Subject,
	}
	payload.Personalizations = make([]struct {
		To []sendGridAddress `json:"to"`
	}, 1)
	for _, to := range email.To {
		payload.Personalizations[0].To = append(payload.Personalizations[0].To, sendGridAddress{Email: to})
	}
	payload.Content = []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}{{Type: "text/html", Value: email.HTML}}

	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/v3/mail/send", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid error: %s", resp.Status)
	}
	return nil
}
