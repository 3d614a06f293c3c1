package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/inboxpilot/backend/internal/models"
)

const unreadQuery = "is:unread label:inbox"

// GmailSource reads a Gmail inbox over the REST API. One authenticated
// client is constructed at startup and reused across runs.
type GmailSource struct {
	BaseURL     string
	AccessToken string
	PageSize    int
	Client      *http.Client
}

func NewGmailSource(baseURL, token string, pageSize int) *GmailSource {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &GmailSource{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		AccessToken: token,
		PageSize:    pageSize,
		Client:      &http.Client{Timeout: 30 * time.Second},
	}
}

type listResponse struct {
	Messages []struct {
		ID       string `json:"id"`
		ThreadID string `json:"threadId"`
	} `json:"messages"`
}

type messagePart struct {
	MimeType string `json:"mimeType"`
	Body     struct {
		Data string `json:"data"`
	} `json:"body"`
	Parts []messagePart `json:"parts"`
}

type messageResponse struct {
	ID           string `json:"id"`
	ThreadID     string `json:"threadId"`
	InternalDate string `json:"internalDate"`
	Payload      struct {
		Headers []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"headers"`
		messagePart
	} `json:"payload"`
}

func (g *GmailSource) ListUnread(ctx context.Context) ([]Handle, error) {
	q := url.Values{}
	q.Set("q", unreadQuery)
	q.Set("maxResults", strconv.Itoa(g.PageSize))

	var res listResponse
	if err := g.do(ctx, http.MethodGet, "/gmail/v1/users/me/messages?"+q.Encode(), nil, &res); err != nil {
		return nil, err
	}
	out := make([]Handle, 0, len(res.Messages))
	for _, m := range res.Messages {
		out = append(out, Handle{ID: m.ID, ThreadID: m.ThreadID})
	}
	return out, nil
}

func (g *GmailSource) FetchFull(ctx context.Context, id string) (models.Message, error) {
	var res messageResponse
	if err := g.do(ctx, http.MethodGet, "/gmail/v1/users/me/messages/"+url.PathEscape(id)+"?format=full", nil, &res); err != nil {
		return models.Message{}, err
	}

	msg := models.Message{ID: res.ID, ThreadID: res.ThreadID}
	for _, h := range res.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			msg.From = h.Value
		case "to":
			msg.To = h.Value
		case "subject":
			msg.Subject = h.Value
		}
	}
	if ms, err := strconv.ParseInt(res.InternalDate, 10, 64); err == nil {
		msg.Date = time.UnixMilli(ms).UTC()
	} else {
		msg.Date = time.Now().UTC()
	}

	body := extractBody(res.Payload.messagePart)
	msg.Body = StripQuoted(body)
	return msg, nil
}

func (g *GmailSource) MarkRead(ctx context.Context, id string) error {
	payload := map[string][]string{"removeLabelIds": {"UNREAD"}}
	return g.do(ctx, http.MethodPost, "/gmail/v1/users/me/messages/"+url.PathEscape(id)+"/modify", payload, nil)
}

func (g *GmailSource) do(ctx context.Context, method, path string, payload any, out any) error {
	var body *bytes.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.AccessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gmail api error: %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// extractBody walks the MIME tree depth-first, preferring text/plain.
func extractBody(part messagePart) string {
	if strings.HasPrefix(part.MimeType, "text/plain") && part.Body.Data != "" {
		return decodeBase64URL(part.Body.Data)
	}
	for _, p := range part.Parts {
		if b := extractBody(p); b != "" {
			return b
		}
	}
	if part.Body.Data != "" {
		return decodeBase64URL(part.Body.Data)
	}
	return ""
}

func decodeBase64URL(data string) string {
	if b, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	return ""
}
