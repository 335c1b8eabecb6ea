package sendgrid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ouvidoriag/ogdash2/internal/platform/logger"
)

func TestSendBuildsMailPayload(t *testing.T) {
	var got mailSendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" {
			t.Errorf("path: got=%s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("X-Message-Id", "msg-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c, err := New(logger.Nop(), Config{APIKey: "key", BaseURL: srv.URL + "/", DefaultFromEmail: "ouvidoria@pref.rj.gov.br"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := c.Send(context.Background(), SendEmailRequest{
		To:      []EmailAddress{{Email: "saude@pref.rj.gov.br"}},
		Subject: " Manifestação 2024-0001 vence hoje ",
		Text:    "Prazo: 30 dias",
		HTML:    "<p>Prazo: 30 dias</p>",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.MessageID != "msg-1" || res.StatusCode != http.StatusAccepted {
		t.Fatalf("result: %+v", res)
	}
	if auth != "Bearer key" {
		t.Fatalf("auth header: got=%q", auth)
	}
	if got.From.Email != "ouvidoria@pref.rj.gov.br" || got.Subject != "Manifestação 2024-0001 vence hoje" {
		t.Fatalf("payload: %+v", got)
	}
	if len(got.Content) != 2 || got.Content[0].Type != "text/plain" || got.Content[1].Type != "text/html" {
		t.Fatalf("content: %+v", got.Content)
	}
}

func TestSendClientErrorIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"invalid to address"}]}`))
	}))
	defer srv.Close()

	c, err := New(logger.Nop(), Config{APIKey: "key", BaseURL: srv.URL, DefaultFromEmail: "a@b", MaxRetries: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Send(context.Background(), SendEmailRequest{To: []EmailAddress{{Email: "x"}}, Subject: "s", Text: "t"})
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusBadRequest {
		t.Fatalf("want HTTPError 400 got=%v", err)
	}
	if he.Error() != "sendgrid http 400: invalid to address" {
		t.Fatalf("message: got=%q", he.Error())
	}
	if calls != 1 {
		t.Fatalf("calls: want=1 got=%d", calls)
	}
}

func TestSendValidatesRequest(t *testing.T) {
	c, err := New(logger.Nop(), Config{APIKey: "key"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Send(context.Background(), SendEmailRequest{To: []EmailAddress{{Email: "x"}}, Subject: "s", Text: "t"}); err == nil {
		t.Fatalf("missing from: want error")
	}
	if _, err := New(logger.Nop(), Config{}); err == nil {
		t.Fatalf("missing api key: want error")
	}
}
