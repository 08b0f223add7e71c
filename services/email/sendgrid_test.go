package emailsvc

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edukanda/edukanda/core"
	logsvc "github.com/edukanda/edukanda/services/logger"
)

func newTestConf() *core.Config {
	return &core.Config{
		Env:              "TEST",
		TestMode:         true,
		AppName:          "EduKanda",
		DefaultFromEmail: "EduKanda <noreply@edukanda.ao>",
		SendgridApiKey:   "SG.test",
		FrontendBaseURL:  "http://localhost:5173",
	}
}

func newTestLogger(buf *bytes.Buffer) core.Logger {
	return logsvc.NewRollbarLogger(log.New(buf, "TEST : ", 0), newTestConf())
}

func TestSendgridPrepare(t *testing.T) {
	svc := NewSendgridService(newTestConf(), newTestLogger(new(bytes.Buffer)))
	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "Renato", Address: "renato@edukanda.ao"}},
		Cc:          []mail.Address{{Address: "ana@edukanda.ao"}},
		Subject:     "Welcome!",
		TextContent: "hello",
	}

	m := svc.prepare(msg)
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[EduKanda] Welcome!", m.Personalizations[0].Subject)
	assert.Equal(t, "renato@edukanda.ao", m.Personalizations[0].To[0].Address)
	assert.Equal(t, "ana@edukanda.ao", m.Personalizations[0].CC[0].Address)
	assert.Equal(t, "noreply@edukanda.ao", m.From.Address)
	require.Len(t, m.Content, 1) // no html part
	assert.Equal(t, "text/plain", m.Content[0].Type)
}

func TestSendgridSend(t *testing.T) {
	var got map[string]interface{}
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	origHost := host
	host = srv.URL
	defer func() { host = origHost }()

	var logs bytes.Buffer
	svc := NewSendgridService(newTestConf(), newTestLogger(&logs))
	svc.send(core.EmailMessage{
		To:          []mail.Address{{Address: "renato@edukanda.ao"}},
		Subject:     "Hi",
		TextContent: "hello",
	})

	assert.Equal(t, "Bearer SG.test", auth)
	assert.NotNil(t, got["personalizations"])
	assert.Empty(t, logs.String())
}

func TestSendgridAttachments(t *testing.T) {
	var got struct {
		Attachments []struct {
			Content     string `json:"content"`
			Type        string `json:"type"`
			Filename    string `json:"filename"`
			Disposition string `json:"disposition"`
		} `json:"attachments"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	origHost := host
	host = srv.URL
	defer func() { host = origHost }()

	msg := &core.EmailMessage{
		To:      []mail.Address{{Address: "dir@edukanda.ao"}},
		Subject: "Ranking report",
		BodyStr: "attached",
	}
	require.NoError(t, msg.Attach(bytes.NewReader([]byte("1,2850")), "ranking.csv", "text/csv"))

	var logs bytes.Buffer
	svc := NewSendgridService(newTestConf(), newTestLogger(&logs))
	svc.SendMessages(msg)
	svc.Wait()

	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "MSwyODUw", got.Attachments[0].Content)
	assert.Equal(t, "text/csv", got.Attachments[0].Type)
	assert.Equal(t, "ranking.csv", got.Attachments[0].Filename)
	assert.Equal(t, "attachment", got.Attachments[0].Disposition)
	assert.Empty(t, logs.String())
}

func TestNewService(t *testing.T) {
	conf := newTestConf()
	logger := newTestLogger(new(bytes.Buffer))
	assert.IsType(t, &sendgridService{}, NewService(conf, logger))

	conf.SendgridApiKey = ""
	assert.IsType(t, &ConsoleService{}, NewService(conf, logger))
}
