package blog

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareMessage(t *testing.T) {
	form := EmailPostForm{Name: "Ann", Email: "ann@example.com", To: "bob@example.com", Comments: "Worth it"}
	post := &Post{Title: "Gardening Tips"}

	msg := ShareMessage(form, post, "https://example.com/blog/2026/3/10/gardening-tips/", "blog@example.com")
	assert.Equal(t, "Ann recommends you read Gardening Tips", msg.Subject)
	assert.Equal(t,
		"Read Gardening Tips at https://example.com/blog/2026/3/10/gardening-tips/\n\nAnn's comments: Worth it",
		msg.Body)
	assert.Equal(t, "blog@example.com", msg.From)
	assert.Equal(t, []string{"bob@example.com"}, msg.To)
}

func TestBuildMessage(t *testing.T) {
	raw := string(buildMessage(Message{
		Subject: "Ann recommends you read Café notes",
		Body:    "line one\nline two",
		From:    "blog@example.com",
		To:      []string{"bob@example.com", "eve@example.com"},
	}))
	head, body, found := strings.Cut(raw, "\r\n\r\n")
	require.True(t, found)
	assert.Contains(t, head, "From: blog@example.com\r\n")
	assert.Contains(t, head, "To: bob@example.com, eve@example.com\r\n")
	assert.Contains(t, head, "Subject: =?utf-8?q?")
	assert.Contains(t, head, "Content-Type: text/plain; charset=UTF-8")
	assert.Equal(t, "line one\r\nline two", body)
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := LogMailer{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	require.NoError(t, m.Send(context.Background(), Message{Subject: "hi", To: []string{"bob@example.com"}}))
	assert.Contains(t, buf.String(), "subject=hi")
}

func TestNewSMTPMailer(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{})
	assert.Error(t, err)

	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com"})
	require.NoError(t, err)
	assert.Equal(t, 587, m.cfg.Port)

	assert.Error(t, m.Send(context.Background(), Message{}), "no recipients")
}
