// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"net"
	netmail "net/mail"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"

	"github.com/pdiddy/natal-engine/pkg/types"
)

const reportText = "Birth Chart for Ana\nSun:\n  Sign: Aries\n  Degrees: 25.98°\n"

func writeReport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "planetary_positions_ana.txt")
	require.NoError(t, os.WriteFile(path, []byte(reportText), 0o644))
	return path
}

type parsedMail struct {
	header     netmail.Header
	body       string
	attachName string
	attachData []byte
}

func parse(t *testing.T, raw []byte) parsedMail {
	t.Helper()
	msg, err := netmail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/mixed", mediaType)

	var out parsedMail
	out.header = msg.Header

	mr := multipart.NewReader(msg.Body, params["boundary"])
	text, err := mr.NextPart()
	require.NoError(t, err)
	b, err := io.ReadAll(text)
	require.NoError(t, err)
	out.body = strings.ReplaceAll(string(b), "\r\n", "\n")

	att, err := mr.NextPart()
	require.NoError(t, err)
	out.attachName = att.FileName()
	enc, err := io.ReadAll(att)
	require.NoError(t, err)
	out.attachData, err = base64.StdEncoding.DecodeString(strings.NewReplacer("\r", "", "\n", "").Replace(string(enc)))
	require.NoError(t, err)

	_, err = mr.NextPart()
	assert.ErrorIs(t, err, io.EOF)
	return out
}

func TestChartMessage(t *testing.T) {
	msg, err := ChartMessage("ana@example.com", "Ana", writeReport(t))
	require.NoError(t, err)

	assert.Equal(t, "Birth Chart for Ana", msg.Subject)
	assert.Equal(t, "Dear Ana,\n\nPlease find attached your birth chart planetary positions.", msg.Body)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "planetary_positions_ana.txt", msg.Attachments[0].Name)
	assert.Equal(t, reportText, string(msg.Attachments[0].Data))
}

func TestChartMessageMissingReport(t *testing.T) {
	_, err := ChartMessage("ana@example.com", "Ana", filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func composed(t *testing.T, s *SMTP, msg Message) []byte {
	t.Helper()
	m, err := s.newMsg(msg)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestNewMsg(t *testing.T) {
	msg, err := ChartMessage("ana@example.com", "Ana", writeReport(t))
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	s := NewSMTP(types.MailConfig{Host: "localhost", From: "charts@example.com"}, nil)
	s.now = func() time.Time { return now }

	got := parse(t, composed(t, s, msg))

	from, err := got.header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "charts@example.com", from[0].Address)
	to, err := got.header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, "ana@example.com", to[0].Address)

	assert.Equal(t, "Birth Chart for Ana", got.header.Get("Subject"))
	assert.True(t, strings.HasSuffix(got.header.Get("Message-ID"), "@natal-engine>"))

	date, err := got.header.Date()
	require.NoError(t, err)
	assert.True(t, date.Equal(now))

	assert.Equal(t, msg.Body, strings.TrimSpace(got.body))
	assert.Equal(t, "planetary_positions_ana.txt", got.attachName)
	assert.Equal(t, reportText, string(got.attachData))
}

func TestNewMsgEncodesNonASCIISubject(t *testing.T) {
	s := NewSMTP(types.MailConfig{Host: "localhost", From: "a@example.com"}, nil)
	raw := composed(t, s, Message{To: "b@example.com", Subject: "Birth Chart for José", Body: "hola"})

	msg, err := netmail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(msg.Header.Get("Subject"), "=?"), "subject not encoded: %q", msg.Header.Get("Subject"))

	dec := new(mime.WordDecoder)
	subject, err := dec.DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Birth Chart for José", subject)
}

func TestNewMsgRejectsBadAddress(t *testing.T) {
	s := NewSMTP(types.MailConfig{Host: "localhost", From: "not an address"}, nil)
	_, err := s.newMsg(Message{To: "b@example.com"})
	assert.Error(t, err)
}

type smtpSession struct {
	auth string
	data []byte
}

// fakeSMTP accepts one session without STARTTLS and reports what it received
// on the channel. rejectRcpt makes RCPT TO fail.
func fakeSMTP(t *testing.T, rejectRcpt bool) (string, int, <-chan smtpSession) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	got := make(chan smtpSession, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		var sess smtpSession
		tc := textproto.NewConn(conn)
		tc.PrintfLine("220 localhost ESMTP test")
		for {
			line, err := tc.ReadLine()
			if err != nil {
				return
			}
			cmd := strings.ToUpper(line)
			switch {
			case strings.HasPrefix(cmd, "EHLO"):
				tc.PrintfLine("250-localhost")
				tc.PrintfLine("250-AUTH PLAIN")
				tc.PrintfLine("250 8BITMIME")
			case strings.HasPrefix(cmd, "AUTH PLAIN"):
				sess.auth = strings.TrimSpace(line[len("AUTH PLAIN"):])
				tc.PrintfLine("235 2.7.0 accepted")
			case strings.HasPrefix(cmd, "MAIL FROM"):
				tc.PrintfLine("250 OK")
			case strings.HasPrefix(cmd, "RCPT TO"):
				if rejectRcpt {
					tc.PrintfLine("550 no such user")
				} else {
					tc.PrintfLine("250 OK")
				}
			case cmd == "DATA":
				tc.PrintfLine("354 end with .")
				data, err := tc.ReadDotBytes()
				if err != nil {
					return
				}
				sess.data = data
				got <- sess
				tc.PrintfLine("250 queued")
			case cmd == "NOOP", cmd == "RSET":
				tc.PrintfLine("250 OK")
			case cmd == "QUIT":
				tc.PrintfLine("221 bye")
				return
			default:
				tc.PrintfLine("502 not implemented")
			}
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port, got
}

func TestSMTPSend(t *testing.T) {
	host, port, got := fakeSMTP(t, false)
	s := NewSMTP(types.MailConfig{Host: host, Port: port, From: "charts@example.com"}, nil)

	msg, err := ChartMessage("ana@example.com", "Ana", writeReport(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Send(ctx, msg))

	select {
	case sess := <-got:
		assert.Empty(t, sess.auth)
		p := parse(t, sess.data)
		assert.Equal(t, "Birth Chart for Ana", p.header.Get("Subject"))
		assert.Equal(t, reportText, string(p.attachData))
	case <-time.After(5 * time.Second):
		t.Fatal("server received no message")
	}
}

func TestSMTPSendAuthenticates(t *testing.T) {
	host, port, got := fakeSMTP(t, false)
	s := NewSMTP(types.MailConfig{
		Host: host, Port: port, From: "charts@example.com",
		Username: "charts", Password: "hunter2 pass",
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Send(ctx, Message{To: "ana@example.com", Subject: "x", Body: "y"}))

	select {
	case sess := <-got:
		cred, err := base64.StdEncoding.DecodeString(sess.auth)
		require.NoError(t, err)
		assert.Equal(t, "\x00charts\x00hunter2 pass", string(cred))
	case <-time.After(5 * time.Second):
		t.Fatal("server received no message")
	}
}

func TestSMTPSendRejectedRecipient(t *testing.T) {
	host, port, _ := fakeSMTP(t, true)
	s := NewSMTP(types.MailConfig{Host: host, Port: port, From: "charts@example.com"}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.Send(ctx, Message{To: "ghost@example.com", Subject: "x", Body: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost@example.com")
	var sendErr *gomail.SendError
	assert.ErrorAs(t, err, &sendErr)
}

func TestSMTPSendNotConfigured(t *testing.T) {
	s := NewSMTP(types.MailConfig{}, nil)
	err := s.Send(context.Background(), Message{To: "a@example.com"})
	assert.Error(t, err)

	s = NewSMTP(types.MailConfig{Host: "localhost", From: "x@example.com"}, nil)
	assert.Equal(t, DefaultPort, s.cfg.Port)
	err = s.Send(context.Background(), Message{To: " "})
	assert.Error(t, err)
}
