package discovery

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMX is a scripted SMTP server good for exactly one session. rcptReply is
// the full reply line for RCPT TO; closeAfter names the phase at which the
// server drops the connection without replying ("greeting", "helo", "mail",
// "rcpt" or empty for a polite session).
type fakeMX struct {
	listener   net.Listener
	rcptReply  string
	closeAfter string
}

func newFakeMX(t *testing.T, rcptReply, closeAfter string) *fakeMX {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &fakeMX{listener: listener, rcptReply: rcptReply, closeAfter: closeAfter}
	go srv.serve()
	t.Cleanup(func() { listener.Close() })
	return srv
}

func (f *fakeMX) hostPort(t *testing.T) (string, string) {
	t.Helper()
	host, port, err := net.SplitHostPort(f.listener.Addr().String())
	require.NoError(t, err)
	return host, port
}

func (f *fakeMX) serve() {
	conn, err := f.listener.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	if f.closeAfter == "greeting" {
		return
	}
	write := func(line string) bool {
		_, err := conn.Write([]byte(line + "\r\n"))
		return err == nil
	}
	if !write("220 mx.test ESMTP ready") {
		return
	}

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			if f.closeAfter == "helo" {
				return
			}
			write("250 mx.test greets you")
		case strings.HasPrefix(cmd, "MAIL"):
			if f.closeAfter == "mail" {
				return
			}
			write("250 sender ok")
		case strings.HasPrefix(cmd, "RCPT"):
			if f.closeAfter == "rcpt" {
				return
			}
			write(f.rcptReply)
		case strings.HasPrefix(cmd, "QUIT"):
			write("221 bye")
			return
		default:
			write("502 command not implemented")
		}
	}
}

func newTestProber(t *testing.T, srv *fakeMX) (*SMTPProber, string) {
	t.Helper()
	host, port := srv.hostPort(t)
	prober := NewSMTPProber(3 * time.Second)
	prober.Port = port
	return prober, host
}

func TestProbeAccepted(t *testing.T) {
	srv := newFakeMX(t, "250 recipient ok", "")
	prober, host := newTestProber(t, srv)

	outcome := prober.Probe(context.Background(), "john.doe@acme.com", host)
	assert.Equal(t, Accepted, outcome.Classification)
	assert.Equal(t, 250, outcome.Code)
}

func TestProbeGreylisted(t *testing.T) {
	srv := newFakeMX(t, "451 greylisted, try again later", "")
	prober, host := newTestProber(t, srv)

	outcome := prober.Probe(context.Background(), "john.doe@acme.com", host)
	assert.Equal(t, Greylisted, outcome.Classification)
	assert.Equal(t, 451, outcome.Code)
}

func TestProbeRejected(t *testing.T) {
	srv := newFakeMX(t, "550 no such user", "")
	prober, host := newTestProber(t, srv)

	outcome := prober.Probe(context.Background(), "nobody@acme.com", host)
	assert.Equal(t, Rejected, outcome.Classification)
	assert.Equal(t, 550, outcome.Code)
}

func TestProbeDisconnectedDuringHandshake(t *testing.T) {
	for _, phase := range []string{"greeting", "helo", "mail", "rcpt"} {
		t.Run(phase, func(t *testing.T) {
			srv := newFakeMX(t, "250 ok", phase)
			prober, host := newTestProber(t, srv)

			outcome := prober.Probe(context.Background(), "john.doe@acme.com", host)
			assert.Equal(t, DisconnectedEarly, outcome.Classification)
			assert.Zero(t, outcome.Code)
		})
	}
}

func TestProbeUnreachable(t *testing.T) {
	// Grab a port, then close it so the dial is refused.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)
	listener.Close()

	prober := NewSMTPProber(2 * time.Second)
	prober.Port = port

	outcome := prober.Probe(context.Background(), "john.doe@acme.com", host)
	assert.Equal(t, Unreachable, outcome.Classification)
}

func TestProbeCancelledContext(t *testing.T) {
	srv := newFakeMX(t, "250 ok", "")
	prober, host := newTestProber(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := prober.Probe(ctx, "john.doe@acme.com", host)
	// A pre-cancelled context never even dials.
	assert.Contains(t, []Classification{Unreachable, ProbeError}, outcome.Classification)
}

func TestClassifyReplyCode(t *testing.T) {
	tests := []struct {
		code int
		want Classification
	}{
		{250, Accepted},
		{251, Accepted},
		{450, Greylisted},
		{451, Greylisted},
		{452, Greylisted},
		{421, Rejected},
		{550, Rejected},
		{553, Rejected},
	}
	for _, tt := range tests {
		outcome := classifyReplyCode(tt.code, "msg")
		assert.Equal(t, tt.want, outcome.Classification, "code %d", tt.code)
		assert.Equal(t, tt.code, outcome.Code)
	}
}
