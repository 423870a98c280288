// discovery/probe.go
package discovery

import (
	"context"
	"errors"
	"io"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"syscall"
	"time"
)

// Classification is the probe's reading of a mail server's reaction to a
// RCPT TO check.
type Classification string

const (
	// Accepted means the server answered 250 for the recipient.
	Accepted Classification = "accepted"
	// Greylisted covers 450/451/452 temporary deferrals. Many legitimate
	// mailboxes greylist unknown senders, so this is not a negative signal.
	Greylisted Classification = "greylisted"
	// Rejected covers every other 4xx/5xx reply on the recipient check.
	Rejected Classification = "rejected"
	// Unreachable means no TCP connection to the exchanger could be made.
	Unreachable Classification = "unreachable"
	// DisconnectedEarly means the server dropped the session mid-handshake,
	// a common anti-enumeration defense.
	DisconnectedEarly Classification = "disconnected_early"
	// ProbeError is any other transport-level failure, command timeouts
	// included.
	ProbeError Classification = "probe_error"
)

// Outcome is the raw probe result before scoring. Code is zero when the
// server never produced a numeric reply for the recipient check.
type Outcome struct {
	Classification Classification
	Code           int
	Detail         string
}

// Prober runs a recipient check for one candidate address against a mail
// exchanger.
type Prober interface {
	Probe(ctx context.Context, address, mxHost string) Outcome
}

// SMTPProber opens a short-lived SMTP session and issues
// HELO / MAIL FROM / RCPT TO without ever transmitting a message body.
type SMTPProber struct {
	// Timeout bounds the dial and the whole SMTP dialogue. Unresponsive
	// servers are reported as inconclusive, never as proof of absence.
	Timeout time.Duration
	// Port is the SMTP port on the exchanger, normally "25".
	Port string
	// HelloDomain is the identity announced in HELO/EHLO.
	HelloDomain string
	// FromAddress is the placeholder sender used for MAIL FROM. It must be
	// a non-identifying address, never a real user's.
	FromAddress string
}

// NewSMTPProber returns a prober with conservative defaults.
func NewSMTPProber(timeout time.Duration) *SMTPProber {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SMTPProber{
		Timeout:     timeout,
		Port:        "25",
		HelloDomain: "verify.mailscout.local",
		FromAddress: "verify@mailscout.local",
	}
}

// Probe classifies how mxHost reacts to a RCPT TO for address. Expected
// negative outcomes are classifications, not errors.
func (p *SMTPProber) Probe(ctx context.Context, address, mxHost string) Outcome {
	addr := net.JoinHostPort(mxHost, p.Port)

	dialer := net.Dialer{Timeout: p.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return Outcome{Classification: Unreachable, Detail: "connect failed: " + err.Error()}
	}
	defer conn.Close()

	// Abandon the session promptly if the caller cancels; results are
	// discarded anyway.
	watchdogDone := make(chan struct{})
	defer close(watchdogDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watchdogDone:
		}
	}()

	_ = conn.SetDeadline(time.Now().Add(p.Timeout))

	client, err := smtp.NewClient(conn, mxHost)
	if err != nil {
		return finish(ctx, classifyTransportError("greeting", err))
	}
	defer client.Close()

	if err := client.Hello(p.HelloDomain); err != nil {
		return finish(ctx, classifyCommandError("HELO", err))
	}
	if err := client.Mail(p.FromAddress); err != nil {
		return finish(ctx, classifyCommandError("MAIL FROM", err))
	}

	err = client.Rcpt(address)
	if err == nil {
		_ = client.Quit()
		return Outcome{Classification: Accepted, Code: 250, Detail: "recipient accepted"}
	}

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		outcome := classifyReplyCode(protoErr.Code, protoErr.Msg)
		_ = client.Quit()
		return outcome
	}
	return finish(ctx, classifyTransportError("RCPT TO", err))
}

// finish keeps a cancellation from masquerading as a server-side disconnect:
// the watchdog closes the socket on ctx.Done, which would otherwise read as
// DisconnectedEarly.
func finish(ctx context.Context, outcome Outcome) Outcome {
	if ctx.Err() != nil {
		return Outcome{Classification: ProbeError, Detail: "probe cancelled: " + ctx.Err().Error()}
	}
	return outcome
}

func classifyReplyCode(code int, msg string) Outcome {
	switch code {
	case 250, 251:
		return Outcome{Classification: Accepted, Code: code, Detail: "recipient accepted"}
	case 450, 451, 452:
		return Outcome{Classification: Greylisted, Code: code, Detail: msg}
	default:
		return Outcome{Classification: Rejected, Code: code, Detail: msg}
	}
}

// classifyCommandError handles failures before the recipient check. A numeric
// reply this early still tells us nothing about the mailbox, so it is scored
// as a probe error rather than a rejection.
func classifyCommandError(phase string, err error) Outcome {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return Outcome{
			Classification: ProbeError,
			Code:           protoErr.Code,
			Detail:         phase + " refused: " + protoErr.Msg,
		}
	}
	return classifyTransportError(phase, err)
}

func classifyTransportError(phase string, err error) Outcome {
	if isDisconnect(err) {
		return Outcome{
			Classification: DisconnectedEarly,
			Detail:         phase + ": server disconnected",
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Outcome{Classification: ProbeError, Detail: phase + " timed out"}
	}
	return Outcome{Classification: ProbeError, Detail: phase + " failed: " + err.Error()}
}

func isDisconnect(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "broken pipe")
}
