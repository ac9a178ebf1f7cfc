// Package sshconn opens password-authenticated SSH connections for the
// remote-shell and SFTP actions.
package sshconn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

const DefaultTimeout = 30 * time.Second

// ErrAuth is returned when the server rejects the credentials.
var ErrAuth = errors.New("authentication failed: invalid credentials")

// Params identifies the server and the account.
type Params struct {
	Host     string
	Port     int
	User     string
	Password string
	Timeout  time.Duration
}

// Addr returns host:port.
func (p Params) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// ErrTimeout is returned when an operation outlives Params.Timeout.
var ErrTimeout = errors.New("operation timed out")

// Bound limits ctx to p.Timeout, or DefaultTimeout when unset. The whole
// operation, not only the dial, must run under the returned context.
func (p Params) Bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, p.Timeout)
}

// Cause returns err as seen by the caller: when ctx hit its deadline the
// transport error is replaced by ErrTimeout.
func Cause(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Dial connects and authenticates. Host keys are accepted without
// verification; test targets are typically ephemeral lab machines.
func Dial(ctx context.Context, p Params) (*ssh.Client, error) {
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	cfg := &ssh.ClientConfig{
		User:            p.User,
		Auth:            []ssh.AuthMethod{ssh.Password(p.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         p.Timeout,
	}

	d := net.Dialer{Timeout: p.Timeout}
	conn, err := d.DialContext(ctx, "tcp", p.Addr())
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(p.Timeout))
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, p.Addr(), cfg)
	if err != nil {
		conn.Close()
		if strings.Contains(err.Error(), "unable to authenticate") {
			return nil, fmt.Errorf("%w: %v", ErrAuth, err)
		}
		return nil, err
	}
	// Handshake done; the session is bounded by ctx through CloseOnDone.
	conn.SetDeadline(time.Time{})
	return ssh.NewClient(c, chans, reqs), nil
}

// CloseOnDone closes c when ctx ends. The returned func stops the watch.
func CloseOnDone(ctx context.Context, c interface{ Close() error }) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-done:
		}
	}()
	return func() { close(done) }
}
