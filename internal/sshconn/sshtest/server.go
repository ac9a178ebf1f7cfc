// Package sshtest runs an in-process SSH server for tests. It serves exec
// requests through a caller supplied function and the sftp subsystem from
// an in-memory filesystem.
package sshtest

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// ExecFunc handles one exec request.
type ExecFunc func(command string) (stdout, stderr string, exitCode int)

// Option adjusts a Server before it starts accepting connections.
type Option func(*Server)

// WithSFTPDelay makes the server wait d before answering an sftp
// subsystem request.
func WithSFTPDelay(d time.Duration) Option {
	return func(s *Server) { s.sftpDelay = d }
}

// Server is a running test SSH server.
type Server struct {
	Host     string
	Port     int
	User     string
	Password string

	exec      ExecFunc
	ln        net.Listener
	handlers  sftp.Handlers
	sftpDelay time.Duration
	wg        sync.WaitGroup

	mu       sync.Mutex
	commands []string
}

// Start starts a server accepting user/password. It is stopped when the
// test ends.
func Start(t *testing.T, user, password string, exec ExecFunc, opts ...Option) *Server {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("host key signer: %v", err)
	}
	cfg := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == user && string(pass) == password {
				return nil, nil
			}
			return nil, errors.New("access denied")
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	host, port, _ := net.SplitHostPort(ln.Addr().String())
	p, _ := strconv.Atoi(port)

	s := &Server{
		Host:     host,
		Port:     p,
		User:     user,
		Password: password,
		exec:     exec,
		ln:       ln,
		handlers: sftp.InMemHandler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.wg.Add(1)
	go s.serve(cfg)
	t.Cleanup(func() {
		ln.Close()
		s.wg.Wait()
	})
	return s
}

// Commands returns the commands executed so far.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *Server) serve(cfg *ssh.ServerConfig) {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn, cfg)
	}
}

func (s *Server) handleConn(conn net.Conn, cfg *ssh.ServerConfig) {
	defer conn.Close()
	sconn, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		return
	}
	defer sconn.Close()
	go ssh.DiscardRequests(reqs)

	for nc := range chans {
		if nc.ChannelType() != "session" {
			nc.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}
		ch, requests, err := nc.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(ch, requests)
	}
}

func (s *Server) handleSession(ch ssh.Channel, requests <-chan *ssh.Request) {
	defer ch.Close()
	for req := range requests {
		switch req.Type {
		case "exec":
			var p struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &p); err != nil {
				req.Reply(false, nil)
				continue
			}
			req.Reply(true, nil)
			s.mu.Lock()
			s.commands = append(s.commands, p.Command)
			s.mu.Unlock()

			stdout, stderr, code := "", "", 0
			if s.exec != nil {
				stdout, stderr, code = s.exec(p.Command)
			}
			io.WriteString(ch, stdout)
			io.WriteString(ch.Stderr(), stderr)
			ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{uint32(code)}))
			return
		case "subsystem":
			var p struct{ Name string }
			if err := ssh.Unmarshal(req.Payload, &p); err != nil || p.Name != "sftp" {
				req.Reply(false, nil)
				continue
			}
			req.Reply(true, nil)
			if s.sftpDelay > 0 {
				time.Sleep(s.sftpDelay)
			}
			srv := sftp.NewRequestServer(ch, s.handlers)
			srv.Serve()
			srv.Close()
			return
		default:
			req.Reply(false, nil)
		}
	}
}
