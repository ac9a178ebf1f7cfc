package sftp_transfer

import (
	"context"
	"testing"
	"time"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/sshconn"
	"github.com/specialistvlad/testgrid/internal/sshconn/sshtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, s *sshtest.Server, cfg action.Config) *action.Outcome {
	t.Helper()
	cfg["host"] = s.Host
	cfg["port"] = float64(s.Port)
	cfg["username"] = s.User
	cfg["password"] = s.Password
	return action.Run(context.Background(), new(Action), &action.Request{Config: cfg})
}

func TestAction_RoundTrip(t *testing.T) {
	// --- Arrange ---
	srv := sshtest.Start(t, "tester", "secret", nil)

	// --- Act: upload ---
	put := run(t, srv, action.Config{"method": "PUT", "remote_path": "/hello.txt", "content": "hello sftp"})

	// --- Assert ---
	require.True(t, put.OK(), "traces: %v", put.Traces)
	assert.Equal(t, "true", put.Outputs["sftp_operation_success"])
	assert.Equal(t, 10, put.Outputs["sftp_file_size"])

	// --- Act: download ---
	get := run(t, srv, action.Config{"method": "get", "remote_path": "/hello.txt"})

	require.True(t, get.OK(), "traces: %v", get.Traces)
	assert.Equal(t, "hello sftp", get.Outputs["sftp_file_content"])
	assert.Equal(t, int64(10), get.Outputs["sftp_file_size"])

	// --- Act: list ---
	list := run(t, srv, action.Config{"method": "LIST", "remote_path": "/"})

	require.True(t, list.OK(), "traces: %v", list.Traces)
	entries, ok := list.Outputs["sftp_file_list"].([]Entry)
	require.True(t, ok)
	assert.Contains(t, entries, Entry{Name: "hello.txt", Size: 10})

	// --- Act: delete ---
	del := run(t, srv, action.Config{"method": "DELETE", "remote_path": "/hello.txt"})
	require.True(t, del.OK(), "traces: %v", del.Traces)

	again := run(t, srv, action.Config{"method": "GET", "remote_path": "/hello.txt"})
	require.False(t, again.OK())
	assert.Equal(t, "false", again.Outputs["sftp_operation_success"])
	var te *action.TransportError
	assert.ErrorAs(t, again.Err, &te)
}

func TestAction_ConnectFailure(t *testing.T) {
	srv := sshtest.Start(t, "tester", "secret", nil)
	srv.Password = "wrong"

	out := run(t, srv, action.Config{"method": "LIST", "remote_path": "/"})

	require.False(t, out.OK())
	assert.Contains(t, out.Err.Error(), "sftp connect")
}

func TestAction_TimeoutBoundsSession(t *testing.T) {
	// --- Arrange ---
	srv := sshtest.Start(t, "tester", "secret", nil, sshtest.WithSFTPDelay(3*time.Second))

	// --- Act ---
	start := time.Now()
	out := run(t, srv, action.Config{"method": "LIST", "remote_path": "/", "timeout": float64(1)})
	elapsed := time.Since(start)

	// --- Assert ---
	require.False(t, out.OK())
	assert.Less(t, elapsed, 2500*time.Millisecond)
	var te *action.TransportError
	require.ErrorAs(t, out.Err, &te)
	assert.Equal(t, "sftp session", te.Op)
	assert.ErrorIs(t, out.Err, sshconn.ErrTimeout)
	assert.Equal(t, "false", out.Outputs["sftp_operation_success"])
}

func TestAction_Validate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   action.Config
		field string
	}{
		{"missing path", action.Config{"method": "GET", "host": "h", "username": "u", "password": "p"}, "remote_path"},
		{"bad method", action.Config{"method": "CHMOD", "host": "h", "username": "u", "password": "p", "remote_path": "/"}, "method"},
		{"bad port", action.Config{"method": "GET", "host": "h", "username": "u", "password": "p", "remote_path": "/", "port": "abc"}, "port"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := new(Action).Validate(tc.cfg)

			var ve *action.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}
