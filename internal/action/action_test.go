package action

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAction is a configurable Action used to exercise Run.
type stubAction struct {
	fields  []Field
	execute func(ctx context.Context, req *Request) *Outcome
}

func (s *stubAction) Info() Info        { return Info{Version: "1.0.0"} }
func (s *stubAction) Inputs() []Field   { return s.fields }
func (s *stubAction) Outputs() []Output { return nil }
func (s *stubAction) Validate(cfg Config) error {
	return CheckRequired(s.fields, cfg)
}
func (s *stubAction) Execute(ctx context.Context, req *Request) *Outcome {
	return s.execute(ctx, req)
}

func TestRun_Success(t *testing.T) {
	a := &stubAction{execute: func(ctx context.Context, req *Request) *Outcome {
		out := NewOutcome()
		out.Tracef("hello %s", req.Config.String("name"))
		out.Set("greeting", "hi")
		return out
	}}

	out := Run(context.Background(), a, &Request{Config: Config{"name": "world"}})

	require.True(t, out.OK())
	assert.NoError(t, out.Err)
	assert.Equal(t, []string{"hello world"}, out.Traces)
	assert.Equal(t, "hi", out.Outputs["greeting"])
}

func TestRun_ValidationFailureNamesField(t *testing.T) {
	executed := false
	a := &stubAction{
		fields: []Field{{Name: "host", Required: true}, {Name: "port"}},
		execute: func(ctx context.Context, req *Request) *Outcome {
			executed = true
			return NewOutcome()
		},
	}

	out := Run(context.Background(), a, &Request{Config: Config{"host": "   "}})

	require.False(t, out.OK())
	assert.False(t, executed, "execute must not run when validation fails")
	var verr *ValidationError
	require.ErrorAs(t, out.Err, &verr)
	assert.Equal(t, "host", verr.Field)
	assert.Contains(t, out.Traces[0], "missing required field 'host'")
}

func TestRun_PanicIsContained(t *testing.T) {
	a := &stubAction{execute: func(ctx context.Context, req *Request) *Outcome {
		panic("boom")
	}}

	out := Run(context.Background(), a, nil)

	require.Equal(t, 1, out.StatusCode)
	var uerr *UnexpectedError
	require.ErrorAs(t, out.Err, &uerr)
	assert.Equal(t, "boom", uerr.Value)
	assert.NotEmpty(t, uerr.StackTrace())
	assert.Contains(t, out.Traces[0], "unexpected error: boom")
}

func TestRun_NilOutcomeIsFailure(t *testing.T) {
	a := &stubAction{execute: func(ctx context.Context, req *Request) *Outcome { return nil }}

	out := Run(context.Background(), a, &Request{})

	assert.Equal(t, 1, out.StatusCode)
	assert.Error(t, out.Err)
}

func TestRun_NonZeroStatusGetsError(t *testing.T) {
	a := &stubAction{execute: func(ctx context.Context, req *Request) *Outcome {
		return &Outcome{StatusCode: 3}
	}}

	out := Run(context.Background(), a, &Request{})

	assert.EqualError(t, out.Err, "action exited with status 3")
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := &stubAction{execute: func(ctx context.Context, req *Request) *Outcome {
		t.Fatal("execute must not be called on a cancelled context")
		return nil
	}}

	out := Run(ctx, a, &Request{})

	require.False(t, out.OK())
	assert.True(t, errors.Is(out.Err, context.Canceled))
}

func TestTransportError_Unwraps(t *testing.T) {
	base := errors.New("connection refused")

	err := Transport("dial", base)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "dial", terr.Op)
	assert.ErrorIs(t, err, base)
	assert.Nil(t, Transport("dial", nil))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short string is kept", in: "abc", n: 5, want: "abc"},
		{name: "ascii is cut at n", in: "abcdef", n: 4, want: "abcd"},
		{name: "two-byte rune is not split", in: "aé", n: 2, want: "a"},
		{name: "three-byte rune is not split", in: "ab€", n: 4, want: "ab"},
		{name: "cut on a rune boundary", in: "é€x", n: 5, want: "é€"},
		{name: "zero", in: "abc", n: 0, want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Truncate(tc.in, tc.n)

			assert.Equal(t, tc.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
