package action

import (
	"context"
	"fmt"
	"runtime/debug"
	"slices"

	"github.com/specialistvlad/testgrid/internal/ctxlog"
)

// Run is the action execution boundary. It validates req.Config, executes a
// and converts every panic into a failed Outcome carrying an
// *UnexpectedError, so nothing escapes past the action as a raw fault.
// The returned Outcome is never nil.
func Run(ctx context.Context, a Action, req *Request) (out *Outcome) {
	logger := ctxlog.FromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			uerr := &UnexpectedError{Value: r, Stack: debug.Stack()}
			logger.Error("Action panicked.", "panic", r)
			if out == nil {
				out = NewOutcome()
			}
			out.Fail(uerr)
			out.Traces = append(out.Traces, uerr.StackTrace())
		}
	}()

	if err := ctx.Err(); err != nil {
		return Failed(fmt.Errorf("action not started: %w", err))
	}
	if req == nil {
		req = &Request{}
	}
	if req.Config == nil {
		req.Config = Config{}
	}

	if err := a.Validate(req.Config); err != nil {
		logger.Debug("Action configuration rejected.", "error", err)
		return Failed(err)
	}

	out = a.Execute(ctx, req)
	if out == nil {
		return Failed(&UnexpectedError{Value: "action returned no outcome"})
	}
	if out.StatusCode != 0 && out.Err == nil {
		out.Err = fmt.Errorf("action exited with status %d", out.StatusCode)
	}
	return out
}

// CheckRequired returns a *ValidationError for the first required field of
// fields that is absent or blank in cfg.
func CheckRequired(fields []Field, cfg Config) error {
	for _, f := range fields {
		if f.Required && !cfg.Has(f.Name) {
			return Missing(f.Name)
		}
	}
	return nil
}

// CheckOneOf rejects a value of key outside allowed, comparing upper-cased.
// Empty values pass.
func CheckOneOf(cfg Config, key string, allowed ...string) error {
	v := cfg.Upper(key)
	if v == "" {
		return nil
	}
	if !slices.Contains(allowed, v) {
		return Invalid(key, "unsupported value '%s' (allowed: %v)", cfg.String(key), allowed)
	}
	return nil
}

// ValidateFields checks required fields and then the types of every field
// against the schema derived from fields.
func ValidateFields(title string, fields []Field, cfg Config) error {
	if err := CheckRequired(fields, cfg); err != nil {
		return err
	}
	return ValidateSchema(title, fields, cfg)
}
