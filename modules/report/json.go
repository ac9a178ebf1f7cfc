package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/model"
	"github.com/specialistvlad/testgrid/internal/reporter"
)

// JSON renders the report as a JSON document with a summary block.
type JSON struct {
	// Now defaults to time.Now.
	Now func() time.Time
}

func (j *JSON) Info() action.Info {
	return action.Info{Version: "1.0.0", Author: "testgrid", Description: "Generates a JSON test report"}
}

func (j *JSON) Format() string { return "json" }

func (j *JSON) Inputs() []action.Field {
	return []action.Field{
		{Name: "indent", Type: action.FieldNumber, Label: "Indentation (spaces, 0 for compact)", Default: 2},
	}
}

// Summary aggregates the per-test statuses.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

type jsonDocument struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Summary     Summary       `json:"summary"`
	Report      *model.Report `json:"report"`
}

func (j *JSON) Generate(r *model.Report, cfg action.Config) (*reporter.Rendered, error) {
	if err := action.ValidateSchema("json", j.Inputs(), cfg); err != nil {
		return nil, err
	}
	indent, err := cfg.Int("indent", 2)
	if err != nil {
		return nil, err
	}
	if indent < 0 || indent > 8 {
		return nil, action.Invalid("indent", "must be between 0 and 8, got %d", indent)
	}
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	ts := now()

	passed, failed, skipped := r.Counts()
	doc := jsonDocument{
		GeneratedAt: ts.UTC(),
		Summary:     Summary{Total: len(r.Results), Passed: passed, Failed: failed, Skipped: skipped},
		Report:      r,
	}
	var data []byte
	if indent == 0 {
		data, err = json.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", fmt.Sprintf("%*s", indent, ""))
	}
	if err != nil {
		return nil, fmt.Errorf("render json report: %w", err)
	}
	return &reporter.Rendered{
		FileName:    fileName(r, ts, "json"),
		ContentType: "application/json",
		Data:        data,
	}, nil
}
