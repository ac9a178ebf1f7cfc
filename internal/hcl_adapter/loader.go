package hcl_adapter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/specialistvlad/testgrid/internal/ctxlog"
	"github.com/specialistvlad/testgrid/internal/fsutil"
	"github.com/specialistvlad/testgrid/internal/model"
)

// Definitions is the decoded content of a set of definition files.
type Definitions struct {
	Variables []*model.Variable
	Tests     []*model.Test
	Campaigns []*model.Campaign
	// Files lists the parsed files in load order.
	Files []string
}

// Loader reads HCL definition files.
type Loader struct {
	// Getenv backs the env() function. Nil means os.Getenv.
	Getenv func(string) string
}

// NewLoader creates a new HCL definitions loader.
func NewLoader() *Loader {
	return &Loader{}
}

// origin remembers where a labelled block was declared.
type origin map[string]string

func (o origin) claim(kind, id, file string) error {
	key := kind + " " + id
	if prev, ok := o[key]; ok {
		return fmt.Errorf("duplicate %s %q: declared in %s and %s", kind, id, prev, file)
	}
	o[key] = file
	return nil
}

// Load parses every .hcl file under paths. A path may be a file or a
// directory; missing paths are skipped. Duplicate ids are an error.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Definitions, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := findHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	defs := &Definitions{Files: files}
	seen := origin{}
	parser := hclparse.NewParser()
	evalCtx := evalContext(l.Getenv)

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		if err := unexpectedContent(root.Remain); err != nil {
			return nil, fmt.Errorf("in %s: %w", file, err)
		}

		for _, env := range root.Environments {
			if err := seen.claim("environment", env.Name, file); err != nil {
				return nil, err
			}
			defs.Variables = append(defs.Variables, translateEnvironment(env)...)
		}
		for _, t := range root.Tests {
			if err := seen.claim("test", t.ID, file); err != nil {
				return nil, err
			}
			test, err := translateTest(ctx, t, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("in %s: %w", file, err)
			}
			defs.Tests = append(defs.Tests, test)
		}
		for _, c := range root.Campaigns {
			if err := seen.claim("campaign", c.ID, file); err != nil {
				return nil, err
			}
			defs.Campaigns = append(defs.Campaigns, translateCampaign(c))
		}
	}

	if err := defs.check(); err != nil {
		return nil, err
	}
	logger.Debug("HCL loading complete.",
		"variables", len(defs.Variables), "tests", len(defs.Tests), "campaigns", len(defs.Campaigns))
	return defs, nil
}

// unexpectedContent rejects top-level attributes and unknown blocks.
func unexpectedContent(body hcl.Body) error {
	if body == nil {
		return nil
	}
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return diags
	}
	for name := range attrs {
		return fmt.Errorf("unexpected top-level attribute %q", name)
	}
	return nil
}

// check validates references between definitions.
func (d *Definitions) check() error {
	tests := make(map[string]*model.Test, len(d.Tests))
	for _, t := range d.Tests {
		tests[t.ID] = t
	}
	campaigns := make(map[string]bool, len(d.Campaigns))
	for _, c := range d.Campaigns {
		campaigns[c.ID] = true
	}

	var errs []error
	for _, c := range d.Campaigns {
		for _, id := range c.Tests {
			if _, ok := tests[id]; !ok {
				errs = append(errs, fmt.Errorf("campaign %q references unknown test %q", c.ID, id))
			}
		}
	}
	for _, t := range d.Tests {
		if t.CampaignID != "" && !campaigns[t.CampaignID] {
			errs = append(errs, fmt.Errorf("test %q belongs to unknown campaign %q", t.ID, t.CampaignID))
		}
	}
	return errors.Join(errs...)
}

// findHCLFiles walks all given paths and returns a flat list of the .hcl
// files found, without duplicates.
func findHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		found, err := fsutil.FindFiles(path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}
	return allFiles, nil
}
