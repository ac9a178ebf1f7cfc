// Package workspace manages the per-campaign directories handed to tests
// through the files_dir and work_dir collection variables.
//
// Layout under the root:
//
//	<root>/<campaign id>/files   inputs uploaded for the campaign
//	<root>/<campaign id>/work    scratch space written by actions
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/testgrid/internal/ctxlog"
)

const (
	filesDir = "files"
	workDir  = "work"
)

// Paths are the absolute directories of one campaign.
type Paths struct {
	Root  string
	Files string
	Work  string
}

// Provider creates and removes campaign workspaces.
type Provider interface {
	Create(ctx context.Context, campaignID string) (Paths, error)
	Get(campaignID string) (Paths, error)
	Delete(ctx context.Context, campaignID string) error
	// CleanupOrphans removes every workspace whose campaign is not in
	// valid and returns the removed campaign ids.
	CleanupOrphans(ctx context.Context, valid []string) ([]string, error)
}

// Local keeps workspaces on the local filesystem.
type Local struct {
	root string
}

// NewLocal returns a Provider rooted at root. The root is created lazily.
func NewLocal(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root %q: %w", root, err)
	}
	return &Local{root: abs}, nil
}

// Root returns the absolute root directory.
func (l *Local) Root() string { return l.root }

// Get returns the paths of a campaign without touching the filesystem.
func (l *Local) Get(campaignID string) (Paths, error) {
	if err := checkID(campaignID); err != nil {
		return Paths{}, err
	}
	dir := filepath.Join(l.root, campaignID)
	return Paths{Root: dir, Files: filepath.Join(dir, filesDir), Work: filepath.Join(dir, workDir)}, nil
}

// Create makes sure the campaign directories exist.
func (l *Local) Create(ctx context.Context, campaignID string) (Paths, error) {
	p, err := l.Get(campaignID)
	if err != nil {
		return Paths{}, err
	}
	for _, dir := range []string{p.Files, p.Work} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Paths{}, fmt.Errorf("create workspace for campaign %q: %w", campaignID, err)
		}
	}
	ctxlog.FromContext(ctx).Debug("Workspace ready.", "campaign_id", campaignID, "path", p.Root)
	return p, nil
}

// Delete removes the campaign directory. A missing directory is not an
// error.
func (l *Local) Delete(ctx context.Context, campaignID string) error {
	p, err := l.Get(campaignID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(p.Root); err != nil {
		return fmt.Errorf("delete workspace for campaign %q: %w", campaignID, err)
	}
	ctxlog.FromContext(ctx).Debug("Workspace deleted.", "campaign_id", campaignID)
	return nil
}

// CleanupOrphans implements Provider. Files directly under the root are
// left alone.
func (l *Local) CleanupOrphans(ctx context.Context, valid []string) ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read workspace root: %w", err)
	}

	keep := make(map[string]bool, len(valid))
	for _, id := range valid {
		keep[id] = true
	}

	logger := ctxlog.FromContext(ctx)
	var removed []string
	var errs []error
	for _, e := range entries {
		if !e.IsDir() || keep[e.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(l.root, e.Name())); err != nil {
			errs = append(errs, fmt.Errorf("remove orphan %q: %w", e.Name(), err))
			continue
		}
		logger.Info("🧹 Removed orphan workspace", "campaign_id", e.Name())
		removed = append(removed, e.Name())
	}
	return removed, errors.Join(errs...)
}

func checkID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid campaign id %q for a workspace", id)
	}
	return nil
}
