// Package vcs is the narrow version-control capability the migration
// state machine depends on: branch checkout, working-tree cleanliness,
// scoped commits, push, and revert-by-commit-message-tag. It wraps go-git
// so no git binary is required at runtime.
package vcs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gitsight/go-vcsurl"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/hashicorp/go-hclog"

	"github.com/bd-migrate/bdmigrate/internal/config"
)

var reBracketMarker = regexp.MustCompile(`\s*\[[^\]]*\]`)

// Client provides version-control operations on one local repository.
type Client struct {
	root   string
	repo   *git.Repository
	logger hclog.Logger
	cfg    *config.Config
}

// Open opens the repository at root.
func Open(root string, cfg *config.Config, logger hclog.Logger) (*Client, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil, fmt.Errorf("opening repository at %q: %w", root, err)
	}
	return &Client{root: root, repo: repo, logger: logger, cfg: cfg}, nil
}

// Root returns the repository root path.
func (c *Client) Root() string { return c.root }

// Checkout switches the working tree to the named branch. A branch that
// exists only on the configured remote is materialized as a local branch
// tracking it. When HEAD already points at the requested branch the
// working tree is left untouched: resetting it would refuse on
// uncommitted edits, and rollback must be able to reach a dirty tree
// left by an interrupted or uncommitted apply. Failure means the branch
// cannot be scanned at all.
func (c *Client) Checkout(branch string) error {
	w, err := c.repo.Worktree()
	if err != nil {
		return fmt.Errorf("accessing worktree: %w", err)
	}

	localRef := plumbing.NewBranchReferenceName(branch)
	if head, herr := c.repo.Head(); herr == nil && head.Name() == localRef {
		c.logger.Debug("already on branch", "branch", branch)
		return nil
	}
	err = w.Checkout(&git.CheckoutOptions{Branch: localRef})
	if err == nil {
		c.logger.Debug("checked out local branch", "branch", branch)
		return nil
	}
	if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return fmt.Errorf("checking out %q: %w", branch, err)
	}

	remoteRef, rerr := c.repo.Reference(plumbing.NewRemoteReferenceName(c.cfg.Git.Remote, branch), true)
	if rerr != nil {
		return fmt.Errorf("branch %q: %w", branch, ErrBranchNotFound)
	}
	if err := w.Checkout(&git.CheckoutOptions{
		Hash:   remoteRef.Hash(),
		Branch: localRef,
		Create: true,
	}); err != nil {
		return fmt.Errorf("creating local branch %q from remote: %w", branch, err)
	}
	c.logger.Debug("created local branch tracking remote", "branch", branch, "remote", c.cfg.Git.Remote)
	return nil
}

// IsClean reports whether the working tree holds no uncommitted changes
// to tracked files. Untracked files do not count: report output and
// backup trees may legitimately live inside the repository.
func (c *Client) IsClean() (bool, error) {
	w, err := c.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("accessing worktree: %w", err)
	}
	status, err := w.Status()
	if err != nil {
		return false, fmt.Errorf("reading worktree status: %w", err)
	}
	for _, fs := range status {
		if fs.Staging == git.Untracked && fs.Worktree == git.Untracked {
			continue
		}
		return false, nil
	}
	return true, nil
}

// CommitPaths stages exactly the given repository-relative paths and
// commits them. Nothing outside the list is ever staged.
func (c *Client) CommitPaths(paths []string, message string) (string, error) {
	w, err := c.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("accessing worktree: %w", err)
	}
	for _, p := range paths {
		if _, err := w.Add(filepath.ToSlash(p)); err != nil {
			return "", fmt.Errorf("staging %q: %w", p, err)
		}
	}
	hash, err := w.Commit(message, &git.CommitOptions{Author: signature()})
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}
	c.logger.Info("created commit", "hash", hash.String(), "files", len(paths))
	return hash.String(), nil
}

// Push sends the current branch to the configured remote using the
// configured authentication.
func (c *Client) Push() error {
	authenticator, err := getAuthenticator(c.cfg.Git.AuthType)
	if err != nil {
		return err
	}
	auth, err := authenticator.SetupAuth(&c.cfg.Git, c.logger)
	if err != nil {
		return fmt.Errorf("setting up push authentication: %w", err)
	}

	err = c.repo.Push(&git.PushOptions{RemoteName: c.cfg.Git.Remote, Auth: auth})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		c.logger.Info("remote already up to date", "remote", c.cfg.Git.Remote)
		return nil
	}
	if err != nil {
		return fmt.Errorf("pushing to %q: %w", c.cfg.Git.Remote, err)
	}
	c.logger.Info("pushed", "remote", c.cfg.Git.Remote)
	return nil
}

// FindCommitByTag walks history from HEAD and returns the first commit
// whose message contains tag, or ErrNoTaggedCommit.
func (c *Client) FindCommitByTag(tag string) (*object.Commit, error) {
	head, err := c.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}
	iter, err := c.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	defer iter.Close()

	var found *object.Commit
	err = iter.ForEach(func(commit *object.Commit) error {
		if strings.Contains(commit.Message, tag) {
			found = commit
			return storer.ErrStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, fmt.Errorf("walking history: %w", err)
	}
	if found == nil {
		return nil, ErrNoTaggedCommit
	}
	return found, nil
}

// RevertCommit restores every file the given commit touched to its
// parent-side content (deleting files the commit introduced) and records
// the restoration as a new commit, returning its hash. When the working
// tree already matches the parent it returns ErrAlreadyReverted instead
// of creating an empty commit.
func (c *Client) RevertCommit(commit *object.Commit) (string, error) {
	if commit.NumParents() == 0 {
		return "", ErrRootCommitRevert
	}
	parent, err := commit.Parent(0)
	if err != nil {
		return "", fmt.Errorf("resolving parent commit: %w", err)
	}
	patch, err := parent.Patch(commit)
	if err != nil {
		return "", fmt.Errorf("computing commit patch: %w", err)
	}

	var touched []string
	for _, fp := range patch.FilePatches() {
		from, to := fp.Files()
		switch {
		case from == nil:
			// introduced by the commit: remove it
			path := to.Path()
			abs := filepath.Join(c.root, filepath.FromSlash(path))
			if _, err := os.Stat(abs); os.IsNotExist(err) {
				continue
			}
			if err := os.Remove(abs); err != nil {
				return "", fmt.Errorf("removing %q: %w", path, err)
			}
			c.logger.Info("revert removed file", "path", path)
			touched = append(touched, path)
		default:
			path := from.Path()
			file, err := parent.File(path)
			if err != nil {
				return "", fmt.Errorf("reading parent content of %q: %w", path, err)
			}
			content, err := file.Contents()
			if err != nil {
				return "", fmt.Errorf("reading parent content of %q: %w", path, err)
			}
			abs := filepath.Join(c.root, filepath.FromSlash(path))
			if current, err := os.ReadFile(abs); err == nil && string(current) == content {
				continue
			}
			if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
				return "", fmt.Errorf("restoring %q: %w", path, err)
			}
			if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
				return "", fmt.Errorf("restoring %q: %w", path, err)
			}
			c.logger.Info("revert restored file", "path", path)
			touched = append(touched, path)
			if to != nil && to.Path() != path {
				touched = append(touched, to.Path())
			}
		}
	}
	if len(touched) == 0 {
		return "", ErrAlreadyReverted
	}

	// Strip bracketed markers from the quoted line so the revert commit
	// never matches a later tag search and gets reverted itself.
	firstLine := strings.SplitN(commit.Message, "\n", 2)[0]
	firstLine = strings.TrimSpace(reBracketMarker.ReplaceAllString(firstLine, ""))
	message := fmt.Sprintf("Revert %q\n\nThis reverts commit %s.", firstLine, commit.Hash.String())
	return c.CommitPaths(touched, message)
}

// RemoteBranches lists the branch names known on the configured remote.
func (c *Client) RemoteBranches() ([]string, error) {
	refs, err := c.repo.References()
	if err != nil {
		return nil, fmt.Errorf("listing references: %w", err)
	}
	defer refs.Close()

	prefix := fmt.Sprintf("refs/remotes/%s/", c.cfg.Git.Remote)
	var branches []string
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().String()
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		short := strings.TrimPrefix(name, prefix)
		if short == "HEAD" {
			return nil
		}
		branches = append(branches, short)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return branches, nil
}

// RepoID derives a stable repository identifier for reporting, preferring
// the parsed remote URL and falling back to the root directory name.
func (c *Client) RepoID() string {
	remote, err := c.repo.Remote(c.cfg.Git.Remote)
	if err == nil && len(remote.Config().URLs) > 0 {
		if info, perr := vcsurl.Parse(remote.Config().URLs[0]); perr == nil {
			return info.FullName
		}
	}
	abs, err := filepath.Abs(c.root)
	if err != nil {
		return c.root
	}
	return filepath.Base(abs)
}

func signature() *object.Signature {
	return &object.Signature{
		Name:  "bdmigrate",
		Email: "bdmigrate@localhost",
		When:  time.Now(),
	}
}
