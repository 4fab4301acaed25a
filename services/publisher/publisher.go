// Package publisher owns the git side of a run: it keeps a working copy
// of the artifact repository, stages the artifact files after the
// producer has run and commits and pushes them, but only when their
// content actually changed.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/publisher")

// Result distinguishes the two successful outcomes of a publish. The
// no-op is a normal result, not a swallowed error, so genuine commit
// failures still surface.
type Result int

const (
	NothingToPublish Result = iota
	Published
)

func (r Result) String() string {
	switch r {
	case Published:
		return "published"
	default:
		return "nothing to publish"
	}
}

// Options configures the publisher. Token is a secret, it arrives here
// as typed configuration and is only ever handed to the transport.
type Options struct {
	RemoteUrl string `json:"remote_url"`
	Branch    string `json:"branch"`
	// directory of the working copy, also where the producer writes
	Dir string `json:"dir"`

	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`

	Username string `json:"username"`
	Token    string `json:"token"`

	// the artifact files to stage, relative to Dir
	Files []string `json:"files"`
}

type Publisher struct {
	opts Options
}

func New(opts Options) (*Publisher, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("working copy directory cannot be empty")
	}
	if opts.Branch == "" {
		opts.Branch = "main"
	}
	if opts.AuthorName == "" {
		opts.AuthorName = "bidwatch-bot"
	}
	if opts.AuthorEmail == "" {
		opts.AuthorEmail = "bidwatch-bot@users.noreply.github.com"
	}
	if len(opts.Files) == 0 {
		opts.Files = []string{"zb.json", "parsed.json"}
	}
	return &Publisher{opts: opts}, nil
}

// Files returns the artifact names the publisher stages.
func (p *Publisher) Files() []string {
	return p.opts.Files
}

// Dir returns the working copy directory.
func (p *Publisher) Dir() string {
	return p.opts.Dir
}

func (p *Publisher) auth() transport.AuthMethod {
	if p.opts.Token == "" {
		return nil
	}
	username := p.opts.Username
	if username == "" {
		// the basic-auth username is ignored by token-based hosts,
		// it just cannot be empty
		username = "git"
	}
	return &githttp.BasicAuth{Username: username, Password: p.opts.Token}
}

func (p *Publisher) branchRef() plumbing.ReferenceName {
	return plumbing.NewBranchReferenceName(p.opts.Branch)
}

// Acquire brings the working copy to the remote's current head: a fresh
// clone when Dir does not hold a repository yet, a pull otherwise.
// Failure here aborts the run.
func (p *Publisher) Acquire(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Acquire")
	defer span.End()
	span.SetAttributes(attribute.String("dir", p.opts.Dir))

	if _, err := os.Stat(filepath.Join(p.opts.Dir, ".git")); err == nil {
		repo, err := git.PlainOpen(p.opts.Dir)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "open failed")
			return fmt.Errorf("failed to open working copy at %s: %w", p.opts.Dir, err)
		}
		worktree, err := repo.Worktree()
		if err != nil {
			return err
		}
		err = worktree.PullContext(ctx, &git.PullOptions{
			RemoteName:    "origin",
			ReferenceName: p.branchRef(),
			SingleBranch:  true,
			Auth:          p.auth(),
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "pull failed")
			return fmt.Errorf("failed to update working copy: %w", err)
		}
		return nil
	}

	_, err := git.PlainCloneContext(ctx, p.opts.Dir, false, &git.CloneOptions{
		URL:           p.opts.RemoteUrl,
		ReferenceName: p.branchRef(),
		SingleBranch:  true,
		Auth:          p.auth(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "clone failed")
		return fmt.Errorf("failed to clone %s: %w", p.opts.RemoteUrl, err)
	}
	return nil
}

// Publish stages the artifact files and, when their staged content
// differs from the last commit, commits them with the fixed identity and
// pushes to origin. A byte-identical staging area is the normal no-op
// path and returns NothingToPublish with a nil error. A rejected push is
// an error, the run must be reported failed.
func (p *Publisher) Publish(ctx context.Context, message string) (Result, error) {
	ctx, span := tracer.Start(ctx, "Publish")
	defer span.End()

	repo, err := git.PlainOpen(p.opts.Dir)
	if err != nil {
		return NothingToPublish, fmt.Errorf("failed to open working copy at %s: %w", p.opts.Dir, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return NothingToPublish, err
	}

	for _, file := range p.opts.Files {
		_, err := worktree.Add(file)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "staging failed")
			return NothingToPublish, fmt.Errorf("failed to stage %s: %w", file, err)
		}
	}

	status, err := worktree.Status()
	if err != nil {
		return NothingToPublish, err
	}
	if !staged(status, p.opts.Files) {
		slog.InfoContext(ctx, "artifacts unchanged, nothing to publish")
		return NothingToPublish, nil
	}

	commit, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  p.opts.AuthorName,
			Email: p.opts.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		if errors.Is(err, git.ErrEmptyCommit) {
			slog.InfoContext(ctx, "nothing staged, nothing to publish")
			return NothingToPublish, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return NothingToPublish, fmt.Errorf("failed to commit artifacts: %w", err)
	}

	refspec := gitconfig.RefSpec(fmt.Sprintf(
		"refs/heads/%s:refs/heads/%s", p.opts.Branch, p.opts.Branch,
	))
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{refspec},
		Auth:       p.auth(),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "push failed")
		return NothingToPublish, fmt.Errorf("failed to push to origin: %w", err)
	}

	slog.InfoContext(ctx, "published artifacts", "commit", commit.String(), "branch", p.opts.Branch)
	span.SetAttributes(attribute.String("commit", commit.String()))
	return Published, nil
}

// staged reports whether any of the files has staged changes. Unchanged
// files do not appear in the status at all.
func staged(status git.Status, files []string) bool {
	for _, file := range files {
		fs, ok := status[file]
		if !ok {
			continue
		}
		if fs.Staging != git.Unmodified && fs.Staging != git.Untracked {
			return true
		}
	}
	return false
}

// CommitMessage renders the fixed publish message for a set of
// artifacts, e.g. "Update zb.json and parsed.json".
func CommitMessage(files []string) string {
	switch len(files) {
	case 0:
		return "Update artifacts"
	case 1:
		return "Update " + files[0]
	}
	return "Update " + strings.Join(files[:len(files)-1], ", ") + " and " + files[len(files)-1]
}
