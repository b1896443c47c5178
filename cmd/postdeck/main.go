package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/smileynet/postdeck"
	"github.com/smileynet/postdeck/internal/config"
	"github.com/smileynet/postdeck/internal/dashboard"
	"github.com/smileynet/postdeck/internal/post"
	"github.com/smileynet/postdeck/internal/remote"
	"github.com/smileynet/postdeck/internal/store"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Globals holds flags shared by every command. Non-zero values override config.
type Globals struct {
	BaseURL string        `name:"base-url" help:"Remote collection URL." placeholder:"URL"`
	Timeout time.Duration `help:"Per-request timeout."`
}

// CLI is the top-level command structure for postdeck.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version." short:"V"`
	Browse  BrowseCmd        `cmd:"" help:"Open the interactive posts TUI."`
	List    ListCmd          `cmd:"" help:"Print the posts collection."`
	Show    ShowCmd          `cmd:"" help:"Print a single post."`
	Create  CreateCmd        `cmd:"" help:"Publish a new post."`
	Delete  DeleteCmd        `cmd:"" help:"Delete a post."`
	Config  ConfigCmd        `cmd:"" help:"Print or write an annotated example config."`
}

// postStore is the subset of store.Store the plain commands use.
type postStore interface {
	Load(ctx context.Context) ([]post.Post, error)
	GetByID(ctx context.Context, id post.ID) (post.Post, error)
	Create(ctx context.Context, d post.Draft) (post.Post, error)
	Remove(ctx context.Context, id post.ID) error
}

// loadConfig loads layered config from user and project paths with env overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadLayered(
		os.ExpandEnv("$HOME/.config/postdeck/config.yaml"),
		".postdeck.yaml",
	)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads config, applies flag overrides and validates the result.
func setup(g *Globals) (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	g.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (g *Globals) apply(cfg *config.Config) {
	if g.BaseURL != "" {
		cfg.API.BaseURL = g.BaseURL
	}
	if g.Timeout > 0 {
		cfg.API.Timeout = g.Timeout
	}
}

// newLogger returns a text logger writing to w at the configured level.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newStore wires the remote client into a store configured from cfg.
func newStore(cfg *config.Config, logger *slog.Logger) *store.Store {
	client := remote.NewClient(cfg.API.BaseURL, remote.WithTimeout(cfg.API.Timeout))
	return store.New(client,
		store.WithDefaultOwner(cfg.Posts.DefaultOwnerID),
		store.WithStaleAfter(cfg.Cache.StaleAfter),
		store.WithLogger(logger),
	)
}

// plainStore builds a store for a non-interactive command, logging to stderr.
func plainStore(g *Globals) (*store.Store, error) {
	cfg, err := setup(g)
	if err != nil {
		return nil, err
	}
	return newStore(cfg, newLogger(os.Stderr, cfg)), nil
}

// --- Browse command ---

// BrowseCmd opens the interactive TUI.
type BrowseCmd struct {
	Post int `help:"Open the detail page for this post ID." placeholder:"ID"`
}

// teaRunner abstracts Bubble Tea program execution for testing.
type teaRunner interface {
	Run() (tea.Model, error)
}

// stdoutIsTerminal reports whether stdout can host the TUI. Tests replace it.
var stdoutIsTerminal = func() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Run builds real dependencies and launches the TUI.
func (b *BrowseCmd) Run(g *Globals) error {
	if b.Post < 0 {
		return fmt.Errorf("browse: %w: %d", post.ErrInvalidID, b.Post)
	}

	cfg, err := setup(g)
	if err != nil {
		return fmt.Errorf("browse: %w", err)
	}

	// The TUI owns the terminal; diagnostics go to the log file or nowhere.
	logOut := io.Discard
	if cfg.Log.File != "" {
		f, err := tea.LogToFile(cfg.Log.File, "postdeck")
		if err != nil {
			return fmt.Errorf("browse: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := newLogger(logOut, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := []dashboard.Option{
		dashboard.WithSynchronizer(newStore(cfg, logger)),
		dashboard.WithCloseDelay(cfg.UI.CloseDelay),
		dashboard.WithDefaultOwner(cfg.Posts.DefaultOwnerID),
		dashboard.WithContext(ctx),
		dashboard.WithLogger(logger),
	}
	if b.Post > 0 {
		opts = append(opts, dashboard.WithStartPost(post.ID(b.Post)))
	}

	prog := tea.NewProgram(dashboard.NewModel(opts...), tea.WithAltScreen())
	return b.run(stdoutIsTerminal(), prog)
}

// run executes the tea program, enabling testable wiring.
func (b *BrowseCmd) run(isTTY bool, prog teaRunner) error {
	if !isTTY {
		return fmt.Errorf("browse: requires a terminal (TTY)")
	}
	_, err := prog.Run()
	return err
}

// --- List command ---

// ListCmd prints the collection.
type ListCmd struct {
	Limit int `help:"Print at most N posts (0 prints all)." default:"0" placeholder:"N"`
}

// Run executes the list command.
func (l *ListCmd) Run(g *Globals) error {
	s, err := plainStore(g)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return l.run(ctx, os.Stdout, s)
}

func (l *ListCmd) run(ctx context.Context, w io.Writer, s postStore) error {
	if l.Limit < 0 {
		return fmt.Errorf("list: --limit must be non-negative, got %d", l.Limit)
	}
	posts, err := s.Load(ctx)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	if len(posts) == 0 {
		_, _ = fmt.Fprintln(w, "No posts.")
		return nil
	}
	if l.Limit > 0 && l.Limit < len(posts) {
		posts = posts[:l.Limit]
	}
	for _, p := range posts {
		_, _ = fmt.Fprintf(w, "%5d  user %-3d  %s\n", p.ID, p.OwnerID, p.Title)
	}
	return nil
}

// --- Show command ---

// ShowCmd prints a single post.
type ShowCmd struct {
	ID string `arg:"" help:"Post ID."`
}

// Run executes the show command.
func (c *ShowCmd) Run(g *Globals) error {
	s, err := plainStore(g)
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return c.run(ctx, os.Stdout, s)
}

func (c *ShowCmd) run(ctx context.Context, w io.Writer, s postStore) error {
	id, err := post.ParseID(c.ID)
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	_, _ = fmt.Fprintf(w, "%s\nBy User %d • Post #%d\n\n%s\n", p.Title, p.OwnerID, p.ID, p.Body)
	return nil
}

// --- Create command ---

// CreateCmd publishes a new post.
type CreateCmd struct {
	Title string `help:"Post title." required:""`
	Body  string `help:"Post content." required:""`
	Owner int    `help:"Owner user ID (defaults to posts.default_owner_id)." placeholder:"ID"`
}

// Run executes the create command.
func (c *CreateCmd) Run(g *Globals) error {
	s, err := plainStore(g)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return c.run(ctx, os.Stdout, s)
}

func (c *CreateCmd) run(ctx context.Context, w io.Writer, s postStore) error {
	p, err := s.Create(ctx, post.Draft{Title: c.Title, Body: c.Body, OwnerID: c.Owner})
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Created post #%d (user %d)\n", p.ID, p.OwnerID)
	return nil
}

// --- Delete command ---

// DeleteCmd deletes a post.
type DeleteCmd struct {
	ID string `arg:"" help:"Post ID."`
}

// Run executes the delete command.
func (c *DeleteCmd) Run(g *Globals) error {
	s, err := plainStore(g)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return c.run(ctx, os.Stdout, s)
}

func (c *DeleteCmd) run(ctx context.Context, w io.Writer, s postStore) error {
	id, err := post.ParseID(c.ID)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if err := s.Remove(ctx, id); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Deleted post #%d\n", id)
	return nil
}

// --- Config command ---

// ConfigCmd prints the example config, or writes it to a new file.
type ConfigCmd struct {
	Output string `help:"Write to this path instead of stdout. Existing files are kept." short:"o" type:"path"`
}

// Run executes the config command.
func (c *ConfigCmd) Run() error {
	return c.run(os.Stdout)
}

func (c *ConfigCmd) run(w io.Writer) error {
	data := postdeck.ExampleConfig()
	if c.Output == "" {
		_, err := w.Write(data)
		return err
	}
	f, err := os.OpenFile(c.Output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("config: %s already exists", c.Output)
		}
		return fmt.Errorf("config: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("config: writing %s: %w", c.Output, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("config: writing %s: %w", c.Output, err)
	}
	_, _ = fmt.Fprintf(w, "Wrote %s\n", c.Output)
	return nil
}

// Exit codes.
const (
	exitSuccess = 0
	exitRemote  = 1
	exitSetup   = 2
)

// exitCode maps an error to the appropriate exit code. Failures reported by
// the remote collection exit 1; usage, config and validation errors exit 2.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	for _, remoteErr := range []error{
		store.ErrLoadFailed,
		store.ErrCreateFailed,
		store.ErrDeleteFailed,
		store.ErrNotFound,
	} {
		if errors.Is(err, remoteErr) {
			return exitRemote
		}
	}
	return exitSetup
}

func versionString() string {
	return strings.Join([]string{version, commit, date}, " ")
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("postdeck"),
		kong.Description("Browse, create and delete posts in a remote collection."),
		kong.Vars{"version": versionString()},
	)
	err := ctx.Run(&cli.Globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}
