package dashboard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/smileynet/postdeck/internal/post"
)

// helpBarHeight is the number of lines reserved for the help bar at the bottom.
const helpBarHeight = 1

// statusBarHeight is the number of lines reserved for the status line.
const statusBarHeight = 1

// borderChrome is the number of lines consumed by top + bottom borders.
const borderChrome = 2

// detailHeaderHeight is the number of lines above the body on the detail page.
const detailHeaderHeight = 4

// DefaultCloseDelay is how long the confirmation modal stays in its closing phase.
const DefaultCloseDelay = 200 * time.Millisecond

// Option configures a Model.
type Option func(*Model)

// WithSynchronizer sets the collection cache every page reads from.
func WithSynchronizer(s Synchronizer) Option {
	return func(m *Model) { m.sync = s }
}

// WithCloseDelay sets the closing phase duration of the confirmation modal.
func WithCloseDelay(d time.Duration) Option {
	return func(m *Model) { m.closeDelay = d }
}

// WithStartPost opens the detail page for id instead of the list.
func WithStartPost(id post.ID) Option {
	return func(m *Model) { m.startPost = id }
}

// WithDefaultOwner sets the owner shown as the create form placeholder.
func WithDefaultOwner(id int) Option {
	return func(m *Model) { m.defaultOwner = id }
}

// WithContext sets the parent context of every request the model issues.
func WithContext(ctx context.Context) Option {
	return func(m *Model) { m.ctx = ctx }
}

// WithLogger sets the logger for request outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// Model is the root Bubble Tea model for the posts TUI.
// It routes messages by mode and owns no post data of its own: rows, details
// and pending markers all come from the Synchronizer.
type Model struct {
	sync         Synchronizer
	ctx          context.Context
	logger       *slog.Logger
	closeDelay   time.Duration
	startPost    post.ID
	defaultOwner int

	mode     Mode
	focus    Focus
	width    int
	height   int
	spinner  spinner.Model
	viewport viewport.Model
	help     help.Model

	list   listState
	detail detailState
	form   formState
	modal  modalState

	// listSeq and detailSeq identify the latest request per page;
	// results carrying an older value are dropped.
	listSeq      int
	detailSeq    int
	detailCtx    context.Context
	detailCancel context.CancelFunc

	// deleting marks ids from keypress until PostDeletedMsg arrives.
	deleting map[post.ID]bool

	status    string
	statusErr bool
}

// NewModel creates a Model on the list page with left-pane focus.
func NewModel(opts ...Option) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	m := Model{
		ctx:          context.Background(),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		closeDelay:   DefaultCloseDelay,
		defaultOwner: 1,
		mode:         ModeList,
		focus:        PaneLeft,
		spinner:      s,
		viewport:     viewport.New(0, 0),
		help:         help.New(),
		list:         newListState(),
		deleting:     make(map[post.ID]bool),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.form = newFormState(m.defaultOwner)
	m.modal = newModalState(m.closeDelay)
	m.listSeq = 1
	if m.startPost != 0 {
		m = m.enterDetail(m.startPost)
	}
	return m
}

// Init starts the spinner, the collection load and, when the model starts
// on a detail page, the post fetch.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.loadCmd(m.listSeq, false)}
	if m.mode == ModeDetail && m.detail.loading {
		cmds = append(cmds, m.resolveCmd(m.detailSeq, m.startPost))
	}
	return tea.Batch(cmds...)
}

// Update handles incoming messages with mode-based routing.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.form = m.form.SetSize(msg.Width-borderChrome-2, m.contentHeight()-12)
		return m.refreshViewport(), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case PostsLoadedMsg:
		if msg.Seq != m.listSeq {
			return m, nil
		}
		if msg.Err != nil {
			m.logger.Warn("load posts", "err", msg.Err)
		}
		m.list = m.list.applyPosts(msg.Posts, msg.Err)
		return m.refreshViewport(), nil

	case RefreshPostsMsg:
		m.listSeq++
		return m, m.loadCmd(m.listSeq, true)

	case OpenPostMsg:
		m = m.enterDetail(msg.ID)
		if !m.detail.loading {
			return m, nil
		}
		return m, m.resolveCmd(m.detailSeq, msg.ID)

	case PostResolvedMsg:
		if msg.Seq != m.detailSeq || m.mode != ModeDetail {
			return m, nil
		}
		m.detail = m.detail.applyResolved(msg.Post, msg.Err)
		return m.refreshViewport(), nil

	case SubmitDraftMsg:
		m.form = m.form.submitted()
		return m, m.createCmd(msg.Draft)

	case CancelFormMsg:
		m.mode = ModeList
		return m.refreshViewport(), nil

	case PostCreatedMsg:
		return m.handleCreated(msg)

	case PostDeletedMsg:
		return m.handleDeleted(msg)

	case modalClosedMsg:
		m.modal = m.modal.finish(msg)
		return m, nil
	}

	if m.mode == ModeCreate {
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleKey processes key messages with global and mode-specific routing.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}

	if m.modal.Accepting() {
		keys := ConfirmKeyMap()
		switch {
		case key.Matches(msg, keys.Confirm):
			id := m.modal.post.ID
			var closeCmd tea.Cmd
			m.modal, closeCmd = m.modal.close()
			var delCmd tea.Cmd
			m, delCmd = m.startDelete(id)
			return m, tea.Batch(closeCmd, delCmd)
		case key.Matches(msg, keys.Cancel):
			var cmd tea.Cmd
			m.modal, cmd = m.modal.close()
			return m, cmd
		}
		return m, nil
	}

	switch m.mode {
	case ModeDetail:
		return m.handleDetailKey(msg)
	case ModeCreate:
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	default:
		return m.handleListKey(msg)
	}
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := ListKeyMap()
	switch {
	case key.Matches(msg, keys.Quit):
		return m.quit()
	case key.Matches(msg, keys.Tab):
		if m.focus == PaneLeft {
			m.focus = PaneRight
		} else {
			m.focus = PaneLeft
		}
		return m, nil
	case key.Matches(msg, keys.New):
		m.mode = ModeCreate
		m.modal = m.modal.teardown()
		return m, textinput.Blink
	case key.Matches(msg, keys.Delete):
		p, ok := m.list.Selected()
		if !ok || m.isDeleting(p.ID) {
			return m, nil
		}
		m.modal = m.modal.open(p)
		return m, nil
	}

	if m.focus == PaneRight {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m.refreshViewport(), cmd
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := DetailKeyMap()
	switch {
	case key.Matches(msg, keys.Quit):
		return m.quit()
	case key.Matches(msg, keys.Back):
		return m.leaveDetail()
	case key.Matches(msg, keys.Delete):
		if !m.detail.Ready() || m.isDeleting(m.detail.id) {
			return m, nil
		}
		return m.startDelete(m.detail.id)
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleCreated(msg PostCreatedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.logger.Warn("create post", "err", msg.Err)
		m.form = m.form.failed(msg.Err)
		if m.mode != ModeCreate {
			m = m.setStatus("Publish failed: "+msg.Err.Error(), true)
		}
		return m, nil
	}
	m.logger.Debug("created post", "id", msg.Post.ID)
	m.form = newFormState(m.defaultOwner).SetSize(m.width-borderChrome-2, m.contentHeight()-12)
	m.list = m.list.withPosts(m.snapshot())
	if m.mode == ModeCreate {
		m.mode = ModeList
	}
	m = m.setStatus(fmt.Sprintf("Published post #%d", msg.Post.ID), false)
	return m.refreshViewport(), nil
}

func (m Model) handleDeleted(msg PostDeletedMsg) (tea.Model, tea.Cmd) {
	delete(m.deleting, msg.ID)
	if msg.Err != nil {
		m.logger.Warn("delete post", "id", msg.ID, "err", msg.Err)
		m = m.setStatus("Delete failed: "+msg.Err.Error(), true)
		return m, nil
	}
	m.logger.Debug("deleted post", "id", msg.ID)
	m.list = m.list.withPosts(m.snapshot())
	m = m.setStatus(fmt.Sprintf("Deleted post #%d", msg.ID), false)
	if m.mode == ModeDetail && m.detail.id == msg.ID {
		return m.leaveDetail()
	}
	return m.refreshViewport(), nil
}

// enterDetail switches to the detail page for id and invalidates any
// earlier detail request.
func (m Model) enterDetail(id post.ID) Model {
	if m.detailCancel != nil {
		m.detailCancel()
		m.detailCancel = nil
	}
	m.detailSeq++
	m.detailCtx, m.detailCancel = context.WithCancel(m.ctx)
	m.mode = ModeDetail
	m.modal = m.modal.teardown()

	var cached post.Post
	var ok bool
	if m.sync != nil {
		cached, ok = m.sync.Lookup(id)
	}
	m.detail = newDetailState(id, cached, ok)
	m.viewport.GotoTop()
	return m.refreshViewport()
}

// leaveDetail returns to the list page. A fetch still in flight is cancelled
// and its result ignored.
func (m Model) leaveDetail() (tea.Model, tea.Cmd) {
	if m.detailCancel != nil {
		m.detailCancel()
		m.detailCancel = nil
	}
	m.detailSeq++
	m.mode = ModeList
	m.list = m.list.withPosts(m.snapshot())
	return m.refreshViewport(), nil
}

func (m Model) startDelete(id post.ID) (Model, tea.Cmd) {
	m.deleting[id] = true
	return m, m.removeCmd(id)
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.detailCancel != nil {
		m.detailCancel()
		m.detailCancel = nil
	}
	m.modal = m.modal.teardown()
	return m, tea.Quit
}

func (m Model) isDeleting(id post.ID) bool {
	if m.deleting[id] {
		return true
	}
	return m.sync != nil && m.sync.IsDeleting(id)
}

func (m Model) snapshot() []post.Post {
	if m.sync == nil {
		return nil
	}
	return m.sync.Snapshot()
}

func (m Model) setStatus(s string, isErr bool) Model {
	m.status = s
	m.statusErr = isErr
	return m
}

// --- Commands ---

// loadCmd reads the collection. force bypasses the stale window.
func (m Model) loadCmd(seq int, force bool) tea.Cmd {
	if m.sync == nil {
		return nil
	}
	s, ctx := m.sync, m.ctx
	return func() tea.Msg {
		var posts []post.Post
		var err error
		if force {
			posts, err = s.Load(ctx)
		} else {
			posts, err = s.Ensure(ctx)
		}
		if err != nil {
			posts = s.Snapshot()
		}
		return PostsLoadedMsg{Seq: seq, Posts: posts, Err: err}
	}
}

// resolveCmd fetches a single post. The request context is cancelled when
// the detail page is left.
func (m Model) resolveCmd(seq int, id post.ID) tea.Cmd {
	if m.sync == nil || m.detailCtx == nil {
		return nil
	}
	s, ctx := m.sync, m.detailCtx
	return func() tea.Msg {
		p, err := s.GetByID(ctx, id)
		return PostResolvedMsg{Seq: seq, ID: id, Post: p, Err: err}
	}
}

func (m Model) createCmd(d post.Draft) tea.Cmd {
	if m.sync == nil {
		return nil
	}
	s, ctx := m.sync, m.ctx
	return func() tea.Msg {
		p, err := s.Create(ctx, d)
		return PostCreatedMsg{Post: p, Err: err}
	}
}

func (m Model) removeCmd(id post.ID) tea.Cmd {
	if m.sync == nil {
		return nil
	}
	s, ctx := m.sync, m.ctx
	return func() tea.Msg {
		return PostDeletedMsg{ID: id, Err: s.Remove(ctx, id)}
	}
}

// --- Layout ---

// contentHeight returns the usable height for pane content,
// accounting for border chrome, the status line and the help bar.
func (m Model) contentHeight() int {
	h := m.height - borderChrome - statusBarHeight - helpBarHeight
	if h < 1 {
		return 1
	}
	return h
}

// refreshViewport sizes the viewport for the current page and loads its content.
func (m Model) refreshViewport() Model {
	switch m.mode {
	case ModeDetail:
		w := m.width - borderChrome
		if w < 0 {
			w = 0
		}
		h := m.contentHeight() - detailHeaderHeight
		if h < 1 {
			h = 1
		}
		m.viewport.Width = w
		m.viewport.Height = h
		m.viewport.SetContent(m.detail.Body(w))
	default:
		_, rightWidth := PaneWidths(m.width)
		w := rightWidth - borderChrome
		if w < 0 {
			w = 0
		}
		m.viewport.Width = w
		m.viewport.Height = m.contentHeight()
		p, ok := m.list.Selected()
		m.viewport.SetContent(previewView(p, ok, w))
	}
	return m
}

// View renders the current page with status line and help bar.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var page string
	switch {
	case m.modal.Visible():
		page = lipgloss.Place(m.width, m.contentHeight()+borderChrome,
			lipgloss.Center, lipgloss.Center, m.modal.View())
	case m.mode == ModeDetail:
		page = m.viewDetail()
	case m.mode == ModeCreate:
		page = m.viewCreate()
	default:
		page = m.viewList()
	}

	status := ""
	switch {
	case m.mode != ModeCreate && m.sync != nil && m.sync.Creating():
		status = mutedText.Render(m.spinner.View() + " Publishing...")
	case m.status != "" && m.statusErr:
		status = errorText.Render(m.status)
	case m.status != "":
		status = successText.Render(m.status)
	}
	helpView := m.help.View(HelpBindings(m.mode, m.modal.Accepting()))

	return lipgloss.JoinVertical(lipgloss.Left, page, status, helpView)
}

func (m Model) viewList() string {
	leftWidth, rightWidth := PaneWidths(m.width)
	contentHeight := m.contentHeight()

	var leftStyle, rightStyle lipgloss.Style
	if m.focus == PaneLeft {
		leftStyle = FocusedBorder()
		rightStyle = UnfocusedBorder()
	} else {
		leftStyle = UnfocusedBorder()
		rightStyle = FocusedBorder()
	}

	leftStyle = leftStyle.
		Width(leftWidth - borderChrome).
		Height(contentHeight)
	rightStyle = rightStyle.
		Width(rightWidth - borderChrome).
		Height(contentHeight)

	left := m.list.View(leftWidth-borderChrome, contentHeight, m.spinner.View(), m.isDeleting)
	leftPane := leftStyle.Render(left)
	rightPane := rightStyle.Render(m.viewport.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)
}

func (m Model) viewDetail() string {
	w := m.width - borderChrome
	header := m.detail.Header(w, m.spinner.View(), m.isDeleting(m.detail.id))
	body := header
	if m.detail.Ready() {
		body += "\n\n" + m.viewport.View()
	}
	return FocusedBorder().
		Width(w).
		Height(m.contentHeight()).
		Render(body)
}

func (m Model) viewCreate() string {
	return FocusedBorder().
		Width(m.width - borderChrome).
		Height(m.contentHeight()).
		Render(m.form.View())
}
