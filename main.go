package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"go-pairs/internal/board"
	"go-pairs/internal/config"
	"go-pairs/internal/game"
	"go-pairs/internal/highscore"
	"go-pairs/internal/kvstore"
	"go-pairs/internal/scoring"
	"go-pairs/internal/state"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

var (
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // Red for time running out and losses
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // Green for matches and wins
	scoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // Color for the status line
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boldStyle   = lipgloss.NewStyle().Bold(true)
	cardStyle   = lipgloss.NewStyle().Width(4).Align(lipgloss.Center).Border(lipgloss.RoundedBorder())
	hiddenGlyph = "·"
)

type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding
	Flip  key.Binding
	Reset key.Binding
	Tier  key.Binding
	Help  key.Binding
	Quit  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Flip, k.Reset, k.Tier, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Flip, k.Reset, k.Tier},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
	Right: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
	Flip:  key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "flip")),
	Reset: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "new game")),
	Tier:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "difficulty")),
	Help:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type LocalState struct {
	Session *game.Session
	Queue   *game.Queue
	Cursor  int
	Message string
	Help    help.Model
	Scores  highscore.Table // last loaded table, refreshed when a game ends
	log     zerolog.Logger
}

// TaskMsg carries a scheduled task back into the update loop.
type TaskMsg game.Task

func initialModel(cfg config.Config, kv kvstore.Store, rng board.Source, log zerolog.Logger) (*LocalState, error) {
	queue := &game.Queue{}
	scores := highscore.NewStore(kv, cfg.Tiers(), log)

	sess, err := game.NewSession(cfg, scores, queue, rng, log)
	if err != nil {
		return nil, err
	}

	s := &LocalState{
		Session: sess,
		Queue:   queue,
		Help:    help.New(),
		log:     log.With().Str("component", "ui").Logger(),
	}
	sess.Listener = s.onEvent
	s.refreshScores()

	if err := sess.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// scheduleCmds turns the tasks the session queued into timed messages.
func (s *LocalState) scheduleCmds() tea.Cmd {
	var cmds []tea.Cmd
	for _, p := range s.Queue.Drain() {
		task := p.Task
		cmds = append(cmds, tea.Tick(p.Delay, func(time.Time) tea.Msg {
			return TaskMsg(task)
		}))
	}
	return tea.Batch(cmds...)
}

func (s *LocalState) refreshScores() {
	s.Scores = s.Session.Scores.Load(context.Background())
}

func (s *LocalState) onEvent(e state.Event) {
	s.log.Debug().Stringer("event", e.Kind).Ints("positions", e.Positions).Msg("game event")

	switch e.Kind {
	case state.GameStarted:
		s.Message = ""
	case state.CardsMatched:
		s.Message = greenStyle.Render("Match!")
	case state.CardsUnflipped:
		s.Message = ""
	case state.GameWon:
		s.Message = greenStyle.Render(fmt.Sprintf("Cleared! Score: %d (%d moves / %ds left)", e.Score, e.Moves, e.TimeRemaining))
		s.refreshScores()
	case state.GameLost:
		s.Message = redStyle.Render("Time's up!")
		s.refreshScores()
	}
}

func (s *LocalState) Init() tea.Cmd {
	return s.scheduleCmds()
}

func (s *LocalState) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TaskMsg:
		s.Session.HandleTask(game.Task(msg))
	case tea.WindowSizeMsg:
		s.Help.Width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return s, tea.Quit
		case key.Matches(msg, keys.Help):
			s.Help.ShowAll = !s.Help.ShowAll
		case key.Matches(msg, keys.Reset):
			if err := s.Session.Reset(); err != nil {
				s.Message = redStyle.Render(err.Error())
			}
		case key.Matches(msg, keys.Tier):
			next := s.Session.Config.NextTier(s.Session.Difficulty.Name)
			if err := s.Session.SelectDifficulty(next); err != nil {
				s.Message = redStyle.Render(err.Error())
			} else {
				s.Cursor = 0
				s.refreshScores()
				s.Message = fmt.Sprintf("Difficulty: %s. Press r to start.", next)
			}
		case key.Matches(msg, keys.Flip):
			s.Session.Flip(s.Cursor)
		default:
			s.moveCursor(msg)
		}
	}

	return s, s.scheduleCmds()
}

func (s *LocalState) moveCursor(msg tea.KeyMsg) {
	g := s.Session.CurrentGame
	if g == nil {
		return
	}
	n := len(g.State.Cards)
	cols := columns(n)

	switch {
	case key.Matches(msg, keys.Up):
		if s.Cursor-cols >= 0 {
			s.Cursor -= cols
		}
	case key.Matches(msg, keys.Down):
		if s.Cursor+cols < n {
			s.Cursor += cols
		}
	case key.Matches(msg, keys.Left):
		if s.Cursor%cols > 0 {
			s.Cursor--
		}
	case key.Matches(msg, keys.Right):
		if s.Cursor%cols < cols-1 && s.Cursor+1 < n {
			s.Cursor++
		}
	}
}

// columns picks the board width for n cards.
func columns(n int) int {
	if n <= 16 {
		return 4
	}
	return 6
}

func (s *LocalState) RenderBoard() string {
	g := s.Session.CurrentGame
	st := g.State
	cols := columns(len(st.Cards))

	var rows []string
	var row []string
	for i, c := range st.Cards {
		style := cardStyle
		glyph := hiddenGlyph

		switch {
		case st.IsSolved(i):
			glyph = c.Symbol
			style = style.BorderForeground(lipgloss.Color("10"))
		case st.IsFlipped(i):
			glyph = c.Symbol
			style = style.BorderForeground(lipgloss.Color("11"))
		default:
			style = style.BorderForeground(lipgloss.Color("8"))
		}

		// Apply cursor style
		if st.IsPlaying() && i == s.Cursor {
			style = style.Reverse(true)
		}

		row = append(row, style.Render(glyph))
		if len(row) == cols {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (s *LocalState) StatusLine() string {
	st := s.Session.CurrentGame.State

	timeColor := lipgloss.Color("11")
	if float64(st.TimeRemaining) <= float64(st.TimeLimit)/3.0 {
		timeColor = lipgloss.Color("9")
	}
	timeStyle := lipgloss.NewStyle().Foreground(timeColor)

	return scoreStyle.Render("TIME: ") + timeStyle.Render(formatClock(st.TimeRemaining)) +
		scoreStyle.Render(fmt.Sprintf(" | MOVES: %d | PAIRS: %d/%d",
			st.Moves, st.PairsSolved(), len(st.Cards)/2))
}

func (s *LocalState) RenderHighScores() string {
	tier := s.Session.Difficulty.Name
	records := s.Scores.Top(tier, highscore.MaxEntries)
	if len(records) == 0 {
		return dimStyle.Render("No high scores yet for " + tier + ".")
	}

	rows := make([]table.Row, 0, len(records))
	for i, r := range records {
		rows = append(rows, table.Row{
			strconv.Itoa(i + 1),
			strconv.Itoa(r.Score),
			strconv.Itoa(r.Moves),
			formatClock(r.TimeRemaining),
		})
	}

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 3},
			{Title: "Score", Width: 7},
			{Title: "Moves", Width: 6},
			{Title: "Left", Width: 6},
		}),
		table.WithRows(rows),
		table.WithHeight(highscore.MaxEntries+1),
		table.WithFocused(false),
	)
	return boldStyle.Render("High scores ("+tier+")") + "\n" + t.View()
}

func (s *LocalState) View() string {
	var b strings.Builder

	header := boldStyle.Render("go-pairs") + dimStyle.Render(" | "+s.Session.Difficulty.Name)
	if best := s.Scores.HighScore(s.Session.Difficulty.Name); best != nil {
		header += dimStyle.Render(fmt.Sprintf(" | best %d", best.Score))
	}
	b.WriteString(header + "\n\n")

	g := s.Session.CurrentGame
	if g == nil {
		if s.Message != "" {
			b.WriteString(s.Message + "\n")
		}
		b.WriteString("\n" + s.RenderHighScores() + "\n\n" + s.Help.View(keys))
		return b.String()
	}

	b.WriteString(s.RenderBoard() + "\n")
	b.WriteString(s.StatusLine() + "\n")
	if s.Message != "" {
		b.WriteString("\n" + s.Message + "\n")
	}

	if g.State.Win {
		bd := scoring.Explain(len(g.State.Solved), g.State.TimeRemaining, g.State.Moves)
		b.WriteString(dimStyle.Render(fmt.Sprintf("%d matched + %d time bonus - %d moves penalty",
			bd.Base, bd.TimeBonus, bd.MovesPenalty)) + "\n")
		if s.Session.LastRank >= 0 {
			b.WriteString(greenStyle.Render(fmt.Sprintf("New high score! Rank #%d", s.Session.LastRank+1)) + "\n")
		}
	}
	if g.State.Over {
		b.WriteString("\n" + s.RenderHighScores() + "\n")
	}

	b.WriteString("\n" + s.Help.View(keys))
	return b.String()
}

func formatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// timerFlag accepts seconds or MM:SS. Zero keeps each tier's own limit.
type timerFlag int

func (t *timerFlag) String() string {
	return fmt.Sprint(int(*t))
}

func (t *timerFlag) Set(s string) error {
	// Try parsing as simple integer first
	if val, err := strconv.Atoi(s); err == nil && val >= 0 {
		*t = timerFlag(val)
		return nil
	}

	// Try parsing MM:SS
	parts := strings.Split(s, ":")
	if len(parts) == 2 {
		min, err1 := strconv.Atoi(parts[0])
		sec, err2 := strconv.Atoi(parts[1])
		if err1 == nil && err2 == nil && min >= 0 && sec >= 0 && sec < 60 {
			*t = timerFlag(min*60 + sec)
			return nil
		}
	}

	return fmt.Errorf("invalid timer format: %s (use 'MM:SS' or seconds)", s)
}

type strictIntFlag int64

func (i *strictIntFlag) String() string {
	return fmt.Sprint(int64(*i))
}

func (i *strictIntFlag) Set(s string) error {
	if s == "true" {
		return fmt.Errorf("value required (format: -flag=value)")
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*i = strictIntFlag(v)
	return nil
}

func (i *strictIntFlag) IsBoolFlag() bool { return true }

func openStore(ctx context.Context, cfg config.Config) (kvstore.Store, func() error, error) {
	switch cfg.StoreKind {
	case config.StoreMemory:
		return kvstore.NewMemory(), func() error { return nil }, nil
	case config.StoreSQLite:
		s, err := kvstore.OpenSQLite(ctx, cfg.StorePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open score database: %w", err)
		}
		return s, s.Close, nil
	default:
		return kvstore.NewFile(cfg.StorePath), func() error { return nil }, nil
	}
}

func newLogger(cfg config.Config) (zerolog.Logger, func() error, error) {
	if cfg.LogFile == "" {
		return zerolog.Nop(), func() error { return nil }, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(f).Level(lvl).With().Timestamp().Logger(), f.Close, nil
}

// applyFlags layers command-line values over the loaded configuration.
func applyFlags(cfg config.Config, difficulty string, timer timerFlag, symbolsPath, store, storePath string, seed strictIntFlag) (config.Config, error) {
	if difficulty != "" {
		cfg.DefaultDifficulty = difficulty
	}
	if timer > 0 {
		cfg = cfg.WithTimeLimit(int(timer))
	}
	if symbolsPath != "" {
		symbols, err := board.LoadSymbols([]string{symbolsPath})
		if err != nil {
			return cfg, err
		}
		cfg.Symbols = symbols
	}
	if store != "" && store != cfg.StoreKind {
		cfg.StoreKind = store
		if storePath == "" && store != config.StoreMemory {
			path, err := config.DefaultStorePath(store)
			if err != nil {
				return cfg, err
			}
			cfg.StorePath = path
		}
	}
	if storePath != "" {
		cfg.StorePath = storePath
	}
	if seed != 0 {
		cfg.Seed = int64(seed)
	}
	return cfg, cfg.Validate()
}

func main() {
	var difficulty string
	var tFlag timerFlag
	var symbolsPath string
	var store string
	var storePath string
	var seed strictIntFlag

	flag.StringVar(&difficulty, "difficulty", "", "Difficulty tier (easy, medium, hard)")
	flag.StringVar(&difficulty, "d", "", "Difficulty tier (shorthand)")

	flag.Var(&tFlag, "timer", "Override the time limit (e.g. 45 or 1:30)")
	flag.Var(&tFlag, "t", "Override the time limit (shorthand)")

	flag.StringVar(&symbolsPath, "symbols", "", "File with one card symbol per line")
	flag.StringVar(&symbolsPath, "s", "", "File with one card symbol per line (shorthand)")

	flag.StringVar(&store, "store", "", "High score store: file, sqlite or memory")
	flag.StringVar(&storePath, "store-path", "", "Path of the high score store")
	flag.Var(&seed, "seed", "Seed for the board shuffle")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		fmt.Fprintf(os.Stderr, "    -d, --difficulty=NAME  Difficulty tier (easy, medium, hard)\n")
		fmt.Fprintf(os.Stderr, "    -t, --timer=value      Override the time limit (e.g. 45 or 1:30)\n")
		fmt.Fprintf(os.Stderr, "    -s, --symbols=FILE     File with one card symbol per line\n")
		fmt.Fprintf(os.Stderr, "        --store=KIND       High score store: file, sqlite or memory\n")
		fmt.Fprintf(os.Stderr, "        --store-path=PATH  Path of the high score store\n")
		fmt.Fprintf(os.Stderr, "        --seed=N           Seed for the board shuffle\n")
		fmt.Fprintf(os.Stderr, "    -h, --help             Show this help message\n")
	}

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	cfg, err = applyFlags(cfg, difficulty, tFlag, symbolsPath, store, storePath, seed)
	if err != nil {
		fmt.Printf("Error in configuration: %v\n", err)
		os.Exit(1)
	}

	log, closeLog, err := newLogger(cfg)
	if err != nil {
		fmt.Printf("Error opening log: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx := context.Background()
	kv, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("store unavailable")
		fmt.Printf("Error opening score store: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	log.Info().Int64("seed", cfg.Seed).Str("store", cfg.StoreKind).Msg("starting go-pairs")

	model, err := initialModel(cfg, kv, rng, log)
	if err != nil {
		fmt.Printf("Error initializing model: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(model)
	if _, err := p.Run(); err != nil {
		log.Error().Err(err).Msg("program exited")
		fmt.Printf("Error starting the program: %v\n", err)
	}
}
