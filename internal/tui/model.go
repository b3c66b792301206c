package tui

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/liarsdice/internal/game"
	"github.com/lox/liarsdice/internal/server"
)

// ServerMsg carries one inbound frame into the bubbletea loop.
type ServerMsg struct {
	Msg *server.Message
}

// DisconnectMsg reports the websocket dropping.
type DisconnectMsg struct {
	Err error
}

// Model is the bubbletea model for the interactive client.
type Model struct {
	client *Client
	logger *log.Logger
	name   string

	logViewport viewport.Model
	input       textinput.Model
	gameLog     []string

	sessionID string
	playerID  string
	hand      []int
	state     *game.StateView

	width       int
	height      int
	initialized bool
	quitting    bool
}

// NewModel builds the client model. name is the display name used for create
// and join commands.
func NewModel(client *Client, name string, logger *log.Logger) *Model {
	input := textinput.New()
	input.Placeholder = "type 'help' for commands"
	input.Focus()
	input.CharLimit = 120

	vp := viewport.New(80, 20)

	return &Model{
		client:      client,
		logger:      logger.WithPrefix("tui"),
		name:        name,
		input:       input,
		logViewport: vp,
		gameLog:     []string{InfoStyle.Render("connected, create or join a game")},
	}
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line != "" {
				m.runCommand(line)
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logViewport.Width = msg.Width
		m.logViewport.Height = max(msg.Height-6, 3)
		m.initialized = true
		m.refreshLog()

	case ServerMsg:
		m.handleServer(msg.Msg)
		return m, nil

	case DisconnectMsg:
		if msg.Err != nil {
			m.appendLog(ErrorStyle.Render("disconnected: " + msg.Err.Error()))
		}
		m.quitting = true
		return m, tea.Quit
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) View() string {
	if m.quitting {
		return "bye\n"
	}

	header := HeaderStyle.Render(" liar's dice ")
	status := m.statusLine()
	input := "> " + m.input.View()

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.logViewport.View(),
		status,
		input,
	)
}

func (m *Model) statusLine() string {
	parts := []string{}
	if len(m.hand) > 0 {
		parts = append(parts, HandStyle.Render(fmt.Sprintf("hand %v", m.hand)))
	}
	if m.state != nil && m.state.CurrentBid != nil {
		parts = append(parts, BidStyle.Render("bid "+m.state.CurrentBid.String()))
	}
	if m.state != nil {
		for _, p := range m.state.Players {
			if p.IsTurn {
				who := p.Name
				if p.ID == m.playerID {
					who = "you"
				}
				parts = append(parts, TurnStyle.Render("turn: "+who))
			}
		}
	}
	if len(parts) == 0 {
		return InfoStyle.Render("no game yet")
	}
	return strings.Join(parts, "  ")
}

// runCommand parses one input line and sends the matching frame.
func (m *Model) runCommand(line string) {
	fields := strings.Fields(line)
	var err error

	switch fields[0] {
	case "help":
		m.appendLog(InfoStyle.Render("commands: create | join <id> | bot | start | bid <count> <value> | call | list | quit"))
		return
	case "quit":
		m.quitting = true
		return
	case "create":
		err = m.client.Send(server.MessageTypeCreateSession, server.CreateSessionData{Name: m.name})
	case "join":
		if len(fields) < 2 {
			m.appendLog(ErrorStyle.Render("usage: join <session-id>"))
			return
		}
		err = m.client.Send(server.MessageTypeJoinSession, server.JoinSessionData{SessionID: fields[1], Name: m.name})
	case "bot":
		err = m.client.Send(server.MessageTypeAddBot, server.AddBotData{SessionID: m.sessionID})
	case "start":
		err = m.client.Send(server.MessageTypeStartSession, server.StartSessionData{SessionID: m.sessionID})
	case "bid":
		if len(fields) < 3 {
			m.appendLog(ErrorStyle.Render("usage: bid <count> <value>"))
			return
		}
		count, cerr := strconv.Atoi(fields[1])
		value, verr := strconv.Atoi(fields[2])
		if cerr != nil || verr != nil {
			m.appendLog(ErrorStyle.Render("bid takes two numbers"))
			return
		}
		err = m.client.Send(server.MessageTypePlaceBid, server.PlaceBidData{SessionID: m.sessionID, Count: count, Value: value})
	case "call":
		err = m.client.Send(server.MessageTypeCallBluff, server.CallBluffData{SessionID: m.sessionID})
	case "list":
		err = m.client.Send(server.MessageTypeListSessions, struct{}{})
	default:
		m.appendLog(ErrorStyle.Render("unknown command: " + fields[0]))
		return
	}

	if err != nil {
		m.appendLog(ErrorStyle.Render("send failed: " + err.Error()))
	}
}

// handleServer folds one inbound frame into the display state.
func (m *Model) handleServer(msg *server.Message) {
	switch msg.Type {
	case server.MessageTypeError:
		var data server.ErrorData
		if json.Unmarshal(msg.Data, &data) == nil {
			m.appendLog(ErrorStyle.Render(fmt.Sprintf("error (%s): %s", data.Code, data.Message)))
		}
		return

	case server.MessageTypeSessionList:
		var data server.SessionListData
		if json.Unmarshal(msg.Data, &data) == nil {
			if len(data.Sessions) == 0 {
				m.appendLog(InfoStyle.Render("no open games"))
			}
			for _, s := range data.Sessions {
				m.appendLog(InfoStyle.Render(fmt.Sprintf("game %s (%d/%d seats, started=%v)", s.ID, s.Players, s.Capacity, s.Started)))
			}
		}
		return
	}

	switch game.EventType(msg.Type) {
	case game.EventSessionCreated:
		var data game.SessionCreatedPayload
		if json.Unmarshal(msg.Data, &data) == nil {
			m.sessionID = data.SessionID
			m.playerID = data.PlayerID
			m.state = &data.State
			m.appendLog(GameLogStyle.Render("created game " + data.SessionID))
			m.appendLog(InfoStyle.Render("share the id, or type 'bot' then 'start'"))
		}

	case game.EventSessionJoined:
		var data game.SessionJoinedPayload
		if json.Unmarshal(msg.Data, &data) == nil {
			m.sessionID = data.SessionID
			m.playerID = data.PlayerID
			m.state = &data.State
			m.appendLog(GameLogStyle.Render("joined game " + data.SessionID))
		}

	case game.EventParticipantJoined:
		var data game.ParticipantJoinedPayload
		if json.Unmarshal(msg.Data, &data) == nil {
			m.state = &data.State
			m.appendLog(GameLogStyle.Render(data.Message))
		}

	case game.EventBotAdded:
		var data game.BotAddedPayload
		if json.Unmarshal(msg.Data, &data) == nil {
			m.state = &data.State
			m.appendLog(GameLogStyle.Render(data.Message))
		}

	case game.EventSessionStarted:
		var data game.SessionStartedPayload
		if json.Unmarshal(msg.Data, &data) == nil {
			m.state = &data.State
			m.appendLog(GameLogStyle.Render(data.Message))
		}

	case game.EventYourHand:
		var data game.YourHandPayload
		if json.Unmarshal(msg.Data, &data) == nil {
			m.hand = data.Dice
			m.appendLog(HandStyle.Render(fmt.Sprintf("your dice: %v", data.Dice)))
		}

	case game.EventBidMade:
		var data game.BidMadePayload
		if json.Unmarshal(msg.Data, &data) == nil {
			m.state = &data.State
			m.appendLog(BidStyle.Render(data.Message))
		}

	case game.EventBluffResolved:
		var data game.BluffResolvedPayload
		if json.Unmarshal(msg.Data, &data) == nil {
			m.state = &data.State
			m.appendLog(GameLogStyle.Render(data.Message))
			for _, p := range data.State.Players {
				if len(p.Dice) > 0 {
					m.appendLog(InfoStyle.Render(fmt.Sprintf("  %s had %v", p.Name, p.Dice)))
				}
			}
		}

	case game.EventRoundStarted:
		var data game.RoundStartedPayload
		if json.Unmarshal(msg.Data, &data) == nil {
			m.state = &data.State
			m.appendLog(GameLogStyle.Render(data.Message))
		}

	case game.EventGameOver:
		var data game.GameOverPayload
		if json.Unmarshal(msg.Data, &data) == nil {
			m.state = &data.State
			m.appendLog(TurnStyle.Render(data.Message))
		}

	case game.EventParticipantLeft:
		var data game.ParticipantLeftPayload
		if json.Unmarshal(msg.Data, &data) == nil {
			m.state = &data.State
			m.appendLog(GameLogStyle.Render(data.Message))
		}

	default:
		m.logger.Debug("unhandled message", "type", msg.Type)
	}
}

func (m *Model) appendLog(line string) {
	m.gameLog = append(m.gameLog, line)
	m.refreshLog()
}

func (m *Model) refreshLog() {
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	m.logViewport.GotoBottom()
}
