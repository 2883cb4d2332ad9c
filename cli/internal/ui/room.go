package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

const roomRefresh = 250 * time.Millisecond

// PeerRow is one remote peer as shown in the room view.
type PeerRow struct {
	ID     string
	Device string
	State  string
	RTT    time.Duration
}

// RoomSnapshot is polled by the room view on every refresh.
type RoomSnapshot struct {
	RelayRTT time.Duration
	Peers    []PeerRow
}

type refreshMsg time.Time

// RoomView shows the peers of a call and their connection quality until the
// user quits or Stop is called.
type RoomView struct {
	program *tea.Program
	model   *roomModel
}

type roomModel struct {
	room     string
	self     string
	snapshot func() RoomSnapshot
	current  RoomSnapshot
	spinner  spinner.Model
	status   string
	quitting bool
}

func NewRoomView(room, self string, snapshot func() RoomSnapshot) *RoomView {
	model := newRoomModel(room, self, snapshot)
	return &RoomView{program: tea.NewProgram(model), model: model}
}

func newRoomModel(room, self string, snapshot func() RoomSnapshot) *roomModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &roomModel{
		room:     room,
		self:     self,
		snapshot: snapshot,
		spinner:  s,
		status:   statusLine(nil),
	}
}

// Run blocks until the user presses q or Stop is called.
func (v *RoomView) Run() error {
	_, err := v.program.Run()
	return err
}

// Stop ends Run from another goroutine. It may be called before Run starts.
func (v *RoomView) Stop() {
	v.program.Quit()
}

func refresh() tea.Cmd {
	return tea.Tick(roomRefresh, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m *roomModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, refresh())
}

func (m *roomModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case refreshMsg:
		m.current = m.snapshot()
		m.status = statusLine(m.current.Peers)
		if !m.quitting {
			return m, refresh()
		}
	}
	return m, nil
}

func statusLine(peers []PeerRow) string {
	if len(peers) == 0 {
		return IconWaiting + " Waiting for peers..."
	}
	connected := 0
	for _, p := range peers {
		if p.State == "connected" {
			connected++
		}
	}
	return fmt.Sprintf("%d of %d peers connected", connected, len(peers))
}

func (m *roomModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(fmt.Sprintf("\n%s %s\n", IconCall, HeaderStyle.Render("In room "+m.room)))
	b.WriteString(MutedStyle.Render(fmt.Sprintf("   you are %s, relay rtt %s", m.self, FormatRTT(m.current.RelayRTT))))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("%s %s\n\n", m.spinner.View(), m.status))

	for _, p := range m.current.Peers {
		style := PeerStateStyle(p.State)
		name := p.ID
		if p.Device != "" {
			name = fmt.Sprintf("%s (%s)", p.ID, p.Device)
		}
		b.WriteString(fmt.Sprintf("  %s %s %s %s\n",
			IconPeer,
			PeerIDStyle.Render(name),
			style.Width(14).Render(p.State),
			MutedStyle.Render(FormatRTT(p.RTT)),
		))
	}

	b.WriteString("\n" + MutedStyle.Render("Press q to leave"))

	return b.String()
}
