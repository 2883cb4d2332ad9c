package ui

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RoomStat is one row of the relay stats table.
type RoomStat struct {
	Code      string
	Members   int
	CreatedAt time.Time
}

// StatsTitle is the heading printed above the stats table.
func StatsTitle(server string) string {
	return fmt.Sprintf("%s %s", IconStats, HeaderStyle.Render("Relay "+server))
}

// StatsView renders relay stats as a table. now is used for room ages.
func StatsView(connections int, rooms []RoomStat, now time.Time) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Color.Header = text.Colors{text.Bold, text.FgCyan}
	tw.Style().Color.Footer = text.Colors{text.FgHiBlack}
	tw.Style().Format.Footer = text.FormatDefault
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})

	tw.AppendHeader(table.Row{"Room", "Members", "Age"})
	members := 0
	for _, r := range rooms {
		tw.AppendRow(table.Row{r.Code, r.Members, FormatAge(now.Sub(r.CreatedAt))})
		members += r.Members
	}
	if len(rooms) == 0 {
		tw.AppendRow(table.Row{"(no rooms)", "", ""})
	}
	tw.AppendFooter(table.Row{
		fmt.Sprintf("%d rooms", len(rooms)),
		members,
		fmt.Sprintf("%d connections", connections),
	})

	return tw.Render()
}

// FormatAge renders a duration the way humans read room ages.
func FormatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// FormatRTT renders a round-trip time, or a dash before the first sample.
func FormatRTT(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000)
}

type RoomInfo struct {
	Room   string
	SelfID string
}

func NewRoomInfo(room, selfID string) *RoomInfo {
	return &RoomInfo{Room: room, SelfID: selfID}
}

func (r *RoomInfo) View() string {
	content := fmt.Sprintf("%s Joined room!\n\n%s Room:     %s\n%s You are:  %s\n\n%s %s",
		IconSuccess,
		IconRoom, BoldStyle.Foreground(Primary).Render(r.Room),
		IconPeer, MutedStyle.Render(r.SelfID),
		IconCopy, MutedStyle.Render("Share the room code so others can join."),
	)

	return InfoBoxStyle.Render(content)
}

func RenderRoomInfo(room, selfID string) {
	fmt.Println(NewRoomInfo(room, selfID).View())
}
