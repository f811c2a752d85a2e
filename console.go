package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"

	"node.town/triage/convo"
	"node.town/triage/session"
	"node.town/triage/summary"
)

var (
	speakerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff8800"))
	interimStyle = lipgloss.NewStyle().Faint(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true).MarginTop(1)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff3333"))
	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5f87ff")).
			Padding(0, 1)

	priorityStyles = map[convo.Priority]lipgloss.Style{
		convo.PriorityHigh:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff3333")),
		convo.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("#ffaf00")),
		convo.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("#87af87")),
	}
	kindMarks = map[convo.Kind]string{
		convo.KindWarning:  "!",
		convo.KindInfo:     "i",
		convo.KindQuestion: "?",
		convo.KindProtocol: "#",
	}
)

// console is a session client on the terminal. Events are rendered to out;
// lines typed on in become control messages.
type console struct {
	out io.Writer

	mu      sync.Mutex
	lines   chan string
	unblock chan struct{}
	once    sync.Once
	showAll bool
}

// newConsole reads commands from in. A nil in means the console never
// sends anything and only ends when the session tears it down.
func newConsole(in io.Reader, out io.Writer) *console {
	c := &console{
		out:     out,
		lines:   make(chan string),
		unblock: make(chan struct{}),
	}
	if in != nil {
		go c.scan(in)
	}
	return c
}

func (c *console) scan(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case c.lines <- line:
		case <-c.unblock:
			return
		}
	}
}

func (c *console) ReadMessage() (int, []byte, error) {
	for {
		select {
		case <-c.unblock:
			return 0, nil, io.EOF
		case line := <-c.lines:
			msg, quit, ok := parseCommand(line)
			if quit {
				return 0, nil, io.EOF
			}
			if !ok {
				fmt.Fprintln(c.out, errorStyle.Render("commands: report, followup, quit"))
				continue
			}
			data, err := json.Marshal(msg)
			if err != nil {
				return 0, nil, err
			}
			return websocket.TextMessage, data, nil
		}
	}
}

// parseCommand maps a typed line to a control message.
func parseCommand(line string) (msg session.ControlMessage, quit bool, ok bool) {
	switch strings.ToLower(line) {
	case "quit", "exit", "q":
		return msg, true, true
	case "report", "r":
		return session.ControlMessage{Type: "stop_recording", SummaryType: string(summary.KindReport)}, false, true
	case "followup", "f":
		return session.ControlMessage{Type: "stop_recording", SummaryType: string(summary.KindFollowup)}, false, true
	}
	return msg, false, false
}

func (c *console) WriteMessage(_ int, data []byte) error {
	text, err := renderEvent(data, c.showAll)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = fmt.Fprintln(c.out, text)
	return err
}

// SetReadDeadline is only used by teardown to stop the reader, so any
// deadline unblocks it.
func (c *console) SetReadDeadline(time.Time) error {
	c.once.Do(func() { close(c.unblock) })
	return nil
}

func (c *console) SetWriteDeadline(time.Time) error { return nil }

type consoleEvent struct {
	Type        string             `json:"type"`
	Transcript  string             `json:"transcript"`
	IsFinal     bool               `json:"is_final"`
	Speaker     *int               `json:"speaker"`
	Suggestions []convo.Suggestion `json:"suggestions"`
	Summary     string             `json:"summary"`
	Error       string             `json:"error"`
}

// renderEvent formats one session event for the terminal. Interim
// transcripts are only shown with interim set.
func renderEvent(data []byte, interim bool) (string, error) {
	var ev consoleEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return "", fmt.Errorf("decode event: %w", err)
	}

	switch {
	case ev.Type == "transcript":
		who := convo.Utterance{Speaker: ev.Speaker}.SpeakerLabel()
		if !ev.IsFinal {
			if !interim {
				return "", nil
			}
			return interimStyle.Render(who + ": " + ev.Transcript), nil
		}
		return speakerStyle.Render(who+":") + " " + ev.Transcript, nil

	case ev.Type == "suggestions":
		var b strings.Builder
		b.WriteString(headerStyle.Render("Suggesties"))
		for _, s := range ev.Suggestions {
			style, ok := priorityStyles[s.Priority]
			if !ok {
				style = priorityStyles[convo.PriorityMedium]
			}
			b.WriteString("\n")
			b.WriteString(style.Render(fmt.Sprintf("[%s] %s", kindMarks[s.Kind], s.Text)))
			for i, step := range s.Steps {
				fmt.Fprintf(&b, "\n    %d. %s", i+1, step.Title)
			}
		}
		return b.String(), nil

	case strings.HasSuffix(ev.Type, "_summary_start"):
		return interimStyle.Render(summaryTitle(ev.Type) + " wordt gemaakt..."), nil

	case strings.HasSuffix(ev.Type, "_summary_complete"):
		return headerStyle.Render(summaryTitle(ev.Type)) + "\n" + summaryStyle.Render(ev.Summary), nil

	case strings.HasSuffix(ev.Type, "_summary_error"):
		return errorStyle.Render(summaryTitle(ev.Type) + " mislukt: " + ev.Error), nil

	case ev.Type == "" && ev.Error != "":
		return errorStyle.Render("sessie afgebroken: " + ev.Error), nil
	}
	return "", nil
}

func summaryTitle(eventType string) string {
	if strings.HasPrefix(eventType, "ecd_") {
		return "Dossiersamenvatting"
	}
	return "Gesprekssamenvatting"
}
