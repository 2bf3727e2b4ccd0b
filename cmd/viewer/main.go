// Command viewer follows a project's event stream in the terminal. Updates
// are replayed through the animation queue, so a burst of rapid changes is
// shown one section at a time the way a browser client would render it.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dgallion1/noteloop/internal/broadcast"
	"github.com/dgallion1/noteloop/internal/notes"
	"github.com/dgallion1/noteloop/internal/replay"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8090", "noteloop server base URL")
	project := flag.String("project", "default", "project to follow")
	apiKey := flag.String("api-key", os.Getenv("NOTELOOP_API_KEY"), "bearer token, if the server requires one")
	flag.Parse()

	for {
		if err := follow(*baseURL, *project, *apiKey); err != nil {
			fmt.Fprintf(os.Stderr, "stream error: %v, reconnecting...\n", err)
		}
		time.Sleep(2 * time.Second)
	}
}

func follow(baseURL, project, apiKey string) error {
	streamURL := baseURL + "/api/stream?project=" + url.QueryEscape(project)
	req, err := http.NewRequest(http.MethodGet, streamURL, nil)
	if err != nil {
		return err
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}

	var queue *replay.Queue
	display := &terminalDisplay{}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := []byte(strings.TrimPrefix(line, "data: "))

		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			fmt.Fprintf(os.Stderr, "bad event: %v\n", err)
			continue
		}

		switch envelope.Type {
		case broadcast.TypeInit:
			var ev broadcast.InitEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				return err
			}
			queue = replay.NewQueue(display, ev.Content, nil)
			display.SetContent(ev.Content)
			fmt.Printf("connected to %q: %d sections, %d pending\n",
				ev.Project, len(ev.Sections), len(ev.Pending))

		case broadcast.TypeFileUpdated:
			if queue == nil {
				continue
			}
			var ev broadcast.FileUpdatedEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				return err
			}
			switch ev.Action {
			case "clear", "import":
				queue.Reset(ev.Content)
				fmt.Printf("document replaced (%s)\n", ev.Action)
			default:
				section := ""
				if ev.Section != nil {
					section = *ev.Section
				}
				queue.Enqueue(ev.Content, section)
			}

		case broadcast.TypePendingCreated:
			var ev broadcast.PendingCreatedEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				return err
			}
			fmt.Printf("? pending update %s: %s\n", ev.Pending.ID, ev.Pending.Reason)

		case broadcast.TypePendingResolved:
			var ev broadcast.PendingResolvedEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				return err
			}
			fmt.Printf("? pending %s %s\n", ev.PendingID, ev.Action)

		case broadcast.TypeHeartbeat:
			// Keepalive only.
		}
	}
	return scanner.Err()
}

// terminalDisplay renders queue transitions as log lines rather than a live
// document view.
type terminalDisplay struct{}

func (d *terminalDisplay) SetContent(content string) {
	fmt.Printf("document now has %d sections\n", len(notes.Index(content)))
}

func (d *terminalDisplay) HighlightSection(heading string) {
	fmt.Printf("> updating %q\n", heading)
}

func (d *terminalDisplay) ClearHighlight(heading string) {
	fmt.Printf("> %q settled\n", heading)
}
