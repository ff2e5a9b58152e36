package endpoints

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/wikibook/internal/api"
	"github.com/jackzampolin/wikibook/internal/bookflow"
	"github.com/jackzampolin/wikibook/internal/svcctx"
)

const (
	eventWriteWait    = 10 * time.Second
	eventPingInterval = 30 * time.Second
)

// Event types sent on the job event stream.
const (
	EventUpdate = "update"
	EventDone   = "done"
)

// JobEvent is one message on /api/jobs/{id}/events. Updates seen before
// the connection opened are replayed first. The last message is always a
// done event carrying the final job.
type JobEvent struct {
	Type   string           `json:"type"`
	Update *bookflow.Update `json:"update,omitempty"`
	Job    *bookflow.Record `json:"job,omitempty"`
}

// eventUpgrader keeps gorilla's same-origin check.
var eventUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// JobEventsEndpoint handles GET /api/jobs/{id}/events.
type JobEventsEndpoint struct{}

func (e *JobEventsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs/{id}/events", e.handler
}

func (e *JobEventsEndpoint) RequiresSession() bool { return false }

// handler godoc
//
//	@Summary		Stream job progress
//	@Description	WebSocket stream of JobEvent messages. Earlier updates are replayed, then live ones follow until a done event.
//	@Tags			jobs
//	@Param			id	path	string	true	"Job ID"
//	@Success		101
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/jobs/{id}/events [get]
func (e *JobEventsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	tracker := svcctx.TrackerFrom(r.Context())
	if tracker == nil {
		writeError(w, http.StatusServiceUnavailable, "job tracker not initialized")
		return
	}
	logger := svcctx.LoggerFrom(r.Context())

	id := r.PathValue("id")
	history, updates, unsubscribe, err := tracker.Subscribe(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	defer unsubscribe()

	conn, err := eventUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		if logger != nil {
			logger.Warn("job event upgrade failed", "id", id, "error", err)
		}
		return
	}
	defer conn.Close()

	// Reading keeps control frames flowing and tells us when the peer leaves.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func(ev JobEvent) error {
		conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
		return conn.WriteJSON(ev)
	}

	for i := range history {
		if err := send(JobEvent{Type: EventUpdate, Update: &history[i]}); err != nil {
			return
		}
	}

	ping := time.NewTicker(eventPingInterval)
	defer ping.Stop()

	for {
		select {
		case u, ok := <-updates:
			if !ok {
				rec, _ := tracker.Get(id)
				if rec != nil {
					rec.Updates = nil
				}
				if err := send(JobEvent{Type: EventDone, Job: rec}); err != nil {
					return
				}
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"),
					time.Now().Add(eventWriteWait))
				return
			}
			if err := send(JobEvent{Type: EventUpdate, Update: &u}); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventWriteWait)); err != nil {
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (e *JobEventsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <id>",
		Short: "Follow a book job until it ends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := WatchJob(cmd.Context(), getServerURL(), args[0], PrintUpdate)
			if err != nil {
				return err
			}
			if err := api.Output(JobResponse{Job: rec}); err != nil {
				return err
			}
			if rec.Status == bookflow.StatusFailed {
				return errors.New(rec.Error)
			}
			return nil
		},
	}
}

// WatchJob follows the event stream of job id on the server at serverURL,
// calling onUpdate for every update, and returns the final job.
func WatchJob(ctx context.Context, serverURL, id string, onUpdate func(bookflow.Update)) (*bookflow.Record, error) {
	u, err := eventsURL(serverURL, id)
	if err != nil {
		return nil, err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", bookflow.ErrRecordNotFound, id)
		}
		return nil, &api.TransportError{Err: err}
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var ev JobEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("job event stream closed: %w", err)
		}
		switch ev.Type {
		case EventUpdate:
			if ev.Update != nil && onUpdate != nil {
				onUpdate(*ev.Update)
			}
		case EventDone:
			if ev.Job == nil {
				return nil, fmt.Errorf("%w: %s", bookflow.ErrRecordNotFound, id)
			}
			return ev.Job, nil
		}
	}
}

func eventsURL(serverURL, id string) (string, error) {
	base, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch base.Scheme {
	case "https":
		base.Scheme = "wss"
	case "http", "":
		base.Scheme = "ws"
	}
	base.Path += "/api/jobs/" + url.PathEscape(id) + "/events"
	return base.String(), nil
}

// PrintUpdate writes a progress line to stderr.
func PrintUpdate(u bookflow.Update) {
	if u.TaskID != "" {
		api.Progressf("[%s] %s (%s)", u.Label(), u.Message, u.TaskID)
		return
	}
	api.Progressf("[%s] %s", u.Label(), u.Message)
}
