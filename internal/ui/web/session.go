package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"coin_tracker/internal/domain"
	"coin_tracker/internal/render"
	"coin_tracker/internal/service"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsMaxMessage   = 4096
)

// clientMessage is one user action sent by the browser.
type clientMessage struct {
	Type     string `json:"type"` // search, page, page_size, first, prev, next, last, theme
	Search   string `json:"search,omitempty"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
	Theme    string `json:"theme,omitempty"`
}

// serverMessage is pushed to the browser after every change.
type serverMessage struct {
	Type    string         `json:"type"` // page, error
	Session string         `json:"session"`
	Page    *pagePayload   `json:"page,omitempty"`
	Palette render.Palette `json:"palette"`
	Error   string         `json:"error,omitempty"`
}

// session owns one browser tab's MarketTable. All reads of client
// messages and feed notifications are applied by the run loop alone,
// which is also the only writer on conn.
type session struct {
	id     string
	srv    *Server
	conn   *websocket.Conn
	table  *service.MarketTable
	theme  render.Mode
	logger *slog.Logger
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", slog.Any("error", err))
		return
	}

	id := uuid.NewString()
	sess := &session{
		id:     id,
		srv:    s,
		conn:   conn,
		table:  service.NewMarketTable(s.pageSize),
		theme:  s.currentTheme(),
		logger: slog.Default().With("module", "web", "session", id),
	}
	sess.run(r.Context())
}

func (ss *session) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	defer ss.conn.Close()

	ss.srv.metrics.IncrementSessions()
	defer ss.srv.metrics.DecrementSessions()
	ss.logger.Info("Session opened")
	defer ss.logger.Info("Session closed")

	var updates <-chan struct{}
	if ss.srv.feed != nil {
		ch, unsubscribe := ss.srv.feed.Subscribe()
		defer unsubscribe()
		updates = ch
	}

	incoming := make(chan clientMessage)
	go ss.readLoop(ctx, cancel, incoming)

	ss.reload()
	if err := ss.pushPage(); err != nil {
		return
	}

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			ss.reload()
			if err := ss.pushPage(); err != nil {
				return
			}
		case msg := <-incoming:
			var err error
			if applyErr := ss.apply(msg); applyErr != nil {
				err = ss.write(serverMessage{Type: "error", Session: ss.id, Palette: render.PaletteFor(ss.theme), Error: applyErr.Error()})
			} else {
				err = ss.pushPage()
			}
			if err != nil {
				return
			}
		case <-ping.C:
			ss.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := ss.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ss *session) readLoop(ctx context.Context, cancel context.CancelFunc, out chan<- clientMessage) {
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			ss.logger.Error("Session read panic recovered", slog.Any("panic", r))
		}
	}()

	ss.conn.SetReadLimit(wsMaxMessage)
	ss.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	ss.conn.SetPongHandler(func(string) error {
		return ss.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	for {
		_, data, err := ss.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ss.logger.Warn("WebSocket read error", slog.Any("error", err))
			}
			return
		}
		ss.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			ss.logger.Debug("Ignoring malformed client message", slog.Any("error", err))
			continue
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// reload copies the latest feed snapshot into the session's table.
func (ss *session) reload() {
	records, at, _ := ss.srv.snapshot()
	ss.table.Replace(records, at)
}

func (ss *session) apply(msg clientMessage) error {
	switch msg.Type {
	case "search":
		ss.table.SetSearch(msg.Search)
	case "page":
		ss.table.SetPage(msg.Page)
	case "page_size":
		return ss.table.SetPageSize(msg.PageSize)
	case "first":
		ss.table.FirstPage()
	case "prev":
		ss.table.PrevPage()
	case "next":
		ss.table.NextPage()
	case "last":
		ss.table.LastPage()
	case "theme":
		if msg.Theme == "" {
			ss.theme = ss.theme.Toggle()
		} else {
			ss.theme = render.ParseMode(msg.Theme)
		}
		if ss.srv.prefs != nil {
			if err := ss.srv.prefs.SaveConfig(domain.PrefTheme, string(ss.theme)); err != nil {
				ss.logger.Warn("Failed to save theme preference", slog.Any("error", err))
			}
		}
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

func (ss *session) pushPage() error {
	_, _, lastErr := ss.srv.snapshot()
	payload := ss.srv.buildPayload(ss.table.View(), ss.table.UpdatedAt(), lastErr)
	return ss.write(serverMessage{
		Type:    "page",
		Session: ss.id,
		Page:    &payload,
		Palette: render.PaletteFor(ss.theme),
	})
}

func (ss *session) write(msg serverMessage) error {
	ss.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := ss.conn.WriteJSON(msg); err != nil {
		ss.logger.Debug("WebSocket write failed", slog.Any("error", err))
		return err
	}
	return nil
}
