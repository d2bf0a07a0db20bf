package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/internal/realtime"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/response"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	SurfaceNotifications = "notifications"
	SurfaceComplaints    = "complaints"

	complaintSnapshotSize = 100
)

// clientMessage is the only inbound frame; {"type":"refetch"} reloads the surface.
type clientMessage struct {
	Type string `json:"type"`
}

// Frame is one server-to-client websocket message.
type Frame struct {
	Type    string          `json:"type"`
	Surface string          `json:"surface"`
	Event   *realtime.Event `json:"event,omitempty"`
	Data    interface{}     `json:"data,omitempty"`
}

type realtimeNotifications interface {
	ListRecent(ctx context.Context, userID string, limit int) ([]models.Notification, int, error)
}

type realtimeComplaints interface {
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintRow, *models.Pagination, error)
	ListMine(ctx context.Context, studentID string, status string, page, pageSize int) ([]models.ComplaintRow, *models.Pagination, error)
}

// RealtimeHandler mounts one store per connection and streams its updates.
type RealtimeHandler struct {
	bus           realtime.Bus
	notifications realtimeNotifications
	complaints    realtimeComplaints
	upgrader      websocket.Upgrader
	buffer        int
	logger        *zap.Logger
}

// NewRealtimeHandler accepts upgrades from allowedOrigins, or from any origin when empty.
func NewRealtimeHandler(bus realtime.Bus, notifications realtimeNotifications, complaints realtimeComplaints, allowedOrigins []string, buffer int, logger *zap.Logger) *RealtimeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealtimeHandler{
		bus:           bus,
		notifications: notifications,
		complaints:    complaints,
		buffer:        buffer,
		logger:        logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[strings.TrimRight(origin, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := set[u.Scheme+"://"+u.Host]
		return ok
	}
}

// Serve godoc
// @Summary Live feed over websocket
// @Tags Realtime
// @Param surface query string true "notifications or complaints"
// @Success 101
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /api/realtime/ws [get]
func (h *RealtimeHandler) Serve(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}

	surface := c.Query("surface")
	if surface != SurfaceNotifications && surface != SurfaceComplaints {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "surface must be notifications or complaints"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	// The request context ends when the handler returns, so the connection owns its own.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var m mounted
	switch surface {
	case SurfaceNotifications:
		m, err = mount(ctx, surface, h.notificationStore(session))
	default:
		m, err = mount(ctx, surface, h.complaintStore(session))
	}
	if err != nil {
		h.logger.Error("realtime baseline failed", zap.String("surface", surface), zap.Error(err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "baseline unavailable"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	defer m.stop()

	refetch := make(chan struct{}, 1)
	go h.readPump(conn, refetch, cancel)
	h.writePump(ctx, conn, m, refetch)
}

func (h *RealtimeHandler) notificationStore(session *models.Session) *realtime.Store[models.Notification] {
	userID := session.UserID
	return realtime.NewStore[models.Notification](h.bus,
		realtime.ForOwner(realtime.EntityNotification, userID),
		func(ctx context.Context) ([]models.Notification, error) {
			items, _, err := h.notifications.ListRecent(ctx, userID, realtime.NotificationWindow)
			return items, err
		},
		realtime.ReduceNotifications,
		h.buffer,
	)
}

func (h *RealtimeHandler) complaintStore(session *models.Session) *realtime.Store[models.ComplaintRow] {
	if session.Role.IsStaff() {
		return realtime.NewStore[models.ComplaintRow](h.bus,
			realtime.ForEntity(realtime.EntityComplaint),
			func(ctx context.Context) ([]models.ComplaintRow, error) {
				rows, _, err := h.complaints.List(ctx, models.ComplaintFilter{Page: 1, PageSize: complaintSnapshotSize})
				return rows, err
			},
			realtime.ReduceComplaints,
			h.buffer,
		)
	}

	userID := session.UserID
	return realtime.NewStore[models.ComplaintRow](h.bus,
		realtime.ForOwner(realtime.EntityComplaint, userID),
		func(ctx context.Context) ([]models.ComplaintRow, error) {
			rows, _, err := h.complaints.ListMine(ctx, userID, "", 1, complaintSnapshotSize)
			return rows, err
		},
		realtime.ReduceComplaints,
		h.buffer,
	)
}

type mounted struct {
	first  Frame
	frames <-chan Frame
	reload func(ctx context.Context) (Frame, error)
	stop   func()
}

// mount starts store and converts its updates into frames. frames closes when
// the store stops.
func mount[T any](ctx context.Context, surface string, store *realtime.Store[T]) (mounted, error) {
	if err := store.Start(ctx); err != nil {
		return mounted{}, err
	}

	out := make(chan Frame, 1)
	go func() {
		defer close(out)
		for upd := range store.Updates() {
			ev := upd.Event
			frame := Frame{Type: "event", Surface: surface, Event: &ev, Data: upd.State}
			if upd.Err != nil {
				frame = Frame{Type: "error", Surface: surface, Event: &ev, Data: upd.Err.Error()}
			}
			select {
			case out <- frame:
			case <-ctx.Done():
				return
			}
			if upd.Effect.Alert != nil {
				select {
				case out <- Frame{Type: "alert", Surface: surface, Data: upd.Effect.Alert}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return mounted{
		first:  Frame{Type: "snapshot", Surface: surface, Data: store.Snapshot()},
		frames: out,
		reload: func(ctx context.Context) (Frame, error) {
			state, err := store.Refetch(ctx)
			if err != nil {
				return Frame{Type: "error", Surface: surface, Data: err.Error()}, err
			}
			return Frame{Type: "snapshot", Surface: surface, Data: state}, nil
		},
		stop: store.Close,
	}, nil
}

func (h *RealtimeHandler) readPump(conn *websocket.Conn, refetch chan<- struct{}, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			var (
				syntaxErr *json.SyntaxError
				typeErr   *json.UnmarshalTypeError
			)
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read ended", zap.Error(err))
			}
			return
		}
		if msg.Type != "refetch" {
			continue
		}
		select {
		case refetch <- struct{}{}:
		default:
		}
	}
}

func (h *RealtimeHandler) writePump(ctx context.Context, conn *websocket.Conn, m mounted, refetch <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	if err := writeFrame(conn, m.first); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case <-refetch:
			frame, err := m.reload(ctx)
			if err != nil {
				h.logger.Warn("realtime refetch failed", zap.Error(err))
			}
			if err := writeFrame(conn, frame); err != nil {
				return
			}
		case frame, ok := <-m.frames:
			if !ok {
				return
			}
			if err := writeFrame(conn, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, frame Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(frame)
}
