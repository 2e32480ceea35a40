package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"strangerchat/internal/chat/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // must be < pongWait

	dispatchTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true }, // dev-only
}

// ConnContext carries per-connection data into intent handlers.
type ConnContext struct {
	Conn *clientConn
}

type WsServer struct {
	dispatcher *session.Dispatcher
	router     *Router
	readLimit  int64
}

func NewWsServer(d *session.Dispatcher, readLimit int64) *WsServer {
	srv := &WsServer{
		dispatcher: d,
		router:     NewRouter(),
		readLimit:  readLimit,
	}
	srv.registerHandlers() // ← all WS intents configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry-point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	rawConn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(s.readLimit)

	// ─────────────────── Client connected ────────────────────────
	conn := &clientConn{id: uuid.NewString(), rawConn: rawConn}
	s.dispatcher.Connect(conn)
	zap.L().Debug("ws.connected", zap.String("conn", conn.id))

	go s.reader(conn)
	go s.pinger(conn)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	d := s.dispatcher

	Register(s.router, "create_room",
		func(_ context.Context, c *ConnContext, req CreateRoomIntent) error {
			d.CreateRoom(c.Conn, req.Username)
			return nil
		})

	Register(s.router, "join_room",
		func(_ context.Context, c *ConnContext, req JoinRoomIntent) error {
			d.JoinRoom(c.Conn, req.RoomID, req.Username, req.Type)
			return nil
		})

	Register(s.router, "find_random_chat",
		func(_ context.Context, c *ConnContext, req FindRandomChatIntent) error {
			d.FindRandomChat(c.Conn, req.Username)
			return nil
		})

	Register(s.router, "cancel_random_search",
		func(_ context.Context, c *ConnContext, _ CancelRandomSearchIntent) error {
			d.CancelRandomSearch(c.Conn)
			return nil
		})

	Register(s.router, "leave_room",
		func(_ context.Context, c *ConnContext, req LeaveRoomIntent) error {
			d.LeaveRoom(c.Conn, req.RoomID)
			return nil
		})

	Register(s.router, "close_room",
		func(_ context.Context, c *ConnContext, req CloseRoomIntent) error {
			d.CloseRoom(c.Conn, req.RoomID)
			return nil
		})

	Register(s.router, "send_message",
		func(_ context.Context, c *ConnContext, req SendMessageIntent) error {
			d.SendMessage(c.Conn, req.RoomID, req.Message, req.Username)
			return nil
		})

	Register(s.router, "typing",
		func(_ context.Context, c *ConnContext, req TypingIntent) error {
			d.Typing(c.Conn, req.RoomID, req.Username)
			return nil
		})

	Register(s.router, "stop_typing",
		func(_ context.Context, c *ConnContext, req StopTypingIntent) error {
			d.StopTyping(c.Conn, req.RoomID)
			return nil
		})

	Register(s.router, "update_online_count",
		func(_ context.Context, _ *ConnContext, _ UpdateOnlineCountIntent) error {
			d.BroadcastOnlineCount()
			return nil
		})
}

func (s *WsServer) reader(conn *clientConn) {
	defer func() {
		s.dispatcher.Disconnect(conn)
		_ = conn.rawConn.Close()
		zap.L().Debug("ws.disconnected", zap.String("conn", conn.id))
	}()

	_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	cc := &ConnContext{Conn: conn}

	for {
		_, frame, err := conn.rawConn.ReadMessage()
		if err != nil {
			return // client closed or errored
		}

		// A frame that is not an intent envelope is dropped, not fatal:
		// one connection's bad input never tears that connection down.
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			s.dispatcher.DropIntent("malformed_frame", err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		err = s.router.dispatch(ctx, cc, env)
		cancel()

		// Malformed and unknown intents get no wire reply; they are only
		// logged and counted server-side.
		if err != nil {
			s.dispatcher.DropIntent(env.Event, err)
		}
	}
}

func (s *WsServer) pinger(conn *clientConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.write(websocket.PingMessage, nil); err != nil {
			_ = conn.rawConn.Close()
			return
		}
	}
}
