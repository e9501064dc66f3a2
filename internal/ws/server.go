package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const dispatchTimeout = 1900 * time.Millisecond

var errUnauthorized = errors.New("unauthorized")
var errInvalidConversation = errors.New("invalid_conversation_id")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true }, // dev-only
}

// WsServer is the connection gateway: it authenticates handshakes, owns the
// per-connection reader/writer goroutines and routes inbound signals.
type WsServer struct {
	registry  *Registry
	pub       Publisher
	router    *Router
	queueSize int
}

func NewWsServer(registry *Registry, pub Publisher, queueSize int) *WsServer {
	srv := &WsServer{
		registry:  registry,
		pub:       pub,
		router:    NewRouter(),
		queueSize: queueSize,
	}
	srv.registerHandlers() // ← all WS signals configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry-point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	companyID, err := authenticate(ginCtx.Request)
	if err != nil {
		ginCtx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	sock, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.accept", zap.Error(err))
		return
	}

	// ─────────────────── Client connected ────────────────────────
	conn := newConn(sock, companyID, s.queueSize)
	s.registry.Add(CompanyGroup(companyID), conn)
	zap.L().Info("ws.connected",
		zap.String("conn", conn.ID),
		zap.String("company", companyID),
	)

	go conn.writePump()
	go s.reader(conn)
}

// authenticate extracts the tenant identity from the handshake. The company
// id may travel in the auth header or the query string; a handshake carrying
// neither is refused before the upgrade, so the connection is never
// registered anywhere.
func authenticate(r *http.Request) (string, error) {
	if v := r.Header.Get("X-Company-Id"); v != "" {
		return v, nil
	}
	if v := r.URL.Query().Get("companyId"); v != "" {
		return v, nil
	}
	return "", errUnauthorized
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	// 🔹 conversation/join ----------------------------------------------------
	Register(
		s.router,
		"conversation/join",
		func(_ context.Context, cc *ConnContext, req JoinBody) (AckBody, error) {
			if req.ConversationID == "" {
				return AckBody{}, errInvalidConversation
			}
			// Membership is granted without checking participation: clients
			// only learn conversation ids through the participant-scoped
			// REST endpoints. Stricter isolation would hook an authorization
			// callback into the chat service here.
			s.registry.Add(ConversationGroup(req.ConversationID), cc.Conn)
			return AckBody{}, nil
		},
	)

	// 🔹 conversation/leave ---------------------------------------------------
	Register(
		s.router,
		"conversation/leave",
		func(_ context.Context, cc *ConnContext, req JoinBody) (AckBody, error) {
			if req.ConversationID == "" {
				return AckBody{}, errInvalidConversation
			}
			s.registry.Remove(ConversationGroup(req.ConversationID), cc.Conn)
			return AckBody{}, nil
		},
	)

	// 🔹 typing — ephemeral, never persisted, sender excluded -----------------
	Register(
		s.router,
		"typing",
		func(ctx context.Context, cc *ConnContext, req TypingBody) (AckBody, error) {
			if req.ConversationID == "" {
				return AckBody{}, errInvalidConversation
			}
			err := s.pub.Publish(ctx, EventTyping,
				TypingEvent{
					ConversationID: req.ConversationID,
					CompanyID:      cc.CompanyID,
					IsTyping:       req.IsTyping,
				},
				[]string{ConversationGroup(req.ConversationID)},
				cc.Conn.ID,
			)
			return AckBody{}, err
		},
	)

	// 🔹 message/read — relay-only variant; the durable receipt goes through
	// the REST endpoint and the fan-out coordinator.
	Register(
		s.router,
		"message/read",
		func(ctx context.Context, cc *ConnContext, req ReadBody) (AckBody, error) {
			if req.ConversationID == "" || req.MessageID == "" {
				return AckBody{}, errors.New("invalid_read_payload")
			}
			err := s.pub.Publish(ctx, EventMessageRead,
				MessageReadEvent{
					ConversationID: req.ConversationID,
					MessageID:      req.MessageID,
					CompanyID:      cc.CompanyID,
				},
				[]string{ConversationGroup(req.ConversationID)},
				cc.Conn.ID,
			)
			return AckBody{}, err
		},
	)
}

func (s *WsServer) reader(c *Conn) {
	defer func() {
		// Cleanup is one critical section: after this no MembersOf snapshot
		// includes the connection. A publish already holding an older
		// snapshot may enqueue once more; the frame just dies with the queue.
		s.registry.RemoveConn(c)
		c.shutdown()
		zap.L().Info("ws.disconnected", zap.String("conn", c.ID))
	}()

	c.sock.SetReadLimit(maxMessageSize)
	_ = c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(pongWait))
	})

	cc := &ConnContext{Conn: c, CompanyID: c.CompanyID}

	for {
		_, data, err := c.sock.ReadMessage()
		if err != nil {
			return // client closed or errored
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.reply(c, "error", ErrorBody{Error: "bad_envelope"})
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		res, err := s.router.dispatch(ctx, cc, env)
		cancel()

		// ---- error -> {"event":"error", "body":{...}} ---------------
		// Malformed signals are answered, never fatal: the connection
		// stays open.
		if err != nil {
			s.reply(c, "error", ErrorBody{Error: err.Error()})
			continue
		}

		// ---- success -> {"event":"<evt>-ack", "body":{...}} --------
		s.reply(c, env.Event+"-ack", res)
	}
}

func (s *WsServer) reply(c *Conn, event string, body any) {
	frame, err := encodeEnvelope(event, body)
	if err != nil {
		zap.L().Warn("ws.encode_reply", zap.Error(err))
		return
	}
	c.enqueue(frame)
}
