package handler

// wshandler is code for handling websockets for subscriptions.  It supports both commonly used WS protocols
// * subscriptions-transport-ws: early protocol from Apollo for subscriptions (sub-protocol name:graphql-ws)
// * graphql-ws is newer (official?) ws transport which can handle query/mutation/subscription (sub-protocol name:graphql-transport-ws).

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.uber.org/zap"

	"github.com/andrewwphillips/gqlview/engine"
)

// Close codes used by the graphql-transport-ws protocol
const (
	closeBadRequest     = 4400
	closeUnauthorized   = 4401
	closeInitTimeout    = 4408
	closeDuplicateID    = 4409
	closeTooManyInits   = 4429
	protocolOld         = "graphql-ws"
	protocolNew         = "graphql-transport-ws"
	wsWriteTimeout      = time.Second
	errNoSubscriptions  = "Subscriptions are not supported by this server"
	errUnexpectedFormat = "Invalid message received"
)

type (
	wsConnection struct {
		*websocket.Conn // handle for WS communications

		h   *Handler      // we need this for the engine and options
		r   *http.Request // the upgrade request (for the context, root value etc)
		log *zap.Logger

		newProtocol bool // default to old

		writeMu sync.Mutex // gorilla allows only one concurrent writer

		// ops keeps track of the cancel function associated with each operation.
		//  map key = ID that identifies the operation
		//  map value = context.CancelFunc that will terminate the operation (ie kill all subscription processing)
		opsMu sync.Mutex
		ops   map[string]context.CancelFunc

		pong chan struct{} // signalled when a pong is received (new protocol)
		wg   conc.WaitGroup
	}

	// wsMessage is a message received from the client
	wsMessage struct {
		Type    string          `json:"type"`
		ID      string          `json:"id,omitempty"`
		Payload json.RawMessage `json:"payload,omitempty"`
	}

	// wsRequest is the payload of a start/subscribe message
	wsRequest struct {
		OperationName string                 `json:"operationName,omitempty"`
		Query         string                 `json:"query"`
		Variables     map[string]interface{} `json:"variables,omitempty"`
		Extensions    map[string]interface{} `json:"extensions,omitempty"`
	}

	// wsReply is a message sent to the client
	wsReply struct {
		Type    string      `json:"type"`
		ID      string      `json:"id,omitempty"`
		Payload interface{} `json:"payload,omitempty"`
	}

	// wsCloseError is returned when the connection must be closed with a specific close code
	wsCloseError struct {
		code int
		text string
	}
)

func (e *wsCloseError) Error() string { return fmt.Sprintf("websocket close %d: %s", e.code, e.text) }

var upgrader = websocket.Upgrader{
	//ReadBufferSize:    4096,
	//WriteBufferSize:   4096,
	//EnableCompression: true,
	CheckOrigin:  func(r *http.Request) bool { return true },
	Subprotocols: []string{protocolOld, protocolNew},
}

// serverWS is called in response to a GraphQL HTTP request wanting to upgrade to a WS.
// It handles subscription request(s) (and queries/mutations with the new protocol) sending a stream of responses.
func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request, log *zap.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Info("websocket upgrade failed", zap.Error(err))
		// nothing else required here as w's HTTP status has already been set
		return
	}
	c := &wsConnection{
		Conn:        conn,
		h:           h,
		r:           r,
		log:         log.With(zap.String("protocol", conn.Subprotocol())),
		newProtocol: conn.Subprotocol() == protocolNew, // else assume it's the "old" (graphql-ws) WS sub-protocol
		ops:         make(map[string]context.CancelFunc, 1),
		pong:        make(chan struct{}, 1),
	}
	h.metrics.observeRequest(r.Method, http.StatusSwitchingProtocols, 0)
	c.log.Debug("websocket opened")

	ctx, cancel := context.WithCancel(h.requestContext(r))
	defer func() {
		cancel() // stops all operations and the keep alive
		c.wg.Wait()
		if err := c.Close(); err != nil {
			c.log.Debug("websocket close", zap.Error(err))
		}
		c.log.Debug("websocket closed")
	}()

	if err := c.run(ctx); err != nil {
		var closeErr *wsCloseError
		if errors.As(err, &closeErr) {
			c.log.Info("closing websocket", zap.Int("code", closeErr.code), zap.String("reason", closeErr.text))
			c.close(closeErr.code, closeErr.text)
			return
		}
		c.log.Debug("websocket ended", zap.Error(err))
	}
}

// run does the handshake then handles messages until the client goes away or an error requires closing the WS
func (c *wsConnection) run(ctx context.Context) error {
	if err := c.init(); err != nil {
		return err
	}
	c.wg.Go(func() { c.keepAlive(ctx) })

	for {
		message, err := c.read()
		if err != nil {
			return err
		}

		switch message.Type {
		case "subscribe", "start":
			if (message.Type == "subscribe") != c.newProtocol {
				return &wsCloseError{closeBadRequest, "Unexpected message type " + message.Type}
			}
			if err := c.start(ctx, message); err != nil {
				return err
			}

		case "complete", "stop":
			c.stop(message.ID)

		case "ping":
			c.send(wsReply{Type: "pong"})

		case "pong":
			select {
			case c.pong <- struct{}{}:
			default:
			}

		case "connection_init":
			return &wsCloseError{closeTooManyInits, "Too many initialisation requests"}

		case "connection_terminate":
			return &wsCloseError{websocket.CloseNormalClosure, "terminated"}

		default:
			return &wsCloseError{closeBadRequest, "Unexpected message type " + message.Type}
		}
	}
}

// init handles the initial (high level) handshake by receiving an "init" message and sending an "ack"
func (c *wsConnection) init() error {
	if c.h.initialTimeout > 0 {
		_ = c.SetReadDeadline(time.Now().Add(c.h.initialTimeout))
	}
	message, err := c.read()
	if err != nil {
		if ne, ok := errors.Cause(err).(interface{ Timeout() bool }); ok && ne.Timeout() {
			return &wsCloseError{closeInitTimeout, "Connection initialisation timeout"}
		}
		var closeErr *wsCloseError
		if errors.As(err, &closeErr) {
			return &wsCloseError{websocket.CloseUnsupportedData, closeErr.text}
		}
		return err
	}
	_ = c.SetReadDeadline(time.Time{})

	switch message.Type {
	case "connection_init":
	case "connection_terminate":
		return &wsCloseError{websocket.CloseNormalClosure, "terminated"}
	default:
		if !c.newProtocol {
			c.send(wsReply{Type: "connection_error", Payload: gqlerror.Errorf("expected connection_init")})
		}
		return &wsCloseError{closeUnauthorized, "Unauthorized"}
	}

	c.send(wsReply{Type: "connection_ack"})
	if !c.newProtocol {
		c.send(wsReply{Type: "ka"})
	}
	return nil
}

// keepAlive periodically sends a "ka" message (old protocol) or a "ping" (new protocol).  If a ping is not
// answered with a pong in time the connection is dropped.
func (c *wsConnection) keepAlive(ctx context.Context) {
	if c.h.pingFrequency <= 0 {
		return
	}
	ticker := time.NewTicker(c.h.pingFrequency)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !c.newProtocol {
			c.send(wsReply{Type: "ka"})
			continue
		}

		select {
		case <-c.pong: // discard an unsolicited pong
		default:
		}
		c.send(wsReply{Type: "ping"})
		timer := time.NewTimer(c.h.pongTimeout)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-c.pong:
			timer.Stop()
		case <-timer.C:
			c.log.Info("no pong received - dropping websocket")
			_ = c.UnderlyingConn().Close() // no close message, the read loop then gets an error
			return
		}
	}
}

// start decodes the request of a start/subscribe message and starts processing it
func (c *wsConnection) start(ctx context.Context, message *wsMessage) error {
	if message.ID == "" {
		return &wsCloseError{closeBadRequest, "Operation ID is required"}
	}
	if len(message.Payload) == 0 || string(message.Payload) == "null" {
		return &wsCloseError{websocket.CloseInvalidFramePayloadData, "Payload is required"}
	}
	var request wsRequest
	if err := decodeJSON(message.Payload, &request); err != nil {
		return &wsCloseError{closeBadRequest, errUnexpectedFormat}
	}
	FixNumberVariables(request.Variables)

	// Add to our map of operations active in this ws (first checking that the ID is not in use)
	c.opsMu.Lock()
	if _, ok := c.ops[message.ID]; ok {
		c.opsMu.Unlock()
		return &wsCloseError{closeDuplicateID, "Subscriber for " + message.ID + " already exists"}
	}
	ctx, cancel := context.WithCancel(ctx)
	c.ops[message.ID] = cancel
	c.opsMu.Unlock()

	id := message.ID
	c.wg.Go(func() {
		defer cancel()
		c.process(ctx, id, &request)
	})
	return nil
}

// process runs an operation sending the result(s) to the client
func (c *wsConnection) process(ctx context.Context, id string, request *wsRequest) {
	log := c.log.With(zap.String("id", id))
	req := &engine.Request{
		Query:         request.Query,
		OperationName: request.OperationName,
		Variables:     request.Variables,
		RootValue:     c.h.getRootValue(c.r),
	}

	op, err := parseOperation(req.Query, req.OperationName)
	switch {
	case err != nil:
		c.sendErrors(id, gqlerror.List{engine.AsError(err)})

	case op != nil && op.Operation == ast.Subscription:
		c.subscribe(ctx, id, req, log)

	default:
		resp := c.h.runOperation(ctx, req, op, log)
		if engine.HasPathless(resp.Errors) {
			c.sendErrors(id, resp.Errors)
			break
		}
		c.sendData(id, resp)
	}

	if c.finish(id) != nil {
		c.send(wsReply{Type: "complete", ID: id})
	}
}

// subscribe starts a subscription with the engine and sends each event until it ends or is stopped
func (c *wsConnection) subscribe(ctx context.Context, id string, req *engine.Request, log *zap.Logger) {
	sub, ok := c.h.exec.(engine.Subscriber)
	if !ok {
		c.sendErrors(id, gqlerror.List{gqlerror.Errorf(errNoSubscriptions)})
		return
	}
	ch, err := sub.Subscribe(ctx, req)
	if err != nil {
		c.sendErrors(id, gqlerror.List{engine.AsError(err)})
		return
	}
	log.Debug("subscription started")
	defer log.Debug("subscription ended")

	for {
		select {
		case resp, ok := <-ch:
			if !ok {
				return
			}
			if resp != nil && engine.HasPathless(resp.Errors) {
				c.sendErrors(id, resp.Errors)
				continue
			}
			c.sendData(id, resp)
		case <-ctx.Done():
			return
		}
	}
}

// stop kills processing of one operation (eg subscription) by calling the cancel function of the operation's context
func (c *wsConnection) stop(id string) {
	cancel := c.finish(id)
	if cancel == nil {
		c.log.Debug("websocket operation not found or already complete", zap.String("id", id))
		return
	}
	cancel() // call context cancel func to stop the subscription
	c.send(wsReply{Type: "complete", ID: id})
}

// finish removes an operation returning its cancel func, or nil if it has already finished
func (c *wsConnection) finish(id string) context.CancelFunc {
	c.opsMu.Lock()
	defer c.opsMu.Unlock()
	cancel := c.ops[id]
	delete(c.ops, id)
	return cancel
}

func (c *wsConnection) sendData(id string, resp *engine.Response) {
	messageType := "next"
	if !c.newProtocol {
		messageType = "data"
	}
	if resp == nil {
		resp = &engine.Response{}
	}
	c.send(wsReply{Type: messageType, ID: id, Payload: resp})
}

func (c *wsConnection) sendErrors(id string, list gqlerror.List) {
	if c.newProtocol {
		c.send(wsReply{Type: "error", ID: id, Payload: list})
		return
	}
	var payload interface{} = list
	if len(list) == 1 {
		payload = list[0]
	}
	c.send(wsReply{Type: "error", ID: id, Payload: payload})
}

// send writes a message to the client (errors are only logged as the read loop will also see the problem)
func (c *wsConnection) send(reply wsReply) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := c.WriteJSON(reply); err != nil {
		c.log.Debug("websocket write error", zap.String("type", reply.Type), zap.Error(err))
	}
}

// close sends a close message with the code and reason (the connection is closed when serveWS returns)
func (c *wsConnection) close(code int, text string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	err := c.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text),
		time.Now().Add(wsWriteTimeout))
	if err != nil {
		c.log.Debug("websocket close message", zap.Error(err))
	}
}

// read gets the next message.  A message that is not valid JSON returns a *wsCloseError.
func (c *wsConnection) read() (*wsMessage, error) {
	_, body, err := c.ReadMessage()
	if err != nil {
		return nil, errors.Wrap(err, "websocket read")
	}

	var message wsMessage
	if err := decodeJSON(body, &message); err != nil {
		return nil, &wsCloseError{closeBadRequest, errUnexpectedFormat}
	}
	return &message, nil
}
