package engine

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/thrasher-corp/gctwithdraw/common"
	"github.com/thrasher-corp/gctwithdraw/config"
	"github.com/thrasher-corp/gctwithdraw/engine/subsystem"
	"github.com/thrasher-corp/gctwithdraw/engine/withdrawmanager"
	"github.com/thrasher-corp/gctwithdraw/log"
	"github.com/thrasher-corp/gctwithdraw/portfolio/withdraw"
)

const (
	shutdownTimeout = 5 * time.Second
	wsWriteTimeout  = 10 * time.Second
	maxBodySize     = 1 << 20
)

// setupAPIServerManager checks and creates an api server manager
func setupAPIServerManager(remoteConfig *config.RemoteControlConfig, controller withdrawController) (*apiServerManager, error) {
	if remoteConfig == nil {
		return nil, errNilRemoteConfig
	}
	if controller == nil {
		return nil, errNilWithdrawController
	}
	m := &apiServerManager{
		remoteConfig: remoteConfig,
		controller:   controller,
		upgrader: websocket.Upgrader{
			WriteBufferSize: 1024,
			ReadBufferSize:  1024,
		},
	}
	if remoteConfig.AllowInsecureOrigin {
		m.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}
	return m, nil
}

// IsRunning safely checks whether the subsystem is running
func (m *apiServerManager) IsRunning() bool {
	if m == nil {
		return false
	}
	return atomic.LoadInt32(&m.started) == 1
}

// StartServer binds the listen address and serves the control plane
func (m *apiServerManager) StartServer() error {
	if m == nil {
		return fmt.Errorf("api server %w", ErrNilSubsystem)
	}
	if !m.remoteConfig.Enabled {
		return fmt.Errorf("api server %w", errServerDisabled)
	}
	if !atomic.CompareAndSwapInt32(&m.started, 0, 1) {
		return fmt.Errorf("api server %w", ErrSubSystemAlreadyStarted)
	}

	ln, err := net.Listen("tcp", m.remoteConfig.ListenAddress)
	if err != nil {
		atomic.StoreInt32(&m.started, 0)
		return err
	}
	srv := &http.Server{
		Handler:           m.newRouter(),
		ReadHeaderTimeout: time.Minute,
	}
	m.mtx.Lock()
	m.server = srv
	m.addr = ln.Addr().String()
	m.mtx.Unlock()

	log.Debugf(log.APIServerMgr,
		"API server support enabled. Listen URL: http://%s:%s, websocket: ws://%[1]s:%[2]s/ws",
		common.ExtractHost(m.addr),
		common.ExtractPort(m.addr))
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf(log.APIServerMgr, "API server failure: %v", err)
		}
	}()
	return nil
}

// StopServer gracefully shuts down the server
func (m *apiServerManager) StopServer() error {
	if m == nil {
		return fmt.Errorf("api server %w", ErrNilSubsystem)
	}
	if !atomic.CompareAndSwapInt32(&m.started, 1, 0) {
		return fmt.Errorf("api server %w", ErrSubSystemNotStarted)
	}
	log.Debugf(log.APIServerMgr, "API server %s", subsystem.MsgShuttingDown)
	m.mtx.Lock()
	srv := m.server
	m.server = nil
	m.mtx.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Addr returns the bound listen address
func (m *apiServerManager) Addr() string {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.addr
}

// newRouter returns a new multiplexor router
func (m *apiServerManager) newRouter() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	routes := []Route{
		{"", http.MethodGet, "/", getIndex},
		{"GetStatus", http.MethodGet, "/status", m.getStatus},
		{"StartBatch", http.MethodPost, "/batch/start", m.startBatch},
		{"StopBatch", http.MethodPost, "/batch/stop", m.stopBatch},
		{"ResolveConfirmation", http.MethodPost, "/confirmations/{id}", m.resolveConfirmation},
		{"ws", http.MethodGet, "/ws", m.websocketHandler},
	}

	for i := range routes {
		var handler http.Handler = routes[i].HandlerFunc
		handler = m.basicAuth(handler)
		handler = restLogger(handler, routes[i].Name)
		router.
			Methods(routes[i].Method).
			Path(routes[i].Pattern).
			Name(routes[i].Name).
			Handler(handler)
	}
	return router
}

// restLogger logs the requests internally
func restLogger(inner http.Handler, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		inner.ServeHTTP(w, r)
		log.Debugf(log.APIServerMgr,
			"%s\t%s\t%s\t%s",
			r.Method,
			r.RequestURI,
			name,
			time.Since(start))
	})
}

func (m *apiServerManager) basicAuth(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(username), []byte(m.remoteConfig.Username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(password), []byte(m.remoteConfig.Password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="gctwithdraw"`)
			writeError(w, http.StatusUnauthorized, errors.New("unauthorised"))
			return
		}
		inner.ServeHTTP(w, r)
	})
}

// writeResponse outputs a JSON response of the response interface
func writeResponse(w http.ResponseWriter, response any) error {
	return writeStatusResponse(w, http.StatusOK, response)
}

func writeStatusResponse(w http.ResponseWriter, status int, response any) error {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(response)
}

func writeError(w http.ResponseWriter, status int, err error) {
	if writeErr := writeStatusResponse(w, status, ErrorResponse{Error: err.Error()}); writeErr != nil {
		log.Errorf(log.APIServerMgr, "Failed to send JSON error response: %v", writeErr)
	}
}

// statusFromError maps controller errors onto HTTP status codes
func statusFromError(err error) int {
	switch {
	case errors.Is(err, withdrawmanager.ErrBatchAlreadyRunning),
		errors.Is(err, withdrawmanager.ErrConfirmationAlreadyResolved):
		return http.StatusConflict
	case errors.Is(err, withdrawmanager.ErrUnknownConfirmation):
		return http.StatusNotFound
	case errors.Is(err, withdrawmanager.ErrNilGateway),
		errors.Is(err, withdrawmanager.ErrNilSubsystem):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func getIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	_, err := fmt.Fprint(w, "gctwithdraw control plane. Routes: GET /status, POST /batch/start, POST /batch/stop, POST /confirmations/{id}, GET /ws")
	if err != nil {
		log.Errorln(log.APIServerMgr, err)
	}
}

func (m *apiServerManager) getStatus(w http.ResponseWriter, _ *http.Request) {
	if err := writeResponse(w, m.controller.Snapshot()); err != nil {
		log.Errorf(log.APIServerMgr, "Failed to send status: %v", err)
	}
}

func (m *apiServerManager) startBatch(w http.ResponseWriter, r *http.Request) {
	var params withdraw.BatchParameters
	if err := decodeBody(w, r, &params); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	runID, err := m.controller.Start(&params)
	if err != nil {
		writeError(w, statusFromError(err), err)
		return
	}
	if err = writeResponse(w, StartBatchResponse{RunID: runID}); err != nil {
		log.Errorf(log.APIServerMgr, "Failed to send start response: %v", err)
	}
}

func (m *apiServerManager) stopBatch(w http.ResponseWriter, _ *http.Request) {
	if err := m.controller.Stop(); err != nil {
		writeError(w, statusFromError(err), err)
		return
	}
	if err := writeResponse(w, m.controller.Snapshot()); err != nil {
		log.Errorf(log.APIServerMgr, "Failed to send stop response: %v", err)
	}
}

func (m *apiServerManager) resolveConfirmation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %w", errInvalidConfirmationID, err))
		return
	}
	var decision ConfirmationDecision
	if err = decodeBody(w, r, &decision); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	decision.ID = id
	if err = m.controller.Resolve(id, decision.Confirmed, decision.ConfirmAll); err != nil {
		writeError(w, statusFromError(err), err)
		return
	}
	if err = writeResponse(w, decision); err != nil {
		log.Errorf(log.APIServerMgr, "Failed to send confirmation response: %v", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errInvalidRequestBody, err)
	}
	return nil
}

// websocketHandler upgrades the connection and streams every withdraw
// manager event to the client until it disconnects
func (m *apiServerManager) websocketHandler(w http.ResponseWriter, r *http.Request) {
	clients := atomic.AddInt32(&m.wsClients, 1)
	defer atomic.AddInt32(&m.wsClients, -1)
	if limit := int32(m.remoteConfig.ConnectionLimit); limit > 0 && clients > limit {
		writeError(w, http.StatusTooManyRequests, errConnectionLimit)
		return
	}

	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorln(log.APIServerMgr, err)
		return
	}
	client := &wsClient{conn: conn}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Debugf(log.APIServerMgr, "Websocket client close: %v", err)
		}
	}()

	pipe, err := m.controller.Subscribe()
	if err != nil {
		if sendErr := client.send(WebsocketEventResponse{Event: "subscribe", Error: err.Error()}); sendErr != nil {
			log.Errorln(log.APIServerMgr, sendErr)
		}
		return
	}
	defer func() {
		if err := pipe.Release(); err != nil {
			log.Errorln(log.APIServerMgr, err)
		}
	}()
	log.Debugf(log.APIServerMgr, "Websocket client %s connected", r.RemoteAddr)

	go func() {
		for data := range pipe.C {
			evt, ok := data.(withdrawmanager.Event)
			if !ok {
				continue
			}
			if err := client.send(WebsocketEventResponse{Event: string(evt.Type), Data: evt}); err != nil {
				log.Debugf(log.APIServerMgr, "Websocket client %s write failed: %v", r.RemoteAddr, err)
				return
			}
		}
	}()

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			log.Debugf(log.APIServerMgr, "Websocket client %s disconnected: %v", r.RemoteAddr, err)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if err := client.send(m.handleWebsocketEvent(msg)); err != nil {
			log.Debugf(log.APIServerMgr, "Websocket client %s write failed: %v", r.RemoteAddr, err)
			return
		}
	}
}

// handleWebsocketEvent processes a single client message
func (m *apiServerManager) handleWebsocketEvent(msg []byte) WebsocketEventResponse {
	var evt WebsocketEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		return WebsocketEventResponse{Event: "error", Error: err.Error()}
	}
	resp := WebsocketEventResponse{Event: evt.Event}
	switch evt.Event {
	case wsEventConfirm:
		var decision ConfirmationDecision
		if err := json.Unmarshal(evt.Data, &decision); err != nil {
			resp.Error = fmt.Errorf("%w: %w", errInvalidRequestBody, err).Error()
			return resp
		}
		if err := m.controller.Resolve(decision.ID, decision.Confirmed, decision.ConfirmAll); err != nil {
			resp.Error = err.Error()
			return resp
		}
		resp.Data = WebsocketResponseSuccess
	case wsEventStatus:
		resp.Data = m.controller.Snapshot()
	case wsEventStop:
		if err := m.controller.Stop(); err != nil {
			resp.Error = err.Error()
			return resp
		}
		resp.Data = WebsocketResponseSuccess
	default:
		resp.Error = fmt.Errorf("%w: %q", errUnknownEvent, evt.Event).Error()
	}
	return resp
}

func (c *wsClient) send(v any) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}
