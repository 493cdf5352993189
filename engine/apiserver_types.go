package engine

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/gorilla/websocket"
	"github.com/thrasher-corp/gctwithdraw/config"
	"github.com/thrasher-corp/gctwithdraw/dispatch"
	"github.com/thrasher-corp/gctwithdraw/engine/withdrawmanager"
	"github.com/thrasher-corp/gctwithdraw/portfolio/withdraw"
)

// Websocket event names accepted from clients
const (
	WebsocketResponseSuccess = "OK"
	wsEventConfirm           = "confirm"
	wsEventStatus            = "status"
	wsEventStop              = "stop"
)

var (
	errNilRemoteConfig       = errors.New("received nil remote config")
	errNilWithdrawController = errors.New("received nil withdraw controller")
	errServerDisabled        = errors.New("server disabled")
	errInvalidRequestBody    = errors.New("invalid request body")
	errInvalidConfirmationID = errors.New("invalid confirmation id")
	errConnectionLimit       = errors.New("websocket connection limit reached")
	errUnknownEvent          = errors.New("unknown websocket event")
)

// withdrawController is the part of the withdraw manager exposed remotely
type withdrawController interface {
	Start(*withdraw.BatchParameters) (uuid.UUID, error)
	Stop() error
	Resolve(id uuid.UUID, confirmed, confirmAll bool) error
	Snapshot() withdrawmanager.Snapshot
	Subscribe() (dispatch.Pipe, error)
}

// apiServerManager serves the REST and websocket control plane
type apiServerManager struct {
	started      int32
	wsClients    int32
	remoteConfig *config.RemoteControlConfig
	controller   withdrawController
	upgrader     websocket.Upgrader

	mtx    sync.Mutex
	server *http.Server
	addr   string
}

// Route is a sub type that holds the request routes
type Route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

// WebsocketEvent is the struct used for websocket events sent by clients
type WebsocketEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// WebsocketEventResponse is the struct used for websocket event responses
type WebsocketEventResponse struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// StartBatchResponse is returned when a batch is started
type StartBatchResponse struct {
	RunID uuid.UUID `json:"runID"`
}

// ConfirmationDecision is the body of a confirmation request
type ConfirmationDecision struct {
	ID         uuid.UUID `json:"id,omitempty"`
	Confirmed  bool      `json:"confirmed"`
	ConfirmAll bool      `json:"confirmAll"`
}

// ErrorResponse is returned for failed REST requests
type ErrorResponse struct {
	Error string `json:"error"`
}

type wsClient struct {
	mtx  sync.Mutex
	conn *websocket.Conn
}
