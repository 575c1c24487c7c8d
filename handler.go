package xmlbs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/dpotapov/xmlbs/markup"

	"github.com/gorilla/websocket"
)

// DefaultMaxBodyBytes limits the size of a document accepted by Handler when
// MaxBodyBytes is not set.
const DefaultMaxBodyBytes = 10 << 20

// fixesHeader carries the number of recovery actions applied to a document.
const fixesHeader = "X-Xmlbs-Fixes"

// wsUpgrader is a Gorilla WebSocket instance, used to respond HTTP requests with WebSocket.
var wsUpgrader = websocket.Upgrader{}

// Handler repairs documents sent over HTTP.
//
// A POST request carries a document in its body and gets the repaired
// document back. The query parameter "annotate" turns on annotation for a
// single request. Clients accepting "application/json" get a Report instead
// of the bare document.
//
// A WebSocket connection repairs every incoming message and sends the
// repaired document back as a text message.
type Handler struct {
	// Schema is the content model documents are repaired against.
	Schema markup.ContentModel

	// Annotate leaves a comment in place of every dropped token.
	Annotate bool

	// MaxBodyBytes limits the document size. DefaultMaxBodyBytes is used when
	// it is zero.
	MaxBodyBytes int64

	// OnError is a callback that is called when an error occurs while serving a request.
	OnError func(*http.Request, error)

	// Logger configures logging for internal events.
	Logger *slog.Logger

	// init is used to initialize the handler only once.
	init sync.Once

	// logger is a private logger instance that is used to log internal events.
	logger *slog.Logger
}

// Report is the JSON response of Handler.
type Report struct {
	Document string   `json:"document"`
	Fixes    []string `json:"fixes"`
}

// ServeHTTP implements the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.init.Do(func() {
		h.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		if h.Logger != nil {
			h.logger = h.Logger
		}
	})

	if err := h.handleRequest(w, r); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		h.reportError(r, err)
	}
}

func (h *Handler) reportError(r *http.Request, err error) {
	h.logger.Error("Serve HTTP request", "url", r.URL.Redacted(), "error", err)
	if h.OnError != nil {
		h.OnError(r, err)
	}
}

func (h *Handler) handleRequest(w http.ResponseWriter, r *http.Request) error {
	if websocket.IsWebSocketUpgrade(r) {
		h.serveWebSocket(w, r)
		return nil
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return nil
	}

	annotate, err := h.annotate(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes()))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return nil
		}
		return fmt.Errorf("read request body: %w", err)
	}
	if len(data) == 0 {
		http.Error(w, "empty document", http.StatusBadRequest)
		return nil
	}

	var buf bytes.Buffer
	fixes, err := h.repair(data, &buf, annotate)
	if err != nil {
		return err
	}

	w.Header().Set(fixesHeader, strconv.Itoa(len(fixes)))
	if r.Header.Get("Accept") == "application/json" {
		rep := Report{Document: buf.String(), Fixes: make([]string, len(fixes))}
		for i, f := range fixes {
			rep.Fixes[i] = f.String()
		}
		w.Header().Set("Content-Type", "application/json")
		return json.NewEncoder(w).Encode(rep)
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, err = buf.WriteTo(w)
	return err
}

func (h *Handler) annotate(r *http.Request) (bool, error) {
	if !r.URL.Query().Has("annotate") {
		return h.Annotate, nil
	}
	v := r.URL.Query().Get("annotate")
	if v == "" {
		return true, nil
	}
	on, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid annotate parameter %q", v)
	}
	return on, nil
}

func (h *Handler) maxBodyBytes() int64 {
	if h.MaxBodyBytes > 0 {
		return h.MaxBodyBytes
	}
	return DefaultMaxBodyBytes
}

func (h *Handler) repair(data []byte, w io.Writer, annotate bool) ([]markup.Fix, error) {
	fixes, err := Repair(bytes.NewReader(data), w, h.Schema, WithAnnotate(annotate), WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("repair document: %w", err)
	}
	return fixes, nil
}

// serveWebSocket repairs every message received until the client closes the
// connection. Errors are reported, not returned: the connection is hijacked
// and no HTTP response can be written.
func (h *Handler) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.reportError(r, err)
		return
	}
	defer ws.Close()

	ws.SetReadLimit(h.maxBodyBytes())
	annotate, _ := h.annotate(r)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.reportError(r, fmt.Errorf("read websocket message: %w", err))
			}
			return
		}

		wr, err := ws.NextWriter(websocket.TextMessage)
		if err != nil {
			h.reportError(r, fmt.Errorf("get websocket writer: %w", err))
			return
		}
		if _, err := h.repair(data, wr, annotate); err != nil {
			h.reportError(r, err)
			return
		}
		if err := wr.Close(); err != nil {
			h.reportError(r, fmt.Errorf("close websocket writer: %w", err))
			return
		}
	}
}
