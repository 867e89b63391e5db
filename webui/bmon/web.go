package main

import (
	"bmon/fetch"
	"bmon/interfaces"
	"bmon/webui/dist"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
)

type WebServer struct {
	listenAddr string

	commandHandler interfaces.ViewCommandHandler
	latency        *fetch.LatencyTracker

	mux *http.ServeMux

	socketsRw sync.RWMutex
	sockets   []*Socket

	// broadcast channel to all sockets:
	q chan ViewModelUpdate
}

type Socket struct {
	ws   *WebServer
	id   uuid.UUID
	req  *http.Request
	conn net.Conn

	// write channel:
	q chan ViewModelUpdate
}

type ViewModelUpdate struct {
	View      string      `json:"v"`
	ViewModel interface{} `json:"m"`
}

// starts a web server with websockets support to enable bidirectional communication with the UI
func NewWebServer(listenAddr string) *WebServer {
	s := &WebServer{
		listenAddr: listenAddr,
		mux:        http.NewServeMux(),
		sockets:    make([]*Socket, 0, 2),
		q:          make(chan ViewModelUpdate, 10),
	}

	// handle websockets:
	s.mux.Handle("/ws/", http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(req, rw)
		if err != nil {
			log.Println(err)
			rw.WriteHeader(400)
			return
		}

		// create the Socket to handle bidirectional communication:
		socket := NewSocket(s, req, conn)
		s.appendSocket(socket)
		log.Printf("web: socket %s connected from %s\n", socket.id, req.RemoteAddr)

		// start by sending all view models to this new socket:
		s.commandHandler.NotifyViewTo(socket)
	}))

	// fetch latency histogram for diagnostics:
	s.mux.Handle("/debug/latency", http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if s.latency == nil {
			fmt.Fprintln(rw, "no latency tracker provided")
			return
		}
		if err := s.latency.WriteHistogram(rw); err != nil {
			log.Println(fmt.Errorf("error writing latency histogram: %w", err))
		}
	}))

	// serve embedded static content:
	s.mux.Handle("/", MaxAge(http.FileServer(http.FS(dist.Content))))

	// handle the broadcast channel:
	go s.handleBroadcast()

	return s
}

func MaxAge(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var age time.Duration
		ext := filepath.Ext(r.URL.String())

		switch ext {
		case ".css", ".js":
			age = (time.Hour * 24 * 30) / time.Second
		case ".jpg", ".jpeg", ".gif", ".png", ".ico", ".svg", ".ttf", ".otf":
			age = (time.Hour * 24 * 365) / time.Second
		default:
			age = 0
		}

		if age > 0 {
			w.Header().Add("Cache-Control", fmt.Sprintf("max-age=%d, public, must-revalidate, proxy-revalidate", age))
		}

		h.ServeHTTP(w, r)
	})
}

func (s *WebServer) appendSocket(socket *Socket) {
	s.socketsRw.Lock()
	defer s.socketsRw.Unlock()
	s.sockets = append(s.sockets, socket)
}

func (s *WebServer) removeSocket(k *Socket) {
	s.socketsRw.Lock()
	defer s.socketsRw.Unlock()

	for i, sk := range s.sockets {
		if sk == k {
			s.sockets = append(s.sockets[:i], s.sockets[i+1:]...)
			break
		}
	}
}

func (s *WebServer) Serve() error {
	// start server:
	return http.ListenAndServe(s.listenAddr, s.mux)
}

func (s *WebServer) NotifyView(view string, viewModel interface{}) {
	// send to the broadcast channel so that all connected websockets get the update:
	s.q <- ViewModelUpdate{
		View:      view,
		ViewModel: viewModel,
	}
}

func (s *WebServer) ProvideViewCommandHandler(commandHandler interfaces.ViewCommandHandler) {
	s.commandHandler = commandHandler
}

func (s *WebServer) ProvideLatencyTracker(latency *fetch.LatencyTracker) {
	s.latency = latency
}

func (s *WebServer) handleBroadcast() {
	// read updates from the broadcast channel:
	for u := range s.q {
		s.socketsRw.RLock()
		sockets := s.sockets
		s.socketsRw.RUnlock()

		// broadcast to all connected sockets:
		for _, k := range sockets {
			k.q <- u
		}
	}
}

func NewSocket(s *WebServer, req *http.Request, conn net.Conn) *Socket {
	k := &Socket{
		ws:   s,
		id:   uuid.New(),
		req:  req,
		conn: conn,
		q:    make(chan ViewModelUpdate, 10),
	}

	go k.readHandler()
	go k.writeHandler()

	return k
}

func (k *Socket) NotifyView(view string, viewModel interface{}) {
	k.q <- ViewModelUpdate{
		View:      view,
		ViewModel: viewModel,
	}
}

type CommandRequest struct {
	View    string          `json:"v"`
	Command string          `json:"c"`
	Args    json.RawMessage `json:"a"`
}

func (k *Socket) readHandler() {
	// the reader is in control of the lifetime of the socket:
	defer func() {
		_ = k.conn.Close()

		// remove self from sockets array:
		k.ws.removeSocket(k)
		log.Printf("web: socket %s disconnected\n", k.id)
	}()

	var (
		r       = wsutil.NewReader(k.conn, ws.StateServerSide)
		decoder = json.NewDecoder(r)
	)

	for {
		hdr, err := r.NextFrame()
		if err != nil {
			log.Println(fmt.Errorf("error reading next websocket frame: %w", err))
			break
		}
		if hdr.OpCode == ws.OpClose {
			break
		}
		if hdr.OpCode != ws.OpText {
			if err := r.Discard(); err != nil {
				log.Println(fmt.Errorf("discard: %w", err))
			}
			continue
		}

		// read a JSON command request:
		var creq CommandRequest
		if err := decoder.Decode(&creq); err != nil {
			log.Println(fmt.Errorf("error reading json command request: %w", err))
			goto discard
		}

		if err := k.executeCommand(&creq); err != nil {
			log.Println(err)
			goto discard
		}

		continue

	discard:
		if err := r.Discard(); err != nil {
			log.Println(fmt.Errorf("discard: %w", err))
		}
	}
}

func (k *Socket) executeCommand(creq *CommandRequest) error {
	if k.ws.commandHandler == nil {
		return fmt.Errorf("no view command handler provided")
	}

	ce, err := k.ws.commandHandler.CommandFor(creq.View, creq.Command)
	if err != nil {
		return fmt.Errorf("error handling json command: %w", err)
	}

	// instantiate a specific args type for the command:
	args := ce.CreateArgs()
	if args != nil {
		// deserialize json:
		err = json.Unmarshal(creq.Args, args)
		if err != nil {
			return fmt.Errorf("error deserializing json command args: %w", err)
		}
	}

	// execute the command:
	err = ce.Execute(args)
	if err != nil {
		return fmt.Errorf("error handling json command within executor: %w", err)
	}

	return nil
}

func (k *Socket) writeHandler() {
	var (
		w       = wsutil.NewWriter(k.conn, ws.StateServerSide, ws.OpText)
		encoder = json.NewEncoder(w)
	)

	// wait for ViewModelUpdates on the channel:
	for u := range k.q {
		var err error
		if err = encoder.Encode(&u); err != nil {
			log.Println(err)
			continue
		}
		if err = w.Flush(); err != nil {
			log.Println(err)
			continue
		}
	}
}
