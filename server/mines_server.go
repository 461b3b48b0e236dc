// Package server serves move hints over TCP. Every connection owns one
// inference session; clients feed it observations and ask for moves.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tomasstrnad1997/minesai/ai"
	"github.com/tomasstrnad1997/minesai/protocol"
)

var log = logrus.New()

func SetLogger(l *logrus.Logger) {
	log = l
}

const defaultMaxCells = 1 << 16

var (
	errNoSession  = errors.New("no session started on this connection")
	errBadRequest = errors.New("bad request")
)

// Journal persists session observations. It is satisfied by *db.SQLStore.
type Journal interface {
	CreateSession(ctx context.Context, height, width int) (string, error)
	RecordObservation(ctx context.Context, id string, cell ai.Cell, count int) error
	Restore(ctx context.Context, id string, opts ...ai.Option) (*ai.Agent, error)
}

type Option func(*Server)

func WithJournal(journal Journal) Option {
	return func(s *Server) {
		s.journal = journal
	}
}

// WithSeed makes guesses reproducible. Each connection derives its own
// source from the seed.
func WithSeed(seed int64) Option {
	return func(s *Server) {
		s.seed = &seed
	}
}

func WithMaxCells(n int) Option {
	return func(s *Server) {
		s.maxCells = n
	}
}

type client struct {
	id         int
	conn       net.Conn
	writeMutex sync.Mutex
	sessionID  string
	agent      *ai.Agent
	solved     bool
}

type MessageHandler func(ctx context.Context, data []byte, c *client) error

type Server struct {
	Name     string
	listener net.Listener
	handlers map[protocol.MessageType]MessageHandler
	journal  Journal
	seed     *int64
	maxCells int

	clientsMux sync.Mutex
	clients    map[int]*client
	nextID     int
	wg         sync.WaitGroup
	closeOnce  sync.Once
	closed     chan struct{}
}

func NewServer(name, host string, port uint16, opts ...Option) (*Server, error) {
	listener, err := net.Listen("tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		return nil, fmt.Errorf("failed to start server: %w", err)
	}
	server := &Server{
		Name:     name,
		listener: listener,
		handlers: make(map[protocol.MessageType]MessageHandler),
		maxCells: defaultMaxCells,
		clients:  make(map[int]*client),
		nextID:   1,
		closed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(server)
	}
	server.registerHandlers()
	return server, nil
}

func (server *Server) Addr() net.Addr {
	return server.listener.Addr()
}

func (server *Server) Port() uint16 {
	return uint16(server.listener.Addr().(*net.TCPAddr).Port)
}

func (server *Server) NumberOfClients() int {
	server.clientsMux.Lock()
	defer server.clientsMux.Unlock()
	return len(server.clients)
}

// Serve accepts connections until ctx is cancelled or Close is called.
func (server *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			server.Close()
		case <-server.closed:
		}
	}()
	log.WithFields(logrus.Fields{"name": server.Name, "addr": server.Addr()}).Info("hint server listening")
	for {
		conn, err := server.listener.Accept()
		if err != nil {
			select {
			case <-server.closed:
				server.wg.Wait()
				return nil
			default:
			}
			return fmt.Errorf("accept: %w", err)
		}
		server.clientsMux.Lock()
		select {
		case <-server.closed:
			server.clientsMux.Unlock()
			conn.Close()
			continue
		default:
		}
		c := &client{id: server.nextID, conn: conn}
		server.clients[c.id] = c
		server.nextID++
		server.clientsMux.Unlock()
		server.wg.Add(1)
		go server.handleConnection(ctx, c)
	}
}

func (server *Server) Close() error {
	var err error
	server.closeOnce.Do(func() {
		close(server.closed)
		err = server.listener.Close()
		server.clientsMux.Lock()
		for _, c := range server.clients {
			c.conn.Close()
		}
		server.clientsMux.Unlock()
	})
	return err
}

func (server *Server) handleConnection(ctx context.Context, c *client) {
	defer server.wg.Done()
	logger := log.WithFields(logrus.Fields{"client": c.id, "remote": c.conn.RemoteAddr()})
	logger.Info("client connected")
	defer func() {
		c.conn.Close()
		server.clientsMux.Lock()
		delete(server.clients, c.id)
		server.clientsMux.Unlock()
		logger.Info("client disconnected")
	}()
	reader := bufio.NewReader(c.conn)
	for {
		message, err := protocol.ReadMessage(reader)
		if err != nil {
			return
		}
		if err := server.handleMessage(ctx, message, c); err != nil {
			logger.WithError(err).Debug("request failed")
			if err := server.sendError(c, err); err != nil {
				logger.WithError(err).Warn("failed to send error response")
				return
			}
		}
	}
}

func (server *Server) handleMessage(ctx context.Context, data []byte, c *client) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty message", errBadRequest)
	}
	msgType := protocol.MessageType(data[0])
	handler, exists := server.handlers[msgType]
	if !exists {
		return fmt.Errorf("%w: no handler registered for message type: %d", errBadRequest, msgType)
	}
	return handler(ctx, data, c)
}

func (server *Server) registerHandler(msgType protocol.MessageType, handler MessageHandler) {
	server.handlers[msgType] = handler
}

func (server *Server) registerHandlers() {
	server.registerHandler(protocol.StartSession, server.handleStartSession)
	server.registerHandler(protocol.ResumeSession, server.handleResumeSession)
	server.registerHandler(protocol.Observe, server.handleObserve)
	server.registerHandler(protocol.RequestMove, server.handleRequestMove)
}

func (server *Server) agentOptions(c *client) []ai.Option {
	if server.seed == nil {
		return nil
	}
	return []ai.Option{ai.WithRand(rand.New(rand.NewSource(*server.seed + int64(c.id))))}
}

func (server *Server) handleStartSession(ctx context.Context, data []byte, c *client) error {
	params, err := protocol.DecodeStartSession(data)
	if err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if params.Height > 0 && params.Width > 0 && params.Height > server.maxCells/params.Width {
		return fmt.Errorf("%w: board %dx%d exceeds %d cells", errBadRequest, params.Height, params.Width, server.maxCells)
	}
	agent, err := ai.NewAgent(params.Height, params.Width, server.agentOptions(c)...)
	if err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	sessionID := fmt.Sprintf("local-%d", c.id)
	if server.journal != nil {
		sessionID, err = server.journal.CreateSession(ctx, params.Height, params.Width)
		if err != nil {
			return err
		}
	}
	c.agent = agent
	c.sessionID = sessionID
	c.solved = false
	log.WithFields(logrus.Fields{"client": c.id, "session": sessionID, "height": params.Height, "width": params.Width}).Info("session started")
	return server.sendSessionStarted(c)
}

func (server *Server) handleResumeSession(ctx context.Context, data []byte, c *client) error {
	sessionID, err := protocol.DecodeResumeSession(data)
	if err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if server.journal == nil {
		return fmt.Errorf("%w: sessions are not journaled", errNoSession)
	}
	agent, err := server.journal.Restore(ctx, sessionID, server.agentOptions(c)...)
	if err != nil {
		return fmt.Errorf("%w: %v", errNoSession, err)
	}
	c.agent = agent
	c.sessionID = sessionID
	c.solved = agent.Solved()
	log.WithFields(logrus.Fields{"client": c.id, "session": sessionID}).Info("session resumed")
	if err := server.sendSessionStarted(c); err != nil {
		return err
	}
	return server.sendKnowledge(c)
}

func (server *Server) handleObserve(ctx context.Context, data []byte, c *client) error {
	if c.agent == nil {
		return errNoSession
	}
	params, err := protocol.DecodeObserve(data)
	if err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	played := c.agent.Played(params.Cell)
	if err := c.agent.Observe(params.Cell, params.Count); err != nil {
		return err
	}
	if server.journal != nil && !played {
		if err := server.journal.RecordObservation(ctx, c.sessionID, params.Cell, params.Count); err != nil {
			return err
		}
	}
	if err := server.sendKnowledge(c); err != nil {
		return err
	}
	if !c.solved && c.agent.Solved() {
		c.solved = true
		return server.sendTextMessage(c, fmt.Sprintf("Board solved: %d mines located", len(c.agent.Mines())))
	}
	return nil
}

func (server *Server) handleRequestMove(ctx context.Context, data []byte, c *client) error {
	if c.agent == nil {
		return errNoSession
	}
	if err := protocol.DecodeRequestMove(data); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	suggestion := protocol.MoveSuggestion{Kind: protocol.NoMove}
	if move, ok := c.agent.NextMove(); ok {
		suggestion.Cell = move.Cell
		suggestion.Kind = protocol.SafeMove
		if move.Guess {
			suggestion.Kind = protocol.GuessMove
		}
	}
	encoded, err := protocol.EncodeSuggestedMove(suggestion)
	if err != nil {
		return err
	}
	return sendMessage(encoded, c)
}

func (server *Server) sendSessionStarted(c *client) error {
	encoded, err := protocol.EncodeSessionStarted(c.sessionID)
	if err != nil {
		return err
	}
	return sendMessage(encoded, c)
}

func (server *Server) sendKnowledge(c *client) error {
	encoded, err := protocol.EncodeKnowledge(protocol.SnapshotOf(c.agent))
	if err != nil {
		return err
	}
	return sendMessage(encoded, c)
}

func (server *Server) sendTextMessage(c *client, message string) error {
	encoded, err := protocol.EncodeTextMessage(message)
	if err != nil {
		return err
	}
	return sendMessage(encoded, c)
}

func (server *Server) sendError(c *client, err error) error {
	encoded, encErr := protocol.EncodeError(protocol.ErrorResponse{Code: errorCode(err), Message: err.Error()})
	if encErr != nil {
		return encErr
	}
	return sendMessage(encoded, c)
}

func errorCode(err error) protocol.ErrorCode {
	var invalid *ai.InvalidObservationError
	switch {
	case errors.As(err, &invalid):
		return protocol.ErrCodeInvalidObservation
	case errors.Is(err, errNoSession):
		return protocol.ErrCodeNoSession
	case errors.Is(err, errBadRequest):
		return protocol.ErrCodeBadRequest
	default:
		return protocol.ErrCodeInternal
	}
}

func sendMessage(data []byte, c *client) error {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()
	_, err := c.conn.Write(data)
	return err
}
