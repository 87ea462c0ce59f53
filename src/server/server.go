package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"recstore/src/auth"
	"recstore/src/directors"
	"recstore/src/engine"
	"recstore/src/helpers"
	"recstore/src/settings"

	"go.uber.org/zap"
)

const welcome = "recstore ready"

// maxLineSize bounds a single command line.
const maxLineSize = 1 << 20

// Server represents the main TCP server
type Server struct {
	Host        string
	Port        int
	AuthEnabled bool

	listener          net.Listener
	manager           *directors.DatabaseManager
	users             *auth.UserStore
	activeConnections map[string]*Connection
	mu                sync.Mutex
	wg                sync.WaitGroup
	running           bool
	logger            *zap.SugaredLogger
}

// Connection represents an active client connection
type Connection struct {
	ID         string
	Conn       net.Conn
	Writer     *bufio.Writer
	User       string
	Authorized bool
	LastActive time.Time
	Logger     *zap.SugaredLogger
}

// InitServer wires storage, journal, manager and users from config.
func InitServer(config *settings.Arguments, logger *zap.SugaredLogger) (*Server, error) {
	databaseStore, err := engine.NewDatabaseStore(config.DataDir, true, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database store: %w", err)
	}

	var journal *engine.Journal
	if config.JournalEnabled {
		journal, err = engine.NewJournal(filepath.Join(config.JournalDir, "recstore.journal"), 30)
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		if err := journal.CleanupOldJournals(); err != nil {
			logger.Warnw("Failed to clean up old journals", "error", err)
		}
	}

	manager := directors.NewDatabaseManager(databaseStore, journal, logger)
	if err := manager.Load(); err != nil {
		return nil, err
	}
	directors.InitServiceManager(manager, logger)

	users, err := auth.NewUserStore(config.UsersFile, config.UsersKey)
	if err != nil {
		return nil, fmt.Errorf("failed to open user store: %w", err)
	}

	return NewServer(config.Host, config.Port, config.AuthEnabled, manager, users, logger), nil
}

func NewServer(host string, port int, authEnabled bool, manager *directors.DatabaseManager, users *auth.UserStore, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Server{
		Host:              host,
		Port:              port,
		AuthEnabled:       authEnabled,
		manager:           manager,
		users:             users,
		activeConnections: make(map[string]*Connection),
		logger:            logger,
	}
}

// AddUser adds a user with the given password
func (s *Server) AddUser(username, password string) error {
	return s.users.AddUser(username, password)
}

// Start begins listening for incoming connections
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.Host, fmt.Sprint(s.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("error starting server on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.running = true
	s.mu.Unlock()

	s.logger.Infow("Server listening", "addr", listener.Addr().String())

	s.wg.Add(1)
	go s.acceptConnections()

	return nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.mu.Lock()
	s.running = false
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for id, conn := range s.activeConnections {
		conn.Conn.Close()
		delete(s.activeConnections, id)
	}
	s.mu.Unlock()

	s.wg.Wait()

	if cerr := s.manager.Close(); cerr != nil {
		s.logger.Warnw("Error closing databases", "error", cerr)
		if err == nil {
			err = cerr
		}
	}

	s.logger.Info("Server shutdown complete")
	s.logger.Sync()
	return err
}

func (s *Server) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// acceptConnections handles incoming connection requests
func (s *Server) acceptConnections() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.isRunning() {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.logger.Errorw("Error accepting connection", "error", err)
			return
		}

		s.logger.Infow("New connection received", "remoteAddr", conn.RemoteAddr().String())

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			s.handleConnection(c)
		}(conn)
	}
}

// handleConnection processes a single client connection
func (s *Server) handleConnection(conn net.Conn) {
	connID := generateConnectionID()
	connection := &Connection{
		ID:         connID,
		Conn:       conn,
		Writer:     bufio.NewWriter(conn),
		Authorized: !s.AuthEnabled,
		LastActive: time.Now(),
		Logger:     s.logger.With("connID", connID, "remoteAddr", conn.RemoteAddr().String()),
	}

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.activeConnections[connID] = connection
	s.mu.Unlock()

	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.activeConnections, connID)
		s.mu.Unlock()
		connection.Logger.Info("Connection closed")
	}()

	connection.Writer.WriteString(welcome + "\n")
	connection.Writer.Flush()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		connection.LastActive = time.Now()

		if strings.EqualFold(line, "quit") {
			sendSuccess(connection.Writer, "bye")
			return
		}
		if word, _, _ := strings.Cut(line, " "); strings.EqualFold(word, "auth") {
			s.authenticate(connection, line)
			continue
		}
		if !connection.Authorized {
			sendError(connection.Writer, "authentication required")
			continue
		}

		connection.Logger.Debugw("Received command", "command", line)
		result, err := directors.CommandDirector(s.manager, line, connection.Logger)
		if err != nil {
			connection.Logger.Infow("Command failed", "command", line, "error", err)
			sendError(connection.Writer, err.Error())
			continue
		}
		sendResult(connection.Writer, result)
	}

	if err := scanner.Err(); err != nil && s.isRunning() {
		connection.Logger.Warnw("Error reading from client", "error", err)
	}
}

func (s *Server) authenticate(conn *Connection, line string) {
	parts := strings.Fields(line)
	if len(parts) != 3 {
		sendError(conn.Writer, "AUTH usage: AUTH <user> <password>")
		return
	}

	ok, user := s.users.VerifyCredentials(parts[1], parts[2])
	if !ok {
		conn.Logger.Warnw("Authentication failed", "user", parts[1])
		sendError(conn.Writer, "Authentication failed")
		return
	}

	conn.Authorized = true
	conn.User = user.Username
	conn.Logger = conn.Logger.With("user", user.Username)
	conn.Logger.Info("Client authenticated")
	sendSuccess(conn.Writer, "Authentication successful")
}

// Helper functions
func sendError(writer *bufio.Writer, message string) {
	writeJSON(writer, map[string]interface{}{
		"status":  "error",
		"message": message,
	})
}

func sendSuccess(writer *bufio.Writer, message string) {
	writeJSON(writer, map[string]interface{}{
		"status":  "success",
		"message": message,
	})
}

func sendResult(writer *bufio.Writer, result *directors.CommandResponse) {
	writeJSON(writer, map[string]interface{}{
		"status":      "success",
		"ResultCount": result.ResultCount,
		"Result":      result.Result,
	})
}

func writeJSON(writer *bufio.Writer, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(`{"status":"error","message":"failed to encode response"}`)
	}
	writer.Write(data)
	writer.WriteByte('\n')
	writer.Flush()
}

func generateConnectionID() string {
	return "conn_" + helpers.GenerateUUID()
}
