package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func SetLogger(l *logrus.Logger) {
	log = l
}

const (
	maxReconnectAttempts = 100
	reconnectDelay       = 2 * time.Second
)

var ErrNotConnected = errors.New("controller is not connected")

type MessageHandler func([]byte) error

// ConnectionController is the client side of a hint connection. Incoming
// messages are dispatched to handlers registered per message type.
type ConnectionController struct {
	server           net.Conn
	mu               sync.Mutex
	messageHandlers  map[MessageType]MessageHandler
	messageChannel   chan []byte
	done             chan struct{}
	closeOnce        sync.Once
	connected        bool
	host             string
	port             uint16
	AttemptReconnect bool
}

func CreateConnectionController() *ConnectionController {
	controller := &ConnectionController{
		messageHandlers: make(map[MessageType]MessageHandler),
		messageChannel:  make(chan []byte, 64),
		done:            make(chan struct{}),
	}
	controller.StartWriter()
	return controller
}

func (controller *ConnectionController) Connected() bool {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	return controller.connected
}

func (controller *ConnectionController) conn() net.Conn {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	return controller.server
}

func (controller *ConnectionController) GetServerAddress() string {
	conn := controller.conn()
	if conn == nil || !controller.Connected() {
		return ""
	}
	return conn.RemoteAddr().String()
}

func (controller *ConnectionController) StartWriter() {
	go func() {
		for {
			select {
			case message := <-controller.messageChannel:
				conn := controller.conn()
				if conn == nil || !controller.Connected() {
					log.Warn("attempted to write to a disconnected server")
					continue
				}
				if _, err := conn.Write(message); err != nil {
					log.WithError(err).Error("error writing to server")
					return
				}
			case <-controller.done:
				return
			}
		}
	}()
}

func (controller *ConnectionController) TryReconnect() bool {
	for attempts := 0; attempts < maxReconnectAttempts; attempts++ {
		log.WithFields(logrus.Fields{"attempt": attempts + 1, "max": maxReconnectAttempts}).Info("attempting to reconnect")
		select {
		case <-time.After(reconnectDelay):
		case <-controller.done:
			return false
		}
		if err := controller.Connect(controller.host, controller.port); err == nil {
			log.Info("reconnected")
			return true
		}
	}
	log.Error("failed to reconnect after max attempts")
	return false
}

func (controller *ConnectionController) SendMessage(message []byte) error {
	select {
	case controller.messageChannel <- message:
	default:
		return fmt.Errorf("Failed to write to message channel")
	}
	return nil
}

func (controller *ConnectionController) SetConnection(conn net.Conn) error {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	if controller.connected {
		return fmt.Errorf("Connector is already connected")
	}
	controller.server = conn
	controller.connected = true
	return nil
}

func (controller *ConnectionController) HandleMessage(bytes []byte) error {
	if len(bytes) == 0 {
		return fmt.Errorf("Cannot handle empty message")
	}
	msgType := MessageType(bytes[0])
	controller.mu.Lock()
	handlerFunc, exists := controller.messageHandlers[msgType]
	controller.mu.Unlock()
	if !exists {
		return fmt.Errorf("No handler registered for message type: %d", msgType)
	}
	return handlerFunc(bytes)
}

func (controller *ConnectionController) Connect(host string, port uint16) error {
	if controller.Connected() {
		return fmt.Errorf("Connector already connected")
	}
	controller.host = host
	controller.port = port
	conn, err := net.Dial("tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		return err
	}
	return controller.SetConnection(conn)
}

func (controller *ConnectionController) RegisterHandler(msgType MessageType, handlerFunc MessageHandler) {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	controller.messageHandlers[msgType] = handlerFunc
}

// ReadServerResponse dispatches incoming messages until the connection is
// lost and cannot be re-established.
func (controller *ConnectionController) ReadServerResponse() error {
	for {
		conn := controller.conn()
		if conn == nil {
			return ErrNotConnected
		}
		reader := bufio.NewReader(conn)
		for {
			message, err := ReadMessage(reader)
			if err != nil {
				controller.mu.Lock()
				controller.connected = false
				controller.mu.Unlock()
				break
			}
			if err := controller.HandleMessage(message); err != nil {
				log.WithError(err).Warn("failed to handle message")
			}
		}
		if !controller.AttemptReconnect || !controller.TryReconnect() {
			return fmt.Errorf("Lost connection to server")
		}
	}
}

func (controller *ConnectionController) Close() error {
	var err error
	controller.closeOnce.Do(func() {
		close(controller.done)
		controller.mu.Lock()
		defer controller.mu.Unlock()
		controller.connected = false
		if controller.server != nil {
			err = controller.server.Close()
		}
	})
	return err
}
