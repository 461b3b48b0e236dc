package protocol

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/tomasstrnad1997/minesai/ai"
)

type MessageType byte

const (
	StartSession   MessageType = 0x01
	SessionStarted MessageType = 0x02
	ResumeSession  MessageType = 0x03
	Observe        MessageType = 0x04
	RequestMove    MessageType = 0x05
	SuggestedMove  MessageType = 0x06
	Knowledge      MessageType = 0x07
	TextMessage    MessageType = 0x08
	ErrorMessage   MessageType = 0x09
)

type MoveKind byte

const (
	NoMove    MoveKind = 0x00
	SafeMove  MoveKind = 0x01
	GuessMove MoveKind = 0x02
)

type ErrorCode byte

const (
	ErrCodeInvalidObservation ErrorCode = 0x01
	ErrCodeNoSession          ErrorCode = 0x02
	ErrCodeBadRequest         ErrorCode = 0x03
	ErrCodeInternal           ErrorCode = 0x04
)

const (
	HeaderLength     = 6
	CellByteLength   = 8
	maxPayloadLength = 1 << 24
)

var (
	ErrInvalidPayloadSize = errors.New("invalid payload size")
	ErrMessageTooLarge    = errors.New("message too large")
)

type SessionParams struct {
	Height int
	Width  int
}

type ObservationParams struct {
	Cell  ai.Cell
	Count int
}

type MoveSuggestion struct {
	Kind MoveKind
	Cell ai.Cell
}

type KnowledgeSnapshot struct {
	Safes     []ai.Cell
	Mines     []ai.Cell
	MovesMade []ai.Cell
}

type ErrorResponse struct {
	Code    ErrorCode
	Message string
}

func checkAndDecodeLength(data []byte, message MessageType) (int, error) {
	if len(data) < HeaderLength {
		return 0, fmt.Errorf("Data too short to decode")
	}
	if MessageType(data[0]) != message {
		return 0, fmt.Errorf("Invalid message type for command E:%d R:%d", message, data[0])
	}
	payloadLength := int(binary.BigEndian.Uint32(data[2:6]))
	if payloadLength != len(data)-HeaderLength {
		return payloadLength, ErrInvalidPayloadSize
	}
	return payloadLength, nil
}

// ReadMessage reads one framed message, header included.
func ReadMessage(reader *bufio.Reader) ([]byte, error) {
	header := make([]byte, HeaderLength)
	if _, err := io.ReadFull(reader, header); err != nil {
		return nil, err
	}
	messageLength := int(binary.BigEndian.Uint32(header[2:HeaderLength]))
	if messageLength > maxPayloadLength {
		return nil, ErrMessageTooLarge
	}
	message := make([]byte, messageLength+HeaderLength)
	copy(message[0:HeaderLength], header)
	if _, err := io.ReadFull(reader, message[HeaderLength:]); err != nil {
		return nil, err
	}
	return message, nil
}

func writePayloadLength(buf *bytes.Buffer, length int) error {
	err := binary.Write(buf, binary.BigEndian, uint32(length))
	if err != nil {
		return fmt.Errorf("Failed to write length (%d)", length)
	}
	return nil
}

func encodeMessage(tp MessageType, payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(tp))
	buf.WriteByte(byte(0x00))
	if err := writePayloadLength(&buf, len(payload)); err != nil {
		return nil, err
	}
	if _, err := buf.Write(payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeStringWithLength(buf *bytes.Buffer, str string) error {
	if err := binary.Write(buf, binary.BigEndian, uint32(len(str))); err != nil {
		return err
	}
	_, err := buf.WriteString(str)
	return err
}

func readStringWithLength(r io.Reader) (string, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return "", err
	}
	if length > maxPayloadLength {
		return "", ErrInvalidPayloadSize
	}
	str := make([]byte, length)
	if _, err := io.ReadFull(r, str); err != nil {
		return "", err
	}
	return string(str), nil
}

func encodeCell(buf *bytes.Buffer, cell ai.Cell) error {
	if err := binary.Write(buf, binary.BigEndian, int32(cell.Row)); err != nil {
		return err
	}
	return binary.Write(buf, binary.BigEndian, int32(cell.Col))
}

func decodeCell(r io.Reader) (ai.Cell, error) {
	var row, col int32
	if err := binary.Read(r, binary.BigEndian, &row); err != nil {
		return ai.Cell{}, err
	}
	if err := binary.Read(r, binary.BigEndian, &col); err != nil {
		return ai.Cell{}, err
	}
	return ai.Cell{Row: int(row), Col: int(col)}, nil
}

func encodeCells(buf *bytes.Buffer, cells []ai.Cell) error {
	if err := binary.Write(buf, binary.BigEndian, uint32(len(cells))); err != nil {
		return err
	}
	for _, cell := range cells {
		if err := encodeCell(buf, cell); err != nil {
			return err
		}
	}
	return nil
}

func decodeCells(r *bytes.Reader) ([]ai.Cell, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	if int(n)*CellByteLength > r.Len() {
		return nil, ErrInvalidPayloadSize
	}
	cells := make([]ai.Cell, n)
	for i := range cells {
		cell, err := decodeCell(r)
		if err != nil {
			return nil, err
		}
		cells[i] = cell
	}
	return cells, nil
}

func EncodeStartSession(params SessionParams) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, uint32(params.Height)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, uint32(params.Width)); err != nil {
		return nil, err
	}
	return encodeMessage(StartSession, buf.Bytes())
}

func DecodeStartSession(data []byte) (*SessionParams, error) {
	length, err := checkAndDecodeLength(data, StartSession)
	if err != nil {
		return nil, err
	}
	if length != 8 {
		return nil, ErrInvalidPayloadSize
	}
	payload := data[HeaderLength:]
	return &SessionParams{
		Height: int(binary.BigEndian.Uint32(payload[0:4])),
		Width:  int(binary.BigEndian.Uint32(payload[4:8])),
	}, nil
}

func EncodeSessionStarted(sessionID string) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeStringWithLength(&buf, sessionID); err != nil {
		return nil, err
	}
	return encodeMessage(SessionStarted, buf.Bytes())
}

func DecodeSessionStarted(data []byte) (string, error) {
	return decodeStringMessage(data, SessionStarted)
}

func EncodeResumeSession(sessionID string) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeStringWithLength(&buf, sessionID); err != nil {
		return nil, err
	}
	return encodeMessage(ResumeSession, buf.Bytes())
}

func DecodeResumeSession(data []byte) (string, error) {
	return decodeStringMessage(data, ResumeSession)
}

func decodeStringMessage(data []byte, tp MessageType) (string, error) {
	if _, err := checkAndDecodeLength(data, tp); err != nil {
		return "", err
	}
	r := bytes.NewReader(data[HeaderLength:])
	str, err := readStringWithLength(r)
	if err != nil {
		return "", err
	}
	if r.Len() != 0 {
		return "", ErrInvalidPayloadSize
	}
	return str, nil
}

func EncodeObserve(params ObservationParams) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeCell(&buf, params.Cell); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, int32(params.Count)); err != nil {
		return nil, err
	}
	return encodeMessage(Observe, buf.Bytes())
}

func DecodeObserve(data []byte) (*ObservationParams, error) {
	length, err := checkAndDecodeLength(data, Observe)
	if err != nil {
		return nil, err
	}
	if length != CellByteLength+4 {
		return nil, ErrInvalidPayloadSize
	}
	r := bytes.NewReader(data[HeaderLength:])
	cell, err := decodeCell(r)
	if err != nil {
		return nil, err
	}
	var count int32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	return &ObservationParams{Cell: cell, Count: int(count)}, nil
}

func EncodeRequestMove() ([]byte, error) {
	return encodeMessage(RequestMove, nil)
}

func DecodeRequestMove(data []byte) error {
	length, err := checkAndDecodeLength(data, RequestMove)
	if err != nil {
		return err
	}
	if length != 0 {
		return ErrInvalidPayloadSize
	}
	return nil
}

func EncodeSuggestedMove(move MoveSuggestion) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(move.Kind))
	if err := encodeCell(&buf, move.Cell); err != nil {
		return nil, err
	}
	return encodeMessage(SuggestedMove, buf.Bytes())
}

func DecodeSuggestedMove(data []byte) (*MoveSuggestion, error) {
	length, err := checkAndDecodeLength(data, SuggestedMove)
	if err != nil {
		return nil, err
	}
	if length != 1+CellByteLength {
		return nil, ErrInvalidPayloadSize
	}
	kind := MoveKind(data[HeaderLength])
	switch kind {
	case NoMove, SafeMove, GuessMove:
	default:
		return nil, fmt.Errorf("unknown move kind %x", kind)
	}
	cell, err := decodeCell(bytes.NewReader(data[HeaderLength+1:]))
	if err != nil {
		return nil, err
	}
	return &MoveSuggestion{Kind: kind, Cell: cell}, nil
}

func EncodeKnowledge(snapshot KnowledgeSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	for _, cells := range [][]ai.Cell{snapshot.Safes, snapshot.Mines, snapshot.MovesMade} {
		if err := encodeCells(&buf, cells); err != nil {
			return nil, err
		}
	}
	return encodeMessage(Knowledge, buf.Bytes())
}

func DecodeKnowledge(data []byte) (*KnowledgeSnapshot, error) {
	if _, err := checkAndDecodeLength(data, Knowledge); err != nil {
		return nil, err
	}
	r := bytes.NewReader(data[HeaderLength:])
	var lists [3][]ai.Cell
	for i := range lists {
		cells, err := decodeCells(r)
		if err != nil {
			return nil, err
		}
		lists[i] = cells
	}
	if r.Len() != 0 {
		return nil, ErrInvalidPayloadSize
	}
	return &KnowledgeSnapshot{Safes: lists[0], Mines: lists[1], MovesMade: lists[2]}, nil
}

// SnapshotOf copies the agent's known sets.
func SnapshotOf(agent *ai.Agent) KnowledgeSnapshot {
	return KnowledgeSnapshot{
		Safes:     agent.Safes(),
		Mines:     agent.Mines(),
		MovesMade: agent.MovesMade(),
	}
}

func EncodeTextMessage(message string) ([]byte, error) {
	return encodeMessage(TextMessage, []byte(message))
}

func DecodeTextMessage(data []byte) (string, error) {
	if _, err := checkAndDecodeLength(data, TextMessage); err != nil {
		return "", err
	}
	return string(data[HeaderLength:]), nil
}

func EncodeError(response ErrorResponse) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(response.Code))
	buf.WriteString(response.Message)
	return encodeMessage(ErrorMessage, buf.Bytes())
}

func DecodeError(data []byte) (*ErrorResponse, error) {
	length, err := checkAndDecodeLength(data, ErrorMessage)
	if err != nil {
		return nil, err
	}
	if length < 1 {
		return nil, ErrInvalidPayloadSize
	}
	return &ErrorResponse{
		Code:    ErrorCode(data[HeaderLength]),
		Message: string(data[HeaderLength+1:]),
	}, nil
}
