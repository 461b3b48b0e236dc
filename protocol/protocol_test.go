package protocol_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasstrnad1997/minesai/ai"
	"github.com/tomasstrnad1997/minesai/protocol"
)

func TestObserveEncoding(t *testing.T) {
	params := protocol.ObservationParams{Cell: ai.Cell{Row: 3, Col: 7}, Count: 2}
	encoded, err := protocol.EncodeObserve(params)
	require.NoError(t, err)
	assert.Equal(t, byte(protocol.Observe), encoded[0])
	assert.Len(t, encoded, protocol.HeaderLength+12)

	decoded, err := protocol.DecodeObserve(encoded)
	require.NoError(t, err)
	assert.Equal(t, params, *decoded)
}

func TestObserveKeepsNegativeCount(t *testing.T) {
	encoded, err := protocol.EncodeObserve(protocol.ObservationParams{Cell: ai.Cell{Row: 0, Col: -1}, Count: -4})
	require.NoError(t, err)
	decoded, err := protocol.DecodeObserve(encoded)
	require.NoError(t, err)
	assert.Equal(t, -1, decoded.Cell.Col)
	assert.Equal(t, -4, decoded.Count)
}

func TestKnowledgeEncoding(t *testing.T) {
	snapshot := protocol.KnowledgeSnapshot{
		Safes:     []ai.Cell{{Row: 0, Col: 1}, {Row: 1, Col: 1}},
		Mines:     []ai.Cell{{Row: 0, Col: 0}},
		MovesMade: []ai.Cell{{Row: 1, Col: 1}},
	}
	encoded, err := protocol.EncodeKnowledge(snapshot)
	require.NoError(t, err)
	decoded, err := protocol.DecodeKnowledge(encoded)
	require.NoError(t, err)
	assert.Equal(t, snapshot, *decoded)
}

func TestSuggestedMoveEncoding(t *testing.T) {
	for _, move := range []protocol.MoveSuggestion{
		{Kind: protocol.SafeMove, Cell: ai.Cell{Row: 2, Col: 4}},
		{Kind: protocol.GuessMove, Cell: ai.Cell{Row: 0, Col: 0}},
		{Kind: protocol.NoMove},
	} {
		encoded, err := protocol.EncodeSuggestedMove(move)
		require.NoError(t, err)
		decoded, err := protocol.DecodeSuggestedMove(encoded)
		require.NoError(t, err)
		assert.Equal(t, move, *decoded)
	}
}

func TestDecodeRejectsWrongType(t *testing.T) {
	encoded, err := protocol.EncodeRequestMove()
	require.NoError(t, err)
	_, err = protocol.DecodeObserve(encoded)
	assert.Error(t, err)
	assert.NoError(t, protocol.DecodeRequestMove(encoded))
}

func TestDecodeRejectsTruncatedPayload(t *testing.T) {
	encoded, err := protocol.EncodeStartSession(protocol.SessionParams{Height: 8, Width: 8})
	require.NoError(t, err)
	_, err = protocol.DecodeStartSession(encoded[:len(encoded)-1])
	assert.ErrorIs(t, err, protocol.ErrInvalidPayloadSize)
}

func TestErrorAndSessionMessages(t *testing.T) {
	encoded, err := protocol.EncodeError(protocol.ErrorResponse{Code: protocol.ErrCodeNoSession, Message: "start a session first"})
	require.NoError(t, err)
	decoded, err := protocol.DecodeError(encoded)
	require.NoError(t, err)
	assert.Equal(t, protocol.ErrCodeNoSession, decoded.Code)
	assert.Equal(t, "start a session first", decoded.Message)

	encoded, err = protocol.EncodeResumeSession("c0ffee")
	require.NoError(t, err)
	id, err := protocol.DecodeResumeSession(encoded)
	require.NoError(t, err)
	assert.Equal(t, "c0ffee", id)
}

func TestReadMessageFraming(t *testing.T) {
	first, err := protocol.EncodeTextMessage("hello")
	require.NoError(t, err)
	second, err := protocol.EncodeSessionStarted("abc")
	require.NoError(t, err)

	reader := bufio.NewReader(bytes.NewReader(append(first, second...)))
	message, err := protocol.ReadMessage(reader)
	require.NoError(t, err)
	text, err := protocol.DecodeTextMessage(message)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	message, err = protocol.ReadMessage(reader)
	require.NoError(t, err)
	id, err := protocol.DecodeSessionStarted(message)
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
}
