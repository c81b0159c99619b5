package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeFrame(t *testing.T) {
	req := require.New(t)

	frame, err := DecodeFrame([]byte(`{"event":"join","data":42}`))
	req.NoError(err)
	req.Equal(EventJoin, frame.Event)
	req.JSONEq(`42`, string(frame.Data))

	_, err = DecodeFrame([]byte(`not json`))
	req.ErrorIs(err, ErrMalformedFrame)

	_, err = DecodeFrame([]byte(`{"data":42}`))
	req.ErrorIs(err, ErrMalformedFrame)
}

func TestEncodeFrameKeepsMessage(t *testing.T) {
	message := json.RawMessage(`{"content":"hi","meta":{"nested":[1,2,3]}}`)

	raw, err := EncodeFrame(EventNewMessage, message)
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"new_message","data":{"content":"hi","meta":{"nested":[1,2,3]}}}`, string(raw))
}

func TestDecodeUserID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{"Number", `42`, 42, false},
		{"Numeric string", `"42"`, 42, false},
		{"Padded string", `" 7 "`, 7, false},
		{"Zero", `0`, 0, true},
		{"Negative", `-3`, 0, true},
		{"Fraction", `4.2`, 0, true},
		{"Word", `"abc"`, 0, true},
		{"Null", `null`, 0, true},
		{"Object", `{"id":1}`, 0, true},
		{"Empty", ``, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeUserID(json.RawMessage(tt.raw))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidUserID)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDecodePrivateMessage(t *testing.T) {
	req := require.New(t)

	msg, err := decodePrivateMessage(json.RawMessage(`{"receiverId":5,"message":{"content":"x"}}`))
	req.NoError(err)
	req.Equal(int64(5), msg.ReceiverID)
	req.JSONEq(`{"content":"x"}`, string(msg.Message))

	for _, raw := range []string{
		`{"receiverId":5}`,
		`{"receiverId":5,"message":null}`,
		`{"receiverId":-5,"message":{}}`,
		`{"message":{}}`,
		`"hello"`,
	} {
		_, err := decodePrivateMessage(json.RawMessage(raw))
		req.ErrorIs(err, ErrInvalidPayload, raw)
	}
}

func TestDecodeTyping(t *testing.T) {
	req := require.New(t)

	typing, err := decodeTyping(json.RawMessage(`{"receiverId":5,"isTyping":false}`))
	req.NoError(err)
	req.Equal(int64(5), typing.ReceiverID)
	req.False(*typing.IsTyping)

	_, err = decodeTyping(json.RawMessage(`{"receiverId":5}`))
	req.ErrorIs(err, ErrInvalidPayload)

	_, err = decodeTyping(json.RawMessage(`{"isTyping":true}`))
	req.ErrorIs(err, ErrInvalidPayload)
}
