package protocol

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// codec is the module's single JSON configuration. Sorted map keys make encoded
// requests byte-stable; UseNumber keeps 64-bit ids exact until the typed decoder
// sees them.
var codec = sonic.Config{
	SortMapKeys: true,
	UseNumber:   true,
	EscapeHTML:  false,
}.Froze()

// Marshal encodes v with the wire codec.
func Marshal(v any) ([]byte, error) {
	return codec.Marshal(v)
}

// Unmarshal decodes data into v with the wire codec.
func Unmarshal(data []byte, v any) error {
	return codec.Unmarshal(data, v)
}

// EncodeRequest encodes a request frame.
func EncodeRequest(req Request) ([]byte, error) {
	data, err := Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request %s: %w", req.RequestID, err)
	}
	return data, nil
}

// DecodeResponse decodes a response frame. Result data is left in its GraphSON form;
// use Decode to turn it into Go values.
func DecodeResponse(data []byte) (Response, error) {
	var resp Response
	if err := Unmarshal(data, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: decode response: %v", ErrProtocol, err)
	}
	return resp, nil
}

// MimeType is the serializer requested from the server.
const MimeType = "application/vnd.gremlin-v3.0+json"

// Frame prefixes an encoded request with its mime type header, as binary WebSocket
// messages to the server require.
func Frame(payload []byte) []byte {
	out := make([]byte, 0, 1+len(MimeType)+len(payload))
	out = append(out, byte(len(MimeType)))
	out = append(out, MimeType...)
	return append(out, payload...)
}

// Unframe splits a binary request message into its mime type and payload.
func Unframe(msg []byte) (string, []byte, error) {
	if len(msg) == 0 || len(msg) < 1+int(msg[0]) {
		return "", nil, fmt.Errorf("%w: truncated request frame", ErrProtocol)
	}
	n := 1 + int(msg[0])
	return string(msg[1:n]), msg[n:], nil
}
