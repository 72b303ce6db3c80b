package protocol

import (
	"github.com/aixgo-dev/gremlin/pkg/bytecode"
)

// Request operations.
const (
	OpBytecode       = "bytecode"
	OpEval           = "eval"
	OpAuthentication = "authentication"
	OpClose          = "close"
)

// Request processors. Eval requests use the default processor, which is empty.
const (
	ProcessorTraversal = "traversal"
	ProcessorSession   = "session"
)

// TraversalSource is the alias every request binds g to.
const TraversalSource = "g"

// Request is a frame sent to the server.
type Request struct {
	RequestID string `json:"requestId"`
	Op        string `json:"op"`
	Processor string `json:"processor"`
	Args      Args   `json:"args"`
}

// Args holds the request arguments.
type Args struct {
	Gremlin  any               `json:"gremlin"`
	Aliases  map[string]string `json:"aliases,omitempty"`
	Session  string            `json:"session,omitempty"`
	Language string            `json:"language,omitempty"`
}

// NewBytecodeRequest builds a bytecode request. A non-empty sessionID routes it to the
// session processor.
func NewBytecodeRequest(requestID string, doc bytecode.Document, sessionID string) Request {
	processor := ProcessorTraversal
	if sessionID != "" {
		processor = ProcessorSession
	}
	return Request{
		RequestID: requestID,
		Op:        OpBytecode,
		Processor: processor,
		Args: Args{
			Gremlin: bytecode.Tag(doc),
			Aliases: map[string]string{TraversalSource: TraversalSource},
			Session: sessionID,
		},
	}
}

// NewEvalRequest builds a script evaluation request. The client never builds scripts
// itself; this is used for health checks such as "1+1".
func NewEvalRequest(requestID, script, sessionID string) Request {
	processor := ""
	if sessionID != "" {
		processor = ProcessorSession
	}
	return Request{
		RequestID: requestID,
		Op:        OpEval,
		Processor: processor,
		Args: Args{
			Gremlin:  script,
			Aliases:  map[string]string{TraversalSource: TraversalSource},
			Session:  sessionID,
			Language: "gremlin-groovy",
		},
	}
}

// Response is one frame of a response stream.
type Response struct {
	RequestID string `json:"requestId"`
	Status    Status `json:"status"`
	Result    Result `json:"result"`
}

// Result carries the payload of a response frame.
type Result struct {
	Data any            `json:"data"`
	Meta map[string]any `json:"meta,omitempty"`
}

// Status codes.
const (
	StatusSuccess                  = 200
	StatusNoContent                = 204
	StatusPartialContent           = 206
	StatusUnauthorized             = 401
	StatusAuthenticate             = 407
	StatusMalformedRequest         = 498
	StatusInvalidRequestArguments  = 499
	StatusServerError              = 500
	StatusScriptEvaluationError    = 597
	StatusServerTimeout            = 598
	StatusServerSerializationError = 599
)

// Status is the status block of a response frame.
type Status struct {
	Code       int            `json:"code"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// IsSuccess reports whether the status carries results rather than an error.
func (s Status) IsSuccess() bool {
	switch s.Code {
	case StatusSuccess, StatusNoContent, StatusPartialContent:
		return true
	}
	return false
}

// IsTerminal reports whether no further frames follow for the request.
func (s Status) IsTerminal() bool {
	return s.Code != StatusPartialContent
}
