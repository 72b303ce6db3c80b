package protocol

import (
	"fmt"
	"strings"
)

// Kind is a node of the client error taxonomy. Every kind unwraps to its parent,
// so errors.Is(err, ErrServerSide) matches any server side failure.
type Kind struct {
	name   string
	parent *Kind
}

func newKind(name string, parent *Kind) *Kind {
	return &Kind{name: name, parent: parent}
}

// Error returns the kind name.
func (k *Kind) Error() string {
	return k.name
}

// Unwrap returns the parent kind.
func (k *Kind) Unwrap() error {
	if k.parent == nil {
		return nil
	}
	return k.parent
}

// Parent returns the enclosing kind, or nil for the root.
func (k *Kind) Parent() *Kind {
	return k.parent
}

var (
	// ErrGremlin is the root of every error kind returned by this module.
	ErrGremlin = newKind("gremlin error", nil)

	ErrConnection    = newKind("connection error", ErrGremlin)
	ErrCannotConnect = newKind("cannot connect", ErrConnection)
	ErrDisconnect    = newKind("disconnected", ErrConnection)

	ErrConnectionStatus = newKind("connection status error", ErrGremlin)
	ErrNotConnected     = newKind("not connected", ErrConnectionStatus)
	ErrAlreadyConnected = newKind("already connected", ErrConnectionStatus)
	ErrClientClosed     = newKind("client closed", ErrConnectionStatus)

	ErrProtocol              = newKind("protocol error", ErrGremlin)
	ErrUnknownResponseStatus = newKind("unknown response status", ErrProtocol)
	ErrUnknownType           = newKind("unknown type", ErrProtocol)

	ErrStatus     = newKind("status error", ErrGremlin)
	ErrClientSide = newKind("client side error", ErrStatus)
	ErrServerSide = newKind("server side error", ErrStatus)

	ErrScriptEvaluation        = newKind("script evaluation error", ErrServerSide)
	ErrInvalidRequestArguments = newKind("invalid request arguments", ErrServerSide)
	ErrServerSerialization     = newKind("server serialization error", ErrServerSide)
	ErrServerTimeout           = newKind("server timeout", ErrServerSide)
	ErrServer                  = newKind("server error", ErrServerSide)

	ErrAlreadyExists       = newKind("already exists", ErrServer)
	ErrVertexAlreadyExists = newKind("vertex already exists", ErrAlreadyExists)
	ErrEdgeAlreadyExists   = newKind("edge already exists", ErrAlreadyExists)

	ErrConcurrentModification               = newKind("concurrent modification", ErrServer)
	ErrConcurrentInsertFailed               = newKind("concurrent insert failed", ErrConcurrentModification)
	ErrConcurrentVertexInsertFailed         = newKind("concurrent vertex insert failed", ErrConcurrentInsertFailed)
	ErrConcurrentEdgeInsertFailed           = newKind("concurrent edge insert failed", ErrConcurrentInsertFailed)
	ErrConcurrentVertexPropertyInsertFailed = newKind("concurrent vertex property insert failed", ErrConcurrentInsertFailed)
	ErrConcurrentEdgePropertyInsertFailed   = newKind("concurrent edge property insert failed", ErrConcurrentInsertFailed)

	ErrInternalClient        = newKind("internal client error", ErrGremlin)
	ErrUnknownRequestStopped = newKind("unknown request stopped", ErrInternalClient)
	ErrResourceLeak          = newKind("resource leak", ErrInternalClient)
	ErrUnknownMapKey         = newKind("unknown map key", ErrInternalClient)

	ErrTransaction      = newKind("transaction error", ErrGremlin)
	ErrRollback         = newKind("rollback", ErrTransaction)
	ErrTransactionState = newKind("invalid transaction state", ErrTransaction)

	ErrRepository       = newKind("repository error", ErrGremlin)
	ErrWrongQueryResult = newKind("wrong query result", ErrRepository)
)

// StatusError is a failure reported by the server through a response status.
type StatusError struct {
	Kind   *Kind
	Status Status
	// Query is the request payload that failed, kept for diagnostics.
	Query any
}

func (e *StatusError) Error() string {
	if e.Status.Message == "" {
		return fmt.Sprintf("%s (status %d)", e.Kind, e.Status.Code)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status.Code, e.Status.Message)
}

// Unwrap returns the error kind for errors.Is compatibility.
func (e *StatusError) Unwrap() error {
	return e.Kind
}

// AlreadyExistsError reports an insert of an element whose id is taken.
// ID is nil when the server message carries no id.
type AlreadyExistsError struct {
	StatusError
	ID *string
}

func newAlreadyExistsError(kind *Kind, status Status, query any) *AlreadyExistsError {
	return &AlreadyExistsError{
		StatusError: StatusError{Kind: kind, Status: status, Query: query},
		ID:          parseID(status.Message),
	}
}

// parseID returns the text after the last colon of msg, trimmed, or nil when there is none.
func parseID(msg string) *string {
	idx := strings.LastIndex(msg, ":")
	if idx < 0 {
		return nil
	}
	id := strings.TrimSpace(msg[idx+1:])
	if id == "" {
		return nil
	}
	return &id
}

// UnknownResponseStatusError carries a status code outside the documented code space.
type UnknownResponseStatusError struct {
	Status Status
}

func (e *UnknownResponseStatusError) Error() string {
	return fmt.Sprintf("%s: code %d: %s", ErrUnknownResponseStatus, e.Status.Code, e.Status.Message)
}

// Unwrap returns ErrUnknownResponseStatus.
func (e *UnknownResponseStatusError) Unwrap() error {
	return ErrUnknownResponseStatus
}

// UnknownTypeError reports a GraphSON type tag the decoder does not understand.
type UnknownTypeError struct {
	Type  string
	Value any
}

func (e *UnknownTypeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("%s: untagged value %v", ErrUnknownType, e.Value)
	}
	return fmt.Sprintf("%s: %s", ErrUnknownType, e.Type)
}

// Unwrap returns ErrUnknownType.
func (e *UnknownTypeError) Unwrap() error {
	return ErrUnknownType
}

// UnknownMapKeyError reports a map key that cannot be used as a Go map key.
type UnknownMapKeyError struct {
	Key any
}

func (e *UnknownMapKeyError) Error() string {
	return fmt.Sprintf("%s: %v (%T)", ErrUnknownMapKey, e.Key, e.Key)
}

// Unwrap returns ErrUnknownMapKey.
func (e *UnknownMapKeyError) Unwrap() error {
	return ErrUnknownMapKey
}
