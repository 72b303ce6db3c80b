package protocol

import "strings"

// Message fragments that refine a generic server error.
const (
	msgVertexAlreadyExists = "Vertex with id already exists"
	msgEdgeAlreadyExists   = "Edge with id already exists"
	msgInsertFailed        = "Failed to complete Insert operation for a"
	msgConcurrentModified  = "ConcurrentModificationException"
)

// Classify maps a response status to an error. Success codes yield nil; every other
// code yields an error of exactly one kind. query is attached to the error for
// diagnostics.
func Classify(status Status, query any) error {
	switch status.Code {
	case StatusSuccess, StatusNoContent, StatusPartialContent:
		return nil
	case StatusUnauthorized, StatusAuthenticate, StatusMalformedRequest:
		return statusError(ErrClientSide, status, query)
	case StatusInvalidRequestArguments:
		return statusError(ErrInvalidRequestArguments, status, query)
	case StatusServerError:
		return classifyServerError(status, query)
	case StatusScriptEvaluationError:
		return statusError(ErrScriptEvaluation, status, query)
	case StatusServerTimeout:
		return statusError(ErrServerTimeout, status, query)
	case StatusServerSerializationError:
		return statusError(ErrServerSerialization, status, query)
	default:
		return &UnknownResponseStatusError{Status: status}
	}
}

func statusError(kind *Kind, status Status, query any) *StatusError {
	return &StatusError{Kind: kind, Status: status, Query: query}
}

func classifyServerError(status Status, query any) error {
	msg := status.Message
	switch {
	case strings.Contains(msg, msgVertexAlreadyExists):
		return newAlreadyExistsError(ErrVertexAlreadyExists, status, query)
	case strings.Contains(msg, msgEdgeAlreadyExists):
		return newAlreadyExistsError(ErrEdgeAlreadyExists, status, query)
	case strings.Contains(msg, msgInsertFailed):
		return statusError(insertFailedKind(msg), status, query)
	case strings.Contains(msg, msgConcurrentModified):
		return statusError(ErrConcurrentModification, status, query)
	default:
		return statusError(ErrServer, status, query)
	}
}

// insertFailedKind picks the entity kind named right after the insert failure prefix.
func insertFailedKind(msg string) *Kind {
	rest := msg[strings.Index(msg, msgInsertFailed)+len(msgInsertFailed):]
	rest = strings.TrimPrefix(strings.TrimPrefix(rest, "n"), " ")
	switch {
	case strings.HasPrefix(rest, "VertexProperty"):
		return ErrConcurrentVertexPropertyInsertFailed
	case strings.HasPrefix(rest, "EdgeProperty"):
		return ErrConcurrentEdgePropertyInsertFailed
	case strings.HasPrefix(rest, "Vertex"):
		return ErrConcurrentVertexInsertFailed
	case strings.HasPrefix(rest, "Edge"):
		return ErrConcurrentEdgeInsertFailed
	default:
		return ErrConcurrentInsertFailed
	}
}
