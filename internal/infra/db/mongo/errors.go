package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"rentalspot/internal/domain/shared/apperr"
)

// classify maps driver failures onto the storage taxonomy. Duplicate keys are
// conflicts; timeouts, network errors and transient transaction labels may be
// retried.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case apperr.KindOf(err) != "":
		return err
	case mongo.IsDuplicateKeyError(err):
		return apperr.Conflict(op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.Storage(op, err, true)
	case mongo.IsTimeout(err), mongo.IsNetworkError(err), hasLabel(err, "TransientTransactionError"), hasLabel(err, "UnknownTransactionCommitResult"):
		return apperr.Storage(op, err, true)
	default:
		return apperr.Storage(op, err, false)
	}
}

func hasLabel(err error, label string) bool {
	var labeled mongo.LabeledError
	return errors.As(err, &labeled) && labeled.HasErrorLabel(label)
}

const writeConflictCode = 112

func isWriteConflict(err error) bool {
	var server mongo.ServerError
	return errors.As(err, &server) && server.HasErrorCode(writeConflictCode)
}

func bsonKeys(fields ...string) bson.D {
	keys := make(bson.D, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	return keys
}
