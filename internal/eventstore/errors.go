package eventstore

import (
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/foundation/errors"
)

// Messages of the eventstore errors, usable with errors.Is against a
// ClassifiedError built from the same message.
const (
	msgOpen    = "could not open event store database"
	msgSchema  = "failed to initialize event store schema"
	msgAppend  = "failed to append event to store"
	msgQuery   = "failed to query events from store"
	msgMarshal = "failed to marshal event payload"
)

// ErrEventAppendFailed matches any failed Append.
var ErrEventAppendFailed = errors.EventStoreError(msgAppend).Build()

func storeError(cause error, msg string) *errors.ErrorBuilder {
	return errors.WrapError(cause, errors.CategoryEventStore, msg)
}
