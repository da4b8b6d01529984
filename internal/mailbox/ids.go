package mailbox

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// newULID generates a new lexically-sortable id, used for both
// StoredMessage.ID and OutboxEntry.ID (spec §3: "id (ULID)"). Access to the
// monotonic entropy source is serialized; every caller in this package
// already holds Store.mu, but the lock here keeps the generator safe to
// reuse standalone (e.g. from tests) too.
var (
	ulidMu   sync.Mutex
	entropy  = ulid.Monotonic(rand.Reader, 0)
)

func newULID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
