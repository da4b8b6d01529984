package mailbox

import (
	"bytes"
	"sort"
	"sync"

	"agentmail-go/internal/clock"
)

// Store is the mailbox: messages, peers, and outbox, guarded by a single
// mutex so every operation below is effectively a transaction (spec §5:
// "wrapped so that transactions do not block the loop" — here the critical
// sections are kept short and the slow part, persistence, happens with the
// new state already computed).
type Store struct {
	mu sync.Mutex

	messages map[string]StoredMessage // id -> message
	dedup    map[string]string        // "senderFP:nonce" -> message id

	peers       map[string]PeerInfo // fp -> peer
	peersByName map[string]string   // name -> fp

	outbox          map[string]OutboxEntry // entry id -> entry
	outboxByMessage map[string]string      // message id -> entry id

	clock    clock.Clock
	nextULID func() string
	persist  persister
}

// persister abstracts snapshot persistence so Store can run purely
// in-memory in tests (nilPersister) or durably against a data directory
// (filePersister, see persist.go).
type persister interface {
	Save(snap snapshot) error
}

// New opens or creates the mailbox at dataDir/mailbox.db (spec §6).
func New(dataDir string, c clock.Clock) (*Store, error) {
	s := newEmpty(c, &filePersister{path: mailboxPath(dataDir)})
	loaded, err := loadSnapshot(mailboxPath(dataDir))
	if err != nil {
		return nil, err
	}
	if loaded != nil {
		s.restore(*loaded)
	}
	return s, nil
}

// NewMemory returns an in-memory-only Store that never writes to disk, for
// tests.
func NewMemory(c clock.Clock) *Store {
	return newEmpty(c, nilPersister{})
}

func newEmpty(c clock.Clock, p persister) *Store {
	return &Store{
		messages:        make(map[string]StoredMessage),
		dedup:           make(map[string]string),
		peers:           make(map[string]PeerInfo),
		peersByName:     make(map[string]string),
		outbox:          make(map[string]OutboxEntry),
		outboxByMessage: make(map[string]string),
		clock:           c,
		nextULID:        newULID,
		persist:         p,
	}
}

func (s *Store) restore(snap snapshot) {
	for _, m := range snap.Messages {
		s.messages[m.ID] = m
	}
	for key, id := range snap.Dedup {
		s.dedup[key] = id
	}
	for _, p := range snap.Peers {
		s.peers[p.FP] = p
		s.peersByName[p.Name] = p.FP
	}
	for _, e := range snap.Outbox {
		s.outbox[e.ID] = e
		s.outboxByMessage[e.MessageID] = e.ID
	}
}

// snapshotLocked must be called with s.mu held.
func (s *Store) snapshotLocked() snapshot {
	snap := snapshot{
		Messages: make([]StoredMessage, 0, len(s.messages)),
		Dedup:    make(map[string]string, len(s.dedup)),
		Peers:    make([]PeerInfo, 0, len(s.peers)),
		Outbox:   make([]OutboxEntry, 0, len(s.outbox)),
	}
	for _, m := range s.messages {
		snap.Messages = append(snap.Messages, m)
	}
	for k, v := range s.dedup {
		snap.Dedup[k] = v
	}
	for _, p := range s.peers {
		snap.Peers = append(snap.Peers, p)
	}
	for _, e := range s.outbox {
		snap.Outbox = append(snap.Outbox, e)
	}
	sort.Slice(snap.Messages, func(i, j int) bool { return snap.Messages[i].ID < snap.Messages[j].ID })
	sort.Slice(snap.Peers, func(i, j int) bool { return snap.Peers[i].FP < snap.Peers[j].FP })
	sort.Slice(snap.Outbox, func(i, j int) bool { return snap.Outbox[i].ID < snap.Outbox[j].ID })
	return snap
}

// persistLocked saves the current state; caller holds s.mu.
func (s *Store) persistLocked() error {
	return s.persist.Save(s.snapshotLocked())
}

func dedupKey(senderFP, nonce string) string {
	var b bytes.Buffer
	b.WriteString(senderFP)
	b.WriteByte(':')
	b.WriteString(nonce)
	return b.String()
}

type nilPersister struct{}

func (nilPersister) Save(snapshot) error { return nil }
