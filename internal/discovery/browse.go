package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/mdns"

	"agentmail-go/internal/mailbox"
)

// browseOnce runs a single mDNS query, upserts every peer it finds, and
// clears the endpoint of any peer seen in the previous cycle but absent
// from this one (spec §4.4: hashicorp/mdns is poll-based rather than
// event-based like the Python original's zeroconf browser, so a REMOVE is
// modeled here as "dropped out of the last scan" instead of an explicit
// callback — the observable effect is the same: endpoint cleared, record
// retained).
func (d *Discovery) browseOnce(ctx context.Context) {
	entries := make(chan *mdns.ServiceEntry, 32)
	seen := make(map[string]bool)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			fp, ok := d.handleEntry(entry)
			if ok {
				seen[fp] = true
			}
		}
	}()

	params := &mdns.QueryParam{
		Service: ServiceType,
		Domain:  "local",
		Timeout: d.queryWait,
		Entries: entries,
	}
	if err := mdns.Query(params); err != nil {
		d.logger.Warn("mdns query failed", "error", err)
	}
	close(entries)
	<-done

	d.mu.Lock()
	prev := d.lastSeen
	d.lastSeen = seen
	d.mu.Unlock()

	for fp := range prev {
		if seen[fp] {
			continue
		}
		if err := d.store.ClearEndpoint(fp); err != nil {
			d.logger.Warn("clear endpoint failed", "fp", fp, "error", err)
		}
	}
}

// handleEntry decodes one mDNS service entry's TXT record and upserts it as
// a peer. Returns the peer's fingerprint and whether it was recognized as a
// valid, non-self peer record.
func (d *Discovery) handleEntry(entry *mdns.ServiceEntry) (string, bool) {
	fields := parseTXT(entry.InfoFields)
	fp := fields["fp"]
	if fp == "" || fp == d.self.FP {
		return "", false
	}

	host := entry.Host
	if entry.AddrV4 != nil {
		host = entry.AddrV4.String()
	}
	endpoint := fmt.Sprintf("%s:%d", host, entry.Port)

	name := strings.TrimSuffix(entry.Name, "."+ServiceType+".local.")
	name = strings.SplitN(name, ".", 2)[0]

	peer := mailbox.PeerInfo{
		FP:       fp,
		Name:     name,
		SignPub:  decodeB64(fields["sign_pk"]),
		EncPub:   decodeB64(fields["enc_pk"]),
		Endpoint: endpoint,
		Source:   mailbox.SourceLAN,
	}

	if err := d.store.UpsertPeer(peer); err != nil {
		d.logger.Warn("discovered peer rejected", "fp", fp, "error", err)
		return "", false
	}
	d.logger.Info("discovered peer", "fp", fp, "name", name, "endpoint", endpoint)
	return fp, true
}

func parseTXT(fields []string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}
