package seeds

import (
	"context"
	"fmt"

	"github.com/miekg/dns"
)

// miekgResolver answers TXT lookups using github.com/miekg/dns against the
// system's configured nameservers, rather than the stdlib resolver's cgo/
// platform-dependent path. This is what lets a bootnode seed refresh run the
// same way on a from-scratch container as on the host it was built on.
type miekgResolver struct {
	client  *dns.Client
	servers []string
}

// NewDNSResolver builds a Resolver backed by miekg/dns, reading nameservers
// from /etc/resolv.conf. It falls back to a single well-known public
// resolver if the system config cannot be read, so seed discovery still
// works inside a minimal container image.
func NewDNSResolver() Resolver {
	servers := []string{"8.8.8.8:53"}
	if cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil && len(cfg.Servers) > 0 {
		servers = make([]string, 0, len(cfg.Servers))
		for _, s := range cfg.Servers {
			servers = append(servers, s+":"+cfg.Port)
		}
	}
	return &miekgResolver{client: &dns.Client{}, servers: servers}
}

// LookupTXT queries each configured nameserver in turn until one answers.
func (r *miekgResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	msg := &dns.Msg{}
	msg.SetQuestion(dns.Fqdn(name), dns.TypeTXT)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		reply, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = err
			continue
		}
		if reply.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("dns %s: rcode %s", server, dns.RcodeToString[reply.Rcode])
			continue
		}
		var records []string
		for _, rr := range reply.Answer {
			if txt, ok := rr.(*dns.TXT); ok {
				for _, chunk := range txt.Txt {
					records = append(records, chunk)
				}
			}
		}
		return records, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("dns: no nameservers configured for %s", name)
	}
	return nil, lastErr
}
