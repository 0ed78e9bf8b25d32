package connectivity

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/miekg/dns"
)

// DNSPortal answers every DNS query with the access point's own
// address so any client joining the setup network lands on the local
// presentation layer regardless of the hostname it asked for.
type DNSPortal struct {
	mu     sync.Mutex
	listen string
	log    *slog.Logger
	server *dns.Server
	active bool
}

// NewDNSPortal creates a portal serving UDP DNS on listen (e.g. ":53").
func NewDNSPortal(listen string, log *slog.Logger) *DNSPortal {
	if log == nil {
		log = slog.Default()
	}
	return &DNSPortal{listen: listen, log: log}
}

// Start begins answering with apAddress. No-op while already running.
func (p *DNSPortal) Start(apAddress string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active {
		return nil
	}
	ip := net.ParseIP(apAddress)
	if ip == nil {
		return fmt.Errorf("invalid access point address %q", apAddress)
	}

	p.server = &dns.Server{
		Addr:    p.listen,
		Net:     "udp",
		Handler: RedirectHandler(ip),
	}
	go func(srv *dns.Server) {
		if err := srv.ListenAndServe(); err != nil {
			p.log.Error("captive portal dns server stopped", "err", err)
		}
	}(p.server)
	p.active = true
	p.log.Info("captive portal dns started", "listen", p.listen, "answer", apAddress)
	return nil
}

// Stop shuts the resolver down. No-op when not running.
func (p *DNSPortal) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active {
		return
	}
	p.server.Shutdown()
	p.server = nil
	p.active = false
	p.log.Info("captive portal dns stopped")
}

// Active reports whether the resolver is running.
func (p *DNSPortal) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// RedirectHandler resolves every A query, for any name, to ip.
func RedirectHandler(ip net.IP) dns.Handler {
	return dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		resp := new(dns.Msg)
		resp.SetReply(req)
		resp.Authoritative = true
		for _, q := range req.Question {
			if q.Qtype != dns.TypeA && q.Qtype != dns.TypeANY {
				continue
			}
			resp.Answer = append(resp.Answer, &dns.A{
				Hdr: dns.RR_Header{
					Name:   q.Name,
					Rrtype: dns.TypeA,
					Class:  dns.ClassINET,
					Ttl:    60,
				},
				A: ip.To4(),
			})
		}
		w.WriteMsg(resp)
	})
}
