// Command dnsquery sends a single DNS question over UDP and prints the
// response in zone-file presentation form. It exists for poking at a
// running server without reaching for dig.
package main

import (
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"os"
	"strings"
	"time"

	"github.com/bastiondns/bastiondns/internal/dns"
)

func main() {
	var (
		server   = flag.String("server", "127.0.0.1:1053", "DNS server HOST:PORT")
		name     = flag.String("name", "example.com", "Query name")
		qtype    = flag.String("type", "A", "Query type (A, AAAA, MX, ... or TYPEn)")
		timeout  = flag.Duration("timeout", 2*time.Second, "Timeout")
		recvSize = flag.Int("recv-size", 2048, "UDP receive buffer size")
		quiet    = flag.Bool("quiet", false, "Suppress output (exit status indicates success)")
	)
	flag.Parse()

	rt, ok := dns.RecordTypeFromString(*qtype)
	if !ok {
		fmt.Fprintf(os.Stderr, "dnsquery error: unknown record type %q\n", *qtype)
		os.Exit(2)
	}

	resp, err := queryUDP(*server, *name, rt, *timeout, *recvSize)
	if err != nil {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "dnsquery error: %v\n", err)
		}
		os.Exit(1)
	}
	if *quiet {
		return
	}

	p, err := dns.ParsePacket(resp)
	if err != nil {
		fmt.Printf("received %d bytes (unparseable)\n", len(resp))
		return
	}

	fmt.Printf("id=%d rcode=%d aa=%v tc=%v answers=%d authorities=%d additionals=%d\n",
		p.Header.ID,
		dns.RCodeFromFlags(p.Header.Flags),
		p.Header.Flags&dns.AAFlag != 0,
		p.Header.Flags&dns.TCFlag != 0,
		len(p.Answers),
		len(p.Authorities),
		len(p.Additionals),
	)

	printSection("ANSWER", p.Answers)
	printSection("AUTHORITY", p.Authorities)
	printSection("ADDITIONAL", p.Additionals)
}

func printSection(label string, rrs []dns.RR) {
	if len(rrs) == 0 {
		return
	}
	fmt.Printf(";; %s\n", label)
	for _, rr := range rrs {
		fmt.Println(formatRR(rr))
	}
}

func queryUDP(server, name string, qtype dns.RecordType, timeout time.Duration, recvSize int) ([]byte, error) {
	addr, err := net.ResolveUDPAddr("udp", server)
	if err != nil {
		return nil, err
	}
	c, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	reqBytes, err := buildQuery(name, qtype)
	if err != nil {
		return nil, err
	}
	_ = c.SetDeadline(time.Now().Add(timeout))
	if _, err := c.Write(reqBytes); err != nil {
		return nil, err
	}
	buf := make([]byte, recvSize)
	n, err := c.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func buildQuery(name string, qtype dns.RecordType) ([]byte, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("name required")
	}
	// RD=1
	p := dns.Packet{
		Header:    dns.Header{ID: uint16(rand.Uint32()), Flags: dns.RDFlag},
		Questions: []dns.Question{{Name: strings.TrimSuffix(name, "."), Type: qtype, Class: dns.ClassIN}},
	}
	return p.Marshal()
}

func formatRR(rr dns.RR) string {
	name := rr.Name
	if name == "" {
		name = "."
	}
	return fmt.Sprintf("%s %d %s %s %s", name, rr.TTL, rr.Class, rr.Type(), rr.Data)
}
