package pcap

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ErrUnsupported marks packets that carry no IPv4/IPv6 TCP or UDP segment.
var ErrUnsupported = errors.New("unsupported packet")

// Arrival is one message observed on an endpoint in a capture.
type Arrival struct {
	Timestamp time.Time
	Topic     string // "<proto>/<dst ip>:<dst port>"
	Size      int    // transport payload bytes
}

// ParseArrival decodes a raw frame and keys it by its destination endpoint.
func ParseArrival(data []byte, linkType layers.LinkType, ts time.Time) (Arrival, error) {
	packet := gopacket.NewPacket(data, linkType, gopacket.DecodeOptions{Lazy: true, NoCopy: true})

	var dst net.IP
	if l := packet.Layer(layers.LayerTypeIPv4); l != nil {
		dst = l.(*layers.IPv4).DstIP
	} else if l := packet.Layer(layers.LayerTypeIPv6); l != nil {
		dst = l.(*layers.IPv6).DstIP
	} else {
		return Arrival{}, fmt.Errorf("%w: not an IP packet", ErrUnsupported)
	}

	var (
		proto   string
		port    uint16
		payload []byte
	)
	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		proto, port, payload = "tcp", uint16(tcp.DstPort), tcp.Payload
	} else if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		proto, port, payload = "udp", uint16(udp.DstPort), udp.Payload
	} else {
		return Arrival{}, fmt.Errorf("%w: not a TCP or UDP packet", ErrUnsupported)
	}

	return Arrival{
		Timestamp: ts,
		Topic:     proto + "/" + net.JoinHostPort(dst.String(), strconv.Itoa(int(port))),
		Size:      len(payload),
	}, nil
}
