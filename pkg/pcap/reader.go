// Package pcap replays capture files as a stream of endpoint arrivals.
package pcap

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	log "github.com/sirupsen/logrus"
)

var ngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

type packetSource interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

// Stats counts what a replay saw.
type Stats struct {
	Packets int
	Skipped int
}

// Reader reads packets from a pcap or pcapng file.
type Reader struct {
	file   *os.File
	source packetSource
}

// NewReader creates a new reader for the given file path. The format is
// detected from the file magic.
func NewReader(filePath string) (*Reader, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(f)
	magic, err := br.Peek(4)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read capture header: %w", err)
	}

	var src packetSource
	if bytes.Equal(magic, ngMagic) {
		src, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		src, err = pcapgo.NewReader(br)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open capture %s: %w", filePath, err)
	}
	return &Reader{file: f, source: src}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// ReadArrivals calls fn for every TCP or UDP packet in capture order.
// Packets that cannot be parsed are counted and skipped.
func (r *Reader) ReadArrivals(fn func(Arrival)) (Stats, error) {
	var stats Stats
	linkType := r.source.LinkType()
	for {
		data, ci, err := r.source.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read packet %d: %w", stats.Packets+1, err)
		}
		stats.Packets++

		arrival, err := ParseArrival(data, linkType, ci.Timestamp)
		if err != nil {
			stats.Skipped++
			log.Debugf("Skipping packet %d: %v", stats.Packets, err)
			continue
		}
		fn(arrival)
	}
}
