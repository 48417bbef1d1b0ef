// pcapgen writes a capture of periodic UDP streams for replay through pcap-analyzer.
package main

import (
	"flag"
	"math/rand/v2"
	"net"
	"os"
	"sort"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	log "github.com/sirupsen/logrus"
)

type frame struct {
	at   time.Time
	data []byte
}

func main() {
	outputFile := flag.String("o", "periodic.pcap", "Output pcap file path")
	streams := flag.Int("n", 3, "Number of periodic endpoints")
	packetCount := flag.Int("c", 200, "Packets per endpoint")
	period := flag.Duration("period", 100*time.Millisecond, "Period of the first endpoint; endpoint i uses (i+1)*period")
	jitter := flag.Duration("jitter", time.Millisecond, "Standard deviation of arrival jitter")
	size := flag.Int("size", 256, "Mean payload size of the first endpoint")
	sizeStd := flag.Float64("size-std", 4, "Standard deviation of payload size")
	seed := flag.Uint64("seed", 1, "Random seed")
	flag.Parse()

	rng := rand.New(rand.NewPCG(*seed, *seed))
	start := time.Now().UTC().Truncate(time.Second)

	var frames []frame
	for i := 0; i < *streams; i++ {
		dstIP := net.IPv4(10, 0, 1, byte(i+1))
		dstPort := layers.UDPPort(5000 + i)
		streamPeriod := time.Duration(i+1) * *period
		meanSize := float64(*size * (i + 1))

		for k := 0; k < *packetCount; k++ {
			offset := time.Duration(k)*streamPeriod + time.Duration(rng.NormFloat64()*float64(*jitter))
			payloadSize := int(meanSize + rng.NormFloat64()*(*sizeStd))
			if payloadSize < 0 {
				payloadSize = 0
			}
			frames = append(frames, frame{
				at:   start.Add(offset),
				data: udpPacket(dstIP, dstPort, payloadSize),
			})
		}
		log.Printf("Endpoint udp/%s:%d: period=%s size=%.0fB", dstIP, dstPort, streamPeriod, meanSize)
	}
	sort.SliceStable(frames, func(a, b int) bool { return frames[a].at.Before(frames[b].at) })

	f, err := os.Create(*outputFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	pcapWriter := pcapgo.NewWriter(f)
	if err := pcapWriter.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		log.Fatalf("Failed to write pcap header: %v", err)
	}
	for _, fr := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     fr.at,
			CaptureLength: len(fr.data),
			Length:        len(fr.data),
		}
		if err := pcapWriter.WritePacket(ci, fr.data); err != nil {
			log.Fatalf("Failed to write packet: %v", err)
		}
	}

	log.Printf("Successfully generated %d packets into %s.", len(frames), *outputFile)
}

func udpPacket(dstIP net.IP, dstPort layers.UDPPort, payloadSize int) []byte {
	ethLayer := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ipLayer := &layers.IPv4{
		SrcIP:    net.IPv4(10, 0, 0, 1),
		DstIP:    dstIP,
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
	}
	udpLayer := &layers.UDP{SrcPort: 40000, DstPort: dstPort}
	udpLayer.SetNetworkLayerForChecksum(ipLayer)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, ethLayer, ipLayer, udpLayer, gopacket.Payload(make([]byte, payloadSize))); err != nil {
		log.Fatalf("Failed to serialize layers: %v", err)
	}
	return buf.Bytes()
}
