// Command udp-replay replays recorded sensor reading datagrams from a PCAP
// capture into a running daemon's UDP listener.
//
// Usage:
//
//	go run ./cmd/tools/udp-replay -pcap readings.pcap -target 127.0.0.1:9100
//
// Flags:
//
//	-pcap     Path to the PCAP file (required)
//	-target   UDP address of the daemon listener (default: 127.0.0.1:9100)
//	-port     Only replay packets whose destination port matches (0 = any)
//	-realtime Pace packets by their recorded inter-arrival times
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

func main() {
	pcapFile := flag.String("pcap", "", "Path to PCAP file (required)")
	target := flag.String("target", "127.0.0.1:9100", "UDP address to replay into")
	port := flag.Int("port", 0, "Only replay packets with this destination port (0 = any)")
	realtime := flag.Bool("realtime", false, "Pace packets by recorded timing")
	flag.Parse()

	if *pcapFile == "" {
		log.Fatal("Error: -pcap flag is required")
	}

	if err := replay(*pcapFile, *target, *port, *realtime); err != nil {
		log.Fatal(err)
	}
}

func replay(pcapFile, target string, port int, realtime bool) error {
	f, err := os.Open(pcapFile)
	if err != nil {
		return fmt.Errorf("failed to open PCAP file: %w", err)
	}
	defer f.Close()

	reader, err := pcapgo.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read PCAP header: %w", err)
	}

	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return fmt.Errorf("failed to resolve target: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return fmt.Errorf("failed to dial target: %w", err)
	}
	defer conn.Close()

	var (
		sent     int
		skipped  int
		lastTime time.Time
		started  = time.Now()
	)

	for {
		data, ci, err := reader.ReadPacketData()
		if err != nil {
			break // EOF or truncated capture
		}

		packet := gopacket.NewPacket(data, reader.LinkType(), gopacket.Default)
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			skipped++
			continue
		}
		udp := udpLayer.(*layers.UDP)
		if port != 0 && int(udp.DstPort) != port {
			skipped++
			continue
		}
		if len(udp.Payload) == 0 {
			skipped++
			continue
		}

		if realtime && !lastTime.IsZero() {
			if gap := ci.Timestamp.Sub(lastTime); gap > 0 {
				time.Sleep(gap)
			}
		}
		lastTime = ci.Timestamp

		if _, err := conn.Write(udp.Payload); err != nil {
			return fmt.Errorf("failed to send datagram %d: %w", sent+1, err)
		}
		sent++

		if sent%10000 == 0 {
			elapsed := time.Since(started)
			log.Printf("replay progress: %d datagrams sent in %v (%.0f pkt/s)",
				sent, elapsed, float64(sent)/elapsed.Seconds())
		}
	}

	log.Printf("replay complete: %d datagrams sent, %d skipped, in %v",
		sent, skipped, time.Since(started))
	return nil
}
