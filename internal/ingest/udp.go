package ingest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/harrier-data/sensor.report/internal/monitoring"
)

// UDPListener receives reading datagrams and feeds them into the handler.
// Each datagram carries one or more feed lines (CSV or JSON form).
type UDPListener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	connMu      sync.Mutex
	conn        *net.UDPConn
	handler     *Handler
	stats       udpStats
}

// UDPListenerConfig contains configuration options for the UDP listener.
type UDPListenerConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
	Handler     *Handler
}

// NewUDPListener creates a UDP listener with the provided configuration.
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}
	rcvBuf := config.RcvBuf
	if rcvBuf == 0 {
		rcvBuf = 1 << 20
	}

	return &UDPListener{
		address:     config.Address,
		rcvBuf:      rcvBuf,
		logInterval: logInterval,
		handler:     config.Handler,
	}
}

// udpStats tracks datagram counters for periodic logging.
type udpStats struct {
	mu       sync.Mutex
	packets  int64
	bytes    int64
	readings int64
	errors   int64
}

func (s *udpStats) addPacket(n int) {
	s.mu.Lock()
	s.packets++
	s.bytes += int64(n)
	s.mu.Unlock()
}

func (s *udpStats) addReading() {
	s.mu.Lock()
	s.readings++
	s.mu.Unlock()
}

func (s *udpStats) addError() {
	s.mu.Lock()
	s.errors++
	s.mu.Unlock()
}

func (s *udpStats) log() {
	s.mu.Lock()
	defer s.mu.Unlock()
	monitoring.Logf("udp ingest: %d packets (%d bytes), %d readings, %d errors",
		s.packets, s.bytes, s.readings, s.errors)
}

// Start begins listening for datagrams and processing them until the context
// is cancelled.
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	l.connMu.Lock()
	l.conn = conn
	l.connMu.Unlock()
	defer conn.Close()

	if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
		monitoring.Logf("warning: failed to set UDP receive buffer size to %d: %v", l.rcvBuf, err)
	}

	monitoring.Logf("UDP ingest listening on %s", conn.LocalAddr())

	go l.startStatsLogging(ctx)

	buffer := make([]byte, 65536)

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("UDP ingest stopping due to context cancellation")
			return ctx.Err()
		default:
			// Set read deadline to allow checking context cancellation
			conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

			n, remote, err := conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue // Continue on timeout to check context
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				monitoring.Logf("UDP read error: %v", err)
				continue
			}

			if err := l.handleDatagram(buffer[:n]); err != nil {
				l.stats.addError()
				monitoring.Logf("error handling datagram from %v: %v", remote, err)
			}
		}
	}
}

// Addr returns the bound address, or nil before Start.
func (l *UDPListener) Addr() net.Addr {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

func (l *UDPListener) startStatsLogging(ctx context.Context) {
	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.stats.log()
		}
	}
}

// handleDatagram processes one received datagram, which may hold several
// newline-separated feed lines.
func (l *UDPListener) handleDatagram(datagram []byte) error {
	l.stats.addPacket(len(datagram))

	scan := bufio.NewScanner(bytes.NewReader(datagram))
	for scan.Scan() {
		line := scan.Text()
		if err := l.handler.HandleLine(line); err != nil {
			return err
		}
		l.stats.addReading()
	}
	return scan.Err()
}
