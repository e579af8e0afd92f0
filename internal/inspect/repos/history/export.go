// Package history exports traffic snapshots as JSON and text reports and
// defines the contract for persisting them between runs.
package history

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/haukened/rr-inspect/internal/inspect/domain"
)

// Document is the on-disk JSON form of a snapshot.
type Document struct {
	Timestamp     int64            `json:"timestamp"`
	TotalPackets  int64            `json:"total_packets"`
	Dropped       int64            `json:"dropped_packets"`
	Forwarded     int64            `json:"forwarded_packets"`
	DomainTraffic map[string]int64 `json:"domain_traffic"`
	SuspiciousIPs []string         `json:"suspicious_ips"`
	BlockCounts   map[string]int64 `json:"block_counts"`
}

// NewDocument converts a snapshot taken at takenAt. Nil maps and slices are
// replaced with empty ones so the document always has the same shape.
func NewDocument(s domain.TrafficSnapshot, takenAt time.Time) Document {
	d := Document{
		Timestamp:     takenAt.UnixMilli(),
		TotalPackets:  s.Total,
		Dropped:       s.Dropped,
		Forwarded:     s.Forwarded,
		DomainTraffic: s.DomainTraffic,
		SuspiciousIPs: s.Suspicious,
		BlockCounts:   s.BlockCounts,
	}
	if d.DomainTraffic == nil {
		d.DomainTraffic = map[string]int64{}
	}
	if d.SuspiciousIPs == nil {
		d.SuspiciousIPs = []string{}
	}
	if d.BlockCounts == nil {
		d.BlockCounts = map[string]int64{}
	}
	return d
}

// TakenAt returns the document timestamp.
func (d Document) TakenAt() time.Time { return time.UnixMilli(d.Timestamp) }

// Snapshot converts the document back into a snapshot.
func (d Document) Snapshot() domain.TrafficSnapshot {
	return domain.TrafficSnapshot{
		Total:         d.TotalPackets,
		Dropped:       d.Dropped,
		Forwarded:     d.Forwarded,
		DomainTraffic: d.DomainTraffic,
		BlockCounts:   d.BlockCounts,
		Suspicious:    d.SuspiciousIPs,
	}
}

// WriteJSON writes s as an indented JSON document.
func WriteJSON(w io.Writer, s domain.TrafficSnapshot, takenAt time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(s, takenAt))
}

// ExportFile writes s to path, replacing any existing file.
func ExportFile(path string, s domain.TrafficSnapshot, takenAt time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create stats file: %w", err)
	}
	if err := WriteJSON(f, s, takenAt); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	return f.Close()
}

// Summary prints a human readable report of s. Domains are listed in
// ascending order.
func Summary(w io.Writer, s domain.TrafficSnapshot) {
	fmt.Fprintln(w, "\n=== Traffic Statistics Summary ===")
	fmt.Fprintf(w, "Total Packets:     %d\n", s.Total)
	fmt.Fprintf(w, "Dropped Packets:   %d\n", s.Dropped)
	fmt.Fprintf(w, "Forwarded Packets: %d\n", s.Forwarded)

	fmt.Fprintln(w, "\n--- Per-Domain Traffic ---")
	domains := make([]string, 0, len(s.DomainTraffic))
	for d := range s.DomainTraffic {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	for _, d := range domains {
		fmt.Fprintf(w, "%-20s : %d\n", d, s.DomainTraffic[d])
	}

	if len(s.Suspicious) > 0 {
		fmt.Fprintln(w, "\n--- Suspicious IPs Detected ---")
		for _, ip := range s.Suspicious {
			fmt.Fprintln(w, ip)
		}
	}
	fmt.Fprintln(w, "==============================")
}
