// Demo program to showcase the logrero viewer with a realistic set of journal records.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"logrero/src/contracts"
	"logrero/src/tui"
)

func main() {
	fmt.Println("Generating sample journal records...")
	records := generateSampleData(time.Now())

	fmt.Printf("Loaded %d records across %d units.\n", len(records), countUniqueUnits(records))
	fmt.Println("Launching viewer...")
	time.Sleep(500 * time.Millisecond) // Brief pause for effect

	load := func(context.Context) ([]contracts.StoredRecord, error) {
		return records, nil
	}
	if err := tui.Run("demo-host", []string{"2", "3", "4"}, load); err != nil {
		fmt.Fprintf(os.Stderr, "Error running viewer: %v\n", err)
		os.Exit(1)
	}
}

func countUniqueUnits(records []contracts.StoredRecord) int {
	units := make(map[string]bool)
	for _, r := range records {
		units[r.Record.SystemdUnit] = true
	}
	return len(units)
}

type sample struct {
	unit       string
	identifier string
	priority   string
	pid        int
	message    string
}

func generateSampleData(now time.Time) []contracts.StoredRecord {
	samples := []sample{
		{"kernel", "kernel", "2", 0, "Out of memory: Killed process 48213 (java) total-vm:8388608kB, anon-rss:6291456kB"},
		{"postgresql.service", "postgres", "3", 1712, "FATAL:  could not open file \"pg_wal/000000010000000A000000F3\": No such file or directory"},
		{"nginx.service", "nginx", "3", 922, "upstream timed out (110: Connection timed out) while reading response header from upstream, client: 10.0.4.17"},
		{"sshd.service", "sshd", "4", 30551, "Failed password for invalid user admin from 203.0.113.44 port 51122 ssh2"},
		{"sshd.service", "sshd", "4", 30560, "Failed password for invalid user admin from 203.0.113.44 port 51140 ssh2"},
		{"docker.service", "dockerd", "4", 1033, "Health check for container 3f9a1c0b2e7d exceeded timeout (30s)"},
		{"systemd-resolved.service", "systemd-resolved", "4", 611, "Using degraded feature set UDP instead of UDP+EDNS0 for DNS server 192.168.1.1."},
		{"cron.service", "CRON", "6", 44120, "(root) CMD (/usr/local/bin/backup.sh --incremental)"},
		{"backup.service", "backup.sh", "3", 44121, "rsync error: some files/attrs were not transferred (code 23) at main.c(1338)"},
		{"kubelet.service", "kubelet", "3", 2210, "Error syncing pod 7c1e, skipping: failed to \"StartContainer\" for \"api\" with CrashLoopBackOff"},
		{"NetworkManager.service", "NetworkManager", "5", 702, "<info>  [1700000000.1234] device (eth0): state change: activated -> deactivating"},
		{"smartd.service", "smartd", "2", 655, "Device: /dev/sda [SAT], 8 Currently unreadable (pending) sectors"},
	}

	records := make([]contracts.StoredRecord, 0, len(samples))
	for i, s := range samples {
		at := now.Add(-time.Duration(len(samples)-i) * 47 * time.Second)
		records = append(records, contracts.StoredRecord{
			ID:         fmt.Sprintf("demo-%03d", i+1),
			DeviceID:   "demo-host",
			ReceivedAt: at.UTC().Format(time.RFC3339Nano),
			Record: contracts.LogRecord{
				Message:           s.message,
				Priority:          s.priority,
				Cursor:            fmt.Sprintf("s=demo;i=%x", 0x1a2b00+i),
				RealtimeTimestamp: strconv.FormatInt(at.UnixMicro(), 10),
				Transport:         "journal",
				SyslogIdentifier:  s.identifier,
				SystemdUnit:       s.unit,
				PID:               strconv.Itoa(s.pid),
			},
		})
	}

	// Newest first, as the control plane returns them.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records
}
