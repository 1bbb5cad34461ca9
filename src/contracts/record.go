package contracts

import (
	"strconv"
	"time"
)

// LogRecord is one journal entry as forwarded to the control plane.
// Field names follow the journal field names, lowercased.
type LogRecord struct {
	Message            string `json:"message"`
	Priority           string `json:"priority"`
	Cursor             string `json:"__cursor"`
	RealtimeTimestamp  string `json:"__realtime_timestamp"`
	MonotonicTimestamp string `json:"__monotonic_timestamp"`
	BootID             string `json:"_boot_id"`
	Transport          string `json:"_transport"`
	SyslogFacility     string `json:"syslog_facility"`
	SyslogIdentifier   string `json:"syslog_identifier"`
	UID                string `json:"_uid"`
	GID                string `json:"_gid"`
	Comm               string `json:"_comm"`
	Exe                string `json:"_exe"`
	Cmdline            string `json:"_cmdline"`
	SystemdCgroup      string `json:"_systemd_cgroup"`
	SystemdSession     string `json:"_systemd_session"`
	SystemdOwnerUID    string `json:"_systemd_owner_uid"`
	SystemdUnit        string `json:"_systemd_unit"`
	SystemdSlice       string `json:"_systemd_slice"`
	SystemdUserSlice   string `json:"_systemd_user_slice"`
	PID                string `json:"_pid"`
}

// Journal field names read into a LogRecord.
const (
	FieldMessage          = "MESSAGE"
	FieldPriority         = "PRIORITY"
	FieldBootID           = "_BOOT_ID"
	FieldTransport        = "_TRANSPORT"
	FieldSyslogFacility   = "SYSLOG_FACILITY"
	FieldSyslogIdentifier = "SYSLOG_IDENTIFIER"
	FieldUID              = "_UID"
	FieldGID              = "_GID"
	FieldComm             = "_COMM"
	FieldExe              = "_EXE"
	FieldCmdline          = "_CMDLINE"
	FieldSystemdCgroup    = "_SYSTEMD_CGROUP"
	FieldSystemdSession   = "_SYSTEMD_SESSION"
	FieldSystemdOwnerUID  = "_SYSTEMD_OWNER_UID"
	FieldSystemdUnit      = "_SYSTEMD_UNIT"
	FieldSystemdSlice     = "_SYSTEMD_SLICE"
	FieldSystemdUserSlice = "_SYSTEMD_USER_SLICE"
	FieldPID              = "_PID"
)

// RealtimeTime parses RealtimeTimestamp, microseconds since the epoch.
func (r LogRecord) RealtimeTime() (time.Time, bool) {
	us, err := strconv.ParseInt(r.RealtimeTimestamp, 10, 64)
	if err != nil || us <= 0 {
		return time.Time{}, false
	}
	return time.UnixMicro(us), true
}
