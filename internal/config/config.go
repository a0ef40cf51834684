// Package config loads and validates the router's JSON configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config is the router's full, typed configuration. Field names mirror the
// external configuration keys; fields not named in the shared configuration
// table (listen addresses, directories, backup parameters) extend it to
// cover the rest of the wiring a complete process needs.
type Config struct {
	DeviceID string `json:"deviceid"`
	Username string `json:"username"`
	Password string `json:"password"`
	BaseURL  string `json:"baseurl"`

	IoTTicketVersion string `json:"iotticket-version"`

	DBStorageOn     bool `json:"db_storage_on"`
	IoTTicketSendOn bool `json:"iotticket_send_on"`
	BatteryDemoOn   bool `json:"battery_demo_on"`

	IoTTicketBufferSize     int     `json:"iotticket-buffer-size"`
	IoTTicketMaxPacketSize  int     `json:"iotticket-max-packet-size"`
	IoTTicketMinimumDelayS  float64 `json:"iotticket-minimum-delay-s"`
	IoTTicketMaximumRetries int     `json:"iotticket-maximum-retries"`
	IoTTicketMaxDataCycles  int     `json:"iotticket-max-data-cycles"`
	ProcemIoTTicketWorkers  int     `json:"procem-iotticket-workers"`
	IoTTicketQueueSize      int     `json:"iotticket-queue-size"`

	DBQueueSize       int    `json:"db-queue-size"`
	DBType            string `json:"db_type"`
	PresentValueCount int    `json:"present_value_count"`

	IdsForBattery []int64 `json:"ids_for_battery"`

	// Network and process wiring not named individually in the
	// configuration table but required to start a complete router.
	UDPListenAddr   string  `json:"udp_listen_addr"`
	MainQueueSize   int     `json:"main_queue_size"`
	UseUDPAck       bool    `json:"use_udp_ack"`
	MaxUDPResends   int     `json:"max_udp_resends"`
	UDPAckTimeoutMs int     `json:"udp_ack_timeout_ms"`
	ValueSeparator  string  `json:"value_separator"`

	SpillDir            string  `json:"spill_dir"`
	SpillResendIntervalS float64 `json:"spill_resend_interval_s"`

	FanoutAddr      string `json:"fanout_addr"`
	FanoutTimeoutMs int    `json:"fanout_timeout_ms"`

	RedisAddr string `json:"redis_addr"`

	AdminAddr string `json:"admin_addr"`

	DayLogDir string `json:"day_log_dir"`

	Backup BackupConfig `json:"backup"`
}

// BackupConfig configures the daily backup pipeline.
type BackupConfig struct {
	Enabled           bool   `json:"enabled"`
	Hour              int    `json:"hour"`
	KeepDaysCwd       int    `json:"keep_days_cwd"`
	KeepDaysLocal     int    `json:"keep_days_local"`
	LocalArchiveDir   string `json:"local_archive_dir"`
	RemoteServer      string `json:"remote_server"`
	RemoteDir         string `json:"remote_dir"`
	FilePermissions   string `json:"file_permissions"`
	CompressCmd       string `json:"compress_cmd"`
	CompressExt       string `json:"compress_ext"`
	CompressOKMarker  string `json:"compress_ok_marker"`
}

// ResendInterval returns SpillResendIntervalS as a time.Duration.
func (c Config) ResendInterval() time.Duration {
	return time.Duration(c.SpillResendIntervalS * float64(time.Second))
}

// MinimumUploadDelay returns IoTTicketMinimumDelayS as a time.Duration.
func (c Config) MinimumUploadDelay() time.Duration {
	return time.Duration(c.IoTTicketMinimumDelayS * float64(time.Second))
}

// Load reads a configuration file from path, validates it against the
// embedded schema, and returns the decoded Config. Any failure here is a
// configuration error: the caller should log it and exit non-zero rather
// than proceed with a partial configuration.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := Validate(raw); err != nil {
		return Config{}, fmt.Errorf("config: %s failed schema validation: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(c *Config) {
	if c.IoTTicketBufferSize == 0 {
		c.IoTTicketBufferSize = 50
	}
	if c.IoTTicketMaxPacketSize == 0 {
		c.IoTTicketMaxPacketSize = 500
	}
	if c.IoTTicketMinimumDelayS == 0 {
		c.IoTTicketMinimumDelayS = 1.0
	}
	if c.IoTTicketMaximumRetries == 0 {
		c.IoTTicketMaximumRetries = 5
	}
	if c.IoTTicketMaxDataCycles == 0 {
		c.IoTTicketMaxDataCycles = 5
	}
	if c.ProcemIoTTicketWorkers == 0 {
		c.ProcemIoTTicketWorkers = 10
	}
	if c.IoTTicketQueueSize == 0 {
		c.IoTTicketQueueSize = 1024
	}
	if c.DBQueueSize == 0 {
		c.DBQueueSize = 1024
	}
	if c.MainQueueSize == 0 {
		c.MainQueueSize = c.DBQueueSize
		if c.IoTTicketQueueSize > c.MainQueueSize {
			c.MainQueueSize = c.IoTTicketQueueSize
		}
	}
	if c.PresentValueCount == 0 {
		c.PresentValueCount = 1
	}
	if c.MaxUDPResends == 0 {
		c.MaxUDPResends = 4
	}
	if c.UDPAckTimeoutMs == 0 {
		c.UDPAckTimeoutMs = 500
	}
	if c.ValueSeparator == "" {
		c.ValueSeparator = ";"
	}
	if c.SpillResendIntervalS == 0 {
		c.SpillResendIntervalS = 1200
	}
	if c.SpillDir == "" {
		c.SpillDir = "."
	}
	if c.DayLogDir == "" {
		c.DayLogDir = "."
	}
	if c.FanoutTimeoutMs == 0 {
		c.FanoutTimeoutMs = 500
	}
	if c.Backup.Hour == 0 {
		c.Backup.Hour = 2
	}
	if c.Backup.KeepDaysCwd == 0 {
		c.Backup.KeepDaysCwd = 3
	}
	if c.Backup.KeepDaysLocal < c.Backup.KeepDaysCwd {
		c.Backup.KeepDaysLocal = 7
		if c.Backup.KeepDaysLocal < c.Backup.KeepDaysCwd {
			c.Backup.KeepDaysLocal = c.Backup.KeepDaysCwd
		}
	}
	if c.Backup.CompressCmd == "" {
		c.Backup.CompressCmd = "7z a"
	}
	if c.Backup.CompressExt == "" {
		c.Backup.CompressExt = ".7z"
	}
	if c.Backup.CompressOKMarker == "" {
		c.Backup.CompressOKMarker = "Everything is Ok"
	}
}
