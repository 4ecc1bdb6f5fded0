package snmp

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gosnmp/gosnmp"

	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/events"
)

// Well-known OIDs polled from every device.
const (
	oidSysDescr  = ".1.3.6.1.2.1.1.1.0"
	oidSysUpTime = ".1.3.6.1.2.1.1.3.0"
	oidSysName   = ".1.3.6.1.2.1.1.5.0"

	oidIfDescr       = ".1.3.6.1.2.1.2.2.1.2"
	oidIfAdminStatus = ".1.3.6.1.2.1.2.2.1.7"
	oidIfOperStatus  = ".1.3.6.1.2.1.2.2.1.8"
	oidIfInOctets    = ".1.3.6.1.2.1.2.2.1.10"
	oidIfOutOctets   = ".1.3.6.1.2.1.2.2.1.16"

	oidHrStorageDescr = ".1.3.6.1.2.1.25.2.3.1.3"
	oidHrStorageUnits = ".1.3.6.1.2.1.25.2.3.1.4"
	oidHrStorageSize  = ".1.3.6.1.2.1.25.2.3.1.5"
	oidHrStorageUsed  = ".1.3.6.1.2.1.25.2.3.1.6"

	oidHrProcessorLoad = ".1.3.6.1.2.1.25.3.3.1.2"

	// Cisco cpmCPUTotal5minRev; present only on Cisco gear.
	oidCiscoCPU5Min = ".1.3.6.1.4.1.9.9.109.1.1.1.1.8"
)

// pduClient is the slice of gosnmp the poller needs. Tests substitute a
// fake; production uses *gosnmp.GoSNMP.
type pduClient interface {
	Get(oids []string) (*gosnmp.SnmpPacket, error)
	Walk(rootOid string, walkFn gosnmp.WalkFunc) error
}

// dialFunc opens a connection to a device, returning the client and a
// close function.
type dialFunc func(ctx context.Context, d Device) (pduClient, func(), error)

func gosnmpDial(ctx context.Context, d Device) (pduClient, func(), error) {
	g := d.newConn()
	g.Context = ctx
	if err := g.Connect(); err != nil {
		return nil, nil, err
	}
	return g, func() { g.Conn.Close() }, nil
}

// Poller polls the configured devices once per collection cycle. It
// implements collect.Collector.
type Poller struct {
	devices []Device
	logger  *slog.Logger
	events  *events.EventLogger
	dial    dialFunc
}

// NewPoller creates a poller for the given devices.
func NewPoller(devices []Device, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		devices: devices,
		logger:  logger,
		events:  events.GetGlobalEventLogger(),
		dial:    gosnmpDial,
	}
}

func (p *Poller) Name() string { return "snmp" }

// Collect polls every device. Per-device failures are recorded in the
// device's result, never returned as a collection error.
func (p *Poller) Collect(ctx context.Context) (any, error) {
	p.logger.Debug("polling snmp devices", "count", len(p.devices))
	out := make(map[string]any, len(p.devices))
	for _, d := range p.devices {
		out[d.Name] = p.pollDevice(ctx, d)
	}
	return out, nil
}

func (p *Poller) pollDevice(ctx context.Context, d Device) *DeviceResult {
	client, closeFn, err := p.dial(ctx, d)
	if err != nil {
		p.events.LogSNMPDeviceUnreachable(d.Name, d.Hostname, err)
		return &DeviceResult{Status: StatusUnreachable, Error: err.Error(), deviceName: d.Name}
	}
	defer closeFn()

	result, err := collectDevice(client)
	if err != nil {
		p.events.LogSNMPDeviceUnreachable(d.Name, d.Hostname, err)
		return &DeviceResult{Status: StatusUnreachable, Error: err.Error(), deviceName: d.Name}
	}
	result.deviceName = d.Name
	return result
}

// collectDevice gathers all supported tables from a connected client. The
// system group is mandatory; table walks are best-effort since many devices
// implement only a subset of the MIBs.
func collectDevice(client pduClient) (*DeviceResult, error) {
	system, err := collectSystem(client)
	if err != nil {
		return nil, err
	}

	result := &DeviceResult{Status: StatusOK, System: system}
	result.Interfaces = collectInterfaces(client)

	memory, storage := collectStorage(client)
	result.Memory = memory
	result.Storage = storage

	result.CPU = collectCPU(client)

	return result, nil
}

func collectSystem(client pduClient) (*SystemInfo, error) {
	packet, err := client.Get([]string{oidSysName, oidSysDescr, oidSysUpTime})
	if err != nil {
		return nil, err
	}

	info := &SystemInfo{}
	for _, pdu := range packet.Variables {
		switch pdu.Name {
		case oidSysName:
			info.Name = toString(pdu.Value)
		case oidSysDescr:
			info.Description = toString(pdu.Value)
		case oidSysUpTime:
			// sysUpTime is in hundredths of a second.
			info.UptimeSeconds = toInt64(pdu.Value) / 100
		}
	}
	return info, nil
}

func collectInterfaces(client pduClient) []Interface {
	rows := map[int]*Interface{}

	walkColumn := func(root string, apply func(*Interface, gosnmp.SnmpPDU)) {
		_ = client.Walk(root, func(pdu gosnmp.SnmpPDU) error {
			idx, ok := indexFromOID(pdu.Name)
			if !ok {
				return nil
			}
			row, exists := rows[idx]
			if !exists {
				row = &Interface{Index: idx}
				rows[idx] = row
			}
			apply(row, pdu)
			return nil
		})
	}

	walkColumn(oidIfDescr, func(r *Interface, pdu gosnmp.SnmpPDU) { r.Description = toString(pdu.Value) })
	walkColumn(oidIfAdminStatus, func(r *Interface, pdu gosnmp.SnmpPDU) { r.AdminStatus = int(toInt64(pdu.Value)) })
	walkColumn(oidIfOperStatus, func(r *Interface, pdu gosnmp.SnmpPDU) { r.OperStatus = int(toInt64(pdu.Value)) })
	walkColumn(oidIfInOctets, func(r *Interface, pdu gosnmp.SnmpPDU) { r.InOctets = toUint64(pdu.Value) })
	walkColumn(oidIfOutOctets, func(r *Interface, pdu gosnmp.SnmpPDU) { r.OutOctets = toUint64(pdu.Value) })

	if len(rows) == 0 {
		return nil
	}

	out := make([]Interface, 0, len(rows))
	for i := 1; len(out) < len(rows); i++ {
		if row, ok := rows[i]; ok {
			out = append(out, *row)
		}
		if i > len(rows)*64 {
			// Sparse indexes beyond any sane table size; collect the
			// remainder unordered.
			for _, row := range rows {
				if row.Index >= i {
					out = append(out, *row)
				}
			}
			break
		}
	}
	return out
}

// storageRow is an intermediate hrStorage row before classification.
type storageRow struct {
	descr string
	units int64
	size  int64
	used  int64
}

func collectStorage(client pduClient) (*MemoryInfo, []Storage) {
	rows := map[int]*storageRow{}

	walkColumn := func(root string, apply func(*storageRow, gosnmp.SnmpPDU)) {
		_ = client.Walk(root, func(pdu gosnmp.SnmpPDU) error {
			idx, ok := indexFromOID(pdu.Name)
			if !ok {
				return nil
			}
			row, exists := rows[idx]
			if !exists {
				row = &storageRow{}
				rows[idx] = row
			}
			apply(row, pdu)
			return nil
		})
	}

	walkColumn(oidHrStorageDescr, func(r *storageRow, pdu gosnmp.SnmpPDU) { r.descr = toString(pdu.Value) })
	walkColumn(oidHrStorageUnits, func(r *storageRow, pdu gosnmp.SnmpPDU) { r.units = toInt64(pdu.Value) })
	walkColumn(oidHrStorageSize, func(r *storageRow, pdu gosnmp.SnmpPDU) { r.size = toInt64(pdu.Value) })
	walkColumn(oidHrStorageUsed, func(r *storageRow, pdu gosnmp.SnmpPDU) { r.used = toInt64(pdu.Value) })

	var memory *MemoryInfo
	var storage []Storage

	for _, row := range rows {
		if row.units <= 0 || row.size <= 0 {
			continue
		}
		total := uint64(row.units) * uint64(row.size)
		used := uint64(row.units) * uint64(maxInt64(row.used, 0))
		percent := float64(used) / float64(total) * 100

		lower := strings.ToLower(row.descr)
		switch {
		case strings.Contains(lower, "physical memory"), strings.Contains(lower, "real memory"):
			memory = &MemoryInfo{TotalBytes: total, UsedBytes: used, Percent: percent}
		case strings.Contains(lower, "swap"), strings.Contains(lower, "virtual memory"),
			strings.Contains(lower, "memory buffers"), strings.Contains(lower, "cached memory"):
			// Not meaningful for storage alerts.
		default:
			storage = append(storage, Storage{
				Description: row.descr,
				TotalBytes:  total,
				UsedBytes:   used,
				Percent:     percent,
			})
		}
	}

	return memory, storage
}

func collectCPU(client pduClient) *CPUInfo {
	cpu := &CPUInfo{}

	// Cisco 5-minute average, first entry wins.
	_ = client.Walk(oidCiscoCPU5Min, func(pdu gosnmp.SnmpPDU) error {
		if cpu.Usage5Min == nil {
			v := float64(toInt64(pdu.Value))
			cpu.Usage5Min = &v
		}
		return nil
	})

	// HOST-RESOURCES per-processor load, averaged.
	var sum, count int64
	_ = client.Walk(oidHrProcessorLoad, func(pdu gosnmp.SnmpPDU) error {
		sum += toInt64(pdu.Value)
		count++
		return nil
	})
	if count > 0 {
		v := float64(sum) / float64(count)
		cpu.Load = &v
	}

	if cpu.Usage5Min == nil && cpu.Load == nil {
		return nil
	}
	return cpu
}

// indexFromOID extracts the table index (the final OID component).
func indexFromOID(oid string) (int, bool) {
	i := strings.LastIndex(oid, ".")
	if i < 0 || i == len(oid)-1 {
		return 0, false
	}
	idx, err := strconv.Atoi(oid[i+1:])
	if err != nil {
		return 0, false
	}
	return idx, true
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return ""
	}
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case uint:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return int64(t)
	default:
		return 0
	}
}

func toUint64(v any) uint64 {
	n := toInt64(v)
	if n < 0 {
		return 0
	}
	return uint64(n)
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
