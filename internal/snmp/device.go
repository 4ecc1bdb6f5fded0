// Package snmp polls network devices over SNMP and evaluates the results
// for alert conditions.
package snmp

import (
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/config"
)

// Device is a fully resolved SNMP polling target.
type Device struct {
	Name     string
	Hostname string
	Port     uint16
	Version  gosnmp.SnmpVersion

	// v1/v2c
	Community string

	// v3 USM
	Username string
	AuthKey  string
	PrivKey  string

	Timeout time.Duration
	Retries int
}

// DeviceFromConfig validates and resolves a configured device.
func DeviceFromConfig(cfg config.SNMPDeviceConfig) (Device, error) {
	d := Device{
		Name:      cfg.Name,
		Hostname:  cfg.Hostname,
		Port:      uint16(cfg.Port),
		Community: cfg.Community,
		Username:  cfg.Username,
		AuthKey:   cfg.AuthKey,
		PrivKey:   cfg.PrivKey,
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		Retries:   cfg.Retries,
	}

	switch cfg.Version {
	case "v1":
		d.Version = gosnmp.Version1
	case "v2c":
		d.Version = gosnmp.Version2c
	case "v3":
		d.Version = gosnmp.Version3
		if cfg.Username == "" {
			return Device{}, fmt.Errorf("snmp device %s: v3 requires a username", cfg.Name)
		}
	default:
		return Device{}, fmt.Errorf("snmp device %s: unknown version %q", cfg.Name, cfg.Version)
	}

	return d, nil
}

// newConn builds a gosnmp connection for the device. The caller owns
// Connect/Close.
func (d Device) newConn() *gosnmp.GoSNMP {
	g := &gosnmp.GoSNMP{
		Target:    d.Hostname,
		Port:      d.Port,
		Version:   d.Version,
		Community: d.Community,
		Timeout:   d.Timeout,
		Retries:   d.Retries,
		MaxOids:   gosnmp.MaxOids,
	}

	if d.Version == gosnmp.Version3 {
		g.SecurityModel = gosnmp.UserSecurityModel
		params := &gosnmp.UsmSecurityParameters{
			UserName: d.Username,
		}
		switch {
		case d.AuthKey != "" && d.PrivKey != "":
			g.MsgFlags = gosnmp.AuthPriv
			params.AuthenticationProtocol = gosnmp.SHA
			params.AuthenticationPassphrase = d.AuthKey
			params.PrivacyProtocol = gosnmp.AES
			params.PrivacyPassphrase = d.PrivKey
		case d.AuthKey != "":
			g.MsgFlags = gosnmp.AuthNoPriv
			params.AuthenticationProtocol = gosnmp.SHA
			params.AuthenticationPassphrase = d.AuthKey
		default:
			g.MsgFlags = gosnmp.NoAuthNoPriv
		}
		g.SecurityParameters = params
	}

	return g
}
