package main

import (
	"fmt"
	"net/netip"
	"strings"
)

var opts struct {
	Config string `long:"config" env:"GMS_CONFIG" description:"path to a YAML config file, explicit flags take precedence"`

	Node struct {
		BindAddr      string `long:"bind-addr" description:"address to bind the gossip transport" env:"BIND_ADDR" default:"0.0.0.0:7946"`
		AdvertiseAddr string `long:"advertise-addr" description:"address to advertise to other nodes, required when binding to 0.0.0.0 or ::" env:"ADVERTISE_ADDR"`
		Transport     string `long:"transport" description:"gossip transport" env:"TRANSPORT" default:"udp" choice:"udp" choice:"grpc"`
		Preferred     bool   `long:"preferred" description:"advertise the node as preferred" env:"PREFERRED"`
	} `group:"node" namespace:"node" env-namespace:"NODE"`

	Gossip struct {
		Seeds            string  `long:"seeds" description:"comma-separated list of seed addresses" env:"SEEDS"`
		Interval         int     `long:"interval" description:"gossip round interval (ms)" env:"INTERVAL" default:"1000"`
		QuarantineDelay  int     `long:"quarantine-delay" description:"time to ignore a node after it is declared dead (ms)" env:"QUARANTINE_DELAY" default:"30000"`
		UnreachableTTL   int     `long:"unreachable-ttl" description:"time after which a dead node is forgotten (s)" env:"UNREACHABLE_TTL" default:"259200"`
		DialTimeout      int     `long:"dial-timeout" description:"connection timeout (ms)" env:"DIAL_TIMEOUT" default:"5000"`
		ConvictThreshold float64 `long:"convict-threshold" description:"phi above which a node is declared dead, from 5 to 16" env:"CONVICT_THRESHOLD" default:"8"`
		WindowSize       int     `long:"window-size" description:"number of heartbeat intervals kept by the failure detector" env:"WINDOW_SIZE" default:"1000"`
		Estimator        string  `long:"estimator" description:"expected heartbeat interval estimator" env:"ESTIMATOR" default:"mean" choice:"mean" choice:"median"`
		MinInterval      int     `long:"min-interval" description:"heartbeats closer than this are not sampled (ms)" env:"MIN_INTERVAL" default:"10"`
		Workers          int     `long:"workers" description:"number of message handling workers (udp)" env:"WORKERS" default:"4"`
		MaxPayloadSize   int     `long:"max-payload-size" description:"max datagram size (udp)" env:"MAX_PAYLOAD_SIZE" default:"1400"`
	} `group:"gossip" namespace:"gossip" env-namespace:"GOSSIP"`

	Membership struct {
		HeartbeatInterval int `long:"heartbeat-interval" description:"local heartbeat interval (ms)" env:"HEARTBEAT_INTERVAL" default:"1000"`
		Timeout           int `long:"timeout" description:"time after which a silent member leaves the view (ms)" env:"TIMEOUT" default:"10000"`
		ForgetAfter       int `long:"forget-after" description:"time after which a silent member is removed (s)" env:"FORGET_AFTER" default:"3600"`
		BitsetWidth       int `long:"bitset-width" description:"number of slots in the membership bitset" env:"BITSET_WIDTH" default:"256"`
	} `group:"membership" namespace:"membership" env-namespace:"MEMBERSHIP"`

	RestAPI struct {
		Enabled  bool   `long:"enabled" description:"enable the admin API" env:"ENABLED"`
		BindAddr string `long:"bind-addr" description:"address to bind the admin API" env:"BIND_ADDR" default:":8080"`
	} `group:"api" namespace:"api" env-namespace:"API"`

	Verbose bool `long:"verbose" description:"verbose mode" env:"VERBOSE"`
}

func parseAddrs(addrs string) []string {
	sl := strings.Split(addrs, ",")
	res := make([]string, 0, len(sl))

	for _, addr := range sl {
		trimmed := strings.TrimSpace(addr)
		if trimmed != "" {
			res = append(res, trimmed)
		}
	}

	return res
}

func parseAddrPorts(addrs string) ([]netip.AddrPort, error) {
	var res []netip.AddrPort

	for _, s := range parseAddrs(addrs) {
		addr, err := netip.ParseAddrPort(s)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", s, err)
		}

		res = append(res, addr)
	}

	return res, nil
}
