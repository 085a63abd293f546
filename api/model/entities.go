package model

import "time"

type Endpoint struct {
	Addr          string  `json:"Addr"`
	Status        string  `json:"Status"`
	Alive         bool    `json:"Alive"`
	Local         bool    `json:"Local"`
	Seed          bool    `json:"Seed,omitempty"`
	Phi           float64 `json:"Phi"`
	Time          int64   `json:"Time"`
	Sender        string  `json:"Sender,omitempty"`
	ViewNumber    uint64  `json:"ViewNumber"`
	Members       []int   `json:"Members,omitempty"`
	Preferred     bool    `json:"Preferred,omitempty"`
	DiscoveryOnly bool    `json:"DiscoveryOnly,omitempty"`
}

type GetEndpointsResponse struct {
	Endpoints []Endpoint `json:"Endpoints"`
}

type DeadAddr struct {
	Addr  string    `json:"Addr"`
	Since time.Time `json:"Since"`
}

type GetViewResponse struct {
	Local       string     `json:"Local"`
	Live        []string   `json:"Live"`
	Unreachable []DeadAddr `json:"Unreachable"`
	Quarantined []DeadAddr `json:"Quarantined"`
	Seeds       []string   `json:"Seeds"`
	StateHash   string     `json:"StateHash"`
}

type Member struct {
	ID         string    `json:"ID"`
	Addr       string    `json:"Addr"`
	Status     string    `json:"Status"`
	Time       int64     `json:"Time"`
	ViewNumber uint64    `json:"ViewNumber"`
	Preferred  bool      `json:"Preferred,omitempty"`
	LastSeen   time.Time `json:"LastSeen"`
}

type GetMembersResponse struct {
	ViewNumber  uint64   `json:"ViewNumber"`
	ViewMembers []int    `json:"ViewMembers"`
	Members     []Member `json:"Members"`
}
