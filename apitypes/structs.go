// Package apitypes holds the JSON documents exchanged over the feed API.
package apitypes

import (
	"fmt"
	"time"
)

// ApiError represents an RFC 7807 (problem+json) error response.
type ApiError struct {
	// Status is the HTTP-style status code (e.g., 400, 404, 500)
	Status int `json:"status"`
	// Title is a short, human-readable summary of the problem type
	Title string `json:"title"`
	// Detail is a human-readable explanation specific to this occurrence
	Detail string `json:"detail"`
}

func (e ApiError) Error() string {
	if e.Status == 0 && e.Title == "" {
		return "unknown error"
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
}

// --

type PingResponse struct {
	Server  string `json:"server"`
	Version string `json:"version"`
}

// Slot describes one DSU slot.
type Slot struct {
	Slot       uint8  `json:"slot"`
	State      string `json:"state"`
	Connection string `json:"connection"`
	MAC        string `json:"mac"`
	Sequence   uint32 `json:"sequence"`
	// Format is set when the slot is fed through the API.
	Format string `json:"format,omitempty"`
}

type SlotsListResponse struct {
	Slots []Slot `json:"slots"`
}

// AttachRequest is the payload of slots/{slot}/attach.
type AttachRequest struct {
	MAC        string `json:"mac"`
	Connection string `json:"connection"`
	// Format names the stream frame format; empty means "ds4".
	Format string `json:"format,omitempty"`
}

type DetachResponse struct {
	Slot uint8 `json:"slot"`
}

// Client is one DSU subscriber.
type Client struct {
	Addr     string    `json:"addr"`
	Mode     string    `json:"mode"`
	Slot     *uint8    `json:"slot,omitempty"`
	MAC      string    `json:"mac,omitempty"`
	LastSeen time.Time `json:"lastSeen"`
}

type ClientsListResponse struct {
	Clients []Client `json:"clients"`
}

type FormatsListResponse struct {
	Formats []string `json:"formats"`
}

type StatsResponse struct {
	Received   uint64 `json:"received"`
	Malformed  uint64 `json:"malformed"`
	Unknown    uint64 `json:"unknown"`
	PortsSent  uint64 `json:"portsSent"`
	DataSent   uint64 `json:"dataSent"`
	SendErrors uint64 `json:"sendErrors"`
	Evicted    uint64 `json:"evicted"`
	Clients    int    `json:"clients"`
}
