package domain

import (
	"strings"
	"time"
)

// NodeID is the textual identity of a mesh node (e.g. "!a1b2c3d4").
type NodeID string

// Broadcast addresses every node on the primary channel.
const Broadcast NodeID = "^all"

// BatteryUnknown marks a node that never reported device metrics.
const BatteryUnknown = -1

// NodeInfo is what the radio knows about another node.
type NodeInfo struct {
	ID           NodeID    `json:"id"`
	ShortName    string    `json:"short_name"`
	LongName     string    `json:"long_name"`
	HwModel      string    `json:"hw_model"`
	Role         string    `json:"role"`
	LastHeard    time.Time `json:"last_heard"`
	BatteryLevel int       `json:"battery_level"`
}

// DisplayName returns the long name, falling back to the short name and then the id.
func (n NodeInfo) DisplayName() string {
	if n.LongName != "" {
		return n.LongName
	}
	if n.ShortName != "" {
		return n.ShortName
	}
	return "Node " + string(n.ID)
}

// HeardSince reports whether the node was heard at or after t.
func (n NodeInfo) HeardSince(t time.Time) bool {
	return !n.LastHeard.IsZero() && !n.LastHeard.Before(t)
}

// MatchesShortName compares short names case-insensitively.
func (n NodeInfo) MatchesShortName(name string) bool {
	return strings.EqualFold(n.ShortName, strings.TrimSpace(name))
}
