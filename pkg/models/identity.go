package models

import "time"

// IDPrefix is prepended to every derived router identifier.
const IDPrefix = "ZN-"

// IdentitySource indicates which fallback produced a router identifier.
type IdentitySource string

const (
	IdentityFromInterface IdentitySource = "interface"
	IdentityFromHostname  IdentitySource = "hostname"
	IdentityFromClock     IdentitySource = "clock"
)

// MACSource indicates which lookup strategy resolved an admin device MAC.
type MACSource string

const (
	MACFromNeighbor MACSource = "neighbor"
	MACFromProbe    MACSource = "probe"
	MACFromLeases   MACSource = "leases"
	MACFromManual   MACSource = "manual"
)

// RouterIdentity is the stable identifier for the router being provisioned.
// The ID is derived once and persisted; re-running provisioning on an
// unchanged system must reproduce the same value.
type RouterIdentity struct {
	ID            string         `json:"id"`
	SourceAddress string         `json:"source_address"`
	Source        IdentitySource `json:"source"`
}

// AdminDevice is the operator's own device, resolved at install time so it
// can be whitelisted before the captive portal starts intercepting traffic.
// MAC may be empty: an unresolved admin device is a legitimate terminal
// state, not an error.
type AdminDevice struct {
	IP          string    `json:"ip,omitempty"`
	MAC         string    `json:"mac,omitempty"`
	Source      MACSource `json:"source,omitempty"`
	Whitelisted bool      `json:"whitelisted"`
}

// RunKind distinguishes install from uninstall runs in the run history.
type RunKind string

const (
	RunInstall   RunKind = "install"
	RunUninstall RunKind = "uninstall"
)

// RunOutcome is the terminal state of a recorded run.
type RunOutcome string

const (
	RunSucceeded RunOutcome = "succeeded"
	RunFailed    RunOutcome = "failed"
)

// RunRecord is one provisioning or uninstall run in the local history.
type RunRecord struct {
	ID         string     `json:"id"`
	Kind       RunKind    `json:"kind"`
	RouterID   string     `json:"router_id,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at,omitempty"`
	Outcome    RunOutcome `json:"outcome,omitempty"`
	Failure    string     `json:"failure,omitempty"`
}
