package types

// Version is the canonical project version.
// The CLI, the capture IPC contract and the completion event contract share
// this version.
const Version = "0.3.0"

// ContractVersion is the version stamped on capture frames and completion
// events. It moves in lockstep with Version.
const ContractVersion = Version
