package config

// Environment variable names recognized by the alias map (spec §4.4, §6).
const (
	// EnvMapAliases is a comma-separated list of local:remote pairs, overriding any CLI aliases.
	EnvMapAliases = "HTTM_MAP_ALIASES"
	// EnvRemoteDir is the remote snapshot-bearing directory for the implicit single alias.
	EnvRemoteDir = "HTTM_REMOTE_DIR"
	// EnvSnapPoint is a legacy synonym for EnvRemoteDir.
	EnvSnapPoint = "HTTM_SNAP_POINT"
	// EnvLocalDir is the local side of the implicit alias; defaults to the working directory.
	EnvLocalDir = "HTTM_LOCAL_DIR"
)

// DiffCopyChunkSize is the fixed chunk size used by diff-copy (spec §4.8).
const DiffCopyChunkSize = 10_000

// Precautionary snapshot tags minted by Snap Guard (spec §4.10). Each guard
// snapshot is named <dataset>@snap_<tag>_<UTC timestamp>_<8 random hex chars>.
const (
	SnapRestoreSuffix     = "httmSnapRestore"
	SnapRollForwardSuffix = "httmSnapRollForward"
)

// Conventional Time Machine mount locations probed by Mount Inventory and Snap Locator (spec §4.1, §4.2, §6).
const (
	TimeMachineLocalMount  = "/Volumes/com.apple.TimeMachine.localsnapshots"
	TimeMachineRemoteMount = "/Volumes/.timemachine"
)
