package common

// Environment variables consulted when the key file or API key are not
// passed on the command line.
const (
	EnvKeyFile = "PBX_KEY_FILE"
	EnvAPIKey  = "PBX_API_KEY"
	EnvJournal = "PBX_JOURNAL"
)
