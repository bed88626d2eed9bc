package cmd

const (
	RootCmdName  = "carstore"
	RootCmdShort = "Car inventory REST service"
	RootCmdLong  = `carstore keeps a car inventory in a single JSON file and serves
list, search, create, delete and update operations over HTTP.`

	ServeCmdName  = "serve"
	ServeCmdShort = "Start the HTTP API"
	ServeCmdLong  = `Start the HTTP API on the configured address. Settings come from
flags, CARSERV_* environment variables and an optional config file.`

	VersionCmdName  = "version"
	VersionCmdShort = "Print the version"
)

// Version is overridden at build time with -ldflags "-X ...cmd.Version=...".
var Version = "dev"
