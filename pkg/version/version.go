package version

// Current is overwritten at build time with -ldflags "-X .../pkg/version.Current=v1.2.3".
var Current = "dev"

const AppName = "netscope"
