package cmd

// Version is stamped at build time via
// -ldflags "-X github.com/crediq/selfheal/cmd.Version=...".
var Version = "0.1.0-dev"
