package killsrp

// Version is overridden at build time with -ldflags "-X killsrp.Version=...".
var Version = "dev"
