package types

// Version is the SDK version reported in diagnostics and log context.
const Version = "1.4.0"
