package channel

// Version is the current version of the channel module.
const Version = "1.0.0"
