package state

// Version is the current version of the state module.
const Version = "2.0.0"
