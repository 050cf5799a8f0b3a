package shmslot

// Version is the current version of the shmslot module.
const Version = "1.0.0"
