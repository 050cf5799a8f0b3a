package record

// Version is the current version of the record module.
const Version = "1.0.0"
