package segment

// Version is the current version of the segment module.
const Version = "1.0.0"
