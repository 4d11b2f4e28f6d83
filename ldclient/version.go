package ldclient

// Version is the client version, included in the default User-Agent header.
const Version = "7.0.0"
