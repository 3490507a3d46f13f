package browser

// BlockedSet exposes blockedSet to the external test package.
var BlockedSet = blockedSet
