package totp

import "time"

// timeNow is overridable in tests that need to assert behavior at specific
// time steps without sleeping across a 30-second boundary.
var timeNow = time.Now
