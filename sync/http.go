package sync

import "time"

// HTTPRequestTimeout bounds a Smartlead leads export request.
// The campaign listing relies on the default client and has no timeout.
const HTTPRequestTimeout = 60 * time.Second
