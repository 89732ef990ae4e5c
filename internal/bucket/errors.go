package bucket

import "errors"

// ErrMalformedState names the case of a persisted bucket hash whose fields
// fail to parse. Nothing in the package returns it: decode reports that
// case with ok=false, and Admit and Peek then treat the bucket as absent
// (spec §7: "Malformed bucket hash ... treated as if the bucket were
// absent: reinitialize and admit").
var ErrMalformedState = errors.New("bucket: malformed persisted state")
