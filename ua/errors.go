package ua

import "errors"

// ErrNotReadyForCancel is returned by UAC.SendCancel when no provisional
// response has been received yet for the INVITE being cancelled (spec.md
// §4.F "Cancellation."). The caller should queue the cancel and retry once
// a provisional arrives, per spec.md §4.F.
var ErrNotReadyForCancel = errors.New("ua: cancel not valid before a provisional response")
