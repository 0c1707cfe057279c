// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package humandur formats durations for human readers ("29m30s", "2h5m").
// Used by the session-echo envelope, where agents relay the text to users.
package humandur

import (
	"strconv"
	"time"
)

// Format renders d rounded to whole seconds, dropping zero-valued trailing
// units. Negative durations clamp to "0s".
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)

	hours := int(d / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	seconds := int(d % time.Minute / time.Second)

	switch {
	case hours > 0 && minutes == 0 && seconds == 0:
		return strconv.Itoa(hours) + "h"
	case hours > 0 && seconds == 0:
		return strconv.Itoa(hours) + "h" + strconv.Itoa(minutes) + "m"
	case hours > 0:
		return strconv.Itoa(hours) + "h" + strconv.Itoa(minutes) + "m" + strconv.Itoa(seconds) + "s"
	case minutes > 0 && seconds == 0:
		return strconv.Itoa(minutes) + "m"
	case minutes > 0:
		return strconv.Itoa(minutes) + "m" + strconv.Itoa(seconds) + "s"
	default:
		return strconv.Itoa(seconds) + "s"
	}
}
