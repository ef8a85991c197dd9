package pagefile

import "os"

const (
	osWriteFlags = os.O_RDWR | os.O_CREATE
	osReadFlags  = os.O_RDONLY | os.O_CREATE
)
