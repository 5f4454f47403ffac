package shuttle

import (
	"log"
	"os"
)

// Default loggers to os.Stdout and os.Stderr
var (
	Logger    = log.New(os.Stdout, "syslog-shuttle: ", log.LstdFlags)
	ErrLogger = log.New(os.Stderr, "syslog-shuttle: ", log.LstdFlags)
)
