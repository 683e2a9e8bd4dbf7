package rakel

import (
	"log"
	"os"
)

var logger = log.New(os.Stderr, "[rakel] ", log.LstdFlags)
