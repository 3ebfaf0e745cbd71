package main

import (
	"github.com/Loodyy/homebridge-switchbot/transport"
	"github.com/shimmeringbee/logwrap"
)

// constructScanner returns the radio scan collaborator. The standalone
// build carries no radio stack; platform builds that bundle one return
// their scanner here and it is serialized by the caller.
func constructScanner(l logwrap.Logger) transport.Scanner {
	return nil
}
