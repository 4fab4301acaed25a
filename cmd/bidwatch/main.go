package main

import (
	"bidwatch/cmd/bidwatch/commands"
	"bidwatch/lib/serviceutil"
	"bidwatch/lib/telemetry"
	"context"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "bidwatch")
	telemetry.InitSlog(true)
	commands.ExecuteContext(serviceutil.SignalContext())
}
