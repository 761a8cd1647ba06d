package main

import (
	"reviewharvest/cmd/harvest/commands"
	"reviewharvest/lib/util/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
