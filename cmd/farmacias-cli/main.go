package main

import (
	"farmacias-turno/cmd/farmacias-cli/commands"
	"farmacias-turno/internal/components/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
