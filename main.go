// Command pinmeto-mcp serves PinMeTo location data to MCP hosts and the terminal.
package main

import "github.com/PinMeTo/pinmeto-location-mcp-sub001/cmd"

func main() {
	cmd.Execute()
}
