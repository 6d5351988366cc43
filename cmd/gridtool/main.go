// gridtool is a CLI utility for generating, rendering and storing grids.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Faultbox/gridmesh/internal/config"
	"github.com/Faultbox/gridmesh/internal/logger"
)

func main() {
	// Global flags come before the command
	config.ParseFlags()
	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	args = args[1:]

	if command == "help" || command == "-h" || command == "--help" {
		printUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, cfg.Logging.File, true); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	switch command {
	case "stats":
		err = cmdStats(cfg, args)
	case "render":
		err = cmdRender(cfg, args)
	case "save":
		err = cmdSave(cfg, args)
	case "load":
		err = cmdLoad(cfg, args)
	case "list", "ls":
		err = cmdList(cfg, args)
	case "delete", "rm":
		err = cmdDelete(cfg, args)
	case "config":
		err = cmdConfig(cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`gridtool - grid mesh batching utility

Usage:
  gridtool [global flags] <command> [options]

Global flags:
  -config <file>   Config file (default ./config.yaml)
  -width, -height  Grid size in cells
  -chunk <n>       Chunk edge in cells (0 = whole grid)
  -shape <kind>    rect or hex
  -parallel        Rebuild chunks in parallel
  -debug           Debug logging

Commands:
  stats [-runs n]                      Fill the grid and report batching statistics
  render [-o file.png] [-from name]    Rasterize the grid to PNG
  save [-yaml file] <name>             Fill the grid and store it
  load [-o file.png] <name|file.yaml>  Restore a stored grid and report or render it
  list                                 List stored snapshots
  delete <name>                        Delete a stored snapshot
  config [-o file.yaml] [-save]        Print or write the effective configuration

Examples:
  gridtool -shape hex -chunk 8 stats
  gridtool render -o grid.png
  gridtool save -yaml forest.yaml forest
  gridtool load -o forest.png forest`)
}
