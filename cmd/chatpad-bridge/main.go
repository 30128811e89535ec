package main

import (
	"flag"
	"fmt"
	"os"

	bridge "github.com/jetkvm/chatpad-bridge"
)

func main() {
	configPath := flag.String("config", bridge.DefaultConfigPath, "path to the JSON config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	writeConfig := flag.Bool("write-config", false, "write the effective config to -config and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(bridge.VersionString())
		return
	}

	if *writeConfig {
		cfg, err := bridge.LoadConfig(*configPath)
		if err == nil {
			err = bridge.SaveConfig(*configPath, cfg)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := bridge.Main(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
