package trafficlight

import "github.com/alecthomas/kong"

var Version = "dev"

type CLI struct {
	Config  string           `help:"config file path or URL" short:"c" required:"true" default:"trafficlight.yaml"`
	Debug   bool             `help:"debug mode" short:"d" default:"false"`
	Version kong.VersionFlag `help:"show version"`
}
